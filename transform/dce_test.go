// Copyright (c) 2024 The Falcon Contributors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.
package transform_test

import (
	"testing"

	"chococ/dialect/flat"
	"chococ/ir"
	"chococ/transform"
	"chococ/types"

	"github.com/stretchr/testify/require"
)

func countOps(body *ir.Block) int { return len(body.Ops) }

// TestDeadCodeEliminateDropsUnusedLiteral covers testable property 8: DCE is
// monotone. Constant folding `1 + 2` into `3` replaces (and erases) the
// binary_expr, leaving the original literals 1 and 2 unused; DCE must
// remove them.
func TestDeadCodeEliminateDropsUnusedLiteral(t *testing.T) {
	m := lowerFlat(t, "print(1 + 2)\n")
	transform.IntroduceLibraryCalls(m)
	transform.ConstantFold(m)

	var main *ir.Operation
	for _, op := range m.Body.Entry().Ops {
		if op.Kind == flat.KindFuncDef && flat.FuncDefName(op) == "_main" {
			main = op
		}
	}
	require.NotNil(t, main)
	body := flat.FuncDefBody(main)
	before := countOps(body)

	transform.DeadCodeEliminate(m)
	after := countOps(body)
	require.Less(t, after, before, "the unused literals 1 and 2 must be dropped")
}

// TestDeadCodeEliminateIsMonotone covers testable property 8 directly:
// applying DCE a second time never increases operation count.
func TestDeadCodeEliminateIsMonotone(t *testing.T) {
	m := lowerFlat(t, "i:int = 0\nwhile i < 3:\n    i = i + 1\nprint(i)\n")
	transform.IntroduceLibraryCalls(m)
	transform.DeadCodeEliminate(m)

	var main *ir.Operation
	for _, op := range m.Body.Entry().Ops {
		if op.Kind == flat.KindFuncDef && flat.FuncDefName(op) == "_main" {
			main = op
		}
	}
	before := countOps(flat.FuncDefBody(main))
	transform.DeadCodeEliminate(m)
	after := countOps(flat.FuncDefBody(main))
	require.LessOrEqual(t, after, before)
}

// TestDeadCodeEliminateKeepsBinaryExprInsideWhile documents the source's
// imprecise while-body exemption (see SPEC_FULL.md design notes): a binary
// expression directly inside a while's cond/body survives even with no uses.
// The source has no unused binary expression, so the test inserts one into
// the while body right after its first op (the load of i).
func TestDeadCodeEliminateKeepsBinaryExprInsideWhile(t *testing.T) {
	m := lowerFlat(t, "i:int = 0\nwhile i < 3:\n    i = i + 1\n")
	transform.IntroduceLibraryCalls(m)

	var main *ir.Operation
	for _, op := range m.Body.Entry().Ops {
		if op.Kind == flat.KindFuncDef && flat.FuncDefName(op) == "_main" {
			main = op
		}
	}
	require.NotNil(t, main)
	var unused *ir.Operation
	for _, op := range flat.FuncDefBody(main).Ops {
		if op.Kind == flat.KindWhile {
			loopBody := op.Region(1).Entry()
			first := loopBody.Ops[0]
			unused = flat.NewBinaryExpr(m, "+", first.Result(), first.Result(), types.Int())
			loopBody.InsertAfter(first, unused)
		}
	}
	require.NotNil(t, unused)

	transform.DeadCodeEliminate(m)
	require.NotNil(t, unused.Parent, "an unused binary_expr directly in the while body must survive")

	var sawWhile bool
	for _, op := range flat.FuncDefBody(main).Ops {
		if op.Kind == flat.KindWhile {
			sawWhile = true
			require.NotEmpty(t, op.Region(0).Entry().Ops, "cond's binary_expr must survive")
		}
	}
	require.True(t, sawWhile)
}
