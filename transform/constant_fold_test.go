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

	"chococ/attr"
	"chococ/dialect/flat"
	"chococ/frontend"
	"chococ/ir"
	"chococ/lower"
	"chococ/transform"

	"github.com/stretchr/testify/require"
)

func lowerFlat(t *testing.T, source string) *ir.Module {
	t.Helper()
	m := ir.NewModule()
	prog, err := frontend.Parse(m, source)
	require.NoError(t, err)
	flatModule, err := lower.LowerProgram(prog)
	require.NoError(t, err)
	return flatModule
}

// TestConstantFoldsIntLiteralAddition covers spec.md scenario S1: `1 + 2`
// folds to a single literal 3.
func TestConstantFoldsIntLiteralAddition(t *testing.T) {
	m := lowerFlat(t, "print(1 + 2)\n")
	transform.IntroduceLibraryCalls(m)
	transform.ConstantFold(m)

	var found bool
	for _, op := range m.Body.Entry().Ops {
		if op.Kind != flat.KindFuncDef || flat.FuncDefName(op) != "_main" {
			continue
		}
		for _, inner := range flat.FuncDefBody(op).Ops {
			if inner.Kind == flat.KindLiteral {
				if v, ok := flat.LiteralValue(inner).(attr.IntAttr); ok && v.V == 3 {
					found = true
				}
			}
		}
	}
	require.True(t, found, "expected a folded literal 3")
}

// TestConstantFoldIsIdempotent covers testable property 7: running constant
// folding twice yields the same module as running it once.
func TestConstantFoldIsIdempotent(t *testing.T) {
	m := lowerFlat(t, "print(1 + 2 + 3)\n")
	transform.IntroduceLibraryCalls(m)
	transform.ConstantFold(m)
	before := ir.Print(m)
	transform.ConstantFold(m)
	after := ir.Print(m)
	require.Equal(t, before, after)
}

// TestConstantFoldLeavesMultiplicationAlone matches constant_folding.py's
// scope: only `+` between two int literals is folded.
func TestConstantFoldLeavesMultiplicationAlone(t *testing.T) {
	m := lowerFlat(t, "print(2 * 3)\n")
	transform.IntroduceLibraryCalls(m)
	transform.ConstantFold(m)

	var sawMul bool
	for _, op := range m.Body.Entry().Ops {
		if op.Kind != flat.KindFuncDef || flat.FuncDefName(op) != "_main" {
			continue
		}
		for _, inner := range flat.FuncDefBody(op).Ops {
			if inner.Kind == flat.KindBinaryExpr && flat.BinaryExprOp(inner) == "*" {
				sawMul = true
			}
		}
	}
	require.True(t, sawMul, "multiplication must survive constant folding unfolded")
}
