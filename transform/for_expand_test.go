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

	"github.com/stretchr/testify/require"
)

// TestExpandForLoopsDesugarsToWhile checks that a `for` op is gone and a
// `while` op appears in its place after ExpandForLoops, per
// choco_ast_to_choco_flat.py's translate_for (here deferred to a dedicated
// flat-dialect pass instead).
func TestExpandForLoopsDesugarsToWhile(t *testing.T) {
	m := lowerFlat(t, "xs:[int] = [1, 2, 3]\nfor x in xs:\n    print(x)\n")

	var main *ir.Operation
	for _, op := range m.Body.Entry().Ops {
		if op.Kind == flat.KindFuncDef && flat.FuncDefName(op) == "_main" {
			main = op
		}
	}
	require.NotNil(t, main)
	body := flat.FuncDefBody(main)

	var sawForBefore bool
	for _, op := range body.Ops {
		if op.Kind == flat.KindFor {
			sawForBefore = true
		}
	}
	require.True(t, sawForBefore, "lowering must still produce a for op before expansion")

	transform.ExpandForLoops(m)

	var sawForAfter, sawWhileAfter bool
	for _, op := range body.Ops {
		if op.Kind == flat.KindFor {
			sawForAfter = true
		}
		if op.Kind == flat.KindWhile {
			sawWhileAfter = true
		}
	}
	require.False(t, sawForAfter, "no for op should survive expansion")
	require.True(t, sawWhileAfter, "expansion must introduce an equivalent while")
}
