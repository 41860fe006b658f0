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

func callNamesIn(body *ir.Block) []string {
	var names []string
	for _, op := range body.Ops {
		if op.Kind == flat.KindCallExpr {
			names = append(names, flat.CallExprFuncName(op))
		}
	}
	return names
}

// TestIntroduceLibraryCallsDispatchesPrintByType checks that print's runtime
// target is chosen by its argument's static type.
func TestIntroduceLibraryCallsDispatchesPrintByType(t *testing.T) {
	m := lowerFlat(t, "print(1)\nprint(True)\nprint(\"hi\")\n")
	transform.IntroduceLibraryCalls(m)

	var main *ir.Operation
	for _, op := range m.Body.Entry().Ops {
		if op.Kind == flat.KindFuncDef && flat.FuncDefName(op) == "_main" {
			main = op
		}
	}
	names := callNamesIn(flat.FuncDefBody(main))
	require.Contains(t, names, "_print_int")
	require.Contains(t, names, "_print_bool")
	require.Contains(t, names, "_print_str")
}

// TestIntroduceLibraryCallsRewritesStringConcat checks `str + str` routes to
// _list_concat (shared word-array concat helper).
func TestIntroduceLibraryCallsRewritesStringConcat(t *testing.T) {
	m := lowerFlat(t, "print(\"a\" + \"b\")\n")
	transform.IntroduceLibraryCalls(m)

	var main *ir.Operation
	for _, op := range m.Body.Entry().Ops {
		if op.Kind == flat.KindFuncDef && flat.FuncDefName(op) == "_main" {
			main = op
		}
	}
	require.Contains(t, callNamesIn(flat.FuncDefBody(main)), "_list_concat")
}

// TestIntroduceLibraryCallsIsIdempotent covers testable property 9: applying
// library-call introduction after it has already run changes nothing
// further (every call_expr it would rewrite has already been rewritten to a
// runtime-call shape it does not match again).
func TestIntroduceLibraryCallsIsIdempotent(t *testing.T) {
	m := lowerFlat(t, "print(1 + 2)\nprint(\"a\" + \"b\")\n")
	transform.IntroduceLibraryCalls(m)
	before := ir.Print(m)
	transform.IntroduceLibraryCalls(m)
	after := ir.Print(m)
	require.Equal(t, before, after)
}
