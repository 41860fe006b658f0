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
package ir_test

import (
	"testing"

	"chococ/attr"
	"chococ/dialect/flat"
	"chococ/ir"
	"chococ/types"

	"github.com/stretchr/testify/require"
)

// buildAddModule builds `1 + 2` inside a `_main` func_def, exercising Append's
// operand-use registration the same way lower.LowerProgram would.
func buildAddModule(t *testing.T) *ir.Module {
	t.Helper()
	m := ir.NewModule()
	fd := flat.NewFuncDef(m, "_main", nil, types.NoneType())
	body := flat.FuncDefBody(fd)

	one := flat.NewLiteral(m, types.Int(), attr.IntAttr{V: 1})
	body.Append(one)
	two := flat.NewLiteral(m, types.Int(), attr.IntAttr{V: 2})
	body.Append(two)
	sum := flat.NewBinaryExpr(m, "+", one.Result(), two.Result(), types.Int())
	body.Append(sum)
	body.Append(flat.NewReturn(m, sum.Result()))

	m.Body.Entry().Append(fd)
	return m
}

func TestCheckDefUseConsistency_ValidModule(t *testing.T) {
	m := buildAddModule(t)
	require.NoError(t, ir.CheckDefUseConsistency(m))
}

func TestCheckDefUseConsistency_DetectsStaleUse(t *testing.T) {
	m := buildAddModule(t)
	fd := m.Body.Entry().Ops[0]
	body := flat.FuncDefBody(fd)
	lit := body.Ops[0]

	// Directly append a bogus use without going through Append/registerOperandUses,
	// simulating a rewrite that forgot to register a use.
	lit.Result().Uses = append(lit.Result().Uses, ir.Use{})

	err := ir.CheckDefUseConsistency(m)
	require.Error(t, err)
}

func TestHasUses(t *testing.T) {
	m := buildAddModule(t)
	fd := m.Body.Entry().Ops[0]
	body := flat.FuncDefBody(fd)
	one := body.Ops[0]
	require.True(t, one.Result().HasUses(), "literal 1 feeds the binary_expr")

	orphan := flat.NewLiteral(m, types.Int(), attr.IntAttr{V: 99})
	require.False(t, orphan.Result().HasUses())
}

func TestBlockEraseRemovesOperandUses(t *testing.T) {
	m := buildAddModule(t)
	fd := m.Body.Entry().Ops[0]
	body := flat.FuncDefBody(fd)
	ret := body.Ops[3]
	sum := body.Ops[2]
	one := body.Ops[0]

	require.True(t, one.Result().HasUses())
	body.Erase(ret)
	require.True(t, one.Result().HasUses(), "one is still used by sum")
	body.Erase(sum)
	require.False(t, one.Result().HasUses(), "erasing the binary_expr must drop its operand uses")
}
