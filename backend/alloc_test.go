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
package backend

import (
	"testing"

	"chococ/attr"
	"chococ/dialect/flat"
	"chococ/dialect/riscv"
	"chococ/dialect/riscvssa"
	"chococ/ir"
	"chococ/types"

	"github.com/stretchr/testify/require"
)

// buildFlatAddReturn builds a _main that returns `1 + 2`, the S1 shape,
// directly in the flat dialect (no frontend/lower involved -- this package
// tests C7/C8 in isolation).
func buildFlatAddReturn(t *testing.T) *ir.Module {
	t.Helper()
	m := ir.NewModule()
	fd := flat.NewFuncDef(m, "_main", nil, types.Int())
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

// TestSpillSlotUniqueness covers testable property 5: after register
// allocation, no two SSA values in the same function share a slot index.
func TestSpillSlotUniqueness(t *testing.T) {
	flatModule := buildFlatAddReturn(t)
	riscvSSA := LowerModule(flatModule)

	var fn *ir.Operation
	for _, op := range riscvSSA.Body.Entry().Ops {
		fn = op
	}
	require.NotNil(t, fn)

	f := newFrame()
	f.scan(riscvssa.FuncBody(fn))

	seen := map[int32]bool{}
	for _, slot := range f.slots {
		require.False(t, seen[slot], "duplicate slot index %d", slot)
		seen[slot] = true
	}
}

// TestPrologueEpilogueBalance covers testable property 6: the net sp
// adjustment in the prologue equals the negation of the epilogue's, and
// the function ends with a ret.
func TestPrologueEpilogueBalance(t *testing.T) {
	flatModule := buildFlatAddReturn(t)
	riscvSSA := LowerModule(flatModule)
	physical := ir.NewModule()

	var fn *ir.Operation
	for _, op := range riscvSSA.Body.Entry().Ops {
		fn = op
	}
	instrs := lowerFunction(physical, fn)
	require.NotEmpty(t, instrs)

	var prologueDelta, epilogueDelta int32
	for _, ins := range instrs {
		if ins.Kind == riscv.KindAddI {
			imm := ins.Attrs.MustGet("immediate").(attr.IntAttr).V
			if imm < 0 {
				prologueDelta += imm
			} else {
				epilogueDelta += imm
			}
		}
	}
	require.Equal(t, -prologueDelta, epilogueDelta, "prologue/epilogue sp adjustment must balance")
	require.Equal(t, riscv.KindRet, instrs[len(instrs)-1].Kind, "function must end with ret")
}

// TestCallMaterializesArgsIntoABIRegisters checks that a riscv_ssa call
// lowers its operands into a0..an before the jal, per the calling
// convention register_allocation.py uses.
func TestCallMaterializesArgsIntoABIRegisters(t *testing.T) {
	m := ir.NewModule()
	fd := flat.NewFuncDef(m, "_main", nil, types.NoneType())
	body := flat.FuncDefBody(fd)
	arg := flat.NewLiteral(m, types.Int(), attr.IntAttr{V: 7})
	body.Append(arg)
	call := flat.NewCallExpr(m, "_print_int", []*ir.Value{arg.Result()}, types.NoneType())
	body.Append(call)
	none := flat.NewLiteral(m, types.NoneType(), attr.NoneAttr{})
	body.Append(none)
	body.Append(flat.NewReturn(m, none.Result()))
	m.Body.Entry().Append(fd)

	riscvSSA := LowerModule(m)
	physical := ir.NewModule()
	var fn *ir.Operation
	for _, op := range riscvSSA.Body.Entry().Ops {
		fn = op
	}
	instrs := lowerFunction(physical, fn)

	var sawLoadIntoA0, sawJal bool
	for i, ins := range instrs {
		if ins.Kind == riscv.KindLW && ins.Attrs.MustGet("rd").(attr.RegisterAttr).Name == "a0" {
			sawLoadIntoA0 = true
		}
		if ins.Kind == riscv.KindJal {
			sawJal = true
			require.True(t, sawLoadIntoA0, "operand must be loaded into a0 before the jal at index %d", i)
		}
	}
	require.True(t, sawJal, "expected a jal to _print_int")
}
