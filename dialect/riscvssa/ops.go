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

// Package riscvssa implements the virtual-register RISC-V instruction set
// (C4): every result is a fresh, infinite virtual register, grounded on
// _examples/original_source/riscv/ssa_dialect.py's Riscv*Operation families
// and on falcon's compile/codegen/lir.go three-operand LIR design. Unlike
// the Python original's one irdl_op_definition class per opcode, every
// instruction here shares the single ir.Operation record, distinguished by
// OpKind -- the "tagged variant, uniform record" design used throughout
// this module.
package riscvssa

import (
	"fmt"

	"chococ/attr"
	"chococ/ir"
	"chococ/types"
)

const dialectName = "riscv_ssa"

func kind(code int, name string) ir.OpKind {
	return ir.OpKind{Dialect: dialectName, Code: code, Name: name}
}

// RegisterType is the result/operand type of every virtual register in
// this dialect; it carries no payload (a bare tag), matching ssa_dialect.py's
// RegisterType ParametrizedAttribute with no fields.
func RegisterType() types.Type { return types.Type{Kind: types.KindObject} }

var (
	// Loads/stores
	KindLW = kind(1, "lw")
	KindLB = kind(2, "lb")
	KindLBU = kind(3, "lbu")
	KindSW = kind(4, "sw")
	KindSB = kind(5, "sb")

	// Arithmetic / logical, register-register
	KindAdd = kind(10, "add")
	KindSub = kind(11, "sub")
	KindMul = kind(12, "mul")
	KindDiv = kind(13, "div")
	KindRem = kind(14, "rem")
	KindAnd = kind(15, "and")
	KindOr  = kind(16, "or")
	KindXor = kind(17, "xor")
	KindSll = kind(18, "sll")
	KindSrl = kind(19, "srl")
	KindSra = kind(20, "sra")
	KindSlt  = kind(21, "slt")
	KindSltu = kind(22, "sltu")

	// Arithmetic / logical, register-immediate
	KindAddI  = kind(30, "addi")
	KindAndI  = kind(31, "andi")
	KindOrI   = kind(32, "ori")
	KindXorI  = kind(33, "xori")
	KindSllI  = kind(34, "slli")
	KindSrlI  = kind(35, "srli")
	KindSraI  = kind(36, "srai")
	KindSltI  = kind(37, "slti")
	KindSltIU = kind(38, "sltiu")

	KindLi  = kind(40, "li")
	KindLui = kind(41, "lui")

	// Branches (two registers + a target label)
	KindBeq  = kind(50, "beq")
	KindBne  = kind(51, "bne")
	KindBlt  = kind(52, "blt")
	KindBge  = kind(53, "bge")
	KindBltu = kind(54, "bltu")
	KindBgeu = kind(55, "bgeu")

	// Jumps
	KindJ    = kind(60, "j")
	KindJal  = kind(61, "jal")
	KindJalr = kind(62, "jalr")

	KindEcall = kind(70, "ecall")
	KindCall  = kind(71, "call")
	KindLabel = kind(72, "label")
	KindAlloc = kind(73, "alloc")
	KindFunc  = kind(74, "func")
	KindReturn = kind(75, "return")
	KindDirective = kind(76, "directive")
)

func binOp(k ir.OpKind, m *ir.Module, rs1, rs2 *ir.Value, comment string) *ir.Operation {
	attrs := ir.NewAttrMap()
	if comment != "" {
		attrs.Set("comment", attr.StringAttr{V: comment})
	}
	return m.NewOp(k, []*ir.Value{rs1, rs2}, []types.Type{RegisterType()}, attrs, nil)
}

func NewAdd(m *ir.Module, rs1, rs2 *ir.Value, comment string) *ir.Operation { return binOp(KindAdd, m, rs1, rs2, comment) }
func NewSub(m *ir.Module, rs1, rs2 *ir.Value, comment string) *ir.Operation { return binOp(KindSub, m, rs1, rs2, comment) }
func NewMul(m *ir.Module, rs1, rs2 *ir.Value, comment string) *ir.Operation { return binOp(KindMul, m, rs1, rs2, comment) }
func NewDiv(m *ir.Module, rs1, rs2 *ir.Value, comment string) *ir.Operation { return binOp(KindDiv, m, rs1, rs2, comment) }
func NewRem(m *ir.Module, rs1, rs2 *ir.Value, comment string) *ir.Operation { return binOp(KindRem, m, rs1, rs2, comment) }
func NewAnd(m *ir.Module, rs1, rs2 *ir.Value, comment string) *ir.Operation { return binOp(KindAnd, m, rs1, rs2, comment) }
func NewOr(m *ir.Module, rs1, rs2 *ir.Value, comment string) *ir.Operation  { return binOp(KindOr, m, rs1, rs2, comment) }
func NewXor(m *ir.Module, rs1, rs2 *ir.Value, comment string) *ir.Operation { return binOp(KindXor, m, rs1, rs2, comment) }
func NewSll(m *ir.Module, rs1, rs2 *ir.Value, comment string) *ir.Operation { return binOp(KindSll, m, rs1, rs2, comment) }
func NewSrl(m *ir.Module, rs1, rs2 *ir.Value, comment string) *ir.Operation { return binOp(KindSrl, m, rs1, rs2, comment) }
func NewSra(m *ir.Module, rs1, rs2 *ir.Value, comment string) *ir.Operation { return binOp(KindSra, m, rs1, rs2, comment) }
func NewSlt(m *ir.Module, rs1, rs2 *ir.Value, comment string) *ir.Operation { return binOp(KindSlt, m, rs1, rs2, comment) }
func NewSltu(m *ir.Module, rs1, rs2 *ir.Value, comment string) *ir.Operation { return binOp(KindSltu, m, rs1, rs2, comment) }

func immOp(k ir.OpKind, m *ir.Module, rs1 *ir.Value, imm int32, comment string) *ir.Operation {
	attrs := ir.NewAttrMap().Set("immediate", attr.IntAttr{V: imm})
	if comment != "" {
		attrs.Set("comment", attr.StringAttr{V: comment})
	}
	return m.NewOp(k, []*ir.Value{rs1}, []types.Type{RegisterType()}, attrs, nil)
}

func NewAddI(m *ir.Module, rs1 *ir.Value, imm int32, comment string) *ir.Operation  { return immOp(KindAddI, m, rs1, imm, comment) }
func NewAndI(m *ir.Module, rs1 *ir.Value, imm int32, comment string) *ir.Operation  { return immOp(KindAndI, m, rs1, imm, comment) }
func NewOrI(m *ir.Module, rs1 *ir.Value, imm int32, comment string) *ir.Operation   { return immOp(KindOrI, m, rs1, imm, comment) }
func NewXorI(m *ir.Module, rs1 *ir.Value, imm int32, comment string) *ir.Operation  { return immOp(KindXorI, m, rs1, imm, comment) }
func NewSllI(m *ir.Module, rs1 *ir.Value, imm int32, comment string) *ir.Operation  { return immOp(KindSllI, m, rs1, imm, comment) }
func NewSrlI(m *ir.Module, rs1 *ir.Value, imm int32, comment string) *ir.Operation  { return immOp(KindSrlI, m, rs1, imm, comment) }
func NewSraI(m *ir.Module, rs1 *ir.Value, imm int32, comment string) *ir.Operation  { return immOp(KindSraI, m, rs1, imm, comment) }
func NewSltI(m *ir.Module, rs1 *ir.Value, imm int32, comment string) *ir.Operation  { return immOp(KindSltI, m, rs1, imm, comment) }
func NewSltIU(m *ir.Module, rs1 *ir.Value, imm int32, comment string) *ir.Operation { return immOp(KindSltIU, m, rs1, imm, comment) }

func NewLi(m *ir.Module, imm int32, comment string) *ir.Operation {
	attrs := ir.NewAttrMap().Set("immediate", attr.IntAttr{V: imm})
	if comment != "" {
		attrs.Set("comment", attr.StringAttr{V: comment})
	}
	return m.NewOp(KindLi, nil, []types.Type{RegisterType()}, attrs, nil)
}

func NewLui(m *ir.Module, imm int32) *ir.Operation {
	return m.NewOp(KindLui, nil, []types.Type{RegisterType()}, ir.NewAttrMap().Set("immediate", attr.IntAttr{V: imm}), nil)
}

func loadOp(k ir.OpKind, m *ir.Module, rs1 *ir.Value, offset int32, comment string) *ir.Operation {
	attrs := ir.NewAttrMap().Set("immediate", attr.IntAttr{V: offset})
	if comment != "" {
		attrs.Set("comment", attr.StringAttr{V: comment})
	}
	return m.NewOp(k, []*ir.Value{rs1}, []types.Type{RegisterType()}, attrs, nil)
}

func NewLW(m *ir.Module, base *ir.Value, offset int32, comment string) *ir.Operation  { return loadOp(KindLW, m, base, offset, comment) }
func NewLB(m *ir.Module, base *ir.Value, offset int32, comment string) *ir.Operation  { return loadOp(KindLB, m, base, offset, comment) }
func NewLBU(m *ir.Module, base *ir.Value, offset int32, comment string) *ir.Operation { return loadOp(KindLBU, m, base, offset, comment) }

func storeOp(k ir.OpKind, m *ir.Module, base, value *ir.Value, offset int32, comment string) *ir.Operation {
	attrs := ir.NewAttrMap().Set("immediate", attr.IntAttr{V: offset})
	if comment != "" {
		attrs.Set("comment", attr.StringAttr{V: comment})
	}
	return m.NewOp(k, []*ir.Value{base, value}, nil, attrs, nil)
}

func NewSW(m *ir.Module, base, value *ir.Value, offset int32, comment string) *ir.Operation { return storeOp(KindSW, m, base, value, offset, comment) }
func NewSB(m *ir.Module, base, value *ir.Value, offset int32, comment string) *ir.Operation { return storeOp(KindSB, m, base, value, offset, comment) }

func branchOp(k ir.OpKind, m *ir.Module, rs1, rs2 *ir.Value, label string) *ir.Operation {
	return m.NewOp(k, []*ir.Value{rs1, rs2}, nil, ir.NewAttrMap().Set("label", attr.LabelAttr{Name: label}), nil)
}

func NewBeq(m *ir.Module, rs1, rs2 *ir.Value, label string) *ir.Operation  { return branchOp(KindBeq, m, rs1, rs2, label) }
func NewBne(m *ir.Module, rs1, rs2 *ir.Value, label string) *ir.Operation  { return branchOp(KindBne, m, rs1, rs2, label) }
func NewBlt(m *ir.Module, rs1, rs2 *ir.Value, label string) *ir.Operation  { return branchOp(KindBlt, m, rs1, rs2, label) }
func NewBge(m *ir.Module, rs1, rs2 *ir.Value, label string) *ir.Operation  { return branchOp(KindBge, m, rs1, rs2, label) }
func NewBltu(m *ir.Module, rs1, rs2 *ir.Value, label string) *ir.Operation { return branchOp(KindBltu, m, rs1, rs2, label) }
func NewBgeu(m *ir.Module, rs1, rs2 *ir.Value, label string) *ir.Operation { return branchOp(KindBgeu, m, rs1, rs2, label) }

func NewJ(m *ir.Module, label string) *ir.Operation {
	return m.NewOp(KindJ, nil, nil, ir.NewAttrMap().Set("label", attr.LabelAttr{Name: label}), nil)
}

func NewJal(m *ir.Module, label string) *ir.Operation {
	return m.NewOp(KindJal, nil, []types.Type{RegisterType()}, ir.NewAttrMap().Set("label", attr.LabelAttr{Name: label}), nil)
}

func NewJalr(m *ir.Module, rs1 *ir.Value, offset int32) *ir.Operation {
	return m.NewOp(KindJalr, []*ir.Value{rs1}, []types.Type{RegisterType()}, ir.NewAttrMap().Set("immediate", attr.IntAttr{V: offset}), nil)
}

// NewEcall models a RISC-V environment call: a7 holds the syscall number,
// a0-a2 the arguments, matching the syscall ABI constants in
// SPEC_FULL.md (read=63, write=64, exit=93).
func NewEcall(m *ir.Module, syscallNum *ir.Value, args []*ir.Value) *ir.Operation {
	operands := append([]*ir.Value{syscallNum}, args...)
	return m.NewOp(KindEcall, operands, nil, nil, nil)
}

// NewCall models a direct call to a named routine (user function or runtime
// thunk like _malloc/_print_int); hasResult controls whether a result
// register is produced, mirroring ssa_dialect.py's CallOp.get has_result flag.
func NewCall(m *ir.Module, funcName string, args []*ir.Value, hasResult bool) *ir.Operation {
	var results []types.Type
	if hasResult {
		results = []types.Type{RegisterType()}
	}
	return m.NewOp(KindCall, args, results, ir.NewAttrMap().Set("func_name", attr.SymbolAttr{Name: funcName}), nil)
}

func CallFuncName(op *ir.Operation) string {
	return op.Attrs.MustGet("func_name").(attr.SymbolAttr).Name
}

func NewLabel(m *ir.Module, label string) *ir.Operation {
	return m.NewOp(KindLabel, nil, nil, ir.NewAttrMap().Set("label", attr.LabelAttr{Name: label}), nil)
}

func LabelName(op *ir.Operation) string { return op.Attrs.MustGet("label").(attr.LabelAttr).Name }

// NewDirective models an assembler directive line, e.g. `.word 0` for the
// heap arena reservation, grounded on ssa_dialect.py's DirectiveOp.
func NewDirective(m *ir.Module, directive, value string) *ir.Operation {
	attrs := ir.NewAttrMap().Set("directive", attr.StringAttr{V: directive}).Set("value", attr.StringAttr{V: value})
	return m.NewOp(KindDirective, nil, nil, attrs, nil)
}

// NewAlloc reserves a fresh virtual register standing for a stack slot; the
// spill-everything register allocator (C8) assigns every such register its
// own fixed offset from sp.
func NewAlloc(m *ir.Module) *ir.Operation {
	return m.NewOp(KindAlloc, nil, []types.Type{RegisterType()}, nil, nil)
}

// NewFunc wraps a function body in a single-block region, matching
// ssa_dialect.py's FuncOp.
func NewFunc(m *ir.Module, name string) (*ir.Operation, *ir.Region) {
	body := m.NewRegion()
	o := m.NewOp(KindFunc, nil, nil, ir.NewAttrMap().Set("name", attr.SymbolAttr{Name: name}), []*ir.Region{body})
	return o, body
}

func FuncName(op *ir.Operation) string { return op.Attrs.MustGet("name").(attr.SymbolAttr).Name }
func FuncBody(op *ir.Operation) *ir.Block { return op.Regions[0].Entry() }

func NewReturn(m *ir.Module, value *ir.Value) *ir.Operation {
	var operands []*ir.Value
	if value != nil {
		operands = []*ir.Value{value}
	}
	return m.NewOp(KindReturn, operands, nil, nil, nil)
}

// String renders a line in a falcon-LIR-like "op result, args  # comment"
// shape for debugging/tracing (Debug-gated, per SPEC_FULL.md's logging
// section).
func String(op *ir.Operation) string {
	comment := ""
	if c, ok := op.Attrs.Get("comment"); ok {
		comment = " # " + c.(attr.StringAttr).V
	}
	return fmt.Sprintf("%s%s", op.String(), comment)
}
