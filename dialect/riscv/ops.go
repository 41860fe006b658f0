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

// Package riscv implements the physical-register RISC-V instruction set
// (C4), the target of register allocation (C8). A physical register is not
// an SSA value -- the same name is read and written by many instructions --
// so rd/rs1/rs2 are carried as attr.RegisterAttr attributes rather than as
// ir.Operation operands/results, mirroring how
// _examples/original_source/riscv/register_allocation.py's RiscvToRiscvSSAPattern
// assembles riscv.AddIOp.get("sp", "sp", ...) calls with bare register-name
// strings instead of SSAValues.
package riscv

import (
	"fmt"

	"chococ/attr"
	"chococ/ir"
)

const dialectName = "riscv"

func kind(code int, name string) ir.OpKind {
	return ir.OpKind{Dialect: dialectName, Code: code, Name: name}
}

var (
	KindLW  = kind(1, "lw")
	KindLB  = kind(2, "lb")
	KindLBU = kind(3, "lbu")
	KindSW  = kind(4, "sw")
	KindSB  = kind(5, "sb")

	KindAdd = kind(10, "add")
	KindSub = kind(11, "sub")
	KindMul = kind(12, "mul")
	KindDiv = kind(13, "div")
	KindRem = kind(14, "rem")
	KindAnd = kind(15, "and")
	KindOr  = kind(16, "or")
	KindXor = kind(17, "xor")
	KindSlt  = kind(18, "slt")
	KindSltu = kind(19, "sltu")

	KindAddI  = kind(30, "addi")
	KindSltI  = kind(31, "slti")
	KindSltIU = kind(32, "sltiu")

	KindLi = kind(40, "li")
	KindMv = kind(41, "mv")

	KindBeq = kind(50, "beq")
	KindBne = kind(51, "bne")
	KindBlt = kind(52, "blt")

	KindJ    = kind(60, "j")
	KindJal  = kind(61, "jal")
	KindRet  = kind(62, "ret")
	KindEcall = kind(70, "ecall")

	KindLabel   = kind(80, "label")
	KindComment = kind(81, "comment")
)

// Register names the fixed registers this backend actually emits:
// zero, ra, sp, tp (set from sp after _main's prologue, per
// register_allocation.py's "Move main stack pointer to special register"),
// a0-a7 argument/syscall registers, and t0-t6 scratch registers.
type Register = string

func reg(name string) Register { return name }

var (
	Zero = reg("zero")
	RA   = reg("ra")
	SP   = reg("sp")
	TP   = reg("tp")
)

func A(i int) Register { return fmt.Sprintf("a%d", i) }
func T(i int) Register { return fmt.Sprintf("t%d", i) }

func rAttr(name string, r Register) *ir.AttrMap {
	return ir.NewAttrMap().Set(name, attr.RegisterAttr{Name: r})
}

func threeReg(k ir.OpKind, m *ir.Module, rd, rs1, rs2 Register, comment string) *ir.Operation {
	attrs := rAttr("rd", rd).Set("rs1", attr.RegisterAttr{Name: rs1}).Set("rs2", attr.RegisterAttr{Name: rs2})
	if comment != "" {
		attrs.Set("comment", attr.StringAttr{V: comment})
	}
	return m.NewOp(k, nil, nil, attrs, nil)
}

func NewAdd(m *ir.Module, rd, rs1, rs2 Register, comment string) *ir.Operation { return threeReg(KindAdd, m, rd, rs1, rs2, comment) }
func NewSub(m *ir.Module, rd, rs1, rs2 Register, comment string) *ir.Operation { return threeReg(KindSub, m, rd, rs1, rs2, comment) }
func NewMul(m *ir.Module, rd, rs1, rs2 Register, comment string) *ir.Operation { return threeReg(KindMul, m, rd, rs1, rs2, comment) }
func NewDiv(m *ir.Module, rd, rs1, rs2 Register, comment string) *ir.Operation { return threeReg(KindDiv, m, rd, rs1, rs2, comment) }
func NewRem(m *ir.Module, rd, rs1, rs2 Register, comment string) *ir.Operation { return threeReg(KindRem, m, rd, rs1, rs2, comment) }
func NewAnd(m *ir.Module, rd, rs1, rs2 Register, comment string) *ir.Operation { return threeReg(KindAnd, m, rd, rs1, rs2, comment) }
func NewOr(m *ir.Module, rd, rs1, rs2 Register, comment string) *ir.Operation  { return threeReg(KindOr, m, rd, rs1, rs2, comment) }
func NewXor(m *ir.Module, rd, rs1, rs2 Register, comment string) *ir.Operation { return threeReg(KindXor, m, rd, rs1, rs2, comment) }
func NewSlt(m *ir.Module, rd, rs1, rs2 Register, comment string) *ir.Operation { return threeReg(KindSlt, m, rd, rs1, rs2, comment) }
func NewSltu(m *ir.Module, rd, rs1, rs2 Register, comment string) *ir.Operation { return threeReg(KindSltu, m, rd, rs1, rs2, comment) }

func NewAddI(m *ir.Module, rd, rs1 Register, imm int32, comment string) *ir.Operation {
	attrs := rAttr("rd", rd).Set("rs1", attr.RegisterAttr{Name: rs1}).Set("immediate", attr.IntAttr{V: imm})
	if comment != "" {
		attrs.Set("comment", attr.StringAttr{V: comment})
	}
	return m.NewOp(KindAddI, nil, nil, attrs, nil)
}

func NewSltI(m *ir.Module, rd, rs1 Register, imm int32, comment string) *ir.Operation {
	attrs := rAttr("rd", rd).Set("rs1", attr.RegisterAttr{Name: rs1}).Set("immediate", attr.IntAttr{V: imm})
	if comment != "" {
		attrs.Set("comment", attr.StringAttr{V: comment})
	}
	return m.NewOp(KindSltI, nil, nil, attrs, nil)
}

func NewLoad(k ir.OpKind, m *ir.Module, rd, base Register, offset int32, comment string) *ir.Operation {
	attrs := rAttr("rd", rd).Set("rs1", attr.RegisterAttr{Name: base}).Set("immediate", attr.IntAttr{V: offset})
	if comment != "" {
		attrs.Set("comment", attr.StringAttr{V: comment})
	}
	return m.NewOp(k, nil, nil, attrs, nil)
}

func NewLW(m *ir.Module, rd, base Register, offset int32, comment string) *ir.Operation { return NewLoad(KindLW, m, rd, base, offset, comment) }
func NewLB(m *ir.Module, rd, base Register, offset int32, comment string) *ir.Operation { return NewLoad(KindLB, m, rd, base, offset, comment) }

func NewStore(k ir.OpKind, m *ir.Module, rs, base Register, offset int32, comment string) *ir.Operation {
	attrs := rAttr("rs1", base).Set("rs2", attr.RegisterAttr{Name: rs}).Set("immediate", attr.IntAttr{V: offset})
	if comment != "" {
		attrs.Set("comment", attr.StringAttr{V: comment})
	}
	return m.NewOp(k, nil, nil, attrs, nil)
}

func NewSW(m *ir.Module, rs, base Register, offset int32, comment string) *ir.Operation { return NewStore(KindSW, m, rs, base, offset, comment) }
func NewSB(m *ir.Module, rs, base Register, offset int32, comment string) *ir.Operation { return NewStore(KindSB, m, rs, base, offset, comment) }

func NewLi(m *ir.Module, rd Register, imm int32, comment string) *ir.Operation {
	attrs := rAttr("rd", rd).Set("immediate", attr.IntAttr{V: imm})
	if comment != "" {
		attrs.Set("comment", attr.StringAttr{V: comment})
	}
	return m.NewOp(KindLi, nil, nil, attrs, nil)
}

func NewMv(m *ir.Module, rd, rs Register, comment string) *ir.Operation {
	attrs := rAttr("rd", rd).Set("rs1", attr.RegisterAttr{Name: rs})
	if comment != "" {
		attrs.Set("comment", attr.StringAttr{V: comment})
	}
	return m.NewOp(KindMv, nil, nil, attrs, nil)
}

func branch(k ir.OpKind, m *ir.Module, rs1, rs2 Register, label, comment string) *ir.Operation {
	attrs := ir.NewAttrMap().Set("rs1", attr.RegisterAttr{Name: rs1}).Set("rs2", attr.RegisterAttr{Name: rs2}).Set("label", attr.LabelAttr{Name: label})
	if comment != "" {
		attrs.Set("comment", attr.StringAttr{V: comment})
	}
	return m.NewOp(k, nil, nil, attrs, nil)
}

func NewBeq(m *ir.Module, rs1, rs2 Register, label, comment string) *ir.Operation { return branch(KindBeq, m, rs1, rs2, label, comment) }
func NewBne(m *ir.Module, rs1, rs2 Register, label, comment string) *ir.Operation { return branch(KindBne, m, rs1, rs2, label, comment) }
func NewBlt(m *ir.Module, rs1, rs2 Register, label, comment string) *ir.Operation { return branch(KindBlt, m, rs1, rs2, label, comment) }

func NewJ(m *ir.Module, label string) *ir.Operation {
	return m.NewOp(KindJ, nil, nil, ir.NewAttrMap().Set("label", attr.LabelAttr{Name: label}), nil)
}

func NewJal(m *ir.Module, rd Register, label string, comment string) *ir.Operation {
	attrs := rAttr("rd", rd).Set("label", attr.LabelAttr{Name: label})
	if comment != "" {
		attrs.Set("comment", attr.StringAttr{V: comment})
	}
	return m.NewOp(KindJal, nil, nil, attrs, nil)
}

func NewRet(m *ir.Module) *ir.Operation { return m.NewOp(KindRet, nil, nil, nil, nil) }

func NewEcall(m *ir.Module, comment string) *ir.Operation {
	attrs := ir.NewAttrMap()
	if comment != "" {
		attrs.Set("comment", attr.StringAttr{V: comment})
	}
	return m.NewOp(KindEcall, nil, nil, attrs, nil)
}

func NewLabel(m *ir.Module, name string) *ir.Operation {
	return m.NewOp(KindLabel, nil, nil, ir.NewAttrMap().Set("label", attr.LabelAttr{Name: name}), nil)
}

func NewComment(m *ir.Module, text string) *ir.Operation {
	return m.NewOp(KindComment, nil, nil, ir.NewAttrMap().Set("text", attr.StringAttr{V: text}), nil)
}

func RegAttr(op *ir.Operation, key string) Register {
	v, ok := op.Attrs.Get(key)
	if !ok {
		return ""
	}
	return v.(attr.RegisterAttr).Name
}

func IntAttrOf(op *ir.Operation, key string) int32 {
	return op.Attrs.MustGet(key).(attr.IntAttr).V
}

func LabelAttrOf(op *ir.Operation) string {
	return op.Attrs.MustGet("label").(attr.LabelAttr).Name
}
