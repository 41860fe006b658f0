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
	"fmt"

	"chococ/dialect/riscv"
	"chococ/ir"
)

// Syscall numbers, per SPEC_FULL.md's RISC-V syscall ABI.
const (
	syscallRead  = 63
	syscallWrite = 64
	syscallExit  = 93
)

// rb accumulates a hand-written physical-register routine. Unlike regalloc.go's
// funcEmitter (one stack slot per riscv_ssa value, mechanically derived),
// these routines are fixed runtime thunks written directly against scratch
// registers, grounded on register_allocation.py's add_print/add_input/
// add_list_concat/add_str_eq/add_print_error/exit_ops hand-written sequences.
type rb struct {
	m      *ir.Module
	out    []*ir.Operation
	labelN int
}

func newRB(m *ir.Module) *rb { return &rb{m: m} }

func (b *rb) label(prefix string) string {
	b.labelN++
	return fmt.Sprintf("_%s_%d", prefix, b.labelN)
}

func (b *rb) emit(op *ir.Operation) { b.out = append(b.out, op) }
func (b *rb) lbl(name string)       { b.emit(riscv.NewLabel(b.m, name)) }
func (b *rb) li(rd riscv.Register, v int32) { b.emit(riscv.NewLi(b.m, rd, v, "")) }
func (b *rb) lw(rd, base riscv.Register, off int32) { b.emit(riscv.NewLW(b.m, rd, base, off, "")) }
func (b *rb) sw(rs, base riscv.Register, off int32) { b.emit(riscv.NewSW(b.m, rs, base, off, "")) }
func (b *rb) lb(rd, base riscv.Register, off int32) { b.emit(riscv.NewLB(b.m, rd, base, off, "")) }
func (b *rb) sb(rs, base riscv.Register, off int32) { b.emit(riscv.NewSB(b.m, rs, base, off, "")) }
func (b *rb) add(rd, rs1, rs2 riscv.Register)  { b.emit(riscv.NewAdd(b.m, rd, rs1, rs2, "")) }
func (b *rb) sub(rd, rs1, rs2 riscv.Register)  { b.emit(riscv.NewSub(b.m, rd, rs1, rs2, "")) }
func (b *rb) mul(rd, rs1, rs2 riscv.Register)  { b.emit(riscv.NewMul(b.m, rd, rs1, rs2, "")) }
func (b *rb) divOp(rd, rs1, rs2 riscv.Register) { b.emit(riscv.NewDiv(b.m, rd, rs1, rs2, "")) }
func (b *rb) rem(rd, rs1, rs2 riscv.Register)  { b.emit(riscv.NewRem(b.m, rd, rs1, rs2, "")) }
func (b *rb) addi(rd, rs1 riscv.Register, imm int32) { b.emit(riscv.NewAddI(b.m, rd, rs1, imm, "")) }
func (b *rb) mv(rd, rs riscv.Register)         { b.emit(riscv.NewMv(b.m, rd, rs, "")) }
func (b *rb) beq(rs1, rs2 riscv.Register, l string) { b.emit(riscv.NewBeq(b.m, rs1, rs2, l, "")) }
func (b *rb) bne(rs1, rs2 riscv.Register, l string) { b.emit(riscv.NewBne(b.m, rs1, rs2, l, "")) }
func (b *rb) blt(rs1, rs2 riscv.Register, l string) { b.emit(riscv.NewBlt(b.m, rs1, rs2, l, "")) }
func (b *rb) j(l string)                       { b.emit(riscv.NewJ(b.m, l)) }
func (b *rb) jal(rd riscv.Register, l string)  { b.emit(riscv.NewJal(b.m, rd, l, "")) }
func (b *rb) ecall()                           { b.emit(riscv.NewEcall(b.m, "")) }
func (b *rb) ret()                             { b.emit(riscv.NewRet(b.m)) }
func (b *rb) comment(s string)                 { b.emit(riscv.NewComment(b.m, s)) }

var t0, t1, t2, t3, t4, t5, t6 = riscv.T(0), riscv.T(1), riscv.T(2), riscv.T(3), riscv.T(4), riscv.T(5), riscv.T(6)
var a0, a1, a2, a7 = riscv.A(0), riscv.A(1), riscv.A(2), riscv.A(7)

// printInt writes a0's signed decimal value followed by a newline, digit
// conversion grounded on register_allocation.py's add_print: repeated
// division by 10, buffer filled back-to-front, then a single write syscall.
func printInt(m *ir.Module) []*ir.Operation {
	b := newRB(m)
	b.lbl("_print_int")
	const frame = 32
	b.addi(riscv.SP, riscv.SP, -frame)
	b.sw(riscv.RA, riscv.SP, frame-4)
	b.li(t3, 0)
	b.sw(t3, riscv.SP, 20) // is_negative flag

	negLabel, convLabel := b.label("print_int_neg"), b.label("print_int_conv")
	b.blt(a0, riscv.Zero, negLabel)
	b.j(convLabel)
	b.lbl(negLabel)
	b.sub(a0, riscv.Zero, a0)
	b.li(t3, 1)
	b.sw(t3, riscv.SP, 20)
	b.lbl(convLabel)

	b.li(t4, 10) // '\n'
	b.addi(t5, riscv.SP, 12)
	b.sb(t4, t5, 0) // trailing '\n' at fixed offset 12

	b.li(t0, 11)
	b.sw(t0, riscv.SP, 16) // index, grows downward as digits are produced

	loop := b.label("print_int_loop")
	b.lbl(loop)
	b.li(t2, 10)
	b.rem(t1, a0, t2)
	b.li(t4, 48)
	b.add(t1, t1, t4) // ascii digit
	b.lw(t0, riscv.SP, 16)
	b.add(t5, riscv.SP, t0)
	b.sb(t1, t5, 0)
	b.addi(t0, t0, -1)
	b.sw(t0, riscv.SP, 16)
	b.divOp(a0, a0, t2)
	b.bne(a0, riscv.Zero, loop)

	noSign := b.label("print_int_nosign")
	b.lw(t3, riscv.SP, 20)
	b.beq(t3, riscv.Zero, noSign)
	b.lw(t0, riscv.SP, 16)
	b.li(t4, 45) // '-'
	b.add(t5, riscv.SP, t0)
	b.sb(t4, t5, 0)
	b.addi(t0, t0, -1)
	b.sw(t0, riscv.SP, 16)
	b.lbl(noSign)

	b.lw(t0, riscv.SP, 16)
	b.add(a1, riscv.SP, t0)
	b.addi(a1, a1, 1) // first char address
	b.li(t2, 12)
	b.sub(a2, t2, t0) // length = digits + sign + trailing newline
	b.li(a0, 1)
	b.li(a7, syscallWrite)
	b.ecall()

	b.li(a0, 0)
	b.lw(riscv.RA, riscv.SP, frame-4)
	b.addi(riscv.SP, riscv.SP, frame)
	b.ret()
	return b.out
}

// printBool stores "True\n" or "False\n" byte by byte into a small on-stack
// buffer and writes it with a single write syscall, grounded on
// register_allocation.py's add_print_bool.
func printBool(m *ir.Module) []*ir.Operation {
	b := newRB(m)
	b.lbl("_print_bool")
	const frame = 16
	b.addi(riscv.SP, riscv.SP, -frame)
	b.sw(riscv.RA, riscv.SP, frame-4)

	falseLabel, doneLabel := b.label("print_bool_false"), b.label("print_bool_done")
	b.beq(a0, riscv.Zero, falseLabel)
	writeLiteral(b, "True\n", 0)
	b.j(doneLabel)
	b.lbl(falseLabel)
	writeLiteral(b, "False\n", 0)
	b.lbl(doneLabel)

	b.li(a0, 0)
	b.lw(riscv.RA, riscv.SP, frame-4)
	b.addi(riscv.SP, riscv.SP, frame)
	b.ret()
	return b.out
}

// writeLiteral stores s's bytes into the stack at [sp+bufOff, ...) and emits
// one write syscall for the whole literal in place.
func writeLiteral(b *rb, s string, bufOff int32) {
	for i, c := range []byte(s) {
		b.li(t0, int32(c))
		b.sb(t0, riscv.SP, bufOff+int32(i))
	}
	b.addi(a1, riscv.SP, bufOff)
	b.li(a2, int32(len(s)))
	b.li(a0, 1)
	b.li(a7, syscallWrite)
	b.ecall()
}

// printStr walks the heap string's word-per-character array, copying each
// character's low byte out to a one-byte scratch cell and writing it,
// grounded on register_allocation.py's add_print_string (same [length]
// [elements] heap layout as a list).
func printStr(m *ir.Module) []*ir.Operation {
	b := newRB(m)
	b.lbl("_print_str")
	const frame = 32
	b.addi(riscv.SP, riscv.SP, -frame)
	b.sw(riscv.RA, riscv.SP, frame-4)
	b.sw(a0, riscv.SP, 24) // base ptr
	b.lw(t0, a0, 0)
	b.sw(t0, riscv.SP, 20) // length
	b.li(t0, 0)
	b.sw(t0, riscv.SP, 16) // index

	loop, body, done := b.label("print_str_loop"), b.label("print_str_body"), b.label("print_str_done")
	b.lbl(loop)
	b.lw(t0, riscv.SP, 16)
	b.lw(t1, riscv.SP, 20)
	b.blt(t0, t1, body)
	b.j(done)
	b.lbl(body)
	b.lw(t2, riscv.SP, 24)
	b.li(t3, 4)
	b.mul(t4, t0, t3)
	b.addi(t4, t4, 4)
	b.add(t5, t2, t4)
	b.lw(t6, t5, 0)
	b.sb(t6, riscv.SP, 12)
	b.addi(a1, riscv.SP, 12)
	b.li(a2, 1)
	b.li(a0, 1)
	b.li(a7, syscallWrite)
	b.ecall()
	b.lw(t0, riscv.SP, 16)
	b.addi(t0, t0, 1)
	b.sw(t0, riscv.SP, 16)
	b.j(loop)
	b.lbl(done)

	b.li(t6, 10) // '\n'
	b.sb(t6, riscv.SP, 12)
	b.addi(a1, riscv.SP, 12)
	b.li(a2, 1)
	b.li(a0, 1)
	b.li(a7, syscallWrite)
	b.ecall()

	b.li(a0, 0)
	b.lw(riscv.RA, riscv.SP, frame-4)
	b.addi(riscv.SP, riscv.SP, frame)
	b.ret()
	return b.out
}

// readInput reads one line from stdin into a fixed raw byte buffer, then
// repacks it into a freshly allocated heap string (one word per character),
// grounded on register_allocation.py's add_input.
func readInput(m *ir.Module) []*ir.Operation {
	b := newRB(m)
	b.lbl("_input")
	// Raw buffer occupies [0, rawCap); the scalar slots and ra sit above it
	// so neither region ever aliases the other.
	const rawCap = 256
	const nreadSlot = rawCap
	const heapBaseSlot = rawCap + 4
	const idxSlot = rawCap + 8
	const frame = rawCap + 16
	b.addi(riscv.SP, riscv.SP, -frame)
	b.sw(riscv.RA, riscv.SP, frame-4)

	b.li(a0, 0) // fd stdin
	b.addi(a1, riscv.SP, 0)
	b.li(a2, rawCap-1)
	b.li(a7, syscallRead)
	b.ecall()
	b.sw(a0, riscv.SP, nreadSlot)

	// Strip a trailing newline, if present.
	trimDone := b.label("input_trim_done")
	b.beq(a0, riscv.Zero, trimDone)
	b.addi(t0, a0, -1)
	b.addi(t1, riscv.SP, 0)
	b.add(t1, t1, t0)
	b.lb(t2, t1, 0)
	b.li(t3, 10)
	b.bne(t2, t3, trimDone)
	b.sw(t0, riscv.SP, nreadSlot)
	b.lbl(trimDone)

	b.lw(t0, riscv.SP, nreadSlot)
	b.addi(t1, t0, 1)
	b.li(t2, 4)
	b.mul(a0, t1, t2)
	b.jal(riscv.RA, "_malloc")
	b.sw(a0, riscv.SP, heapBaseSlot)
	b.lw(t0, riscv.SP, nreadSlot)
	b.sw(t0, a0, 0)

	b.li(t0, 0)
	b.sw(t0, riscv.SP, idxSlot)
	loop, body, done := b.label("input_loop"), b.label("input_body"), b.label("input_done")
	b.lbl(loop)
	b.lw(t0, riscv.SP, idxSlot)
	b.lw(t1, riscv.SP, nreadSlot)
	b.blt(t0, t1, body)
	b.j(done)
	b.lbl(body)
	b.addi(t2, riscv.SP, 0)
	b.add(t2, t2, t0)
	b.lb(t3, t2, 0) // raw byte
	b.lw(t4, riscv.SP, heapBaseSlot)
	b.li(t5, 4)
	b.mul(t6, t0, t5)
	b.addi(t6, t6, 4)
	b.add(t6, t4, t6)
	b.sw(t3, t6, 0)
	b.addi(t0, t0, 1)
	b.sw(t0, riscv.SP, idxSlot)
	b.j(loop)
	b.lbl(done)

	b.lw(a0, riscv.SP, heapBaseSlot)
	b.lw(riscv.RA, riscv.SP, frame-4)
	b.addi(riscv.SP, riscv.SP, frame)
	b.ret()
	return b.out
}

// listConcat concatenates two [length][elements] heap objects word-for-word;
// the same routine serves both `list + list` and `str + str` since both
// share the heap layout, grounded on register_allocation.py's add_list_concat.
func listConcat(m *ir.Module) []*ir.Operation {
	b := newRB(m)
	b.lbl("_list_concat")
	const frame = 48
	b.addi(riscv.SP, riscv.SP, -frame)
	b.sw(riscv.RA, riscv.SP, frame-4)
	b.sw(a0, riscv.SP, 40) // lhs base
	b.sw(a1, riscv.SP, 36) // rhs base

	b.lw(t0, a0, 0)
	b.sw(t0, riscv.SP, 32) // len lhs
	b.lw(t1, a1, 0)
	b.sw(t1, riscv.SP, 28) // len rhs
	b.add(t2, t0, t1)
	b.sw(t2, riscv.SP, 24) // total length

	b.addi(t3, t2, 1)
	b.li(t4, 4)
	b.mul(a0, t3, t4)
	b.jal(riscv.RA, "_malloc")
	b.sw(a0, riscv.SP, 20) // result base
	b.lw(t2, riscv.SP, 24)
	b.sw(t2, a0, 0)

	b.li(t0, 0)
	b.sw(t0, riscv.SP, 16) // dest index, shared across both copy loops
	copyWords(b, 40, 32, 12, 20, 16)
	copyWords(b, 36, 28, 8, 20, 16)

	b.lw(a0, riscv.SP, 20)
	b.lw(riscv.RA, riscv.SP, frame-4)
	b.addi(riscv.SP, riscv.SP, frame)
	b.ret()
	return b.out
}

// copyWords copies the words of the [length][elements] heap object based at
// slot srcBaseSlot (length at srcLenSlot) into the heap object based at
// dstBaseSlot, starting at the (shared, monotonically advancing) destination
// index held in dstIdxSlot; srcIdxSlot is a scratch cell private to this
// call, used only as this loop's own source index.
func copyWords(b *rb, srcBaseSlot, srcLenSlot, srcIdxSlot, dstBaseSlot, dstIdxSlot int32) {
	loop, body, done := b.label("copy_words_loop"), b.label("copy_words_body"), b.label("copy_words_done")
	b.li(t0, 0)
	b.sw(t0, riscv.SP, srcIdxSlot)
	b.lbl(loop)
	b.lw(t0, riscv.SP, srcIdxSlot)
	b.lw(t1, riscv.SP, srcLenSlot)
	b.blt(t0, t1, body)
	b.j(done)
	b.lbl(body)
	b.lw(t2, riscv.SP, srcBaseSlot)
	b.li(t3, 4)
	b.mul(t4, t0, t3)
	b.addi(t4, t4, 4)
	b.add(t5, t2, t4)
	b.lw(t6, t5, 0) // element word

	b.lw(t2, riscv.SP, dstBaseSlot)
	b.lw(t3, riscv.SP, dstIdxSlot)
	b.li(t4, 4)
	b.mul(t4, t3, t4)
	b.addi(t4, t4, 4)
	b.add(t5, t2, t4)
	b.sw(t6, t5, 0)

	b.addi(t3, t3, 1)
	b.sw(t3, riscv.SP, dstIdxSlot)

	b.lw(t0, riscv.SP, srcIdxSlot)
	b.addi(t0, t0, 1)
	b.sw(t0, riscv.SP, srcIdxSlot)
	b.j(loop)
	b.lbl(done)
}

// printError emits a fixed runtime trap: print message then exit(1), never
// returning to its caller. Grounded on register_allocation.py's
// add_print_error(mod, name, message) = LabelOp + print_message_ops(message)
// + exit_ops(1); since the process terminates here, ra is not saved and
// there is no ret, unlike every other routine in this file. The stack
// buffer holding the message is released before the exit syscall.
func printError(m *ir.Module, label, message string) []*ir.Operation {
	b := newRB(m)
	b.lbl(label)
	text := message + "\n"
	frame := int32(((len(text) + 15) / 16) * 16)
	if frame == 0 {
		frame = 16
	}
	b.addi(riscv.SP, riscv.SP, -frame)
	writeLiteral(b, text, 0)
	b.addi(riscv.SP, riscv.SP, frame)
	b.li(a0, 1)
	b.li(a7, syscallExit)
	b.ecall()
	return b.out
}

// strEq compares two heap string objects element-by-element, grounded on
// register_allocation.py's add_str_eq.
func strEq(m *ir.Module) []*ir.Operation {
	b := newRB(m)
	b.lbl("_str_eq")
	const frame = 32
	b.addi(riscv.SP, riscv.SP, -frame)
	b.sw(riscv.RA, riscv.SP, frame-4)
	b.sw(a0, riscv.SP, 24)
	b.sw(a1, riscv.SP, 20)

	b.lw(t0, a0, 0)
	b.lw(t1, a1, 0)
	neLabel, lenEqLabel := b.label("str_eq_lenne"), b.label("str_eq_lengths_equal")
	b.bne(t0, t1, neLabel)
	b.j(lenEqLabel)
	b.lbl(neLabel)
	b.li(a0, 0)
	b.lw(riscv.RA, riscv.SP, frame-4)
	b.addi(riscv.SP, riscv.SP, frame)
	b.ret()
	b.lbl(lenEqLabel)
	b.sw(t0, riscv.SP, 16) // length
	b.li(t2, 0)
	b.sw(t2, riscv.SP, 12) // index

	loop, body, eq, neq := b.label("str_eq_loop"), b.label("str_eq_body"), b.label("str_eq_true"), b.label("str_eq_false")
	b.lbl(loop)
	b.lw(t0, riscv.SP, 12)
	b.lw(t1, riscv.SP, 16)
	b.blt(t0, t1, body)
	b.j(eq)
	b.lbl(body)
	b.lw(t2, riscv.SP, 24)
	b.li(t3, 4)
	b.mul(t4, t0, t3)
	b.addi(t4, t4, 4)
	b.add(t5, t2, t4)
	b.lw(t6, t5, 0)
	b.sw(t6, riscv.SP, 8) // lhs char

	b.lw(t2, riscv.SP, 20)
	b.add(t5, t2, t4)
	b.lw(t6, t5, 0) // rhs char
	b.lw(t2, riscv.SP, 8)
	b.bne(t2, t6, neq)

	b.lw(t0, riscv.SP, 12)
	b.addi(t0, t0, 1)
	b.sw(t0, riscv.SP, 12)
	b.j(loop)

	done := b.label("str_eq_done")
	b.lbl(neq)
	b.li(a0, 0)
	b.j(done)
	b.lbl(eq)
	b.li(a0, 1)
	b.lbl(done)

	b.lw(riscv.RA, riscv.SP, frame-4)
	b.addi(riscv.SP, riscv.SP, frame)
	b.ret()
	return b.out
}
