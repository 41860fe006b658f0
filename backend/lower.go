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

// Package backend implements Flat->RISC-V-SSA lowering (C7) and the
// spill-everything register allocator plus emitter (C8), grounded on
// _examples/original_source/riscv/function_lowering.py and
// register_allocation.py. Structured control flow (if/while/if_expr/
// effectful_binary_expr) is lowered here directly to labels and
// conditional branches, since riscv_ssa (unlike flat) has no regions.
package backend

import (
	"fmt"

	"chococ/attr"
	"chococ/dialect/flat"
	"chococ/dialect/riscvssa"
	"chococ/ir"
	"chococ/utils"
)

// heapWordSize is the size in bytes of every list/string element and the
// length header word, per the heap layout in SPEC_FULL.md.
const heapWordSize = 4

// Runtime error-trap labels, grounded on register_allocation.py's
// add_print_error(mod, name, message) calls: each prints a fixed message
// and exits with status 1. The routines themselves are emitted once by
// backend/emit.go's Compile; every guard below only branches to them.
const (
	trapLenNone       = "_error_len_none"
	trapListIndexOOB  = "_list_index_oob"
	trapListIndexNone = "_list_index_none"
	trapDivZero       = "_error_div_zero"
)

// trapIfZero branches to trapLabel when v is zero (ChocoPy's None is the
// heap address zero), guarding a None base before it is dereferenced.
func trapIfZero(ctx *funcCtx, v *ir.Value, trapLabel string) {
	zero := riscvssa.NewLi(ctx.m, 0, "")
	ctx.blk.Append(zero)
	ctx.blk.Append(riscvssa.NewBeq(ctx.m, v, zero.Result(), trapLabel))
}

// trapIfOutOfRange branches to _list_index_oob unless 0 <= index < length,
// where length is the heap object's own header word.
func trapIfOutOfRange(ctx *funcCtx, base, index *ir.Value) {
	zero := riscvssa.NewLi(ctx.m, 0, "")
	ctx.blk.Append(zero)
	ctx.blk.Append(riscvssa.NewBlt(ctx.m, index, zero.Result(), trapListIndexOOB))
	length := riscvssa.NewLW(ctx.m, base, 0, "length (bounds check)")
	ctx.blk.Append(length)
	ctx.blk.Append(riscvssa.NewBge(ctx.m, index, length.Result(), trapListIndexOOB))
}

type funcCtx struct {
	m     *ir.Module // riscv_ssa module
	blk   *ir.Block
	vmap  map[*ir.Value]*ir.Value
	label *int
}

func (c *funcCtx) newLabel(prefix string) string {
	*c.label++
	return fmt.Sprintf("_%s_%d", prefix, *c.label)
}

func (c *funcCtx) set(flatVal, riscvVal *ir.Value) { c.vmap[flatVal] = riscvVal }

func (c *funcCtx) get(flatVal *ir.Value) *ir.Value {
	v, ok := c.vmap[flatVal]
	utils.Assert(ok, "backend: no riscv_ssa value for flat value %s", flatVal.String())
	return v
}

// LowerModule lowers every func_def in a flat module (including the
// synthesized _main) into a riscv_ssa module with one riscv_ssa.func per
// flat function.
func LowerModule(flatModule *ir.Module) *ir.Module {
	out := ir.NewModule()
	label := 0
	for _, op := range flatModule.Body.Entry().Ops {
		if op.Kind != flat.KindFuncDef {
			continue
		}
		lowerFuncDef(out, op, &label)
	}
	return out
}

func lowerFuncDef(out *ir.Module, fd *ir.Operation, label *int) {
	name := flat.FuncDefName(fd)
	fn, body := riscvssa.NewFunc(out, name)
	out.Body.Entry().Append(fn)

	ctx := &funcCtx{m: out, blk: body.Entry(), vmap: map[*ir.Value]*ir.Value{}, label: label}
	flatBody := flat.FuncDefBody(fd)
	for i, arg := range flatBody.Args {
		_ = i
		vreg := body.Entry().AddArg(riscvssa.RegisterType())
		ctx.set(arg, vreg)
	}
	lowerOps(ctx, flatBody.Ops)
}

// lowerOps lowers a straight-line run of flat operations, dispatching
// control-flow-bearing kinds to their dedicated lowering.
func lowerOps(ctx *funcCtx, ops []*ir.Operation) {
	for _, op := range ops {
		lowerOp(ctx, op)
	}
}

func lowerOp(ctx *funcCtx, op *ir.Operation) {
	switch op.Kind {
	case flat.KindLiteral:
		lowerLiteral(ctx, op)
	case flat.KindUnaryExpr:
		lowerUnary(ctx, op)
	case flat.KindBinaryExpr:
		lowerBinary(ctx, op)
	case flat.KindEffectfulBinaryExpr:
		lowerEffectfulBinary(ctx, op)
	case flat.KindIfExpr:
		lowerIfExpr(ctx, op)
	case flat.KindIf:
		lowerIf(ctx, op)
	case flat.KindWhile:
		lowerWhile(ctx, op)
	case flat.KindListExpr:
		lowerListExpr(ctx, op)
	case flat.KindCallExpr:
		lowerCall(ctx, op)
	case flat.KindAlloc:
		a := riscvssa.NewAlloc(ctx.m)
		ctx.blk.Append(a)
		ctx.set(op.Result(), a.Result())
	case flat.KindGetAddress:
		lowerGetAddress(ctx, op)
	case flat.KindIndexString:
		lowerIndexString(ctx, op)
	case flat.KindLoad:
		addr := ctx.get(op.Operands[0])
		l := riscvssa.NewLW(ctx.m, addr, 0, "load")
		ctx.blk.Append(l)
		ctx.set(op.Result(), l.Result())
	case flat.KindStore:
		addr := ctx.get(op.Operands[0])
		val := ctx.get(op.Operands[1])
		ctx.blk.Append(riscvssa.NewSW(ctx.m, addr, val, 0, "store"))
	case flat.KindLen:
		base := ctx.get(op.Operands[0])
		trapIfZero(ctx, base, trapLenNone)
		l := riscvssa.NewLW(ctx.m, base, 0, "length")
		ctx.blk.Append(l)
		ctx.set(op.Result(), l.Result())
	case flat.KindReturn:
		ctx.blk.Append(riscvssa.NewReturn(ctx.m, ctx.get(op.Operands[0])))
	default:
		utils.Unimplement()
	}
}

func lowerLiteral(ctx *funcCtx, op *ir.Operation) {
	v := flat.LiteralValue(op)
	switch a := v.(type) {
	case attr.IntAttr:
		li := riscvssa.NewLi(ctx.m, a.V, "")
		ctx.blk.Append(li)
		ctx.set(op.Result(), li.Result())
	case attr.BoolAttr:
		val := int32(0)
		if a.V {
			val = 1
		}
		li := riscvssa.NewLi(ctx.m, val, "")
		ctx.blk.Append(li)
		ctx.set(op.Result(), li.Result())
	case attr.NoneAttr:
		li := riscvssa.NewLi(ctx.m, 0, "None")
		ctx.blk.Append(li)
		ctx.set(op.Result(), li.Result())
	case attr.StringAttr:
		lowerStringLiteral(ctx, op, a.V)
	default:
		utils.Fatal("unsupported literal attribute %T", v)
	}
}

// lowerStringLiteral builds a heap string object: [length][char0][char1]...,
// one word per character, matching the heap layout read by the _print_str
// runtime routine.
func lowerStringLiteral(ctx *funcCtx, op *ir.Operation, s string) {
	chars := []rune(s)
	size := riscvssa.NewLi(ctx.m, int32((len(chars)+1)*heapWordSize), "string size")
	ctx.blk.Append(size)
	call := riscvssa.NewCall(ctx.m, "_malloc", []*ir.Value{size.Result()}, true)
	ctx.blk.Append(call)
	base := call.Result()
	lenLit := riscvssa.NewLi(ctx.m, int32(len(chars)), "string length")
	ctx.blk.Append(lenLit)
	ctx.blk.Append(riscvssa.NewSW(ctx.m, base, lenLit.Result(), 0, "store length"))
	for i, c := range chars {
		cl := riscvssa.NewLi(ctx.m, int32(c), "char")
		ctx.blk.Append(cl)
		ctx.blk.Append(riscvssa.NewSW(ctx.m, base, cl.Result(), int32((i+1)*heapWordSize), "store char"))
	}
	ctx.set(op.Result(), base)
}

func lowerUnary(ctx *funcCtx, op *ir.Operation) {
	operand := ctx.get(op.Operands[0])
	switch flat.UnaryExprOp(op) {
	case "-":
		zero := riscvssa.NewLi(ctx.m, 0, "")
		ctx.blk.Append(zero)
		sub := riscvssa.NewSub(ctx.m, zero.Result(), operand, "negate")
		ctx.blk.Append(sub)
		ctx.set(op.Result(), sub.Result())
	case "not":
		xi := riscvssa.NewXorI(ctx.m, operand, 1, "logical not")
		ctx.blk.Append(xi)
		ctx.set(op.Result(), xi.Result())
	default:
		utils.Unimplement()
	}
}

func lowerBinary(ctx *funcCtx, op *ir.Operation) {
	lhs := ctx.get(op.Operands[0])
	rhs := ctx.get(op.Operands[1])
	m := ctx.m
	var result *ir.Value
	switch flat.BinaryExprOp(op) {
	case "+":
		r := riscvssa.NewAdd(m, lhs, rhs, "")
		ctx.blk.Append(r)
		result = r.Result()
	case "-":
		r := riscvssa.NewSub(m, lhs, rhs, "")
		ctx.blk.Append(r)
		result = r.Result()
	case "*":
		r := riscvssa.NewMul(m, lhs, rhs, "")
		ctx.blk.Append(r)
		result = r.Result()
	case "//":
		trapIfZero(ctx, rhs, trapDivZero)
		r := riscvssa.NewDiv(m, lhs, rhs, "")
		ctx.blk.Append(r)
		result = r.Result()
	case "%":
		trapIfZero(ctx, rhs, trapDivZero)
		r := riscvssa.NewRem(m, lhs, rhs, "")
		ctx.blk.Append(r)
		result = r.Result()
	case "<":
		r := riscvssa.NewSlt(m, lhs, rhs, "")
		ctx.blk.Append(r)
		result = r.Result()
	case ">":
		r := riscvssa.NewSlt(m, rhs, lhs, "")
		ctx.blk.Append(r)
		result = r.Result()
	case "<=":
		r := riscvssa.NewSlt(m, rhs, lhs, "")
		ctx.blk.Append(r)
		x := riscvssa.NewXorI(m, r.Result(), 1, "<=")
		ctx.blk.Append(x)
		result = x.Result()
	case ">=":
		r := riscvssa.NewSlt(m, lhs, rhs, "")
		ctx.blk.Append(r)
		x := riscvssa.NewXorI(m, r.Result(), 1, ">=")
		ctx.blk.Append(x)
		result = x.Result()
	case "==", "is":
		x := riscvssa.NewXor(m, lhs, rhs, "compare")
		ctx.blk.Append(x)
		eq := riscvssa.NewSltIU(m, x.Result(), 1, "== (xor < 1)")
		ctx.blk.Append(eq)
		result = eq.Result()
	case "!=":
		x := riscvssa.NewXor(m, lhs, rhs, "compare")
		ctx.blk.Append(x)
		zero := riscvssa.NewLi(m, 0, "")
		ctx.blk.Append(zero)
		ne := riscvssa.NewSltu(m, zero.Result(), x.Result(), "!= (0 < xor)")
		ctx.blk.Append(ne)
		result = ne.Result()
	default:
		utils.Unimplement()
		return
	}
	ctx.set(op.Result(), result)
}

// lowerIfExpr lowers the ternary by spilling its result through a dedicated
// alloc slot, since riscv_ssa has no block arguments to merge values coming
// from two different paths.
func lowerIfExpr(ctx *funcCtx, op *ir.Operation) {
	cond := ctx.get(op.Operands[0])
	tmp := riscvssa.NewAlloc(ctx.m)
	ctx.blk.Append(tmp)

	elseLabel := ctx.newLabel("if_expr_else")
	endLabel := ctx.newLabel("if_expr_end")
	zero := riscvssa.NewLi(ctx.m, 0, "")
	ctx.blk.Append(zero)
	ctx.blk.Append(riscvssa.NewBeq(ctx.m, cond, zero.Result(), elseLabel))

	thenBlock := op.Regions[0].Entry()
	lowerOps(ctx, thenBlock.Ops[:len(thenBlock.Ops)-1])
	thenVal := ctx.get(thenBlock.Ops[len(thenBlock.Ops)-1].Operands[0])
	ctx.blk.Append(riscvssa.NewSW(ctx.m, tmp.Result(), thenVal, 0, "if_expr then"))
	ctx.blk.Append(riscvssa.NewJ(ctx.m, endLabel))

	ctx.blk.Append(riscvssa.NewLabel(ctx.m, elseLabel))
	elseBlock := op.Regions[1].Entry()
	lowerOps(ctx, elseBlock.Ops[:len(elseBlock.Ops)-1])
	elseVal := ctx.get(elseBlock.Ops[len(elseBlock.Ops)-1].Operands[0])
	ctx.blk.Append(riscvssa.NewSW(ctx.m, tmp.Result(), elseVal, 0, "if_expr else"))

	ctx.blk.Append(riscvssa.NewLabel(ctx.m, endLabel))
	result := riscvssa.NewLW(ctx.m, tmp.Result(), 0, "if_expr result")
	ctx.blk.Append(result)
	ctx.set(op.Result(), result.Result())
}

// lowerEffectfulBinary lowers short-circuit and/or the same way: a spilled
// temporary merges the two possible result paths.
func lowerEffectfulBinary(ctx *funcCtx, op *ir.Operation) {
	lhs := ctx.get(op.Operands[0])
	tmp := riscvssa.NewAlloc(ctx.m)
	ctx.blk.Append(tmp)
	skipLabel := ctx.newLabel("short_circuit")
	endLabel := ctx.newLabel("short_circuit_end")
	zero := riscvssa.NewLi(ctx.m, 0, "")
	ctx.blk.Append(zero)

	switch flat.BinaryExprOp(op) {
	case "or":
		// lhs truthy -> short-circuit to lhs's own value.
		ctx.blk.Append(riscvssa.NewBne(ctx.m, lhs, zero.Result(), skipLabel))
	case "and":
		// lhs falsy -> short-circuit to lhs's own value.
		ctx.blk.Append(riscvssa.NewBeq(ctx.m, lhs, zero.Result(), skipLabel))
	default:
		utils.Unimplement()
		return
	}

	rhsBlock := op.Regions[1].Entry()
	lowerOps(ctx, rhsBlock.Ops[:len(rhsBlock.Ops)-1])
	rhsVal := ctx.get(rhsBlock.Ops[len(rhsBlock.Ops)-1].Operands[0])
	ctx.blk.Append(riscvssa.NewSW(ctx.m, tmp.Result(), rhsVal, 0, "short-circuit rhs"))
	ctx.blk.Append(riscvssa.NewJ(ctx.m, endLabel))

	ctx.blk.Append(riscvssa.NewLabel(ctx.m, skipLabel))
	ctx.blk.Append(riscvssa.NewSW(ctx.m, tmp.Result(), lhs, 0, "short-circuit lhs"))

	ctx.blk.Append(riscvssa.NewLabel(ctx.m, endLabel))
	result := riscvssa.NewLW(ctx.m, tmp.Result(), 0, "short-circuit result")
	ctx.blk.Append(result)
	ctx.set(op.Result(), result.Result())
}

func lowerIf(ctx *funcCtx, op *ir.Operation) {
	cond := ctx.get(op.Operands[0])
	elseLabel := ctx.newLabel("if_else")
	endLabel := ctx.newLabel("if_end")
	zero := riscvssa.NewLi(ctx.m, 0, "")
	ctx.blk.Append(zero)
	ctx.blk.Append(riscvssa.NewBeq(ctx.m, cond, zero.Result(), elseLabel))
	lowerOps(ctx, op.Regions[0].Entry().Ops)
	ctx.blk.Append(riscvssa.NewJ(ctx.m, endLabel))
	ctx.blk.Append(riscvssa.NewLabel(ctx.m, elseLabel))
	lowerOps(ctx, op.Regions[1].Entry().Ops)
	ctx.blk.Append(riscvssa.NewLabel(ctx.m, endLabel))
}

func lowerWhile(ctx *funcCtx, op *ir.Operation) {
	headerLabel := ctx.newLabel("while_header")
	endLabel := ctx.newLabel("while_end")
	ctx.blk.Append(riscvssa.NewLabel(ctx.m, headerLabel))

	condBlock := op.Regions[0].Entry()
	lowerOps(ctx, condBlock.Ops[:len(condBlock.Ops)-1])
	condVal := ctx.get(condBlock.Ops[len(condBlock.Ops)-1].Operands[0])
	zero := riscvssa.NewLi(ctx.m, 0, "")
	ctx.blk.Append(zero)
	ctx.blk.Append(riscvssa.NewBeq(ctx.m, condVal, zero.Result(), endLabel))

	lowerOps(ctx, op.Regions[1].Entry().Ops)
	ctx.blk.Append(riscvssa.NewJ(ctx.m, headerLabel))
	ctx.blk.Append(riscvssa.NewLabel(ctx.m, endLabel))
}

// lowerListExpr allocates a heap list object and stores each element word,
// matching the [length][elements...] heap layout.
func lowerListExpr(ctx *funcCtx, op *ir.Operation) {
	n := len(op.Operands)
	size := riscvssa.NewLi(ctx.m, int32((n+1)*heapWordSize), "list size")
	ctx.blk.Append(size)
	call := riscvssa.NewCall(ctx.m, "_malloc", []*ir.Value{size.Result()}, true)
	ctx.blk.Append(call)
	base := call.Result()
	lenLit := riscvssa.NewLi(ctx.m, int32(n), "list length")
	ctx.blk.Append(lenLit)
	ctx.blk.Append(riscvssa.NewSW(ctx.m, base, lenLit.Result(), 0, "store length"))
	for i, elemOperand := range op.Operands {
		elemReg := ctx.get(elemOperand)
		ctx.blk.Append(riscvssa.NewSW(ctx.m, base, elemReg, int32((i+1)*heapWordSize), "store element"))
	}
	ctx.set(op.Result(), base)
}

func lowerCall(ctx *funcCtx, op *ir.Operation) {
	name := flat.CallExprFuncName(op)
	var args []*ir.Value
	for _, operand := range op.Operands {
		args = append(args, ctx.get(operand))
	}
	call := riscvssa.NewCall(ctx.m, name, args, true)
	ctx.blk.Append(call)
	ctx.set(op.Result(), call.Result())
}

// elementAddress computes base + heapWordSize + heapWordSize*index, the
// address of a list/string element, shared by get_address and
// index_string lowering since both dialects use the same heap layout.
// Guards base against None and index against the object's own bounds
// before ever touching memory.
func elementAddress(ctx *funcCtx, base, index *ir.Value) *ir.Value {
	trapIfZero(ctx, base, trapListIndexNone)
	trapIfOutOfRange(ctx, base, index)
	wordSize := riscvssa.NewLi(ctx.m, heapWordSize, "word size")
	ctx.blk.Append(wordSize)
	offset := riscvssa.NewMul(ctx.m, index, wordSize.Result(), "element offset")
	ctx.blk.Append(offset)
	withHeader := riscvssa.NewAdd(ctx.m, base, offset.Result(), "add header offset")
	ctx.blk.Append(withHeader)
	addr := riscvssa.NewAddI(ctx.m, withHeader.Result(), heapWordSize, "skip length word")
	ctx.blk.Append(addr)
	return addr.Result()
}

func lowerGetAddress(ctx *funcCtx, op *ir.Operation) {
	base := ctx.get(op.Operands[0])
	index := ctx.get(op.Operands[1])
	ctx.set(op.Result(), elementAddress(ctx, base, index))
}

// lowerIndexString shares get_address's addressing math: see
// DESIGN.md's note that a ChocoPy string index result box is not
// separately modeled, only its raw character-word address.
func lowerIndexString(ctx *funcCtx, op *ir.Operation) {
	base := ctx.get(op.Operands[0])
	index := ctx.get(op.Operands[1])
	ctx.set(op.Result(), elementAddress(ctx, base, index))
}
