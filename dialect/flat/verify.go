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
package flat

import (
	"fmt"

	"chococ/ir"
	"chococ/types"
)

func init() {
	ir.RegisterVerifier(KindLoad, verifyLoad)
	ir.RegisterVerifier(KindStore, verifyStore)
	ir.RegisterVerifier(KindWhile, verifyWhile)
	ir.RegisterVerifier(KindIfExpr, verifyIfExpr)
	ir.RegisterVerifier(KindEffectfulBinaryExpr, verifyEffectfulBinaryExpr)
}

func verifyLoad(op *ir.Operation) error {
	memloc := op.Operands[0]
	if !memloc.Type.IsMemloc() {
		return &ir.VerifyError{Op: op, Message: "load operand is not a memloc"}
	}
	if !op.Results[0].Type.Equal(*memloc.Type.Elem) {
		return &ir.VerifyError{Op: op, Message: fmt.Sprintf("load result type %s does not match memloc inner type %s", op.Results[0].Type, *memloc.Type.Elem)}
	}
	return nil
}

// verifyStore enforces: v's type matches m's inner type exactly, OR v is
// <None>/<Empty> being stored into a list<_> memloc, OR the memloc's inner
// type is object (accepts anything).
func verifyStore(op *ir.Operation) error {
	memloc, v := op.Operands[0], op.Operands[1]
	if !memloc.Type.IsMemloc() {
		return &ir.VerifyError{Op: op, Message: "store target is not a memloc"}
	}
	inner := *memloc.Type.Elem
	if !types.AssignableTo(v.Type, inner) {
		return &ir.VerifyError{Op: op, Message: fmt.Sprintf("cannot store %s into memloc<%s>", v.Type, inner)}
	}
	return nil
}

func lastOpIsYield(block *ir.Block) bool {
	if len(block.Ops) == 0 {
		return false
	}
	return block.Ops[len(block.Ops)-1].Kind == KindYield
}

func verifyWhile(op *ir.Operation) error {
	condBlock := op.Regions[0].Entry()
	if !lastOpIsYield(condBlock) {
		return &ir.VerifyError{Op: op, Message: "while cond region must terminate with yield"}
	}
	yieldOp := condBlock.Ops[len(condBlock.Ops)-1]
	if !yieldOp.Operands[0].Type.IsBool() {
		return &ir.VerifyError{Op: op, Message: "while cond region must yield bool"}
	}
	return nil
}

func verifyIfExpr(op *ir.Operation) error {
	for _, r := range op.Regions {
		if !lastOpIsYield(r.Entry()) {
			return &ir.VerifyError{Op: op, Message: "if_expr region must terminate with yield"}
		}
	}
	return nil
}

func verifyEffectfulBinaryExpr(op *ir.Operation) error {
	for _, r := range op.Regions {
		if !lastOpIsYield(r.Entry()) {
			return &ir.VerifyError{Op: op, Message: "effectful_binary_expr region must terminate with yield"}
		}
	}
	return nil
}
