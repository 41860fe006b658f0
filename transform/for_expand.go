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

package transform

import (
	"chococ/attr"
	"chococ/dialect/flat"
	"chococ/ir"
	"chococ/types"
)

// forExpandPattern desugars `for x in iterable: body` into an index-counted
// while loop. This is a supplemented feature (see SPEC_FULL.md): the source
// material's for op reaches the backend directly, but expressing it as a
// while here lets the existing while-lowering path in backend/ handle both
// loop forms uniformly, the same economy-of-mechanism the original gets by
// having choco_ast_to_choco_flat.py route for-loops through translate_for
// and never giving `for` its own RISC-V lowering rule.
type forExpandPattern struct{}

func (forExpandPattern) Kind() ir.OpKind { return flat.KindFor }

func (forExpandPattern) MatchAndRewrite(op *ir.Operation, rw *ir.Rewriter) bool {
	m := rw.Module()
	iterMemloc, iterable := op.Operands[0], op.Operands[1]

	idxAlloc := flat.NewAlloc(m, types.Int())
	rw.InsertBefore(op, idxAlloc)
	zero := flat.NewLiteral(m, types.Int(), attr.IntAttr{V: 0})
	rw.InsertBefore(op, zero)
	initStore := flat.NewStore(m, idxAlloc.Result(), zero.Result())
	rw.InsertBefore(op, initStore)

	whileOp, condR, bodyR := flat.NewWhile(m)
	rw.InsertBefore(op, whileOp)

	condBlock := condR.Entry()
	idxLoad := flat.NewLoad(m, idxAlloc.Result())
	condBlock.Append(idxLoad)
	lenOp := flat.NewLen(m, iterable)
	condBlock.Append(lenOp)
	cmp := flat.NewBinaryExpr(m, "<", idxLoad.Result(), lenOp.Result(), types.Bool())
	condBlock.Append(cmp)
	condBlock.Append(flat.NewYield(m, cmp.Result()))

	bodyBlock := bodyR.Entry()
	idxLoad2 := flat.NewLoad(m, idxAlloc.Result())
	bodyBlock.Append(idxLoad2)
	var elemAddr *ir.Operation
	if iterable.Type.IsStr() {
		elemAddr = flat.NewIndexString(m, iterable, idxLoad2.Result())
	} else {
		elemType := types.Object()
		if iterable.Type.IsList() {
			elemType = *iterable.Type.Elem
		}
		elemAddr = flat.NewGetAddress(m, iterable, idxLoad2.Result(), elemType)
	}
	bodyBlock.Append(elemAddr)
	elemLoad := flat.NewLoad(m, elemAddr.Result())
	bodyBlock.Append(elemLoad)
	bodyBlock.Append(flat.NewStore(m, iterMemloc, elemLoad.Result()))

	// Relocate the original body's operations directly: they are already
	// attached (their operand uses already registered), so this is a move,
	// not a fresh Append -- re-appending would double-register uses.
	oldBody := op.Regions[0].Entry()
	for _, inner := range oldBody.Ops {
		inner.Parent = bodyBlock
		bodyBlock.Ops = append(bodyBlock.Ops, inner)
	}
	oldBody.Ops = nil

	idxLoad3 := flat.NewLoad(m, idxAlloc.Result())
	bodyBlock.Append(idxLoad3)
	one := flat.NewLiteral(m, types.Int(), attr.IntAttr{V: 1})
	bodyBlock.Append(one)
	incr := flat.NewBinaryExpr(m, "+", idxLoad3.Result(), one.Result(), types.Int())
	bodyBlock.Append(incr)
	bodyBlock.Append(flat.NewStore(m, idxAlloc.Result(), incr.Result()))

	rw.EraseOp(op)
	return true
}

// ExpandForLoops rewrites every flat `for` into an equivalent `while`.
func ExpandForLoops(m *ir.Module) {
	ir.ApplyPatterns(m, []ir.Pattern{forExpandPattern{}}, ir.DriverOptions{})
}
