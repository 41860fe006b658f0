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
	"chococ/dialect/flat"
	"chococ/ir"
)

// literalDCEPattern erases an unused literal, grounded on
// dead_code_elimination.py's LiteralRewriter.
type literalDCEPattern struct{}

func (literalDCEPattern) Kind() ir.OpKind { return flat.KindLiteral }

func (literalDCEPattern) MatchAndRewrite(op *ir.Operation, rw *ir.Rewriter) bool {
	if op.Result().HasUses() {
		return false
	}
	rw.EraseOp(op)
	return true
}

// directlyInsideWhile reports whether op sits immediately inside one of a
// while operation's own regions (its cond or body), grounded on
// dead_code_elimination.py's BinaryExprRewriter guard
// "expr.parent.parent.parent is While" (block -> region -> owning op): every
// binary expr sitting directly in a while's cond or body is exempt, used or
// not, while one nested deeper (e.g. inside an if inside a while) is not.
func directlyInsideWhile(op *ir.Operation) bool {
	blk := op.Parent
	if blk == nil || blk.Parent == nil || blk.Parent.Parent == nil {
		return false
	}
	return blk.Parent.Parent.Kind == flat.KindWhile
}

// binaryExprDCEPattern erases an unused binary_expr, except directly inside
// a while (the original's imprecise DCE exemption, to avoid dropping a
// condition re-evaluated every iteration for its side effects), grounded on
// dead_code_elimination.py's BinaryExprRewriter.
type binaryExprDCEPattern struct{}

func (binaryExprDCEPattern) Kind() ir.OpKind { return flat.KindBinaryExpr }

func (binaryExprDCEPattern) MatchAndRewrite(op *ir.Operation, rw *ir.Rewriter) bool {
	if directlyInsideWhile(op) {
		return false
	}
	if op.Result().HasUses() {
		return false
	}
	rw.EraseOp(op)
	return true
}

// DeadCodeEliminate walks each block in reverse so uses disappear before
// defs, matching dead_code_elimination.py's walk_reverse=true driver.
func DeadCodeEliminate(m *ir.Module) {
	ir.ApplyPatterns(m, []ir.Pattern{literalDCEPattern{}, binaryExprDCEPattern{}}, ir.DriverOptions{WalkReverse: true})
}
