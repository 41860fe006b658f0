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
)

// constantFoldPattern folds `int_literal + int_literal`, grounded on
// constant_folding.py's BinaryExprRewriter -- the only fold the original
// implements; it deliberately leaves every other binary op, including `-`
// and `*`, unfolded.
type constantFoldPattern struct{}

func (constantFoldPattern) Kind() ir.OpKind { return flat.KindBinaryExpr }

func isIntLiteral(v *ir.Value) (int32, bool) {
	if v.Def == nil || v.Def.Kind != flat.KindLiteral {
		return 0, false
	}
	a, ok := flat.LiteralValue(v.Def).(attr.IntAttr)
	if !ok {
		return 0, false
	}
	return a.V, true
}

func (constantFoldPattern) MatchAndRewrite(op *ir.Operation, rw *ir.Rewriter) bool {
	if flat.BinaryExprOp(op) != "+" {
		return false
	}
	lv, ok1 := isIntLiteral(op.Operands[0])
	rv, ok2 := isIntLiteral(op.Operands[1])
	if !ok1 || !ok2 {
		return false
	}
	folded := flat.NewLiteral(rw.Module(), op.Result().Type, attr.IntAttr{V: lv + rv})
	rw.InsertBefore(op, folded)
	rw.ReplaceOp(op, []*ir.Value{folded.Result()})
	return true
}

// ConstantFold runs to a fixed point, matching constant_folding.py's default
// apply_recursively=true walker.
func ConstantFold(m *ir.Module) {
	ir.ApplyPatterns(m, []ir.Pattern{constantFoldPattern{}}, ir.DriverOptions{ApplyRecursively: true})
}
