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

// Package transform implements the flat-dialect rewrite passes of C6:
// library-call introduction, constant folding, dead-code elimination, and
// for-loop expansion, each grounded on the matching pass in
// _examples/original_source/choco/.
package transform

import (
	"chococ/attr"
	"chococ/dialect/flat"
	"chococ/ir"
	"chococ/types"
	"chococ/utils"
)

// callExprPattern dispatches print/input to their typed runtime routines,
// grounded on choco_flat_introduce_library_calls.py's CallExprPattern.
type callExprPattern struct{}

func (callExprPattern) Kind() ir.OpKind { return flat.KindCallExpr }

func (callExprPattern) MatchAndRewrite(op *ir.Operation, rw *ir.Rewriter) bool {
	name := flat.CallExprFuncName(op)
	m := rw.Module()
	switch name {
	case "input":
		if op.Attrs.MustGet("func_name").(attr.SymbolAttr).Name == "_input" {
			return false
		}
		call := flat.NewCallExpr(m, "_input", nil, types.Str())
		rw.InsertBefore(op, call)
		rw.ReplaceOp(op, []*ir.Value{call.Result()})
		return true
	case "print":
		if len(op.Operands) == 0 {
			return false
		}
		argType := op.Operands[0].Type
		var routine string
		switch {
		case argType.IsBool():
			routine = "_print_bool"
		case argType.IsInt():
			routine = "_print_int"
		case argType.IsStr():
			routine = "_print_str"
		default:
			utils.Fatal("cannot print a value of type %s", argType.String())
			return false
		}
		call := flat.NewCallExpr(m, routine, op.Operands, op.Result().Type)
		rw.InsertBefore(op, call)
		rw.ReplaceOp(op, []*ir.Value{call.Result()})
		return true
	}
	return false
}

// binaryExprPattern rewrites str/list `+`, str `==`/`!=` to their runtime
// routines, grounded on choco_flat_introduce_library_calls.py's
// BinaryExprPattern.
type binaryExprPattern struct{}

func (binaryExprPattern) Kind() ir.OpKind { return flat.KindBinaryExpr }

func (binaryExprPattern) MatchAndRewrite(op *ir.Operation, rw *ir.Rewriter) bool {
	m := rw.Module()
	opName := flat.BinaryExprOp(op)
	lhs, rhs := op.Operands[0], op.Operands[1]
	resultType := op.Result().Type

	if opName == "+" && (resultType.IsList() || resultType.IsStr()) {
		call := flat.NewCallExpr(m, "_list_concat", []*ir.Value{lhs, rhs}, resultType)
		rw.InsertBefore(op, call)
		rw.ReplaceOp(op, []*ir.Value{call.Result()})
		return true
	}
	if opName == "==" && lhs.Type.IsStr() {
		call := flat.NewCallExpr(m, "_str_eq", []*ir.Value{lhs, rhs}, resultType)
		rw.InsertBefore(op, call)
		rw.ReplaceOp(op, []*ir.Value{call.Result()})
		return true
	}
	if opName == "!=" && lhs.Type.IsStr() {
		call := flat.NewCallExpr(m, "_str_eq", []*ir.Value{lhs, rhs}, resultType)
		rw.InsertBefore(op, call)
		complement := flat.NewUnaryExpr(m, "not", call.Result(), resultType)
		rw.InsertAfter(call, complement)
		rw.ReplaceOp(op, []*ir.Value{complement.Result()})
		return true
	}
	return false
}

// IntroduceLibraryCalls runs both patterns to a single linear pass
// (apply_recursively=false, matching the original), since neither pattern's
// output ever matches the other pattern's trigger shape.
func IntroduceLibraryCalls(m *ir.Module) {
	ir.ApplyPatterns(m, []ir.Pattern{callExprPattern{}, binaryExprPattern{}}, ir.DriverOptions{})
}
