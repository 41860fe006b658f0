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

// Package flat implements the flat SSA dialect (C3): every expression is an
// SSA value, memory locations are explicit, and control flow is expressed
// with region-bearing if/while/for operations.
package flat

import (
	"chococ/attr"
	"chococ/ir"
	"chococ/types"
)

const dialectName = "flat"

func kind(code int, name string) ir.OpKind {
	return ir.OpKind{Dialect: dialectName, Code: code, Name: name}
}

var (
	KindFuncDef            = kind(1, "func_def")
	KindLiteral             = kind(2, "literal")
	KindUnaryExpr           = kind(3, "unary_expr")
	KindBinaryExpr          = kind(4, "binary_expr")
	KindEffectfulBinaryExpr = kind(5, "effectful_binary_expr")
	KindIfExpr              = kind(6, "if_expr")
	KindIf                  = kind(7, "if")
	KindWhile               = kind(8, "while")
	KindFor                 = kind(9, "for")
	KindListExpr            = kind(10, "list_expr")
	KindCallExpr            = kind(11, "call_expr")
	KindAlloc               = kind(12, "alloc")
	KindGetAddress          = kind(13, "get_address")
	KindIndexString         = kind(14, "index_string")
	KindLoad                = kind(15, "load")
	KindStore               = kind(16, "store")
	KindReturn              = kind(17, "return")
	KindYield               = kind(18, "yield")
	// KindLen reads the length word of a list or string value. ChocoPy's
	// len() builtin is neither a polymorphic-by-argument-type call handled
	// by library-call introduction nor one of the documented C3 operations;
	// it is added here because the heap layout makes it a single direct
	// memory read rather than a runtime call (see SPEC_FULL.md's
	// supplemented-features section).
	KindLen = kind(19, "len")
)

// NewFuncDef creates a function with one parameter block-argument per
// paramType, in declaration order (so later, slot index == argument index).
func NewFuncDef(m *ir.Module, name string, paramTypes []types.Type, retType types.Type) *ir.Operation {
	body := m.NewRegion()
	for _, pt := range paramTypes {
		body.Entry().AddArg(pt)
	}
	attrs := ir.NewAttrMap().Set("name", attr.SymbolAttr{Name: name}).Set("ret_type", attr.TypeAttr{T: retType})
	return m.NewOp(KindFuncDef, nil, nil, attrs, []*ir.Region{body})
}

func FuncDefName(op *ir.Operation) string {
	return op.Attrs.MustGet("name").(attr.SymbolAttr).Name
}

func FuncDefRetType(op *ir.Operation) types.Type {
	t, _ := attr.AsType(op.Attrs.MustGet("ret_type"))
	return t
}

func FuncDefBody(op *ir.Operation) *ir.Block { return op.Regions[0].Entry() }

// NewLiteral creates a literal result of type t carrying v as its "value"
// attribute.
func NewLiteral(m *ir.Module, t types.Type, v attr.Attribute) *ir.Operation {
	return m.NewOp(KindLiteral, nil, []types.Type{t}, ir.NewAttrMap().Set("value", v), nil)
}

func LiteralValue(op *ir.Operation) attr.Attribute { return op.Attrs.MustGet("value") }

func NewUnaryExpr(m *ir.Module, op string, operand *ir.Value, resultType types.Type) *ir.Operation {
	return m.NewOp(KindUnaryExpr, []*ir.Value{operand}, []types.Type{resultType}, ir.NewAttrMap().Set("op", attr.StringAttr{V: op}), nil)
}

func NewBinaryExpr(m *ir.Module, op string, lhs, rhs *ir.Value, resultType types.Type) *ir.Operation {
	return m.NewOp(KindBinaryExpr, []*ir.Value{lhs, rhs}, []types.Type{resultType}, ir.NewAttrMap().Set("op", attr.StringAttr{V: op}), nil)
}

func BinaryExprOp(op *ir.Operation) string { return op.Attrs.MustGet("op").(attr.StringAttr).V }
func UnaryExprOp(op *ir.Operation) string  { return op.Attrs.MustGet("op").(attr.StringAttr).V }

// NewEffectfulBinaryExpr builds the short-circuit and/or shape: two
// single-block regions, each to be terminated by a yield, operand is the
// left-hand value already evaluated outside the op.
func NewEffectfulBinaryExpr(m *ir.Module, op string, lhs *ir.Value, resultType types.Type) (*ir.Operation, *ir.Region, *ir.Region) {
	lhsRegion := m.NewRegion()
	rhsRegion := m.NewRegion()
	o := m.NewOp(KindEffectfulBinaryExpr, []*ir.Value{lhs}, []types.Type{resultType}, ir.NewAttrMap().Set("op", attr.StringAttr{V: op}), []*ir.Region{lhsRegion, rhsRegion})
	return o, lhsRegion, rhsRegion
}

func NewIfExpr(m *ir.Module, cond *ir.Value, resultType types.Type) (*ir.Operation, *ir.Region, *ir.Region) {
	thenR := m.NewRegion()
	elseR := m.NewRegion()
	o := m.NewOp(KindIfExpr, []*ir.Value{cond}, []types.Type{resultType}, nil, []*ir.Region{thenR, elseR})
	return o, thenR, elseR
}

func NewIf(m *ir.Module, cond *ir.Value) (*ir.Operation, *ir.Region, *ir.Region) {
	thenR := m.NewRegion()
	elseR := m.NewRegion()
	o := m.NewOp(KindIf, []*ir.Value{cond}, nil, nil, []*ir.Region{thenR, elseR})
	return o, thenR, elseR
}

func NewWhile(m *ir.Module) (*ir.Operation, *ir.Region, *ir.Region) {
	condR := m.NewRegion()
	bodyR := m.NewRegion()
	o := m.NewOp(KindWhile, nil, nil, nil, []*ir.Region{condR, bodyR})
	return o, condR, bodyR
}

func NewFor(m *ir.Module, iterator, iterable *ir.Value) (*ir.Operation, *ir.Region) {
	bodyR := m.NewRegion()
	o := m.NewOp(KindFor, []*ir.Value{iterator, iterable}, nil, nil, []*ir.Region{bodyR})
	return o, bodyR
}

func ForBody(op *ir.Operation) *ir.Region { return op.Regions[0] }

func NewListExpr(m *ir.Module, elems []*ir.Value, elemType types.Type) *ir.Operation {
	resultType := types.EmptyType()
	if len(elems) > 0 {
		resultType = types.List(elemType)
	}
	return m.NewOp(KindListExpr, elems, []types.Type{resultType}, nil, nil)
}

// NewCallExpr creates a call, always producing one result (typed <None>
// when the callee returns nothing usable as a value), mirroring the AST
// dialect's NewCallExpr.
func NewCallExpr(m *ir.Module, funcName string, args []*ir.Value, resultType types.Type) *ir.Operation {
	attrs := ir.NewAttrMap().Set("func_name", attr.SymbolAttr{Name: funcName})
	return m.NewOp(KindCallExpr, args, []types.Type{resultType}, attrs, nil)
}

func CallExprFuncName(op *ir.Operation) string {
	return op.Attrs.MustGet("func_name").(attr.SymbolAttr).Name
}

func NewAlloc(m *ir.Module, elemType types.Type) *ir.Operation {
	return m.NewOp(KindAlloc, nil, []types.Type{types.Memloc(elemType)}, ir.NewAttrMap().Set("type", attr.TypeAttr{T: elemType}), nil)
}

func AllocElemType(op *ir.Operation) types.Type {
	t, _ := attr.AsType(op.Attrs.MustGet("type"))
	return t
}

func NewGetAddress(m *ir.Module, list, index *ir.Value, elemType types.Type) *ir.Operation {
	return m.NewOp(KindGetAddress, []*ir.Value{list, index}, []types.Type{types.Memloc(elemType)}, nil, nil)
}

func NewIndexString(m *ir.Module, str, index *ir.Value) *ir.Operation {
	return m.NewOp(KindIndexString, []*ir.Value{str, index}, []types.Type{types.Memloc(types.Str())}, nil, nil)
}

func NewLoad(m *ir.Module, memloc *ir.Value) *ir.Operation {
	return m.NewOp(KindLoad, []*ir.Value{memloc}, []types.Type{*memloc.Type.Elem}, nil, nil)
}

func NewStore(m *ir.Module, memloc, value *ir.Value) *ir.Operation {
	return m.NewOp(KindStore, []*ir.Value{memloc, value}, nil, nil, nil)
}

func NewReturn(m *ir.Module, value *ir.Value) *ir.Operation {
	return m.NewOp(KindReturn, []*ir.Value{value}, nil, nil, nil)
}

func NewYield(m *ir.Module, value *ir.Value) *ir.Operation {
	return m.NewOp(KindYield, []*ir.Value{value}, nil, nil, nil)
}

func NewLen(m *ir.Module, value *ir.Value) *ir.Operation {
	return m.NewOp(KindLen, []*ir.Value{value}, []types.Type{types.Int()}, nil, nil)
}
