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

// Package attr implements the immutable attribute values attached to
// operations: literal payloads, type-hints, register names, and labels.
// Value types (what an SSA value carries) live directly as types.Type on
// ir.Value rather than boxed here, since every SSA value in this compiler
// is a value-space type and never a register or label.
package attr

import (
	"fmt"

	"chococ/types"
)

// Attribute is an immutable, structurally-comparable operation attribute.
type Attribute interface {
	String() string
	Equal(Attribute) bool
	isAttribute()
}

type TypeAttr struct{ T types.Type }

func (a TypeAttr) String() string        { return a.T.String() }
func (a TypeAttr) Equal(o Attribute) bool { b, ok := o.(TypeAttr); return ok && a.T.Equal(b.T) }
func (TypeAttr) isAttribute()            {}

type IntAttr struct{ V int32 }

func (a IntAttr) String() string        { return fmt.Sprintf("%d", a.V) }
func (a IntAttr) Equal(o Attribute) bool { b, ok := o.(IntAttr); return ok && a.V == b.V }
func (IntAttr) isAttribute()            {}

type StringAttr struct{ V string }

func (a StringAttr) String() string        { return fmt.Sprintf("%q", a.V) }
func (a StringAttr) Equal(o Attribute) bool { b, ok := o.(StringAttr); return ok && a.V == b.V }
func (StringAttr) isAttribute()            {}

type BoolAttr struct{ V bool }

func (a BoolAttr) String() string        { return fmt.Sprintf("%t", a.V) }
func (a BoolAttr) Equal(o Attribute) bool { b, ok := o.(BoolAttr); return ok && a.V == b.V }
func (BoolAttr) isAttribute()            {}

type NoneAttr struct{}

func (NoneAttr) String() string         { return "None" }
func (a NoneAttr) Equal(o Attribute) bool { _, ok := o.(NoneAttr); return ok }
func (NoneAttr) isAttribute()            {}

// RegisterAttr names a virtual or physical register, e.g. "a0", "t1", "vr3".
type RegisterAttr struct{ Name string }

func (a RegisterAttr) String() string        { return a.Name }
func (a RegisterAttr) Equal(o Attribute) bool { b, ok := o.(RegisterAttr); return ok && a.Name == b.Name }
func (RegisterAttr) isAttribute()            {}

// LabelAttr names an assembly label, e.g. "_main_return".
type LabelAttr struct{ Name string }

func (a LabelAttr) String() string        { return a.Name }
func (a LabelAttr) Equal(o Attribute) bool { b, ok := o.(LabelAttr); return ok && a.Name == b.Name }
func (LabelAttr) isAttribute()            {}

// SymbolAttr names a function/runtime-routine symbol, e.g. "_print_int".
type SymbolAttr struct{ Name string }

func (a SymbolAttr) String() string        { return a.Name }
func (a SymbolAttr) Equal(o Attribute) bool { b, ok := o.(SymbolAttr); return ok && a.Name == b.Name }
func (SymbolAttr) isAttribute()            {}

// StringListAttr holds an ordered list of names, e.g. a func_def's
// parameter names.
type StringListAttr struct{ Vals []string }

func (a StringListAttr) String() string {
	s := "["
	for i, v := range a.Vals {
		if i > 0 {
			s += ", "
		}
		s += v
	}
	return s + "]"
}
func (a StringListAttr) Equal(o Attribute) bool {
	b, ok := o.(StringListAttr)
	if !ok || len(a.Vals) != len(b.Vals) {
		return false
	}
	for i := range a.Vals {
		if a.Vals[i] != b.Vals[i] {
			return false
		}
	}
	return true
}
func (StringListAttr) isAttribute() {}

// TypeListAttr holds an ordered list of value-space types, e.g. a
// func_def's declared parameter types.
type TypeListAttr struct{ Vals []types.Type }

func (a TypeListAttr) String() string {
	s := "["
	for i, v := range a.Vals {
		if i > 0 {
			s += ", "
		}
		s += v.String()
	}
	return s + "]"
}
func (a TypeListAttr) Equal(o Attribute) bool {
	b, ok := o.(TypeListAttr)
	if !ok || len(a.Vals) != len(b.Vals) {
		return false
	}
	for i := range a.Vals {
		if !a.Vals[i].Equal(b.Vals[i]) {
			return false
		}
	}
	return true
}
func (TypeListAttr) isAttribute() {}

func AsType(a Attribute) (types.Type, bool) {
	t, ok := a.(TypeAttr)
	if !ok {
		return types.Type{}, false
	}
	return t.T, true
}
