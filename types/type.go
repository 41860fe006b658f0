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

// Package types implements the ChocoPy value-space type lattice: the
// primitive types, list<T> and memloc<T>, and the Join operation used by
// lowering and by the flat dialect's verifier.
package types

import "fmt"

type Kind int

const (
	KindInt Kind = iota
	KindBool
	KindStr
	KindNone   // <None>, the type of the literal `None`
	KindEmpty  // <Empty>, the type of the literal `[]`
	KindObject // top of the lattice
	KindList
	KindMemloc
)

// Type is a value in the ChocoPy value-space type lattice. List and Memloc
// carry an Elem; all other kinds ignore it.
type Type struct {
	Kind Kind
	Elem *Type
}

func Int() Type       { return Type{Kind: KindInt} }
func Bool() Type      { return Type{Kind: KindBool} }
func Str() Type       { return Type{Kind: KindStr} }
func NoneType() Type  { return Type{Kind: KindNone} }
func EmptyType() Type { return Type{Kind: KindEmpty} }
func Object() Type    { return Type{Kind: KindObject} }

func List(elem Type) Type {
	e := elem
	return Type{Kind: KindList, Elem: &e}
}

func Memloc(elem Type) Type {
	e := elem
	return Type{Kind: KindMemloc, Elem: &e}
}

func (t Type) IsPrimitive() bool {
	switch t.Kind {
	case KindInt, KindBool, KindStr, KindNone, KindEmpty, KindObject:
		return true
	}
	return false
}

func (t Type) IsList() bool   { return t.Kind == KindList }
func (t Type) IsMemloc() bool { return t.Kind == KindMemloc }
func (t Type) IsBool() bool   { return t.Kind == KindBool }
func (t Type) IsInt() bool    { return t.Kind == KindInt }
func (t Type) IsStr() bool    { return t.Kind == KindStr }

func (t Type) String() string {
	switch t.Kind {
	case KindInt:
		return "int"
	case KindBool:
		return "bool"
	case KindStr:
		return "str"
	case KindNone:
		return "<None>"
	case KindEmpty:
		return "<Empty>"
	case KindObject:
		return "object"
	case KindList:
		return fmt.Sprintf("list<%s>", t.Elem.String())
	case KindMemloc:
		return fmt.Sprintf("memloc<%s>", t.Elem.String())
	default:
		return "<?type>"
	}
}

func (t Type) Equal(o Type) bool {
	if t.Kind != o.Kind {
		return false
	}
	if t.Kind == KindList || t.Kind == KindMemloc {
		return t.Elem.Equal(*o.Elem)
	}
	return true
}

// IsSubtype reports whether t <= o in the ChocoPy subtyping lattice:
// <None> <= object, <Empty> <= list<T> <= object, every primitive <= object.
func (t Type) IsSubtype(o Type) bool {
	if t.Equal(o) {
		return true
	}
	if o.Kind == KindObject {
		return true
	}
	if t.Kind == KindEmpty && o.Kind == KindList {
		return true
	}
	if t.Kind == KindList && o.Kind == KindList {
		return t.Elem.IsSubtype(*o.Elem)
	}
	return false
}

// Join returns the least common supertype of a and b. list<A>+list<B> with
// A != B joins to list<object>; any other mismatched pair joins to object
// unless one side is a subtype of the other.
func Join(a, b Type) Type {
	if a.Equal(b) {
		return a
	}
	if a.IsSubtype(b) {
		return b
	}
	if b.IsSubtype(a) {
		return a
	}
	if a.Kind == KindList && b.Kind == KindList {
		return List(Join(*a.Elem, *b.Elem))
	}
	if a.Kind == KindEmpty && b.Kind == KindList {
		return b
	}
	if b.Kind == KindEmpty && a.Kind == KindList {
		return a
	}
	return Object()
}

// AssignableTo reports whether a value of type v may be stored into a
// memloc whose inner type is target: exact match, <None> into a list<_>
// memloc, <Empty> into a list<_> memloc, or any value into an object memloc.
func AssignableTo(v, target Type) bool {
	if v.Equal(target) {
		return true
	}
	if target.Kind == KindObject {
		return true
	}
	if v.Kind == KindNone && target.Kind == KindList {
		return true
	}
	if v.Kind == KindEmpty && target.Kind == KindList {
		return true
	}
	if v.Kind == KindList && target.Kind == KindList {
		return v.Elem.IsSubtype(*target.Elem)
	}
	return false
}
