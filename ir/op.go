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
package ir

import "fmt"

// OpKind tags an operation with its dialect and a dialect-local code, per
// the "tagged variant per dialect" design in the design notes. Dialects
// define their own named constants by wrapping a small int.
type OpKind struct {
	Dialect string
	Code    int
	Name    string
}

func (k OpKind) String() string { return k.Dialect + "." + k.Name }

// Operation is the uniform record shared by every dialect: operands,
// results, attributes and nested regions, plus a non-owning back-reference
// to its parent block.
type Operation struct {
	id       int
	Kind     OpKind
	Operands []*Value
	Results  []*Value
	Attrs    *AttrMap
	Regions  []*Region
	Parent   *Block
}

func (op *Operation) ID() int { return op.id }

func (op *Operation) Result() *Value {
	if len(op.Results) == 0 {
		return nil
	}
	return op.Results[0]
}

func (op *Operation) Region(i int) *Region { return op.Regions[i] }

func (op *Operation) String() string {
	results := ""
	for i, r := range op.Results {
		if i > 0 {
			results += ", "
		}
		results += r.String()
	}
	operands := ""
	for i, o := range op.Operands {
		if i > 0 {
			operands += ", "
		}
		operands += o.String()
	}
	head := op.Kind.Name
	if op.Attrs != nil && len(op.Attrs.Keys()) > 0 {
		head += " " + op.Attrs.String()
	}
	if results != "" {
		return fmt.Sprintf("%s = %s(%s)", results, head, operands)
	}
	return fmt.Sprintf("%s(%s)", head, operands)
}

// removeOperandUses detaches this operation from every one of its operands'
// use lists. Called when the operation is erased.
func (op *Operation) removeOperandUses() {
	for i, operand := range op.Operands {
		operand.removeUse(op, i)
	}
}

// registerOperandUses attaches this operation onto every one of its
// operands' use lists. Called when the operation is inserted into a block.
func (op *Operation) registerOperandUses() {
	for i, operand := range op.Operands {
		operand.addUse(op, i)
	}
}

// HasAnyResultUses reports whether any result of op still has a use.
func (op *Operation) HasAnyResultUses() bool {
	for _, r := range op.Results {
		if r.HasUses() {
			return true
		}
	}
	return false
}
