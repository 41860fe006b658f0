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

// Package ir is the dialect-agnostic IR kernel: operations, blocks, regions
// and SSA values, eager def-use maintenance, a pattern-rewrite driver, and a
// verification walker. Dialects (flat, riscvssa, riscv, ast) plug in their
// own operation kinds and per-kind verifier predicates.
package ir

import (
	"fmt"

	"chococ/types"
)

// Value is an SSA value: either the result of an operation or an argument
// of a block. Uses are maintained eagerly so def-use traversal is O(degree).
type Value struct {
	id          int
	Type        types.Type
	Def         *Operation // non-nil if this is an operation result
	ResultIndex int
	DefBlock    *Block // non-nil if this is a block argument
	ArgIndex    int
	Uses        []Use
	Comment     string // optional human-readable name, for printing only
}

// Use records that Op's operand at Index refers to a Value.
type Use struct {
	Op    *Operation
	Index int
}

func (v *Value) ID() int { return v.id }

func (v *Value) String() string {
	if v.Comment != "" {
		return fmt.Sprintf("%%%s", v.Comment)
	}
	return fmt.Sprintf("%%v%d", v.id)
}

func (v *Value) addUse(op *Operation, index int) {
	v.Uses = append(v.Uses, Use{Op: op, Index: index})
}

func (v *Value) removeUse(op *Operation, index int) {
	for i, u := range v.Uses {
		if u.Op == op && u.Index == index {
			v.Uses = append(v.Uses[:i], v.Uses[i+1:]...)
			return
		}
	}
}

// ReplaceAllUsesWith rewires every use of v onto other, leaving v with no uses.
func (v *Value) ReplaceAllUsesWith(other *Value) {
	uses := v.Uses
	v.Uses = nil
	for _, u := range uses {
		u.Op.Operands[u.Index] = other
		other.addUse(u.Op, u.Index)
	}
}

func (v *Value) HasUses() bool { return len(v.Uses) > 0 }
