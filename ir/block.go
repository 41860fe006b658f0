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

import "chococ/types"

// Block is an ordered sequence of operations plus an ordered list of block
// arguments. Belongs to exactly one region. Every dialect in this module
// uses only single-block regions, so only function-entry blocks carry
// arguments in practice.
type Block struct {
	id     int
	Args   []*Value
	Ops    []*Operation
	Parent *Region
	m      *Module
}

func (b *Block) ID() int { return b.id }

// AddArg appends a new block-argument value of the given type.
func (b *Block) AddArg(t types.Type) *Value {
	v := &Value{id: b.m.nextID(), Type: t, DefBlock: b, ArgIndex: len(b.Args)}
	b.Args = append(b.Args, v)
	return v
}

// Append inserts op at the end of the block, attaching it and registering
// its operand uses.
func (b *Block) Append(op *Operation) {
	op.Parent = b
	b.Ops = append(b.Ops, op)
	op.registerOperandUses()
}

// InsertBefore inserts op immediately before anchor in the same block.
func (b *Block) InsertBefore(anchor, op *Operation) {
	b.insertAt(b.indexOf(anchor), op)
}

// InsertAfter inserts op immediately after anchor in the same block.
func (b *Block) InsertAfter(anchor, op *Operation) {
	b.insertAt(b.indexOf(anchor)+1, op)
}

func (b *Block) insertAt(i int, op *Operation) {
	op.Parent = b
	b.Ops = append(b.Ops, nil)
	copy(b.Ops[i+1:], b.Ops[i:])
	b.Ops[i] = op
	op.registerOperandUses()
}

func (b *Block) indexOf(op *Operation) int {
	for i, o := range b.Ops {
		if o == op {
			return i
		}
	}
	panic("ir: operation not found in block")
}

// Erase detaches op from the block and severs its def-use edges. Panics if
// any result of op still has uses — callers must rewrite uses first.
func (b *Block) Erase(op *Operation) {
	for _, r := range op.Results {
		if r.HasUses() {
			panic("ir: erasing operation with remaining uses on result " + r.String())
		}
	}
	idx := b.indexOf(op)
	op.removeOperandUses()
	b.Ops = append(b.Ops[:idx], b.Ops[idx+1:]...)
	op.Parent = nil
}

// IndexOf exposes the position of op within the block (0-based), used by
// dominance checks: every operand must be defined at an earlier index in
// the same block or in an enclosing region.
func (b *Block) IndexOf(op *Operation) int { return b.indexOf(op) }
