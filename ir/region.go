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

// Region is an ordered sequence of blocks, owned by exactly one operation
// (or the module, for the top-level region). Every region in this module's
// dialects has exactly one block.
type Region struct {
	Blocks []*Block
	Parent *Operation
}

// NewRegion creates a region with a single empty entry block.
func (m *Module) NewRegion() *Region {
	b := &Block{id: m.nextID(), m: m}
	r := &Region{Blocks: []*Block{b}}
	b.Parent = r
	return r
}

func (r *Region) Entry() *Block { return r.Blocks[0] }
