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

// Module is the arena that owns every operation/block/region/value created
// for one compilation, handing out the monotonically increasing ids that
// stand in for the design notes' "generational handles". Body is the
// top-level region; for the AST dialect its single block holds the program
// operation (whose regions hold the defs and statements), and for the flat
// dialect it holds the func_defs: the synthesized _main first, then one per
// source function.
type Module struct {
	counter int
	Body    *Region
}

func NewModule() *Module {
	m := &Module{}
	m.Body = m.NewRegion()
	return m
}

func (m *Module) nextID() int {
	m.counter++
	return m.counter
}

// NewOp constructs a detached operation: not yet attached to any block, so
// it is not part of def-use edges until Append/InsertBefore/InsertAfter
// attaches it.
func (m *Module) NewOp(kind OpKind, operands []*Value, resultTypes []types.Type, attrs *AttrMap, regions []*Region) *Operation {
	op := &Operation{id: m.nextID(), Kind: kind, Operands: operands, Attrs: attrs, Regions: regions}
	if attrs == nil {
		op.Attrs = NewAttrMap()
	}
	for i, t := range resultTypes {
		op.Results = append(op.Results, &Value{id: m.nextID(), Type: t, Def: op, ResultIndex: i})
	}
	for _, r := range regions {
		r.Parent = op
	}
	return op
}
