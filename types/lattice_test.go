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
package types_test

import (
	"testing"

	"chococ/types"

	"github.com/stretchr/testify/assert"
)

func TestIsSubtype(t *testing.T) {
	assert.True(t, types.Int().IsSubtype(types.Int()))
	assert.True(t, types.Int().IsSubtype(types.Object()))
	assert.True(t, types.EmptyType().IsSubtype(types.List(types.Int())))
	assert.True(t, types.List(types.Int()).IsSubtype(types.List(types.Int())))
	assert.False(t, types.List(types.Int()).IsSubtype(types.List(types.Str())))
	assert.False(t, types.Int().IsSubtype(types.Str()))
}

func TestJoin(t *testing.T) {
	assert.Equal(t, types.Int(), types.Join(types.Int(), types.Int()))
	assert.Equal(t, types.Object(), types.Join(types.Int(), types.Str()))
	assert.Equal(t, types.List(types.Int()), types.Join(types.EmptyType(), types.List(types.Int())))
	assert.Equal(t,
		types.List(types.Object()),
		types.Join(types.List(types.Int()), types.List(types.Str())),
		"mismatched list element types join to list<object>")
}

func TestAssignableTo(t *testing.T) {
	assert.True(t, types.AssignableTo(types.NoneType(), types.List(types.Int())))
	assert.True(t, types.AssignableTo(types.EmptyType(), types.List(types.Int())))
	assert.True(t, types.AssignableTo(types.Int(), types.Object()))
	assert.False(t, types.AssignableTo(types.Str(), types.Int()))
}
