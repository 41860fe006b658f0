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

import (
	"strings"

	"chococ/attr"
)

// AttrMap is an insertion-ordered map from attribute name to attribute
// value, matching the data model's "ordered mapping of attribute names to
// attribute values".
type AttrMap struct {
	keys   []string
	values map[string]attr.Attribute
}

func NewAttrMap() *AttrMap {
	return &AttrMap{values: make(map[string]attr.Attribute)}
}

func (m *AttrMap) Set(key string, v attr.Attribute) *AttrMap {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = v
	return m
}

func (m *AttrMap) Get(key string) (attr.Attribute, bool) {
	v, ok := m.values[key]
	return v, ok
}

func (m *AttrMap) MustGet(key string) attr.Attribute {
	v, ok := m.values[key]
	if !ok {
		panic("ir: missing attribute " + key)
	}
	return v
}

func (m *AttrMap) Keys() []string { return m.keys }

func (m *AttrMap) String() string {
	if len(m.keys) == 0 {
		return ""
	}
	parts := make([]string, 0, len(m.keys))
	for _, k := range m.keys {
		parts = append(parts, k+"="+m.values[k].String())
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
