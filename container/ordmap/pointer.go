/*
 * Copyright 2024 CloudWeGo Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package ordmap

import "unsafe"

// PointerMap is an ordered map keyed by an opaque pointer value, traversed
// in address order. Used where callers index objects by identity rather
// than by name (e.g. driver handle bundles in the I/O router).
type PointerMap[V any] struct {
	cursor[uintptr, V]
}

// NewPointerMap creates an empty, ready-to-use PointerMap.
func NewPointerMap[V any]() *PointerMap[V] {
	return &PointerMap[V]{cursor[uintptr, V]{tree: &Tree[uintptr, V]{}}}
}

// Len returns the number of entries.
func (m *PointerMap[V]) Len() int { return m.tree.Len() }

// Find looks up the entry keyed by p's address.
func (m *PointerMap[V]) Find(p unsafe.Pointer) (V, bool) {
	return m.tree.Find(uintptr(p))
}

// Insert adds or overwrites the entry keyed by p's address.
func (m *PointerMap[V]) Insert(p unsafe.Pointer, val V) bool {
	return m.tree.Insert(uintptr(p), val)
}

// Remove deletes the entry keyed by p's address, advancing the map's cursor
// to the successor if it currently sits on the removed node.
func (m *PointerMap[V]) Remove(p unsafe.Pointer) bool {
	return m.tree.RemoveCursorAware(uintptr(p), &m.pos)
}

// SearchByValuePrefix scans keys in address order and returns the first
// entry whose value satisfies match.
func (m *PointerMap[V]) SearchByValuePrefix(match func(V) bool) (unsafe.Pointer, V, bool) {
	k, v, ok := m.tree.SearchByValuePrefix(match)
	return unsafe.Pointer(k), v, ok //nolint:govet // address-ordered key, not a live pointer roundtrip
}
