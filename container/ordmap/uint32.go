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

// Uint32Map is an ordered map keyed by uint32, traversed in numeric key
// order. Used for row-id indexes inside Table, where rows need a stable,
// auto-assigned integer identifier.
type Uint32Map[V any] struct {
	cursor[uint32, V]
	next uint32
}

// NewUint32Map creates an empty, ready-to-use Uint32Map.
func NewUint32Map[V any]() *Uint32Map[V] {
	return &Uint32Map[V]{cursor: cursor[uint32, V]{tree: &Tree[uint32, V]{}}}
}

// Len returns the number of entries.
func (m *Uint32Map[V]) Len() int { return m.tree.Len() }

// Find looks up key.
func (m *Uint32Map[V]) Find(key uint32) (V, bool) { return m.tree.Find(key) }

// Insert adds or overwrites key. Returns true if key is new.
func (m *Uint32Map[V]) Insert(key uint32, val V) bool {
	if key >= m.next {
		m.next = key + 1
	}
	return m.tree.Insert(key, val)
}

// Remove deletes key, advancing the map's cursor to the successor if it
// currently sits on the removed node.
func (m *Uint32Map[V]) Remove(key uint32) bool {
	return m.tree.RemoveCursorAware(key, &m.pos)
}

// Append inserts val under the next unused integer key and returns that key.
func (m *Uint32Map[V]) Append(val V) uint32 {
	key := m.next
	m.tree.Insert(key, val)
	m.next = key + 1
	return key
}

// SearchByValuePrefix scans keys in order and returns the first entry whose
// value satisfies match.
func (m *Uint32Map[V]) SearchByValuePrefix(match func(V) bool) (uint32, V, bool) {
	return m.tree.SearchByValuePrefix(match)
}
