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

// StringMap is an ordered map keyed by string, traversed in lexicographic
// key order. Used for column-name and ring-name indexes throughout the
// store, where insertion/removal must stay O(log n) but lookups by name
// dominate.
type StringMap[V any] struct {
	cursor[string, V]
}

// NewStringMap creates an empty, ready-to-use StringMap.
func NewStringMap[V any]() *StringMap[V] {
	return &StringMap[V]{cursor[string, V]{tree: &Tree[string, V]{}}}
}

// Len returns the number of entries.
func (m *StringMap[V]) Len() int { return m.tree.Len() }

// Find looks up key.
func (m *StringMap[V]) Find(key string) (V, bool) { return m.tree.Find(key) }

// Insert adds or overwrites key. Returns true if key is new.
func (m *StringMap[V]) Insert(key string, val V) bool { return m.tree.Insert(key, val) }

// Remove deletes key, advancing the map's cursor to the successor if it
// currently sits on the removed node.
func (m *StringMap[V]) Remove(key string) bool {
	return m.tree.RemoveCursorAware(key, &m.pos)
}

// SearchByValuePrefix scans keys in order and returns the first entry whose
// value satisfies match.
func (m *StringMap[V]) SearchByValuePrefix(match func(V) bool) (string, V, bool) {
	return m.tree.SearchByValuePrefix(match)
}

// Keys returns every key in ascending order. Intended for small maps
// (directory-style listings); large traversals should use the cursor.
func (m *StringMap[V]) Keys() []string {
	out := make([]string, 0, m.tree.Len())
	for nd := m.tree.First(); nd != nil; nd = Next[string, V](nd) {
		out = append(out, nd.key)
	}
	return out
}
