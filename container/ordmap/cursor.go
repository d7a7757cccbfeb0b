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

// cursor is the stateful traversal position shared by every ordmap facade.
// It is embedded in each facade rather than exposed standalone, since the
// design is "each map carries a current-node cursor", not an independent
// iterator object a caller can multiplex.
type cursor[K Ordered, V any] struct {
	tree *Tree[K, V]
	pos  *node[K, V]
}

// First moves the cursor to the smallest key and reports whether the map
// was non-empty.
func (c *cursor[K, V]) First() bool {
	c.pos = c.tree.First()
	return c.pos != nil
}

// Last moves the cursor to the largest key and reports whether the map was
// non-empty.
func (c *cursor[K, V]) Last() bool {
	c.pos = c.tree.Last()
	return c.pos != nil
}

// Next advances the cursor to the in-order successor. It returns false and
// leaves the cursor at the sentinel (past-the-end) when there is none —
// this is the loop exit condition for cooperative traversal.
func (c *cursor[K, V]) Next() bool {
	if c.pos == nil {
		return false
	}
	c.pos = Next[K, V](c.pos)
	return c.pos != nil
}

// Prev moves the cursor to the in-order predecessor.
func (c *cursor[K, V]) Prev() bool {
	if c.pos == nil {
		return false
	}
	c.pos = Prev[K, V](c.pos)
	return c.pos != nil
}

// Valid reports whether the cursor currently sits on a node.
func (c *cursor[K, V]) Valid() bool { return c.pos != nil }

// Key returns the key at the cursor. Panics if !Valid().
func (c *cursor[K, V]) Key() K { return c.pos.key }

// Value returns the value at the cursor. Panics if !Valid().
func (c *cursor[K, V]) Value() V { return c.pos.val }

// GoTo repositions the cursor at key, returning false if key is absent (the
// cursor is left at the sentinel in that case).
func (c *cursor[K, V]) GoTo(key K) bool {
	c.pos = c.tree.findNode(key)
	return c.pos != nil
}
