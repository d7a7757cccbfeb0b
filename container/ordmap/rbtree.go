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

// Package ordmap implements a family of in-memory ordered maps, each keyed
// by a different domain type (string, uint32, pointer address) but backed
// by the same red-black tree so every variant gives O(log n) keyed
// operations and O(n) in-order traversal.
//
// The tree owns its own node memory; it never owns the keys or values a
// caller stores in it — matching the "map owns index nodes but not
// key/value lifetime" discipline callers of the original design relied on.
package ordmap

// Ordered is the set of key types the tree can be instantiated over.
type Ordered interface {
	~string | ~uint32 | ~uintptr
}

type color bool

const (
	red   color = true
	black color = false
)

// node is a red-black tree node. left/right/parent are nil at the
// conceptual sentinel (we use plain nil rather than a shared sentinel node
// since Go's zero value already gives us a safe "missing child" marker).
type node[K Ordered, V any] struct {
	key         K
	val         V
	left, right *node[K, V]
	parent      *node[K, V]
	c           color
}

// Tree is a red-black tree ordered map. The zero value is ready to use.
type Tree[K Ordered, V any] struct {
	root *node[K, V]
	n    int
}

// Len returns the number of keys stored in the tree.
func (t *Tree[K, V]) Len() int { return t.n }

// Find returns the value stored under key, if any.
func (t *Tree[K, V]) Find(key K) (V, bool) {
	nd := t.findNode(key)
	if nd == nil {
		var zero V
		return zero, false
	}
	return nd.val, true
}

func (t *Tree[K, V]) findNode(key K) *node[K, V] {
	cur := t.root
	for cur != nil {
		switch {
		case key < cur.key:
			cur = cur.left
		case key > cur.key:
			cur = cur.right
		default:
			return cur
		}
	}
	return nil
}

// Insert inserts key/val, overwriting the value if key is already present.
// It returns true if a new key was added.
func (t *Tree[K, V]) Insert(key K, val V) bool {
	var parent *node[K, V]
	cur := t.root
	for cur != nil {
		parent = cur
		switch {
		case key < cur.key:
			cur = cur.left
		case key > cur.key:
			cur = cur.right
		default:
			cur.val = val
			return false
		}
	}
	nn := &node[K, V]{key: key, val: val, parent: parent, c: red}
	if parent == nil {
		t.root = nn
	} else if key < parent.key {
		parent.left = nn
	} else {
		parent.right = nn
	}
	t.n++
	t.insertFixup(nn)
	return true
}

// Remove deletes key from the tree. It returns true if key was present.
func (t *Tree[K, V]) Remove(key K) bool {
	nd := t.findNode(key)
	if nd == nil {
		return false
	}
	t.deleteNode(nd)
	t.n--
	return true
}

// RemoveCursorAware deletes key, and if the map's cursor currently sits on
// the deleted node, advances *cur to the in-order successor first — the
// cursor is invalidated only by deletion of the node it points at, and in
// that case it resumes at the next node rather than going stale.
func (t *Tree[K, V]) RemoveCursorAware(key K, cur **node[K, V]) bool {
	nd := t.findNode(key)
	if nd == nil {
		return false
	}
	if *cur == nd {
		*cur = Next[K, V](nd)
	}
	t.deleteNode(nd)
	t.n--
	return true
}

// First returns the node with the smallest key, or nil if empty.
func (t *Tree[K, V]) First() *node[K, V] { return min(t.root) }

// Last returns the node with the largest key, or nil if empty.
func (t *Tree[K, V]) Last() *node[K, V] { return max(t.root) }

// Next returns the in-order successor of nd, or nil if nd is the last node.
func Next[K Ordered, V any](nd *node[K, V]) *node[K, V] {
	if nd == nil {
		return nil
	}
	if nd.right != nil {
		return min(nd.right)
	}
	cur, p := nd, nd.parent
	for p != nil && cur == p.right {
		cur = p
		p = p.parent
	}
	return p
}

// Prev returns the in-order predecessor of nd, or nil if nd is the first node.
func Prev[K Ordered, V any](nd *node[K, V]) *node[K, V] {
	if nd == nil {
		return nil
	}
	if nd.left != nil {
		return max(nd.left)
	}
	cur, p := nd, nd.parent
	for p != nil && cur == p.left {
		cur = p
		p = p.parent
	}
	return p
}

// Key returns the key held at this node.
func Key[K Ordered, V any](nd *node[K, V]) K { return nd.key }

// Value returns the value held at this node.
func Value[K Ordered, V any](nd *node[K, V]) V { return nd.val }

// SetValue replaces the value held at this node in place.
func SetValue[K Ordered, V any](nd *node[K, V], v V) { nd.val = v }

func min[K Ordered, V any](nd *node[K, V]) *node[K, V] {
	if nd == nil {
		return nil
	}
	for nd.left != nil {
		nd = nd.left
	}
	return nd
}

func max[K Ordered, V any](nd *node[K, V]) *node[K, V] {
	if nd == nil {
		return nil
	}
	for nd.right != nil {
		nd = nd.right
	}
	return nd
}

// SearchByValuePrefix scans the tree in key order and returns the first
// entry for which match returns true. It is a sequential O(n) scan, not a
// keyed lookup, matching the "search by value prefix" operation of the
// original design.
func (t *Tree[K, V]) SearchByValuePrefix(match func(V) bool) (K, V, bool) {
	for nd := t.First(); nd != nil; nd = Next[K, V](nd) {
		if match(nd.val) {
			return nd.key, nd.val, true
		}
	}
	var zk K
	var zv V
	return zk, zv, false
}

func (t *Tree[K, V]) rotateLeft(x *node[K, V]) {
	y := x.right
	x.right = y.left
	if y.left != nil {
		y.left.parent = x
	}
	y.parent = x.parent
	if x.parent == nil {
		t.root = y
	} else if x == x.parent.left {
		x.parent.left = y
	} else {
		x.parent.right = y
	}
	y.left = x
	x.parent = y
}

func (t *Tree[K, V]) rotateRight(x *node[K, V]) {
	y := x.left
	x.left = y.right
	if y.right != nil {
		y.right.parent = x
	}
	y.parent = x.parent
	if x.parent == nil {
		t.root = y
	} else if x == x.parent.right {
		x.parent.right = y
	} else {
		x.parent.left = y
	}
	y.right = x
	x.parent = y
}

func (t *Tree[K, V]) insertFixup(z *node[K, V]) {
	for z.parent != nil && z.parent.c == red {
		gp := z.parent.parent
		if gp == nil {
			break
		}
		if z.parent == gp.left {
			u := gp.right
			if isRed(u) {
				z.parent.c = black
				u.c = black
				gp.c = red
				z = gp
				continue
			}
			if z == z.parent.right {
				z = z.parent
				t.rotateLeft(z)
			}
			z.parent.c = black
			gp.c = red
			t.rotateRight(gp)
		} else {
			u := gp.left
			if isRed(u) {
				z.parent.c = black
				u.c = black
				gp.c = red
				z = gp
				continue
			}
			if z == z.parent.left {
				z = z.parent
				t.rotateRight(z)
			}
			z.parent.c = black
			gp.c = red
			t.rotateLeft(gp)
		}
	}
	t.root.c = black
}

func isRed[K Ordered, V any](n *node[K, V]) bool {
	return n != nil && n.c == red
}

// deleteNode removes nd from the tree, rebalancing as needed. Standard
// CLRS-style RB-delete with a nil-sentinel simulated via parent-tracking,
// since Go makes an always-present sentinel node more trouble than it's worth.
func (t *Tree[K, V]) deleteNode(z *node[K, V]) {
	y := z
	yOrigColor := y.c
	var x *node[K, V]
	var xParent *node[K, V]

	if z.left == nil {
		x = z.right
		xParent = z.parent
		t.transplant(z, z.right)
	} else if z.right == nil {
		x = z.left
		xParent = z.parent
		t.transplant(z, z.left)
	} else {
		y = min(z.right)
		yOrigColor = y.c
		x = y.right
		if y.parent == z {
			xParent = y
		} else {
			xParent = y.parent
			t.transplant(y, y.right)
			y.right = z.right
			y.right.parent = y
		}
		t.transplant(z, y)
		y.left = z.left
		y.left.parent = y
		y.c = z.c
	}
	if yOrigColor == black {
		t.deleteFixup(x, xParent)
	}
}

func (t *Tree[K, V]) transplant(u, v *node[K, V]) {
	if u.parent == nil {
		t.root = v
	} else if u == u.parent.left {
		u.parent.left = v
	} else {
		u.parent.right = v
	}
	if v != nil {
		v.parent = u.parent
	}
}

func (t *Tree[K, V]) deleteFixup(x, parent *node[K, V]) {
	for x != t.root && !isRed(x) {
		if parent == nil {
			break
		}
		if x == parent.left {
			w := parent.right
			if isRed(w) {
				w.c = black
				parent.c = red
				t.rotateLeft(parent)
				w = parent.right
			}
			if !isRed(w.left) && !isRed(w.right) {
				w.c = red
				x = parent
				parent = x.parent
				continue
			}
			if !isRed(w.right) {
				if w.left != nil {
					w.left.c = black
				}
				w.c = red
				t.rotateRight(w)
				w = parent.right
			}
			w.c = parent.c
			parent.c = black
			if w.right != nil {
				w.right.c = black
			}
			t.rotateLeft(parent)
			x = t.root
		} else {
			w := parent.left
			if isRed(w) {
				w.c = black
				parent.c = red
				t.rotateRight(parent)
				w = parent.left
			}
			if !isRed(w.right) && !isRed(w.left) {
				w.c = red
				x = parent
				parent = x.parent
				continue
			}
			if !isRed(w.left) {
				if w.right != nil {
					w.right.c = black
				}
				w.c = red
				t.rotateLeft(w)
				w = parent.left
			}
			w.c = parent.c
			parent.c = black
			if w.left != nil {
				w.left.c = black
			}
			t.rotateRight(parent)
			x = t.root
		}
	}
	if x != nil {
		x.c = black
	}
}
