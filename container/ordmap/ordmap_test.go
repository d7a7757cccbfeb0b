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

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringMapOrderedTraversal(t *testing.T) {
	m := NewStringMap[int]()
	keys := []string{"delta", "alpha", "charlie", "bravo", "echo"}
	for i, k := range keys {
		assert.True(t, m.Insert(k, i))
	}
	assert.False(t, m.Insert("alpha", 99), "re-insert of existing key reports not-new")
	v, ok := m.Find("alpha")
	require.True(t, ok)
	assert.Equal(t, 99, v)

	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)

	var got []string
	for ok := m.First(); ok; ok = m.Next() {
		got = append(got, m.Key())
	}
	assert.Equal(t, sorted, got)

	got = got[:0]
	for ok := m.Last(); ok; ok = m.Prev() {
		got = append(got, m.Key())
	}
	reversed := append([]string(nil), sorted...)
	for i, j := 0, len(reversed)-1; i < j; i, j = i+1, j-1 {
		reversed[i], reversed[j] = reversed[j], reversed[i]
	}
	assert.Equal(t, reversed, got)
}

func TestStringMapRemoveAdvancesCursor(t *testing.T) {
	m := NewStringMap[int]()
	for i, k := range []string{"a", "b", "c", "d"} {
		m.Insert(k, i)
	}
	require.True(t, m.GoTo("b"))
	require.True(t, m.Remove("b"))
	// cursor must have advanced to the in-order successor of "b", i.e. "c"
	require.True(t, m.Valid())
	assert.Equal(t, "c", m.Key())
}

func TestUint32MapAppend(t *testing.T) {
	m := NewUint32Map[string]()
	id0 := m.Append("first")
	id1 := m.Append("second")
	assert.Equal(t, uint32(0), id0)
	assert.Equal(t, uint32(1), id1)

	m.Insert(10, "tenth")
	id2 := m.Append("next-after-ten")
	assert.Equal(t, uint32(11), id2)
}

func TestTreeRandomizedAgainstMap(t *testing.T) {
	ref := map[uint32]int{}
	m := NewUint32Map[int]()
	rnd := rand.New(rand.NewSource(1))
	for i := 0; i < 2000; i++ {
		k := uint32(rnd.Intn(500))
		if rnd.Intn(3) == 0 {
			delete(ref, k)
			m.Remove(k)
			continue
		}
		ref[k] = i
		m.Insert(k, i)
	}
	require.Equal(t, len(ref), m.Len())
	for k, v := range ref {
		got, ok := m.Find(k)
		require.True(t, ok)
		require.Equal(t, v, got)
	}

	var keys []int
	for k := range ref {
		keys = append(keys, int(k))
	}
	sort.Ints(keys)

	var got []int
	for ok := m.First(); ok; ok = m.Next() {
		got = append(got, int(m.Key()))
	}
	assert.Equal(t, keys, got)
}

func TestSearchByValuePrefix(t *testing.T) {
	m := NewStringMap[string]()
	m.Insert("r.cpu5", "cpu")
	m.Insert("r.mem5", "mem")
	m.Insert("r.cpu60", "cpu-slow")
	k, v, ok := m.SearchByValuePrefix(func(s string) bool { return s == "mem" })
	require.True(t, ok)
	assert.Equal(t, "r.mem5", k)
	assert.Equal(t, "mem", v)
}
