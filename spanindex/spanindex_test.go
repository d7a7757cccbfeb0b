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

package spanindex

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudwego/ringstore/kv"
)

func mustStore(t *testing.T) *kv.Store {
	t.Helper()
	s, err := kv.Create(filepath.Join(t.TempDir(), "store.hol"), 0o644)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutExtendsContiguousSameHeader(t *testing.T) {
	s := mustStore(t)
	require.NoError(t, Put(s, "cpu", 1, 100, "h1"))
	require.NoError(t, Put(s, "cpu", 2, 110, "h1"))
	require.NoError(t, Put(s, "cpu", 3, 120, "h1"))

	spans, err := All(s, "cpu")
	require.NoError(t, err)
	require.Len(t, spans, 1)
	assert.Equal(t, Span{FromSeq: 1, ToSeq: 3, FromTime: 100, ToTime: 120, Header: "h1"}, spans[0])
}

func TestPutStartsNewSpanOnHeaderChange(t *testing.T) {
	s := mustStore(t)
	require.NoError(t, Put(s, "cpu", 1, 100, "h1"))
	require.NoError(t, Put(s, "cpu", 2, 110, "h2"))

	spans, err := All(s, "cpu")
	require.NoError(t, err)
	require.Len(t, spans, 2)
	assert.Equal(t, "h1", spans[0].Header)
	assert.Equal(t, "h2", spans[1].Header)
}

func TestPutRejectsOverlap(t *testing.T) {
	s := mustStore(t)
	require.NoError(t, Put(s, "cpu", 1, 100, "h1"))
	require.NoError(t, Put(s, "cpu", 2, 110, "h1"))

	err := Put(s, "cpu", 1, 100, "h1")
	assert.ErrorIs(t, err, ErrSpanOverlap)
}

func TestGetLatestAndOldest(t *testing.T) {
	s := mustStore(t)
	require.NoError(t, Put(s, "cpu", 1, 100, "h1"))
	require.NoError(t, Put(s, "cpu", 2, 110, "h2"))

	oldest, ok, err := GetOldest(s, "cpu")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "h1", oldest.Header)

	latest, ok, err := GetLatest(s, "cpu")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "h2", latest.Header)
}

func TestGetBySeqHuntPolicies(t *testing.T) {
	s := mustStore(t)
	require.NoError(t, Put(s, "cpu", 1, 100, "h1"))
	require.NoError(t, Put(s, "cpu", 2, 110, "h1"))
	require.NoError(t, Purge(s, "cpu", 2, 110))
	// seq 1 now lives in a gap.

	_, ok, err := GetBySeq(s, "cpu", 1, Exact)
	require.NoError(t, err)
	assert.False(t, ok)

	span, ok, err := GetBySeq(s, "cpu", 1, HuntNext)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(2), span.FromSeq)
}

func TestPurgeAdjustsStraddlingSpan(t *testing.T) {
	s := mustStore(t)
	require.NoError(t, Put(s, "cpu", 1, 100, "h1"))
	require.NoError(t, Put(s, "cpu", 2, 110, "h1"))
	require.NoError(t, Put(s, "cpu", 3, 120, "h1"))

	require.NoError(t, Purge(s, "cpu", 2, 110))

	spans, err := All(s, "cpu")
	require.NoError(t, err)
	require.Len(t, spans, 1)
	assert.Equal(t, int64(2), spans[0].FromSeq)
	assert.Equal(t, int64(110), spans[0].FromTime)
	assert.Equal(t, int64(3), spans[0].ToSeq)
}

func TestSearchByHeader(t *testing.T) {
	s := mustStore(t)
	require.NoError(t, Put(s, "cpu", 1, 100, "h1"))
	require.NoError(t, Put(s, "cpu", 2, 110, "h2"))
	require.NoError(t, Put(s, "cpu", 3, 120, "h1"))

	spans, err := Search(s, "cpu", "h1")
	require.NoError(t, err)
	require.Len(t, spans, 2)
}

func TestParseRingName(t *testing.T) {
	root, dur, ok := ParseRingName("r.cpu60")
	require.True(t, ok)
	assert.Equal(t, "cpu", root)
	assert.Equal(t, int64(60), dur)

	root, dur, ok = ParseRingName("r.events")
	require.True(t, ok)
	assert.Equal(t, "events", root)
	assert.Equal(t, int64(0), dur)

	_, _, ok = ParseRingName("cpu60")
	assert.False(t, ok)
}
