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

package ringstore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudwego/ringstore/kv"
	"github.com/cloudwego/ringstore/table"
)

func mustStore(t *testing.T) *Store {
	t.Helper()
	s, err := Create(filepath.Join(t.TempDir(), "rs.hol"), 0o644)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleTable() *table.Table {
	t := table.NewWithColumns("host", "load")
	t.AddRow(map[string]string{"host": "a", "load": "1"})
	return t
}

func TestCreateRingRejectsDuplicate(t *testing.T) {
	s := mustStore(t)
	_, err := s.CreateRing("r.cpu60", "CPU load", "", 60, 10)
	require.NoError(t, err)

	_, err = s.CreateRing("r.cpu60", "", "", 60, 10)
	assert.ErrorIs(t, err, kv.ErrAlreadyExists)
}

func TestPutRegistersHeaderAndIndex(t *testing.T) {
	s := mustStore(t)
	_, err := s.CreateRing("r.cpu60", "CPU load", "", 60, 10)
	require.NoError(t, err)

	seq, err := s.Put("r.cpu60", sampleTable(), 100)
	require.NoError(t, err)
	assert.Equal(t, int64(1), seq)

	idx, ok, err := s.kv.Get(keyIndex)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, string(idx), "r.cpu60")

	headers, ok, err := s.kv.Get(keyHeaders)
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotEmpty(t, headers)
}

func TestGetRoundTrip(t *testing.T) {
	s := mustStore(t)
	_, err := s.CreateRing("r.cpu60", "CPU load", "", 60, 10)
	require.NoError(t, err)
	_, err = s.Put("r.cpu60", sampleTable(), 100)
	require.NoError(t, err)

	got, ok, err := s.Get("r.cpu60", true)
	require.NoError(t, err)
	require.True(t, ok)
	got.First()
	v, err := got.GetCurrentCell("host")
	require.NoError(t, err)
	assert.Equal(t, "a", v)
}

func TestListRingsAndByRoot(t *testing.T) {
	s := mustStore(t)
	_, err := s.CreateRing("r.cpu60", "", "", 60, 10)
	require.NoError(t, err)
	_, err = s.CreateRing("r.cpu300", "", "", 300, 10)
	require.NoError(t, err)
	_, err = s.CreateRing("r.mem60", "", "", 60, 10)
	require.NoError(t, err)

	all, err := s.ListRings()
	require.NoError(t, err)
	assert.Len(t, all, 3)

	cpuRings, err := s.RingsByRoot("cpu")
	require.NoError(t, err)
	assert.Len(t, cpuRings, 2)
}

func TestDropRingRemovesDirectoryEntry(t *testing.T) {
	s := mustStore(t)
	_, err := s.CreateRing("r.cpu60", "", "", 60, 10)
	require.NoError(t, err)

	require.NoError(t, s.DropRing("r.cpu60"))

	all, err := s.ListRings()
	require.NoError(t, err)
	assert.Len(t, all, 0)

	_, err = s.OpenRing("r.cpu60")
	assert.ErrorIs(t, err, kv.ErrNotFound)
}

func TestFootprintAndRemain(t *testing.T) {
	s := mustStore(t)
	footprint, err := s.Footprint()
	require.NoError(t, err)
	assert.Positive(t, footprint)

	remain, err := s.Remain(footprint + 1000)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), remain)

	remain, err = s.Remain(1)
	require.NoError(t, err)
	assert.Equal(t, int64(0), remain)
}

func TestHeaderDedupReusesHash(t *testing.T) {
	s := mustStore(t)
	_, err := s.CreateRing("r.cpu60", "", "", 60, 0)
	require.NoError(t, err)

	seq1, err := s.Put("r.cpu60", sampleTable(), 100)
	require.NoError(t, err)
	seq2, err := s.Put("r.cpu60", sampleTable(), 200)
	require.NoError(t, err)
	assert.NotEqual(t, seq1, seq2)

	headers, err := loadTable(s.kv, keyHeaders, headersSchema)
	require.NoError(t, err)
	assert.Equal(t, 1, headers.NumRows())
}
