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

package codec

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudwego/ringstore/ringstore"
	"github.com/cloudwego/ringstore/table"
)

func mustStore(t *testing.T) *ringstore.Store {
	t.Helper()
	s, err := ringstore.Create(filepath.Join(t.TempDir(), "rs.hol"), 0o644)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestExportIncludesSyntheticColumns(t *testing.T) {
	s := mustStore(t)
	_, err := s.CreateRing("r.cpu60", "", "", 60, 0)
	require.NoError(t, err)

	tbl := table.NewWithColumns("host", "load")
	tbl.AddRow(map[string]string{"host": "a", "load": "1"})
	_, err = s.Put("r.cpu60", tbl, 100)
	require.NoError(t, err)

	text, err := Export(s, "r.cpu60", 0, 0, ",")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "_seq")
	assert.Contains(t, lines[0], "_time")
	assert.Contains(t, lines[0], "_ring")
	assert.Contains(t, lines[1], "r.cpu60")
}

func TestExportRespectsTimeBounds(t *testing.T) {
	s := mustStore(t)
	_, err := s.CreateRing("r.cpu60", "", "", 60, 0)
	require.NoError(t, err)

	for _, at := range []int64{100, 200, 300} {
		tbl := table.NewWithColumns("v")
		tbl.AddRow(map[string]string{"v": "x"})
		_, err := s.Put("r.cpu60", tbl, at)
		require.NoError(t, err)
	}

	text, err := Export(s, "r.cpu60", 150, 250, ",")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	require.Len(t, lines, 2) // header + one row at t=200
	assert.Contains(t, lines[1], "200")
}

func TestImportRoundTripsExport(t *testing.T) {
	s := mustStore(t)
	_, err := s.CreateRing("r.cpu60", "", "", 60, 0)
	require.NoError(t, err)

	tbl := table.NewWithColumns("host", "load")
	tbl.AddRow(map[string]string{"host": "a", "load": "1"})
	tbl.AddRow(map[string]string{"host": "b", "load": "2"})
	_, err = s.Put("r.cpu60", tbl, 100)
	require.NoError(t, err)

	text, err := Export(s, "r.cpu60", 0, 0, ",")
	require.NoError(t, err)

	n, err := Import(s, "r.cpu60imported", []byte(text), ",", 0)
	require.NoError(t, err)
	assert.Equal(t, 1, n) // both rows share one (_seq,_time) group

	got, ok, err := s.Get("r.cpu60imported", true)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, got.NumRows())
}

func TestImportAutoCreatesRing(t *testing.T) {
	s := mustStore(t)
	text := "v,_seq,_time\nx,1,100\n"
	n, err := Import(s, "r.fresh60", []byte(text), ",", 5)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	rings, err := s.ListRings()
	require.NoError(t, err)
	require.Len(t, rings, 1)
	assert.Equal(t, "r.fresh60", rings[0].Name)
}

func TestImportRejectsMissingSeqOrTime(t *testing.T) {
	s := mustStore(t)
	text := "v\nx\n"
	_, err := Import(s, "r.bad60", []byte(text), ",", 0)
	assert.Error(t, err)
}
