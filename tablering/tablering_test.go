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

package tablering

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudwego/ringstore/kv"
	"github.com/cloudwego/ringstore/table"
)

func mustStore(t *testing.T) *kv.Store {
	t.Helper()
	s, err := kv.Create(filepath.Join(t.TempDir(), "store.hol"), 0o644)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleTable(vals map[string]string) *table.Table {
	t := table.NewWithColumns("host", "load")
	t.AddRow(vals)
	return t
}

func TestPutGetSingleSpan(t *testing.T) {
	s := mustStore(t)
	tr, err := Create(s, "cpu", "", "", 0)
	require.NoError(t, err)

	_, err = tr.Put(sampleTable(map[string]string{"host": "a", "load": "1"}), 100)
	require.NoError(t, err)
	_, err = tr.Put(sampleTable(map[string]string{"host": "b", "load": "2"}), 110)
	require.NoError(t, err)

	got, ok, err := tr.Get(true)
	require.NoError(t, err)
	require.True(t, ok)

	got.First()
	val, err := got.GetCurrentCell("host")
	require.NoError(t, err)
	assert.Equal(t, "a", val)
	seqVal, err := got.GetCurrentCell("_seq")
	require.NoError(t, err)
	assert.Equal(t, "1", seqVal)
	timeVal, err := got.GetCurrentCell("_time")
	require.NoError(t, err)
	assert.Equal(t, "100", timeVal)
}

func TestPutNewSpanOnSchemaChange(t *testing.T) {
	s := mustStore(t)
	tr, err := Create(s, "cpu", "", "", 0)
	require.NoError(t, err)

	_, err = tr.Put(sampleTable(map[string]string{"host": "a", "load": "1"}), 100)
	require.NoError(t, err)

	other := table.NewWithColumns("host", "temp")
	other.AddRow(map[string]string{"host": "a", "temp": "30"})
	_, err = tr.Put(other, 200)
	require.NoError(t, err)

	samples, err := tr.MGetN(2)
	require.NoError(t, err)
	require.Len(t, samples, 2)

	samples[0].First()
	v, err := samples[0].GetCurrentCell("load")
	require.NoError(t, err)
	assert.Equal(t, "1", v)

	samples[1].First()
	v, err = samples[1].GetCurrentCell("temp")
	require.NoError(t, err)
	assert.Equal(t, "30", v)
}

func TestGetReconstructsMultipleRows(t *testing.T) {
	s := mustStore(t)
	tr, err := Create(s, "cpu", "", "", 0)
	require.NoError(t, err)

	multi := table.NewWithColumns("host", "load")
	multi.AddRow(map[string]string{"host": "a", "load": "1"})
	multi.AddRow(map[string]string{"host": "b", "load": "2"})
	_, err = tr.Put(multi, 100)
	require.NoError(t, err)

	got, ok, err := tr.Get(true)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, got.NumRows())
}
