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

package table

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddRowAndGetRow(t *testing.T) {
	tb := NewWithColumns("host", "value")
	id := tb.AddRow(map[string]string{"host": "a1", "value": "42"})

	row, ok := tb.GetRow(id)
	require.True(t, ok)
	assert.Equal(t, "a1", row["host"])
	assert.Equal(t, "42", row["value"])
}

func TestAddColumnBackfillsExistingRows(t *testing.T) {
	tb := NewWithColumns("host")
	id := tb.AddRow(map[string]string{"host": "a1"})

	def := NewCell("0")
	require.NoError(t, tb.AddColumn("value", def))

	row, _ := tb.GetRow(id)
	assert.Equal(t, "0", row["value"])
}

func TestAddColumnExistsError(t *testing.T) {
	tb := NewWithColumns("host")
	assert.ErrorIs(t, tb.AddColumn("host", nil), ErrColumnExists)
}

func TestRemoveColumnReindexes(t *testing.T) {
	tb := NewWithColumns("a", "b", "c")
	id := tb.AddRow(map[string]string{"a": "1", "b": "2", "c": "3"})

	require.NoError(t, tb.RemoveColumn("b"))
	row, _ := tb.GetRow(id)
	assert.Equal(t, map[string]string{"a": "1", "c": "3"}, row)

	require.NoError(t, tb.AddColumn("d", nil))
	require.True(t, tb.GotoRow(id))
	require.NoError(t, tb.ReplaceCurrentCell("d", "new"))
	row, _ = tb.GetRow(id)
	assert.Equal(t, "new", row["d"])
}

func TestInfoRowsAndRuler(t *testing.T) {
	tb := NewWithColumns("host", "value")
	require.NoError(t, tb.AddInfo(RulerLabel, map[string]string{"host": "str", "value": "abs"}))
	require.NoError(t, tb.AddInfo(InfoLabel, map[string]string{"value": "sample value"}))

	assert.True(t, tb.HasRuler())
	assert.Equal(t, []string{RulerLabel, InfoLabel}, tb.InfoLabels())

	info, ok := tb.GetInfo(RulerLabel)
	require.True(t, ok)
	assert.Equal(t, "str", info["host"])
}

func TestRowCursorGotoRowRemove(t *testing.T) {
	tb := NewWithColumns("n")
	var ids []uint32
	for i := 0; i < 3; i++ {
		ids = append(ids, tb.AddRow(map[string]string{"n": string(rune('a' + i))}))
	}

	require.True(t, tb.GotoRow(ids[1]))
	require.NoError(t, tb.RemoveCurrentRow())
	got, err := tb.GetRowKey()
	require.NoError(t, err)
	assert.Equal(t, ids[2], got)

	assert.Equal(t, 2, tb.NumRows())
}

func TestOutTableRoundTrip(t *testing.T) {
	tb := NewWithColumns("host", "value")
	tb.AddRow(map[string]string{"host": "alpha one", "value": "1"})
	tb.AddRow(map[string]string{"host": `quote"inside`, "value": "2"})
	tb.AddRow(map[string]string{"host": "plain", "value": ""})
	require.NoError(t, tb.AddInfo(RulerLabel, map[string]string{"host": "str", "value": "abs"}))

	out := tb.OutTable(",", true, true)

	rebuilt := New()
	n, err := rebuilt.Scan([]byte(out), ScanOptions{Seps: ",", WithHeader: true, WithInfo: true})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	assert.Equal(t, tb.ColumnNames(), rebuilt.ColumnNames())
	ruler, ok := rebuilt.GetInfo(RulerLabel)
	require.True(t, ok)
	assert.Equal(t, "str", ruler["host"])

	require.True(t, rebuilt.First())
	assert.Equal(t, "alpha one", mustCell(t, rebuilt, "host"))
	require.True(t, rebuilt.Next())
	assert.Equal(t, `quote"inside`, mustCell(t, rebuilt, "host"))
	require.True(t, rebuilt.Next())
	assert.Equal(t, "plain", mustCell(t, rebuilt, "host"))
	assert.False(t, rebuilt.Next())
}

func mustCell(t *testing.T, tb *Table, col string) string {
	t.Helper()
	v, err := tb.GetCurrentCell(col)
	require.NoError(t, err)
	return v
}

func TestEscapeLadderIdempotence(t *testing.T) {
	tb := NewWithColumns("v")
	tb.AddRow(map[string]string{"v": "has \"quotes\" and\nnewlines and \x01 marker"})

	once := tb.OutTable(",", false, false)

	t1 := NewWithColumns("v")
	_, err := t1.Scan([]byte(once), ScanOptions{Seps: ","})
	require.NoError(t, err)

	twice := t1.OutTable(",", false, false)
	t2 := New()
	require.NoError(t, t2.AddColumn("v", nil))
	_, err = t2.Scan([]byte(twice), ScanOptions{Seps: ","})
	require.NoError(t, err)

	require.True(t, t1.First())
	require.True(t, t2.First())
	v1, _ := t1.GetCurrentCell("v")
	v2, _ := t2.GetCurrentCell("v")
	assert.Equal(t, v1, v2)
	assert.Equal(t, "has \"quotes\" and\nnewlines and \x01 marker", v1)
}

func TestScanMultiSepAndComments(t *testing.T) {
	buf := "# a comment line\nhost  value\na1    10\n\nb2    20\n"
	tb := New()
	n, err := tb.Scan([]byte(buf), ScanOptions{
		Seps: " ", MultiSep: true, WithHeader: true, AllowComments: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"host", "value"}, tb.ColumnNames())

	row, _ := tb.GetRow(0)
	assert.Equal(t, "a1", row["host"])
	assert.Equal(t, "10", row["value"])
}

func TestScanSingleSepEmptyCells(t *testing.T) {
	tb := NewWithColumns("a", "b", "c")
	_, err := tb.Scan([]byte("1,,3\n"), ScanOptions{Seps: ","})
	require.NoError(t, err)

	row, _ := tb.GetRow(0)
	assert.Equal(t, "1", row["a"])
	b, hasB := row["b"]
	assert.True(t, hasB)
	assert.Equal(t, "", b)
	assert.Equal(t, "3", row["c"])
}

func TestNewFromSchemaCopiesColumnsAndInfoNoRows(t *testing.T) {
	donor := NewWithColumns("host", "value")
	require.NoError(t, donor.AddInfo(RulerLabel, map[string]string{"host": "str"}))
	donor.AddRow(map[string]string{"host": "a1"})

	fresh := NewFromSchema(donor)
	assert.Equal(t, donor.ColumnNames(), fresh.ColumnNames())
	assert.Equal(t, 0, fresh.NumRows())
	assert.True(t, fresh.HasRuler())
}
