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

func buildSampleTable() *Table {
	tb := NewWithColumns("host", "value")
	tb.AddRow(map[string]string{"host": "a1", "value": "10"})
	tb.AddRow(map[string]string{"host": "a2", "value": "3.5"})
	tb.AddRow(map[string]string{"host": "b1", "value": "7"})
	return tb
}

func TestTableSetWhereEq(t *testing.T) {
	tb := buildSampleTable()
	s := NewTableSet(tb)
	require.NoError(t, s.Where("host", "eq", "a1"))

	out := s.Materialize()
	assert.Equal(t, 1, out.NumRows())
	row, _ := out.GetRow(0)
	assert.Equal(t, "10", row["value"])
}

func TestTableSetWhereBeginsAndUnless(t *testing.T) {
	tb := buildSampleTable()
	s := NewTableSet(tb)
	require.NoError(t, s.Where("host", "begins", "a"))
	require.NoError(t, s.Unless("value", "eq", "10"))

	out := s.Materialize()
	assert.Equal(t, 1, out.NumRows())
	row, _ := out.GetRow(0)
	assert.Equal(t, "a2", row["host"])
}

func TestTableSetNumericComparisonPromotesOnDot(t *testing.T) {
	tb := buildSampleTable()
	s := NewTableSet(tb)
	// 3.5 (float) vs 5 (int): dot in one operand promotes both to float.
	require.NoError(t, s.Where("value", "gt", "5"))

	out := s.Materialize()
	var hosts []string
	for ok := out.First(); ok; ok = out.Next() {
		v, _ := out.GetCurrentCell("host")
		hosts = append(hosts, v)
	}
	assert.ElementsMatch(t, []string{"a1", "b1"}, hosts)
}

func TestTableSetProjection(t *testing.T) {
	tb := buildSampleTable()
	s := NewTableSet(tb).Project("host")

	out := s.Materialize()
	assert.Equal(t, []string{"host"}, out.ColumnNames())
}

func TestTableSetSortNumericDescending(t *testing.T) {
	tb := buildSampleTable()
	s := NewTableSet(tb).SortBy("value", true, true)

	out := s.Materialize()
	var vals []string
	for ok := out.First(); ok; ok = out.Next() {
		v, _ := out.GetCurrentCell("value")
		vals = append(vals, v)
	}
	assert.Equal(t, []string{"10", "7", "3.5"}, vals)
}

func TestTableSetConfigure(t *testing.T) {
	tb := buildSampleTable()
	s := NewTableSet(tb)
	require.NoError(t, s.Configure("where host begins a\nunless value eq 10\n"))

	out := s.Materialize()
	assert.Equal(t, 1, out.NumRows())
}

func TestTableSetConfigureUnknownOperator(t *testing.T) {
	tb := buildSampleTable()
	s := NewTableSet(tb)
	err := s.Configure("where host bogus a")
	assert.ErrorIs(t, err, ErrUnknownOperator)
}

func TestTableSetConfigureMalformed(t *testing.T) {
	tb := buildSampleTable()
	s := NewTableSet(tb)
	err := s.Configure("where host eq")
	assert.ErrorIs(t, err, ErrMalformedClause)
}

func TestTableSetOutTable(t *testing.T) {
	tb := buildSampleTable()
	s := NewTableSet(tb).Project("host")
	out := s.OutTable(",", true, false)
	assert.Contains(t, out, "host\n")
	assert.Contains(t, out, "a1\n")
}
