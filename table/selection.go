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
	"errors"
	"sort"
	"strconv"
	"strings"
)

// ErrUnknownOperator is returned by Configure and Where/Unless for an
// unrecognized comparison operator.
var ErrUnknownOperator = errors.New("table: unknown selection operator")

// ErrMalformedClause is returned by Configure when a where/unless line
// doesn't have the form "where <col> <op> <val>".
var ErrMalformedClause = errors.New("table: malformed where/unless clause")

// Clause is one AND-ed filter term: col <op> val.
type Clause struct {
	Col string
	Op  string
	Val string
}

var validOps = map[string]bool{
	"eq": true, "ne": true, "gt": true, "lt": true, "ge": true, "le": true, "begins": true,
}

// sortSpec describes the single active sort for a TableSet.
type sortSpec struct {
	col        string
	descending bool
	numeric    bool
}

// TableSet is a stateful selection view over a Table: column projection,
// AND-ed where/unless row filters, and an optional sort. It never mutates
// its source table; Materialize builds a fresh Table from the current
// selection.
type TableSet struct {
	src      *Table
	columns  []string
	wheres   []Clause
	unlesses []Clause
	sort     *sortSpec
}

// NewTableSet creates a selection view over src, initially projecting every
// column and selecting every row.
func NewTableSet(src *Table) *TableSet {
	return &TableSet{src: src}
}

// Project restricts the output to the named columns, in the given order. An
// empty call (no columns) resets the projection back to "every column".
func (s *TableSet) Project(cols ...string) *TableSet {
	s.columns = cols
	return s
}

// Where adds an AND-ed inclusion clause: only rows for which it evaluates
// true survive.
func (s *TableSet) Where(col, op, val string) error {
	if !validOps[op] {
		return ErrUnknownOperator
	}
	s.wheres = append(s.wheres, Clause{Col: col, Op: op, Val: val})
	return nil
}

// Unless adds an AND-ed exclusion clause: rows for which it evaluates true
// are dropped.
func (s *TableSet) Unless(col, op, val string) error {
	if !validOps[op] {
		return ErrUnknownOperator
	}
	s.unlesses = append(s.unlesses, Clause{Col: col, Op: op, Val: val})
	return nil
}

// SortBy sets the output order. numeric forces numeric comparison instead
// of the default lexicographic one regardless of whether either value
// contains a decimal point.
func (s *TableSet) SortBy(col string, descending, numeric bool) *TableSet {
	s.sort = &sortSpec{col: col, descending: descending, numeric: numeric}
	return s
}

// Configure parses a text block of where/unless lines, one clause per
// non-blank line, in the form:
//
//	where  <col> <op> <val>
//	unless <col> <op> <val>
//
// val is everything after the operator, so it may itself contain spaces.
func (s *TableSet) Configure(text string) error {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		head := strings.Fields(line)
		if len(head) < 4 {
			return ErrMalformedClause
		}
		keyword, col, op := head[0], head[1], head[2]
		val := strings.Join(head[3:], " ")
		switch keyword {
		case "where":
			if err := s.Where(col, op, val); err != nil {
				return err
			}
		case "unless":
			if err := s.Unless(col, op, val); err != nil {
				return err
			}
		default:
			return ErrMalformedClause
		}
	}
	return nil
}

func (s *TableSet) projectionColumns() []string {
	if len(s.columns) > 0 {
		return s.columns
	}
	return s.src.ColumnNames()
}

// numericCompare compares a and b as numbers, promoting to float64 when
// either operand contains a '.'. Reports ok=false when neither representation
// parses, so callers can fall back to a lexicographic comparison.
func numericCompare(a, b string) (int, bool) {
	if strings.Contains(a, ".") || strings.Contains(b, ".") {
		af, aerr := strconv.ParseFloat(a, 64)
		bf, berr := strconv.ParseFloat(b, 64)
		if aerr != nil || berr != nil {
			return 0, false
		}
		switch {
		case af < bf:
			return -1, true
		case af > bf:
			return 1, true
		default:
			return 0, true
		}
	}
	ai, aerr := strconv.ParseInt(a, 10, 64)
	bi, berr := strconv.ParseInt(b, 10, 64)
	if aerr != nil || berr != nil {
		return 0, false
	}
	switch {
	case ai < bi:
		return -1, true
	case ai > bi:
		return 1, true
	default:
		return 0, true
	}
}

func evalClause(val string, c Clause) bool {
	switch c.Op {
	case "eq":
		return val == c.Val
	case "ne":
		return val != c.Val
	case "begins":
		return strings.HasPrefix(val, c.Val)
	case "gt", "lt", "ge", "le":
		cmp, ok := numericCompare(val, c.Val)
		if !ok {
			cmp = strings.Compare(val, c.Val)
		}
		switch c.Op {
		case "gt":
			return cmp > 0
		case "lt":
			return cmp < 0
		case "ge":
			return cmp >= 0
		case "le":
			return cmp <= 0
		}
	}
	return false
}

func (s *TableSet) rowMatches() bool {
	for _, c := range s.wheres {
		v, _ := s.src.GetCurrentCell(c.Col)
		if !evalClause(v, c) {
			return false
		}
	}
	for _, c := range s.unlesses {
		v, _ := s.src.GetCurrentCell(c.Col)
		if evalClause(v, c) {
			return false
		}
	}
	return true
}

// Materialize builds a new Table holding the projected columns of every
// selected row, in sort order (insertion order if no sort was set).
func (s *TableSet) Materialize() *Table {
	cols := s.projectionColumns()
	out := NewWithColumns(cols...)

	type row struct{ vals map[string]string }
	var rows []row
	for ok := s.src.First(); ok; ok = s.src.Next() {
		if !s.rowMatches() {
			continue
		}
		id, _ := s.src.GetRowKey()
		full, _ := s.src.GetRow(id)
		vals := make(map[string]string, len(cols))
		for _, c := range cols {
			if v, ok := full[c]; ok {
				vals[c] = v
			}
		}
		rows = append(rows, row{vals})
	}

	if s.sort != nil {
		col := s.sort.col
		sort.SliceStable(rows, func(i, j int) bool {
			vi, vj := rows[i].vals[col], rows[j].vals[col]
			var cmp int
			if s.sort.numeric {
				if c, ok := numericCompare(vi, vj); ok {
					cmp = c
				} else if vi < vj {
					cmp = -1
				} else if vi > vj {
					cmp = 1
				}
			} else if vi < vj {
				cmp = -1
			} else if vi > vj {
				cmp = 1
			}
			if s.sort.descending {
				return cmp > 0
			}
			return cmp < 0
		})
	}

	for _, r := range rows {
		out.AddRow(r.vals)
	}
	return out
}

// OutTable renders the selection directly to canonical text form, with the
// same options as Table.OutTable.
func (s *TableSet) OutTable(sep string, withNames, withRuler bool) string {
	return s.Materialize().OutTable(sep, withNames, withRuler)
}
