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

// Package table implements the row/column tabular data model shared by the
// span index, table-rings and the text codec: insertion-ordered columns,
// insertion-ordered rows addressed by an auto-assigned id, a named set of
// full-width info rows (one of which may act as the type ruler), and a
// scan/print pair forming the text codec's in-memory half.
package table

import (
	"errors"

	"github.com/cloudwego/ringstore/container/ordmap"
	"github.com/cloudwego/ringstore/unsafex/malloc"
)

// RulerLabel is the reserved info-row label whose cells are type hints
// ("abs", "cnt", "u32", "i32", "nano", "str", ...) readers may reinterpret.
const RulerLabel = "type"

// InfoLabel is the reserved info-row label carrying a per-column
// human-readable description.
const InfoLabel = "info"

var (
	// ErrNoSuchColumn is returned when an operation names an unknown column.
	ErrNoSuchColumn = errors.New("table: no such column")
	// ErrColumnExists is returned by AddColumn when the name is already taken.
	ErrColumnExists = errors.New("table: column already exists")
	// ErrNoSuchRow is returned when an operation names an unknown row id.
	ErrNoSuchRow = errors.New("table: no such row")
	// ErrBeyondEnd is returned by cursor cell access when the cursor does
	// not currently sit on a row.
	ErrBeyondEnd = errors.New("table: cursor is beyond end")
)

// Cell is a textual value. A nil *Cell-equivalent (represented as a nil
// *string) is an absent cell, distinct from an empty string.
type Cell = *string

// NewCell returns a present cell holding s.
func NewCell(s string) Cell { return &s } //nolint:gosec // intentional per-cell heap cell; table owns lifetime

// Row is one row of a Table: a row id, unique within the table, plus one
// cell per column (nil cell = absent). Cells are indexed positionally,
// matching the table's column order at the time the row last had its
// schema synced (AddColumn/RemoveColumn keep every row in sync eagerly).
type Row struct {
	id    uint32
	cells []Cell
}

// ID returns the row's identifier, unique within its table.
func (r *Row) ID() uint32 { return r.id }

// cellAt returns the cell at position i, or nil (absent) if i is out of range.
func (r *Row) cellAt(i int) Cell {
	if i < 0 || i >= len(r.cells) {
		return nil
	}
	return r.cells[i]
}

// Table is an ordered sequence of rows, an ordered sequence of columns, and
// a named set of info rows, one of which may be the ruler.
type Table struct {
	colOrder []string
	colIndex *ordmap.StringMap[int] // name -> position in colOrder
	colDflt  []Cell                 // default cell per column position

	rows *ordmap.Uint32Map[*Row]

	info      *ordmap.StringMap[*Row]
	infoOrder []string // insertion order of info labels, for printing
	rulerName string   // "" if no ruler designated

	arenas  []*malloc.BuddyAllocator // backs freeondestroy; grown one block at a time
	garbage [][]byte                // buffers adopted outside the arena (e.g. scan buffers too big for it)
}

// New creates an empty table.
func New() *Table {
	return &Table{
		colIndex: ordmap.NewStringMap[int](),
		rows:     ordmap.NewUint32Map[*Row](),
		info:     ordmap.NewStringMap[*Row](),
	}
}

// NewWithColumns creates a table with the given column names, in order.
func NewWithColumns(names ...string) *Table {
	t := New()
	for _, n := range names {
		_ = t.AddColumn(n, nil)
	}
	return t
}

// NewFromSchema creates an empty table copying donor's column list and info
// rows (including the ruler designation), but none of its body rows.
func NewFromSchema(donor *Table) *Table {
	t := New()
	for _, name := range donor.colOrder {
		pos, _ := donor.colIndex.Find(name)
		_ = t.AddColumn(name, donor.colDflt[pos])
	}
	for _, label := range donor.infoOrder {
		row, _ := donor.info.Find(label)
		m := make(map[string]string, len(row.cells))
		for i, c := range row.cells {
			if c != nil {
				m[donor.colOrder[i]] = *c
			}
		}
		_ = t.AddInfo(label, m)
	}
	t.rulerName = donor.rulerName
	return t
}

// HasColumn reports whether name is a column of the table.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.colIndex.Find(name)
	return ok
}

// ColumnNames returns column names in insertion order (an alias of
// GetHeaderNames, kept for readability at call sites that aren't rendering
// a header line).
func (t *Table) ColumnNames() []string {
	out := make([]string, len(t.colOrder))
	copy(out, t.colOrder)
	return out
}

// GetHeaderNames returns column names in insertion order.
func (t *Table) GetHeaderNames() []string { return t.ColumnNames() }

// NumColumns returns the number of columns.
func (t *Table) NumColumns() int { return len(t.colOrder) }

// NumRows returns the number of body rows.
func (t *Table) NumRows() int { return t.rows.Len() }

// AddColumn appends a new column. def is the default cell new rows get for
// this column when they don't specify it explicitly (nil means absent).
// Every existing row gains def at the new position.
func (t *Table) AddColumn(name string, def Cell) error {
	if t.HasColumn(name) {
		return ErrColumnExists
	}
	pos := len(t.colOrder)
	t.colOrder = append(t.colOrder, name)
	t.colDflt = append(t.colDflt, def)
	t.colIndex.Insert(name, pos)

	for ok := t.rows.First(); ok; ok = t.rows.Next() {
		row := t.rows.Value()
		row.cells = append(row.cells, def)
	}
	for _, label := range t.infoOrder {
		row, _ := t.info.Find(label)
		row.cells = append(row.cells, nil)
	}
	return nil
}

// RemoveColumn drops a column and the corresponding cell from every row.
func (t *Table) RemoveColumn(name string) error {
	pos, ok := t.colIndex.Find(name)
	if !ok {
		return ErrNoSuchColumn
	}
	t.colOrder = append(t.colOrder[:pos], t.colOrder[pos+1:]...)
	t.colDflt = append(t.colDflt[:pos], t.colDflt[pos+1:]...)
	t.colIndex.Remove(name)
	for i := pos; i < len(t.colOrder); i++ {
		t.colIndex.Insert(t.colOrder[i], i)
	}
	for ok := t.rows.First(); ok; ok = t.rows.Next() {
		row := t.rows.Value()
		row.cells = append(row.cells[:pos], row.cells[pos+1:]...)
	}
	for _, label := range t.infoOrder {
		row, _ := t.info.Find(label)
		row.cells = append(row.cells[:pos], row.cells[pos+1:]...)
	}
	return nil
}

// AddRow inserts a new row, duplicating every cell string so the table owns
// independent storage. Columns absent from vals get their column default.
// Returns the assigned row id.
func (t *Table) AddRow(vals map[string]string) uint32 {
	return t.addRow(vals, true)
}

// AddRowNoAlloc inserts a new row donating the caller's strings directly
// (no duplication) — the caller must not mutate or reuse them afterward.
func (t *Table) AddRowNoAlloc(vals map[string]string) uint32 {
	return t.addRow(vals, false)
}

func (t *Table) addRow(vals map[string]string, dup bool) uint32 {
	cells := make([]Cell, len(t.colOrder))
	copy(cells, t.colDflt)
	for name, v := range vals {
		pos, ok := t.colIndex.Find(name)
		if !ok {
			continue
		}
		if dup {
			s := v
			cells[pos] = &s
		} else {
			cells[pos] = &v
		}
	}
	row := &Row{cells: cells}
	id := t.rows.Append(row)
	row.id = id
	return id
}

// GetRow returns a copy of row id's cells as a name->value map. Absent
// cells are omitted. Returns (nil, false) if id is unknown.
func (t *Table) GetRow(id uint32) (map[string]string, bool) {
	row, ok := t.rows.Find(id)
	if !ok {
		return nil, false
	}
	m := make(map[string]string, len(t.colOrder))
	for i, name := range t.colOrder {
		if c := row.cellAt(i); c != nil {
			m[name] = *c
		}
	}
	return m, true
}

// RemoveRow deletes row id. Returns false if id was unknown.
func (t *Table) RemoveRow(id uint32) bool { return t.rows.Remove(id) }

// AddInfo adds (or replaces) the info row labeled label. label == RulerLabel
// additionally designates this row as the ruler.
func (t *Table) AddInfo(label string, vals map[string]string) error {
	cells := make([]Cell, len(t.colOrder))
	for name, v := range vals {
		pos, ok := t.colIndex.Find(name)
		if !ok {
			return ErrNoSuchColumn
		}
		s := v
		cells[pos] = &s
	}
	if _, exists := t.info.Find(label); !exists {
		t.infoOrder = append(t.infoOrder, label)
	}
	t.info.Insert(label, &Row{cells: cells})
	if label == RulerLabel {
		t.rulerName = label
	}
	return nil
}

// GetInfo returns the info row labeled label.
func (t *Table) GetInfo(label string) (map[string]string, bool) {
	row, ok := t.info.Find(label)
	if !ok {
		return nil, false
	}
	m := make(map[string]string, len(t.colOrder))
	for i, name := range t.colOrder {
		if c := row.cellAt(i); c != nil {
			m[name] = *c
		}
	}
	return m, true
}

// InfoLabels returns every info-row label in insertion order.
func (t *Table) InfoLabels() []string {
	out := make([]string, len(t.infoOrder))
	copy(out, t.infoOrder)
	return out
}

// HasRuler reports whether an info row has been designated the ruler.
func (t *Table) HasRuler() bool { return t.rulerName != "" }

// FreeOnDestroy adopts buf; the table's reference to it is dropped, leaving
// it to the garbage collector, when the table is destroyed. This is how scan buffers and other
// heap-owned storage shared across cells get their lifetime tied to the
// table without the table needing to know how they were allocated.
func (t *Table) FreeOnDestroy(buf []byte) {
	t.garbage = append(t.garbage, buf)
}

// arenaAlloc returns n bytes carved from the table's typed arena, growing
// the arena by one more fixed-size block when the current one is
// exhausted. Used for small per-cell allocations made while scanning, so
// the whole batch can be released in one Destroy call instead of relying
// on the garbage collector to reclaim many small strings one at a time.
// Allocations too large for a single block fall back to a directly owned
// buffer tracked in garbage.
func (t *Table) arenaAlloc(n int) ([]byte, error) {
	if n > malloc.DefaultMaxBlockSize-16 {
		direct := make([]byte, n)
		t.FreeOnDestroy(direct)
		return direct, nil
	}
	if len(t.arenas) > 0 {
		if buf := t.arenas[len(t.arenas)-1].Alloc(n); buf != nil {
			return buf, nil
		}
	}
	arena := make([]byte, malloc.DefaultMaxBlockSize)
	a, err := malloc.NewBuddyAllocator(arena)
	if err != nil {
		return nil, err
	}
	t.arenas = append(t.arenas, a)
	buf := a.Alloc(n)
	if buf == nil {
		direct := make([]byte, n)
		t.FreeOnDestroy(direct)
		return direct, nil
	}
	return buf, nil
}

// Destroy drops every buffer adopted via FreeOnDestroy and the table's
// arena blocks so they become eligible for garbage collection. The table
// must not be used afterward.
func (t *Table) Destroy() {
	t.arenas = nil
	t.garbage = nil
}
