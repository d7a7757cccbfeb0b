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
	"fmt"
	"strings"
)

// RulerMark is the literal line separating header/info rows from body rows
// in canonical text form.
const RulerMark = "--"

func printCell(b *chunkWriter, c Cell, sep string) {
	if c == nil {
		return
	}
	v := escapeCell(*c)
	if needsQuoting(*c, sep) {
		b.WriteByte('"')
		b.WriteString(v)
		b.WriteByte('"')
		return
	}
	b.WriteString(v)
}

func (t *Table) printRowCells(b *chunkWriter, cells []Cell, sep string) {
	for i := range t.colOrder {
		if i > 0 {
			b.WriteString(sep)
		}
		printCell(b, cells[i], sep)
	}
}

// OutTable renders the table in canonical text form: an optional header
// line, then (if withRuler) every info row each followed by its label and
// a literal "--" ruler line, then every body row. Lines are LF-terminated.
func (t *Table) OutTable(sep string, withNames, withRuler bool) string {
	b := newChunkWriter()
	defer b.Free()

	if withNames {
		b.WriteString(strings.Join(t.colOrder, sep))
		b.WriteByte('\n')
	}
	if withRuler {
		for _, label := range t.infoOrder {
			row, _ := t.info.Find(label)
			t.printRowCells(b, row.cells, sep)
			b.WriteString(sep)
			b.WriteString(label)
			b.WriteByte('\n')
		}
		b.WriteString(RulerMark)
		b.WriteByte('\n')
	}
	for ok := t.rows.First(); ok; ok = t.rows.Next() {
		row := t.rows.Value()
		t.printRowCells(b, row.cells, sep)
		b.WriteByte('\n')
	}
	return b.String()
}

// OutBody renders only the body rows, with no header/info/ruler block.
func (t *Table) OutBody(sep string) string {
	b := newChunkWriter()
	defer b.Free()
	for ok := t.rows.First(); ok; ok = t.rows.Next() {
		row := t.rows.Value()
		t.printRowCells(b, row.cells, sep)
		b.WriteByte('\n')
	}
	return b.String()
}

// Print renders the table in a human-justified form: columns padded to the
// widest cell (header included), separated by two spaces.
func (t *Table) Print() string {
	widths := make([]int, len(t.colOrder))
	for i, name := range t.colOrder {
		widths[i] = len(name)
	}
	update := func(cells []Cell) {
		for i := range t.colOrder {
			if c := cells[i]; c != nil && len(*c) > widths[i] {
				widths[i] = len(*c)
			}
		}
	}
	for _, label := range t.infoOrder {
		row, _ := t.info.Find(label)
		update(row.cells)
	}
	for ok := t.rows.First(); ok; ok = t.rows.Next() {
		update(t.rows.Value().cells)
	}

	var b strings.Builder
	writeJustified := func(cells []Cell) {
		for i := range t.colOrder {
			v := ""
			if c := cells[i]; c != nil {
				v = *c
			}
			if i > 0 {
				b.WriteString("  ")
			}
			fmt.Fprintf(&b, "%-*s", widths[i], v)
		}
		b.WriteByte('\n')
	}

	hdr := make([]Cell, len(t.colOrder))
	for i, name := range t.colOrder {
		n := name
		hdr[i] = &n
	}
	writeJustified(hdr)
	for _, label := range t.infoOrder {
		row, _ := t.info.Find(label)
		writeJustified(row.cells)
	}
	for ok := t.rows.First(); ok; ok = t.rows.Next() {
		writeJustified(t.rows.Value().cells)
	}
	return b.String()
}
