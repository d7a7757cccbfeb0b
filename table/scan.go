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
	"bytes"
	"errors"

	"github.com/cloudwego/ringstore/unsafex"
)

// ErrNoColumns is returned by Scan when withInfo is requested but the table
// has no columns yet (no header line was scanned and none were pre-declared
// via AddColumn), so an info row's trailing label field can't be told apart
// from a data field.
var ErrNoColumns = errors.New("table: scan requires known columns before info rows")

// ScanOptions controls Table.Scan.
type ScanOptions struct {
	// Seps is the set of column separator characters. Required.
	Seps string
	// MultiSep treats a run of separator characters as a single delimiter
	// (no empty cells between them). Off by default: two adjacent
	// separators yield an empty cell.
	MultiSep bool
	// WithHeader declares that the first non-blank, non-comment line is a
	// column-name header.
	WithHeader bool
	// WithInfo declares that one or more info rows follow the header,
	// terminated by a line consisting of exactly RulerMark ("--").
	WithInfo bool
	// AllowComments treats a line whose first byte is '#' as a comment,
	// discarded up to (and including) its terminating newline.
	AllowComments bool
}

// Scan parses buf into the table per opt, appending rows in source order.
// buf is adopted via FreeOnDestroy: scanned cells that need no unescaping
// point directly into buf (the scan is zero-copy in the common case); cells
// that do need unescaping are carved out of the table's arena instead.
// Returns the number of body rows appended.
func (t *Table) Scan(buf []byte, opt ScanOptions) (int, error) {
	t.FreeOnDestroy(buf)

	ls := &lineScanner{buf: buf, seps: opt.Seps, multiSep: opt.MultiSep, allowComments: opt.AllowComments}

	if opt.WithHeader {
		fields, ok := ls.next()
		if ok {
			for _, f := range fields {
				name := t.scanField(f)
				if !t.HasColumn(name) {
					_ = t.AddColumn(name, nil)
				}
			}
		}
	}

	if opt.WithInfo {
		if len(t.colOrder) == 0 {
			return 0, ErrNoColumns
		}
		for {
			fields, ok := ls.next()
			if !ok {
				break
			}
			if len(fields) == 1 && bytes.Equal(fields[0], []byte(RulerMark)) {
				break
			}
			if len(fields) != len(t.colOrder)+1 {
				continue
			}
			label := t.scanField(fields[len(fields)-1])
			vals := make(map[string]string, len(t.colOrder))
			for i, name := range t.colOrder {
				v := t.scanField(fields[i])
				if v != "" {
					vals[name] = v
				}
			}
			_ = t.AddInfo(label, vals)
		}
	}

	n := 0
	for {
		fields, ok := ls.next()
		if !ok {
			break
		}
		cells := make([]Cell, len(t.colOrder))
		copy(cells, t.colDflt)
		for i := 0; i < len(fields) && i < len(cells); i++ {
			v := t.scanField(fields[i])
			cells[i] = &v
		}
		row := &Row{cells: cells}
		row.id = t.rows.Append(row)
		n++
	}
	return n, nil
}

// scanField turns one raw (still quote-wrapped, still escaped) field into
// a string, stripping surrounding quotes if present. Fields with no escape
// marker are returned as a zero-copy view into the scanned buffer; fields
// that need unescaping are carved out of the table's typed arena.
func (t *Table) scanField(raw []byte) string {
	if len(raw) >= 2 && raw[0] == '"' && raw[len(raw)-1] == '"' {
		raw = raw[1 : len(raw)-1]
	}
	if bytes.IndexByte(raw, escMarker) < 0 {
		return unsafex.BinaryToString(raw)
	}
	s := unsafex.BinaryToString(raw)
	buf, err := t.arenaAlloc(len(s))
	if err != nil || buf == nil {
		dst := make([]byte, len(s))
		n := unescapeInto(dst, s)
		return unsafex.BinaryToString(dst[:n])
	}
	n := unescapeInto(buf, s)
	return unsafex.BinaryToString(buf[:n])
}

// lineScanner splits a buffer into logical records: runs of fields
// separated by one of seps, terminated by an unquoted newline or EOF. A
// double quote opens a literal run that may itself contain newlines and
// separators, closed by the next unescaped double quote. Blank lines and
// (if enabled) comment lines are skipped between records.
type lineScanner struct {
	buf           []byte
	pos           int
	seps          string
	multiSep      bool
	allowComments bool
}

func (l *lineScanner) isSep(b byte) bool {
	for i := 0; i < len(l.seps); i++ {
		if l.seps[i] == b {
			return true
		}
	}
	return false
}

// next returns the fields of the next record, or ok=false at EOF.
func (l *lineScanner) next() (fields [][]byte, ok bool) {
	for {
		if l.pos >= len(l.buf) {
			return nil, false
		}
		switch {
		case l.buf[l.pos] == '\n':
			l.pos++
		case l.buf[l.pos] == '\r' && l.pos+1 < len(l.buf) && l.buf[l.pos+1] == '\n':
			l.pos += 2
		case l.allowComments && l.buf[l.pos] == '#':
			for l.pos < len(l.buf) && l.buf[l.pos] != '\n' {
				l.pos++
			}
			if l.pos < len(l.buf) {
				l.pos++
			}
		default:
			goto record
		}
	}
record:
	fieldStart := l.pos
	inQuote := false
	for {
		if l.pos >= len(l.buf) {
			fields = append(fields, l.buf[fieldStart:l.pos])
			return fields, true
		}
		c := l.buf[l.pos]
		switch {
		case inQuote:
			if c == '"' {
				inQuote = false
			}
			l.pos++
		case c == '"':
			inQuote = true
			l.pos++
		case c == '\n':
			fields = append(fields, l.buf[fieldStart:l.pos])
			l.pos++
			return fields, true
		case l.isSep(c):
			fields = append(fields, l.buf[fieldStart:l.pos])
			l.pos++
			if l.multiSep {
				for l.pos < len(l.buf) && l.isSep(l.buf[l.pos]) {
					l.pos++
				}
			}
			fieldStart = l.pos
		default:
			l.pos++
		}
	}
}
