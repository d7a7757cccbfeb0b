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

import "strings"

// escMarker is the reserved prefix byte for the printed escape ladder. It's
// a low control byte (SOH) that never occurs in ordinary text, so a single
// prefix byte followed by a tag character is enough to both protect a
// literal quote/newline and be unambiguously reversible by the scanner.
//
// This resolves the two-bullet escape-ladder description by treating it as
// one caret-style ladder: a quote, a newline, and a literal occurrence of
// the marker byte itself are each escaped as a two-byte sequence so the
// scanner can always tell, looking at one byte of lookahead, whether it is
// looking at raw data or an escape.
const escMarker = '\x01'

const (
	escTagQuote   = 'q'
	escTagNewline = 'n'
	escTagMarker  = 'm'
)

// needsQuoting reports whether s must be wrapped in double quotes when
// printed with the given separator set.
func needsQuoting(s string, seps string) bool {
	if s == "" {
		return false
	}
	if strings.ContainsAny(s, seps) {
		return true
	}
	for _, r := range s {
		switch r {
		case ' ', '\t', '\n', '\r', '"':
			return true
		}
	}
	return false
}

// escapeCell applies the printed escape ladder to a raw cell value: a
// literal double quote, newline, or marker byte is rewritten as a two-byte
// marker+tag sequence. Applied whether or not the cell ends up quoted,
// since an unquoted cell may still contain an embedded quote character.
func escapeCell(s string) string {
	if strings.IndexAny(s, "\"\n"+string(escMarker)) < 0 {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 4)
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case escMarker:
			b.WriteByte(escMarker)
			b.WriteByte(escTagMarker)
		case '"':
			b.WriteByte(escMarker)
			b.WriteByte(escTagQuote)
		case '\n':
			b.WriteByte(escMarker)
			b.WriteByte(escTagNewline)
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// unescapeCell reverses escapeCell. Unterminated trailing markers are
// passed through literally rather than erroring, since the scanner already
// validated field boundaries before calling this.
func unescapeCell(s string) string {
	if strings.IndexByte(s, escMarker) < 0 {
		return s
	}
	dst := make([]byte, len(s))
	n := unescapeInto(dst, s)
	return string(dst[:n])
}

// unescapeInto reverses escapeCell, writing into dst (which must be at
// least len(s) bytes — unescaping only ever shrinks) instead of allocating
// through a strings.Builder. Returns the number of bytes written. This is
// what lets the scanner carve a cell's unescaped bytes straight out of the
// table's arena instead of bouncing through an intermediate builder.
func unescapeInto(dst []byte, s string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		if s[i] == escMarker && i+1 < len(s) {
			switch s[i+1] {
			case escTagMarker:
				dst[n] = escMarker
				n++
				i++
				continue
			case escTagQuote:
				dst[n] = '"'
				n++
				i++
				continue
			case escTagNewline:
				dst[n] = '\n'
				n++
				i++
				continue
			}
		}
		dst[n] = s[i]
		n++
	}
	return n
}
