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

import "github.com/cloudwego/ringstore/gridbuf"

// chunkWriter accumulates printed output as a chain of pooled chunks via
// gridbuf, instead of one ever-growing strings.Builder — canonical text
// form for a ring's worth of samples can run to megabytes, and chunking
// means growing the output never recopies what was already written.
// String joins the chunks into one string at the end; that is the only
// form in which the output is returned.
type chunkWriter struct {
	wb  *gridbuf.WriteBuffer
	cur []byte
}

func newChunkWriter() *chunkWriter {
	return &chunkWriter{wb: gridbuf.NewWriteBuffer(), cur: make([]byte, 0, 4096)}
}

func (w *chunkWriter) WriteString(s string) {
	w.writeBytes(s)
}

func (w *chunkWriter) WriteByte(b byte) {
	if len(w.cur) == cap(w.cur) {
		w.cur = w.wb.NewBuffer(w.cur, 4096)
	}
	w.cur = append(w.cur, b)
}

func (w *chunkWriter) writeBytes(s string) {
	for len(s) > 0 {
		room := cap(w.cur) - len(w.cur)
		if room == 0 {
			w.cur = w.wb.NewBuffer(w.cur, 4096)
			room = cap(w.cur) - len(w.cur)
		}
		n := room
		if n > len(s) {
			n = len(s)
		}
		w.cur = append(w.cur, s[:n]...)
		s = s[n:]
	}
}

// String concatenates every chunk into a single string. Call once, at the
// end of rendering.
func (w *chunkWriter) String() string {
	chunks := w.wb.Bytes()
	total := len(w.cur)
	for _, c := range chunks {
		total += len(c)
	}
	out := make([]byte, 0, total)
	for _, c := range chunks {
		out = append(out, c...)
	}
	out = append(out, w.cur...)
	return string(out)
}

// Free releases every pooled chunk back to gridbuf. Call after String().
func (w *chunkWriter) Free() {
	w.wb.Free()
	w.cur = nil
}
