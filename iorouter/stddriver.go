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

package iorouter

import (
	"bytes"
	"errors"
	"io"
	"os"

	"github.com/cloudwego/ringstore/bufiox"
	"github.com/cloudwego/ringstore/table"
)

var errReadOnlyDriver = errors.New("iorouter: driver is read-only")
var errWriteOnlyDriver = errors.New("iorouter: driver is write-only")

// readLine pulls one LF-terminated (or EOF-terminated) line out of r using
// Peek/Next, growing the peek window until the delimiter is found.
func readLine(r bufiox.Reader) ([]byte, error) {
	for size := 64; ; size *= 2 {
		buf, err := r.Peek(size)
		if idx := bytes.IndexByte(buf, '\n'); idx >= 0 {
			line, nerr := r.Next(idx + 1)
			if nerr != nil {
				return nil, nerr
			}
			out := append([]byte(nil), line...)
			_ = r.Release(nil)
			return out, nil
		}
		if err != nil {
			if len(buf) == 0 {
				return nil, err
			}
			line, _ := r.Next(len(buf))
			out := append([]byte(nil), line...)
			_ = r.Release(nil)
			return out, err
		}
	}
}

// readAll drains r to EOF via ReadBinary.
func readAll(r bufiox.Reader) ([]byte, error) {
	var out []byte
	buf := make([]byte, 4096)
	for {
		n, err := r.ReadBinary(buf)
		out = append(out, buf[:n]...)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return out, nil
			}
			return out, err
		}
		if n == 0 {
			return out, nil
		}
	}
}

type streamHandle struct {
	w bufiox.Writer
	r bufiox.Reader
}

// streamDriver backs stdin/stdout/stderr: a single, already-open OS stream
// that every Open call shares, so Close is a no-op rather than closing the
// process's standard handles.
type streamDriver struct {
	magic  string
	prefix string
	desc   string
	stream *os.File
	isRead bool
}

func newStdinDriver() *streamDriver {
	return &streamDriver{magic: "STDI", prefix: "stdin", desc: "standard input", stream: os.Stdin, isRead: true}
}

func newStdoutDriver() *streamDriver {
	return &streamDriver{magic: "STDO", prefix: "stdout", desc: "standard output", stream: os.Stdout}
}

func newStderrDriver() *streamDriver {
	return &streamDriver{magic: "STDE", prefix: "stderr", desc: "standard error", stream: os.Stderr}
}

func (d *streamDriver) Magic() string       { return d.magic }
func (d *streamDriver) Prefix() string      { return d.prefix }
func (d *streamDriver) Description() string { return d.desc }
func (d *streamDriver) Init() error         { return nil }
func (d *streamDriver) Fini() error         { return nil }

func (d *streamDriver) Access(url, password, basename string) bool { return true }

func (d *streamDriver) Open(url, comment, password string, keepSlots int64, basename string) (Handle, error) {
	h := &streamHandle{}
	if d.isRead {
		h.r = bufiox.NewDefaultReader(d.stream)
	} else {
		h.w = bufiox.NewDefaultWriter(d.stream)
	}
	return h, nil
}

func (d *streamDriver) Close(h Handle) error {
	sh := h.(*streamHandle)
	if sh.w != nil {
		return sh.w.Flush()
	}
	return nil
}

func (d *streamDriver) Write(h Handle, data []byte) (int, error) {
	if d.isRead {
		return 0, errReadOnlyDriver
	}
	sh := h.(*streamHandle)
	n, err := sh.w.WriteBinary(data)
	if err != nil {
		return n, err
	}
	return n, sh.w.Flush()
}

func (d *streamDriver) TWrite(h Handle, t *table.Table) error {
	if d.isRead {
		return errReadOnlyDriver
	}
	_, err := d.Write(h, []byte(t.OutTable(",", true, false)))
	return err
}

func (d *streamDriver) Tell(h Handle) (seq, size, mtime int64) { return -1, -1, -1 }

func (d *streamDriver) Read(h Handle, seq, offset int64) ([][]byte, error) {
	if !d.isRead {
		return nil, errWriteOnlyDriver
	}
	line, err := readLine(h.(*streamHandle).r)
	if len(line) > 0 {
		return [][]byte{line}, nil
	}
	return nil, err
}

func (d *streamDriver) TRead(h Handle, seq, offset int64) (*table.Table, error) {
	if !d.isRead {
		return nil, errWriteOnlyDriver
	}
	raw, err := readAll(h.(*streamHandle).r)
	if err != nil {
		return nil, err
	}
	t := table.New()
	if _, err := t.Scan(raw, table.ScanOptions{Seps: ",", WithHeader: true}); err != nil {
		return nil, err
	}
	return t, nil
}
