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
	"os"

	"github.com/cloudwego/ringstore/bufiox"
	"github.com/cloudwego/ringstore/table"
)

type fileHandle struct {
	f *os.File
	w bufiox.Writer
	r bufiox.Reader
}

// fileDriver opens its target for append ("file:") or truncating overwrite
// ("fileov:"), per the ring-store CLI's append/overwrite distinction.
type fileDriver struct {
	magic     string
	prefix    string
	desc      string
	overwrite bool
}

func newFileDriver() *fileDriver   { return &fileDriver{magic: "FILE", prefix: "file", desc: "append file"} }
func newFileovDriver() *fileDriver {
	return &fileDriver{magic: "FLOV", prefix: "fileov", desc: "overwrite file", overwrite: true}
}

func (d *fileDriver) Magic() string       { return d.magic }
func (d *fileDriver) Prefix() string      { return d.prefix }
func (d *fileDriver) Description() string { return d.desc }
func (d *fileDriver) Init() error         { return nil }
func (d *fileDriver) Fini() error         { return nil }

func (d *fileDriver) Access(url, password, basename string) bool { return url != "" }

func (d *fileDriver) Open(url, comment, password string, keepSlots int64, basename string) (Handle, error) {
	flags := os.O_CREATE | os.O_RDWR
	if d.overwrite {
		flags |= os.O_TRUNC
	} else {
		flags |= os.O_APPEND
	}
	f, err := os.OpenFile(url, flags, 0o644)
	if err != nil {
		return nil, err
	}
	return &fileHandle{f: f, w: bufiox.NewDefaultWriter(f), r: bufiox.NewDefaultReader(f)}, nil
}

func (d *fileDriver) Close(h Handle) error {
	fh := h.(*fileHandle)
	if err := fh.w.Flush(); err != nil {
		fh.f.Close()
		return err
	}
	return fh.f.Close()
}

func (d *fileDriver) Write(h Handle, data []byte) (int, error) {
	fh := h.(*fileHandle)
	n, err := fh.w.WriteBinary(data)
	if err != nil {
		return n, err
	}
	return n, fh.w.Flush()
}

func (d *fileDriver) TWrite(h Handle, t *table.Table) error {
	_, err := d.Write(h, []byte(t.OutTable(",", true, false)))
	return err
}

// Tell reports (-1, size, mtime): file drivers have no sequence concept.
func (d *fileDriver) Tell(h Handle) (seq, size, mtime int64) {
	fh := h.(*fileHandle)
	info, err := fh.f.Stat()
	if err != nil {
		return -1, -1, -1
	}
	return -1, info.Size(), info.ModTime().Unix()
}

func (d *fileDriver) Read(h Handle, seq, offset int64) ([][]byte, error) {
	fh := h.(*fileHandle)
	if offset >= 0 {
		if _, err := fh.f.Seek(offset, 0); err != nil {
			return nil, err
		}
		fh.r = bufiox.NewDefaultReader(fh.f)
	}
	line, err := readLine(fh.r)
	if len(line) > 0 {
		return [][]byte{line}, nil
	}
	return nil, err
}

func (d *fileDriver) TRead(h Handle, seq, offset int64) (*table.Table, error) {
	fh := h.(*fileHandle)
	if offset >= 0 {
		if _, err := fh.f.Seek(offset, 0); err != nil {
			return nil, err
		}
		fh.r = bufiox.NewDefaultReader(fh.f)
	}
	raw, err := readAll(fh.r)
	if err != nil {
		return nil, err
	}
	t := table.New()
	if _, err := t.Scan(raw, table.ScanOptions{Seps: ",", WithHeader: true}); err != nil {
		return nil, err
	}
	return t, nil
}
