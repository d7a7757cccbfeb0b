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
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cloudwego/ringstore/kv"
	"github.com/cloudwego/ringstore/ringstore"
	"github.com/cloudwego/ringstore/table"
)

// RingDriver is the core driver for ring-store addressed URLs:
// "<prefix>:path,ringname[,duration]". Each RingDriver keeps its own cache
// of opened ringstore.Store handles, one per backing file, shared across
// every Channel it opens on that file.
type RingDriver struct {
	prefix string

	mu     sync.Mutex
	stores map[string]*ringstore.Store
}

// NewRingDriver returns a ring driver registering itself under prefix
// (conventionally "ring").
func NewRingDriver(prefix string) *RingDriver {
	return &RingDriver{prefix: prefix, stores: make(map[string]*ringstore.Store)}
}

type ringHandle struct {
	store *ringstore.Store
	ring  string
}

func (d *RingDriver) Magic() string       { return "RING" }
func (d *RingDriver) Prefix() string      { return d.prefix }
func (d *RingDriver) Description() string { return "ring-store ring" }
func (d *RingDriver) Init() error         { return nil }

// Fini closes every ringstore.Store this driver has opened.
func (d *RingDriver) Fini() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	var first error
	for path, s := range d.stores {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
		delete(d.stores, path)
	}
	return first
}

func splitRingURL(url string) (path, ring string, duration int64, err error) {
	parts := strings.Split(url, ",")
	if len(parts) < 2 {
		return "", "", 0, fmt.Errorf("iorouter: ring url %q needs file,ring[,duration]", url)
	}
	path, ring = parts[0], parts[1]
	if len(parts) >= 3 {
		duration, _ = strconv.ParseInt(parts[2], 10, 64)
	}
	return path, ring, duration, nil
}

func (d *RingDriver) Access(url, password, basename string) bool {
	_, _, _, err := splitRingURL(url)
	return err == nil
}

func (d *RingDriver) openStore(path string) (*ringstore.Store, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if s, ok := d.stores[path]; ok {
		return s, nil
	}
	var s *ringstore.Store
	var err error
	if _, statErr := os.Stat(path); statErr != nil {
		s, err = ringstore.Create(path, 0o644)
	} else {
		s, err = ringstore.Open(path, kv.ModeWrite)
	}
	if err != nil {
		return nil, err
	}
	d.stores[path] = s
	return s, nil
}

func (d *RingDriver) Open(url, comment, password string, keepSlots int64, basename string) (Handle, error) {
	path, ring, duration, err := splitRingURL(url)
	if err != nil {
		return nil, err
	}
	s, err := d.openStore(path)
	if err != nil {
		return nil, err
	}
	if _, err := s.OpenRing(ring); err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			return nil, err
		}
		if _, err := s.CreateRing(ring, "", comment, duration, keepSlots); err != nil {
			return nil, err
		}
	}
	return &ringHandle{store: s, ring: ring}, nil
}

// Close is a no-op: the backing ringstore.Store outlives individual
// channels and is released by Fini.
func (d *RingDriver) Close(h Handle) error { return nil }

func (d *RingDriver) Write(h Handle, data []byte) (int, error) {
	rh := h.(*ringHandle)
	t := table.NewWithColumns("line")
	t.AddRow(map[string]string{"line": string(data)})
	if _, err := rh.store.Put(rh.ring, t, time.Now().Unix()); err != nil {
		return 0, err
	}
	return len(data), nil
}

func (d *RingDriver) TWrite(h Handle, t *table.Table) error {
	rh := h.(*ringHandle)
	_, err := rh.store.Put(rh.ring, t, time.Now().Unix())
	return err
}

// Tell reports (youngest seq, -1, youngest sample time): ring drivers track
// sequence and time, not a byte size.
func (d *RingDriver) Tell(h Handle) (seq, size, mtime int64) {
	rh := h.(*ringHandle)
	tr, err := rh.store.OpenRing(rh.ring)
	if err != nil {
		return -1, -1, -1
	}
	st, err := tr.Ring().Stat()
	if err != nil {
		return -1, -1, -1
	}
	return st.Youngest, -1, st.YoungestTime
}

func (d *RingDriver) Read(h Handle, seq, offset int64) ([][]byte, error) {
	rh := h.(*ringHandle)
	tr, err := rh.store.OpenRing(rh.ring)
	if err != nil {
		return nil, err
	}
	if seq >= 0 {
		if err := tr.Ring().Goto(seq); err != nil {
			return nil, err
		}
	}
	sample, ok, err := tr.Ring().Get(true)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return [][]byte{sample.Blob}, nil
}

func (d *RingDriver) TRead(h Handle, seq, offset int64) (*table.Table, error) {
	rh := h.(*ringHandle)
	tr, err := rh.store.OpenRing(rh.ring)
	if err != nil {
		return nil, err
	}
	if seq >= 0 {
		if err := tr.Ring().Goto(seq); err != nil {
			return nil, err
		}
	}
	t, ok, err := tr.Get(true)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return t, nil
}
