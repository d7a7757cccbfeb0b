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

// Package timering implements a named circular buffer of (seq, time, blob)
// samples over a kv.Store: monotonically increasing sequence numbers,
// wrap-around eviction at a configured slot count, and a per-handle read
// cursor.
package timering

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/cloudwego/ringstore/kv"
)

// ErrCursorOutOfRange is returned by cursor movement outside [oldest, youngest+1].
var ErrCursorOutOfRange = errors.New("timering: cursor out of range")

// ErrPermissionDenied is returned by Open when a ring was created with a
// password and the caller supplies a mismatching one.
var ErrPermissionDenied = errors.New("timering: permission denied")

// Meta is the per-ring bookkeeping record stored at key "<ring>.meta".
type Meta struct {
	Slots       int64
	Oldest      int64
	Youngest    int64 // Youngest < Oldest means the ring holds no samples.
	Duration    int64
	Count       int64 // number of puts ever made, used for the running AvgSize mean.
	AvgSize     float64
	Description string
	Password    string
}

func (m Meta) empty() bool { return m.Youngest < m.Oldest }

func (m Meta) population() int64 {
	if m.empty() {
		return 0
	}
	return m.Youngest - m.Oldest + 1
}

// encodeMeta renders m in the same pipe-delimited style as kv's superblock.
// Description/Password are assumed not to contain '|', matching the rest of
// the store's delimited record conventions.
func encodeMeta(m Meta) []byte {
	fields := []string{
		strconv.FormatInt(m.Slots, 10),
		strconv.FormatInt(m.Oldest, 10),
		strconv.FormatInt(m.Youngest, 10),
		strconv.FormatInt(m.Duration, 10),
		strconv.FormatInt(m.Count, 10),
		strconv.FormatFloat(m.AvgSize, 'g', -1, 64),
		m.Description,
		m.Password,
	}
	return []byte(strings.Join(fields, "|"))
}

func decodeMeta(b []byte) (Meta, error) {
	parts := strings.SplitN(string(b), "|", 8)
	if len(parts) != 8 {
		return Meta{}, fmt.Errorf("timering: decode meta: %w", kv.ErrCorrupt)
	}
	var m Meta
	var err error
	if m.Slots, err = strconv.ParseInt(parts[0], 10, 64); err != nil {
		return Meta{}, fmt.Errorf("timering: decode meta: %w", kv.ErrCorrupt)
	}
	if m.Oldest, err = strconv.ParseInt(parts[1], 10, 64); err != nil {
		return Meta{}, fmt.Errorf("timering: decode meta: %w", kv.ErrCorrupt)
	}
	if m.Youngest, err = strconv.ParseInt(parts[2], 10, 64); err != nil {
		return Meta{}, fmt.Errorf("timering: decode meta: %w", kv.ErrCorrupt)
	}
	if m.Duration, err = strconv.ParseInt(parts[3], 10, 64); err != nil {
		return Meta{}, fmt.Errorf("timering: decode meta: %w", kv.ErrCorrupt)
	}
	if m.Count, err = strconv.ParseInt(parts[4], 10, 64); err != nil {
		return Meta{}, fmt.Errorf("timering: decode meta: %w", kv.ErrCorrupt)
	}
	if m.AvgSize, err = strconv.ParseFloat(parts[5], 64); err != nil {
		return Meta{}, fmt.Errorf("timering: decode meta: %w", kv.ErrCorrupt)
	}
	m.Description = parts[6]
	m.Password = parts[7]
	return m, nil
}
