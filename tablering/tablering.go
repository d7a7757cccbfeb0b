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

// Package tablering layers table.Table snapshots over a timering.Ring: each
// put stores one table's body rows as a sample blob, and the schema (column
// order, ruler, info rows) that produced it is tracked separately by
// spanindex so unchanged schemas aren't repeated on every sample.
package tablering

import (
	"fmt"
	"strconv"

	"github.com/cloudwego/ringstore/hash/xfnv"
	"github.com/cloudwego/ringstore/kv"
	"github.com/cloudwego/ringstore/spanindex"
	"github.com/cloudwego/ringstore/table"
	"github.com/cloudwego/ringstore/timering"
)

const (
	colSeq  = "_seq"
	colTime = "_time"
)

// bodySep separates cells within one sample's serialized body rows.
const bodySep = ","

// TableRing is an open handle onto a named table-ring.
type TableRing struct {
	store *kv.Store
	tr    *timering.Ring
	name  string

	lastHeaderHash uint64
	lastHeader     string
}

// Create initializes a new table-ring named name. slots<=0 means unbounded.
func Create(store *kv.Store, name, description, password string, slots int64) (*TableRing, error) {
	tr, err := timering.Create(store, name, description, password, slots)
	if err != nil {
		return nil, err
	}
	return &TableRing{store: store, tr: tr, name: name}, nil
}

// Open attaches to an existing table-ring.
func Open(store *kv.Store, name, password string) (*TableRing, error) {
	tr, err := timering.Open(store, name, password)
	if err != nil {
		return nil, err
	}
	return &TableRing{store: store, tr: tr, name: name}, nil
}

// Name returns the table-ring's name.
func (tr *TableRing) Name() string { return tr.name }

// Close releases the handle.
func (tr *TableRing) Close() error { return tr.tr.Close() }

// Destroy removes the table-ring's samples, meta record and span index.
func (tr *TableRing) Destroy() error {
	if err := tr.tr.Destroy(); err != nil {
		return err
	}
	return spanindex.Write(tr.store, tr.name, table.New())
}

// CanonicalHeader renders t's schema (column order, info rows, ruler) as
// the text form used to detect whether two tables share a layout.
func CanonicalHeader(t *table.Table) string {
	schema := table.NewFromSchema(t)
	return schema.OutTable(bodySep, true, true)
}

// Put stores t's body rows as one sample and records it with spanindex
// under t's canonical header; spanindex extends the current span when that
// header equals the last span's header string, and opens a new span
// otherwise. Put also keeps the header and its xfnv in-process hash (never
// persisted) on the handle as the last written schema; they do not take
// part in the span decision.
func (tr *TableRing) Put(t *table.Table, at int64) (int64, error) {
	header := CanonicalHeader(t)
	hash := xfnv.HashStr(header)
	if hash != tr.lastHeaderHash || header != tr.lastHeader {
		tr.lastHeaderHash = hash
		tr.lastHeader = header
	}

	body := []byte(t.OutBody(bodySep))
	seq, err := tr.tr.Put(body, at)
	if err != nil {
		return 0, err
	}
	if err := spanindex.Put(tr.store, tr.name, seq, at, header); err != nil {
		return 0, fmt.Errorf("tablering: put %s/%d: %w", tr.name, seq, err)
	}
	return seq, nil
}

func (tr *TableRing) reconstruct(sample timering.Sample) (*table.Table, error) {
	span, ok, err := spanindex.GetBySeq(tr.store, tr.name, sample.Seq, spanindex.Exact)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("tablering: reconstruct %s/%d: %w", tr.name, sample.Seq, kv.ErrCorrupt)
	}

	t := table.New()
	if _, err := t.Scan([]byte(span.Header), table.ScanOptions{Seps: bodySep, WithHeader: true, WithInfo: true}); err != nil {
		return nil, fmt.Errorf("tablering: reconstruct header %s/%d: %w", tr.name, sample.Seq, err)
	}
	_ = t.AddColumn(colSeq, nil)
	_ = t.AddColumn(colTime, nil)
	if _, err := t.Scan(sample.Blob, table.ScanOptions{Seps: bodySep}); err != nil {
		return nil, fmt.Errorf("tablering: reconstruct body %s/%d: %w", tr.name, sample.Seq, err)
	}

	seqStr := strconv.FormatInt(sample.Seq, 10)
	timeStr := strconv.FormatInt(sample.Time, 10)
	for ok := t.First(); ok; ok = t.Next() {
		_ = t.ReplaceCurrentCell(colSeq, seqStr)
		_ = t.ReplaceCurrentCell(colTime, timeStr)
	}
	return t, nil
}

// Get reads the table at the cursor, augmenting every row with _seq/_time.
// advance controls whether the cursor moves past the read sample.
func (tr *TableRing) Get(advance bool) (*table.Table, bool, error) {
	sample, ok, err := tr.tr.Get(advance)
	if err != nil || !ok {
		return nil, ok, err
	}
	t, err := tr.reconstruct(sample)
	return t, true, err
}

// MGetN reads up to n consecutive samples starting at the cursor, returning
// one reconstituted table per sample.
func (tr *TableRing) MGetN(n int) ([]*table.Table, error) {
	samples, err := tr.tr.MGetN(n)
	if err != nil {
		return nil, err
	}
	out := make([]*table.Table, 0, len(samples))
	for _, s := range samples {
		t, err := tr.reconstruct(s)
		if err != nil {
			return out, err
		}
		out = append(out, t)
	}
	return out, nil
}

// Ring exposes the underlying timering handle for cursor/stat/resize/purge
// operations, which are identical in shape regardless of sample payload.
func (tr *TableRing) Ring() *timering.Ring { return tr.tr }
