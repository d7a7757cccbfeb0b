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

package ringstore

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/cloudwego/ringstore/kv"
	"github.com/cloudwego/ringstore/table"
)

// Directory keys. All are reserved kv entries outside the "<ring>.*" and
// "__span_<ring>" namespaces owned by timering/spanindex.
const (
	keyRingCounter = "__rs_counter"
	keyRings       = "__rs_rings"
	keyHeaders     = "__rs_headers"
	keyIndex       = "__rs_index"
)

const dirSep = "\t"

const (
	colID       = "id"
	colName     = "name"
	colLongName = "long_name"
	colAbout    = "about"
	colDuration = "duration"
	colSlots    = "slots"
)

// RingInfo is one row of the rings directory.
type RingInfo struct {
	ID       int64
	Name     string
	LongName string
	About    string
	Duration int64
	Slots    int64
}

func ringsSchema() *table.Table {
	return table.NewWithColumns(colID, colName, colLongName, colAbout, colDuration, colSlots)
}

func ringInfoToRow(r RingInfo) map[string]string {
	return map[string]string{
		colID:       strconv.FormatInt(r.ID, 10),
		colName:     r.Name,
		colLongName: r.LongName,
		colAbout:    r.About,
		colDuration: strconv.FormatInt(r.Duration, 10),
		colSlots:    strconv.FormatInt(r.Slots, 10),
	}
}

func rowToRingInfo(vals map[string]string) RingInfo {
	r := RingInfo{Name: vals[colName], LongName: vals[colLongName], About: vals[colAbout]}
	r.ID, _ = strconv.ParseInt(vals[colID], 10, 64)
	r.Duration, _ = strconv.ParseInt(vals[colDuration], 10, 64)
	r.Slots, _ = strconv.ParseInt(vals[colSlots], 10, 64)
	return r
}

func loadTable(store *kv.Store, key string, schema func() *table.Table) (*table.Table, error) {
	raw, ok, err := store.Get(key)
	if err != nil {
		return nil, err
	}
	t := schema()
	if !ok {
		return t, nil
	}
	if _, err := t.Scan(raw, table.ScanOptions{Seps: dirSep, WithHeader: true}); err != nil {
		return nil, err
	}
	return t, nil
}

func saveTable(store *kv.Store, key string, t *table.Table) error {
	return store.Put(key, []byte(t.OutTable(dirSep, true, false)))
}

func tableRows(t *table.Table) []map[string]string {
	out := make([]map[string]string, 0, t.NumRows())
	for ok := t.First(); ok; ok = t.Next() {
		id, err := t.GetRowKey()
		if err != nil {
			break
		}
		vals, found := t.GetRow(id)
		if found {
			out = append(out, vals)
		}
	}
	return out
}

func (s *Store) nextRingID() (int64, error) {
	raw, ok, err := s.kv.Get(keyRingCounter)
	if err != nil {
		return 0, err
	}
	var n int64
	if ok {
		n, _ = strconv.ParseInt(string(raw), 10, 64)
	}
	n++
	if err := s.kv.Put(keyRingCounter, []byte(strconv.FormatInt(n, 10))); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *Store) loadRings() (*table.Table, error) {
	return loadTable(s.kv, keyRings, ringsSchema)
}

func headersSchema() *table.Table {
	return table.NewWithColumns("hash", "header")
}

// registerHeader dedups header against the durable headers table, keyed by
// its xxhash (the same hash family cloudwego's other modules use for
// content-addressed lookups), and keeps the in-memory Str2Str snapshot in
// sync for fast repeat lookups.
func (s *Store) registerHeader(header string) (uint64, error) {
	h := xxhash.Sum64String(header)
	key := strconv.FormatUint(h, 16)

	if v, ok := s.headers.Get(key); ok && v == header {
		return h, nil
	}

	t, err := loadTable(s.kv, keyHeaders, headersSchema)
	if err != nil {
		return 0, err
	}
	for _, row := range tableRows(t) {
		if row["hash"] == key {
			s.rebuildHeaderSnapshot(t)
			return h, nil
		}
	}
	t.AddRow(map[string]string{"hash": key, "header": header})
	if err := saveTable(s.kv, keyHeaders, t); err != nil {
		return 0, err
	}
	s.rebuildHeaderSnapshot(t)
	return h, nil
}

func (s *Store) rebuildHeaderSnapshot(t *table.Table) {
	m := make(map[string]string, t.NumRows())
	for _, row := range tableRows(t) {
		m[row["hash"]] = row["header"]
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.headers.LoadFromMap(m)
}

// HeaderByHash returns the previously registered header text for hash, if any.
func (s *Store) HeaderByHash(hash uint64) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.headers.Get(strconv.FormatUint(hash, 16))
}

func indexSchema() *table.Table {
	return table.NewWithColumns("ring", "seq", "time", "duration", "header_hash")
}

func (s *Store) appendIndex(ring string, seq, at, duration int64, hash uint64) error {
	t, err := loadTable(s.kv, keyIndex, indexSchema)
	if err != nil {
		return err
	}
	t.AddRow(map[string]string{
		"ring":        ring,
		"seq":         strconv.FormatInt(seq, 10),
		"time":        strconv.FormatInt(at, 10),
		"duration":    strconv.FormatInt(duration, 10),
		"header_hash": strconv.FormatUint(hash, 16),
	})
	return saveTable(s.kv, keyIndex, t)
}
