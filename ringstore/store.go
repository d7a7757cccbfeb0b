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

// Package ringstore is the top-level CRUD, metadata and directory layer
// over table-rings: it adds named rings with descriptive metadata, a
// de-duplicated header table, and a cross-ring write index, consistently
// updated in one kv transaction per put.
package ringstore

import (
	"fmt"
	"os"
	"sync"

	"github.com/cloudwego/ringstore/concurrency/gopool"
	"github.com/cloudwego/ringstore/container/strmap"
	"github.com/cloudwego/ringstore/kv"
	"github.com/cloudwego/ringstore/spanindex"
	"github.com/cloudwego/ringstore/table"
	"github.com/cloudwego/ringstore/tablering"
)

// Store is a directory of table-rings backed by a single kv.Store file.
type Store struct {
	kv *kv.Store
	gp *gopool.GoPool

	mu      sync.Mutex
	headers *strmap.Str2Str
	rings   map[string]*tablering.TableRing
}

func newStore(kvs *kv.Store) *Store {
	return &Store{
		kv:      kvs,
		gp:      gopool.NewGoPool("ringstore-checkpoint", nil),
		headers: strmap.NewStr2Str(),
		rings:   make(map[string]*tablering.TableRing),
	}
}

// Create initializes a new ring-store file at path.
func Create(path string, perm os.FileMode) (*Store, error) {
	kvs, err := kv.Create(path, perm)
	if err != nil {
		return nil, err
	}
	s := newStore(kvs)
	s.rebuildHeaderSnapshot(headersSchema())
	return s, nil
}

// Open opens an existing ring-store file.
func Open(path string, mode kv.Mode) (*Store, error) {
	kvs, err := kv.Open(path, mode)
	if err != nil {
		return nil, err
	}
	s := newStore(kvs)
	t, err := loadTable(kvs, keyHeaders, headersSchema)
	if err != nil {
		return nil, err
	}
	s.rebuildHeaderSnapshot(t)
	return s, nil
}

// Close releases every open ring handle and the backing kv.Store.
func (s *Store) Close() error {
	for _, tr := range s.rings {
		_ = tr.Close()
	}
	return s.kv.Close()
}

// Footprint returns the backing file's current size in bytes.
func (s *Store) Footprint() (int64, error) { return s.kv.Footprint() }

// Remain returns how many bytes remain under budget, 0 if already over.
func (s *Store) Remain(budget int64) (int64, error) {
	used, err := s.Footprint()
	if err != nil {
		return 0, err
	}
	if used >= budget {
		return 0, nil
	}
	return budget - used, nil
}

// CheckpointAsync compacts the backing store on a gopool worker, so a
// caller driving frequent puts isn't blocked by the rewrite.
func (s *Store) CheckpointAsync() {
	s.gp.Go(func() { _ = s.kv.Checkpoint() })
}

// CreateRing registers a new ring with descriptive metadata and opens it.
func (s *Store) CreateRing(name, longName, about string, duration, slots int64) (*tablering.TableRing, error) {
	rings, err := s.loadRings()
	if err != nil {
		return nil, err
	}
	for _, row := range tableRows(rings) {
		if row[colName] == name {
			return nil, fmt.Errorf("ringstore: create ring %s: %w", name, kv.ErrAlreadyExists)
		}
	}

	id, err := s.nextRingID()
	if err != nil {
		return nil, err
	}
	tr, err := tablering.Create(s.kv, name, about, "", slots)
	if err != nil {
		return nil, err
	}
	rings.AddRow(ringInfoToRow(RingInfo{ID: id, Name: name, LongName: longName, About: about, Duration: duration, Slots: slots}))
	if err := saveTable(s.kv, keyRings, rings); err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.rings[name] = tr
	s.mu.Unlock()
	return tr, nil
}

// OpenRing opens an already registered ring, reusing a cached handle if
// one is already open.
func (s *Store) OpenRing(name string) (*tablering.TableRing, error) {
	s.mu.Lock()
	if tr, ok := s.rings[name]; ok {
		s.mu.Unlock()
		return tr, nil
	}
	s.mu.Unlock()

	tr, err := tablering.Open(s.kv, name, "")
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.rings[name] = tr
	s.mu.Unlock()
	return tr, nil
}

// DropRing destroys a ring's samples and removes it from the directory.
func (s *Store) DropRing(name string) error {
	tr, err := s.OpenRing(name)
	if err != nil {
		return err
	}
	if err := tr.Destroy(); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.rings, name)
	s.mu.Unlock()

	rings, err := s.loadRings()
	if err != nil {
		return err
	}
	kept := ringsSchema()
	for _, row := range tableRows(rings) {
		if row[colName] != name {
			kept.AddRow(row)
		}
	}
	return saveTable(s.kv, keyRings, kept)
}

// ListRings returns every registered ring's directory entry.
func (s *Store) ListRings() ([]RingInfo, error) {
	rings, err := s.loadRings()
	if err != nil {
		return nil, err
	}
	rows := tableRows(rings)
	out := make([]RingInfo, 0, len(rows))
	for _, row := range rows {
		out = append(out, rowToRingInfo(row))
	}
	return out, nil
}

// RingsByRoot returns every registered ring whose name shares root, per
// spanindex.ParseRingName's "r.<root><duration>" convention.
func (s *Store) RingsByRoot(root string) ([]RingInfo, error) {
	all, err := s.ListRings()
	if err != nil {
		return nil, err
	}
	var out []RingInfo
	for _, r := range all {
		if rootName, _, ok := spanindex.ParseRingName(r.Name); ok && rootName == root {
			out = append(out, r)
		}
	}
	return out, nil
}

// Put writes t to the named ring, registering its schema header in the
// store's de-duplicated header table and appending a cross-ring index
// entry, all inside one kv write transaction.
func (s *Store) Put(name string, t *table.Table, at int64) (int64, error) {
	tr, err := s.OpenRing(name)
	if err != nil {
		return 0, err
	}

	txn, err := s.kv.Begin(kv.ModeWrite)
	if err != nil {
		return 0, err
	}
	defer txn.Commit()

	header := tablering.CanonicalHeader(t)
	hash, err := s.registerHeader(header)
	if err != nil {
		return 0, err
	}
	seq, err := tr.Put(t, at)
	if err != nil {
		return 0, err
	}
	duration := tr.Ring().Meta().Duration
	if err := s.appendIndex(name, seq, at, duration, hash); err != nil {
		return 0, err
	}
	return seq, nil
}

// Get reads the table at name's cursor, advancing it if advance is true.
func (s *Store) Get(name string, advance bool) (*table.Table, bool, error) {
	tr, err := s.OpenRing(name)
	if err != nil {
		return nil, false, err
	}
	return tr.Get(advance)
}
