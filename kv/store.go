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

package kv

import (
	"fmt"
	"os"
	"regexp"
	"sync"
	"time"

	"github.com/cloudwego/ringstore/container/ordmap"
)

// Store is an open handle on a holstore file: a superblock, an in-memory
// index of live keys rebuilt by scanning the file on Open, and the file
// itself as an append-only log of records.
type Store struct {
	path       string
	f          *os.File
	openMode   Mode
	superblock Superblock

	mu    sync.Mutex
	index *ordmap.StringMap[entry]
	size  int64
	txn   *Txn
}

// Pair is one key/value result from Search.
type Pair struct {
	Key   string
	Value []byte
}

// Create makes a new holstore at path, failing with ErrAlreadyExists if
// the path is already occupied. The superblock is written and fsynced
// before Create returns, under an exclusive lock.
func Create(path string, perm os.FileMode) (*Store, error) {
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("create %s: %w", path, ErrAlreadyExists)
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, perm)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}

	if err := acquireLock(f, ModeWrite); err != nil {
		f.Close()
		os.Remove(path)
		return nil, err
	}

	sysname, nodename, release, version, machine := nodeIdentity()
	sb := Superblock{
		Magic: Magic, Version: Version, Created: time.Now().Unix(),
		OS: sysname, Node: nodename, Release: release, KernelVersion: version, Machine: machine,
	}
	size, _, err := appendRecordTo(f, 0, false, reservedSuperblockKey, sb.Encode())
	if err != nil {
		releaseLock(f)
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	if err := f.Sync(); err != nil {
		releaseLock(f)
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	releaseLock(f)

	return &Store{
		path: path, f: f, openMode: ModeWrite,
		superblock: sb, index: ordmap.NewStringMap[entry](), size: size,
	}, nil
}

// Open opens an existing holstore at path in mode, rebuilding the index
// by scanning the whole file. Fails with ErrBadMagic / ErrVersionMismatch
// if the superblock doesn't match, or ErrNotFound if path doesn't exist.
func Open(path string, mode Mode) (*Store, error) {
	flags := os.O_RDONLY
	if mode == ModeWrite {
		flags = os.O_RDWR
	}
	f, err := os.OpenFile(path, flags, 0)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("open %s: %w", path, ErrNotFound)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	if err := acquireLock(f, ModeRead); err != nil {
		f.Close()
		return nil, err
	}
	sb, index, size, err := scanFile(f)
	releaseLock(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	return &Store{path: path, f: f, openMode: mode, superblock: sb, index: index, size: size}, nil
}

// Close closes the underlying file. Fails with ErrInvalidState if a
// transaction is still open.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.txn != nil {
		return fmt.Errorf("close: %w", ErrInvalidState)
	}
	return s.f.Close()
}

// Path returns the filesystem path the store was opened/created with.
func (s *Store) Path() string { return s.path }

// Superblock returns the store's identity record.
func (s *Store) Superblock() Superblock { return s.superblock }

// Footprint returns the current on-disk size of the store file.
func (s *Store) Footprint() (int64, error) {
	fi, err := s.f.Stat()
	if err != nil {
		return 0, fmt.Errorf("footprint: %w", err)
	}
	return fi.Size(), nil
}

// withImplicitTxn runs fn inside the caller's already-open transaction if
// there is one (failing if fn needs write access inside a read
// transaction), otherwise opens and commits a one-shot transaction of its
// own around fn.
func (s *Store) withImplicitTxn(mode Mode, fn func() error) error {
	s.mu.Lock()
	existing := s.txn
	s.mu.Unlock()

	if existing != nil {
		if mode == ModeWrite && existing.mode == ModeRead {
			return fmt.Errorf("withImplicitTxn: %w", ErrInvalidState)
		}
		return fn()
	}

	txn, err := s.Begin(mode)
	if err != nil {
		return err
	}
	defer txn.Commit()
	return fn()
}

func (s *Store) appendRecord(tombstone bool, key string, value []byte) (entry, error) {
	next, e, err := appendRecordTo(s.f, s.size, tombstone, key, value)
	if err != nil {
		return entry{}, fmt.Errorf("append: %w", err)
	}
	s.size = next
	return e, nil
}

func (s *Store) readValue(e entry) ([]byte, error) {
	buf := make([]byte, e.length)
	if e.length == 0 {
		return buf, nil
	}
	if _, err := s.f.ReadAt(buf, e.offset); err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	return buf, nil
}

// Put stores value under key, appending a fresh record. Overwrites any
// existing value for key; fails inside a read transaction.
func (s *Store) Put(key string, value []byte) error {
	if key == reservedSuperblockKey {
		return fmt.Errorf("put: %w", ErrInvalidState)
	}
	return s.withImplicitTxn(ModeWrite, func() error {
		s.mu.Lock()
		defer s.mu.Unlock()
		e, err := s.appendRecord(false, key, value)
		if err != nil {
			return err
		}
		s.index.Insert(key, e)
		return nil
	})
}

// Get fetches the current value for key. ok is false if key is absent.
func (s *Store) Get(key string) (value []byte, ok bool, err error) {
	err = s.withImplicitTxn(ModeRead, func() error {
		s.mu.Lock()
		e, found := s.index.Find(key)
		s.mu.Unlock()
		if !found {
			return nil
		}
		v, rerr := s.readValue(e)
		if rerr != nil {
			return rerr
		}
		value, ok = v, true
		return nil
	})
	return value, ok, err
}

// Remove deletes key, appending a tombstone record. Fails with
// ErrNotFound if key isn't currently present.
func (s *Store) Remove(key string) error {
	return s.withImplicitTxn(ModeWrite, func() error {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, found := s.index.Find(key); !found {
			return fmt.Errorf("remove: %w", ErrNotFound)
		}
		if _, err := s.appendRecord(true, key, nil); err != nil {
			return err
		}
		s.index.Remove(key)
		return nil
	})
}

// Search returns every live key/value pair matching both keyRe and valRe.
// Either may be nil to skip that filter.
func (s *Store) Search(keyRe, valRe *regexp.Regexp) ([]Pair, error) {
	var out []Pair
	err := s.withImplicitTxn(ModeRead, func() error {
		s.mu.Lock()
		defer s.mu.Unlock()
		for ok := s.index.First(); ok; ok = s.index.Next() {
			k := s.index.Key()
			if keyRe != nil && !keyRe.MatchString(k) {
				continue
			}
			v, err := s.readValue(s.index.Value())
			if err != nil {
				return err
			}
			if valRe != nil && !valRe.Match(v) {
				continue
			}
			out = append(out, Pair{Key: k, Value: v})
		}
		return nil
	})
	return out, err
}

// ReadFirst positions the store's key cursor on the first live key (in
// key order) and returns it, skipping the reserved superblock key. ok is
// false if the store holds no keys.
func (s *Store) ReadFirst() (key string, value []byte, ok bool, err error) {
	s.mu.Lock()
	ok = s.index.First()
	var e entry
	if ok {
		key, e = s.index.Key(), s.index.Value()
	}
	s.mu.Unlock()
	if !ok {
		return "", nil, false, nil
	}
	value, err = s.readValue(e)
	return key, value, true, err
}

// ReadNext advances the store's key cursor and returns the next live key.
// ok is false once the cursor runs past the last key.
func (s *Store) ReadNext() (key string, value []byte, ok bool, err error) {
	s.mu.Lock()
	ok = s.index.Next()
	var e entry
	if ok {
		key, e = s.index.Key(), s.index.Value()
	}
	s.mu.Unlock()
	if !ok {
		return "", nil, false, nil
	}
	value, err = s.readValue(e)
	return key, value, true, err
}

// Checkpoint compacts the store: it rewrites the file keeping only live
// values (dropping tombstones and superseded records), reclaiming the
// space removed/overwritten keys left behind. It must be called outside
// any transaction.
func (s *Store) Checkpoint() error {
	s.mu.Lock()
	if s.txn != nil {
		s.mu.Unlock()
		return fmt.Errorf("checkpoint: %w", ErrInvalidState)
	}
	s.mu.Unlock()

	txn, err := s.Begin(ModeWrite)
	if err != nil {
		return err
	}
	defer txn.Commit()

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.compact()
}

func (s *Store) compact() error {
	tmpPath := s.path + ".checkpoint.tmp"
	tmpF, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_TRUNC|os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}

	off, _, err := appendRecordTo(tmpF, 0, false, reservedSuperblockKey, s.superblock.Encode())
	if err != nil {
		tmpF.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("checkpoint: %w", err)
	}

	newIndex := ordmap.NewStringMap[entry]()
	for ok := s.index.First(); ok; ok = s.index.Next() {
		key := s.index.Key()
		v, rerr := s.readValue(s.index.Value())
		if rerr != nil {
			tmpF.Close()
			os.Remove(tmpPath)
			return rerr
		}
		var e entry
		off, e, err = appendRecordTo(tmpF, off, false, key, v)
		if err != nil {
			tmpF.Close()
			os.Remove(tmpPath)
			return fmt.Errorf("checkpoint: %w", err)
		}
		newIndex.Insert(key, e)
	}

	if err := tmpF.Sync(); err != nil {
		tmpF.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("checkpoint: %w", err)
	}
	if err := tmpF.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("checkpoint: %w", err)
	}
	if err := s.f.Close(); err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}

	flags := os.O_RDONLY
	if s.openMode == ModeWrite {
		flags = os.O_RDWR
	}
	f, err := os.OpenFile(s.path, flags, 0)
	if err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	s.f = f
	s.index = newIndex
	s.size = off
	return nil
}
