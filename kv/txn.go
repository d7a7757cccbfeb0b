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

import "fmt"

// Mode is how a Store handle, or a transaction on it, was opened.
type Mode int

const (
	ModeRead Mode = iota
	ModeWrite
)

// Txn is an open transaction on a Store. Closed → Open(read|write) →
// InTrans(read|write) → Open(*) → Closed, per handle. Only one
// transaction may be open on a handle at a time.
type Txn struct {
	store *Store
	mode  Mode
	done  bool
}

// Begin opens a transaction in mode on s. mode == ModeWrite requires s
// itself to have been opened for writing. Only one transaction may be
// active on a handle at once; a second Begin before Commit fails.
func (s *Store) Begin(mode Mode) (*Txn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.txn != nil {
		return nil, fmt.Errorf("begin: %w", ErrInvalidState)
	}
	if mode == ModeWrite && s.openMode != ModeWrite {
		return nil, fmt.Errorf("begin: %w", ErrInvalidState)
	}
	if err := acquireLock(s.f, mode); err != nil {
		return nil, err
	}
	t := &Txn{store: s, mode: mode}
	s.txn = t
	return t, nil
}

// Mode reports whether t was opened for reading or writing.
func (t *Txn) Mode() Mode { return t.mode }

// ActiveTxn returns the transaction currently open on s, or nil if none.
// Callers that wrap several Store operations needing one write transaction
// can use it to avoid nesting Begin calls: begin only if none is already
// active, and let an enclosing transaction cover the whole sequence.
func (s *Store) ActiveTxn() *Txn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.txn
}

// Commit ends the transaction, fsyncing the store's file first if it was
// a write transaction, then releasing the advisory lock taken by Begin.
func (t *Txn) Commit() error {
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.done {
		return fmt.Errorf("commit: %w", ErrInvalidState)
	}
	if t.mode == ModeWrite {
		if err := s.f.Sync(); err != nil {
			return fmt.Errorf("commit: %w", err)
		}
	}
	if err := releaseLock(s.f); err != nil {
		return err
	}
	t.done = true
	s.txn = nil
	return nil
}

// Rollback is an alias for Commit: holstore transactions have no undo
// log, so "rolling back" means the same fsync-and-release as committing.
func (t *Txn) Rollback() error { return t.Commit() }
