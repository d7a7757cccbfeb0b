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

// Package kv implements a persistent, keyed binary store (a "holstore"): a
// single DBM-style file with a reserved superblock record, transactions
// with bounded-retry advisory locking, and a sequential scan-and-append
// substrate that doubles as the store's own crash-recovery mechanism.
package kv

import "errors"

// Error kinds, one sentinel per taxonomy entry. Call sites wrap these with
// fmt.Errorf("...: %w", Err...) to add context; callers discriminate with
// errors.Is.
var (
	ErrNotFound        = errors.New("kv: not found")
	ErrAlreadyExists   = errors.New("kv: already exists")
	ErrBadMagic        = errors.New("kv: bad magic")
	ErrVersionMismatch = errors.New("kv: version mismatch")
	ErrLockUnavailable = errors.New("kv: lock unavailable")
	ErrCorrupt         = errors.New("kv: corrupt store")
	ErrInvalidState    = errors.New("kv: invalid state")
)
