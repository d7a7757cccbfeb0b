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

package table

// Table's body rows carry a single cursor (the same cursor embedded in its
// backing ordmap.Uint32Map), matching every other map facade in this repo:
// the cursor lives on the container, not in a side iterator object, and is
// only ever invalidated by deleting the row it points at, at which point it
// advances to the successor.

// First moves the cursor to the first row in id order. Reports whether a
// row exists.
func (t *Table) First() bool { return t.rows.First() }

// Last moves the cursor to the last row in id order.
func (t *Table) Last() bool { return t.rows.Last() }

// Next advances the cursor to the next row in id order.
func (t *Table) Next() bool { return t.rows.Next() }

// Prev moves the cursor to the previous row in id order.
func (t *Table) Prev() bool { return t.rows.Prev() }

// IsBeyondEnd reports whether the cursor currently sits on no row.
func (t *Table) IsBeyondEnd() bool { return !t.rows.Valid() }

// GotoRow moves the cursor directly to row id. Reports whether it exists.
func (t *Table) GotoRow(id uint32) bool { return t.rows.GoTo(id) }

// GetCurrentCell returns the value of col in the row the cursor sits on.
func (t *Table) GetCurrentCell(col string) (string, error) {
	if !t.rows.Valid() {
		return "", ErrBeyondEnd
	}
	pos, ok := t.colIndex.Find(col)
	if !ok {
		return "", ErrNoSuchColumn
	}
	c := t.rows.Value().cellAt(pos)
	if c == nil {
		return "", nil
	}
	return *c, nil
}

// ReplaceCurrentCell overwrites col's value in the row the cursor sits on.
func (t *Table) ReplaceCurrentCell(col, val string) error {
	if !t.rows.Valid() {
		return ErrBeyondEnd
	}
	pos, ok := t.colIndex.Find(col)
	if !ok {
		return ErrNoSuchColumn
	}
	v := val
	t.rows.Value().cells[pos] = &v
	return nil
}

// RemoveCurrentRow deletes the row the cursor sits on, advancing the
// cursor to its successor (ordmap's delete-aware cursor semantics).
func (t *Table) RemoveCurrentRow() error {
	if !t.rows.Valid() {
		return ErrBeyondEnd
	}
	t.rows.Remove(t.rows.Key())
	return nil
}

// GetRowKey returns the id of the row the cursor currently sits on.
func (t *Table) GetRowKey() (uint32, error) {
	if !t.rows.Valid() {
		return 0, ErrBeyondEnd
	}
	return t.rows.Key(), nil
}
