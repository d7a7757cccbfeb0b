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

package timering

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/cloudwego/ringstore/container/ring"
	"github.com/cloudwego/ringstore/kv"
)

// recentCacheSize bounds the in-memory read-through cache kept alongside
// every open Ring. It is a fixed-size window, not a durability mechanism:
// the durable ring state lives entirely in the backing kv.Store.
const recentCacheSize = 32

// Sample is one (seq, time, blob) record returned by Get/MGetN/MGetT.
type Sample struct {
	Seq  int64
	Time int64
	Blob []byte
}

// Stat summarizes a ring's current bounds, as reported by spec's stat op.
type Stat struct {
	Slots        int64
	Duration     int64
	Oldest       int64
	OldestTime   int64
	Youngest     int64
	YoungestTime int64
	Cursor       int64
}

type cachedSample struct {
	seq   int64
	time  int64
	blob  []byte
	valid bool
}

// Ring is an open handle onto one named time-ring living in store. Handles
// are not safe for concurrent use; store itself serializes transactions.
type Ring struct {
	store  *kv.Store
	name   string
	meta   Meta
	cursor int64

	recent     *ring.Ring[cachedSample]
	recentNext int
}

func metaKey(name string) string { return name + ".meta" }

func sampleKey(name string, seq int64) string {
	return name + "." + strconv.FormatInt(seq, 10)
}

// Create initializes a new ring named name. slots<=0 means unbounded.
func Create(store *kv.Store, name, description, password string, slots int64) (*Ring, error) {
	if _, ok, err := store.Get(metaKey(name)); err != nil {
		return nil, err
	} else if ok {
		return nil, fmt.Errorf("timering: create %s: %w", name, kv.ErrAlreadyExists)
	}
	m := Meta{Slots: slots, Oldest: 1, Youngest: 0, Description: description, Password: password}
	if err := store.Put(metaKey(name), encodeMeta(m)); err != nil {
		return nil, fmt.Errorf("timering: create %s: %w", name, err)
	}
	return newRing(store, name, m), nil
}

// Open attaches to an existing ring, positioning the cursor at its oldest sample.
func Open(store *kv.Store, name, password string) (*Ring, error) {
	v, ok, err := store.Get(metaKey(name))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("timering: open %s: %w", name, kv.ErrNotFound)
	}
	m, err := decodeMeta(v)
	if err != nil {
		return nil, err
	}
	if m.Password != "" && m.Password != password {
		return nil, fmt.Errorf("timering: open %s: %w", name, ErrPermissionDenied)
	}
	r := newRing(store, name, m)
	r.cursor = m.Oldest
	return r, nil
}

func newRing(store *kv.Store, name string, m Meta) *Ring {
	cache := make([]cachedSample, recentCacheSize)
	return &Ring{
		store:  store,
		name:   name,
		meta:   m,
		cursor: m.Oldest,
		recent: ring.NewFromSlice(cache),
	}
}

// Name returns the ring's name.
func (r *Ring) Name() string { return r.name }

// Meta returns a copy of the ring's current bookkeeping record.
func (r *Ring) Meta() Meta { return r.meta }

// Cursor returns the sequence the next Get/MGet* call will read.
func (r *Ring) Cursor() int64 { return r.cursor }

func (r *Ring) saveMeta() error {
	return r.store.Put(metaKey(r.name), encodeMeta(r.meta))
}

func (r *Ring) cacheLookup(seq int64) ([]byte, int64, bool) {
	for i := 0; i < r.recent.Len(); i++ {
		item, _ := r.recent.Get(i)
		v := item.Value()
		if v.valid && v.seq == seq {
			return v.blob, v.time, true
		}
	}
	return nil, 0, false
}

func (r *Ring) cacheStore(seq, t int64, blob []byte) {
	item, _ := r.recent.Get(r.recentNext)
	*item.Pointer() = cachedSample{seq: seq, time: t, blob: blob, valid: true}
	r.recentNext = (r.recentNext + 1) % r.recent.Len()
}

// withWriteTxn runs fn under a write transaction on r.store. If the caller
// (e.g. ringstore, wrapping a put's header registration and index append
// together with the sample write) already holds one, fn joins it instead
// of nesting a second Begin, which kv.Store rejects.
func (r *Ring) withWriteTxn(fn func() error) error {
	if r.store.ActiveTxn() != nil {
		return fn()
	}
	txn, err := r.store.Begin(kv.ModeWrite)
	if err != nil {
		return err
	}
	defer txn.Commit()
	return fn()
}

func (r *Ring) fetch(seq int64) (blob []byte, t int64, err error) {
	if b, tm, ok := r.cacheLookup(seq); ok {
		return b, tm, nil
	}
	raw, found, err := r.store.Get(sampleKey(r.name, seq))
	if err != nil {
		return nil, 0, err
	}
	if !found {
		return nil, 0, fmt.Errorf("timering: fetch %s/%d: %w", r.name, seq, kv.ErrCorrupt)
	}
	t, blob, err = kv.DecodeSample(raw)
	if err != nil {
		return nil, 0, err
	}
	r.cacheStore(seq, t, blob)
	return blob, t, nil
}

// Put appends blob as a new sample stamped at time t.
func (r *Ring) Put(blob []byte, t int64) (int64, error) {
	var newSeq int64
	err := r.withWriteTxn(func() error {
		newSeq = r.meta.Youngest + 1
		if r.meta.Slots > 0 && !r.meta.empty() && (newSeq-r.meta.Oldest+1) > r.meta.Slots {
			if err := r.store.Remove(sampleKey(r.name, r.meta.Oldest)); err != nil {
				return err
			}
			r.meta.Oldest++
		}
		if err := r.store.Put(sampleKey(r.name, newSeq), kv.EncodeSample(t, blob)); err != nil {
			return err
		}
		r.meta.Youngest = newSeq
		r.meta.Count++
		r.meta.AvgSize += (float64(len(blob)) - r.meta.AvgSize) / float64(r.meta.Count)
		if r.cursor < r.meta.Oldest {
			r.cursor = r.meta.Oldest
		}
		if err := r.saveMeta(); err != nil {
			return err
		}
		r.cacheStore(newSeq, t, blob)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return newSeq, nil
}

// Get reads the sample at the cursor. If advance is true the cursor moves
// to the next sequence. ok is false once the cursor has passed youngest.
func (r *Ring) Get(advance bool) (sample Sample, ok bool, err error) {
	if r.cursor > r.meta.Youngest {
		return Sample{}, false, nil
	}
	seq := r.cursor
	blob, t, err := r.fetch(seq)
	if err != nil {
		return Sample{}, false, err
	}
	if advance {
		r.cursor++
	}
	return Sample{Seq: seq, Time: t, Blob: blob}, true, nil
}

// MGetN reads up to n consecutive samples starting at the cursor, advancing
// the cursor by the number actually read.
func (r *Ring) MGetN(n int) ([]Sample, error) {
	out := make([]Sample, 0, n)
	for len(out) < n {
		s, ok, err := r.Get(true)
		if err != nil {
			return out, err
		}
		if !ok {
			break
		}
		out = append(out, s)
	}
	return out, nil
}

// MGetT reads consecutive samples starting at the cursor while their
// cumulative blob size stays within maxBytes, always returning at least one
// sample when one is available. The cursor advances by the number read.
func (r *Ring) MGetT(maxBytes int) ([]Sample, error) {
	var out []Sample
	total := 0
	for {
		s, ok, err := r.Get(false)
		if err != nil {
			return out, err
		}
		if !ok {
			break
		}
		if total+len(s.Blob) > maxBytes && len(out) > 0 {
			break
		}
		r.cursor++
		total += len(s.Blob)
		out = append(out, s)
	}
	return out, nil
}

// Goto moves the cursor to seq, which must be within [oldest, youngest+1].
func (r *Ring) Goto(seq int64) error {
	if seq < r.meta.Oldest || seq > r.meta.Youngest+1 {
		return fmt.Errorf("timering: goto %s/%d: %w", r.name, seq, ErrCursorOutOfRange)
	}
	r.cursor = seq
	return nil
}

// Rewind moves the cursor back by n.
func (r *Ring) Rewind(n int64) error { return r.Goto(r.cursor - n) }

// Forward moves the cursor ahead by n.
func (r *Ring) Forward(n int64) error { return r.Goto(r.cursor + n) }

// GotoOldest positions the cursor at the oldest retained sample.
func (r *Ring) GotoOldest() error { return r.Goto(r.meta.Oldest) }

// GotoYoungest positions the cursor at the youngest retained sample (or the
// next-write position, for an empty ring).
func (r *Ring) GotoYoungest() error {
	if r.meta.empty() {
		return r.Goto(r.meta.Oldest)
	}
	return r.Goto(r.meta.Youngest)
}

// Stat reports the ring's current bounds and sample timestamps at those bounds.
func (r *Ring) Stat() (Stat, error) {
	st := Stat{
		Slots:    r.meta.Slots,
		Duration: r.meta.Duration,
		Oldest:   r.meta.Oldest,
		Youngest: r.meta.Youngest,
		Cursor:   r.cursor,
	}
	if !r.meta.empty() {
		_, t, err := r.fetch(r.meta.Oldest)
		if err != nil {
			return Stat{}, err
		}
		st.OldestTime = t
		_, t, err = r.fetch(r.meta.Youngest)
		if err != nil {
			return Stat{}, err
		}
		st.YoungestTime = t
	}
	return st, nil
}

// Resize changes the slot count, evicting the oldest samples immediately if
// the new bound is smaller than the current population.
func (r *Ring) Resize(newSlots int64) error {
	return r.withWriteTxn(func() error {
		r.meta.Slots = newSlots
		if newSlots > 0 {
			for !r.meta.empty() && r.meta.population() > newSlots {
				if err := r.store.Remove(sampleKey(r.name, r.meta.Oldest)); err != nil {
					return err
				}
				r.meta.Oldest++
			}
			if r.cursor < r.meta.Oldest {
				r.cursor = r.meta.Oldest
			}
		}
		return r.saveMeta()
	})
}

// Purge removes every sample with sequence strictly less than beforeSeq.
func (r *Ring) Purge(beforeSeq int64) error {
	return r.withWriteTxn(func() error {
		return r.purgeLocked(beforeSeq)
	})
}

func (r *Ring) purgeLocked(beforeSeq int64) error {
	if beforeSeq > r.meta.Youngest+1 {
		beforeSeq = r.meta.Youngest + 1
	}
	for seq := r.meta.Oldest; seq < beforeSeq; seq++ {
		if err := r.store.Remove(sampleKey(r.name, seq)); err != nil {
			return err
		}
	}
	if beforeSeq > r.meta.Oldest {
		r.meta.Oldest = beforeSeq
	}
	if r.cursor < r.meta.Oldest {
		r.cursor = r.meta.Oldest
	}
	return r.saveMeta()
}

// Close releases the handle. The underlying store is owned by the caller.
func (r *Ring) Close() error {
	r.store = nil
	return nil
}

// Destroy removes the ring's meta record and every retained sample from the
// backing store.
func (r *Ring) Destroy() error {
	pattern := regexp.MustCompile(`^` + regexp.QuoteMeta(r.name) + `\.\d+$`)
	pairs, err := r.store.Search(pattern, nil)
	if err != nil {
		return err
	}
	for _, p := range pairs {
		if err := r.store.Remove(p.Key); err != nil {
			return err
		}
	}
	return r.store.Remove(metaKey(r.name))
}
