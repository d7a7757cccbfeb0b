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

// Package spanindex tracks, per table-ring, the contiguous runs of
// sequence numbers that share one schema header. One table.Table, stored
// as a single kv.Store entry keyed "__span_<ring>", holds every span:
// columns from_seq, to_seq, from_time, to_time, header. Spans never
// overlap and are kept in append order, which is also sequence order.
package spanindex

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/cloudwego/ringstore/kv"
	"github.com/cloudwego/ringstore/table"
)

// ErrSpanOverlap is returned when a new span would overlap an existing one.
var ErrSpanOverlap = errors.New("spanindex: span overlap")

// Hunt selects how Get resolves a seq/time that falls in a gap left by Purge.
type Hunt int

const (
	// Exact requires the lookup key to fall within some span.
	Exact Hunt = iota
	// HuntPrev returns the nearest span at or before the lookup key.
	HuntPrev
	// HuntNext returns the nearest span at or after the lookup key.
	HuntNext
)

const (
	colFromSeq  = "from_seq"
	colToSeq    = "to_seq"
	colFromTime = "from_time"
	colToTime   = "to_time"
	colHeader   = "header"
)

const sep = "\t"

// Span is one contiguous run of sequence numbers sharing Header.
type Span struct {
	FromSeq  int64
	ToSeq    int64
	FromTime int64
	ToTime   int64
	Header   string
}

func spanKey(ring string) string { return "__span_" + ring }

func newSchema() *table.Table {
	return table.NewWithColumns(colFromSeq, colToSeq, colFromTime, colToTime, colHeader)
}

func rowToSpan(vals map[string]string) Span {
	s := Span{Header: vals[colHeader]}
	s.FromSeq, _ = strconv.ParseInt(vals[colFromSeq], 10, 64)
	s.ToSeq, _ = strconv.ParseInt(vals[colToSeq], 10, 64)
	s.FromTime, _ = strconv.ParseInt(vals[colFromTime], 10, 64)
	s.ToTime, _ = strconv.ParseInt(vals[colToTime], 10, 64)
	return s
}

func spanToRow(s Span) map[string]string {
	return map[string]string{
		colFromSeq:  strconv.FormatInt(s.FromSeq, 10),
		colToSeq:    strconv.FormatInt(s.ToSeq, 10),
		colFromTime: strconv.FormatInt(s.FromTime, 10),
		colToTime:   strconv.FormatInt(s.ToTime, 10),
		colHeader:   s.Header,
	}
}

// Read loads the span table for ring, returning an empty schema-only table
// if the ring has no spans yet.
func Read(store *kv.Store, ring string) (*table.Table, error) {
	raw, ok, err := store.Get(spanKey(ring))
	if err != nil {
		return nil, err
	}
	t := newSchema()
	if !ok {
		return t, nil
	}
	if _, err := t.Scan(raw, table.ScanOptions{Seps: sep, WithHeader: true}); err != nil {
		return nil, fmt.Errorf("spanindex: scan %s: %w", ring, err)
	}
	return t, nil
}

// Write persists t as ring's span table.
func Write(store *kv.Store, ring string, t *table.Table) error {
	return store.Put(spanKey(ring), []byte(t.OutTable(sep, true, false)))
}

// All returns every span for ring in sequence order.
func All(store *kv.Store, ring string) ([]Span, error) {
	t, err := Read(store, ring)
	if err != nil {
		return nil, err
	}
	return allSpans(t), nil
}

func allSpans(t *table.Table) []Span {
	out := make([]Span, 0, t.NumRows())
	for ok := t.First(); ok; ok = t.Next() {
		id, err := t.GetRowKey()
		if err != nil {
			break
		}
		vals, found := t.GetRow(id)
		if !found {
			continue
		}
		out = append(out, rowToSpan(vals))
	}
	return out
}

// Put records a write of seq (stamped t) under header, extending the last
// span when it is contiguous and shares header, else appending a new span.
// It returns ErrSpanOverlap if seq is not greater than the last recorded
// span's ToSeq; a seq further ahead than ToSeq+1 starts a new span.
func Put(store *kv.Store, ring string, seq, t int64, header string) error {
	spans, err := All(store, ring)
	if err != nil {
		return err
	}
	if len(spans) > 0 {
		last := &spans[len(spans)-1]
		if seq <= last.ToSeq {
			return fmt.Errorf("spanindex: put %s/%d: %w", ring, seq, ErrSpanOverlap)
		}
		if seq == last.ToSeq+1 && last.Header == header {
			last.ToSeq = seq
			last.ToTime = t
		} else {
			spans = append(spans, Span{FromSeq: seq, ToSeq: seq, FromTime: t, ToTime: t, Header: header})
		}
	} else {
		spans = append(spans, Span{FromSeq: seq, ToSeq: seq, FromTime: t, ToTime: t, Header: header})
	}
	tbl := newSchema()
	for _, s := range spans {
		tbl.AddRow(spanToRow(s))
	}
	return Write(store, ring, tbl)
}

// GetLatest returns the most recently recorded span.
func GetLatest(store *kv.Store, ring string) (Span, bool, error) {
	spans, err := All(store, ring)
	if err != nil || len(spans) == 0 {
		return Span{}, false, err
	}
	return spans[len(spans)-1], true, nil
}

// GetOldest returns the earliest recorded span.
func GetOldest(store *kv.Store, ring string) (Span, bool, error) {
	spans, err := All(store, ring)
	if err != nil || len(spans) == 0 {
		return Span{}, false, err
	}
	return spans[0], true, nil
}

// GetBySeq returns the span covering seq, per hunt when seq falls in a gap
// (left behind by Purge).
func GetBySeq(store *kv.Store, ring string, seq int64, hunt Hunt) (Span, bool, error) {
	spans, err := All(store, ring)
	if err != nil {
		return Span{}, false, err
	}
	return huntSeq(spans, seq, hunt)
}

func huntSeq(spans []Span, seq int64, hunt Hunt) (Span, bool, error) {
	for _, s := range spans {
		if seq >= s.FromSeq && seq <= s.ToSeq {
			return s, true, nil
		}
	}
	switch hunt {
	case HuntPrev:
		var best Span
		found := false
		for _, s := range spans {
			if s.ToSeq <= seq && (!found || s.ToSeq > best.ToSeq) {
				best, found = s, true
			}
		}
		return best, found, nil
	case HuntNext:
		var best Span
		found := false
		for _, s := range spans {
			if s.FromSeq >= seq && (!found || s.FromSeq < best.FromSeq) {
				best, found = s, true
			}
		}
		return best, found, nil
	default:
		return Span{}, false, nil
	}
}

// GetByTime returns the span covering t, per hunt when t falls in a gap.
func GetByTime(store *kv.Store, ring string, t int64, hunt Hunt) (Span, bool, error) {
	spans, err := All(store, ring)
	if err != nil {
		return Span{}, false, err
	}
	for _, s := range spans {
		if t >= s.FromTime && t <= s.ToTime {
			return s, true, nil
		}
	}
	switch hunt {
	case HuntPrev:
		var best Span
		found := false
		for _, s := range spans {
			if s.ToTime <= t && (!found || s.ToTime > best.ToTime) {
				best, found = s, true
			}
		}
		return best, found, nil
	case HuntNext:
		var best Span
		found := false
		for _, s := range spans {
			if s.FromTime >= t && (!found || s.FromTime < best.FromTime) {
				best, found = s, true
			}
		}
		return best, found, nil
	default:
		return Span{}, false, nil
	}
}

// Search returns every span whose header equals header.
func Search(store *kv.Store, ring, header string) ([]Span, error) {
	spans, err := All(store, ring)
	if err != nil {
		return nil, err
	}
	var out []Span
	for _, s := range spans {
		if s.Header == header {
			out = append(out, s)
		}
	}
	return out, nil
}

// Purge drops spans entirely before oldestSeq and, if a span straddles
// oldestSeq, adjusts its lower bound to (oldestSeq, oldestTime) instead of
// dropping it outright.
func Purge(store *kv.Store, ring string, oldestSeq, oldestTime int64) error {
	spans, err := All(store, ring)
	if err != nil {
		return err
	}
	tbl := newSchema()
	for _, s := range spans {
		switch {
		case s.ToSeq < oldestSeq:
			continue
		case s.FromSeq < oldestSeq:
			s.FromSeq = oldestSeq
			s.FromTime = oldestTime
			tbl.AddRow(spanToRow(s))
		default:
			tbl.AddRow(spanToRow(s))
		}
	}
	return Write(store, ring, tbl)
}

// ParseRingName splits a ring name of the form "r.<root><duration>" into
// its root and trailing numeric duration. ok is false if name does not
// start with the "r." prefix.
func ParseRingName(name string) (root string, duration int64, ok bool) {
	if !strings.HasPrefix(name, "r.") {
		return "", 0, false
	}
	s := name[2:]
	i := len(s)
	for i > 0 && s[i-1] >= '0' && s[i-1] <= '9' {
		i--
	}
	if i == len(s) {
		return s, 0, true
	}
	dur, err := strconv.ParseInt(s[i:], 10, 64)
	if err != nil {
		return "", 0, false
	}
	return s[:i], dur, true
}
