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

// Package codec is the text glue between ringstore's tables and their
// canonical on-disk/wire text form: Export renders a time-bounded window of
// a ring's samples as one text table tagged with synthetic _time/_seq/
// _host/_ring/_dur columns; Import reads that form back, grouping
// consecutive rows that share _seq/_time into one sample per put.
package codec

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/cloudwego/ringstore/kv"
	"github.com/cloudwego/ringstore/ringstore"
	"github.com/cloudwego/ringstore/spanindex"
	"github.com/cloudwego/ringstore/table"
)

// ErrScanParse is returned by Import when the input text is missing a
// column Import requires to regroup rows into samples.
var ErrScanParse = errors.New("codec: scan parse error")

const (
	colTime = "_time"
	colSeq  = "_seq"
	colHost = "_host"
	colRing = "_ring"
	colDur  = "_dur"
)

var syntheticCols = map[string]bool{colTime: true, colSeq: true, colHost: true, colRing: true, colDur: true}

// Export renders ring's samples between fromTime and toTime (inclusive;
// either bound 0 means unbounded on that side) as one canonical text table,
// one row per original row plus the synthetic _time/_seq/_host/_ring/_dur
// columns identifying where it came from.
func Export(s *ringstore.Store, ringName string, fromTime, toTime int64, sep string) (string, error) {
	tr, err := s.OpenRing(ringName)
	if err != nil {
		return "", err
	}
	_, dur, _ := spanindex.ParseRingName(ringName)
	host, _ := os.Hostname()

	if err := tr.Ring().GotoOldest(); err != nil {
		return "", err
	}

	var out strings.Builder
	headerWritten := false
	for {
		t, hasMore, err := tr.Get(true)
		if err != nil {
			return "", err
		}
		if !hasMore {
			break
		}
		_ = t.AddColumn(colHost, nil)
		_ = t.AddColumn(colRing, nil)
		_ = t.AddColumn(colDur, nil)

		more := t.First()
		for more {
			tv, _ := t.GetCurrentCell(colTime)
			when, _ := strconv.ParseInt(tv, 10, 64)
			if (fromTime > 0 && when < fromTime) || (toTime > 0 && when > toTime) {
				_ = t.RemoveCurrentRow()
				more = !t.IsBeyondEnd()
				continue
			}
			_ = t.ReplaceCurrentCell(colHost, host)
			_ = t.ReplaceCurrentCell(colRing, ringName)
			_ = t.ReplaceCurrentCell(colDur, strconv.FormatInt(dur, 10))
			more = t.Next()
		}

		if t.NumRows() == 0 {
			continue
		}
		if !headerWritten {
			out.WriteString(strings.Join(t.ColumnNames(), sep))
			out.WriteByte('\n')
			headerWritten = true
		}
		out.WriteString(t.OutBody(sep))
	}
	return out.String(), nil
}

// Import parses text (which must declare _seq and _time columns) and
// replays it into ring, grouping consecutive rows sharing (_seq, _time)
// into one sample per group. Import creates ring (with slots slots) if it
// does not already exist. Returns the number of samples written.
func Import(s *ringstore.Store, ringName string, text []byte, sep string, slots int64) (int, error) {
	t := table.New()
	if _, err := t.Scan(text, table.ScanOptions{Seps: sep, WithHeader: true}); err != nil {
		return 0, err
	}
	if !t.HasColumn(colSeq) || !t.HasColumn(colTime) {
		return 0, fmt.Errorf("codec: import requires declared _seq and _time columns: %w", ErrScanParse)
	}

	var bodyCols []string
	for _, name := range t.ColumnNames() {
		if !syntheticCols[name] {
			bodyCols = append(bodyCols, name)
		}
	}

	if _, err := s.OpenRing(ringName); err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			return 0, err
		}
		if _, err := s.CreateRing(ringName, "", "", 0, slots); err != nil {
			return 0, err
		}
	}

	count := 0
	var curSeq, curTime int64
	haveGroup := false
	var rows []map[string]string

	flush := func() error {
		if !haveGroup || len(rows) == 0 {
			return nil
		}
		bt := table.NewWithColumns(bodyCols...)
		for _, r := range rows {
			bt.AddRow(r)
		}
		_, err := s.Put(ringName, bt, curTime)
		return err
	}

	for ok := t.First(); ok; ok = t.Next() {
		id, err := t.GetRowKey()
		if err != nil {
			break
		}
		vals, found := t.GetRow(id)
		if !found {
			continue
		}
		seq, _ := strconv.ParseInt(vals[colSeq], 10, 64)
		when, _ := strconv.ParseInt(vals[colTime], 10, 64)
		if !haveGroup || seq != curSeq || when != curTime {
			if err := flush(); err != nil {
				return count, err
			}
			curSeq, curTime, haveGroup, rows = seq, when, true, nil
			count++
		}
		row := make(map[string]string, len(bodyCols))
		for _, c := range bodyCols {
			if v, ok := vals[c]; ok {
				row[c] = v
			}
		}
		rows = append(rows, row)
	}
	if err := flush(); err != nil {
		return count, err
	}
	return count, nil
}
