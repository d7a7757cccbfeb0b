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
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/cloudwego/ringstore/container/ordmap"
)

// recordHeaderSize is the on-disk header preceding every record: a
// tombstone flag byte, a uint32 key length, and a uint64 value length.
const recordHeaderSize = 1 + 4 + 8

// entry is the in-memory index value: where a key's live value lives in
// the backing file.
type entry struct {
	offset int64
	length int64
}

// appendRecordTo writes one record (tombstone flag, key, value) to f at
// offset and returns the offset just past it, along with the entry
// describing where the value bytes land.
func appendRecordTo(f *os.File, offset int64, tombstone bool, key string, value []byte) (int64, entry, error) {
	var hdr [recordHeaderSize]byte
	if tombstone {
		hdr[0] = 1
	}
	binary.LittleEndian.PutUint32(hdr[1:5], uint32(len(key)))
	binary.LittleEndian.PutUint64(hdr[5:13], uint64(len(value)))

	if _, err := f.WriteAt(hdr[:], offset); err != nil {
		return 0, entry{}, err
	}
	if len(key) > 0 {
		if _, err := f.WriteAt([]byte(key), offset+recordHeaderSize); err != nil {
			return 0, entry{}, err
		}
	}
	valOff := offset + recordHeaderSize + int64(len(key))
	if len(value) > 0 {
		if _, err := f.WriteAt(value, valOff); err != nil {
			return 0, entry{}, err
		}
	}
	return valOff + int64(len(value)), entry{offset: valOff, length: int64(len(value))}, nil
}

// scanFile replays every record in f from the start, rebuilding the
// superblock and the live-key index. The first record must be the
// reserved superblock key; anything else is a corrupt store.
func scanFile(f *os.File) (Superblock, *ordmap.StringMap[entry], int64, error) {
	index := ordmap.NewStringMap[entry]()
	var off int64
	var sb Superblock
	first := true

	for {
		var hdr [recordHeaderSize]byte
		n, err := f.ReadAt(hdr[:], off)
		if n < recordHeaderSize {
			if err == io.EOF || err == nil {
				break
			}
			return Superblock{}, nil, 0, fmt.Errorf("scan: %w", err)
		}

		tomb := hdr[0] == 1
		klen := binary.LittleEndian.Uint32(hdr[1:5])
		vlen := binary.LittleEndian.Uint64(hdr[5:13])

		keyBuf := make([]byte, klen)
		if klen > 0 {
			if _, err := f.ReadAt(keyBuf, off+recordHeaderSize); err != nil {
				return Superblock{}, nil, 0, fmt.Errorf("scan: %w", err)
			}
		}
		key := string(keyBuf)
		valOff := off + recordHeaderSize + int64(klen)

		if first {
			first = false
			if key != reservedSuperblockKey || tomb {
				return Superblock{}, nil, 0, fmt.Errorf("scan: %w", ErrBadMagic)
			}
			sbBuf := make([]byte, vlen)
			if vlen > 0 {
				if _, err := f.ReadAt(sbBuf, valOff); err != nil {
					return Superblock{}, nil, 0, fmt.Errorf("scan: %w", err)
				}
			}
			decoded, derr := DecodeSuperblock(sbBuf)
			if derr != nil {
				return Superblock{}, nil, 0, derr
			}
			sb = decoded
		} else if tomb {
			index.Remove(key)
		} else {
			index.Insert(key, entry{offset: valOff, length: int64(vlen)})
		}

		off = valOff + int64(vlen)
	}

	return sb, index, off, nil
}
