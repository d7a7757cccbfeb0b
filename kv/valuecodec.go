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

	"github.com/cloudwego/ringstore/gridbuf"
)

// sampleHeaderSize is the 8-byte (time, length) header every sample
// record value carries ahead of its blob, split as two little-endian
// uint32 halves.
const sampleHeaderSize = 8

// EncodeSample packs a sample's insertion time and payload into the wire
// form sample records use as their kv value: an 8-byte little-endian
// (time, length) header followed by blob. Callers (the time-ring layer)
// hand the result straight to Put.
func EncodeSample(t int64, blob []byte) []byte {
	wb := gridbuf.NewWriteBuffer()
	buf := wb.NewBuffer(nil, sampleHeaderSize+len(blob))[:sampleHeaderSize]
	binary.LittleEndian.PutUint32(buf[0:4], uint32(t))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(len(blob)))
	buf = append(buf, blob...)

	out := make([]byte, len(buf))
	copy(out, buf)
	wb.Free()
	return out
}

// DecodeSample splits a sample record value back into its insertion time
// and payload, validating the header's length field against the actual
// remaining bytes.
func DecodeSample(raw []byte) (t int64, blob []byte, err error) {
	if len(raw) < sampleHeaderSize {
		return 0, nil, fmt.Errorf("decode sample: %w", ErrCorrupt)
	}
	t = int64(binary.LittleEndian.Uint32(raw[0:4]))
	length := binary.LittleEndian.Uint32(raw[4:8])
	if int(length) != len(raw)-sampleHeaderSize {
		return 0, nil, fmt.Errorf("decode sample: %w", ErrCorrupt)
	}
	return t, raw[sampleHeaderSize:], nil
}
