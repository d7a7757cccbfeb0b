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
	"bytes"
	"fmt"
	"runtime"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

const (
	// Magic identifies a file as a holstore. Version gates the on-disk
	// record layout; bumping it invalidates existing stores.
	Magic   = "HOLSTORE"
	Version = 1

	// reservedSuperblockKey is always the first record in the file and is
	// never visible through Get/Put/Search/ReadFirst/ReadNext.
	reservedSuperblockKey = "__superblock__"
)

// Superblock is the store's identity record: format version plus the node
// identity it was created on, written once at Create time.
type Superblock struct {
	Magic         string
	Version       int
	Created       int64
	OS            string
	Node          string
	Release       string
	KernelVersion string
	Machine       string
}

// Encode renders the superblock in the pipe-delimited wire form:
// MAGIC|VERSION|CREATED|OS|NODE|RELEASE|VERSION|MACHINE.
func (sb Superblock) Encode() []byte {
	fields := []string{
		sb.Magic,
		strconv.Itoa(sb.Version),
		strconv.FormatInt(sb.Created, 10),
		sb.OS,
		sb.Node,
		sb.Release,
		sb.KernelVersion,
		sb.Machine,
	}
	return []byte(strings.Join(fields, "|"))
}

// DecodeSuperblock parses the wire form written by Encode, validating magic
// and version along the way.
func DecodeSuperblock(b []byte) (Superblock, error) {
	parts := strings.Split(string(b), "|")
	if len(parts) != 8 {
		return Superblock{}, fmt.Errorf("decode superblock: %w", ErrCorrupt)
	}
	version, err := strconv.Atoi(parts[1])
	if err != nil {
		return Superblock{}, fmt.Errorf("decode superblock: %w", ErrCorrupt)
	}
	created, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return Superblock{}, fmt.Errorf("decode superblock: %w", ErrCorrupt)
	}
	sb := Superblock{
		Magic: parts[0], Version: version, Created: created,
		OS: parts[3], Node: parts[4], Release: parts[5],
		KernelVersion: parts[6], Machine: parts[7],
	}
	if sb.Magic != Magic {
		return sb, fmt.Errorf("decode superblock: %w", ErrBadMagic)
	}
	if sb.Version != Version {
		return sb, fmt.Errorf("decode superblock: %w", ErrVersionMismatch)
	}
	return sb, nil
}

// nodeIdentity reads the running kernel's uname(2) fields. Falls back to
// the Go runtime's own idea of OS/arch when uname isn't available.
func nodeIdentity() (sysname, nodename, release, version, machine string) {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return runtime.GOOS, "unknown", "", "", runtime.GOARCH
	}
	trim := func(b [65]byte) string {
		return string(bytes.TrimRight(b[:], "\x00"))
	}
	return trim(uts.Sysname), trim(uts.Nodename), trim(uts.Release), trim(uts.Version), trim(uts.Machine)
}
