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

// Package iorouter is a URL-addressed registry of pluggable I/O channels:
// files, standard streams, and ring-store rings all open behind the same
// open/write/twrite/read/tread/tell/close surface. Drivers register by
// prefix; the router parses "prefix:suffix" URLs, dispatches to the
// registered driver, and owns the pending-write buffering common to every
// channel.
package iorouter

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/cloudwego/ringstore/container/strmap"
	"github.com/cloudwego/ringstore/table"
)

// ErrUnknownDriver is returned when a URL's prefix has no registered driver.
var ErrUnknownDriver = errors.New("iorouter: unknown driver")

// ErrPermissionDenied is returned when a driver's Access callback refuses a URL.
var ErrPermissionDenied = errors.New("iorouter: permission denied")

// Handle is the opaque, driver-specific state behind one open channel.
type Handle interface{}

// Driver is one pluggable backend registered with a Router under Prefix().
// The ten callbacks mirror the router's contract: lifecycle (Init/Fini),
// admission (Access), channel lifecycle (Open/Close), writing
// (Write/TWrite), positioning (Tell), and reading (Read/TRead).
type Driver interface {
	Magic() string
	Prefix() string
	Description() string

	Init() error
	Fini() error

	// Access reports whether url (the URL suffix, after "prefix:") may be
	// opened under password with the given basename hint.
	Access(url, password, basename string) bool

	// Open establishes a driver handle for url. comment and password are
	// free-form metadata; keepSlots is forwarded to ring-backed drivers as
	// the slot bound for an auto-created ring.
	Open(url, comment, password string, keepSlots int64, basename string) (Handle, error)
	Close(h Handle) error

	Write(h Handle, data []byte) (int, error)
	TWrite(h Handle, t *table.Table) error

	// Tell returns (seq, size, mtime). Drivers that don't track one of the
	// three report -1 for it: file drivers report seq=-1, ring drivers
	// report size=-1, stream drivers report both (and mtime too).
	Tell(h Handle) (seq, size, mtime int64)

	Read(h Handle, seq, offset int64) ([][]byte, error)
	TRead(h Handle, seq, offset int64) (*table.Table, error)
}

// Channel is one open handle bundle: the URL it was opened from, its
// driver, the driver's own handle, and the pending write buffer accumulated
// since the last flush.
type Channel struct {
	URL string

	driver  Driver
	handle  Handle
	pending []byte
}

// Write accumulates p in the pending buffer; it is not visible to the
// driver until Flush, Close, or TWrite.
func (c *Channel) Write(p []byte) (int, error) {
	c.pending = append(c.pending, p...)
	return len(p), nil
}

// Flush drains the pending buffer to the driver, if non-empty.
func (c *Channel) Flush() error {
	if len(c.pending) == 0 {
		return nil
	}
	_, err := c.driver.Write(c.handle, c.pending)
	c.pending = c.pending[:0]
	return err
}

// TWrite flushes any pending bytes, then hands t to the driver's table
// writer in one call.
func (c *Channel) TWrite(t *table.Table) error {
	if err := c.Flush(); err != nil {
		return err
	}
	return c.driver.TWrite(c.handle, t)
}

// Tell reports the channel's current (seq, size, mtime), per Driver.Tell.
func (c *Channel) Tell() (seq, size, mtime int64) { return c.driver.Tell(c.handle) }

// Read returns the buffers the driver has at seq/offset.
func (c *Channel) Read(seq, offset int64) ([][]byte, error) {
	return c.driver.Read(c.handle, seq, offset)
}

// TRead returns the table the driver has at seq/offset.
func (c *Channel) TRead(seq, offset int64) (*table.Table, error) {
	return c.driver.TRead(c.handle, seq, offset)
}

// WriteDirect calls straight through to the driver, bypassing the pending
// buffer entirely. eventlog's SafePrintf uses this: a panic-recovery path
// cannot assume it is safe to grow or later flush a shared pending slice.
func (c *Channel) WriteDirect(data []byte) (int, error) {
	return c.driver.Write(c.handle, data)
}

// Close flushes any pending bytes (discarding them with the returned error
// if the flush itself fails) and closes the driver handle.
func (c *Channel) Close() error {
	ferr := c.Flush()
	cerr := c.driver.Close(c.handle)
	if ferr != nil {
		return ferr
	}
	return cerr
}

// Router parses "prefix:suffix" URLs and dispatches to registered Drivers.
// The registration map is rebuilt into a read-mostly strmap snapshot after
// every Register call, matching how ringstore.Store keeps a fast snapshot
// of its headers table: registration is rare, lookups are not.
type Router struct {
	mu       sync.Mutex
	byPrefix map[string]Driver
	snapshot *strmap.StrMap[Driver]

	// VarDir backs the %v template token (the iiab "var directory").
	VarDir string
}

// NewRouter returns an empty Router.
func NewRouter() *Router {
	r := &Router{byPrefix: make(map[string]Driver)}
	r.rebuild()
	return r
}

// Register initializes d and adds it to the router under d.Prefix().
func (r *Router) Register(d Driver) error {
	if err := d.Init(); err != nil {
		return fmt.Errorf("iorouter: register %s: %w", d.Prefix(), err)
	}
	r.mu.Lock()
	r.byPrefix[d.Prefix()] = d
	r.rebuild()
	r.mu.Unlock()
	return nil
}

// Fini calls Fini on every registered driver, collecting the first error.
func (r *Router) Fini() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var first error
	for _, d := range r.byPrefix {
		if err := d.Fini(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (r *Router) rebuild() {
	if len(r.byPrefix) == 0 {
		r.snapshot = strmap.New[Driver]()
		return
	}
	r.snapshot = strmap.NewFromMap(r.byPrefix)
}

func (r *Router) driverFor(prefix string) (Driver, bool) {
	r.mu.Lock()
	snap := r.snapshot
	r.mu.Unlock()
	return snap.Get(prefix)
}

// splitURL splits "prefix:suffix" into its two parts.
func splitURL(url string) (prefix, suffix string, err error) {
	i := strings.IndexByte(url, ':')
	if i < 0 {
		return "", "", fmt.Errorf("iorouter: malformed url %q: %w", url, ErrUnknownDriver)
	}
	return url[:i], url[i+1:], nil
}

// Open parses url, looks up its driver by prefix, and opens a Channel on it.
func (r *Router) Open(url, comment, password string, keepSlots int64) (*Channel, error) {
	prefix, suffix, err := splitURL(url)
	if err != nil {
		return nil, err
	}
	drv, ok := r.driverFor(prefix)
	if !ok {
		return nil, fmt.Errorf("iorouter: open %s: %w", url, ErrUnknownDriver)
	}
	basename := suffix
	if !drv.Access(suffix, password, basename) {
		return nil, fmt.Errorf("iorouter: open %s: %w", url, ErrPermissionDenied)
	}
	h, err := drv.Open(suffix, comment, password, keepSlots, basename)
	if err != nil {
		return nil, err
	}
	return &Channel{URL: url, driver: drv, handle: h}, nil
}

// OpenT expands template's %-tokens against jobname and duration, then
// opens the resulting URL:
//
//	%j  jobname             %h  hostname
//	%m  domain (hostname's   %f  fqdn (hostname, unabbreviated)
//	    leading label)
//	%d  duration, seconds    %v  r.VarDir
func (r *Router) OpenT(template, comment, password string, keepSlots int64, jobname string, duration int64) (*Channel, error) {
	return r.Open(r.expand(template, jobname, duration), comment, password, keepSlots)
}

func (r *Router) expand(template, jobname string, duration int64) string {
	host, _ := os.Hostname()
	domain := host
	if i := strings.IndexByte(host, '.'); i >= 0 {
		domain = host[:i]
	}
	rep := strings.NewReplacer(
		"%j", jobname,
		"%h", host,
		"%m", domain,
		"%f", host,
		"%d", strconv.FormatInt(duration, 10),
		"%v", r.VarDir,
	)
	return rep.Replace(template)
}
