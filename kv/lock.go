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
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

const (
	lockRetries = 200
	lockBackoff = 5 * time.Millisecond
)

// acquireLock takes an advisory, non-blocking flock on f: shared for
// ModeRead, exclusive for ModeWrite. It retries a bounded number of times
// on contention before surfacing ErrLockUnavailable.
func acquireLock(f *os.File, mode Mode) error {
	op := unix.LOCK_SH
	if mode == ModeWrite {
		op = unix.LOCK_EX
	}
	fd := int(f.Fd())
	for i := 0; i < lockRetries; i++ {
		err := unix.Flock(fd, op|unix.LOCK_NB)
		if err == nil {
			return nil
		}
		if err != unix.EWOULDBLOCK && err != unix.EAGAIN {
			return fmt.Errorf("lock: %w", err)
		}
		time.Sleep(lockBackoff)
	}
	return fmt.Errorf("lock: %w", ErrLockUnavailable)
}

func releaseLock(f *os.File) error {
	if err := unix.Flock(int(f.Fd()), unix.LOCK_UN); err != nil {
		return fmt.Errorf("unlock: %w", err)
	}
	return nil
}
