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
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudwego/ringstore/kv"
)

func mustStore(t *testing.T) *kv.Store {
	t.Helper()
	s, err := kv.Create(filepath.Join(t.TempDir(), "store.hol"), 0o644)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCreateRejectsExisting(t *testing.T) {
	s := mustStore(t)
	_, err := Create(s, "cpu", "cpu load", "", 3)
	require.NoError(t, err)

	_, err = Create(s, "cpu", "", "", 3)
	assert.ErrorIs(t, err, kv.ErrAlreadyExists)
}

func TestOpenMissingFails(t *testing.T) {
	s := mustStore(t)
	_, err := Open(s, "missing", "")
	assert.ErrorIs(t, err, kv.ErrNotFound)
}

func TestOpenWrongPasswordDenied(t *testing.T) {
	s := mustStore(t)
	_, err := Create(s, "secret", "", "hunter2", 0)
	require.NoError(t, err)

	_, err = Open(s, "secret", "wrong")
	assert.ErrorIs(t, err, ErrPermissionDenied)

	r, err := Open(s, "secret", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, "secret", r.Name())
}

func TestPutGetRoundTrip(t *testing.T) {
	s := mustStore(t)
	r, err := Create(s, "cpu", "", "", 0)
	require.NoError(t, err)

	seq, err := r.Put([]byte("42"), 100)
	require.NoError(t, err)
	assert.Equal(t, int64(1), seq)

	sample, ok, err := r.Get(true)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(1), sample.Seq)
	assert.Equal(t, int64(100), sample.Time)
	assert.Equal(t, "42", string(sample.Blob))

	_, ok, err = r.Get(true)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPutEvictsOldestWhenFull(t *testing.T) {
	s := mustStore(t)
	r, err := Create(s, "cpu", "", "", 3)
	require.NoError(t, err)

	for i := int64(1); i <= 5; i++ {
		_, err := r.Put([]byte{byte(i)}, i*10)
		require.NoError(t, err)
	}

	st, err := r.Stat()
	require.NoError(t, err)
	assert.Equal(t, int64(3), st.Oldest)
	assert.Equal(t, int64(5), st.Youngest)

	require.NoError(t, r.GotoOldest())
	sample, ok, err := r.Get(true)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(3), sample.Seq)
}

func TestUnboundedRingNeverEvicts(t *testing.T) {
	s := mustStore(t)
	r, err := Create(s, "cpu", "", "", 0)
	require.NoError(t, err)

	for i := 0; i < 50; i++ {
		_, err := r.Put([]byte("x"), int64(i))
		require.NoError(t, err)
	}
	st, err := r.Stat()
	require.NoError(t, err)
	assert.Equal(t, int64(1), st.Oldest)
	assert.Equal(t, int64(50), st.Youngest)
}

func TestCursorMovementBounds(t *testing.T) {
	s := mustStore(t)
	r, err := Create(s, "cpu", "", "", 0)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err := r.Put([]byte("x"), int64(i))
		require.NoError(t, err)
	}

	err = r.Goto(0)
	assert.ErrorIs(t, err, ErrCursorOutOfRange)
	err = r.Goto(5)
	assert.ErrorIs(t, err, ErrCursorOutOfRange)

	require.NoError(t, r.GotoYoungest())
	assert.Equal(t, int64(3), r.Cursor())
	require.NoError(t, r.Forward(1))
	assert.Equal(t, int64(4), r.Cursor())
	require.NoError(t, r.Rewind(3))
	assert.Equal(t, int64(1), r.Cursor()) // Oldest
}

func TestMGetNAdvancesCursor(t *testing.T) {
	s := mustStore(t)
	r, err := Create(s, "cpu", "", "", 0)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		_, err := r.Put([]byte{byte(i)}, int64(i))
		require.NoError(t, err)
	}

	samples, err := r.MGetN(3)
	require.NoError(t, err)
	require.Len(t, samples, 3)
	assert.Equal(t, int64(1), samples[0].Seq)
	assert.Equal(t, int64(3), samples[2].Seq)
	assert.Equal(t, int64(4), r.Cursor())

	samples, err = r.MGetN(10)
	require.NoError(t, err)
	assert.Len(t, samples, 2)
}

func TestResizeShrinksAndEvicts(t *testing.T) {
	s := mustStore(t)
	r, err := Create(s, "cpu", "", "", 0)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		_, err := r.Put([]byte{byte(i)}, int64(i))
		require.NoError(t, err)
	}

	require.NoError(t, r.Resize(2))
	st, err := r.Stat()
	require.NoError(t, err)
	assert.Equal(t, int64(4), st.Oldest)
	assert.Equal(t, int64(5), st.Youngest)
}

func TestPurgeAdjustsOldest(t *testing.T) {
	s := mustStore(t)
	r, err := Create(s, "cpu", "", "", 0)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		_, err := r.Put([]byte{byte(i)}, int64(i))
		require.NoError(t, err)
	}

	require.NoError(t, r.Purge(3))
	st, err := r.Stat()
	require.NoError(t, err)
	assert.Equal(t, int64(3), st.Oldest)

	_, ok, err := s.Get(sampleKey("cpu", 1))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDestroyRemovesMetaAndSamples(t *testing.T) {
	s := mustStore(t)
	r, err := Create(s, "cpu", "", "", 0)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err := r.Put([]byte{byte(i)}, int64(i))
		require.NoError(t, err)
	}

	require.NoError(t, r.Destroy())

	_, ok, err := s.Get(metaKey("cpu"))
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = s.Get(sampleKey("cpu", 1))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReopenPreservesState(t *testing.T) {
	s := mustStore(t)
	r, err := Create(s, "cpu", "desc", "", 10)
	require.NoError(t, err)
	_, err = r.Put([]byte("a"), 1)
	require.NoError(t, err)
	_, err = r.Put([]byte("b"), 2)
	require.NoError(t, err)

	reopened, err := Open(s, "cpu", "")
	require.NoError(t, err)
	sample, ok, err := reopened.Get(true)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(1), sample.Seq)
}
