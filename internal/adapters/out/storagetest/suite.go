// Package storagetest is the conformance suite every out.ObjectStorage
// backend must pass.
package storagetest

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/hangar/internal/boundaries/out"
	"github.com/bnema/hangar/internal/domain"
)

// Factory returns an empty storage. Cleanup is registered on t.
type Factory func(t *testing.T) out.ObjectStorage

// Run executes the suite against storages built by newStorage.
func Run(t *testing.T, newStorage Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s out.ObjectStorage)
	}{
		{"PutGet", testPutGet},
		{"PutUnknownSize", testPutUnknownSize},
		{"PutEmpty", testPutEmpty},
		{"PutOverwrite", testPutOverwrite},
		{"PutSizeMismatch", testPutSizeMismatch},
		{"PutReaderErrorKeepsPrevious", testPutReaderErrorKeepsPrevious},
		{"GetMissing", testGetMissing},
		{"DeleteIdempotent", testDeleteIdempotent},
		{"ListPrefix", testListPrefix},
		{"ConcurrentPutSameKey", testConcurrentPutSameKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, newStorage(t))
		})
	}
}

func put(t *testing.T, s out.ObjectStorage, key, content string) {
	t.Helper()
	_, err := s.Put(context.Background(), key, strings.NewReader(content), int64(len(content)))
	require.NoError(t, err)
}

func read(t *testing.T, s out.ObjectStorage, key string) string {
	t.Helper()
	rc, info, err := s.Get(context.Background(), key)
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), info.Size)
	return string(data)
}

func testPutGet(t *testing.T, s out.ObjectStorage) {
	ctx := context.Background()

	info, err := s.Put(ctx, "repositories/a/_blobs/one", strings.NewReader("payload"), 7)
	require.NoError(t, err)
	assert.Equal(t, "repositories/a/_blobs/one", info.Key)
	assert.Equal(t, int64(7), info.Size)

	assert.Equal(t, "payload", read(t, s, "repositories/a/_blobs/one"))

	head, err := s.Head(ctx, "repositories/a/_blobs/one")
	require.NoError(t, err)
	assert.Equal(t, int64(7), head.Size)
	assert.Equal(t, "repositories/a/_blobs/one", head.Key)
	assert.False(t, head.ModTime.IsZero())
}

func testPutUnknownSize(t *testing.T, s out.ObjectStorage) {
	_, err := s.Put(context.Background(), "k", iotest.OneByteReader(strings.NewReader("streamed")), -1)
	require.NoError(t, err)
	assert.Equal(t, "streamed", read(t, s, "k"))
}

func testPutEmpty(t *testing.T, s out.ObjectStorage) {
	put(t, s, "empty", "")
	assert.Equal(t, "", read(t, s, "empty"))
}

func testPutOverwrite(t *testing.T, s out.ObjectStorage) {
	put(t, s, "tags/latest", "first")
	put(t, s, "tags/latest", "second")
	assert.Equal(t, "second", read(t, s, "tags/latest"))
}

func testPutSizeMismatch(t *testing.T, s out.ObjectStorage) {
	ctx := context.Background()

	_, err := s.Put(ctx, "short", strings.NewReader("abc"), 4)
	assert.ErrorIs(t, err, domain.ErrSizeMismatch)

	_, err = s.Put(ctx, "long", strings.NewReader("abcde"), 4)
	assert.ErrorIs(t, err, domain.ErrSizeMismatch)

	for _, key := range []string{"short", "long"} {
		_, err := s.Head(ctx, key)
		assert.ErrorIs(t, err, domain.ErrObjectNotFound, key)
	}
}

func testPutReaderErrorKeepsPrevious(t *testing.T, s out.ObjectStorage) {
	ctx := context.Background()
	put(t, s, "obj", "original")

	boom := errors.New("connection reset")
	r := io.MultiReader(strings.NewReader("partial"), iotest.ErrReader(boom))
	_, err := s.Put(ctx, "obj", r, -1)
	require.ErrorIs(t, err, boom)

	assert.Equal(t, "original", read(t, s, "obj"))

	_, err = s.Put(ctx, "fresh", io.MultiReader(strings.NewReader("x"), iotest.ErrReader(boom)), -1)
	require.ErrorIs(t, err, boom)
	_, err = s.Head(ctx, "fresh")
	assert.ErrorIs(t, err, domain.ErrObjectNotFound)
}

func testGetMissing(t *testing.T, s out.ObjectStorage) {
	ctx := context.Background()

	_, _, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrObjectNotFound)

	_, err = s.Head(ctx, "missing/nested")
	assert.ErrorIs(t, err, domain.ErrObjectNotFound)
}

func testDeleteIdempotent(t *testing.T, s out.ObjectStorage) {
	ctx := context.Background()
	put(t, s, "dir/obj", "data")

	require.NoError(t, s.Delete(ctx, "dir/obj"))
	require.NoError(t, s.Delete(ctx, "dir/obj"))
	require.NoError(t, s.Delete(ctx, "never/existed"))

	_, err := s.Head(ctx, "dir/obj")
	assert.ErrorIs(t, err, domain.ErrObjectNotFound)
}

func testListPrefix(t *testing.T, s out.ObjectStorage) {
	ctx := context.Background()
	put(t, s, "repositories/b/_manifests/tags/v1", "1")
	put(t, s, "repositories/a/_blobs/x", "xx")
	put(t, s, "repositories/a/_blobs/y", "yyy")
	put(t, s, "repositories/ab/_blobs/z", "z")
	put(t, s, "uploads/a/id/session", "{}")

	infos, err := s.List(ctx, "repositories/a/")
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "repositories/a/_blobs/x", infos[0].Key)
	assert.Equal(t, int64(2), infos[0].Size)
	assert.Equal(t, "repositories/a/_blobs/y", infos[1].Key)

	infos, err = s.List(ctx, "repositories/")
	require.NoError(t, err)
	keys := make([]string, 0, len(infos))
	for _, info := range infos {
		keys = append(keys, info.Key)
	}
	assert.Equal(t, []string{
		"repositories/a/_blobs/x",
		"repositories/a/_blobs/y",
		"repositories/ab/_blobs/z",
		"repositories/b/_manifests/tags/v1",
	}, keys)

	infos, err = s.List(ctx, "nothing/here/")
	require.NoError(t, err)
	assert.Empty(t, infos)
}

func testConcurrentPutSameKey(t *testing.T, s out.ObjectStorage) {
	ctx := context.Background()
	content := bytes.Repeat([]byte("layer"), 4096)

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.Put(ctx, "shared", bytes.NewReader(content), int64(len(content)))
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, string(content), read(t, s, "shared"))
}
