package filesystem

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bnema/zerowrap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/hangar/internal/adapters/out/storagetest"
	"github.com/bnema/hangar/internal/boundaries/out"
)

func nopLogger() zerowrap.Logger {
	return zerowrap.New(zerowrap.Config{Level: "disabled"})
}

func testLogger() zerowrap.Logger {
	return nopLogger()
}

func TestStorage_Conformance(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) out.ObjectStorage {
		s, err := NewStorage(t.TempDir(), testLogger())
		require.NoError(t, err)
		return s
	})
}

func TestNewStorage_CreatesRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "nested", "data")

	_, err := NewStorage(root, testLogger())
	require.NoError(t, err)
	assert.DirExists(t, root)
}

func TestStorage_RejectsUnsafeKeys(t *testing.T) {
	s, err := NewStorage(t.TempDir(), testLogger())
	require.NoError(t, err)

	ctx := context.Background()
	for _, key := range []string{"", "../escape", "a/../../b", "/abs", "a//b", "a/.tmp-x"} {
		_, err := s.Put(ctx, key, strings.NewReader("x"), 1)
		assert.Error(t, err, key)
	}
}

func TestStorage_ListRejectsUnsafePrefixes(t *testing.T) {
	s, err := NewStorage(t.TempDir(), testLogger())
	require.NoError(t, err)

	ctx := context.Background()
	for _, prefix := range []string{"../", "../repositories/", "a/../../b/", "/abs/dir/"} {
		_, err := s.List(ctx, prefix)
		assert.Error(t, err, prefix)
	}

	infos, err := s.List(ctx, "repositories/app/")
	require.NoError(t, err)
	assert.Empty(t, infos)
}

func TestStorage_DeletePrunesEmptyDirectories(t *testing.T) {
	root := t.TempDir()
	s, err := NewStorage(root, testLogger())
	require.NoError(t, err)

	ctx := context.Background()
	_, err = s.Put(ctx, "uploads/repo/id/parts/000001", strings.NewReader("x"), 1)
	require.NoError(t, err)
	_, err = s.Put(ctx, "uploads/other/id/session", strings.NewReader("{}"), 2)
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, "uploads/repo/id/parts/000001"))

	assert.NoDirExists(t, filepath.Join(root, "uploads", "repo"))
	assert.DirExists(t, filepath.Join(root, "uploads", "other", "id"))
	assert.DirExists(t, root)
}

func TestStorage_ListSkipsTemporaryFiles(t *testing.T) {
	root := t.TempDir()
	s, err := NewStorage(root, testLogger())
	require.NoError(t, err)

	ctx := context.Background()
	_, err = s.Put(ctx, "repositories/a/_blobs/x", strings.NewReader("x"), 1)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(root, "repositories", "a", "_blobs", tmpPrefix+"123"), []byte("partial"), 0600))

	infos, err := s.List(ctx, "repositories/")
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "repositories/a/_blobs/x", infos[0].Key)
}
