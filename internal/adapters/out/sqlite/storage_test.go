package sqlite

import (
	"context"
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

func TestStorage_Conformance(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) out.ObjectStorage {
		s, err := Open(t.TempDir(), nopLogger())
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		return s
	})
}

func TestStorage_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := Open(dir, nopLogger())
	require.NoError(t, err)
	_, err = s.Put(ctx, "uploads/a/id/session", strings.NewReader(`{"length":3}`), -1)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(dir, nopLogger())
	require.NoError(t, err)
	defer s.Close()

	infos, err := s.List(ctx, "uploads/")
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "uploads/a/id/session", infos[0].Key)
}
