package registry

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/hangar/internal/adapters/out/memory"
	"github.com/bnema/hangar/internal/boundaries/out"
	"github.com/bnema/hangar/internal/domain"
	"github.com/bnema/hangar/pkg/contentdigest"
)

func bytesReader(s string) io.Reader {
	return bytes.NewReader([]byte(s))
}

// prefixPolicy shows repositories starting with one of its prefixes.
type prefixPolicy []string

func (p prefixPolicy) Visible(_ domain.Subject, repository string) bool {
	for _, prefix := range p {
		if strings.HasPrefix(repository, prefix) {
			return true
		}
	}
	return false
}

func seedCatalog(t *testing.T) *memory.Storage {
	t.Helper()
	ctx := testContext()
	storage := memory.NewStorage()
	manifests := NewManifestStore(storage)
	blobs := NewBlobStore(storage)

	_, err := manifests.Put(ctx, "library/alpine", "3.20", manifestV1, "")
	require.NoError(t, err)
	_, err = manifests.Put(ctx, "library/alpine", "latest", manifestV1, "")
	require.NoError(t, err)
	_, err = manifests.Put(ctx, "library/alpine/edge", "latest", manifestV2, "")
	require.NoError(t, err)
	_, err = blobs.Put(ctx, "team/tool", contentdigest.FromBytes([]byte("t")), bytesReader("t"), 1)
	require.NoError(t, err)

	return storage
}

func TestCatalog_Repositories(t *testing.T) {
	storage := seedCatalog(t)
	catalog := NewCatalog(storage, NewManifestStore(storage), nil)

	names, err := catalog.Repositories(testContext())
	require.NoError(t, err)
	assert.Equal(t, []string{"library/alpine", "library/alpine/edge", "team/tool"}, names)
}

func TestCatalog_VisibleNames(t *testing.T) {
	storage := seedCatalog(t)

	tests := []struct {
		name   string
		policy out.VisibilityPolicy
		want   []string
	}{
		{name: "no policy", want: []string{"library/alpine", "library/alpine/edge", "team/tool"}},
		{name: "prefix policy", policy: prefixPolicy{"team/"}, want: []string{"team/tool"}},
		{name: "nothing visible", policy: prefixPolicy{}, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			catalog := NewCatalog(storage, NewManifestStore(storage), tt.policy)
			names, err := catalog.VisibleNames(testContext(), domain.Subject{Name: "ci"})
			require.NoError(t, err)
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestCatalog_Visible(t *testing.T) {
	storage := seedCatalog(t)
	catalog := NewCatalog(storage, NewManifestStore(storage), prefixPolicy{"library/"})

	repos, err := catalog.Visible(testContext(), domain.Subject{})
	require.NoError(t, err)
	want := []domain.Repository{
		{Name: "library/alpine", Tags: []string{"3.20", "latest"}},
		{Name: "library/alpine/edge", Tags: []string{"latest"}},
	}
	if diff := cmp.Diff(want, repos); diff != "" {
		t.Errorf("visible repositories mismatch (-want +got):\n%s", diff)
	}
}

func TestCatalog_DeleteKeepsNestedRepositories(t *testing.T) {
	ctx := testContext()
	storage := seedCatalog(t)
	uploads, _ := newTestUploads(storage)
	catalog := NewCatalog(storage, NewManifestStore(storage), nil)

	u, err := uploads.Initiate(ctx, "library/alpine")
	require.NoError(t, err)
	nested, err := uploads.Initiate(ctx, "library/alpine/edge")
	require.NoError(t, err)

	deleted, err := catalog.Delete(ctx, []string{"library/alpine", "missing", "library/alpine"})
	require.NoError(t, err)
	assert.Equal(t, []string{"library/alpine"}, deleted)

	names, err := catalog.Repositories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"library/alpine/edge", "team/tool"}, names)

	_, err = uploads.Status(ctx, "library/alpine", u.ID)
	assert.ErrorIs(t, err, domain.ErrUploadNotFound)
	_, err = uploads.Status(ctx, "library/alpine/edge", nested.ID)
	assert.NoError(t, err)
}
