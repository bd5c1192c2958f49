package in

import (
	"context"
	"io"

	"github.com/opencontainers/go-digest"

	"github.com/bnema/hangar/internal/domain"
)

// BlobService defines the contract for blob reads and deletes.
type BlobService interface {
	StatBlob(ctx context.Context, name string, dgst digest.Digest) (domain.Blob, error)
	GetBlob(ctx context.Context, name string, dgst digest.Digest) (io.ReadCloser, domain.Blob, error)
	DeleteBlob(ctx context.Context, name string, dgst digest.Digest) error
}

// UploadService defines the contract for resumable blob uploads.
type UploadService interface {
	StartUpload(ctx context.Context, name string) (domain.Upload, error)
	UploadStatus(ctx context.Context, name, id string) (domain.Upload, error)
	// AppendUpload appends r to the session. rng is nil when the client sent no Content-Range.
	AppendUpload(ctx context.Context, name, id string, r io.Reader, rng *domain.ByteRange) (domain.Upload, error)
	// CompleteUpload appends the optional final chunk r and commits the session as a blob.
	CompleteUpload(ctx context.Context, name, id string, dgst digest.Digest, r io.Reader, rng *domain.ByteRange) (domain.Blob, error)
	CancelUpload(ctx context.Context, name, id string) error
	// PutBlob stores a blob in a single request.
	PutBlob(ctx context.Context, name string, dgst digest.Digest, r io.Reader, size int64) (domain.Blob, error)
}

// ManifestService defines the contract for manifest and tag operations.
type ManifestService interface {
	GetManifest(ctx context.Context, name, reference string) (domain.Manifest, error)
	PutManifest(ctx context.Context, name, reference string, data []byte, contentType string) (digest.Digest, error)
	DeleteManifest(ctx context.Context, name, reference string) error
	ListTags(ctx context.Context, name string) ([]string, error)
}

// CatalogService defines the contract for repository listings.
type CatalogService interface {
	ListRepositories(ctx context.Context, subject domain.Subject) ([]string, error)
	ListVisibleRepositories(ctx context.Context, subject domain.Subject) ([]domain.Repository, error)
	DeleteRepositories(ctx context.Context, names []string) ([]string, error)
}

// RegistryService is the full registry protocol surface.
type RegistryService interface {
	BlobService
	UploadService
	ManifestService
	CatalogService
}
