package registry

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/bnema/zerowrap"
	"github.com/opencontainers/go-digest"

	"github.com/bnema/hangar/internal/boundaries/out"
	"github.com/bnema/hangar/internal/domain"
	"github.com/bnema/hangar/pkg/contentdigest"
)

// BlobStore keeps immutable payloads keyed by repository and digest.
// Content is verified while it streams into storage, so a key never holds
// bytes that hash to another digest.
type BlobStore struct {
	storage out.ObjectStorage
}

// NewBlobStore creates a blob store on top of storage.
func NewBlobStore(storage out.ObjectStorage) *BlobStore {
	return &BlobStore{storage: storage}
}

// Exists reports whether the blob is stored.
func (s *BlobStore) Exists(ctx context.Context, name string, dgst digest.Digest) (bool, error) {
	_, err := s.Stat(ctx, name, dgst)
	if errors.Is(err, domain.ErrBlobNotFound) {
		return false, nil
	}
	return err == nil, err
}

// Stat returns the blob descriptor without opening its content.
func (s *BlobStore) Stat(ctx context.Context, name string, dgst digest.Digest) (domain.Blob, error) {
	info, err := s.storage.Head(ctx, blobKey(name, dgst))
	if err != nil {
		if errors.Is(err, domain.ErrObjectNotFound) {
			return domain.Blob{}, domain.ErrBlobNotFound
		}
		return domain.Blob{}, fmt.Errorf("failed to stat blob: %w", err)
	}
	return domain.Blob{Repository: name, Digest: dgst, Size: info.Size}, nil
}

// Get opens the blob content. The caller closes the reader.
func (s *BlobStore) Get(ctx context.Context, name string, dgst digest.Digest) (io.ReadCloser, domain.Blob, error) {
	rc, info, err := s.storage.Get(ctx, blobKey(name, dgst))
	if err != nil {
		if errors.Is(err, domain.ErrObjectNotFound) {
			return nil, domain.Blob{}, domain.ErrBlobNotFound
		}
		return nil, domain.Blob{}, fmt.Errorf("failed to open blob: %w", err)
	}
	return rc, domain.Blob{Repository: name, Digest: dgst, Size: info.Size}, nil
}

// Put stores r under dgst. size may be -1 when unknown. A stream that does
// not hash to dgst fails with domain.ErrDigestMismatch and stores nothing.
// When the blob already exists the stream is still verified, then dropped.
func (s *BlobStore) Put(ctx context.Context, name string, dgst digest.Digest, r io.Reader, size int64) (domain.Blob, error) {
	key := blobKey(name, dgst)
	verifier := contentdigest.NewVerifyingReader(r, dgst)

	existing, err := s.storage.Head(ctx, key)
	switch {
	case err == nil:
		if _, err := io.Copy(io.Discard, verifier); err != nil {
			return domain.Blob{}, fmt.Errorf("failed to verify blob: %w", err)
		}
		if n := verifier.BytesRead(); size >= 0 && n != size {
			return domain.Blob{}, fmt.Errorf("%w: expected %d bytes, got %d", domain.ErrSizeMismatch, size, n)
		}
		zerowrap.Ctx(ctx).Debug().
			Int64(zerowrap.FieldSize, verifier.BytesRead()).
			Msg("blob already stored, content verified and dropped")
		return domain.Blob{Repository: name, Digest: dgst, Size: existing.Size}, nil
	case !errors.Is(err, domain.ErrObjectNotFound):
		return domain.Blob{}, fmt.Errorf("failed to stat blob: %w", err)
	}

	info, err := s.storage.Put(ctx, key, verifier, size)
	if err != nil {
		return domain.Blob{}, fmt.Errorf("failed to store blob: %w", err)
	}
	zerowrap.Ctx(ctx).Debug().
		Int64(zerowrap.FieldSize, info.Size).
		Int64("bytes_read", verifier.BytesRead()).
		Msg("blob written")
	return domain.Blob{Repository: name, Digest: dgst, Size: info.Size}, nil
}

// Delete removes the blob. Deleting an absent blob succeeds.
func (s *BlobStore) Delete(ctx context.Context, name string, dgst digest.Digest) error {
	if err := s.storage.Delete(ctx, blobKey(name, dgst)); err != nil {
		return fmt.Errorf("failed to delete blob: %w", err)
	}
	return nil
}
