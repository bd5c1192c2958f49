// Package registry implements the registry protocol use cases on top of an
// object storage.
package registry

import (
	"context"
	"io"
	"time"

	"github.com/bnema/zerowrap"
	"github.com/opencontainers/go-digest"

	"github.com/bnema/hangar/internal/boundaries/in"
	"github.com/bnema/hangar/internal/boundaries/out"
	"github.com/bnema/hangar/internal/domain"
	"github.com/bnema/hangar/internal/logging"
	"github.com/bnema/hangar/pkg/manifest"
)

// Ensure Service implements in.RegistryService.
var _ in.RegistryService = (*Service)(nil)

// Service implements the RegistryService interface.
type Service struct {
	blobs     *BlobStore
	uploads   *UploadManager
	manifests *ManifestStore
	catalog   *Catalog
	metrics   out.RegistryMetrics
}

// NewService creates a new registry service. visibility and metrics may be nil.
func NewService(storage out.ObjectStorage, visibility out.VisibilityPolicy, metrics out.RegistryMetrics) *Service {
	if metrics == nil {
		metrics = noopMetrics{}
	}

	blobs := NewBlobStore(storage)
	manifests := NewManifestStore(storage)

	return &Service{
		blobs:     blobs,
		uploads:   NewUploadManager(storage, blobs),
		manifests: manifests,
		catalog:   NewCatalog(storage, manifests, visibility),
		metrics:   metrics,
	}
}

func usecaseCtx(ctx context.Context, usecase string, fields map[string]any) context.Context {
	if fields == nil {
		fields = make(map[string]any, 2)
	}
	fields[zerowrap.FieldLayer] = "usecase"
	fields[zerowrap.FieldUseCase] = usecase
	return zerowrap.CtxWithFields(ctx, fields)
}

// StatBlob returns the blob descriptor.
func (s *Service) StatBlob(ctx context.Context, name string, dgst digest.Digest) (domain.Blob, error) {
	ctx = usecaseCtx(ctx, "StatBlob", map[string]any{
		logging.FieldRepository: name,
		logging.FieldDigest:     dgst.String(),
	})

	blob, err := s.blobs.Stat(ctx, name, dgst)
	if err != nil {
		return domain.Blob{}, wrapErr(ctx, err, "failed to stat blob")
	}
	return blob, nil
}

// GetBlob opens the blob content.
func (s *Service) GetBlob(ctx context.Context, name string, dgst digest.Digest) (io.ReadCloser, domain.Blob, error) {
	ctx = usecaseCtx(ctx, "GetBlob", map[string]any{
		logging.FieldRepository: name,
		logging.FieldDigest:     dgst.String(),
	})

	rc, blob, err := s.blobs.Get(ctx, name, dgst)
	if err != nil {
		return nil, domain.Blob{}, wrapErr(ctx, err, "failed to get blob")
	}
	return rc, blob, nil
}

// DeleteBlob removes the blob. Deleting an absent blob succeeds.
func (s *Service) DeleteBlob(ctx context.Context, name string, dgst digest.Digest) error {
	ctx = usecaseCtx(ctx, "DeleteBlob", map[string]any{
		logging.FieldRepository: name,
		logging.FieldDigest:     dgst.String(),
	})
	log := zerowrap.FromCtx(ctx)

	if err := s.blobs.Delete(ctx, name, dgst); err != nil {
		return wrapErr(ctx, err, "failed to delete blob")
	}

	log.Info().Msg("blob deleted")
	return nil
}

// PutBlob stores a blob pushed in a single request.
func (s *Service) PutBlob(ctx context.Context, name string, dgst digest.Digest, r io.Reader, size int64) (domain.Blob, error) {
	ctx = usecaseCtx(ctx, "PutBlob", map[string]any{
		logging.FieldRepository: name,
		logging.FieldDigest:     dgst.String(),
		zerowrap.FieldSize:      size,
	})
	log := zerowrap.FromCtx(ctx)

	blob, err := s.blobs.Put(ctx, name, dgst, r, size)
	if err != nil {
		s.metrics.UploadFinished(out.UploadFailed)
		return domain.Blob{}, wrapErr(ctx, err, "failed to store blob")
	}

	s.metrics.UploadFinished(out.UploadCommitted)
	s.metrics.BlobCommitted(name, blob.Size)
	log.Info().Int64(zerowrap.FieldSize, blob.Size).Msg("blob stored")
	return blob, nil
}

// StartUpload opens an upload session.
func (s *Service) StartUpload(ctx context.Context, name string) (domain.Upload, error) {
	ctx = usecaseCtx(ctx, "StartUpload", map[string]any{
		logging.FieldRepository: name,
	})
	log := zerowrap.FromCtx(ctx)

	u, err := s.uploads.Initiate(ctx, name)
	if err != nil {
		return domain.Upload{}, wrapErr(ctx, err, "failed to start upload")
	}

	log.Debug().Str(logging.FieldUploadID, u.ID).Msg("upload started")
	return u, nil
}

// UploadStatus returns the session state.
func (s *Service) UploadStatus(ctx context.Context, name, id string) (domain.Upload, error) {
	ctx = usecaseCtx(ctx, "UploadStatus", map[string]any{
		logging.FieldRepository: name,
		logging.FieldUploadID:   id,
	})

	u, err := s.uploads.Status(ctx, name, id)
	if err != nil {
		return domain.Upload{}, wrapErr(ctx, err, "failed to get upload status")
	}
	return u, nil
}

// AppendUpload appends a chunk to the session.
func (s *Service) AppendUpload(ctx context.Context, name, id string, r io.Reader, rng *domain.ByteRange) (domain.Upload, error) {
	ctx = usecaseCtx(ctx, "AppendUpload", map[string]any{
		logging.FieldRepository: name,
		logging.FieldUploadID:   id,
	})
	log := zerowrap.FromCtx(ctx)

	u, err := s.uploads.Append(ctx, name, id, r, rng)
	if err != nil {
		return domain.Upload{}, wrapErr(ctx, err, "failed to append upload chunk")
	}

	log.Debug().Int64(zerowrap.FieldSize, u.Length).Msg("upload chunk appended")
	return u, nil
}

// CompleteUpload commits the session as a blob.
func (s *Service) CompleteUpload(ctx context.Context, name, id string, dgst digest.Digest, r io.Reader, rng *domain.ByteRange) (domain.Blob, error) {
	ctx = usecaseCtx(ctx, "CompleteUpload", map[string]any{
		logging.FieldRepository: name,
		logging.FieldUploadID:   id,
		logging.FieldDigest:     dgst.String(),
	})
	log := zerowrap.FromCtx(ctx)

	blob, err := s.uploads.Complete(ctx, name, id, dgst, r, rng)
	if err != nil {
		s.metrics.UploadFinished(out.UploadFailed)
		return domain.Blob{}, wrapErr(ctx, err, "failed to complete upload")
	}

	s.metrics.UploadFinished(out.UploadCommitted)
	s.metrics.BlobCommitted(name, blob.Size)
	log.Info().Int64(zerowrap.FieldSize, blob.Size).Msg("blob stored")
	return blob, nil
}

// CancelUpload discards the session.
func (s *Service) CancelUpload(ctx context.Context, name, id string) error {
	ctx = usecaseCtx(ctx, "CancelUpload", map[string]any{
		logging.FieldRepository: name,
		logging.FieldUploadID:   id,
	})
	log := zerowrap.FromCtx(ctx)

	if _, err := s.uploads.Status(ctx, name, id); err != nil {
		return wrapErr(ctx, err, "failed to cancel upload")
	}
	if err := s.uploads.Abandon(ctx, name, id); err != nil {
		return wrapErr(ctx, err, "failed to cancel upload")
	}

	s.metrics.UploadFinished(out.UploadAbandoned)
	log.Debug().Msg("upload cancelled")
	return nil
}

// GetManifest retrieves a manifest by name and reference.
func (s *Service) GetManifest(ctx context.Context, name, reference string) (domain.Manifest, error) {
	ctx = usecaseCtx(ctx, "GetManifest", map[string]any{
		logging.FieldRepository: name,
		logging.FieldReference:  reference,
	})

	m, err := s.manifests.Get(ctx, name, reference)
	if err != nil {
		return domain.Manifest{}, wrapErr(ctx, err, "failed to get manifest")
	}
	return m, nil
}

// PutManifest stores a manifest and returns its digest.
func (s *Service) PutManifest(ctx context.Context, name, reference string, data []byte, contentType string) (digest.Digest, error) {
	ctx = usecaseCtx(ctx, "PutManifest", map[string]any{
		logging.FieldRepository: name,
		logging.FieldReference:  reference,
	})
	log := zerowrap.FromCtx(ctx)

	dgst, err := s.manifests.Put(ctx, name, reference, data, contentType)
	if err != nil {
		return "", wrapErr(ctx, err, "failed to store manifest")
	}

	h, _ := manifest.Inspect(data)
	mediaType := manifest.ResolveMediaType(contentType, h)
	s.metrics.ManifestPushed(name, mediaType)

	log.Info().
		Str(logging.FieldDigest, dgst.String()).
		Str(logging.FieldMediaType, mediaType).
		Bool("index", manifest.IsIndex(mediaType)).
		Msg("manifest stored")
	return dgst, nil
}

// DeleteManifest removes a manifest or tag.
func (s *Service) DeleteManifest(ctx context.Context, name, reference string) error {
	ctx = usecaseCtx(ctx, "DeleteManifest", map[string]any{
		logging.FieldRepository: name,
		logging.FieldReference:  reference,
	})
	log := zerowrap.FromCtx(ctx)

	if err := s.manifests.Delete(ctx, name, reference); err != nil {
		return wrapErr(ctx, err, "failed to delete manifest")
	}

	log.Info().Msg("manifest deleted")
	return nil
}

// ListTags returns all tags for a repository.
func (s *Service) ListTags(ctx context.Context, name string) ([]string, error) {
	ctx = usecaseCtx(ctx, "ListTags", map[string]any{
		logging.FieldRepository: name,
	})

	tags, err := s.manifests.Tags(ctx, name)
	if err != nil {
		return nil, wrapErr(ctx, err, "failed to list tags")
	}
	return tags, nil
}

// ListRepositories returns the names of the repositories subject may see.
func (s *Service) ListRepositories(ctx context.Context, subject domain.Subject) ([]string, error) {
	ctx = usecaseCtx(ctx, "ListRepositories", map[string]any{
		logging.FieldSubject: subject.Name,
	})

	names, err := s.catalog.VisibleNames(ctx, subject)
	if err != nil {
		return nil, wrapErr(ctx, err, "failed to list repositories")
	}
	return names, nil
}

// ListVisibleRepositories returns the repositories subject may see.
func (s *Service) ListVisibleRepositories(ctx context.Context, subject domain.Subject) ([]domain.Repository, error) {
	ctx = usecaseCtx(ctx, "ListVisibleRepositories", map[string]any{
		logging.FieldSubject: subject.Name,
	})

	repos, err := s.catalog.Visible(ctx, subject)
	if err != nil {
		return nil, wrapErr(ctx, err, "failed to list repositories")
	}
	return repos, nil
}

// DeleteRepositories removes whole repositories and returns the ones that existed.
func (s *Service) DeleteRepositories(ctx context.Context, names []string) ([]string, error) {
	ctx = usecaseCtx(ctx, "DeleteRepositories", map[string]any{
		zerowrap.FieldCount: len(names),
	})
	log := zerowrap.FromCtx(ctx)

	deleted, err := s.catalog.Delete(ctx, names)
	if err != nil {
		return deleted, wrapErr(ctx, err, "failed to delete repositories")
	}

	log.Info().Strs("repositories", deleted).Msg("repositories deleted")
	return deleted, nil
}

// PurgeStaleUploads abandons sessions idle for longer than olderThan.
func (s *Service) PurgeStaleUploads(ctx context.Context, olderThan time.Duration) (int, error) {
	ctx = usecaseCtx(ctx, "PurgeStaleUploads", nil)
	log := zerowrap.FromCtx(ctx)

	n, err := s.uploads.PurgeStale(ctx, olderThan)
	for i := 0; i < n; i++ {
		s.metrics.UploadFinished(out.UploadAbandoned)
	}
	if err != nil {
		return n, wrapErr(ctx, err, "failed to purge stale uploads")
	}

	if n > 0 {
		log.Info().Int(zerowrap.FieldCount, n).Msg("stale uploads purged")
	}
	return n, nil
}

type noopMetrics struct{}

func (noopMetrics) BlobCommitted(string, int64)   {}
func (noopMetrics) UploadFinished(string)         {}
func (noopMetrics) ManifestPushed(string, string) {}
