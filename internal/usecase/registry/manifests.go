package registry

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/opencontainers/go-digest"

	"github.com/bnema/hangar/internal/boundaries/out"
	"github.com/bnema/hangar/internal/domain"
	"github.com/bnema/hangar/pkg/contentdigest"
	"github.com/bnema/hangar/pkg/manifest"
	"github.com/bnema/hangar/pkg/validation"
)

// maxLinkSize bounds the tag and media type objects read back from storage.
const maxLinkSize = 1024

// ManifestStore keeps manifest revisions under their content digest and
// tags as mutable links to a revision.
type ManifestStore struct {
	storage out.ObjectStorage
}

// NewManifestStore creates a manifest store on top of storage.
func NewManifestStore(storage out.ObjectStorage) *ManifestStore {
	return &ManifestStore{storage: storage}
}

// Exists reports whether reference resolves to a stored revision.
func (s *ManifestStore) Exists(ctx context.Context, name, reference string) (bool, error) {
	dgst, err := s.resolve(ctx, name, reference)
	if err != nil {
		if errors.Is(err, domain.ErrManifestNotFound) {
			return false, nil
		}
		return false, err
	}

	if _, err := s.storage.Head(ctx, revisionDataKey(name, dgst)); err != nil {
		if errors.Is(err, domain.ErrObjectNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat manifest: %w", err)
	}
	return true, nil
}

// Get loads the revision reference points to. The returned digest is the
// revision's content digest.
func (s *ManifestStore) Get(ctx context.Context, name, reference string) (domain.Manifest, error) {
	dgst, err := s.resolve(ctx, name, reference)
	if err != nil {
		return domain.Manifest{}, err
	}

	data, err := s.read(ctx, revisionDataKey(name, dgst), -1)
	if err != nil {
		if errors.Is(err, domain.ErrObjectNotFound) {
			return domain.Manifest{}, domain.ErrManifestNotFound
		}
		return domain.Manifest{}, fmt.Errorf("failed to read manifest: %w", err)
	}

	mediaType, err := s.read(ctx, revisionMediaTypeKey(name, dgst), maxLinkSize)
	if err != nil && !errors.Is(err, domain.ErrObjectNotFound) {
		return domain.Manifest{}, fmt.Errorf("failed to read manifest media type: %w", err)
	}
	contentType := strings.TrimSpace(string(mediaType))
	if contentType == "" {
		h, _ := manifest.Inspect(data)
		contentType = manifest.ResolveMediaType("", h)
	}

	return domain.Manifest{
		Repository:  name,
		Reference:   reference,
		ContentType: contentType,
		Data:        data,
		Digest:      dgst,
		Size:        int64(len(data)),
	}, nil
}

// Put stores data as a revision and, for a tag reference, points the tag at
// it. A digest reference must equal the digest of data. The tag is written
// last so a failed push never repoints it.
//
// A revision keeps the media type it was first stored with. Pushing the same
// bytes again under another Content-Type only moves the tag.
func (s *ManifestStore) Put(ctx context.Context, name, reference string, data []byte, contentType string) (digest.Digest, error) {
	h, err := manifest.Inspect(data)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrManifestInvalid, err)
	}

	dgst := contentdigest.FromBytes(data)

	byDigest := validation.IsDigest(reference)
	if byDigest {
		want, err := contentdigest.Parse(reference)
		if err != nil {
			return "", err
		}
		if want != dgst {
			return "", fmt.Errorf("%w: manifest content hashes to %s", domain.ErrDigestMismatch, dgst)
		}
	}

	if err := s.putRevision(ctx, name, dgst, data, manifest.ResolveMediaType(contentType, h)); err != nil {
		return "", err
	}

	if !byDigest {
		if err := s.write(ctx, tagKey(name, reference), []byte(dgst.String())); err != nil {
			return "", fmt.Errorf("failed to update tag: %w", err)
		}
	}

	return dgst, nil
}

// putRevision writes the revision data, then its media type. Objects that
// already exist are left untouched, which also completes a revision whose
// media type write was interrupted.
func (s *ManifestStore) putRevision(ctx context.Context, name string, dgst digest.Digest, data []byte, mediaType string) error {
	dataKey := revisionDataKey(name, dgst)
	exists, err := s.exists(ctx, dataKey)
	if err != nil {
		return fmt.Errorf("failed to stat manifest: %w", err)
	}
	if !exists {
		if err := s.write(ctx, dataKey, data); err != nil {
			return fmt.Errorf("failed to store manifest: %w", err)
		}
	}

	mediaTypeKey := revisionMediaTypeKey(name, dgst)
	if exists {
		if exists, err = s.exists(ctx, mediaTypeKey); err != nil {
			return fmt.Errorf("failed to stat manifest media type: %w", err)
		}
	}
	if !exists {
		if err := s.write(ctx, mediaTypeKey, []byte(mediaType)); err != nil {
			return fmt.Errorf("failed to store manifest media type: %w", err)
		}
	}
	return nil
}

// Delete removes a tag link, or for a digest reference the revision and
// every tag pointing at it.
func (s *ManifestStore) Delete(ctx context.Context, name, reference string) error {
	if !validation.IsDigest(reference) {
		if _, err := s.storage.Head(ctx, tagKey(name, reference)); err != nil {
			if errors.Is(err, domain.ErrObjectNotFound) {
				return domain.ErrManifestNotFound
			}
			return fmt.Errorf("failed to stat tag: %w", err)
		}
		if err := s.storage.Delete(ctx, tagKey(name, reference)); err != nil {
			return fmt.Errorf("failed to delete tag: %w", err)
		}
		return nil
	}

	dgst, err := contentdigest.Parse(reference)
	if err != nil {
		return err
	}
	if _, err := s.storage.Head(ctx, revisionDataKey(name, dgst)); err != nil {
		if errors.Is(err, domain.ErrObjectNotFound) {
			return domain.ErrManifestNotFound
		}
		return fmt.Errorf("failed to stat manifest: %w", err)
	}

	tags, err := s.storage.List(ctx, tagsPrefix(name))
	if err != nil {
		return fmt.Errorf("failed to list tags: %w", err)
	}
	for _, info := range tags {
		target, err := s.read(ctx, info.Key, maxLinkSize)
		if err != nil {
			if errors.Is(err, domain.ErrObjectNotFound) {
				continue
			}
			return fmt.Errorf("failed to read tag: %w", err)
		}
		if digest.Digest(strings.TrimSpace(string(target))) != dgst {
			continue
		}
		if err := s.storage.Delete(ctx, info.Key); err != nil {
			return fmt.Errorf("failed to delete tag: %w", err)
		}
	}

	for _, key := range []string{revisionDataKey(name, dgst), revisionMediaTypeKey(name, dgst)} {
		if err := s.storage.Delete(ctx, key); err != nil {
			return fmt.Errorf("failed to delete manifest: %w", err)
		}
	}
	return nil
}

// Tags returns the tag names of a repository in lexical order.
func (s *ManifestStore) Tags(ctx context.Context, name string) ([]string, error) {
	infos, err := s.storage.List(ctx, tagsPrefix(name))
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}

	if len(infos) == 0 {
		exists, err := repositoryExists(ctx, s.storage, name)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, domain.ErrRepositoryNotFound
		}
	}

	prefix := tagsPrefix(name)
	tags := make([]string, 0, len(infos))
	for _, info := range infos {
		tags = append(tags, strings.TrimPrefix(info.Key, prefix))
	}
	return tags, nil
}

func (s *ManifestStore) resolve(ctx context.Context, name, reference string) (digest.Digest, error) {
	if validation.IsDigest(reference) {
		return contentdigest.Parse(reference)
	}

	target, err := s.read(ctx, tagKey(name, reference), maxLinkSize)
	if err != nil {
		if errors.Is(err, domain.ErrObjectNotFound) {
			return "", domain.ErrManifestNotFound
		}
		return "", fmt.Errorf("failed to read tag: %w", err)
	}

	dgst, err := contentdigest.Parse(strings.TrimSpace(string(target)))
	if err != nil {
		return "", fmt.Errorf("corrupt tag link %s: %w", reference, err)
	}
	return dgst, nil
}

func (s *ManifestStore) read(ctx context.Context, key string, limit int64) ([]byte, error) {
	rc, _, err := s.storage.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var r io.Reader = rc
	if limit > 0 {
		r = io.LimitReader(rc, limit)
	}
	return io.ReadAll(r)
}

func (s *ManifestStore) exists(ctx context.Context, key string) (bool, error) {
	_, err := s.storage.Head(ctx, key)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, domain.ErrObjectNotFound):
		return false, nil
	default:
		return false, err
	}
}

func (s *ManifestStore) write(ctx context.Context, key string, data []byte) error {
	_, err := s.storage.Put(ctx, key, bytes.NewReader(data), int64(len(data)))
	return err
}

// repositoryExists reports whether any blob or manifest object belongs to
// exactly this repository (not to a nested one).
func repositoryExists(ctx context.Context, storage out.ObjectStorage, name string) (bool, error) {
	infos, err := storage.List(ctx, repositoryPrefix(name))
	if err != nil {
		return false, fmt.Errorf("failed to list repository: %w", err)
	}
	for _, info := range infos {
		if owner, ok := repositoryFromKey(info.Key); ok && owner == name {
			return true, nil
		}
	}
	return false, nil
}
