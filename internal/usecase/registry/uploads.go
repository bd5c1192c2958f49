package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/bnema/zerowrap"
	"github.com/google/uuid"
	"github.com/opencontainers/go-digest"
	"github.com/samber/lo"

	"github.com/bnema/hangar/internal/boundaries/out"
	"github.com/bnema/hangar/internal/domain"
	"github.com/bnema/hangar/internal/logging"
)

// UploadManager drives resumable blob uploads. Every append is stored as its
// own part object; completion streams the parts, in order, through digest
// verification into the BlobStore.
type UploadManager struct {
	storage out.ObjectStorage
	blobs   *BlobStore
	locks   *keyedMutex
	now     func() time.Time
}

// NewUploadManager creates an upload manager committing into blobs.
func NewUploadManager(storage out.ObjectStorage, blobs *BlobStore) *UploadManager {
	return &UploadManager{
		storage: storage,
		blobs:   blobs,
		locks:   newKeyedMutex(),
		now:     time.Now,
	}
}

// Initiate opens a new, empty session.
func (m *UploadManager) Initiate(ctx context.Context, name string) (domain.Upload, error) {
	now := m.now().UTC()
	u := domain.Upload{
		ID:         uuid.NewString(),
		Repository: name,
		StartedAt:  now,
		UpdatedAt:  now,
	}
	if err := m.save(ctx, u); err != nil {
		return domain.Upload{}, err
	}
	return u, nil
}

// Status returns the session state.
func (m *UploadManager) Status(ctx context.Context, name, id string) (domain.Upload, error) {
	return m.load(ctx, name, id)
}

// Append adds r to the session. When rng is set it must start at the current
// length and cover exactly the bytes sent, otherwise domain.ErrRangeInvalid
// is returned and the session is left unchanged.
func (m *UploadManager) Append(ctx context.Context, name, id string, r io.Reader, rng *domain.ByteRange) (domain.Upload, error) {
	unlock := m.locks.Lock(uploadPrefix(name, id))
	defer unlock()

	u, err := m.load(ctx, name, id)
	if err != nil {
		return domain.Upload{}, err
	}
	return m.append(ctx, u, r, rng)
}

func (m *UploadManager) append(ctx context.Context, u domain.Upload, r io.Reader, rng *domain.ByteRange) (domain.Upload, error) {
	size := int64(-1)
	if rng != nil {
		if rng.Start != u.Length || rng.End < rng.Start {
			return domain.Upload{}, fmt.Errorf("%w: range %d-%d, upload has %d bytes", domain.ErrRangeInvalid, rng.Start, rng.End, u.Length)
		}
		size = rng.Len()
	}

	partKey := uploadPartKey(u.Repository, u.ID, u.Parts+1)
	info, err := m.storage.Put(ctx, partKey, r, size)
	if err != nil {
		if rng != nil && errors.Is(err, domain.ErrSizeMismatch) {
			return domain.Upload{}, fmt.Errorf("%w: %v", domain.ErrRangeInvalid, err)
		}
		return domain.Upload{}, fmt.Errorf("failed to store upload chunk: %w", err)
	}

	if info.Size == 0 {
		if err := m.storage.Delete(ctx, partKey); err != nil {
			return domain.Upload{}, fmt.Errorf("failed to drop empty chunk: %w", err)
		}
	} else {
		u.Parts++
		u.Length += info.Size
	}

	u.UpdatedAt = m.now().UTC()
	if err := m.save(ctx, u); err != nil {
		return domain.Upload{}, err
	}
	return u, nil
}

// Complete appends the optional final chunk and commits the session as the
// blob dgst. On a digest mismatch the session is discarded and no blob is
// created. Storage failures keep the session as it was before the call, so
// the client can retry with the same final chunk.
func (m *UploadManager) Complete(ctx context.Context, name, id string, dgst digest.Digest, final io.Reader, rng *domain.ByteRange) (domain.Blob, error) {
	if dgst == "" {
		return domain.Blob{}, domain.ErrDigestRequired
	}

	unlock := m.locks.Lock(uploadPrefix(name, id))
	defer unlock()

	u, err := m.load(ctx, name, id)
	if err != nil {
		return domain.Blob{}, err
	}

	prev := u
	if final != nil {
		if u, err = m.append(ctx, u, final, rng); err != nil {
			return domain.Blob{}, err
		}
	}

	parts := newPartsReader(ctx, m.storage, u)
	blob, err := m.blobs.Put(ctx, name, dgst, parts, u.Length)
	parts.Close()
	if err != nil {
		if errors.Is(err, domain.ErrDigestMismatch) || errors.Is(err, domain.ErrSizeMismatch) {
			if discardErr := m.discard(ctx, name, id); discardErr != nil {
				zerowrap.Ctx(ctx).Warn().Err(discardErr).Msg("failed to discard rejected upload")
			}
		} else if u.Parts > prev.Parts {
			if rollbackErr := m.rollback(ctx, prev, u); rollbackErr != nil {
				zerowrap.Ctx(ctx).Warn().Err(rollbackErr).Msg("failed to roll back final chunk")
			}
		}
		return domain.Blob{}, err
	}

	if err := m.discard(ctx, name, id); err != nil {
		zerowrap.Ctx(ctx).Warn().Err(err).Msg("failed to clean up committed upload")
	}
	return blob, nil
}

// rollback restores prev after the final chunk stored as part cur.Parts
// could not be committed. The session is written first: a part left behind
// past prev.Parts is overwritten by the next append.
func (m *UploadManager) rollback(ctx context.Context, prev, cur domain.Upload) error {
	prev.UpdatedAt = cur.UpdatedAt
	if err := m.save(ctx, prev); err != nil {
		return err
	}
	if err := m.storage.Delete(ctx, uploadPartKey(cur.Repository, cur.ID, cur.Parts)); err != nil {
		return fmt.Errorf("failed to delete final chunk: %w", err)
	}
	return nil
}

// Abandon discards the session and its parts. Unknown sessions are ignored.
func (m *UploadManager) Abandon(ctx context.Context, name, id string) error {
	unlock := m.locks.Lock(uploadPrefix(name, id))
	defer unlock()

	return m.discard(ctx, name, id)
}

// PurgeStale abandons every session whose objects were all last written
// more than olderThan ago, including leftovers that lost their session
// object. It returns the number of sessions removed.
func (m *UploadManager) PurgeStale(ctx context.Context, olderThan time.Duration) (int, error) {
	infos, err := m.storage.List(ctx, uploadsRoot)
	if err != nil {
		return 0, fmt.Errorf("failed to list uploads: %w", err)
	}

	cutoff := m.now().Add(-olderThan)
	sessions := lo.GroupBy(infos, func(info out.ObjectInfo) string {
		name, id, ok := uploadFromKey(info.Key)
		if !ok {
			return ""
		}
		return uploadPrefix(name, id)
	})

	purged := 0
	for prefix, objects := range sessions {
		if prefix == "" {
			continue
		}
		stale := lo.EveryBy(objects, func(info out.ObjectInfo) bool {
			return info.ModTime.Before(cutoff)
		})
		if !stale {
			continue
		}

		name, id, _ := uploadFromKey(objects[0].Key)
		removed, err := m.abandonIfStale(ctx, name, id, cutoff)
		if err != nil {
			return purged, err
		}
		if !removed {
			continue
		}
		purged++

		zerowrap.Ctx(ctx).Debug().
			Str(logging.FieldRepository, name).
			Str(logging.FieldUploadID, id).
			Msg("stale upload purged")
	}

	return purged, nil
}

// abandonIfStale discards the session unless it was touched after cutoff
// since PurgeStale listed it.
func (m *UploadManager) abandonIfStale(ctx context.Context, name, id string, cutoff time.Time) (bool, error) {
	unlock := m.locks.Lock(uploadPrefix(name, id))
	defer unlock()

	u, err := m.load(ctx, name, id)
	switch {
	case errors.Is(err, domain.ErrUploadNotFound):
		// Orphaned parts, or a session completed since the listing.
		infos, err := m.storage.List(ctx, uploadPrefix(name, id))
		if err != nil {
			return false, fmt.Errorf("failed to list upload objects: %w", err)
		}
		if len(infos) == 0 {
			return false, nil
		}
	case err != nil:
		return false, err
	case !u.UpdatedAt.Before(cutoff):
		return false, nil
	}

	return true, m.discard(ctx, name, id)
}

func (m *UploadManager) discard(ctx context.Context, name, id string) error {
	infos, err := m.storage.List(ctx, uploadPrefix(name, id))
	if err != nil {
		return fmt.Errorf("failed to list upload objects: %w", err)
	}
	// Session object last, so an interrupted discard stays visible to PurgeStale.
	infos = lo.Reverse(infos)
	for _, info := range infos {
		if err := m.storage.Delete(ctx, info.Key); err != nil {
			return fmt.Errorf("failed to delete upload object: %w", err)
		}
	}
	return nil
}

func (m *UploadManager) load(ctx context.Context, name, id string) (domain.Upload, error) {
	rc, _, err := m.storage.Get(ctx, uploadSessionKey(name, id))
	if err != nil {
		if errors.Is(err, domain.ErrObjectNotFound) {
			return domain.Upload{}, domain.ErrUploadNotFound
		}
		return domain.Upload{}, fmt.Errorf("failed to read upload session: %w", err)
	}
	defer rc.Close()

	var u domain.Upload
	if err := json.NewDecoder(rc).Decode(&u); err != nil {
		return domain.Upload{}, fmt.Errorf("failed to decode upload session: %w", err)
	}
	return u, nil
}

func (m *UploadManager) save(ctx context.Context, u domain.Upload) error {
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("failed to encode upload session: %w", err)
	}
	if _, err := m.storage.Put(ctx, uploadSessionKey(u.Repository, u.ID), bytes.NewReader(data), int64(len(data))); err != nil {
		return fmt.Errorf("failed to write upload session: %w", err)
	}
	return nil
}

// partsReader concatenates the parts of a session, opening each lazily.
type partsReader struct {
	ctx     context.Context
	storage out.ObjectStorage
	keys    []string
	current io.ReadCloser
}

func newPartsReader(ctx context.Context, storage out.ObjectStorage, u domain.Upload) *partsReader {
	keys := make([]string, 0, u.Parts)
	for i := 1; i <= u.Parts; i++ {
		keys = append(keys, uploadPartKey(u.Repository, u.ID, i))
	}
	return &partsReader{ctx: ctx, storage: storage, keys: keys}
}

func (p *partsReader) Read(b []byte) (int, error) {
	for {
		if p.current == nil {
			if len(p.keys) == 0 {
				return 0, io.EOF
			}
			rc, _, err := p.storage.Get(p.ctx, p.keys[0])
			if err != nil {
				return 0, fmt.Errorf("failed to open upload part %s: %w", p.keys[0], err)
			}
			p.keys = p.keys[1:]
			p.current = rc
		}

		n, err := p.current.Read(b)
		if errors.Is(err, io.EOF) {
			p.current.Close()
			p.current = nil
			if n > 0 {
				return n, nil
			}
			continue
		}
		return n, err
	}
}

func (p *partsReader) Close() error {
	if p.current == nil {
		return nil
	}
	err := p.current.Close()
	p.current = nil
	return err
}
