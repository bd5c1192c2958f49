package out

import (
	"context"
	"io"
	"time"
)

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Key     string
	Size    int64
	ModTime time.Time
}

// ObjectStorage defines the contract for physical byte storage over opaque keys.
// Keys are slash separated; backends must not interpret them beyond prefix matching.
type ObjectStorage interface {
	// Get opens the object stored under key.
	// Returns domain.ErrObjectNotFound when the key does not exist.
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)

	// Head returns the object metadata without its content.
	Head(ctx context.Context, key string) (ObjectInfo, error)

	// Put stores everything read from r under key, replacing any previous object.
	// The object becomes visible only once r reached a clean io.EOF. When size is
	// non-negative, exactly size bytes must be read or domain.ErrSizeMismatch is
	// returned. A failed Put leaves the previous object (or none) in place.
	Put(ctx context.Context, key string, r io.Reader, size int64) (ObjectInfo, error)

	// Delete removes the object. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// List returns every object whose key starts with prefix, sorted by key.
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
}
