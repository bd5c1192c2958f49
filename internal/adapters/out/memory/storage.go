// Package memory implements an in-process out.ObjectStorage.
package memory

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bnema/hangar/internal/adapters/out/objectio"
	"github.com/bnema/hangar/internal/boundaries/out"
	"github.com/bnema/hangar/internal/domain"
)

// Ensure Storage implements out.ObjectStorage.
var _ out.ObjectStorage = (*Storage)(nil)

type object struct {
	data    []byte
	modTime time.Time
}

// Storage keeps objects in a map. Stored slices are never mutated, so readers
// can share them without copying.
type Storage struct {
	mu      sync.RWMutex
	objects map[string]object
}

// NewStorage creates an empty in-memory storage.
func NewStorage() *Storage {
	return &Storage{objects: make(map[string]object)}
}

func (s *Storage) lookup(key string) (object, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[key]
	return obj, ok
}

// Get opens the object stored under key.
func (s *Storage) Get(_ context.Context, key string) (io.ReadCloser, out.ObjectInfo, error) {
	obj, ok := s.lookup(key)
	if !ok {
		return nil, out.ObjectInfo{}, domain.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(obj.data)), info(key, obj), nil
}

// Head returns the object metadata.
func (s *Storage) Head(_ context.Context, key string) (out.ObjectInfo, error) {
	obj, ok := s.lookup(key)
	if !ok {
		return out.ObjectInfo{}, domain.ErrObjectNotFound
	}
	return info(key, obj), nil
}

// Put buffers r completely before swapping the object in.
func (s *Storage) Put(_ context.Context, key string, r io.Reader, size int64) (out.ObjectInfo, error) {
	data, err := objectio.ReadAllSized(r, size)
	if err != nil {
		return out.ObjectInfo{}, err
	}

	obj := object{data: data, modTime: time.Now()}

	s.mu.Lock()
	s.objects[key] = obj
	s.mu.Unlock()

	return info(key, obj), nil
}

// Delete removes the object if present.
func (s *Storage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.objects, key)
	s.mu.Unlock()
	return nil
}

// List returns the objects under prefix sorted by key.
func (s *Storage) List(_ context.Context, prefix string) ([]out.ObjectInfo, error) {
	s.mu.RLock()
	infos := make([]out.ObjectInfo, 0)
	for key, obj := range s.objects {
		if strings.HasPrefix(key, prefix) {
			infos = append(infos, info(key, obj))
		}
	}
	s.mu.RUnlock()

	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos, nil
}

func info(key string, obj object) out.ObjectInfo {
	return out.ObjectInfo{Key: key, Size: int64(len(obj.data)), ModTime: obj.modTime}
}
