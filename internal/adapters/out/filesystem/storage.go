// Package filesystem implements out.ObjectStorage on the local filesystem.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/bnema/zerowrap"

	"github.com/bnema/hangar/internal/adapters/out/objectio"
	"github.com/bnema/hangar/internal/boundaries/out"
	"github.com/bnema/hangar/internal/domain"
	"github.com/bnema/hangar/pkg/validation"
)

// Ensure Storage implements out.ObjectStorage.
var _ out.ObjectStorage = (*Storage)(nil)

// Temporary files live next to their target so the final rename stays on
// one filesystem. List skips them.
const tmpPrefix = ".tmp-"

// Storage maps every key to a file below rootDir.
type Storage struct {
	rootDir string
	log     zerowrap.Logger
}

// NewStorage creates the root directory if needed.
func NewStorage(rootDir string, log zerowrap.Logger) (*Storage, error) {
	if err := os.MkdirAll(rootDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", rootDir, err)
	}

	log.Info().
		Str(zerowrap.FieldLayer, "adapter").
		Str(zerowrap.FieldAdapter, "filesystem").
		Str("root_dir", rootDir).
		Msg("object storage initialized")

	return &Storage{rootDir: filepath.Clean(rootDir), log: log}, nil
}

func (s *Storage) path(key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("invalid key: empty")
	}
	for _, part := range strings.Split(key, "/") {
		if part == "" || part == "." || part == ".." || strings.HasPrefix(part, tmpPrefix) {
			return "", fmt.Errorf("invalid key %q", key)
		}
	}

	full := filepath.Join(s.rootDir, filepath.FromSlash(key))
	if err := validation.ValidatePathWithinRoot(s.rootDir, full); err != nil {
		return "", fmt.Errorf("invalid key %q: %w", key, err)
	}
	return full, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR)
}

// Get opens the file stored under key.
func (s *Storage) Get(_ context.Context, key string) (io.ReadCloser, out.ObjectInfo, error) {
	path, err := s.path(key)
	if err != nil {
		return nil, out.ObjectInfo{}, err
	}

	file, err := os.Open(path)
	if err != nil {
		if isNotFound(err) {
			return nil, out.ObjectInfo{}, domain.ErrObjectNotFound
		}
		return nil, out.ObjectInfo{}, fmt.Errorf("failed to open object: %w", err)
	}

	fi, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, out.ObjectInfo{}, fmt.Errorf("failed to stat object: %w", err)
	}
	if fi.IsDir() {
		file.Close()
		return nil, out.ObjectInfo{}, domain.ErrObjectNotFound
	}

	return file, objectInfo(key, fi), nil
}

// Head stats the file stored under key.
func (s *Storage) Head(_ context.Context, key string) (out.ObjectInfo, error) {
	path, err := s.path(key)
	if err != nil {
		return out.ObjectInfo{}, err
	}

	fi, err := os.Stat(path)
	if err != nil {
		if isNotFound(err) {
			return out.ObjectInfo{}, domain.ErrObjectNotFound
		}
		return out.ObjectInfo{}, fmt.Errorf("failed to stat object: %w", err)
	}
	if fi.IsDir() {
		return out.ObjectInfo{}, domain.ErrObjectNotFound
	}

	return objectInfo(key, fi), nil
}

// Put writes r to a temporary file and renames it over the target once the
// stream ended cleanly.
func (s *Storage) Put(_ context.Context, key string, r io.Reader, size int64) (out.ObjectInfo, error) {
	path, err := s.path(key)
	if err != nil {
		return out.ObjectInfo{}, err
	}

	tmp, err := s.createTemp(filepath.Dir(path))
	if err != nil {
		return out.ObjectInfo{}, err
	}
	tmpPath := tmp.Name()

	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	written, err := objectio.CopySized(tmp, r, size)
	if err != nil {
		return out.ObjectInfo{}, fmt.Errorf("failed to write object data: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return out.ObjectInfo{}, fmt.Errorf("failed to close temporary file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return out.ObjectInfo{}, fmt.Errorf("failed to move object to final location: %w", err)
	}
	committed = true

	s.log.Debug().
		Str(zerowrap.FieldLayer, "adapter").
		Str(zerowrap.FieldAdapter, "filesystem").
		Str("key", key).
		Int64(zerowrap.FieldSize, written).
		Msg("object stored")

	fi, err := os.Stat(path)
	if err != nil {
		return out.ObjectInfo{}, fmt.Errorf("failed to stat object: %w", err)
	}
	return objectInfo(key, fi), nil
}

// createTemp retries when a concurrent Delete pruned the directory between
// MkdirAll and CreateTemp.
func (s *Storage) createTemp(dir string) (*os.File, error) {
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create object directory: %w", err)
		}
		tmp, err := os.CreateTemp(dir, tmpPrefix+"*")
		if err == nil {
			return tmp, nil
		}
		if !isNotFound(err) {
			return nil, fmt.Errorf("failed to create temporary file: %w", err)
		}
		lastErr = err
	}
	return nil, fmt.Errorf("failed to create temporary file: %w", lastErr)
}

// Delete removes the file and prunes the directories it leaves empty.
func (s *Storage) Delete(_ context.Context, key string) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !isNotFound(err) {
		return fmt.Errorf("failed to delete object: %w", err)
	}

	for dir := filepath.Dir(path); dir != s.rootDir && strings.HasPrefix(dir, s.rootDir); dir = filepath.Dir(dir) {
		// Fails on the first non-empty directory.
		if os.Remove(dir) != nil {
			break
		}
	}

	return nil
}

// List walks the deepest directory named by prefix.
func (s *Storage) List(_ context.Context, prefix string) ([]out.ObjectInfo, error) {
	walkRoot := s.rootDir
	if i := strings.LastIndex(prefix, "/"); i > 0 {
		dir, err := validation.ValidatePath(filepath.FromSlash(prefix[:i]))
		if err != nil {
			return nil, fmt.Errorf("invalid prefix %q: %w", prefix, err)
		}
		walkRoot = filepath.Join(s.rootDir, dir)
		if err := validation.ValidatePathWithinRoot(s.rootDir, walkRoot); err != nil {
			return nil, fmt.Errorf("invalid prefix %q: %w", prefix, err)
		}
	}

	infos := make([]out.ObjectInfo, 0)
	err := filepath.WalkDir(walkRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if isNotFound(err) {
				return nil
			}
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), tmpPrefix) {
			return nil
		}

		rel, err := filepath.Rel(s.rootDir, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, prefix) {
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			if isNotFound(err) {
				return nil
			}
			return err
		}
		infos = append(infos, objectInfo(key, fi))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list objects: %w", err)
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos, nil
}

func objectInfo(key string, fi fs.FileInfo) out.ObjectInfo {
	return out.ObjectInfo{Key: key, Size: fi.Size(), ModTime: fi.ModTime()}
}
