// Package boltdb implements out.ObjectStorage on an embedded bbolt database.
package boltdb

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/bnema/zerowrap"
	bolt "go.etcd.io/bbolt"

	"github.com/bnema/hangar/internal/adapters/out/objectio"
	"github.com/bnema/hangar/internal/boundaries/out"
	"github.com/bnema/hangar/internal/domain"
)

// Ensure Storage implements out.ObjectStorage.
var _ out.ObjectStorage = (*Storage)(nil)

// DBName is the file created inside the data directory.
const DBName = "hangar.db"

var (
	bucketObjects = []byte("objects")
	bucketMTimes  = []byte("mtimes")
)

// Storage stores each object as a single value. A Put is one transaction,
// so readers observe either the old or the new content.
type Storage struct {
	db  *bolt.DB
	log zerowrap.Logger
}

// Open opens (or creates) the database file below dataDir.
func Open(dataDir string, log zerowrap.Logger) (*Storage, error) {
	if err := os.MkdirAll(dataDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", dataDir, err)
	}

	path := filepath.Join(dataDir, DBName)
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketObjects, bucketMTimes} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create buckets: %w", err)
	}

	log.Info().
		Str(zerowrap.FieldLayer, "adapter").
		Str(zerowrap.FieldAdapter, "boltdb").
		Str("path", path).
		Msg("object storage initialized")

	return &Storage{db: db, log: log}, nil
}

// Close releases the database file lock.
func (s *Storage) Close() error {
	return s.db.Close()
}

// Get copies the value out of the read transaction.
func (s *Storage) Get(_ context.Context, key string) (io.ReadCloser, out.ObjectInfo, error) {
	var (
		data []byte
		info out.ObjectInfo
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		v, ok := lookup(tx, key)
		if !ok {
			return domain.ErrObjectNotFound
		}
		data = bytes.Clone(v)
		info = objectInfo(tx, key, len(v))
		return nil
	})
	if err != nil {
		return nil, out.ObjectInfo{}, wrap("get", err)
	}
	return io.NopCloser(bytes.NewReader(data)), info, nil
}

// Head reads the value length and modification time.
func (s *Storage) Head(_ context.Context, key string) (out.ObjectInfo, error) {
	var info out.ObjectInfo
	err := s.db.View(func(tx *bolt.Tx) error {
		v, ok := lookup(tx, key)
		if !ok {
			return domain.ErrObjectNotFound
		}
		info = objectInfo(tx, key, len(v))
		return nil
	})
	if err != nil {
		return out.ObjectInfo{}, wrap("head", err)
	}
	return info, nil
}

// Put reads r to the end before opening the write transaction.
func (s *Storage) Put(_ context.Context, key string, r io.Reader, size int64) (out.ObjectInfo, error) {
	if key == "" {
		return out.ObjectInfo{}, fmt.Errorf("invalid key: empty")
	}

	data, err := objectio.ReadAllSized(r, size)
	if err != nil {
		return out.ObjectInfo{}, fmt.Errorf("failed to read object data: %w", err)
	}

	if data == nil {
		data = []byte{}
	}

	now := time.Now()
	err = s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(bucketObjects).Put([]byte(key), data); err != nil {
			return err
		}
		return tx.Bucket(bucketMTimes).Put([]byte(key), encodeTime(now))
	})
	if err != nil {
		return out.ObjectInfo{}, wrap("put", err)
	}

	s.log.Debug().
		Str(zerowrap.FieldLayer, "adapter").
		Str(zerowrap.FieldAdapter, "boltdb").
		Str("key", key).
		Int(zerowrap.FieldSize, len(data)).
		Msg("object stored")

	return out.ObjectInfo{Key: key, Size: int64(len(data)), ModTime: now}, nil
}

// Delete removes the value and its modification time.
func (s *Storage) Delete(_ context.Context, key string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(bucketObjects).Delete([]byte(key)); err != nil {
			return err
		}
		return tx.Bucket(bucketMTimes).Delete([]byte(key))
	})
	return wrap("delete", err)
}

// List seeks to prefix and walks the cursor while keys still match.
// bbolt keeps keys in byte order, so the result is already sorted.
func (s *Storage) List(_ context.Context, prefix string) ([]out.ObjectInfo, error) {
	infos := make([]out.ObjectInfo, 0)
	p := []byte(prefix)
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketObjects).Cursor()
		for k, v := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, v = c.Next() {
			infos = append(infos, objectInfo(tx, string(k), len(v)))
		}
		return nil
	})
	if err != nil {
		return nil, wrap("list", err)
	}
	return infos, nil
}

// lookup uses the modification time as the existence marker, since bbolt
// does not distinguish an empty value from a missing one.
func lookup(tx *bolt.Tx, key string) ([]byte, bool) {
	if tx.Bucket(bucketMTimes).Get([]byte(key)) == nil {
		return nil, false
	}
	return tx.Bucket(bucketObjects).Get([]byte(key)), true
}

func objectInfo(tx *bolt.Tx, key string, size int) out.ObjectInfo {
	return out.ObjectInfo{
		Key:     key,
		Size:    int64(size),
		ModTime: decodeTime(tx.Bucket(bucketMTimes).Get([]byte(key))),
	}
}

func encodeTime(t time.Time) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(t.UnixNano()))
	return b
}

func decodeTime(b []byte) time.Time {
	if len(b) != 8 {
		return time.Time{}
	}
	return time.Unix(0, int64(binary.BigEndian.Uint64(b)))
}

func wrap(op string, err error) error {
	if err == nil || errors.Is(err, domain.ErrObjectNotFound) {
		return err
	}
	return fmt.Errorf("failed to %s object: %w", op, err)
}
