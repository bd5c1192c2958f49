// Package sqlite implements out.ObjectStorage on a SQLite database.
package sqlite

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bnema/zerowrap"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/bnema/hangar/internal/adapters/out/objectio"
	"github.com/bnema/hangar/internal/boundaries/out"
	"github.com/bnema/hangar/internal/domain"
)

// Ensure Storage implements out.ObjectStorage.
var _ out.ObjectStorage = (*Storage)(nil)

// DBName is the file created inside the data directory.
const DBName = "hangar.sqlite"

const schema = `
CREATE TABLE IF NOT EXISTS objects (
	key      TEXT PRIMARY KEY,
	data     BLOB NOT NULL,
	size     INTEGER NOT NULL,
	mod_time INTEGER NOT NULL
)`

// Storage keeps one row per object. A Put is a single upsert statement.
type Storage struct {
	db  *sql.DB
	log zerowrap.Logger
}

// Open opens (or creates) the database file below dataDir.
func Open(dataDir string, log zerowrap.Logger) (*Storage, error) {
	if err := os.MkdirAll(dataDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", dataDir, err)
	}

	path := filepath.Join(dataDir, DBName)
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	log.Info().
		Str(zerowrap.FieldLayer, "adapter").
		Str(zerowrap.FieldAdapter, "sqlite").
		Str("path", path).
		Msg("object storage initialized")

	return &Storage{db: db, log: log}, nil
}

// Close closes the database.
func (s *Storage) Close() error {
	return s.db.Close()
}

// Get loads the row stored under key.
func (s *Storage) Get(ctx context.Context, key string) (io.ReadCloser, out.ObjectInfo, error) {
	var (
		data    []byte
		modTime int64
	)
	err := s.db.QueryRowContext(ctx, `SELECT data, mod_time FROM objects WHERE key = ?`, key).Scan(&data, &modTime)
	if err != nil {
		return nil, out.ObjectInfo{}, notFound("get", err)
	}

	info := out.ObjectInfo{Key: key, Size: int64(len(data)), ModTime: time.Unix(0, modTime)}
	return io.NopCloser(bytes.NewReader(data)), info, nil
}

// Head reads the stored size and modification time.
func (s *Storage) Head(ctx context.Context, key string) (out.ObjectInfo, error) {
	info := out.ObjectInfo{Key: key}
	var modTime int64
	err := s.db.QueryRowContext(ctx, `SELECT size, mod_time FROM objects WHERE key = ?`, key).Scan(&info.Size, &modTime)
	if err != nil {
		return out.ObjectInfo{}, notFound("head", err)
	}
	info.ModTime = time.Unix(0, modTime)
	return info, nil
}

// Put reads r to the end before writing the row.
func (s *Storage) Put(ctx context.Context, key string, r io.Reader, size int64) (out.ObjectInfo, error) {
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
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO objects (key, data, size, mod_time) VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET data = excluded.data, size = excluded.size, mod_time = excluded.mod_time`,
		key, data, len(data), now.UnixNano())
	if err != nil {
		return out.ObjectInfo{}, fmt.Errorf("failed to put object: %w", err)
	}

	s.log.Debug().
		Str(zerowrap.FieldLayer, "adapter").
		Str(zerowrap.FieldAdapter, "sqlite").
		Str("key", key).
		Int(zerowrap.FieldSize, len(data)).
		Msg("object stored")

	return out.ObjectInfo{Key: key, Size: int64(len(data)), ModTime: now}, nil
}

// Delete removes the row if present.
func (s *Storage) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM objects WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

// List scans keys from prefix onwards in key order and stops at the first
// key outside the prefix.
func (s *Storage) List(ctx context.Context, prefix string) ([]out.ObjectInfo, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, size, mod_time FROM objects WHERE key >= ? ORDER BY key`, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list objects: %w", err)
	}
	defer rows.Close()

	infos := make([]out.ObjectInfo, 0)
	for rows.Next() {
		var (
			info    out.ObjectInfo
			modTime int64
		)
		if err := rows.Scan(&info.Key, &info.Size, &modTime); err != nil {
			return nil, fmt.Errorf("failed to scan object: %w", err)
		}
		if !strings.HasPrefix(info.Key, prefix) {
			break
		}
		info.ModTime = time.Unix(0, modTime)
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list objects: %w", err)
	}
	return infos, nil
}

func notFound(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrObjectNotFound
	}
	return fmt.Errorf("failed to %s object: %w", op, err)
}
