package app

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/bnema/zerowrap"

	"github.com/bnema/hangar/internal/adapters/out/boltdb"
	"github.com/bnema/hangar/internal/adapters/out/filesystem"
	"github.com/bnema/hangar/internal/adapters/out/memory"
	"github.com/bnema/hangar/internal/adapters/out/sqlite"
	"github.com/bnema/hangar/internal/boundaries/out"
	"github.com/bnema/hangar/internal/config"
)

// openStorage opens the configured object storage backend. The returned
// closer is nil for backends without resources to release.
func openStorage(cfg config.StorageConfig, log zerowrap.Logger) (out.ObjectStorage, io.Closer, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return memory.NewStorage(), nil, nil

	case config.BackendFilesystem:
		s, err := filesystem.NewStorage(filepath.Join(cfg.DataDir, "registry"), log)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create filesystem storage: %w", err)
		}
		return s, nil, nil

	case config.BackendBolt:
		s, err := boltdb.Open(cfg.DataDir, log)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open bolt storage: %w", err)
		}
		return s, s, nil

	case config.BackendSQLite:
		s, err := sqlite.Open(cfg.DataDir, log)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open sqlite storage: %w", err)
		}
		return s, s, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage backend: %s", cfg.Backend)
	}
}
