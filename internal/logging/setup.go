package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/bnema/zerowrap"

	"github.com/bnema/hangar/internal/config"
)

// Setup builds the process logger from cfg, writing to stderr and, when
// cfg.File is set, to a rotating file. The returned function flushes and
// closes the log file.
func Setup(cfg config.LoggingConfig) (zerowrap.Logger, func(), error) {
	return New(cfg, os.Stderr)
}

// New is Setup with an explicit console destination.
func New(cfg config.LoggingConfig, console io.Writer) (zerowrap.Logger, func(), error) {
	noop := func() {}

	logConfig := zerowrap.Config{
		Level:  cfg.Level,
		Format: cfg.Format,
		Output: console,
	}

	if cfg.File == "" {
		return zerowrap.New(logConfig), noop, nil
	}

	// Owner-only directory for log files
	if err := os.MkdirAll(filepath.Dir(cfg.File), 0700); err != nil {
		return zerowrap.Default(), noop, fmt.Errorf("failed to create logs directory: %w", err)
	}

	log, cleanup, err := zerowrap.NewWithFile(logConfig, zerowrap.FileConfig{
		Enabled:    true,
		Path:       cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	})
	if err != nil {
		return zerowrap.Default(), noop, fmt.Errorf("failed to create logger with file: %w", err)
	}
	if cleanup == nil {
		cleanup = noop
	}
	return log, cleanup, nil
}
