package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/bnema/zerowrap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/hangar/internal/config"
)

func TestNew_JSONConsole(t *testing.T) {
	var buf bytes.Buffer

	logger, cleanup, err := New(config.LoggingConfig{Level: "debug", Format: "json"}, &buf)
	require.NoError(t, err)
	defer cleanup()

	logger.Debug().Str("key", "value").Msg("hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hello", entry["message"])
	assert.Equal(t, "value", entry["key"])
	assert.Equal(t, "debug", entry["level"])
}

func TestNew_LevelFilters(t *testing.T) {
	var buf bytes.Buffer

	logger, cleanup, err := New(config.LoggingConfig{Level: "warn", Format: "json"}, &buf)
	require.NoError(t, err)
	defer cleanup()

	logger.Info().Msg("dropped")
	assert.Empty(t, buf.String())
}

func TestNew_FileOutput(t *testing.T) {
	tempDir := t.TempDir()
	logFile := filepath.Join(tempDir, "logs", "hangar.log")

	logger, cleanup, err := New(config.LoggingConfig{
		Level:      "info",
		Format:     "json",
		File:       logFile,
		MaxSizeMB:  1,
		MaxBackups: 1,
		MaxAgeDays: 1,
	}, &bytes.Buffer{})
	require.NoError(t, err)

	logger.Info().Msg("to file")
	cleanup()

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "to file")
}

func TestContextFields(t *testing.T) {
	var buf bytes.Buffer
	logger, cleanup, err := New(config.LoggingConfig{Level: "info", Format: "json"}, &buf)
	require.NoError(t, err)
	defer cleanup()

	ctx := zerowrap.WithCtx(context.Background(), logger)
	ctx = zerowrap.CtxWithFields(ctx, map[string]any{
		zerowrap.FieldLayer: "usecase",
		FieldRepository:     "library/alpine",
	})
	ctx = zerowrap.CtxWithField(ctx, FieldUploadID, "abc")

	zerowrap.Ctx(ctx).Info().Msg("enriched")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "usecase", entry[zerowrap.FieldLayer])
	assert.Equal(t, "library/alpine", entry[FieldRepository])
	assert.Equal(t, "abc", entry[FieldUploadID])
}
