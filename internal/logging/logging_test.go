// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/bookbrowser/pkg/types"
)

func TestNewWithoutFileIsNop(t *testing.T) {
	logger, err := New(types.LogConfig{Level: "debug"})
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(-1), "nop logger enables nothing")
}

func TestNewWritesJSONAtLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "bookbrowser.log")
	logger, err := New(types.LogConfig{File: path, Level: "warn"})
	require.NoError(t, err)

	logger.Info("dropped")
	logger.Warn("kept")
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "kept", entry["msg"])
	assert.Equal(t, "warn", entry["level"])
	assert.Contains(t, entry, "ts")
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(types.LogConfig{File: filepath.Join(t.TempDir(), "x.log"), Level: "loud"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing log level")
}
