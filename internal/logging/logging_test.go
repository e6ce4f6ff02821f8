package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJSONOmitsTime(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, Options{Level: "debug", OmitTime: true})
	require.NoError(t, err)
	logger.Debug("style skipped", "style", "large")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "style skipped", rec["msg"])
	assert.Equal(t, "large", rec["style"])
	assert.NotContains(t, rec, "time")
}

func TestNewTextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, Options{Format: "TEXT"})
	require.NoError(t, err)
	logger.Info("ready")
	assert.Contains(t, buf.String(), "msg=ready")
}

func TestSetLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, Options{})
	require.NoError(t, err)
	logger.Debug("hidden")
	assert.Empty(t, buf.String())

	logger.SetLevel(slog.LevelDebug)
	assert.Equal(t, slog.LevelDebug, logger.Level())
	logger.Debug("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"":        slog.LevelInfo,
		"debug":   slog.LevelDebug,
		"WARNING": slog.LevelWarn,
		" error ": slog.LevelError,
	} {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	level, err := ParseLevel("loud")
	assert.ErrorIs(t, err, ErrInvalidLevel)
	assert.Equal(t, slog.LevelInfo, level)
}
