package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"invalid", slog.LevelInfo}, // Defaults to info
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseLevel(tt.level))
		})
	}
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	log := New("warn", "json", &buf)

	log.Info("dropped")
	log.Warn("kept", "unit", "kg")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "kept", entry["msg"])
	assert.Equal(t, "kg", entry["unit"])
	assert.False(t, log.Enabled(context.Background(), slog.LevelInfo))
}

func TestNewText(t *testing.T) {
	var buf bytes.Buffer
	log := New("debug", "text", &buf)

	log.Debug("hello", "n", 1)

	assert.Contains(t, buf.String(), "msg=hello")
	assert.Contains(t, buf.String(), "n=1")
}

func TestNewDefaultsToStderr(t *testing.T) {
	assert.NotNil(t, New("info", "", nil))
}
