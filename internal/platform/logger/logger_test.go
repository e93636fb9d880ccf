package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/phrazzld/querykit/internal/config"
	"github.com/phrazzld/querykit/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseLogEntry(t *testing.T, line string) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &entry))
	return entry
}

func TestNewJSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log, err := logger.New(&buf, config.LogConfig{Level: "warn", Format: "json"})
	require.NoError(t, err)

	log.Info("hidden")
	log.Warn("shown", slog.String("component", "test"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1, "info is below the configured level")
	entry := parseLogEntry(t, lines[0])
	assert.Equal(t, "shown", entry["msg"])
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "test", entry["component"])
}

func TestNewFormats(t *testing.T) {
	t.Parallel()

	tests := []struct {
		format  string
		wantErr bool
	}{
		{"json", false},
		{"text", false},
		{"human", false},
		{"", false},
		{"xml", true},
	}
	for _, tc := range tests {
		t.Run(tc.format, func(t *testing.T) {
			var buf bytes.Buffer
			log, err := logger.New(&buf, config.LogConfig{Level: "info", Format: tc.format})
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			log.Info("hello")
			assert.Contains(t, buf.String(), "hello")
		})
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"Warn", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tc := range tests {
		got, err := logger.ParseLevel(tc.name)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got)
	}

	_, err := logger.ParseLevel("fatal")
	assert.Error(t, err)
}

func TestContextLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil))
	fallback := slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil))

	assert.Same(t, fallback, logger.FromContextOrDefault(context.Background(), fallback))

	ctx := logger.WithLogger(context.Background(), base.With(slog.String("tx_id", "abc")))
	logger.FromContextOrDefault(ctx, fallback).Info("in transaction")

	entry := parseLogEntry(t, strings.TrimSpace(buf.String()))
	assert.Equal(t, "abc", entry["tx_id"])
	assert.NotNil(t, logger.FromContext(context.Background()))
}
