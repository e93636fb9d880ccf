package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/lepinkainen/humanlog"
	"github.com/phrazzld/querykit/internal/config"
)

// Setup initializes and configures the application's logging system based on
// the provided configuration, writing to stdout, and sets the result as the
// default logger for the application.
func Setup(cfg config.LogConfig) (*slog.Logger, error) {
	logger, err := New(os.Stdout, cfg)
	if err != nil {
		return nil, err
	}

	// Set this logger as the default for the application
	// This allows using the slog package functions directly (slog.Info, slog.Error, etc.)
	slog.SetDefault(logger)
	return logger, nil
}

// New builds a logger writing to out. Format "json" (the default) and "text"
// use the slog handlers; "human" uses the colourised humanlog handler meant
// for interactive terminals.
func New(out io.Writer, cfg config.LogConfig) (*slog.Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "", "json":
		handler = slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level})
	case "text":
		handler = slog.NewTextHandler(out, &slog.HandlerOptions{Level: level})
	case "human":
		handler = humanlog.NewHandler(out, &humanlog.Options{Level: level})
	default:
		return nil, fmt.Errorf("unknown log format %q (expected json, text or human)", cfg.Format)
	}
	return slog.New(handler), nil
}

// ParseLevel parses a level name case-insensitively. An empty name is info.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", name)
	}
}
