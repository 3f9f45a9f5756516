package config

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// NewLogger writes text records to stdout and, when LogFile is set, to that
// file as well. If the file cannot be opened the logger falls back to
// stdout and says so. The returned closer releases the file.
func (c *Config) NewLogger() (*slog.Logger, io.Closer) {
	return newLogger(os.Stdout, c.LogFile, c.LogLevel)
}

func newLogger(stdout io.Writer, path, level string) (*slog.Logger, io.Closer) {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	if path == "" {
		return slog.New(slog.NewTextHandler(stdout, opts)), io.NopCloser(nil)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		l := slog.New(slog.NewTextHandler(stdout, opts))
		l.Error("failed to open log file", "path", path, "err", err)
		return l, io.NopCloser(nil)
	}
	mw := io.MultiWriter(stdout, f)
	return slog.New(slog.NewTextHandler(mw, opts)), f
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
