// Package logging configures the process-wide structured logger. The
// core packages log through the slog default, so Setup must run before
// any use case is constructed.
package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Setup builds the JSON logger for the service and installs it as the
// slog default. Returns the logger for call sites that want explicit
// injection.
func Setup(service, level string) *slog.Logger {
	logger := NewJSONLogger(service, level)
	slog.SetDefault(logger)
	return logger
}

func NewJSONLogger(service, level string) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(level),
	})
	return slog.New(handler).With("service", service)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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
