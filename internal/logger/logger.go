// Package logger is a thin process-wide wrapper around log/slog.
package logger

import (
	"io"
	"log/slog"
	"os"
)

var log *slog.Logger

func init() {
	level := slog.LevelInfo
	if os.Getenv("SM_DEBUG") == "true" {
		level = slog.LevelDebug
	}
	SetOutput(os.Stderr, level)
}

// SetOutput redirects log output, e.g. to silence logs in tests.
func SetOutput(w io.Writer, level slog.Level) {
	opts := &slog.HandlerOptions{Level: level}
	log = slog.New(slog.NewTextHandler(w, opts))
}

func Debug(msg string, args ...any) {
	log.Debug(msg, args...)
}

func Info(msg string, args ...any) {
	log.Info(msg, args...)
}

func Warn(msg string, args ...any) {
	log.Warn(msg, args...)
}

func Error(msg string, args ...any) {
	log.Error(msg, args...)
}
