package logger

import (
	"context"
	"log/slog"

	"github.com/go-co-op/gocron/v2"
)

// gocronLogger routes scheduler logs through slog.
type gocronLogger struct {
	log *slog.Logger
}

// NewGocronLogger returns a gocron.Logger writing to log.
//
//nolint:ireturn // gocron.WithLogger takes the interface
func NewGocronLogger(log *slog.Logger) gocron.Logger {
	return gocronLogger{log: log.With("source", "gocron")}
}

func (l gocronLogger) Debug(msg string, args ...any) { l.emit(slog.LevelDebug, msg, args) }
func (l gocronLogger) Info(msg string, args ...any)  { l.emit(slog.LevelInfo, msg, args) }
func (l gocronLogger) Warn(msg string, args ...any)  { l.emit(slog.LevelWarn, msg, args) }
func (l gocronLogger) Error(msg string, args ...any) { l.emit(slog.LevelError, msg, args) }

func (l gocronLogger) emit(level slog.Level, msg string, args []any) {
	l.log.Log(context.Background(), level, msg, args...)
}
