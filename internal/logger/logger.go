package logger

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/lmittmann/tint"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/evanofslack/dyndns/internal/config"
)

// Configure installs the default slog logger. Logs go to stderr so stdout
// stays reserved for command output; when cfg.File is set they are written
// to that file instead, rotated if cfg.Rotate is set.
func Configure(cfg config.Log) io.Closer {
	level := parseLogLevel(cfg.Level)
	w, closer := output(cfg)

	slog.SetDefault(slog.New(newHandler(w, cfg.Env, level)))
	return closer
}

func newHandler(w io.Writer, env string, level slog.Level) slog.Handler {
	if env == "dev" || env == "development" {
		return tint.NewHandler(w, &tint.Options{Level: level})
	}
	return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
}

func output(cfg config.Log) (io.Writer, io.Closer) {
	if cfg.File == "" {
		return os.Stderr, nopCloser{}
	}
	if cfg.Rotate != nil {
		l := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.Rotate.MaxSize,
			MaxAge:     cfg.Rotate.MaxAge,
			MaxBackups: cfg.Rotate.MaxBackups,
			Compress:   cfg.Rotate.Compress,
			LocalTime:  true,
		}
		return l, l
	}

	if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
		slog.Default().Warn("fail create log directory, logging to stderr", "path", cfg.File, "error", err)
		return os.Stderr, nopCloser{}
	}
	f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		slog.Default().Warn("fail open log file, logging to stderr", "path", cfg.File, "error", err)
		return os.Stderr, nopCloser{}
	}
	return f, f
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
