package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/retail-payment-ledger/internal/config"
)

// NewLogger creates the JSON slog.Logger shared by every component of a service
func NewLogger(cfg *config.Config) *slog.Logger {
	return newLogger(cfg, os.Stdout)
}

func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	level := ParseLevel(cfg.Logging.Level)

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	logger := slog.New(slog.NewJSONHandler(w, opts))
	if cfg.Application.Name != "" {
		logger = logger.With("service", cfg.Application.Name)
	}

	logger.Info("logger initialized", "level", level)

	return logger
}

// ParseLevel maps a configured level name to a slog.Level, defaulting to info
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
