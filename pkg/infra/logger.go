package infra

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/Guizzs26/scorebook-sync/internal/config"
)

var logFile *os.File

func SetupLogger(cfg *config.Config) *slog.Logger {
	return slog.New(NewHandler(cfg, os.Stderr))
}

// NewHandler builds the slog handler for cfg writing to out, tee'd into
// cfg.LogFile when one is configured.
func NewHandler(cfg *config.Config, out io.Writer) slog.Handler {
	var level slog.Level
	switch strings.ToUpper(cfg.LogLevel) {
	case "DEBUG":
		level = slog.LevelDebug
	case "WARN":
		level = slog.LevelWarn
	case "ERROR":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	w := out
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err == nil {
			logFile = f
			w = io.MultiWriter(out, f)
		}
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.ToUpper(cfg.LogFormat) == "JSON" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// CloseLogger releases the log file opened by SetupLogger, if any.
func CloseLogger() {
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
}
