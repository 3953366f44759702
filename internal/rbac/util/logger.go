package util

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

var Logger *slog.Logger

// InitLogger installs the process logger. format is "json" or "text"; level
// is one of debug, info, warn, error.
func InitLogger(format, level string) {
	Logger = slog.New(newHandler(os.Stdout, format, level))
	slog.SetDefault(Logger)
}

func newHandler(w io.Writer, format, level string) slog.Handler {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	if strings.EqualFold(format, "text") {
		return slog.NewTextHandler(w, opts)
	}
	// JSON for production
	return slog.NewJSONHandler(w, opts)
}

func parseLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}

func GetLogger() *slog.Logger {
	if Logger == nil {
		InitLogger("json", "info")
	}
	return Logger
}
