package logger

import (
	"log/slog"
	"os"
	"strings"
)

// New returns the service's structured JSON logger. The level comes from
// SAPPHIRE_LOG_LEVEL (debug, info, warn, error); anything unset or
// unrecognized falls back to info so a typo never silences the logs.
func New() *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: levelFromEnv(),
	}
	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler).With("service", "sapphire")
}

func levelFromEnv() slog.Level {
	switch strings.ToLower(os.Getenv("SAPPHIRE_LOG_LEVEL")) {
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
