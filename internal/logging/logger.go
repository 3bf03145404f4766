package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger is the global logger instance used throughout the application.
var Logger *slog.Logger

func init() {
	InitLogger("")
}

// InitLogger initializes the global logger writing to stderr.
// Log level is controlled by the argument, falling back to the LOG_LEVEL
// environment variable (debug, info, warn, error) and then to info.
func InitLogger(logLevel string) {
	Logger = New(os.Stderr, logLevel)
}

// New builds a text logger for w at the given level name.
func New(w io.Writer, logLevel string) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: ParseLevel(logLevel),
	}))
}

// ParseLevel maps a level name to a slog.Level. An empty name reads LOG_LEVEL;
// unknown names yield info.
func ParseLevel(logLevel string) slog.Level {
	if logLevel == "" {
		if logLevel = os.Getenv("LOG_LEVEL"); logLevel == "" {
			logLevel = "info"
		}
	}

	switch strings.ToLower(strings.TrimSpace(logLevel)) {
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
