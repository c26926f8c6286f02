package observability

import (
	"io"
	"log/slog"
	"strings"

	"github.com/ahrav/go-ptescore/internal/llm/configuration"
)

// NewLogger builds the process logger from configuration. Unknown levels
// fall back to info and unknown formats to JSON.
func NewLogger(w io.Writer, cfg configuration.ObservabilityConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.LogLevel)}

	var h slog.Handler
	if strings.EqualFold(cfg.LogFormat, "text") {
		h = slog.NewTextHandler(w, opts)
	} else {
		h = slog.NewJSONHandler(w, opts)
	}
	return slog.New(h)
}

// ParseLevel maps a level name to slog.Level.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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
