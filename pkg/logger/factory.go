package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Format selects the record encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// Config controls the logger built by New.
type Config struct {
	// Output defaults to os.Stdout.
	Output io.Writer
	Format Format
	Level  slog.Level
}

// New creates a logger with context extractors. The zero Config writes
// JSON at info level to stdout.
func New(cfg Config, extractors ...ContextExtractor) *slog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	opts := &slog.HandlerOptions{Level: cfg.Level}

	var h slog.Handler
	switch cfg.Format {
	case FormatText:
		h = slog.NewTextHandler(out, opts)
	default:
		h = slog.NewJSONHandler(out, opts)
	}
	return slog.New(NewContextHandler(h, extractors...))
}

// ParseLevel accepts debug, info, warn and error in any case.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("logger: invalid level %q: %w", s, err)
	}
	return l, nil
}
