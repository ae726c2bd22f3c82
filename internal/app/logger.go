package app

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Log formats accepted by newLogger.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// newLogger builds the application's isolated logger. Empty values select
// the info level and the text format; anything else that is not a known
// level or format is an error.
func newLogger(levelStr, formatStr string, outW io.Writer) (*slog.Logger, error) {
	level := slog.LevelInfo
	if levelStr != "" {
		if err := level.UnmarshalText([]byte(levelStr)); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", levelStr, err)
		}
	}

	opts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(formatStr) {
	case "", LogFormatText:
		return slog.New(slog.NewTextHandler(outW, opts)), nil
	case LogFormatJSON:
		return slog.New(slog.NewJSONHandler(outW, opts)), nil
	default:
		return nil, fmt.Errorf("invalid log format %q: must be %q or %q", formatStr, LogFormatText, LogFormatJSON)
	}
}
