// Package debug carries the --debug switch through contexts and configures
// the process logger.
package debug

import (
	"context"
	"io"
	"log/slog"
	"strings"
)

type debugKey struct{}

// Redacted replaces the value of sensitive log attributes.
const Redacted = "[redacted]"

// WithDebug returns a context with debug mode enabled/disabled.
func WithDebug(ctx context.Context, enabled bool) context.Context {
	return context.WithValue(ctx, debugKey{}, enabled)
}

// IsEnabled returns true if debug mode is enabled in the context.
func IsEnabled(ctx context.Context) bool {
	v, _ := ctx.Value(debugKey{}).(bool)
	return v
}

// SetupLogger installs a text logger on w as the slog default. Debug mode
// lowers the level from warn to debug. Credentials never reach the output.
func SetupLogger(w io.Writer, debugEnabled bool) {
	level := slog.LevelWarn
	if debugEnabled {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: redact,
	})))
}

func redact(_ []string, a slog.Attr) slog.Attr {
	switch strings.ToLower(a.Key) {
	case "authorization", "token", "password", "auth_token":
		return slog.String(a.Key, Redacted)
	}
	return a
}
