package logx

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

type ctxKey struct{}

var (
	mu         sync.Mutex
	baseLogger *slog.Logger
)

// Init installs the process logger. level is debug|info|warn|error,
// format is text|json. Logs go to stderr so stdout stays clean for
// extracted content.
func Init(level, format string) *slog.Logger {
	return InitWriter(os.Stderr, level, format)
}

func InitWriter(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	l := slog.New(handler).With("app", "kaextract")

	mu.Lock()
	baseLogger = l
	mu.Unlock()

	slog.SetDefault(l)
	return l
}

// Discard silences all logging, used by --quiet.
func Discard() *slog.Logger {
	return InitWriter(io.Discard, "error", "text")
}

func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

// FromContext returns the request-scoped logger or the base logger.
func FromContext(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && l != nil {
			return l
		}
	}
	return base()
}

// With returns a context carrying a logger with the extra attributes.
func With(ctx context.Context, args ...any) context.Context {
	l := FromContext(ctx).With(args...)
	return context.WithValue(ctx, ctxKey{}, l)
}

func base() *slog.Logger {
	mu.Lock()
	defer mu.Unlock()
	if baseLogger == nil {
		return slog.Default()
	}
	return baseLogger
}
