// Package logger wraps the standard log package with a debug switch and
// request-id tagging so concurrent triage requests can be told apart.
package logger

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
)

type ctxKey struct{}

var (
	mu    sync.RWMutex
	debug bool
	std   = log.New(os.Stderr, "", log.LstdFlags)
)

// SetLevel enables debug output for "debug"; any other level keeps it off.
func SetLevel(level string) {
	mu.Lock()
	defer mu.Unlock()
	debug = strings.EqualFold(strings.TrimSpace(level), "debug")
}

// IsDebug returns true if debug output is enabled.
func IsDebug() bool {
	mu.RLock()
	defer mu.RUnlock()
	return debug
}

// SetOutput sets the output writer. Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	std.SetOutput(w)
}

// WithRequestID returns a context carrying the request id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// RequestID returns the request id stored in ctx, or "".
func RequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// Debug prints a message if debug output is enabled.
func Debug(ctx context.Context, format string, args ...any) {
	if !IsDebug() {
		return
	}
	write(ctx, "[DEBUG] ", format, args...)
}

// Info prints an informational message.
func Info(ctx context.Context, format string, args ...any) {
	write(ctx, "", format, args...)
}

// Warn prints a warning.
func Warn(ctx context.Context, format string, args ...any) {
	write(ctx, "⚠️  ", format, args...)
}

// Error prints an error.
func Error(ctx context.Context, format string, args ...any) {
	write(ctx, "❌ ", format, args...)
}

func write(ctx context.Context, prefix, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if id := RequestID(ctx); id != "" {
		msg = "[req " + id + "] " + msg
	}

	mu.RLock()
	defer mu.RUnlock()
	std.Print(prefix + msg)
}

// Truncate shortens s to at most n bytes for log output.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
