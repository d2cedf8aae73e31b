package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync/atomic"
)

// contextKey is a type for context keys to avoid collisions
type contextKey string

const (
	requestIDKey contextKey = "requestID"
	runIDKey     contextKey = "runID"
)

// LevelTrace sits below debug and is used for per-message transport chatter.
const LevelTrace = slog.LevelDebug - 4

var logger atomic.Pointer[slog.Logger]

func init() {
	// Compact handler for readable console output by default
	logger.Store(slog.New(NewCompactHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))
}

// Options selects the handler installed by Configure.
type Options struct {
	Level slog.Level
	JSON  bool
	Out   io.Writer // defaults to os.Stdout
}

// Configure replaces the package logger.
func Configure(opts Options) {
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	hopts := &slog.HandlerOptions{Level: opts.Level}
	var h slog.Handler
	if opts.JSON {
		h = slog.NewJSONHandler(out, hopts)
	} else {
		h = NewCompactHandler(out, hopts)
	}
	logger.Store(slog.New(h))
}

// SetLevel changes the logging level
func SetLevel(level slog.Level) {
	Configure(Options{Level: level})
}

// SetJSONOutput switches to JSON format output
func SetJSONOutput(level slog.Level) {
	Configure(Options{Level: level, JSON: true})
}

// LevelFromVerbosity maps -v counts onto slog levels: 0 info, 1 debug, 2+ trace.
func LevelFromVerbosity(v int) slog.Level {
	switch {
	case v <= 0:
		return slog.LevelInfo
	case v == 1:
		return slog.LevelDebug
	default:
		return LevelTrace
	}
}

// With returns a logger carrying the given attributes, for components that
// log the same fields on every line (rank, phase).
func With(args ...any) *slog.Logger {
	return logger.Load().With(args...)
}

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// GetRequestID retrieves the request ID from context
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(requestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// WithRunID tags the context with the id of a build run.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey, runID)
}

// GetRunID retrieves the run ID from context
func GetRunID(ctx context.Context) string {
	if runID, ok := ctx.Value(runIDKey).(string); ok {
		return runID
	}
	return ""
}

// withContextIDs prepends request and run ids to log attributes if present
func withContextIDs(ctx context.Context, args []any) []any {
	if runID := GetRunID(ctx); runID != "" {
		args = append([]any{"runID", runID}, args...)
	}
	if requestID := GetRequestID(ctx); requestID != "" {
		args = append([]any{"requestID", requestID}, args...)
	}
	return args
}

// ContextAttrs returns the request and run ids carried by ctx as log
// attributes, for use with component loggers from With.
func ContextAttrs(ctx context.Context) []any {
	return withContextIDs(ctx, nil)
}

// Trace logs at TRACE level (very verbose, debug-time only)
func Trace(msg string, args ...any) {
	logger.Load().Log(context.Background(), LevelTrace, msg, args...)
}

// TraceContext logs at TRACE level with context
func TraceContext(ctx context.Context, msg string, args ...any) {
	logger.Load().Log(ctx, LevelTrace, msg, withContextIDs(ctx, args)...)
}

// Debug logs at DEBUG level (internal component behavior)
func Debug(msg string, args ...any) {
	logger.Load().Debug(msg, args...)
}

// DebugContext logs at DEBUG level with context
func DebugContext(ctx context.Context, msg string, args ...any) {
	logger.Load().DebugContext(ctx, msg, withContextIDs(ctx, args)...)
}

// Info logs at INFO level (user-facing operations)
func Info(msg string, args ...any) {
	logger.Load().Info(msg, args...)
}

// InfoContext logs at INFO level with context
func InfoContext(ctx context.Context, msg string, args ...any) {
	logger.Load().InfoContext(ctx, msg, withContextIDs(ctx, args)...)
}

// Warn logs at WARN level (should be monitored)
func Warn(msg string, args ...any) {
	logger.Load().Warn(msg, args...)
}

// WarnContext logs at WARN level with context
func WarnContext(ctx context.Context, msg string, args ...any) {
	logger.Load().WarnContext(ctx, msg, withContextIDs(ctx, args)...)
}

// Error logs at ERROR level
func Error(msg string, args ...any) {
	logger.Load().Error(msg, args...)
}

// ErrorContext logs at ERROR level with context
func ErrorContext(ctx context.Context, msg string, args ...any) {
	logger.Load().ErrorContext(ctx, msg, withContextIDs(ctx, args)...)
}

// Fatal logs at ERROR level and exits
func Fatal(msg string, args ...any) {
	logger.Load().Error(msg, args...)
	os.Exit(1)
}
