// Package logger provides the client's structured logging facility,
// adapted from the teacher's internal/logger package: a package-level
// slog.Logger behind atomics for level/format, reconfigurable at
// runtime. spec.md §1 lists "the logging facility" as an external
// collaborator — this package is the ambient stack around that
// collaborator (config, levels, context fields), not the collaborator
// itself.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
)

// Level mirrors slog's levels with client-facing names.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Config controls logger output.
type Config struct {
	Level  string // DEBUG, INFO, WARN, ERROR
	Format string // text, json
}

var (
	currentLevel  atomic.Int32
	currentFormat atomic.Value

	mu      sync.RWMutex
	slogger *slog.Logger
	output  io.Writer = os.Stderr
)

func init() {
	currentLevel.Store(int32(LevelInfo))
	currentFormat.Store("text")
	reconfigure()
}

func toSlogLevel(l Level) slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func reconfigure() {
	mu.Lock()
	defer mu.Unlock()

	level := Level(currentLevel.Load())
	format, _ := currentFormat.Load().(string)

	opts := &slog.HandlerOptions{Level: toSlogLevel(level)}

	var h slog.Handler
	if format == "json" {
		h = slog.NewJSONHandler(output, opts)
	} else {
		h = slog.NewTextHandler(output, opts)
	}
	slogger = slog.New(h)
}

// Init (re)configures the package-level logger.
func Init(cfg Config) {
	if cfg.Level != "" {
		switch strings.ToUpper(cfg.Level) {
		case "DEBUG":
			currentLevel.Store(int32(LevelDebug))
		case "WARN":
			currentLevel.Store(int32(LevelWarn))
		case "ERROR":
			currentLevel.Store(int32(LevelError))
		default:
			currentLevel.Store(int32(LevelInfo))
		}
	}
	if cfg.Format != "" {
		currentFormat.Store(strings.ToLower(cfg.Format))
	}
	reconfigure()
}

// SetOutput redirects log output (used by tests).
func SetOutput(w io.Writer) {
	mu.Lock()
	output = w
	mu.Unlock()
	reconfigure()
}

func get() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return slogger
}

// Debug logs at debug level.
func Debug(msg string, args ...any) { get().Debug(msg, args...) }

// Info logs at info level.
func Info(msg string, args ...any) { get().Info(msg, args...) }

// Warn logs at warn level.
func Warn(msg string, args ...any) { get().Warn(msg, args...) }

// Error logs at error level.
func Error(msg string, args ...any) { get().Error(msg, args...) }

// DebugCtx/InfoCtx/WarnCtx/ErrorCtx log with LogContext fields (if
// present on ctx) flattened into the structured attributes.
func DebugCtx(ctx context.Context, msg string, args ...any) {
	get().Debug(msg, withCtx(ctx, args)...)
}
func InfoCtx(ctx context.Context, msg string, args ...any) {
	get().Info(msg, withCtx(ctx, args)...)
}
func WarnCtx(ctx context.Context, msg string, args ...any) {
	get().Warn(msg, withCtx(ctx, args)...)
}
func ErrorCtx(ctx context.Context, msg string, args ...any) {
	get().Error(msg, withCtx(ctx, args)...)
}

func withCtx(ctx context.Context, args []any) []any {
	lc := FromContext(ctx)
	if lc == nil {
		return args
	}
	out := make([]any, 0, len(args)+8)
	out = append(out, args...)
	if lc.ConnectionID != 0 {
		out = append(out, "connection_id", lc.ConnectionID)
	}
	if lc.SessionID != 0 {
		out = append(out, "session_id", lc.SessionID)
	}
	if lc.Endpoint != "" {
		out = append(out, "endpoint", lc.Endpoint)
	}
	return out
}
