// Package logger provides leveled logging for the anime-dubber application.
//
// There is no package-level default logger: a *Logger is built once from
// configuration and handed to every component that logs.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Level represents the severity of a log message.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String returns the string representation of the log level.
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

// ParseLevel converts a config string ("debug", "info", ...) to a Level.
// Unknown values fall back to LevelInfo.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Logger writes timestamped, leveled lines to an io.Writer.
type Logger struct {
	level  Level
	output io.Writer
	mu     sync.Mutex
	now    func() time.Time
}

// New creates a new logger with the specified level and output.
func New(level Level, output io.Writer) *Logger {
	if output == nil {
		output = io.Discard
	}
	return &Logger{
		level:  level,
		output: output,
		now:    time.Now,
	}
}

// Discard returns a logger that drops everything. Useful in tests.
func Discard() *Logger {
	return New(LevelError+1, io.Discard)
}

// Open builds a logger that writes to stderr and, when path is non-empty,
// also appends to the file at path. The returned close func releases the file.
func Open(level Level, path string) (*Logger, func() error, error) {
	if path == "" {
		return New(level, os.Stderr), func() error { return nil }, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file %s: %w", path, err)
	}
	return New(level, io.MultiWriter(os.Stderr, f)), f.Close, nil
}

// SetLevel changes the minimum level.
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// log writes a log message with the given level.
func (l *Logger) log(level Level, format string, args ...interface{}) {
	if l == nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if level < l.level {
		return
	}

	msg := fmt.Sprintf(format, args...)
	timestamp := l.now().Format("15:04:05")
	fmt.Fprintf(l.output, "[%s] %s: %s\n", timestamp, level.String(), msg)
}

// Debug logs a debug message.
func (l *Logger) Debug(format string, args ...interface{}) {
	l.log(LevelDebug, format, args...)
}

// Info logs an informational message.
func (l *Logger) Info(format string, args ...interface{}) {
	l.log(LevelInfo, format, args...)
}

// Warn logs a warning message.
func (l *Logger) Warn(format string, args ...interface{}) {
	l.log(LevelWarn, format, args...)
}

// Error logs an error message.
func (l *Logger) Error(format string, args ...interface{}) {
	l.log(LevelError, format, args...)
}
