// Package logging configures the process-wide slog logger used by the USB
// transport and the command-line tool.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Component identifies a subsystem for log filtering.
type Component string

const (
	ComponentUSB     Component = "usb"
	ComponentSession Component = "session"
	ComponentCLI     Component = "cli"
	ComponentScript  Component = "script"
)

// Format selects the handler used for output.
type Format int

const (
	FormatText Format = iota
	FormatJSON
)

var (
	level = new(slog.LevelVar)

	mu     sync.RWMutex
	logger *slog.Logger
)

func init() {
	level.Set(slog.LevelWarn)
	logger = newLogger(os.Stderr, FormatText)
}

func newLogger(w io.Writer, format Format) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if format == FormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// ParseLevel accepts debug, info, warn/warning and error, case-insensitively.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("logging: unknown level %q", s)
}

// ParseFormat accepts text or json.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text", "":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	}
	return 0, fmt.Errorf("logging: unknown format %q", s)
}

// SetLevel sets the minimum level for every logger handed out by this package.
func SetLevel(l slog.Level) {
	level.Set(l)
}

// Level reports the current minimum level.
func Level() slog.Level {
	return level.Level()
}

// Setup replaces the process logger with one writing to w in format.
func Setup(w io.Writer, format Format) {
	mu.Lock()
	defer mu.Unlock()
	logger = newLogger(w, format)
}

// Configure parses level and format names and installs the logger.
func Configure(w io.Writer, levelName, formatName string) error {
	l, err := ParseLevel(levelName)
	if err != nil {
		return err
	}
	f, err := ParseFormat(formatName)
	if err != nil {
		return err
	}
	SetLevel(l)
	Setup(w, f)
	return nil
}

// For returns the process logger tagged with component.
func For(c Component) *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger.With("component", string(c))
}

// Debug logs at debug level under component c.
func Debug(c Component, msg string, args ...any) {
	For(c).Debug(msg, args...)
}

// Info logs at info level under component c.
func Info(c Component, msg string, args ...any) {
	For(c).Info(msg, args...)
}

// Warn logs at warn level under component c.
func Warn(c Component, msg string, args ...any) {
	For(c).Warn(msg, args...)
}
