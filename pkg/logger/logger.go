// Package logger provides a small component-tagged logging facade over slog.
// Call sites log with a component name plus an optional structured fields map,
// which keeps log lines greppable per subsystem (memory, trace, agent, ...).
package logger

import (
	"log/slog"
	"os"
	"sync/atomic"
)

// Level mirrors slog levels with friendlier names for config values.
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

var (
	current atomic.Int32
	base    atomic.Pointer[slog.Logger]
)

func init() {
	current.Store(int32(INFO))
	base.Store(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
}

// SetLevel changes the global minimum level.
func SetLevel(l Level) {
	current.Store(int32(l))
}

// SetOutput replaces the backing slog logger, e.g. for JSON output or tests.
func SetOutput(l *slog.Logger) {
	if l != nil {
		base.Store(l)
	}
}

func enabled(l Level) bool {
	return int32(l) >= current.Load()
}

func attrs(component string, fields map[string]interface{}) []any {
	out := make([]any, 0, 2+2*len(fields))
	out = append(out, "component", component)
	for k, v := range fields {
		out = append(out, k, v)
	}
	return out
}

// DebugC logs a debug message for a component.
func DebugC(component, msg string) {
	DebugCF(component, msg, nil)
}

// DebugCF logs a debug message with structured fields.
func DebugCF(component, msg string, fields map[string]interface{}) {
	if enabled(DEBUG) {
		base.Load().Debug(msg, attrs(component, fields)...)
	}
}

// InfoC logs an info message for a component.
func InfoC(component, msg string) {
	InfoCF(component, msg, nil)
}

// InfoCF logs an info message with structured fields.
func InfoCF(component, msg string, fields map[string]interface{}) {
	if enabled(INFO) {
		base.Load().Info(msg, attrs(component, fields)...)
	}
}

// WarnC logs a warning for a component.
func WarnC(component, msg string) {
	WarnCF(component, msg, nil)
}

// WarnCF logs a warning with structured fields.
func WarnCF(component, msg string, fields map[string]interface{}) {
	if enabled(WARN) {
		base.Load().Warn(msg, attrs(component, fields)...)
	}
}

// ErrorCF logs an error with structured fields.
func ErrorCF(component, msg string, fields map[string]interface{}) {
	if enabled(ERROR) {
		base.Load().Error(msg, attrs(component, fields)...)
	}
}
