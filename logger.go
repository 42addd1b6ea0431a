// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package panos

import (
	"context"
	"fmt"
	"log"
	"strings"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"
)

// MaxLogValueLength is the longest key or value DefaultLogger writes
const MaxLogValueLength = 1024

// Logger receives the structured log lines of sessions, objects and commit
// jobs. Methods get the operation's context so adapters can attach
// request-scoped fields.
//
// NoOpLogger is the default; DefaultLogger and ZapLogger ship with the
// package, and an adapter for any other logger only needs these methods:
//
//	type slogLogger struct{ l *slog.Logger }
//
//	func (s slogLogger) Debug(ctx context.Context, msg string, kv ...any) {
//	    s.l.DebugContext(ctx, msg, kv...)
//	}
type Logger interface {
	Debug(ctx context.Context, msg string, keysAndValues ...any)
	Info(ctx context.Context, msg string, keysAndValues ...any)
	Warn(ctx context.Context, msg string, keysAndValues ...any)
	Error(ctx context.Context, msg string, keysAndValues ...any)
}

// LogLevel is the threshold of a DefaultLogger
type LogLevel int

// Levels in increasing severity; LogLevelNone silences a DefaultLogger
const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
	LogLevelNone
)

// String returns the tag DefaultLogger prints for the level
func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelInfo:
		return "INFO"
	case LogLevelWarn:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	case LogLevelNone:
		return "NONE"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", l)
	}
}

// DefaultLogger writes through Go's standard log package, one line per
// call: [LEVEL] message key=value ...
//
// Keys and values are sanitized (see MaxLogValueLength); messages are not,
// since they come from the library itself.
//
//	logger := panos.NewDefaultLogger(panos.LogLevelDebug)
//	session, _ := panos.NewHTTPSession("fw1.example.com",
//	    panos.APIKey(key),
//	    panos.WithLogger(logger))
type DefaultLogger struct {
	level LogLevel
}

// NewDefaultLogger returns a DefaultLogger writing level and above
func NewDefaultLogger(level LogLevel) *DefaultLogger {
	return &DefaultLogger{level: level}
}

// Debug logs at LogLevelDebug
func (l *DefaultLogger) Debug(_ context.Context, msg string, keysAndValues ...any) {
	l.emit(LogLevelDebug, msg, keysAndValues)
}

// Info logs at LogLevelInfo
func (l *DefaultLogger) Info(_ context.Context, msg string, keysAndValues ...any) {
	l.emit(LogLevelInfo, msg, keysAndValues)
}

// Warn logs at LogLevelWarn
func (l *DefaultLogger) Warn(_ context.Context, msg string, keysAndValues ...any) {
	l.emit(LogLevelWarn, msg, keysAndValues)
}

// Error logs at LogLevelError
func (l *DefaultLogger) Error(_ context.Context, msg string, keysAndValues ...any) {
	l.emit(LogLevelError, msg, keysAndValues)
}

func (l *DefaultLogger) emit(level LogLevel, msg string, kv []any) {
	if level < l.level || level >= LogLevelNone {
		return
	}
	var b strings.Builder
	b.Grow(len(msg) + 8 + 24*len(kv))
	b.WriteString("[" + level.String() + "] " + msg)
	for i := 0; i < len(kv); i += 2 {
		b.WriteString(" " + sanitizeLogValue(kv[i]) + "=")
		if i+1 < len(kv) {
			b.WriteString(sanitizeLogValue(kv[i+1]))
		} else {
			b.WriteString("<MISSING>")
		}
	}
	log.Println(b.String())
}

// sanitizeLogValue renders a value on a single line. Object names,
// descriptions and device replies end up in logs, so line breaks and tabs
// become spaces, other control characters and invalid UTF-8 become '.',
// zero-width runes are dropped and bidi overrides become spaces. Values
// longer than MaxLogValueLength bytes are cut.
func sanitizeLogValue(val any) string {
	str := fmt.Sprintf("%v", val)
	if len(str) > MaxLogValueLength {
		str = str[:MaxLogValueLength] + "...[TRUNCATED]"
	}

	var b strings.Builder
	b.Grow(len(str))
	for i := 0; i < len(str); {
		r, size := utf8.DecodeRuneInString(str[i:])
		i += size
		switch {
		case r == utf8.RuneError && size <= 1:
			b.WriteByte('.')
		case r == '\n' || r == '\r' || r == '\t' || r == '\f':
			b.WriteByte(' ')
		case r == 0x200B || r == 0x200C || r == 0x200D || r == 0xFEFF:
		case r >= 0x202A && r <= 0x202E, r >= 0x2066 && r <= 0x2069:
			b.WriteByte(' ')
		case unicode.IsControl(r):
			b.WriteByte('.')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NoOpLogger discards everything
type NoOpLogger struct{}

func (n *NoOpLogger) Debug(_ context.Context, _ string, _ ...any) {}
func (n *NoOpLogger) Info(_ context.Context, _ string, _ ...any)  {}
func (n *NoOpLogger) Warn(_ context.Context, _ string, _ ...any)  {}
func (n *NoOpLogger) Error(_ context.Context, _ string, _ ...any) {}

// ZapLogger forwards log calls to a zap logger.
//
// Key-value pairs are passed through zap's SugaredLogger, so keys must be
// strings.
//
// Example:
//
//	zl, _ := zap.NewProduction()
//	session, _ := panos.NewHTTPSession("panorama.example.com",
//	    panos.APIKey(key),
//	    panos.WithLogger(panos.NewZapLogger(zl)))
type ZapLogger struct {
	sugar *zap.SugaredLogger
}

// NewZapLogger wraps a zap logger; a nil logger yields zap.NewNop
func NewZapLogger(l *zap.Logger) *ZapLogger {
	if l == nil {
		l = zap.NewNop()
	}
	return &ZapLogger{sugar: l.WithOptions(zap.AddCallerSkip(1)).Sugar()}
}

// Debug logs at zap's debug level
func (z *ZapLogger) Debug(_ context.Context, msg string, keysAndValues ...any) {
	z.sugar.Debugw(msg, keysAndValues...)
}

// Info logs at zap's info level
func (z *ZapLogger) Info(_ context.Context, msg string, keysAndValues ...any) {
	z.sugar.Infow(msg, keysAndValues...)
}

// Warn logs at zap's warn level
func (z *ZapLogger) Warn(_ context.Context, msg string, keysAndValues ...any) {
	z.sugar.Warnw(msg, keysAndValues...)
}

// Error logs at zap's error level
func (z *ZapLogger) Error(_ context.Context, msg string, keysAndValues ...any) {
	z.sugar.Errorw(msg, keysAndValues...)
}
