// Package logging defines the structured Logger contract every component
// receives by injection, plus its zap backend.  Nothing outside this package
// imports zap directly; swapping the backend stays a one-package change.
package logging

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ─────────────────────────────────────────────────────────────────────────────
// Contract
// ─────────────────────────────────────────────────────────────────────────────

// Logger is the process-wide structured logging contract.
//
// Levels follow the usual split: Debug for per-query noise that production
// silences, Info for routine lifecycle events, Warn for recoverable data
// problems (skipped rows, fallback tree), Error for failures scoped to one
// request, Fatal for unrecoverable startup failures (exits the process, never
// valid on a request path).
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	Fatal(msg string, fields ...Field)

	// With returns a child carrying the given fields on every entry.
	With(fields ...Field) Logger
	// Named returns a child whose name extends the parent's with a dot.
	Named(name string) Logger
	// Sync flushes buffered entries; call once at shutdown.
	Sync() error
}

// ─────────────────────────────────────────────────────────────────────────────
// Construction
// ─────────────────────────────────────────────────────────────────────────────

// LogConfig selects level, encoding and sinks for a new Logger.  Zero values
// fall back to info-level JSON on stdout with zap's own errors on stderr.
// Callers build it from their own configuration; it carries no file tags.
type LogConfig struct {
	// Level is the minimum emitted severity: debug, info, warn or error
	// (case-insensitive).  Unrecognized values mean info.
	Level string

	// Format picks the encoder: "json" for aggregation pipelines or
	// "console" for human-readable local output.
	Format string

	// OutputPaths lists sinks for entries; "stdout" and "stderr" are
	// understood, anything else is opened as a file.
	OutputPaths []string

	// ErrorOutputPaths lists sinks for zap's internal errors.
	ErrorOutputPaths []string
}

// levelFor maps a config string to a zap level, defaulting to info so a typo
// in config never silences the process.  Levels above error are not part of
// the config contract and also collapse to info.
func levelFor(s string) zapcore.Level {
	l, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil || l < zapcore.DebugLevel || l > zapcore.ErrorLevel {
		return zapcore.InfoLevel
	}
	return l
}

// NewLogger builds a zap-backed Logger from cfg.  The only error source is
// zap failing to open an output sink.
func NewLogger(cfg LogConfig) (Logger, error) {
	out, errOut := cfg.OutputPaths, cfg.ErrorOutputPaths
	if len(out) == 0 {
		out = []string{"stdout"}
	}
	if len(errOut) == 0 {
		errOut = []string{"stderr"}
	}

	encoding, ec := "json", zap.NewProductionEncoderConfig()
	if cfg.Format == "console" {
		encoding, ec = "console", zap.NewDevelopmentEncoderConfig()
	}
	ec.TimeKey = "ts"
	ec.EncodeTime = zapcore.ISO8601TimeEncoder

	z, err := zap.Config{
		Level:            zap.NewAtomicLevelAt(levelFor(cfg.Level)),
		Development:      encoding == "console",
		Encoding:         encoding,
		EncoderConfig:    ec,
		OutputPaths:      out,
		ErrorOutputPaths: errOut,
	}.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, fmt.Errorf("logging: build zap logger: %w", err)
	}
	return &zlog{raw: z}, nil
}

// NewLoggerFromCore wraps an existing zapcore.Core, which is how tests attach
// an observer core.
func NewLoggerFromCore(core zapcore.Core) Logger {
	return &zlog{raw: zap.New(core, zap.AddCallerSkip(1))}
}

// ─────────────────────────────────────────────────────────────────────────────
// zap backend
// ─────────────────────────────────────────────────────────────────────────────

type zlog struct {
	raw *zap.Logger
}

func (l *zlog) Debug(msg string, fields ...Field) { l.raw.Debug(msg, zfields(fields)...) }
func (l *zlog) Info(msg string, fields ...Field)  { l.raw.Info(msg, zfields(fields)...) }
func (l *zlog) Warn(msg string, fields ...Field)  { l.raw.Warn(msg, zfields(fields)...) }
func (l *zlog) Error(msg string, fields ...Field) { l.raw.Error(msg, zfields(fields)...) }
func (l *zlog) Fatal(msg string, fields ...Field) { l.raw.Fatal(msg, zfields(fields)...) }

func (l *zlog) With(fields ...Field) Logger { return &zlog{raw: l.raw.With(zfields(fields)...)} }
func (l *zlog) Named(name string) Logger    { return &zlog{raw: l.raw.Named(name)} }
func (l *zlog) Sync() error                 { return l.raw.Sync() }

// ─────────────────────────────────────────────────────────────────────────────
// Nop backend
// ─────────────────────────────────────────────────────────────────────────────

type nopLogger struct{}

func (nopLogger) Debug(string, ...Field) {}
func (nopLogger) Info(string, ...Field)  {}
func (nopLogger) Warn(string, ...Field)  {}
func (nopLogger) Error(string, ...Field) {}
func (nopLogger) Fatal(string, ...Field) {}

func (n nopLogger) With(...Field) Logger { return n }
func (n nopLogger) Named(string) Logger  { return n }
func (nopLogger) Sync() error            { return nil }

// NewNopLogger returns a Logger that drops everything.  Components accept it
// when a caller passes no logger, and tests use it to silence output.
func NewNopLogger() Logger { return nopLogger{} }

// ─────────────────────────────────────────────────────────────────────────────
// Process default
// ─────────────────────────────────────────────────────────────────────────────

var (
	globalMu sync.RWMutex
	global   Logger = nopLogger{}
)

// SetDefault installs the process-wide fallback Logger.  Called once at
// startup, before anything that might read Default; nil is ignored.
func SetDefault(l Logger) {
	if l == nil {
		return
	}
	globalMu.Lock()
	global = l
	globalMu.Unlock()
}

// Default returns the process-wide fallback.  Constructor injection is the
// normal path; Default exists for code that runs before wiring completes.
func Default() Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return global
}
