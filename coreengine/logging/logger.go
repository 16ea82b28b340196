// Package logging provides the structured logger used across the orchestrator.
//
// Components depend on the small Logger interface; SlogLogger adapts log/slog
// to it and NopLogger discards everything.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger is the key/value structured logging interface.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
	Bind(fields ...any) Logger
}

// Config configures construction of a SlogLogger.
type Config struct {
	Level     string // debug, info, warn, error
	Format    string // json or text
	Output    io.Writer
	AddSource bool
}

// DefaultConfig returns a text, info level configuration writing to stderr.
func DefaultConfig() *Config {
	return &Config{Level: "info", Format: "text", Output: os.Stderr}
}

// ParseLevel converts a level name to a slog level.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", level)
	}
}

// SlogLogger wraps *slog.Logger to implement Logger.
type SlogLogger struct {
	logger *slog.Logger
}

// New builds a SlogLogger from cfg (or defaults if nil).
func New(cfg *Config) (*SlogLogger, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: level, AddSource: cfg.AddSource}
	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "json":
		handler = slog.NewJSONHandler(out, opts)
	case "", "text":
		handler = slog.NewTextHandler(out, opts)
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}
	return &SlogLogger{logger: slog.New(handler)}, nil
}

// FromSlog adapts an existing *slog.Logger.
func FromSlog(l *slog.Logger) *SlogLogger {
	if l == nil {
		l = slog.Default()
	}
	return &SlogLogger{logger: l}
}

func (s *SlogLogger) Debug(msg string, keysAndValues ...any) { s.logger.Debug(msg, keysAndValues...) }
func (s *SlogLogger) Info(msg string, keysAndValues ...any)  { s.logger.Info(msg, keysAndValues...) }
func (s *SlogLogger) Warn(msg string, keysAndValues ...any)  { s.logger.Warn(msg, keysAndValues...) }
func (s *SlogLogger) Error(msg string, keysAndValues ...any) { s.logger.Error(msg, keysAndValues...) }

// Bind returns a logger that attaches fields to every entry.
func (s *SlogLogger) Bind(fields ...any) Logger {
	return &SlogLogger{logger: s.logger.With(fields...)}
}

// Slog exposes the underlying *slog.Logger.
func (s *SlogLogger) Slog() *slog.Logger {
	return s.logger
}

// NopLogger discards all log messages.
type NopLogger struct{}

func (NopLogger) Debug(string, ...any)  {}
func (NopLogger) Info(string, ...any)   {}
func (NopLogger) Warn(string, ...any)   {}
func (NopLogger) Error(string, ...any)  {}
func (n NopLogger) Bind(...any) Logger { return n }

// OrNop returns l, or a NopLogger when l is nil.
func OrNop(l Logger) Logger {
	if l == nil {
		return NopLogger{}
	}
	return l
}
