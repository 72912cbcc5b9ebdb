// Package logging provides structured, context-aware logging for docpipe
// components, built on logrus the way the rest of the stack does it.
package logging

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Level is a minimum log level.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Config controls how a root logger is constructed.
type Config struct {
	Level  Level
	Format string // "json" or "text"
}

// DefaultConfig returns sensible defaults for local development.
func DefaultConfig() Config {
	return Config{Level: LevelInfo, Format: "text"}
}

// New builds a root *logrus.Logger from Config.
func New(cfg Config) *logrus.Logger {
	logger := logrus.New()

	switch cfg.Level {
	case LevelDebug:
		logger.SetLevel(logrus.DebugLevel)
	case LevelWarn:
		logger.SetLevel(logrus.WarnLevel)
	case LevelError:
		logger.SetLevel(logrus.ErrorLevel)
	default:
		logger.SetLevel(logrus.InfoLevel)
	}

	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{TimestampFormat: time.RFC3339, FullTimestamp: true})
	}

	return logger
}

// Logger wraps a logrus logger with a fixed set of contextual fields,
// following the ContextLogger pattern: every With* call returns a new
// immutable Logger rather than mutating the receiver.
type Logger struct {
	base   *logrus.Logger
	fields logrus.Fields
}

// NewLogger creates a Logger rooted at base with an initial field set.
func NewLogger(base *logrus.Logger, fields map[string]interface{}) *Logger {
	if base == nil {
		base = New(DefaultConfig())
	}
	f := make(logrus.Fields, len(fields))
	for k, v := range fields {
		f[k] = v
	}
	return &Logger{base: base, fields: f}
}

func (l *Logger) with(fields logrus.Fields) *Logger {
	merged := make(logrus.Fields, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &Logger{base: l.base, fields: merged}
}

// WithField returns a new Logger with an additional field.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return l.with(logrus.Fields{key: value})
}

// WithFields returns a new Logger with additional fields merged in.
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	f := make(logrus.Fields, len(fields))
	for k, v := range fields {
		f[k] = v
	}
	return l.with(f)
}

// WithError attaches an error field.
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}
	return l.with(logrus.Fields{"error": err.Error()})
}

// WithContext pulls the well-known document and worker identifiers out of ctx, if set.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	fields := logrus.Fields{}
	if v := ctx.Value(ctxKeyDocumentID); v != nil {
		fields["document_id"] = v
	}
	if v := ctx.Value(ctxKeyWorkerID); v != nil {
		fields["worker_id"] = v
	}
	if len(fields) == 0 {
		return l
	}
	return l.with(fields)
}

func (l *Logger) entry() *logrus.Entry { return l.base.WithFields(l.fields) }

func (l *Logger) Debug(msg string)                         { l.entry().Debug(msg) }
func (l *Logger) Debugf(format string, args ...interface{}) { l.entry().Debugf(format, args...) }
func (l *Logger) Info(msg string)                          { l.entry().Info(msg) }
func (l *Logger) Infof(format string, args ...interface{})  { l.entry().Infof(format, args...) }
func (l *Logger) Warn(msg string)                          { l.entry().Warn(msg) }
func (l *Logger) Warnf(format string, args ...interface{})  { l.entry().Warnf(format, args...) }
func (l *Logger) Error(msg string)                         { l.entry().Error(msg) }
func (l *Logger) Errorf(format string, args ...interface{}) { l.entry().Errorf(format, args...) }

type ctxKey int

const (
	ctxKeyDocumentID ctxKey = iota
	ctxKeyWorkerID
)

// WithDocumentID returns a context carrying a document id for log enrichment.
func WithDocumentID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyDocumentID, id)
}

// WithWorkerID returns a context carrying a worker id for log enrichment.
func WithWorkerID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyWorkerID, id)
}

// Operation logs the start, duration, and outcome of fn under operation name.
func Operation(l *Logger, operation string, fn func() error) error {
	start := time.Now()
	l.WithField("operation", operation).Debug("operation started")

	err := fn()

	entry := l.WithFields(map[string]interface{}{
		"operation":   operation,
		"duration_ms": time.Since(start).Milliseconds(),
	})
	if err != nil {
		entry.WithError(err).Error("operation failed")
		return err
	}
	entry.Debug("operation completed")
	return nil
}
