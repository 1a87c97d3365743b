package logger

import (
	"context"
	"sort"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
)

// Logger is what the webhook handlers and server log through. Fields are
// passed as a map so call sites do not import zap.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
	WithError(err error) Logger
	Sync() error
}

// New builds the process logger from LOG_LEVEL and LOG_FORMAT. An unknown
// level falls back to info. Format "json" writes one JSON object per line
// for log collectors; any other value writes the human readable console
// encoding used during local development.
func New(level, format string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}

	cfg := zap.NewDevelopmentConfig()
	if format == "json" {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "time"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.InitialFields = map[string]interface{}{"service": "quotebot"}
	return cfg.Build()
}

// NewZapAdapter exposes l through the Logger interface.
func NewZapAdapter(l *zap.Logger) Logger {
	return &zapLogger{base: l}
}

type zapLogger struct {
	base *zap.Logger
}

func (z *zapLogger) Debug(msg string, fields map[string]interface{}) {
	z.base.Debug(msg, fieldsOf(fields)...)
}

func (z *zapLogger) Info(msg string, fields map[string]interface{}) {
	z.base.Info(msg, fieldsOf(fields)...)
}

func (z *zapLogger) Warn(msg string, fields map[string]interface{}) {
	z.base.Warn(msg, fieldsOf(fields)...)
}

func (z *zapLogger) Error(msg string, fields map[string]interface{}) {
	z.base.Error(msg, fieldsOf(fields)...)
}

func (z *zapLogger) With(fields map[string]interface{}) Logger {
	return &zapLogger{base: z.base.With(fieldsOf(fields)...)}
}

func (z *zapLogger) WithError(err error) Logger {
	return &zapLogger{base: z.base.With(zap.Error(err))}
}

func (z *zapLogger) Sync() error {
	return z.base.Sync()
}

// fieldsOf converts fields in key order so console lines read the same
// from one request to the next.
func fieldsOf(fields map[string]interface{}) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]zap.Field, len(keys))
	for i, k := range keys {
		out[i] = zap.Any(k, fields[k])
	}
	return out
}

// NewTestLogger routes log lines to t.Log.
func NewTestLogger(t testing.TB) Logger {
	return NewZapAdapter(zaptest.NewLogger(t))
}

func NewNoOpLogger() Logger {
	return NewZapAdapter(zap.NewNop())
}

type ctxKey struct{}

// WithContext attaches a request scoped logger to ctx.
func WithContext(ctx context.Context, l Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the request scoped logger, or fallback outside a request.
func FromContext(ctx context.Context, fallback Logger) Logger {
	if l, ok := ctx.Value(ctxKey{}).(Logger); ok {
		return l
	}
	return fallback
}
