package xlog

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

////////////////////////////////////////////////////////////////////////////////

type Logger interface {
	With(fields ...zap.Field) Logger
	WithName(name string) Logger
	WithCallerSkip(level int) Logger

	// WithContext binds context fields and trace ids to a plain zap logger.
	WithContext(ctx context.Context) *zap.Logger
	Logger() *zap.Logger
	Fmt() *zap.SugaredLogger

	Debug(ctx context.Context, msg string, fields ...zap.Field)
	Info(ctx context.Context, msg string, fields ...zap.Field)
	Warn(ctx context.Context, msg string, fields ...zap.Field)
	Error(ctx context.Context, msg string, fields ...zap.Field)
	Fatal(ctx context.Context, msg string, fields ...zap.Field)
}

////////////////////////////////////////////////////////////////////////////////

type ctxFieldsKey struct{}

// WrapContext returns ctx carrying fields that every ctx-first call adds.
func WrapContext(ctx context.Context, fields ...zap.Field) context.Context {
	prev := contextFields(ctx)
	merged := make([]zap.Field, 0, len(prev)+len(fields))
	merged = append(merged, prev...)
	merged = append(merged, fields...)
	return context.WithValue(ctx, ctxFieldsKey{}, merged)
}

func contextFields(ctx context.Context) []zap.Field {
	if ctx == nil {
		return nil
	}
	fields, _ := ctx.Value(ctxFieldsKey{}).([]zap.Field)
	return fields
}

////////////////////////////////////////////////////////////////////////////////

type logger struct {
	log *zap.Logger
}

var _ Logger = (*logger)(nil)

func New(log *zap.Logger) Logger {
	return &logger{log}
}

func NewNop() Logger {
	return &logger{zap.NewNop()}
}

func TryNew(log *zap.Logger, err error) (Logger, error) {
	if err != nil {
		return nil, err
	}
	return New(log), nil
}

func (l *logger) Logger() *zap.Logger {
	return l.log
}

func (l *logger) Fmt() *zap.SugaredLogger {
	return l.log.Sugar()
}

func (l *logger) With(fields ...zap.Field) Logger {
	return &logger{l.log.With(fields...)}
}

func (l *logger) WithName(name string) Logger {
	return &logger{l.log.Named(name)}
}

func (l *logger) WithContext(ctx context.Context) *zap.Logger {
	return l.log.With(addTraceFields(ctx, contextFields(ctx))...)
}

func (l *logger) WithCallerSkip(level int) Logger {
	return &logger{l.log.WithOptions(zap.AddCallerSkip(level))}
}

////////////////////////////////////////////////////////////////////////////////

func (l *logger) withCallerSkip(level int) *zap.Logger {
	return l.log.WithOptions(zap.AddCallerSkip(level))
}

func (l *logger) fields(ctx context.Context, fields []zap.Field) []zap.Field {
	extra := contextFields(ctx)
	if len(extra) > 0 {
		merged := make([]zap.Field, 0, len(extra)+len(fields))
		merged = append(merged, extra...)
		fields = append(merged, fields...)
	}
	return addTraceFields(ctx, fields)
}

func (l *logger) Debug(ctx context.Context, msg string, fields ...zap.Field) {
	l.withCallerSkip(1).Debug(msg, l.fields(ctx, fields)...)
}

func (l *logger) Info(ctx context.Context, msg string, fields ...zap.Field) {
	l.withCallerSkip(1).Info(msg, l.fields(ctx, fields)...)
}

func (l *logger) Warn(ctx context.Context, msg string, fields ...zap.Field) {
	l.withCallerSkip(1).Warn(msg, l.fields(ctx, fields)...)
}

func (l *logger) Error(ctx context.Context, msg string, fields ...zap.Field) {
	l.withCallerSkip(1).Error(msg, l.fields(ctx, fields)...)
}

func (l *logger) Fatal(ctx context.Context, msg string, fields ...zap.Field) {
	l.withCallerSkip(1).Fatal(msg, l.fields(ctx, fields)...)
}

func addTraceFields(ctx context.Context, fields []zap.Field) []zap.Field {
	if ctx == nil {
		return fields
	}
	span := trace.SpanContextFromContext(ctx)
	if span.HasTraceID() {
		fields = append(fields, zap.String("trace.id", span.TraceID().String()))
	}
	if span.HasSpanID() {
		fields = append(fields, zap.String("span.id", span.SpanID().String()))
	}
	return fields
}
