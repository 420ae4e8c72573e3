package tracing

import (
	"github.com/go-logr/logr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// logrZapSink routes logr output of the otel SDK into zap. Verbosity 0 maps
// to info, anything above to debug.
type logrZapSink struct {
	l *zap.Logger
}

var _ logr.LogSink = (*logrZapSink)(nil)

func zapLevel(verbosity int) zapcore.Level {
	if verbosity > 0 {
		return zapcore.DebugLevel
	}
	return zapcore.InfoLevel
}

func fieldify(kv []any) []zap.Field {
	fields := make([]zap.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			key = "invalid_key"
		}
		fields = append(fields, zap.Any(key, kv[i+1]))
	}
	return fields
}

func (s *logrZapSink) Init(info logr.RuntimeInfo) {
	s.l = s.l.WithOptions(zap.AddCallerSkip(info.CallDepth))
}

func (s *logrZapSink) Enabled(verbosity int) bool {
	return s.l.Core().Enabled(zapLevel(verbosity))
}

func (s *logrZapSink) Info(verbosity int, msg string, kv ...any) {
	if ce := s.l.Check(zapLevel(verbosity), msg); ce != nil {
		ce.Write(fieldify(kv)...)
	}
}

func (s *logrZapSink) Error(err error, msg string, kv ...any) {
	s.l.Error(msg, append(fieldify(kv), zap.Error(err))...)
}

func (s *logrZapSink) WithName(name string) logr.LogSink {
	return &logrZapSink{l: s.l.Named(name)}
}

func (s *logrZapSink) WithValues(kv ...any) logr.LogSink {
	return &logrZapSink{l: s.l.With(fieldify(kv)...)}
}
