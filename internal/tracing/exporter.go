package tracing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/trace"
)

type discardExporter struct{}

func (discardExporter) ExportSpans(context.Context, []trace.ReadOnlySpan) error {
	return nil
}

func (discardExporter) Shutdown(context.Context) error {
	return nil
}

// NewNopExporter drops every span.
func NewNopExporter() trace.SpanExporter {
	return discardExporter{}
}

// NewWriterExporter writes finished spans to w as indented JSON.
func NewWriterExporter(w io.Writer) (trace.SpanExporter, error) {
	return stdouttrace.New(
		stdouttrace.WithWriter(w),
		stdouttrace.WithPrettyPrint(),
	)
}

type fileExporter struct {
	trace.SpanExporter
	file *os.File
}

func (e *fileExporter) Shutdown(ctx context.Context) error {
	err := e.SpanExporter.Shutdown(ctx)
	return errors.Join(err, e.file.Close())
}

func NewFileExporter(conf FileExporterConfig) (trace.SpanExporter, error) {
	file, err := os.Create(conf.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace file: %w", err)
	}
	exporter, err := NewWriterExporter(file)
	if err != nil {
		return nil, errors.Join(err, file.Close())
	}
	return &fileExporter{SpanExporter: exporter, file: file}, nil
}

// fanout hands every batch to all exporters and joins their errors.
type fanout []trace.SpanExporter

func (f fanout) ExportSpans(ctx context.Context, spans []trace.ReadOnlySpan) error {
	var err error
	for _, exporter := range f {
		err = errors.Join(err, exporter.ExportSpans(ctx, spans))
	}
	return err
}

func (f fanout) Shutdown(ctx context.Context) error {
	var err error
	for _, exporter := range f {
		err = errors.Join(err, exporter.Shutdown(ctx))
	}
	return err
}

func newExporter(conf ExporterConfig) (trace.SpanExporter, error) {
	switch {
	case conf.Nop != nil:
		return NewNopExporter(), nil
	case conf.Stderr != nil:
		return NewWriterExporter(os.Stderr)
	case conf.File != nil:
		return NewFileExporter(*conf.File)
	default:
		return nil, fmt.Errorf("malformed trace exporter config")
	}
}

// NewExporter builds the exporters listed in config. A nil config or an
// empty list yields a nop exporter.
func NewExporter(config *Config) (trace.SpanExporter, error) {
	if config == nil || len(config.Exporters) == 0 {
		return NewNopExporter(), nil
	}

	exporters := make(fanout, 0, len(config.Exporters))
	for i, conf := range config.Exporters {
		exporter, err := newExporter(conf)
		if err != nil {
			_ = exporters.Shutdown(context.Background())
			return nil, fmt.Errorf("exporter #%d: %w", i, err)
		}
		exporters = append(exporters, exporter)
	}

	if len(exporters) == 1 {
		return exporters[0], nil
	}
	return exporters, nil
}
