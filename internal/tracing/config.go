package tracing

import (
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

type FileExporterConfig struct {
	Path string `yaml:"path"`
}

// ExporterConfig enables exactly one exporter.
type ExporterConfig struct {
	File   *FileExporterConfig `yaml:"file"`
	Stderr *struct{}           `yaml:"stderr"`
	Nop    *struct{}           `yaml:"nop"`
}

type Config struct {
	Exporters   []ExporterConfig `yaml:"exporters"`
	// SampleRatio is the share of root spans kept, 0 keeps every span.
	SampleRatio float64          `yaml:"sample_ratio"`
}

func (c *Config) Sampler() sdktrace.Sampler {
	if c == nil || c.SampleRatio <= 0 || c.SampleRatio >= 1 {
		return sdktrace.AlwaysSample()
	}
	return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(c.SampleRatio))
}
