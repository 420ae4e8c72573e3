package xmetrics

import "github.com/prometheus/client_golang/prometheus"

type Format int

const (
	FormatUnspecified Format = iota
	FormatBinary
	FormatText
)

type config struct {
	format     Format
	collectors []prometheus.Collector
}

type Option func(*config)

func WithFormat(format Format) Option {
	return func(c *config) {
		c.format = format
	}
}

// WithAddCollectors registers extra collectors, such as the Go runtime one.
func WithAddCollectors(collectors ...prometheus.Collector) Option {
	return func(c *config) {
		c.collectors = append(c.collectors, collectors...)
	}
}

func collectOptions(options ...Option) *config {
	conf := &config{}
	for _, opt := range options {
		opt(conf)
	}
	return conf
}
