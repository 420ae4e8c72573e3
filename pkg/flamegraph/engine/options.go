package engine

import (
	"github.com/yandex/perforator-flame/pkg/flamegraph/palette"
	"github.com/yandex/perforator-flame/pkg/metrics"
	"github.com/yandex/perforator-flame/pkg/xlog"
)

type options struct {
	conf    Config
	logger  xlog.Logger
	metrics metrics.Registry
	colors  *palette.Cache
}

type Option func(*options)

func WithConfig(conf Config) Option {
	return func(o *options) {
		o.conf = conf
	}
}

func WithLogger(l xlog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

func WithMetrics(reg metrics.Registry) Option {
	return func(o *options) {
		o.metrics = reg
	}
}

// WithPaletteCache shares color assignments between engines.
func WithPaletteCache(c *palette.Cache) Option {
	return func(o *options) {
		o.colors = c
	}
}

func collectOptions(opts ...Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	o.conf.FillDefault()
	if o.logger == nil {
		o.logger = xlog.NewNop()
	}
	if o.metrics == nil {
		o.metrics = metrics.NewNopRegistry()
	}
	if o.colors == nil {
		o.colors = palette.NewCache(o.conf.PaletteCacheSize)
	}
	return o
}
