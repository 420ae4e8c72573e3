package tablebuild

import (
	"github.com/apache/arrow/go/v13/arrow/memory"
)

type config struct {
	mem        memory.Allocator
	omit       []string
	timestamps bool

	timeOrdered bool
	maxDepth    int
	minWeight   float64
	rootName    string
}

type Option func(*config)

func WithAllocator(mem memory.Allocator) Option {
	return func(c *config) {
		c.mem = mem
	}
}

// WithoutColumns leaves the named columns out of the record.
func WithoutColumns(names ...string) Option {
	return func(c *config) {
		c.omit = append(c.omit, names...)
	}
}

// WithTimestamps emits the timestamp column.
func WithTimestamps() Option {
	return func(c *config) {
		c.timestamps = true
	}
}

// WithTimeOrder builds a flame chart tree: only consecutive samples sharing
// a stack prefix are merged, and rows carry the timestamp of their first
// sample. Implies WithTimestamps.
func WithTimeOrder() Option {
	return func(c *config) {
		c.timeOrdered = true
		c.timestamps = true
	}
}

// WithDepthLimit truncates stacks deeper than limit frames.
func WithDepthLimit(limit int) Option {
	return func(c *config) {
		c.maxDepth = limit
	}
}

// WithMinWeight folds rows lighter than weight (a fraction of the total) into
// a truncated row of their parent.
func WithMinWeight(weight float64) Option {
	return func(c *config) {
		c.minWeight = weight
	}
}

func WithRootName(name string) Option {
	return func(c *config) {
		c.rootName = name
	}
}

func collectOptions(opts ...Option) *config {
	conf := &config{
		rootName: "all",
	}
	for _, opt := range opts {
		opt(conf)
	}
	return conf
}
