// Package metrics defines the registry interface flamegraph components
// report to. Names are dot separated; backends translate them.
package metrics

import "time"

type Counter interface {
	Inc()
	Add(delta int64)
}

type Gauge interface {
	Set(value float64)
	Add(delta float64)
}

type IntGauge interface {
	Set(value int64)
	Add(delta int64)
}

type Histogram interface {
	RecordValue(value float64)
}

type Timer interface {
	RecordDuration(value time.Duration)
}

type Registry interface {
	// WithPrefix returns a registry whose metric names start with prefix.
	WithPrefix(prefix string) Registry
	// WithTags returns a registry whose metrics carry tags as const labels.
	WithTags(tags map[string]string) Registry

	Counter(name string) Counter
	Gauge(name string) Gauge
	IntGauge(name string) IntGauge
	Histogram(name string, buckets []float64) Histogram
	Timer(name string) Timer
}

////////////////////////////////////////////////////////////////////////////////

// MakeLinearBuckets returns count buckets starting at start and width apart.
func MakeLinearBuckets(start, width float64, count int) []float64 {
	buckets := make([]float64, count)
	for i := range buckets {
		buckets[i] = start + float64(i)*width
	}
	return buckets
}

// MakeExponentialBuckets returns count buckets starting at start, each factor
// times the previous.
func MakeExponentialBuckets(start, factor float64, count int) []float64 {
	buckets := make([]float64, count)
	for i := range buckets {
		buckets[i] = start
		start *= factor
	}
	return buckets
}
