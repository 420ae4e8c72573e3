package xmetrics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/expfmt"
	"go.uber.org/zap"

	"github.com/yandex/perforator-flame/pkg/metrics"
	"github.com/yandex/perforator-flame/pkg/xlog"
)

type promErrorLogger struct {
	ctx    context.Context
	logger xlog.Logger
}

func (l promErrorLogger) Println(v ...any) {
	l.logger.Warn(l.ctx, "Failed to serve metrics", zap.String("error", fmt.Sprint(v...)))
}

////////////////////////////////////////////////////////////////////////////////

// shared is the state common to every view of one registry.
type shared struct {
	registry *prometheus.Registry
	format   expfmt.Format

	mu         sync.Mutex
	collectors map[string]prometheus.Collector
}

type prometheusRegistry struct {
	*shared
	prefix string
	tags   map[string]string
}

func NewRegistry(options ...Option) Registry {
	conf := collectOptions(options...)

	registry := prometheus.NewRegistry()
	for _, c := range conf.collectors {
		registry.MustRegister(c)
	}

	format := expfmt.NewFormat(expfmt.TypeTextPlain)
	if conf.format == FormatBinary {
		format = expfmt.NewFormat(expfmt.TypeProtoDelim)
	}

	return prometheusRegistry{
		shared: &shared{
			registry:   registry,
			format:     format,
			collectors: make(map[string]prometheus.Collector),
		},
	}
}

func (r prometheusRegistry) HTTPHandler(ctx context.Context, logger xlog.Logger) http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{
		ErrorLog:      promErrorLogger{ctx: ctx, logger: logger},
		ErrorHandling: promhttp.ContinueOnError,
	})
}

func (r prometheusRegistry) StreamMetrics(ctx context.Context, w io.Writer) error {
	families, err := r.registry.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}

	enc := expfmt.NewEncoder(w, r.format)
	for _, family := range families {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := enc.Encode(family); err != nil {
			return fmt.Errorf("failed to encode metric family %s: %w", family.GetName(), err)
		}
	}
	if closer, ok := enc.(expfmt.Closer); ok {
		return closer.Close()
	}
	return nil
}

func (r prometheusRegistry) Gatherer() prometheus.Gatherer {
	return r.registry
}

////////////////////////////////////////////////////////////////////////////////

func (r prometheusRegistry) WithPrefix(prefix string) metrics.Registry {
	if r.prefix != "" {
		prefix = r.prefix + "." + prefix
	}
	return prometheusRegistry{shared: r.shared, prefix: prefix, tags: r.tags}
}

func (r prometheusRegistry) WithTags(tags map[string]string) metrics.Registry {
	merged := maps.Clone(r.tags)
	if merged == nil {
		merged = make(map[string]string, len(tags))
	}
	for k, v := range tags {
		merged[sanitizePrometheusMetricName(k)] = v
	}
	return prometheusRegistry{shared: r.shared, prefix: r.prefix, tags: merged}
}

func (r prometheusRegistry) name(name string) string {
	if r.prefix != "" {
		name = r.prefix + "." + name
	}
	return sanitizePrometheusMetricName(name)
}

func (r prometheusRegistry) key(name string) string {
	var sb strings.Builder
	sb.WriteString(name)
	for _, k := range slices.Sorted(maps.Keys(r.tags)) {
		sb.WriteString("|")
		sb.WriteString(k)
		sb.WriteString("=")
		sb.WriteString(r.tags[k])
	}
	return sb.String()
}

// register returns the collector already registered under the same name and
// labels, or registers the one made by create.
func (r prometheusRegistry) register(name string, create func(string, prometheus.Labels) prometheus.Collector) prometheus.Collector {
	full := r.name(name)
	key := r.key(full)

	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.collectors[key]; ok {
		return c
	}

	c := create(full, r.tags)
	if err := r.registry.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if !errors.As(err, &already) {
			panic(fmt.Sprintf("failed to register metric %s: %v", full, err))
		}
		c = already.ExistingCollector
	}
	r.collectors[key] = c
	return c
}

func (r prometheusRegistry) Counter(name string) metrics.Counter {
	c := r.register(name, func(full string, labels prometheus.Labels) prometheus.Collector {
		return prometheus.NewCounter(prometheus.CounterOpts{Name: full, ConstLabels: labels})
	})
	return counter{c.(prometheus.Counter)}
}

func (r prometheusRegistry) Gauge(name string) metrics.Gauge {
	c := r.register(name, func(full string, labels prometheus.Labels) prometheus.Collector {
		return prometheus.NewGauge(prometheus.GaugeOpts{Name: full, ConstLabels: labels})
	})
	return c.(prometheus.Gauge)
}

func (r prometheusRegistry) IntGauge(name string) metrics.IntGauge {
	c := r.register(name, func(full string, labels prometheus.Labels) prometheus.Collector {
		return prometheus.NewGauge(prometheus.GaugeOpts{Name: full, ConstLabels: labels})
	})
	return intGauge{c.(prometheus.Gauge)}
}

func (r prometheusRegistry) Histogram(name string, buckets []float64) metrics.Histogram {
	c := r.register(name, func(full string, labels prometheus.Labels) prometheus.Collector {
		return prometheus.NewHistogram(prometheus.HistogramOpts{Name: full, ConstLabels: labels, Buckets: buckets})
	})
	return histogram{c.(prometheus.Histogram)}
}

// Timer exports the last recorded duration in seconds.
func (r prometheusRegistry) Timer(name string) metrics.Timer {
	c := r.register(name, func(full string, labels prometheus.Labels) prometheus.Collector {
		return prometheus.NewGauge(prometheus.GaugeOpts{Name: full, ConstLabels: labels})
	})
	return timer{c.(prometheus.Gauge)}
}

////////////////////////////////////////////////////////////////////////////////

type counter struct {
	c prometheus.Counter
}

func (c counter) Inc() {
	c.c.Inc()
}

func (c counter) Add(delta int64) {
	if delta > 0 {
		c.c.Add(float64(delta))
	}
}

type intGauge struct {
	g prometheus.Gauge
}

func (g intGauge) Set(value int64) {
	g.g.Set(float64(value))
}

func (g intGauge) Add(delta int64) {
	g.g.Add(float64(delta))
}

type histogram struct {
	h prometheus.Histogram
}

func (h histogram) RecordValue(value float64) {
	h.h.Observe(value)
}

type timer struct {
	g prometheus.Gauge
}

func (t timer) RecordDuration(value time.Duration) {
	t.g.Set(value.Seconds())
}

////////////////////////////////////////////////////////////////////////////////

// See https://prometheus.io/docs/concepts/data_model/#metric-names-and-labels
var prometheusMetricSanitizer = strings.NewReplacer(
	".", "_",
	"-", "_",
)

func sanitizePrometheusMetricName(name string) string {
	return prometheusMetricSanitizer.Replace(name)
}
