package xmetrics

import (
	"context"
	"io"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/yandex/perforator-flame/pkg/metrics"
	"github.com/yandex/perforator-flame/pkg/xlog"
)

type Registry interface {
	metrics.Registry

	HTTPHandler(ctx context.Context, logger xlog.Logger) http.Handler
	StreamMetrics(ctx context.Context, w io.Writer) error
	Gatherer() prometheus.Gatherer
}
