package flamecli

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus/collectors"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"github.com/yandex/perforator-flame/internal/buildinfo"
	"github.com/yandex/perforator-flame/internal/tracing"
	"github.com/yandex/perforator-flame/internal/viewer"
	"github.com/yandex/perforator-flame/internal/xmetrics"
	"github.com/yandex/perforator-flame/pkg/xlog"
)

////////////////////////////////////////////////////////////////////////////////

type Config struct {
	LogLevel   string
	// LogFile redirects logs away from stderr, which the terminal viewer owns.
	LogFile    string
	ConfigPath string
	TraceFile  string
	// Override is applied to the parsed viewer config before validation.
	Override   func(*viewer.Config)
}

func (c *Config) fillDefault() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

////////////////////////////////////////////////////////////////////////////////

type App struct {
	logger   xlog.Logger
	registry xmetrics.Registry
	conf     *viewer.Config
	shutdown func()
	context  context.Context
	cancel   func()
}

func New(ctx context.Context, config *Config) (*App, error) {
	config.fillDefault()

	var err error

	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		if err != nil {
			cancel()
		}
	}()

	var outputs []string
	if config.LogFile != "" {
		outputs = append(outputs, config.LogFile)
	}
	logger, err := xlog.NewCLILogger(config.LogLevel, outputs...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		if err != nil {
			logger.Error(ctx, "Failed to initialize CLI", zap.Error(err))
		}
	}()

	conf, err := loadConfig(config)
	if err != nil {
		return nil, err
	}

	tracingConf := conf.Tracing
	if config.TraceFile != "" {
		override := &tracing.Config{
			Exporters: []tracing.ExporterConfig{{
				File: &tracing.FileExporterConfig{Path: config.TraceFile},
			}},
		}
		if tracingConf != nil {
			override.SampleRatio = tracingConf.SampleRatio
		}
		tracingConf = override
	}
	exporter, err := tracing.NewExporter(tracingConf)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize trace exporter: %w", err)
	}

	stop, _, err := tracing.Initialize(
		ctx,
		logger.WithName("tracing"),
		exporter,
		"perforator-flame",
		buildinfo.Version(),
		sdktrace.WithSampler(tracingConf.Sampler()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	shutdown := func() {
		// ctx is already cancelled here, so spans are flushed on a fresh one.
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		if err := stop(shutdownCtx); err != nil {
			logger.Warn(shutdownCtx, "Failed to shutdown tracing", zap.Error(err))
		}
		_ = logger.Logger().Sync()
	}

	registry := xmetrics.NewRegistry(
		xmetrics.WithAddCollectors(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		),
	)

	return &App{logger, registry, conf, shutdown, ctx, cancel}, nil
}

func loadConfig(config *Config) (*viewer.Config, error) {
	conf := viewer.DefaultConfig()
	if config.ConfigPath != "" {
		var err error
		conf, err = viewer.ParseConfig(config.ConfigPath)
		if err != nil {
			return nil, err
		}
	}

	if config.Override != nil {
		config.Override(conf)
		if err := conf.Normalize(); err != nil {
			return nil, fmt.Errorf("invalid command line options: %w", err)
		}
	}
	return conf, nil
}

////////////////////////////////////////////////////////////////////////////////

func (a *App) Shutdown() {
	a.cancel()
	a.shutdown()
}

func (a *App) Logger() xlog.Logger {
	return a.logger
}

func (a *App) Registry() xmetrics.Registry {
	return a.registry
}

func (a *App) Config() *viewer.Config {
	return a.conf
}

func (a *App) Context() context.Context {
	return a.context
}

func (a *App) Renderer() *viewer.Renderer {
	return viewer.NewRenderer(a.conf, a.logger, a.registry)
}

////////////////////////////////////////////////////////////////////////////////
