package viewer

import (
	"bufio"
	"context"
	"fmt"
	"image"
	"io"
	"os"
	"time"

	"git.sr.ht/~sbinet/gg"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/yandex/perforator-flame/internal/xmetrics"
	"github.com/yandex/perforator-flame/pkg/flamegraph/drawlist"
	"github.com/yandex/perforator-flame/pkg/flamegraph/engine"
	"github.com/yandex/perforator-flame/pkg/flamegraph/selection"
	"github.com/yandex/perforator-flame/pkg/flamegraph/table"
	"github.com/yandex/perforator-flame/pkg/flamegraph/viewport"
	"github.com/yandex/perforator-flame/pkg/metrics"
	"github.com/yandex/perforator-flame/pkg/xlog"
)

var tracer = otel.Tracer("github.com/yandex/perforator-flame/internal/viewer")

// Host bundles an engine with the viewport plumbing a non-interactive host
// needs. Frames are flushed by hand.
type Host struct {
	Engine    *engine.Engine
	Tracker   *viewport.Tracker
	Scheduler *viewport.ManualScheduler
}

func (h *Host) Close() {
	h.Engine.Close()
	h.Tracker.Close()
}

// Flush applies pending viewport updates and deferred engine work.
func (h *Host) Flush() {
	for h.Scheduler.Pending() > 0 {
		h.Scheduler.Flush()
	}
}

type Renderer struct {
	conf   *Config
	logger xlog.Logger
	reg    xmetrics.Registry

	renderDuration metrics.Timer
	renders        metrics.Counter
}

func NewRenderer(conf *Config, logger xlog.Logger, reg xmetrics.Registry) *Renderer {
	if conf == nil {
		conf = DefaultConfig()
	}
	scoped := reg.WithPrefix("viewer")
	return &Renderer{
		conf:           conf,
		logger:         logger.WithName("viewer"),
		reg:            reg,
		renderDuration: scoped.Timer("render.duration"),
		renders:        scoped.Counter("renders.count"),
	}
}

func (r *Renderer) Config() *Config {
	return r.conf
}

// NewHost creates an engine over tbl for the configured viewport and
// selection. The caller keeps ownership of tbl.
func (r *Renderer) NewHost(tbl *table.Table) *Host {
	scheduler := viewport.NewManualScheduler()
	tracker := viewport.NewTracker(scheduler, viewport.Snapshot{
		ScrollTop:       r.conf.Viewport.ScrollTop,
		ScrollLeft:      r.conf.Viewport.ScrollLeft,
		ContainerWidth:  r.conf.Viewport.Width,
		ContainerHeight: r.conf.Viewport.Height,
	})
	e := engine.New(tbl, tracker, scheduler,
		engine.WithConfig(r.conf.Engine),
		engine.WithLogger(r.logger),
		engine.WithMetrics(r.reg),
	)
	host := &Host{Engine: e, Tracker: tracker, Scheduler: scheduler}

	if len(r.conf.Selection) > 0 {
		e.SetSelectionPath(selection.ParsePath(r.conf.Selection...))
	}
	// Selection resets horizontal scroll; restore the configured one.
	tracker.HandleScroll(r.conf.Viewport.ScrollTop, r.conf.Viewport.ScrollLeft)
	host.Flush()
	return host
}

// Summary describes one rendered frame.
type Summary struct {
	Rows      int
	MaxDepth  int
	Total     uint64
	Nodes     int
	Selected  engine.Hover
	Selection selection.Result
}

// Render loads a profile from in, renders one frame and writes the
// configured outputs.
func (r *Renderer) Render(ctx context.Context, in io.Reader) (*Summary, error) {
	ctx, span := tracer.Start(ctx, "viewer.Render")
	defer span.End()
	start := time.Now()

	tbl, err := LoadTable(ctx, r.logger, in, r.conf.Input)
	if err != nil {
		return nil, err
	}
	defer tbl.Release()

	host := r.NewHost(tbl)
	defer host.Close()

	frame := host.Engine.Frame()
	span.SetAttributes(
		attribute.Int("rows", tbl.NumRows()),
		attribute.Int("nodes", len(frame.Nodes)),
	)

	if err := r.writeOutputs(ctx, tbl, frame); err != nil {
		return nil, err
	}

	r.renders.Inc()
	r.renderDuration.RecordDuration(time.Since(start))

	if path := r.conf.Output.Metrics; path != "" {
		if err := writeFile(path, func(w io.Writer) error {
			return r.reg.StreamMetrics(ctx, w)
		}); err != nil {
			return nil, fmt.Errorf("failed to write metrics: %w", err)
		}
	}

	summary := &Summary{
		Rows:      tbl.NumRows(),
		MaxDepth:  tbl.MaxDepth(),
		Total:     tbl.Total(),
		Nodes:     len(frame.Nodes),
		Selected:  host.Engine.Describe(frame.Selection.Row),
		Selection: frame.Selection,
	}
	r.logger.Info(ctx, "Rendered frame",
		zap.Int("nodes", summary.Nodes),
		zap.Int("selected", summary.Selection.Row),
		zap.Duration("duration", time.Since(start)),
	)
	return summary, nil
}

func (r *Renderer) writeOutputs(ctx context.Context, tbl *table.Table, frame *engine.Frame) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		_, span := tracer.Start(ctx, "viewer.WriteDrawList")
		defer span.End()
		if err := writeFile(r.conf.Output.DrawList, func(w io.Writer) error {
			return drawlist.Encode(w, tbl, frame)
		}); err != nil {
			return fmt.Errorf("failed to write draw list: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		_, span := tracer.Start(ctx, "viewer.WriteMinimap")
		defer span.End()
		if err := writeFile(r.conf.Output.Minimap, func(w io.Writer) error {
			return EncodePNG(w, frame.Minimap)
		}); err != nil {
			return fmt.Errorf("failed to write minimap: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// EncodePNG writes img, or a 1x1 transparent image when img is nil.
func EncodePNG(w io.Writer, img *image.RGBA) error {
	if img == nil {
		img = image.NewRGBA(image.Rect(0, 0, 1, 1))
	}
	return gg.NewContextForRGBA(img).EncodePNG(w)
}

// writeFile writes to path, or to stdout when path is "-".
func writeFile(path string, write func(io.Writer) error) error {
	if path == "-" {
		bw := bufio.NewWriter(os.Stdout)
		if err := write(bw); err != nil {
			return err
		}
		return bw.Flush()
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(file)
	if err := write(bw); err != nil {
		_ = file.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}
