package engine

import (
	"context"
	"fmt"
	"image"

	"go.uber.org/zap"

	"github.com/yandex/perforator-flame/pkg/flamegraph/depthindex"
	"github.com/yandex/perforator-flame/pkg/flamegraph/geometry"
	"github.com/yandex/perforator-flame/pkg/flamegraph/minimap"
	"github.com/yandex/perforator-flame/pkg/flamegraph/observe"
	"github.com/yandex/perforator-flame/pkg/flamegraph/palette"
	"github.com/yandex/perforator-flame/pkg/flamegraph/selection"
	"github.com/yandex/perforator-flame/pkg/flamegraph/table"
	"github.com/yandex/perforator-flame/pkg/flamegraph/viewport"
	"github.com/yandex/perforator-flame/pkg/flamegraph/visible"
	"github.com/yandex/perforator-flame/pkg/metrics"
	"github.com/yandex/perforator-flame/pkg/xlog"
)

// Frame is everything a host needs to draw one frame. X coordinates are in
// content space; subtract Viewport.ScrollLeft to get container coordinates.
type Frame struct {
	Table             table.ID
	Viewport          viewport.Snapshot
	Selection         selection.Result
	EffectiveMaxDepth int
	Zoom              float64
	ContentWidth      float64
	ContentHeight     float64
	Layout            geometry.Layout

	Visible *visible.Result
	Nodes   []geometry.Node

	Minimap   *image.RGBA
	Indicator geometry.Rect
}

// Engine renders one table. Its rendered range, memoized selection and
// caches live and die with it; load a new table into a new engine. Methods
// must be called from one goroutine.
type Engine struct {
	conf    Config
	logger  xlog.Logger
	metrics *engineMetrics

	table     *table.Table
	tracker   *viewport.Tracker
	indices   depthindex.Cache
	selector  *visible.Selector
	colors    *palette.Cache
	limit     *geometry.DepthLimit
	minimap   minimap.Cache
	drag      minimap.Drag
	hover     *observe.Observable[Hover]
	limitSub  *observe.Subscription[int]
	closed    bool

	path      selection.Path
	selection selection.Result
	colorBy   palette.ColorBy
	dark      bool
	mode      geometry.Mode
	inverted  bool
	zoom      float64

	last    *Frame
	hovered int
}

type engineMetrics struct {
	frames          metrics.Counter
	drilldowns      metrics.Counter
	stoppedEarly    metrics.Counter
	schemaViolation metrics.Counter
	nodes           metrics.IntGauge
}

// New creates an engine for t. The tracker is shared with the host and is
// not closed by the engine. Deferred work such as depth limit changes runs
// on scheduler frames.
func New(t *table.Table, tracker *viewport.Tracker, scheduler viewport.FrameScheduler, opts ...Option) *Engine {
	o := collectOptions(opts...)
	reg := o.metrics.WithPrefix("engine")

	e := &Engine{
		conf:   o.conf,
		logger: o.logger.WithName("engine").With(zap.Uint64("table", uint64(t.ID()))),
		metrics: &engineMetrics{
			frames:          reg.Counter("frames.count"),
			drilldowns:      reg.Counter("drilldowns.count"),
			stoppedEarly:    reg.Counter("selection.stopped_early.count"),
			schemaViolation: reg.Counter("schema_violations.count"),
			nodes:           reg.IntGauge("nodes.count"),
		},
		table:    t,
		tracker:  tracker,
		selector: visible.NewSelector(o.conf.Visible, o.metrics),
		colors:   o.colors,
		limit:    geometry.NewDepthLimit(scheduler, o.conf.DepthLimit, t.MaxDepth()),
		hover:    observe.New[Hover](),
		colorBy:  o.conf.ColorBy,
		dark:     o.conf.Dark,
		mode:     o.conf.Mode,
		inverted: o.conf.Inverted,
		zoom:     1,
		hovered:  -1,
	}
	e.limitSub = e.limit.Subscribe(func(depth int) {
		e.logger.Debug(context.Background(), "Effective depth changed", zap.Int("depth", depth))
	})

	if err := t.Validate(); err != nil {
		e.metrics.schemaViolation.Inc()
		e.logger.Debug(context.Background(), "Profile table degraded, nothing will be drawn", zap.Error(err))
	}
	return e
}

func (e *Engine) Table() *table.Table {
	return e.table
}

////////////////////////////////////////////////////////////////////////////////

// SetSelectionPath resolves path and makes the result the selected row.
func (e *Engine) SetSelectionPath(path selection.Path) selection.Result {
	e.path = path
	e.selection = selection.Resolve(e.table, path)
	if e.selection.Stop != selection.StopNone {
		e.metrics.stoppedEarly.Inc()
		e.logger.Debug(context.Background(), "Selection stopped early",
			zap.Stringer("stop", e.selection.Stop),
			zap.Int("matched", e.selection.Matched),
			zap.Int("requested", len(path)),
		)
	}
	e.zoom = 1
	vp := e.tracker.Snapshot()
	e.tracker.HandleScroll(vp.ScrollTop, 0)
	return e.selection
}

func (e *Engine) SelectionPath() selection.Path {
	return e.path
}

// Selected is the row the current frame is normalized to.
func (e *Engine) Selected() selection.Result {
	return e.selection
}

// DrillDown selects row. Rows that were not drawn in the last frame are
// ignored. It reports false when the row's name path resolves to another
// row, as with repeated sibling frames in a time-ordered table; the
// selection then stays on the deepest matched ancestor.
func (e *Engine) DrillDown(row int) bool {
	if e.last == nil || !e.last.Visible.Contains(row) {
		return false
	}
	e.metrics.drilldowns.Inc()
	return e.SetSelectionPath(selection.PathTo(e.table, row)).Row == row
}

// Pop selects the parent of the selected row.
func (e *Engine) Pop() selection.Result {
	return e.SetSelectionPath(e.path.Truncate(e.selection.Matched).Pop())
}

func (e *Engine) SetColorBy(by palette.ColorBy) {
	e.colorBy = by
}

func (e *Engine) ColorBy() palette.ColorBy {
	return e.colorBy
}

func (e *Engine) SetDark(dark bool) {
	e.dark = dark
}

func (e *Engine) Dark() bool {
	return e.dark
}

// SetDepthLimit changes the frame-count limit. The effective depth follows on
// the next scheduler frame.
func (e *Engine) SetDepthLimit(limit int) {
	e.limit.SetLimit(limit)
}

func (e *Engine) DepthLimit() int {
	return e.limit.Limit()
}

func (e *Engine) SetMode(mode geometry.Mode) {
	if mode == geometry.ModeFlameChart && !e.table.Has(table.FieldTimestamp) {
		e.logger.Debug(context.Background(), "Flame chart requested for a table without timestamps")
	}
	e.mode = mode
}

func (e *Engine) Mode() geometry.Mode {
	return e.mode
}

func (e *Engine) SetInverted(inverted bool) {
	e.inverted = inverted
}

func (e *Engine) Inverted() bool {
	return e.inverted
}

////////////////////////////////////////////////////////////////////////////////

// ZoomLevel is the ratio of content width to container width.
func (e *Engine) ZoomLevel() float64 {
	return e.zoom
}

// Zoom multiplies the zoom level, keeping anchor (a content x) under the
// pointer. The scroll change goes through the tracker.
func (e *Engine) Zoom(factor float64, anchor float64) {
	if !(factor > 0) {
		return
	}
	next := min(max(e.zoom*factor, 1), e.conf.MaxZoom)
	if next == e.zoom {
		return
	}

	vp := e.tracker.Snapshot()
	pointer := anchor - vp.ScrollLeft
	scrollLeft := anchor*next/e.zoom - pointer
	e.zoom = next

	scale := e.minimapScale(vp)
	e.tracker.HandleScroll(vp.ScrollTop, scale.Clamp(scrollLeft))
}

var _ minimap.ZoomTarget = (*Engine)(nil)

////////////////////////////////////////////////////////////////////////////////

func (e *Engine) contentHeight(eff int) float64 {
	return float64(eff+1) * e.conf.Visible.RowHeight
}

// Frame computes the draw list for the current viewport snapshot.
func (e *Engine) Frame() *Frame {
	vp := e.tracker.Snapshot()
	eff := e.limit.Effective()
	pixelWidth := vp.ContainerWidth * e.zoom
	contentHeight := e.contentHeight(eff)

	// The selector counts depth from the top; in inverted mode depth 0 sits
	// at the bottom of the content.
	selectVP := vp
	if e.inverted {
		selectVP.ScrollTop = max(contentHeight-vp.ScrollTop-vp.ContainerHeight, 0)
	}

	res := e.selector.Select(visible.Input{
		Table:             e.table,
		Index:             e.indices.Get(e.table),
		Viewport:          selectVP,
		SelectedRow:       e.selection.Row,
		EffectiveMaxDepth: eff,
		PixelWidth:        pixelWidth,
		Mode:              e.mode,
	})

	layout := geometry.Layout{
		Mode:              e.mode,
		RowHeight:         e.conf.Visible.RowHeight,
		RowGap:            e.conf.Gap(),
		PixelWidth:        pixelWidth,
		Inverted:          e.inverted,
		EffectiveMaxDepth: eff,
	}
	colors := e.colors.Get(e.table, e.colorBy, e.dark)

	frame := &Frame{
		Table:             e.table.ID(),
		Viewport:          vp,
		Selection:         e.selection,
		EffectiveMaxDepth: eff,
		Zoom:              e.zoom,
		ContentWidth:      pixelWidth,
		ContentHeight:     contentHeight,
		Layout:            layout,
		Visible:           res,
		Nodes:             geometry.Render(e.table, res.Rows, e.selection.Row, layout, colors),
		Minimap:           e.renderMinimap(eff, colors),
		Indicator:         minimap.Indicator(vp, pixelWidth, contentHeight, e.minimapOptions(eff)),
	}

	e.metrics.frames.Inc()
	e.metrics.nodes.Set(int64(len(frame.Nodes)))
	e.last = frame
	return frame
}

// LastFrame returns the frame computed by the last Frame call, or nil.
func (e *Engine) LastFrame() *Frame {
	return e.last
}

func (e *Engine) minimapOptions(eff int) minimap.Options {
	opts := e.conf.Minimap
	opts.MaxDepth = eff
	opts.Mode = e.mode
	return opts
}

func (e *Engine) renderMinimap(eff int, colors *palette.Assignment) *image.RGBA {
	// Minimap shows the whole selection, so it is drawn unzoomed.
	colorKey := fmt.Sprintf("%s/%t", e.colorBy, e.dark)
	return e.minimap.Get(e.table, e.selection.Row, e.minimapOptions(eff), colors, colorKey)
}

////////////////////////////////////////////////////////////////////////////////

// HitTest returns the row drawn at content coordinates (x, y) in the last
// frame.
func (e *Engine) HitTest(x, y float64) (int, bool) {
	if e.last == nil {
		return -1, false
	}
	for _, node := range e.last.Nodes {
		if node.Rect.Contains(x, y) {
			return int(node.Row), true
		}
	}
	return -1, false
}

// Hover updates the hovered row and notifies OnHover subscribers when it
// changes.
func (e *Engine) Hover(x, y float64) {
	row, ok := e.HitTest(x, y)
	if !ok {
		row = -1
	}
	if row == e.hovered {
		return
	}
	e.hovered = row
	e.hover.Publish(e.describe(row))
}

// OnHover registers a tooltip callback.
func (e *Engine) OnHover(fn func(Hover)) *observe.Subscription[Hover] {
	return e.hover.Subscribe(fn)
}

////////////////////////////////////////////////////////////////////////////////

func (e *Engine) minimapScale(vp viewport.Snapshot) minimap.Scale {
	return minimap.Scale{
		MinimapWidth:   float64(e.conf.Minimap.Width),
		ContentWidth:   vp.ContainerWidth * e.zoom,
		ContainerWidth: vp.ContainerWidth,
	}
}

// MinimapClick centers the main view on minimap x.
func (e *Engine) MinimapClick(x float64) {
	vp := e.tracker.Snapshot()
	e.tracker.HandleScroll(vp.ScrollTop, e.minimapScale(vp).CenterAt(x))
}

func (e *Engine) MinimapDragBegin(x float64) {
	vp := e.tracker.Snapshot()
	e.drag.Begin(x, vp.ScrollLeft, e.minimapScale(vp))
}

func (e *Engine) MinimapDragMove(x float64) {
	scrollLeft, ok := e.drag.Move(x)
	if !ok {
		return
	}
	vp := e.tracker.Snapshot()
	e.tracker.HandleScroll(vp.ScrollTop, scrollLeft)
}

func (e *Engine) MinimapDragEnd() {
	e.drag.End()
}

// MinimapWheel forwards zoom gestures to the main view and reports whether
// the event was consumed.
func (e *Engine) MinimapWheel(ev minimap.WheelEvent) bool {
	return minimap.Wheel(ev, e.minimapScale(e.tracker.Snapshot()), e)
}

////////////////////////////////////////////////////////////////////////////////

// Close cancels deferred work and drops subscribers and cached state. The
// table and the tracker are left to their owners.
func (e *Engine) Close() {
	if e.closed {
		return
	}
	e.closed = true
	e.limitSub.Close()
	e.limit.Close()
	e.hover.Close()
	e.colors.Forget(e.table.ID())
	e.selector.Reset()
	e.indices.Reset()
	e.minimap.Reset()
	e.last = nil
}
