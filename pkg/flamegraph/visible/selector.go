package visible

import (
	"math"

	"github.com/yandex/perforator-flame/pkg/flamegraph/depthindex"
	"github.com/yandex/perforator-flame/pkg/flamegraph/geometry"
	"github.com/yandex/perforator-flame/pkg/flamegraph/table"
	"github.com/yandex/perforator-flame/pkg/flamegraph/viewport"
	"github.com/yandex/perforator-flame/pkg/metrics"
)

const (
	DefaultRowHeight = 26
	DefaultBuffer    = 15
	DefaultMinWidth  = 1
)

type Config struct {
	// RowHeight is the height of one depth level in pixels.
	RowHeight float64 `yaml:"row_height"`
	// Buffer is the number of depth levels rendered above and below the
	// viewport. Negative disables overscan.
	Buffer int `yaml:"buffer"`
	// MinWidth is the narrowest row in pixels that is still drawn.
	MinWidth float64 `yaml:"min_width"`
}

func (c *Config) FillDefault() {
	if c.RowHeight <= 0 {
		c.RowHeight = DefaultRowHeight
	}
	switch {
	case c.Buffer == 0:
		c.Buffer = DefaultBuffer
	case c.Buffer < 0:
		c.Buffer = 0
	}
	if c.MinWidth <= 0 {
		c.MinWidth = DefaultMinWidth
	}
}

// Input is everything a selection pass depends on.
type Input struct {
	Table *table.Table
	// Index must be built for Table. A nil index is rebuilt by the selector.
	Index    *depthindex.Index
	Viewport viewport.Snapshot
	// SelectedRow is the row whose value range spans the full pixel width.
	SelectedRow int
	// EffectiveMaxDepth is the deepest depth to draw. Negative means
	// unlimited.
	EffectiveMaxDepth int
	PixelWidth        float64
	Mode              geometry.Mode
}

type memoKey struct {
	tableID           table.ID
	scrollTop         float64
	containerHeight   float64
	selectedRow       int
	effectiveMaxDepth int
	pixelWidth        float64
	total             uint64
	rows              int
	mode              geometry.Mode
}

////////////////////////////////////////////////////////////////////////////////

// Selector computes the rows to draw per frame. It owns the rendered range
// and the memoized result of one table; both reset when the table changes.
// Not safe for concurrent use.
type Selector struct {
	conf    Config
	metrics *selectorMetrics
	indices depthindex.Cache

	tableID  table.ID
	rendered Range

	key  memoKey
	last *Result
}

type selectorMetrics struct {
	passes      metrics.Counter
	cacheHits   metrics.Counter
	heldResults metrics.Counter
	degenerate  metrics.Counter
	scannedRows metrics.Histogram
	visibleRows metrics.Histogram
}

func NewSelector(conf Config, reg metrics.Registry) *Selector {
	conf.FillDefault()
	if reg == nil {
		reg = metrics.NewNopRegistry()
	}
	reg = reg.WithPrefix("visible")
	rowBuckets := metrics.MakeExponentialBuckets(1, 4, 10)

	return &Selector{
		conf: conf,
		metrics: &selectorMetrics{
			passes:      reg.Counter("passes.count"),
			cacheHits:   reg.Counter("cache_hits.count"),
			heldResults: reg.Counter("held_results.count"),
			degenerate:  reg.Counter("degenerate.count"),
			scannedRows: reg.Histogram("scanned_rows.hist", rowBuckets),
			visibleRows: reg.Histogram("visible_rows.hist", rowBuckets),
		},
		rendered: Empty(),
	}
}

func (s *Selector) Config() Config {
	return s.conf
}

// Rendered returns the union of all depth ranges visited for the current
// table.
func (s *Selector) Rendered() Range {
	return s.rendered
}

// Reset forgets the rendered range and the memoized result.
func (s *Selector) Reset() {
	s.tableID = 0
	s.rendered = Empty()
	s.key = memoKey{}
	s.last = nil
	s.indices.Reset()
}

// Select returns the rows to draw for in. Identical consecutive inputs return
// the same *Result.
func (s *Selector) Select(in Input) *Result {
	t := in.Table
	if t == nil {
		s.metrics.degenerate.Inc()
		return emptyResult()
	}

	if t.ID() != s.tableID {
		s.Reset()
		s.tableID = t.ID()
	}

	if in.Viewport.ContainerHeight <= 0 && s.last.Len() > 0 {
		s.metrics.heldResults.Inc()
		return s.last
	}

	key := memoKey{
		tableID:           t.ID(),
		scrollTop:         in.Viewport.ScrollTop,
		containerHeight:   in.Viewport.ContainerHeight,
		selectedRow:       in.SelectedRow,
		effectiveMaxDepth: in.EffectiveMaxDepth,
		pixelWidth:        in.PixelWidth,
		total:             t.Total(),
		rows:              t.NumRows(),
		mode:              in.Mode,
	}
	if s.last != nil && key == s.key {
		s.metrics.cacheHits.Inc()
		return s.last
	}

	res := s.compute(in)
	s.key = key
	s.last = res
	return res
}

func (s *Selector) degenerate(in Input) bool {
	t := in.Table
	switch {
	case t.Validate() != nil:
		return true
	case t.Total() == 0:
		return true
	case in.SelectedRow < 0 || in.SelectedRow >= t.NumRows():
		return true
	case t.Cumulative(in.SelectedRow) == 0:
		return true
	case !(in.PixelWidth > 0):
		return true
	}
	return false
}

// DepthWindow is the instantaneous overscanned depth range for a viewport.
func (s *Selector) DepthWindow(vp viewport.Snapshot, effectiveMaxDepth int) Range {
	start := max(0, int(math.Floor(vp.ScrollTop/s.conf.RowHeight))-s.conf.Buffer)
	end := min(effectiveMaxDepth, start+int(math.Ceil(vp.ContainerHeight/s.conf.RowHeight))+s.conf.Buffer)
	return Range{Min: start, Max: end}
}

func (s *Selector) compute(in Input) *Result {
	s.metrics.passes.Inc()
	if s.degenerate(in) {
		s.metrics.degenerate.Inc()
		return emptyResult()
	}
	t := in.Table

	index := in.Index
	if index == nil || index.TableID() != t.ID() {
		index = s.indices.Get(t)
	}

	eff := index.Depths() - 1
	if in.EffectiveMaxDepth >= 0 {
		eff = min(eff, in.EffectiveMaxDepth)
	}
	if eff < 0 {
		s.metrics.degenerate.Inc()
		return emptyResult()
	}

	window := s.DepthWindow(in.Viewport, eff)
	if !window.IsEmpty() {
		s.rendered = s.rendered.Union(window)
	}
	iterated := Range{Min: s.rendered.Min, Max: min(s.rendered.Max, eff)}
	if iterated.IsEmpty() {
		return emptyResult()
	}

	selOffset := t.ValueOffset(in.SelectedRow)
	selCumulative := t.Cumulative(in.SelectedRow)
	selEnd := selOffset + selCumulative
	flameChart := in.Mode == geometry.ModeFlameChart
	scale := in.PixelWidth / float64(selCumulative)
	if flameChart {
		// Widths follow the time axis the rows are drawn on.
		if start, end, ok := t.TimeSpan(in.SelectedRow); ok && end > start {
			scale = in.PixelWidth / float64(end-start)
		}
	}

	rows := make([]int32, 0)
	scanned := 0
	index.Range(iterated.Min, iterated.Max, func(_ int, row int32) bool {
		scanned++
		if flameChart && row == 0 {
			return true
		}
		offset := t.ValueOffset(int(row))
		cumulative := t.Cumulative(int(row))
		if !(offset < selEnd && selOffset < offset+cumulative) {
			return true
		}
		width := float64(cumulative)
		if flameChart {
			if start, end, ok := t.TimeSpan(int(row)); ok {
				width = float64(end - start)
			}
		}
		if width*scale < s.conf.MinWidth {
			return true
		}
		rows = append(rows, row)
		return true
	})

	s.metrics.scannedRows.RecordValue(float64(scanned))
	s.metrics.visibleRows.RecordValue(float64(len(rows)))
	return newResult(rows, iterated)
}
