package geometry

import (
	"image/color"

	"github.com/yandex/perforator-flame/pkg/flamegraph/table"
)

// Layout holds the parameters shared by every node of one frame.
type Layout struct {
	Mode      Mode
	RowHeight float64
	// RowGap is subtracted from RowHeight to separate levels.
	RowGap float64
	// PixelWidth is the width of the selection in pixels, zoom included.
	PixelWidth float64
	// Inverted grows the graph upwards from the effective max depth.
	Inverted bool
	// EffectiveMaxDepth bounds placed depths. Negative uses the table max
	// depth.
	EffectiveMaxDepth int
}

type Rect struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x < r.X+r.Width && y >= r.Y && y < r.Y+r.Height
}

type Node struct {
	Row   int32
	Rect  Rect
	Color color.RGBA
}

// Colorer picks the fill of a row.
type Colorer interface {
	RowColor(row int) color.RGBA
}

// Neutral is used when no colorer is given.
var Neutral = color.RGBA{R: 0xb0, G: 0xb0, B: 0xb0, A: 0xff}

////////////////////////////////////////////////////////////////////////////////

func (l Layout) effectiveMaxDepth(t *table.Table) int {
	if l.EffectiveMaxDepth < 0 {
		return t.MaxDepth()
	}
	return min(l.EffectiveMaxDepth, t.MaxDepth())
}

// Row returns the top of depth in layout coordinates.
func (l Layout) Row(t *table.Table, depth int) float64 {
	if l.Inverted {
		return float64(l.effectiveMaxDepth(t)-depth) * l.RowHeight
	}
	return float64(depth) * l.RowHeight
}

// Depth maps a y coordinate back to a depth, or -1 outside the graph.
func (l Layout) Depth(t *table.Table, y float64) int {
	if l.RowHeight <= 0 || y < 0 {
		return -1
	}
	level := int(y / l.RowHeight)
	depth := level
	if l.Inverted {
		depth = l.effectiveMaxDepth(t) - level
	}
	if depth < 0 || depth > l.effectiveMaxDepth(t) {
		return -1
	}
	return depth
}

// Place computes the rectangle of row relative to selected. Rows that are
// deeper than the effective max depth, lie outside the horizontal extent or
// lack the columns of the current mode are not placed.
func Place(t *table.Table, row, selected int, l Layout) (Rect, bool) {
	if row < 0 || row >= t.NumRows() || selected < 0 || selected >= t.NumRows() {
		return Rect{}, false
	}
	if !t.Has(table.FieldDepth) || !t.Has(table.FieldCumulative) || !(l.PixelWidth > 0) {
		return Rect{}, false
	}
	selCumulative := t.Cumulative(selected)
	if selCumulative == 0 {
		return Rect{}, false
	}

	depth := int(t.Depth(row))
	if depth > l.effectiveMaxDepth(t) {
		return Rect{}, false
	}

	var start, end float64
	switch l.Mode {
	case ModeFlameChart:
		// The selection's time span fills the width; gaps between samples
		// stay visible.
		rowStart, rowEnd, ok := t.TimeSpan(row)
		selStart, selEnd, selOK := t.TimeSpan(selected)
		if !ok || !selOK || selEnd <= selStart {
			return Rect{}, false
		}
		scale := l.PixelWidth / float64(selEnd-selStart)
		start = (float64(rowStart) - float64(selStart)) * scale
		end = (float64(rowEnd) - float64(selStart)) * scale
	default:
		if !t.Has(table.FieldValueOffset) {
			return Rect{}, false
		}
		scale := l.PixelWidth / float64(selCumulative)
		start = (float64(t.ValueOffset(row)) - float64(t.ValueOffset(selected))) * scale
		end = start + float64(t.Cumulative(row))*scale
	}

	start = max(start, 0)
	end = min(end, l.PixelWidth)
	if end <= start {
		return Rect{}, false
	}

	return Rect{
		X:      start,
		Y:      l.Row(t, depth),
		Width:  end - start,
		Height: max(l.RowHeight-l.RowGap, 0),
	}, true
}

// Render places rows and colors them. Unplaced rows are skipped.
func Render(t *table.Table, rows []int32, selected int, l Layout, colorer Colorer) []Node {
	nodes := make([]Node, 0, len(rows))
	for _, row := range rows {
		rect, ok := Place(t, int(row), selected, l)
		if !ok {
			continue
		}
		fill := Neutral
		if colorer != nil {
			fill = colorer.RowColor(int(row))
		}
		nodes = append(nodes, Node{Row: row, Rect: rect, Color: fill})
	}
	return nodes
}
