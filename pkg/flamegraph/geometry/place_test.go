package geometry_test

import (
	"fmt"
	"image/color"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yandex/perforator-flame/pkg/flamegraph/geometry"
	"github.com/yandex/perforator-flame/pkg/flamegraph/internal/tabletest"
	"github.com/yandex/perforator-flame/pkg/flamegraph/table"
	"github.com/yandex/perforator-flame/pkg/flamegraph/tablebuild"
	"github.com/yandex/perforator-flame/pkg/flamegraph/viewport"
)

var scenarioDepths = []int{0, 1, 1, 2, 2, 1, 2, 2, 1, 2}

func icicle(width float64) geometry.Layout {
	return geometry.Layout{
		RowHeight:         26,
		RowGap:            1,
		PixelWidth:        width,
		EffectiveMaxDepth: -1,
	}
}

func TestPlace_Icicle(t *testing.T) {
	tbl := tabletest.Depths(t, scenarioDepths, 100)

	for i, test := range []struct {
		row      int
		selected int
		layout   geometry.Layout
		rect     geometry.Rect
		placed   bool
	}{
		{row: 0, selected: 0, layout: icicle(100), rect: geometry.Rect{X: 0, Y: 0, Width: 100, Height: 25}, placed: true},
		{row: 2, selected: 0, layout: icicle(100), rect: geometry.Rect{X: 25, Y: 26, Width: 25, Height: 25}, placed: true},
		{row: 4, selected: 0, layout: icicle(100), rect: geometry.Rect{X: 37, Y: 52, Width: 12, Height: 25}, placed: true},
		{row: 3, selected: 2, layout: icicle(100), rect: geometry.Rect{X: 0, Y: 52, Width: 48, Height: 25}, placed: true},
		{row: 4, selected: 2, layout: icicle(100), rect: geometry.Rect{X: 48, Y: 52, Width: 48, Height: 25}, placed: true},
		// Ancestors are clipped to the selection width.
		{row: 0, selected: 2, layout: icicle(100), rect: geometry.Rect{X: 0, Y: 0, Width: 100, Height: 25}, placed: true},
		// Siblings of the selection fall outside.
		{row: 1, selected: 2, layout: icicle(100)},
		{row: 5, selected: 2, layout: icicle(100)},
		{row: 10, selected: 0, layout: icicle(100)},
		{row: 0, selected: -1, layout: icicle(100)},
		{row: 0, selected: 0, layout: icicle(0)},
	} {
		t.Run(fmt.Sprintf("%d", i), func(t *testing.T) {
			rect, ok := geometry.Place(tbl, test.row, test.selected, test.layout)
			require.Equal(t, test.placed, ok)
			if ok {
				require.InDelta(t, test.rect.X, rect.X, 1e-9)
				require.InDelta(t, test.rect.Y, rect.Y, 1e-9)
				require.InDelta(t, test.rect.Width, rect.Width, 1e-9)
				require.InDelta(t, test.rect.Height, rect.Height, 1e-9)
			}
		})
	}
}

func TestPlace_InvertedAndDepthLimit(t *testing.T) {
	tbl := tabletest.Depths(t, scenarioDepths, 100)

	layout := icicle(100)
	layout.Inverted = true
	root, ok := geometry.Place(tbl, 0, 0, layout)
	require.True(t, ok)
	require.EqualValues(t, 52, root.Y)

	leaf, ok := geometry.Place(tbl, 3, 0, layout)
	require.True(t, ok)
	require.EqualValues(t, 0, leaf.Y)

	layout.EffectiveMaxDepth = 1
	_, ok = geometry.Place(tbl, 3, 0, layout)
	require.False(t, ok)
	root, ok = geometry.Place(tbl, 0, 0, layout)
	require.True(t, ok)
	require.EqualValues(t, 26, root.Y)

	require.Equal(t, 1, layout.Depth(tbl, 0))
	require.Equal(t, 0, layout.Depth(tbl, 30))
	require.Equal(t, -1, layout.Depth(tbl, 60))
	require.Equal(t, -1, layout.Depth(tbl, -1))
}

func TestPlace_FlameChart(t *testing.T) {
	tbl := tabletest.Collapsed(t, "ts=10 main;a 5\nts=15 main;b 5\n", tablebuild.WithTimeOrder())
	names := tbl.Strings(table.FieldFunctionName)

	layout := icicle(100)
	layout.Mode = geometry.ModeFlameChart

	xs := map[string]float64{}
	for row := 0; row < tbl.NumRows(); row++ {
		rect, ok := geometry.Place(tbl, row, 0, layout)
		require.True(t, ok)
		xs[names.Value(row)] = rect.X
	}
	require.Equal(t, map[string]float64{"all": 0, "main": 0, "a": 0, "b": 50}, xs)

	plain := tabletest.Collapsed(t, "main;a 5\n")
	_, ok := geometry.Place(plain, 1, 0, layout)
	require.False(t, ok)
}

type fixedColor color.RGBA

func (c fixedColor) RowColor(int) color.RGBA {
	return color.RGBA(c)
}

func TestRender(t *testing.T) {
	tbl := tabletest.Depths(t, scenarioDepths, 100)
	red := fixedColor{R: 0xff, A: 0xff}

	nodes := geometry.Render(tbl, []int32{0, 1, 2, 3}, 2, icicle(100), red)
	require.Len(t, nodes, 3)
	require.Equal(t, []int32{0, 2, 3}, []int32{nodes[0].Row, nodes[1].Row, nodes[2].Row})
	require.Equal(t, color.RGBA(red), nodes[0].Color)
	require.True(t, nodes[1].Rect.Contains(50, 30))
	require.False(t, nodes[1].Rect.Contains(50, 60))

	nodes = geometry.Render(tbl, []int32{0}, 0, icicle(100), nil)
	require.Equal(t, geometry.Neutral, nodes[0].Color)
}

func TestParseMode(t *testing.T) {
	mode, err := geometry.ParseMode("flamechart")
	require.NoError(t, err)
	require.Equal(t, geometry.ModeFlameChart, mode)

	var m geometry.Mode
	require.NoError(t, m.UnmarshalText([]byte("icicle")))
	require.Equal(t, geometry.ModeIcicle, m)
	require.Error(t, m.UnmarshalText([]byte("sandwich")))
	require.Equal(t, "flamechart", geometry.ModeFlameChart.String())
}

func TestDepthLimit_Deferred(t *testing.T) {
	scheduler := viewport.NewManualScheduler()
	limit := geometry.NewDepthLimit(scheduler, 0, 40)
	defer limit.Close()
	require.Equal(t, 40, limit.Effective())

	var changes []int
	limit.Subscribe(func(depth int) { changes = append(changes, depth) })

	limit.SetLimit(10)
	require.Equal(t, 40, limit.Effective())
	require.True(t, limit.Pending())

	limit.SetLimit(20)
	limit.SetLimit(25)
	require.Equal(t, 1, scheduler.Flush())
	require.Equal(t, 25, limit.Effective())
	require.Equal(t, []int{25}, changes)
	require.False(t, limit.Pending())

	limit.SetLimit(100)
	scheduler.Flush()
	require.Equal(t, 40, limit.Effective())

	limit.SetTableMaxDepth(41)
	scheduler.Flush()
	require.Equal(t, 41, limit.Effective())
	require.Equal(t, []int{25, 40, 41}, changes)

	limit.SetLimit(-1)
	scheduler.Flush()
	require.Equal(t, []int{25, 40, 41}, changes)
	require.Equal(t, -1, limit.Limit())
}

func TestDepthLimit_Close(t *testing.T) {
	scheduler := viewport.NewManualScheduler()
	limit := geometry.NewDepthLimit(scheduler, 5, 40)
	require.Equal(t, 5, limit.Effective())

	limit.SetLimit(7)
	limit.Close()
	require.Zero(t, scheduler.Flush())
	require.Equal(t, 5, limit.Effective())

	limit.SetLimit(9)
	require.Zero(t, scheduler.Pending())
}

func TestPlace_FlameChartGaps(t *testing.T) {
	// all, main, a at [0, 5), b at [100, 105)
	tbl := tabletest.Collapsed(t, "ts=0 main;a 5\nts=100 main;b 5\n", tablebuild.WithTimeOrder())
	names := tbl.Strings(table.FieldFunctionName)

	layout := icicle(100)
	layout.Mode = geometry.ModeFlameChart

	rects := map[string]geometry.Rect{}
	for row := 0; row < tbl.NumRows(); row++ {
		rect, ok := geometry.Place(tbl, row, 0, layout)
		require.True(t, ok, "row %d", row)
		rects[names.Value(row)] = rect
	}

	require.InDelta(t, 100, rects["main"].Width, 1e-9)
	require.InDelta(t, 0, rects["a"].X, 1e-9)
	require.InDelta(t, 500.0/105, rects["a"].Width, 1e-9)
	require.InDelta(t, 10000.0/105, rects["b"].X, 1e-9)
	require.InDelta(t, 500.0/105, rects["b"].Width, 1e-9)

	// Selecting b alone stretches it over the full width.
	rect, ok := geometry.Place(tbl, 3, 3, layout)
	require.True(t, ok)
	require.Equal(t, geometry.Rect{X: 0, Y: 52, Width: 100, Height: 25}, rect)
}
