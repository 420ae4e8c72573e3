package visible_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/yandex/perforator-flame/pkg/flamegraph/depthindex"
	"github.com/yandex/perforator-flame/pkg/flamegraph/geometry"
	"github.com/yandex/perforator-flame/pkg/flamegraph/internal/tabletest"
	"github.com/yandex/perforator-flame/pkg/flamegraph/table"
	"github.com/yandex/perforator-flame/pkg/flamegraph/tablebuild"
	"github.com/yandex/perforator-flame/pkg/flamegraph/viewport"
	"github.com/yandex/perforator-flame/pkg/flamegraph/visible"
)

const rowHeight = visible.DefaultRowHeight

func input(tbl *table.Table, vp viewport.Snapshot, width float64) visible.Input {
	return visible.Input{
		Table:             tbl,
		Index:             depthindex.Build(tbl),
		Viewport:          vp,
		EffectiveMaxDepth: -1,
		PixelWidth:        width,
	}
}

func TestScenarioA_ShallowTable(t *testing.T) {
	tbl := tabletest.Depths(t, []int{0, 1, 1, 2, 2, 1, 2, 2, 1, 2}, 100)
	sel := visible.NewSelector(visible.Config{}, nil)

	res := sel.Select(input(tbl, viewport.Snapshot{ContainerHeight: 3 * rowHeight, ContainerWidth: 50}, 50))
	require.Equal(t, []int32{0, 1, 2, 5, 8, 3, 4, 6, 7, 9}, res.Rows)
	require.Equal(t, visible.Range{Min: 0, Max: 2}, res.Range)
	for row := 0; row < tbl.NumRows(); row++ {
		require.True(t, res.Contains(row), "row %d", row)
	}
	require.False(t, res.Contains(10))
	require.False(t, res.Contains(-1))
}

func TestScenarioA_NarrowRowsCulled(t *testing.T) {
	tbl := tabletest.FromRows(t, []tablebuild.Row{
		{Parent: table.NoParent, Cumulative: 100},
		{Parent: 0, Cumulative: 97},
		{Parent: 0, Cumulative: 2},
		{Parent: 0, Cumulative: 1},
		{Parent: 1, Cumulative: 50},
		{Parent: 2, Cumulative: 1},
	})
	sel := visible.NewSelector(visible.Config{}, nil)

	res := sel.Select(input(tbl, viewport.Snapshot{ContainerHeight: 3 * rowHeight}, 50))
	require.Equal(t, []int32{0, 1, 2, 4}, res.Rows)
}

func TestScenarioB_RenderedRangeNeverShrinks(t *testing.T) {
	tbl := tabletest.Chain(t, 600, 10)
	ix := depthindex.Build(tbl)
	sel := visible.NewSelector(visible.Config{}, nil)

	frame := func(scrollTop float64) *visible.Result {
		in := input(tbl, viewport.Snapshot{ScrollTop: scrollTop, ContainerHeight: 3 * rowHeight}, 800)
		in.Index = ix
		return sel.Select(in)
	}

	top := frame(0)
	require.Equal(t, visible.Range{Min: 0, Max: 18}, top.Range)
	require.Len(t, top.Rows, 19)

	deep := frame(500 * rowHeight)
	require.Equal(t, visible.Range{Min: 0, Max: 503}, deep.Range)

	back := frame(0)
	require.Equal(t, visible.Range{Min: 0, Max: 503}, back.Range)
	require.Len(t, back.Rows, 504)
	require.Equal(t, visible.Range{Min: 0, Max: 503}, sel.Rendered())

	bottom := frame(590 * rowHeight)
	require.Equal(t, visible.Range{Min: 0, Max: 593}, bottom.Range)
	require.Len(t, bottom.Rows, 594)

	// Past the deepest row the window is empty and the range stays put.
	beyond := frame(10000 * rowHeight)
	require.Equal(t, visible.Range{Min: 0, Max: 593}, beyond.Range)
}

func TestScenarioD_MissingCumulative(t *testing.T) {
	tbl := tabletest.Depths(t, []int{0, 1, 1, 2}, 100, tablebuild.WithoutColumns(table.FieldCumulative))
	sel := visible.NewSelector(visible.Config{}, nil)

	for _, vp := range []viewport.Snapshot{
		{},
		{ContainerHeight: 100},
		{ScrollTop: 1000, ContainerHeight: 1},
	} {
		res := sel.Select(input(tbl, vp, 100))
		require.Empty(t, res.Rows)
		require.True(t, res.Range.IsEmpty())
	}
}

func TestSelect_Degenerate(t *testing.T) {
	tbl := tabletest.Depths(t, []int{0, 1, 1}, 100)
	vp := viewport.Snapshot{ContainerHeight: 100}

	for i, in := range []visible.Input{
		{},
		{Table: tbl, Viewport: vp, PixelWidth: 0, EffectiveMaxDepth: -1},
		{Table: tbl, Viewport: vp, PixelWidth: -5, EffectiveMaxDepth: -1},
		{Table: tbl, Viewport: vp, PixelWidth: 100, SelectedRow: 3, EffectiveMaxDepth: -1},
		{Table: tbl, Viewport: vp, PixelWidth: 100, SelectedRow: -1, EffectiveMaxDepth: -1},
	} {
		t.Run(fmt.Sprintf("%d", i), func(t *testing.T) {
			sel := visible.NewSelector(visible.Config{}, nil)
			require.Zero(t, sel.Select(in).Len())
		})
	}

	zero := tabletest.FromRows(t, []tablebuild.Row{
		{Parent: table.NoParent, Cumulative: 10},
		{Parent: 0, Cumulative: 0},
	})
	sel := visible.NewSelector(visible.Config{}, nil)
	in := input(zero, vp, 100)
	in.SelectedRow = 1
	require.Zero(t, sel.Select(in).Len())
}

func TestSelect_Memoized(t *testing.T) {
	tbl := tabletest.Depths(t, []int{0, 1, 1, 2}, 100)
	sel := visible.NewSelector(visible.Config{}, nil)
	in := input(tbl, viewport.Snapshot{ContainerHeight: 100}, 100)

	first := sel.Select(in)
	require.Same(t, first, sel.Select(in))

	in.Viewport.ScrollLeft = 40
	require.Same(t, first, sel.Select(in))

	in.PixelWidth = 200
	require.NotSame(t, first, sel.Select(in))
}

func TestSelect_ZeroHeightHoldsPrevious(t *testing.T) {
	tbl := tabletest.Depths(t, []int{0, 1, 1, 2}, 100)
	sel := visible.NewSelector(visible.Config{}, nil)

	first := sel.Select(input(tbl, viewport.Snapshot{ContainerHeight: 100}, 100))
	require.NotZero(t, first.Len())

	held := sel.Select(input(tbl, viewport.Snapshot{ScrollTop: 5000}, 100))
	require.Same(t, first, held)

	other := tabletest.Depths(t, []int{0, 1, 1, 2}, 100)
	fresh := sel.Select(input(other, viewport.Snapshot{}, 100))
	require.NotSame(t, first, fresh)
}

func TestSelect_NewTableResetsRange(t *testing.T) {
	deep := tabletest.Chain(t, 100, 10)
	sel := visible.NewSelector(visible.Config{}, nil)
	sel.Select(input(deep, viewport.Snapshot{ScrollTop: 80 * rowHeight, ContainerHeight: rowHeight}, 100))
	require.Equal(t, visible.Range{Min: 65, Max: 81}, sel.Rendered())

	next := tabletest.Chain(t, 100, 10)
	res := sel.Select(input(next, viewport.Snapshot{ContainerHeight: rowHeight}, 100))
	require.Equal(t, visible.Range{Min: 0, Max: 16}, res.Range)
	require.Equal(t, visible.Range{Min: 0, Max: 16}, sel.Rendered())
}

func TestSelect_SelectionWindow(t *testing.T) {
	tbl := tabletest.Depths(t, []int{0, 1, 1, 2, 2, 1, 2, 2, 1, 2}, 100)
	sel := visible.NewSelector(visible.Config{}, nil)

	in := input(tbl, viewport.Snapshot{ContainerHeight: 200}, 100)
	in.SelectedRow = 5
	res := sel.Select(in)
	// Ancestors overlap the selection window and span the full width.
	require.Equal(t, []int32{0, 5, 6, 7}, res.Rows)
}

func TestSelect_EffectiveMaxDepth(t *testing.T) {
	tbl := tabletest.Chain(t, 50, 10)
	sel := visible.NewSelector(visible.Config{}, nil)

	in := input(tbl, viewport.Snapshot{ContainerHeight: 1000}, 100)
	in.EffectiveMaxDepth = 30
	res := sel.Select(in)
	require.Equal(t, visible.Range{Min: 0, Max: 30}, res.Range)
	require.Len(t, res.Rows, 31)

	in.EffectiveMaxDepth = 5
	res = sel.Select(in)
	require.Equal(t, visible.Range{Min: 0, Max: 5}, res.Range)
	require.Equal(t, visible.Range{Min: 0, Max: 30}, sel.Rendered())
}

func TestSelect_FlameChartSkipsRoot(t *testing.T) {
	tbl := tabletest.Collapsed(t, "ts=1 main;a 1\nts=2 main;b 1\n", tablebuild.WithTimeOrder())
	sel := visible.NewSelector(visible.Config{}, nil)

	in := input(tbl, viewport.Snapshot{ContainerHeight: 100}, 100)
	in.Mode = geometry.ModeFlameChart
	res := sel.Select(in)
	require.False(t, res.Contains(0))
	require.Equal(t, tbl.NumRows()-1, res.Len())

	in.Mode = geometry.ModeIcicle
	require.True(t, sel.Select(in).Contains(0))
}

////////////////////////////////////////////////////////////////////////////////

func randomRows(t *rapid.T) []tablebuild.Row {
	n := rapid.IntRange(1, 60).Draw(t, "rows")
	rows := make([]tablebuild.Row, n)
	rows[0].Parent = table.NoParent
	for i := 1; i < n; i++ {
		rows[i].Parent = int32(rapid.IntRange(0, i-1).Draw(t, fmt.Sprintf("parent%d", i)))
	}
	for i := n - 1; i >= 0; i-- {
		rows[i].Cumulative += uint64(rapid.IntRange(1, 1000).Draw(t, fmt.Sprintf("flat%d", i)))
		if i > 0 {
			rows[rows[i].Parent].Cumulative += rows[i].Cumulative
		}
	}
	return rows
}

func TestSelect_CullingSound(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		tbl := tabletest.FromRows(t, randomRows(t))
		conf := visible.Config{Buffer: rapid.IntRange(-1, 3).Draw(t, "buffer")}
		sel := visible.NewSelector(conf, nil)
		conf = sel.Config()

		in := input(tbl, viewport.Snapshot{
			ScrollTop:       float64(rapid.IntRange(0, 2000).Draw(t, "scrollTop")),
			ContainerHeight: float64(rapid.IntRange(0, 300).Draw(t, "height")),
		}, float64(rapid.IntRange(1, 2000).Draw(t, "width")))
		in.SelectedRow = rapid.IntRange(0, tbl.NumRows()-1).Draw(t, "selected")
		in.EffectiveMaxDepth = rapid.IntRange(-1, 12).Draw(t, "maxDepth")

		res := sel.Select(in)

		selOffset := tbl.ValueOffset(in.SelectedRow)
		selCumulative := tbl.Cumulative(in.SelectedRow)
		for row := 0; row < tbl.NumRows(); row++ {
			offset, cumulative := tbl.ValueOffset(row), tbl.Cumulative(row)
			outOfBand := !res.Range.Contains(int(tbl.Depth(row)))
			outOfWindow := !(offset < selOffset+selCumulative && selOffset < offset+cumulative)
			tooNarrow := float64(cumulative)*(in.PixelWidth/float64(selCumulative)) < conf.MinWidth

			dropped := outOfBand || outOfWindow || tooNarrow
			require.Equal(t, !dropped, res.Contains(row), "row %d", row)
		}
		if in.EffectiveMaxDepth >= 0 && !res.Range.IsEmpty() {
			require.LessOrEqual(t, res.Range.Max, in.EffectiveMaxDepth)
		}
	})
}

func TestSelect_MonotonicRange(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		tbl := tabletest.FromRows(t, randomRows(t))
		sel := visible.NewSelector(visible.Config{Buffer: 1, RowHeight: 10}, nil)

		prev := visible.Empty()
		steps := rapid.IntRange(1, 20).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			vp := viewport.Snapshot{
				ScrollTop:       float64(rapid.IntRange(0, 600).Draw(t, fmt.Sprintf("scroll%d", i))),
				ContainerHeight: float64(rapid.IntRange(0, 100).Draw(t, fmt.Sprintf("height%d", i))),
			}
			sel.Select(input(tbl, vp, 500))

			cur := sel.Rendered()
			if !prev.IsEmpty() {
				require.LessOrEqual(t, cur.Min, prev.Min)
				require.GreaterOrEqual(t, cur.Max, prev.Max)
			}
			prev = cur
		}
	})
}

func TestSelect_Idempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		tbl := tabletest.FromRows(t, randomRows(t))
		sel := visible.NewSelector(visible.Config{}, nil)
		in := input(tbl, viewport.Snapshot{
			ScrollTop:       float64(rapid.IntRange(0, 500).Draw(t, "scrollTop")),
			ContainerHeight: float64(rapid.IntRange(0, 500).Draw(t, "height")),
		}, 300)
		in.SelectedRow = rapid.IntRange(0, tbl.NumRows()-1).Draw(t, "selected")

		require.Same(t, sel.Select(in), sel.Select(in))
	})
}
