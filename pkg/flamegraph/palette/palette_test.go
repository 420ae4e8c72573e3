package palette_test

import (
	"fmt"
	"image/color"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/yandex/perforator-flame/pkg/flamegraph/internal/tabletest"
	"github.com/yandex/perforator-flame/pkg/flamegraph/palette"
	"github.com/yandex/perforator-flame/pkg/flamegraph/table"
	"github.com/yandex/perforator-flame/pkg/flamegraph/tablebuild"
)

func binaryRows(binaries []string) []tablebuild.Row {
	rows := []tablebuild.Row{{Parent: table.NoParent, Cumulative: uint64(len(binaries))}}
	for _, binary := range binaries {
		rows = append(rows, tablebuild.Row{Parent: 0, Cumulative: 1, Binary: binary, Filename: binary + ".go"})
	}
	return rows
}

func TestHSV(t *testing.T) {
	for i, test := range []struct {
		h, s, v float64
		rgba    color.RGBA
	}{
		{h: 0, s: 1, v: 1, rgba: color.RGBA{R: 255, A: 255}},
		{h: 120, s: 1, v: 1, rgba: color.RGBA{G: 255, A: 255}},
		{h: 240, s: 1, v: 1, rgba: color.RGBA{B: 255, A: 255}},
		{h: 0, s: 0, v: 1, rgba: color.RGBA{R: 255, G: 255, B: 255, A: 255}},
		{h: 0, s: 0, v: 0, rgba: color.RGBA{A: 255}},
	} {
		t.Run(fmt.Sprintf("%d", i), func(t *testing.T) {
			require.Equal(t, test.rgba, palette.HSV(test.h, test.s, test.v))
		})
	}
}

func TestAssign(t *testing.T) {
	tbl := tabletest.FromRows(t, binaryRows([]string{"libc.so", "app", "", "libc.so"}))
	assignment := palette.Assign(tbl.Strings(table.FieldMappingFile), palette.Binaries(), false)

	libc := palette.Binaries().Color("libc.so")
	require.Equal(t, libc, assignment.RowColor(1))
	require.Equal(t, libc, assignment.RowColor(4))
	require.Equal(t, palette.Binaries().Color("app"), assignment.RowColor(2))
	require.Equal(t, palette.Neutral, assignment.RowColor(3))
	require.Equal(t, palette.Neutral, assignment.RowColor(100))

	values := assignment.Values()
	require.Equal(t, libc, values["libc.so"])
	require.Equal(t, palette.Neutral, values[""])
}

func TestAssign_MissingColumn(t *testing.T) {
	tbl := tabletest.FromRows(t, binaryRows([]string{"app"}), tablebuild.WithoutColumns(table.FieldMappingFile))
	assignment := palette.Assign(tbl.Strings(table.FieldMappingFile), palette.Binaries(), false)
	require.Equal(t, palette.Neutral, assignment.RowColor(1))
	require.Empty(t, assignment.Values())

	var nilAssignment *palette.Assignment
	require.Equal(t, palette.Neutral, nilAssignment.RowColor(0))
}

func TestAssign_Dark(t *testing.T) {
	tbl := tabletest.FromRows(t, binaryRows([]string{"app"}))
	light := palette.Assign(tbl.Strings(table.FieldMappingFile), palette.Binaries(), false)
	dark := palette.Assign(tbl.Strings(table.FieldMappingFile), palette.Binaries(), true)

	require.Equal(t, palette.Darken(light.RowColor(1)), dark.RowColor(1))
	require.NotEqual(t, light.RowColor(1), dark.RowColor(1))

	l, d := light.RowColor(1), dark.RowColor(1)
	require.Less(t, int(d.R)+int(d.G)+int(d.B), int(l.R)+int(l.G)+int(l.B))
	require.Equal(t, palette.Neutral, dark.RowColor(0))
}

func TestAssign_Deterministic(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		values := rapid.SliceOfNDistinct(rapid.StringMatching(`[a-z]{1,8}\.so`), 1, 12, rapid.ID[string]).Draw(t, "values")
		perm := rapid.Permutation(values).Draw(t, "perm")

		first := tabletest.FromRows(t, binaryRows(values))
		second := tabletest.FromRows(t, binaryRows(perm))

		for _, by := range []palette.ColorBy{palette.ColorByBinary, palette.ColorByFilename} {
			lhs := palette.Assign(first.Strings(by.Field()), palette.SchemeFor(by), false).Values()
			rhs := palette.Assign(second.Strings(by.Field()), palette.SchemeFor(by), false).Values()
			require.Equal(t, lhs, rhs)
		}
	})
}

func TestWarm(t *testing.T) {
	c := palette.Warm{}.Color("main")
	require.Equal(t, c, palette.Warm{}.Color("main"))
	require.GreaterOrEqual(t, c.R, uint8(205))
	require.Equal(t, uint8(0xff), c.A)
}

func TestColorBy(t *testing.T) {
	for _, by := range []palette.ColorBy{palette.ColorByBinary, palette.ColorByFilename, palette.ColorByFunction} {
		parsed, err := palette.ParseColorBy(by.String())
		require.NoError(t, err)
		require.Equal(t, by, parsed)
	}
	_, err := palette.ParseColorBy("labels")
	require.Error(t, err)

	require.Equal(t, table.FieldMappingFile, palette.ColorByBinary.Field())
	require.Equal(t, table.FieldFilename, palette.ColorByFilename.Field())
	require.Equal(t, table.FieldFunctionName, palette.ColorByFunction.Field())
}

type constant color.RGBA

func (c constant) Color(string) color.RGBA {
	return color.RGBA(c)
}

func TestCache(t *testing.T) {
	first := tabletest.FromRows(t, binaryRows([]string{"app"}))
	second := tabletest.FromRows(t, binaryRows([]string{"app"}))

	cache := palette.NewCache(4)
	a := cache.Get(first, palette.ColorByBinary, false)
	require.Same(t, a, cache.Get(first, palette.ColorByBinary, false))
	require.NotSame(t, a, cache.Get(first, palette.ColorByFilename, false))
	require.NotSame(t, a, cache.Get(first, palette.ColorByBinary, true))
	require.NotSame(t, a, cache.Get(second, palette.ColorByBinary, false))
	require.Equal(t, 4, cache.Len())

	cache.Forget(second.ID())
	require.Equal(t, 3, cache.Len())

	blue := constant{B: 0xff, A: 0xff}
	cache.SetScheme(palette.ColorByBinary, blue)
	require.Equal(t, color.RGBA(blue), cache.Get(first, palette.ColorByBinary, false).RowColor(1))
	require.Equal(t, 2, cache.Len())
}
