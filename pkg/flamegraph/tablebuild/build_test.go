package tablebuild_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yandex/perforator-flame/pkg/flamegraph/collapsed"
	"github.com/yandex/perforator-flame/pkg/flamegraph/table"
	"github.com/yandex/perforator-flame/pkg/flamegraph/tablebuild"
)

func buildTable(t *testing.T, raw string, opts ...tablebuild.Option) *table.Table {
	profile, err := collapsed.Unmarshal([]byte(raw))
	require.NoError(t, err)
	rec, err := tablebuild.FromCollapsed(profile, opts...)
	require.NoError(t, err)
	t.Cleanup(rec.Release)

	tbl := table.New(rec)
	t.Cleanup(tbl.Release)
	return tbl
}

type expectedRow struct {
	name   string
	depth  uint32
	offset uint64
	value  uint64
}

func TestBlocksBuilder(t *testing.T) {
	tests := []struct {
		raw      string
		maxDepth int
		expected []expectedRow
	}{
		{
			raw: "",
			expected: []expectedRow{
				{name: "all", depth: 0, offset: 0, value: 0},
			},
		},
		{
			raw: "foo 2\nboo 1",
			expected: []expectedRow{
				{name: "all", depth: 0, offset: 0, value: 3},
				{name: "boo", depth: 1, offset: 0, value: 1},
				{name: "foo", depth: 1, offset: 1, value: 2},
			},
		},
		{
			raw: "foo;boo 5\nfoo;bar;baz 1\nbar;baz 10\nbar 7",
			expected: []expectedRow{
				{name: "all", depth: 0, offset: 0, value: 23},
				{name: "bar", depth: 1, offset: 0, value: 17},
				{name: "baz", depth: 2, offset: 0, value: 10},
				{name: "foo", depth: 1, offset: 17, value: 6},
				{name: "bar", depth: 2, offset: 17, value: 1},
				{name: "baz", depth: 3, offset: 17, value: 1},
				{name: "boo", depth: 2, offset: 18, value: 5},
			},
		},
		{
			raw:      "1;2;3;4;5;6;7;8;9;10 1\na;b;c 1\nf1;f2;f3;f4 5",
			maxDepth: 3,
			expected: []expectedRow{
				{name: "all", depth: 0, offset: 0, value: 7},

				{name: "1", depth: 1, offset: 0, value: 1},
				{name: "2", depth: 2, offset: 0, value: 1},
				{name: "(truncated stack)", depth: 3, offset: 0, value: 1},

				{name: "a", depth: 1, offset: 1, value: 1},
				{name: "b", depth: 2, offset: 1, value: 1},
				{name: "c", depth: 3, offset: 1, value: 1},

				{name: "f1", depth: 1, offset: 2, value: 5},
				{name: "f2", depth: 2, offset: 2, value: 5},
				{name: "(truncated stack)", depth: 3, offset: 2, value: 5},
			},
		},
	}

	for i := range tests {
		t.Run(fmt.Sprintf("%d", i), func(t *testing.T) {
			tbl := buildTable(t, tests[i].raw, tablebuild.WithDepthLimit(tests[i].maxDepth))
			require.NoError(t, tbl.Validate())

			names := tbl.Strings(table.FieldFunctionName)
			require.NotNil(t, names)
			require.Equal(t, len(tests[i].expected), tbl.NumRows())
			for row, expected := range tests[i].expected {
				require.Equal(t, expected.name, names.Value(row))
				require.Equal(t, expected.depth, tbl.Depth(row))
				require.Equal(t, expected.offset, tbl.ValueOffset(row))
				require.Equal(t, expected.value, tbl.Cumulative(row))
			}
		})
	}
}

func TestBlocksBuilderTreeInvariants(t *testing.T) {
	tbl := buildTable(t, "a;b;c 3\na;b 2\na;d 4\ne;f;g 1\ne 6\n")

	for row := 0; row < tbl.NumRows(); row++ {
		var sum uint64
		cursor := tbl.ValueOffset(row)
		for _, child := range tbl.Children(row) {
			require.Equal(t, tbl.Depth(row)+1, tbl.Depth(int(child)))
			require.Equal(t, int32(row), tbl.Parent(int(child)))
			require.Equal(t, cursor, tbl.ValueOffset(int(child)))
			cursor += tbl.Cumulative(int(child))
			sum += tbl.Cumulative(int(child))
		}
		require.LessOrEqual(t, sum, tbl.Cumulative(row))
		require.Equal(t, tbl.Cumulative(row)-sum, tbl.Flat(row))
	}
}

func TestMinWeight(t *testing.T) {
	tbl := buildTable(t, "big 98\nsmall 1\ntiny 1\n", tablebuild.WithMinWeight(0.05))
	names := tbl.Strings(table.FieldFunctionName)

	require.Equal(t, 3, tbl.NumRows())
	require.Equal(t, "big", names.Value(1))
	require.Equal(t, "(truncated stack)", names.Value(2))
	require.EqualValues(t, 2, tbl.Cumulative(2))
	require.EqualValues(t, 98, tbl.ValueOffset(2))
}

func TestTimeOrdered(t *testing.T) {
	tbl := buildTable(t, "ts=30 main;a 10\nts=0 main;a 10\nts=10 main;b 10\nts=20 main;a 10\n", tablebuild.WithTimeOrder())
	require.True(t, tbl.Has(table.FieldTimestamp))
	names := tbl.Strings(table.FieldFunctionName)

	// all, main, a(0), b(10), a(20)
	require.Equal(t, 5, tbl.NumRows())
	expected := []struct {
		name string
		ts   uint64
		cum  uint64
	}{
		{"all", 0, 40},
		{"main", 0, 40},
		{"a", 0, 10},
		{"b", 10, 10},
		{"a", 20, 20},
	}
	for row, e := range expected {
		require.Equal(t, e.name, names.Value(row))
		ts, ok := tbl.Timestamp(row)
		require.True(t, ok)
		require.Equal(t, e.ts, ts)
		require.Equal(t, e.cum, tbl.Cumulative(row))
	}
}

func TestTimeOrderedRequiresTimestamps(t *testing.T) {
	profile, err := collapsed.Unmarshal([]byte("main 1\n"))
	require.NoError(t, err)
	_, err = tablebuild.FromCollapsed(profile, tablebuild.WithTimeOrder())
	require.Error(t, err)
}

func TestFromRowsErrors(t *testing.T) {
	for i, rows := range [][]tablebuild.Row{
		nil,
		{{Parent: 0}},
		{{Parent: table.NoParent, Cumulative: 1}, {Parent: 1, Cumulative: 1}},
		{{Parent: table.NoParent, Cumulative: 1}, {Parent: 0, Cumulative: 2}},
	} {
		t.Run(fmt.Sprintf("%d", i), func(t *testing.T) {
			_, err := tablebuild.FromRows(rows)
			require.Error(t, err)
		})
	}
}

func TestWithoutColumns(t *testing.T) {
	rec, err := tablebuild.FromRows([]tablebuild.Row{
		{Parent: table.NoParent, Cumulative: 10, FunctionName: "root"},
		{Parent: 0, Cumulative: 5, FunctionName: "child"},
	}, tablebuild.WithoutColumns(table.FieldCumulative, table.FieldFilename))
	require.NoError(t, err)
	defer rec.Release()

	tbl := table.New(rec)
	defer tbl.Release()

	require.False(t, tbl.Has(table.FieldCumulative))
	require.False(t, tbl.Has(table.FieldFilename))
	require.True(t, tbl.Has(table.FieldDepth))
	require.ErrorIs(t, tbl.Validate(), table.ErrSchemaViolation)
	require.Zero(t, tbl.Cumulative(1))
	require.Equal(t, []int32{1}, tbl.Children(0))
}
