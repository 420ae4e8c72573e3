// Package tabletest builds small profile tables for tests.
package tabletest

import (
	"github.com/stretchr/testify/require"

	"github.com/yandex/perforator-flame/pkg/flamegraph/collapsed"
	"github.com/yandex/perforator-flame/pkg/flamegraph/table"
	"github.com/yandex/perforator-flame/pkg/flamegraph/tablebuild"
)

// TB is satisfied by *testing.T and *rapid.T.
type TB interface {
	require.TestingT
	Helper()
}

func releaseLater(t TB, tbl *table.Table) {
	if c, ok := t.(interface{ Cleanup(func()) }); ok {
		c.Cleanup(tbl.Release)
	}
}

// FromRows encodes rows and registers cleanup when t supports it.
func FromRows(t TB, rows []tablebuild.Row, opts ...tablebuild.Option) *table.Table {
	t.Helper()
	rec, err := tablebuild.FromRows(rows, opts...)
	require.NoError(t, err)
	tbl := table.New(rec)
	rec.Release()
	releaseLater(t, tbl)
	return tbl
}

// Collapsed parses raw collapsed stacks and builds a table.
func Collapsed(t TB, raw string, opts ...tablebuild.Option) *table.Table {
	t.Helper()
	profile, err := collapsed.Unmarshal([]byte(raw))
	require.NoError(t, err)
	rec, err := tablebuild.FromCollapsed(profile, opts...)
	require.NoError(t, err)
	tbl := table.New(rec)
	rec.Release()
	releaseLater(t, tbl)
	return tbl
}

// Depths builds a table whose rows have the given depths; each row's parent
// is the closest preceding row one level up. Cumulative values are split
// evenly (integer division) among children, starting from total at the root.
func Depths(t TB, depths []int, total uint64, opts ...tablebuild.Option) *table.Table {
	t.Helper()
	return FromRows(t, DepthRows(depths, total), opts...)
}

func DepthRows(depths []int, total uint64) []tablebuild.Row {
	rows := make([]tablebuild.Row, len(depths))
	last := map[int]int32{}
	children := make([]int, len(depths))
	for i, d := range depths {
		parent := table.NoParent
		if d > 0 {
			parent = last[d-1]
			children[parent]++
		}
		last[d] = int32(i)
		rows[i] = tablebuild.Row{Parent: parent}
	}
	for i := range rows {
		if rows[i].Parent == table.NoParent {
			rows[i].Cumulative = total
			continue
		}
		p := rows[i].Parent
		rows[i].Cumulative = rows[p].Cumulative / uint64(children[p])
	}
	return rows
}

// Chain builds a single path of the given depth where every row has the same
// cumulative value.
func Chain(t TB, depth int, value uint64) *table.Table {
	t.Helper()
	rows := make([]tablebuild.Row, depth+1)
	rows[0] = tablebuild.Row{Parent: table.NoParent, Cumulative: value, FunctionName: "root"}
	for i := 1; i <= depth; i++ {
		rows[i] = tablebuild.Row{Parent: int32(i - 1), Cumulative: value, FunctionName: "frame"}
	}
	return FromRows(t, rows)
}
