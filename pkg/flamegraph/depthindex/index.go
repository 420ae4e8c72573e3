package depthindex

import (
	"github.com/yandex/perforator-flame/pkg/flamegraph/table"
)

// Index groups row indices by tree depth. Within a bucket rows keep table
// order.
type Index struct {
	tableID table.ID
	buckets [][]int32
	rows    int
}

// Build scans the depth column once. A table without depth yields an empty
// index.
func Build(t *table.Table) *Index {
	ix := &Index{tableID: t.ID()}
	if !t.Has(table.FieldDepth) {
		return ix
	}

	maxDepth := t.MaxDepth()
	if maxDepth < 0 {
		return ix
	}

	counts := make([]int, maxDepth+1)
	n := t.NumRows()
	for row := 0; row < n; row++ {
		counts[t.Depth(row)]++
	}

	ix.buckets = make([][]int32, maxDepth+1)
	for d, c := range counts {
		ix.buckets[d] = make([]int32, 0, c)
	}
	for row := 0; row < n; row++ {
		d := t.Depth(row)
		ix.buckets[d] = append(ix.buckets[d], int32(row))
	}
	ix.rows = n

	return ix
}

func (ix *Index) TableID() table.ID {
	return ix.tableID
}

// Depths is the number of buckets, i.e. max depth + 1.
func (ix *Index) Depths() int {
	return len(ix.buckets)
}

func (ix *Index) Rows() int {
	return ix.rows
}

func (ix *Index) Empty() bool {
	return len(ix.buckets) == 0
}

// Bucket returns rows at depth d. The slice is shared.
func (ix *Index) Bucket(d int) []int32 {
	if d < 0 || d >= len(ix.buckets) {
		return nil
	}
	return ix.buckets[d]
}

// Range calls fn for every row with minDepth <= depth <= maxDepth, depth by
// depth. Bounds are clamped to the index. Iteration stops when fn returns
// false.
func (ix *Index) Range(minDepth, maxDepth int, fn func(depth int, row int32) bool) {
	minDepth = max(minDepth, 0)
	maxDepth = min(maxDepth, len(ix.buckets)-1)
	for d := minDepth; d <= maxDepth; d++ {
		for _, row := range ix.buckets[d] {
			if !fn(d, row) {
				return
			}
		}
	}
}

// Count is the number of rows in [minDepth, maxDepth].
func (ix *Index) Count(minDepth, maxDepth int) int {
	minDepth = max(minDepth, 0)
	maxDepth = min(maxDepth, len(ix.buckets)-1)
	res := 0
	for d := minDepth; d <= maxDepth; d++ {
		res += len(ix.buckets[d])
	}
	return res
}

////////////////////////////////////////////////////////////////////////////////

// Cache holds the index of the most recent table. A table with a different
// identity triggers a full rebuild.
type Cache struct {
	index *Index
}

func (c *Cache) Get(t *table.Table) *Index {
	if c.index == nil || c.index.tableID != t.ID() {
		c.index = Build(t)
	}
	return c.index
}

func (c *Cache) Reset() {
	c.index = nil
}
