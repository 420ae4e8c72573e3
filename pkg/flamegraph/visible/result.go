package visible

import (
	"github.com/RoaringBitmap/roaring"
)

// Range is an inclusive depth interval. The zero value holds depth 0 only;
// use Empty for a range that holds nothing.
type Range struct {
	Min int
	Max int
}

func Empty() Range {
	return Range{Min: 0, Max: -1}
}

func (r Range) IsEmpty() bool {
	return r.Max < r.Min
}

func (r Range) Contains(depth int) bool {
	return depth >= r.Min && depth <= r.Max
}

// Union is the smallest range covering both.
func (r Range) Union(other Range) Range {
	switch {
	case r.IsEmpty():
		return other
	case other.IsEmpty():
		return r
	}
	return Range{Min: min(r.Min, other.Min), Max: max(r.Max, other.Max)}
}

////////////////////////////////////////////////////////////////////////////////

// Result is the set of rows to draw in one frame. It is shared between
// identical calls and must not be modified.
type Result struct {
	// Rows in depth order, table order within a depth.
	Rows []int32
	// Range is the depth range that was iterated.
	Range Range

	members *roaring.Bitmap
}

func newResult(rows []int32, iterated Range) *Result {
	members := roaring.New()
	for _, row := range rows {
		members.Add(uint32(row))
	}
	members.RunOptimize()
	return &Result{
		Rows:    rows,
		Range:   iterated,
		members: members,
	}
}

func emptyResult() *Result {
	return &Result{Range: Empty()}
}

func (r *Result) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Rows)
}

// Contains reports whether row is in the draw set.
func (r *Result) Contains(row int) bool {
	if r == nil || r.members == nil || row < 0 {
		return false
	}
	return r.members.Contains(uint32(row))
}
