package table

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/apache/arrow/go/v13/arrow"
	"github.com/apache/arrow/go/v13/arrow/array"
)

// ID identifies one table instance. Two tables built from the same query
// result still have different IDs.
type ID uint64

var lastID atomic.Uint64

////////////////////////////////////////////////////////////////////////////////

type uint64Column struct {
	u *array.Uint64
	i *array.Int64
}

func resolveUint64(col arrow.Array) uint64Column {
	switch c := col.(type) {
	case *array.Uint64:
		return uint64Column{u: c}
	case *array.Int64:
		return uint64Column{i: c}
	default:
		return uint64Column{}
	}
}

func (c uint64Column) ok() bool {
	return c.u != nil || c.i != nil
}

func (c uint64Column) value(row int) uint64 {
	switch {
	case c.u != nil:
		return c.u.Value(row)
	case c.i != nil:
		v := c.i.Value(row)
		if v < 0 {
			return 0
		}
		return uint64(v)
	default:
		return 0
	}
}

////////////////////////////////////////////////////////////////////////////////

// Table is a read-only accessor over a profile record. Columns are resolved
// once; absent or mistyped columns read as zero values and Has reports false.
type Table struct {
	id  ID
	rec arrow.Record
	n   int

	depth       *array.Uint32
	parent      *array.Int32
	children    *array.List
	childValues []int32
	cumulative  uint64Column
	valueOffset uint64Column
	flat        uint64Column
	timestamp   *array.Uint64

	strings map[string]*StringColumn

	maxDepthOnce sync.Once
	maxDepth     int

	timeEndsOnce sync.Once
	timeEnds     []uint64
}

// New wraps rec. The record is retained until Release.
func New(rec arrow.Record) *Table {
	t := &Table{
		id:       ID(lastID.Add(1)),
		strings:  make(map[string]*StringColumn),
		maxDepth: -1,
	}
	if rec == nil {
		return t
	}

	rec.Retain()
	t.rec = rec
	t.n = int(rec.NumRows())

	if col := t.column(FieldDepth); col != nil {
		t.depth, _ = col.(*array.Uint32)
	}
	if col := t.column(FieldParent); col != nil {
		t.parent, _ = col.(*array.Int32)
	}
	if col := t.column(FieldChildren); col != nil {
		if list, ok := col.(*array.List); ok {
			if values, ok := list.ListValues().(*array.Int32); ok {
				t.children = list
				t.childValues = values.Int32Values()
			}
		}
	}
	if col := t.column(FieldCumulative); col != nil {
		t.cumulative = resolveUint64(col)
	}
	if col := t.column(FieldValueOffset); col != nil {
		t.valueOffset = resolveUint64(col)
	}
	if col := t.column(FieldFlat); col != nil {
		t.flat = resolveUint64(col)
	}
	if col := t.column(FieldTimestamp); col != nil {
		t.timestamp, _ = col.(*array.Uint64)
	}
	for _, name := range StringFields {
		if col := t.column(name); col != nil {
			if sc := newStringColumn(col); sc != nil {
				t.strings[name] = sc
			}
		}
	}

	return t
}

func (t *Table) column(name string) arrow.Array {
	indices := t.rec.Schema().FieldIndices(name)
	if len(indices) == 0 {
		return nil
	}
	col := t.rec.Column(indices[0])
	if col.Len() != t.n {
		return nil
	}
	return col
}

// Release drops the reference to the underlying record.
func (t *Table) Release() {
	if t.rec != nil {
		t.rec.Release()
		t.rec = nil
	}
}

func (t *Table) ID() ID {
	return t.id
}

func (t *Table) NumRows() int {
	if t == nil {
		return 0
	}
	return t.n
}

// Has reports whether the named column is present with a usable type.
func (t *Table) Has(name string) bool {
	switch name {
	case FieldDepth:
		return t.depth != nil
	case FieldParent:
		return t.parent != nil
	case FieldChildren:
		return t.children != nil
	case FieldCumulative:
		return t.cumulative.ok()
	case FieldValueOffset:
		return t.valueOffset.ok()
	case FieldFlat:
		return t.flat.ok()
	case FieldTimestamp:
		return t.timestamp != nil
	default:
		_, ok := t.strings[name]
		return ok
	}
}

var ErrSchemaViolation = errors.New("profile table schema violation")

// Validate reports missing required columns. The accessors never fail, so the
// error is informational.
func (t *Table) Validate() error {
	var missing []string
	for _, name := range RequiredFields {
		if !t.Has(name) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing columns %v", ErrSchemaViolation, missing)
	}
	return nil
}

func (t *Table) inRange(row int) bool {
	return row >= 0 && row < t.n
}

func (t *Table) Depth(row int) uint32 {
	if t.depth == nil || !t.inRange(row) {
		return 0
	}
	return t.depth.Value(row)
}

func (t *Table) Parent(row int) int32 {
	if t.parent == nil || !t.inRange(row) {
		return NoParent
	}
	return t.parent.Value(row)
}

// Children returns a view into the children column; callers must not modify it.
func (t *Table) Children(row int) []int32 {
	if t.children == nil || !t.inRange(row) || t.children.IsNull(row) {
		return nil
	}
	start, end := t.children.ValueOffsets(row)
	return t.childValues[start:end]
}

func (t *Table) Cumulative(row int) uint64 {
	if !t.inRange(row) {
		return 0
	}
	return t.cumulative.value(row)
}

func (t *Table) ValueOffset(row int) uint64 {
	if !t.inRange(row) {
		return 0
	}
	return t.valueOffset.value(row)
}

func (t *Table) Flat(row int) uint64 {
	if !t.inRange(row) {
		return 0
	}
	return t.flat.value(row)
}

func (t *Table) Timestamp(row int) (uint64, bool) {
	if t.timestamp == nil || !t.inRange(row) {
		return 0, false
	}
	return t.timestamp.Value(row), true
}

// TimeSpan returns the time covered by the subtree of row: from its first
// timestamp to the latest end of any descendant. Samples separated by gaps
// make the span wider than the cumulative value.
func (t *Table) TimeSpan(row int) (start, end uint64, ok bool) {
	start, ok = t.Timestamp(row)
	if !ok {
		return 0, 0, false
	}
	t.timeEndsOnce.Do(t.buildTimeEnds)
	return start, max(t.timeEnds[row], start), true
}

func (t *Table) buildTimeEnds() {
	ends := make([]uint64, t.n)
	for row := range ends {
		ends[row] = t.timestamp.Value(row) + t.Cumulative(row)
	}

	if t.children != nil && t.n > 0 {
		// Preorder from the root; walking it backwards visits children
		// before their parents. Malformed cycles are cut by the seen marks.
		seen := make([]bool, t.n)
		order := make([]int32, 0, t.n)
		stack := []int32{0}
		seen[0] = true
		for len(stack) > 0 {
			row := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			order = append(order, row)
			for _, child := range t.Children(int(row)) {
				if child < 0 || int(child) >= t.n || seen[child] {
					continue
				}
				seen[child] = true
				stack = append(stack, child)
			}
		}
		for i := len(order) - 1; i >= 0; i-- {
			row := order[i]
			for _, child := range t.Children(int(row)) {
				if child >= 0 && int(child) < t.n {
					ends[row] = max(ends[row], ends[child])
				}
			}
		}
	}
	t.timeEnds = ends
}

// Total is the cumulative value of the root row.
func (t *Table) Total() uint64 {
	return t.Cumulative(0)
}

// MaxDepth returns the deepest depth in the table, or -1 when the depth
// column is missing or the table is empty.
func (t *Table) MaxDepth() int {
	t.maxDepthOnce.Do(func() {
		if t.depth == nil {
			return
		}
		for _, d := range t.depth.Uint32Values() {
			t.maxDepth = max(t.maxDepth, int(d))
		}
	})
	return t.maxDepth
}

// Strings returns the categorical column or nil.
func (t *Table) Strings(name string) *StringColumn {
	return t.strings[name]
}
