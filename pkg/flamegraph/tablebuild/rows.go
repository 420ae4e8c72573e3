package tablebuild

import (
	"fmt"

	"github.com/apache/arrow/go/v13/arrow"
	"github.com/apache/arrow/go/v13/arrow/array"
	"github.com/apache/arrow/go/v13/arrow/memory"

	"github.com/yandex/perforator-flame/pkg/flamegraph/table"
)

// Row is one node of the tree in table order. Depth, children and value
// offsets are derived by FromRows.
type Row struct {
	Parent       int32
	Cumulative   uint64
	Flat         uint64
	Timestamp    uint64
	FunctionName string
	Filename     string
	Binary       string
	Labels       string
}

// FromRows encodes rows as a profile record. Row 0 must be the root and every
// parent must precede its children. Children are laid out left to right in
// row order, starting at the parent's offset.
func FromRows(rows []Row, opts ...Option) (arrow.Record, error) {
	conf := collectOptions(opts...)

	if len(rows) == 0 {
		return nil, fmt.Errorf("tablebuild: empty table")
	}
	if rows[0].Parent != table.NoParent {
		return nil, fmt.Errorf("tablebuild: row 0 must be the root, got parent %d", rows[0].Parent)
	}

	n := len(rows)
	depths := make([]uint32, n)
	offsets := make([]uint64, n)
	cursor := make([]uint64, n)
	childSum := make([]uint64, n)
	children := make([][]int32, n)

	for i := 1; i < n; i++ {
		p := rows[i].Parent
		if p < 0 || int(p) >= i {
			return nil, fmt.Errorf("tablebuild: row %d has parent %d, parents must precede children", i, p)
		}
		depths[i] = depths[p] + 1
		offsets[i] = cursor[p]
		cursor[p] += rows[i].Cumulative
		cursor[i] = offsets[i]
		childSum[p] += rows[i].Cumulative
		children[p] = append(children[p], int32(i))
	}

	for i := range rows {
		if childSum[i] > rows[i].Cumulative {
			return nil, fmt.Errorf("tablebuild: children of row %d sum to %d, more than its cumulative %d",
				i, childSum[i], rows[i].Cumulative)
		}
	}

	schema := table.Schema(conf.timestamps, conf.omit...)
	b := array.NewRecordBuilder(conf.allocator(), schema)
	defer b.Release()

	for idx, field := range schema.Fields() {
		switch field.Name {
		case table.FieldDepth:
			fb := b.Field(idx).(*array.Uint32Builder)
			fb.AppendValues(depths, nil)
		case table.FieldParent:
			fb := b.Field(idx).(*array.Int32Builder)
			for i := range rows {
				fb.Append(rows[i].Parent)
			}
		case table.FieldChildren:
			lb := b.Field(idx).(*array.ListBuilder)
			vb := lb.ValueBuilder().(*array.Int32Builder)
			for i := range rows {
				lb.Append(true)
				vb.AppendValues(children[i], nil)
			}
		case table.FieldCumulative:
			appendUint64(b.Field(idx), rows, func(r *Row) uint64 { return r.Cumulative })
		case table.FieldValueOffset:
			b.Field(idx).(*array.Uint64Builder).AppendValues(offsets, nil)
		case table.FieldFlat:
			appendUint64(b.Field(idx), rows, func(r *Row) uint64 { return r.Flat })
		case table.FieldTimestamp:
			appendUint64(b.Field(idx), rows, func(r *Row) uint64 { return r.Timestamp })
		case table.FieldFunctionName:
			if err := appendStrings(b.Field(idx), rows, func(r *Row) string { return r.FunctionName }); err != nil {
				return nil, err
			}
		case table.FieldFilename:
			if err := appendStrings(b.Field(idx), rows, func(r *Row) string { return r.Filename }); err != nil {
				return nil, err
			}
		case table.FieldMappingFile:
			if err := appendStrings(b.Field(idx), rows, func(r *Row) string { return r.Binary }); err != nil {
				return nil, err
			}
		case table.FieldLabels:
			if err := appendStrings(b.Field(idx), rows, func(r *Row) string { return r.Labels }); err != nil {
				return nil, err
			}
		}
	}

	return b.NewRecord(), nil
}

func appendUint64(builder array.Builder, rows []Row, get func(*Row) uint64) {
	fb := builder.(*array.Uint64Builder)
	fb.Reserve(len(rows))
	for i := range rows {
		fb.Append(get(&rows[i]))
	}
}

func appendStrings(builder array.Builder, rows []Row, get func(*Row) string) error {
	db := builder.(*array.BinaryDictionaryBuilder)
	for i := range rows {
		if err := db.AppendString(get(&rows[i])); err != nil {
			return fmt.Errorf("tablebuild: failed to append dictionary value: %w", err)
		}
	}
	return nil
}

func (c *config) allocator() memory.Allocator {
	if c.mem != nil {
		return c.mem
	}
	return memory.NewGoAllocator()
}
