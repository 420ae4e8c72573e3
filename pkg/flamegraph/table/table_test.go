package table_test

import (
	"fmt"
	"testing"

	"github.com/apache/arrow/go/v13/arrow"
	"github.com/apache/arrow/go/v13/arrow/array"
	"github.com/apache/arrow/go/v13/arrow/memory"
	"github.com/stretchr/testify/require"

	"github.com/yandex/perforator-flame/pkg/flamegraph/internal/tabletest"
	"github.com/yandex/perforator-flame/pkg/flamegraph/table"
	"github.com/yandex/perforator-flame/pkg/flamegraph/tablebuild"
)

// parcaLikeRecord mimics a decoder that uses int64 values and a plain string
// function name column.
func parcaLikeRecord(t *testing.T) arrow.Record {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	t.Cleanup(func() { mem.AssertSize(t, 0) })

	schema := arrow.NewSchema([]arrow.Field{
		{Name: table.FieldDepth, Type: arrow.PrimitiveTypes.Uint32},
		{Name: table.FieldParent, Type: arrow.PrimitiveTypes.Int32},
		{Name: table.FieldChildren, Type: arrow.ListOf(arrow.PrimitiveTypes.Int32)},
		{Name: table.FieldCumulative, Type: arrow.PrimitiveTypes.Int64},
		{Name: table.FieldValueOffset, Type: arrow.PrimitiveTypes.Int64},
		{Name: table.FieldFunctionName, Type: arrow.BinaryTypes.String},
		{Name: table.FieldMappingFile, Type: arrow.PrimitiveTypes.Uint8},
	}, nil)

	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()

	b.Field(0).(*array.Uint32Builder).AppendValues([]uint32{0, 1, 1}, nil)
	b.Field(1).(*array.Int32Builder).AppendValues([]int32{-1, 0, 0}, nil)
	lb := b.Field(2).(*array.ListBuilder)
	vb := lb.ValueBuilder().(*array.Int32Builder)
	lb.Append(true)
	vb.AppendValues([]int32{1, 2}, nil)
	lb.Append(true)
	lb.Append(true)
	b.Field(3).(*array.Int64Builder).AppendValues([]int64{10, 6, -4}, nil)
	b.Field(4).(*array.Int64Builder).AppendValues([]int64{0, 0, 6}, nil)
	b.Field(5).(*array.StringBuilder).AppendValues([]string{"root", "left", ""}, []bool{true, true, false})
	b.Field(6).(*array.Uint8Builder).AppendValues([]uint8{1, 2, 3}, nil)

	return b.NewRecord()
}

func TestTableAccessors(t *testing.T) {
	rec := parcaLikeRecord(t)
	tbl := table.New(rec)
	rec.Release()
	defer tbl.Release()

	require.Equal(t, 3, tbl.NumRows())
	require.NoError(t, tbl.Validate())
	require.EqualValues(t, 10, tbl.Total())
	require.EqualValues(t, 6, tbl.Cumulative(1))
	require.Zero(t, tbl.Cumulative(2), "negative values are clamped")
	require.EqualValues(t, 6, tbl.ValueOffset(2))
	require.Equal(t, []int32{1, 2}, tbl.Children(0))
	require.Empty(t, tbl.Children(1))
	require.Equal(t, table.NoParent, tbl.Parent(0))
	require.Equal(t, 1, tbl.MaxDepth())

	names := tbl.Strings(table.FieldFunctionName)
	require.NotNil(t, names)
	require.False(t, names.IsDictionary())
	require.Equal(t, "root", names.Value(0))
	require.Equal(t, "", names.Value(2))
	_, ok := names.Index(2)
	require.False(t, ok)

	require.False(t, tbl.Has(table.FieldMappingFile), "mistyped column is absent")
	require.Nil(t, tbl.Strings(table.FieldMappingFile))
	require.False(t, tbl.Has(table.FieldTimestamp))
	_, ok = tbl.Timestamp(0)
	require.False(t, ok)
}

func TestTableOutOfRange(t *testing.T) {
	rec := parcaLikeRecord(t)
	tbl := table.New(rec)
	rec.Release()
	defer tbl.Release()

	require.Zero(t, tbl.Depth(-1))
	require.Zero(t, tbl.Cumulative(100))
	require.Nil(t, tbl.Children(3))
	require.Equal(t, table.NoParent, tbl.Parent(42))
}

func TestTableIdentity(t *testing.T) {
	rec := parcaLikeRecord(t)
	a := table.New(rec)
	b := table.New(rec)
	rec.Release()
	defer a.Release()
	defer b.Release()

	require.NotEqual(t, a.ID(), b.ID())
}

func TestNilRecord(t *testing.T) {
	tbl := table.New(nil)
	require.Zero(t, tbl.NumRows())
	require.Equal(t, -1, tbl.MaxDepth())
	require.ErrorIs(t, tbl.Validate(), table.ErrSchemaViolation)
	tbl.Release()
}

func TestTimeSpan(t *testing.T) {
	tbl := tabletest.Collapsed(t, "ts=0 main;a 5\nts=100 main;b 5\n", tablebuild.WithTimeOrder())

	for i, test := range []struct {
		row   int
		start uint64
		end   uint64
	}{
		{row: 0, start: 0, end: 105},
		{row: 1, start: 0, end: 105},
		{row: 2, start: 0, end: 5},
		{row: 3, start: 100, end: 105},
	} {
		t.Run(fmt.Sprintf("%d", i), func(t *testing.T) {
			start, end, ok := tbl.TimeSpan(test.row)
			require.True(t, ok)
			require.Equal(t, test.start, start)
			require.Equal(t, test.end, end)
		})
	}

	_, _, ok := tbl.TimeSpan(tbl.NumRows())
	require.False(t, ok)

	plain := tabletest.Collapsed(t, "main;a 5\n")
	_, _, ok = plain.TimeSpan(0)
	require.False(t, ok)
}
