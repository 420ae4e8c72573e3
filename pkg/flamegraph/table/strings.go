package table

import (
	"github.com/apache/arrow/go/v13/arrow"
	"github.com/apache/arrow/go/v13/arrow/array"
)

// StringColumn reads a categorical column stored either dictionary-encoded
// or as plain strings.
type StringColumn struct {
	dict    *array.Dictionary
	values  *array.String
	isPlain bool
}

func newStringColumn(col arrow.Array) *StringColumn {
	switch c := col.(type) {
	case *array.Dictionary:
		values, ok := c.Dictionary().(*array.String)
		if !ok {
			return nil
		}
		return &StringColumn{dict: c, values: values}
	case *array.String:
		return &StringColumn{values: c, isPlain: true}
	default:
		return nil
	}
}

func (c *StringColumn) IsDictionary() bool {
	return !c.isPlain
}

// Value returns the string of row, empty for nulls.
func (c *StringColumn) Value(row int) string {
	idx, ok := c.Index(row)
	if !ok {
		return ""
	}
	return c.values.Value(idx)
}

// Index returns the dictionary index of row. For plain columns the index is
// the row itself.
func (c *StringColumn) Index(row int) (int, bool) {
	if c.isPlain {
		if row < 0 || row >= c.values.Len() || c.values.IsNull(row) {
			return 0, false
		}
		return row, true
	}
	if row < 0 || row >= c.dict.Len() || c.dict.IsNull(row) {
		return 0, false
	}
	return c.dict.GetValueIndex(row), true
}

// DictionaryLen is the number of dictionary entries, or the row count for
// plain columns.
func (c *StringColumn) DictionaryLen() int {
	return c.values.Len()
}

func (c *StringColumn) DictionaryValue(i int) string {
	if i < 0 || i >= c.values.Len() || c.values.IsNull(i) {
		return ""
	}
	return c.values.Value(i)
}
