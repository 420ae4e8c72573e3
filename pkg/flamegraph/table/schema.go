package table

import (
	"github.com/apache/arrow/go/v13/arrow"
)

// Field names of the profile table schema.
const (
	FieldDepth        = "depth"
	FieldParent       = "parent"
	FieldChildren     = "children"
	FieldCumulative   = "cumulative"
	FieldValueOffset  = "value_offset"
	FieldFlat         = "flat"
	FieldTimestamp    = "timestamp"
	FieldFunctionName = "function_name"
	FieldFilename     = "filename"
	FieldMappingFile  = "mapping_file"
	FieldLabels       = "labels"
)

// NoParent is the parent value of the root row.
const NoParent int32 = -1

// RequiredFields lists columns without which nothing can be drawn.
var RequiredFields = []string{
	FieldDepth,
	FieldParent,
	FieldChildren,
	FieldCumulative,
	FieldValueOffset,
}

// StringFields lists the categorical columns.
var StringFields = []string{
	FieldFunctionName,
	FieldFilename,
	FieldMappingFile,
	FieldLabels,
}

var dictionaryString = &arrow.DictionaryType{
	IndexType: arrow.PrimitiveTypes.Int32,
	ValueType: arrow.BinaryTypes.String,
}

// Schema returns the canonical schema. Columns in omit are left out, which is
// how tests and degraded encoders produce partial tables.
func Schema(withTimestamp bool, omit ...string) *arrow.Schema {
	skip := make(map[string]bool, len(omit))
	for _, name := range omit {
		skip[name] = true
	}

	all := []arrow.Field{
		{Name: FieldDepth, Type: arrow.PrimitiveTypes.Uint32},
		{Name: FieldParent, Type: arrow.PrimitiveTypes.Int32},
		{Name: FieldChildren, Type: arrow.ListOf(arrow.PrimitiveTypes.Int32)},
		{Name: FieldCumulative, Type: arrow.PrimitiveTypes.Uint64},
		{Name: FieldValueOffset, Type: arrow.PrimitiveTypes.Uint64},
		{Name: FieldFlat, Type: arrow.PrimitiveTypes.Uint64},
		{Name: FieldTimestamp, Type: arrow.PrimitiveTypes.Uint64},
		{Name: FieldFunctionName, Type: dictionaryString},
		{Name: FieldFilename, Type: dictionaryString},
		{Name: FieldMappingFile, Type: dictionaryString},
		{Name: FieldLabels, Type: dictionaryString},
	}

	fields := make([]arrow.Field, 0, len(all))
	for _, f := range all {
		if skip[f.Name] {
			continue
		}
		if f.Name == FieldTimestamp && !withTimestamp {
			continue
		}
		fields = append(fields, f)
	}
	return arrow.NewSchema(fields, nil)
}
