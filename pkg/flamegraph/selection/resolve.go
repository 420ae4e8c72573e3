package selection

import (
	"slices"

	"github.com/yandex/perforator-flame/pkg/flamegraph/table"
)

// Stop tells why resolution ended.
type Stop int

const (
	// StopNone means every predicate matched.
	StopNone Stop = iota
	StopNoMatch
	StopAmbiguous
	StopSchemaViolation
)

func (s Stop) String() string {
	switch s {
	case StopNone:
		return "none"
	case StopNoMatch:
		return "no_match"
	case StopAmbiguous:
		return "ambiguous"
	case StopSchemaViolation:
		return "schema_violation"
	default:
		return "unknown"
	}
}

type Result struct {
	Row     int
	Matched int
	Stop    Stop
}

// Resolve walks path from the root. Each step descends only when exactly one
// child matches; otherwise the deepest resolved row is returned.
func Resolve(t *table.Table, path Path) Result {
	res := Result{Row: 0}
	if len(path) == 0 || t.NumRows() == 0 {
		return res
	}
	if !t.Has(table.FieldChildren) {
		res.Stop = StopSchemaViolation
		return res
	}

	for _, step := range path {
		match := -1
		for _, child := range t.Children(res.Row) {
			if !step.Match(t, int(child)) {
				continue
			}
			if match >= 0 {
				res.Stop = StopAmbiguous
				return res
			}
			match = int(child)
		}
		if match < 0 {
			res.Stop = StopNoMatch
			return res
		}
		res.Row = match
		res.Matched++
	}
	return res
}

// PathTo builds the frame matcher path from the root to row. Rows outside
// the table or tables without parents yield nil.
func PathTo(t *table.Table, row int) Path {
	if row <= 0 || row >= t.NumRows() || !t.Has(table.FieldParent) {
		return nil
	}

	var path Path
	for cur := row; cur > 0; {
		path = append(path, frameOf(t, cur))
		parent := int(t.Parent(cur))
		if parent < 0 || parent >= cur {
			return nil
		}
		cur = parent
	}
	slices.Reverse(path)
	return path
}

func frameOf(t *table.Table, row int) FrameMatcher {
	var m FrameMatcher
	if col := t.Strings(table.FieldFunctionName); col != nil {
		m.FunctionName = col.Value(row)
	}
	if col := t.Strings(table.FieldFilename); col != nil {
		m.Filename = col.Value(row)
	}
	if col := t.Strings(table.FieldMappingFile); col != nil {
		m.Binary = col.Value(row)
	}
	return m
}
