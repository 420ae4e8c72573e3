package selection

import (
	"strings"

	"github.com/yandex/perforator-flame/pkg/flamegraph/table"
)

// Predicate decides whether a row of t matches one step of a path.
type Predicate interface {
	Match(t *table.Table, row int) bool
}

// FrameMatcher matches rows by frame identity. Empty fields match anything.
type FrameMatcher struct {
	FunctionName string `json:"function_name,omitempty" yaml:"function_name,omitempty"`
	Filename     string `json:"filename,omitempty" yaml:"filename,omitempty"`
	Binary       string `json:"binary,omitempty" yaml:"binary,omitempty"`
}

func matchField(t *table.Table, field string, want string, row int) bool {
	if want == "" {
		return true
	}
	col := t.Strings(field)
	if col == nil {
		return false
	}
	return col.Value(row) == want
}

func (m FrameMatcher) Match(t *table.Table, row int) bool {
	return matchField(t, table.FieldFunctionName, m.FunctionName, row) &&
		matchField(t, table.FieldFilename, m.Filename, row) &&
		matchField(t, table.FieldMappingFile, m.Binary, row)
}

func (m FrameMatcher) String() string {
	var sb strings.Builder
	sb.WriteString(m.FunctionName)
	if m.Filename != "" {
		sb.WriteString(" @")
		sb.WriteString(m.Filename)
	}
	if m.Binary != "" {
		sb.WriteString(" [")
		sb.WriteString(m.Binary)
		sb.WriteString("]")
	}
	return sb.String()
}

// PredicateFunc adapts a plain function to Predicate.
type PredicateFunc func(t *table.Table, row int) bool

func (f PredicateFunc) Match(t *table.Table, row int) bool {
	return f(t, row)
}

////////////////////////////////////////////////////////////////////////////////

// Path is an ordered list of predicates, one per level below the root.
type Path []Predicate

// ParsePath builds a matcher path from function names. Empty names are
// skipped.
func ParsePath(names ...string) Path {
	path := make(Path, 0, len(names))
	for _, name := range names {
		if name == "" {
			continue
		}
		path = append(path, FrameMatcher{FunctionName: name})
	}
	return path
}

// Pop returns the path without its last step.
func (p Path) Pop() Path {
	if len(p) == 0 {
		return nil
	}
	return p[:len(p)-1:len(p)-1]
}

// Truncate keeps the first n steps.
func (p Path) Truncate(n int) Path {
	if n <= 0 {
		return nil
	}
	if n >= len(p) {
		return p
	}
	return p[:n:n]
}

// Append returns a new path with step added. The receiver is not modified.
func (p Path) Append(step Predicate) Path {
	next := make(Path, len(p), len(p)+1)
	copy(next, p)
	return append(next, step)
}
