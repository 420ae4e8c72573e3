package engine

import (
	"github.com/yandex/perforator-flame/pkg/flamegraph/table"
)

// Hover describes the row under the pointer. Row is -1 when the pointer
// left every row.
type Hover struct {
	Row        int    `json:"row"`
	Function   string `json:"function"`
	Filename   string `json:"filename,omitempty"`
	Binary     string `json:"binary,omitempty"`
	Cumulative uint64 `json:"cumulative"`
	Flat       uint64 `json:"flat"`
	// OfTotal and OfSelection are shares of the root and the selected row.
	OfTotal     float64 `json:"ofTotal"`
	OfSelection float64 `json:"ofSelection"`
}

func stringAt(t *table.Table, field string, row int) string {
	if col := t.Strings(field); col != nil {
		return col.Value(row)
	}
	return ""
}

func share(value, of uint64) float64 {
	if of == 0 {
		return 0
	}
	return float64(value) / float64(of)
}

func (e *Engine) describe(row int) Hover {
	if row < 0 {
		return Hover{Row: -1}
	}
	t := e.table
	cumulative := t.Cumulative(row)
	return Hover{
		Row:         row,
		Function:    stringAt(t, table.FieldFunctionName, row),
		Filename:    stringAt(t, table.FieldFilename, row),
		Binary:      stringAt(t, table.FieldMappingFile, row),
		Cumulative:  cumulative,
		Flat:        t.Flat(row),
		OfTotal:     share(cumulative, t.Total()),
		OfSelection: share(cumulative, t.Cumulative(e.selection.Row)),
	}
}

// Describe returns hover details of row without changing the hover state.
func (e *Engine) Describe(row int) Hover {
	if row >= e.table.NumRows() {
		row = -1
	}
	return e.describe(row)
}
