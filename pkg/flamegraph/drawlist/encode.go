package drawlist

import (
	"fmt"
	"image/color"
	"io"

	"github.com/goccy/go-json"

	"github.com/yandex/perforator-flame/pkg/flamegraph/engine"
	"github.com/yandex/perforator-flame/pkg/flamegraph/geometry"
	"github.com/yandex/perforator-flame/pkg/flamegraph/table"
)

const Version = 1

// Build converts a frame into its wire form. String index 0 is always the
// empty string.
func Build(t *table.Table, frame *engine.Frame) *Document {
	strings := newStringTable(len(frame.Nodes) + 1)
	strings.Add("")

	names := t.Strings(table.FieldFunctionName)
	files := t.Strings(table.FieldFilename)
	binaries := t.Strings(table.FieldMappingFile)
	add := func(col *table.StringColumn, row int) int {
		if col == nil {
			return 0
		}
		return strings.Add(col.Value(row))
	}

	nodes := make([]Node, 0, len(frame.Nodes))
	for _, node := range frame.Nodes {
		row := int(node.Row)
		nodes = append(nodes, Node{
			Row:        node.Row,
			Rect:       rect(node.Rect),
			Color:      hex(node.Color),
			TextID:     add(names, row),
			File:       add(files, row),
			Binary:     add(binaries, row),
			Cumulative: t.Cumulative(row),
			Flat:       t.Flat(row),
		})
	}

	meta := Meta{
		Version:           Version,
		Mode:              frame.Layout.Mode.String(),
		SelectedRow:       frame.Selection.Row,
		EffectiveMaxDepth: frame.EffectiveMaxDepth,
		Zoom:              frame.Zoom,
		ContentWidth:      frame.ContentWidth,
		ContentHeight:     frame.ContentHeight,
		ScrollTop:         frame.Viewport.ScrollTop,
		ScrollLeft:        frame.Viewport.ScrollLeft,
		RangeMin:          0,
		RangeMax:          -1,
	}
	if frame.Visible != nil {
		meta.RangeMin = frame.Visible.Range.Min
		meta.RangeMax = frame.Visible.Range.Max
	}

	return &Document{
		Nodes:     nodes,
		Strings:   strings.Table(),
		Indicator: rect(frame.Indicator),
		Meta:      meta,
	}
}

// Encode writes the frame as a single JSON document.
func Encode(w io.Writer, t *table.Table, frame *engine.Frame) error {
	if err := json.NewEncoder(w).Encode(Build(t, frame)); err != nil {
		return fmt.Errorf("failed to encode draw list: %w", err)
	}
	return nil
}

// Decode reads a document written by Encode.
func Decode(r io.Reader) (*Document, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode draw list: %w", err)
	}
	if doc.Meta.Version != Version {
		return nil, fmt.Errorf("unsupported draw list version %d", doc.Meta.Version)
	}
	return &doc, nil
}

func rect(r geometry.Rect) Rect {
	return Rect{X: r.X, Y: r.Y, Width: r.Width, Height: r.Height}
}

func hex(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
