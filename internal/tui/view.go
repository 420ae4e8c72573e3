package tui

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/yandex/perforator-flame/pkg/flamegraph/engine"
	"github.com/yandex/perforator-flame/pkg/flamegraph/geometry"
	"github.com/yandex/perforator-flame/pkg/flamegraph/table"
)

const help = "q quit  ↑↓ scroll  ←→ pan  +/- zoom  enter drill  esc pop  c color  d dark  i invert  m mode  [ ] depth"

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252")).Background(lipgloss.Color("236"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Background(lipgloss.Color("238"))
	labelColor  = lipgloss.Color("#1a1a1a")
)

func hexColor(c color.RGBA) lipgloss.Color {
	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B))
}

// segment is one node clipped to terminal columns [start, end).
type segment struct {
	start, end int
	row        int32
	color      color.RGBA
}

// lineSegments groups the frame nodes by terminal line. Nodes hidden by an
// earlier node on the same columns are trimmed.
func lineSegments(frame *engine.Frame, width, height int) [][]segment {
	lines := make([][]segment, height)
	if frame == nil {
		return lines
	}
	vp := frame.Viewport
	for _, node := range frame.Nodes {
		y := int(math.Floor(node.Rect.Y - vp.ScrollTop))
		if y < 0 || y >= height {
			continue
		}
		start := int(math.Round(node.Rect.X - vp.ScrollLeft))
		end := int(math.Round(node.Rect.X + node.Rect.Width - vp.ScrollLeft))
		start, end = max(start, 0), min(end, width)
		if end <= start {
			continue
		}
		lines[y] = append(lines[y], segment{start: start, end: end, row: node.Row, color: node.Color})
	}
	for _, line := range lines {
		slices.SortFunc(line, func(a, b segment) int {
			return a.start - b.start
		})
	}
	return lines
}

func label(name string, width int) string {
	runes := []rune(name)
	if len(runes) > width {
		if width <= 1 {
			return strings.Repeat(" ", width)
		}
		runes = append(runes[:width-1], '…')
	}
	return string(runes) + strings.Repeat(" ", width-len(runes))
}

func renderLine(segments []segment, width int, names *table.StringColumn, hovered int) string {
	var sb strings.Builder
	cursor := 0
	for _, seg := range segments {
		start := max(seg.start, cursor)
		if start >= seg.end {
			continue
		}
		sb.WriteString(strings.Repeat(" ", start-cursor))

		name := ""
		if names != nil {
			name = names.Value(int(seg.row))
		}
		style := lipgloss.NewStyle().Background(hexColor(seg.color)).Foreground(labelColor)
		if int(seg.row) == hovered {
			style = style.Reverse(true)
		}
		sb.WriteString(style.Render(label(name, seg.end-start)))
		cursor = seg.end
	}
	sb.WriteString(strings.Repeat(" ", max(width-cursor, 0)))
	return sb.String()
}

// minimapCells samples img into lines of half-block cells. Columns inside
// the indicator are underlined.
func minimapCells(img *image.RGBA, indicator geometry.Rect, width, lines int) []string {
	res := make([]string, lines)
	if img == nil || width <= 0 {
		return res
	}
	bounds := img.Bounds()
	scaleX := float64(bounds.Dx()) / float64(width)
	scaleY := float64(bounds.Dy()) / float64(2*lines)

	sample := func(col, half int) color.RGBA {
		x := bounds.Min.X + min(int((float64(col)+0.5)*scaleX), bounds.Dx()-1)
		y := bounds.Min.Y + min(int((float64(half)+0.5)*scaleY), bounds.Dy()-1)
		return img.RGBAAt(x, y)
	}

	for line := range res {
		var sb strings.Builder
		for col := 0; col < width; col++ {
			px := (float64(col) + 0.5) * scaleX
			style := lipgloss.NewStyle().
				Foreground(hexColor(sample(col, 2*line))).
				Background(hexColor(sample(col, 2*line+1)))
			if line == lines-1 && px >= indicator.X && px <= indicator.X+indicator.Width {
				style = style.Underline(true)
			}
			sb.WriteString(style.Render("▀"))
		}
		res[line] = sb.String()
	}
	return res
}

func describe(h engine.Hover) string {
	if h.Row < 0 {
		return ""
	}
	text := fmt.Sprintf("%s  %s (%.1f%% of total, %.1f%% of selection)",
		h.Function, humanize.Comma(int64(h.Cumulative)), 100*h.OfTotal, 100*h.OfSelection)
	if h.Filename != "" {
		text += "  " + h.Filename
	}
	if h.Binary != "" {
		text += "  [" + h.Binary + "]"
	}
	return text
}

func (m *Model) header() string {
	e := m.host.Engine
	text := fmt.Sprintf(" %s  zoom %.2gx  color %s  %s", e.Mode(), e.ZoomLevel(), e.ColorBy(), help)
	return headerStyle.Width(m.width).MaxWidth(m.width).Render(text)
}

func (m *Model) status() string {
	text := describe(m.hovered)
	if text == "" && m.frame != nil {
		sel := m.host.Engine.Describe(m.frame.Selection.Row)
		text = "selected: " + describe(sel)
		if stop := m.frame.Selection.Stop.String(); stop != "none" {
			text += "  (path stopped: " + stop + ")"
		}
	}
	return statusStyle.Width(m.width).MaxWidth(m.width).Render(" " + text)
}

func (m *Model) View() string {
	if !m.ready {
		return "loading..."
	}

	names := m.host.Engine.Table().Strings(table.FieldFunctionName)
	height := m.flameHeight()

	out := make([]string, 0, m.height)
	out = append(out, m.header())
	for _, segments := range lineSegments(m.frame, m.width, height) {
		out = append(out, renderLine(segments, m.width, names, m.hovered.Row))
	}
	if m.frame != nil {
		out = append(out, minimapCells(m.frame.Minimap, m.frame.Indicator, m.width, minimapLines)...)
	}
	out = append(out, m.status())
	return strings.Join(out, "\n")
}
