package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/yandex/perforator-flame/internal/viewer"
	"github.com/yandex/perforator-flame/pkg/flamegraph/engine"
	"github.com/yandex/perforator-flame/pkg/flamegraph/geometry"
	"github.com/yandex/perforator-flame/pkg/flamegraph/minimap"
	"github.com/yandex/perforator-flame/pkg/flamegraph/palette"
	"github.com/yandex/perforator-flame/pkg/flamegraph/viewport"
	"github.com/yandex/perforator-flame/pkg/xlog"
)

const (
	headerLines  = 1
	minimapLines = 2
	statusLines  = 1

	zoomStep = 1.25
	// panStep is the share of the container width moved per key press.
	panStep = 0.1
)

// EngineConfig adapts conf to a terminal: one line per row, one cell per
// pixel column.
func EngineConfig(conf engine.Config) engine.Config {
	conf.Visible.RowHeight = 1
	conf.Visible.MinWidth = 1
	if conf.Visible.Buffer == 0 {
		conf.Visible.Buffer = 4
	}
	gap := 0.0
	conf.RowGap = &gap
	conf.Minimap.Width = 2 * minimap.DefaultWidth
	conf.Minimap.Height = 2 * minimapLines
	return conf
}

type frameTickMsg time.Time

func frameTick() tea.Cmd {
	return tea.Tick(viewport.DefaultFrameInterval, func(t time.Time) tea.Msg {
		return frameTickMsg(t)
	})
}

// Model hosts one engine in a bubbletea program. The engine is driven from
// Update only, so it stays on the program goroutine.
type Model struct {
	host   *viewer.Host
	logger xlog.Logger

	width  int
	height int
	ready  bool
	dirty  bool

	frame   *engine.Frame
	hovered engine.Hover
	cursor  engine.Hover
	err     error
}

func New(host *viewer.Host, logger xlog.Logger) *Model {
	m := &Model{
		host:    host,
		logger:  logger.WithName("tui"),
		hovered: engine.Hover{Row: -1},
		cursor:  engine.Hover{Row: -1},
		dirty:   true,
	}
	host.Engine.OnHover(func(h engine.Hover) {
		m.hovered = h
	})
	return m
}

func (m *Model) Init() tea.Cmd {
	return frameTick()
}

func (m *Model) flameHeight() int {
	return max(m.height-headerLines-minimapLines-statusLines, 1)
}

func (m *Model) minimapTop() int {
	return headerLines + m.flameHeight()
}

// refresh applies pending viewport updates and recomputes the frame when
// anything changed.
func (m *Model) refresh() {
	if m.host.Scheduler.Flush() > 0 {
		m.dirty = true
	}
	if m.dirty || m.frame == nil {
		m.frame = m.host.Engine.Frame()
		m.dirty = false
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.ready = true
		m.host.Tracker.HandleResize(float64(m.width), float64(m.flameHeight()))

	case frameTickMsg:
		m.refresh()
		return m, frameTick()

	case tea.KeyMsg:
		if quit := m.handleKey(msg); quit {
			return m, tea.Quit
		}

	case tea.MouseMsg:
		m.handleMouse(msg)
	}

	m.refresh()
	return m, nil
}

func (m *Model) scrollBy(rows, cols float64) {
	vp := m.host.Tracker.Snapshot()
	maxTop := 0.0
	if m.frame != nil {
		maxTop = max(m.frame.ContentHeight-vp.ContainerHeight, 0)
	}
	top := min(max(vp.ScrollTop+rows, 0), maxTop)
	left := minimap.Scale{
		MinimapWidth:   float64(m.width),
		ContentWidth:   vp.ContainerWidth * m.host.Engine.ZoomLevel(),
		ContainerWidth: vp.ContainerWidth,
	}.Clamp(vp.ScrollLeft + cols)
	m.host.Tracker.HandleScroll(top, left)
}

func (m *Model) zoomAtCenter(factor float64) {
	vp := m.host.Tracker.Snapshot()
	m.host.Engine.Zoom(factor, vp.ScrollLeft+vp.ContainerWidth/2)
}

func (m *Model) handleKey(msg tea.KeyMsg) bool {
	e := m.host.Engine
	vp := m.host.Tracker.Snapshot()
	m.dirty = true

	switch msg.String() {
	case "q", "ctrl+c":
		return true
	case "up", "k":
		m.scrollBy(-1, 0)
	case "down", "j":
		m.scrollBy(1, 0)
	case "pgup":
		m.scrollBy(-vp.ContainerHeight, 0)
	case "pgdown":
		m.scrollBy(vp.ContainerHeight, 0)
	case "left", "h":
		m.scrollBy(0, -vp.ContainerWidth*panStep)
	case "right", "l":
		m.scrollBy(0, vp.ContainerWidth*panStep)
	case "+", "=":
		m.zoomAtCenter(zoomStep)
	case "-":
		m.zoomAtCenter(1 / zoomStep)
	case "0":
		e.Zoom(1/e.ZoomLevel(), 0)
	case "enter":
		if m.hovered.Row >= 0 {
			m.drill(m.hovered.Row)
		}
	case "backspace", "esc":
		e.Pop()
	case "c":
		e.SetColorBy((e.ColorBy() + 1) % (palette.ColorByFunction + 1))
	case "d":
		e.SetDark(!e.Dark())
	case "i":
		e.SetInverted(!e.Inverted())
	case "m":
		if e.Mode() == geometry.ModeIcicle {
			e.SetMode(geometry.ModeFlameChart)
		} else {
			e.SetMode(geometry.ModeIcicle)
		}
	case "]":
		e.SetDepthLimit(e.DepthLimit() + 1)
	case "[":
		e.SetDepthLimit(max(e.DepthLimit()-1, 0))
	default:
		m.dirty = false
	}
	return false
}

func (m *Model) drill(row int) {
	if !m.host.Engine.DrillDown(row) {
		return
	}
	m.cursor = m.host.Engine.Describe(row)
	m.logger.Debug(context.Background(), "Drilled down", zap.Int("row", row), zap.String("function", m.cursor.Function))
}

// contentPoint maps a terminal cell in the flame area to content
// coordinates.
func (m *Model) contentPoint(x, y int) (float64, float64) {
	vp := m.host.Tracker.Snapshot()
	return float64(x) + vp.ScrollLeft + 0.5, float64(y-headerLines) + vp.ScrollTop + 0.5
}

// minimapX maps a terminal column to a minimap pixel column.
func (m *Model) minimapX(x int) float64 {
	if m.width <= 0 || m.frame == nil || m.frame.Minimap == nil {
		return 0
	}
	return (float64(x) + 0.5) * float64(m.frame.Minimap.Bounds().Dx()) / float64(m.width)
}

func (m *Model) handleMouse(msg tea.MouseMsg) {
	e := m.host.Engine
	inFlame := msg.Y >= headerLines && msg.Y < m.minimapTop()
	inMinimap := msg.Y >= m.minimapTop() && msg.Y < m.minimapTop()+minimapLines
	m.dirty = true

	switch {
	case msg.Button == tea.MouseButtonWheelUp || msg.Button == tea.MouseButtonWheelDown:
		delta := 1.0
		if msg.Button == tea.MouseButtonWheelUp {
			delta = -1
		}
		if inMinimap {
			x := m.minimapX(msg.X)
			e.MinimapWheel(minimap.WheelEvent{X: x, DeltaY: delta * 100, Modifier: msg.Ctrl})
			return
		}
		if msg.Ctrl {
			factor := zoomStep
			if delta > 0 {
				factor = 1 / zoomStep
			}
			x, _ := m.contentPoint(msg.X, msg.Y)
			e.Zoom(factor, x)
			return
		}
		m.scrollBy(delta, 0)

	case inMinimap && msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft:
		x := m.minimapX(msg.X)
		e.MinimapClick(x)
		e.MinimapDragBegin(x)
	case msg.Action == tea.MouseActionMotion && msg.Button == tea.MouseButtonLeft:
		e.MinimapDragMove(m.minimapX(msg.X))
	case msg.Action == tea.MouseActionRelease:
		e.MinimapDragEnd()

	case inFlame && msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft:
		if row, ok := e.HitTest(m.contentPoint(msg.X, msg.Y)); ok {
			m.drill(row)
		}
	case inFlame && msg.Action == tea.MouseActionMotion:
		e.Hover(m.contentPoint(msg.X, msg.Y))
		m.dirty = false
	default:
		m.dirty = false
	}
}
