package minimap

import (
	"math"

	"github.com/yandex/perforator-flame/pkg/flamegraph/geometry"
	"github.com/yandex/perforator-flame/pkg/flamegraph/viewport"
)

// Scale relates minimap pixels to the zoomed content of the main view.
type Scale struct {
	MinimapWidth   float64
	ContentWidth   float64
	ContainerWidth float64
}

func (s Scale) ratio() float64 {
	if s.MinimapWidth <= 0 {
		return 0
	}
	return s.ContentWidth / s.MinimapWidth
}

// ContentX maps a minimap x to a content x.
func (s Scale) ContentX(x float64) float64 {
	return x * s.ratio()
}

// Clamp bounds scrollLeft to the scrollable extent.
func (s Scale) Clamp(scrollLeft float64) float64 {
	limit := max(s.ContentWidth-s.ContainerWidth, 0)
	return min(max(scrollLeft, 0), limit)
}

// CenterAt returns the scrollLeft that centers the main view on minimap x.
func (s Scale) CenterAt(x float64) float64 {
	return s.Clamp(s.ContentX(x) - s.ContainerWidth/2)
}

// Indicator returns the main viewport rectangle in minimap pixels.
func Indicator(vp viewport.Snapshot, contentWidth, contentHeight float64, opts Options) geometry.Rect {
	opts.FillDefault()
	if contentWidth <= 0 || contentHeight <= 0 {
		return geometry.Rect{}
	}
	w, h := float64(opts.Width), float64(opts.Height)

	x0 := min(max(vp.ScrollLeft/contentWidth*w, 0), w)
	x1 := min(max((vp.ScrollLeft+vp.ContainerWidth)/contentWidth*w, 0), w)
	y0 := min(max(vp.ScrollTop/contentHeight*h, 0), h)
	y1 := min(max((vp.ScrollTop+vp.ContainerHeight)/contentHeight*h, 0), h)

	return geometry.Rect{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

////////////////////////////////////////////////////////////////////////////////

// Drag translates a pointer drag on the minimap into scrollLeft updates.
type Drag struct {
	scale       Scale
	startX      float64
	startScroll float64
	active      bool
}

func (d *Drag) Begin(x, scrollLeft float64, scale Scale) {
	d.scale = scale
	d.startX = x
	d.startScroll = scrollLeft
	d.active = true
}

// Move returns the new scrollLeft, or false when no drag is active.
func (d *Drag) Move(x float64) (float64, bool) {
	if !d.active {
		return 0, false
	}
	return d.scale.Clamp(d.startScroll + (x-d.startX)*d.scale.ratio()), true
}

func (d *Drag) End() {
	d.active = false
}

func (d *Drag) Active() bool {
	return d.active
}

////////////////////////////////////////////////////////////////////////////////

// ZoomTarget owns the zoom level of the main view.
type ZoomTarget interface {
	Zoom(factor float64, anchorContentX float64)
}

type WheelEvent struct {
	X      float64
	DeltaY float64
	// Modifier is set when the zoom modifier key is held.
	Modifier bool
}

// WheelZoomSpeed converts wheel delta to a zoom exponent.
const WheelZoomSpeed = 0.002

// Wheel forwards zoom gestures to target and reports whether the event was
// consumed. Plain wheel events are left to the host.
func Wheel(ev WheelEvent, scale Scale, target ZoomTarget) bool {
	if !ev.Modifier || ev.DeltaY == 0 || target == nil {
		return false
	}
	target.Zoom(math.Exp(-ev.DeltaY*WheelZoomSpeed), scale.ContentX(ev.X))
	return true
}
