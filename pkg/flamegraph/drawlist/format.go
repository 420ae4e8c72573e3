package drawlist

// Document is the JSON shape of one rendered frame.
type Document struct {
	Nodes     []Node   `json:"nodes"`
	Strings   []string `json:"stringTable"`
	Indicator Rect     `json:"minimapIndicator"`
	Meta      Meta     `json:"meta"`
}

type StringIndex = int

type Meta struct {
	Version           int     `json:"version"`
	Mode              string  `json:"mode"`
	SelectedRow       int     `json:"selectedRow"`
	EffectiveMaxDepth int     `json:"effectiveMaxDepth"`
	Zoom              float64 `json:"zoom"`
	ContentWidth      float64 `json:"contentWidth"`
	ContentHeight     float64 `json:"contentHeight"`
	ScrollTop         float64 `json:"scrollTop"`
	ScrollLeft        float64 `json:"scrollLeft"`
	// RangeMin and RangeMax bound the depths scanned for this frame.
	RangeMin int `json:"rangeMin"`
	RangeMax int `json:"rangeMax"`
}

type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type Node struct {
	Row int32 `json:"row"`
	Rect
	Color      string      `json:"color"`
	TextID     StringIndex `json:"textId"`
	File       StringIndex `json:"file"`
	Binary     StringIndex `json:"binary"`
	Cumulative uint64      `json:"cumulative"`
	Flat       uint64      `json:"flat,omitempty"`
}
