package minimap

import (
	"image"
	"image/color"
	"image/draw"

	"git.sr.ht/~sbinet/gg"

	"github.com/yandex/perforator-flame/pkg/flamegraph/geometry"
	"github.com/yandex/perforator-flame/pkg/flamegraph/table"
)

const (
	DefaultWidth  = 600
	DefaultHeight = 80

	// Rows narrower than this many minimap pixels are not drawn.
	minRowWidth = 0.5
)

type Options struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
	// MaxDepth bounds the drawn depth. Negative draws the whole table.
	MaxDepth   int           `yaml:"-"`
	Mode       geometry.Mode `yaml:"-"`
	Background color.RGBA    `yaml:"-"`
}

func (o *Options) FillDefault() {
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
}

// Size is the raster size in pixels.
func (o Options) Size() image.Point {
	return image.Pt(o.Width, o.Height)
}

// Layout is the geometry used to draw the table into the raster.
func (o Options) Layout(t *table.Table) geometry.Layout {
	depth := t.MaxDepth()
	if o.MaxDepth >= 0 {
		depth = min(depth, o.MaxDepth)
	}
	rowHeight := float64(o.Height) / float64(max(depth, 0)+1)
	return geometry.Layout{
		Mode:              o.Mode,
		RowHeight:         rowHeight,
		PixelWidth:        float64(o.Width),
		EffectiveMaxDepth: depth,
	}
}

// Render draws every row of t within the depth limit, scaled to selected.
// It does not depend on the visible row set of the main view.
func Render(t *table.Table, selected int, opts Options, colorer geometry.Colorer) *image.RGBA {
	opts.FillDefault()

	dc := gg.NewContext(opts.Width, opts.Height)
	dc.SetColor(opts.Background)
	dc.Clear()

	if t.NumRows() > 0 && t.MaxDepth() >= 0 {
		layout := opts.Layout(t)
		for row := 0; row < t.NumRows(); row++ {
			rect, ok := geometry.Place(t, row, selected, layout)
			if !ok || rect.Width < minRowWidth {
				continue
			}
			fill := geometry.Neutral
			if colorer != nil {
				fill = colorer.RowColor(row)
			}
			dc.SetColor(fill)
			dc.DrawRectangle(rect.X, rect.Y, rect.Width, rect.Height)
			dc.Fill()
		}
	}

	if img, ok := dc.Image().(*image.RGBA); ok {
		return img
	}
	img := image.NewRGBA(image.Rect(0, 0, opts.Width, opts.Height))
	draw.Draw(img, img.Bounds(), dc.Image(), image.Point{}, draw.Src)
	return img
}

////////////////////////////////////////////////////////////////////////////////

type cacheKey struct {
	table    table.ID
	selected int
	maxDepth int
	mode     geometry.Mode
	size     image.Point
	colorKey string
}

// Cache keeps the last raster and redraws only when its inputs change.
type Cache struct {
	key   cacheKey
	image *image.RGBA
	draws int
}

// Get returns the raster for the inputs. colorKey must change whenever the
// colorer would produce different colors.
func (c *Cache) Get(t *table.Table, selected int, opts Options, colorer geometry.Colorer, colorKey string) *image.RGBA {
	opts.FillDefault()
	key := cacheKey{
		table:    t.ID(),
		selected: selected,
		maxDepth: opts.MaxDepth,
		mode:     opts.Mode,
		size:     opts.Size(),
		colorKey: colorKey,
	}
	if c.image != nil && key == c.key {
		return c.image
	}
	c.key = key
	c.image = Render(t, selected, opts, colorer)
	c.draws++
	return c.image
}

// Draws counts rasterizations.
func (c *Cache) Draws() int {
	return c.draws
}

func (c *Cache) Reset() {
	c.key = cacheKey{}
	c.image = nil
}
