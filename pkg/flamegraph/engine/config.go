package engine

import (
	"github.com/yandex/perforator-flame/pkg/flamegraph/geometry"
	"github.com/yandex/perforator-flame/pkg/flamegraph/minimap"
	"github.com/yandex/perforator-flame/pkg/flamegraph/palette"
	"github.com/yandex/perforator-flame/pkg/flamegraph/visible"
)

const (
	DefaultRowGap  = 1
	DefaultMaxZoom = 1024
)

type Config struct {
	Visible visible.Config  `yaml:"visible"`
	Minimap minimap.Options `yaml:"minimap"`

	// RowGap separates levels. Unset means DefaultRowGap; set it to zero to
	// draw levels back to back.
	RowGap   *float64        `yaml:"row_gap"`
	ColorBy  palette.ColorBy `yaml:"color_by"`
	Dark     bool            `yaml:"dark"`
	Mode     geometry.Mode   `yaml:"mode"`
	Inverted bool            `yaml:"inverted"`
	// DepthLimit is the initial frame-count limit. Zero means unlimited.
	DepthLimit int `yaml:"depth_limit"`
	// MaxZoom bounds the horizontal zoom factor.
	MaxZoom float64 `yaml:"max_zoom"`

	PaletteCacheSize int `yaml:"palette_cache_size"`
}

func (c *Config) FillDefault() {
	c.Visible.FillDefault()
	c.Minimap.FillDefault()
	if c.RowGap == nil || *c.RowGap < 0 || *c.RowGap >= c.Visible.RowHeight {
		gap := float64(DefaultRowGap)
		if gap >= c.Visible.RowHeight {
			gap = 0
		}
		c.RowGap = &gap
	}
	if c.MaxZoom < 1 {
		c.MaxZoom = DefaultMaxZoom
	}
	if c.DepthLimit < 0 {
		c.DepthLimit = 0
	}
	if c.PaletteCacheSize <= 0 {
		c.PaletteCacheSize = palette.DefaultCacheSize
	}
}

// Gap is the row gap after defaults.
func (c *Config) Gap() float64 {
	if c.RowGap == nil {
		return DefaultRowGap
	}
	return *c.RowGap
}
