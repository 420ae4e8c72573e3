package palette

import (
	"fmt"
	"image/color"

	"github.com/cespare/xxhash/v2"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/yandex/perforator-flame/pkg/flamegraph/table"
)

// ColorBy selects the categorical column rows are colored by.
type ColorBy int

const (
	ColorByBinary ColorBy = iota
	ColorByFilename
	ColorByFunction
)

func (c ColorBy) String() string {
	switch c {
	case ColorByBinary:
		return "binary"
	case ColorByFilename:
		return "filename"
	case ColorByFunction:
		return "function"
	default:
		return fmt.Sprintf("ColorBy(%d)", int(c))
	}
}

func ParseColorBy(s string) (ColorBy, error) {
	switch s {
	case "binary", "":
		return ColorByBinary, nil
	case "filename":
		return ColorByFilename, nil
	case "function":
		return ColorByFunction, nil
	default:
		return ColorByBinary, fmt.Errorf("unknown color mode %q", s)
	}
}

func (c ColorBy) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *ColorBy) UnmarshalText(text []byte) error {
	v, err := ParseColorBy(string(text))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// Field is the table column the mode reads.
func (c ColorBy) Field() string {
	switch c {
	case ColorByFilename:
		return table.FieldFilename
	case ColorByFunction:
		return table.FieldFunctionName
	default:
		return table.FieldMappingFile
	}
}

////////////////////////////////////////////////////////////////////////////////

// Scheme maps a categorical value to a color. It must depend on the value
// only.
type Scheme interface {
	Color(value string) color.RGBA
}

// Palette picks from a fixed list by hashing the value.
type Palette []color.RGBA

func (p Palette) Color(value string) color.RGBA {
	if len(p) == 0 {
		return Neutral
	}
	return p[xxhash.Sum64String(value)%uint64(len(p))]
}

var (
	binaries  = hueWheel(24, 200, 0.45, 0.92)
	filenames = hueWheel(20, 15, 0.35, 0.95)
)

// Binaries is the palette used when coloring by mapping file.
func Binaries() Palette {
	return binaries
}

// Filenames is the palette used when coloring by source file.
func Filenames() Palette {
	return filenames
}

// Neutral fills rows without a value.
var Neutral = color.RGBA{R: 0xb4, G: 0xb4, B: 0xb4, A: 0xff}

// Warm is the classic flamegraph palette keyed by function name.
type Warm struct{}

func (Warm) Color(value string) color.RGBA {
	v1 := namehash(value)
	v2 := namehash(reverse(value))
	return color.RGBA{
		R: uint8(205 + 50*v2),
		G: uint8(0 + 230*v1),
		B: uint8(0 + 55*v2),
		A: 0xff,
	}
}

func namehash(name string) float64 {
	vector := 0.0
	weight := 1.0
	maxv := 1.0
	mod := 10
	for _, c := range name {
		i := int(c) % mod

		vector += float64(i) / float64(mod-1) * weight
		mod += 1
		maxv += 1 * weight
		weight *= 0.7

		if mod > 13 {
			break
		}
	}
	return (1.0 - vector/maxv)
}

func reverse(s string) string {
	runes := []rune(s)
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return string(runes)
}

// SchemeFor returns the default scheme of a mode.
func SchemeFor(c ColorBy) Scheme {
	switch c {
	case ColorByFilename:
		return Filenames()
	case ColorByFunction:
		return Warm{}
	default:
		return Binaries()
	}
}

// Darken derives the dark theme variant of c by lowering its HCL luminance.
func Darken(c color.RGBA) color.RGBA {
	cf, ok := colorful.MakeColor(c)
	if !ok {
		return c
	}
	h, chroma, l := cf.Hcl()
	r, g, b := colorful.Hcl(h, chroma*0.85, l*0.62).Clamped().RGB255()
	return color.RGBA{R: r, G: g, B: b, A: c.A}
}
