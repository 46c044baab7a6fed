package palette

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"
)

type RGB struct {
	R, G, B uint8
}

func (c RGB) NRGBA() color.NRGBA {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: 255}
}

func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Band covers elevations in (previous band's Upper, Upper]. The first band
// starts at 0 inclusive.
type Band struct {
	Name  string
	Upper float64
	Color RGB
}

var (
	DeepWater = RGB{R: 0, G: 0, B: 153}
	Ocean     = RGB{R: 98, G: 165, B: 168}
	Sand      = RGB{R: 213, G: 181, B: 157}
	Forest    = RGB{R: 152, G: 172, B: 92}
	Highland  = RGB{R: 101, G: 132, B: 66}
	Mountain  = RGB{R: 110, G: 117, B: 136}

	// Magenta marks elevations outside [0,1].
	Magenta = RGB{R: 255, G: 0, B: 255}
)

// DefaultBands is the six-band island table. Deep water only matches the
// exact minimum of a normalized grid.
func DefaultBands() []Band {
	return []Band{
		{Name: "deep-water", Upper: 0.0, Color: DeepWater},
		{Name: "ocean", Upper: 0.2, Color: Ocean},
		{Name: "sand", Upper: 0.4, Color: Sand},
		{Name: "forest", Upper: 0.6, Color: Forest},
		{Name: "highland", Upper: 0.8, Color: Highland},
		{Name: "mountain", Upper: 1.0, Color: Mountain},
	}
}

// Palette maps normalized elevation to a band colour.
type Palette struct {
	bands    []Band
	fallback RGB
}

// Default returns the island palette with a magenta fallback.
func Default() *Palette {
	return &Palette{bands: DefaultBands(), fallback: Magenta}
}

// New validates bands and builds a palette. Uppers must strictly increase,
// start at or above 0 and end exactly at 1.
func New(bands []Band, fallback RGB) (*Palette, error) {
	if len(bands) == 0 {
		return nil, errors.New("palette needs at least one band")
	}
	prev := math.Inf(-1)
	for i, band := range bands {
		if math.IsNaN(band.Upper) {
			return nil, fmt.Errorf("band %d (%s): upper bound is NaN", i, band.Name)
		}
		if band.Upper <= prev {
			return nil, fmt.Errorf("band %d (%s): upper bound %v must exceed %v", i, band.Name, band.Upper, prev)
		}
		prev = band.Upper
	}
	if bands[0].Upper < 0 {
		return nil, fmt.Errorf("band 0 (%s): upper bound %v below 0", bands[0].Name, bands[0].Upper)
	}
	if last := bands[len(bands)-1]; last.Upper != 1 {
		return nil, fmt.Errorf("band %d (%s): last upper bound must be 1, got %v", len(bands)-1, last.Name, last.Upper)
	}
	dup := make([]Band, len(bands))
	copy(dup, bands)
	return &Palette{bands: dup, fallback: fallback}, nil
}

// HexBand is the configuration form of a Band.
type HexBand struct {
	Name  string
	Upper float64
	Color string
}

// FromHex builds a palette from "#rrggbb" colour strings.
func FromHex(bands []HexBand, fallback string) (*Palette, error) {
	parsed := make([]Band, 0, len(bands))
	for i, b := range bands {
		col, err := ParseHex(b.Color)
		if err != nil {
			return nil, fmt.Errorf("band %d (%s): %w", i, b.Name, err)
		}
		parsed = append(parsed, Band{Name: b.Name, Upper: b.Upper, Color: col})
	}
	fb, err := ParseHex(fallback)
	if err != nil {
		return nil, fmt.Errorf("fallback: %w", err)
	}
	return New(parsed, fb)
}

func (p *Palette) Bands() []Band {
	dup := make([]Band, len(p.bands))
	copy(dup, p.bands)
	return dup
}

func (p *Palette) Fallback() RGB { return p.fallback }

// Band returns the band containing v. Values outside [0,1] and NaN match no
// band.
func (p *Palette) Band(v float64) (Band, bool) {
	if math.IsNaN(v) || v < 0 || v > 1 {
		return Band{}, false
	}
	for _, band := range p.bands {
		if v <= band.Upper {
			return band, true
		}
	}
	return Band{}, false
}

// Classify returns the colour for v, or the fallback when v is out of range.
func (p *Palette) Classify(v float64) RGB {
	if band, ok := p.Band(v); ok {
		return band.Color
	}
	return p.fallback
}

// ParseHex decodes "#rrggbb" (the leading # is optional).
func ParseHex(value string) (RGB, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(value), "#")
	if len(trimmed) != 6 {
		return RGB{}, fmt.Errorf("colour %q is not #rrggbb", value)
	}
	var channels [3]uint8
	for i := range channels {
		v, err := strconv.ParseUint(trimmed[i*2:i*2+2], 16, 8)
		if err != nil {
			return RGB{}, fmt.Errorf("colour %q is not #rrggbb", value)
		}
		channels[i] = uint8(v)
	}
	return RGB{R: channels[0], G: channels[1], B: channels[2]}, nil
}
