package terrain

import (
	"fmt"
	"math"
	"strings"
)

type FalloffMode string

const (
	FalloffNone     FalloffMode = "none"
	FalloffGaussian FalloffMode = "gaussian"
	FalloffCircular FalloffMode = "circular"
)

// DefaultFalloffRadiusRatio sizes the gaussian radius relative to the smaller
// grid dimension.
const DefaultFalloffRadiusRatio = 0.25

// ParseFalloffMode accepts the configuration spelling of a mode. An empty
// string means no falloff.
func ParseFalloffMode(s string) (FalloffMode, error) {
	switch mode := FalloffMode(strings.ToLower(strings.TrimSpace(s))); mode {
	case "", FalloffNone:
		return FalloffNone, nil
	case FalloffGaussian, FalloffCircular:
		return mode, nil
	default:
		return "", fmt.Errorf("unknown falloff mode %q", s)
	}
}

// Falloff describes a radial decay that carves an island out of open noise.
type Falloff struct {
	Mode FalloffMode
	// RadiusRatio is the gaussian radius as a fraction of min(width, height).
	// Zero selects DefaultFalloffRadiusRatio. Ignored by the circular mode.
	RadiusRatio float64
}

func (f Falloff) Enabled() bool {
	return f.Mode != "" && f.Mode != FalloffNone
}

func (f Falloff) Validate() error {
	switch f.Mode {
	case "", FalloffNone, FalloffCircular:
	case FalloffGaussian:
		if f.RadiusRatio < 0 || math.IsNaN(f.RadiusRatio) || math.IsInf(f.RadiusRatio, 0) {
			return fmt.Errorf("falloff radius ratio must be a non-negative number, got %v", f.RadiusRatio)
		}
	default:
		return fmt.Errorf("unknown falloff mode %q", f.Mode)
	}
	return nil
}

// Scale returns the multiplier applied to cell (x, y) of a width×height grid.
func (f Falloff) Scale(x, y, width, height int) float64 {
	switch f.Mode {
	case FalloffGaussian:
		ratio := f.RadiusRatio
		if ratio == 0 {
			ratio = DefaultFalloffRadiusRatio
		}
		radius := ratio * float64(min(width, height))
		if radius <= 0 {
			return 1
		}
		d := math.Hypot(float64(x)-float64(width)/2, float64(y)-float64(height)/2)
		return math.Exp(-0.5 * (d / radius) * (d / radius))
	case FalloffCircular:
		nx := float64(x)/float64(width)*2 - 1
		ny := float64(y)/float64(height)*2 - 1
		return math.Max(0, 1-(nx*nx+ny*ny))
	default:
		return 1
	}
}

// ApplyFalloff returns a copy of grid with the falloff multiplied in. The
// result no longer spans [0,1]: border cells approach zero while the centre
// keeps its value. The centre sits at (width/2, height/2) in cell
// coordinates, so along an odd dimension it falls between two cells and no
// cell keeps a scale of exactly 1; the cells nearest the centre share the
// maximum instead.
func ApplyFalloff(grid *ElevationGrid, f Falloff) *ElevationGrid {
	out := &ElevationGrid{width: grid.width, height: grid.height, values: grid.Values()}
	applyFalloff(out.values, out.width, out.height, f)
	return out
}

func applyFalloff(values []float64, width, height int, f Falloff) {
	if !f.Enabled() {
		return
	}
	for y := 0; y < height; y++ {
		row := values[y*width : (y+1)*width]
		for x := range row {
			row[x] *= f.Scale(x, y, width, height)
		}
	}
}
