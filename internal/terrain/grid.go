package terrain

import (
	"fmt"
	"math"
)

// ElevationGrid is a row-major height field. Grids produced by Generate are
// never mutated afterwards; accessors hand out copies.
type ElevationGrid struct {
	width  int
	height int
	values []float64
}

// NewElevationGrid wraps a copy of values as a width×height grid.
func NewElevationGrid(width, height int, values []float64) (*ElevationGrid, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("grid dimensions must be positive, got %dx%d", width, height)
	}
	if len(values) != width*height {
		return nil, fmt.Errorf("grid %dx%d needs %d values, got %d", width, height, width*height, len(values))
	}
	dup := make([]float64, len(values))
	copy(dup, values)
	return &ElevationGrid{width: width, height: height, values: dup}, nil
}

// UniformGrid returns a width×height grid filled with value.
func UniformGrid(width, height int, value float64) (*ElevationGrid, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("grid dimensions must be positive, got %dx%d", width, height)
	}
	values := make([]float64, width*height)
	for i := range values {
		values[i] = value
	}
	return &ElevationGrid{width: width, height: height, values: values}, nil
}

func (g *ElevationGrid) Width() int  { return g.width }
func (g *ElevationGrid) Height() int { return g.height }

// At returns the elevation at (x, y). Out-of-range coordinates panic like a
// slice index would.
func (g *ElevationGrid) At(x, y int) float64 {
	if x < 0 || x >= g.width || y < 0 || y >= g.height {
		panic(fmt.Sprintf("terrain: grid index (%d,%d) out of range %dx%d", x, y, g.width, g.height))
	}
	return g.values[y*g.width+x]
}

// Values returns a row-major copy of the elevations.
func (g *ElevationGrid) Values() []float64 {
	dup := make([]float64, len(g.values))
	copy(dup, g.values)
	return dup
}

// Range reports the minimum and maximum elevation.
func (g *ElevationGrid) Range() (min, max float64) {
	return valueRange(g.values)
}

func valueRange(values []float64) (min, max float64) {
	min = math.Inf(1)
	max = math.Inf(-1)
	for _, v := range values {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return min, max
}
