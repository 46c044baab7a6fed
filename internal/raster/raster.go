package raster

import (
	"errors"
	"fmt"
	"math"

	"islands/internal/palette"
	"islands/internal/terrain"
)

// Channels is the number of bytes per pixel (R, G, B, A).
const Channels = 4

// ErrBufferSizeMismatch matches every *BufferSizeMismatchError via errors.Is.
var ErrBufferSizeMismatch = errors.New("raster buffer size mismatch")

type BufferSizeMismatchError struct {
	Want int
	Got  int
}

func (e *BufferSizeMismatchError) Error() string {
	return fmt.Sprintf("raster buffer holds %d bytes, grid needs %d", e.Got, e.Want)
}

func (e *BufferSizeMismatchError) Unwrap() error {
	return ErrBufferSizeMismatch
}

// Classifier maps an elevation to a display colour.
type Classifier interface {
	Classify(v float64) palette.RGB
}

// BufferSize is the byte length of an RGBA buffer for a width×height image.
func BufferSize(width, height int) int {
	return width * height * Channels
}

// NewBuffer allocates an RGBA buffer sized for grid.
func NewBuffer(grid *terrain.ElevationGrid) []byte {
	return make([]byte, BufferSize(grid.Width(), grid.Height()))
}

// WriteGrayscale stores each elevation as luminance: round(v*255) in R, G and
// B with opaque alpha. Values are clamped to [0,1] first.
func WriteGrayscale(grid *terrain.ElevationGrid, buf []byte) error {
	if err := checkSize(grid, buf); err != nil {
		return err
	}
	width := grid.Width()
	for y := 0; y < grid.Height(); y++ {
		for x := 0; x < width; x++ {
			idx := (y*width + x) * Channels
			level := luminance(grid.At(x, y))
			buf[idx] = level
			buf[idx+1] = level
			buf[idx+2] = level
			buf[idx+3] = 255
		}
	}
	return nil
}

// WritePalette stores the classifier's colour for each elevation with opaque
// alpha.
func WritePalette(grid *terrain.ElevationGrid, buf []byte, classifier Classifier) error {
	if classifier == nil {
		return errors.New("raster: classifier is nil")
	}
	if err := checkSize(grid, buf); err != nil {
		return err
	}
	width := grid.Width()
	for y := 0; y < grid.Height(); y++ {
		for x := 0; x < width; x++ {
			idx := (y*width + x) * Channels
			col := classifier.Classify(grid.At(x, y))
			buf[idx] = col.R
			buf[idx+1] = col.G
			buf[idx+2] = col.B
			buf[idx+3] = 255
		}
	}
	return nil
}

func checkSize(grid *terrain.ElevationGrid, buf []byte) error {
	if grid == nil {
		return errors.New("raster: grid is nil")
	}
	want := BufferSize(grid.Width(), grid.Height())
	if len(buf) != want {
		return &BufferSizeMismatchError{Want: want, Got: len(buf)}
	}
	return nil
}

func luminance(v float64) uint8 {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(math.Round(v * 255))
}
