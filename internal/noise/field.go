package noise

import (
	"errors"
	"fmt"
	"math/rand"
)

// Field is a scalar noise source over normalized 2D positions.
type Field interface {
	Sample(p Vec2) float64
	// Randomize re-rolls the field's random state from rng. Callers must not
	// sample while a Randomize is in progress.
	Randomize(rng *rand.Rand)
}

// LayerSpec describes one octave of a LayeredField.
type LayerSpec struct {
	Width  int
	Height int
	Weight float64
}

// DefaultLayers is the coarse-to-fine octave stack used when none is configured.
func DefaultLayers() []LayerSpec {
	return []LayerSpec{
		{Width: 3, Height: 3, Weight: 1.0},
		{Width: 5, Height: 5, Weight: 0.8},
		{Width: 7, Height: 7, Weight: 0.5},
		{Width: 13, Height: 13, Weight: 0.4},
	}
}

type Octave struct {
	Layer  *GradientLayer
	Weight float64
}

// LayeredField sums weighted gradient layers of differing resolution. Weights
// are raw multipliers so the output range is not bounded; normalize
// downstream.
type LayeredField struct {
	octaves []Octave
}

// NewLayeredField builds one layer per LayerSpec, each randomized from rng.
func NewLayeredField(specs []LayerSpec, scale float64, rng *rand.Rand) (*LayeredField, error) {
	if len(specs) == 0 {
		return nil, errors.New("layered field needs at least one layer")
	}
	if rng == nil {
		return nil, errors.New("layered field needs a random source")
	}
	octaves := make([]Octave, 0, len(specs))
	for i, s := range specs {
		layer, err := NewGradientLayer(s.Width, s.Height, scale)
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
		octaves = append(octaves, Octave{Layer: layer, Weight: s.Weight})
	}
	field := &LayeredField{octaves: octaves}
	field.Randomize(rng)
	return field, nil
}

// Octaves returns a copy of the layer stack. The layers themselves are shared.
func (f *LayeredField) Octaves() []Octave {
	out := make([]Octave, len(f.octaves))
	copy(out, f.octaves)
	return out
}

func (f *LayeredField) Sample(p Vec2) float64 {
	var value float64
	for _, o := range f.octaves {
		value += o.Layer.Sample(p) * o.Weight
	}
	return value
}

// Randomize re-rolls every layer in order. Layer count, resolutions and
// weights are unchanged.
func (f *LayeredField) Randomize(rng *rand.Rand) {
	for _, o := range f.octaves {
		o.Layer.Randomize(rng)
	}
}
