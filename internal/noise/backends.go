package noise

import (
	"errors"
	"math"
	"math/rand"

	"github.com/aquilax/go-perlin"
	"github.com/ojrac/opensimplex-go"
)

// PerlinParams configures a PerlinField.
type PerlinParams struct {
	Alpha     float64
	Beta      float64
	Octaves   int32
	Frequency float64
}

func DefaultPerlinParams() PerlinParams {
	return PerlinParams{Alpha: 2, Beta: 2, Octaves: 3, Frequency: 4}
}

// PerlinField samples classic Perlin noise from go-perlin. Unlike the
// gradient field it does not wrap at the unit square edges.
type PerlinField struct {
	params PerlinParams
	seed   int64
	noise  *perlin.Perlin
}

func NewPerlinField(params PerlinParams, rng *rand.Rand) (*PerlinField, error) {
	if rng == nil {
		return nil, errors.New("perlin field needs a random source")
	}
	if params.Octaves <= 0 {
		return nil, errors.New("perlin octaves must be positive")
	}
	if params.Frequency <= 0 {
		return nil, errors.New("perlin frequency must be positive")
	}
	f := &PerlinField{params: params}
	f.Randomize(rng)
	return f, nil
}

func (f *PerlinField) Seed() int64 { return f.seed }

func (f *PerlinField) Sample(p Vec2) float64 {
	return f.noise.Noise2D(p.X*f.params.Frequency, p.Y*f.params.Frequency)
}

func (f *PerlinField) Randomize(rng *rand.Rand) {
	f.seed = rng.Int63()
	f.noise = perlin.NewPerlin(f.params.Alpha, f.params.Beta, f.params.Octaves, f.seed)
}

// SimplexField samples OpenSimplex noise on a torus embedded in 4D, so the
// output tiles seamlessly across the unit square like the gradient field.
type SimplexField struct {
	frequency float64
	seed      int64
	noise     opensimplex.Noise
}

func NewSimplexField(frequency float64, rng *rand.Rand) (*SimplexField, error) {
	if rng == nil {
		return nil, errors.New("simplex field needs a random source")
	}
	if frequency <= 0 {
		return nil, errors.New("simplex frequency must be positive")
	}
	f := &SimplexField{frequency: frequency}
	f.Randomize(rng)
	return f, nil
}

func (f *SimplexField) Seed() int64 { return f.seed }

func (f *SimplexField) Sample(p Vec2) float64 {
	// Circumference of each circle equals frequency, so one unit of the
	// normalized square spans `frequency` noise features.
	radius := f.frequency / (2 * math.Pi)
	a := 2 * math.Pi * p.X
	b := 2 * math.Pi * p.Y
	return f.noise.Eval4(
		radius*math.Cos(a),
		radius*math.Sin(a),
		radius*math.Cos(b),
		radius*math.Sin(b),
	)
}

func (f *SimplexField) Randomize(rng *rand.Rand) {
	f.seed = rng.Int63()
	f.noise = opensimplex.New(f.seed)
}
