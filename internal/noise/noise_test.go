package noise

import (
	"math"
	"math/rand"
	"testing"
)

func newRand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

func TestSmoothstepAndLerpEndpoints(t *testing.T) {
	if got := Smoothstep(0); got != 0 {
		t.Fatalf("smoothstep(0) = %v", got)
	}
	if got := Smoothstep(1); got != 1 {
		t.Fatalf("smoothstep(1) = %v", got)
	}
	if got := Smoothstep(0.5); got != 0.5 {
		t.Fatalf("smoothstep(0.5) = %v", got)
	}
	if got := Lerp(2, 6, 0); got != 2 {
		t.Fatalf("lerp at t=0 = %v", got)
	}
	if got := Lerp(2, 6, 1); got != 6 {
		t.Fatalf("lerp at t=1 = %v", got)
	}
	if got := Fract(-0.25); got != 0.75 {
		t.Fatalf("fract(-0.25) = %v", got)
	}
}

func TestNewGradientLayerRejectsInvalidInput(t *testing.T) {
	cases := []struct {
		name          string
		width, height int
		scale         float64
	}{
		{name: "zero width", width: 0, height: 3, scale: 1},
		{name: "negative height", width: 3, height: -1, scale: 1},
		{name: "nan scale", width: 3, height: 3, scale: math.NaN()},
		{name: "negative scale", width: 3, height: 3, scale: -1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewGradientLayer(tc.width, tc.height, tc.scale); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestGradientLayerRandomizeUsesConfiguredScale(t *testing.T) {
	for _, scale := range []float64{1, DefaultGradientScale} {
		layer, err := NewGradientLayer(5, 4, scale)
		if err != nil {
			t.Fatalf("NewGradientLayer: %v", err)
		}
		layer.Randomize(newRand(7))
		for y := 0; y < layer.Height(); y++ {
			for x := 0; x < layer.Width(); x++ {
				if got := layer.Vector(x, y).Length(); math.Abs(got-scale) > 1e-12 {
					t.Fatalf("vector (%d,%d) length %v, want %v", x, y, got, scale)
				}
			}
		}
	}
}

func TestGradientLayerVectorWraps(t *testing.T) {
	layer, _ := NewGradientLayer(3, 2, 1)
	layer.Randomize(newRand(3))
	if layer.Vector(-1, 0) != layer.Vector(2, 0) {
		t.Fatalf("x index did not wrap")
	}
	if layer.Vector(1, 5) != layer.Vector(1, 1) {
		t.Fatalf("y index did not wrap")
	}
}

func TestGradientLayerSampleVanishesAtGridNodes(t *testing.T) {
	layer, _ := NewGradientLayer(4, 4, DefaultGradientScale)
	layer.Randomize(newRand(11))
	for j := 0; j < 4; j++ {
		for i := 0; i < 4; i++ {
			p := Vec2{X: float64(i) / 4, Y: float64(j) / 4}
			if got := layer.Sample(p); math.Abs(got) > 1e-12 {
				t.Fatalf("sample at node (%d,%d) = %v, want 0", i, j, got)
			}
		}
	}
}

func TestGradientLayerToroidalContinuity(t *testing.T) {
	layer, _ := NewGradientLayer(5, 3, DefaultGradientScale)
	layer.Randomize(newRand(21))
	const eps = 1e-9
	for _, y := range []float64{0, 0.13, 0.5, 0.77, 0.99} {
		start := layer.Sample(Vec2{X: 0, Y: y})
		end := layer.Sample(Vec2{X: 1 - eps, Y: y})
		if math.Abs(start-end) > 1e-6 {
			t.Fatalf("horizontal seam at y=%v: %v vs %v", y, start, end)
		}
	}
	for _, x := range []float64{0, 0.21, 0.5, 0.9} {
		start := layer.Sample(Vec2{X: x, Y: 0})
		end := layer.Sample(Vec2{X: x, Y: 1 - eps})
		if math.Abs(start-end) > 1e-6 {
			t.Fatalf("vertical seam at x=%v: %v vs %v", x, start, end)
		}
	}
}

func TestGradientLayerSampleIsPeriodic(t *testing.T) {
	layer, _ := NewGradientLayer(4, 6, 1)
	layer.Randomize(newRand(5))
	for _, p := range []Vec2{{X: 0.1, Y: 0.2}, {X: 0.55, Y: 0.8}, {X: 0.9, Y: 0.05}} {
		base := layer.Sample(p)
		shifted := layer.Sample(Vec2{X: p.X + 1, Y: p.Y - 1})
		if math.Abs(base-shifted) > 1e-9 {
			t.Fatalf("sample at %+v not periodic: %v vs %v", p, base, shifted)
		}
	}
}

func TestGradientLayerZeroScaleSamplesZero(t *testing.T) {
	layer, _ := NewGradientLayer(3, 3, 0)
	layer.Randomize(newRand(1))
	if got := layer.Sample(Vec2{X: 0.37, Y: 0.61}); got != 0 {
		t.Fatalf("zero-scale layer sampled %v", got)
	}
}

func TestLayeredFieldSumsWeightedLayers(t *testing.T) {
	field, err := NewLayeredField(DefaultLayers(), DefaultGradientScale, newRand(99))
	if err != nil {
		t.Fatalf("NewLayeredField: %v", err)
	}
	p := Vec2{X: 0.31, Y: 0.72}
	var want float64
	for _, o := range field.Octaves() {
		want += o.Layer.Sample(p) * o.Weight
	}
	if got := field.Sample(p); math.Abs(got-want) > 1e-12 {
		t.Fatalf("sample = %v, want %v", got, want)
	}
}

func TestLayeredFieldSeededDeterminism(t *testing.T) {
	a, err := NewLayeredField(DefaultLayers(), DefaultGradientScale, newRand(1234))
	if err != nil {
		t.Fatalf("NewLayeredField: %v", err)
	}
	b, err := NewLayeredField(DefaultLayers(), DefaultGradientScale, newRand(1234))
	if err != nil {
		t.Fatalf("NewLayeredField: %v", err)
	}
	for i := 0; i < 50; i++ {
		p := Vec2{X: float64(i) / 50, Y: float64((i*7)%50) / 50}
		if a.Sample(p) != b.Sample(p) {
			t.Fatalf("fields diverged at %+v", p)
		}
	}

	c, _ := NewLayeredField(DefaultLayers(), DefaultGradientScale, newRand(4321))
	p := Vec2{X: 0.4, Y: 0.3}
	if a.Sample(p) == c.Sample(p) {
		t.Fatalf("different seeds produced identical sample %v", a.Sample(p))
	}
}

func TestLayeredFieldRandomizeKeepsStructure(t *testing.T) {
	field, _ := NewLayeredField(DefaultLayers(), 1, newRand(8))
	before := field.Octaves()
	p := Vec2{X: 0.42, Y: 0.17}
	sample := field.Sample(p)

	field.Randomize(newRand(9))

	after := field.Octaves()
	if len(after) != len(before) {
		t.Fatalf("layer count changed: %d -> %d", len(before), len(after))
	}
	for i := range after {
		if after[i].Weight != before[i].Weight {
			t.Fatalf("weight %d changed", i)
		}
		if after[i].Layer.Width() != before[i].Layer.Width() || after[i].Layer.Height() != before[i].Layer.Height() {
			t.Fatalf("resolution %d changed", i)
		}
	}
	if field.Sample(p) == sample {
		t.Fatalf("randomize left the field unchanged")
	}
}

func TestLayeredFieldZeroWeightsSampleZero(t *testing.T) {
	field, _ := NewLayeredField([]LayerSpec{{Width: 3, Height: 3}, {Width: 7, Height: 5}}, DefaultGradientScale, newRand(2))
	if got := field.Sample(Vec2{X: 0.3, Y: 0.9}); got != 0 {
		t.Fatalf("zero-weight field sampled %v", got)
	}
}

func TestNewLayeredFieldValidation(t *testing.T) {
	if _, err := NewLayeredField(nil, 1, newRand(1)); err == nil {
		t.Fatalf("expected error for empty layer list")
	}
	if _, err := NewLayeredField(DefaultLayers(), 1, nil); err == nil {
		t.Fatalf("expected error for nil rng")
	}
	if _, err := NewLayeredField([]LayerSpec{{Width: 0, Height: 2, Weight: 1}}, 1, newRand(1)); err == nil {
		t.Fatalf("expected error for invalid layer")
	}
}

func TestSimplexFieldTilesAcrossUnitSquare(t *testing.T) {
	field, err := NewSimplexField(4, newRand(17))
	if err != nil {
		t.Fatalf("NewSimplexField: %v", err)
	}
	for _, y := range []float64{0, 0.25, 0.6} {
		if d := math.Abs(field.Sample(Vec2{X: 0, Y: y}) - field.Sample(Vec2{X: 1, Y: y})); d > 1e-9 {
			t.Fatalf("simplex seam at y=%v: %v", y, d)
		}
	}
}

func TestBackendsSeededDeterminism(t *testing.T) {
	p := Vec2{X: 0.33, Y: 0.66}

	pa, err := NewPerlinField(DefaultPerlinParams(), newRand(50))
	if err != nil {
		t.Fatalf("NewPerlinField: %v", err)
	}
	pb, _ := NewPerlinField(DefaultPerlinParams(), newRand(50))
	if pa.Seed() != pb.Seed() || pa.Sample(p) != pb.Sample(p) {
		t.Fatalf("perlin fields with equal seeds diverged")
	}

	sa, _ := NewSimplexField(3, newRand(60))
	sb, _ := NewSimplexField(3, newRand(60))
	if sa.Seed() != sb.Seed() || sa.Sample(p) != sb.Sample(p) {
		t.Fatalf("simplex fields with equal seeds diverged")
	}

	seed := sa.Seed()
	sa.Randomize(newRand(61))
	if sa.Seed() == seed {
		t.Fatalf("randomize kept the simplex seed")
	}
}

func TestBackendValidation(t *testing.T) {
	if _, err := NewPerlinField(PerlinParams{Alpha: 2, Beta: 2, Octaves: 0, Frequency: 1}, newRand(1)); err == nil {
		t.Fatalf("expected error for zero perlin octaves")
	}
	if _, err := NewPerlinField(DefaultPerlinParams(), nil); err == nil {
		t.Fatalf("expected error for nil rng")
	}
	if _, err := NewSimplexField(0, newRand(1)); err == nil {
		t.Fatalf("expected error for zero simplex frequency")
	}
}
