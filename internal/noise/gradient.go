package noise

import (
	"fmt"
	"math"
	"math/rand"
)

// DefaultGradientScale is the length of every gradient vector in a layer. The
// √2 factor stretches single-layer output towards [-1,1]; a scale of 1 gives
// plain unit gradients.
const DefaultGradientScale = math.Sqrt2

// GradientLayer is a toroidal grid of random gradient vectors sampled with
// Perlin-style gradient noise. Randomize must not run concurrently with Sample.
type GradientLayer struct {
	width   int
	height  int
	scale   float64
	vectors []Vec2
}

// NewGradientLayer allocates a width×height layer. The vectors stay zero until
// Randomize is called.
func NewGradientLayer(width, height int, scale float64) (*GradientLayer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("gradient layer dimensions must be positive, got %dx%d", width, height)
	}
	if math.IsNaN(scale) || math.IsInf(scale, 0) || scale < 0 {
		return nil, fmt.Errorf("gradient scale must be finite and non-negative, got %v", scale)
	}
	return &GradientLayer{
		width:   width,
		height:  height,
		scale:   scale,
		vectors: make([]Vec2, width*height),
	}, nil
}

func (l *GradientLayer) Width() int     { return l.width }
func (l *GradientLayer) Height() int    { return l.height }
func (l *GradientLayer) Scale() float64 { return l.scale }

// Vector returns the gradient at grid node (x, y), wrapping both indices.
func (l *GradientLayer) Vector(x, y int) Vec2 {
	return l.vectors[wrap(y, l.height)*l.width+wrap(x, l.width)]
}

// Randomize replaces every gradient with a direction drawn uniformly from
// [0, 2π) using rng.
func (l *GradientLayer) Randomize(rng *rand.Rand) {
	for i := range l.vectors {
		theta := rng.Float64() * 2 * math.Pi
		l.vectors[i] = Vec2{X: l.scale * math.Cos(theta), Y: l.scale * math.Sin(theta)}
	}
}

// Sample evaluates gradient noise at p. The result is unbounded and centred
// on zero; nothing is clamped.
func (l *GradientLayer) Sample(p Vec2) float64 {
	gx := float64(l.width) * p.X
	gy := float64(l.height) * p.Y

	left := wrap(int(math.Floor(gx)), l.width)
	right := wrap(left+1, l.width)
	top := wrap(int(math.Floor(gy)), l.height)
	bottom := wrap(top+1, l.height)

	xf := Fract(gx)
	yf := Fract(gy)

	topLeft := l.vectors[top*l.width+left].Dot(Vec2{X: xf, Y: yf})
	topRight := l.vectors[top*l.width+right].Dot(Vec2{X: xf - 1, Y: yf})
	bottomLeft := l.vectors[bottom*l.width+left].Dot(Vec2{X: xf, Y: yf - 1})
	bottomRight := l.vectors[bottom*l.width+right].Dot(Vec2{X: xf - 1, Y: yf - 1})

	upper := Lerp(topLeft, topRight, xf)
	lower := Lerp(bottomLeft, bottomRight, xf)
	return Lerp(upper, lower, yf)
}
