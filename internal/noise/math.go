package noise

import "math"

// Vec2 is a 2D point or direction. Sample positions are normalized so that
// [0,1)×[0,1) covers one full period of a toroidal field.
type Vec2 struct {
	X float64
	Y float64
}

func (v Vec2) Dot(o Vec2) float64 {
	return v.X*o.X + v.Y*o.Y
}

func (v Vec2) Length() float64 {
	return math.Hypot(v.X, v.Y)
}

// Smoothstep eases t with the cubic t²(3-2t).
func Smoothstep(t float64) float64 {
	return t * t * (3 - 2*t)
}

// Lerp blends a towards b using a smoothstep-weighted t.
func Lerp(a, b, t float64) float64 {
	t = Smoothstep(t)
	return a*(1-t) + b*t
}

// Fract returns the non-negative fractional part of x.
func Fract(x float64) float64 {
	return x - math.Floor(x)
}

func wrap(i, n int) int {
	i %= n
	if i < 0 {
		i += n
	}
	return i
}
