package layout3d

import "math"

// Bounds is the axis-aligned box around a set of points.
type Bounds struct {
	Min [3]float64 `json:"min"`
	Max [3]float64 `json:"max"`
}

// BoundsOf returns the bounds of points. Empty input yields the zero box.
func BoundsOf(points []Point) Bounds {
	if len(points) == 0 {
		return Bounds{}
	}
	b := Bounds{Min: points[0].Coords(), Max: points[0].Coords()}
	for _, p := range points[1:] {
		c := p.Coords()
		for axis := range c {
			b.Min[axis] = math.Min(b.Min[axis], c[axis])
			b.Max[axis] = math.Max(b.Max[axis], c[axis])
		}
	}
	return b
}

// Span returns max - min along axis (0 = x, 1 = y, 2 = z).
func (b Bounds) Span(axis int) float64 { return b.Max[axis] - b.Min[axis] }

// Center returns the midpoint of the box.
func (b Bounds) Center() [3]float64 {
	var c [3]float64
	for axis := range c {
		c[axis] = (b.Min[axis] + b.Max[axis]) / 2
	}
	return c
}
