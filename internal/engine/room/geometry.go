package room

import "math"

// Vec is a 2D point or direction in world units
type Vec struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns v+o
func (v Vec) Add(o Vec) Vec { return Vec{v.X + o.X, v.Y + o.Y} }

// Sub returns v-o
func (v Vec) Sub(o Vec) Vec { return Vec{v.X - o.X, v.Y - o.Y} }

// Scale returns v*f
func (v Vec) Scale(f float64) Vec { return Vec{v.X * f, v.Y * f} }

// Len returns the vector length
func (v Vec) Len() float64 { return math.Hypot(v.X, v.Y) }

// Dist returns the distance between v and o
func (v Vec) Dist(o Vec) float64 { return v.Sub(o).Len() }

// Finite reports whether both components are real numbers
func (v Vec) Finite() bool {
	return !math.IsNaN(v.X) && !math.IsNaN(v.Y) && !math.IsInf(v.X, 0) && !math.IsInf(v.Y, 0)
}

// Clamp1 shortens v to unit length when it is longer
func (v Vec) Clamp1() Vec {
	if l := v.Len(); l > 1 {
		return v.Scale(1 / l)
	}
	return v
}

// Unit returns v normalised, or the zero vector
func (v Vec) Unit() Vec {
	if l := v.Len(); l > 0 {
		return v.Scale(1 / l)
	}
	return Vec{}
}

// Rect is an axis aligned box
type Rect struct {
	Min Vec `json:"min" yaml:"min"`
	Max Vec `json:"max" yaml:"max"`
}

// Contains reports whether p lies inside r, edges included
func (r Rect) Contains(p Vec) bool {
	return p.X >= r.Min.X && p.X <= r.Max.X && p.Y >= r.Min.Y && p.Y <= r.Max.Y
}

// Clamp moves p to the nearest point inside r
func (r Rect) Clamp(p Vec) Vec {
	return Vec{
		X: math.Min(math.Max(p.X, r.Min.X), r.Max.X),
		Y: math.Min(math.Max(p.Y, r.Min.Y), r.Max.Y),
	}
}

func blocked(p Vec, walls []Rect) bool {
	for _, w := range walls {
		if w.Contains(p) {
			return true
		}
	}
	return false
}
