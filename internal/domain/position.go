package domain

import "math"

// Vec is a 2D point or displacement.
type Vec struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns v + o
func (v Vec) Add(o Vec) Vec { return Vec{v.X + o.X, v.Y + o.Y} }

// Sub returns v - o
func (v Vec) Sub(o Vec) Vec { return Vec{v.X - o.X, v.Y - o.Y} }

// Scale returns v * s
func (v Vec) Scale(s float64) Vec { return Vec{v.X * s, v.Y * s} }

// Len returns the Euclidean length of v
func (v Vec) Len() float64 { return math.Hypot(v.X, v.Y) }

// Finite reports whether both components are finite numbers
func (v Vec) Finite() bool {
	return !math.IsNaN(v.X) && !math.IsNaN(v.Y) && !math.IsInf(v.X, 0) && !math.IsInf(v.Y, 0)
}

// Rect is an axis-aligned box in world space.
type Rect struct {
	Min Vec `json:"min"`
	Max Vec `json:"max"`
}

// Contains reports whether p lies inside or on the box
func (r Rect) Contains(p Vec) bool {
	return p.X >= r.Min.X && p.X <= r.Max.X && p.Y >= r.Min.Y && p.Y <= r.Max.Y
}

// Center returns the midpoint of the box
func (r Rect) Center() Vec {
	return Vec{(r.Min.X + r.Max.X) / 2, (r.Min.Y + r.Max.Y) / 2}
}

// Clamp moves p to the nearest point inside the box. Non-finite
// components collapse to the box center.
func (r Rect) Clamp(p Vec) Vec {
	c := r.Center()
	if math.IsNaN(p.X) {
		p.X = c.X
	}
	if math.IsNaN(p.Y) {
		p.Y = c.Y
	}
	return Vec{
		X: math.Min(math.Max(p.X, r.Min.X), r.Max.X),
		Y: math.Min(math.Max(p.Y, r.Min.Y), r.Max.Y),
	}
}
