// Package viewport maps between world space, where the simulator runs, and
// surface space, where pointer input arrives and frames are drawn.
//
//	surface = (world + pan) * scale
//	world   = surface / scale - pan
package viewport

import (
	"math"

	"kgview/internal/domain"
)

// Limits bounds the zoom scale and sets the per-wheel-tick factors
type Limits struct {
	MinScale float64 `json:"min_scale"`
	MaxScale float64 `json:"max_scale"`
	ZoomIn   float64 `json:"zoom_in"`
	ZoomOut  float64 `json:"zoom_out"`
}

// DefaultLimits returns the console's zoom range
func DefaultLimits() Limits {
	return Limits{MinScale: 0.2, MaxScale: 5, ZoomIn: 1.1, ZoomOut: 0.9}
}

// Normalize repairs inverted or non-positive limits
func (l Limits) Normalize() Limits {
	d := DefaultLimits()
	if !(l.MinScale > 0) || math.IsInf(l.MinScale, 0) {
		l.MinScale = d.MinScale
	}
	if !(l.MaxScale > 0) || math.IsInf(l.MaxScale, 0) {
		l.MaxScale = d.MaxScale
	}
	if l.MinScale > l.MaxScale {
		l.MinScale, l.MaxScale = l.MaxScale, l.MinScale
	}
	if !(l.ZoomIn > 1) || math.IsInf(l.ZoomIn, 0) {
		l.ZoomIn = d.ZoomIn
	}
	if !(l.ZoomOut > 0 && l.ZoomOut < 1) {
		l.ZoomOut = d.ZoomOut
	}
	return l
}

// State is the pan/zoom pair exposed to collaborators
type State struct {
	PanX  float64 `json:"pan_x"`
	PanY  float64 `json:"pan_y"`
	Scale float64 `json:"scale"`
}

// WorldToSurface converts a world point under this state
func (s State) WorldToSurface(p domain.Vec) domain.Vec {
	return domain.Vec{X: (p.X + s.PanX) * s.Scale, Y: (p.Y + s.PanY) * s.Scale}
}

// SurfaceToWorld converts a surface point under this state
func (s State) SurfaceToWorld(p domain.Vec) domain.Vec {
	return domain.Vec{X: p.X/s.Scale - s.PanX, Y: p.Y/s.Scale - s.PanY}
}

// Viewport owns the pan offset and zoom scale
type Viewport struct {
	state  State
	limits Limits

	// world and surface confine the pan once Confine has been called
	world   domain.Rect
	surface domain.Vec
	bounded bool
}

// New creates an identity viewport
func New(limits Limits) *Viewport {
	l := limits.Normalize()
	v := &Viewport{limits: l}
	v.Reset()
	return v
}

// Reset restores zero pan and unit scale (clamped into the limits)
func (v *Viewport) Reset() {
	v.state = State{Scale: v.clamp(1)}
	v.clampPan()
}

// Confine keeps some part of the world box visible on a surface of the given
// size: every later pan is clamped so the two overlap. An empty box or
// surface lifts the restriction.
func (v *Viewport) Confine(world domain.Rect, surface domain.Vec) {
	v.world, v.surface = world, surface
	v.bounded = world.Max.X > world.Min.X && world.Max.Y > world.Min.Y &&
		surface.X > 0 && surface.Y > 0 && world.Min.Finite() && world.Max.Finite() && surface.Finite()
	v.clampPan()
}

// State returns the current pan/zoom
func (v *Viewport) State() State { return v.state }

// Limits returns the normalized limits
func (v *Viewport) Limits() Limits { return v.limits }

// WorldToSurface converts a world point to surface space
func (v *Viewport) WorldToSurface(p domain.Vec) domain.Vec { return v.state.WorldToSurface(p) }

// SurfaceToWorld converts a surface point to world space
func (v *Viewport) SurfaceToWorld(p domain.Vec) domain.Vec { return v.state.SurfaceToWorld(p) }

// PanBy shifts the view so content moves by the given surface delta
func (v *Viewport) PanBy(delta domain.Vec) {
	if !delta.Finite() {
		return
	}
	v.SetPan(v.state.PanX+delta.X/v.state.Scale, v.state.PanY+delta.Y/v.state.Scale)
}

// SetPan sets the pan offset in world units
func (v *Viewport) SetPan(x, y float64) {
	if math.IsNaN(x) || math.IsNaN(y) || math.IsInf(x, 0) || math.IsInf(y, 0) {
		return
	}
	v.state.PanX, v.state.PanY = x, y
	v.clampPan()
}

// SetScale sets the zoom, clamped into the limits
func (v *Viewport) SetScale(scale float64) {
	v.state.Scale = v.clamp(scale)
}

// ZoomAt multiplies the scale by factor, keeping the world point under the
// surface point fixed. It reports whether the scale changed.
func (v *Viewport) ZoomAt(at domain.Vec, factor float64) bool {
	if !(factor > 0) || math.IsInf(factor, 0) || !at.Finite() {
		return false
	}
	anchor := v.SurfaceToWorld(at)
	next := v.clamp(v.state.Scale * factor)
	if next == v.state.Scale {
		return false
	}
	v.state.Scale = next
	v.state.PanX = at.X/next - anchor.X
	v.state.PanY = at.Y/next - anchor.Y
	v.clampPan()
	return true
}

// Wheel applies one wheel tick: negative delta zooms in, positive zooms out.
func (v *Viewport) Wheel(delta float64, at domain.Vec) bool {
	switch {
	case delta < 0:
		return v.ZoomAt(at, v.limits.ZoomIn)
	case delta > 0:
		return v.ZoomAt(at, v.limits.ZoomOut)
	}
	return false
}

// clampPan limits the pan so the visible world range [-pan, surface/scale-pan]
// overlaps the world box on both axes
func (v *Viewport) clampPan() {
	if !v.bounded {
		return
	}
	s := v.state.Scale
	v.state.PanX = math.Min(math.Max(v.state.PanX, -v.world.Max.X), v.surface.X/s-v.world.Min.X)
	v.state.PanY = math.Min(math.Max(v.state.PanY, -v.world.Max.Y), v.surface.Y/s-v.world.Min.Y)
}

func (v *Viewport) clamp(scale float64) float64 {
	if math.IsNaN(scale) {
		return v.state.Scale
	}
	return math.Min(math.Max(scale, v.limits.MinScale), v.limits.MaxScale)
}
