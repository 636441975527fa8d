// Package physics advances node kinematics one tick at a time using pairwise
// repulsion, linear edge springs and a weak pull toward the canvas center.
//
// The simulator is a pure step function over the node slice it is handed. It
// has no notion of convergence: callers run it every frame while live layout
// is enabled and simply stop calling it to freeze the layout.
package physics

import (
	"math"

	"github.com/quartercastle/vector"

	"kgview/internal/domain"
)

// Params holds the force constants and world geometry
type Params struct {
	Repulsion  float64     // K_repel, force = Repulsion / dist²
	Attraction float64     // K_attract, spring constant along edges
	Centering  float64     // pull toward Center per unit of offset
	Damping    float64     // velocity multiplier per tick, in (0,1)
	Epsilon    float64     // minimum pair distance
	MaxSpeed   float64     // per-tick speed cap, 0 disables
	Bounds     domain.Rect // world bounding box
	Center     domain.Vec  // canvas center
}

// DefaultParams returns the constants used by the console
func DefaultParams() Params {
	bounds := domain.Rect{
		Min: domain.Vec{X: 20, Y: 20},
		Max: domain.Vec{X: 1180, Y: 780},
	}
	return Params{
		Repulsion:  1000,
		Attraction: 0.01,
		Centering:  0.002,
		Damping:    0.9,
		Epsilon:    1.0,
		MaxSpeed:   50,
		Bounds:     bounds,
		Center:     bounds.Center(),
	}
}

// Normalize replaces out-of-range values with defaults
func (p Params) Normalize() Params {
	d := DefaultParams()
	if p.Repulsion < 0 || !finite(p.Repulsion) {
		p.Repulsion = d.Repulsion
	}
	if p.Attraction < 0 || !finite(p.Attraction) {
		p.Attraction = d.Attraction
	}
	if p.Centering < 0 || !finite(p.Centering) {
		p.Centering = d.Centering
	}
	if p.Damping <= 0 || p.Damping >= 1 || !finite(p.Damping) {
		p.Damping = d.Damping
	}
	if p.Epsilon <= 0 || !finite(p.Epsilon) {
		p.Epsilon = d.Epsilon
	}
	if p.MaxSpeed < 0 || !finite(p.MaxSpeed) {
		p.MaxSpeed = 0
	}
	if p.Bounds.Max.X <= p.Bounds.Min.X || p.Bounds.Max.Y <= p.Bounds.Min.Y {
		p.Bounds = d.Bounds
	}
	if !p.Bounds.Contains(p.Center) {
		p.Center = p.Bounds.Center()
	}
	return p
}

// Simulator steps node kinematics
type Simulator struct {
	params Params
	forces []vector.Vector
}

// New creates a simulator with normalized params
func New(params Params) *Simulator {
	return &Simulator{params: params.Normalize()}
}

// Params returns the active constants
func (s *Simulator) Params() Params { return s.params }

// Step advances every node by one tick. Pinned nodes exert and receive forces
// but are not integrated. Positions always end inside Bounds.
func (s *Simulator) Step(nodes []*domain.Node, links []domain.Link) {
	n := len(nodes)
	if n == 0 {
		return
	}
	p := s.params

	if cap(s.forces) < n {
		s.forces = make([]vector.Vector, n)
	}
	forces := s.forces[:n]
	for i := range forces {
		forces[i] = vector.Vector{0, 0}
	}

	// Repulsion, O(n²) over unordered pairs.
	for i := 0; i < n; i++ {
		a := vec(nodes[i].Position)
		for j := i + 1; j < n; j++ {
			d := vec(nodes[j].Position).Sub(a)
			length := d.Magnitude()
			var dir vector.Vector
			if length < 1e-9 {
				dir = separation(i, j)
			} else {
				dir = d.Scale(1 / length)
			}
			dist := math.Max(length, p.Epsilon)
			f := dir.Scale(p.Repulsion / (dist * dist))
			forces[j] = forces[j].Add(f)
			forces[i] = forces[i].Sub(f)
		}
	}

	// Attraction along edges, a spring with zero rest length.
	for _, l := range links {
		if l.Source == l.Target || l.Source < 0 || l.Target < 0 || l.Source >= n || l.Target >= n {
			continue
		}
		d := vec(nodes[l.Target].Position).Sub(vec(nodes[l.Source].Position))
		f := d.Scale(p.Attraction)
		forces[l.Source] = forces[l.Source].Add(f)
		forces[l.Target] = forces[l.Target].Sub(f)
	}

	// Centering.
	center := vec(p.Center)
	for i, node := range nodes {
		pull := center.Sub(vec(node.Position)).Scale(p.Centering)
		forces[i] = forces[i].Add(pull)
	}

	for i, node := range nodes {
		if node.Pinned {
			node.Velocity = domain.Vec{}
			node.Position = p.Bounds.Clamp(node.Position)
			continue
		}
		v := vec(node.Velocity).Add(forces[i]).Scale(p.Damping)
		if p.MaxSpeed > 0 {
			if speed := v.Magnitude(); speed > p.MaxSpeed {
				v = v.Scale(p.MaxSpeed / speed)
			}
		}
		vel := domain.Vec{X: v.X(), Y: v.Y()}
		if !vel.Finite() {
			vel = domain.Vec{}
		}
		node.Velocity = vel
		node.Position = s.integrate(node.Position, &node.Velocity)
	}
}

// integrate moves pos by vel and clamps into the bounding box, zeroing any
// velocity component that pushed past a wall.
func (s *Simulator) integrate(pos domain.Vec, vel *domain.Vec) domain.Vec {
	b := s.params.Bounds
	next := pos.Add(*vel)
	clamped := b.Clamp(next)
	if clamped.X != next.X {
		vel.X = 0
	}
	if clamped.Y != next.Y {
		vel.Y = 0
	}
	return clamped
}

// Energy returns the summed squared speed of all nodes
func Energy(nodes []*domain.Node) float64 {
	var e float64
	for _, n := range nodes {
		e += n.Velocity.X*n.Velocity.X + n.Velocity.Y*n.Velocity.Y
	}
	return e
}

// separation picks a deterministic unit direction for exactly coincident nodes
func separation(i, j int) vector.Vector {
	angle := float64(i*31+j*17) * (math.Pi * (3 - math.Sqrt(5)))
	return vector.Vector{math.Cos(angle), math.Sin(angle)}
}

func vec(v domain.Vec) vector.Vector {
	return vector.Vector{v.X, v.Y}
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
