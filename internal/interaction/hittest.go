package interaction

import (
	"kgview/internal/domain"
	"kgview/internal/viewport"
)

// HitTester finds the node under a surface point. Radius is in world units
// so the selectable area grows and shrinks with the drawn node.
type HitTester struct {
	Radius float64
}

// Hit returns the node closest to the surface point among those within
// Radius. Equal distances resolve to the lowest id.
func (h HitTester) Hit(nodes []*domain.Node, view viewport.State, surface domain.Vec) (*domain.Node, bool) {
	if len(nodes) == 0 || !surface.Finite() || !(view.Scale > 0) {
		return nil, false
	}
	p := view.SurfaceToWorld(surface)
	limit := h.Radius * h.Radius

	var best *domain.Node
	bestDist := 0.0
	for _, n := range nodes {
		d := n.Position.Sub(p)
		dist := d.X*d.X + d.Y*d.Y
		if dist > limit {
			continue
		}
		if best == nil || dist < bestDist || (dist == bestDist && n.ID < best.ID) {
			best, bestDist = n, dist
		}
	}
	return best, best != nil
}
