package codec

import (
	"kgview/internal/domain"
)

// fileNode is the interchange shape of a node. Coordinates are optional; a
// node carrying both is loaded at that position.
type fileNode struct {
	ID         string            `json:"id" yaml:"id"`
	Label      string            `json:"label,omitempty" yaml:"label,omitempty"`
	Type       string            `json:"type,omitempty" yaml:"type,omitempty"`
	X          *float64          `json:"x,omitempty" yaml:"x,omitempty"`
	Y          *float64          `json:"y,omitempty" yaml:"y,omitempty"`
	Pinned     bool              `json:"pinned,omitempty" yaml:"pinned,omitempty"`
	Properties domain.Properties `json:"properties,omitempty" yaml:"-"`
}

type fileEdge struct {
	ID     string `json:"id,omitempty" yaml:"id,omitempty"`
	Source string `json:"source" yaml:"source"`
	Target string `json:"target" yaml:"target"`
	Label  string `json:"label,omitempty" yaml:"label,omitempty"`
	Type   string `json:"type,omitempty" yaml:"type,omitempty"`
}

func (n fileNode) toDomain() domain.Node {
	node := domain.Node{
		ID:         n.ID,
		Label:      n.Label,
		Type:       domain.NodeType(n.Type).Normalize(),
		Pinned:     n.Pinned,
		Properties: n.Properties,
	}
	if n.X != nil && n.Y != nil {
		node.Position = domain.Vec{X: *n.X, Y: *n.Y}
		node.Placed = node.Position.Finite()
	}
	return node
}

func fromNode(n domain.Node) fileNode {
	out := fileNode{
		ID:         n.ID,
		Label:      n.Label,
		Type:       string(n.Type),
		Pinned:     n.Pinned,
		Properties: n.Properties,
	}
	if n.Placed {
		x, y := n.Position.X, n.Position.Y
		out.X, out.Y = &x, &y
	}
	return out
}

func (e fileEdge) toDomain() domain.Edge {
	t := domain.EdgeType(e.Type).Normalize()
	id := e.ID
	if id == "" {
		id = domain.NewEdge(e.Source, e.Target, t).ID
	}
	return domain.Edge{
		ID:     id,
		Source: e.Source,
		Target: e.Target,
		Label:  e.Label,
		Type:   t,
	}
}

func fromEdge(e domain.Edge) fileEdge {
	return fileEdge{
		ID:     e.ID,
		Source: e.Source,
		Target: e.Target,
		Label:  e.Label,
		Type:   string(e.Type),
	}
}
