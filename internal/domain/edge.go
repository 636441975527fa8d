package domain

// EdgeType represents the kind of relationship between two nodes
type EdgeType string

const (
	EdgeTypeBelongsTo  EdgeType = "belongs_to"
	EdgeTypeRelatedTo  EdgeType = "related_to"
	EdgeTypeCauses     EdgeType = "causes"
	EdgeTypeContains   EdgeType = "contains"
	EdgeTypeInstanceOf EdgeType = "instance_of"
)

// Valid reports whether t is a known edge type
func (t EdgeType) Valid() bool {
	switch t {
	case EdgeTypeBelongsTo, EdgeTypeRelatedTo, EdgeTypeCauses, EdgeTypeContains, EdgeTypeInstanceOf:
		return true
	}
	return false
}

// Normalize maps unknown edge types to related_to
func (t EdgeType) Normalize() EdgeType {
	if t.Valid() {
		return t
	}
	return EdgeTypeRelatedTo
}

// Edge is a directed relationship from Source to Target
type Edge struct {
	ID     string   `json:"id"`
	Source string   `json:"source"`
	Target string   `json:"target"`
	Label  string   `json:"label,omitempty"`
	Type   EdgeType `json:"type"`
}

// NewEdge creates an edge with id derived from its endpoints and type
func NewEdge(source, target string, edgeType EdgeType) *Edge {
	t := edgeType.Normalize()
	return &Edge{
		ID:     source + "-" + string(t) + "-" + target,
		Source: source,
		Target: target,
		Type:   t,
	}
}

// Touches reports whether the edge has id as either endpoint
func (e *Edge) Touches(id string) bool {
	return e.Source == id || e.Target == id
}
