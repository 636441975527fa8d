package domain

import (
	"errors"
	"fmt"
	"sort"
)

var (
	ErrInvalidNode   = errors.New("invalid node")
	ErrInvalidEdge   = errors.New("invalid edge")
	ErrDuplicateNode = errors.New("duplicate node id")
	ErrDuplicateEdge = errors.New("duplicate edge id")
	ErrNodeNotFound  = errors.New("node not found")
	ErrEdgeNotFound  = errors.New("edge not found")
	ErrDanglingEdge  = errors.New("edge references missing node")
)

// Snapshot is a detached copy of the graph contents
type Snapshot struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Node returns the node with the given id
func (s Snapshot) Node(id string) (Node, bool) {
	for _, n := range s.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// Link is an edge whose endpoints resolved to node indices
type Link struct {
	Edge   *Edge
	Source int
	Target int
}

// Stats summarizes the graph for statistics panels
type Stats struct {
	Nodes         int              `json:"nodes"`
	NodesByType   map[NodeType]int `json:"nodes_by_type"`
	Edges         int              `json:"edges"`
	EdgesByType   map[EdgeType]int `json:"edges_by_type"`
	DanglingEdges int              `json:"dangling_edges"`
}

// Graph owns the live node/edge collections and their id index.
// It is not safe for concurrent use.
type Graph struct {
	nodes   []*Node
	edges   []*Edge
	nodeIdx map[string]int
	edgeIdx map[string]int
}

// NewGraph creates an empty graph
func NewGraph() *Graph {
	return &Graph{
		nodeIdx: make(map[string]int),
		edgeIdx: make(map[string]int),
	}
}

// Load replaces the graph contents with s. Nodes whose id already exists keep
// their position and velocity. New nodes use their incoming position when
// Placed and seed() otherwise; they always start at rest. Nodes with empty or
// repeated ids and edges with empty or repeated ids are dropped.
func (g *Graph) Load(s Snapshot, seed func() Vec) {
	old := g.nodeIdx
	oldNodes := g.nodes

	g.nodes = make([]*Node, 0, len(s.Nodes))
	g.edges = make([]*Edge, 0, len(s.Edges))
	g.nodeIdx = make(map[string]int, len(s.Nodes))
	g.edgeIdx = make(map[string]int, len(s.Edges))

	for i := range s.Nodes {
		n := s.Nodes[i].Clone()
		if n.ID == "" {
			continue
		}
		if _, dup := g.nodeIdx[n.ID]; dup {
			continue
		}
		n.Type = n.Type.Normalize()

		if idx, ok := old[n.ID]; ok {
			prev := oldNodes[idx]
			n.Position = prev.Position
			n.Velocity = prev.Velocity
			n.Placed = true
		} else {
			if !n.Placed || !n.Position.Finite() {
				n.Position = seed()
				n.Placed = true
			}
			n.Velocity = Vec{}
		}

		g.nodeIdx[n.ID] = len(g.nodes)
		g.nodes = append(g.nodes, &n)
	}

	for i := range s.Edges {
		e := s.Edges[i]
		if e.ID == "" {
			continue
		}
		if _, dup := g.edgeIdx[e.ID]; dup {
			continue
		}
		e.Type = e.Type.Normalize()
		g.edgeIdx[e.ID] = len(g.edges)
		g.edges = append(g.edges, &e)
	}
}

// AddNode inserts a new node. A node without Placed gets seed() as position.
func (g *Graph) AddNode(n Node, seed func() Vec) error {
	if n.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidNode)
	}
	if _, ok := g.nodeIdx[n.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateNode, n.ID)
	}

	c := n.Clone()
	c.Type = c.Type.Normalize()
	if !c.Placed || !c.Position.Finite() {
		c.Position = seed()
		c.Placed = true
	}
	c.Velocity = Vec{}

	g.nodeIdx[c.ID] = len(g.nodes)
	g.nodes = append(g.nodes, &c)
	return nil
}

// RemoveNode deletes the node and every edge touching it. It returns the ids
// of the removed edges.
func (g *Graph) RemoveNode(id string) ([]string, error) {
	idx, ok := g.nodeIdx[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}

	g.nodes = append(g.nodes[:idx], g.nodes[idx+1:]...)
	delete(g.nodeIdx, id)
	for i := idx; i < len(g.nodes); i++ {
		g.nodeIdx[g.nodes[i].ID] = i
	}

	var removed []string
	kept := g.edges[:0]
	for _, e := range g.edges {
		if e.Touches(id) {
			removed = append(removed, e.ID)
			continue
		}
		kept = append(kept, e)
	}
	for i := len(kept); i < len(g.edges); i++ {
		g.edges[i] = nil
	}
	g.edges = kept
	g.reindexEdges()

	return removed, nil
}

// AddEdge inserts an edge between two existing nodes
func (g *Graph) AddEdge(e Edge) error {
	if e.ID == "" || e.Source == "" || e.Target == "" {
		return fmt.Errorf("%w: id, source and target are required", ErrInvalidEdge)
	}
	if _, ok := g.edgeIdx[e.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateEdge, e.ID)
	}
	if _, ok := g.nodeIdx[e.Source]; !ok {
		return fmt.Errorf("%w: source %s", ErrDanglingEdge, e.Source)
	}
	if _, ok := g.nodeIdx[e.Target]; !ok {
		return fmt.Errorf("%w: target %s", ErrDanglingEdge, e.Target)
	}

	e.Type = e.Type.Normalize()
	g.edgeIdx[e.ID] = len(g.edges)
	g.edges = append(g.edges, &e)
	return nil
}

// RemoveEdge deletes a single edge
func (g *Graph) RemoveEdge(id string) error {
	idx, ok := g.edgeIdx[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrEdgeNotFound, id)
	}
	g.edges = append(g.edges[:idx], g.edges[idx+1:]...)
	delete(g.edgeIdx, id)
	g.reindexEdges()
	return nil
}

func (g *Graph) reindexEdges() {
	clear(g.edgeIdx)
	for i, e := range g.edges {
		g.edgeIdx[e.ID] = i
	}
}

// Node returns the live node with the given id
func (g *Graph) Node(id string) (*Node, bool) {
	idx, ok := g.nodeIdx[id]
	if !ok {
		return nil, false
	}
	return g.nodes[idx], true
}

// HasNode reports whether id is present
func (g *Graph) HasNode(id string) bool {
	_, ok := g.nodeIdx[id]
	return ok
}

// Nodes returns the live node slice. Callers must not retain it across
// mutations.
func (g *Graph) Nodes() []*Node { return g.nodes }

// Edges returns the live edge slice, dangling edges included
func (g *Graph) Edges() []*Edge { return g.edges }

// Len returns the number of nodes
func (g *Graph) Len() int { return len(g.nodes) }

// Links resolves edges to node indices. Edges with a missing endpoint are
// skipped silently since the data layer may be mid-edit.
func (g *Graph) Links() []Link {
	links := make([]Link, 0, len(g.edges))
	for _, e := range g.edges {
		s, okS := g.nodeIdx[e.Source]
		t, okT := g.nodeIdx[e.Target]
		if !okS || !okT {
			continue
		}
		links = append(links, Link{Edge: e, Source: s, Target: t})
	}
	return links
}

// Snapshot returns a deep copy of the current contents
func (g *Graph) Snapshot() Snapshot {
	s := Snapshot{
		Nodes: make([]Node, 0, len(g.nodes)),
		Edges: make([]Edge, 0, len(g.edges)),
	}
	for _, n := range g.nodes {
		s.Nodes = append(s.Nodes, n.Clone())
	}
	for _, e := range g.edges {
		s.Edges = append(s.Edges, *e)
	}
	return s
}

// Stats counts nodes by type and resolvable edges
func (g *Graph) Stats() Stats {
	st := Stats{
		Nodes:       len(g.nodes),
		NodesByType: make(map[NodeType]int),
		EdgesByType: make(map[EdgeType]int),
	}
	for _, n := range g.nodes {
		st.NodesByType[n.Type]++
	}
	for _, l := range g.Links() {
		st.Edges++
		st.EdgesByType[l.Edge.Type]++
	}
	st.DanglingEdges = len(g.edges) - st.Edges
	return st
}

// IDs returns the node ids in sorted order
func (g *Graph) IDs() []string {
	ids := make([]string, 0, len(g.nodes))
	for _, n := range g.nodes {
		ids = append(ids, n.ID)
	}
	sort.Strings(ids)
	return ids
}
