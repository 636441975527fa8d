package domain

import (
	"errors"
	"testing"
)

func fixedSeed(p Vec) func() Vec {
	return func() Vec { return p }
}

func testSnapshot() Snapshot {
	return Snapshot{
		Nodes: []Node{
			{ID: "pump", Label: "Pump", Type: NodeTypeEquipment},
			{ID: "seal", Label: "Seal wear", Type: NodeTypeFault},
			{ID: "manual", Label: "Manual", Type: NodeTypeDocument},
		},
		Edges: []Edge{
			{ID: "e1", Source: "seal", Target: "pump", Type: EdgeTypeBelongsTo},
			{ID: "e2", Source: "manual", Target: "pump", Type: EdgeTypeRelatedTo},
		},
	}
}

func TestGraphLoad(t *testing.T) {
	t.Run("new nodes are seeded at rest", func(t *testing.T) {
		g := NewGraph()
		g.Load(testSnapshot(), fixedSeed(Vec{5, 5}))

		if g.Len() != 3 {
			t.Fatalf("expected 3 nodes, got %d", g.Len())
		}
		n, _ := g.Node("pump")
		if n.Position != (Vec{5, 5}) {
			t.Errorf("expected seeded position, got %v", n.Position)
		}
		if n.Velocity != (Vec{}) {
			t.Errorf("expected zero velocity, got %v", n.Velocity)
		}
	})

	t.Run("existing ids keep kinematic state", func(t *testing.T) {
		g := NewGraph()
		g.Load(testSnapshot(), fixedSeed(Vec{5, 5}))
		n, _ := g.Node("pump")
		n.Position = Vec{42, 43}
		n.Velocity = Vec{1, -1}

		snap := testSnapshot()
		snap.Nodes = append(snap.Nodes, Node{ID: "new", Type: NodeTypeConcept})
		g.Load(snap, fixedSeed(Vec{7, 7}))

		n, _ = g.Node("pump")
		if n.Position != (Vec{42, 43}) || n.Velocity != (Vec{1, -1}) {
			t.Errorf("expected preserved state, got pos=%v vel=%v", n.Position, n.Velocity)
		}
		fresh, _ := g.Node("new")
		if fresh.Position != (Vec{7, 7}) {
			t.Errorf("expected new node seeded, got %v", fresh.Position)
		}
	})

	t.Run("placed nodes keep incoming position", func(t *testing.T) {
		snap := testSnapshot()
		snap.Nodes[0].Position = Vec{100, 200}
		snap.Nodes[0].Velocity = Vec{9, 9}
		snap.Nodes[0].Placed = true

		g := NewGraph()
		g.Load(snap, fixedSeed(Vec{5, 5}))
		n, _ := g.Node("pump")
		if n.Position != (Vec{100, 200}) {
			t.Errorf("expected stored position, got %v", n.Position)
		}
		if n.Velocity != (Vec{}) {
			t.Errorf("expected zero velocity for new node, got %v", n.Velocity)
		}
	})

	t.Run("drops nodes with missing or repeated ids", func(t *testing.T) {
		snap := testSnapshot()
		snap.Nodes = append(snap.Nodes, Node{ID: ""}, Node{ID: "pump", Label: "dup"})
		g := NewGraph()
		g.Load(snap, fixedSeed(Vec{}))
		if g.Len() != 3 {
			t.Errorf("expected 3 nodes, got %d", g.Len())
		}
		n, _ := g.Node("pump")
		if n.Label != "Pump" {
			t.Errorf("expected first occurrence to win, got %s", n.Label)
		}
	})

	t.Run("keeps dangling edges but skips them in links", func(t *testing.T) {
		snap := testSnapshot()
		snap.Edges = append(snap.Edges, Edge{ID: "ghost", Source: "pump", Target: "nowhere"})
		g := NewGraph()
		g.Load(snap, fixedSeed(Vec{}))

		if len(g.Edges()) != 3 {
			t.Errorf("expected 3 stored edges, got %d", len(g.Edges()))
		}
		if len(g.Links()) != 2 {
			t.Errorf("expected 2 resolved links, got %d", len(g.Links()))
		}
		if st := g.Stats(); st.DanglingEdges != 1 {
			t.Errorf("expected 1 dangling edge, got %d", st.DanglingEdges)
		}
	})

	t.Run("removed nodes are not resurrected", func(t *testing.T) {
		g := NewGraph()
		g.Load(testSnapshot(), fixedSeed(Vec{5, 5}))
		n, _ := g.Node("seal")
		n.Position = Vec{300, 300}

		g.Load(Snapshot{Nodes: []Node{{ID: "pump"}}}, fixedSeed(Vec{5, 5}))
		g.Load(testSnapshot(), fixedSeed(Vec{6, 6}))

		n, _ = g.Node("seal")
		if n.Position != (Vec{6, 6}) {
			t.Errorf("expected fresh node after removal, got %v", n.Position)
		}
	})
}

func TestGraphAddNode(t *testing.T) {
	g := NewGraph()
	g.Load(testSnapshot(), fixedSeed(Vec{}))

	t.Run("rejects empty id", func(t *testing.T) {
		err := g.AddNode(Node{}, fixedSeed(Vec{}))
		if !errors.Is(err, ErrInvalidNode) {
			t.Errorf("expected ErrInvalidNode, got %v", err)
		}
	})

	t.Run("rejects duplicate id", func(t *testing.T) {
		err := g.AddNode(Node{ID: "pump"}, fixedSeed(Vec{}))
		if !errors.Is(err, ErrDuplicateNode) {
			t.Errorf("expected ErrDuplicateNode, got %v", err)
		}
	})

	t.Run("adds node with normalized type", func(t *testing.T) {
		err := g.AddNode(Node{ID: "x", Type: "weird", Velocity: Vec{3, 3}}, fixedSeed(Vec{1, 2}))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		n, ok := g.Node("x")
		if !ok {
			t.Fatal("expected node to exist")
		}
		if n.Type != NodeTypeEntity || n.Position != (Vec{1, 2}) || n.Velocity != (Vec{}) {
			t.Errorf("unexpected node state %+v", n)
		}
	})
}

func TestGraphRemoveNode(t *testing.T) {
	g := NewGraph()
	g.Load(testSnapshot(), fixedSeed(Vec{}))

	removed, err := g.RemoveNode("pump")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(removed) != 2 {
		t.Errorf("expected 2 cascaded edges, got %v", removed)
	}

	for _, e := range g.Snapshot().Edges {
		if e.Touches("pump") {
			t.Errorf("edge %s still references removed node", e.ID)
		}
	}

	t.Run("index stays consistent", func(t *testing.T) {
		for i, n := range g.Nodes() {
			got, ok := g.Node(n.ID)
			if !ok || got != g.Nodes()[i] {
				t.Errorf("index mismatch for %s", n.ID)
			}
		}
	})

	t.Run("missing node", func(t *testing.T) {
		if _, err := g.RemoveNode("pump"); !errors.Is(err, ErrNodeNotFound) {
			t.Errorf("expected ErrNodeNotFound, got %v", err)
		}
	})
}

func TestGraphEdges(t *testing.T) {
	g := NewGraph()
	g.Load(testSnapshot(), fixedSeed(Vec{}))

	t.Run("rejects dangling endpoints", func(t *testing.T) {
		err := g.AddEdge(Edge{ID: "bad", Source: "pump", Target: "nowhere"})
		if !errors.Is(err, ErrDanglingEdge) {
			t.Errorf("expected ErrDanglingEdge, got %v", err)
		}
	})

	t.Run("rejects duplicate id", func(t *testing.T) {
		err := g.AddEdge(Edge{ID: "e1", Source: "pump", Target: "seal"})
		if !errors.Is(err, ErrDuplicateEdge) {
			t.Errorf("expected ErrDuplicateEdge, got %v", err)
		}
	})

	t.Run("add and remove", func(t *testing.T) {
		if err := g.AddEdge(Edge{ID: "e3", Source: "pump", Target: "seal", Type: EdgeTypeContains}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(g.Links()) != 3 {
			t.Errorf("expected 3 links, got %d", len(g.Links()))
		}
		if err := g.RemoveEdge("e1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := g.RemoveEdge("e1"); !errors.Is(err, ErrEdgeNotFound) {
			t.Errorf("expected ErrEdgeNotFound, got %v", err)
		}
		if err := g.RemoveEdge("e3"); err != nil {
			t.Errorf("expected e3 to be found after reindex, got %v", err)
		}
	})
}

func TestGraphSnapshotIsDetached(t *testing.T) {
	g := NewGraph()
	g.Load(testSnapshot(), fixedSeed(Vec{}))

	snap := g.Snapshot()
	snap.Nodes[0].Position = Vec{999, 999}
	snap.Nodes[0].Properties.Set("k", "v")

	n, _ := g.Node(snap.Nodes[0].ID)
	if n.Position == (Vec{999, 999}) {
		t.Error("snapshot mutation leaked into graph")
	}
	if len(n.Properties) != 0 {
		t.Error("snapshot property mutation leaked into graph")
	}
}

func TestGraphStats(t *testing.T) {
	g := NewGraph()
	g.Load(testSnapshot(), fixedSeed(Vec{}))

	st := g.Stats()
	if st.Nodes != 3 || st.Edges != 2 {
		t.Errorf("unexpected counts %+v", st)
	}
	if st.NodesByType[NodeTypeEquipment] != 1 || st.NodesByType[NodeTypeFault] != 1 {
		t.Errorf("unexpected type counts %v", st.NodesByType)
	}
	if st.EdgesByType[EdgeTypeBelongsTo] != 1 {
		t.Errorf("unexpected edge type counts %v", st.EdgesByType)
	}
}
