package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kgview/internal/domain"
	"kgview/internal/repository"
)

// ============================================================================
// Test Helpers
// ============================================================================

// newTestStore creates an in-memory SQLite store for testing
func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func placed(id string, typ domain.NodeType, x, y float64) domain.Node {
	return domain.Node{ID: id, Label: id, Type: typ, Position: domain.Vec{X: x, Y: y}, Placed: true}
}

func sampleSnapshot() *domain.Snapshot {
	pump := placed("pump-1", domain.NodeTypeEquipment, 100, 200)
	pump.Properties = domain.Properties{{Key: "vendor", Value: "Acme"}, {Key: "model", Value: "P-100"}}
	seal := domain.Node{ID: "seal-leak", Label: "Seal leak", Type: domain.NodeTypeFault}
	return &domain.Snapshot{
		Nodes: []domain.Node{pump, seal},
		Edges: []domain.Edge{
			{ID: "e1", Source: "seal-leak", Target: "pump-1", Label: "affects", Type: domain.EdgeTypeRelatedTo},
			{ID: "dangling", Source: "pump-1", Target: "ghost", Type: domain.EdgeTypeCauses},
		},
	}
}

// ============================================================================
// Helper Function Tests
// ============================================================================

func TestNullConversions(t *testing.T) {
	assert.Equal(t, "", nullToString(sql.NullString{}))
	assert.Equal(t, "x", nullToString(sql.NullString{String: "x", Valid: true}))
	assert.False(t, stringToNull("").Valid)
	assert.Equal(t, sql.NullString{String: "y", Valid: true}, stringToNull("y"))
	assert.Equal(t, 1, boolToInt(true))
	assert.Equal(t, 0, boolToInt(false))
}

func TestPropertiesColumn(t *testing.T) {
	ns, err := marshalProperties(nil)
	require.NoError(t, err)
	assert.False(t, ns.Valid, "empty properties stored as NULL")

	in := domain.Properties{{Key: "z", Value: "1"}, {Key: "a", Value: "2"}}
	ns, err = marshalProperties(in)
	require.NoError(t, err)
	assert.Equal(t, `{"z":"1","a":"2"}`, ns.String)

	out, err := unmarshalProperties(ns)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	_, err = unmarshalProperties(sql.NullString{String: "[", Valid: true})
	assert.Error(t, err)
}

// ============================================================================
// Store Tests
// ============================================================================

func TestEmptyStore(t *testing.T) {
	s := newTestStore(t)
	snap, err := s.LoadSnapshot(context.Background())
	require.NoError(t, err)
	assert.Empty(t, snap.Nodes)
	assert.Empty(t, snap.Edges)
}

func TestReplaceAndLoadSnapshot(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	want := sampleSnapshot()
	require.NoError(t, s.ReplaceSnapshot(ctx, want))

	got, err := s.LoadSnapshot(ctx)
	require.NoError(t, err)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
	}

	// Replacing drops everything that was there before.
	next := &domain.Snapshot{Nodes: []domain.Node{placed("only", domain.NodeTypeConcept, 1, 2)}}
	require.NoError(t, s.ReplaceSnapshot(ctx, next))
	got, err = s.LoadSnapshot(ctx)
	require.NoError(t, err)
	require.Len(t, got.Nodes, 1)
	assert.Equal(t, "only", got.Nodes[0].ID)
	assert.Empty(t, got.Edges)
}

func TestUnplacedNodeLoadsUnplaced(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.UpsertNode(ctx, &domain.Node{ID: "a", Type: domain.NodeTypeEntity, Position: domain.Vec{X: 5, Y: 5}}))

	snap, err := s.LoadSnapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Nodes, 1)
	assert.False(t, snap.Nodes[0].Placed)
	assert.Equal(t, domain.Vec{}, snap.Nodes[0].Position)
}

func TestUpsertNode(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	n := placed("a", domain.NodeTypeConcept, 10, 20)
	require.NoError(t, s.UpsertNode(ctx, &n))

	t.Run("update keeps position when unplaced", func(t *testing.T) {
		upd := domain.Node{ID: "a", Label: "renamed", Type: domain.NodeTypeDocument}
		require.NoError(t, s.UpsertNode(ctx, &upd))

		snap, err := s.LoadSnapshot(ctx)
		require.NoError(t, err)
		require.Len(t, snap.Nodes, 1)
		got := snap.Nodes[0]
		assert.Equal(t, "renamed", got.Label)
		assert.Equal(t, domain.NodeTypeDocument, got.Type)
		assert.True(t, got.Placed)
		assert.Equal(t, domain.Vec{X: 10, Y: 20}, got.Position)
	})

	t.Run("unknown type is normalized", func(t *testing.T) {
		odd := domain.Node{ID: "b", Type: "widget"}
		require.NoError(t, s.UpsertNode(ctx, &odd))
		snap, err := s.LoadSnapshot(ctx)
		require.NoError(t, err)
		b, ok := snap.Node("b")
		require.True(t, ok)
		assert.Equal(t, domain.NodeTypeEntity, b.Type)
	})

	t.Run("empty id rejected", func(t *testing.T) {
		err := s.UpsertNode(ctx, &domain.Node{})
		assert.True(t, errors.Is(err, domain.ErrInvalidNode))
	})
}

func TestDeleteNodeCascades(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.ReplaceSnapshot(ctx, sampleSnapshot()))
	require.NoError(t, s.UpsertEdge(ctx, &domain.Edge{ID: "other", Source: "x", Target: "y", Type: domain.EdgeTypeContains}))

	require.NoError(t, s.DeleteNode(ctx, "pump-1"))

	snap, err := s.LoadSnapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Nodes, 1)
	assert.Equal(t, "seal-leak", snap.Nodes[0].ID)
	require.Len(t, snap.Edges, 1)
	assert.Equal(t, "other", snap.Edges[0].ID)

	err = s.DeleteNode(ctx, "pump-1")
	assert.True(t, errors.Is(err, repository.ErrNotFound))
}

func TestEdges(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	e := domain.Edge{ID: "e", Source: "a", Target: "b", Type: "bogus"}
	require.NoError(t, s.UpsertEdge(ctx, &e))
	e.Label = "now labelled"
	require.NoError(t, s.UpsertEdge(ctx, &e))

	snap, err := s.LoadSnapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Edges, 1)
	assert.Equal(t, domain.Edge{ID: "e", Source: "a", Target: "b", Label: "now labelled", Type: domain.EdgeTypeRelatedTo}, snap.Edges[0])

	require.NoError(t, s.DeleteEdge(ctx, "e"))
	assert.True(t, errors.Is(s.DeleteEdge(ctx, "e"), repository.ErrNotFound))
	assert.Error(t, s.UpsertEdge(ctx, &domain.Edge{}))
}

func TestSavePositions(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.ReplaceSnapshot(ctx, sampleSnapshot()))

	moved := []domain.Node{
		{ID: "pump-1", Position: domain.Vec{X: 300, Y: 400}, Pinned: true},
		{ID: "seal-leak", Position: domain.Vec{X: 50, Y: 60}},
		{ID: "ghost", Position: domain.Vec{X: 1, Y: 1}},
	}
	require.NoError(t, s.SavePositions(ctx, moved))

	snap, err := s.LoadSnapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Nodes, 2, "unknown ids are not inserted")

	pump, _ := snap.Node("pump-1")
	assert.Equal(t, domain.Vec{X: 300, Y: 400}, pump.Position)
	assert.True(t, pump.Pinned)
	assert.Equal(t, "Acme", func() string { v, _ := pump.Properties.Get("vendor"); return v }())

	seal, _ := snap.Node("seal-leak")
	assert.True(t, seal.Placed)
	assert.False(t, seal.Pinned)
	assert.Equal(t, domain.Vec{X: 50, Y: 60}, seal.Position)
}

func TestFileDatabasePersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "graph.db")

	s, err := New(path)
	require.NoError(t, err)
	require.NoError(t, s.ReplaceSnapshot(ctx, sampleSnapshot()))
	require.NoError(t, s.Close())

	s, err = New(path)
	require.NoError(t, err)
	defer s.Close()

	snap, err := s.LoadSnapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, snap.Nodes, 2)
	assert.Len(t, snap.Edges, 2)
}

func TestContextCancelled(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.LoadSnapshot(ctx)
	assert.Error(t, err)
}
