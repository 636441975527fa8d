package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"kgview/internal/codec"
	"kgview/internal/domain"
	"kgview/internal/engine"
	"kgview/internal/repository"
)

// ErrMalformedSnapshot wraps parse failures of imported snapshots
var ErrMalformedSnapshot = errors.New("malformed snapshot")

// GraphService provides business logic for graph operations
type GraphService struct {
	mu       sync.Mutex
	store    repository.Store
	engine   *engine.Engine
	eventBus *EventBus
	log      *zap.Logger

	saved    bool
	savedSeq uint64
}

// NewGraphService creates a new graph service and subscribes it to the
// engine's selection and user-edit notifications.
func NewGraphService(store repository.Store, eng *engine.Engine, eventBus *EventBus, log *zap.Logger) *GraphService {
	if log == nil {
		log = zap.NewNop()
	}
	s := &GraphService{
		store:    store,
		engine:   eng,
		eventBus: eventBus,
		log:      log,
	}
	eng.OnSelectionChange(s.selectionChanged)
	eng.OnGraphChange(func(domain.Snapshot) {
		if err := s.CommitLayout(context.Background()); err != nil {
			s.log.Error("failed to commit layout", zap.Error(err))
		}
	})
	return s
}

// Engine returns the engine the service drives
func (s *GraphService) Engine() *engine.Engine { return s.engine }

// Bootstrap loads the stored graph into the engine. When the store is empty
// and seedPath is set, the snapshot file is imported instead. A missing seed
// file leaves the graph empty.
func (s *GraphService) Bootstrap(ctx context.Context, seedPath string) error {
	snap, err := s.store.LoadSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("load stored graph: %w", err)
	}

	if len(snap.Nodes) == 0 && seedPath != "" {
		_, err := s.ImportFile(ctx, seedPath)
		if err == nil {
			return nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		s.log.Warn("snapshot file not found, starting empty", zap.String("path", seedPath))
	}

	s.engine.LoadGraph(*snap)
	s.log.Info("graph loaded from store",
		zap.Int("nodes", len(snap.Nodes)),
		zap.Int("edges", len(snap.Edges)))
	s.eventBus.Publish(Event{
		Type:    EventGraphLoaded,
		Payload: &ImportResult{Source: "store", Nodes: len(snap.Nodes), Edges: len(snap.Edges)},
	})
	return nil
}

// CreateNode adds a node to the live graph and persists it with the position
// the engine assigned.
func (s *GraphService) CreateNode(ctx context.Context, node *domain.Node) (*domain.Node, error) {
	if err := s.validateNode(node); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.engine.AddNode(*node); err != nil {
		return nil, err
	}
	stored, ok := s.engine.Snapshot().Node(node.ID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrNodeNotFound, node.ID)
	}
	if err := s.store.UpsertNode(ctx, &stored); err != nil {
		if _, rerr := s.engine.RemoveNode(node.ID); rerr != nil {
			s.log.Error("failed to roll back node", zap.String("node_id", node.ID), zap.Error(rerr))
		}
		return nil, err
	}

	s.eventBus.Publish(Event{
		Type:    EventNodeCreated,
		Payload: map[string]string{"node_id": stored.ID, "type": string(stored.Type)},
	})
	return &stored, nil
}

// DeleteNode removes a node and its edges
func (s *GraphService) DeleteNode(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := s.engine.Snapshot()
	removed, err := s.engine.RemoveNode(id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteNode(ctx, id); err != nil && !errors.Is(err, repository.ErrNotFound) {
		s.restoreNode(before, id, removed)
		return err
	}

	s.eventBus.Publish(Event{
		Type:    EventNodeDeleted,
		Payload: map[string]any{"node_id": id, "edges_removed": removed},
	})
	return nil
}

// CreateEdge adds an edge between two existing nodes. An edge without id
// gets one derived from its endpoints and type.
func (s *GraphService) CreateEdge(ctx context.Context, edge *domain.Edge) (*domain.Edge, error) {
	if err := s.validateEdge(edge); err != nil {
		return nil, err
	}
	e := *edge
	e.Type = e.Type.Normalize()
	if e.ID == "" {
		e.ID = domain.NewEdge(e.Source, e.Target, e.Type).ID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.engine.AddEdge(e); err != nil {
		return nil, err
	}
	if err := s.store.UpsertEdge(ctx, &e); err != nil {
		if rerr := s.engine.RemoveEdge(e.ID); rerr != nil {
			s.log.Error("failed to roll back edge", zap.String("edge_id", e.ID), zap.Error(rerr))
		}
		return nil, err
	}

	s.eventBus.Publish(Event{
		Type:    EventEdgeCreated,
		Payload: map[string]string{"edge_id": e.ID, "source": e.Source, "target": e.Target},
	})
	return &e, nil
}

// DeleteEdge removes an edge
func (s *GraphService) DeleteEdge(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := s.engine.Snapshot()
	if err := s.engine.RemoveEdge(id); err != nil {
		return err
	}
	if err := s.store.DeleteEdge(ctx, id); err != nil && !errors.Is(err, repository.ErrNotFound) {
		s.restoreEdges(before, []string{id})
		return err
	}

	s.eventBus.Publish(Event{
		Type:    EventEdgeDeleted,
		Payload: map[string]string{"edge_id": id},
	})
	return nil
}

// restoreNode puts a node and its removed edges back into the engine after
// the store refused the deletion
func (s *GraphService) restoreNode(before domain.Snapshot, id string, edges []string) {
	n, ok := before.Node(id)
	if !ok {
		return
	}
	if err := s.engine.AddNode(n); err != nil {
		s.log.Error("engine and store diverged: failed to restore node",
			zap.String("node_id", id), zap.Error(err))
		return
	}
	s.restoreEdges(before, edges)
}

func (s *GraphService) restoreEdges(before domain.Snapshot, ids []string) {
	for _, id := range ids {
		for _, e := range before.Edges {
			if e.ID != id {
				continue
			}
			if err := s.engine.AddEdge(e); err != nil {
				s.log.Error("engine and store diverged: failed to restore edge",
					zap.String("edge_id", id), zap.Error(err))
			}
			break
		}
	}
}

// ImportResult represents the result of an import operation
type ImportResult struct {
	Source        string `json:"source"`
	Format        string `json:"format,omitempty"`
	Nodes         int    `json:"nodes"`
	Edges         int    `json:"edges"`
	DanglingEdges int    `json:"dangling_edges"`
}

// Import replaces the graph with a snapshot read from r. Nodes whose id
// survives keep their current position.
func (s *GraphService) Import(ctx context.Context, format string, r io.Reader) (*ImportResult, error) {
	c, err := codec.Lookup(format)
	if err != nil {
		return nil, err
	}
	snap, err := c.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedSnapshot, err)
	}
	return s.load(ctx, "import", c.Format(), snap)
}

// ImportFile imports a snapshot file, picking the codec from its extension
func (s *GraphService) ImportFile(ctx context.Context, path string) (*ImportResult, error) {
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	c, err := codec.Lookup(format)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	snap, err := c.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMalformedSnapshot, path, err)
	}
	return s.load(ctx, path, c.Format(), snap)
}

func (s *GraphService) load(ctx context.Context, source, format string, snap *domain.Snapshot) (*ImportResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.engine.LoadGraph(*snap)
	live := s.engine.Snapshot()
	if err := s.store.ReplaceSnapshot(ctx, &live); err != nil {
		return nil, err
	}

	st := s.engine.Stats()
	result := &ImportResult{
		Source:        source,
		Format:        format,
		Nodes:         st.Nodes,
		Edges:         st.Edges,
		DanglingEdges: st.DanglingEdges,
	}
	s.log.Info("graph imported",
		zap.String("source", source),
		zap.String("format", format),
		zap.Int("nodes", result.Nodes),
		zap.Int("edges", result.Edges),
		zap.Int("dangling_edges", result.DanglingEdges))

	s.eventBus.Publish(Event{
		Type:    EventGraphLoaded,
		Payload: result,
	})
	return result, nil
}

// Export writes the live graph, positions included, in the given format
func (s *GraphService) Export(format string, w io.Writer) error {
	c, err := codec.Lookup(format)
	if err != nil {
		return err
	}
	snap := s.engine.Snapshot()
	return c.Export(&snap, w)
}

// Stats returns node and edge counts of the live graph
func (s *GraphService) Stats() domain.Stats {
	return s.engine.Stats()
}

// CommitLayout persists the engine's current snapshot, deletions included.
// The snapshot is taken under the service lock so edits made through the
// service are never overwritten by an older copy.
func (s *GraphService) CommitLayout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.engine.Snapshot()
	if err := s.store.ReplaceSnapshot(ctx, &snap); err != nil {
		return err
	}
	s.eventBus.Publish(Event{
		Type:    EventLayoutCommitted,
		Payload: map[string]int{"nodes": len(snap.Nodes), "edges": len(snap.Edges)},
	})
	return nil
}

// SaveLayout stores current positions if any frame was produced since the
// last save. It reports whether anything was written.
func (s *GraphService) SaveLayout(ctx context.Context) (bool, error) {
	seq := s.engine.FrameSeq()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.saved && seq == s.savedSeq {
		return false, nil
	}
	if err := s.store.SavePositions(ctx, s.engine.Snapshot().Nodes); err != nil {
		return false, err
	}
	s.saved, s.savedSeq = true, seq
	return true, nil
}

// RunCommitter saves the layout every interval until ctx is done
func (s *GraphService) RunCommitter(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.SaveLayout(ctx); err != nil && ctx.Err() == nil {
				s.log.Warn("failed to save layout", zap.Error(err))
			}
		}
	}
}

func (s *GraphService) selectionChanged(node *domain.Node) {
	payload := map[string]string{"node_id": ""}
	if node != nil {
		payload["node_id"] = node.ID
		payload["label"] = node.Label
		payload["type"] = string(node.Type)
	}
	s.eventBus.Publish(Event{Type: EventSelectionChanged, Payload: payload})
}

// Validation helpers

func (s *GraphService) validateNode(node *domain.Node) error {
	if node == nil {
		return fmt.Errorf("%w: node required", domain.ErrInvalidNode)
	}
	if node.ID == "" {
		return fmt.Errorf("%w: node id required", domain.ErrInvalidNode)
	}
	if node.Type != "" && !node.Type.Valid() {
		return fmt.Errorf("%w: unknown node type %q", domain.ErrInvalidNode, node.Type)
	}
	return nil
}

func (s *GraphService) validateEdge(edge *domain.Edge) error {
	if edge == nil {
		return fmt.Errorf("%w: edge required", domain.ErrInvalidEdge)
	}
	if edge.Source == "" {
		return fmt.Errorf("%w: edge source required", domain.ErrInvalidEdge)
	}
	if edge.Target == "" {
		return fmt.Errorf("%w: edge target required", domain.ErrInvalidEdge)
	}
	if edge.Source == edge.Target {
		return fmt.Errorf("%w: edge source and target cannot be the same", domain.ErrInvalidEdge)
	}
	if edge.Type != "" && !edge.Type.Valid() {
		return fmt.Errorf("%w: unknown edge type %q", domain.ErrInvalidEdge, edge.Type)
	}
	return nil
}
