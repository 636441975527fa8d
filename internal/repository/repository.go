package repository

import (
	"context"
	"errors"

	"kgview/internal/domain"
)

// ErrNotFound is returned when a node or edge id is not stored
var ErrNotFound = errors.New("not found")

// Store defines the interface for persisting graph snapshots and layout
type Store interface {
	// LoadSnapshot returns every stored node and edge. Nodes with a stored
	// position come back Placed.
	LoadSnapshot(ctx context.Context) (*domain.Snapshot, error)

	// ReplaceSnapshot clears the store and writes s in one transaction
	ReplaceSnapshot(ctx context.Context, s *domain.Snapshot) error

	// Node operations
	UpsertNode(ctx context.Context, n *domain.Node) error
	DeleteNode(ctx context.Context, id string) error

	// Edge operations
	UpsertEdge(ctx context.Context, e *domain.Edge) error
	DeleteEdge(ctx context.Context, id string) error

	// SavePositions stores position and pin state of the given nodes.
	// Unknown ids are ignored.
	SavePositions(ctx context.Context, nodes []domain.Node) error

	Close() error
}
