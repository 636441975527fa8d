// Package sqlite implements repository.Store on top of modernc.org/sqlite.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"kgview/internal/domain"
	"kgview/internal/repository"

	_ "modernc.org/sqlite"
)

// Store implements repository.Store using SQLite
type Store struct {
	db *sql.DB
}

var _ repository.Store = (*Store)(nil)

// New opens (creating if needed) the database at dbPath. ":memory:" gives a
// private in-memory database.
func New(dbPath string) (*Store, error) {
	memory := dbPath == ":memory:" || strings.Contains(dbPath, "mode=memory")

	dsn := dbPath
	if !memory {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if memory {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS nodes (
		id TEXT PRIMARY KEY,
		label TEXT NOT NULL DEFAULT '',
		type TEXT NOT NULL,
		properties JSON,
		x REAL,
		y REAL,
		pinned INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS edges (
		id TEXT PRIMARY KEY,
		source_id TEXT NOT NULL,
		target_id TEXT NOT NULL,
		label TEXT,
		type TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_edges_source ON edges(source_id);
	CREATE INDEX IF NOT EXISTS idx_edges_target ON edges(target_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// LoadSnapshot loads every node and edge in insertion order
func (s *Store) LoadSnapshot(ctx context.Context) (*domain.Snapshot, error) {
	snap := &domain.Snapshot{Nodes: []domain.Node{}, Edges: []domain.Edge{}}

	rows, err := s.db.QueryContext(ctx, `SELECT `+nodeColumns+` FROM nodes ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to query nodes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var row nodeRow
		if err := rows.Scan(row.scanArgs()...); err != nil {
			return nil, fmt.Errorf("failed to scan node: %w", err)
		}
		n, err := row.toDomain()
		if err != nil {
			return nil, fmt.Errorf("failed to decode node %s: %w", row.ID, err)
		}
		snap.Nodes = append(snap.Nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating nodes: %w", err)
	}

	edgeRows, err := s.db.QueryContext(ctx, `SELECT `+edgeColumns+` FROM edges ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to query edges: %w", err)
	}
	defer edgeRows.Close()

	for edgeRows.Next() {
		var row edgeRow
		if err := edgeRows.Scan(row.scanArgs()...); err != nil {
			return nil, fmt.Errorf("failed to scan edge: %w", err)
		}
		snap.Edges = append(snap.Edges, row.toDomain())
	}
	if err := edgeRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating edges: %w", err)
	}

	return snap, nil
}

const upsertNode = `
	INSERT INTO nodes (` + nodeColumns + `, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
	ON CONFLICT(id) DO UPDATE SET
		label = excluded.label,
		type = excluded.type,
		properties = excluded.properties,
		x = COALESCE(excluded.x, nodes.x),
		y = COALESCE(excluded.y, nodes.y),
		pinned = excluded.pinned,
		updated_at = CURRENT_TIMESTAMP
`

const upsertEdge = `
	INSERT INTO edges (` + edgeColumns + `, updated_at)
	VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
	ON CONFLICT(id) DO UPDATE SET
		source_id = excluded.source_id,
		target_id = excluded.target_id,
		label = excluded.label,
		type = excluded.type,
		updated_at = CURRENT_TIMESTAMP
`

// UpsertNode inserts or updates a node. An unplaced node keeps any
// previously stored position.
func (s *Store) UpsertNode(ctx context.Context, n *domain.Node) error {
	if n == nil || n.ID == "" {
		return fmt.Errorf("%w: empty id", domain.ErrInvalidNode)
	}
	args, err := nodeArgs(n)
	if err != nil {
		return fmt.Errorf("failed to marshal node properties: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, upsertNode, args...); err != nil {
		return fmt.Errorf("failed to upsert node: %w", err)
	}
	return nil
}

// DeleteNode removes a node and every edge touching it
func (s *Store) DeleteNode(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM nodes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete node: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("node %s: %w", id, repository.ErrNotFound)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM edges WHERE source_id = ? OR target_id = ?`, id, id); err != nil {
		return fmt.Errorf("failed to delete edges of node: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// UpsertEdge inserts or updates an edge
func (s *Store) UpsertEdge(ctx context.Context, e *domain.Edge) error {
	if e == nil || e.ID == "" {
		return fmt.Errorf("%w: empty id", domain.ErrInvalidEdge)
	}
	if _, err := s.db.ExecContext(ctx, upsertEdge, edgeArgs(e)...); err != nil {
		return fmt.Errorf("failed to upsert edge: %w", err)
	}
	return nil
}

// DeleteEdge removes a single edge
func (s *Store) DeleteEdge(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM edges WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete edge: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("edge %s: %w", id, repository.ErrNotFound)
	}
	return nil
}

// SavePositions stores positions and pin flags in a single transaction
func (s *Store) SavePositions(ctx context.Context, nodes []domain.Node) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		UPDATE nodes SET x = ?, y = ?, pinned = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, n := range nodes {
		if !n.Position.Finite() {
			continue
		}
		if _, err := stmt.ExecContext(ctx, n.Position.X, n.Position.Y, boolToInt(n.Pinned), n.ID); err != nil {
			return fmt.Errorf("failed to save position for %s: %w", n.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ReplaceSnapshot clears all data and writes snap atomically
func (s *Store) ReplaceSnapshot(ctx context.Context, snap *domain.Snapshot) error {
	if snap == nil {
		return errors.New("nil snapshot")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM edges`); err != nil {
		return fmt.Errorf("failed to clear edges: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM nodes`); err != nil {
		return fmt.Errorf("failed to clear nodes: %w", err)
	}

	nodeStmt, err := tx.PrepareContext(ctx, upsertNode)
	if err != nil {
		return fmt.Errorf("failed to prepare node statement: %w", err)
	}
	defer nodeStmt.Close()

	for i := range snap.Nodes {
		n := &snap.Nodes[i]
		if n.ID == "" {
			continue
		}
		args, err := nodeArgs(n)
		if err != nil {
			return fmt.Errorf("failed to marshal node %s: %w", n.ID, err)
		}
		if _, err := nodeStmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("failed to insert node %s: %w", n.ID, err)
		}
	}

	edgeStmt, err := tx.PrepareContext(ctx, upsertEdge)
	if err != nil {
		return fmt.Errorf("failed to prepare edge statement: %w", err)
	}
	defer edgeStmt.Close()

	for i := range snap.Edges {
		e := &snap.Edges[i]
		if e.ID == "" {
			continue
		}
		if _, err := edgeStmt.ExecContext(ctx, edgeArgs(e)...); err != nil {
			return fmt.Errorf("failed to insert edge %s: %w", e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}
