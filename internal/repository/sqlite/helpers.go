package sqlite

import (
	"database/sql"
	"encoding/json"

	"kgview/internal/domain"
)

// ============================================================================
// Null Type Conversion Helpers
// ============================================================================

// nullToString safely converts sql.NullString to string
func nullToString(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// stringToNull safely converts string to sql.NullString
func stringToNull(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// boolToInt maps a flag to the INTEGER column encoding
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// ============================================================================
// JSON Marshaling Helpers
// ============================================================================

// unmarshalProperties decodes a nullable JSON object, keeping key order
func unmarshalProperties(ns sql.NullString) (domain.Properties, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	var p domain.Properties
	if err := json.Unmarshal([]byte(ns.String), &p); err != nil {
		return nil, err
	}
	return p, nil
}

// marshalProperties encodes properties as a nullable JSON string.
// Empty properties are stored as NULL rather than "{}".
func marshalProperties(p domain.Properties) (sql.NullString, error) {
	if len(p) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(p)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

// ============================================================================
// Schema Evolution Guide
// ============================================================================
//
// To add a new column to the nodes table:
// 1. Add field to nodeRow struct (below)
// 2. Update scanArgs() - APPEND to end to match column order
// 3. Update nodeColumns constant - APPEND to end
// 4. Update toDomain() and nodeArgs()
// 5. Add an ALTER TABLE step to migrate() in sqlite.go
//
// CRITICAL: Column order must match between nodeColumns, scanArgs() and
// every SELECT using nodeColumns. Same pattern applies to edges.

// ============================================================================
// Node Row Scanner
// ============================================================================

// nodeRow holds all columns from a node query for scanning
type nodeRow struct {
	ID             string
	Label          string
	Type           string
	PropertiesJSON sql.NullString
	X              sql.NullFloat64
	Y              sql.NullFloat64
	Pinned         int
}

// nodeColumns returns the SELECT column list for node queries
const nodeColumns = `id, label, type, properties, x, y, pinned`

// scanArgs returns pointers to all fields for sql.Scan()
// MUST match nodeColumns order exactly.
func (r *nodeRow) scanArgs() []any {
	return []any{
		&r.ID,
		&r.Label,
		&r.Type,
		&r.PropertiesJSON,
		&r.X,
		&r.Y,
		&r.Pinned,
	}
}

// toDomain converts the scanned row to a domain.Node. A stored position
// marks the node as Placed.
func (r *nodeRow) toDomain() (domain.Node, error) {
	n := domain.Node{
		ID:     r.ID,
		Label:  r.Label,
		Type:   domain.NodeType(r.Type).Normalize(),
		Pinned: r.Pinned != 0,
	}
	props, err := unmarshalProperties(r.PropertiesJSON)
	if err != nil {
		return domain.Node{}, err
	}
	n.Properties = props
	if r.X.Valid && r.Y.Valid {
		n.Position = domain.Vec{X: r.X.Float64, Y: r.Y.Float64}
		n.Placed = n.Position.Finite()
	}
	return n, nil
}

// nodeArgs returns the insert arguments in nodeColumns order
func nodeArgs(n *domain.Node) ([]any, error) {
	props, err := marshalProperties(n.Properties)
	if err != nil {
		return nil, err
	}
	var x, y sql.NullFloat64
	if n.Placed && n.Position.Finite() {
		x = sql.NullFloat64{Float64: n.Position.X, Valid: true}
		y = sql.NullFloat64{Float64: n.Position.Y, Valid: true}
	}
	return []any{n.ID, n.Label, string(n.Type.Normalize()), props, x, y, boolToInt(n.Pinned)}, nil
}

// ============================================================================
// Edge Row Scanner
// ============================================================================

// edgeRow holds all columns from an edge query for scanning
type edgeRow struct {
	ID       string
	SourceID string
	TargetID string
	Label    sql.NullString
	Type     string
}

// edgeColumns returns the SELECT column list for edge queries
const edgeColumns = `id, source_id, target_id, label, type`

// scanArgs returns pointers to all fields for sql.Scan()
// MUST match edgeColumns order exactly.
func (r *edgeRow) scanArgs() []any {
	return []any{&r.ID, &r.SourceID, &r.TargetID, &r.Label, &r.Type}
}

// toDomain converts the scanned row to a domain.Edge
func (r *edgeRow) toDomain() domain.Edge {
	return domain.Edge{
		ID:     r.ID,
		Source: r.SourceID,
		Target: r.TargetID,
		Label:  nullToString(r.Label),
		Type:   domain.EdgeType(r.Type).Normalize(),
	}
}

// edgeArgs returns the insert arguments in edgeColumns order
func edgeArgs(e *domain.Edge) []any {
	return []any{e.ID, e.Source, e.Target, stringToNull(e.Label), string(e.Type.Normalize())}
}
