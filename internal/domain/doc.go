// Package domain defines the core types of the kgview graph visualization engine.
//
// This package contains the node/edge snapshot the engine consumes and the
// per-node kinematic state the layout mutates every tick.
//
// # Core Types
//
// Node represents a diagnostic entity (equipment, fault, concept, document or a
// generic entity) with an ordered property list, a world-space position and a
// velocity.
//
// Edge represents a typed, directed relationship between two nodes
// (belongs_to, related_to, causes, contains, instance_of).
//
// Snapshot is the unit exchanged with collaborators: a deep copy of the nodes
// and edges at a point in time.
//
// Graph owns the live snapshot together with an id index and enforces the
// referential invariants: ids are unique, removing a node removes every edge
// that touches it, and edges whose endpoints are missing are skipped rather
// than reported.
//
// # Design Principles
//
// - No I/O, no goroutines, no external dependencies
// - Invalid input is normalized where possible, rejected with sentinel errors otherwise
// - Callers own synchronization
package domain
