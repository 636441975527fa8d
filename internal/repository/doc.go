// Package repository defines the persistence interface for kgview graphs.
//
// The Store holds the last known snapshot together with the layout state
// (positions and pins) so a restarted server comes back with the same
// picture. The sqlite subpackage provides the implementation.
//
// # Schema
//
// The sqlite store keeps two tables, nodes and edges. Node properties are
// stored as an ordered JSON object. Deleting a node cascades to its edges.
//
// # Testing
//
// The sqlite store is tested against in-memory databases.
package repository
