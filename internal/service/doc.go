// Package service implements the kgview application layer.
//
// GraphService sits between the HTTP handlers, the persistent store and the
// visualization engine. Every create or delete goes to the engine first, so
// the live picture and its validation rules are authoritative, and is then
// written through to the store.
//
// # Event System
//
// Services publish events via EventBus. The server forwards them to
// Server-Sent Events clients. Selection changes and committed layouts flow
// from the engine's listeners onto the same bus.
package service
