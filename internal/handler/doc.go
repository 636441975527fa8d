// Package handler implements the kgview HTTP surface.
//
// # Routes
//
// REST endpoints under /api expose the live graph, its statistics, the
// selection and the viewport, CRUD for nodes and edges, JSON and YAML
// import/export, and PNG/SVG renderings of the current frame. Layout
// controls pause and resume the simulation and toggle labels.
//
// /ws is a websocket carrying input events from the browser and PNG frames
// back. /events is the Server-Sent Events feed of graph and selection
// changes. /metrics exposes Prometheus metrics.
//
// # Response Format
//
// Success responses return JSON with 200 or 201. Errors return
// {error, details} with a status derived from the sentinel error: 400 for
// invalid input, 404 for unknown ids, 409 for duplicates and 503 before a
// graph is loaded.
//
// Middleware provides panic recovery, CORS and request logging.
package handler
