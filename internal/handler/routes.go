package handler

import (
	"io/fs"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"kgview/internal/service"
)

// Deps collects everything the HTTP surface serves
type Deps struct {
	Service *service.GraphService
	// Events serves the SSE stream at /events.
	Events http.Handler
	// Stream serves the websocket at /ws.
	Stream http.Handler
	// Registry backs /metrics and the request metrics. Nil disables both.
	Registry   *prometheus.Registry
	Static     fs.FS
	CORSOrigin string
	Log        *zap.Logger
}

// NewRouter registers every route and wraps the mux in the middleware chain
func NewRouter(d Deps) http.Handler {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	graphHandler := NewGraphHandler(d.Service, log)

	mux := http.NewServeMux()

	// Graph state
	mux.HandleFunc("GET /api/graph", graphHandler.GetGraph)
	mux.HandleFunc("GET /api/stats", graphHandler.GetStats)
	mux.HandleFunc("GET /api/selection", graphHandler.GetSelection)
	mux.HandleFunc("PUT /api/selection", graphHandler.SetSelection)
	mux.HandleFunc("GET /api/view", graphHandler.GetView)
	mux.HandleFunc("POST /api/view/reset", graphHandler.ResetView)

	// Node and edge endpoints
	mux.HandleFunc("POST /api/nodes", graphHandler.CreateNode)
	mux.HandleFunc("DELETE /api/nodes/{id}", graphHandler.DeleteNode)
	mux.HandleFunc("POST /api/edges", graphHandler.CreateEdge)
	mux.HandleFunc("DELETE /api/edges/{id}", graphHandler.DeleteEdge)

	// Import and export
	mux.HandleFunc("POST /api/import/{format}", graphHandler.Import)
	mux.HandleFunc("GET /api/export/image.png", graphHandler.ExportPNG)
	mux.HandleFunc("GET /api/export/image.svg", graphHandler.ExportSVG)
	mux.HandleFunc("GET /api/export/{format}", graphHandler.Export)

	// Layout controls
	mux.HandleFunc("POST /api/layout/pause", graphHandler.PauseLayout)
	mux.HandleFunc("POST /api/layout/resume", graphHandler.ResumeLayout)
	mux.HandleFunc("POST /api/labels", graphHandler.SetLabels)

	if d.Events != nil {
		mux.Handle("GET /events", d.Events)
	}
	if d.Stream != nil {
		mux.Handle("GET /ws", d.Stream)
	}

	mws := []Middleware{Recover(log), CORS(d.CORSOrigin), Logger(log)}
	if d.Registry != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{}))
		mws = append(mws, NewHTTPMetrics(d.Registry).Middleware())
	}

	if d.Static != nil {
		mux.Handle("/", http.FileServer(http.FS(d.Static)))
	}

	return Chain(mux, mws...)
}
