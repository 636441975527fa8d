package handler

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"

	"kgview/internal/codec"
	"kgview/internal/domain"
	"kgview/internal/engine"
	"kgview/internal/repository"
	"kgview/internal/service"
)

// MaxImportBytes caps the size of an import request body
const MaxImportBytes = 32 << 20

// GraphHandler handles graph API requests
type GraphHandler struct {
	svc    *service.GraphService
	engine *engine.Engine
	log    *zap.Logger
}

// NewGraphHandler creates a new graph handler
func NewGraphHandler(svc *service.GraphService, log *zap.Logger) *GraphHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &GraphHandler{svc: svc, engine: svc.Engine(), log: log}
}

// ErrorResponse is the JSON body of every error reply
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// ViewResponse describes the engine's presentation state
type ViewResponse struct {
	PanX       float64 `json:"pan_x"`
	PanY       float64 `json:"pan_y"`
	Scale      float64 `json:"scale"`
	Mode       string  `json:"mode"`
	Paused     bool    `json:"paused"`
	ShowLabels bool    `json:"show_labels"`
	Energy     float64 `json:"energy"`
	Frame      uint64  `json:"frame"`
}

// GetGraph returns the live graph with positions
func (h *GraphHandler) GetGraph(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.engine.Snapshot(), http.StatusOK)
}

// GetStats returns node and edge counts
func (h *GraphHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.svc.Stats(), http.StatusOK)
}

// GetSelection returns the selected and hovered node ids
func (h *GraphHandler) GetSelection(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.engine.Selection(), http.StatusOK)
}

// SetSelection selects a node by id. An empty id clears the selection.
func (h *GraphHandler) SetSelection(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}
	if req.ID != "" {
		if _, ok := h.engine.Snapshot().Node(req.ID); !ok {
			h.writeError(w, "Not found", "node "+req.ID+" not found", http.StatusNotFound)
			return
		}
	}
	h.engine.Select(req.ID)
	h.writeJSON(w, h.engine.Selection(), http.StatusOK)
}

// GetView returns the viewport and layout state
func (h *GraphHandler) GetView(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.view(), http.StatusOK)
}

// ResetView restores the identity viewport
func (h *GraphHandler) ResetView(w http.ResponseWriter, r *http.Request) {
	h.engine.ResetView()
	h.writeJSON(w, h.view(), http.StatusOK)
}

func (h *GraphHandler) view() ViewResponse {
	v := h.engine.Viewport()
	return ViewResponse{
		PanX:       v.PanX,
		PanY:       v.PanY,
		Scale:      v.Scale,
		Mode:       h.engine.Mode().String(),
		Paused:     h.engine.Paused(),
		ShowLabels: h.engine.ShowLabels(),
		Energy:     h.engine.Energy(),
		Frame:      h.engine.FrameSeq(),
	}
}

// CreateNode creates a new node
func (h *GraphHandler) CreateNode(w http.ResponseWriter, r *http.Request) {
	var node domain.Node
	if err := json.NewDecoder(r.Body).Decode(&node); err != nil {
		h.writeError(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}

	created, err := h.svc.CreateNode(r.Context(), &node)
	if err != nil {
		h.fail(w, "Failed to create node", err)
		return
	}
	h.writeJSON(w, created, http.StatusCreated)
}

// DeleteNode deletes a node and its edges
func (h *GraphHandler) DeleteNode(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, "Invalid node ID", "Node ID is required", http.StatusBadRequest)
		return
	}
	if err := h.svc.DeleteNode(r.Context(), id); err != nil {
		h.fail(w, "Failed to delete node", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateEdge creates a new edge
func (h *GraphHandler) CreateEdge(w http.ResponseWriter, r *http.Request) {
	var edge domain.Edge
	if err := json.NewDecoder(r.Body).Decode(&edge); err != nil {
		h.writeError(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}

	created, err := h.svc.CreateEdge(r.Context(), &edge)
	if err != nil {
		h.fail(w, "Failed to create edge", err)
		return
	}
	h.writeJSON(w, created, http.StatusCreated)
}

// DeleteEdge deletes an edge
func (h *GraphHandler) DeleteEdge(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, "Invalid edge ID", "Edge ID is required", http.StatusBadRequest)
		return
	}
	if err := h.svc.DeleteEdge(r.Context(), id); err != nil {
		h.fail(w, "Failed to delete edge", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Import replaces the graph with the request body
func (h *GraphHandler) Import(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, MaxImportBytes)
	result, err := h.svc.Import(r.Context(), r.PathValue("format"), body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, "Import too large", err.Error(), http.StatusRequestEntityTooLarge)
			return
		}
		h.fail(w, "Failed to import graph", err)
		return
	}
	h.writeJSON(w, result, http.StatusOK)
}

// Export writes the graph in the requested format
func (h *GraphHandler) Export(w http.ResponseWriter, r *http.Request) {
	c, err := codec.Lookup(r.PathValue("format"))
	if err != nil {
		h.fail(w, "Failed to export graph", err)
		return
	}
	w.Header().Set("Content-Type", c.ContentType())
	w.Header().Set("Content-Disposition", "attachment; filename=graph."+c.Format())

	if err := h.svc.Export(c.Format(), w); err != nil {
		// Can't write error response as we already set headers
		h.log.Error("failed to export graph", zap.String("format", c.Format()), zap.Error(err))
	}
}

// ExportPNG returns the current frame as PNG. The ETag is a digest of the
// image so unchanged frames answer 304.
func (h *GraphHandler) ExportPNG(w http.ResponseWriter, r *http.Request) {
	data, err := h.engine.ExportImage()
	if err != nil {
		h.fail(w, "Failed to render image", err)
		return
	}

	tag := ETag(data)
	w.Header().Set("ETag", tag)
	w.Header().Set("Cache-Control", "no-cache")
	if match := r.Header.Get("If-None-Match"); match == tag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// ExportSVG returns the current frame as SVG
func (h *GraphHandler) ExportSVG(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "image/svg+xml")
	if err := h.engine.ExportSVG(w); err != nil {
		h.log.Error("failed to render svg", zap.Error(err))
	}
}

// PauseLayout freezes the physics simulation
func (h *GraphHandler) PauseLayout(w http.ResponseWriter, r *http.Request) {
	h.engine.SetPaused(true)
	h.writeJSON(w, h.view(), http.StatusOK)
}

// ResumeLayout restarts the physics simulation
func (h *GraphHandler) ResumeLayout(w http.ResponseWriter, r *http.Request) {
	h.engine.SetPaused(false)
	h.writeJSON(w, h.view(), http.StatusOK)
}

// SetLabels shows or hides labels. An empty body toggles them.
func (h *GraphHandler) SetLabels(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Show *bool `json:"show"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.writeError(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}
	show := !h.engine.ShowLabels()
	if req.Show != nil {
		show = *req.Show
	}
	h.engine.SetShowLabels(show)
	h.writeJSON(w, h.view(), http.StatusOK)
}

// ETag returns a strong entity tag for data
func ETag(data []byte) string {
	sum := blake2b.Sum256(data)
	return `"` + hex.EncodeToString(sum[:16]) + `"`
}

// statusFor maps service errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNodeNotFound),
		errors.Is(err, domain.ErrEdgeNotFound),
		errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrDuplicateNode),
		errors.Is(err, domain.ErrDuplicateEdge):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidNode),
		errors.Is(err, domain.ErrInvalidEdge),
		errors.Is(err, domain.ErrDanglingEdge),
		errors.Is(err, codec.ErrUnknownFormat),
		errors.Is(err, service.ErrMalformedSnapshot):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrNotLoaded):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// fail writes err with the status it maps to
func (h *GraphHandler) fail(w http.ResponseWriter, msg string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.log.Error(msg, zap.Error(err))
	}
	h.writeError(w, msg, err.Error(), status)
}

// Helper methods

func (h *GraphHandler) writeJSON(w http.ResponseWriter, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Warn("failed to encode JSON", zap.Error(err))
	}
}

func (h *GraphHandler) writeError(w http.ResponseWriter, error, details string, statusCode int) {
	h.writeJSON(w, ErrorResponse{Error: error, Details: details}, statusCode)
}
