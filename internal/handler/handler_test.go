package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"kgview/internal/domain"
	"kgview/internal/engine"
	"kgview/internal/interaction"
	"kgview/internal/repository/sqlite"
	"kgview/internal/service"
)

const seedJSON = `{
  "nodes": [
    {"id": "pump", "label": "Feed pump", "type": "equipment", "x": 300, "y": 200},
    {"id": "leak", "label": "Seal leak", "type": "fault", "x": 600, "y": 400}
  ],
  "edges": [{"source": "leak", "target": "pump", "type": "causes"}]
}`

type testServer struct {
	*httptest.Server
	engine *engine.Engine
	svc    *service.GraphService
	stream *Stream
}

func newTestServer(t *testing.T, seed bool) *testServer {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	eng, err := engine.New(engine.DefaultConfig())
	require.NoError(t, err)
	svc := service.NewGraphService(store, eng, service.NewEventBus(), zap.NewNop())
	if seed {
		_, err := svc.Import(context.Background(), "json", strings.NewReader(seedJSON))
		require.NoError(t, err)
	}

	stream := NewStream(eng, 100, zap.NewNop())
	srv := httptest.NewServer(NewRouter(Deps{
		Service:  svc,
		Stream:   stream,
		Registry: prometheus.NewRegistry(),
		Static:   fstest.MapFS{"index.html": {Data: []byte("<html>kgview</html>")}},
	}))
	t.Cleanup(func() {
		stream.Close()
		srv.Close()
	})
	return &testServer{Server: srv, engine: eng, svc: svc, stream: stream}
}

func (s *testServer) do(t *testing.T, method, path, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, s.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestGetGraphAndStats(t *testing.T) {
	s := newTestServer(t, true)

	resp := s.do(t, http.MethodGet, "/api/graph", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	snap := decode[domain.Snapshot](t, resp)
	require.Len(t, snap.Nodes, 2)
	pump, ok := snap.Node("pump")
	require.True(t, ok)
	assert.Equal(t, domain.Vec{X: 300, Y: 200}, pump.Position)

	resp = s.do(t, http.MethodGet, "/api/stats", "")
	st := decode[domain.Stats](t, resp)
	assert.Equal(t, 2, st.Nodes)
	assert.Equal(t, 1, st.Edges)
}

func TestNodeEndpoints(t *testing.T) {
	s := newTestServer(t, true)

	resp := s.do(t, http.MethodPost, "/api/nodes", `{"id":"valve","label":"Valve","type":"equipment"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	n := decode[domain.Node](t, resp)
	assert.True(t, n.Placed)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"duplicate id", http.MethodPost, "/api/nodes", `{"id":"valve"}`, http.StatusConflict},
		{"bad json", http.MethodPost, "/api/nodes", `{`, http.StatusBadRequest},
		{"missing id", http.MethodPost, "/api/nodes", `{"label":"x"}`, http.StatusBadRequest},
		{"unknown type", http.MethodPost, "/api/nodes", `{"id":"x","type":"router"}`, http.StatusBadRequest},
		{"delete", http.MethodDelete, "/api/nodes/valve", "", http.StatusNoContent},
		{"delete again", http.MethodDelete, "/api/nodes/valve", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := s.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, resp.StatusCode)
			if tt.want >= 400 {
				e := decode[ErrorResponse](t, resp)
				assert.NotEmpty(t, e.Error)
				assert.NotEmpty(t, e.Details)
			}
		})
	}
}

func TestEdgeEndpoints(t *testing.T) {
	s := newTestServer(t, true)

	resp := s.do(t, http.MethodPost, "/api/edges", `{"source":"pump","target":"leak","type":"contains"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	e := decode[domain.Edge](t, resp)
	assert.Equal(t, "pump-contains-leak", e.ID)

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/api/edges", `{"source":"pump","target":"ghost"}`).StatusCode)
	assert.Equal(t, http.StatusConflict, s.do(t, http.MethodPost, "/api/edges", `{"source":"pump","target":"leak","type":"contains"}`).StatusCode)
	assert.Equal(t, http.StatusNoContent, s.do(t, http.MethodDelete, "/api/edges/pump-contains-leak", "").StatusCode)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodDelete, "/api/edges/pump-contains-leak", "").StatusCode)
}

func TestNotLoadedIsUnavailable(t *testing.T) {
	s := newTestServer(t, false)
	resp := s.do(t, http.MethodPost, "/api/nodes", `{"id":"a"}`)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestImportExport(t *testing.T) {
	s := newTestServer(t, true)

	yamlDoc := "nodes:\n  - id: a\n    type: concept\n  - id: b\nedges:\n  - source: a\n    target: b\n"
	resp := s.do(t, http.MethodPost, "/api/import/yaml", yamlDoc)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	res := decode[service.ImportResult](t, resp)
	assert.Equal(t, 2, res.Nodes)
	assert.Equal(t, 1, res.Edges)

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/api/import/csv", "a,b").StatusCode)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/api/import/json", "{").StatusCode)

	resp = s.do(t, http.MethodGet, "/api/export/json", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"id": "a"`)

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/api/export/xml", "").StatusCode)
}

func TestExportImage(t *testing.T) {
	s := newTestServer(t, true)

	resp := s.do(t, http.MethodGet, "/api/export/image.png", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG")))
	tag := resp.Header.Get("ETag")
	assert.Equal(t, ETag(data), tag)

	req, err := http.NewRequest(http.MethodGet, s.URL+"/api/export/image.png", nil)
	require.NoError(t, err)
	req.Header.Set("If-None-Match", tag)
	cached, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	cached.Body.Close()
	assert.Equal(t, http.StatusNotModified, cached.StatusCode)

	resp = s.do(t, http.MethodGet, "/api/export/image.svg", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	svg, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(svg), "<svg")
}

func TestLayoutControls(t *testing.T) {
	s := newTestServer(t, true)

	v := decode[ViewResponse](t, s.do(t, http.MethodPost, "/api/layout/pause", ""))
	assert.True(t, v.Paused)
	assert.True(t, s.engine.Paused())

	v = decode[ViewResponse](t, s.do(t, http.MethodPost, "/api/layout/resume", ""))
	assert.False(t, v.Paused)

	v = decode[ViewResponse](t, s.do(t, http.MethodPost, "/api/labels", ""))
	assert.False(t, v.ShowLabels, "empty body toggles")
	v = decode[ViewResponse](t, s.do(t, http.MethodPost, "/api/labels", `{"show":true}`))
	assert.True(t, v.ShowLabels)

	v = decode[ViewResponse](t, s.do(t, http.MethodGet, "/api/view", ""))
	assert.Equal(t, 1.0, v.Scale)
	assert.Equal(t, "idle", v.Mode)

	v = decode[ViewResponse](t, s.do(t, http.MethodPost, "/api/view/reset", ""))
	assert.Equal(t, 1.0, v.Scale)
}

func TestSelectionEndpoints(t *testing.T) {
	s := newTestServer(t, true)

	resp := s.do(t, http.MethodPut, "/api/selection", `{"id":"leak"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	sel := decode[interaction.Selection](t, resp)
	assert.Equal(t, "leak", sel.Selected)

	sel = decode[interaction.Selection](t, s.do(t, http.MethodGet, "/api/selection", ""))
	assert.Equal(t, "leak", sel.Selected)

	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodPut, "/api/selection", `{"id":"ghost"}`).StatusCode)

	sel = decode[interaction.Selection](t, s.do(t, http.MethodPut, "/api/selection", `{"id":""}`))
	assert.Empty(t, sel.Selected)
}

func TestMiddleware(t *testing.T) {
	t.Run("cors preflight", func(t *testing.T) {
		s := newTestServer(t, true)
		resp := s.do(t, http.MethodOptions, "/api/graph", "")
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
		assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	})

	t.Run("recover", func(t *testing.T) {
		h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }), Recover(zap.NewNop()))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	t.Run("chain order", func(t *testing.T) {
		var order []string
		mark := func(name string) Middleware {
			return func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					order = append(order, name)
					next.ServeHTTP(w, r)
				})
			}
		}
		h := Chain(http.NotFoundHandler(), mark("a"), mark("b"))
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, []string{"a", "b"}, order)
	})

	t.Run("metrics and static", func(t *testing.T) {
		s := newTestServer(t, true)
		s.do(t, http.MethodGet, "/api/stats", "")

		resp := s.do(t, http.MethodGet, "/metrics", "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		body, _ := io.ReadAll(resp.Body)
		assert.Contains(t, string(body), "kgview_http_requests_total")

		resp = s.do(t, http.MethodGet, "/", "")
		body, _ = io.ReadAll(resp.Body)
		assert.Contains(t, string(body), "kgview")
	})
}

func TestInputMessage(t *testing.T) {
	tests := []struct {
		name    string
		msg     InputMessage
		want    interaction.Event
		wantErr bool
	}{
		{"pointer down", InputMessage{Type: "pointer_down", X: 3, Y: 4}, interaction.Event{Kind: interaction.PointerDown, Pos: domain.Vec{X: 3, Y: 4}, Primary: true}, false},
		{"secondary button", InputMessage{Type: "pointer_down", Button: 2}, interaction.Event{Kind: interaction.PointerDown, Primary: false}, false},
		{"wheel", InputMessage{Type: "wheel", Delta: -1}, interaction.Event{Kind: interaction.Wheel, Primary: true, Delta: -1}, false},
		{"key", InputMessage{Type: "key", Key: "Delete"}, interaction.Event{Kind: interaction.Key, Primary: true, Key: "Delete"}, false},
		{"unknown", InputMessage{Type: "touch"}, interaction.Event{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.msg.Event()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWebsocketStream(t *testing.T) {
	s := newTestServer(t, true)

	url := "ws" + strings.TrimPrefix(s.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	var hello map[string]string
	require.NoError(t, conn.ReadJSON(&hello))
	assert.Equal(t, "session_created", hello["action"])
	assert.NotEmpty(t, hello["session_id"])

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	kind, frame, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.BinaryMessage, kind)
	assert.True(t, bytes.HasPrefix(frame, []byte("\x89PNG")))

	// Click the pump at its surface position under the identity viewport.
	require.NoError(t, conn.WriteJSON(InputMessage{Type: "pointer_down", X: 300, Y: 200}))
	require.NoError(t, conn.WriteJSON(InputMessage{Type: "pointer_up", X: 300, Y: 200}))
	require.Eventually(t, func() bool {
		if _, err := s.engine.Tick(); err != nil {
			return false
		}
		return s.engine.Selection().Selected == "pump"
	}, 2*time.Second, 5*time.Millisecond)

	// The tick advanced the frame sequence, so another frame arrives.
	kind, _, err = conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.BinaryMessage, kind)

	s.stream.Close()
	_, _, err = conn.ReadMessage()
	for err == nil {
		_, _, err = conn.ReadMessage()
	}
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
}

func TestStreamCloseRacesNewSessions(t *testing.T) {
	s := newTestServer(t, true)
	stream := NewStream(s.engine, 100, zap.NewNop())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// A plain GET fails the upgrade and returns straight away.
			stream.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ws", nil))
		}()
	}
	stream.Close()
	wg.Wait()

	rec := httptest.NewRecorder()
	stream.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	url := "ws" + strings.TrimPrefix(s.URL, "http") + "/ws"
	s.stream.Close()
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
