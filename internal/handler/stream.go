package handler

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"kgview/internal/domain"
	"kgview/internal/engine"
	"kgview/internal/interaction"
)

const (
	writeWait    = 5 * time.Second
	maxInputSize = 4096
)

// InputMessage is one input event sent by a websocket client. Coordinates
// are surface pixels.
type InputMessage struct {
	Type   string  `json:"type"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Button int     `json:"button"`
	Delta  float64 `json:"delta"`
	Key    string  `json:"key"`
}

// Event converts the message to an engine input event
func (m InputMessage) Event() (interaction.Event, error) {
	kind, ok := interaction.ParseKind(m.Type)
	if !ok {
		return interaction.Event{}, fmt.Errorf("unknown event type %q", m.Type)
	}
	return interaction.Event{
		Kind:    kind,
		Pos:     domain.Vec{X: m.X, Y: m.Y},
		Primary: m.Button == 0,
		Delta:   m.Delta,
		Key:     m.Key,
	}, nil
}

// Stream serves the live view over a websocket. Clients send InputMessage
// JSON; the server answers with a binary PNG message whenever the frame
// sequence advances.
type Stream struct {
	engine   *engine.Engine
	log      *zap.Logger
	interval time.Duration
	upgrader websocket.Upgrader

	// mu orders session registration against Close
	mu     sync.Mutex
	closed bool
	quit   chan struct{}
	wg     sync.WaitGroup
}

// NewStream creates a stream polling for new frames fps times per second
func NewStream(eng *engine.Engine, fps int, log *zap.Logger) *Stream {
	if fps <= 0 {
		fps = 15
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Stream{
		engine:   eng,
		log:      log,
		interval: time.Second / time.Duration(fps),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  maxInputSize,
			WriteBufferSize: 64 * 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		quit: make(chan struct{}),
	}
}

// Close ends every open session and waits for them to finish
func (s *Stream) Close() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.quit)
	}
	s.mu.Unlock()
	s.wg.Wait()
}

// enter registers a session unless the stream is closed
func (s *Stream) enter() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.wg.Add(1)
	return true
}

// ServeHTTP upgrades the connection and runs one session
func (s *Stream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !s.enter() {
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	}
	defer s.wg.Done()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("failed to upgrade websocket", zap.Error(err))
		return
	}

	session := uuid.NewString()
	log := s.log.With(zap.String("session_id", session))
	log.Info("websocket client connected")

	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(map[string]any{
		"action":     "session_created",
		"session_id": session,
	}); err != nil {
		conn.Close()
		return
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.readLoop(conn, log)
	}()

	s.writeLoop(conn, done, log)
	conn.Close()
	<-done
	log.Info("websocket client disconnected")
}

func (s *Stream) readLoop(conn *websocket.Conn, log *zap.Logger) {
	conn.SetReadLimit(maxInputSize)
	for {
		var msg InputMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug("websocket read failed", zap.Error(err))
			}
			return
		}
		ev, err := msg.Event()
		if err != nil {
			log.Debug("ignoring input", zap.Error(err))
			continue
		}
		s.engine.Enqueue(ev)
	}
}

func (s *Stream) writeLoop(conn *websocket.Conn, done <-chan struct{}, log *zap.Logger) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	var last uint64
	sent := false
	for {
		select {
		case <-done:
			return
		case <-s.quit:
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(writeWait))
			return
		case <-ticker.C:
			if sent && s.engine.FrameSeq() == last {
				continue
			}
			seq, data, err := s.engine.Frame()
			if err != nil {
				log.Error("failed to render frame", zap.Error(err))
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
				return
			}
			last, sent = seq, true
		}
	}
}
