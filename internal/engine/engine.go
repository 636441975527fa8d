// Package engine ties the graph model, physics, viewport, interaction and
// renderer together behind one lock.
//
// Graph mutations run synchronously between ticks. Input events are queued by
// Enqueue and applied only at the start of the next Tick, before the physics
// step, so a drag always wins over the forces of the same frame. Listeners
// run after the engine lock is released and may call back into the engine.
package engine

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"sync"
	"time"

	"go.uber.org/zap"

	"kgview/internal/domain"
	"kgview/internal/interaction"
	"kgview/internal/physics"
	"kgview/internal/render"
	"kgview/internal/viewport"
)

// ErrNotLoaded is returned when the engine is used before LoadGraph
var ErrNotLoaded = errors.New("engine: graph not loaded")

// DefaultMaxPending caps the input buffer between ticks
const DefaultMaxPending = 1024

// Config holds everything the engine needs to build its components
type Config struct {
	Physics  physics.Params
	Viewport viewport.Limits
	Render   render.Options
	// HitSlop scales the node radius used for hit testing.
	HitSlop float64
	// Seed drives the placement of nodes that arrive without a position.
	Seed       uint64
	MaxPending int
}

// DefaultConfig returns the stock engine configuration
func DefaultConfig() Config {
	return Config{
		Physics:    physics.DefaultParams(),
		Viewport:   viewport.DefaultLimits(),
		Render:     render.DefaultOptions(),
		HitSlop:    1,
		Seed:       1,
		MaxPending: DefaultMaxPending,
	}
}

// SelectionListener receives a copy of the newly selected node, or nil when
// the selection was cleared.
type SelectionListener func(node *domain.Node)

// GraphListener receives the republished snapshot after a user edit
type GraphListener func(snapshot domain.Snapshot)

// Option configures an Engine
type Option func(*Engine)

// WithLogger sets the engine logger
func WithLogger(log *zap.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithMetrics records engine activity into m
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// TickResult describes what one tick did
type TickResult struct {
	Applied int     `json:"applied"`
	Stepped bool    `json:"stepped"`
	Redraw  bool    `json:"redraw"`
	Energy  float64 `json:"energy"`
	Frame   uint64  `json:"frame"`
}

// Engine is the visualization engine. It is safe for concurrent use.
type Engine struct {
	mu       sync.Mutex
	cfg      Config
	log      *zap.Logger
	metrics  *Metrics
	graph    *domain.Graph
	sim      *physics.Simulator
	view     *viewport.Viewport
	ctrl     *interaction.Controller
	renderer *render.Renderer
	rng      *rand.Rand

	loaded  bool
	paused  bool
	labels  bool
	pending []interaction.Event
	spare   []interaction.Event
	energy  float64

	frameSeq   uint64
	dirty      bool
	cachedSeq  uint64
	cachedPNG  []byte
	cacheValid bool

	selListeners   []SelectionListener
	graphListeners []GraphListener
}

// New builds an engine from cfg. The graph is empty until LoadGraph.
func New(cfg Config, opts ...Option) (*Engine, error) {
	if !(cfg.HitSlop > 0) {
		cfg.HitSlop = 1
	}
	if cfg.MaxPending <= 0 {
		cfg.MaxPending = DefaultMaxPending
	}
	cfg.Physics = cfg.Physics.Normalize()
	cfg.Viewport = cfg.Viewport.Normalize()
	cfg.Render = cfg.Render.Normalize()

	r, err := render.New(cfg.Render)
	if err != nil {
		return nil, fmt.Errorf("create renderer: %w", err)
	}

	tester := interaction.HitTester{Radius: cfg.Render.NodeRadius * cfg.HitSlop}
	e := &Engine{
		cfg:      cfg,
		log:      zap.NewNop(),
		graph:    domain.NewGraph(),
		sim:      physics.New(cfg.Physics),
		view:     viewport.New(cfg.Viewport),
		ctrl:     interaction.NewController(tester, cfg.Physics.Bounds),
		renderer: r,
		rng:      rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)),
		labels:   true,
	}
	e.view.Confine(cfg.Physics.Bounds, domain.Vec{X: float64(cfg.Render.Width), Y: float64(cfg.Render.Height)})
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Config returns the normalized configuration
func (e *Engine) Config() Config { return e.cfg }

// seed places a node near the center of the world
func (e *Engine) seed() domain.Vec {
	b := e.cfg.Physics.Bounds
	c := e.cfg.Physics.Center
	w := (b.Max.X - b.Min.X) / 4
	h := (b.Max.Y - b.Min.Y) / 4
	return b.Clamp(domain.Vec{
		X: c.X + (e.rng.Float64()*2-1)*w,
		Y: c.Y + (e.rng.Float64()*2-1)*h,
	})
}

// LoadGraph replaces the graph. Nodes that survive keep their kinematic
// state; selection and hover on vanished nodes are dropped.
func (e *Engine) LoadGraph(s domain.Snapshot) {
	e.mu.Lock()
	e.graph.Load(s, e.seed)
	e.loaded = true
	out := e.ctrl.Prune(e.graph)
	e.invalidate()
	e.metrics.setSize(e.graph.Len(), len(e.graph.Edges()))
	notify := e.collect(out)
	e.log.Info("graph loaded",
		zap.Int("nodes", e.graph.Len()),
		zap.Int("edges", len(e.graph.Edges())))
	e.mu.Unlock()

	notify()
}

// AddNode inserts a node. Without Placed it is seeded near the center.
func (e *Engine) AddNode(n domain.Node) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.loaded {
		return ErrNotLoaded
	}
	if err := e.graph.AddNode(n, e.seed); err != nil {
		return err
	}
	e.invalidate()
	e.metrics.setSize(e.graph.Len(), len(e.graph.Edges()))
	return nil
}

// RemoveNode deletes a node and its edges, returning the removed edge ids
func (e *Engine) RemoveNode(id string) ([]string, error) {
	e.mu.Lock()
	if !e.loaded {
		e.mu.Unlock()
		return nil, ErrNotLoaded
	}
	removed, err := e.graph.RemoveNode(id)
	if err != nil {
		e.mu.Unlock()
		return nil, err
	}
	out := e.ctrl.Forget(id)
	e.invalidate()
	e.metrics.setSize(e.graph.Len(), len(e.graph.Edges()))
	notify := e.collect(out)
	e.mu.Unlock()

	notify()
	return removed, nil
}

// AddEdge inserts an edge between existing nodes
func (e *Engine) AddEdge(edge domain.Edge) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.loaded {
		return ErrNotLoaded
	}
	if err := e.graph.AddEdge(edge); err != nil {
		return err
	}
	e.invalidate()
	e.metrics.setSize(e.graph.Len(), len(e.graph.Edges()))
	return nil
}

// RemoveEdge deletes an edge
func (e *Engine) RemoveEdge(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.loaded {
		return ErrNotLoaded
	}
	if err := e.graph.RemoveEdge(id); err != nil {
		return err
	}
	e.invalidate()
	e.metrics.setSize(e.graph.Len(), len(e.graph.Edges()))
	return nil
}

// Enqueue buffers an input event for the next tick. Consecutive pointer moves
// collapse into the latest one. It reports false when the buffer is full and
// the event was dropped.
func (e *Engine) Enqueue(ev interaction.Event) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if n := len(e.pending); n > 0 && ev.Kind == interaction.PointerMove && e.pending[n-1].Kind == interaction.PointerMove {
		e.pending[n-1] = ev
		return true
	}
	if len(e.pending) >= e.cfg.MaxPending {
		e.metrics.dropped()
		return false
	}
	e.pending = append(e.pending, ev)
	return true
}

// Pending returns the number of buffered input events
func (e *Engine) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.pending)
}

// Tick applies buffered input, steps physics unless paused and marks a new
// frame when anything visible changed.
func (e *Engine) Tick() (TickResult, error) {
	e.mu.Lock()
	if !e.loaded {
		e.mu.Unlock()
		return TickResult{}, ErrNotLoaded
	}
	start := time.Now()

	events := e.pending
	e.pending, e.spare = e.spare[:0], events

	var out interaction.Outcome
	for _, ev := range events {
		out.Merge(e.ctrl.Handle(ev, e.graph, e.view))
	}
	if out.TogglePause {
		e.paused = !e.paused
	}
	if out.ToggleLabels {
		e.labels = !e.labels
	}
	if len(out.Removed) > 0 {
		e.metrics.setSize(e.graph.Len(), len(e.graph.Edges()))
		e.log.Debug("nodes removed by input", zap.Strings("ids", out.Removed))
	}

	res := TickResult{Applied: len(events)}
	if !e.paused && e.graph.Len() > 0 {
		e.sim.Step(e.graph.Nodes(), e.graph.Links())
		e.energy = physics.Energy(e.graph.Nodes())
		e.metrics.setEnergy(e.energy)
		res.Stepped = true
	}

	if res.Stepped || out.Visual() || out.TogglePause || e.dirty {
		e.frameSeq++
		e.dirty = false
		e.metrics.frame()
		res.Redraw = true
	}
	res.Energy = e.energy
	res.Frame = e.frameSeq

	notify := e.collect(out)
	e.metrics.observeTick(time.Since(start))
	e.mu.Unlock()

	notify()
	return res, nil
}

// collect snapshots listener payloads under the lock and returns a closure
// that delivers them after unlock.
func (e *Engine) collect(out interaction.Outcome) func() {
	var (
		sel      []SelectionListener
		node     *domain.Node
		graph    []GraphListener
		snapshot domain.Snapshot
	)
	if out.SelectionChanged && len(e.selListeners) > 0 {
		sel = append(sel, e.selListeners...)
		if n, ok := e.graph.Node(e.ctrl.Selection().Selected); ok {
			c := n.Clone()
			node = &c
		}
	}
	if out.GraphChanged && len(e.graphListeners) > 0 {
		graph = append(graph, e.graphListeners...)
		snapshot = e.graph.Snapshot()
	}
	if out.SelectionChanged {
		e.log.Debug("selection changed", zap.String("selected", e.ctrl.Selection().Selected))
	}

	return func() {
		for _, fn := range sel {
			fn(node)
		}
		for _, fn := range graph {
			fn(snapshot)
		}
	}
}

// invalidate forces the next tick to produce a frame
func (e *Engine) invalidate() {
	e.dirty = true
}

// OnSelectionChange registers fn for selection changes
func (e *Engine) OnSelectionChange(fn SelectionListener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.selListeners = append(e.selListeners, fn)
}

// OnGraphChange registers fn for user edits: finished drags, deletions and
// pin toggles.
func (e *Engine) OnGraphChange(fn GraphListener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.graphListeners = append(e.graphListeners, fn)
}

// Select sets the selected node programmatically. An unknown id clears it.
func (e *Engine) Select(id string) {
	e.mu.Lock()
	out := e.ctrl.Select(e.graph, id)
	if out.SelectionChanged {
		e.invalidate()
	}
	notify := e.collect(out)
	e.mu.Unlock()

	notify()
}

// Selection returns the selected and hovered node ids
func (e *Engine) Selection() interaction.Selection {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ctrl.Selection()
}

// Mode returns the interaction state
func (e *Engine) Mode() interaction.Mode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ctrl.Mode()
}

// SetPaused freezes or resumes live layout
func (e *Engine) SetPaused(paused bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.paused != paused {
		e.paused = paused
		e.invalidate()
		e.log.Info("layout toggled", zap.Bool("paused", paused))
	}
}

// Paused reports whether live layout is frozen
func (e *Engine) Paused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.paused
}

// SetShowLabels toggles node and edge labels
func (e *Engine) SetShowLabels(show bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.labels != show {
		e.labels = show
		e.invalidate()
	}
}

// ShowLabels reports whether labels are drawn
func (e *Engine) ShowLabels() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.labels
}

// Viewport returns the current pan and zoom
func (e *Engine) Viewport() viewport.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.view.State()
}

// ResetView restores the identity transform
func (e *Engine) ResetView() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.view.Reset()
	e.invalidate()
}

// Snapshot returns a deep copy of the graph
func (e *Engine) Snapshot() domain.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.graph.Snapshot()
}

// Stats returns graph counts
func (e *Engine) Stats() domain.Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.graph.Stats()
}

// Energy returns the kinetic energy after the last physics step
func (e *Engine) Energy() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.energy
}

// FrameSeq returns the number of frames marked so far
func (e *Engine) FrameSeq() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.frameSeq
}

func (e *Engine) scene() render.Scene {
	sel := e.ctrl.Selection()
	return render.Scene{
		Nodes:      e.graph.Nodes(),
		Edges:      e.graph.Edges(),
		View:       e.view.State(),
		Selected:   sel.Selected,
		Hovered:    sel.Hovered,
		ShowLabels: e.labels,
	}
}

// ExportImage encodes the current frame as PNG
func (e *Engine) ExportImage() ([]byte, error) {
	_, data, err := e.Frame()
	return data, err
}

// Frame returns the PNG for the latest frame and its sequence number. The
// image is cached until the sequence advances or the graph changes.
func (e *Engine) Frame() (uint64, []byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cacheValid && !e.dirty && e.cachedSeq == e.frameSeq {
		return e.frameSeq, e.cachedPNG, nil
	}
	var buf bytes.Buffer
	if err := e.renderer.PNG(&buf, e.scene()); err != nil {
		return 0, nil, err
	}
	e.cachedPNG = buf.Bytes()
	e.cachedSeq = e.frameSeq
	e.cacheValid = !e.dirty
	return e.frameSeq, e.cachedPNG, nil
}

// ExportSVG writes the current frame as SVG
func (e *Engine) ExportSVG(w io.Writer) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.renderer.SVG(w, e.scene())
}
