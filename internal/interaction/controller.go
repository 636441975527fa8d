// Package interaction turns raw pointer, wheel and keyboard events into
// viewport changes, node drags and selection updates.
//
// The controller is an explicit state machine with three modes:
//
//	Idle ──down on node──▶ NodeDragging ──up──▶ Idle
//	Idle ──down on empty─▶ Panning      ──up──▶ Idle
//
// Wheel events zoom in every mode. Moves while no button is held only update
// the hovered node.
package interaction

import (
	"kgview/internal/domain"
	"kgview/internal/viewport"
)

// DefaultDeadZone is the pointer travel, in surface pixels, below which a
// press and release count as a click rather than a drag.
const DefaultDeadZone = 4.0

// Mode is the controller's gesture state
type Mode int

const (
	Idle Mode = iota
	Panning
	NodeDragging
)

func (m Mode) String() string {
	switch m {
	case Idle:
		return "idle"
	case Panning:
		return "panning"
	case NodeDragging:
		return "node_dragging"
	}
	return "unknown"
}

// Selection holds at most one selected and one hovered node id. Empty means none.
type Selection struct {
	Selected string `json:"selected"`
	Hovered  string `json:"hovered"`
}

// Outcome reports what an event changed
type Outcome struct {
	SelectionChanged bool
	HoverChanged     bool
	ViewChanged      bool
	NodeMoved        bool
	// GraphChanged marks a user edit that should be republished: a finished
	// drag, a deletion or a pin toggle.
	GraphChanged bool
	Removed      []string
	TogglePause  bool
	ToggleLabels bool
}

// Visual reports whether the frame needs redrawing
func (o Outcome) Visual() bool {
	return o.SelectionChanged || o.HoverChanged || o.ViewChanged || o.NodeMoved ||
		o.GraphChanged || o.ToggleLabels
}

// Merge folds other into o
func (o *Outcome) Merge(other Outcome) {
	o.SelectionChanged = o.SelectionChanged || other.SelectionChanged
	o.HoverChanged = o.HoverChanged || other.HoverChanged
	o.ViewChanged = o.ViewChanged || other.ViewChanged
	o.NodeMoved = o.NodeMoved || other.NodeMoved
	o.GraphChanged = o.GraphChanged || other.GraphChanged
	o.Removed = append(o.Removed, other.Removed...)
	o.TogglePause = o.TogglePause != other.TogglePause
	o.ToggleLabels = o.ToggleLabels != other.ToggleLabels
}

// Controller is the interaction state machine. It is not safe for
// concurrent use.
type Controller struct {
	tester   HitTester
	bounds   domain.Rect
	deadZone float64

	mode      Mode
	press     domain.Vec
	last      domain.Vec
	moved     bool
	dragged   string
	wasPinned bool
	selection Selection
}

// NewController creates an idle controller. Dragged nodes are kept inside bounds.
func NewController(tester HitTester, bounds domain.Rect) *Controller {
	return &Controller{
		tester:   tester,
		bounds:   bounds,
		deadZone: DefaultDeadZone,
	}
}

// Mode returns the current gesture state
func (c *Controller) Mode() Mode { return c.mode }

// Selection returns the current selection
func (c *Controller) Selection() Selection { return c.selection }

// Dragged returns the id of the node being dragged, if any
func (c *Controller) Dragged() string { return c.dragged }

// Select sets the selected node. An unknown id clears the selection.
func (c *Controller) Select(g *domain.Graph, id string) Outcome {
	if id != "" && !g.HasNode(id) {
		id = ""
	}
	return c.setSelected(id)
}

// Handle applies one event
func (c *Controller) Handle(ev Event, g *domain.Graph, v *viewport.Viewport) Outcome {
	switch ev.Kind {
	case PointerDown:
		return c.pointerDown(ev, g, v)
	case PointerMove:
		return c.pointerMove(ev, g, v)
	case PointerUp:
		return c.pointerUp(ev, g, v)
	case Wheel:
		return Outcome{ViewChanged: v.Wheel(ev.Delta, ev.Pos)}
	case Key:
		return c.key(ev, g, v)
	}
	return Outcome{}
}

func (c *Controller) pointerDown(ev Event, g *domain.Graph, v *viewport.Viewport) Outcome {
	if !ev.Primary || !ev.Pos.Finite() {
		return Outcome{}
	}

	// A press without a matching release finishes the previous gesture.
	out := c.release(g)

	c.press, c.last, c.moved = ev.Pos, ev.Pos, false
	hit, ok := c.tester.Hit(g.Nodes(), v.State(), ev.Pos)
	if !ok {
		c.mode = Panning
		return out
	}

	c.mode = NodeDragging
	c.dragged = hit.ID
	c.wasPinned = hit.Pinned
	hit.Pinned = true
	hit.Velocity = domain.Vec{}
	out.Merge(c.setSelected(hit.ID))
	return out
}

func (c *Controller) pointerMove(ev Event, g *domain.Graph, v *viewport.Viewport) Outcome {
	if !ev.Pos.Finite() {
		return Outcome{}
	}

	var out Outcome
	switch c.mode {
	case Panning:
		delta := ev.Pos.Sub(c.last)
		if delta != (domain.Vec{}) {
			v.PanBy(delta)
			out.ViewChanged = true
		}
		c.trackTravel(ev.Pos)
	case NodeDragging:
		n, ok := g.Node(c.dragged)
		if !ok {
			c.reset()
			return out
		}
		c.trackTravel(ev.Pos)
		if c.moved {
			n.Position = c.bounds.Clamp(v.SurfaceToWorld(ev.Pos))
			n.Velocity = domain.Vec{}
			out.NodeMoved = true
		}
	default:
		out = c.hover(g, v, ev.Pos)
	}
	c.last = ev.Pos
	return out
}

func (c *Controller) pointerUp(ev Event, g *domain.Graph, v *viewport.Viewport) Outcome {
	var out Outcome
	if c.mode == Panning && !c.moved && c.selection.Selected != "" {
		// Background click.
		out = c.setSelected("")
	}
	out.Merge(c.release(g))
	if ev.Pos.Finite() {
		out.Merge(c.hover(g, v, ev.Pos))
	}
	return out
}

func (c *Controller) key(ev Event, g *domain.Graph, v *viewport.Viewport) Outcome {
	switch ev.Key {
	case KeyDelete, KeyBackspace:
		id := c.selection.Selected
		if id == "" || !g.HasNode(id) {
			return Outcome{}
		}
		out := c.release(g)
		if _, err := g.RemoveNode(id); err != nil {
			return out
		}
		out.Merge(c.Forget(id))
		out.GraphChanged = true
		out.Removed = append(out.Removed, id)
		return out
	case KeyEscape:
		return c.setSelected("")
	case KeySpace:
		return Outcome{TogglePause: true}
	case KeyLabels:
		return Outcome{ToggleLabels: true}
	case KeyResetView:
		before := v.State()
		v.Reset()
		return Outcome{ViewChanged: before != v.State()}
	case KeyPin:
		n, ok := g.Node(c.selection.Selected)
		if !ok {
			return Outcome{}
		}
		if c.mode == NodeDragging && c.dragged == n.ID {
			c.wasPinned = !c.wasPinned
		} else {
			n.Pinned = !n.Pinned
			n.Velocity = domain.Vec{}
		}
		return Outcome{GraphChanged: true}
	}
	return Outcome{}
}

// Forget drops every reference to a node that no longer exists
func (c *Controller) Forget(id string) Outcome {
	var out Outcome
	if c.dragged == id {
		c.reset()
	}
	if c.selection.Selected == id {
		out.Merge(c.setSelected(""))
	}
	if c.selection.Hovered == id {
		c.selection.Hovered = ""
		out.HoverChanged = true
	}
	return out
}

// Prune forgets every referenced node that is missing from g
func (c *Controller) Prune(g *domain.Graph) Outcome {
	var out Outcome
	for _, id := range []string{c.dragged, c.selection.Selected, c.selection.Hovered} {
		if id != "" && !g.HasNode(id) {
			out.Merge(c.Forget(id))
		}
	}
	return out
}

// release ends a drag or pan, restoring the dragged node's pin state
func (c *Controller) release(g *domain.Graph) Outcome {
	var out Outcome
	if c.mode == NodeDragging {
		if n, ok := g.Node(c.dragged); ok {
			n.Pinned = c.wasPinned
			n.Velocity = domain.Vec{}
			out.GraphChanged = c.moved
		}
	}
	c.reset()
	return out
}

func (c *Controller) reset() {
	c.mode = Idle
	c.dragged = ""
	c.wasPinned = false
	c.moved = false
}

func (c *Controller) trackTravel(p domain.Vec) {
	if !c.moved && p.Sub(c.press).Len() > c.deadZone {
		c.moved = true
	}
}

func (c *Controller) hover(g *domain.Graph, v *viewport.Viewport, p domain.Vec) Outcome {
	id := ""
	if n, ok := c.tester.Hit(g.Nodes(), v.State(), p); ok {
		id = n.ID
	}
	if id == c.selection.Hovered {
		return Outcome{}
	}
	c.selection.Hovered = id
	return Outcome{HoverChanged: true}
}

func (c *Controller) setSelected(id string) Outcome {
	if c.selection.Selected == id {
		return Outcome{}
	}
	c.selection.Selected = id
	return Outcome{SelectionChanged: true}
}
