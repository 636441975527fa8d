package render

import (
	"image/color"
	"math"

	"kgview/internal/domain"
	"kgview/internal/viewport"
)

// Scene is everything one frame depends on. The renderer only reads it.
type Scene struct {
	Nodes      []*domain.Node
	Edges      []*domain.Edge
	View       viewport.State
	Selected   string
	Hovered    string
	ShowLabels bool
}

// Options controls frame geometry and decoration
type Options struct {
	Width       int     `yaml:"width"`
	Height      int     `yaml:"height"`
	NodeRadius  float64 `yaml:"node_radius"`  // world units
	GridSpacing float64 `yaml:"grid_spacing"` // world units, 0 disables the grid
	FontSize    float64 `yaml:"font_size"`
	Legend      bool    `yaml:"legend"`
}

// DefaultOptions matches the default physics world of 1200x800
func DefaultOptions() Options {
	return Options{
		Width:       1200,
		Height:      800,
		NodeRadius:  15,
		GridSpacing: 50,
		FontSize:    12,
		Legend:      true,
	}
}

// Normalize replaces out-of-range values with defaults
func (o Options) Normalize() Options {
	d := DefaultOptions()
	if o.Width <= 0 {
		o.Width = d.Width
	}
	if o.Height <= 0 {
		o.Height = d.Height
	}
	if !(o.NodeRadius > 0) {
		o.NodeRadius = d.NodeRadius
	}
	if o.GridSpacing < 0 || math.IsNaN(o.GridSpacing) {
		o.GridSpacing = 0
	}
	if !(o.FontSize > 0) {
		o.FontSize = d.FontSize
	}
	return o
}

const (
	minGridPixels = 8.0
	arrowLength   = 10.0
	arrowWidth    = 5.0
	haloPadding   = 6.0
)

type gridLine struct {
	from, to domain.Vec
}

type edgeShape struct {
	from, to domain.Vec
	arrow    [3]domain.Vec
	color    color.RGBA
	label    string
	mid      domain.Vec
}

type nodeShape struct {
	center      domain.Vec
	radius      float64
	fill        color.RGBA
	border      color.RGBA
	borderWidth float64
	halo        bool
	abbrev      string
	label       string
}

// frame is a scene resolved into surface-space primitives, shared by the
// raster and vector backends so both draw the same picture.
type frame struct {
	width, height int
	grid          []gridLine
	edges         []edgeShape
	nodes         []nodeShape
	labels        bool
}

func layout(s Scene, o Options) frame {
	f := frame{width: o.Width, height: o.Height, labels: s.ShowLabels}
	view := s.View
	if !(view.Scale > 0) {
		view.Scale = 1
	}
	f.grid = gridLines(view, o)

	r := o.NodeRadius * view.Scale
	byID := make(map[string]*domain.Node, len(s.Nodes))
	for _, n := range s.Nodes {
		byID[n.ID] = n
	}

	for _, e := range s.Edges {
		src, ok1 := byID[e.Source]
		dst, ok2 := byID[e.Target]
		if !ok1 || !ok2 || src == dst {
			continue
		}
		if shape, ok := edgeGeometry(view.WorldToSurface(src.Position), view.WorldToSurface(dst.Position), r); ok {
			shape.color = EdgeColor(e.Type)
			if s.ShowLabels {
				shape.label = edgeLabel(e)
			}
			f.edges = append(f.edges, shape)
		}
	}

	// Selected and hovered nodes are drawn last so their halo stays visible.
	var top []nodeShape
	for _, n := range s.Nodes {
		shape := nodeShape{
			center:      view.WorldToSurface(n.Position),
			radius:      r,
			fill:        NodeColor(n.Type),
			border:      darken(NodeColor(n.Type), 0.6),
			borderWidth: 1.5,
		}
		if r >= o.FontSize*0.9 {
			shape.abbrev = Abbreviate(n)
		}
		if s.ShowLabels {
			shape.label = DisplayLabel(n)
		}
		switch n.ID {
		case s.Selected:
			shape.border, shape.borderWidth, shape.halo = selectBorder, 3, true
			top = append(top, shape)
		case s.Hovered:
			shape.border, shape.borderWidth, shape.halo = hoverBorder, 2, true
			top = append([]nodeShape{shape}, top...)
		default:
			f.nodes = append(f.nodes, shape)
		}
	}
	f.nodes = append(f.nodes, top...)
	return f
}

// edgeGeometry trims the segment to both node rims and places the arrowhead
// tip on the target rim.
func edgeGeometry(a, b domain.Vec, r float64) (edgeShape, bool) {
	d := b.Sub(a)
	length := d.Len()
	if length <= 2*r || !a.Finite() || !b.Finite() {
		return edgeShape{}, false
	}
	dir := d.Scale(1 / length)
	perp := domain.Vec{X: -dir.Y, Y: dir.X}

	tip := b.Sub(dir.Scale(r))
	base := tip.Sub(dir.Scale(arrowLength))
	return edgeShape{
		from: a.Add(dir.Scale(r)),
		to:   base,
		arrow: [3]domain.Vec{
			tip,
			base.Add(perp.Scale(arrowWidth)),
			base.Sub(perp.Scale(arrowWidth)),
		},
		mid: a.Add(b).Scale(0.5),
	}, true
}

func gridLines(view viewport.State, o Options) []gridLine {
	if o.GridSpacing <= 0 {
		return nil
	}
	spacing := o.GridSpacing
	for spacing*view.Scale < minGridPixels {
		spacing *= 2
	}

	w, h := float64(o.Width), float64(o.Height)
	lo := view.SurfaceToWorld(domain.Vec{})
	hi := view.SurfaceToWorld(domain.Vec{X: w, Y: h})

	if !lo.Finite() || !hi.Finite() {
		return nil
	}

	// Lines are counted rather than accumulated: at large pan offsets adding
	// spacing no longer changes the coordinate.
	x0 := math.Floor(lo.X/spacing) * spacing
	y0 := math.Floor(lo.Y/spacing) * spacing
	nx := gridCount(x0, hi.X, spacing, w)
	ny := gridCount(y0, hi.Y, spacing, h)

	lines := make([]gridLine, 0, nx+ny)
	for i := 0; i < nx; i++ {
		sx := view.WorldToSurface(domain.Vec{X: x0 + float64(i)*spacing}).X
		lines = append(lines, gridLine{domain.Vec{X: sx}, domain.Vec{X: sx, Y: h}})
	}
	for i := 0; i < ny; i++ {
		sy := view.WorldToSurface(domain.Vec{Y: y0 + float64(i)*spacing}).Y
		lines = append(lines, gridLine{domain.Vec{Y: sy}, domain.Vec{X: w, Y: sy}})
	}
	return lines
}

// gridCount is the number of lines from start to end, never more than fit on
// a surface of the given extent at the minimum line gap
func gridCount(start, end, spacing, extent float64) int {
	limit := int(extent/minGridPixels) + 2
	n := math.Floor((end-start)/spacing) + 1
	if !(n > 0) {
		return 0
	}
	if n > float64(limit) {
		return limit
	}
	return int(n)
}

type legendEntry struct {
	color color.RGBA
	label string
}

func legendEntries() []legendEntry {
	entries := make([]legendEntry, 0, len(domain.NodeTypes))
	for _, t := range domain.NodeTypes {
		entries = append(entries, legendEntry{NodeColor(t), string(t)})
	}
	return entries
}
