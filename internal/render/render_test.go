package render

import (
	"bytes"
	"image/color"
	"image/png"
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kgview/internal/domain"
	"kgview/internal/viewport"
)

func testScene() Scene {
	nodes := []*domain.Node{
		{ID: "pump", Label: "Feed Pump", Type: domain.NodeTypeEquipment, Position: domain.Vec{X: 400, Y: 300}},
		{ID: "seal", Label: "Seal wear", Type: domain.NodeTypeFault, Position: domain.Vec{X: 600, Y: 300}},
		{ID: "manual", Label: "<b>Manual</b>", Type: domain.NodeTypeDocument, Position: domain.Vec{X: 500, Y: 500}},
	}
	edges := []*domain.Edge{
		{ID: "e1", Source: "seal", Target: "pump", Type: domain.EdgeTypeCauses},
		{ID: "e2", Source: "manual", Target: "pump", Type: domain.EdgeTypeRelatedTo, Label: "describes"},
		{ID: "dangling", Source: "manual", Target: "ghost", Type: domain.EdgeTypeRelatedTo},
	}
	return Scene{Nodes: nodes, Edges: edges, View: viewport.State{Scale: 1}, ShowLabels: true}
}

func newRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := New(DefaultOptions())
	require.NoError(t, err)
	return r
}

func closeTo(t *testing.T, want color.RGBA, got color.Color) {
	t.Helper()
	r, g, b, _ := got.RGBA()
	diff := func(a uint8, b uint32) float64 { return math.Abs(float64(a) - float64(b>>8)) }
	assert.LessOrEqual(t, diff(want.R, r), 2.0, "red: want %v got %v", want, got)
	assert.LessOrEqual(t, diff(want.G, g), 2.0, "green: want %v got %v", want, got)
	assert.LessOrEqual(t, diff(want.B, b), 2.0, "blue: want %v got %v", want, got)
}

func TestImageSize(t *testing.T) {
	r, err := New(Options{Width: 640, Height: 480})
	require.NoError(t, err)
	img := r.Image(testScene())
	assert.Equal(t, 640, img.Bounds().Dx())
	assert.Equal(t, 480, img.Bounds().Dy())
}

func TestNodesUseTypeColor(t *testing.T) {
	r := newRenderer(t)
	for _, scale := range []float64{0.5, 1, 1.5} {
		s := testScene()
		s.View = viewport.State{Scale: scale}
		img := r.Image(s)

		for _, n := range s.Nodes {
			c := s.View.WorldToSurface(n.Position)
			// Above the glyph text, inside the disc.
			y := c.Y - 0.65*r.opts.NodeRadius*scale
			closeTo(t, NodeColor(n.Type), img.At(int(math.Round(c.X)), int(math.Round(y))))
		}
	}
}

func TestBackgroundAwayFromNodes(t *testing.T) {
	r := newRenderer(t)
	img := r.Image(Scene{View: viewport.State{Scale: 1}})
	// (1190, 10) sits between grid lines and away from the legend.
	closeTo(t, bgColor, img.At(1190, 10))
}

func TestRenderDoesNotMutateScene(t *testing.T) {
	r := newRenderer(t)
	s := testScene()
	s.Selected, s.Hovered = "pump", "seal"

	before := make([]domain.Node, len(s.Nodes))
	for i, n := range s.Nodes {
		before[i] = n.Clone()
	}
	edges := make([]domain.Edge, len(s.Edges))
	for i, e := range s.Edges {
		edges[i] = *e
	}

	r.Image(s)
	require.NoError(t, r.SVG(&bytes.Buffer{}, s))

	after := make([]domain.Node, len(s.Nodes))
	for i, n := range s.Nodes {
		after[i] = n.Clone()
	}
	afterEdges := make([]domain.Edge, len(s.Edges))
	for i, e := range s.Edges {
		afterEdges[i] = *e
	}
	if diff := cmp.Diff(before, after); diff != "" {
		t.Errorf("nodes changed (-before +after):\n%s", diff)
	}
	if diff := cmp.Diff(edges, afterEdges); diff != "" {
		t.Errorf("edges changed (-before +after):\n%s", diff)
	}
}

func TestLayoutDecoratesSelection(t *testing.T) {
	s := testScene()
	s.Selected, s.Hovered = "pump", "seal"
	f := layout(s, DefaultOptions())

	require.Len(t, f.nodes, 3)
	last := f.nodes[len(f.nodes)-1]
	assert.Equal(t, selectBorder, last.border, "selected node is drawn last")
	assert.True(t, last.halo)
	assert.Greater(t, last.borderWidth, f.nodes[0].borderWidth)

	hovered := f.nodes[len(f.nodes)-2]
	assert.Equal(t, hoverBorder, hovered.border)
	assert.True(t, hovered.halo)
	assert.False(t, f.nodes[0].halo)
}

func TestLayoutEdges(t *testing.T) {
	s := testScene()
	opts := DefaultOptions()
	f := layout(s, opts)

	require.Len(t, f.edges, 2, "dangling edge is skipped")
	e := f.edges[0]
	tip := e.arrow[0]
	target := s.Nodes[0].Position
	assert.InDelta(t, opts.NodeRadius, tip.Sub(target).Len(), 1e-9, "arrow tip sits on the target rim")
	assert.Equal(t, EdgeColor(domain.EdgeTypeCauses), e.color)
	assert.Equal(t, "causes", e.label)
	assert.Equal(t, "describes", f.edges[1].label)

	s.ShowLabels = false
	f = layout(s, opts)
	assert.Empty(t, f.edges[0].label)
	assert.Empty(t, f.nodes[0].label)
}

func TestGridStaysBoundedWhenZoomedOut(t *testing.T) {
	opts := DefaultOptions()
	lines := gridLines(viewport.State{Scale: 0.2, PanX: 5000, PanY: -3000}, opts)
	assert.NotEmpty(t, lines)
	assert.LessOrEqual(t, len(lines), (opts.Width+opts.Height)/int(minGridPixels)+4)
}

func TestGridHandlesExtremePan(t *testing.T) {
	opts := DefaultOptions()
	limit := (opts.Width+opts.Height)/int(minGridPixels) + 4
	for _, pan := range []float64{1e17, -1e17, 1e300, -1e300, math.Inf(1), math.NaN()} {
		lines := gridLines(viewport.State{Scale: 1, PanX: pan, PanY: pan}, opts)
		assert.LessOrEqual(t, len(lines), limit, "pan %v", pan)
	}
}

func TestPNG(t *testing.T) {
	r := newRenderer(t)
	var buf bytes.Buffer
	require.NoError(t, r.PNG(&buf, testScene()))

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, 1200, img.Bounds().Dx())
}

func TestSVG(t *testing.T) {
	r := newRenderer(t)
	var buf bytes.Buffer
	require.NoError(t, r.SVG(&buf, testScene()))
	out := buf.String()

	assert.True(t, strings.HasPrefix(strings.TrimSpace(out), "<?xml"))
	assert.Contains(t, out, "</svg>")
	assert.Contains(t, out, cssColor(NodeColor(domain.NodeTypeFault)))
	assert.Contains(t, out, "&lt;b&gt;Manual&lt;/b&gt;", "labels are escaped")
	assert.NotContains(t, out, "<b>")
}

func TestAbbreviate(t *testing.T) {
	tests := []struct {
		label, id, want string
	}{
		{"Feed Pump", "p", "FP"},
		{"pump", "p", "PU"},
		{"seal-wear-ring", "s", "SW"},
		{"", "x9", "X9"},
		{"  ", "ab", "AB"},
		{"ölpumpe", "o", "ÖL"},
	}
	for _, tt := range tests {
		got := Abbreviate(&domain.Node{ID: tt.id, Label: tt.label})
		assert.Equal(t, tt.want, got, "label %q", tt.label)
	}
}

func TestDisplayLabelTruncates(t *testing.T) {
	n := &domain.Node{ID: "x", Label: strings.Repeat("a", 40)}
	got := DisplayLabel(n)
	assert.Equal(t, maxLabelRunes, len([]rune(got)))
	assert.True(t, strings.HasSuffix(got, "…"))
}

func TestGlyphTextHiddenWhenNodesAreTiny(t *testing.T) {
	s := testScene()
	s.View = viewport.State{Scale: 0.3}
	for _, n := range layout(s, DefaultOptions()).nodes {
		assert.Empty(t, n.abbrev)
	}
	s.View = viewport.State{Scale: 1}
	assert.Equal(t, "FP", layout(s, DefaultOptions()).nodes[0].abbrev)
}
