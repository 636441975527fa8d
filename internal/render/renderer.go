// Package render draws a graph scene to a raster image or an SVG document.
//
// Draw order is fixed: background and grid, edges with arrowheads and
// optional midpoint labels, nodes with selection and hover decoration,
// node labels, then the type legend.
package render

import (
	"fmt"
	"image"
	"io"

	"github.com/fogleman/gg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// Renderer draws scenes with the Go Regular font. It is not safe for
// concurrent use because font faces keep per-draw state.
type Renderer struct {
	opts  Options
	face  font.Face
	small font.Face
}

// New parses the embedded font and creates a renderer
func New(opts Options) (*Renderer, error) {
	opts = opts.Normalize()
	fnt, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	face, err := opentype.NewFace(fnt, &opentype.FaceOptions{
		Size:    opts.FontSize,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("create font face: %w", err)
	}
	small, err := opentype.NewFace(fnt, &opentype.FaceOptions{
		Size:    opts.FontSize * 0.85,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("create font face: %w", err)
	}
	return &Renderer{opts: opts, face: face, small: small}, nil
}

// Options returns the normalized options
func (r *Renderer) Options() Options { return r.opts }

// Image draws the scene and returns the raster
func (r *Renderer) Image(s Scene) image.Image {
	return r.draw(s).Image()
}

// PNG draws the scene and encodes it as PNG into w
func (r *Renderer) PNG(w io.Writer, s Scene) error {
	if err := r.draw(s).EncodePNG(w); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

func (r *Renderer) draw(s Scene) *gg.Context {
	f := layout(s, r.opts)
	dc := gg.NewContext(f.width, f.height)

	dc.SetColor(bgColor)
	dc.Clear()

	dc.SetColor(gridColor)
	dc.SetLineWidth(1)
	for _, l := range f.grid {
		dc.DrawLine(l.from.X, l.from.Y, l.to.X, l.to.Y)
	}
	dc.Stroke()

	dc.SetFontFace(r.small)
	for _, e := range f.edges {
		drawEdge(dc, e)
	}

	for _, n := range f.nodes {
		drawNode(dc, n)
	}

	dc.SetFontFace(r.face)
	for _, n := range f.nodes {
		if n.abbrev != "" {
			dc.SetColor(textPrimary)
			dc.DrawStringAnchored(n.abbrev, n.center.X, n.center.Y, 0.5, 0.35)
		}
		if f.labels && n.label != "" {
			dc.SetColor(textMuted)
			dc.DrawStringAnchored(n.label, n.center.X, n.center.Y+n.radius+4, 0.5, 1)
		}
	}

	if r.opts.Legend {
		r.drawLegend(dc)
	}
	return dc
}

func drawEdge(dc *gg.Context, e edgeShape) {
	dc.SetColor(e.color)
	dc.SetLineWidth(1.5)
	dc.DrawLine(e.from.X, e.from.Y, e.to.X, e.to.Y)
	dc.Stroke()

	dc.MoveTo(e.arrow[0].X, e.arrow[0].Y)
	dc.LineTo(e.arrow[1].X, e.arrow[1].Y)
	dc.LineTo(e.arrow[2].X, e.arrow[2].Y)
	dc.ClosePath()
	dc.Fill()

	if e.label != "" {
		w, h := dc.MeasureString(e.label)
		dc.SetColor(withAlpha(bgColor, 0xc0))
		dc.DrawRoundedRectangle(e.mid.X-w/2-3, e.mid.Y-h/2-2, w+6, h+4, 3)
		dc.Fill()
		dc.SetColor(textMuted)
		dc.DrawStringAnchored(e.label, e.mid.X, e.mid.Y, 0.5, 0.35)
	}
}

func drawNode(dc *gg.Context, n nodeShape) {
	if n.halo {
		dc.SetColor(withAlpha(n.border, 0x50))
		dc.DrawCircle(n.center.X, n.center.Y, n.radius+haloPadding)
		dc.Fill()
	}
	dc.SetColor(n.fill)
	dc.DrawCircle(n.center.X, n.center.Y, n.radius)
	dc.Fill()

	dc.SetColor(n.border)
	dc.SetLineWidth(n.borderWidth)
	dc.DrawCircle(n.center.X, n.center.Y, n.radius)
	dc.Stroke()
}

func (r *Renderer) drawLegend(dc *gg.Context) {
	entries := legendEntries()
	const (
		boxW = 130.0
		row  = 20.0
	)
	boxH := 16 + row*float64(len(entries))
	x := 12.0
	y := float64(r.opts.Height) - boxH - 12

	dc.SetColor(legendBg)
	dc.DrawRoundedRectangle(x, y, boxW, boxH, 6)
	dc.Fill()

	dc.SetFontFace(r.small)
	for i, e := range entries {
		iy := y + 18 + float64(i)*row
		dc.SetColor(e.color)
		dc.DrawCircle(x+16, iy, 6)
		dc.Fill()
		dc.SetColor(textPrimary)
		dc.DrawStringAnchored(e.label, x+30, iy, 0, 0.35)
	}
}
