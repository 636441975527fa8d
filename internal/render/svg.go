package render

import (
	"bufio"
	"fmt"
	"io"
	"math"

	svg "github.com/ajstarks/svgo"
)

// SVG writes the scene as an SVG document with the same layout as the raster
func (r *Renderer) SVG(w io.Writer, s Scene) error {
	bw := bufio.NewWriter(w)
	f := layout(s, r.opts)

	canvas := svg.New(bw)
	canvas.Start(f.width, f.height)
	canvas.Rect(0, 0, f.width, f.height, "fill:"+cssColor(bgColor))

	if len(f.grid) > 0 {
		canvas.Gstyle(fmt.Sprintf("stroke:%s;stroke-width:1", cssColor(gridColor)))
		for _, l := range f.grid {
			canvas.Line(px(l.from.X), px(l.from.Y), px(l.to.X), px(l.to.Y))
		}
		canvas.Gend()
	}

	for _, e := range f.edges {
		c := cssColor(e.color)
		canvas.Line(px(e.from.X), px(e.from.Y), px(e.to.X), px(e.to.Y),
			fmt.Sprintf("stroke:%s;stroke-width:1.5", c))
		canvas.Polygon(
			[]int{px(e.arrow[0].X), px(e.arrow[1].X), px(e.arrow[2].X)},
			[]int{px(e.arrow[0].Y), px(e.arrow[1].Y), px(e.arrow[2].Y)},
			"fill:"+c)
		if e.label != "" {
			canvas.Text(px(e.mid.X), px(e.mid.Y), e.label, r.textStyle(cssColor(textMuted), 0.85, "middle"))
		}
	}

	for _, n := range f.nodes {
		cx, cy, rad := px(n.center.X), px(n.center.Y), px(n.radius)
		if n.halo {
			canvas.Circle(cx, cy, rad+int(haloPadding),
				fmt.Sprintf("fill:%s;fill-opacity:0.3", cssColor(n.border)))
		}
		canvas.Circle(cx, cy, rad, fmt.Sprintf("fill:%s;stroke:%s;stroke-width:%g",
			cssColor(n.fill), cssColor(n.border), n.borderWidth))
		if n.abbrev != "" {
			canvas.Text(cx, cy+int(r.opts.FontSize*0.35), n.abbrev, r.textStyle(cssColor(textPrimary), 1, "middle"))
		}
		if f.labels && n.label != "" {
			canvas.Text(cx, cy+rad+4+int(r.opts.FontSize), n.label, r.textStyle(cssColor(textMuted), 1, "middle"))
		}
	}

	if r.opts.Legend {
		entries := legendEntries()
		boxH := 16 + 20*len(entries)
		x, y := 12, f.height-boxH-12
		canvas.Roundrect(x, y, 130, boxH, 6, 6, fmt.Sprintf("fill:%s;fill-opacity:0.88", cssColor(legendBg)))
		for i, e := range entries {
			iy := y + 18 + i*20
			canvas.Circle(x+16, iy, 6, "fill:"+cssColor(e.color))
			canvas.Text(x+30, iy+4, e.label, r.textStyle(cssColor(textPrimary), 0.85, "start"))
		}
	}

	canvas.End()
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write svg: %w", err)
	}
	return nil
}

func (r *Renderer) textStyle(fill string, size float64, anchor string) string {
	return fmt.Sprintf("fill:%s;font-size:%gpx;font-family:Go,sans-serif;text-anchor:%s",
		fill, math.Round(r.opts.FontSize*size*10)/10, anchor)
}

func px(f float64) int {
	return int(math.Round(f))
}
