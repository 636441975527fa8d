package render

import (
	"fmt"
	"image/color"

	"kgview/internal/domain"
)

var (
	bgColor      = color.RGBA{0x1b, 0x1f, 0x27, 0xff}
	gridColor    = color.RGBA{0x27, 0x2d, 0x38, 0xff}
	textPrimary  = color.RGBA{0xee, 0xf0, 0xf4, 0xff}
	textMuted    = color.RGBA{0x9a, 0xa3, 0xb2, 0xff}
	legendBg     = color.RGBA{0x24, 0x29, 0x33, 0xe0}
	selectBorder = color.RGBA{0xff, 0xff, 0xff, 0xff}
	hoverBorder  = color.RGBA{0xc8, 0xd0, 0xdc, 0xff}
)

var nodeColors = map[domain.NodeType]color.RGBA{
	domain.NodeTypeEntity:    {0x4e, 0x79, 0xa7, 0xff},
	domain.NodeTypeConcept:   {0x59, 0xa1, 0x4f, 0xff},
	domain.NodeTypeDocument:  {0xed, 0xc9, 0x48, 0xff},
	domain.NodeTypeEquipment: {0xf2, 0x8e, 0x2b, 0xff},
	domain.NodeTypeFault:     {0xe1, 0x57, 0x59, 0xff},
}

var edgeColors = map[domain.EdgeType]color.RGBA{
	domain.EdgeTypeBelongsTo:  {0x8c, 0x9e, 0xb5, 0xff},
	domain.EdgeTypeRelatedTo:  {0x7a, 0x7f, 0x88, 0xff},
	domain.EdgeTypeCauses:     {0xe8, 0x7b, 0x6e, 0xff},
	domain.EdgeTypeContains:   {0x76, 0xb7, 0xb2, 0xff},
	domain.EdgeTypeInstanceOf: {0xb0, 0x7a, 0xa1, 0xff},
}

// NodeColor returns the fill color for a node type
func NodeColor(t domain.NodeType) color.RGBA {
	return nodeColors[t.Normalize()]
}

// EdgeColor returns the stroke color for an edge type
func EdgeColor(t domain.EdgeType) color.RGBA {
	return edgeColors[t.Normalize()]
}

// darken scales the color channels toward black
func darken(c color.RGBA, f float64) color.RGBA {
	return color.RGBA{
		R: uint8(float64(c.R) * f),
		G: uint8(float64(c.G) * f),
		B: uint8(float64(c.B) * f),
		A: c.A,
	}
}

func withAlpha(c color.RGBA, a uint8) color.RGBA {
	c.A = a
	return c
}

func cssColor(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
