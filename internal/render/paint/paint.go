// Package paint defines the drawing surface the renderer issues its calls
// against. Coordinates are page pixels with y growing downwards.
package paint

import (
	"image"
	"image/color"

	"seehuhn.de/go/geom/path"
	"seehuhn.de/go/geom/vec"
	"seehuhn.de/go/pdf/graphics"

	"github.com/beetlebugorg/osmrender/internal/geo"
)

// StrokeStyle describes how a path outline is painted.
type StrokeStyle struct {
	Color color.NRGBA
	Width float64

	// Dash alternates on and off lengths in units of Width. Nil strokes a
	// solid line.
	Dash []float64

	Cap  graphics.LineCapStyle
	Join graphics.LineJoinStyle
}

// Anchor selects which part of a text run sits at the reference point.
type Anchor int

const (
	AnchorCenter Anchor = iota
	AnchorStart
	AnchorEnd
)

// TextStyle describes a text run laid along a path.
type TextStyle struct {
	Text   string
	Color  color.NRGBA
	Size   float64
	Anchor Anchor
}

// Painter is a 2D drawing surface.
type Painter interface {
	// FillPath fills p with the non-zero winding rule.
	FillPath(p *path.Data, c color.NRGBA)

	StrokePath(p *path.Data, s StrokeStyle)

	// DrawImage scales img into the rectangle with top-left corner (x, y).
	DrawImage(img image.Image, x, y, w, h float64)

	// FillTextOnPath lays t along p. The anchor point sits at reference,
	// a fraction of the path's length.
	FillTextOnPath(p *path.Data, t TextStyle, reference float64)

	// StrokeTextOnPath strokes the glyph outlines, for halos.
	StrokeTextOnPath(p *path.Data, t TextStyle, width, reference float64)
}

// MaskFiller is implemented by painters that can fill polygons with holes
// by masking the inner rings out of the outer ones.
type MaskFiller interface {
	FillMasked(outer, inner []*path.Data, c color.NRGBA)
}

// Annotator is implemented by painters that want to know which instruction
// and layer the following calls belong to.
type Annotator interface {
	Annotate(layer int, in *geo.DrawInstruction)
}

// ImageLoader resolves icon names to images.
type ImageLoader interface {
	LoadImage(name string) (image.Image, error)
}

// Polyline builds an open or closed path through pts.
func Polyline(pts []vec.Vec2, closed bool) *path.Data {
	p := &path.Data{}
	for i, pt := range pts {
		if i == 0 {
			p.MoveTo(pt)
		} else {
			p.LineTo(pt)
		}
	}
	if closed && len(pts) > 0 {
		p.Close()
	}
	return p
}

// Length returns the length of a path made of straight segments. Curve
// segments are measured along their control polygon.
func Length(p *path.Data) float64 {
	var total float64
	var cur, start vec.Vec2
	i := 0
	for _, cmd := range p.Cmds {
		switch cmd {
		case path.CmdMoveTo:
			cur = p.Coords[i]
			start = cur
			i++
		case path.CmdLineTo:
			total += p.Coords[i].Sub(cur).Length()
			cur = p.Coords[i]
			i++
		case path.CmdQuadTo:
			total += p.Coords[i].Sub(cur).Length() + p.Coords[i+1].Sub(p.Coords[i]).Length()
			cur = p.Coords[i+1]
			i += 2
		case path.CmdCubeTo:
			total += p.Coords[i].Sub(cur).Length() + p.Coords[i+1].Sub(p.Coords[i]).Length() +
				p.Coords[i+2].Sub(p.Coords[i+1]).Length()
			cur = p.Coords[i+2]
			i += 3
		case path.CmdClose:
			total += start.Sub(cur).Length()
			cur = start
		}
	}
	return total
}
