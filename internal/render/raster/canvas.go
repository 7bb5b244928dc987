// Package raster paints onto an RGBA image. It implements paint.Painter
// with golang.org/x/image/vector for coverage, its own stroker and
// golang.org/x/image/font/sfnt for labels.
package raster

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/vector"
	"seehuhn.de/go/geom/path"
	"seehuhn.de/go/geom/vec"
	"seehuhn.de/go/pdf/graphics"

	"github.com/beetlebugorg/osmrender/internal/render/paint"
)

// Canvas is a paint.Painter backed by an *image.NRGBA. It is not safe for
// concurrent use; tile workers each own one.
type Canvas struct {
	img  *image.NRGBA
	ras  *vector.Rasterizer
	text *typesetter
}

var (
	_ paint.Painter    = (*Canvas)(nil)
	_ paint.MaskFiller = (*Canvas)(nil)
)

// NewCanvas creates a transparent w×h canvas.
func NewCanvas(w, h int) *Canvas {
	return &Canvas{
		img:  image.NewNRGBA(image.Rect(0, 0, w, h)),
		ras:  vector.NewRasterizer(w, h),
		text: newTypesetter(),
	}
}

// Image returns the painted image.
func (c *Canvas) Image() *image.NRGBA {
	return c.img
}

// EncodePNG writes the canvas as PNG.
func (c *Canvas) EncodePNG(w io.Writer) error {
	if err := png.Encode(w, c.img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

// PNG returns the PNG encoding of the canvas.
func (c *Canvas) PNG() ([]byte, error) {
	var buf bytes.Buffer
	if err := c.EncodePNG(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (c *Canvas) reset() {
	b := c.img.Bounds()
	c.ras.Reset(b.Dx(), b.Dy())
}

// addPath feeds p to the rasterizer. Open subpaths are closed implicitly.
func (c *Canvas) addPath(p *path.Data) {
	i := 0
	open := false
	for _, cmd := range p.Cmds {
		switch cmd {
		case path.CmdMoveTo:
			if open {
				c.ras.ClosePath()
			}
			pt := p.Coords[i]
			c.ras.MoveTo(float32(pt.X), float32(pt.Y))
			open = true
			i++
		case path.CmdLineTo:
			pt := p.Coords[i]
			c.ras.LineTo(float32(pt.X), float32(pt.Y))
			i++
		case path.CmdQuadTo:
			b, e := p.Coords[i], p.Coords[i+1]
			c.ras.QuadTo(float32(b.X), float32(b.Y), float32(e.X), float32(e.Y))
			i += 2
		case path.CmdCubeTo:
			b, d, e := p.Coords[i], p.Coords[i+1], p.Coords[i+2]
			c.ras.CubeTo(float32(b.X), float32(b.Y), float32(d.X), float32(d.Y), float32(e.X), float32(e.Y))
			i += 3
		case path.CmdClose:
			if open {
				c.ras.ClosePath()
				open = false
			}
		}
	}
	if open {
		c.ras.ClosePath()
	}
}

func (c *Canvas) addPolygon(poly []vec.Vec2) {
	c.ras.MoveTo(float32(poly[0].X), float32(poly[0].Y))
	for _, pt := range poly[1:] {
		c.ras.LineTo(float32(pt.X), float32(pt.Y))
	}
	c.ras.ClosePath()
}

func (c *Canvas) paint(col color.NRGBA) {
	if col.A == 0 {
		return
	}
	c.ras.Draw(c.img, c.img.Bounds(), image.NewUniform(col), image.Point{})
}

// FillPath fills p. Rings of opposite orientation cut holes.
func (c *Canvas) FillPath(p *path.Data, col color.NRGBA) {
	c.reset()
	c.addPath(p)
	c.paint(col)
}

// StrokePath strokes p. All outline polygons share one coverage pass, so
// translucent strokes do not darken where segments overlap.
func (c *Canvas) StrokePath(p *path.Data, s paint.StrokeStyle) {
	polys := outline(p, s)
	if len(polys) == 0 {
		return
	}
	c.reset()
	for _, poly := range polys {
		c.addPolygon(poly)
	}
	c.paint(s.Color)
}

// FillMasked fills the outer rings with the inner rings masked out.
func (c *Canvas) FillMasked(outer, inner []*path.Data, col color.NRGBA) {
	if col.A == 0 || len(outer) == 0 {
		return
	}
	b := c.img.Bounds()
	keep := c.coverage(outer)
	cut := c.coverage(inner)

	mask := image.NewAlpha(b)
	for i := range mask.Pix {
		mask.Pix[i] = uint8(uint32(keep.Pix[i]) * uint32(255-cut.Pix[i]) / 255)
	}
	xdraw.DrawMask(c.img, b, image.NewUniform(col), image.Point{}, mask, image.Point{}, xdraw.Over)
}

// coverage rasterizes each path on its own and keeps the maximum coverage,
// so rings never cancel each other.
func (c *Canvas) coverage(paths []*path.Data) *image.Alpha {
	b := c.img.Bounds()
	out := image.NewAlpha(b)
	for _, p := range paths {
		c.reset()
		c.addPath(p)
		c.ras.DrawOp = xdraw.Over
		c.ras.Draw(out, b, image.Opaque, image.Point{})
	}
	return out
}

// DrawImage scales img into the rectangle at (x, y).
func (c *Canvas) DrawImage(img image.Image, x, y, w, h float64) {
	if img == nil || w <= 0 || h <= 0 {
		return
	}
	dr := image.Rect(
		int(math.Round(x)), int(math.Round(y)),
		int(math.Round(x+w)), int(math.Round(y+h)),
	)
	if dr.Empty() {
		return
	}
	xdraw.CatmullRom.Scale(c.img, dr, img, img.Bounds(), xdraw.Over, nil)
}

// FillTextOnPath lays t along p and fills the glyphs.
func (c *Canvas) FillTextOnPath(p *path.Data, t paint.TextStyle, reference float64) {
	glyphs := c.text.layout(p, t, reference)
	if len(glyphs) == 0 {
		return
	}
	c.reset()
	for _, g := range glyphs {
		c.addPath(g)
	}
	c.paint(t.Color)
}

// StrokeTextOnPath strokes the glyph outlines of t, used for halos.
func (c *Canvas) StrokeTextOnPath(p *path.Data, t paint.TextStyle, width, reference float64) {
	glyphs := c.text.layout(p, t, reference)
	if len(glyphs) == 0 || width <= 0 {
		return
	}
	s := paint.StrokeStyle{Color: t.Color, Width: width, Cap: graphics.LineCapRound, Join: graphics.LineJoinRound}
	c.reset()
	for _, g := range glyphs {
		for _, poly := range outline(g, s) {
			c.addPolygon(poly)
		}
	}
	c.paint(t.Color)
}
