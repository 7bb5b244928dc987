package raster

import (
	"math"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
	"seehuhn.de/go/geom/path"
	"seehuhn.de/go/geom/vec"

	"github.com/beetlebugorg/osmrender/internal/render/paint"
)

var (
	regularOnce sync.Once
	regular     *sfnt.Font
	regularErr  error
)

// regularFont parses the embedded Go Regular face once. A parsed Font may
// be shared; each user needs its own sfnt.Buffer.
func regularFont() (*sfnt.Font, error) {
	regularOnce.Do(func() {
		regular, regularErr = sfnt.Parse(goregular.TTF)
	})
	return regular, regularErr
}

// typesetter lays glyph outlines along a path.
type typesetter struct {
	font *sfnt.Font
	buf  sfnt.Buffer
}

func newTypesetter() *typesetter {
	f, err := regularFont()
	if err != nil {
		// The font is compiled in; a parse failure leaves labels unpainted.
		return &typesetter{}
	}
	return &typesetter{font: f}
}

type glyph struct {
	index   sfnt.GlyphIndex
	x, adv  float64
	outline sfnt.Segments
}

func fromFixed(v fixed.Int26_6) float64 {
	return float64(v) / 64
}

// shape returns the glyphs of text at size with their pen positions.
func (ts *typesetter) shape(text string, size float64) ([]glyph, float64) {
	ppem := fixed.Int26_6(math.Round(size * 64))
	var (
		out  []glyph
		x    float64
		prev sfnt.GlyphIndex
	)
	for i, r := range text {
		idx, err := ts.font.GlyphIndex(&ts.buf, r)
		if err != nil {
			continue
		}
		if i > 0 && prev != 0 {
			if k, err := ts.font.Kern(&ts.buf, prev, idx, ppem, font.HintingNone); err == nil {
				x += fromFixed(k)
			}
		}
		adv, err := ts.font.GlyphAdvance(&ts.buf, idx, ppem, font.HintingNone)
		if err != nil {
			continue
		}
		segs, err := ts.font.LoadGlyph(&ts.buf, idx, ppem, nil)
		if err != nil {
			continue
		}
		// LoadGlyph reuses the buffer's storage.
		outline := append(sfnt.Segments(nil), segs...)
		out = append(out, glyph{index: idx, x: x, adv: fromFixed(adv), outline: outline})
		x += fromFixed(adv)
		prev = idx
	}
	return out, x
}

// baseline returns the downward shift that centres the text vertically
// on the path.
func (ts *typesetter) baseline(size float64) float64 {
	ppem := fixed.Int26_6(math.Round(size * 64))
	m, err := ts.font.Metrics(&ts.buf, ppem, font.HintingNone)
	if err != nil {
		return size * 0.35
	}
	return (fromFixed(m.Ascent) - fromFixed(m.Descent)) / 2
}

// layout returns one path per glyph of t, placed along p so that the
// anchor sits at reference times the path length. Each glyph is rotated to
// the path's tangent at its centre.
func (ts *typesetter) layout(p *path.Data, t paint.TextStyle, reference float64) []*path.Data {
	if ts.font == nil || t.Text == "" || t.Size <= 0 {
		return nil
	}
	lines := flatten(p)
	if len(lines) == 0 {
		return nil
	}
	track := newTrack(lines[0].pts)

	glyphs, width := ts.shape(t.Text, t.Size)
	at := reference * track.length
	switch t.Anchor {
	case paint.AnchorCenter:
		at -= width / 2
	case paint.AnchorEnd:
		at -= width
	}
	shift := ts.baseline(t.Size)

	out := make([]*path.Data, 0, len(glyphs))
	for _, g := range glyphs {
		mid := g.x + g.adv/2
		pos, tangent := track.at(at + mid)
		normal := perp(tangent)

		place := func(pt fixed.Point26_6) vec.Vec2 {
			lx := fromFixed(pt.X) - mid
			ly := fromFixed(pt.Y) + shift
			return pos.Add(tangent.Mul(lx)).Add(normal.Mul(ly))
		}

		gp := &path.Data{}
		for _, seg := range g.outline {
			switch seg.Op {
			case sfnt.SegmentOpMoveTo:
				gp.MoveTo(place(seg.Args[0]))
			case sfnt.SegmentOpLineTo:
				gp.LineTo(place(seg.Args[0]))
			case sfnt.SegmentOpQuadTo:
				gp.QuadTo(place(seg.Args[0]), place(seg.Args[1]))
			case sfnt.SegmentOpCubeTo:
				gp.CubeTo(place(seg.Args[0]), place(seg.Args[1]), place(seg.Args[2]))
			}
		}
		if len(gp.Cmds) > 0 {
			gp.Close()
			out = append(out, gp)
		}
	}
	return out
}

// track measures positions along a polyline by arc length. Positions past
// either end extend along the end segment.
type track struct {
	pts    []vec.Vec2
	cum    []float64
	length float64
}

func newTrack(pts []vec.Vec2) *track {
	pts = dedupe(pts)
	t := &track{pts: pts, cum: make([]float64, len(pts))}
	for i := 1; i < len(pts); i++ {
		t.cum[i] = t.cum[i-1] + pts[i].Sub(pts[i-1]).Length()
	}
	if len(pts) > 0 {
		t.length = t.cum[len(pts)-1]
	}
	return t
}

func (t *track) at(dist float64) (vec.Vec2, vec.Vec2) {
	if len(t.pts) < 2 {
		if len(t.pts) == 1 {
			return t.pts[0].Add(vec.Vec2{X: dist}), vec.Vec2{X: 1}
		}
		return vec.Vec2{}, vec.Vec2{X: 1}
	}
	i := 1
	for i < len(t.pts)-1 && t.cum[i] < dist {
		i++
	}
	a, b := t.pts[i-1], t.pts[i]
	tangent := unit(b.Sub(a))
	return a.Add(tangent.Mul(dist - t.cum[i-1])), tangent
}
