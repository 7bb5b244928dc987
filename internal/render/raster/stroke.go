package raster

import (
	"math"

	"seehuhn.de/go/geom/path"
	"seehuhn.de/go/geom/vec"
	"seehuhn.de/go/pdf/graphics"

	"github.com/beetlebugorg/osmrender/internal/render/paint"
)

const (
	// flatness is the maximum curve flattening error in pixels.
	flatness = 0.25

	miterLimit = 10.0

	// Segments shorter than this have no usable tangent.
	zeroLength = 1e-9

	// Nearly collinear joins need no join geometry.
	collinear = 1e-6

	arcSegments = 24
)

// polyline is one flattened subpath.
type polyline struct {
	pts    []vec.Vec2
	closed bool
}

// flatten turns p into polylines. Quadratic and cubic segments are
// subdivided until their deviation is below flatness.
func flatten(p *path.Data) []polyline {
	var (
		out   []polyline
		cur   polyline
		start vec.Vec2
		pos   vec.Vec2
		i     int
	)
	flush := func() {
		if len(cur.pts) > 0 {
			out = append(out, cur)
		}
		cur = polyline{}
	}
	emit := func(pt vec.Vec2) {
		cur.pts = append(cur.pts, pt)
		pos = pt
	}

	for _, cmd := range p.Cmds {
		switch cmd {
		case path.CmdMoveTo:
			flush()
			start = p.Coords[i]
			emit(start)
			i++
		case path.CmdLineTo:
			if len(cur.pts) == 0 {
				emit(pos)
			}
			emit(p.Coords[i])
			i++
		case path.CmdQuadTo:
			if len(cur.pts) == 0 {
				emit(pos)
			}
			quadratic(pos, p.Coords[i], p.Coords[i+1], emit)
			i += 2
		case path.CmdCubeTo:
			if len(cur.pts) == 0 {
				emit(pos)
			}
			cubic(pos, p.Coords[i], p.Coords[i+1], p.Coords[i+2], emit)
			i += 3
		case path.CmdClose:
			if len(cur.pts) > 0 {
				cur.closed = true
				flush()
			}
			pos = start
		}
	}
	flush()
	return out
}

func quadratic(p0, p1, p2 vec.Vec2, emit func(vec.Vec2)) {
	e := p0.Sub(p1.Mul(2)).Add(p2).Mul(0.25).Length()
	n := 1
	if e > flatness {
		n = int(math.Ceil(math.Sqrt(e / flatness)))
	}
	for k := 1; k <= n; k++ {
		t := float64(k) / float64(n)
		u := 1 - t
		emit(p0.Mul(u * u).Add(p1.Mul(2 * u * t)).Add(p2.Mul(t * t)))
	}
}

func cubic(p0, p1, p2, p3 vec.Vec2, emit func(vec.Vec2)) {
	d1 := p0.Sub(p1.Mul(2)).Add(p2).Length()
	d2 := p1.Sub(p2.Mul(2)).Add(p3).Length()
	n := 1
	if m := math.Max(d1, d2); m > 0 {
		if f := math.Sqrt(3 * m / (4 * flatness)); f > 1 {
			n = int(math.Ceil(f))
		}
	}
	for k := 1; k <= n; k++ {
		t := float64(k) / float64(n)
		u := 1 - t
		emit(p0.Mul(u * u * u).Add(p1.Mul(3 * u * u * t)).Add(p2.Mul(3 * u * t * t)).Add(p3.Mul(t * t * t)))
	}
}

// dash splits polylines into the "on" pieces of pattern. The pattern is
// given in units of width.
func dash(lines []polyline, pattern []float64, width float64) []polyline {
	total := 0.0
	for _, d := range pattern {
		total += d
	}
	if total <= 0 {
		return lines
	}

	var out []polyline
	for _, l := range lines {
		pts := l.pts
		if l.closed && len(pts) > 1 {
			pts = append(append([]vec.Vec2(nil), pts...), pts[0])
		}

		idx := 0
		left := pattern[0] * width
		on := true
		piece := []vec.Vec2{pts[0]}

		for k := 1; k < len(pts); k++ {
			a, b := pts[k-1], pts[k]
			seg := b.Sub(a).Length()
			done := 0.0
			for seg-done > left {
				done += left
				at := a.Add(b.Sub(a).Mul(done / seg))
				if on {
					piece = append(piece, at)
					out = append(out, polyline{pts: piece})
					piece = nil
				} else {
					piece = []vec.Vec2{at}
				}
				on = !on
				idx = (idx + 1) % len(pattern)
				left = pattern[idx] * width
			}
			left -= seg - done
			if on {
				piece = append(piece, b)
			}
		}
		if on && len(piece) > 1 {
			out = append(out, polyline{pts: piece})
		}
	}
	return out
}

// outline returns the polygons whose union is the stroke of p. Every
// polygon is oriented the same way, so filling them together never cancels
// coverage where they overlap.
func outline(p *path.Data, s paint.StrokeStyle) [][]vec.Vec2 {
	if s.Width <= 0 {
		return nil
	}
	lines := flatten(p)
	if len(s.Dash) > 0 {
		lines = dash(lines, s.Dash, s.Width)
	}

	d := s.Width / 2
	var polys [][]vec.Vec2
	add := func(poly []vec.Vec2) {
		if len(poly) >= 3 {
			polys = append(polys, oriented(poly))
		}
	}

	for _, l := range lines {
		pts := dedupe(l.pts)
		closed := l.closed
		if closed && len(pts) > 2 && pts[len(pts)-1].Sub(pts[0]).Length() < zeroLength {
			pts = pts[:len(pts)-1]
		}
		if len(pts) < 3 {
			closed = false
		}
		if len(pts) == 1 {
			if s.Cap == graphics.LineCapRound {
				add(circle(pts[0], d))
			}
			continue
		}

		segs := len(pts) - 1
		if closed {
			segs = len(pts)
		}
		for k := 0; k < segs; k++ {
			a, b := pts[k], pts[(k+1)%len(pts)]
			n := perp(unit(b.Sub(a))).Mul(d)
			add([]vec.Vec2{a.Add(n), b.Add(n), b.Sub(n), a.Sub(n)})
		}

		if closed {
			for k := range pts {
				prev := pts[(k+len(pts)-1)%len(pts)]
				add(join(prev, pts[k], pts[(k+1)%len(pts)], d, s.Join))
			}
			continue
		}
		for k := 1; k < len(pts)-1; k++ {
			add(join(pts[k-1], pts[k], pts[k+1], d, s.Join))
		}
		first, last := pts[0], pts[len(pts)-1]
		add(capAt(first, unit(first.Sub(pts[1])), d, s.Cap))
		add(capAt(last, unit(last.Sub(pts[len(pts)-2])), d, s.Cap))
	}
	return polys
}

// dedupe drops consecutive points closer than zeroLength.
func dedupe(pts []vec.Vec2) []vec.Vec2 {
	out := pts[:0:0]
	for _, p := range pts {
		if len(out) > 0 && p.Sub(out[len(out)-1]).Length() < zeroLength {
			continue
		}
		out = append(out, p)
	}
	return out
}

// join returns the polygon filling the outer corner at at.
func join(prev, at, next vec.Vec2, d float64, style graphics.LineJoinStyle) []vec.Vec2 {
	t1 := unit(at.Sub(prev))
	t2 := unit(next.Sub(at))
	cross := t1.X*t2.Y - t1.Y*t2.X
	if math.Abs(cross) < collinear && t1.X*t2.X+t1.Y*t2.Y > 0 {
		return nil
	}

	if style == graphics.LineJoinRound {
		return circle(at, d)
	}

	side := 1.0
	if cross > 0 {
		side = -1
	}
	n1 := perp(t1).Mul(side)
	n2 := perp(t2).Mul(side)
	a := at.Add(n1.Mul(d))
	b := at.Add(n2.Mul(d))

	if style == graphics.LineJoinMiter {
		c := n1.X*n2.X + n1.Y*n2.Y
		if 1+c > zeroLength {
			ratio := math.Sqrt(2 / (1 + c))
			if ratio <= miterLimit {
				m := at.Add(n1.Add(n2).Mul(d / (1 + c)))
				return []vec.Vec2{at, a, m, b}
			}
		}
	}
	return []vec.Vec2{at, a, b}
}

// capAt returns the cap polygon at end, where dir points away from the line.
func capAt(end, dir vec.Vec2, d float64, style graphics.LineCapStyle) []vec.Vec2 {
	switch style {
	case graphics.LineCapRound:
		return circle(end, d)
	case graphics.LineCapSquare:
		n := perp(dir).Mul(d)
		ext := end.Add(dir.Mul(d))
		return []vec.Vec2{end.Add(n), ext.Add(n), ext.Sub(n), end.Sub(n)}
	}
	return nil
}

func circle(c vec.Vec2, r float64) []vec.Vec2 {
	pts := make([]vec.Vec2, arcSegments)
	for k := range pts {
		a := 2 * math.Pi * float64(k) / arcSegments
		pts[k] = c.Add(vec.Vec2{X: math.Cos(a), Y: math.Sin(a)}.Mul(r))
	}
	return pts
}

func signedArea(poly []vec.Vec2) float64 {
	var a float64
	for k := range poly {
		p, q := poly[k], poly[(k+1)%len(poly)]
		a += p.X*q.Y - q.X*p.Y
	}
	return a / 2
}

// oriented returns poly with a non-negative signed area.
func oriented(poly []vec.Vec2) []vec.Vec2 {
	if signedArea(poly) >= 0 {
		return poly
	}
	out := make([]vec.Vec2, len(poly))
	for k, p := range poly {
		out[len(poly)-1-k] = p
	}
	return out
}

func unit(v vec.Vec2) vec.Vec2 {
	l := v.Length()
	if l == 0 {
		return vec.Vec2{X: 1}
	}
	return v.Mul(1 / l)
}

// perp rotates v by 90 degrees.
func perp(v vec.Vec2) vec.Vec2 {
	return vec.Vec2{X: -v.Y, Y: v.X}
}
