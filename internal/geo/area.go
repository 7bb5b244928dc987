package geo

// Area is a closed way or a multipolygon relation. Outer and Inner rings are
// copies of the source way node lists, so line merging never alters them.
type Area struct {
	id    int64
	tags  map[string]string
	Outer [][]*Point
	Inner [][]*Point
}

// NewArea creates an area with no rings.
func NewArea(id int64, tags map[string]string) *Area {
	return &Area{id: id, tags: orEmpty(tags)}
}

func (a *Area) ID() int64               { return a.id }
func (a *Area) Tags() map[string]string { return a.tags }
func (a *Area) Kind() EntityKind        { return KindArea }

// Bounds covers the outer rings only.
func (a *Area) Bounds() Bounds {
	var (
		b     Bounds
		found bool
	)
	for _, ring := range a.Outer {
		rb, ok := boundsOf(ring)
		if !ok {
			continue
		}
		if !found {
			b, found = rb, true
			continue
		}
		b = b.Merge(rb)
	}
	return b
}

// MeanCenter returns the arithmetic mean of all outer ring points as (lat, lon).
func (a *Area) MeanCenter() (lat, lon float64) {
	n := 0
	for _, ring := range a.Outer {
		for _, p := range ring {
			lat += p.Lat
			lon += p.Lon
			n++
		}
	}
	if n == 0 {
		return 0, 0
	}
	return lat / float64(n), lon / float64(n)
}

// Edge concatenates every ring into a single closed path for non-zero
// filling. Outer rings take the orientation of the first outer ring and inner
// rings the opposite one. Each ring is followed by the first point of the
// first outer ring.
func (a *Area) Edge() []*Point {
	if len(a.Outer) == 0 || len(a.Outer[0]) == 0 {
		return nil
	}
	anchor := a.Outer[0][0]
	dir := IsClockwise(a.Outer[0])

	var edge []*Point
	for _, ring := range a.Outer {
		edge = appendOriented(edge, ring, IsClockwise(ring) == dir)
		edge = append(edge, anchor)
	}
	for _, ring := range a.Inner {
		edge = appendOriented(edge, ring, IsClockwise(ring) != dir)
		edge = append(edge, anchor)
	}
	return edge
}

func appendOriented(dst, ring []*Point, keep bool) []*Point {
	if keep {
		return append(dst, ring...)
	}
	for i := len(ring) - 1; i >= 0; i-- {
		dst = append(dst, ring[i])
	}
	return dst
}

// SignedArea returns the shoelace sum of (x2-x1)(y2+y1) with x=lon, y=lat.
// The ring is closed implicitly; a repeated final node is ignored.
func SignedArea(ring []*Point) float64 {
	n := len(ring)
	if n > 1 && ring[0].id == ring[n-1].id {
		n--
	}
	if n < 2 {
		return 0
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		p, q := ring[i], ring[(i+1)%n]
		sum += (q.Lon - p.Lon) * (q.Lat + p.Lat)
	}
	return sum
}

// IsClockwise reports whether the ring winds clockwise in lon/lat space.
func IsClockwise(ring []*Point) bool {
	return SignedArea(ring) > 0
}

// Reversed returns a reversed copy of ring.
func Reversed(ring []*Point) []*Point {
	out := make([]*Point, len(ring))
	for i, p := range ring {
		out[len(ring)-1-i] = p
	}
	return out
}
