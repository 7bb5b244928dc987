package render

import (
	"github.com/dhconnelly/rtreego"

	"github.com/beetlebugorg/osmrender/internal/geo"
)

// cullMargin inflates instruction and tile bounds before overlap tests, so
// strokes and labels that spill over a tile edge are still drawn.
const cullMargin = 1.1

// Index answers which instructions may touch a tile. It is an R-tree over
// margin-extended instruction bounds and is safe for concurrent queries.
type Index struct {
	rtree *rtreego.Rtree
	size  int
}

// indexedInstruction wraps an instruction for R-tree storage.
type indexedInstruction struct {
	in     *geo.DrawInstruction
	bounds geo.Bounds
}

// Bounds implements rtreego.Spatial.
func (e *indexedInstruction) Bounds() rtreego.Rect {
	return rtreeRect(e.bounds)
}

func rtreeRect(b geo.Bounds) rtreego.Rect {
	point := rtreego.Point{b.MinLon, b.MinLat}

	// R-tree rectangles need non-zero sides; points and straight lines get
	// an epsilon (~11 m at the equator).
	const epsilon = 0.0001
	lonLength := b.MaxLon - b.MinLon
	latLength := b.MaxLat - b.MinLat
	if lonLength < epsilon {
		lonLength = epsilon
	}
	if latLength < epsilon {
		latLength = epsilon
	}

	rect, _ := rtreego.NewRect(point, []float64{lonLength, latLength})
	return rect
}

// NewIndex indexes the given instructions.
func NewIndex(instrs []*geo.DrawInstruction) *Index {
	// 2D, min=25 children, max=50 children
	rtree := rtreego.NewTree(2, 25, 50)
	for _, in := range instrs {
		rtree.Insert(&indexedInstruction{in: in, bounds: in.Bounds().Extend(cullMargin)})
	}
	return &Index{rtree: rtree, size: len(instrs)}
}

// Len returns the number of indexed instructions.
func (idx *Index) Len() int {
	return idx.size
}

// Overlapping returns the instructions whose extended bounds strictly
// overlap the extended bounds of b.
func (idx *Index) Overlapping(b geo.Bounds) map[*geo.DrawInstruction]bool {
	query := b.Extend(cullMargin)
	hits := make(map[*geo.DrawInstruction]bool)
	for _, s := range idx.rtree.SearchIntersect(rtreeRect(query)) {
		e := s.(*indexedInstruction)
		if e.bounds.Overlaps(query) {
			hits[e.in] = true
		}
	}
	return hits
}
