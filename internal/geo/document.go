package geo

import (
	"github.com/beetlebugorg/osmrender/internal/logging"
)

// Document owns every entity of a loaded map extract together with the draw
// instructions produced for it. Insertion order is preserved for every
// entity type because feature discovery and line merging depend on it.
type Document struct {
	points    map[int64]*Point
	lines     map[int64]*Line
	areas     map[int64]*Area
	relations map[int64]*Relation

	pointOrder    []int64
	lineOrder     []int64
	areaOrder     []int64
	relationOrder []int64

	// Instructions is appended to by ruleset evaluation.
	Instructions []*DrawInstruction

	log logging.Logger
}

// NewDocument builds a document and joins adjacent lines with identical tags.
// Lines absorbed by a join are dropped from the document.
func NewDocument(points []*Point, lines []*Line, areas []*Area, relations []*Relation, log logging.Logger) *Document {
	d := &Document{
		points:    make(map[int64]*Point, len(points)),
		lines:     make(map[int64]*Line, len(lines)),
		areas:     make(map[int64]*Area, len(areas)),
		relations: make(map[int64]*Relation, len(relations)),
		log:       logging.OrNop(log),
	}

	for _, p := range points {
		if _, ok := d.points[p.id]; !ok {
			d.pointOrder = append(d.pointOrder, p.id)
		}
		d.points[p.id] = p
	}
	for _, l := range lines {
		if _, ok := d.lines[l.id]; !ok {
			d.lineOrder = append(d.lineOrder, l.id)
		}
		d.lines[l.id] = l
	}
	for _, a := range areas {
		if _, ok := d.areas[a.id]; !ok {
			d.areaOrder = append(d.areaOrder, a.id)
		}
		d.areas[a.id] = a
	}
	for _, r := range relations {
		if _, ok := d.relations[r.id]; !ok {
			d.relationOrder = append(d.relationOrder, r.id)
		}
		d.relations[r.id] = r
	}

	merged := MergeAdjacent(d.pointOrder, d.Lines(), func(l *Line) {
		delete(d.lines, l.id)
	}, d.log)
	if merged > 0 {
		d.lineOrder = keepPresent(d.lineOrder, func(id int64) bool {
			_, ok := d.lines[id]
			return ok
		})
		d.log.Debugf("merged %d adjacent lines, %d remain", merged, len(d.lineOrder))
	}

	return d
}

func keepPresent(ids []int64, present func(int64) bool) []int64 {
	out := ids[:0]
	for _, id := range ids {
		if present(id) {
			out = append(out, id)
		}
	}
	return out
}

// Points returns all points in insertion order.
func (d *Document) Points() []*Point {
	out := make([]*Point, 0, len(d.pointOrder))
	for _, id := range d.pointOrder {
		out = append(out, d.points[id])
	}
	return out
}

// Lines returns all lines in insertion order.
func (d *Document) Lines() []*Line {
	out := make([]*Line, 0, len(d.lineOrder))
	for _, id := range d.lineOrder {
		out = append(out, d.lines[id])
	}
	return out
}

// Areas returns all areas in insertion order.
func (d *Document) Areas() []*Area {
	out := make([]*Area, 0, len(d.areaOrder))
	for _, id := range d.areaOrder {
		out = append(out, d.areas[id])
	}
	return out
}

// Relations returns all relations in insertion order.
func (d *Document) Relations() []*Relation {
	out := make([]*Relation, 0, len(d.relationOrder))
	for _, id := range d.relationOrder {
		out = append(out, d.relations[id])
	}
	return out
}

func (d *Document) Point(id int64) (*Point, bool) {
	p, ok := d.points[id]
	return p, ok
}

func (d *Document) Line(id int64) (*Line, bool) {
	l, ok := d.lines[id]
	return l, ok
}

func (d *Document) Area(id int64) (*Area, bool) {
	a, ok := d.areas[id]
	return a, ok
}

// HasPoint, HasLine and HasArea test membership by id only. A closed way is
// both a line and an area under the same id.
func (d *Document) HasPoint(id int64) bool {
	_, ok := d.points[id]
	return ok
}

func (d *Document) HasLine(id int64) bool {
	_, ok := d.lines[id]
	return ok
}

func (d *Document) HasArea(id int64) bool {
	_, ok := d.areas[id]
	return ok
}

func (d *Document) HasRelation(id int64) bool {
	_, ok := d.relations[id]
	return ok
}

// Bounds merges the bounds of every point. An empty document has zero bounds.
func (d *Document) Bounds() Bounds {
	var b Bounds
	for i, id := range d.pointOrder {
		pb := d.points[id].Bounds()
		if i == 0 {
			b = pb
			continue
		}
		b = b.Merge(pb)
	}
	return b
}

// AddInstruction appends a draw instruction.
func (d *Document) AddInstruction(in *DrawInstruction) {
	d.Instructions = append(d.Instructions, in)
}

// MergeInstructions joins adjacent line, text and shape instructions drawn
// for line entities. Instructions are grouped by feature name and kind, and
// a group is merged the same way NewDocument merges lines. Absorbed
// instructions are removed from the list.
func (d *Document) MergeInstructions() int {
	type groupKey struct {
		feature string
		kind    DrawKind
	}

	groups := make(map[groupKey][]*DrawInstruction)
	var order []groupKey
	for _, in := range d.Instructions {
		if !in.mergeable() {
			continue
		}
		key := groupKey{in.Feature, in.Kind}
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], in)
	}

	removed := make(map[*DrawInstruction]bool)
	total := 0
	for _, key := range order {
		total += MergeAdjacent(d.pointOrder, groups[key], func(in *DrawInstruction) {
			removed[in] = true
		}, d.log)
	}

	if len(removed) > 0 {
		kept := d.Instructions[:0]
		for _, in := range d.Instructions {
			if !removed[in] {
				kept = append(kept, in)
			}
		}
		d.Instructions = kept
	}
	return total
}
