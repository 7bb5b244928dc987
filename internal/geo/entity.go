// Package geo holds the in-memory geometry model: points, lines, areas and
// relations, the document that owns them, and the draw instructions produced
// by evaluating a ruleset against it.
package geo

// EntityKind identifies the concrete entity type.
type EntityKind int

const (
	KindPoint EntityKind = iota
	KindLine
	KindArea
	KindRelation
	KindBackground
)

func (k EntityKind) String() string {
	switch k {
	case KindPoint:
		return "point"
	case KindLine:
		return "line"
	case KindArea:
		return "area"
	case KindRelation:
		return "relation"
	case KindBackground:
		return "background"
	default:
		return "unknown"
	}
}

// Entity is a tagged geographic object.
type Entity interface {
	ID() int64
	Tags() map[string]string
	Bounds() Bounds
	Kind() EntityKind
}

// Point is a single tagged coordinate (an OSM node).
type Point struct {
	id   int64
	tags map[string]string
	Lat  float64
	Lon  float64
}

// NewPoint creates a point. A nil tag map is replaced by an empty one.
func NewPoint(id int64, tags map[string]string, lat, lon float64) *Point {
	return &Point{id: id, tags: orEmpty(tags), Lat: lat, Lon: lon}
}

func (p *Point) ID() int64               { return p.id }
func (p *Point) Tags() map[string]string { return p.tags }
func (p *Point) Kind() EntityKind        { return KindPoint }
func (p *Point) Bounds() Bounds          { return BoundsFromPoint(p.Lat, p.Lon) }

// Line is an ordered polyline of shared points (an OSM way).
type Line struct {
	id    int64
	tags  map[string]string
	Nodes []*Point
}

// NewLine creates a line over nodes. The slice is owned by the line.
func NewLine(id int64, tags map[string]string, nodes []*Point) *Line {
	return &Line{id: id, tags: orEmpty(tags), Nodes: nodes}
}

func (l *Line) ID() int64               { return l.id }
func (l *Line) Tags() map[string]string { return l.tags }
func (l *Line) Kind() EntityKind        { return KindLine }
func (l *Line) Bounds() Bounds          { return BoundsOfPoints(l.Nodes) }

// Closed reports whether the line starts and ends on the same node and has
// at least three nodes.
func (l *Line) Closed() bool {
	return len(l.Nodes) >= 3 && l.Nodes[0].id == l.Nodes[len(l.Nodes)-1].id
}

// Line merge hooks.
func (l *Line) MergeID() int64                { return l.id }
func (l *Line) MergeNodes() []*Point          { return l.Nodes }
func (l *Line) SetMergeNodes(nodes []*Point)  { l.Nodes = nodes }
func (l *Line) MergeProps() map[string]string { return l.tags }

// Relation keeps only the tags of an OSM relation. Members are not resolved.
type Relation struct {
	id   int64
	tags map[string]string
}

// NewRelation creates a relation.
func NewRelation(id int64, tags map[string]string) *Relation {
	return &Relation{id: id, tags: orEmpty(tags)}
}

func (r *Relation) ID() int64               { return r.id }
func (r *Relation) Tags() map[string]string { return r.tags }
func (r *Relation) Kind() EntityKind        { return KindRelation }
func (r *Relation) Bounds() Bounds          { return Bounds{} }

// Background is the synthetic entity behind the map background instruction.
type Background struct {
	Extent Bounds
}

func (b *Background) ID() int64               { return -1 }
func (b *Background) Tags() map[string]string { return map[string]string{} }
func (b *Background) Kind() EntityKind        { return KindBackground }
func (b *Background) Bounds() Bounds          { return b.Extent }

func orEmpty(tags map[string]string) map[string]string {
	if tags == nil {
		return map[string]string{}
	}
	return tags
}
