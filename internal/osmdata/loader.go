// Package osmdata reads OpenStreetMap extracts into a geo.Document.
package osmdata

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"github.com/paulmach/osm/osmxml"

	"github.com/beetlebugorg/osmrender/internal/geo"
	"github.com/beetlebugorg/osmrender/internal/logging"
)

// Format is an input encoding.
type Format int

const (
	FormatXML Format = iota
	FormatPBF
)

func (f Format) String() string {
	if f == FormatPBF {
		return "pbf"
	}
	return "xml"
}

// ErrUnknownFormat is returned for a file extension Load cannot read.
var ErrUnknownFormat = errors.New("unknown OSM file format")

// FormatOf picks the format from a file name: .osm is XML, .pbf and
// .osm.pbf are protobuf.
func FormatOf(name string) (Format, error) {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".pbf"):
		return FormatPBF, nil
	case strings.HasSuffix(lower, ".osm"), strings.HasSuffix(lower, ".xml"):
		return FormatXML, nil
	}
	return 0, fmt.Errorf("%w: %s", ErrUnknownFormat, name)
}

// Stats counts what a load produced and skipped.
type Stats struct {
	Points, Lines, Areas, Relations int
	Skipped                         int
}

// Load reads an .osm or .osm.pbf file.
func Load(ctx context.Context, path string, log logging.Logger) (*geo.Document, Stats, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, Stats{}, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	doc, stats, err := Read(ctx, f, format, log)
	if err != nil {
		return nil, stats, fmt.Errorf("read %s: %w", path, err)
	}
	return doc, stats, nil
}

// Read decodes an OSM stream. Elements are taken in stream order; a way or
// relation member that was not seen earlier is logged and skipped.
func Read(ctx context.Context, r io.Reader, format Format, log logging.Logger) (*geo.Document, Stats, error) {
	log = logging.OrNop(log)

	var scanner osm.Scanner
	switch format {
	case FormatPBF:
		scanner = osmpbf.New(ctx, r, runtime.NumCPU())
	default:
		scanner = osmxml.New(ctx, r)
	}
	defer scanner.Close()

	b := newBuilder(log)
	for scanner.Scan() {
		switch o := scanner.Object().(type) {
		case *osm.Node:
			b.node(o)
		case *osm.Way:
			b.way(o)
		case *osm.Relation:
			b.relation(o)
		}
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) {
		return nil, b.stats, fmt.Errorf("scan %s: %w", format, err)
	}

	doc := b.document()
	log.Debugf("found %d points", b.stats.Points)
	log.Debugf("found %d lines", b.stats.Lines)
	log.Debugf("found %d areas", b.stats.Areas)
	log.Debugf("found %d relations", b.stats.Relations)
	return doc, b.stats, nil
}

type builder struct {
	log logging.Logger

	points    map[int64]*geo.Point
	lines     map[int64]*geo.Line
	relations map[int64]*geo.Relation

	pointList    []*geo.Point
	lineList     []*geo.Line
	areaList     []*geo.Area
	relationList []*geo.Relation

	stats Stats
}

func newBuilder(log logging.Logger) *builder {
	return &builder{
		log:       log,
		points:    make(map[int64]*geo.Point),
		lines:     make(map[int64]*geo.Line),
		relations: make(map[int64]*geo.Relation),
	}
}

func (b *builder) node(n *osm.Node) {
	id := int64(n.ID)
	if err := geo.ValidateCoordinate(id, n.Lat, n.Lon); err != nil {
		b.log.Warnf("%v", err)
		b.stats.Skipped++
		return
	}
	p := geo.NewPoint(id, n.Tags.Map(), n.Lat, n.Lon)
	b.points[id] = p
	b.pointList = append(b.pointList, p)
	b.stats.Points++
}

func (b *builder) missing(kind geo.EntityKind, owner int64, typ string, ref int64) {
	b.log.Warnf("%v", &geo.ErrMissingMember{OwnerKind: kind, OwnerID: owner, Type: typ, Ref: ref})
	b.stats.Skipped++
}

func (b *builder) way(w *osm.Way) {
	id := int64(w.ID)
	nodes := make([]*geo.Point, 0, len(w.Nodes))
	for _, wn := range w.Nodes {
		p, ok := b.points[int64(wn.ID)]
		if !ok {
			b.missing(geo.KindLine, id, "node", int64(wn.ID))
			continue
		}
		nodes = append(nodes, p)
	}

	tags := w.Tags.Map()
	l := geo.NewLine(id, tags, nodes)
	if err := geo.ValidateGeometry(l); err != nil {
		b.log.Debugf("%v", err)
	}
	b.lines[id] = l
	b.lineList = append(b.lineList, l)
	b.stats.Lines++

	if l.Closed() {
		a := geo.NewArea(id, tags)
		a.Outer = [][]*geo.Point{append([]*geo.Point(nil), nodes...)}
		b.areaList = append(b.areaList, a)
		b.stats.Areas++
	}
}

func (b *builder) relation(r *osm.Relation) {
	id := int64(r.ID)
	tags := r.Tags.Map()

	var outer, inner []*geo.Line
	for _, m := range r.Members {
		switch m.Type {
		case osm.TypeNode:
			if _, ok := b.points[m.Ref]; !ok {
				b.missing(geo.KindRelation, id, "node", m.Ref)
			}
		case osm.TypeRelation:
			if _, ok := b.relations[m.Ref]; !ok {
				b.missing(geo.KindRelation, id, "relation", m.Ref)
			}
		case osm.TypeWay:
			l, ok := b.lines[m.Ref]
			if !ok {
				b.missing(geo.KindRelation, id, "way", m.Ref)
				continue
			}
			if len(l.Nodes) < 2 {
				continue
			}
			seg := geo.NewLine(m.Ref, nil, append([]*geo.Point(nil), l.Nodes...))
			switch m.Role {
			case "outer":
				outer = append(outer, seg)
			case "inner":
				inner = append(inner, seg)
			}
		}
	}

	rel := geo.NewRelation(id, tags)
	b.relations[id] = rel
	b.relationList = append(b.relationList, rel)
	b.stats.Relations++

	if tags["type"] == "multipolygon" && len(outer) > 0 {
		a := geo.NewArea(id, tags)
		a.Outer = b.rings(id, outer)
		a.Inner = b.rings(id, inner)
		b.areaList = append(b.areaList, a)
		b.stats.Areas++
	}
}

// rings joins the member ways of one role end to end. Ways that stay open
// after joining are kept as rings and closed implicitly when filled.
func (b *builder) rings(owner int64, segs []*geo.Line) [][]*geo.Point {
	var open []*geo.Line
	var ends []int64
	for _, s := range segs {
		if s.Closed() {
			continue
		}
		open = append(open, s)
		ends = append(ends, s.Nodes[0].ID(), s.Nodes[len(s.Nodes)-1].ID())
	}

	removed := make(map[*geo.Line]bool)
	if len(open) > 1 {
		geo.MergeAdjacent(ends, open, func(l *geo.Line) { removed[l] = true }, b.log)
	}

	var out [][]*geo.Point
	for _, s := range segs {
		if removed[s] {
			continue
		}
		if !s.Closed() {
			b.log.Debugf("relation %d: ring through way %d is not closed", owner, s.ID())
		}
		out = append(out, s.Nodes)
	}
	return out
}

func (b *builder) document() *geo.Document {
	return geo.NewDocument(b.pointList, b.lineList, b.areaList, b.relationList, b.log)
}
