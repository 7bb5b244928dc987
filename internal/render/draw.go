package render

import (
	"errors"
	"math"

	"seehuhn.de/go/geom/path"
	"seehuhn.de/go/geom/vec"
	"seehuhn.de/go/pdf/graphics"

	"github.com/beetlebugorg/osmrender/internal/geo"
	"github.com/beetlebugorg/osmrender/internal/logging"
	"github.com/beetlebugorg/osmrender/internal/props"
	"github.com/beetlebugorg/osmrender/internal/render/paint"
)

const (
	// lineTextInterval is the spacing of repeated labels along a line.
	lineTextInterval = 400
	// lineShapeInterval is the shape spacing along a line when
	// shape-spacing is unset.
	lineShapeInterval = 100
	// defaultIconSize applies when icon-width is unset.
	defaultIconSize = 10
)

var dashes = map[string][]float64{
	"dash":     {2, 2},
	"dashlong": {4, 4},
	"dot":      {2, 5},
}

// drawer issues the painter calls of one page.
type drawer struct {
	page    Page
	zoom    float64
	p       paint.Painter
	images  paint.ImageLoader
	log     logging.Logger
	painted int
}

func (d *drawer) draw(code int, e entry) {
	if a, ok := d.p.(paint.Annotator); ok {
		a.Annotate(code, e.in)
	}
	d.painted++

	in := e.in
	bag := props.NewBag(in.Props)
	switch in.Kind {
	case geo.DrawBackground:
		d.background(in, bag)
	case geo.DrawFill:
		area, ok := in.Entity.(*geo.Area)
		if !ok {
			return
		}
		if in.AsLine {
			d.ringsAsLine(area, bag, e.pass)
			return
		}
		d.fill(area, bag)
	case geo.DrawLine:
		if len(in.Nodes) < 2 {
			return
		}
		d.line(paint.Polyline(d.page.Pixels(in.Nodes), false), bag, e.pass)
	case geo.DrawText:
		d.text(in, bag)
	case geo.DrawShape:
		d.shape(in, bag)
	case geo.DrawIcon:
		d.icon(in, bag)
	}
}

func (d *drawer) background(in *geo.DrawInstruction, bag *props.Bag) {
	b := in.Entity.Bounds()
	corners := []vec.Vec2{
		{X: d.page.X(b.MinLon), Y: d.page.Y(b.MinLat)},
		{X: d.page.X(b.MinLon), Y: d.page.Y(b.MaxLat)},
		{X: d.page.X(b.MaxLon), Y: d.page.Y(b.MaxLat)},
		{X: d.page.X(b.MaxLon), Y: d.page.Y(b.MinLat)},
	}
	d.p.FillPath(paint.Polyline(corners, true), bag.Colour("map-background-color", "map-background-opacity", d.zoom))
}

func (d *drawer) ring(nodes []*geo.Point) *path.Data {
	return paint.Polyline(d.page.Pixels(nodes), true)
}

func (d *drawer) fill(area *geo.Area, bag *props.Bag) {
	if len(area.Outer) == 0 {
		return
	}
	c := bag.Colour("fill-color", "fill-opacity", d.zoom)

	outer := make([]*path.Data, len(area.Outer))
	for i, r := range area.Outer {
		outer[i] = d.ring(r)
	}
	inner := make([]*path.Data, len(area.Inner))
	for i, r := range area.Inner {
		inner[i] = d.ring(r)
	}

	var outlines []*path.Data
	if mf, ok := d.p.(paint.MaskFiller); ok && len(inner) > 0 {
		mf.FillMasked(outer, inner, c)
		outlines = append(outer, inner...)
	} else if len(inner) == 0 {
		for _, p := range outer {
			d.p.FillPath(p, c)
		}
		outlines = outer
	} else {
		edge := d.ring(area.Edge())
		d.p.FillPath(edge, c)
		outlines = []*path.Data{edge}
	}

	if bag.Enum("border-style") == "none" {
		return
	}
	base := bag.Num("line-width", d.zoom)
	for _, p := range outlines {
		d.stroke(p, bag, "border", base)
	}
}

func (d *drawer) ringsAsLine(area *geo.Area, bag *props.Bag, pass int) {
	for _, r := range area.Outer {
		d.line(d.ring(r), bag, pass)
	}
	for _, r := range area.Inner {
		d.line(d.ring(r), bag, pass)
	}
}

func (d *drawer) line(p *path.Data, bag *props.Bag, pass int) {
	if pass == passBorder {
		d.stroke(p, bag, "border", bag.Num("line-width", d.zoom))
		return
	}
	d.stroke(p, bag, "line", 0)
}

// stroke paints p with the line properties under prefix. A border is drawn
// base wide plus border-width on each side.
func (d *drawer) stroke(p *path.Data, bag *props.Bag, prefix string, base float64) {
	style := bag.Enum(prefix + "-style")
	if style == "none" {
		return
	}

	width := bag.Num(prefix+"-width", d.zoom)
	if prefix == "border" {
		width = base + 2*bag.Num("border-width", d.zoom)
	}
	if width <= 0 {
		return
	}

	s := paint.StrokeStyle{
		Color: bag.Colour(prefix+"-color", prefix+"-opacity", d.zoom),
		Width: width,
		Dash:  dashes[style],
		Cap:   graphics.LineCapButt,
		Join:  graphics.LineJoinMiter,
	}
	if bag.Enum(prefix+"-end-cap") == "round" {
		s.Cap = graphics.LineCapRound
	}
	if bag.Enum("line-join") == "round" {
		s.Join = graphics.LineJoinRound
	}
	d.p.StrokePath(p, s)
}

// coordinates picks the anchor of a non-line placement: the point itself,
// the mean of an area's outer nodes or a line's middle node.
func coordinates(in *geo.DrawInstruction) (lat, lon float64, ok bool) {
	switch e := in.Entity.(type) {
	case *geo.Point:
		return e.Lat, e.Lon, true
	case *geo.Area:
		if len(e.Outer) == 0 {
			return 0, 0, false
		}
		lat, lon = e.MeanCenter()
		return lat, lon, true
	case *geo.Line:
		nodes := in.Nodes
		if len(nodes) == 0 {
			nodes = e.Nodes
		}
		if len(nodes) == 0 {
			return 0, 0, false
		}
		mid := nodes[len(nodes)/2]
		return mid.Lat, mid.Lon, true
	}
	return 0, 0, false
}

func anchorFor(align string) paint.Anchor {
	switch align {
	case "near":
		return paint.AnchorStart
	case "far":
		return paint.AnchorEnd
	}
	return paint.AnchorCenter
}

func (d *drawer) text(in *geo.DrawInstruction, bag *props.Bag) {
	if in.Disabled || in.Text == "" {
		return
	}

	style := paint.TextStyle{
		Text:   in.Text,
		Color:  bag.Colour("text-color", "text-opacity", d.zoom),
		Size:   bag.Num("font-size", d.zoom),
		Anchor: anchorFor(bag.Enum("text-align-horizontal")),
	}
	halo := style
	halo.Color = bag.Colour("text-halo-color", "text-halo-opacity", d.zoom)
	haloWidth := bag.Num("text-halo-width", d.zoom)

	if _, isLine := in.Entity.(*geo.Line); isLine && len(in.Nodes) >= 2 {
		nodes := in.Nodes
		if nodes[0].Lon >= nodes[len(nodes)-1].Lon {
			nodes = geo.Reversed(nodes)
		}
		p := paint.Polyline(d.page.Pixels(nodes), false)
		n := int(math.Ceil(paint.Length(p) / lineTextInterval))
		for i := 0; i < n; i++ {
			ref := float64(i+1) / float64(n+1)
			if haloWidth > 0 {
				d.p.StrokeTextOnPath(p, halo, haloWidth, ref)
			}
			d.p.FillTextOnPath(p, style, ref)
		}
		return
	}

	lat, lon, ok := coordinates(in)
	if !ok {
		return
	}
	x, y := d.page.X(lon), d.page.Y(lat)
	y += bag.Num("text-offset-vertical", d.zoom)

	p := paint.Polyline([]vec.Vec2{{X: x - 1, Y: y}, {X: x + 1, Y: y}}, false)
	style.Anchor, halo.Anchor = paint.AnchorCenter, paint.AnchorCenter
	if haloWidth > 0 {
		d.p.StrokeTextOnPath(p, halo, haloWidth, 0.5)
	}
	d.p.FillTextOnPath(p, style, 0.5)
}

func (d *drawer) shape(in *geo.DrawInstruction, bag *props.Bag) {
	s, err := buildShape(bag, d.zoom)
	if err != nil {
		var unknown *ErrUnknownShape
		if errors.As(err, &unknown) {
			d.log.Warnf("%s: %v", in.Feature, err)
		} else {
			d.log.Warnf("%s: invalid shape definition: %v", in.Feature, err)
		}
		return
	}

	size := bag.Num("shape-size", d.zoom)
	var angleOffset float64
	if bag.Has("angle") {
		angleOffset = bag.Num("angle", d.zoom) / 180 * math.Pi
	}

	emit := func(at vec.Vec2, angle float64) {
		pen := paint.StrokeStyle{
			Color: s.pen,
			Width: s.penWidth,
			Cap:   graphics.LineCapButt,
			Join:  graphics.LineJoinMiter,
		}
		for _, unit := range s.paths {
			placed := place(unit, at, size, angle)
			d.p.FillPath(placed, s.fill)
			if pen.Width > 0 {
				d.p.StrokePath(placed, pen)
			}
		}
	}

	if _, isLine := in.Entity.(*geo.Line); isLine && len(in.Nodes) >= 2 {
		interval := float64(lineShapeInterval)
		if bag.Has("shape-spacing") {
			interval = size * bag.Num("shape-spacing", d.zoom)
		}
		if interval <= 0 {
			return
		}
		pts := d.page.Pixels(in.Nodes)
		total := polylineLength(pts)
		for dist := interval / 2; dist < total; dist += interval {
			at, tangent := pointAt(pts, dist)
			emit(at, math.Atan2(tangent.Y, tangent.X)+angleOffset)
		}
		return
	}

	lat, lon, ok := coordinates(in)
	if !ok {
		return
	}
	emit(vec.Vec2{X: d.page.X(lon), Y: d.page.Y(lat)}, -angleOffset)
}

func (d *drawer) icon(in *geo.DrawInstruction, bag *props.Bag) {
	lat, lon, ok := coordinates(in)
	if !ok {
		return
	}
	name := bag.String("icon-image")
	if name == "" || d.images == nil {
		d.log.Errorf("%s: no icon image to draw", in.Feature)
		return
	}
	img, err := d.images.LoadImage(name)
	if err != nil {
		d.log.Errorf("%s: icon `%s' does not exist: %v", in.Feature, name, err)
		return
	}

	size := float64(defaultIconSize)
	if bag.Has("icon-width") {
		size = bag.Num("icon-width", d.zoom)
	}
	x, y := d.page.X(lon), d.page.Y(lat)
	d.p.DrawImage(img, x-size/2, y-size/2, size, size)
}

func polylineLength(pts []vec.Vec2) float64 {
	var total float64
	for i := 1; i < len(pts); i++ {
		total += pts[i].Sub(pts[i-1]).Length()
	}
	return total
}

// pointAt returns the position and unit tangent at dist along pts.
func pointAt(pts []vec.Vec2, dist float64) (vec.Vec2, vec.Vec2) {
	for i := 1; i < len(pts); i++ {
		seg := pts[i].Sub(pts[i-1])
		l := seg.Length()
		if l == 0 {
			continue
		}
		if dist <= l || i == len(pts)-1 {
			t := seg.Mul(1 / l)
			return pts[i-1].Add(t.Mul(math.Min(dist, l))), t
		}
		dist -= l
	}
	return pts[len(pts)-1], vec.Vec2{X: 1}
}
