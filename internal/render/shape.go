package render

import (
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"

	"seehuhn.de/go/geom/path"
	"seehuhn.de/go/geom/vec"

	"github.com/beetlebugorg/osmrender/internal/props"
)

// ErrUnknownShape is returned for a shape name with no definition.
type ErrUnknownShape struct {
	Name string
}

func (e *ErrUnknownShape) Error() string {
	return fmt.Sprintf("unknown shape `%s'", e.Name)
}

// shape is a set of closed unit paths plus the colours a custom definition
// may override.
type shape struct {
	paths    []*path.Data
	fill     color.NRGBA
	pen      color.NRGBA
	penWidth float64
}

const circleSegments = 32

func unitShape(name string) ([]*path.Data, bool) {
	p := &path.Data{}
	switch name {
	case "square":
		p.MoveTo(vec.Vec2{X: -1, Y: -1}).LineTo(vec.Vec2{X: 1, Y: -1}).
			LineTo(vec.Vec2{X: 1, Y: 1}).LineTo(vec.Vec2{X: -1, Y: 1}).Close()
	case "diamond":
		p.MoveTo(vec.Vec2{X: 0, Y: -1}).LineTo(vec.Vec2{X: -1, Y: 0}).
			LineTo(vec.Vec2{X: 0, Y: 1}).LineTo(vec.Vec2{X: 1, Y: 0}).Close()
	case "triangle":
		p.MoveTo(vec.Vec2{X: -0.5, Y: 0}).LineTo(vec.Vec2{X: 0, Y: -0.75}).
			LineTo(vec.Vec2{X: 0.5, Y: 0}).Close()
	case "circle":
		for i := 0; i < circleSegments; i++ {
			a := 2 * math.Pi * float64(i) / circleSegments
			pt := vec.Vec2{X: math.Cos(a), Y: math.Sin(a)}
			if i == 0 {
				p.MoveTo(pt)
			} else {
				p.LineTo(pt)
			}
		}
		p.Close()
	default:
		return nil, false
	}
	return []*path.Data{p}, true
}

// parseShapeDef reads a custom shape definition: ';' separated commands
// p:colour, f:colour, pw:width, m:x,y, l:x,y,... (or a bare x,y list),
// a:cx,cy,x,y and z.
func parseShapeDef(def string, s *shape) error {
	cur := &path.Data{}
	started := false
	flush := func() {
		if len(cur.Cmds) > 0 {
			cur.Close()
			s.paths = append(s.paths, cur)
		}
		cur = &path.Data{}
		started = false
	}
	lineTo := func(pt vec.Vec2) {
		if !started {
			cur.MoveTo(pt)
			started = true
			return
		}
		cur.LineTo(pt)
	}

	for _, cmd := range strings.Split(strings.ReplaceAll(def, " ", ""), ";") {
		switch {
		case cmd == "":
		case strings.HasPrefix(cmd, "p:"):
			if c, err := props.ParseColour(cmd[2:]); err == nil {
				s.pen = c
			}
		case strings.HasPrefix(cmd, "f:"):
			if c, err := props.ParseColour(cmd[2:]); err == nil {
				s.fill = c
			}
		case strings.HasPrefix(cmd, "pw:"):
			w, err := strconv.ParseFloat(cmd[3:], 64)
			if err != nil {
				return fmt.Errorf("shape pen width %q: %w", cmd[3:], err)
			}
			s.penWidth = w
		case strings.HasPrefix(cmd, "a:"):
			pts, err := parseCoords(cmd[2:])
			if err != nil {
				return err
			}
			if len(pts) != 2 {
				return fmt.Errorf("shape arc %q needs 4 coordinates", cmd)
			}
			if !started {
				cur.MoveTo(vec.Vec2{})
				started = true
			}
			cur.QuadTo(pts[0], pts[1])
		case cmd == "z" || cmd == "Z":
			flush()
		case strings.HasPrefix(cmd, "m:"):
			pts, err := parseCoords(cmd[2:])
			if err != nil {
				return err
			}
			for _, pt := range pts {
				cur.MoveTo(pt)
				started = true
			}
		default:
			pts, err := parseCoords(strings.TrimPrefix(cmd, "l:"))
			if err != nil {
				return err
			}
			for _, pt := range pts {
				lineTo(pt)
			}
		}
	}
	flush()
	return nil
}

func parseCoords(s string) ([]vec.Vec2, error) {
	parts := strings.Split(s, ",")
	if len(parts)%2 != 0 {
		return nil, fmt.Errorf("odd number of coordinates in %q", s)
	}
	out := make([]vec.Vec2, 0, len(parts)/2)
	for i := 0; i < len(parts); i += 2 {
		x, err := strconv.ParseFloat(parts[i], 64)
		if err != nil {
			return nil, fmt.Errorf("coordinate %q: %w", parts[i], err)
		}
		y, err := strconv.ParseFloat(parts[i+1], 64)
		if err != nil {
			return nil, fmt.Errorf("coordinate %q: %w", parts[i+1], err)
		}
		out = append(out, vec.Vec2{X: x, Y: y})
	}
	return out, nil
}

// buildShape resolves the shape of an instruction.
func buildShape(bag *props.Bag, zoom float64) (*shape, error) {
	fill := bag.Colour("fill-color", "fill-opacity", zoom)
	pen := fill
	switch {
	case bag.Has("border-color"):
		pen = bag.Colour("border-color", "border-opacity", zoom)
	case bag.Has("line-color"):
		pen = bag.Colour("line-color", "line-opacity", zoom)
	}

	s := &shape{fill: fill, pen: pen, penWidth: 1}
	name := bag.Enum("shape")
	if bag.Has("shape") && strings.ToLower(strings.TrimSpace(bag.String("shape"))) != name {
		return nil, &ErrUnknownShape{Name: bag.String("shape")}
	}
	if name == "custom" {
		if err := parseShapeDef(bag.String("shape-def"), s); err != nil {
			return nil, err
		}
		return s, nil
	}

	paths, ok := unitShape(name)
	if !ok {
		return nil, &ErrUnknownShape{Name: name}
	}
	s.paths = paths
	return s, nil
}

// place scales a unit path so its larger side is size, rotates it by angle
// and moves it to at.
func place(p *path.Data, at vec.Vec2, size, angle float64) *path.Data {
	ext := extent(p)
	if ext == 0 {
		ext = 1
	}
	sin, cos := math.Sincos(angle)
	out := &path.Data{Cmds: append([]path.Command(nil), p.Cmds...)}
	out.Coords = make([]vec.Vec2, len(p.Coords))
	for i, c := range p.Coords {
		r := vec.Vec2{X: c.X*cos - c.Y*sin, Y: c.X*sin + c.Y*cos}
		out.Coords[i] = vec.Vec2{X: at.X + r.X/ext*size, Y: at.Y + r.Y/ext*size}
	}
	return out
}

// extent is the larger of the width and height of the path's control box.
func extent(p *path.Data) float64 {
	if len(p.Coords) == 0 {
		return 0
	}
	minX, maxX := p.Coords[0].X, p.Coords[0].X
	minY, maxY := p.Coords[0].Y, p.Coords[0].Y
	for _, c := range p.Coords[1:] {
		minX, maxX = math.Min(minX, c.X), math.Max(maxX, c.X)
		minY, maxY = math.Min(minY, c.Y), math.Max(maxY, c.Y)
	}
	return math.Max(maxX-minX, maxY-minY)
}
