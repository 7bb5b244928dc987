package paint

import (
	"image"
	"image/color"
	"sync"

	"seehuhn.de/go/geom/path"

	"github.com/beetlebugorg/osmrender/internal/geo"
)

// Op identifies a recorded painter call.
type Op int

const (
	OpFill Op = iota
	OpStroke
	OpImage
	OpFillText
	OpStrokeText
	OpFillMasked
)

func (o Op) String() string {
	switch o {
	case OpFill:
		return "fill"
	case OpStroke:
		return "stroke"
	case OpImage:
		return "image"
	case OpFillText:
		return "fill-text"
	case OpStrokeText:
		return "stroke-text"
	case OpFillMasked:
		return "fill-masked"
	default:
		return "unknown"
	}
}

// Call is one recorded painter call together with the layer and
// instruction that issued it.
type Call struct {
	Op          Op
	Layer       int
	Instruction *geo.DrawInstruction

	Path   *path.Data
	Outer  []*path.Data
	Inner  []*path.Data
	Color  color.NRGBA
	Stroke StrokeStyle
	Text   TextStyle
	Width  float64

	Reference float64

	Image      image.Image
	X, Y, W, H float64
}

// Recorder is a Painter that records calls instead of drawing them.
type Recorder struct {
	mu    sync.Mutex
	Calls []Call

	layer int
	in    *geo.DrawInstruction
}

func (r *Recorder) Annotate(layer int, in *geo.DrawInstruction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.layer, r.in = layer, in
}

func (r *Recorder) record(c Call) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c.Layer, c.Instruction = r.layer, r.in
	r.Calls = append(r.Calls, c)
}

func (r *Recorder) FillPath(p *path.Data, c color.NRGBA) {
	r.record(Call{Op: OpFill, Path: p, Color: c})
}

func (r *Recorder) StrokePath(p *path.Data, s StrokeStyle) {
	r.record(Call{Op: OpStroke, Path: p, Stroke: s, Color: s.Color})
}

func (r *Recorder) DrawImage(img image.Image, x, y, w, h float64) {
	r.record(Call{Op: OpImage, Image: img, X: x, Y: y, W: w, H: h})
}

func (r *Recorder) FillTextOnPath(p *path.Data, t TextStyle, reference float64) {
	r.record(Call{Op: OpFillText, Path: p, Text: t, Color: t.Color, Reference: reference})
}

func (r *Recorder) StrokeTextOnPath(p *path.Data, t TextStyle, width, reference float64) {
	r.record(Call{Op: OpStrokeText, Path: p, Text: t, Color: t.Color, Width: width, Reference: reference})
}

// Ops returns the recorded operations in order.
func (r *Recorder) Ops() []Op {
	r.mu.Lock()
	defer r.mu.Unlock()
	ops := make([]Op, len(r.Calls))
	for i, c := range r.Calls {
		ops[i] = c.Op
	}
	return ops
}

// MaskRecorder is a Recorder that also accepts masked fills.
type MaskRecorder struct {
	Recorder
}

func (r *MaskRecorder) FillMasked(outer, inner []*path.Data, c color.NRGBA) {
	r.record(Call{Op: OpFillMasked, Outer: outer, Inner: inner, Color: c})
}
