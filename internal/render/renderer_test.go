package render

import (
	"context"
	"errors"
	"image"
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/beetlebugorg/osmrender/internal/geo"
	"github.com/beetlebugorg/osmrender/internal/logging"
	"github.com/beetlebugorg/osmrender/internal/render/paint"
)

const testZoom = 12

func recorders() func(Page) paint.Painter {
	return func(Page) paint.Painter { return &paint.Recorder{} }
}

func calls(t *testing.T, tile *Tile) []paint.Call {
	t.Helper()
	switch r := tile.Painter.(type) {
	case *paint.Recorder:
		return r.Calls
	case *paint.MaskRecorder:
		return r.Calls
	}
	t.Fatalf("unexpected painter %T", tile.Painter)
	return nil
}

// renderWhole renders doc as a single page and returns the recorded calls.
func renderWhole(t *testing.T, doc *geo.Document, newPainter func(Page) paint.Painter, images paint.ImageLoader, log *zap.SugaredLogger) []paint.Call {
	t.Helper()
	var l logging.Logger
	if log != nil {
		l = log
	}
	r := NewRenderer(doc.Bounds(), testZoom, images, l)
	tiles, err := r.Render(context.Background(), doc, RenderOptions{NewPainter: newPainter})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if len(tiles) != 1 {
		t.Fatalf("Expected a single page, got %d", len(tiles))
	}
	for _, tile := range tiles {
		return calls(t, tile)
	}
	return nil
}

func square(id int64, lat, lon, half float64) []*geo.Point {
	first := geo.NewPoint(id, nil, lat-half, lon-half)
	return []*geo.Point{
		first,
		geo.NewPoint(id+1, nil, lat-half, lon+half),
		geo.NewPoint(id+2, nil, lat+half, lon+half),
		geo.NewPoint(id+3, nil, lat+half, lon-half),
		first,
	}
}

func docWith(points []*geo.Point, instrs ...*geo.DrawInstruction) *geo.Document {
	doc := geo.NewDocument(points, nil, nil, nil, nil)
	for _, in := range instrs {
		doc.AddInstruction(in)
	}
	return doc
}

func TestRenderTiledCulling(t *testing.T) {
	pt := geo.NewPoint(1, nil, 51.5074, -0.1278)
	doc := docWith([]*geo.Point{pt}, instruction(geo.DrawShape, pt, 0, nil))

	r := NewRenderer(doc.Bounds(), testZoom, nil, nil)
	var progress []int
	tiles, err := r.Render(context.Background(), doc, RenderOptions{
		Tiled:      true,
		Workers:    2,
		NewPainter: recorders(),
		Progress:   func(done, total int) { progress = append(progress, done) },
	})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	if len(progress) != r.TileCount() {
		t.Errorf("Expected %d progress calls, got %d", r.TileCount(), len(progress))
	}
	if len(tiles) != 1 {
		t.Fatalf("Expected 1 non-empty tile, got %d", len(tiles))
	}

	want := maptile.At(orb.Point{pt.Lon, pt.Lat}, testZoom)
	tile, ok := tiles[want]
	if !ok {
		t.Fatalf("Expected tile %v to be rendered, got %v", want, tiles)
	}
	if tile.Empty || tile.Instructions != 1 {
		t.Errorf("Expected 1 painted instruction, got %d", tile.Instructions)
	}
	if got := calls(t, tile); len(got) == 0 || got[0].Op != paint.OpFill {
		t.Errorf("Expected shape fill, got %v", got)
	}
}

func TestRenderCancelled(t *testing.T) {
	pt := geo.NewPoint(1, nil, 51.5074, -0.1278)
	doc := docWith([]*geo.Point{pt}, instruction(geo.DrawShape, pt, 0, nil))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewRenderer(doc.Bounds(), testZoom, nil, nil)
	_, err := r.Render(ctx, doc, RenderOptions{Tiled: true, NewPainter: recorders()})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestRenderNoPainter(t *testing.T) {
	doc := docWith(nil)
	r := NewRenderer(doc.Bounds(), testZoom, nil, nil)
	if _, err := r.Render(context.Background(), doc, RenderOptions{}); err == nil {
		t.Error("Expected error without painter factory")
	}
}

func TestRenderImportanceOrder(t *testing.T) {
	ring := square(10, 51.5, -0.12, 0.01)
	area := geo.NewArea(1, nil)
	area.Outer = [][]*geo.Point{ring}

	low := instruction(geo.DrawFill, area, 1, map[string]string{"fill-color": "#f00"})
	high := instruction(geo.DrawFill, area, 5, map[string]string{"fill-color": "#00f"})
	bg := instruction(geo.DrawBackground, &geo.Background{Extent: area.Bounds()}, 0, nil)

	got := renderWhole(t, docWith(ring, high, bg, low), recorders(), nil, nil)
	if len(got) != 3 {
		t.Fatalf("Expected 3 calls, got %d", len(got))
	}
	order := []*geo.DrawInstruction{bg, low, high}
	for i, in := range order {
		if got[i].Instruction != in {
			t.Errorf("Expected call %d from importance %d, got %d", i, in.Importance, got[i].Instruction.Importance)
		}
	}
	if got[1].Color.R != 0xff || got[2].Color.B != 0xff {
		t.Errorf("Expected red under blue, got %v then %v", got[1].Color, got[2].Color)
	}
}

func TestRenderFillWithHoles(t *testing.T) {
	outer := square(10, 51.5, -0.12, 0.01)
	inner := square(20, 51.5, -0.12, 0.004)
	area := geo.NewArea(1, nil)
	area.Outer = [][]*geo.Point{outer}
	area.Inner = [][]*geo.Point{inner}
	points := append(append([]*geo.Point(nil), outer...), inner...)

	tests := []struct {
		name    string
		painter func(Page) paint.Painter
		border  string
		want    []paint.Op
	}{
		{"masked", func(Page) paint.Painter { return &paint.MaskRecorder{} }, "none",
			[]paint.Op{paint.OpFillMasked}},
		{"edge", recorders(), "none",
			[]paint.Op{paint.OpFill}},
		{"masked with border", func(Page) paint.Painter { return &paint.MaskRecorder{} }, "solid",
			[]paint.Op{paint.OpFillMasked, paint.OpStroke, paint.OpStroke}},
		{"edge with border", recorders(), "solid",
			[]paint.Op{paint.OpFill, paint.OpStroke}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := instruction(geo.DrawFill, area, 0, map[string]string{"border-style": tt.border})
			got := renderWhole(t, docWith(points, in), tt.painter, nil, nil)
			if len(got) != len(tt.want) {
				t.Fatalf("Expected %v, got %d calls", tt.want, len(got))
			}
			for i := range tt.want {
				if got[i].Op != tt.want[i] {
					t.Errorf("Expected op %v at %d, got %v", tt.want[i], i, got[i].Op)
				}
			}
			if tt.border == "solid" {
				if w := got[len(got)-1].Stroke.Width; w != 7 {
					t.Errorf("Expected border width 7, got %v", w)
				}
			}
		})
	}
}

func TestRenderLinePasses(t *testing.T) {
	a := geo.NewPoint(1, nil, 51.50, -0.13)
	b := geo.NewPoint(2, nil, 51.51, -0.11)
	line := geo.NewLine(3, nil, []*geo.Point{a, b})

	tests := []struct {
		name   string
		props  map[string]string
		widths []float64
	}{
		{"body only", map[string]string{"line-width": "3"}, []float64{3}},
		{"with border", map[string]string{"line-width": "3", "border-style": "solid", "border-width": "2"}, []float64{7, 3}},
		{"no line", map[string]string{"line-style": "none"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := instruction(geo.DrawLine, line, 0, tt.props)
			got := renderWhole(t, docWith([]*geo.Point{a, b}, in), recorders(), nil, nil)
			if len(got) != len(tt.widths) {
				t.Fatalf("Expected %d strokes, got %d", len(tt.widths), len(got))
			}
			for i, w := range tt.widths {
				if got[i].Stroke.Width != w {
					t.Errorf("Expected width %v, got %v", w, got[i].Stroke.Width)
				}
			}
		})
	}
}

func TestRenderDashes(t *testing.T) {
	a := geo.NewPoint(1, nil, 51.50, -0.13)
	b := geo.NewPoint(2, nil, 51.51, -0.11)
	line := geo.NewLine(3, nil, []*geo.Point{a, b})
	in := instruction(geo.DrawLine, line, 0, map[string]string{"line-style": "dashlong"})

	got := renderWhole(t, docWith([]*geo.Point{a, b}, in), recorders(), nil, nil)
	if len(got) != 1 || len(got[0].Stroke.Dash) != 2 || got[0].Stroke.Dash[0] != 4 {
		t.Errorf("Expected dashlong pattern, got %v", got)
	}
}

func TestRenderText(t *testing.T) {
	a := geo.NewPoint(1, nil, 51.50, -0.13)
	b := geo.NewPoint(2, nil, 51.51, -0.11)
	line := geo.NewLine(3, nil, []*geo.Point{a, b})

	onPoint := instruction(geo.DrawText, a, 0, map[string]string{"text-halo-width": "2"})
	onPoint.Text = "Shop"
	onLine := instruction(geo.DrawText, line, 0, nil)
	onLine.Text = "High Street"
	disabled := instruction(geo.DrawText, b, 0, nil)
	disabled.Text = "Hidden"
	disabled.Disabled = true

	got := renderWhole(t, docWith([]*geo.Point{a, b}, onPoint, onLine, disabled), recorders(), nil, nil)

	var halos, fills, lineFills int
	for _, c := range got {
		switch c.Op {
		case paint.OpStrokeText:
			halos++
			if c.Width != 2 {
				t.Errorf("Expected halo width 2, got %v", c.Width)
			}
		case paint.OpFillText:
			fills++
			if c.Instruction == onLine {
				lineFills++
			}
			if c.Text.Text == "Hidden" {
				t.Error("Expected disabled text to be skipped")
			}
		}
	}
	if halos != 1 {
		t.Errorf("Expected 1 halo, got %d", halos)
	}
	if lineFills == 0 {
		t.Error("Expected at least one label along the line")
	}
	if fills != lineFills+1 {
		t.Errorf("Expected %d fills, got %d", lineFills+1, fills)
	}
}

func TestRenderUnknownShape(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	log := zap.New(core).Sugar()

	pt := geo.NewPoint(1, nil, 51.5, -0.12)
	in := instruction(geo.DrawShape, pt, 0, map[string]string{"shape": "hexagon"})
	got := renderWhole(t, docWith([]*geo.Point{pt}, in), recorders(), nil, log)

	if len(got) != 0 {
		t.Errorf("Expected no calls, got %d", len(got))
	}
	if logs.Len() != 1 {
		t.Fatalf("Expected 1 warning, got %d", logs.Len())
	}
	if msg := logs.All()[0].Message; msg != "shape: unknown shape `hexagon'" {
		t.Errorf("Expected unknown shape warning, got %q", msg)
	}
}

func TestRenderShapesAlongLine(t *testing.T) {
	a := geo.NewPoint(1, nil, 51.50, -0.20)
	b := geo.NewPoint(2, nil, 51.50, -0.10)
	line := geo.NewLine(3, nil, []*geo.Point{a, b})
	in := instruction(geo.DrawShape, line, 0, map[string]string{"shape": "square"})

	got := renderWhole(t, docWith([]*geo.Point{a, b}, in), recorders(), nil, nil)

	pg := Page{Proj: Projection{Zoom: testZoom}}
	length := math.Abs(pg.X(-0.10) - pg.X(-0.20))
	want := int(math.Ceil((length - lineShapeInterval/2) / lineShapeInterval))

	var fills int
	for _, c := range got {
		if c.Op == paint.OpFill {
			fills++
		}
	}
	if fills != want {
		t.Errorf("Expected %d shapes, got %d", want, fills)
	}
}

type images map[string]image.Image

func (m images) LoadImage(name string) (image.Image, error) {
	img, ok := m[name]
	if !ok {
		return nil, errors.New("not found")
	}
	return img, nil
}

func TestRenderIcon(t *testing.T) {
	pt := geo.NewPoint(1, nil, 51.5, -0.12)
	icon := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	loader := images{"shop.png": icon}

	tests := []struct {
		name  string
		props map[string]string
		size  float64
		calls int
	}{
		{"default size", map[string]string{"icon-image": "shop.png"}, 10, 1},
		{"explicit width", map[string]string{"icon-image": "shop.png", "icon-width": "24"}, 24, 1},
		{"missing", map[string]string{"icon-image": "none.png"}, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zapcore.ErrorLevel)
			in := instruction(geo.DrawIcon, pt, 0, tt.props)
			got := renderWhole(t, docWith([]*geo.Point{pt}, in), recorders(), loader, zap.New(core).Sugar())
			if len(got) != tt.calls {
				t.Fatalf("Expected %d calls, got %d", tt.calls, len(got))
			}
			if tt.calls == 0 {
				if logs.Len() != 1 {
					t.Errorf("Expected 1 error, got %d", logs.Len())
				}
				return
			}
			if got[0].W != tt.size || got[0].H != tt.size {
				t.Errorf("Expected %vx%v icon, got %vx%v", tt.size, tt.size, got[0].W, got[0].H)
			}
		})
	}
}

func TestDrawTileOutsideRange(t *testing.T) {
	pt := geo.NewPoint(1, nil, 51.5, -0.12)
	doc := docWith([]*geo.Point{pt}, instruction(geo.DrawShape, pt, 0, nil))
	r := NewRenderer(doc.Bounds(), testZoom, nil, nil)

	tile, err := r.RenderTile(context.Background(), doc, 0, 0, recorders())
	if err != nil {
		t.Fatalf("RenderTile failed: %v", err)
	}
	if !tile.Empty {
		t.Error("Expected tile far from the data to be empty")
	}
}

func BenchmarkRenderTiled(b *testing.B) {
	var points []*geo.Point
	var instrs []*geo.DrawInstruction
	for i := 0; i < 500; i++ {
		lat := 51.45 + float64(i%25)*0.004
		lon := -0.2 + float64(i/25)*0.008
		p := geo.NewPoint(int64(i+1), nil, lat, lon)
		points = append(points, p)
		instrs = append(instrs, instruction(geo.DrawShape, p, i%7, nil))
	}
	doc := docWith(points, instrs...)
	r := NewRenderer(doc.Bounds(), 14, nil, nil)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := r.Render(context.Background(), doc, RenderOptions{Tiled: true, NewPainter: recorders()}); err != nil {
			b.Fatal(err)
		}
	}
}
