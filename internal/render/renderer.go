// Package render turns draw instructions into painter calls: it projects
// geometry to Web Mercator tiles, buckets instructions into layers, culls
// them per tile and renders tiles on a worker pool.
package render

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/paulmach/orb/maptile"
	"golang.org/x/sync/errgroup"

	"github.com/beetlebugorg/osmrender/internal/geo"
	"github.com/beetlebugorg/osmrender/internal/logging"
	"github.com/beetlebugorg/osmrender/internal/render/paint"
)

// Renderer renders the tiles of one zoom level covering Bounds.
type Renderer struct {
	Bounds geo.Bounds
	Proj   Projection

	MinTileX, MaxTileX int
	MinTileY, MaxTileY int

	images paint.ImageLoader
	log    logging.Logger
}

// NewRenderer computes the tile range covering bounds at zoom. images may
// be nil, in which case icons are skipped.
func NewRenderer(bounds geo.Bounds, zoom int, images paint.ImageLoader, log logging.Logger) *Renderer {
	r := &Renderer{
		Bounds: bounds,
		Proj:   Projection{Zoom: zoom},
		images: images,
		log:    logging.OrNop(log),
	}
	r.MinTileX, r.MaxTileX, r.MinTileY, r.MaxTileY = r.Proj.TileRange(bounds)
	return r
}

// Zoom returns the zoom level.
func (r *Renderer) Zoom() int {
	return r.Proj.Zoom
}

// TileCount returns the number of tiles in the range.
func (r *Renderer) TileCount() int {
	return (r.MaxTileX - r.MinTileX + 1) * (r.MaxTileY - r.MinTileY + 1)
}

// RenderOptions configures Render.
type RenderOptions struct {
	// Tiled renders one page per tile. Otherwise a single page covers the
	// whole tile range and nothing is culled.
	Tiled bool

	// Workers bounds concurrent tile rendering (0 = runtime.NumCPU()).
	Workers int

	// Progress is called after each tile with the number finished so far.
	Progress func(done, total int)

	// OnTile is called after each tile is painted.
	OnTile func(t *Tile, elapsed time.Duration)

	// NewPainter creates the drawing surface of a page. It is called from
	// worker goroutines.
	NewPainter func(page Page) paint.Painter
}

// Tile is one rendered page.
type Tile struct {
	Key     maptile.Tile
	Page    Page
	Painter paint.Painter

	// Empty is set when no instruction overlapped the tile.
	Empty bool
	// Instructions counts paint dispatches, one per instruction and layer.
	Instructions int
}

// Scene is the read-only state shared by every tile of one render: the
// layered instructions and their culling index.
type Scene struct {
	Layers *Layers
	Index  *Index
}

// Prepare buckets the document's instructions for this renderer's zoom.
// Rule evaluation must be complete.
func (r *Renderer) Prepare(doc *geo.Document) *Scene {
	layers := BuildLayers(doc.Instructions, r.Zoom())
	return &Scene{Layers: layers, Index: NewIndex(layers.Instructions())}
}

// Render paints every tile in the range, or a single page when opts.Tiled
// is false. Empty tiles are left out of the result.
func (r *Renderer) Render(ctx context.Context, doc *geo.Document, opts RenderOptions) (map[maptile.Tile]*Tile, error) {
	if opts.NewPainter == nil {
		return nil, fmt.Errorf("render: no painter factory")
	}
	r.log.Debugf("drawing tiles %d..%d / %d..%d at zoom %d", r.MinTileX, r.MaxTileX, r.MinTileY, r.MaxTileY, r.Zoom())

	scene := r.Prepare(doc)
	result := make(map[maptile.Tile]*Tile)

	if !opts.Tiled {
		start := time.Now()
		t := r.renderWhole(scene, opts.NewPainter)
		if opts.OnTile != nil {
			opts.OnTile(t, time.Since(start))
		}
		if opts.Progress != nil {
			opts.Progress(1, 1)
		}
		result[t.Key] = t
		return result, nil
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	var (
		mu   sync.Mutex
		done int
	)
	total := r.TileCount()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

schedule:
	for x := r.MinTileX; x <= r.MaxTileX; x++ {
		for y := r.MinTileY; y <= r.MaxTileY; y++ {
			if gctx.Err() != nil {
				break schedule
			}
			x, y := x, y
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				start := time.Now()
				t := r.renderTile(scene, x, y, opts.NewPainter)
				if opts.OnTile != nil {
					opts.OnTile(t, time.Since(start))
				}

				mu.Lock()
				defer mu.Unlock()
				if !t.Empty {
					result[t.Key] = t
				}
				done++
				if opts.Progress != nil {
					opts.Progress(done, total)
				}
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// RenderTile renders a single tile, whether or not it lies in the range.
func (r *Renderer) RenderTile(ctx context.Context, doc *geo.Document, x, y int, newPainter func(Page) paint.Painter) (*Tile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.DrawTile(r.Prepare(doc), x, y, newPainter), nil
}

// DrawTile renders a tile of a prepared scene.
func (r *Renderer) DrawTile(scene *Scene, x, y int, newPainter func(Page) paint.Painter) *Tile {
	return r.renderTile(scene, x, y, newPainter)
}

func (r *Renderer) tileKey(x, y int) maptile.Tile {
	return maptile.New(uint32(x), uint32(y), maptile.Zoom(r.Zoom()))
}

func (r *Renderer) renderTile(scene *Scene, x, y int, newPainter func(Page) paint.Painter) *Tile {
	page := Page{Proj: r.Proj, TileX: x, TileY: y, W: 1, H: 1}
	t := &Tile{Key: r.tileKey(x, y), Page: page, Painter: newPainter(page), Empty: true}
	hits := scene.Index.Overlapping(page.Bounds())
	r.log.Debugf("drawing tile %d/%d (%s), %d candidates", x, y, page.Bounds(), len(hits))

	d := &drawer{page: page, zoom: float64(r.Zoom()), p: t.Painter, images: r.images, log: r.log}
	for _, code := range scene.Layers.Codes() {
		for _, e := range scene.Layers.byCode[code] {
			if hits[e.in] {
				d.draw(code, e)
			}
		}
	}
	t.Instructions = d.painted
	t.Empty = d.painted == 0
	return t
}

func (r *Renderer) renderWhole(scene *Scene, newPainter func(Page) paint.Painter) *Tile {
	page := Page{
		Proj:  r.Proj,
		TileX: r.MinTileX,
		TileY: r.MinTileY,
		W:     r.MaxTileX - r.MinTileX + 1,
		H:     r.MaxTileY - r.MinTileY + 1,
	}
	w, h := page.Size()
	r.log.Debugf("generating %dx%d page", w, h)

	t := &Tile{Key: r.tileKey(r.MinTileX, r.MinTileY), Page: page, Painter: newPainter(page)}
	d := &drawer{page: page, zoom: float64(r.Zoom()), p: t.Painter, images: r.images, log: r.log}
	for _, code := range scene.Layers.Codes() {
		for _, e := range scene.Layers.byCode[code] {
			d.draw(code, e)
		}
	}
	t.Instructions = d.painted
	t.Empty = d.painted == 0
	return t
}
