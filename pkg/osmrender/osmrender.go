// Package osmrender renders OpenStreetMap extracts to map images using a
// MapCSS-like ruleset.
//
// Example:
//
//	doc, err := osmrender.LoadDocument(ctx, "city.osm.pbf", nil)
//	rs, err := osmrender.ParseRuleset(src, osmrender.Options{})
//	rs.Apply(doc)
//	r := osmrender.NewRenderer(doc.Bounds(), 15, osmrender.RendererOptions{IconDirs: []string{"icons"}})
//	tiles, err := r.Render(ctx, doc, osmrender.RenderOptions{Tiled: true})
package osmrender

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sort"
	"time"

	"github.com/beetlebugorg/osmrender/internal/geo"
	"github.com/beetlebugorg/osmrender/internal/logging"
	"github.com/beetlebugorg/osmrender/internal/osmdata"
	"github.com/beetlebugorg/osmrender/internal/render"
	"github.com/beetlebugorg/osmrender/internal/render/paint"
	"github.com/beetlebugorg/osmrender/internal/render/raster"
	"github.com/beetlebugorg/osmrender/internal/rules"
)

type (
	// Document holds the entities of a map extract and the draw
	// instructions produced for them.
	Document = geo.Document
	Bounds   = geo.Bounds
	// Logger receives warnings about missing members, unknown shapes and
	// missing icons. *zap.SugaredLogger satisfies it.
	Logger = logging.Logger
	// SyntaxError reports a malformed ruleset with its line number.
	SyntaxError = rules.SyntaxError
)

// Options configures ruleset parsing and evaluation.
type Options struct {
	Logger Logger
}

// Ruleset is a parsed style ruleset.
type Ruleset struct {
	internal *rules.Ruleset
}

// ParseRuleset parses ruleset source text. A malformed ruleset returns a
// *SyntaxError.
func ParseRuleset(text string, opts Options) (*Ruleset, error) {
	rs, err := rules.Parse(text, opts.Logger)
	if err != nil {
		var syn *rules.SyntaxError
		if errors.As(err, &syn) {
			return nil, syn
		}
		return nil, fmt.Errorf("parse ruleset: %w", err)
	}
	return &Ruleset{internal: rs}, nil
}

// Apply evaluates the ruleset against every feature of doc, appending draw
// instructions to doc.Instructions.
func (r *Ruleset) Apply(doc *Document) {
	r.internal.Apply(doc)
}

// LoadDocument reads an OSM XML (.osm, .xml) or PBF (.pbf) file.
func LoadDocument(ctx context.Context, path string, log Logger) (*Document, error) {
	doc, _, err := osmdata.Load(ctx, path, log)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// RendererOptions configures a Renderer.
type RendererOptions struct {
	// IconDirs are searched in order for icon images.
	IconDirs []string
	// IconCacheBytes bounds the decoded icon cache (0 = unbounded).
	IconCacheBytes int64
	Logger         Logger
}

// Renderer renders the tiles of one zoom level.
type Renderer struct {
	internal *render.Renderer
}

// NewRenderer creates a renderer for the tiles covering bounds at zoom.
func NewRenderer(bounds Bounds, zoom int, opts RendererOptions) *Renderer {
	var images paint.ImageLoader
	if len(opts.IconDirs) > 0 {
		images = raster.NewIconLoader(opts.IconCacheBytes, opts.IconDirs...)
	}
	return &Renderer{internal: render.NewRenderer(bounds, zoom, images, opts.Logger)}
}

// Zoom returns the zoom level.
func (r *Renderer) Zoom() int {
	return r.internal.Zoom()
}

// TileCount returns the number of tiles covering the bounds.
func (r *Renderer) TileCount() int {
	return r.internal.TileCount()
}

// RenderOptions configures Render.
type RenderOptions struct {
	// Tiled renders 256x256 tiles. Otherwise one image covers every tile.
	Tiled bool
	// Workers bounds concurrent rendering (0 = runtime.NumCPU()).
	Workers int
	// Progress is called after each tile.
	Progress func(done, total int)
	// OnTile is called after each tile with its render time.
	OnTile func(t *Tile, elapsed time.Duration)
}

// Tile is one rendered image.
type Tile struct {
	Z, X, Y int
	// Empty is set when nothing was drawn.
	Empty bool
	// Instructions is the number of paint dispatches.
	Instructions int

	canvas *raster.Canvas
}

// Image returns the rendered pixels.
func (t *Tile) Image() image.Image {
	return t.canvas.Image()
}

// PNG encodes the tile.
func (t *Tile) PNG() ([]byte, error) {
	return t.canvas.PNG()
}

func newTile(t *render.Tile) *Tile {
	return &Tile{
		Z:            int(t.Key.Z),
		X:            int(t.Key.X),
		Y:            int(t.Key.Y),
		Empty:        t.Empty,
		Instructions: t.Instructions,
		canvas:       t.Painter.(*raster.Canvas),
	}
}

// Render paints the document. In tiled mode empty tiles are omitted and the
// result is ordered by x then y.
func (r *Renderer) Render(ctx context.Context, doc *Document, opts RenderOptions) ([]*Tile, error) {
	ropts := render.RenderOptions{
		Tiled:    opts.Tiled,
		Workers:  opts.Workers,
		Progress: opts.Progress,
		NewPainter: func(p render.Page) paint.Painter {
			return raster.NewCanvas(p.Size())
		},
	}
	if opts.OnTile != nil {
		ropts.OnTile = func(t *render.Tile, elapsed time.Duration) {
			opts.OnTile(newTile(t), elapsed)
		}
	}

	result, err := r.internal.Render(ctx, doc, ropts)
	if err != nil {
		return nil, err
	}

	tiles := make([]*Tile, 0, len(result))
	for _, t := range result {
		tiles = append(tiles, newTile(t))
	}
	sort.Slice(tiles, func(i, j int) bool {
		if tiles[i].X != tiles[j].X {
			return tiles[i].X < tiles[j].X
		}
		return tiles[i].Y < tiles[j].Y
	})
	return tiles, nil
}
