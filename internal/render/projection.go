package render

import (
	"math"

	"seehuhn.de/go/geom/vec"

	"github.com/beetlebugorg/osmrender/internal/geo"
)

// TileSize is the edge length of a tile in pixels.
const TileSize = 256

// Projection is the slippy-map Web Mercator projection at one zoom level.
// Tile coordinates are fractional; the integer part is the tile number.
type Projection struct {
	Zoom int
}

func (p Projection) n() float64 {
	return math.Exp2(float64(p.Zoom))
}

func (p Projection) LonToTileX(lon float64) float64 {
	return p.n() * (lon + 180) / 360
}

func (p Projection) LatToTileY(lat float64) float64 {
	rad := lat * math.Pi / 180
	return p.n() * (1 - math.Log(math.Tan(rad)+1/math.Cos(rad))/math.Pi) / 2
}

func (p Projection) TileXToLon(x float64) float64 {
	return x/p.n()*360 - 180
}

func (p Projection) TileYToLat(y float64) float64 {
	rad := math.Atan(math.Sinh(math.Pi * (1 - 2*y/p.n())))
	return rad * 180 / math.Pi
}

// TileRange returns the inclusive tile range covering b. The y axis grows
// southwards, so minY comes from the northern edge.
func (p Projection) TileRange(b geo.Bounds) (minX, maxX, minY, maxY int) {
	minX = int(math.Floor(p.LonToTileX(b.MinLon)))
	maxX = int(math.Ceil(p.LonToTileX(b.MaxLon)))
	minY = int(math.Floor(p.LatToTileY(b.MaxLat)))
	maxY = int(math.Ceil(p.LatToTileY(b.MinLat)))
	return minX, maxX, minY, maxY
}

// Page is a W×H block of tiles whose top-left tile is (TileX, TileY).
type Page struct {
	Proj         Projection
	TileX, TileY int
	W, H         int
}

// Size returns the page size in pixels.
func (pg Page) Size() (w, h int) {
	return TileSize * pg.W, TileSize * pg.H
}

func (pg Page) X(lon float64) float64 {
	return TileSize * (pg.Proj.LonToTileX(lon) - float64(pg.TileX))
}

func (pg Page) Y(lat float64) float64 {
	return TileSize * (pg.Proj.LatToTileY(lat) - float64(pg.TileY))
}

// Pixel maps a point to page pixels.
func (pg Page) Pixel(p *geo.Point) vec.Vec2 {
	return vec.Vec2{X: pg.X(p.Lon), Y: pg.Y(p.Lat)}
}

// Pixels maps a node list to page pixels.
func (pg Page) Pixels(nodes []*geo.Point) []vec.Vec2 {
	out := make([]vec.Vec2, len(nodes))
	for i, n := range nodes {
		out[i] = pg.Pixel(n)
	}
	return out
}

// Bounds returns the geographic extent of the page.
func (pg Page) Bounds() geo.Bounds {
	return geo.BoundsFrom(
		pg.Proj.TileYToLat(float64(pg.TileY+pg.H)),
		pg.Proj.TileYToLat(float64(pg.TileY)),
		pg.Proj.TileXToLon(float64(pg.TileX)),
		pg.Proj.TileXToLon(float64(pg.TileX+pg.W)),
	)
}
