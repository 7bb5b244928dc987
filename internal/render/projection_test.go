package render

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"

	"github.com/beetlebugorg/osmrender/internal/geo"
)

func TestProjectionRoundTrip(t *testing.T) {
	tests := []struct {
		name     string
		zoom     int
		lat, lon float64
	}{
		{"origin", 0, 0, 0},
		{"london", 12, 51.5074, -0.1278},
		{"sydney", 15, -33.8688, 151.2093},
		{"far north", 8, 80, 179.9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Projection{Zoom: tt.zoom}
			lon := p.TileXToLon(p.LonToTileX(tt.lon))
			lat := p.TileYToLat(p.LatToTileY(tt.lat))
			if math.Abs(lon-tt.lon) > 1e-9 {
				t.Errorf("Expected lon %v, got %v", tt.lon, lon)
			}
			if math.Abs(lat-tt.lat) > 1e-9 {
				t.Errorf("Expected lat %v, got %v", tt.lat, lat)
			}
		})
	}
}

func TestProjectionMatchesMaptile(t *testing.T) {
	points := []orb.Point{
		{-0.1278, 51.5074},
		{151.2093, -33.8688},
		{-122.4194, 37.7749},
		{13.405, 52.52},
	}

	for _, zoom := range []int{1, 5, 10, 14, 17} {
		p := Projection{Zoom: zoom}
		for _, pt := range points {
			want := maptile.At(pt, maptile.Zoom(zoom))
			x := uint32(math.Floor(p.LonToTileX(pt.Lon())))
			y := uint32(math.Floor(p.LatToTileY(pt.Lat())))
			if x != want.X || y != want.Y {
				t.Errorf("Expected tile %d/%d at zoom %d, got %d/%d", want.X, want.Y, zoom, x, y)
			}
		}
	}
}

func TestTileRange(t *testing.T) {
	p := Projection{Zoom: 14}
	b := geo.BoundsFrom(51.50, 51.52, -0.13, -0.10)
	minX, maxX, minY, maxY := p.TileRange(b)

	if minX != int(math.Floor(p.LonToTileX(-0.13))) {
		t.Errorf("Expected minX from western edge, got %d", minX)
	}
	if maxX != int(math.Ceil(p.LonToTileX(-0.10))) {
		t.Errorf("Expected maxX from eastern edge, got %d", maxX)
	}
	if minY != int(math.Floor(p.LatToTileY(51.52))) {
		t.Errorf("Expected minY from northern edge, got %d", minY)
	}
	if maxY != int(math.Ceil(p.LatToTileY(51.50))) {
		t.Errorf("Expected maxY from southern edge, got %d", maxY)
	}
	if minY >= maxY {
		t.Errorf("Expected minY < maxY, got %d and %d", minY, maxY)
	}
}

func TestPage(t *testing.T) {
	proj := Projection{Zoom: 10}
	pg := Page{Proj: proj, TileX: 511, TileY: 340, W: 2, H: 1}

	w, h := pg.Size()
	if w != 512 || h != 256 {
		t.Errorf("Expected 512x256, got %dx%d", w, h)
	}

	b := pg.Bounds()
	if x := pg.X(b.MinLon); math.Abs(x) > 1e-6 {
		t.Errorf("Expected western edge at x=0, got %v", x)
	}
	if x := pg.X(b.MaxLon); math.Abs(x-512) > 1e-6 {
		t.Errorf("Expected eastern edge at x=512, got %v", x)
	}
	if y := pg.Y(b.MaxLat); math.Abs(y) > 1e-6 {
		t.Errorf("Expected northern edge at y=0, got %v", y)
	}
	if y := pg.Y(b.MinLat); math.Abs(y-256) > 1e-6 {
		t.Errorf("Expected southern edge at y=256, got %v", y)
	}

	px := pg.Pixels([]*geo.Point{geo.NewPoint(1, nil, b.MaxLat, b.MinLon)})
	if len(px) != 1 || math.Abs(px[0].X) > 1e-6 || math.Abs(px[0].Y) > 1e-6 {
		t.Errorf("Expected top-left corner at origin, got %v", px)
	}
}
