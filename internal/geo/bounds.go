package geo

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// Bounds is a geographic bounding box in degrees.
type Bounds struct {
	MinLat float64
	MaxLat float64
	MinLon float64
	MaxLon float64
}

// BoundsFrom builds bounds from explicit extremes.
func BoundsFrom(minLat, maxLat, minLon, maxLon float64) Bounds {
	return Bounds{MinLat: minLat, MaxLat: maxLat, MinLon: minLon, MaxLon: maxLon}
}

// BoundsFromPoint returns the degenerate bounds of a single coordinate.
func BoundsFromPoint(lat, lon float64) Bounds {
	return Bounds{MinLat: lat, MaxLat: lat, MinLon: lon, MaxLon: lon}
}

// BoundsFromOrb converts an orb.Bound (lon/lat ordered) to Bounds.
func BoundsFromOrb(b orb.Bound) Bounds {
	return Bounds{MinLat: b.Min.Lat(), MaxLat: b.Max.Lat(), MinLon: b.Min.Lon(), MaxLon: b.Max.Lon()}
}

// Merge returns the smallest bounds containing both b and other.
func (b Bounds) Merge(other Bounds) Bounds {
	return Bounds{
		MinLat: math.Min(b.MinLat, other.MinLat),
		MaxLat: math.Max(b.MaxLat, other.MaxLat),
		MinLon: math.Min(b.MinLon, other.MinLon),
		MaxLon: math.Max(b.MaxLon, other.MaxLon),
	}
}

// Overlaps reports whether the interiors of b and other intersect.
// Touching edges do not count, so two identical zero-size bounds never overlap.
func (b Bounds) Overlaps(other Bounds) bool {
	return b.MinLon < other.MaxLon && b.MaxLon > other.MinLon &&
		b.MinLat < other.MaxLat && b.MaxLat > other.MinLat
}

// Extend grows each side by span*(factor-1) of its own axis, so Extend(1.1)
// makes the box 10% wider on each side. Zero-size axes stay zero-size.
func (b Bounds) Extend(factor float64) Bounds {
	latAmount := (b.MaxLat - b.MinLat) * (factor - 1)
	lonAmount := (b.MaxLon - b.MinLon) * (factor - 1)
	return Bounds{
		MinLat: b.MinLat - latAmount,
		MaxLat: b.MaxLat + latAmount,
		MinLon: b.MinLon - lonAmount,
		MaxLon: b.MaxLon + lonAmount,
	}
}

// Center returns the midpoint as (lat, lon).
func (b Bounds) Center() (lat, lon float64) {
	return (b.MinLat + b.MaxLat) / 2, (b.MinLon + b.MaxLon) / 2
}

// Bound converts to an orb.Bound.
func (b Bounds) Bound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{b.MinLon, b.MinLat},
		Max: orb.Point{b.MaxLon, b.MaxLat},
	}
}

func (b Bounds) String() string {
	return fmt.Sprintf("Bounds(%g, %g, %g, %g)", b.MinLat, b.MaxLat, b.MinLon, b.MaxLon)
}

// boundsOf merges the bounds of a point list. ok is false for an empty list.
func boundsOf(points []*Point) (b Bounds, ok bool) {
	for i, p := range points {
		if i == 0 {
			b = p.Bounds()
			continue
		}
		b = b.Merge(p.Bounds())
	}
	return b, len(points) > 0
}

// BoundsOfPoints merges the bounds of all points. Empty input yields zero bounds.
func BoundsOfPoints(points []*Point) Bounds {
	b, _ := boundsOf(points)
	return b
}
