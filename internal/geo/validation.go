package geo

import (
	"fmt"
)

// ValidateCoordinate validates a single coordinate pair
func ValidateCoordinate(id int64, lat, lon float64) error {
	if lat < -90.0 || lat > 90.0 {
		return &ErrInvalidCoordinate{ID: id, Lat: lat, Lon: lon}
	}
	if lon < -180.0 || lon > 180.0 {
		return &ErrInvalidCoordinate{ID: id, Lat: lat, Lon: lon}
	}
	return nil
}

// ValidateGeometry reports entities that carry no drawable geometry. Such
// entities are still kept in the document; rules may match them by tags.
func ValidateGeometry(e Entity) error {
	switch v := e.(type) {
	case *Line:
		if len(v.Nodes) < 2 {
			return &ErrInvalidGeometry{
				Kind:   KindLine,
				ID:     v.id,
				Reason: fmt.Sprintf("line needs at least 2 nodes, got %d", len(v.Nodes)),
			}
		}
	case *Area:
		if len(v.Outer) == 0 {
			return &ErrInvalidGeometry{Kind: KindArea, ID: v.id, Reason: "area has no outer ring"}
		}
		for i, ring := range append(append([][]*Point{}, v.Outer...), v.Inner...) {
			// A closed ring repeats its first node, so a triangle has 4 entries
			if len(ring) < 4 {
				return &ErrInvalidGeometry{
					Kind:   KindArea,
					ID:     v.id,
					Reason: fmt.Sprintf("ring %d has %d nodes, need at least 4", i, len(ring)),
				}
			}
		}
	}
	return nil
}
