package geo

import (
	"fmt"
)

// ErrInvalidCoordinate indicates coordinate out of valid bounds
type ErrInvalidCoordinate struct {
	ID       int64
	Lat, Lon float64
}

func (e *ErrInvalidCoordinate) Error() string {
	return fmt.Sprintf("node %d: invalid coordinate lat=%f lon=%f (lat must be ±90, lon must be ±180)",
		e.ID, e.Lat, e.Lon)
}

// ErrInvalidGeometry indicates an entity whose geometry cannot be drawn
type ErrInvalidGeometry struct {
	Kind   EntityKind
	ID     int64
	Reason string
}

func (e *ErrInvalidGeometry) Error() string {
	return fmt.Sprintf("invalid %v %d: %s", e.Kind, e.ID, e.Reason)
}

// ErrMissingMember indicates a way or relation references an entity that is
// not part of the document
type ErrMissingMember struct {
	OwnerKind EntityKind
	OwnerID   int64
	Type      string // node, way or relation
	Ref       int64
}

func (e *ErrMissingMember) Error() string {
	return fmt.Sprintf("%v %d references missing %s %d", e.OwnerKind, e.OwnerID, e.Type, e.Ref)
}
