package geo

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateCoordinate(t *testing.T) {
	tests := []struct {
		name    string
		lat     float64
		lon     float64
		wantErr bool
	}{
		{"valid", 51.5, -0.12, false},
		{"lat max boundary", 90.0, 0.0, false},
		{"lon min boundary", 0.0, -180.0, false},
		{"lat too high", 90.1, 0.0, true},
		{"lon too low", 0.0, -180.1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCoordinate(7, tt.lat, tt.lon)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateCoordinate() error = %v, wantErr %v", err, tt.wantErr)
			}
			var coordErr *ErrInvalidCoordinate
			if err != nil && !errors.As(err, &coordErr) {
				t.Errorf("Expected *ErrInvalidCoordinate, got %T", err)
			}
		})
	}
}

func TestValidateGeometry(t *testing.T) {
	pts := map[int64]*Point{}
	open := NewArea(1, nil)
	open.Outer = [][]*Point{chain(pts, 1, 2, 1)}
	closed := NewArea(2, nil)
	closed.Outer = [][]*Point{square(10, 0, 0, 1, true)}

	tests := []struct {
		name    string
		entity  Entity
		wantErr string
	}{
		{"point", NewPoint(1, nil, 0, 0), ""},
		{"line", NewLine(1, nil, chain(pts, 1, 2)), ""},
		{"single node line", NewLine(1, nil, chain(pts, 1)), "at least 2 nodes"},
		{"area without rings", NewArea(1, nil), "no outer ring"},
		{"degenerate ring", open, "need at least 4"},
		{"square", closed, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateGeometry(tt.entity)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Expected no error, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}
