package props

import (
	"fmt"
	"strconv"
	"strings"
)

// Breakpoint is one zoom:value pair of a zoomable value.
type Breakpoint struct {
	Zoom     float64
	Value    float64
	Relative bool // Value is a fraction of the base property
}

// Zoomable is a numeric style value that varies by zoom level, written as
// "12:2;14:4" or as a single number. A trailing "%" marks a value relative
// to another property.
type Zoomable []Breakpoint

// ParseZoomable parses a zoomable value.
func ParseZoomable(s string) (Zoomable, error) {
	s = strings.TrimSpace(s)
	if !strings.Contains(s, ":") {
		v, rel, err := parseRelative(s)
		if err != nil {
			return nil, err
		}
		return Zoomable{{Zoom: 0, Value: v, Relative: rel}}, nil
	}

	var z Zoomable
	for _, pair := range strings.Split(s, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		i := strings.Index(pair, ":")
		if i < 0 {
			return nil, fmt.Errorf("zoomable value %q: breakpoint %q has no ':'", s, pair)
		}
		level, err := strconv.ParseFloat(strings.TrimSpace(pair[:i]), 64)
		if err != nil {
			return nil, fmt.Errorf("zoomable value %q: zoom level: %w", s, err)
		}
		v, rel, err := parseRelative(pair[i+1:])
		if err != nil {
			return nil, fmt.Errorf("zoomable value %q: %w", s, err)
		}
		z = append(z, Breakpoint{Zoom: level, Value: v, Relative: rel})
	}
	return z, nil
}

// parseRelative parses "4" or "50%"; a percentage is returned as a fraction.
func parseRelative(s string) (float64, bool, error) {
	s = strings.TrimSpace(s)
	if strings.HasSuffix(s, "%") {
		v, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(s, "%")), 64)
		if err != nil {
			return 0, false, err
		}
		return v / 100, true, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	return v, false, err
}

// At resolves the value at zoom: the breakpoint with the greatest level not
// above zoom wins, later entries winning ties. Without one the value is 0.
// base is only called for relative breakpoints. A relative value without a
// base resolves against 0.
func (z Zoomable) At(zoom float64, base func() float64) float64 {
	var (
		chosen *Breakpoint
		found  bool
	)
	for i := range z {
		bp := &z[i]
		if bp.Zoom > zoom {
			continue
		}
		if !found || bp.Zoom >= chosen.Zoom {
			chosen, found = bp, true
		}
	}
	if !found {
		return 0
	}
	if chosen.Relative {
		var b float64
		if base != nil {
			b = base()
		}
		return chosen.Value * b
	}
	return chosen.Value
}
