package props

import (
	"image/color"
	"strings"
)

// Bag resolves the style properties of one draw instruction. Values missing
// from the instruction fall back to the defaults in Table. A Bag memoises
// numeric lookups per zoom and must not be shared between goroutines.
type Bag struct {
	values map[string]string
	memo   map[memoKey]float64
}

type memoKey struct {
	key  string
	zoom float64
}

// NewBag wraps a property map. The map is not copied.
func NewBag(values map[string]string) *Bag {
	return &Bag{values: values, memo: make(map[memoKey]float64)}
}

// Has reports whether key was set explicitly.
func (b *Bag) Has(key string) bool {
	_, ok := b.values[key]
	return ok
}

// String returns the raw value of key, or its default.
func (b *Bag) String(key string) string {
	if v, ok := b.values[key]; ok {
		return v
	}
	if d, ok := Table[key]; ok {
		return d.Default
	}
	return ""
}

// Enum returns the lower-cased value of an enum property. Values outside the
// property's alternatives resolve to its default.
func (b *Bag) Enum(key string) string {
	d, known := Table[key]
	v, ok := b.values[key]
	if !ok {
		return d.Default
	}
	v = strings.ToLower(strings.TrimSpace(v))
	if !known || len(d.Alternatives) == 0 {
		return v
	}
	for _, alt := range d.Alternatives {
		if alt == v {
			return v
		}
	}
	return d.Default
}

// Num resolves a zoomable property at zoom. Relative values are taken of the
// property's base, itself resolved at the same zoom. An unparsable value
// resolves as the default.
func (b *Bag) Num(key string, zoom float64) float64 {
	mk := memoKey{key, zoom}
	if v, ok := b.memo[mk]; ok {
		return v
	}

	d := Table[key]
	z, err := ParseZoomable(b.String(key))
	if err != nil {
		z, _ = ParseZoomable(d.Default)
	}

	v := z.At(zoom, func() float64 {
		if d.Base == "" || d.Base == key {
			return 0
		}
		return b.Num(d.Base, zoom)
	})
	b.memo[mk] = v
	return v
}

// Colour resolves a colour property with its opacity property at zoom. A
// value of the form "c1 c2 ratio" blends two colours.
func (b *Bag) Colour(key, opacityKey string, zoom float64) color.NRGBA {
	c := b.rawColour(key)
	if opacityKey == "" {
		return c
	}
	return WithAlpha(c, b.Num(opacityKey, zoom))
}

func (b *Bag) rawColour(key string) color.NRGBA {
	def := color.NRGBA{A: 0xff}
	if d, ok := Table[key]; ok {
		if c, err := ParseColour(d.Default); err == nil {
			def = c
		}
	}

	v, ok := b.values[key]
	if !ok {
		return def
	}

	parse := func(s string) color.NRGBA {
		c, err := ParseColour(s)
		if err != nil {
			return def
		}
		return c
	}

	if parts := strings.Split(strings.TrimSpace(v), " "); len(parts) == 3 {
		// "50%" and "0.5" both mean halfway
		ratio, _, err := parseRelative(parts[2])
		if err != nil {
			ratio = 1
		}
		return Blend(parse(parts[0]), parse(parts[1]), ratio)
	}
	return parse(v)
}
