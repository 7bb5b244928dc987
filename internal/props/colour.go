package props

import (
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"

	"golang.org/x/image/colornames"
)

// ParseColour parses a CSS colour: #rgb, #rgba, #rrggbb, #rrggbbaa,
// rgb(r,g,b), rgba(r,g,b,a) or a named colour.
func ParseColour(s string) (color.NRGBA, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch {
	case strings.HasPrefix(s, "#"):
		return parseHex(s[1:])
	case strings.HasPrefix(s, "rgba(") && strings.HasSuffix(s, ")"):
		return parseFunc(s[len("rgba("):len(s)-1], true)
	case strings.HasPrefix(s, "rgb(") && strings.HasSuffix(s, ")"):
		return parseFunc(s[len("rgb("):len(s)-1], false)
	case s == "transparent":
		return color.NRGBA{}, nil
	}
	if c, ok := colornames.Map[s]; ok {
		return color.NRGBA{R: c.R, G: c.G, B: c.B, A: c.A}, nil
	}
	return color.NRGBA{}, fmt.Errorf("unknown colour %q", s)
}

func parseHex(h string) (color.NRGBA, error) {
	var digits []uint8
	for _, r := range h {
		v, ok := hexDigit(r)
		if !ok {
			return color.NRGBA{}, fmt.Errorf("invalid hex colour #%s", h)
		}
		digits = append(digits, v)
	}

	c := color.NRGBA{A: 0xff}
	switch len(digits) {
	case 3, 4:
		c.R, c.G, c.B = digits[0]*17, digits[1]*17, digits[2]*17
		if len(digits) == 4 {
			c.A = digits[3] * 17
		}
	case 6, 8:
		c.R = digits[0]<<4 | digits[1]
		c.G = digits[2]<<4 | digits[3]
		c.B = digits[4]<<4 | digits[5]
		if len(digits) == 8 {
			c.A = digits[6]<<4 | digits[7]
		}
	default:
		return color.NRGBA{}, fmt.Errorf("invalid hex colour #%s", h)
	}
	return c, nil
}

func hexDigit(r rune) (uint8, bool) {
	switch {
	case r >= '0' && r <= '9':
		return uint8(r - '0'), true
	case r >= 'a' && r <= 'f':
		return uint8(r-'a') + 10, true
	}
	return 0, false
}

func parseFunc(args string, alpha bool) (color.NRGBA, error) {
	parts := strings.Split(args, ",")
	want := 3
	if alpha {
		want = 4
	}
	if len(parts) != want {
		return color.NRGBA{}, fmt.Errorf("colour function needs %d arguments, got %d", want, len(parts))
	}

	var ch [3]uint8
	for i := 0; i < 3; i++ {
		p := strings.TrimSpace(parts[i])
		var v float64
		var err error
		if strings.HasSuffix(p, "%") {
			v, err = strconv.ParseFloat(strings.TrimSuffix(p, "%"), 64)
			v = v * 255 / 100
		} else {
			v, err = strconv.ParseFloat(p, 64)
		}
		if err != nil {
			return color.NRGBA{}, fmt.Errorf("colour channel %q: %w", p, err)
		}
		ch[i] = clampByte(v)
	}

	c := color.NRGBA{R: ch[0], G: ch[1], B: ch[2], A: 0xff}
	if alpha {
		a, err := strconv.ParseFloat(strings.TrimSpace(parts[3]), 64)
		if err != nil {
			return color.NRGBA{}, fmt.Errorf("colour alpha %q: %w", parts[3], err)
		}
		c.A = clampByte(a * 255)
	}
	return c, nil
}

// Blend mixes a and b linearly; ratio 0 is a, ratio 1 is b.
func Blend(a, b color.NRGBA, ratio float64) color.NRGBA {
	mix := func(x, y uint8) uint8 {
		return clampByte(float64(x)*(1-ratio) + float64(y)*ratio)
	}
	return color.NRGBA{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B), A: mix(a.A, b.A)}
}

// WithAlpha replaces the alpha channel with opacity in [0, 1].
func WithAlpha(c color.NRGBA, opacity float64) color.NRGBA {
	c.A = clampByte(opacity * 255)
	return c
}

func clampByte(v float64) uint8 {
	v = math.Round(v)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
