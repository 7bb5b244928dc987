// Package props resolves style properties: the static table of known keys
// with their defaults, zoom-dependent numeric values and colours.
package props

// Type selects how a property value is parsed.
type Type int

const (
	TypeString Type = iota
	TypeEnum
	TypeZoomable
	TypeColour
)

// Def describes one style property.
type Def struct {
	Key     string
	Type    Type
	Default string

	// Base names the property a relative ("50%") value is taken of.
	Base string

	// Alternatives lists the accepted values of an enum.
	Alternatives []string
}

var (
	alignments = []string{"center", "near", "far"}
	lineStyles = []string{"none", "dash", "dashlong", "dashdot", "dashdotdot", "dash8to2", "dash10to2", "dot", "solid"}
	lineCaps   = []string{"none", "round", "square"}
	lineJoins  = []string{"round", "miter"}
	shapes     = []string{"circle", "square", "triangle", "diamond", "custom"}
)

// Table maps every known style key to its definition.
var Table = buildTable(
	// Zoom range
	Def{Key: "min-zoom", Type: TypeZoomable, Default: "0"},
	Def{Key: "max-zoom", Type: TypeZoomable, Default: "100"},

	// Alignment
	Def{Key: "align-horizontal", Type: TypeEnum, Default: "center", Alternatives: alignments},
	Def{Key: "align-vertical", Type: TypeEnum, Default: "center", Alternatives: alignments},
	Def{Key: "text-align-horizontal", Type: TypeEnum, Default: "center", Alternatives: alignments},
	Def{Key: "text-align-vertical", Type: TypeEnum, Default: "center", Alternatives: alignments},

	// Border
	Def{Key: "border-color", Type: TypeColour, Default: "#000"},
	Def{Key: "border-opacity", Type: TypeZoomable, Default: "1"},
	Def{Key: "border-start-cap", Type: TypeEnum, Default: "none", Alternatives: lineCaps},
	Def{Key: "border-end-cap", Type: TypeEnum, Default: "none", Alternatives: lineCaps},
	Def{Key: "border-style", Type: TypeEnum, Default: "none", Alternatives: lineStyles},
	Def{Key: "border-width", Type: TypeZoomable, Default: "1", Base: "line-width"},

	// Fill
	Def{Key: "fill-color", Type: TypeColour, Default: "#000"},
	Def{Key: "fill-opacity", Type: TypeZoomable, Default: "1"},

	// Icon
	Def{Key: "icon-image", Type: TypeString, Default: ""},
	Def{Key: "icon-width", Type: TypeZoomable, Default: "16"},

	// Line
	Def{Key: "line-color", Type: TypeColour, Default: "#000"},
	Def{Key: "line-opacity", Type: TypeZoomable, Default: "1"},
	Def{Key: "line-start-cap", Type: TypeEnum, Default: "none", Alternatives: lineCaps},
	Def{Key: "line-end-cap", Type: TypeEnum, Default: "none", Alternatives: lineCaps},
	Def{Key: "line-join", Type: TypeEnum, Default: "round", Alternatives: lineJoins},
	Def{Key: "line-style", Type: TypeEnum, Default: "solid", Alternatives: lineStyles},
	Def{Key: "line-width", Type: TypeZoomable, Default: "5"},

	// Map
	Def{Key: "map-background-color", Type: TypeColour, Default: "#fff"},
	Def{Key: "map-background-opacity", Type: TypeZoomable, Default: "1"},

	// Shape
	Def{Key: "shape", Type: TypeEnum, Default: "circle", Alternatives: shapes},
	Def{Key: "shape-def", Type: TypeString, Default: ""},
	Def{Key: "shape-size", Type: TypeZoomable, Default: "16"},
	Def{Key: "shape-spacing", Type: TypeZoomable, Default: "2"},
	Def{Key: "angle", Type: TypeZoomable, Default: "2"},

	// Text
	Def{Key: "font-size", Type: TypeZoomable, Default: "10"},
	Def{Key: "text", Type: TypeString, Default: ""},
	Def{Key: "text-color", Type: TypeColour, Default: "#000"},
	Def{Key: "text-opacity", Type: TypeZoomable, Default: "1"},
	Def{Key: "text-halo-width", Type: TypeZoomable, Default: "0"},
	Def{Key: "text-halo-color", Type: TypeColour, Default: "#fff"},
	Def{Key: "text-halo-opacity", Type: TypeZoomable, Default: "1"},
	Def{Key: "text-offset-horizontal", Type: TypeZoomable, Default: "0", Base: "font-size"},
	Def{Key: "text-offset-vertical", Type: TypeZoomable, Default: "0", Base: "font-size"},
)

func buildTable(defs ...Def) map[string]Def {
	t := make(map[string]Def, len(defs))
	for _, d := range defs {
		t[d.Key] = d
	}
	return t
}

// Lookup returns the definition of key.
func Lookup(key string) (Def, bool) {
	d, ok := Table[key]
	return d, ok
}
