package geo

// DrawKind selects how an instruction is painted.
type DrawKind int

const (
	DrawFill DrawKind = iota
	DrawLine
	DrawText
	DrawShape
	DrawIcon
	DrawBackground
)

func (k DrawKind) String() string {
	switch k {
	case DrawFill:
		return "fill"
	case DrawLine:
		return "line"
	case DrawText:
		return "text"
	case DrawShape:
		return "shape"
	case DrawIcon:
		return "icon"
	case DrawBackground:
		return "background"
	default:
		return "unknown"
	}
}

// TextKey is the synthetic property used to keep text labels with different
// content apart when merging text instructions.
const TextKey = "__text__"

// DrawInstruction is one renderable request produced by a rule.
type DrawInstruction struct {
	Kind       DrawKind
	Entity     Entity
	Feature    string
	Importance int
	Props      map[string]string
	MinZoom    float64
	MaxZoom    float64

	// AsLine marks an area drawn with draw:line; its rings are stroked.
	AsLine bool

	// Nodes is an owned copy of a line entity's nodes, rewritten when
	// adjacent instructions are merged.
	Nodes []*Point

	// Text and Disabled are set for DrawText.
	Text     string
	Disabled bool
}

// Bounds covers the instruction's own nodes when it has any, otherwise the
// entity.
func (d *DrawInstruction) Bounds() Bounds {
	if len(d.Nodes) > 0 {
		return BoundsOfPoints(d.Nodes)
	}
	return d.Entity.Bounds()
}

// VisibleAt reports whether zoom lies within [MinZoom, MaxZoom].
func (d *DrawInstruction) VisibleAt(zoom float64) bool {
	return zoom >= d.MinZoom && zoom <= d.MaxZoom
}

func (d *DrawInstruction) MergeID() int64 { return d.Entity.ID() }

func (d *DrawInstruction) MergeNodes() []*Point { return d.Nodes }

func (d *DrawInstruction) SetMergeNodes(nodes []*Point) { d.Nodes = nodes }

func (d *DrawInstruction) MergeProps() map[string]string {
	if d.Kind != DrawText {
		return d.Props
	}
	bag := make(map[string]string, len(d.Props)+1)
	for k, v := range d.Props {
		bag[k] = v
	}
	bag[TextKey] = d.Text
	return bag
}

// mergeable reports whether the instruction takes part in the post-evaluation
// line merge.
func (d *DrawInstruction) mergeable() bool {
	if d.Entity == nil || d.Entity.Kind() != KindLine || len(d.Nodes) == 0 {
		return false
	}
	switch d.Kind {
	case DrawLine, DrawText, DrawShape:
		return true
	}
	return false
}
