package render

import (
	"sort"
	"strconv"
	"strings"

	"github.com/beetlebugorg/osmrender/internal/geo"
)

// Paint groups, back to front.
const (
	groupBackground = -1
	groupFill       = 0
	groupLine       = 1
	groupSymbol     = 2
	groupText       = 3
)

// Line passes within a line layer.
const (
	passBorder = 0
	passBody   = 1
)

// LayerCode combines a paint group, the entity's stacking tag and a paint
// pass into one sortable code.
func LayerCode(group, sublayer, pass int) int {
	return group*10000 + sublayer*100 + pass
}

// layerTag reads the entity's layer tag. Only the first ';' separated value
// is used and unparsable values count as 0.
func layerTag(e geo.Entity) int {
	v, ok := e.Tags()["layer"]
	if !ok {
		return 0
	}
	v, _, _ = strings.Cut(v, ";")
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0
	}
	return n
}

type slot struct {
	code int
	pass int
}

// slots lists where an instruction is painted.
func slots(in *geo.DrawInstruction) []slot {
	l := layerTag(in.Entity)
	stroked := func() []slot {
		return []slot{
			{LayerCode(groupLine, l, passBorder), passBorder},
			{LayerCode(groupLine, l, passBody), passBody},
		}
	}

	switch in.Kind {
	case geo.DrawBackground:
		return []slot{{LayerCode(groupBackground, 0, 0), 0}}
	case geo.DrawFill:
		if in.AsLine {
			return stroked()
		}
		return []slot{{LayerCode(groupFill, l, 0), 0}}
	case geo.DrawLine:
		return stroked()
	case geo.DrawIcon, geo.DrawShape:
		return []slot{{LayerCode(groupSymbol, l, 0), 0}}
	case geo.DrawText:
		return []slot{{LayerCode(groupText, l, 0), 0}}
	}
	return nil
}

// LayerCodes returns the layer codes an instruction is painted in.
func LayerCodes(in *geo.DrawInstruction) []int {
	s := slots(in)
	codes := make([]int, len(s))
	for i := range s {
		codes[i] = s[i].code
	}
	return codes
}

type entry struct {
	in   *geo.DrawInstruction
	pass int
}

// Layers buckets the instructions visible at one zoom level by layer code.
// It is read-only once built.
type Layers struct {
	codes  []int
	byCode map[int][]entry
}

// BuildLayers drops instructions outside their zoom range and buckets the
// rest. Within a bucket the paint order is ascending importance.
func BuildLayers(instrs []*geo.DrawInstruction, zoom int) *Layers {
	l := &Layers{byCode: make(map[int][]entry)}
	z := float64(zoom)
	for _, in := range instrs {
		if !in.VisibleAt(z) {
			continue
		}
		for _, s := range slots(in) {
			if _, ok := l.byCode[s.code]; !ok {
				l.codes = append(l.codes, s.code)
			}
			l.byCode[s.code] = append(l.byCode[s.code], entry{in, s.pass})
		}
	}
	sort.Ints(l.codes)

	for _, code := range l.codes {
		list := l.byCode[code]
		// Most important first, then reversed, keeps ties in reverse
		// emission order.
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].in.Importance > list[j].in.Importance
		})
		for i, j := 0, len(list)-1; i < j; i, j = i+1, j-1 {
			list[i], list[j] = list[j], list[i]
		}
	}
	return l
}

// Codes returns the layer codes in paint order.
func (l *Layers) Codes() []int {
	return l.codes
}

// At returns the instructions of one layer in paint order.
func (l *Layers) At(code int) []*geo.DrawInstruction {
	list := l.byCode[code]
	out := make([]*geo.DrawInstruction, len(list))
	for i, e := range list {
		out[i] = e.in
	}
	return out
}

// Instructions returns every distinct visible instruction.
func (l *Layers) Instructions() []*geo.DrawInstruction {
	seen := make(map[*geo.DrawInstruction]bool)
	var out []*geo.DrawInstruction
	for _, code := range l.codes {
		for _, e := range l.byCode[code] {
			if !seen[e.in] {
				seen[e.in] = true
				out = append(out, e.in)
			}
		}
	}
	return out
}

// Len returns the number of visible instructions.
func (l *Layers) Len() int {
	return len(l.Instructions())
}
