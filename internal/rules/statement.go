package rules

import (
	"strconv"

	"github.com/beetlebugorg/osmrender/internal/geo"
	"github.com/beetlebugorg/osmrender/internal/logging"
)

// Outcome is the result of running one statement.
type Outcome int

const (
	// Continue runs the next statement.
	Continue Outcome = iota
	// StopRule abandons the rest of the current rule for the current feature.
	StopRule
)

// State is the property cascade for one rule applied to one feature.
type State struct {
	Props map[string]string
}

func newState(global map[string]string) *State {
	props := make(map[string]string, len(global))
	for k, v := range global {
		props[k] = v
	}
	return &State{Props: props}
}

func (s *State) snapshot() map[string]string {
	out := make(map[string]string, len(s.Props))
	for k, v := range s.Props {
		out[k] = v
	}
	return out
}

type env struct {
	doc *geo.Document
	log logging.Logger
}

type statement interface {
	apply(env *env, f Feature, s *State) Outcome
}

func runStatements(stmts []statement, env *env, f Feature, s *State) Outcome {
	for _, st := range stmts {
		if st.apply(env, f, s) == StopRule {
			return StopRule
		}
	}
	return Continue
}

type defineStatement struct {
	props []property
}

type property struct {
	key, value string
}

func (d defineStatement) apply(env *env, f Feature, s *State) Outcome {
	for _, p := range d.props {
		s.Props[p.key] = p.value
	}
	return Continue
}

type stopStatement struct{}

func (stopStatement) apply(*env, Feature, *State) Outcome { return StopRule }

type branch struct {
	cond  Condition
	stmts []statement
}

// ifStatement runs the first branch whose condition matches, or else.
type ifStatement struct {
	branches []branch
	orElse   []statement
}

func (st ifStatement) apply(env *env, f Feature, s *State) Outcome {
	for _, b := range st.branches {
		if b.cond.Matches(env.doc, f) {
			return runStatements(b.stmts, env, f, s)
		}
	}
	return runStatements(st.orElse, env, f, s)
}

type drawStatement struct {
	kind       string
	importance int
}

func (d drawStatement) apply(env *env, f Feature, s *State) Outcome {
	switch d.kind {
	case "fill":
		if _, ok := f.Entity.(*geo.Area); !ok {
			env.log.Warnf("draw:fill on %s feature %q (id %d), only areas can be filled",
				f.Entity.Kind(), f.Name, f.Entity.ID())
			return StopRule
		}
		env.emit(newInstruction(geo.DrawFill, f, s, d.importance, env.log))

	case "line":
		switch f.Entity.(type) {
		case *geo.Line:
			env.emit(newInstruction(geo.DrawLine, f, s, d.importance, env.log))
		case *geo.Area:
			in := newInstruction(geo.DrawFill, f, s, d.importance, env.log)
			in.AsLine = true
			env.emit(in)
		default:
			env.log.Warnf("draw:line on %s feature %q (id %d), only lines and areas can be stroked",
				f.Entity.Kind(), f.Name, f.Entity.ID())
			return StopRule
		}

	case "shape":
		env.emit(newInstruction(geo.DrawShape, f, s, d.importance, env.log))
	case "text":
		env.emit(newInstruction(geo.DrawText, f, s, d.importance, env.log))
	case "icon":
		env.emit(newInstruction(geo.DrawIcon, f, s, d.importance, env.log))
	case "shield":
		// Shields are accepted but not drawn.
	default:
		env.log.Debugf("ignoring unknown draw kind %q for feature %q", d.kind, f.Name)
	}
	return Continue
}

func (e *env) emit(in *geo.DrawInstruction) {
	e.doc.AddInstruction(in)
}

const (
	defaultMinZoom = 0
	defaultMaxZoom = 100
)

// newInstruction snapshots the state into a draw instruction.
func newInstruction(kind geo.DrawKind, f Feature, s *State, importance int, log logging.Logger) *geo.DrawInstruction {
	in := &geo.DrawInstruction{
		Kind:       kind,
		Entity:     f.Entity,
		Feature:    f.Name,
		Importance: importance,
		Props:      s.snapshot(),
		MinZoom:    zoomProp(s.Props, "min-zoom", defaultMinZoom, log),
		MaxZoom:    zoomProp(s.Props, "max-zoom", defaultMaxZoom, log),
	}

	if line, ok := f.Entity.(*geo.Line); ok && (kind == geo.DrawLine || kind == geo.DrawText || kind == geo.DrawShape) {
		in.Nodes = append([]*geo.Point(nil), line.Nodes...)
	}

	if kind == geo.DrawText {
		tags := f.Entity.Tags()
		if key, ok := s.Props["text"]; ok {
			if v, ok := tags[key]; ok {
				in.Text = v
			} else {
				in.Disabled = true
			}
		} else {
			in.Text = tags["name"]
		}
	}
	return in
}

func zoomProp(props map[string]string, key string, def float64, log logging.Logger) float64 {
	raw, ok := props[key]
	if !ok {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		log.Warnf("invalid %s %q, using %v", key, raw, def)
		return def
	}
	return v
}
