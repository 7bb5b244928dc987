// Package rules implements the map style language: an indentation-aware
// lexer, a parser for feature declarations, properties and rules, the
// query engine and the evaluator that turns matched features into draw
// instructions.
//
// A ruleset looks like:
//
//	features
//		points
//			shop: shop
//		lines
//			road: highway=primary OR highway=secondary
//	properties
//		line-color: #888888
//	rules
//		target: road
//			define
//				line-width: 12:2;16:8
//			draw: line
//		target: shop
//			draw: icon
package rules

import (
	"github.com/beetlebugorg/osmrender/internal/geo"
	"github.com/beetlebugorg/osmrender/internal/logging"
)

// FeatureDecl is one `name: query` line under a features type list.
type FeatureDecl struct {
	Name  string
	Query Query
}

// Rule is one `target:` block.
type Rule struct {
	Target Condition
	stmts  []statement
}

// Ruleset is a parsed style. It is read-only after Parse and may be applied
// to any number of documents.
type Ruleset struct {
	PointFeatures []FeatureDecl
	LineFeatures  []FeatureDecl
	AreaFeatures  []FeatureDecl
	Properties    map[string]string
	Rules         []*Rule

	log logging.Logger
}

// Features lists every feature of doc in discovery order: points, then
// lines, then areas, each entity tested against the declarations of its
// kind in declaration order.
func (r *Ruleset) Features(doc *geo.Document) []Feature {
	var out []Feature
	for _, p := range doc.Points() {
		out = appendMatches(out, doc, p, r.PointFeatures)
	}
	for _, l := range doc.Lines() {
		out = appendMatches(out, doc, l, r.LineFeatures)
	}
	for _, a := range doc.Areas() {
		out = appendMatches(out, doc, a, r.AreaFeatures)
	}
	return out
}

func appendMatches(out []Feature, doc *geo.Document, e geo.Entity, decls []FeatureDecl) []Feature {
	for _, d := range decls {
		if d.Query.Matches(doc, e) {
			out = append(out, Feature{Name: d.Name, Entity: e})
		}
	}
	return out
}

// Apply evaluates every rule against every feature of doc and appends the
// resulting draw instructions to doc. Adjacent line instructions are
// merged afterwards and a background instruction covering the document
// is appended last.
func (r *Ruleset) Apply(doc *geo.Document) {
	log := logging.OrNop(r.log)
	features := r.Features(doc)
	log.Debugf("applying %d rules to %d features", len(r.Rules), len(features))

	e := &env{doc: doc, log: log}
	for _, rule := range r.Rules {
		for _, f := range features {
			if !rule.Target.Matches(doc, f) {
				continue
			}
			runStatements(rule.stmts, e, f, newState(r.Properties))
		}
	}

	if merged := doc.MergeInstructions(); merged > 0 {
		log.Debugf("merged %d adjacent draw instructions", merged)
	}

	bg := Feature{Name: "background", Entity: &geo.Background{Extent: doc.Bounds()}}
	doc.AddInstruction(newInstruction(geo.DrawBackground, bg, newState(r.Properties), 0, log))
}
