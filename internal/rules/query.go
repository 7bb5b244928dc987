package rules

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/beetlebugorg/osmrender/internal/geo"
)

// Query is a predicate over one entity of a document. Implementations are
// pure: they never mutate the document or the entity.
type Query interface {
	Matches(doc *geo.Document, e geo.Entity) bool
}

// TagQuery matches when the tag is present and its value is one of Values.
type TagQuery struct {
	Key    string
	Values []string
}

func (q TagQuery) Matches(doc *geo.Document, e geo.Entity) bool {
	v, ok := e.Tags()[q.Key]
	if !ok {
		return false
	}
	for _, want := range q.Values {
		if v == want {
			return true
		}
	}
	return false
}

// TagExistsQuery matches any entity carrying Key.
type TagExistsQuery struct {
	Key string
}

func (q TagExistsQuery) Matches(doc *geo.Document, e geo.Entity) bool {
	_, ok := e.Tags()[q.Key]
	return ok
}

// IsMultiQuery matches when the numeric tag value is a multiple of N.
type IsMultiQuery struct {
	Key string
	N   int
}

func (q IsMultiQuery) Matches(doc *geo.Document, e geo.Entity) bool {
	v, ok := e.Tags()[q.Key]
	if !ok || q.N == 0 {
		return false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return false
	}
	return math.Mod(f, float64(q.N)) == 0
}

// IsBoolQuery backs @isTrue and @isFalse. An absent tag satisfies only
// the false form.
type IsBoolQuery struct {
	Key string
	Val bool
}

var (
	truthy = map[string]bool{"yes": true, "1": true, "true": true}
	falsy  = map[string]bool{"no": true, "0": true, "false": true}
)

func (q IsBoolQuery) Matches(doc *geo.Document, e geo.Entity) bool {
	v, ok := e.Tags()[q.Key]
	if !ok {
		return !q.Val
	}
	if q.Val {
		return truthy[v]
	}
	return falsy[v]
}

// BoolOp selects how a BoolOpQuery combines its operands.
type BoolOp int

const (
	Or BoolOp = iota
	And
)

func (op BoolOp) String() string {
	if op == And {
		return "AND"
	}
	return "OR"
}

// BoolOpQuery combines operands with OR or AND. An empty OR is false and
// an empty AND is true.
type BoolOpQuery struct {
	Op      BoolOp
	Queries []Query
}

func (q BoolOpQuery) Matches(doc *geo.Document, e geo.Entity) bool {
	if q.Op == And {
		for _, sub := range q.Queries {
			if !sub.Matches(doc, e) {
				return false
			}
		}
		return true
	}
	for _, sub := range q.Queries {
		if sub.Matches(doc, e) {
			return true
		}
	}
	return false
}

// TypeQuery tests membership in the document's id set for Kind and, when
// Sub is set, the subquery as well.
type TypeQuery struct {
	Kind geo.EntityKind
	Sub  Query
}

func (q TypeQuery) Matches(doc *geo.Document, e geo.Entity) bool {
	if !isKind(doc, q.Kind, e) {
		return false
	}
	return q.Sub == nil || q.Sub.Matches(doc, e)
}

// isKind tests membership in the document's id sets only, so a closed way
// held both as a line and as an area satisfies both kinds.
func isKind(doc *geo.Document, kind geo.EntityKind, e geo.Entity) bool {
	id := e.ID()
	switch kind {
	case geo.KindPoint:
		return doc.HasPoint(id)
	case geo.KindLine:
		return doc.HasLine(id)
	case geo.KindArea:
		return doc.HasArea(id)
	case geo.KindRelation:
		return doc.HasRelation(id)
	}
	return false
}

// NotQuery negates Sub.
type NotQuery struct {
	Sub Query
}

func (q NotQuery) Matches(doc *geo.Document, e geo.Entity) bool {
	return !q.Sub.Matches(doc, e)
}

// NullQuery stands in for the GPS and contour selectors, which have no data
// source here. It never matches.
type NullQuery struct{}

func (NullQuery) Matches(*geo.Document, geo.Entity) bool { return false }

var queryTokenRe = regexp.MustCompile(`^("[^"]*"|[\p{L}\p{Mn}\p{Nd}\p{Pc}@:\-]+|[=.,()\[\] ])`)

// tokenizeQuery splits a query expression into tokens, dropping spaces.
func tokenizeQuery(code string) ([]string, error) {
	var toks []string
	rest := code
	for rest != "" {
		m := queryTokenRe.FindString(rest)
		if m == "" {
			return nil, fmt.Errorf("cannot tokenize `%s'", rest)
		}
		rest = rest[len(m):]
		if strings.TrimSpace(m) == "" {
			continue
		}
		toks = append(toks, m)
	}
	return toks, nil
}

// ParseQuery parses a standalone query expression.
func ParseQuery(code string) (q Query, err error) {
	defer recoverSyntax(&err)
	return parseQuery(code, 0), nil
}

// parseQuery panics with a *SyntaxError on failure.
func parseQuery(code string, line int) Query {
	toks, err := tokenizeQuery(code)
	if err != nil {
		panic(&SyntaxError{Line: line, Msg: err.Error()})
	}
	qp := &queryParser{toks: toks, line: line}
	q := qp.parseOr()
	if qp.done() {
		return q
	}
	// Juxtaposed expressions are OR-ed one primitive at a time.
	all := []Query{q}
	for !qp.done() {
		all = append(all, qp.parsePrimitive())
	}
	return BoolOpQuery{Op: Or, Queries: all}
}

type queryParser struct {
	toks []string
	pos  int
	line int
}

func (p *queryParser) errorf(format string, args ...interface{}) {
	panic(&SyntaxError{Line: p.line, Msg: fmt.Sprintf(format, args...)})
}

func (p *queryParser) done() bool {
	return p.pos >= len(p.toks)
}

func (p *queryParser) peek() string {
	if p.done() {
		return ""
	}
	return p.toks[p.pos]
}

func (p *queryParser) tryEat(alts ...string) bool {
	if p.done() {
		return false
	}
	for _, a := range alts {
		if p.toks[p.pos] == a {
			p.pos++
			return true
		}
	}
	return false
}

// eat consumes the next token, which must be one of alts. With no alts any
// token is accepted.
func (p *queryParser) eat(alts ...string) string {
	if p.done() {
		p.errorf("expected %s, got eof", describeAlts(alts))
	}
	t := p.toks[p.pos]
	if len(alts) == 0 {
		p.pos++
		return t
	}
	for _, a := range alts {
		if t == a {
			p.pos++
			return t
		}
	}
	p.errorf("expected %s, got `%s'", describeAlts(alts), t)
	return ""
}

func (p *queryParser) parseOr() Query {
	left := p.parseAnd()
	if !p.tryEat("OR", "or") {
		return left
	}
	return BoolOpQuery{Op: Or, Queries: []Query{left, p.parseOr()}}
}

func (p *queryParser) parseAnd() Query {
	left := p.parseNested()
	if !p.tryEat("AND", "and") {
		return left
	}
	return BoolOpQuery{Op: And, Queries: []Query{left, p.parseAnd()}}
}

// parseNested handles `a.b`. The left operand is discarded.
func (p *queryParser) parseNested() Query {
	left := p.parsePrimitive()
	if !p.tryEat(".") {
		return left
	}
	return p.parseNested()
}

func (p *queryParser) parsePrimitive() Query {
	switch {
	case p.tryEat("@isOneOf"):
		p.eat("(")
		key := p.eat()
		var values []string
		for p.tryEat(",") {
			values = append(values, p.eat())
		}
		p.eat(")")
		return TagQuery{Key: key, Values: values}

	case p.tryEat("@isMulti"):
		p.eat("(")
		key := p.eat()
		p.eat(",")
		raw := p.eat()
		n, err := strconv.Atoi(raw)
		if err != nil {
			p.errorf("@isMulti expects an integer, got `%s'", raw)
		}
		p.eat(")")
		return IsMultiQuery{Key: key, N: n}

	case p.tryEat("@isTrue"):
		return IsBoolQuery{Key: p.parseCallArg(), Val: true}

	case p.tryEat("@isFalse"):
		return IsBoolQuery{Key: p.parseCallArg(), Val: false}

	case p.tryEat("node"):
		return TypeQuery{Kind: geo.KindPoint, Sub: p.parseBracketed()}

	case p.tryEat("area"):
		return TypeQuery{Kind: geo.KindArea, Sub: p.parseBracketed()}

	case p.tryEat("relation"):
		return TypeQuery{Kind: geo.KindRelation, Sub: p.parseBracketed()}

	case p.tryEat("gpstrack", "gpsroute", "gpswaypoint", "gpspoint", "contour"):
		p.parseBracketed()
		return NullQuery{}

	case p.tryEat("("):
		q := p.parseOr()
		p.eat(")")
		return q

	case p.tryEat("["):
		q := p.parseOr()
		p.eat("]")
		return q

	case p.tryEat("NOT", "not"):
		return NotQuery{Sub: p.parsePrimitive()}
	}

	key := p.eat()
	if !p.tryEat("=") {
		return TagExistsQuery{Key: key}
	}
	return TagQuery{Key: key, Values: []string{unquote(p.eat())}}
}

func (p *queryParser) parseCallArg() string {
	p.eat("(")
	key := p.eat()
	p.eat(")")
	return key
}

// parseBracketed reads an optional `[subquery]`. `[]` yields no subquery.
func (p *queryParser) parseBracketed() Query {
	if !p.tryEat("[") {
		return nil
	}
	var sub Query
	if p.peek() != "]" {
		sub = p.parseOr()
	}
	p.eat("]")
	return sub
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

func describeAlts(alts []string) string {
	if len(alts) == 0 {
		return "a token"
	}
	quoted := make([]string, len(alts))
	for i, a := range alts {
		quoted[i] = "`" + a + "'"
	}
	return strings.Join(quoted, " or ")
}
