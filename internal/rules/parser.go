package rules

import (
	"fmt"
	"strings"

	"github.com/beetlebugorg/osmrender/internal/geo"
	"github.com/beetlebugorg/osmrender/internal/logging"
)

// Parse reads ruleset source. Any syntax error aborts the parse and is
// returned as a *SyntaxError.
func Parse(src string, log logging.Logger) (rs *Ruleset, err error) {
	defer recoverSyntax(&err)

	p := &parser{
		toks: lex(src),
		rs: &Ruleset{
			Properties: make(map[string]string),
			log:        logging.OrNop(log),
		},
		seen: make(map[geo.EntityKind]map[string]bool),
	}
	p.parseRuleset()
	return p.rs, nil
}

// recoverSyntax turns a *SyntaxError panic into an error return. Other
// panics propagate.
func recoverSyntax(err *error) {
	r := recover()
	if r == nil {
		return
	}
	if se, ok := r.(*SyntaxError); ok {
		*err = se
		return
	}
	panic(r)
}

type parser struct {
	toks []token
	pos  int
	rs   *Ruleset
	seen map[geo.EntityKind]map[string]bool
}

func (p *parser) errorf(format string, args ...interface{}) {
	panic(&SyntaxError{Line: p.lineNum(), Msg: fmt.Sprintf(format, args...)})
}

func (p *parser) lineNum() int {
	switch {
	case p.pos < len(p.toks):
		return p.toks[p.pos].line
	case len(p.toks) > 0:
		return p.toks[len(p.toks)-1].line
	}
	return 0
}

func (p *parser) done() bool {
	return p.pos >= len(p.toks)
}

// remaining is the number of tokens not yet consumed.
func (p *parser) remaining() int {
	return len(p.toks) - p.pos
}

func (p *parser) tryEat(alts ...string) bool {
	if p.done() {
		return false
	}
	for _, a := range alts {
		if p.toks[p.pos].text == a {
			p.pos++
			return true
		}
	}
	return false
}

func (p *parser) eat(alts ...string) string {
	if p.done() {
		p.errorf("expected %s, got eof", describeAlts(alts))
	}
	t := p.toks[p.pos].text
	for _, a := range alts {
		if t == a {
			p.pos++
			return t
		}
	}
	p.errorf("expected %s, got `%s'", describeAlts(alts), t)
	return ""
}

// nextLine consumes a content line.
func (p *parser) nextLine() token {
	if p.done() {
		p.errorf("expected line, got eof")
	}
	t := p.toks[p.pos]
	if t.isMarker() {
		p.errorf("expected line, got %s", t.text)
	}
	p.pos++
	return t
}

// tryNextLine consumes a content line if one is next.
func (p *parser) tryNextLine() (token, bool) {
	if p.done() || p.toks[p.pos].isMarker() {
		return token{}, false
	}
	t := p.toks[p.pos]
	p.pos++
	return t, true
}

func (p *parser) parseRuleset() {
	for !p.done() {
		switch {
		case p.tryEat("features"):
			if p.tryEat(indentTok) {
				p.parseFeatureSet()
				for !p.tryEat(deindentTok) {
					p.parseFeatureSet()
				}
			}
		case p.tryEat("properties"):
			if p.tryEat(indentTok) {
				p.parseProperties(p.rs.Properties, nil)
				p.eat(deindentTok)
			}
		case p.tryEat("rules"):
			if p.tryEat(indentTok) {
				p.rs.Rules = append(p.rs.Rules, p.parseRule())
				for !p.tryEat(deindentTok) {
					p.rs.Rules = append(p.rs.Rules, p.parseRule())
				}
			}
		default:
			p.eat("features", "properties", "rules")
		}
	}
}

func (p *parser) parseFeatureSet() {
	header := p.nextLine()
	var kinds []geo.EntityKind
	for _, part := range strings.Split(header.text, ",") {
		switch strings.TrimSpace(part) {
		case "points":
			kinds = append(kinds, geo.KindPoint)
		case "lines":
			kinds = append(kinds, geo.KindLine)
		case "areas":
			kinds = append(kinds, geo.KindArea)
		default:
			panic(&SyntaxError{Line: header.line, Msg: "Unknown feature type: `" + strings.TrimSpace(part) + "'"})
		}
	}

	if !p.tryEat(indentTok) {
		return
	}
	for {
		t, ok := p.tryNextLine()
		if !ok {
			break
		}
		p.parseFeature(t, kinds)
	}
	p.eat(deindentTok)
}

func (p *parser) parseFeature(t token, kinds []geo.EntityKind) {
	name, code, ok := strings.Cut(t.text, ":")
	if !ok {
		panic(&SyntaxError{Line: t.line, Msg: "Invalid feature query `" + t.text + "', missing `:'"})
	}
	name = strings.TrimSpace(name)
	q := parseQuery(strings.TrimSpace(code), t.line)

	for _, kind := range kinds {
		if p.seen[kind] == nil {
			p.seen[kind] = make(map[string]bool)
		}
		if p.seen[kind][name] {
			panic(&SyntaxError{Line: t.line, Msg: fmt.Sprintf("duplicate %s feature `%s'", kind, name)})
		}
		p.seen[kind][name] = true

		decl := FeatureDecl{Name: name, Query: q}
		switch kind {
		case geo.KindPoint:
			p.rs.PointFeatures = append(p.rs.PointFeatures, decl)
		case geo.KindLine:
			p.rs.LineFeatures = append(p.rs.LineFeatures, decl)
		case geo.KindArea:
			p.rs.AreaFeatures = append(p.rs.AreaFeatures, decl)
		}
	}
}

// parseProperties reads `key: value` lines up to the next marker, storing
// them in into or appending them to list.
func (p *parser) parseProperties(into map[string]string, list *[]property) {
	for {
		t, ok := p.tryNextLine()
		if !ok {
			return
		}
		key, value, found := strings.Cut(t.text, ":")
		if !found {
			panic(&SyntaxError{Line: t.line, Msg: "Invalid property `" + t.text + "', missing `:'"})
		}
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)
		if into != nil {
			into[key] = value
		}
		if list != nil {
			*list = append(*list, property{key, value})
		}
	}
}

// statementWithArg reads a `key: value` line.
func (p *parser) statementWithArg() (key, value string, line int) {
	t := p.nextLine()
	k, v, ok := strings.Cut(t.text, ":")
	if !ok {
		panic(&SyntaxError{Line: t.line, Msg: "Invalid statement `" + t.text + "', missing `:'"})
	}
	return strings.TrimSpace(k), strings.TrimSpace(v), t.line
}

// peekKey returns the key of the next `key: value` line without consuming it.
func (p *parser) peekKey() string {
	if p.done() || p.toks[p.pos].isMarker() {
		return ""
	}
	k, _, ok := strings.Cut(p.toks[p.pos].text, ":")
	if !ok {
		return ""
	}
	return strings.TrimSpace(k)
}

func (p *parser) parseRule() *Rule {
	key, value, line := p.statementWithArg()
	if key != "target" {
		panic(&SyntaxError{Line: line, Msg: "Invalid command `" + key + "', expected `target'"})
	}
	return &Rule{
		Target: parseCondition(value, line),
		stmts:  p.parseBlock(),
	}
}

// parseBlock reads an indented statement block.
func (p *parser) parseBlock() []statement {
	p.eat(indentTok)
	var stmts []statement
	for !p.tryEat(deindentTok) {
		stmts = append(stmts, p.parseStatement())
	}
	return stmts
}

func (p *parser) parseStatement() statement {
	if p.tryEat("define") {
		var d defineStatement
		if p.tryEat(indentTok) {
			p.parseProperties(nil, &d.props)
			p.eat(deindentTok)
		}
		return d
	}
	if p.tryEat("stop") {
		return stopStatement{}
	}

	key, value, line := p.statementWithArg()
	switch key {
	case "draw":
		return drawStatement{kind: value, importance: p.remaining()}

	case "for":
		q := parseQuery(value, line)
		return ifStatement{branches: []branch{{cond: QueryCondition{q}, stmts: p.parseBlock()}}}

	case "if":
		st := ifStatement{}
		st.branches = append(st.branches, branch{cond: parseCondition(value, line), stmts: p.parseBlock()})
		for p.peekKey() == "elseif" {
			_, v, l := p.statementWithArg()
			st.branches = append(st.branches, branch{cond: parseCondition(v, l), stmts: p.parseBlock()})
		}
		if p.tryEat("else") {
			st.orElse = p.parseBlock()
		}
		return st
	}

	panic(&SyntaxError{Line: line, Msg: "Invalid command `" + key + "' : `" + value + "'"})
}
