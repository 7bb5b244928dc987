package rules

import (
	"regexp"
	"strings"

	"github.com/beetlebugorg/osmrender/internal/geo"
)

// Feature pairs a declared feature name with an entity it matched.
type Feature struct {
	Name   string
	Entity geo.Entity
}

// Condition decides whether a rule or branch applies to a feature.
type Condition interface {
	Matches(doc *geo.Document, f Feature) bool
}

// AnyCondition matches every feature.
type AnyCondition struct{}

func (AnyCondition) Matches(*geo.Document, Feature) bool { return true }

// NameCondition matches feature names against an anchored pattern.
type NameCondition struct {
	Pattern *regexp.Regexp
}

func (c NameCondition) Matches(doc *geo.Document, f Feature) bool {
	return c.Pattern.MatchString(f.Name)
}

// QueryCondition applies a query to the feature's entity.
type QueryCondition struct {
	Query Query
}

func (c QueryCondition) Matches(doc *geo.Document, f Feature) bool {
	return c.Query.Matches(doc, f.Entity)
}

const (
	featureTypePrefix = "$featuretype("
	regexPrefix       = `$regex("`
	regexSuffix       = `")`
)

// parseCondition reads a target or if condition. It panics with a
// *SyntaxError on failure.
func parseCondition(cond string, line int) Condition {
	if strings.HasPrefix(cond, "$") {
		switch {
		case cond == featureTypePrefix+"point)":
			return QueryCondition{TypeQuery{Kind: geo.KindPoint}}
		case cond == featureTypePrefix+"line)":
			return QueryCondition{TypeQuery{Kind: geo.KindLine}}
		case cond == featureTypePrefix+"area)":
			return QueryCondition{TypeQuery{Kind: geo.KindArea}}
		case cond == featureTypePrefix+"any)":
			return AnyCondition{}
		case strings.HasPrefix(cond, regexPrefix) && strings.HasSuffix(cond, regexSuffix) &&
			len(cond) >= len(regexPrefix)+len(regexSuffix):
			expr := cond[len(regexPrefix) : len(cond)-len(regexSuffix)]
			return NameCondition{Pattern: compileCondition(expr, line)}
		}
		panic(&SyntaxError{Line: line, Msg: "Invalid target: `" + cond + "'"})
	}

	glob := "^" + strings.ReplaceAll(cond, "*", ".*") + "$"
	return NameCondition{Pattern: compileCondition(glob, line)}
}

func compileCondition(expr string, line int) *regexp.Regexp {
	re, err := regexp.Compile(expr)
	if err != nil {
		panic(&SyntaxError{Line: line, Msg: "invalid pattern `" + expr + "': " + err.Error()})
	}
	return re
}
