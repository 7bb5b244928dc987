package rules

import (
	"strings"
	"unicode"
)

const (
	indentTok   = "<indent>"
	deindentTok = "<deindent>"
)

// token is one lexed ruleset line: trimmed content, or an indentation marker.
type token struct {
	text string
	line int
}

func (t token) isMarker() bool {
	return t.text == indentTok || t.text == deindentTok
}

// Lex splits ruleset source into content lines and indentation markers.
// Depth is the number of leading tabs. Blank lines and lines starting with
// "//" are dropped without affecting indentation.
func Lex(src string) []string {
	toks := lex(src)
	out := make([]string, len(toks))
	for i, t := range toks {
		out[i] = t.text
	}
	return out
}

func lex(src string) []token {
	var out []token
	prevIndent := 0
	stack := []int{0}

	lines := strings.Split(strings.TrimPrefix(src, "\ufeff"), "\n")
	for i, raw := range lines {
		num := i + 1
		text := strings.TrimRightFunc(raw, unicode.IsSpace)

		indent := 0
		for strings.HasPrefix(text, "\t") {
			indent++
			text = text[1:]
		}
		text = strings.TrimLeftFunc(text, unicode.IsSpace)

		if text == "" || strings.HasPrefix(text, "//") {
			continue
		}

		if indent > prevIndent {
			out = append(out, token{indentTok, num})
			stack = append(stack, indent)
		} else if indent < prevIndent {
			for stack[len(stack)-1] > indent {
				out = append(out, token{deindentTok, num})
				stack = stack[:len(stack)-1]
			}
		}

		out = append(out, token{text, num})
		prevIndent = indent
	}

	end := len(lines)
	for len(stack) > 1 {
		out = append(out, token{deindentTok, end})
		stack = stack[:len(stack)-1]
	}
	return out
}
