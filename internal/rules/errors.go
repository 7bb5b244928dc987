package rules

import (
	"fmt"
)

// SyntaxError reports a malformed ruleset. Line is the 1-based source line
// the parser was looking at, or 0 when the error is not tied to a line.
type SyntaxError struct {
	Line int
	Msg  string
}

func (e *SyntaxError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("ruleset syntax error on line %d: %s", e.Line, e.Msg)
	}
	return fmt.Sprintf("ruleset syntax error: %s", e.Msg)
}
