package binding

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/specialistvlad/taskgraph/internal/taskerr"
)

// identRegex matches a step, parameter or output name.
var identRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_-]*$`)

// refRegex matches a reference token, e.g. `$name` or `$step.output`.
var refRegex = regexp.MustCompile(`^\$([A-Za-z_][A-Za-z0-9_-]*)(?:\.([A-Za-z_][A-Za-z0-9_-]*))?$`)

// Ref is a parsed reference token.
type Ref struct {
	Root  string
	Field string
}

func (r Ref) String() string {
	if r.Field == "" {
		return "$" + r.Root
	}
	return "$" + r.Root + "." + r.Field
}

// ValidName reports whether s may be used as a step, parameter or output name.
func ValidName(s string) bool {
	return identRegex.MatchString(s)
}

// ParseRef parses a string that may be a reference. It returns ok=false for
// plain strings. An escaped "$$..." string is returned as a literal with one
// dollar sign removed.
func ParseRef(s string) (ref Ref, literal string, ok bool, err error) {
	if !strings.HasPrefix(s, "$") {
		return Ref{}, s, false, nil
	}
	if strings.HasPrefix(s, "$$") {
		return Ref{}, s[1:], false, nil
	}

	matches := refRegex.FindStringSubmatch(s)
	if matches == nil {
		return Ref{}, "", false, &taskerr.ValidationError{
			Kind: taskerr.ErrInvalidReference,
			Msg:  fmt.Sprintf("malformed reference %q", s),
		}
	}
	return Ref{Root: matches[1], Field: matches[2]}, "", true, nil
}
