package config

import (
	"errors"
	"fmt"
	"regexp"
)

// ErrUnresolvedPlaceholder is returned when a template references a variable
// that is not defined.
var ErrUnresolvedPlaceholder = errors.New("unresolved template placeholder")

var placeholderPattern = regexp.MustCompile(`<%=\s*([A-Za-z_$][A-Za-z0-9_$]*)\s*%>`)

// Render substitutes every <%= NAME %> placeholder in tmpl with the matching
// entry of vars.
func Render(tmpl string, vars map[string]any) (string, error) {
	var missing []string
	out := placeholderPattern.ReplaceAllStringFunc(tmpl, func(match string) string {
		name := placeholderPattern.FindStringSubmatch(match)[1]
		v, ok := vars[name]
		if !ok {
			missing = append(missing, name)
			return match
		}
		return FormatValue(v)
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("%w: %s", ErrUnresolvedPlaceholder, missing[0])
	}
	return out, nil
}
