// Package sanitize neutralises markup in decoded request input.
package sanitize

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// DefaultMaxDepth bounds how far Value descends into nested input.
const DefaultMaxDepth = 32

// angleBrackets turns every tag into text before the policy runs, so the
// policy never sees an element to drop.
var angleBrackets = strings.NewReplacer("<", "&lt;", ">", "&gt;")

// Sanitizer escapes HTML in every string in a decoded JSON value. Markup is
// kept as inert text, never removed, so distinct inputs stay distinct.
// Output is a fresh value; the input is never modified. Sanitizing already
// sanitized text returns it unchanged.
type Sanitizer struct {
	policy   *bluemonday.Policy
	maxDepth int
}

func New(maxDepth int) *Sanitizer {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Sanitizer{
		policy:   bluemonday.StrictPolicy(),
		maxDepth: maxDepth,
	}
}

func (s *Sanitizer) String(v string) string {
	return s.policy.Sanitize(angleBrackets.Replace(v))
}

// Value sanitizes v recursively. Anything nested deeper than the configured
// depth is returned as-is.
func (s *Sanitizer) Value(v any) any {
	return s.walk(v, 0)
}

func (s *Sanitizer) walk(v any, depth int) any {
	if depth > s.maxDepth {
		return v
	}
	switch t := v.(type) {
	case string:
		return s.String(t)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = s.walk(e, depth+1)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = s.walk(e, depth+1)
		}
		return out
	case map[string]string:
		out := make(map[string]string, len(t))
		for k, e := range t {
			out[k] = s.String(e)
		}
		return out
	case []string:
		out := make([]string, len(t))
		for i, e := range t {
			out[i] = s.String(e)
		}
		return out
	default:
		return v
	}
}
