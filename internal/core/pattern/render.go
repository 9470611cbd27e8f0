package pattern

import (
	"fmt"
	"strconv"
	"strings"
)

// CaseFormat is applied to the rendered identifier.
type CaseFormat string

const (
	CaseUpper    CaseFormat = "upper"
	CaseLower    CaseFormat = "lower"
	CasePreserve CaseFormat = "preserve"
)

// ParseCaseFormat converts a configuration value. Empty defaults to upper.
func ParseCaseFormat(s string) (CaseFormat, error) {
	switch CaseFormat(s) {
	case "":
		return CaseUpper, nil
	case CaseUpper, CaseLower, CasePreserve:
		return CaseFormat(s), nil
	default:
		return "", fmt.Errorf("invalid case format %q: must be upper, lower or preserve", s)
	}
}

// Apply converts s according to the case format.
func (c CaseFormat) Apply(s string) string {
	switch c {
	case CaseLower:
		return strings.ToLower(s)
	case CasePreserve:
		return s
	default:
		return strings.ToUpper(s)
	}
}

// GlobalScope is the scope key of patterns without scoping tokens.
const GlobalScope = "global"

// ScopeEntry is one (token, value) pair of a scope key.
type ScopeEntry struct {
	Token string
	Value string
}

// Scope is the ordered list of scoping token values.
type Scope []ScopeEntry

// String encodes the scope canonically: "TOKEN=value|TOKEN=value", or
// "global" when empty. Separators inside values are escaped so distinct
// scopes never encode to the same key.
func (s Scope) String() string {
	if len(s) == 0 {
		return GlobalScope
	}
	var b strings.Builder
	for i, e := range s {
		if i > 0 {
			b.WriteByte('|')
		}
		b.WriteString(e.Token)
		b.WriteByte('=')
		b.WriteString(scopeEscaper.Replace(e.Value))
	}
	return b.String()
}

// scopeEscaper also escapes '@', which joins scope and period in counter keys.
var scopeEscaper = strings.NewReplacer(`\`, `\\`, `|`, `\|`, `=`, `\=`, `@`, `\@`)

// Part is a segment together with its resolved value. The counter part has
// no value until rendering.
type Part struct {
	Segment
	Value string
}

// Resolved is a pattern whose non-counter tokens have been resolved.
type Resolved struct {
	pattern *Pattern
	parts   []Part
}

// Resolve binds values to the pattern's segments. values must hold one entry
// per non-literal, non-counter segment, keyed by token name.
func (p *Pattern) Resolve(values map[string]string) (*Resolved, error) {
	parts := make([]Part, len(p.segments))
	for i, seg := range p.segments {
		parts[i] = Part{Segment: seg}
		switch seg.Kind {
		case KindLiteral:
			parts[i].Value = seg.Text
		case KindCounter:
		default:
			v, ok := values[seg.Text]
			if !ok {
				return nil, fmt.Errorf("no value for token {%s}", seg.Text)
			}
			parts[i].Value = v
		}
	}
	return &Resolved{pattern: p, parts: parts}, nil
}

// Pattern returns the pattern the parts were resolved from.
func (r *Resolved) Pattern() *Pattern {
	return r.pattern
}

// Scope returns the scope key: values of scoping tokens before the counter.
func (r *Resolved) Scope() Scope {
	var scope Scope
	for _, part := range r.parts[:r.pattern.counter] {
		if part.Scoping() {
			scope = append(scope, ScopeEntry{Token: part.Text, Value: part.Value})
		}
	}
	return scope
}

// Render assembles the identifier with the counter value padded to width.
// A width <= 0 uses the counter token's own width.
func (r *Resolved) Render(counter int64, width int, cf CaseFormat) string {
	if width <= 0 {
		width = r.pattern.Counter().Width
	}
	var b strings.Builder
	for _, part := range r.parts {
		if part.Kind == KindCounter {
			b.WriteString(FormatCounter(counter, width))
			continue
		}
		b.WriteString(part.Value)
	}
	return cf.Apply(b.String())
}

// FormatCounter zero-pads value to width. Values wider than width are
// returned in full, never truncated.
func FormatCounter(value int64, width int) string {
	s := strconv.FormatInt(value, 10)
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}
