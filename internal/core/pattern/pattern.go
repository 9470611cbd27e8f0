package pattern

import (
	"errors"
	"strings"

	"staffnum/internal/core/apperror"
)

// Pattern is an immutable parsed identifier pattern.
type Pattern struct {
	raw      string
	segments []Segment
	counter  int
}

// Parse parses raw into a Pattern. All problems found are reported, joined
// into a single error; each of them is an *apperror.AppError.
func Parse(raw string) (*Pattern, error) {
	segments, errs := scan(raw)
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	counter := -1
	for i, seg := range segments {
		if seg.Kind == KindCounter {
			counter = i
		}
	}

	return &Pattern{raw: raw, segments: segments, counter: counter}, nil
}

// MustParse is like Parse but panics on error. Use only for constants and tests.
func MustParse(raw string) *Pattern {
	p, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return p
}

// Validate checks raw and returns every problem found. An empty result means
// the pattern is valid.
func Validate(raw string) []error {
	_, errs := scan(raw)
	return errs
}

// scan splits raw into segments and collects validation errors.
func scan(raw string) ([]Segment, []error) {
	var (
		segments []Segment
		errs     []error
		literal  strings.Builder
		counters int
	)

	if strings.TrimSpace(raw) == "" {
		return nil, []error{apperror.NewInvalidPattern(raw, "pattern cannot be empty")}
	}

	flush := func() {
		if literal.Len() > 0 {
			segments = append(segments, Segment{Kind: KindLiteral, Text: literal.String()})
			literal.Reset()
		}
	}

	for i := 0; i < len(raw); i++ {
		switch raw[i] {
		case '}':
			errs = append(errs, apperror.NewInvalidPattern(raw, "unbalanced '}' in pattern").WithDetail("offset", i))
		case '{':
			end := strings.IndexByte(raw[i+1:], '}')
			if end < 0 {
				errs = append(errs, apperror.NewInvalidPattern(raw, "unterminated token in pattern").WithDetail("offset", i))
				i = len(raw)
				continue
			}
			name := raw[i+1 : i+1+end]
			if strings.IndexByte(name, '{') >= 0 {
				errs = append(errs, apperror.NewInvalidPattern(raw, "nested '{' in pattern").WithDetail("offset", i))
				i += end + 1
				continue
			}
			flush()

			seg, err := tokenSegment(raw, name)
			if err != nil {
				errs = append(errs, err)
			} else {
				if seg.Kind == KindCounter {
					counters++
				}
				segments = append(segments, seg)
			}
			i += end + 1
		default:
			literal.WriteByte(raw[i])
		}
	}
	flush()

	switch {
	case counters == 0 && !hasZeroWidthCounter(errs):
		errs = append(errs, apperror.NewInvalidPattern(raw, "pattern must include a counter token (e.g. {####})"))
	case counters > 1:
		errs = append(errs, apperror.NewInvalidPattern(raw, "pattern cannot have multiple counter tokens").WithDetail("counters", counters))
	}

	return segments, errs
}

func tokenSegment(raw, name string) (Segment, error) {
	if name == "" {
		return Segment{}, apperror.NewInvalidPattern(raw, "counter token padding width must be at least 1").
			WithDetail("reason", "zero_width_counter")
	}
	if strings.Trim(name, "#") == "" {
		return Segment{Kind: KindCounter, Text: name, Width: len(name)}, nil
	}
	def, ok := tokens[name]
	if !ok {
		return Segment{}, apperror.NewUnknownToken(name).WithDetail("pattern", raw)
	}
	return Segment{Kind: def.kind, Text: name, Entity: def.entity}, nil
}

func hasZeroWidthCounter(errs []error) bool {
	for _, err := range errs {
		if appErr, ok := apperror.AsAppError(err); ok && appErr.Details["reason"] == "zero_width_counter" {
			return true
		}
	}
	return false
}

// String returns the raw pattern.
func (p *Pattern) String() string {
	return p.raw
}

// Segments returns a copy of the parsed segments.
func (p *Pattern) Segments() []Segment {
	out := make([]Segment, len(p.segments))
	copy(out, p.segments)
	return out
}

// Counter returns the counter segment.
func (p *Pattern) Counter() Segment {
	return p.segments[p.counter]
}

// ScopeTokens returns the entity and abbreviation tokens that appear before
// the counter. Their resolved values select the counter sequence.
func (p *Pattern) ScopeTokens() []Segment {
	var out []Segment
	for _, seg := range p.segments[:p.counter] {
		if seg.Scoping() {
			out = append(out, seg)
		}
	}
	return out
}

// Tokens returns every non-literal segment of the given kinds, in order.
// With no kinds, all tokens are returned.
func (p *Pattern) Tokens(kinds ...Kind) []Segment {
	var out []Segment
	for _, seg := range p.segments {
		if seg.Kind == KindLiteral {
			continue
		}
		if len(kinds) == 0 || containsKind(kinds, seg.Kind) {
			out = append(out, seg)
		}
	}
	return out
}

// Has reports whether the pattern contains the named token.
func (p *Pattern) Has(token string) bool {
	for _, seg := range p.segments {
		if seg.Kind != KindLiteral && seg.Text == token {
			return true
		}
	}
	return false
}

func containsKind(kinds []Kind, k Kind) bool {
	for _, kind := range kinds {
		if kind == k {
			return true
		}
	}
	return false
}
