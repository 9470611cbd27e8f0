package employeeid

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"staffnum/internal/core/apperror"
	corenumerator "staffnum/internal/core/numerator"
	"staffnum/internal/core/pattern"
)

// Origin tells where an abbreviation came from.
type Origin string

const (
	OriginNone        Origin = ""
	OriginConfigured  Origin = "configured"
	OriginCustomField Origin = "custom_field"
	OriginFallback    Origin = "fallback"
)

// FallbackWidth is the length of derived abbreviations per entity kind.
func FallbackWidth(kind pattern.Entity) int {
	if kind == pattern.EntityEmploymentType {
		return 2
	}
	return 3
}

// FallbackAbbreviation derives an abbreviation from an entity name:
// initials for multi-word names, leading characters otherwise. Only letters
// and digits are kept; the result is upper-cased and at most width runes.
func FallbackAbbreviation(name string, width int) string {
	words := strings.FieldsFunc(name, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(words) == 0 || width <= 0 {
		return ""
	}

	var out []rune
	if len(words) > 1 {
		for _, w := range words {
			out = append(out, []rune(w)[0])
		}
	} else {
		out = []rune(words[0])
	}
	if len(out) > width {
		out = out[:width]
	}
	return strings.ToUpper(string(out))
}

// Resolver turns a pattern and an employee into a resolved identifier
// template and the counter key it allocates from.
type Resolver struct {
	configured Abbreviations
	source     AbbreviationSource
}

// NewResolver creates a resolver. source may be nil, in which case only
// configured and derived abbreviations are used.
func NewResolver(configured Abbreviations, source AbbreviationSource) *Resolver {
	return &Resolver{configured: configured, source: source}
}

// Resolution is a resolved pattern together with its counter coordinates.
type Resolution struct {
	Resolved *pattern.Resolved
	Scope    pattern.Scope
	Period   pattern.ResetPeriod
	Key      corenumerator.Key
	// Origins records where each abbreviation token's value came from.
	Origins map[string]Origin
}

// Abbreviation resolves an entity abbreviation: configured value, then the
// entity's custom field, then the derived fallback. The first non-empty
// value wins. OriginNone with a nil error means nothing could be resolved.
func (r *Resolver) Abbreviation(ctx context.Context, kind pattern.Entity, name string) (string, Origin, error) {
	if strings.TrimSpace(name) == "" {
		return "", OriginNone, nil
	}
	if v, ok := r.configured.Lookup(kind, name); ok {
		return v, OriginConfigured, nil
	}
	if r.source != nil {
		v, err := r.source.Abbreviation(ctx, kind, name)
		if err != nil {
			return "", OriginNone, fmt.Errorf("read %s abbreviation for %q: %w", kind, name, err)
		}
		if v = strings.TrimSpace(v); v != "" {
			return v, OriginCustomField, nil
		}
	}
	if v := FallbackAbbreviation(name, FallbackWidth(kind)); v != "" {
		return v, OriginFallback, nil
	}
	return "", OriginNone, nil
}

// abbreviationOf applies the same order as Abbreviation to an entry that
// already carries its custom field.
func (r *Resolver) abbreviationOf(kind pattern.Entity, e DirectoryEntry) (string, Origin) {
	if v, ok := r.configured.Lookup(kind, e.Name); ok {
		return v, OriginConfigured
	}
	if v := strings.TrimSpace(e.Abbreviation); v != "" {
		return v, OriginCustomField
	}
	if v := FallbackAbbreviation(e.Name, FallbackWidth(kind)); v != "" {
		return v, OriginFallback
	}
	return "", OriginNone
}

// Resolve resolves every non-counter token of p for emp at now.
// cf is applied to scope values so that requests rendering the same prefix
// share a counter; reset overrides the period detected from p.
func (r *Resolver) Resolve(
	ctx context.Context,
	p *pattern.Pattern,
	emp Employee,
	now time.Time,
	cf pattern.CaseFormat,
	reset pattern.ResetPeriod,
) (*Resolution, error) {
	values := make(map[string]string)
	origins := make(map[string]Origin)

	for _, seg := range p.Segments() {
		if _, done := values[seg.Text]; done {
			continue
		}
		switch seg.Kind {
		case pattern.KindEntity:
			name := strings.TrimSpace(emp.EntityName(seg.Entity))
			if name == "" {
				return nil, apperror.NewMissingAbbreviation(seg.Text, string(seg.Entity), "")
			}
			values[seg.Text] = name

		case pattern.KindAbbreviation:
			name := emp.EntityName(seg.Entity)
			v, origin, err := r.Abbreviation(ctx, seg.Entity, name)
			if err != nil {
				return nil, err
			}
			if origin == OriginNone {
				return nil, apperror.NewMissingAbbreviation(seg.Text, string(seg.Entity), strings.TrimSpace(name))
			}
			values[seg.Text] = v
			origins[seg.Text] = origin

		case pattern.KindTemporal:
			v, ok := pattern.FormatTemporal(seg.Text, now)
			if !ok {
				return nil, apperror.NewUnknownToken(seg.Text)
			}
			values[seg.Text] = v
		}
	}

	resolved, err := p.Resolve(values)
	if err != nil {
		return nil, apperror.NewInternal(err)
	}

	scope := resolved.Scope()
	for i := range scope {
		scope[i].Value = cf.Apply(scope[i].Value)
	}
	period := p.ResetPeriod(reset)

	return &Resolution{
		Resolved: resolved,
		Scope:    scope,
		Period:   period,
		Key:      corenumerator.Key{Scope: scope.String(), Period: period.Key(now)},
		Origins:  origins,
	}, nil
}
