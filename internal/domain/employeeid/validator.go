package employeeid

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"staffnum/internal/core/apperror"
	"staffnum/internal/core/pattern"
)

// MaxCounterPadding is the largest accepted counter_padding.
const MaxCounterPadding = 10

// ValidateSettings checks settings at load time. Every problem is reported,
// joined into one error; any error is fatal to startup.
func ValidateSettings(s Settings) error {
	var errs []error

	errs = append(errs, pattern.Validate(s.Pattern)...)

	if _, err := pattern.ParseCaseFormat(string(s.CaseFormat)); err != nil {
		errs = append(errs, apperror.NewValidation(err.Error()).WithDetail("field", "case_format"))
	}
	if _, err := pattern.ParseResetPeriod(string(s.ResetCounter)); err != nil {
		errs = append(errs, apperror.NewValidation(err.Error()).WithDetail("field", "reset_counter"))
	}
	if s.CounterPadding < 0 || s.CounterPadding > MaxCounterPadding {
		errs = append(errs, apperror.NewValidation(
			fmt.Sprintf("counter_padding must be between 1 and %d, or 0 to use the pattern width", MaxCounterPadding),
		).WithDetail("field", "counter_padding").WithDetail("value", s.CounterPadding))
	}
	if s.CounterStart < 0 {
		errs = append(errs, apperror.NewValidation("counter_start must not be negative").
			WithDetail("field", "counter_start").WithDetail("value", s.CounterStart))
	}
	for kind := range s.Abbreviations {
		if !knownEntity(kind) {
			errs = append(errs, apperror.NewValidation(fmt.Sprintf("unknown abbreviation group %q", kind)).
				WithDetail("field", "abbreviations"))
		}
	}
	if _, err := CompileRules(s.Rules); err != nil {
		errs = append(errs, apperror.NewValidation(err.Error()).WithDetail("field", "rules").WithCause(err))
	}

	return errors.Join(errs...)
}

func knownEntity(kind pattern.Entity) bool {
	for _, e := range pattern.Entities {
		if e == kind {
			return true
		}
	}
	return false
}

// WarningKind classifies an abbreviation warning.
type WarningKind string

const (
	// WarnFallbackOnly: the entity only resolves through the derived fallback.
	WarnFallbackOnly WarningKind = "fallback_only"
	// WarnUnresolvable: no strategy yields a value for the entity.
	WarnUnresolvable WarningKind = "unresolvable"
	// WarnDuplicate: several entities of one kind share an abbreviation.
	WarnDuplicate WarningKind = "duplicate"
)

// AbbreviationWarning is an advisory finding. Warnings never block startup.
type AbbreviationWarning struct {
	Kind         WarningKind    `json:"kind" yaml:"kind"`
	Token        string         `json:"token" yaml:"token"`
	Entity       pattern.Entity `json:"entity" yaml:"entity"`
	Names        []string       `json:"names" yaml:"names"`
	Abbreviation string         `json:"abbreviation,omitempty" yaml:"abbreviation,omitempty"`
	Message      string         `json:"message" yaml:"message"`
}

// CheckAbbreviations reports, for every abbreviation token used by raw (or
// by the configured pattern and rule patterns when raw is empty), entities
// that resolve only by fallback, entities that cannot resolve, and entities
// sharing one abbreviation.
func (s *Service) CheckAbbreviations(ctx context.Context, raw string) ([]AbbreviationWarning, error) {
	patterns := []*pattern.Pattern{s.pattern}
	if raw != "" {
		p, err := pattern.Parse(raw)
		if err != nil {
			return nil, err
		}
		patterns = []*pattern.Pattern{p}
	} else {
		for _, r := range s.rules.rules {
			patterns = append(patterns, r.pattern)
		}
	}

	seen := make(map[string]bool)
	var warnings []AbbreviationWarning
	for _, p := range patterns {
		for _, seg := range p.Tokens(pattern.KindAbbreviation) {
			if seen[seg.Text] {
				continue
			}
			seen[seg.Text] = true

			w, err := s.checkToken(ctx, seg)
			if err != nil {
				return nil, err
			}
			warnings = append(warnings, w...)
		}
	}
	return warnings, nil
}

func (s *Service) checkToken(ctx context.Context, seg pattern.Segment) ([]AbbreviationWarning, error) {
	entries, err := s.directory.Entities(ctx, seg.Entity)
	if err != nil {
		return nil, fmt.Errorf("list %s entities: %w", seg.Entity, err)
	}

	var warnings []AbbreviationWarning
	byAbbr := make(map[string][]string)

	for _, e := range entries {
		abbr, origin := s.resolver.abbreviationOf(seg.Entity, e)
		switch origin {
		case OriginNone:
			warnings = append(warnings, AbbreviationWarning{
				Kind:    WarnUnresolvable,
				Token:   seg.Text,
				Entity:  seg.Entity,
				Names:   []string{e.Name},
				Message: fmt.Sprintf("%s %q has no abbreviation and none can be derived", seg.Entity, e.Name),
			})
			continue
		case OriginFallback:
			warnings = append(warnings, AbbreviationWarning{
				Kind:         WarnFallbackOnly,
				Token:        seg.Text,
				Entity:       seg.Entity,
				Names:        []string{e.Name},
				Abbreviation: abbr,
				Message:      fmt.Sprintf("%s %q has no abbreviation, derived %q will be used", seg.Entity, e.Name, abbr),
			})
		}
		key := s.settings.CaseFormat.Apply(abbr)
		byAbbr[key] = append(byAbbr[key], e.Name)
	}

	abbrs := make([]string, 0, len(byAbbr))
	for a := range byAbbr {
		abbrs = append(abbrs, a)
	}
	sort.Strings(abbrs)

	for _, a := range abbrs {
		names := byAbbr[a]
		if len(names) < 2 {
			continue
		}
		sort.Strings(names)
		warnings = append(warnings, AbbreviationWarning{
			Kind:         WarnDuplicate,
			Token:        seg.Text,
			Entity:       seg.Entity,
			Names:        names,
			Abbreviation: a,
			Message:      fmt.Sprintf("%s entities %s share abbreviation %q", seg.Entity, strings.Join(names, ", "), a),
		})
	}
	return warnings, nil
}
