package employeeid

import (
	"context"
	"fmt"
	"sort"
	"strings"

	corenumerator "staffnum/internal/core/numerator"
	"staffnum/internal/core/pattern"
	"staffnum/pkg/logger"
)

// SeededCounter is one counter raised by SeedFromExisting.
type SeededCounter struct {
	Scope  string `json:"scope" yaml:"scope"`
	Period string `json:"period" yaml:"period"`
	// Highest is the largest counter value found in existing numbers.
	Highest int64 `json:"highest" yaml:"highest"`
	// Value is the counter value after seeding.
	Value int64 `json:"value" yaml:"value"`
}

// SeedReport summarises a seeding run.
type SeedReport struct {
	Scanned  int             `json:"scanned" yaml:"scanned"`
	Matched  int             `json:"matched" yaml:"matched"`
	Counters []SeededCounter `json:"counters" yaml:"counters"`
}

type seedMatcher struct {
	matcher *pattern.Matcher
	reset   pattern.ResetPeriod
}

// SeedFromExisting raises counters so that new numbers continue after the
// ones already in use. Every existing number is matched against the
// configured pattern and the rule patterns; its scope, period and counter
// value are recovered and each counter is raised to the highest value seen.
// Counters are never lowered.
func (s *Service) SeedFromExisting(ctx context.Context) (*SeedReport, error) {
	ctx, span := tracer.Start(ctx, "employeeid.SeedFromExisting")
	defer span.End()

	numbers, err := s.directory.Numbers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list existing employee numbers: %w", err)
	}

	matchers, err := s.seedMatchers(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	report := &SeedReport{Scanned: len(numbers)}
	highest := make(map[corenumerator.Key]int64)

	for _, number := range numbers {
		for _, m := range matchers {
			match, ok := m.matcher.Match(number)
			if !ok {
				continue
			}
			period, ok := match.PeriodKey(m.reset, now)
			if !ok {
				continue
			}
			key := corenumerator.Key{Scope: match.Scope.String(), Period: period}
			highest[key] = max(highest[key], match.Counter)
			report.Matched++
			break
		}
	}

	keys := make([]corenumerator.Key, 0, len(highest))
	for k := range highest {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Scope != keys[j].Scope {
			return keys[i].Scope < keys[j].Scope
		}
		return keys[i].Period < keys[j].Period
	})

	seed := func(ctx context.Context) error {
		report.Counters = report.Counters[:0]
		for _, k := range keys {
			v, err := s.counters.Seed(ctx, k, highest[k])
			if err != nil {
				return err
			}
			report.Counters = append(report.Counters, SeededCounter{
				Scope:   k.Scope,
				Period:  k.Period,
				Highest: highest[k],
				Value:   v,
			})
		}
		return nil
	}

	if s.txManager != nil {
		err = s.txManager.RunInTransaction(ctx, seed)
	} else {
		err = seed(ctx)
	}
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	logger.Info(ctx, "counters seeded from existing employee numbers",
		"scanned", report.Scanned,
		"matched", report.Matched,
		"counters", len(report.Counters),
	)
	return report, nil
}

func (s *Service) seedMatchers(ctx context.Context) ([]seedMatcher, error) {
	patterns := []*pattern.Pattern{s.pattern}
	for _, r := range s.rules.rules {
		patterns = append(patterns, r.pattern)
	}

	known, err := s.knownValues(ctx, patterns)
	if err != nil {
		return nil, err
	}

	out := make([]seedMatcher, 0, len(patterns))
	for _, p := range patterns {
		m, err := p.NewMatcher(s.settings.CaseFormat, known)
		if err != nil {
			return nil, fmt.Errorf("compile matcher for %q: %w", p.String(), err)
		}
		out = append(out, seedMatcher{matcher: m, reset: p.ResetPeriod(s.settings.ResetCounter)})
	}
	return out, nil
}

// knownValues collects the names and abbreviations of directory entities,
// plus configured abbreviations, for every entity token the patterns use.
func (s *Service) knownValues(ctx context.Context, patterns []*pattern.Pattern) (pattern.KnownValues, error) {
	known := make(pattern.KnownValues)
	entries := make(map[pattern.Entity][]DirectoryEntry)

	for _, p := range patterns {
		for _, seg := range p.Segments() {
			if seg.Kind != pattern.KindEntity && seg.Kind != pattern.KindAbbreviation {
				continue
			}
			if _, done := known[seg.Text]; done {
				continue
			}

			list, ok := entries[seg.Entity]
			if !ok {
				var err error
				list, err = s.directory.Entities(ctx, seg.Entity)
				if err != nil {
					return nil, fmt.Errorf("list %s entities: %w", seg.Entity, err)
				}
				entries[seg.Entity] = list
			}

			values := make([]string, 0, len(list))
			for _, e := range list {
				if seg.Kind == pattern.KindEntity {
					values = append(values, e.Name)
					continue
				}
				if abbr, origin := s.resolver.abbreviationOf(seg.Entity, e); origin != OriginNone {
					values = append(values, abbr)
				}
			}
			if seg.Kind == pattern.KindAbbreviation {
				for _, abbr := range s.settings.Abbreviations[seg.Entity] {
					values = append(values, strings.TrimSpace(abbr))
				}
			}
			known[seg.Text] = values
		}
	}
	return known, nil
}
