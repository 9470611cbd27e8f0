package pattern

import (
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// Match is the result of matching an existing identifier against a pattern.
type Match struct {
	// Values holds the captured text per token name.
	Values map[string]string
	// Scope is rebuilt from the captured scoping tokens.
	Scope Scope
	// Counter is the numeric value of the counter token.
	Counter int64
}

// Matcher extracts token values from identifiers produced by a pattern.
type Matcher struct {
	pattern *Pattern
	re      *regexp.Regexp
	groups  []Segment
	cf      CaseFormat
}

// KnownValues lists, per token name, the values an entity token can take.
// Values containing the pattern's separators (an abbreviation "R-D" in
// "{COMPANY_ABBR}-{DEPARTMENT_ABBR}-{####}") only split correctly when the
// matcher knows them.
type KnownValues map[string][]string

// NewMatcher compiles a matcher for identifiers rendered with case format cf.
// Entity tokens try their known values first, longest first, and otherwise
// capture the shortest text that lets the rest of the identifier match.
// known may be nil.
func (p *Pattern) NewMatcher(cf CaseFormat, known KnownValues) (*Matcher, error) {
	var (
		b      strings.Builder
		groups []Segment
	)
	if cf != CasePreserve {
		b.WriteString("(?i)")
	}
	b.WriteByte('^')
	for _, seg := range p.segments {
		switch seg.Kind {
		case KindLiteral:
			b.WriteString(regexp.QuoteMeta(seg.Text))
			continue
		case KindCounter:
			b.WriteString(`(\d+)`)
		case KindTemporal:
			if seg.Text == TokenYear4 {
				b.WriteString(`(\d{4})`)
			} else {
				b.WriteString(`(\d{2})`)
			}
		default:
			b.WriteByte('(')
			if alts := alternation(known[seg.Text]); alts != "" {
				b.WriteString(alts)
				b.WriteByte('|')
			}
			b.WriteString(`.+?)`)
		}
		groups = append(groups, seg)
	}
	b.WriteByte('$')

	re, err := regexp.Compile(b.String())
	if err != nil {
		return nil, err
	}
	return &Matcher{pattern: p, re: re, groups: groups, cf: cf}, nil
}

func alternation(values []string) string {
	seen := make(map[string]struct{}, len(values))
	uniq := make([]string, 0, len(values))
	for _, v := range values {
		if _, dup := seen[v]; v == "" || dup {
			continue
		}
		seen[v] = struct{}{}
		uniq = append(uniq, v)
	}
	slices.SortFunc(uniq, func(a, b string) int {
		if la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b); la != lb {
			return lb - la
		}
		return strings.Compare(a, b)
	})
	for i, v := range uniq {
		uniq[i] = regexp.QuoteMeta(v)
	}
	return strings.Join(uniq, "|")
}

// Match parses id. It returns false when id was not produced by the pattern.
func (m *Matcher) Match(id string) (Match, bool) {
	sub := m.re.FindStringSubmatch(id)
	if sub == nil {
		return Match{}, false
	}

	res := Match{Values: make(map[string]string, len(m.groups))}
	for i, seg := range m.groups {
		text := sub[i+1]
		if seg.Kind == KindCounter {
			n, err := strconv.ParseInt(text, 10, 64)
			if err != nil {
				return Match{}, false
			}
			res.Counter = n
			continue
		}
		res.Values[seg.Text] = text
	}

	for _, seg := range m.pattern.ScopeTokens() {
		res.Scope = append(res.Scope, ScopeEntry{Token: seg.Text, Value: m.cf.Apply(res.Values[seg.Text])})
	}
	return res, true
}

// PeriodKey reconstructs the reset-period key from captured temporal tokens.
// Two-digit years are placed in the century of now. It returns false when
// the identifier does not carry enough information for the period.
func (m Match) PeriodKey(r ResetPeriod, now time.Time) (string, bool) {
	if r == ResetNever || r == "" {
		return "", true
	}

	year, ok := m.year(now)
	if !ok {
		return "", false
	}
	month, day := 1, 1
	if r == ResetMonthly || r == ResetDaily {
		if month, ok = m.int(TokenMonth); !ok || month < 1 || month > 12 {
			return "", false
		}
	}
	if r == ResetDaily {
		if day, ok = m.int(TokenDay); !ok || day < 1 || day > 31 {
			return "", false
		}
	}
	return r.Key(time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)), true
}

func (m Match) year(now time.Time) (int, bool) {
	if y, ok := m.int(TokenYear4); ok {
		return y, true
	}
	if y, ok := m.int(TokenYear2); ok {
		return now.Year()/100*100 + y, true
	}
	return 0, false
}

func (m Match) int(token string) (int, bool) {
	s, ok := m.Values[token]
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}
