package employeeid

import (
	"strings"

	"staffnum/internal/core/pattern"
)

// DefaultPattern is used when no pattern is configured.
const DefaultPattern = "EMP-{####}"

// Rule selects an alternative pattern for employees matching a CEL condition.
type Rule struct {
	Name    string `json:"name"`
	When    string `json:"when"`
	Pattern string `json:"pattern"`
}

// Abbreviations holds explicitly configured abbreviations per entity kind,
// keyed by entity name.
type Abbreviations map[pattern.Entity]map[string]string

// Lookup returns the configured abbreviation for name. Names are compared
// exactly first, then case-insensitively.
func (a Abbreviations) Lookup(kind pattern.Entity, name string) (string, bool) {
	byName := a[kind]
	if len(byName) == 0 || name == "" {
		return "", false
	}
	if v, ok := byName[name]; ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v), true
	}
	for n, v := range byName {
		if strings.EqualFold(n, name) && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v), true
		}
	}
	return "", false
}

// Settings is the employee id configuration the service runs with.
type Settings struct {
	Enabled             bool
	Pattern             string
	AllowManualOverride bool
	CaseFormat          pattern.CaseFormat
	// ResetCounter overrides the reset period detected from the pattern.
	ResetCounter pattern.ResetPeriod
	// CounterPadding overrides the counter token's width when > 0.
	CounterPadding int
	// CounterStart is the first value issued for a new counter.
	CounterStart  int64
	Abbreviations Abbreviations
	Rules         []Rule
}

// DefaultSettings returns settings with generation enabled and the default pattern.
func DefaultSettings() Settings {
	return Settings{
		Enabled:      true,
		Pattern:      DefaultPattern,
		CaseFormat:   pattern.CaseUpper,
		CounterStart: 1,
	}
}

// PublicSettings is the subset of settings exposed to record-entry forms.
type PublicSettings struct {
	Enabled             bool   `json:"enabled" yaml:"enabled"`
	AllowManualOverride bool   `json:"allow_manual_override" yaml:"allow_manual_override"`
	Pattern             string `json:"pattern" yaml:"pattern"`
}
