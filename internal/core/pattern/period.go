package pattern

import (
	"fmt"
	"time"
)

// ResetPeriod controls when a counter sequence starts over.
type ResetPeriod string

const (
	ResetNever   ResetPeriod = "never"
	ResetYearly  ResetPeriod = "yearly"
	ResetMonthly ResetPeriod = "monthly"
	ResetDaily   ResetPeriod = "daily"
)

// ParseResetPeriod converts a configuration value. Empty means "detect from pattern".
func ParseResetPeriod(s string) (ResetPeriod, error) {
	switch ResetPeriod(s) {
	case "":
		return "", nil
	case ResetNever, ResetYearly, ResetMonthly, ResetDaily:
		return ResetPeriod(s), nil
	default:
		return "", fmt.Errorf("invalid reset period %q: must be never, yearly, monthly or daily", s)
	}
}

// Key returns the reset-period key for t. Never-resetting counters share the
// empty key.
func (r ResetPeriod) Key(t time.Time) string {
	switch r {
	case ResetYearly:
		return t.Format("2006")
	case ResetMonthly:
		return t.Format("2006-01")
	case ResetDaily:
		return t.Format("2006-01-02")
	default:
		return ""
	}
}

// ResetPeriod derives the reset period from the temporal tokens in the
// pattern: the finest of day, month and year wins. A non-empty override
// replaces detection.
func (p *Pattern) ResetPeriod(override ResetPeriod) ResetPeriod {
	if override != "" {
		return override
	}
	switch {
	case p.Has(TokenDay):
		return ResetDaily
	case p.Has(TokenMonth):
		return ResetMonthly
	case p.Has(TokenYear4), p.Has(TokenYear2):
		return ResetYearly
	default:
		return ResetNever
	}
}

// FormatTemporal renders a temporal token for t.
func FormatTemporal(token string, t time.Time) (string, bool) {
	switch token {
	case TokenYear4:
		return t.Format("2006"), true
	case TokenYear2:
		return t.Format("06"), true
	case TokenMonth:
		return t.Format("01"), true
	case TokenDay:
		return t.Format("02"), true
	default:
		return "", false
	}
}
