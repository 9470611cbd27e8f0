package employeeid

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"staffnum/internal/core/apperror"
	corenumerator "staffnum/internal/core/numerator"
	"staffnum/internal/core/pattern"
	"staffnum/internal/core/tx"
	"staffnum/pkg/logger"
)

var tracer = otel.Tracer("staffnum/employeeid")

// ServiceConfig configures the employee id service.
type ServiceConfig struct {
	Settings  Settings
	Store     corenumerator.Store
	Directory Directory
	// TxManager is optional. When set, SeedFromExisting runs inside one
	// transaction.
	TxManager tx.Manager
	// Clock is optional and defaults to time.Now.
	Clock func() time.Time
}

// Service generates employee numbers.
// It is safe for concurrent use; the counter store is the only shared state.
type Service struct {
	settings  Settings
	pattern   *pattern.Pattern
	rules     *RuleSet
	resolver  *Resolver
	counters  *corenumerator.Manager
	directory Directory
	txManager tx.Manager
	now       func() time.Time
}

// NewService validates the settings and creates the service.
// Invalid settings (bad pattern, unknown token, bad rule) are fatal.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("employee id service: counter store is required")
	}
	if cfg.Directory == nil {
		return nil, fmt.Errorf("employee id service: directory is required")
	}

	settings := cfg.Settings
	if settings.Pattern == "" {
		settings.Pattern = DefaultPattern
	}
	if settings.CaseFormat == "" {
		settings.CaseFormat = pattern.CaseUpper
	}
	if err := ValidateSettings(settings); err != nil {
		return nil, err
	}

	p, err := pattern.Parse(settings.Pattern)
	if err != nil {
		return nil, err
	}
	rules, err := CompileRules(settings.Rules)
	if err != nil {
		return nil, err
	}

	now := cfg.Clock
	if now == nil {
		now = time.Now
	}

	return &Service{
		settings:  settings,
		pattern:   p,
		rules:     rules,
		resolver:  NewResolver(settings.Abbreviations, cfg.Directory),
		counters:  corenumerator.NewManager(cfg.Store, &corenumerator.Options{Start: settings.CounterStart}),
		directory: cfg.Directory,
		txManager: cfg.TxManager,
		now:       now,
	}, nil
}

// Settings returns the effective settings.
func (s *Service) Settings() Settings {
	return s.settings
}

// PublicSettings returns what record-entry forms need to know.
func (s *Service) PublicSettings() PublicSettings {
	return PublicSettings{
		Enabled:             s.settings.Enabled,
		AllowManualOverride: s.settings.AllowManualOverride,
		Pattern:             s.settings.Pattern,
	}
}

// ValidatePattern is the method form of ValidatePattern.
func (s *Service) ValidatePattern(raw string) []error {
	return ValidatePattern(raw)
}

// ValidatePattern returns every problem with raw; nil means valid.
// It needs no service, so tools can check patterns offline.
func ValidatePattern(raw string) []error {
	return pattern.Validate(raw)
}

// Counters returns all counter records, including past periods.
func (s *Service) Counters(ctx context.Context) ([]corenumerator.Record, error) {
	ro, ok := s.txManager.(tx.ReadOnlyManager)
	if !ok {
		return s.counters.History(ctx)
	}

	var records []corenumerator.Record
	err := ro.ReadOnly(ctx, func(ctx context.Context) error {
		var err error
		records, err = s.counters.History(ctx)
		return err
	})
	return records, err
}

// GenerateFor issues an employee number using the configured pattern, or
// the pattern of the first matching rule.
func (s *Service) GenerateFor(ctx context.Context, req Request) (*Result, error) {
	return s.Generate(ctx, req, "")
}

// Generate issues a unique employee number for req using raw as the
// pattern. An empty raw selects the configured pattern.
//
// Counter values consumed by collisions are not returned to the sequence.
func (s *Service) Generate(ctx context.Context, req Request, raw string) (*Result, error) {
	ctx, span := tracer.Start(ctx, "employeeid.Generate")
	defer span.End()

	if !s.settings.Enabled {
		return nil, apperror.NewGenerationDisabled()
	}

	if override := strings.TrimSpace(req.Override); override != "" {
		if s.settings.AllowManualOverride {
			return s.acceptOverride(ctx, override)
		}
		logger.Info(ctx, "manual employee number ignored, overrides are not allowed", "override", override)
	}

	p, ruleName, err := s.patternFor(ctx, req.Employee, raw)
	if err != nil {
		return nil, err
	}

	now := s.timeOf(req)
	res, err := s.resolver.Resolve(ctx, p, req.Employee, now, s.settings.CaseFormat, s.settings.ResetCounter)
	if err != nil {
		return nil, err
	}

	span.SetAttributes(
		attribute.String("employeeid.pattern", p.String()),
		attribute.String("employeeid.scope", res.Key.Scope),
		attribute.String("employeeid.period", res.Key.Period),
	)

	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		value, err := s.counters.NextValue(ctx, res.Key)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("allocate counter: %w", err)
		}

		candidate := res.Resolved.Render(value, s.settings.CounterPadding, s.settings.CaseFormat)

		exists, err := s.directory.Exists(ctx, candidate, s.foldsCase())
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("check uniqueness of %s: %w", candidate, err)
		}
		if !exists {
			span.SetAttributes(attribute.Int("employeeid.attempts", attempt))
			logger.Debug(ctx, "employee number generated",
				"employee_number", candidate,
				"scope", res.Key.Scope,
				"period", res.Key.Period,
				"rule", ruleName,
				"attempts", attempt,
			)
			return &Result{
				EmployeeNumber: candidate,
				Pattern:        p.String(),
				Scope:          res.Key.Scope,
				Period:         res.Key.Period,
				Counter:        value,
				Attempts:       attempt,
			}, nil
		}

		logger.Warn(ctx, "employee number already in use, retrying",
			"candidate", candidate,
			"attempt", attempt,
			"scope", res.Key.Scope,
			"period", res.Key.Period,
		)
	}

	err = apperror.NewGenerationExhausted(res.Key.Scope, res.Key.Period, MaxAttempts)
	span.RecordError(err)
	logger.Error(ctx, "employee number generation exhausted",
		"scope", res.Key.Scope,
		"period", res.Key.Period,
		"attempts", MaxAttempts,
	)
	return nil, err
}

// PreviewFor shows the number GenerateFor would issue now.
func (s *Service) PreviewFor(ctx context.Context, req Request) (*Result, error) {
	return s.Preview(ctx, req, "")
}

// Preview renders the number the next generation would produce, without
// consuming a counter value or checking uniqueness.
func (s *Service) Preview(ctx context.Context, req Request, raw string) (*Result, error) {
	ctx, span := tracer.Start(ctx, "employeeid.Preview")
	defer span.End()

	if !s.settings.Enabled {
		return nil, apperror.NewGenerationDisabled()
	}

	p, _, err := s.patternFor(ctx, req.Employee, raw)
	if err != nil {
		return nil, err
	}

	res, err := s.resolver.Resolve(ctx, p, req.Employee, s.timeOf(req), s.settings.CaseFormat, s.settings.ResetCounter)
	if err != nil {
		return nil, err
	}

	value, err := s.counters.PeekValue(ctx, res.Key)
	if err != nil {
		return nil, fmt.Errorf("peek counter: %w", err)
	}

	return &Result{
		EmployeeNumber: res.Resolved.Render(value, s.settings.CounterPadding, s.settings.CaseFormat),
		Pattern:        p.String(),
		Scope:          res.Key.Scope,
		Period:         res.Key.Period,
		Counter:        value,
	}, nil
}

// acceptOverride validates a manual number and returns it unchanged.
// No counter is touched.
func (s *Service) acceptOverride(ctx context.Context, override string) (*Result, error) {
	if err := ValidateOverride(override); err != nil {
		return nil, err
	}

	exists, err := s.directory.Exists(ctx, override, s.foldsCase())
	if err != nil {
		return nil, fmt.Errorf("check uniqueness of %s: %w", override, err)
	}
	if exists {
		return nil, apperror.NewDuplicate("employee", "employee_number", override)
	}

	trace.SpanFromContext(ctx).SetAttributes(attribute.Bool("employeeid.override", true))
	logger.Info(ctx, "manual employee number accepted", "employee_number", override)
	return &Result{EmployeeNumber: override, Override: true}, nil
}

// foldsCase reports whether numbers differing only in letter case collide.
// Any case format other than preserve treats them as the same number.
func (s *Service) foldsCase() bool {
	return s.settings.CaseFormat != pattern.CasePreserve
}

// ValidateOverride checks the syntax of a manually entered employee number.
func ValidateOverride(override string) error {
	if override == "" {
		return apperror.NewValidation("employee number cannot be empty")
	}
	if n := len([]rune(override)); n > MaxOverrideLength {
		return apperror.NewValidation(
			fmt.Sprintf("employee number cannot be longer than %d characters", MaxOverrideLength),
		).WithDetail("length", n)
	}
	if strings.ContainsFunc(override, func(r rune) bool {
		return unicode.IsSpace(r) || r == '{' || r == '}'
	}) {
		return apperror.NewValidation("employee number cannot contain whitespace or braces").
			WithDetail("value", override)
	}
	return nil
}

// patternFor picks the pattern for a request: raw when given, otherwise the
// first matching rule, otherwise the configured pattern.
func (s *Service) patternFor(ctx context.Context, emp Employee, raw string) (*pattern.Pattern, string, error) {
	if raw != "" && raw != s.pattern.String() {
		p, err := pattern.Parse(raw)
		if err != nil {
			return nil, "", err
		}
		return p, "", nil
	}
	if raw == "" {
		p, name, err := s.rules.Select(ctx, emp)
		if err != nil {
			return nil, "", err
		}
		if p != nil {
			return p, name, nil
		}
	}
	return s.pattern, "", nil
}

func (s *Service) timeOf(req Request) time.Time {
	if req.Now.IsZero() {
		return s.now()
	}
	return req.Now
}
