package employeeid

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/cel-go/cel"

	"staffnum/internal/core/pattern"
)

// RuleSet picks a pattern per employee from CEL conditions such as
//
//	employee.employment_type == "Intern"
//
// Rules are evaluated in order; the first match wins.
type RuleSet struct {
	rules []compiledRule
}

type compiledRule struct {
	Rule
	program cel.Program
	pattern *pattern.Pattern
}

func newRuleEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("employee", cel.MapType(cel.StringType, cel.StringType)),
	)
}

// CompileRules compiles every rule condition and parses every rule pattern.
// All problems are reported, not only the first.
func CompileRules(rules []Rule) (*RuleSet, error) {
	env, err := newRuleEnv()
	if err != nil {
		return nil, fmt.Errorf("create rule environment: %w", err)
	}

	var (
		set  RuleSet
		errs []error
	)
	for i, r := range rules {
		name := r.Name
		if name == "" {
			name = fmt.Sprintf("rules[%d]", i)
		}

		ast, iss := env.Compile(r.When)
		if iss != nil && iss.Err() != nil {
			errs = append(errs, fmt.Errorf("rule %s: compile %q: %w", name, r.When, iss.Err()))
			continue
		}
		if !ast.OutputType().IsExactType(cel.BoolType) {
			errs = append(errs, fmt.Errorf("rule %s: condition must be boolean, got %s", name, ast.OutputType()))
			continue
		}
		prg, err := env.Program(ast)
		if err != nil {
			errs = append(errs, fmt.Errorf("rule %s: %w", name, err))
			continue
		}

		p, err := pattern.Parse(r.Pattern)
		if err != nil {
			errs = append(errs, fmt.Errorf("rule %s: %w", name, err))
			continue
		}

		r.Name = name
		set.rules = append(set.rules, compiledRule{Rule: r, program: prg, pattern: p})
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return &set, nil
}

// Len returns the number of rules.
func (s *RuleSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.rules)
}

// Select returns the pattern and name of the first rule matching emp, or
// nil when none matches.
func (s *RuleSet) Select(ctx context.Context, emp Employee) (*pattern.Pattern, string, error) {
	if s == nil {
		return nil, "", nil
	}
	vars := map[string]any{"employee": employeeVars(emp)}
	for _, r := range s.rules {
		out, _, err := r.program.ContextEval(ctx, vars)
		if err != nil {
			return nil, "", fmt.Errorf("evaluate rule %s: %w", r.Name, err)
		}
		if matched, ok := out.Value().(bool); ok && matched {
			return r.pattern, r.Name, nil
		}
	}
	return nil, "", nil
}

func employeeVars(emp Employee) map[string]string {
	return map[string]string{
		"company":         emp.Company,
		"department":      emp.Department,
		"branch":          emp.Branch,
		"employment_type": emp.EmploymentType,
	}
}
