package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"staffnum/internal/core/id"
	"staffnum/internal/domain/employeeid"
	"staffnum/internal/infrastructure/http/v1/dto"
	"staffnum/pkg/logger"
)

// employeeFlags are the flags describing the employee a number is for.
type employeeFlags struct {
	company        string
	department     string
	branch         string
	employmentType string
	pattern        string
	at             string
}

func (f *employeeFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&f.company, "company", "", "Company name")
	flags.StringVar(&f.department, "department", "", "Department name")
	flags.StringVar(&f.branch, "branch", "", "Branch name")
	flags.StringVar(&f.employmentType, "employment-type", "", "Employment type name")
	flags.StringVarP(&f.pattern, "pattern", "p", "", "Pattern to use instead of the configured one")
	flags.StringVar(&f.at, "at", "", "Generation time, RFC 3339 or YYYY-MM-DD (default now)")
}

func (f *employeeFlags) request() (employeeid.Request, error) {
	req := employeeid.Request{
		Employee: employeeid.Employee{
			Company:        f.company,
			Department:     f.department,
			Branch:         f.branch,
			EmploymentType: f.employmentType,
		},
	}
	if f.at != "" {
		t, err := parseTime(f.at)
		if err != nil {
			return req, err
		}
		req.Now = t
	}
	return req, nil
}

func parseTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(time.DateOnly, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --at %q: want RFC 3339 or YYYY-MM-DD", s)
	}
	return t, nil
}

func newValidateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "validate PATTERN",
		Short: "Report every problem with a pattern",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := opts.printer(cmd)
			if err != nil {
				return err
			}

			resp := dto.NewValidateResponse(args[0], employeeid.ValidatePattern(args[0]))
			if err := p.print(resp); err != nil {
				return err
			}
			if !resp.Valid {
				return fmt.Errorf("pattern has %d problem(s)", len(resp.Problems))
			}
			return nil
		},
	}
}

func newPreviewCmd(opts *options) *cobra.Command {
	var emp employeeFlags
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Show the next number without consuming it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := opts.printer(cmd)
			if err != nil {
				return err
			}
			req, err := emp.request()
			if err != nil {
				return err
			}

			a, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.Service.Preview(cmd.Context(), req, emp.pattern)
			if err != nil {
				return err
			}
			return p.print(res)
		},
	}
	emp.register(cmd)
	return cmd
}

func newGenerateCmd(opts *options) *cobra.Command {
	var (
		emp      employeeFlags
		override string
		noRecord bool
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Issue a unique employee number",
		Long: `Issue a unique employee number. With a file directory the new employee is
recorded in it, so the number counts as taken from then on.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := opts.printer(cmd)
			if err != nil {
				return err
			}
			req, err := emp.request()
			if err != nil {
				return err
			}
			req.Override = override
			req.Employee.ID = id.New()

			a, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.Service.Generate(cmd.Context(), req, emp.pattern)
			if err != nil {
				return err
			}

			if a.Directory != nil && !noRecord {
				if err := a.Directory.Record(req.Employee, res.EmployeeNumber); err != nil {
					return err
				}
				if err := a.Directory.Save(); err != nil {
					return err
				}
				logger.Debug(cmd.Context(), "employee recorded",
					"employee_number", res.EmployeeNumber,
					"directory", a.Directory.Path(),
				)
			}
			return p.print(res)
		},
	}
	emp.register(cmd)
	cmd.Flags().StringVar(&override, "override", "", "Manually chosen employee number")
	cmd.Flags().BoolVar(&noRecord, "no-record", false, "Do not record the employee in the directory file")
	return cmd
}

func newSeedCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Raise counters past the employee numbers already in use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := opts.printer(cmd)
			if err != nil {
				return err
			}
			a, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := a.Service.SeedFromExisting(cmd.Context())
			if err != nil {
				return err
			}
			return p.print(report)
		},
	}
}

func newCountersCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "counters",
		Short: "List counters, including past periods",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := opts.printer(cmd)
			if err != nil {
				return err
			}
			a, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			records, err := a.Service.Counters(cmd.Context())
			if err != nil {
				return err
			}
			return p.print(records)
		},
	}
}

func newCheckCmd(opts *options) *cobra.Command {
	var raw string
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Report fallback-only, unresolvable and duplicate abbreviations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := opts.printer(cmd)
			if err != nil {
				return err
			}
			a, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			warnings, err := a.Service.CheckAbbreviations(cmd.Context(), raw)
			if err != nil {
				return err
			}
			if warnings == nil {
				warnings = []employeeid.AbbreviationWarning{}
			}
			return p.print(warnings)
		},
	}
	cmd.Flags().StringVarP(&raw, "pattern", "p", "", "Pattern to check (default: configured pattern and rules)")
	return cmd
}

func newTokenCmd(opts *options) *cobra.Command {
	var (
		subject string
		roles   []string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an API bearer token signed with auth.jwt_secret",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := opts.printer(cmd)
			if err != nil {
				return err
			}
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if cfg.Auth.JWTSecret == "" {
				return fmt.Errorf("auth.jwt_secret is not set")
			}
			if len(roles) == 0 {
				roles = []string{cfg.Auth.AdminRole}
			}

			jwtService, err := newJWTService(cfg.Auth.JWTSecret, cfg.Auth.Issuer, ttl)
			if err != nil {
				return err
			}
			token, expiresAt, err := jwtService.GenerateAccessToken(subject, roles)
			if err != nil {
				return err
			}
			return p.print(tokenOutput{Token: token, ExpiresAt: expiresAt})
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "staffnum-cli", "Token subject")
	cmd.Flags().StringSliceVar(&roles, "role", nil, "Role to grant (repeatable, default auth.admin_role)")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "Token lifetime")
	return cmd
}

type tokenOutput struct {
	Token     string    `json:"token" yaml:"token"`
	ExpiresAt time.Time `json:"expires_at" yaml:"expires_at"`
}
