package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"staffnum/internal/app"
	"staffnum/internal/config"
	"staffnum/internal/domain/auth"
	"staffnum/pkg/logger"
)

// options are the flags shared by every command.
type options struct {
	configPath    string
	countersPath  string
	directoryPath string
	format        string
	verbose       bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "staffnum",
		Short: "Employee number generator",
		Long: `staffnum builds unique employee numbers from a token pattern such as
"{COMPANY_ABBR}-{YY}-{####}".

Counters are kept in a JSON file and employees in a YAML directory unless the
config file selects other storage.

Examples:
  # Check a pattern
  staffnum validate "{COMPANY_ABBR}-{YYYY}-{####}"

  # Issue a number and record the employee
  staffnum generate --company "Acme Corp" --department Sales

  # Continue numbering after imported employees
  staffnum seed`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := "warn"
			if opts.verbose {
				level = "debug"
			}
			log, err := logger.New(logger.Config{Level: level, Development: true, OutputPaths: []string{"stderr"}})
			if err != nil {
				return err
			}
			logger.SetDefault(log)
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "JSON config file (default $STAFFNUM_CONFIG)")
	flags.StringVar(&opts.countersPath, "counters", "", "Counter file (overrides storage settings)")
	flags.StringVar(&opts.directoryPath, "directory", "", "YAML directory file (overrides directory settings)")
	flags.StringVarP(&opts.format, "format", "f", "yaml", "Output format: yaml|json")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Debug logging")

	rootCmd.AddCommand(
		newValidateCmd(opts),
		newPreviewCmd(opts),
		newGenerateCmd(opts),
		newSeedCmd(opts),
		newCountersCmd(opts),
		newCheckCmd(opts),
		newTokenCmd(opts),
	)
	return rootCmd
}

// loadConfig reads the config and applies the command-line overrides.
// A memory counter store is useless for a one-shot process, so the CLI
// falls back to the counter file.
func (o *options) loadConfig() (*config.Config, error) {
	path := o.configPath
	if path == "" {
		path = os.Getenv(config.EnvPrefix + "CONFIG")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if o.countersPath != "" || cfg.Storage.Driver == config.DriverMemory {
		cfg.Storage.Driver = config.DriverFile
		if o.countersPath != "" {
			cfg.Storage.File.Path = o.countersPath
		}
	}
	if o.directoryPath != "" {
		cfg.Directory.Driver = config.DriverFile
		cfg.Directory.File = o.directoryPath
	}
	return cfg, nil
}

// open assembles the service for one command.
func (o *options) open(ctx context.Context) (*app.App, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	return app.New(ctx, cfg)
}

func (o *options) printer(cmd *cobra.Command) (*printer, error) {
	switch o.format {
	case "yaml", "json":
		return &printer{w: cmd.OutOrStdout(), format: o.format}, nil
	default:
		return nil, fmt.Errorf("unknown output format %q", o.format)
	}
}

func newJWTService(secret, issuer string, ttl time.Duration) (*auth.JWTService, error) {
	cfg := auth.DefaultJWTConfig(secret)
	if issuer != "" {
		cfg.Issuer = issuer
	}
	cfg.AccessTokenTTL = ttl
	return auth.NewJWTService(cfg)
}
