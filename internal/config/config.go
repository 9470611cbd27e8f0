// Package config loads the service configuration.
//
// Sources, lowest priority first: built-in defaults, an optional JSON file,
// STAFFNUM_* environment variables (double underscore separates levels:
// STAFFNUM_EMPLOYEE_ID__PATTERN sets employee_id.pattern).
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"staffnum/internal/core/pattern"
	"staffnum/internal/domain/employeeid"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "STAFFNUM_"

// Storage drivers.
const (
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
	DriverFile     = "file"
	DriverMemory   = "memory"
)

// Config is the root configuration.
type Config struct {
	Log        LogConfig        `json:"log"`
	HTTP       HTTPConfig       `json:"http"`
	Auth       AuthConfig       `json:"auth"`
	Storage    StorageConfig    `json:"storage"`
	Directory  DirectoryConfig  `json:"directory"`
	EmployeeID EmployeeIDConfig `json:"employee_id"`
}

// LogConfig configures pkg/logger.
type LogConfig struct {
	Level       string `json:"level" validate:"oneof=debug info warn error"`
	Development bool   `json:"development"`
}

// HTTPConfig configures the admin API server.
type HTTPConfig struct {
	Port            int           `json:"port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `json:"read_timeout" validate:"min=0"`
	WriteTimeout    time.Duration `json:"write_timeout" validate:"min=0"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout" validate:"min=0"`
}

// AuthConfig configures bearer-token authentication of the admin API.
// An empty JWTSecret disables authentication.
type AuthConfig struct {
	JWTSecret string `json:"jwt_secret"`
	Issuer    string `json:"issuer"`
	AdminRole string `json:"admin_role" validate:"required"`
}

// StorageConfig selects and configures the counter store.
type StorageConfig struct {
	Driver   string         `json:"driver" validate:"oneof=postgres redis file memory"`
	Postgres PostgresConfig `json:"postgres"`
	Redis    RedisConfig    `json:"redis"`
	File     FileConfig     `json:"file"`
}

// PostgresConfig configures the PostgreSQL pool.
type PostgresConfig struct {
	DSN         string `json:"dsn"`
	MaxConns    int32  `json:"max_conns" validate:"min=0"`
	MinConns    int32  `json:"min_conns" validate:"min=0"`
	AutoMigrate bool   `json:"auto_migrate"`
}

// RedisConfig configures the Redis counter store.
type RedisConfig struct {
	Address   string `json:"address"`
	Password  string `json:"password"`
	DB        int    `json:"db" validate:"min=0"`
	KeyPrefix string `json:"key_prefix"`
}

// FileConfig configures the JSON file counter store.
type FileConfig struct {
	Path string `json:"path"`
}

// DirectoryConfig selects where entities and existing numbers are read from.
type DirectoryConfig struct {
	Driver string `json:"driver" validate:"oneof=postgres file"`
	File   string `json:"file"`
}

// EmployeeIDConfig is the employee id settings section.
type EmployeeIDConfig struct {
	Enabled             bool                `json:"enabled"`
	Pattern             string              `json:"pattern" validate:"required,max=200"`
	AllowManualOverride bool                `json:"allow_manual_override"`
	CaseFormat          string              `json:"case_format" validate:"omitempty,oneof=upper lower preserve"`
	ResetCounter        string              `json:"reset_counter" validate:"omitempty,oneof=never yearly monthly daily"`
	CounterPadding      int                 `json:"counter_padding" validate:"min=0,max=10"`
	CounterStart        int64               `json:"counter_start" validate:"min=0"`
	Abbreviations       AbbreviationsConfig `json:"abbreviations"`
	Rules               []RuleConfig        `json:"rules" validate:"dive"`
}

// AbbreviationsConfig maps entity names to abbreviations per entity kind.
type AbbreviationsConfig struct {
	Companies       map[string]string `json:"companies"`
	Departments     map[string]string `json:"departments"`
	Branches        map[string]string `json:"branches"`
	EmploymentTypes map[string]string `json:"employment_types"`
}

// RuleConfig selects an alternative pattern for matching employees.
type RuleConfig struct {
	Name    string `json:"name" validate:"required"`
	When    string `json:"when" validate:"required"`
	Pattern string `json:"pattern" validate:"required"`
}

// Default returns the built-in defaults.
func Default() Config {
	return Config{
		Log: LogConfig{Level: "info"},
		HTTP: HTTPConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Auth: AuthConfig{Issuer: "staffnum", AdminRole: "hr_admin"},
		Storage: StorageConfig{
			Driver:   DriverMemory,
			Postgres: PostgresConfig{MaxConns: 10, MinConns: 2},
			Redis:    RedisConfig{Address: "localhost:6379"},
			File:     FileConfig{Path: "staffnum-counters.json"},
		},
		Directory: DirectoryConfig{Driver: DriverFile, File: "staffnum-directory.yaml"},
		EmployeeID: EmployeeIDConfig{
			Enabled:      true,
			Pattern:      employeeid.DefaultPattern,
			CaseFormat:   string(pattern.CaseUpper),
			CounterStart: 1,
		},
	}
}

// Load builds the configuration from defaults, the JSON file at path (if
// path is not empty) and the environment, then validates it. Any error is
// fatal to startup.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "json"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		if err := k.Load(file.Provider(path), json.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, EnvPrefix)
		s = strings.ToLower(s)
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	unmarshalConf := koanf.UnmarshalConf{
		Tag: "json",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
			),
			ErrorUnused:      true,
			WeaklyTypedInput: true,
			Result:           &cfg,
		},
	}
	if err := k.UnmarshalWithConf("", &cfg, unmarshalConf); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Settings converts the section into the service settings.
func (c EmployeeIDConfig) Settings() employeeid.Settings {
	rules := make([]employeeid.Rule, 0, len(c.Rules))
	for _, r := range c.Rules {
		rules = append(rules, employeeid.Rule{Name: r.Name, When: r.When, Pattern: r.Pattern})
	}

	abbrs := employeeid.Abbreviations{}
	add := func(kind pattern.Entity, m map[string]string) {
		if len(m) > 0 {
			abbrs[kind] = m
		}
	}
	add(pattern.EntityCompany, c.Abbreviations.Companies)
	add(pattern.EntityDepartment, c.Abbreviations.Departments)
	add(pattern.EntityBranch, c.Abbreviations.Branches)
	add(pattern.EntityEmploymentType, c.Abbreviations.EmploymentTypes)

	return employeeid.Settings{
		Enabled:             c.Enabled,
		Pattern:             c.Pattern,
		AllowManualOverride: c.AllowManualOverride,
		CaseFormat:          pattern.CaseFormat(c.CaseFormat),
		ResetCounter:        pattern.ResetPeriod(c.ResetCounter),
		CounterPadding:      c.CounterPadding,
		CounterStart:        c.CounterStart,
		Abbreviations:       abbrs,
		Rules:               rules,
	}
}
