package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"staffnum/internal/domain/employeeid"
)

// newValidator creates a validator that reports JSON field names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks field constraints, cross-section requirements and the
// employee id settings. Pattern problems (unknown token, counter count,
// braces) are reported here and are fatal.
func (c *Config) Validate() error {
	if err := checkStruct(newValidator(), c); err != nil {
		return err
	}

	var errs []error
	needPostgres := c.Storage.Driver == DriverPostgres || c.Directory.Driver == DriverPostgres
	if needPostgres && c.Storage.Postgres.DSN == "" {
		errs = append(errs, errors.New("storage.postgres.dsn is required when postgres is used"))
	}
	if c.Storage.Driver == DriverRedis && c.Storage.Redis.Address == "" {
		errs = append(errs, errors.New("storage.redis.address is required for the redis driver"))
	}
	if c.Storage.Driver == DriverFile && c.Storage.File.Path == "" {
		errs = append(errs, errors.New("storage.file.path is required for the file driver"))
	}
	if c.Directory.Driver == DriverFile && c.Directory.File == "" {
		errs = append(errs, errors.New("directory.file is required for the file directory"))
	}
	if c.Storage.Postgres.MinConns > c.Storage.Postgres.MaxConns && c.Storage.Postgres.MaxConns > 0 {
		errs = append(errs, errors.New("storage.postgres.min_conns must not exceed max_conns"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}

	if err := employeeid.ValidateSettings(c.EmployeeID.Settings()); err != nil {
		return fmt.Errorf("invalid employee_id configuration: %w", err)
	}
	return nil
}

// checkStruct runs struct validation and turns the first failure into a
// readable message.
func checkStruct(v *validator.Validate, s any) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		first := validationErrors[0]
		ns := first.Namespace()
		if i := strings.IndexByte(ns, '.'); i >= 0 {
			ns = ns[i+1:]
		}
		if first.Param() != "" {
			return fmt.Errorf("invalid configuration: %s failed %s=%s (value %v)", ns, first.Tag(), first.Param(), first.Value())
		}
		return fmt.Errorf("invalid configuration: %s failed %s (value %v)", ns, first.Tag(), first.Value())
	}
	return fmt.Errorf("validate configuration: %w", err)
}
