// Package app assembles the employee id service from configuration. The
// HTTP server and the CLI share it.
package app

import (
	"context"
	"errors"
	"fmt"

	"staffnum/internal/config"
	corenumerator "staffnum/internal/core/numerator"
	"staffnum/internal/domain/auth"
	"staffnum/internal/domain/employeeid"
	"staffnum/internal/infrastructure/directory"
	"staffnum/internal/infrastructure/http/v1/handlers"
	infranumerator "staffnum/internal/infrastructure/numerator"
	"staffnum/internal/infrastructure/storage/postgres"
	"staffnum/internal/infrastructure/storage/postgres/directory_repo"
	"staffnum/pkg/logger"
)

// App holds the assembled service and the resources it owns.
type App struct {
	Config  *config.Config
	Service *employeeid.Service
	// Directory is the YAML directory when directory.driver is "file".
	Directory *directory.File
	// Checks are the dependencies readiness depends on.
	Checks map[string]handlers.Pinger
	// Stats are live snapshots reported on /health/info.
	Stats map[string]func() any

	closers []func() error
}

// New opens storage and the directory and builds the service.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{
		Config: cfg,
		Checks: make(map[string]handlers.Pinger),
		Stats:  make(map[string]func() any),
	}

	var (
		pool      *postgres.Pool
		txManager *postgres.TxManager
	)
	if cfg.Storage.Driver == config.DriverPostgres || cfg.Directory.Driver == config.DriverPostgres {
		poolCfg := postgres.DefaultPoolConfig(cfg.Storage.Postgres.DSN)
		if cfg.Storage.Postgres.MaxConns > 0 {
			poolCfg.MaxConns = cfg.Storage.Postgres.MaxConns
		}
		if cfg.Storage.Postgres.MinConns > 0 {
			poolCfg.MinConns = cfg.Storage.Postgres.MinConns
		}
		var err error
		pool, err = postgres.NewPool(ctx, poolCfg)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() error { pool.Close(); return nil })
		a.Checks["database"] = pool
		a.Stats["database_pool"] = func() any { return pool.Stats() }
		txManager = postgres.NewTxManager(pool)
	}

	store, err := a.openStore(ctx, txManager)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	var dir employeeid.Directory
	switch cfg.Directory.Driver {
	case config.DriverPostgres:
		dir = directory_repo.NewDirectoryRepo(txManager)
	default:
		f, err := directory.LoadOrNew(cfg.Directory.File)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		a.Directory = f
		dir = f
	}

	svcCfg := employeeid.ServiceConfig{
		Settings:  cfg.EmployeeID.Settings(),
		Store:     store,
		Directory: dir,
	}
	if txManager != nil && cfg.Storage.Driver == config.DriverPostgres {
		svcCfg.TxManager = txManager
	}

	a.Service, err = employeeid.NewService(svcCfg)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) openStore(ctx context.Context, txManager *postgres.TxManager) (corenumerator.Store, error) {
	cfg := a.Config.Storage
	switch cfg.Driver {
	case config.DriverPostgres:
		store := infranumerator.NewPostgresStore(txManager)
		if cfg.Postgres.AutoMigrate {
			if err := store.EnsureSchema(ctx); err != nil {
				return nil, err
			}
		}
		return store, nil

	case config.DriverRedis:
		store, err := infranumerator.DialRedis(ctx, infranumerator.RedisConfig{
			Address:   cfg.Redis.Address,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			KeyPrefix: cfg.Redis.KeyPrefix,
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, store.Close)
		a.Checks["redis"] = store
		return store, nil

	case config.DriverFile:
		return infranumerator.NewFileStore(cfg.File.Path), nil

	case config.DriverMemory:
		logger.Warn(ctx, "memory counter store selected, counters are lost on restart")
		return infranumerator.NewMemoryStore(), nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// JWTService returns the token service, or nil when authentication is off.
func (a *App) JWTService() (*auth.JWTService, error) {
	if a.Config.Auth.JWTSecret == "" {
		return nil, nil
	}
	jwtCfg := auth.DefaultJWTConfig(a.Config.Auth.JWTSecret)
	if a.Config.Auth.Issuer != "" {
		jwtCfg.Issuer = a.Config.Auth.Issuer
	}
	return auth.NewJWTService(jwtCfg)
}

// Close releases storage connections in reverse order of opening.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
