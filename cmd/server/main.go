// Package main is the entry point for the staffnum API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"staffnum/internal/app"
	"staffnum/internal/config"
	v1 "staffnum/internal/infrastructure/http/v1"
	"staffnum/pkg/logger"
)

const version = "0.1.0"

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "staffnum-server",
		Short:         "Employee number API server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				configPath = os.Getenv(config.EnvPrefix + "CONFIG")
			}
			return run(configPath)
		},
	}
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "JSON config file (default $STAFFNUM_CONFIG)")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	// Initialize logger
	log, err := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.SetDefault(log)
	defer func() { _ = log.Sync() }()

	ctx := context.Background()
	log.Infow("starting staffnum server",
		"storage", cfg.Storage.Driver,
		"directory", cfg.Directory.Driver,
		"pattern", cfg.EmployeeID.Pattern,
	)

	application, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := application.Close(); err != nil {
			log.Warnw("failed to close storage", "error", err)
		}
	}()

	warnings, err := application.Service.CheckAbbreviations(ctx, "")
	if err != nil {
		log.Warnw("abbreviation check failed", "error", err)
	}
	for _, w := range warnings {
		log.Warnw("abbreviation warning",
			"kind", w.Kind,
			"token", w.Token,
			"names", w.Names,
			"abbreviation", w.Abbreviation,
		)
	}

	// --- Router ---
	routerCfg := v1.RouterConfig{
		Logger:    log,
		Service:   application.Service,
		AdminRole: cfg.Auth.AdminRole,
		Checks:    application.Checks,
		Stats:     application.Stats,
		Info: map[string]any{
			"version":   version,
			"storage":   cfg.Storage.Driver,
			"directory": cfg.Directory.Driver,
		},
	}
	jwtService, err := application.JWTService()
	if err != nil {
		return err
	}
	if jwtService != nil {
		routerCfg.JWTValidator = jwtService
	} else {
		log.Warn("auth.jwt_secret is empty, API authentication is disabled")
	}

	router := v1.NewRouter(routerCfg)

	// --- HTTP Server ---
	server := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.HTTP.Port),
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Infow("server starting", "port", cfg.HTTP.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	case <-quit:
	}

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info("server stopped")
	return nil
}
