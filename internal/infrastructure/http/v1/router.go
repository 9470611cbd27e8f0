// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"staffnum/internal/domain/employeeid"
	"staffnum/internal/infrastructure/http/v1/handlers"
	"staffnum/internal/infrastructure/http/v1/middleware"
	"staffnum/pkg/logger"
)

// RouterConfig holds router configuration.
type RouterConfig struct {
	// Logger for request logging
	Logger *logger.Logger

	// Service generates employee numbers
	Service *employeeid.Service

	// JWTValidator for token validation. Nil disables authentication.
	JWTValidator middleware.JWTValidator

	// AdminRole is required for generate and seed when authentication is on
	AdminRole string

	// Checks gate the readiness probe (database, redis)
	Checks map[string]handlers.Pinger

	// Info is merged into /health/info
	Info map[string]any

	// Stats are live snapshots (pool usage) added to /health/info
	Stats map[string]func() any
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	log := cfg.Logger
	if log == nil {
		log = logger.Default()
	}

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(log))
	router.Use(middleware.ErrorHandler())

	healthHandler := handlers.NewHealthHandler(cfg.Checks, cfg.Info, cfg.Stats)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	authEnabled := cfg.JWTValidator != nil

	v1 := router.Group("/api/v1")
	if authEnabled {
		v1.Use(middleware.Auth(cfg.JWTValidator))
	}

	baseHandler := handlers.NewBaseHandler()
	employeeIDHandler := handlers.NewEmployeeIDHandler(baseHandler, cfg.Service)

	employeeIDs := v1.Group("/employee-id")
	admin := employeeIDs.Group("")
	admin.Use(middleware.RequireRole(authEnabled, cfg.AdminRole))
	employeeIDHandler.RegisterRoutes(employeeIDs, admin)

	return router
}
