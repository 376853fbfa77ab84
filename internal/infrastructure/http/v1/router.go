// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"fatture/internal/domain/client"
	"fatture/internal/domain/invoice"
	"fatture/internal/infrastructure/http/v1/handlers"
	"fatture/internal/infrastructure/http/v1/middleware"
	"fatture/pkg/logger"
)

// RouterConfig holds router dependencies.
type RouterConfig struct {
	// Pool is the database connection pool (for health checks)
	Pool *pgxpool.Pool

	// Logger for request logging
	Logger *logger.Logger

	// Version is the build version reported by /health/info
	Version string

	// Services
	ClientService  *client.Service
	InvoiceService *invoice.Service
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	// Health endpoints (no actor required)
	healthHandler := handlers.NewHealthHandler(cfg.Pool, cfg.Version)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	// API v1
	apiV1 := router.Group("/api/v1")
	apiV1.Use(middleware.Actor())
	{
		baseHandler := handlers.NewBaseHandler()

		clientHandler := handlers.NewClientHandler(baseHandler, cfg.ClientService)
		clientHandler.RegisterRoutes(apiV1.Group("/clients"))

		invoiceHandler := handlers.NewInvoiceHandler(baseHandler, cfg.InvoiceService)
		invoiceHandler.RegisterRoutes(apiV1.Group("/invoices"))
	}

	return router
}
