// Package http assembles the gin router, middleware chain and HTTP server
// for the orthology API.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/orthoatlas/orthoatlas/internal/infrastructure/monitoring/logging"
	"github.com/orthoatlas/orthoatlas/internal/infrastructure/monitoring/prometheus"
	"github.com/orthoatlas/orthoatlas/internal/interfaces/http/handlers"
	"github.com/orthoatlas/orthoatlas/internal/interfaces/http/middleware"
)

// RouterConfig wires handlers and cross-cutting concerns into the router.
// Nil handlers leave their routes unregistered, which keeps partial wiring
// usable in tests.
type RouterConfig struct {
	Search    *handlers.SearchHandler
	Orthology *handlers.OrthologyHandler
	Species   *handlers.SpeciesHandler
	Dataset   *handlers.DatasetHandler
	Health    *handlers.HealthHandler

	Logger  logging.Logger
	Metrics *prometheus.AppMetrics

	// MetricsHandler is the Prometheus scrape handler, mounted at
	// MetricsPath (default /metrics) when non-nil.
	MetricsHandler http.Handler
	MetricsPath    string

	// RateLimiter throttles API traffic when non-nil.
	RateLimiter *middleware.RateLimiter

	// CORS enables cross-origin handling when non-nil.
	CORS *middleware.CORSConfig

	// AdminAPIKey guards POST /api/v1/dataset/reload.  Empty disables the
	// endpoint.
	AdminAPIKey string

	// Mode selects the gin mode: debug, test or release (default).
	Mode string
}

// NewRouter builds the gin engine.  Middleware order matters: the request
// ID must exist before logging and error envelopes reference it, and
// recovery must wrap everything below it.
func NewRouter(cfg RouterConfig) *gin.Engine {
	switch cfg.Mode {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(logger))
	if cfg.CORS != nil {
		r.Use(middleware.CORS(*cfg.CORS))
	}
	r.Use(middleware.RequestLogging(logger, middleware.DefaultLoggingConfig()))
	r.Use(middleware.Metrics(cfg.Metrics))
	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter.Handler())
	}

	if cfg.Health != nil {
		r.GET("/healthz", cfg.Health.Liveness)
		r.GET("/readyz", cfg.Health.Readiness)
	}
	if cfg.MetricsHandler != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, gin.WrapH(cfg.MetricsHandler))
	}

	api := r.Group("/api/v1")

	if cfg.Search != nil {
		tree := api.Group("/tree")
		tree.GET("/search", cfg.Search.Search)
		tree.POST("/ancestor", cfg.Search.CommonAncestor)
	}

	if cfg.Orthology != nil {
		api.GET("/orthologues/:gene", cfg.Orthology.SearchOrthologues)
		api.GET("/genes/:gene/orthogroup", cfg.Orthology.GeneOrthogroup)

		groups := api.Group("/orthogroups")
		groups.GET("/:id/genes", cfg.Orthology.OrthogroupGenes)
		groups.GET("/:id/tree", cfg.Orthology.OrthogroupTree)
	}

	if cfg.Species != nil {
		api.GET("/species", cfg.Species.List)
		api.GET("/species/:code", cfg.Species.Get)
	}

	if cfg.Dataset != nil {
		ds := api.Group("/dataset")
		ds.GET("/stats", cfg.Dataset.Stats)

		admin := ds.Group("")
		admin.Use(middleware.AdminKey(cfg.AdminAPIKey))
		admin.POST("/reload", cfg.Dataset.Reload)
	}

	return r
}
