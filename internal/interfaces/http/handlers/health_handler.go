package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/orthoatlas/orthoatlas/internal/infrastructure/monitoring/logging"
	"github.com/orthoatlas/orthoatlas/internal/infrastructure/monitoring/prometheus"
)

// ReadinessChecker probes one dependency.  A nil return means ready.
type ReadinessChecker func(ctx context.Context) error

// HealthHandler serves the liveness and readiness probes.  Probes bypass
// the response envelope; orchestrators only care about the status code.
type HealthHandler struct {
	logger    logging.Logger
	metrics   *prometheus.AppMetrics
	version   string
	startedAt time.Time
	timeout   time.Duration
	checks    map[string]ReadinessChecker
}

// NewHealthHandler builds a HealthHandler.  Register dependency probes
// with AddCheck before wiring routes.
func NewHealthHandler(version string, logger logging.Logger, metrics *prometheus.AppMetrics) *HealthHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &HealthHandler{
		logger:    logger.Named("health"),
		metrics:   metrics,
		version:   version,
		startedAt: time.Now(),
		timeout:   5 * time.Second,
		checks:    make(map[string]ReadinessChecker),
	}
}

// AddCheck registers a named readiness probe.
func (h *HealthHandler) AddCheck(name string, check ReadinessChecker) {
	h.checks[name] = check
}

// Liveness handles GET /healthz.  It answers 200 as long as the process
// serves requests.
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"version": h.version,
		"uptime":  time.Since(h.startedAt).Round(time.Second).String(),
	})
}

// Readiness handles GET /readyz.  All registered checks run concurrently;
// any failure turns the probe 503 with a per-check breakdown.
func (h *HealthHandler) Readiness(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make([]error, len(names))
	g, gctx := errgroup.WithContext(ctx)
	for i, name := range names {
		i, check := i, h.checks[name]
		g.Go(func() error {
			results[i] = check(gctx)
			return nil
		})
	}
	_ = g.Wait()

	ready := true
	detail := make(map[string]string, len(names))
	for i, name := range names {
		if err := results[i]; err != nil {
			ready = false
			detail[name] = err.Error()
			prometheus.SetHealthStatus(h.metrics, name, false)
			h.logger.Warn("readiness check failed",
				logging.String("check", name), logging.Err(err))
		} else {
			detail[name] = "ok"
			prometheus.SetHealthStatus(h.metrics, name, true)
		}
	}

	status := http.StatusOK
	state := "ready"
	if !ready {
		status = http.StatusServiceUnavailable
		state = "unavailable"
	}
	c.JSON(status, gin.H{"status": state, "checks": detail})
}
