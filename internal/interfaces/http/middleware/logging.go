package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/orthoatlas/orthoatlas/internal/infrastructure/monitoring/logging"
)

// LoggingConfig controls the request logging middleware.
type LoggingConfig struct {
	// SkipPaths lists exact request paths that are never logged.
	// Health and metrics probes fire every few seconds and would drown
	// the log otherwise.
	SkipPaths []string

	// SlowThreshold marks requests slower than this as slow (logged at
	// Warn).  Zero disables the check.
	SlowThreshold time.Duration
}

// DefaultLoggingConfig skips probe endpoints and flags requests over 3s.
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		SkipPaths:     []string{"/healthz", "/readyz", "/metrics"},
		SlowThreshold: 3 * time.Second,
	}
}

// RequestLogging logs one line per request: method, path, status, size and
// latency, tagged with the request ID.  Server errors log at Error, client
// errors and slow requests at Warn, everything else at Info.
func RequestLogging(logger logging.Logger, config LoggingConfig) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(config.SkipPaths))
	for _, p := range config.SkipPaths {
		skip[p] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := skip[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		duration := time.Since(start)
		status := c.Writer.Status()

		fields := []logging.Field{
			logging.String("request_id", GetRequestID(c)),
			logging.String("method", c.Request.Method),
			logging.String("path", path),
			logging.Int("status", status),
			logging.Int("bytes", c.Writer.Size()),
			logging.Duration("duration", duration),
			logging.String("client_ip", c.ClientIP()),
		}
		if query != "" {
			fields = append(fields, logging.String("query", query))
		}

		switch {
		case status >= 500:
			logger.Error("request failed", fields...)
		case status >= 400:
			logger.Warn("request rejected", fields...)
		case config.SlowThreshold > 0 && duration > config.SlowThreshold:
			logger.Warn("slow request", fields...)
		default:
			logger.Info("request completed", fields...)
		}
	}
}
