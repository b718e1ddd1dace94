package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/orthoatlas/orthoatlas/internal/infrastructure/monitoring/logging"
	"github.com/orthoatlas/orthoatlas/internal/interfaces/http/middleware"
)

func newLoggedEngine(cfg middleware.LoggingConfig) (*gin.Engine, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := logging.NewLoggerFromCore(core)

	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogging(logger, cfg))
	r.GET("/ok", func(c *gin.Context) { c.String(http.StatusOK, "fine") })
	r.GET("/missing", func(c *gin.Context) {
		c.AbortWithStatus(http.StatusNotFound)
	})
	r.GET("/broken", func(c *gin.Context) {
		c.String(http.StatusInternalServerError, "broken")
	})
	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/slow", func(c *gin.Context) {
		time.Sleep(5 * time.Millisecond)
		c.String(http.StatusOK, "eventually")
	})
	return r, logs
}

func doGet(r *gin.Engine, path string) {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
}

func TestRequestLogging_InfoOnSuccess(t *testing.T) {
	r, logs := newLoggedEngine(middleware.DefaultLoggingConfig())

	doGet(r, "/ok?verbose=1")

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, zapcore.InfoLevel, entry.Level)
	assert.Equal(t, "request completed", entry.Message)

	fields := entry.ContextMap()
	assert.Equal(t, "GET", fields["method"])
	assert.Equal(t, "/ok", fields["path"])
	assert.Equal(t, int64(http.StatusOK), fields["status"])
	assert.Equal(t, "verbose=1", fields["query"])
	assert.NotEmpty(t, fields["request_id"])
}

func TestRequestLogging_WarnOnClientError(t *testing.T) {
	r, logs := newLoggedEngine(middleware.DefaultLoggingConfig())

	doGet(r, "/missing")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, zapcore.WarnLevel, logs.All()[0].Level)
	assert.Equal(t, "request rejected", logs.All()[0].Message)
}

func TestRequestLogging_ErrorOnServerError(t *testing.T) {
	r, logs := newLoggedEngine(middleware.DefaultLoggingConfig())

	doGet(r, "/broken")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, zapcore.ErrorLevel, logs.All()[0].Level)
}

func TestRequestLogging_SkipsConfiguredPaths(t *testing.T) {
	r, logs := newLoggedEngine(middleware.DefaultLoggingConfig())

	doGet(r, "/healthz")
	assert.Zero(t, logs.Len())
}

func TestRequestLogging_FlagsSlowRequests(t *testing.T) {
	cfg := middleware.DefaultLoggingConfig()
	cfg.SlowThreshold = time.Millisecond
	r, logs := newLoggedEngine(cfg)

	doGet(r, "/slow")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, zapcore.WarnLevel, logs.All()[0].Level)
	assert.Equal(t, "slow request", logs.All()[0].Message)
}
