package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/orthoatlas/orthoatlas/internal/interfaces/http/middleware"
)

func newAdminEngine(apiKey string) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID())
	r.POST("/admin", middleware.AdminKey(apiKey), func(c *gin.Context) {
		c.String(http.StatusOK, "done")
	})
	return r
}

func adminRequest(r *gin.Engine, header, value string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/admin", nil)
	if header != "" {
		req.Header.Set(header, value)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestAdminKey_DisabledWithoutConfiguredKey(t *testing.T) {
	r := newAdminEngine("")

	w := adminRequest(r, middleware.APIKeyHeader, "anything")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "disabled")
}

func TestAdminKey_AcceptsHeaderKey(t *testing.T) {
	r := newAdminEngine("s3cret")

	w := adminRequest(r, middleware.APIKeyHeader, "s3cret")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAdminKey_AcceptsBearerToken(t *testing.T) {
	r := newAdminEngine("s3cret")

	w := adminRequest(r, "Authorization", "Bearer s3cret")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAdminKey_RejectsWrongKey(t *testing.T) {
	r := newAdminEngine("s3cret")

	w := adminRequest(r, middleware.APIKeyHeader, "nope")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "invalid or missing API key")
}

func TestAdminKey_RejectsMissingKey(t *testing.T) {
	r := newAdminEngine("s3cret")

	w := adminRequest(r, "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
