package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/orthoatlas/orthoatlas/internal/infrastructure/monitoring/logging"
	"github.com/orthoatlas/orthoatlas/pkg/errors"
)

// Recovery converts panics into 500 responses instead of dropped
// connections.  The panic value and stack are logged; the client sees only
// a generic error envelope with the request ID for correlation.
func Recovery(logger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error("panic recovered",
					logging.String("request_id", GetRequestID(c)),
					logging.String("method", c.Request.Method),
					logging.String("path", c.Request.URL.Path),
					logging.Any("panic", rec),
					logging.String("stack", string(debug.Stack())),
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error": gin.H{
						"code":       string(errors.ErrCodeInternal),
						"message":    "internal server error",
						"request_id": GetRequestID(c),
					},
				})
			}
		}()
		c.Next()
	}
}
