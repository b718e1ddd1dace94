// Package middleware provides the gin middleware chain for the HTTP API:
// request identification, structured request logging, panic recovery, CORS,
// rate limiting, Prometheus instrumentation and admin-key protection.
package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDHeader is the header used to propagate request IDs.
const RequestIDHeader = "X-Request-ID"

// requestIDKey is the gin context key under which the ID is stored.
const requestIDKey = "request_id"

// RequestID tags every request with a unique ID.  An incoming X-Request-ID
// header is honored so IDs survive proxy hops; otherwise a fresh UUID is
// generated.  The ID is stored in the gin context and echoed on the response.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		c.Set(requestIDKey, id)
		c.Writer.Header().Set(RequestIDHeader, id)
		c.Next()
	}
}

// GetRequestID returns the request ID stored by RequestID, or "" when the
// middleware did not run.
func GetRequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}
