package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/orthoatlas/orthoatlas/pkg/errors"
)

// APIKeyHeader carries the admin API key.
const APIKeyHeader = "X-API-Key"

// AdminKey guards administrative endpoints with a shared API key.  The key
// may arrive in the X-API-Key header or as a Bearer token.  When no key is
// configured the endpoints are disabled outright rather than left open.
func AdminKey(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if apiKey == "" {
			abortAuth(c, http.StatusForbidden, errors.ErrCodeForbidden,
				"administrative endpoints are disabled")
			return
		}

		presented := c.GetHeader(APIKeyHeader)
		if presented == "" {
			auth := c.GetHeader("Authorization")
			if strings.HasPrefix(auth, "Bearer ") {
				presented = strings.TrimPrefix(auth, "Bearer ")
			}
		}

		if subtle.ConstantTimeCompare([]byte(presented), []byte(apiKey)) != 1 {
			abortAuth(c, http.StatusUnauthorized, errors.ErrCodeUnauthorized,
				"invalid or missing API key")
			return
		}
		c.Next()
	}
}

func abortAuth(c *gin.Context, status int, code errors.ErrorCode, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error": gin.H{
			"code":       string(code),
			"message":    message,
			"request_id": GetRequestID(c),
		},
	})
}
