package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// CORSConfig controls cross-origin resource sharing.
type CORSConfig struct {
	// AllowedOrigins lists origins permitted to make cross-origin
	// requests.  "*" admits every origin; with AllowWildcard set,
	// entries like "*.example.com" match any subdomain.
	AllowedOrigins []string

	AllowedMethods []string // echoed in preflight responses
	AllowedHeaders []string // request headers echoed in preflight responses
	ExposedHeaders []string // response headers readable by browser clients

	AllowCredentials bool
	AllowWildcard    bool
	MaxAge           int  // seconds a preflight result may be cached
}

// DefaultCORSConfig allows no origins.  Deployments opt in explicitly.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-API-Key", RequestIDHeader},
		ExposedHeaders: []string{RequestIDHeader, "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		MaxAge:         86400,
	}
}

// allowOriginFunc compiles the origin list into a lookup that returns
// the Access-Control-Allow-Origin value for a request origin, or ""
// when the origin is not allowed.  Matching is case-insensitive; the
// echoed value keeps the caller's casing.
func allowOriginFunc(cfg CORSConfig) func(origin string) string {
	star := false
	exact := make(map[string]bool, len(cfg.AllowedOrigins))
	var suffixes []string
	for _, o := range cfg.AllowedOrigins {
		switch {
		case o == "*":
			star = true
		case cfg.AllowWildcard && strings.HasPrefix(o, "*."):
			suffixes = append(suffixes, o[1:])
		default:
			exact[strings.ToLower(o)] = true
		}
	}

	// A wildcard with credentials cannot answer "*"; browsers reject
	// the combination, so the origin is echoed instead.
	echo := cfg.AllowCredentials

	return func(origin string) string {
		if star {
			if echo {
				return origin
			}
			return "*"
		}
		lower := strings.ToLower(origin)
		if exact[lower] {
			return origin
		}
		for _, s := range suffixes {
			if strings.HasSuffix(lower, s) {
				return origin
			}
		}
		return ""
	}
}

// CORS answers preflight requests and stamps CORS headers on responses for
// allowed origins.  Requests from origins that are not allowed pass through
// without CORS headers; the browser enforces the block.
func CORS(cfg CORSConfig) gin.HandlerFunc {
	methods := strings.Join(cfg.AllowedMethods, ", ")
	reqHeaders := strings.Join(cfg.AllowedHeaders, ", ")
	expose := strings.Join(cfg.ExposedHeaders, ", ")
	ttl := strconv.Itoa(cfg.MaxAge)
	allowOrigin := allowOriginFunc(cfg)

	return func(c *gin.Context) {
		// Same-origin and non-browser requests carry no Origin header.
		origin := c.GetHeader("Origin")
		if origin == "" {
			c.Next()
			return
		}
		value := allowOrigin(origin)
		if value == "" {
			c.Next()
			return
		}

		h := c.Writer.Header()
		h.Add("Vary", "Origin")
		h.Add("Vary", "Access-Control-Request-Method")
		h.Add("Vary", "Access-Control-Request-Headers")
		h.Set("Access-Control-Allow-Origin", value)
		if cfg.AllowCredentials {
			h.Set("Access-Control-Allow-Credentials", "true")
		}

		if c.Request.Method == http.MethodOptions {
			h.Set("Access-Control-Allow-Methods", methods)
			h.Set("Access-Control-Allow-Headers", reqHeaders)
			if cfg.MaxAge > 0 {
				h.Set("Access-Control-Max-Age", ttl)
			}
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		if expose != "" {
			h.Set("Access-Control-Expose-Headers", expose)
		}
		c.Next()
	}
}
