package middleware

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/shulepay/backend/internal/infrastructure/config"
)

// RequestIDKey is the gin context key for the request ID
const RequestIDKey = "request_id"

// RequestIDHeader is the header clients may use to supply their own ID
const RequestIDHeader = "X-Request-ID"

// RequestID attaches a request ID to every request, generating one when the
// client did not send one
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = generateRequestID()
		}
		c.Set(RequestIDKey, requestID)
		c.Header(RequestIDHeader, requestID)
		c.Next()
	}
}

// GetRequestID returns the request ID from the gin context
func GetRequestID(c *gin.Context) string {
	if id, exists := c.Get(RequestIDKey); exists {
		if s, ok := id.(string); ok {
			return s
		}
	}
	return ""
}

func generateRequestID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "unknown"
	}
	return hex.EncodeToString(b)
}

// CORS handles cross-origin requests against a configured origin whitelist.
// An empty whitelist rejects all cross-origin requests.
func CORS(cfg config.HTTPConfig) gin.HandlerFunc {
	allowAll := false
	origins := make(map[string]bool, len(cfg.CORSAllowOrigins))
	for _, origin := range cfg.CORSAllowOrigins {
		if origin == "*" {
			allowAll = true
		}
		origins[origin] = true
	}
	methods := strings.Join(cfg.CORSAllowMethods, ", ")
	headers := strings.Join(cfg.CORSAllowHeaders, ", ")

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && (allowAll || origins[origin]) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Methods", methods)
			c.Header("Access-Control-Allow-Headers", headers)
			c.Header("Access-Control-Max-Age", "86400")
			c.Header("Vary", "Origin")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

