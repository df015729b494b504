package server

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// authMiddleware requires Authorization: Bearer <key> on every request,
// the health probe included. A missing or malformed credential and a
// mismatched one are distinct conditions: 401 versus 403.
func authMiddleware(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		parts := strings.SplitN(header, " ", 2)
		if header == "" || len(parts) != 2 || parts[0] != "Bearer" {
			respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid authorization header")
			return
		}

		if subtle.ConstantTimeCompare([]byte(parts[1]), []byte(key)) != 1 {
			respondError(c, http.StatusForbidden, "FORBIDDEN", "invalid api key")
			return
		}

		c.Next()
	}
}

// clientID identifies the caller for rate limiting: the first hop of
// X-Forwarded-For when present, otherwise the connection address.
func clientID(c *gin.Context) string {
	if fwd := c.GetHeader("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.SplitN(fwd, ",", 2)[0])
	}
	return c.ClientIP()
}
