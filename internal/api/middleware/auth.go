package middleware

import (
	"net/http"
	"strings"

	"github.com/bhandras/zkdash/internal/crypto"
	"github.com/bhandras/zkdash/internal/store"
	"github.com/gin-gonic/gin"
)

const (
	sessionIDKey = "sessionID"
	claimsKey    = "claims"
)

// AuthMiddleware validates a session bearer token. The token must be signed
// by jwtManager and issued for the session currently held in st; tokens of
// discarded sessions are rejected.
func AuthMiddleware(jwtManager *crypto.JWTManager, st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			return
		}

		// Format: "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header format"})
			return
		}

		claims, err := jwtManager.VerifyToken(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		current := store.Select(st, func(s store.Snapshot) string {
			if s.Session == nil {
				return ""
			}
			return s.Session.ID()
		})
		if current == "" || current != claims.SessionID() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "session is no longer active"})
			return
		}

		c.Set(sessionIDKey, claims.SessionID())
		c.Set(claimsKey, claims)
		c.Next()
	}
}

// GetSessionID extracts the authenticated session ID from the Gin context.
func GetSessionID(c *gin.Context) (string, bool) {
	v, exists := c.Get(sessionIDKey)
	if !exists {
		return "", false
	}
	id, ok := v.(string)
	return id, ok
}

// GetClaims extracts the verified token claims from the Gin context.
func GetClaims(c *gin.Context) (*crypto.SessionClaims, bool) {
	v, exists := c.Get(claimsKey)
	if !exists {
		return nil, false
	}
	claims, ok := v.(*crypto.SessionClaims)
	return claims, ok
}
