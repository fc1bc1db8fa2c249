package auth

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// TokenValidator validates a bearer token.
type TokenValidator interface {
	ValidateToken(tokenString string) (*Claims, error)
}

const subjectKey = "auth.subject"

// Subject returns the authenticated member id, empty for anonymous requests.
func Subject(c *gin.Context) string {
	return c.GetString(subjectKey)
}

// RequireAuth rejects mutating requests without a valid bearer token.
// Safe methods and the health probe stay public.
func RequireAuth(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}

		const bearerPrefix = "Bearer "
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, bearerPrefix) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		claims, err := validator.ValidateToken(strings.TrimPrefix(header, bearerPrefix))
		if err != nil {
			log.Printf("[WARN] RequireAuth: %s %s rejected: %v", c.Request.Method, c.FullPath(), err)
			msg := "invalid token"
			if errors.Is(err, ErrTokenExpired) {
				msg = "token has expired"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
			return
		}

		c.Set(subjectKey, claims.Subject)
		c.Next()
	}
}
