package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tradescript/internal/models"
	"tradescript/internal/repository"
)

const userContextKey = "auth.user"

// RequireBearerMiddleware resolves the Authorization bearer token to a user
// row and stores it in the gin context. Infra endpoints stay open; everything
// under /api/ and the swagger surface needs a valid token.
func RequireBearerMiddleware(repo repository.Repository, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		p := c.Request.URL.Path
		if p == "/healthz" || p == "/readyz" {
			c.Next()
			return
		}
		if !(strings.HasPrefix(p, "/api/") || strings.HasPrefix(p, "/swagger")) {
			c.Next()
			return
		}

		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		user, err := repo.GetUserByToken(c.Request.Context(), token)
		if err != nil {
			if logger != nil {
				logger.Warn("token lookup failed", zap.Error(err))
			}
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "auth backend unavailable"})
			return
		}
		if user == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(userContextKey, user)
		c.Next()
	}
}

// CurrentUser returns the authenticated user stored by the middleware, or nil
// on unauthenticated paths.
func CurrentUser(c *gin.Context) *models.User {
	val, ok := c.Get(userContextKey)
	if !ok {
		return nil
	}
	user, _ := val.(*models.User)
	return user
}
