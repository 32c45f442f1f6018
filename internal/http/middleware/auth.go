package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/astrobyab/consult-backend/internal/models"
	"github.com/astrobyab/consult-backend/internal/service"
)

// Context ключи для gin.Context.
const (
	ContextUserIDKey = "userID"
	ContextRoleKey   = "role"
)

// AuthMiddleware проверяет JWT access токен.
func AuthMiddleware(tokens *service.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, role, ok := parseBearer(c, tokens)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized", "code": "UNAUTHORIZED"})
			return
		}

		c.Set(ContextUserIDKey, userID)
		c.Set(ContextRoleKey, role)
		c.Next()
	}
}

// OptionalAuthMiddleware кладёт пользователя в контекст, если токен передан и валиден.
// Бронирование доступно и гостям.
func OptionalAuthMiddleware(tokens *service.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID, role, ok := parseBearer(c, tokens); ok {
			c.Set(ContextUserIDKey, userID)
			c.Set(ContextRoleKey, role)
		}
		c.Next()
	}
}

// AdminOnly пропускает только администраторов. Ставится после AuthMiddleware.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(ContextRoleKey) != models.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden", "code": "FORBIDDEN"})
			return
		}
		c.Next()
	}
}

func parseBearer(c *gin.Context, tokens *service.TokenManager) (uuid.UUID, string, bool) {
	auth := c.GetHeader("Authorization")
	if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
		return uuid.Nil, "", false
	}

	raw := strings.TrimPrefix(auth, "Bearer ")
	userID, role, err := tokens.ParseAccess(raw)
	if err != nil || userID == uuid.Nil {
		return uuid.Nil, "", false
	}
	return userID, role, true
}
