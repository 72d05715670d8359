package middlewares

import (
	"net/http"

	"github.com/cartline/cartline/internal/domain/user"
	"github.com/gin-gonic/gin"
)

// RequireRole gates a route on the caller's typed role. A missing or
// unknown role is rejected outright, so a malformed stored role can never
// pass an equality check by accident.
func (m *AuthMiddleware) RequireRole(required user.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := RoleFromContext(c)

		if !ok || !role.IsValid() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{
					"code":    "unauthorized",
					"message": "Missing identity context",
				},
			})
			return
		}

		if role != required {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": gin.H{
					"code":    "forbidden",
					"message": "Administrator role required",
				},
			})
			return
		}

		c.Next()
	}
}
