package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/hplatform/homework-api/internal/models"
	appErrors "github.com/hplatform/homework-api/pkg/errors"
	"github.com/hplatform/homework-api/pkg/response"
)

// RequireRoles enforces role-based access control for routes. The caller
// must carry one of the allowed roles; everyone else gets a 403.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(c *gin.Context) {
		claimsValue, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims, ok := claimsValue.(*models.JWTClaims)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		if _, ok := allowed[claims.Role]; ok {
			c.Next()
			return
		}

		response.Error(c, appErrors.ErrForbidden)
		c.Abort()
	}
}
