package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/capdev-portal-api/internal/models"
	appErrors "github.com/noah-isme/capdev-portal-api/pkg/errors"
	"github.com/noah-isme/capdev-portal-api/pkg/response"
)

// RequireRoles lets the request through when the caller holds one of roles.
// Administrators always pass. It must run after JWT.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := map[models.UserRole]struct{}{models.RoleAdministrator: {}}
	names := make([]string, 0, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
		names = append(names, string(r))
	}
	denied := appErrors.Clone(appErrors.ErrForbidden, "requires role "+strings.Join(names, " or "))
	if len(names) == 0 {
		denied = appErrors.Clone(appErrors.ErrForbidden, "administrators only")
	}

	return func(c *gin.Context) {
		value, _ := c.Get(ContextUserKey)
		claims, ok := value.(*models.JWTClaims)
		if !ok || claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if _, ok := allowed[claims.Role]; !ok {
			response.Error(c, denied)
			c.Abort()
			return
		}
		c.Next()
	}
}
