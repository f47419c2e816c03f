package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-qr-attendance/internal/models"
	appErrors "github.com/noah-isme/sma-qr-attendance/pkg/errors"
	"github.com/noah-isme/sma-qr-attendance/pkg/response"
)

// RequireRoles lets the request through only for the listed roles. It must
// run after JWT.
func RequireRoles(roles ...models.OperatorRole) gin.HandlerFunc {
	allowed := make(map[models.OperatorRole]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(c *gin.Context) {
		claims := ClaimsFrom(c)
		if claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if _, ok := allowed[claims.Role]; !ok {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}
