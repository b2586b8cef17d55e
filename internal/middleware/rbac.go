package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/library-catalog-api/internal/models"
	appErrors "github.com/noah-isme/library-catalog-api/pkg/errors"
	"github.com/noah-isme/library-catalog-api/pkg/response"
)

// RequireUserTypes only lets the listed account types through. It must run after Session.
func RequireUserTypes(allowed ...models.UserType) gin.HandlerFunc {
	set := make(map[models.UserType]struct{}, len(allowed))
	for _, t := range allowed {
		set[t] = struct{}{}
	}
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			response.Abort(c, appErrors.ErrUnauthorized)
			return
		}
		if _, ok := set[user.UserType]; !ok {
			response.Abort(c, appErrors.Clone(appErrors.ErrForbidden, "insufficient permissions"))
			return
		}
		c.Next()
	}
}

// RequireStaff allows staff and admin accounts.
func RequireStaff() gin.HandlerFunc {
	return RequireUserTypes(models.UserTypeStaff, models.UserTypeAdmin)
}
