package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/library-catalog-api/internal/models"
	appErrors "github.com/noah-isme/library-catalog-api/pkg/errors"
	"github.com/noah-isme/library-catalog-api/pkg/response"
)

// ContextUserKey is the gin context key storing the authenticated *models.User.
const ContextUserKey = "currentUser"

// SessionValidator resolves a bearer token to its account.
type SessionValidator interface {
	Validate(ctx context.Context, token string) (*models.User, error)
}

func bearerToken(c *gin.Context) (string, error) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", appErrors.ErrUnauthorized
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header")
	}
	return strings.TrimSpace(parts[1]), nil
}

// Session protects routes by requiring a live session token.
func Session(sessions SessionValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := bearerToken(c)
		if err != nil {
			response.Abort(c, err)
			return
		}

		user, err := sessions.Validate(c.Request.Context(), token)
		if err != nil {
			response.Abort(c, err)
			return
		}

		c.Set(ContextUserKey, user)
		c.Next()
	}
}

// CurrentUser returns the authenticated user, or nil.
func CurrentUser(c *gin.Context) *models.User {
	value, exists := c.Get(ContextUserKey)
	if !exists {
		return nil
	}
	user, _ := value.(*models.User)
	return user
}
