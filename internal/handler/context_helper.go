package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/library-catalog-api/internal/middleware"
	"github.com/noah-isme/library-catalog-api/internal/models"
	appErrors "github.com/noah-isme/library-catalog-api/pkg/errors"
)

func currentUser(c *gin.Context) *models.User {
	return middleware.CurrentUser(c)
}

func pathID(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, "invalid "+name)
	}
	return id, nil
}

func bindError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
}
