package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/library-catalog-api/internal/dto"
	"github.com/noah-isme/library-catalog-api/internal/models"
	"github.com/noah-isme/library-catalog-api/pkg/response"
)

type userService interface {
	List(ctx context.Context, query dto.UserListQuery) ([]models.User, *models.Pagination, error)
}

// UserHandler exposes account administration.
type UserHandler struct {
	service userService
}

// NewUserHandler creates a new user handler.
func NewUserHandler(svc userService) *UserHandler {
	return &UserHandler{service: svc}
}

// List godoc
// @Summary List users
// @Description List accounts with pagination and filtering
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number"
// @Param pageSize query int false "Page size"
// @Param userType query string false "student, staff or admin"
// @Param active query bool false "Active filter"
// @Param search query string false "Name or email search"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} response.ErrorBody
// @Router /users [get]
func (h *UserHandler) List(c *gin.Context) {
	var query dto.UserListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, bindError(err, "invalid query parameters"))
		return
	}

	users, pagination, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, gin.H{"users": users, "pagination": pagination})
}
