package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/library-catalog-api/internal/models"
	"github.com/noah-isme/library-catalog-api/internal/service"
	"github.com/noah-isme/library-catalog-api/pkg/response"
)

type rentalService interface {
	ListForStaff(ctx context.Context, actor *models.User) ([]models.RentalDetail, error)
	Export(ctx context.Context, actor *models.User, format string) (*service.ExportFile, error)
}

// RentalHandler exposes the staff view of the checkout ledger.
type RentalHandler struct {
	service rentalService
}

// NewRentalHandler creates a rental handler.
func NewRentalHandler(svc rentalService) *RentalHandler {
	return &RentalHandler{service: svc}
}

// List godoc
// @Summary List rentals
// @Description All checkouts with borrower and book, newest first
// @Tags Rentals
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.RentalDetail
// @Failure 401 {object} response.ErrorBody
// @Failure 403 {object} response.ErrorBody
// @Router /rentals [get]
func (h *RentalHandler) List(c *gin.Context) {
	rentals, err := h.service.ListForStaff(c.Request.Context(), currentUser(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	if rentals == nil {
		rentals = []models.RentalDetail{}
	}
	response.JSON(c, http.StatusOK, rentals)
}

// Export godoc
// @Summary Export rentals
// @Tags Rentals
// @Produce text/csv
// @Produce application/pdf
// @Security BearerAuth
// @Param format query string false "csv or pdf" Enums(csv, pdf)
// @Success 200 {file} file
// @Failure 400 {object} response.ErrorBody
// @Failure 403 {object} response.ErrorBody
// @Router /rentals/export [get]
func (h *RentalHandler) Export(c *gin.Context) {
	file, err := h.service.Export(c.Request.Context(), currentUser(c), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.File(c, file.Filename, file.ContentType, file.Body)
}
