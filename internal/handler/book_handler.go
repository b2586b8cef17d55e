package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/library-catalog-api/internal/dto"
	"github.com/noah-isme/library-catalog-api/internal/middleware"
	"github.com/noah-isme/library-catalog-api/internal/models"
	"github.com/noah-isme/library-catalog-api/pkg/response"
)

type catalogService interface {
	List(ctx context.Context) ([]models.BookListItem, bool, error)
	Get(ctx context.Context, id int64) (*models.BookListItem, error)
	Create(ctx context.Context, req dto.CreateBookRequest) (*models.Book, error)
}

type ledgerService interface {
	Checkout(ctx context.Context, actor *models.User, bookID int64) (*dto.CheckoutResponse, error)
	Return(ctx context.Context, actor *models.User, bookID int64) (*models.Checkout, error)
}

type sheetImporter interface {
	ImportSheet(ctx context.Context, req dto.ImportSheetsRequest) (*dto.ImportResult, error)
}

// BookHandler serves the catalog and the checkout/return actions on a book.
type BookHandler struct {
	catalog  catalogService
	ledger   ledgerService
	importer sheetImporter
}

// NewBookHandler creates a book handler.
func NewBookHandler(catalog catalogService, ledger ledgerService, importer sheetImporter) *BookHandler {
	return &BookHandler{catalog: catalog, ledger: ledger, importer: importer}
}

// List godoc
// @Summary List books
// @Description List every book with its active checkout, if any. X-Cache reports HIT or MISS.
// @Tags Books
// @Produce json
// @Success 200 {array} models.BookListItem
// @Header 200 {string} X-Cache "HIT or MISS"
// @Failure 503 {object} response.ErrorBody
// @Router /books [get]
func (h *BookHandler) List(c *gin.Context) {
	books, hit, err := h.catalog.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	if books == nil {
		books = []models.BookListItem{}
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, books)
}

// Get godoc
// @Summary Get book
// @Tags Books
// @Produce json
// @Param id path int true "Book ID"
// @Success 200 {object} models.BookListItem
// @Failure 404 {object} response.ErrorBody
// @Router /books/{id} [get]
func (h *BookHandler) Get(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	book, err := h.catalog.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, book)
}

// Create godoc
// @Summary Add book
// @Tags Books
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.CreateBookRequest true "Book payload"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} response.ErrorBody
// @Failure 401 {object} response.ErrorBody
// @Router /books [post]
func (h *BookHandler) Create(c *gin.Context) {
	var req dto.CreateBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid book payload"))
		return
	}
	book, err := h.catalog.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "Book added successfully", gin.H{"book": book})
}

// Checkout godoc
// @Summary Check out book
// @Description Students borrow an available book for the loan period
// @Tags Books
// @Produce json
// @Security BearerAuth
// @Param id path int true "Book ID"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} response.ErrorBody
// @Failure 401 {object} response.ErrorBody
// @Failure 403 {object} response.ErrorBody
// @Failure 404 {object} response.ErrorBody
// @Router /books/{id}/checkout [post]
func (h *BookHandler) Checkout(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	checkout, err := h.ledger.Checkout(c.Request.Context(), currentUser(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "Book checked out successfully", gin.H{"checkout": checkout})
}

// Return godoc
// @Summary Return book
// @Description The borrower, staff or an admin closes the active checkout
// @Tags Books
// @Produce json
// @Security BearerAuth
// @Param id path int true "Book ID"
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} response.ErrorBody
// @Failure 403 {object} response.ErrorBody
// @Failure 404 {object} response.ErrorBody
// @Router /books/{id}/return [post]
func (h *BookHandler) Return(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	checkout, err := h.ledger.Return(c.Request.Context(), currentUser(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "Book returned successfully", gin.H{"checkout": checkout})
}

// ImportSheets godoc
// @Summary Import books from Google Sheets
// @Description Reads a spreadsheet whose header row names title, author, genre and isbn
// @Tags Books
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.ImportSheetsRequest true "Spreadsheet reference"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} response.ErrorBody
// @Failure 403 {object} response.ErrorBody
// @Failure 502 {object} response.ErrorBody
// @Router /books/import-sheets [post]
func (h *BookHandler) ImportSheets(c *gin.Context) {
	var req dto.ImportSheetsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid import payload"))
		return
	}
	result, err := h.importer.ImportSheet(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	if result.Errors == nil {
		result.Errors = []dto.ImportRowError{}
	}
	response.Message(c, http.StatusOK, "Import finished", gin.H{
		"imported": result.Imported,
		"skipped":  result.Skipped,
		"errors":   result.Errors,
	})
}
