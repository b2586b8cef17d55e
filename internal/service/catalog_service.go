package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/library-catalog-api/internal/dto"
	"github.com/noah-isme/library-catalog-api/internal/models"
	appErrors "github.com/noah-isme/library-catalog-api/pkg/errors"
)

// BookListCacheKey holds the cached catalog listing.
const BookListCacheKey = "books:list"

type bookRepository interface {
	List(ctx context.Context) ([]models.BookListItem, error)
	FindByID(ctx context.Context, id int64) (*models.BookListItem, error)
	Create(ctx context.Context, book *models.Book) error
}

// CatalogService lists and adds books.
type CatalogService struct {
	repo      bookRepository
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger

	// listGen counts invalidations so a listing read before one is not cached after it.
	listGen atomic.Uint64
}

// NewCatalogService constructs a CatalogService. cache may be nil.
func NewCatalogService(repo bookRepository, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &CatalogService{repo: repo, cache: cache, validator: validate, logger: logger}
}

// List returns every book with its active checkout. The second value reports a cache hit.
func (s *CatalogService) List(ctx context.Context) ([]models.BookListItem, bool, error) {
	var cached []models.BookListItem
	if s.cache.Get(ctx, BookListCacheKey, &cached) {
		return cached, true, nil
	}

	gen := s.listGen.Load()
	books, err := s.repo.List(ctx)
	if err != nil {
		return nil, false, appErrors.Store(err, "failed to list books")
	}
	if s.listGen.Load() != gen {
		return books, false, nil
	}
	s.cache.Set(ctx, BookListCacheKey, books, 0)
	if s.listGen.Load() != gen {
		s.cache.Invalidate(ctx, BookListCacheKey)
	}
	return books, false, nil
}

// Get returns one book with its active checkout.
func (s *CatalogService) Get(ctx context.Context, id int64) (*models.BookListItem, error) {
	book, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "book not found")
		}
		return nil, appErrors.Store(err, "failed to load book")
	}
	return book, nil
}

func (s *CatalogService) insert(ctx context.Context, req dto.CreateBookRequest) (*models.Book, error) {
	req.Title = strings.TrimSpace(req.Title)
	req.Author = strings.TrimSpace(req.Author)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "title and author are required")
	}

	book := &models.Book{
		Title:  req.Title,
		Author: req.Author,
		Genre:  optional(req.Genre),
		ISBN:   optional(req.ISBN),
	}
	if err := s.repo.Create(ctx, book); err != nil {
		return nil, appErrors.Store(err, "failed to add book")
	}
	return book, nil
}

// Create validates and stores a new available book.
func (s *CatalogService) Create(ctx context.Context, req dto.CreateBookRequest) (*models.Book, error) {
	book, err := s.insert(ctx, req)
	if err != nil {
		return nil, err
	}
	s.InvalidateList(ctx)
	s.logger.Info("book added", zap.Int64("book_id", book.ID))
	return book, nil
}

// ImportRows adds one book per row. Rows failing validation are skipped and
// reported; a store failure aborts the run. firstRow is the 1-based row number
// of rows[0] in the source, used in error reports.
func (s *CatalogService) ImportRows(ctx context.Context, rows []dto.CreateBookRequest, firstRow int) (*dto.ImportResult, error) {
	result := &dto.ImportResult{}
	defer func() {
		if result.Imported > 0 {
			s.InvalidateList(ctx)
		}
	}()

	for i, row := range rows {
		_, err := s.insert(ctx, row)
		if err == nil {
			result.Imported++
			continue
		}
		appErr := appErrors.FromError(err)
		if appErr.Code != appErrors.ErrValidation.Code {
			return result, err
		}
		result.Skipped++
		result.Errors = append(result.Errors, dto.ImportRowError{
			Row:     firstRow + i,
			Message: fmt.Sprintf("%s (title=%q, author=%q)", appErr.Message, row.Title, row.Author),
		})
	}

	s.logger.Info("books imported", zap.Int("imported", result.Imported), zap.Int("skipped", result.Skipped))
	return result, nil
}

// InvalidateList drops the cached listing after any change to books or checkouts.
// Other processes sharing the cache can still write back a listing they read
// before the change; BOOKS_CACHE_TTL bounds how long it survives.
func (s *CatalogService) InvalidateList(ctx context.Context) {
	s.listGen.Add(1)
	s.cache.Invalidate(ctx, BookListCacheKey)
}
