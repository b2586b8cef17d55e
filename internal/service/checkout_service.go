package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/library-catalog-api/internal/dto"
	"github.com/noah-isme/library-catalog-api/internal/models"
	"github.com/noah-isme/library-catalog-api/internal/repository"
	appErrors "github.com/noah-isme/library-catalog-api/pkg/errors"
	"github.com/noah-isme/library-catalog-api/pkg/export"
)

// LoanPeriodDays is the fixed loan length in calendar days.
const LoanPeriodDays = 14

type checkoutRepository interface {
	Checkout(ctx context.Context, params repository.CheckoutParams) (*models.Checkout, error)
	Return(ctx context.Context, bookID int64, returnedAt time.Time, guard repository.ReturnGuard) (*models.Checkout, error)
	ListDetailed(ctx context.Context) ([]models.RentalDetail, error)
}

type listInvalidator interface {
	InvalidateList(ctx context.Context)
}

// ExportFile is a rendered rental report.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

// CheckoutService runs the checkout ledger: who may borrow and return which book.
type CheckoutService struct {
	repo    checkoutRepository
	catalog listInvalidator
	logger  *zap.Logger
	metrics *MetricsService
	now     func() time.Time
}

// NewCheckoutService constructs a CheckoutService. catalog may be nil when no list cache is kept.
func NewCheckoutService(repo checkoutRepository, catalog listInvalidator, logger *zap.Logger, metrics *MetricsService) *CheckoutService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CheckoutService{
		repo:    repo,
		catalog: catalog,
		logger:  logger,
		metrics: metrics,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *CheckoutService) invalidate(ctx context.Context) {
	if s.catalog != nil {
		s.catalog.InvalidateList(ctx)
	}
}

func requirePrivileged(actor *models.User) error {
	if actor == nil {
		return appErrors.Clone(appErrors.ErrUnauthorized, "authentication required")
	}
	if !actor.UserType.Privileged() {
		return appErrors.Clone(appErrors.ErrForbidden, "staff or admin access required")
	}
	return nil
}

// Checkout lends bookID to actor. Only students borrow.
func (s *CheckoutService) Checkout(ctx context.Context, actor *models.User, bookID int64) (*dto.CheckoutResponse, error) {
	if actor == nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "authentication required")
	}
	if actor.UserType != models.UserTypeStudent {
		s.metrics.RecordLedger("checkout", "forbidden")
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only students can check out books")
	}

	now := s.now()
	checkout, err := s.repo.Checkout(ctx, repository.CheckoutParams{
		UserID:       actor.ID,
		BookID:       bookID,
		CheckoutDate: now,
		DueDate:      now.AddDate(0, 0, LoanPeriodDays),
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrBookNotFound):
			s.metrics.RecordLedger("checkout", "not_found")
			return nil, appErrors.Clone(appErrors.ErrNotFound, "book not found")
		case errors.Is(err, repository.ErrAlreadyBorrowing):
			s.metrics.RecordLedger("checkout", "conflict")
			return nil, appErrors.Clone(appErrors.ErrCheckoutConflict, "you already have this book checked out")
		case errors.Is(err, repository.ErrBookCheckedOut):
			s.metrics.RecordLedger("checkout", "conflict")
			return nil, appErrors.Clone(appErrors.ErrCheckoutConflict, "")
		}
		s.metrics.RecordLedger("checkout", "error")
		return nil, appErrors.Store(err, "failed to check out book")
	}

	s.metrics.RecordLedger("checkout", "ok")
	s.invalidate(ctx)
	s.logger.Info("book checked out",
		zap.Int64("checkout_id", checkout.ID),
		zap.Int64("book_id", bookID),
		zap.Int64("user_id", actor.ID),
	)
	return &dto.CheckoutResponse{
		ID:      checkout.ID,
		BookID:  checkout.BookID,
		UserID:  checkout.UserID,
		DueDate: checkout.DueDate,
	}, nil
}

// Return closes the active checkout of bookID. The borrower or any staff/admin may return it.
func (s *CheckoutService) Return(ctx context.Context, actor *models.User, bookID int64) (*models.Checkout, error) {
	if actor == nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "authentication required")
	}

	guard := func(active models.Checkout) error {
		if active.UserID == actor.ID || actor.UserType.Privileged() {
			return nil
		}
		return appErrors.Clone(appErrors.ErrForbidden, "you can only return books you checked out")
	}

	checkout, err := s.repo.Return(ctx, bookID, s.now(), guard)
	if err != nil {
		var appErr *appErrors.Error
		switch {
		case errors.Is(err, repository.ErrNoActiveCheckout):
			s.metrics.RecordLedger("return", "not_found")
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no active checkout for this book")
		case errors.As(err, &appErr):
			s.metrics.RecordLedger("return", "forbidden")
			return nil, appErr
		}
		s.metrics.RecordLedger("return", "error")
		return nil, appErrors.Store(err, "failed to return book")
	}

	s.metrics.RecordLedger("return", "ok")
	s.invalidate(ctx)
	s.logger.Info("book returned",
		zap.Int64("checkout_id", checkout.ID),
		zap.Int64("book_id", bookID),
		zap.Int64("actor_id", actor.ID),
	)
	return checkout, nil
}

// ListForStaff returns every checkout with borrower and book, newest first.
func (s *CheckoutService) ListForStaff(ctx context.Context, actor *models.User) ([]models.RentalDetail, error) {
	if err := requirePrivileged(actor); err != nil {
		return nil, err
	}
	rentals, err := s.repo.ListDetailed(ctx)
	if err != nil {
		return nil, appErrors.Store(err, "failed to list rentals")
	}
	return rentals, nil
}

var rentalHeaders = []string{"Checkout ID", "Book", "Author", "Borrower", "Email", "Student ID", "Checked Out", "Due", "Returned", "Status"}

// RentalDataset flattens rentals into a report table.
func RentalDataset(rentals []models.RentalDetail, now time.Time) export.Dataset {
	const day = "2006-01-02"
	rows := make([][]string, 0, len(rentals))
	for _, r := range rentals {
		studentID, returned := "", ""
		if r.StudentID != nil {
			studentID = *r.StudentID
		}
		if r.ReturnDate != nil {
			returned = r.ReturnDate.Format(day)
		}
		status := string(r.Status)
		if r.Overdue(now) {
			status = "overdue"
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", r.ID),
			r.BookTitle,
			r.BookAuthor,
			r.BorrowerName,
			r.BorrowerEmail,
			studentID,
			r.CheckoutDate.Format(day),
			r.DueDate.Format(day),
			returned,
			status,
		})
	}
	return export.Dataset{Title: "Rental Report", Headers: rentalHeaders, Rows: rows}
}

// Export renders the staff rental listing as CSV or PDF.
func (s *CheckoutService) Export(ctx context.Context, actor *models.User, format string) (*ExportFile, error) {
	f, err := export.ParseFormat(format)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "format must be csv or pdf")
	}
	rentals, err := s.ListForStaff(ctx, actor)
	if err != nil {
		return nil, err
	}

	now := s.now()
	renderer := export.For(f)
	body, err := renderer.Render(RentalDataset(rentals, now))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render rental report")
	}
	return &ExportFile{
		Filename:    fmt.Sprintf("rentals-%s.%s", now.Format("20060102"), renderer.Extension()),
		ContentType: renderer.ContentType(),
		Body:        body,
	}, nil
}
