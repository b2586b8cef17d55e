package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/library-catalog-api/internal/models"
	appErrors "github.com/noah-isme/library-catalog-api/pkg/errors"
)

// Ledger outcomes the checkout service translates into API errors.
var (
	ErrBookNotFound     = errors.New("book not found")
	ErrBookCheckedOut   = errors.New("book has an active checkout")
	ErrAlreadyBorrowing = errors.New("borrower already holds this book")
	ErrNoActiveCheckout = errors.New("book has no active checkout")
)

// CheckoutParams describes a new loan.
type CheckoutParams struct {
	UserID       int64
	BookID       int64
	CheckoutDate time.Time
	DueDate      time.Time
}

// ReturnGuard inspects the active checkout inside the return transaction and
// may veto the return by returning an error.
type ReturnGuard func(active models.Checkout) error

// CheckoutRepository owns the book_checkouts ledger and keeps books.availability_status in step with it.
type CheckoutRepository struct {
	db *sqlx.DB
}

// NewCheckoutRepository constructs a checkout repository.
func NewCheckoutRepository(db *sqlx.DB) *CheckoutRepository {
	return &CheckoutRepository{db: db}
}

// Checkout records a loan and marks the book checked out in one transaction.
// The book row is locked first so concurrent checkouts of the same book
// serialise; the partial unique index rejects anything that slips through.
func (r *CheckoutRepository) Checkout(ctx context.Context, params CheckoutParams) (checkout *models.Checkout, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin checkout transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var bookID int64
	if err = tx.GetContext(ctx, &bookID, `SELECT id FROM books WHERE id = $1 FOR UPDATE`, params.BookID); err != nil {
		if err == sql.ErrNoRows {
			err = ErrBookNotFound
			return nil, err
		}
		return nil, fmt.Errorf("lock book: %w", err)
	}

	var holderID int64
	err = tx.GetContext(ctx, &holderID, `SELECT user_id FROM book_checkouts WHERE book_id = $1 AND status = 'active' LIMIT 1`, params.BookID)
	switch {
	case err == nil:
		if holderID == params.UserID {
			err = ErrAlreadyBorrowing
		} else {
			err = ErrBookCheckedOut
		}
		return nil, err
	case err != sql.ErrNoRows:
		return nil, fmt.Errorf("find active checkout: %w", err)
	}

	checkout = &models.Checkout{
		UserID:       params.UserID,
		BookID:       params.BookID,
		CheckoutDate: params.CheckoutDate,
		DueDate:      params.DueDate,
		Status:       models.CheckoutActive,
	}
	const insertQuery = `INSERT INTO book_checkouts (user_id, book_id, checkout_date, due_date, status)
VALUES ($1, $2, $3, $4, $5)
RETURNING id`
	if err = tx.QueryRowxContext(ctx, insertQuery, checkout.UserID, checkout.BookID, checkout.CheckoutDate, checkout.DueDate, checkout.Status).
		Scan(&checkout.ID); err != nil {
		if appErrors.IsUniqueViolation(err, "") {
			err = ErrBookCheckedOut
			return nil, err
		}
		return nil, fmt.Errorf("insert checkout: %w", err)
	}

	if err = setAvailability(ctx, tx, params.BookID, models.BookCheckedOut); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit checkout: %w", err)
	}
	return checkout, nil
}

// Return closes the active checkout of bookID and marks the book available in
// one transaction. guard runs after the checkout row is locked.
func (r *CheckoutRepository) Return(ctx context.Context, bookID int64, returnedAt time.Time, guard ReturnGuard) (checkout *models.Checkout, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin return transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var active models.Checkout
	const selectQuery = `SELECT id, user_id, book_id, checkout_date, due_date, return_date, status
FROM book_checkouts WHERE book_id = $1 AND status = 'active' LIMIT 1 FOR UPDATE`
	if err = tx.GetContext(ctx, &active, selectQuery, bookID); err != nil {
		if err == sql.ErrNoRows {
			err = ErrNoActiveCheckout
			return nil, err
		}
		return nil, fmt.Errorf("lock active checkout: %w", err)
	}

	if guard != nil {
		if err = guard(active); err != nil {
			return nil, err
		}
	}

	const updateQuery = `UPDATE book_checkouts SET status = $2, return_date = $3 WHERE id = $1`
	if _, err = tx.ExecContext(ctx, updateQuery, active.ID, models.CheckoutReturned, returnedAt); err != nil {
		return nil, fmt.Errorf("close checkout: %w", err)
	}
	if err = setAvailability(ctx, tx, bookID, models.BookAvailable); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit return: %w", err)
	}

	active.Status = models.CheckoutReturned
	active.ReturnDate = &returnedAt
	return &active, nil
}

// ListDetailed returns every checkout with borrower and book, newest first.
func (r *CheckoutRepository) ListDetailed(ctx context.Context) ([]models.RentalDetail, error) {
	const query = `SELECT c.id, c.user_id, c.book_id, c.checkout_date, c.due_date, c.return_date, c.status,
	u.name AS borrower_name, u.email AS borrower_email, u.student_id,
	b.title AS book_title, b.author AS book_author
FROM book_checkouts c
JOIN users u ON u.id = c.user_id
JOIN books b ON b.id = c.book_id
ORDER BY c.checkout_date DESC, c.id DESC`
	rentals := []models.RentalDetail{}
	if err := r.db.SelectContext(ctx, &rentals, query); err != nil {
		return nil, fmt.Errorf("list rentals: %w", err)
	}
	return rentals, nil
}
