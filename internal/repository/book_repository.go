package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/library-catalog-api/internal/models"
)

const bookWithLoanQuery = `SELECT b.id, b.title, b.author, b.genre, b.isbn, b.availability_status, b.created_at, b.updated_at,
	c.id AS checkout_id, c.user_id AS borrower_id, u.name AS borrower_name, c.due_date
FROM books b
LEFT JOIN book_checkouts c ON c.book_id = b.id AND c.status = 'active'
LEFT JOIN users u ON u.id = c.user_id`

// BookRepository reads and writes the catalog.
type BookRepository struct {
	db *sqlx.DB
}

// NewBookRepository constructs a book repository.
func NewBookRepository(db *sqlx.DB) *BookRepository {
	return &BookRepository{db: db}
}

type bookLoanRow struct {
	models.Book
	CheckoutID   sql.NullInt64  `db:"checkout_id"`
	BorrowerID   sql.NullInt64  `db:"borrower_id"`
	BorrowerName sql.NullString `db:"borrower_name"`
	DueDate      sql.NullTime   `db:"due_date"`
}

func (r bookLoanRow) item() models.BookListItem {
	item := models.BookListItem{Book: r.Book}
	if r.CheckoutID.Valid {
		item.Checkout = &models.ActiveLoan{
			CheckoutID:   r.CheckoutID.Int64,
			BorrowerID:   r.BorrowerID.Int64,
			BorrowerName: r.BorrowerName.String,
			DueDate:      r.DueDate.Time,
		}
	}
	return item
}

// List returns every book with its active checkout, ordered by id.
func (r *BookRepository) List(ctx context.Context) ([]models.BookListItem, error) {
	var rows []bookLoanRow
	if err := r.db.SelectContext(ctx, &rows, bookWithLoanQuery+` ORDER BY b.id`); err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	items := make([]models.BookListItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.item())
	}
	return items, nil
}

// FindByID returns one book with its active checkout.
func (r *BookRepository) FindByID(ctx context.Context, id int64) (*models.BookListItem, error) {
	var row bookLoanRow
	if err := r.db.GetContext(ctx, &row, bookWithLoanQuery+` WHERE b.id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find book: %w", err)
	}
	item := row.item()
	return &item, nil
}

// Create inserts an available book and fills in generated fields.
func (r *BookRepository) Create(ctx context.Context, book *models.Book) error {
	book.AvailabilityStatus = models.BookAvailable
	const query = `INSERT INTO books (title, author, genre, isbn, availability_status)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, created_at, updated_at`
	if err := r.db.QueryRowxContext(ctx, query, book.Title, book.Author, book.Genre, book.ISBN, book.AvailabilityStatus).
		Scan(&book.ID, &book.CreatedAt, &book.UpdatedAt); err != nil {
		return fmt.Errorf("create book: %w", err)
	}
	return nil
}

// setAvailability flips the lending state inside a ledger transaction.
func setAvailability(ctx context.Context, tx *sqlx.Tx, bookID int64, status models.Availability) error {
	const query = `UPDATE books SET availability_status = $2, updated_at = NOW() WHERE id = $1`
	if _, err := tx.ExecContext(ctx, query, bookID, status); err != nil {
		return fmt.Errorf("set book availability: %w", err)
	}
	return nil
}
