package models

import "time"

// CheckoutStatus is the ledger state of a loan.
type CheckoutStatus string

const (
	CheckoutActive   CheckoutStatus = "active"
	CheckoutReturned CheckoutStatus = "returned"
)

// Checkout is a row of book_checkouts. Rows are never deleted; returning a
// book flips Status and stamps ReturnDate.
type Checkout struct {
	ID           int64          `db:"id" json:"id"`
	UserID       int64          `db:"user_id" json:"userId"`
	BookID       int64          `db:"book_id" json:"bookId"`
	CheckoutDate time.Time      `db:"checkout_date" json:"checkoutDate"`
	DueDate      time.Time      `db:"due_date" json:"dueDate"`
	ReturnDate   *time.Time     `db:"return_date" json:"returnDate,omitempty"`
	Status       CheckoutStatus `db:"status" json:"status"`
}

// RentalDetail is a checkout joined with its borrower and book for staff views.
type RentalDetail struct {
	Checkout
	BorrowerName  string  `db:"borrower_name" json:"borrowerName"`
	BorrowerEmail string  `db:"borrower_email" json:"borrowerEmail"`
	StudentID     *string `db:"student_id" json:"studentId,omitempty"`
	BookTitle     string  `db:"book_title" json:"bookTitle"`
	BookAuthor    string  `db:"book_author" json:"bookAuthor"`
}

// Overdue reports whether the loan is still active past its due date.
func (r RentalDetail) Overdue(now time.Time) bool {
	return r.Status == CheckoutActive && now.After(r.DueDate)
}
