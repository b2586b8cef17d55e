package models

import "time"

// Availability is the lending state of a book.
type Availability string

const (
	BookAvailable  Availability = "available"
	BookCheckedOut Availability = "checked_out"
)

// Book is a catalog entry. Duplicate titles are allowed.
type Book struct {
	ID                 int64        `db:"id" json:"id"`
	Title              string       `db:"title" json:"title"`
	Author             string       `db:"author" json:"author"`
	Genre              *string      `db:"genre" json:"genre,omitempty"`
	ISBN               *string      `db:"isbn" json:"isbn,omitempty"`
	AvailabilityStatus Availability `db:"availability_status" json:"availabilityStatus"`
	CreatedAt          time.Time    `db:"created_at" json:"createdAt"`
	UpdatedAt          time.Time    `db:"updated_at" json:"updatedAt"`
}

// ActiveLoan summarises who currently holds a book.
type ActiveLoan struct {
	CheckoutID   int64     `json:"checkoutId"`
	BorrowerID   int64     `json:"borrowerId"`
	BorrowerName string    `json:"borrowerName"`
	DueDate      time.Time `json:"dueDate"`
}

// BookListItem is a book joined with its active checkout, if any.
type BookListItem struct {
	Book
	Checkout *ActiveLoan `db:"-" json:"checkout,omitempty"`
}
