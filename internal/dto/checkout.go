package dto

import "time"

// CheckoutResponse is returned after a successful checkout.
type CheckoutResponse struct {
	ID      int64     `json:"id"`
	BookID  int64     `json:"bookId"`
	UserID  int64     `json:"userId"`
	DueDate time.Time `json:"dueDate"`
}
