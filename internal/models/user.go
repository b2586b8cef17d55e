package models

import "time"

// UserType is the coarse role a library account holds.
type UserType string

const (
	UserTypeStudent UserType = "student"
	UserTypeStaff   UserType = "staff"
	UserTypeAdmin   UserType = "admin"
)

// Valid reports whether t is one of the known user types.
func (t UserType) Valid() bool {
	switch t {
	case UserTypeStudent, UserTypeStaff, UserTypeAdmin:
		return true
	}
	return false
}

// Privileged reports whether t may manage rentals and imports.
func (t UserType) Privileged() bool {
	return t == UserTypeStaff || t == UserTypeAdmin
}

// User is a row of the users table. Accounts are deactivated, never deleted.
type User struct {
	ID           int64      `db:"id" json:"id"`
	UserType     UserType   `db:"user_type" json:"userType"`
	Name         string     `db:"name" json:"name"`
	Email        string     `db:"email" json:"email"`
	StudentID    *string    `db:"student_id" json:"studentId,omitempty"`
	PasswordHash string     `db:"password_hash" json:"-"`
	Department   *string    `db:"department" json:"department,omitempty"`
	Role         *string    `db:"role" json:"role,omitempty"`
	ParentEmail  *string    `db:"parent_email" json:"parentEmail,omitempty"`
	Active       bool       `db:"is_active" json:"isActive"`
	CreatedAt    time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updatedAt"`
	LastLogin    *time.Time `db:"last_login" json:"lastLogin,omitempty"`
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	UserType *UserType
	Active   *bool
	Search   string
	Page     int
	PageSize int
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	TotalCount int `json:"totalCount"`
}
