package dto

// UserListQuery binds the admin user listing query string.
type UserListQuery struct {
	UserType string `form:"userType" validate:"omitempty,oneof=student staff admin"`
	Search   string `form:"search"`
	Active   *bool  `form:"active"`
	Page     int    `form:"page" validate:"omitempty,min=1"`
	PageSize int    `form:"pageSize" validate:"omitempty,min=1,max=100"`
}
