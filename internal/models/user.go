package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleFaculty UserRole = "faculty"
	RoleAdmin   UserRole = "admin"
	RoleViewer  UserRole = "viewer"
)

// Valid reports whether the role is one of the recognised roles.
func (r UserRole) Valid() bool {
	switch r {
	case RoleFaculty, RoleAdmin, RoleViewer:
		return true
	}
	return false
}

// Placeholder profile values assigned to viewer accounts, which have no
// employee record of their own.
const (
	ViewerEmployeeID  = "N/A"
	ViewerDesignation = "Viewer"
	ViewerDepartment  = "Security"
)

// User represents an account stored in the users table. Accounts are
// immutable after registration; there is no credential reset path.
type User struct {
	ID           string    `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         UserRole  `db:"role" json:"role"`
	EmployeeID   string    `db:"employee_id" json:"employee_id"`
	Designation  string    `db:"designation" json:"designation"`
	Department   string    `db:"department" json:"department"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Info projects the user into its public representation.
func (u *User) Info() UserInfo {
	return UserInfo{
		ID:          u.ID,
		Name:        u.Name,
		Email:       u.Email,
		Role:        u.Role,
		EmployeeID:  u.EmployeeID,
		Designation: u.Designation,
		Department:  u.Department,
	}
}

// UserInfo describes an account in responses, without the credential.
type UserInfo struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Email       string   `json:"email"`
	Role        UserRole `json:"role"`
	EmployeeID  string   `json:"employee_id"`
	Designation string   `json:"designation"`
	Department  string   `json:"department"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
