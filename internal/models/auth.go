package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// RegisterRequest holds the registration payload. EmployeeID, Designation
// and Department are required for faculty and admin roles; viewer accounts
// receive placeholder values.
type RegisterRequest struct {
	Name        string   `json:"name" validate:"required"`
	Email       string   `json:"email" validate:"required,email"`
	Password    string   `json:"password" validate:"required,min=6"`
	Role        UserRole `json:"role" validate:"required"`
	EmployeeID  string   `json:"employee_id"`
	Designation string   `json:"designation"`
	Department  string   `json:"department"`
}

// LoginRequest holds credentials for authenticating a user.
type LoginRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// LoginResponse returns the issued token and user info. There is no refresh
// mechanism; clients re-login when the token expires.
type LoginResponse struct {
	Token       string    `json:"token"`
	ExpiresIn   int64     `json:"expires_in"`
	User        UserInfo  `json:"user"`
	RedirectURL string    `json:"redirect_url"`
	IssuedAt    time.Time `json:"issued_at"`
}

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID string   `json:"user_id"`
	Role   UserRole `json:"role"`
	Email  string   `json:"email"`
	Name   string   `json:"name"`
	jwt.RegisteredClaims
}
