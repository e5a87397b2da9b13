package models

import (
	"fmt"
	"strings"
	"time"
)

// Roles carried in JWT claims. Sellers run broadcasts and manage catalog;
// viewers watch and order.
const (
	RoleSeller = "seller"
	RoleViewer = "viewer"
)

type User struct {
	ID           int64     `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	Name         string    `json:"name" db:"name"`
	PhoneNum     string    `json:"phone_num,omitempty" db:"phone_num"`
	Role         string    `json:"role" db:"role"`
	ProfileSlug  string    `json:"profile_slug,omitempty" db:"profile_slug"`
	Address      string    `json:"address,omitempty" db:"address"`
	Balance      float64   `json:"balance" db:"balance"`
	BankName     string    `json:"bank_name,omitempty" db:"bank_name"`
	AccountNum   string    `json:"account_num,omitempty" db:"account_num"`
	PasswordHash string    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// Validate checks basic user fields
func (u *User) Validate() error {
	if u.Email == "" {
		return fmt.Errorf("email is required")
	}
	if !strings.Contains(u.Email, "@") {
		return fmt.Errorf("invalid email")
	}
	if u.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(u.Name) < 2 || len(u.Name) > 100 {
		return fmt.Errorf("name length invalid")
	}
	if u.Role != RoleSeller && u.Role != RoleViewer {
		return fmt.Errorf("invalid role")
	}
	return nil
}

// HasAccountInfo reports whether reconciliation notifications can include a
// transfer line for this user.
func (u *User) HasAccountInfo() bool {
	return u.BankName != "" && u.AccountNum != "" && u.Name != ""
}

type CreateUserRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Name     string `json:"name" binding:"required"`
	PhoneNum string `json:"phone_num,omitempty"`
	Role     string `json:"role" binding:"required,oneof=seller viewer"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}
