package user

import (
	"errors"
	"time"
)

// Role is deliberately a closed enum rather than a free string so that
// authorization checks cannot drift on casing or typos.
type Role string

const (
	RoleAdministrator Role = "Administrator"
	RoleCustomer      Role = "Customer"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleAdministrator, RoleCustomer:
		return true
	}

	return false
}

func (r Role) String() string {
	return string(r)
}

var ErrNotFound = errors.New("user not found")

type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // never expose hash in JSON
	Role         Role      `json:"userType"`
	CreatedAt    time.Time `json:"createdAt"`
}

type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=2,max=80"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	UserType Role   `json:"userType" binding:"required,oneof=Administrator Customer"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}
