package user

import (
	"time"

	userDatamodel "github.com/frahmantamala/gatepass/internal/core/datamodel/user"
	coreuser "github.com/frahmantamala/gatepass/internal/core/user"
)

// User is the API view of an account. The password hash never leaves the service.
type User struct {
	ID        int64         `json:"id"`
	Name      string        `json:"name"`
	Username  string        `json:"username"`
	Email     *string       `json:"email,omitempty"`
	Phone     string        `json:"phone,omitempty"`
	Role      coreuser.Role `json:"role"`
	IsActive  bool          `json:"is_active"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// Option is the id and name pair used by approver pickers.
type Option struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Contact is what the notification worker needs to reach a user.
type Contact struct {
	ID    int64
	Name  string
	Email string
	Role  coreuser.Role
}

func ViewOf(u *coreuser.User) *User {
	return &User{
		ID:        u.ID,
		Name:      u.Name,
		Username:  u.Username,
		Email:     u.Email,
		Phone:     u.Phone,
		Role:      u.Role,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func ToDataModel(u *coreuser.User) *userDatamodel.User {
	return &userDatamodel.User{
		ID:           u.ID,
		Name:         u.Name,
		Username:     u.Username,
		Email:        u.Email,
		Phone:        u.Phone,
		Role:         string(u.Role),
		PasswordHash: u.PasswordHash,
		IsActive:     u.IsActive,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func FromDataModel(u *userDatamodel.User) *coreuser.User {
	return &coreuser.User{
		ID:           u.ID,
		Name:         u.Name,
		Username:     u.Username,
		Email:        u.Email,
		Phone:        u.Phone,
		Role:         coreuser.Role(u.Role),
		PasswordHash: u.PasswordHash,
		IsActive:     u.IsActive,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}
