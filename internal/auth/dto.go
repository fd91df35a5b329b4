package auth

import "github.com/frahmantamala/gatepass/internal/core/user"

// LoginDTO is the transport shape used by the HTTP handler to accept login requests.
type LoginDTO struct {
	Username string `json:"username" validate:"required,notblank"`
	Password string `json:"password" validate:"required"`
}

// RefreshTokenDTO for refresh token requests
type RefreshTokenDTO struct {
	RefreshToken string `json:"refresh_token" validate:"required,notblank"`
}

// RegisterDTO creates a student account.
type RegisterDTO struct {
	Name     string `json:"name" validate:"required,notblank,max=100"`
	Username string `json:"username" validate:"required,notblank,min=3,max=50"`
	Email    string `json:"email,omitempty" validate:"omitempty,email,max=255"`
	Phone    string `json:"phone,omitempty" validate:"max=20"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type UserSummary struct {
	ID       int64     `json:"id"`
	Name     string    `json:"name"`
	Username string    `json:"username"`
	Role     user.Role `json:"role"`
	Email    *string   `json:"email,omitempty"`
	Phone    string    `json:"phone,omitempty"`
}

type LoginResponse struct {
	AuthTokens
	User UserSummary `json:"user"`
}

func summaryOf(u *user.User) UserSummary {
	return UserSummary{
		ID:       u.ID,
		Name:     u.Name,
		Username: u.Username,
		Role:     u.Role,
		Email:    u.Email,
		Phone:    u.Phone,
	}
}
