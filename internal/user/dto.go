package user

// CreateUserDTO is the admin request for a new account of any role.
type CreateUserDTO struct {
	Name     string `json:"name" validate:"required,notblank,max=100"`
	Username string `json:"username" validate:"required,notblank,min=3,max=50"`
	Email    string `json:"email,omitempty" validate:"omitempty,email,max=255"`
	Phone    string `json:"phone,omitempty" validate:"max=20"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Role     string `json:"role" validate:"required"`
}

// UpdateUserDTO replaces an account's fields. Password is changed only when set.
type UpdateUserDTO struct {
	Name     string `json:"name" validate:"required,notblank,max=100"`
	Username string `json:"username" validate:"required,notblank,min=3,max=50"`
	Email    string `json:"email,omitempty" validate:"omitempty,email,max=255"`
	Phone    string `json:"phone,omitempty" validate:"max=20"`
	Password string `json:"password,omitempty" validate:"omitempty,min=6,max=72"`
	Role     string `json:"role" validate:"required"`
	IsActive *bool  `json:"is_active,omitempty"`
}

type UpdateProfileDTO struct {
	Name  string `json:"name" validate:"required,notblank,max=100"`
	Email string `json:"email,omitempty" validate:"omitempty,email,max=255"`
	Phone string `json:"phone,omitempty" validate:"max=20"`
}

type ChangePasswordDTO struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=6,max=72"`
}

type ListQuery struct {
	Limit  int
	Offset int
}

type ListResponse struct {
	Items  []*User `json:"items"`
	Limit  int     `json:"limit"`
	Offset int     `json:"offset"`
}

type OptionsResponse struct {
	Items []Option `json:"items"`
}

type DeleteResponse struct {
	ID      int64  `json:"id"`
	Message string `json:"message"`
}
