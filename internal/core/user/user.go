package user

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrNotFound = errors.New("user not found")

// Role is the closed set of account roles.
type Role string

const (
	RoleStudent  Role = "STUDENT"
	RoleTutor    Role = "TUTOR"
	RoleWarden   Role = "WARDEN"
	RoleSecurity Role = "SECURITY"
	RoleAdmin    Role = "ADMIN"
)

func AllRoles() []Role {
	return []Role{RoleStudent, RoleTutor, RoleWarden, RoleSecurity, RoleAdmin}
}

// ParseRole accepts any casing and surrounding whitespace.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleTutor, RoleWarden, RoleSecurity, RoleAdmin:
		return true
	}
	return false
}

// IsApprover reports whether the role takes part in the approval chain.
func (r Role) IsApprover() bool {
	switch r {
	case RoleTutor, RoleWarden:
		return true
	case RoleStudent, RoleSecurity, RoleAdmin:
		return false
	}
	return false
}

func (r Role) String() string {
	return string(r)
}

type User struct {
	ID           int64
	Name         string
	Username     string
	Email        *string
	Phone        string
	Role         Role
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Actor is the authenticated caller of a domain operation.
type Actor struct {
	ID       int64
	Name     string
	Username string
	Role     Role
}

func (u *User) Actor() Actor {
	return Actor{ID: u.ID, Name: u.Name, Username: u.Username, Role: u.Role}
}
