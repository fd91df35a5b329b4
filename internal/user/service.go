package user

import (
	"context"
	stdErrors "errors"
	"log/slog"
	"strings"

	errors "github.com/frahmantamala/gatepass/internal"
	"github.com/frahmantamala/gatepass/internal/auth"
	"github.com/frahmantamala/gatepass/internal/core/common/validation"
	coreuser "github.com/frahmantamala/gatepass/internal/core/user"
)

var (
	ErrUserNotFound      = errors.NewNotFoundError("User not found", errors.ErrCodeUserNotFound)
	ErrInvalidRole       = errors.NewValidationError("role must be one of STUDENT, TUTOR, WARDEN, SECURITY, ADMIN", errors.ErrCodeInvalidRole)
	ErrWrongPassword     = errors.NewValidationError("Current password is incorrect.", errors.ErrCodeWrongPassword)
	ErrUserHasGatePasses = errors.NewConflictError("Cannot delete user with active gate pass requests.", errors.ErrCodeUserHasGatePasses)
	ErrCannotDeleteSelf  = errors.NewConflictError("You cannot delete your own account.", errors.ErrCodeCannotDeleteSelf)

	ErrApproverHasPendingRequests = errors.NewConflictError("Cannot change the role of an approver with requests awaiting their decision.", errors.ErrCodeApproverHasPending)
)

type Repository interface {
	GetByID(ctx context.Context, id int64) (*coreuser.User, error)
	List(ctx context.Context, limit, offset int) ([]*coreuser.User, error)
	ListByRole(ctx context.Context, role coreuser.Role) ([]*coreuser.User, error)
	// UsernameTaken and EmailTaken ignore the account with excludeID, so updates can keep their own values.
	UsernameTaken(ctx context.Context, username string, excludeID int64) (bool, error)
	EmailTaken(ctx context.Context, email string, excludeID int64) (bool, error)
	Create(ctx context.Context, u *coreuser.User) error
	Update(ctx context.Context, u *coreuser.User) error
	Delete(ctx context.Context, id int64) error
}

// AssociationChecker tells whether gate pass requests still reference a user.
type AssociationChecker interface {
	HasGatePasses(ctx context.Context, userID int64) (bool, error)
	HasPendingAssignments(ctx context.Context, approverID int64) (bool, error)
}

type Service struct {
	repo       Repository
	assoc      AssociationChecker
	bcryptCost int
	logger     *slog.Logger
}

func NewService(repo Repository, assoc AssociationChecker, bcryptCost int, logger *slog.Logger) *Service {
	return &Service{
		repo:       repo,
		assoc:      assoc,
		bcryptCost: bcryptCost,
		logger:     logger,
	}
}

// SetAssociationChecker is used when the checker is built after the user service.
func (s *Service) SetAssociationChecker(assoc AssociationChecker) {
	s.assoc = assoc
}

func (s *Service) GetByID(ctx context.Context, id int64) (*User, error) {
	u, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return ViewOf(u), nil
}

// LookupRole resolves the role of an account for approver assignment checks.
func (s *Service) LookupRole(ctx context.Context, id int64) (coreuser.Role, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	return u.Role, nil
}

// GetContact returns the addressing details used by notifications.
func (s *Service) GetContact(ctx context.Context, id int64) (*Contact, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c := &Contact{ID: u.ID, Name: u.Name, Role: u.Role}
	if u.Email != nil {
		c.Email = *u.Email
	}
	return c, nil
}

// ListByRole returns the active accounts of a role as picker options.
func (s *Service) ListByRole(ctx context.Context, rawRole string) ([]Option, error) {
	role, err := coreuser.ParseRole(rawRole)
	if err != nil {
		return nil, ErrInvalidRole
	}
	users, err := s.repo.ListByRole(ctx, role)
	if err != nil {
		s.logger.Error("failed to list users by role", "error", err, "role", role)
		return nil, errors.NewInternalError("failed to list users", err)
	}
	out := make([]Option, 0, len(users))
	for _, u := range users {
		if !u.IsActive {
			continue
		}
		out = append(out, Option{ID: u.ID, Name: u.Name})
	}
	return out, nil
}

func (s *Service) UpdateProfile(ctx context.Context, id int64, dto UpdateProfileDTO) (*User, error) {
	dto.Email = strings.TrimSpace(dto.Email)
	if verr := validation.Struct(dto); verr != nil {
		return nil, verr
	}
	u, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	email, err := s.checkEmail(ctx, dto.Email, id)
	if err != nil {
		return nil, err
	}
	u.Name = strings.TrimSpace(dto.Name)
	u.Email = email
	u.Phone = strings.TrimSpace(dto.Phone)

	if err := s.repo.Update(ctx, u); err != nil {
		s.logger.Error("failed to update profile", "error", err, "user_id", id)
		return nil, errors.NewInternalError("failed to update profile", err)
	}
	return ViewOf(u), nil
}

func (s *Service) ChangePassword(ctx context.Context, id int64, dto ChangePasswordDTO) error {
	if verr := validation.Struct(dto); verr != nil {
		return verr
	}
	u, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if !auth.CheckPassword(u.PasswordHash, dto.CurrentPassword) {
		return ErrWrongPassword
	}

	hash, err := auth.HashPassword(dto.NewPassword, s.bcryptCost)
	if err != nil {
		return errors.NewInternalError("failed to hash password", err)
	}
	u.PasswordHash = hash
	if err := s.repo.Update(ctx, u); err != nil {
		s.logger.Error("failed to change password", "error", err, "user_id", id)
		return errors.NewInternalError("failed to change password", err)
	}
	s.logger.Info("password changed", "user_id", id)
	return nil
}

func (s *Service) List(ctx context.Context, q ListQuery) (*ListResponse, error) {
	limit, offset, verr := validation.Paging(q.Limit, q.Offset)
	if verr != nil {
		return nil, verr
	}
	users, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		s.logger.Error("failed to list users", "error", err)
		return nil, errors.NewInternalError("failed to list users", err)
	}
	items := make([]*User, len(users))
	for i, u := range users {
		items[i] = ViewOf(u)
	}
	return &ListResponse{Items: items, Limit: limit, Offset: offset}, nil
}

func (s *Service) Create(ctx context.Context, dto CreateUserDTO) (*User, error) {
	dto.Username = strings.TrimSpace(dto.Username)
	dto.Email = strings.TrimSpace(dto.Email)
	if verr := validation.Struct(dto); verr != nil {
		return nil, verr
	}
	role, err := coreuser.ParseRole(dto.Role)
	if err != nil {
		return nil, ErrInvalidRole
	}
	if err := s.checkUsername(ctx, dto.Username, 0); err != nil {
		return nil, err
	}
	email, err := s.checkEmail(ctx, dto.Email, 0)
	if err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(dto.Password, s.bcryptCost)
	if err != nil {
		return nil, errors.NewInternalError("failed to hash password", err)
	}
	u := &coreuser.User{
		Name:         strings.TrimSpace(dto.Name),
		Username:     dto.Username,
		Email:        email,
		Phone:        strings.TrimSpace(dto.Phone),
		Role:         role,
		PasswordHash: hash,
		IsActive:     true,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		s.logger.Error("failed to create user", "error", err, "username", dto.Username)
		return nil, errors.NewInternalError("failed to create user", err)
	}
	s.logger.Info("user created", "user_id", u.ID, "role", u.Role)
	return ViewOf(u), nil
}

func (s *Service) Update(ctx context.Context, id int64, dto UpdateUserDTO) (*User, error) {
	dto.Username = strings.TrimSpace(dto.Username)
	dto.Email = strings.TrimSpace(dto.Email)
	if verr := validation.Struct(dto); verr != nil {
		return nil, verr
	}
	role, err := coreuser.ParseRole(dto.Role)
	if err != nil {
		return nil, ErrInvalidRole
	}
	u, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkUsername(ctx, dto.Username, id); err != nil {
		return nil, err
	}
	email, err := s.checkEmail(ctx, dto.Email, id)
	if err != nil {
		return nil, err
	}
	if role != u.Role {
		if err := s.checkRoleChange(ctx, u); err != nil {
			return nil, err
		}
	}

	u.Name = strings.TrimSpace(dto.Name)
	u.Username = dto.Username
	u.Email = email
	u.Phone = strings.TrimSpace(dto.Phone)
	u.Role = role
	if dto.IsActive != nil {
		u.IsActive = *dto.IsActive
	}
	if dto.Password != "" {
		hash, err := auth.HashPassword(dto.Password, s.bcryptCost)
		if err != nil {
			return nil, errors.NewInternalError("failed to hash password", err)
		}
		u.PasswordHash = hash
	}

	if err := s.repo.Update(ctx, u); err != nil {
		s.logger.Error("failed to update user", "error", err, "user_id", id)
		return nil, errors.NewInternalError("failed to update user", err)
	}
	s.logger.Info("user updated", "user_id", id, "role", u.Role)
	return ViewOf(u), nil
}

// Delete removes an account unless it is the caller or any gate pass still references it.
func (s *Service) Delete(ctx context.Context, actorID, id int64) error {
	if actorID == id {
		return ErrCannotDeleteSelf
	}
	if _, err := s.load(ctx, id); err != nil {
		return err
	}
	if s.assoc != nil {
		used, err := s.assoc.HasGatePasses(ctx, id)
		if err != nil {
			s.logger.Error("failed to check gate pass references", "error", err, "user_id", id)
			return errors.NewInternalError("failed to delete user", err)
		}
		if used {
			return ErrUserHasGatePasses
		}
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if stdErrors.Is(err, coreuser.ErrNotFound) {
			return ErrUserNotFound
		}
		s.logger.Error("failed to delete user", "error", err, "user_id", id)
		return errors.NewInternalError("failed to delete user", err)
	}
	s.logger.Info("user deleted", "user_id", id, "deleted_by", actorID)
	return nil
}

// checkRoleChange keeps tutors and wardens in their role while requests still wait on them.
func (s *Service) checkRoleChange(ctx context.Context, u *coreuser.User) error {
	if s.assoc == nil || (u.Role != coreuser.RoleTutor && u.Role != coreuser.RoleWarden) {
		return nil
	}
	pending, err := s.assoc.HasPendingAssignments(ctx, u.ID)
	if err != nil {
		s.logger.Error("failed to check pending assignments", "error", err, "user_id", u.ID)
		return errors.NewInternalError("failed to update user", err)
	}
	if pending {
		return ErrApproverHasPendingRequests
	}
	return nil
}

func (s *Service) load(ctx context.Context, id int64) (*coreuser.User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if stdErrors.Is(err, coreuser.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("failed to load user", "error", err, "user_id", id)
		return nil, errors.NewInternalError("failed to load user", err)
	}
	return u, nil
}

func (s *Service) checkUsername(ctx context.Context, username string, excludeID int64) error {
	taken, err := s.repo.UsernameTaken(ctx, username, excludeID)
	if err != nil {
		return errors.NewInternalError("failed to check username", err)
	}
	if taken {
		return errors.ErrUsernameTaken
	}
	return nil
}

// checkEmail returns nil for an empty address, which is stored as NULL.
func (s *Service) checkEmail(ctx context.Context, email string, excludeID int64) (*string, error) {
	if email == "" {
		return nil, nil
	}
	taken, err := s.repo.EmailTaken(ctx, email, excludeID)
	if err != nil {
		return nil, errors.NewInternalError("failed to check email", err)
	}
	if taken {
		return nil, errors.ErrEmailTaken
	}
	return &email, nil
}
