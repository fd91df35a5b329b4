package auth

import (
	"context"
	stdErrors "errors"
	"log/slog"
	"strings"
	"time"

	errors "github.com/frahmantamala/gatepass/internal"
	"github.com/frahmantamala/gatepass/internal/core/common/validation"
	"github.com/frahmantamala/gatepass/internal/core/user"
)

// UserRepository is the credential store the auth service reads and registers into.
type UserRepository interface {
	GetByUsername(ctx context.Context, username string) (*user.User, error)
	GetByID(ctx context.Context, id int64) (*user.User, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, u *user.User) error
}

// Service is the main auth service with dependencies
type Service struct {
	userRepo       UserRepository
	tokenGenerator TokenGenerator
	revoker        Revoker
	bcryptCost     int
	logger         *slog.Logger
}

// NewService creates a new auth service
func NewService(userRepo UserRepository, tokenGen TokenGenerator, revoker Revoker, bcryptCost int, logger *slog.Logger) *Service {
	if revoker == nil {
		revoker = NewMemoryRevoker()
	}
	return &Service{
		userRepo:       userRepo,
		tokenGenerator: tokenGen,
		revoker:        revoker,
		bcryptCost:     bcryptCost,
		logger:         logger,
	}
}

// Register creates a student account.
func (s *Service) Register(ctx context.Context, dto RegisterDTO) (*UserSummary, error) {
	dto.Username = strings.TrimSpace(dto.Username)
	dto.Email = strings.TrimSpace(dto.Email)
	if verr := validation.Struct(dto); verr != nil {
		return nil, verr
	}

	taken, err := s.userRepo.UsernameExists(ctx, dto.Username)
	if err != nil {
		return nil, errors.NewInternalError("failed to check username", err)
	}
	if taken {
		return nil, errors.ErrUsernameTaken
	}

	var email *string
	if dto.Email != "" {
		inUse, err := s.userRepo.EmailExists(ctx, dto.Email)
		if err != nil {
			return nil, errors.NewInternalError("failed to check email", err)
		}
		if inUse {
			return nil, errors.ErrEmailTaken
		}
		email = &dto.Email
	}

	hash, err := HashPassword(dto.Password, s.bcryptCost)
	if err != nil {
		return nil, errors.NewInternalError("failed to hash password", err)
	}

	u := &user.User{
		Name:         strings.TrimSpace(dto.Name),
		Username:     dto.Username,
		Email:        email,
		Phone:        strings.TrimSpace(dto.Phone),
		Role:         user.RoleStudent,
		PasswordHash: hash,
		IsActive:     true,
	}
	if err := s.userRepo.Create(ctx, u); err != nil {
		s.logger.Error("failed to register user", "error", err, "username", dto.Username)
		return nil, errors.NewInternalError("failed to register user", err)
	}

	s.logger.Info("student registered", "user_id", u.ID, "username", u.Username)
	summary := summaryOf(u)
	return &summary, nil
}

// Authenticate validates credentials and returns tokens
func (s *Service) Authenticate(ctx context.Context, dto LoginDTO) (*LoginResponse, error) {
	if verr := validation.Struct(dto); verr != nil {
		return nil, verr
	}

	u, err := s.userRepo.GetByUsername(ctx, strings.TrimSpace(dto.Username))
	if err != nil {
		if stdErrors.Is(err, user.ErrNotFound) {
			return nil, errors.ErrInvalidCredentials
		}
		return nil, errors.NewInternalError("failed to load user", err)
	}

	if !CheckPassword(u.PasswordHash, dto.Password) {
		s.logger.Info("login failed: wrong password", "user_id", u.ID)
		return nil, errors.ErrInvalidCredentials
	}
	if !u.IsActive {
		return nil, errors.ErrUserInactive
	}

	tokens, err := s.issue(u)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user logged in", "user_id", u.ID, "role", u.Role)
	return &LoginResponse{AuthTokens: tokens, User: summaryOf(u)}, nil
}

// RefreshTokens validates refresh token and returns new tokens. The used
// refresh token is revoked so it cannot be replayed.
func (s *Service) RefreshTokens(ctx context.Context, refreshToken string) (*LoginResponse, error) {
	claims, err := s.tokenGenerator.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, err
	}
	if err := s.checkRevoked(ctx, claims); err != nil {
		return nil, err
	}

	u, err := s.activeUser(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}

	s.revoke(ctx, claims)
	tokens, err := s.issue(u)
	if err != nil {
		return nil, err
	}
	return &LoginResponse{AuthTokens: tokens, User: summaryOf(u)}, nil
}

// ValidateAccessToken validates access token and returns claims
func (s *Service) ValidateAccessToken(ctx context.Context, tokenString string) (*Claims, error) {
	claims, err := s.tokenGenerator.ValidateAccessToken(tokenString)
	if err != nil {
		return nil, err
	}
	if err := s.checkRevoked(ctx, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// Authenticated resolves an access token to the current state of its user.
func (s *Service) Authenticated(ctx context.Context, tokenString string) (*user.User, *Claims, error) {
	claims, err := s.ValidateAccessToken(ctx, tokenString)
	if err != nil {
		return nil, nil, err
	}
	u, err := s.activeUser(ctx, claims.UserID)
	if err != nil {
		return nil, nil, err
	}
	return u, claims, nil
}

// Logout revokes the access token and, when given, the refresh token.
func (s *Service) Logout(ctx context.Context, accessToken, refreshToken string) error {
	claims, err := s.ValidateAccessToken(ctx, accessToken)
	if err != nil {
		return err
	}
	s.revoke(ctx, claims)

	if refreshToken != "" {
		if rc, err := s.tokenGenerator.ValidateRefreshToken(refreshToken); err == nil && rc.UserID == claims.UserID {
			s.revoke(ctx, rc)
		}
	}
	s.logger.Info("user logged out", "user_id", claims.UserID)
	return nil
}

func (s *Service) issue(u *user.User) (AuthTokens, error) {
	accessToken, expiresAt, err := s.tokenGenerator.GenerateAccessToken(u.ID, string(u.Role))
	if err != nil {
		return AuthTokens{}, errors.NewInternalError("failed to issue access token", err)
	}
	refreshToken, err := s.tokenGenerator.GenerateRefreshToken(u.ID, string(u.Role))
	if err != nil {
		return AuthTokens{}, errors.NewInternalError("failed to issue refresh token", err)
	}
	return AuthTokens{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresAt:    expiresAt,
	}, nil
}

func (s *Service) activeUser(ctx context.Context, id int64) (*user.User, error) {
	u, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if stdErrors.Is(err, user.ErrNotFound) {
			return nil, errors.ErrInvalidToken
		}
		return nil, errors.NewInternalError("failed to load user", err)
	}
	if !u.IsActive {
		return nil, errors.ErrUserInactive
	}
	return u, nil
}

func (s *Service) checkRevoked(ctx context.Context, claims *Claims) error {
	revoked, err := s.revoker.IsRevoked(ctx, claims.ID)
	if err != nil {
		s.logger.Error("failed to check token revocation", "error", err)
		return errors.NewInternalError("failed to check token", err)
	}
	if revoked {
		return errors.ErrInvalidToken
	}
	return nil
}

func (s *Service) revoke(ctx context.Context, claims *Claims) {
	ttl := time.Minute
	if claims.ExpiresAt != nil {
		ttl = time.Until(claims.ExpiresAt.Time)
	}
	if ttl <= 0 {
		return
	}
	if err := s.revoker.Revoke(ctx, claims.ID, ttl); err != nil {
		s.logger.Warn("failed to revoke token", "error", err, "user_id", claims.UserID)
	}
}
