package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/frahmantamala/gatepass/internal"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

type AuthTokens struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Claims represents JWT token claims
type Claims struct {
	UserID    int64  `json:"user_id"`
	Role      string `json:"role"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// TokenGenerator creates and validates signed tokens.
type TokenGenerator interface {
	GenerateAccessToken(userID int64, role string) (token string, expiresAt time.Time, err error)
	GenerateRefreshToken(userID int64, role string) (token string, err error)
	ValidateAccessToken(tokenString string) (*Claims, error)
	ValidateRefreshToken(tokenString string) (*Claims, error)
}

// Revoker remembers token ids that were logged out until they expire.
type Revoker interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

type JWTTokenGenerator struct {
	AccessTokenSecret  []byte
	RefreshTokenSecret []byte
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration
	Issuer             string
}

// NewJWTTokenGenerator creates a new JWT token generator
func NewJWTTokenGenerator(cfg internal.SecurityConfig) *JWTTokenGenerator {
	access := cfg.AccessTokenDuration
	if access <= 0 {
		access = 15 * time.Minute
	}
	refresh := cfg.RefreshTokenDuration
	if refresh <= 0 {
		refresh = 7 * 24 * time.Hour
	}
	return &JWTTokenGenerator{
		AccessTokenSecret:  []byte(cfg.AccessTokenSecret),
		RefreshTokenSecret: []byte(cfg.RefreshTokenSecret),
		AccessTokenTTL:     access,
		RefreshTokenTTL:    refresh,
		Issuer:             "gatepass",
	}
}

func (j *JWTTokenGenerator) GenerateAccessToken(userID int64, role string) (string, time.Time, error) {
	expiresAt := time.Now().Add(j.AccessTokenTTL)
	token, err := j.sign(userID, role, TokenTypeAccess, expiresAt, j.AccessTokenSecret)
	return token, expiresAt, err
}

func (j *JWTTokenGenerator) GenerateRefreshToken(userID int64, role string) (string, error) {
	return j.sign(userID, role, TokenTypeRefresh, time.Now().Add(j.RefreshTokenTTL), j.RefreshTokenSecret)
}

func (j *JWTTokenGenerator) sign(userID int64, role, tokenType string, expiresAt time.Time, secret []byte) (string, error) {
	claims := &Claims{
		UserID:    userID,
		Role:      role,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    j.Issuer,
			Subject:   fmt.Sprintf("%d", userID),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func (j *JWTTokenGenerator) ValidateAccessToken(tokenString string) (*Claims, error) {
	return j.validate(tokenString, TokenTypeAccess, j.AccessTokenSecret)
}

func (j *JWTTokenGenerator) ValidateRefreshToken(tokenString string) (*Claims, error) {
	return j.validate(tokenString, TokenTypeRefresh, j.RefreshTokenSecret)
}

func (j *JWTTokenGenerator) validate(tokenString, tokenType string, secret []byte) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, internal.ErrTokenExpired
		}
		return nil, internal.ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.TokenType != tokenType || claims.UserID == 0 {
		return nil, internal.ErrInvalidToken
	}
	return claims, nil
}

// HashPassword creates a bcrypt hash of the password
func HashPassword(password string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// MemoryRevoker keeps revoked token ids in process. Used when Redis is disabled.
type MemoryRevoker struct {
	mu      sync.Mutex
	revoked map[string]time.Time
}

func NewMemoryRevoker() *MemoryRevoker {
	return &MemoryRevoker{revoked: make(map[string]time.Time)}
}

func (m *MemoryRevoker) Revoke(_ context.Context, tokenID string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	for id, exp := range m.revoked {
		if now.After(exp) {
			delete(m.revoked, id)
		}
	}
	m.revoked[tokenID] = now.Add(ttl)
	return nil
}

func (m *MemoryRevoker) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	exp, ok := m.revoked[tokenID]
	return ok && time.Now().Before(exp), nil
}
