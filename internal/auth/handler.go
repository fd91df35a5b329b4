package auth

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/gatepass/internal"
	"github.com/frahmantamala/gatepass/internal/core/user"
	"github.com/frahmantamala/gatepass/internal/transport"
	"github.com/frahmantamala/gatepass/pkg/logger"
)

type ServiceAPI interface {
	Register(ctx context.Context, dto RegisterDTO) (*UserSummary, error)
	Authenticate(ctx context.Context, dto LoginDTO) (*LoginResponse, error)
	RefreshTokens(ctx context.Context, refreshToken string) (*LoginResponse, error)
	Authenticated(ctx context.Context, tokenString string) (*user.User, *Claims, error)
	Logout(ctx context.Context, accessToken, refreshToken string) error
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(svc ServiceAPI) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     svc,
	}
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var dto RegisterDTO
	if !h.DecodeJSON(w, r, &dto, false) {
		return
	}

	summary, err := h.Service.Register(r.Context(), dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, summary)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var dto LoginDTO
	if !h.DecodeJSON(w, r, &dto, false) {
		return
	}

	resp, err := h.Service.Authenticate(r.Context(), dto)
	if err != nil {
		h.Logger.Info("authentication failed", "error", err)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var dto RefreshTokenDTO
	if !h.DecodeJSON(w, r, &dto, false) {
		return
	}
	if dto.RefreshToken == "" {
		h.WriteAppError(w, internal.NewValidationFieldError("refresh_token", "refresh_token is required", internal.ErrCodeValidationFailed))
		return
	}

	resp, err := h.Service.RefreshTokens(r.Context(), dto.RefreshToken)
	if err != nil {
		h.Logger.Info("token refresh failed", "error", err)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	token := h.ExtractTokenFromHeader(r)
	if token == "" {
		h.WriteAppError(w, internal.NewUnauthorizedError("missing authorization token", internal.ErrCodeInvalidToken))
		return
	}

	var dto RefreshTokenDTO
	if !h.DecodeJSON(w, r, &dto, true) {
		return
	}

	if err := h.Service.Logout(r.Context(), token, dto.RefreshToken); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// AuthMiddleware resolves the bearer token to an actor and stores it in the request context.
func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := h.ExtractTokenFromHeader(r)
		if token == "" {
			h.WriteAppError(w, internal.NewUnauthorizedError("missing authorization token", internal.ErrCodeInvalidToken))
			return
		}

		u, _, err := h.Service.Authenticated(r.Context(), token)
		if err != nil {
			h.Logger.Info("auth middleware: token rejected", "error", err)
			h.HandleServiceError(w, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(internal.ContextWithActor(r.Context(), u.Actor())))
	})
}

// UserFromContext returns the actor placed by AuthMiddleware.
func UserFromContext(ctx context.Context) (user.Actor, bool) {
	return internal.ActorFromContext(ctx)
}
