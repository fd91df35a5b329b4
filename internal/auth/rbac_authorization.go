package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/frahmantamala/gatepass/internal"
	"github.com/frahmantamala/gatepass/internal/core/user"
	"github.com/frahmantamala/gatepass/internal/transport"
)

type RBACAuthorization struct {
	*transport.BaseHandler
	checker RoleChecker
	logger  *slog.Logger
}

func NewRBACAuthorization(checker RoleChecker, logger *slog.Logger) *RBACAuthorization {
	return &RBACAuthorization{
		BaseHandler: transport.NewBaseHandler(logger),
		checker:     checker,
		logger:      logger,
	}
}

// RequireRoles lets the request through only for the listed roles.
func (ra *RBACAuthorization) RequireRoles(roles ...user.Role) func(http.Handler) http.Handler {
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	required := strings.Join(names, ",")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := internal.ActorFromContext(r.Context())
			if !ok {
				ra.logger.Warn("authorization check failed: user not found in context")
				ra.WriteAppError(w, internal.NewUnauthorizedError("authentication required", internal.ErrCodeInvalidToken))
				return
			}

			if !ra.checker.HasAnyRole(actor.Role, roles) {
				ra.logger.WarnContext(r.Context(), "access denied: role not allowed",
					"user_id", actor.ID,
					"role", actor.Role,
					"required_roles", required)
				ra.WriteAppError(w, internal.NewForbiddenError("Your role cannot access this resource.", internal.ErrCodeRoleNotAllowed))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (ra *RBACAuthorization) RequireAdmin() func(http.Handler) http.Handler {
	return ra.RequireRoles(user.RoleAdmin)
}

func (ra *RBACAuthorization) RequireApprover() func(http.Handler) http.Handler {
	return ra.RequireRoles(user.RoleTutor, user.RoleWarden)
}
