package middleware

import (
	"net/http"

	"github.com/frahmantamala/gatepass/internal"
	"github.com/frahmantamala/gatepass/pkg/logger"
)

// ActorContext adds the authenticated caller to the request logger. It must run
// after the auth middleware.
func ActorContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := internal.ActorFromContext(r.Context())
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		ctx := logger.With(r.Context(), "actor_id", actor.ID, "actor_role", string(actor.Role))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
