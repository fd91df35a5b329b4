package middleware

import (
	"net/http"

	"github.com/frahmantamala/gatepass/pkg/logger"
	chiMiddleware "github.com/go-chi/chi/middleware"
	"github.com/google/uuid"
)

// RequestID runs after chi's RequestID. It adds a trace id, honouring an
// incoming X-Trace-ID, and scopes the request logger with both ids.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := r.Header.Get("X-Trace-ID")
		if traceID == "" {
			traceID = uuid.NewString()
		}

		ctx := logger.With(r.Context(), "trace_id", traceID)
		if reqID := chiMiddleware.GetReqID(ctx); reqID != "" {
			ctx = logger.With(ctx, "request_id", reqID)
			w.Header().Set("X-Request-ID", reqID)
		}

		w.Header().Set("X-Trace-ID", traceID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
