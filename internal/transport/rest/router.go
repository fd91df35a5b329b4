package rest

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/gatepass/internal/auth"
	"github.com/frahmantamala/gatepass/internal/core/user"
	"github.com/frahmantamala/gatepass/internal/gatepass"
	"github.com/frahmantamala/gatepass/internal/metrics"
	"github.com/frahmantamala/gatepass/internal/transport/middleware"
	"github.com/frahmantamala/gatepass/internal/transport/swagger"
	userpkg "github.com/frahmantamala/gatepass/internal/user"
	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
)

// Handlers groups everything RegisterAllRoutes mounts. Nil handlers leave their
// routes out.
type Handlers struct {
	Health   *HealthHandler
	Auth     *auth.Handler
	RBAC     *auth.RBACAuthorization
	User     *userpkg.Handler
	GatePass *gatepass.Handler
	Metrics  *metrics.Metrics

	MetricsPath    string
	AllowedOrigins []string
	OpenAPIFile    string
}

func RegisterAllRoutes(router *chi.Mux, h Handlers, logger *slog.Logger) {
	router.Use(middleware.CORS(h.AllowedOrigins))
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(h.Metrics.Middleware)
	router.Use(middleware.LoggingMiddleware(logger))

	openAPIFile := h.OpenAPIFile
	if openAPIFile == "" {
		openAPIFile = "./api/openapi.yml"
	}
	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, openAPIFile)
	})
	router.Handle("/swagger/*", swagger.Handler())

	if h.Metrics != nil {
		path := h.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		router.Handle(path, h.Metrics.Handler())
	}

	if h.Health != nil {
		router.Get("/health", h.Health.healthCheckHandler)
		router.Get("/ping", h.Health.pingHandler)
	}

	router.Route("/api/v1", func(r chi.Router) {
		if h.Health != nil {
			r.Get("/health", h.Health.healthCheckHandler)
			r.Get("/ping", h.Health.pingHandler)
		}

		if h.Auth == nil {
			return
		}

		r.Route("/auth", func(sr chi.Router) {
			sr.Post("/register", h.Auth.Register)
			sr.Post("/login", h.Auth.Login)
			sr.Post("/refresh", h.Auth.RefreshToken)
			sr.With(h.Auth.AuthMiddleware).Post("/logout", h.Auth.Logout)
		})

		r.Group(func(pr chi.Router) {
			pr.Use(h.Auth.AuthMiddleware)
			pr.Use(middleware.ActorContext)

			if h.User != nil {
				registerUserRoutes(pr, h)
			}
			if h.GatePass != nil {
				registerGatePassRoutes(pr, h)
			}
		})
	})
}

func registerUserRoutes(r chi.Router, h Handlers) {
	r.Route("/users", func(ur chi.Router) {
		ur.Get("/me", h.User.GetCurrentUser)
		ur.Put("/me/profile", h.User.UpdateProfile)
		ur.Post("/me/change-password", h.User.ChangePassword)
		ur.Get("/role/{role}", h.User.ListByRole)
	})

	r.Route("/admin/users", func(ar chi.Router) {
		ar.Use(h.RBAC.RequireAdmin())
		ar.Get("/", h.User.List)
		ar.Post("/", h.User.Create)
		ar.Put("/{id}", h.User.Update)
		ar.Delete("/{id}", h.User.Delete)
	})
}

func registerGatePassRoutes(r chi.Router, h Handlers) {
	g := h.GatePass
	r.Route("/gatepass", func(gr chi.Router) {
		gr.With(h.RBAC.RequireRoles(user.RoleStudent)).Post("/", g.Submit)
		gr.With(h.RBAC.RequireRoles(user.RoleStudent)).Get("/mine", g.ListMine)
		gr.With(h.RBAC.RequireRoles(user.RoleStudent, user.RoleAdmin)).Get("/student/{studentId}", g.ListByStudent)
		gr.With(h.RBAC.RequireApprover()).Get("/pending", g.ListPending)
		gr.With(h.RBAC.RequireApprover()).Get("/history", g.ListHistory)
		gr.With(h.RBAC.RequireRoles(user.RoleSecurity, user.RoleAdmin)).Get("/approved", g.ListApproved)

		gr.Route("/{id}", func(ir chi.Router) {
			ir.Get("/", g.Get)
			ir.Get("/transitions", g.Transitions)
			ir.With(h.RBAC.RequireRoles(user.RoleSecurity, user.RoleAdmin, user.RoleStudent)).Get("/pass.pdf", g.Pass)

			ir.Group(func(ar chi.Router) {
				ar.Use(h.RBAC.RequireApprover())
				ar.Post("/approve", g.Approve)
				ar.Post("/reject", g.Reject)
				ar.Post("/modify", g.Modify)
			})

			ir.With(h.RBAC.RequireRoles(user.RoleStudent)).Delete("/", g.Delete)
		})
	})
}
