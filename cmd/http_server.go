package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frahmantamala/gatepass/internal/auth"
	"github.com/frahmantamala/gatepass/internal/gatepass"
	"github.com/frahmantamala/gatepass/internal/transport"
	"github.com/frahmantamala/gatepass/internal/transport/rest"
	"github.com/frahmantamala/gatepass/internal/transport/swagger"
	"github.com/frahmantamala/gatepass/internal/user"

	"github.com/go-chi/chi"
	"github.com/spf13/cobra"
)

var openAPIFile string

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

func init() {
	httpServerCmd.Flags().StringVar(&openAPIFile, "openapi", "api/openapi.yml", "OpenAPI document served at /openapi.yml")
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}
	lg := deps.Logger
	cfg := deps.Config

	if _, err := swagger.LoadDocument(context.Background(), openAPIFile); err != nil {
		lg.Warn("openapi document failed validation", "file", openAPIFile, "error", err)
	}

	health := rest.NewHealthHandler(deps.SQL.DB)
	if deps.Cache != nil {
		health.WithComponent("redis", deps.Cache)
	}

	router := chi.NewRouter()
	rest.RegisterAllRoutes(router, rest.Handlers{
		Health:         health,
		Auth:           auth.NewHandler(deps.Auth),
		RBAC:           auth.NewRBACAuthorization(auth.NewRoleChecker(), lg),
		User:           user.NewHandler(transport.NewBaseHandler(lg), deps.Users),
		GatePass:       gatepass.NewHandler(deps.GatePasses, lg),
		Metrics:        deps.Metrics,
		MetricsPath:    cfg.Observability.Metrics.Path,
		AllowedOrigins: cfg.Server.Origins(),
		OpenAPIFile:    openAPIFile,
	}, lg)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	lg.Info("Starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		lg.Info("Received signal, shutting down...", "signal", sig)
	case err := <-serverErrChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Error("Server failed", "error", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		lg.Error("Server shutdown error", "error", err)
	}
	_ = deps.Close(ctx)
	lg.Info("Server stopped")
}
