package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/castellan-hq/castellan/internal/auth"
	"github.com/castellan-hq/castellan/internal/rbac"
	"github.com/castellan-hq/castellan/internal/shared"
	"github.com/castellan-hq/castellan/internal/users"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger          *slog.Logger
	Config          *Config
	SessionManager  *shared.SessionManager
	AuthMiddleware  auth.Middleware
	AuthHandler     *auth.Handler
	UsersHandler    *users.Handler
	RegistryHandler *rbac.Handler
}

// NewRouter constructs the chi.Router with Castellan defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)
	r.Use(params.AuthMiddleware.ResolveActor)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/auth", params.AuthHandler.MountRoutes)

	r.Group(func(r chi.Router) {
		r.Use(params.AuthMiddleware.RequireActor)
		r.Route("/users", params.UsersHandler.MountRoutes)
		params.RegistryHandler.MountRoutes(r)
	})

	return r
}
