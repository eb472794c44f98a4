package auth

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/castellan-hq/castellan/internal/authz"
	"github.com/castellan-hq/castellan/internal/platform/httpx"
	"github.com/castellan-hq/castellan/internal/shared"
)

// PermissionSource resolves an account's permission set for actor building.
type PermissionSource interface {
	ResolvePermissions(ctx context.Context, accountID uuid.UUID) ([]string, error)
}

// Middleware resolves the authenticated actor for protected routes. The
// actor is threaded explicitly from here on; nothing below the HTTP
// boundary reads session state.
type Middleware struct {
	Registry PermissionSource
	Logger   *slog.Logger
}

// ResolveActor builds the actor from the session and stores it in context.
// Requests without a session user pass through without an actor.
func (m Middleware) ResolveActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		if sess == nil || sess.User() == "" {
			next.ServeHTTP(w, r)
			return
		}
		accountID, err := uuid.Parse(sess.User())
		if err != nil {
			if m.Logger != nil {
				m.Logger.Error("parse session user id", slog.String("value", sess.User()))
			}
			next.ServeHTTP(w, r)
			return
		}
		permissions, err := m.Registry.ResolvePermissions(r.Context(), accountID)
		if err != nil {
			if m.Logger != nil {
				m.Logger.Error("resolve actor permissions", slog.Any("error", err))
			}
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
			return
		}
		actor := authz.NewActor(accountID, permissions)
		next.ServeHTTP(w, r.WithContext(authz.ContextWithActor(r.Context(), actor)))
	})
}

// RequireActor rejects requests that carry no authenticated actor.
func (m Middleware) RequireActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := authz.ActorFromContext(r.Context()); !ok {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
