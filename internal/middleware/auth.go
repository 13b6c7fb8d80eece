// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"classifieds/internal/apperr"
	"classifieds/internal/models"
	"classifieds/internal/policy"
	"classifieds/internal/render"
	"classifieds/internal/session"
)

// contextKey is an unexported type for context keys to prevent collisions.
type contextKey string

const (
	// SessionKey is the context key for the session data.
	SessionKey contextKey = "session"

	// PrincipalKey is the context key for the authenticated principal.
	PrincipalKey contextKey = "principal"
)

// SessionReader loads the session attached to a request.
type SessionReader interface {
	Get(ctx context.Context, r *http.Request) (*session.Data, error)
}

// UserLookup resolves the account behind a session.
type UserLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// LoadSession retrieves the session from Valkey and, if the account still
// exists and its password has not changed since the session was issued,
// stores the session and principal in the request context. This
// middleware does NOT enforce authentication.
func LoadSession(store SessionReader, users UserLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			data, err := store.Get(r.Context(), r)
			if err != nil {
				// Treat as unauthenticated rather than failing the request.
				slog.Warn("session load failed", "error", err)
				next.ServeHTTP(w, r)
				return
			}
			if data == nil {
				next.ServeHTTP(w, r)
				return
			}

			user, err := users.FindByID(r.Context(), data.UserID)
			if err != nil {
				render.Error(w, r, apperr.Wrap(err, "could not load session user"))
				return
			}
			if user == nil || user.ChangedPasswordAfter(data.CreatedAt) {
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), SessionKey, data)
			ctx = context.WithValue(ctx, PrincipalKey, &policy.Principal{ID: user.ID, Role: user.Role})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth rejects requests without a principal with a JSON 401.
// Must be applied after LoadSession in the middleware chain.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := policy.RequireAuthenticated(PrincipalFromCtx(r.Context())); err != nil {
			render.Error(w, r, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole rejects principals without one of roles. Unauthenticated
// requests get a 401 before any role check.
func RequireRole(roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := policy.RequireRole(PrincipalFromCtx(r.Context()), roles...); err != nil {
				render.Error(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SessionFromCtx extracts the session data from the request context.
// Returns nil if no session is loaded (user is not authenticated).
func SessionFromCtx(ctx context.Context) *session.Data {
	data, _ := ctx.Value(SessionKey).(*session.Data)
	return data
}

// PrincipalFromCtx returns the authenticated principal, or nil.
func PrincipalFromCtx(ctx context.Context) *policy.Principal {
	p, _ := ctx.Value(PrincipalKey).(*policy.Principal)
	return p
}
