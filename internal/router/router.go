// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package router sets up all HTTP routes and middleware chains for the
// classifieds API. Routes live under /api/v1; the service layer enforces
// roles and ownership, and the router adds the authentication gates and
// rate limits in front of it.
package router

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"classifieds/internal/handlers"
	"classifieds/internal/middleware"
	"classifieds/internal/models"
	"classifieds/internal/render"
)

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Handlers are the endpoint groups mounted by New.
type Handlers struct {
	Categories *handlers.Categories
	Posts      *handlers.Posts
	Reviews    *handlers.Reviews
	Users      *handlers.Users
	Auth       *handlers.Auth
}

// Options carries the shared infrastructure of the router.
type Options struct {
	Sessions middleware.SessionReader
	Users    middleware.UserLookup
	// Limiter throttles the login and password recovery endpoints. Nil
	// disables throttling.
	Limiter *middleware.RateLimiter
	// ImagesDir is the local storage root. When set, stored images are
	// served under /images.
	ImagesDir string
	HSTS      bool
	DB        Pinger
}

// New creates and returns the configured Chi router with all middleware
// and route groups wired up.
func New(opts Options, h Handlers) chi.Router {
	r := chi.NewRouter()

	// Global middleware, applied to every request.
	r.Use(chimw.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(middleware.SecureHeaders(opts.HSTS))
	r.Use(middleware.LoadSession(opts.Sessions, opts.Users))

	r.NotFound(notFound)
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		render.Fail(w, http.StatusMethodNotAllowed, fmt.Sprintf("%s is not allowed on %s", r.Method, r.URL.Path))
	})

	r.Get("/health", healthHandler(opts.DB))

	if opts.ImagesDir != "" {
		r.Handle("/images/*", imageServer(opts.ImagesDir))
	}

	throttle := func(next http.Handler) http.Handler { return next }
	if opts.Limiter != nil {
		throttle = opts.Limiter.Middleware
	}
	admin := middleware.RequireRole(models.RoleAdmin)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/categories", func(r chi.Router) {
			r.Get("/", h.Categories.List)
			r.Get("/navbar", h.Categories.Navbar)
			r.With(admin).Post("/", h.Categories.Create)

			r.Route("/{catID}", func(r chi.Router) {
				r.Get("/", h.Categories.Get)
				r.With(admin).Patch("/", h.Categories.Update)
				r.With(admin).Delete("/", h.Categories.Delete)
				r.Get("/posts", h.Posts.ListByCategory)
			})
		})

		r.Route("/posts", func(r chi.Router) {
			r.Get("/", h.Posts.List)
			r.With(admin).Post("/", h.Posts.Create)

			r.Route("/{postID}", func(r chi.Router) {
				r.Get("/", h.Posts.Get)
				r.With(admin).Patch("/", h.Posts.Update)
				r.With(admin).Delete("/", h.Posts.Delete)

				r.Route("/reviews", func(r chi.Router) {
					r.Get("/", h.Reviews.List)
					r.Get("/{reviewID}", h.Reviews.Get)

					r.Group(func(r chi.Router) {
						r.Use(middleware.RequireAuth)
						r.With(middleware.RequireRole(models.RoleUser)).Post("/", h.Reviews.Create)
						r.Patch("/{reviewID}", h.Reviews.Update)
						r.Delete("/{reviewID}", h.Reviews.Delete)
					})
				})
			})
		})

		r.Route("/users", func(r chi.Router) {
			// Account lifecycle, accessible without a session.
			r.Post("/signup", h.Auth.Signup)
			r.With(throttle).Post("/login", h.Auth.Login)
			r.Post("/logout", h.Auth.Logout)
			r.With(throttle).Patch("/forgotPassword", h.Auth.ForgotPassword)
			r.With(throttle).Patch("/resetPassword/{token}", h.Auth.ResetPassword)

			// Signed-in user.
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAuth)
				r.Get("/me", h.Users.Me)
				r.Patch("/updateMe", h.Users.UpdateMe)
				r.Patch("/updateMyPassword", h.Auth.UpdateMyPassword)
				r.Delete("/deleteMyAccount", h.Auth.DeleteMyAccount)
				r.Post("/me/2fa/setup", h.Auth.TwoFactorSetup)
				r.Post("/me/2fa/enable", h.Auth.TwoFactorEnable)
				r.Post("/me/2fa/disable", h.Auth.TwoFactorDisable)
			})

			// User management, admin only.
			r.Group(func(r chi.Router) {
				r.Use(admin)
				r.Get("/", h.Users.List)
				r.Get("/{userID}", h.Users.Get)
				r.Delete("/{userID}", h.Users.Delete)
			})
		})
	})

	return r
}

func notFound(w http.ResponseWriter, r *http.Request) {
	render.Fail(w, http.StatusNotFound, fmt.Sprintf("can't find %s on this server", r.URL.Path))
}

// imageServer serves stored images from the local storage root without
// directory listings.
func imageServer(root string) http.Handler {
	files := http.FileServer(http.Dir(root))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/") {
			notFound(w, r)
			return
		}
		w.Header().Set("Cache-Control", "public, max-age=86400")
		files.ServeHTTP(w, r)
	})
}

// healthHandler reports whether the service and its database are up.
func healthHandler(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				render.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		render.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
