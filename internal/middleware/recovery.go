// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"classifieds/internal/render"
)

// Recoverer catches panics in downstream handlers, logs the stack trace,
// and returns a JSON 500 error envelope instead of crashing the server.
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				slog.Error("panic recovered",
					"error", rec,
					"method", r.Method,
					"path", r.URL.Path,
					"stack", string(debug.Stack()),
				)
				render.JSON(w, http.StatusInternalServerError, render.Envelope{
					Status:  "error",
					Message: "something went very wrong",
				})
			}
		}()

		next.ServeHTTP(w, r)
	})
}
