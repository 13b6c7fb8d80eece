// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package render writes JSON API responses. Successful responses use the
// {"status":"success","data":...} envelope; failures use
// {"status":"fail"|"error","message":...} with per-field errors when the
// failure is a validation error.
package render

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"classifieds/internal/apperr"
)

// Envelope is the top-level shape of every JSON response.
type Envelope struct {
	Status  string            `json:"status"`
	Token   string            `json:"token,omitempty"`
	Results *int              `json:"results,omitempty"`
	Data    any               `json:"data,omitempty"`
	Message string            `json:"message,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// JSON writes v with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("write json response failed", "error", err)
	}
}

// OK writes a success envelope around data.
func OK(w http.ResponseWriter, status int, data any) {
	JSON(w, status, Envelope{Status: "success", Data: data})
}

// List writes a success envelope carrying the item count and the items
// under key.
func List(w http.ResponseWriter, key string, items any, n int) {
	JSON(w, http.StatusOK, Envelope{
		Status:  "success",
		Results: &n,
		Data:    map[string]any{key: items},
	})
}

// NoContent acknowledges a deletion.
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// Error maps err onto a status code and writes the failure envelope.
// Unclassified and internal errors are logged and reported generically.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	var ae *apperr.Error
	if !errors.As(err, &ae) {
		ae = apperr.Wrap(err, "something went very wrong")
	}

	status := ae.Kind.Status()
	if status >= http.StatusInternalServerError {
		slog.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		JSON(w, status, Envelope{Status: "error", Message: ae.Message})
		return
	}

	JSON(w, status, Envelope{Status: "fail", Message: ae.Message, Errors: ae.Fields})
}

// Fail writes a client error that did not come from a service call, such
// as an unparsable request body.
func Fail(w http.ResponseWriter, status int, message string) {
	JSON(w, status, Envelope{Status: "fail", Message: message})
}
