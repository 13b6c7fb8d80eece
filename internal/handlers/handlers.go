// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package handlers implements the JSON HTTP handlers of the classifieds API.
// Handlers decode requests, call the service layer with the caller's
// principal and write responses through the render package.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"classifieds/internal/apperr"
	"classifieds/internal/media"
	"classifieds/internal/query"
	"classifieds/internal/render"
)

const (
	// maxJSONBody bounds plain JSON request bodies.
	maxJSONBody = 1 << 20
	// maxMultipartBody leaves room for a cover plus a full gallery.
	maxMultipartBody = 4*media.MaxUploadSize + maxJSONBody
	// maxMultipartMemory is how much of a form is buffered in memory
	// before spilling to temporary files.
	maxMultipartMemory = 32 << 20
)

// decodeJSON reads the request body into v. An empty body leaves v
// untouched so optional-field updates can be sent without a payload.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	err := json.NewDecoder(r.Body).Decode(v)
	switch {
	case err == nil, errors.Is(err, io.EOF):
		return nil
	case isTooLarge(err):
		return apperr.Validationf("request body is too large")
	default:
		return apperr.Validationf("request body is not valid JSON")
	}
}

func isTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}

// isMultipart reports whether the request carries a multipart form.
func isMultipart(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "multipart/form-data"
}

// parseMultipart parses the form with the upload bounds applied.
func parseMultipart(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxMultipartBody)
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		if isTooLarge(err) {
			return apperr.Validationf("upload is too large")
		}
		return apperr.Validationf("invalid multipart form")
	}
	return nil
}

// formString returns a pointer to the named form value, or nil when the
// field was not sent.
func formString(r *http.Request, key string) *string {
	if r.MultipartForm == nil {
		return nil
	}
	vals, ok := r.MultipartForm.Value[key]
	if !ok || len(vals) == 0 {
		return nil
	}
	v := vals[0]
	return &v
}

// formFiles reads up to limit files from the named form field.
func formFiles(r *http.Request, field string, limit int) ([]media.Upload, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}
	headers := r.MultipartForm.File[field]
	if len(headers) > limit {
		return nil, apperr.InvalidFields(map[string]string{
			field: fmt.Sprintf("at most %d files are allowed", limit),
		})
	}

	uploads := make([]media.Upload, 0, len(headers))
	for _, fh := range headers {
		if fh.Size > media.MaxUploadSize {
			return nil, apperr.InvalidFields(map[string]string{field: "file exceeds 10 MB"})
		}
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("open upload %s: %w", fh.Filename, err)
		}
		data, err := io.ReadAll(io.LimitReader(f, media.MaxUploadSize+1))
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("read upload %s: %w", fh.Filename, err)
		}
		uploads = append(uploads, media.Upload{Filename: fh.Filename, Data: data})
	}
	return uploads, nil
}

// formFile reads a single optional file.
func formFile(r *http.Request, field string) (*media.Upload, error) {
	files, err := formFiles(r, field, 1)
	if err != nil || len(files) == 0 {
		return nil, err
	}
	return &files[0], nil
}

// formFloat parses an optional numeric form value.
func formFloat(r *http.Request, key string) (*float64, error) {
	s := formString(r, key)
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(*s), 64)
	if err != nil {
		return nil, apperr.InvalidFields(map[string]string{key: "must be a number"})
	}
	return &f, nil
}

// formUUID parses an optional id form value.
func formUUID(r *http.Request, key string) (*uuid.UUID, error) {
	s := formString(r, key)
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil, nil
	}
	id, err := uuid.Parse(strings.TrimSpace(*s))
	if err != nil {
		return nil, apperr.InvalidFields(map[string]string{key: "must be a valid id"})
	}
	return &id, nil
}

// pathID parses a UUID route parameter.
func pathID(r *http.Request, param string) (uuid.UUID, error) {
	raw := chi.URLParam(r, param)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperr.Validationf("invalid id: %s", raw)
	}
	return id, nil
}

// respondList projects items to the requested fields and writes them.
func respondList[T any](w http.ResponseWriter, r *http.Request, key string, items []T, fields []string) {
	if items == nil {
		items = []T{}
	}
	out, err := query.Project(items, fields)
	if err != nil {
		render.Error(w, r, err)
		return
	}
	render.List(w, key, out, len(items))
}

// respondOne writes a single item under key.
func respondOne(w http.ResponseWriter, r *http.Request, status int, key string, item any, fields []string) {
	out, err := query.Project(item, fields)
	if err != nil {
		render.Error(w, r, err)
		return
	}
	render.OK(w, status, map[string]any{key: out})
}
