// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"classifieds/internal/media"
	"classifieds/internal/middleware"
	"classifieds/internal/models"
	"classifieds/internal/policy"
	"classifieds/internal/query"
	"classifieds/internal/render"
	"classifieds/internal/service"
)

// UserService is the part of the service layer the account handlers use.
type UserService interface {
	Signup(ctx context.Context, in service.SignupInput, photo *media.Upload) (*models.User, error)
	Me(ctx context.Context, p *policy.Principal) (*models.User, error)
	UpdateMe(ctx context.Context, p *policy.Principal, in service.UpdateMeInput, photo *media.Upload) (*models.User, error)
	UpdatePassword(ctx context.Context, p *policy.Principal, in service.PasswordChangeInput) error
	DeleteMe(ctx context.Context, p *policy.Principal, password string) error
	List(ctx context.Context, p *policy.Principal, q *query.Query) ([]models.User, error)
	Get(ctx context.Context, p *policy.Principal, id uuid.UUID) (*models.User, error)
	Delete(ctx context.Context, p *policy.Principal, id uuid.UUID) error
}

// Users groups the profile and user administration endpoints.
type Users struct {
	svc      UserService
	defaults query.Defaults
}

// NewUsers creates a new Users handler group.
func NewUsers(svc UserService, defaults query.Defaults) *Users {
	return &Users{svc: svc, defaults: defaults}
}

// Me handles GET /users/me.
func (h *Users) Me(w http.ResponseWriter, r *http.Request) {
	u, err := h.svc.Me(r.Context(), middleware.PrincipalFromCtx(r.Context()))
	if err != nil {
		render.Error(w, r, err)
		return
	}
	respondOne(w, r, http.StatusOK, "user", u, nil)
}

// UpdateMe handles PATCH /users/updateMe. It changes the name, email and
// photo; password changes go through UpdateMyPassword.
func (h *Users) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var (
		in    service.UpdateMeInput
		photo *media.Upload
	)
	if isMultipart(r) {
		if err := parseMultipart(w, r); err != nil {
			render.Error(w, r, err)
			return
		}
		in.Name = formString(r, "name")
		in.Email = formString(r, "email")
		in.Password = formString(r, "password")
		in.PasswordConfirm = formString(r, "passwordConfirm")

		var err error
		if photo, err = formFile(r, "photo"); err != nil {
			render.Error(w, r, err)
			return
		}
	} else if err := decodeJSON(w, r, &in); err != nil {
		render.Error(w, r, err)
		return
	}

	u, err := h.svc.UpdateMe(r.Context(), middleware.PrincipalFromCtx(r.Context()), in, photo)
	if err != nil {
		render.Error(w, r, err)
		return
	}
	respondOne(w, r, http.StatusOK, "user", u, nil)
}

// List handles GET /users (admin).
func (h *Users) List(w http.ResponseWriter, r *http.Request) {
	q, err := query.Parse(r.URL.Query(), query.Users, h.defaults)
	if err != nil {
		render.Error(w, r, err)
		return
	}
	items, err := h.svc.List(r.Context(), middleware.PrincipalFromCtx(r.Context()), q)
	if err != nil {
		render.Error(w, r, err)
		return
	}
	respondList(w, r, "users", items, q.Fields)
}

// Get handles GET /users/{userID} (admin).
func (h *Users) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "userID")
	if err != nil {
		render.Error(w, r, err)
		return
	}
	fields, err := query.ParseFields(r.URL.Query(), query.Users)
	if err != nil {
		render.Error(w, r, err)
		return
	}
	u, err := h.svc.Get(r.Context(), middleware.PrincipalFromCtx(r.Context()), id)
	if err != nil {
		render.Error(w, r, err)
		return
	}
	respondOne(w, r, http.StatusOK, "user", u, fields)
}

// Delete handles DELETE /users/{userID} (admin). The user's reviews are
// removed and the affected posts re-rated.
func (h *Users) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "userID")
	if err != nil {
		render.Error(w, r, err)
		return
	}
	if err := h.svc.Delete(r.Context(), middleware.PrincipalFromCtx(r.Context()), id); err != nil {
		render.Error(w, r, err)
		return
	}
	render.NoContent(w)
}
