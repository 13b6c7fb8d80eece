// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"classifieds/internal/middleware"
	"classifieds/internal/models"
	"classifieds/internal/policy"
	"classifieds/internal/query"
	"classifieds/internal/render"
	"classifieds/internal/service"
)

// CategoryService is the part of the service layer the category handlers use.
type CategoryService interface {
	List(ctx context.Context, q *query.Query) ([]models.Category, error)
	Navbar(ctx context.Context) ([]models.Category, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Category, error)
	Create(ctx context.Context, p *policy.Principal, in service.CategoryInput) (*models.Category, error)
	Update(ctx context.Context, p *policy.Principal, id uuid.UUID, in service.CategoryInput) (*models.Category, error)
	Delete(ctx context.Context, p *policy.Principal, id uuid.UUID) error
}

// Categories groups the category endpoints.
type Categories struct {
	svc      CategoryService
	defaults query.Defaults
}

// NewCategories creates a new Categories handler group.
func NewCategories(svc CategoryService, defaults query.Defaults) *Categories {
	return &Categories{svc: svc, defaults: defaults}
}

// List handles GET /categories.
func (h *Categories) List(w http.ResponseWriter, r *http.Request) {
	q, err := query.Parse(r.URL.Query(), query.Categories, h.defaults)
	if err != nil {
		render.Error(w, r, err)
		return
	}
	items, err := h.svc.List(r.Context(), q)
	if err != nil {
		render.Error(w, r, err)
		return
	}
	respondList(w, r, "categories", items, q.Fields)
}

// Navbar handles GET /categories/navbar.
func (h *Categories) Navbar(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.Navbar(r.Context())
	if err != nil {
		render.Error(w, r, err)
		return
	}
	respondList(w, r, "categories", items, nil)
}

// Get handles GET /categories/{catID}.
func (h *Categories) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "catID")
	if err != nil {
		render.Error(w, r, err)
		return
	}
	fields, err := query.ParseFields(r.URL.Query(), query.Categories)
	if err != nil {
		render.Error(w, r, err)
		return
	}
	c, err := h.svc.Get(r.Context(), id)
	if err != nil {
		render.Error(w, r, err)
		return
	}
	respondOne(w, r, http.StatusOK, "category", c, fields)
}

// Create handles POST /categories.
func (h *Categories) Create(w http.ResponseWriter, r *http.Request) {
	var in service.CategoryInput
	if err := decodeJSON(w, r, &in); err != nil {
		render.Error(w, r, err)
		return
	}
	c, err := h.svc.Create(r.Context(), middleware.PrincipalFromCtx(r.Context()), in)
	if err != nil {
		render.Error(w, r, err)
		return
	}
	respondOne(w, r, http.StatusCreated, "category", c, nil)
}

// Update handles PATCH /categories/{catID}.
func (h *Categories) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "catID")
	if err != nil {
		render.Error(w, r, err)
		return
	}
	var in service.CategoryInput
	if err := decodeJSON(w, r, &in); err != nil {
		render.Error(w, r, err)
		return
	}
	c, err := h.svc.Update(r.Context(), middleware.PrincipalFromCtx(r.Context()), id, in)
	if err != nil {
		render.Error(w, r, err)
		return
	}
	respondOne(w, r, http.StatusOK, "category", c, nil)
}

// Delete handles DELETE /categories/{catID}.
func (h *Categories) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "catID")
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
