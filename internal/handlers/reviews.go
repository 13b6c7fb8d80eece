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

// ReviewService is the part of the service layer the review handlers use.
type ReviewService interface {
	List(ctx context.Context, postID uuid.UUID, q *query.Query) ([]models.Review, error)
	Get(ctx context.Context, postID, reviewID uuid.UUID) (*models.Review, error)
	Create(ctx context.Context, p *policy.Principal, postID uuid.UUID, in service.ReviewInput) (*models.Review, error)
	Update(ctx context.Context, p *policy.Principal, postID, reviewID uuid.UUID, in service.ReviewInput) (*models.Review, error)
	Delete(ctx context.Context, p *policy.Principal, postID, reviewID uuid.UUID) error
}

// Reviews groups the endpoints nested under /posts/{postID}/reviews.
type Reviews struct {
	svc      ReviewService
	defaults query.Defaults
}

// NewReviews creates a new Reviews handler group.
func NewReviews(svc ReviewService, defaults query.Defaults) *Reviews {
	return &Reviews{svc: svc, defaults: defaults}
}

// ids parses the post id and, when withReview is set, the review id.
func (h *Reviews) ids(r *http.Request, withReview bool) (postID, reviewID uuid.UUID, err error) {
	if postID, err = pathID(r, "postID"); err != nil {
		return
	}
	if withReview {
		reviewID, err = pathID(r, "reviewID")
	}
	return
}

// List handles GET /posts/{postID}/reviews.
func (h *Reviews) List(w http.ResponseWriter, r *http.Request) {
	postID, _, err := h.ids(r, false)
	if err != nil {
		render.Error(w, r, err)
		return
	}
	q, err := query.Parse(r.URL.Query(), query.Reviews, h.defaults)
	if err != nil {
		render.Error(w, r, err)
		return
	}
	items, err := h.svc.List(r.Context(), postID, q)
	if err != nil {
		render.Error(w, r, err)
		return
	}
	respondList(w, r, "reviews", items, q.Fields)
}

// Get handles GET /posts/{postID}/reviews/{reviewID}.
func (h *Reviews) Get(w http.ResponseWriter, r *http.Request) {
	postID, reviewID, err := h.ids(r, true)
	if err != nil {
		render.Error(w, r, err)
		return
	}
	fields, err := query.ParseFields(r.URL.Query(), query.Reviews)
	if err != nil {
		render.Error(w, r, err)
		return
	}
	rv, err := h.svc.Get(r.Context(), postID, reviewID)
	if err != nil {
		render.Error(w, r, err)
		return
	}
	respondOne(w, r, http.StatusOK, "review", rv, fields)
}

// Create handles POST /posts/{postID}/reviews. The author is always the
// caller; any user or post id in the body is ignored.
func (h *Reviews) Create(w http.ResponseWriter, r *http.Request) {
	postID, _, err := h.ids(r, false)
	if err != nil {
		render.Error(w, r, err)
		return
	}
	var in service.ReviewInput
	if err := decodeJSON(w, r, &in); err != nil {
		render.Error(w, r, err)
		return
	}
	rv, err := h.svc.Create(r.Context(), middleware.PrincipalFromCtx(r.Context()), postID, in)
	if err != nil {
		render.Error(w, r, err)
		return
	}
	respondOne(w, r, http.StatusCreated, "review", rv, nil)
}

// Update handles PATCH /posts/{postID}/reviews/{reviewID}.
func (h *Reviews) Update(w http.ResponseWriter, r *http.Request) {
	postID, reviewID, err := h.ids(r, true)
	if err != nil {
		render.Error(w, r, err)
		return
	}
	var in service.ReviewInput
	if err := decodeJSON(w, r, &in); err != nil {
		render.Error(w, r, err)
		return
	}
	rv, err := h.svc.Update(r.Context(), middleware.PrincipalFromCtx(r.Context()), postID, reviewID, in)
	if err != nil {
		render.Error(w, r, err)
		return
	}
	respondOne(w, r, http.StatusOK, "review", rv, nil)
}

// Delete handles DELETE /posts/{postID}/reviews/{reviewID}.
func (h *Reviews) Delete(w http.ResponseWriter, r *http.Request) {
	postID, reviewID, err := h.ids(r, true)
	if err != nil {
		render.Error(w, r, err)
		return
	}
	if err := h.svc.Delete(r.Context(), middleware.PrincipalFromCtx(r.Context()), postID, reviewID); err != nil {
		render.Error(w, r, err)
		return
	}
	render.NoContent(w)
}
