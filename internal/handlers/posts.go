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

// PostService is the part of the service layer the post handlers use.
type PostService interface {
	List(ctx context.Context, q *query.Query) ([]models.Post, error)
	ListByCategory(ctx context.Context, categoryID uuid.UUID, q *query.Query) ([]models.Post, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Post, error)
	Create(ctx context.Context, p *policy.Principal, in service.PostInput, imgs service.PostImages) (*models.Post, error)
	Update(ctx context.Context, p *policy.Principal, id uuid.UUID, in service.PostInput, imgs service.PostImages) (*models.Post, error)
	Delete(ctx context.Context, p *policy.Principal, id uuid.UUID) error
}

// Posts groups the listing endpoints.
type Posts struct {
	svc      PostService
	defaults query.Defaults
}

// NewPosts creates a new Posts handler group.
func NewPosts(svc PostService, defaults query.Defaults) *Posts {
	return &Posts{svc: svc, defaults: defaults}
}

// List handles GET /posts.
func (h *Posts) List(w http.ResponseWriter, r *http.Request) {
	q, err := query.Parse(r.URL.Query(), query.Posts, h.defaults)
	if err != nil {
		render.Error(w, r, err)
		return
	}
	items, err := h.svc.List(r.Context(), q)
	if err != nil {
		render.Error(w, r, err)
		return
	}
	respondList(w, r, "posts", items, q.Fields)
}

// ListByCategory handles GET /categories/{catID}/posts.
func (h *Posts) ListByCategory(w http.ResponseWriter, r *http.Request) {
	catID, err := pathID(r, "catID")
	if err != nil {
		render.Error(w, r, err)
		return
	}
	q, err := query.Parse(r.URL.Query(), query.Posts, h.defaults)
	if err != nil {
		render.Error(w, r, err)
		return
	}
	items, err := h.svc.ListByCategory(r.Context(), catID, q)
	if err != nil {
		render.Error(w, r, err)
		return
	}
	respondList(w, r, "posts", items, q.Fields)
}

// Get handles GET /posts/{postID}. The response embeds the post's reviews.
func (h *Posts) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "postID")
	if err != nil {
		render.Error(w, r, err)
		return
	}
	fields, err := query.ParseFields(r.URL.Query(), query.Posts)
	if err != nil {
		render.Error(w, r, err)
		return
	}
	p, err := h.svc.Get(r.Context(), id)
	if err != nil {
		render.Error(w, r, err)
		return
	}
	respondOne(w, r, http.StatusOK, "post", p, fields)
}

// Create handles POST /posts. The body is a multipart form carrying the
// listing fields, an imageCover file and up to three images.
func (h *Posts) Create(w http.ResponseWriter, r *http.Request) {
	in, imgs, err := readPost(w, r)
	if err != nil {
		render.Error(w, r, err)
		return
	}
	p, err := h.svc.Create(r.Context(), middleware.PrincipalFromCtx(r.Context()), in, imgs)
	if err != nil {
		render.Error(w, r, err)
		return
	}
	respondOne(w, r, http.StatusCreated, "post", p, nil)
}

// Update handles PATCH /posts/{postID} with either a multipart form or a
// JSON body. Only the fields present are changed.
func (h *Posts) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "postID")
	if err != nil {
		render.Error(w, r, err)
		return
	}
	in, imgs, err := readPost(w, r)
	if err != nil {
		render.Error(w, r, err)
		return
	}
	p, err := h.svc.Update(r.Context(), middleware.PrincipalFromCtx(r.Context()), id, in, imgs)
	if err != nil {
		render.Error(w, r, err)
		return
	}
	respondOne(w, r, http.StatusOK, "post", p, nil)
}

// Delete handles DELETE /posts/{postID}.
func (h *Posts) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "postID")
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

// readPost decodes a post payload from a multipart form or JSON body.
func readPost(w http.ResponseWriter, r *http.Request) (service.PostInput, service.PostImages, error) {
	var (
		in   service.PostInput
		imgs service.PostImages
	)
	if !isMultipart(r) {
		return in, imgs, decodeJSON(w, r, &in)
	}

	if err := parseMultipart(w, r); err != nil {
		return in, imgs, err
	}
	in.Title = formString(r, "title")
	in.Summary = formString(r, "summary")
	in.Description = formString(r, "description")

	var err error
	if in.Price, err = formFloat(r, "price"); err != nil {
		return in, imgs, err
	}
	if in.Category, err = formUUID(r, "category"); err != nil {
		return in, imgs, err
	}
	if imgs.Cover, err = formFile(r, "imageCover"); err != nil {
		return in, imgs, err
	}
	gallery, err := formFiles(r, "images", service.MaxGalleryImages)
	if err != nil {
		return in, imgs, err
	}
	if len(gallery) > 0 {
		imgs.Gallery = gallery
	}
	return in, imgs, nil
}
