// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"classifieds/internal/apperr"
	"classifieds/internal/media"
	"classifieds/internal/models"
	"classifieds/internal/policy"
	"classifieds/internal/query"
	"classifieds/internal/store"
)

// MaxGalleryImages bounds the images attached to a post besides its cover.
const MaxGalleryImages = 3

// PostInput carries the writable post fields. Nil fields are left
// unchanged on update.
type PostInput struct {
	Title       *string    `json:"title" validate:"omitempty,min=3,max=255"`
	Category    *uuid.UUID `json:"category"`
	Price       *float64   `json:"price" validate:"omitempty,gte=0"`
	Summary     *string    `json:"summary"`
	Description *string    `json:"description"`
}

func (in *PostInput) normalize() {
	in.Title = trimmed(in.Title)
	in.Summary = trimmed(in.Summary)
	in.Description = trimmed(in.Description)
}

func (in PostInput) apply(p *models.Post) {
	if in.Title != nil {
		p.Title = *in.Title
	}
	if in.Category != nil {
		p.CategoryID = in.Category
	}
	if in.Price != nil {
		p.Price = *in.Price
	}
	if in.Summary != nil {
		p.Summary = *in.Summary
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
}

// PostImages are the files uploaded with a create or update. A nil Cover
// keeps the current one; a nil Gallery keeps the current gallery and a
// non-nil one replaces it.
type PostImages struct {
	Cover   *media.Upload
	Gallery []media.Upload
}

type categoryFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Category, error)
}

// Posts manages listings and their images.
type Posts struct {
	posts      PostRepo
	reviews    ReviewRepo
	categories categoryFinder
	images     Images
	cache      PostCache
}

// NewPosts creates the post service. cache may be nil.
func NewPosts(posts PostRepo, reviews ReviewRepo, categories categoryFinder, images Images, cache PostCache) *Posts {
	if cache == nil {
		cache = noCache{}
	}
	return &Posts{posts: posts, reviews: reviews, categories: categories, images: images, cache: cache}
}

func (s *Posts) List(ctx context.Context, q *query.Query) ([]models.Post, error) {
	items, err := s.posts.List(ctx, q)
	if err != nil {
		return nil, apperr.Wrap(err, "could not list posts")
	}
	return items, nil
}

// ListByCategory lists the posts of an existing category.
func (s *Posts) ListByCategory(ctx context.Context, categoryID uuid.UUID, q *query.Query) ([]models.Post, error) {
	c, err := s.categories.FindByID(ctx, categoryID)
	if err != nil {
		return nil, apperr.Wrap(err, "could not load category")
	}
	if c == nil {
		return nil, apperr.NotFoundf("no category found with that ID")
	}

	items, err := s.posts.List(ctx, q, query.Cond{Column: "category_id", Op: "=", Value: categoryID})
	if err != nil {
		return nil, apperr.Wrap(err, "could not list posts")
	}
	return items, nil
}

// Get returns a post with its reviews embedded, serving from the cache
// when possible.
func (s *Posts) Get(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	if p, ok := s.cache.Get(ctx, id); ok {
		return p, nil
	}

	p, err := s.posts.FindByID(ctx, id)
	if err != nil {
		return nil, apperr.Wrap(err, "could not load post")
	}
	if p == nil {
		return nil, apperr.NotFoundf("no post found with that ID")
	}

	p.Reviews, err = s.reviews.ListByPost(ctx, id)
	if err != nil {
		return nil, apperr.Wrap(err, "could not load reviews")
	}

	s.cache.Set(ctx, p)
	return p, nil
}

// Create adds a post. A cover image is mandatory.
func (s *Posts) Create(ctx context.Context, pr *policy.Principal, in PostInput, imgs PostImages) (*models.Post, error) {
	if err := policy.RequireRole(pr, models.RoleAdmin); err != nil {
		return nil, err
	}
	in.normalize()

	missing := map[string]string{}
	if blank(in.Title) {
		missing["title"] = "is required"
	}
	if in.Price == nil {
		missing["price"] = "is required"
	}
	if blank(in.Summary) {
		missing["summary"] = "is required"
	}
	if imgs.Cover == nil {
		missing["imageCover"] = "a post must have a cover image"
	}
	if err := merge(check(in), missing); err != nil {
		return nil, err
	}
	if len(imgs.Gallery) > MaxGalleryImages {
		return nil, apperr.Validationf("a post can have at most %d images", MaxGalleryImages)
	}

	post := &models.Post{}
	in.apply(post)

	saved, err := s.saveImages(ctx, post, imgs)
	if err != nil {
		return nil, err
	}

	if err := s.posts.Create(ctx, post); err != nil {
		s.removeImages(ctx, saved)
		return nil, postErr(err)
	}
	return post, nil
}

// Update changes a post. Replaced images are removed from storage only
// after the new version is stored.
func (s *Posts) Update(ctx context.Context, pr *policy.Principal, id uuid.UUID, in PostInput, imgs PostImages) (*models.Post, error) {
	if err := policy.RequireRole(pr, models.RoleAdmin); err != nil {
		return nil, err
	}
	in.normalize()

	empty := map[string]string{}
	if in.Title != nil && *in.Title == "" {
		empty["title"] = "must not be empty"
	}
	if in.Summary != nil && *in.Summary == "" {
		empty["summary"] = "must not be empty"
	}
	if err := merge(check(in), empty); err != nil {
		return nil, err
	}
	if len(imgs.Gallery) > MaxGalleryImages {
		return nil, apperr.Validationf("a post can have at most %d images", MaxGalleryImages)
	}

	post, err := s.posts.FindByID(ctx, id)
	if err != nil {
		return nil, apperr.Wrap(err, "could not load post")
	}
	if post == nil {
		return nil, apperr.NotFoundf("no post found with that ID")
	}

	var replaced []string
	if imgs.Cover != nil {
		replaced = append(replaced, post.ImageCover)
	}
	if imgs.Gallery != nil {
		replaced = append(replaced, post.Images...)
	}

	in.apply(post)
	saved, err := s.saveImages(ctx, post, imgs)
	if err != nil {
		return nil, err
	}

	if err := s.posts.Update(ctx, post); err != nil {
		s.removeImages(ctx, saved)
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFoundf("no post found with that ID")
		}
		return nil, postErr(err)
	}

	s.removeImages(ctx, replaced)
	s.cache.Invalidate(ctx, id)
	return post, nil
}

// Delete removes a post in order: its reviews, its image files, the post
// row, then the cached copy. File removal is best-effort.
func (s *Posts) Delete(ctx context.Context, pr *policy.Principal, id uuid.UUID) error {
	if err := policy.RequireRole(pr, models.RoleAdmin); err != nil {
		return err
	}

	post, err := s.posts.FindByID(ctx, id)
	if err != nil {
		return apperr.Wrap(err, "could not load post")
	}
	if post == nil {
		return apperr.NotFoundf("no post found with that ID")
	}

	n, err := s.reviews.DeleteByPost(ctx, id)
	if err != nil {
		return apperr.Wrap(err, "could not delete reviews")
	}

	failed := s.removeImages(ctx, post.Files())

	if err := s.posts.Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFoundf("no post found with that ID")
		}
		return apperr.Wrap(err, "could not delete post")
	}
	s.cache.Invalidate(ctx, id)

	slog.Info("post deleted", "post_id", id, "reviews", n, "files_failed", failed)
	return nil
}

// saveImages stores the uploaded files and points post at them. It
// returns the new filenames so callers can roll them back.
func (s *Posts) saveImages(ctx context.Context, post *models.Post, imgs PostImages) ([]string, error) {
	var saved []string
	if imgs.Cover != nil {
		name, err := s.images.Save(ctx, media.Posts, "cover", *imgs.Cover)
		if err != nil {
			return nil, err
		}
		saved = append(saved, name)
		post.ImageCover = name
	}

	if imgs.Gallery != nil {
		gallery := make(pq.StringArray, 0, len(imgs.Gallery))
		for i, up := range imgs.Gallery {
			name, err := s.images.Save(ctx, media.Posts, strconv.Itoa(i+1), up)
			if err != nil {
				s.removeImages(ctx, saved)
				return nil, err
			}
			saved = append(saved, name)
			gallery = append(gallery, name)
		}
		post.Images = gallery
	}
	return saved, nil
}

// removeImages deletes post image files and returns how many could not be
// removed. Failures are logged and never abort the caller.
func (s *Posts) removeImages(ctx context.Context, files []string) int {
	failed := 0
	for _, f := range files {
		if err := s.images.Remove(ctx, media.Posts, f); err != nil {
			slog.Warn("post image not removed", "file", f, "error", err)
			failed++
		}
	}
	return failed
}

func postErr(err error) error {
	switch {
	case errors.Is(err, store.ErrInvalidReference):
		return apperr.InvalidFields(map[string]string{"category": "no category found with that ID"})
	case errors.Is(err, store.ErrDuplicate):
		return apperr.Conflictf("a post with that title already exists")
	}
	return apperr.Wrap(err, "could not save post")
}
