// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"classifieds/internal/apperr"
	"classifieds/internal/models"
	"classifieds/internal/policy"
	"classifieds/internal/query"
	"classifieds/internal/store"
)

// NavbarSize is how many categories the navigation bar shows.
const NavbarSize = 4

// CategoryInput is the writable part of a category.
type CategoryInput struct {
	Name string `json:"name" validate:"required,min=3,max=55"`
}

// Categories manages the category catalogue. Only admins may change it.
type Categories struct {
	repo  CategoryRepo
	posts PostCache
}

// NewCategories creates the category service. Cached posts are flushed
// when a category disappears because they embed its id.
func NewCategories(repo CategoryRepo, posts PostCache) *Categories {
	if posts == nil {
		posts = noCache{}
	}
	return &Categories{repo: repo, posts: posts}
}

func (s *Categories) List(ctx context.Context, q *query.Query) ([]models.Category, error) {
	items, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, apperr.Wrap(err, "could not list categories")
	}
	return items, nil
}

// Navbar returns the first categories by name.
func (s *Categories) Navbar(ctx context.Context) ([]models.Category, error) {
	items, err := s.repo.Navbar(ctx, NavbarSize)
	if err != nil {
		return nil, apperr.Wrap(err, "could not list categories")
	}
	return items, nil
}

func (s *Categories) Get(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, apperr.Wrap(err, "could not load category")
	}
	if c == nil {
		return nil, apperr.NotFoundf("no category found with that ID")
	}
	return c, nil
}

func (s *Categories) Create(ctx context.Context, p *policy.Principal, in CategoryInput) (*models.Category, error) {
	if err := policy.RequireRole(p, models.RoleAdmin); err != nil {
		return nil, err
	}
	in.Name = strings.TrimSpace(in.Name)
	if err := check(in); err != nil {
		return nil, err
	}

	c, err := s.repo.Create(ctx, in.Name)
	if err != nil {
		return nil, categoryErr(err, in.Name)
	}
	return c, nil
}

func (s *Categories) Update(ctx context.Context, p *policy.Principal, id uuid.UUID, in CategoryInput) (*models.Category, error) {
	if err := policy.RequireRole(p, models.RoleAdmin); err != nil {
		return nil, err
	}
	in.Name = strings.TrimSpace(in.Name)
	if err := check(in); err != nil {
		return nil, err
	}

	c, err := s.repo.Update(ctx, id, in.Name)
	if err != nil {
		return nil, categoryErr(err, in.Name)
	}
	if c == nil {
		return nil, apperr.NotFoundf("no category found with that ID")
	}
	return c, nil
}

// Delete removes a category. Its posts stay and lose their category.
func (s *Categories) Delete(ctx context.Context, p *policy.Principal, id uuid.UUID) error {
	if err := policy.RequireRole(p, models.RoleAdmin); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFoundf("no category found with that ID")
		}
		return apperr.Wrap(err, "could not delete category")
	}
	s.posts.InvalidateAll(ctx)
	return nil
}

func categoryErr(err error, name string) error {
	if errors.Is(err, store.ErrDuplicate) {
		return apperr.Conflictf("category %q already exists", name)
	}
	return apperr.Wrap(err, "could not save category")
}
