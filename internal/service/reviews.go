// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"classifieds/internal/apperr"
	"classifieds/internal/models"
	"classifieds/internal/policy"
	"classifieds/internal/query"
	"classifieds/internal/store"
)

// ReviewInput carries the writable review fields. Nil fields are left
// unchanged on update.
type ReviewInput struct {
	Review *string `json:"review" validate:"omitempty,max=2000"`
	Rating *int    `json:"rating" validate:"omitempty,min=1,max=5"`
}

// Reviews manages the reviews nested under a post. Every successful
// change recomputes the post's rating aggregate.
type Reviews struct {
	reviews ReviewRepo
	posts   PostRepo
	ratings Recomputer
}

// NewReviews creates the review service.
func NewReviews(reviews ReviewRepo, posts PostRepo, ratings Recomputer) *Reviews {
	return &Reviews{reviews: reviews, posts: posts, ratings: ratings}
}

func (s *Reviews) requirePost(ctx context.Context, postID uuid.UUID) error {
	p, err := s.posts.FindByID(ctx, postID)
	if err != nil {
		return apperr.Wrap(err, "could not load post")
	}
	if p == nil {
		return apperr.NotFoundf("no post found with that ID")
	}
	return nil
}

// List returns the reviews of an existing post.
func (s *Reviews) List(ctx context.Context, postID uuid.UUID, q *query.Query) ([]models.Review, error) {
	if err := s.requirePost(ctx, postID); err != nil {
		return nil, err
	}
	items, err := s.reviews.List(ctx, postID, q)
	if err != nil {
		return nil, apperr.Wrap(err, "could not list reviews")
	}
	return items, nil
}

// Get returns a review only if it belongs to postID.
func (s *Reviews) Get(ctx context.Context, postID, reviewID uuid.UUID) (*models.Review, error) {
	r, err := s.reviews.FindByID(ctx, reviewID)
	if err != nil {
		return nil, apperr.Wrap(err, "could not load review")
	}
	if r == nil || r.PostID != postID {
		return nil, apperr.NotFoundf("no review found with that ID")
	}
	return r, nil
}

// Create adds the principal's review of postID. Only regular users review;
// each may review a post once.
func (s *Reviews) Create(ctx context.Context, p *policy.Principal, postID uuid.UUID, in ReviewInput) (*models.Review, error) {
	if err := policy.RequireRole(p, models.RoleUser); err != nil {
		return nil, err
	}
	in.Review = trimmed(in.Review)

	missing := map[string]string{}
	if blank(in.Review) {
		missing["review"] = "review can not be empty"
	}
	if in.Rating == nil {
		missing["rating"] = "is required"
	}
	if err := merge(check(in), missing); err != nil {
		return nil, err
	}
	if err := s.requirePost(ctx, postID); err != nil {
		return nil, err
	}

	r := &models.Review{
		PostID: postID,
		UserID: p.ID,
		Review: *in.Review,
		Rating: *in.Rating,
	}
	if err := s.reviews.Create(ctx, r); err != nil {
		switch {
		case errors.Is(err, store.ErrDuplicate):
			return nil, apperr.Conflictf("you have already reviewed this post")
		case errors.Is(err, store.ErrInvalidReference):
			return nil, apperr.NotFoundf("no post found with that ID")
		}
		return nil, apperr.Wrap(err, "could not save review")
	}

	s.ratings.Recompute(ctx, postID)
	return r, nil
}

// Update edits a review. Owners and admins only.
func (s *Reviews) Update(ctx context.Context, p *policy.Principal, postID, reviewID uuid.UUID, in ReviewInput) (*models.Review, error) {
	if err := policy.RequireAuthenticated(p); err != nil {
		return nil, err
	}
	in.Review = trimmed(in.Review)

	var empty map[string]string
	if in.Review != nil && *in.Review == "" {
		empty = map[string]string{"review": "review can not be empty"}
	}
	if err := merge(check(in), empty); err != nil {
		return nil, err
	}

	r, err := s.Get(ctx, postID, reviewID)
	if err != nil {
		return nil, err
	}
	if err := policy.RequireOwnerOrAdmin(p, r.UserID); err != nil {
		return nil, err
	}

	if in.Review != nil {
		r.Review = *in.Review
	}
	if in.Rating != nil {
		r.Rating = *in.Rating
	}
	if err := s.reviews.Update(ctx, r); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFoundf("no review found with that ID")
		}
		return nil, apperr.Wrap(err, "could not save review")
	}

	s.ratings.Recompute(ctx, postID)

	updated, err := s.reviews.FindByID(ctx, reviewID)
	if err != nil || updated == nil {
		return r, nil
	}
	return updated, nil
}

// Delete removes a review. Owners and admins only.
func (s *Reviews) Delete(ctx context.Context, p *policy.Principal, postID, reviewID uuid.UUID) error {
	if err := policy.RequireAuthenticated(p); err != nil {
		return err
	}

	r, err := s.Get(ctx, postID, reviewID)
	if err != nil {
		return err
	}
	if err := policy.RequireOwnerOrAdmin(p, r.UserID); err != nil {
		return err
	}

	if err := s.reviews.Delete(ctx, reviewID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFoundf("no review found with that ID")
		}
		return apperr.Wrap(err, "could not delete review")
	}

	s.ratings.Recompute(ctx, postID)
	return nil
}
