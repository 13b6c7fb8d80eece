// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"classifieds/internal/models"
	"classifieds/internal/query"
)

// ReviewStore handles review persistence. Reads join users for the author's
// name and photo.
type ReviewStore struct {
	db *sqlx.DB
}

// NewReviewStore creates a new ReviewStore.
func NewReviewStore(db *sqlx.DB) *ReviewStore {
	return &ReviewStore{db: db}
}

const reviewSelect = `SELECT r.id, r.post_id, r.user_id, r.review, r.rating, r.created_at, r.updated_at,
	u.name AS author_name, u.photo AS author_photo
	FROM reviews r JOIN users u ON u.id = r.user_id`

// List returns the reviews of postID matching q.
func (s *ReviewStore) List(ctx context.Context, postID uuid.UUID, q *query.Query) ([]models.Review, error) {
	stmt, args := q.Build(reviewSelect, query.Cond{Column: "r.post_id", Op: "=", Value: postID})

	items := []models.Review{}
	if err := s.db.SelectContext(ctx, &items, s.db.Rebind(stmt), args...); err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	return items, nil
}

// ListByPost returns every review of postID, newest first.
func (s *ReviewStore) ListByPost(ctx context.Context, postID uuid.UUID) ([]models.Review, error) {
	items := []models.Review{}
	err := s.db.SelectContext(ctx, &items,
		reviewSelect+` WHERE r.post_id = $1 ORDER BY r.created_at DESC, r.id`, postID)
	if err != nil {
		return nil, fmt.Errorf("list post reviews: %w", err)
	}
	return items, nil
}

// FindByID returns a review or nil if not found.
func (s *ReviewStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Review, error) {
	var r models.Review
	err := s.db.GetContext(ctx, &r, reviewSelect+` WHERE r.id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find review: %w", err)
	}
	return &r, nil
}

// Create inserts r. A second review by the same user on the same post
// yields ErrDuplicate.
func (s *ReviewStore) Create(ctx context.Context, r *models.Review) error {
	err := s.db.GetContext(ctx, r, `
		WITH r AS (
			INSERT INTO reviews (post_id, user_id, review, rating)
			VALUES ($1, $2, $3, $4)
			RETURNING *
		)
		SELECT r.id, r.post_id, r.user_id, r.review, r.rating, r.created_at, r.updated_at,
		       u.name AS author_name, u.photo AS author_photo
		FROM r JOIN users u ON u.id = r.user_id`,
		r.PostID, r.UserID, r.Review, r.Rating,
	)
	if err != nil {
		return translate("create review", err)
	}
	return nil
}

// Update writes the body and rating of r.
func (s *ReviewStore) Update(ctx context.Context, r *models.Review) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE reviews SET review = $1, rating = $2, updated_at = NOW() WHERE id = $3
	`, r.Review, r.Rating, r.ID)
	if err != nil {
		return fmt.Errorf("update review: %w", err)
	}
	return requireAffected(res, "update review")
}

// Delete removes a review.
func (s *ReviewStore) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM reviews WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	return requireAffected(res, "delete review")
}

// DeleteByPost removes every review of postID and returns how many went.
func (s *ReviewStore) DeleteByPost(ctx context.Context, postID uuid.UUID) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM reviews WHERE post_id = $1`, postID)
	if err != nil {
		return 0, fmt.Errorf("delete post reviews: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete post reviews rows affected: %w", err)
	}
	return n, nil
}

// PostIDsByUser returns the posts userID has reviewed.
func (s *ReviewStore) PostIDsByUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := s.db.SelectContext(ctx, &ids, `SELECT DISTINCT post_id FROM reviews WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("reviewed posts: %w", err)
	}
	return ids, nil
}
