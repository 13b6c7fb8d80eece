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
	"github.com/lib/pq"

	"classifieds/internal/models"
	"classifieds/internal/query"
	"classifieds/internal/rating"
)

// PostStore handles all post-related database operations.
type PostStore struct {
	db *sqlx.DB
}

// NewPostStore creates a new PostStore with the given database connection.
func NewPostStore(db *sqlx.DB) *PostStore {
	return &PostStore{db: db}
}

const postColumns = `id, title, category_id, price, summary, description, image_cover, images,
	ratings_average, ratings_quantity, created_at`

// List returns the posts matching q, optionally narrowed by scope.
func (s *PostStore) List(ctx context.Context, q *query.Query, scope ...query.Cond) ([]models.Post, error) {
	stmt, args := q.Build(`SELECT `+postColumns+` FROM posts`, scope...)

	items := []models.Post{}
	if err := s.db.SelectContext(ctx, &items, s.db.Rebind(stmt), args...); err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return items, nil
}

// FindByID returns a post or nil if not found.
func (s *PostStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	var p models.Post
	err := s.db.GetContext(ctx, &p, `SELECT `+postColumns+` FROM posts WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find post: %w", err)
	}
	return &p, nil
}

// Create inserts p and fills in the generated columns.
func (s *PostStore) Create(ctx context.Context, p *models.Post) error {
	err := s.db.GetContext(ctx, p, `
		INSERT INTO posts (title, category_id, price, summary, description, image_cover, images)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+postColumns,
		p.Title, p.CategoryID, p.Price, p.Summary, p.Description, p.ImageCover, nonNil(p.Images),
	)
	if err != nil {
		return translate("create post", err)
	}
	return nil
}

// Update writes every mutable field of p. Rating fields are left to
// UpdateRatings.
func (s *PostStore) Update(ctx context.Context, p *models.Post) error {
	err := s.db.GetContext(ctx, p, `
		UPDATE posts
		SET title = $1, category_id = $2, price = $3, summary = $4, description = $5,
		    image_cover = $6, images = $7
		WHERE id = $8
		RETURNING `+postColumns,
		p.Title, p.CategoryID, p.Price, p.Summary, p.Description, p.ImageCover, nonNil(p.Images), p.ID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("update post: %w", ErrNotFound)
	}
	if err != nil {
		return translate("update post", err)
	}
	return nil
}

// Delete removes a post. Reviews referencing it are removed by the foreign
// key cascade if the caller has not already deleted them.
func (s *PostStore) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	return requireAffected(res, "delete post")
}

// IDs returns the id of every post, oldest first.
func (s *PostStore) IDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := s.db.SelectContext(ctx, &ids, `SELECT id FROM posts ORDER BY created_at, id`); err != nil {
		return nil, fmt.Errorf("list post ids: %w", err)
	}
	return ids, nil
}

// UpdateRatings aggregates the reviews of postID and stores fn's result on
// the post, all in one transaction. The post row is locked first so
// concurrent recomputes of one post run one after another. A missing post
// is a no-op.
func (s *PostStore) UpdateRatings(ctx context.Context, postID uuid.UUID, fn func(rating.Stats) rating.Aggregate) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var locked uuid.UUID
	err = tx.GetContext(ctx, &locked, `SELECT id FROM posts WHERE id = $1 FOR UPDATE`, postID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("lock post: %w", err)
	}

	var row struct {
		Mean  sql.NullFloat64 `db:"mean"`
		Count int             `db:"count"`
	}
	err = tx.GetContext(ctx, &row,
		`SELECT AVG(rating)::float8 AS mean, COUNT(*) AS count FROM reviews WHERE post_id = $1`, postID)
	if err != nil {
		return fmt.Errorf("aggregate reviews: %w", err)
	}

	agg := fn(rating.Stats{Mean: row.Mean.Float64, Count: row.Count})

	_, err = tx.ExecContext(ctx,
		`UPDATE posts SET ratings_average = $1, ratings_quantity = $2 WHERE id = $3`,
		agg.Average, agg.Quantity, postID)
	if err != nil {
		return fmt.Errorf("store ratings: %w", err)
	}

	return tx.Commit()
}

func nonNil(a pq.StringArray) pq.StringArray {
	if a == nil {
		return pq.StringArray{}
	}
	return a
}
