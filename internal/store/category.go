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

// CategoryStore manages categories in the database.
type CategoryStore struct {
	db *sqlx.DB
}

// NewCategoryStore returns a new CategoryStore.
func NewCategoryStore(db *sqlx.DB) *CategoryStore {
	return &CategoryStore{db: db}
}

const categoryColumns = `id, name, created_at`

// List returns the categories matching q.
func (s *CategoryStore) List(ctx context.Context, q *query.Query) ([]models.Category, error) {
	stmt, args := q.Build(`SELECT ` + categoryColumns + ` FROM categories`)

	items := []models.Category{}
	if err := s.db.SelectContext(ctx, &items, s.db.Rebind(stmt), args...); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return items, nil
}

// Navbar returns the first limit categories ordered by name.
func (s *CategoryStore) Navbar(ctx context.Context, limit int) ([]models.Category, error) {
	items := []models.Category{}
	err := s.db.SelectContext(ctx, &items,
		`SELECT `+categoryColumns+` FROM categories ORDER BY name, id LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("navbar categories: %w", err)
	}
	return items, nil
}

// FindByID returns a category or nil if not found.
func (s *CategoryStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	var c models.Category
	err := s.db.GetContext(ctx, &c, `SELECT `+categoryColumns+` FROM categories WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find category: %w", err)
	}
	return &c, nil
}

// Create inserts a new category. A taken name yields ErrDuplicate.
func (s *CategoryStore) Create(ctx context.Context, name string) (*models.Category, error) {
	var c models.Category
	err := s.db.GetContext(ctx, &c,
		`INSERT INTO categories (name) VALUES ($1) RETURNING `+categoryColumns, name)
	if err != nil {
		return nil, translate("create category", err)
	}
	return &c, nil
}

// Update renames a category. Returns nil if it does not exist.
func (s *CategoryStore) Update(ctx context.Context, id uuid.UUID, name string) (*models.Category, error) {
	var c models.Category
	err := s.db.GetContext(ctx, &c,
		`UPDATE categories SET name = $1 WHERE id = $2 RETURNING `+categoryColumns, name, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, translate("update category", err)
	}
	return &c, nil
}

// Delete removes a category. Posts in it keep existing with no category.
func (s *CategoryStore) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return requireAffected(res, "delete category")
}

func requireAffected(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil
}
