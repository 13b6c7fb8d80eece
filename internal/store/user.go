// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package store provides database access for users, categories, posts and
// reviews. Each store wraps a *sqlx.DB and exposes typed query methods.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"

	"classifieds/internal/models"
	"classifieds/internal/query"
)

// UserStore handles all user-related database operations.
type UserStore struct {
	db *sqlx.DB
}

// NewUserStore creates a new UserStore with the given database connection.
func NewUserStore(db *sqlx.DB) *UserStore {
	return &UserStore{db: db}
}

const userColumns = `id, name, email, photo, role, password_hash, password_changed_at,
	password_reset_token, password_reset_expires, totp_secret, totp_enabled, created_at, updated_at`

func (s *UserStore) findOne(ctx context.Context, op, where string, arg any) (*models.User, error) {
	var u models.User
	err := s.db.GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE `+where, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &u, nil
}

// FindByEmail retrieves a user by their email address. Returns nil if not found.
func (s *UserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findOne(ctx, "find user by email", `email = $1`, email)
}

// FindByID retrieves a user by their UUID. Returns nil if not found.
func (s *UserStore) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.findOne(ctx, "find user by id", `id = $1`, id)
}

// List returns the users matching q.
func (s *UserStore) List(ctx context.Context, q *query.Query) ([]models.User, error) {
	stmt, args := q.Build(`SELECT ` + userColumns + ` FROM users`)

	users := []models.User{}
	if err := s.db.SelectContext(ctx, &users, s.db.Rebind(stmt), args...); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// NewUser holds the fields needed to create an account.
type NewUser struct {
	Name     string
	Email    string
	Password string
	Photo    string
	Role     models.Role
}

// Create inserts a new user with a bcrypt-hashed password. A taken email
// yields ErrDuplicate.
func (s *UserStore) Create(ctx context.Context, in NewUser) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	if in.Photo == "" {
		in.Photo = models.DefaultPhoto
	}
	if in.Role == "" {
		in.Role = models.RoleUser
	}

	var u models.User
	err = s.db.GetContext(ctx, &u, `
		INSERT INTO users (name, email, password_hash, photo, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+userColumns,
		in.Name, in.Email, string(hash), in.Photo, in.Role,
	)
	if err != nil {
		return nil, translate("create user", err)
	}
	return &u, nil
}

// UpdateProfile writes the name, email and photo of u.
func (s *UserStore) UpdateProfile(ctx context.Context, u *models.User) error {
	err := s.db.GetContext(ctx, u, `
		UPDATE users SET name = $1, email = $2, photo = $3, updated_at = NOW()
		WHERE id = $4
		RETURNING `+userColumns,
		u.Name, u.Email, u.Photo, u.ID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("update profile: %w", ErrNotFound)
	}
	if err != nil {
		return translate("update profile", err)
	}
	return nil
}

// SetPassword replaces the password, records the change time and clears
// any pending reset token. The change time is backdated by one second so
// a session created right after the change stays valid.
func (s *UserStore) SetPassword(ctx context.Context, userID uuid.UUID, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET password_hash = $1,
		    password_changed_at = NOW() - INTERVAL '1 second',
		    password_reset_token = NULL,
		    password_reset_expires = NULL,
		    updated_at = NOW()
		WHERE id = $2
	`, string(hash), userID)
	if err != nil {
		return fmt.Errorf("set password: %w", err)
	}
	return requireAffected(res, "set password")
}

// RedeemResetToken sets a new password for the user holding the hashed
// reset token, provided it has not expired, and clears the token in the
// same statement. Only one of two concurrent redemptions can match the row.
// Returns nil if no live token matches.
func (s *UserStore) RedeemResetToken(ctx context.Context, tokenHash, password string) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	var u models.User
	err = s.db.GetContext(ctx, &u, `
		UPDATE users
		SET password_hash = $1,
		    password_changed_at = NOW() - INTERVAL '1 second',
		    password_reset_token = NULL,
		    password_reset_expires = NULL,
		    updated_at = NOW()
		WHERE password_reset_token = $2 AND password_reset_expires > NOW()
		RETURNING `+userColumns,
		string(hash), tokenHash,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redeem reset token: %w", err)
	}
	return &u, nil
}

// SetResetToken stores a hashed reset token with its expiry.
func (s *UserStore) SetResetToken(ctx context.Context, userID uuid.UUID, tokenHash string, expires time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users SET password_reset_token = $1, password_reset_expires = $2 WHERE id = $3
	`, tokenHash, expires, userID)
	if err != nil {
		return fmt.Errorf("set reset token: %w", err)
	}
	return nil
}

// ClearResetToken removes any pending reset token.
func (s *UserStore) ClearResetToken(ctx context.Context, userID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users SET password_reset_token = NULL, password_reset_expires = NULL WHERE id = $1
	`, userID)
	if err != nil {
		return fmt.Errorf("clear reset token: %w", err)
	}
	return nil
}

// SetTOTPSecret saves the TOTP secret for a user (during 2FA setup).
func (s *UserStore) SetTOTPSecret(ctx context.Context, userID uuid.UUID, secret string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users SET totp_secret = $1, updated_at = NOW() WHERE id = $2
	`, secret, userID)
	if err != nil {
		return fmt.Errorf("set totp secret: %w", err)
	}
	return nil
}

// EnableTOTP marks 2FA as active for a user (after successful code verification).
func (s *UserStore) EnableTOTP(ctx context.Context, userID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users SET totp_enabled = TRUE, updated_at = NOW() WHERE id = $1
	`, userID)
	if err != nil {
		return fmt.Errorf("enable totp: %w", err)
	}
	return nil
}

// ResetTOTP clears the TOTP secret and disables 2FA for a user.
func (s *UserStore) ResetTOTP(ctx context.Context, userID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users SET totp_secret = NULL, totp_enabled = FALSE, updated_at = NOW() WHERE id = $1
	`, userID)
	if err != nil {
		return fmt.Errorf("reset totp: %w", err)
	}
	return nil
}

// Delete removes a user by ID. Their reviews go with them.
func (s *UserStore) Delete(ctx context.Context, userID uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, userID)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return requireAffected(res, "delete user")
}

// CheckPassword verifies a plaintext password against user's stored hash.
func CheckPassword(user *models.User, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) == nil
}
