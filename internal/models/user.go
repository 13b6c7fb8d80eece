// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package models defines the data structures that map to database tables
// and provides the core types used throughout the application.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Role represents a user's permission level in the system.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// DefaultPhoto is the avatar every account starts with. It is shared and
// never removed from storage.
const DefaultPhoto = "avatar.png"

// User represents an account with credentials, a profile photo and optional 2FA.
type User struct {
	ID                   uuid.UUID  `db:"id" json:"id"`
	Name                 string     `db:"name" json:"name"`
	Email                string     `db:"email" json:"email"`
	Photo                string     `db:"photo" json:"photo"`
	Role                 Role       `db:"role" json:"role"`
	PasswordHash         string     `db:"password_hash" json:"-"` // Never serialize the hash
	PasswordChangedAt    *time.Time `db:"password_changed_at" json:"-"`
	PasswordResetToken   *string    `db:"password_reset_token" json:"-"`
	PasswordResetExpires *time.Time `db:"password_reset_expires" json:"-"`
	TOTPSecret           *string    `db:"totp_secret" json:"-"`
	TOTPEnabled          bool       `db:"totp_enabled" json:"totpEnabled"`
	CreatedAt            time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt            time.Time  `db:"updated_at" json:"updatedAt"`
}

// IsAdmin returns true if the user has the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// HasCustomPhoto reports whether the user uploaded their own photo.
func (u *User) HasCustomPhoto() bool {
	return u.Photo != "" && u.Photo != DefaultPhoto
}

// ChangedPasswordAfter reports whether the password was changed after t.
// Sessions issued before a password change are no longer honoured.
func (u *User) ChangedPasswordAfter(t time.Time) bool {
	return u.PasswordChangedAt != nil && u.PasswordChangedAt.After(t)
}
