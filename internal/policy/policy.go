// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package policy decides whether a principal may perform an operation.
// Every check fails with Unauthenticated for a nil principal before any
// role or ownership rule is evaluated.
package policy

import (
	"slices"

	"github.com/google/uuid"

	"classifieds/internal/apperr"
	"classifieds/internal/models"
)

// Principal is the authenticated identity attached to a request.
type Principal struct {
	ID   uuid.UUID
	Role models.Role
}

// IsAdmin reports whether p holds the admin role.
func (p *Principal) IsAdmin() bool {
	return p != nil && p.Role == models.RoleAdmin
}

// RequireAuthenticated fails when there is no principal.
func RequireAuthenticated(p *Principal) error {
	if p == nil {
		return apperr.Unauthenticatedf("you are not logged in, please log in to get access")
	}
	return nil
}

// RequireRole allows p only if its role is one of roles.
func RequireRole(p *Principal, roles ...models.Role) error {
	if err := RequireAuthenticated(p); err != nil {
		return err
	}
	if !slices.Contains(roles, p.Role) {
		return apperr.Forbiddenf("you do not have permission to perform this action")
	}
	return nil
}

// RequireOwnerOrAdmin allows the owner of a resource and any admin.
func RequireOwnerOrAdmin(p *Principal, ownerID uuid.UUID) error {
	if err := RequireAuthenticated(p); err != nil {
		return err
	}
	if p.ID != ownerID && p.Role != models.RoleAdmin {
		return apperr.Forbiddenf("you can only modify your own resources")
	}
	return nil
}
