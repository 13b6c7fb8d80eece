// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"classifieds/internal/apperr"
	"classifieds/internal/mail"
	"classifieds/internal/media"
	"classifieds/internal/models"
	"classifieds/internal/policy"
	"classifieds/internal/query"
	"classifieds/internal/store"
)

// SignupInput is the registration form.
type SignupInput struct {
	Name            string `json:"name" validate:"required,max=100"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=8,max=72"`
	PasswordConfirm string `json:"passwordConfirm" validate:"required,eqfield=Password"`
}

// UpdateMeInput is the profile form. Password fields are accepted only to
// reject them with a pointer to the password route.
type UpdateMeInput struct {
	Name            *string `json:"name" validate:"omitempty,max=100"`
	Email           *string `json:"email" validate:"omitempty,email"`
	Password        *string `json:"password"`
	PasswordConfirm *string `json:"passwordConfirm"`
}

// PasswordChangeInput is the change-password form of a logged in user.
type PasswordChangeInput struct {
	PasswordCurrent string `json:"passwordCurrent" validate:"required"`
	Password        string `json:"password" validate:"required,min=8,max=72"`
	PasswordConfirm string `json:"passwordConfirm" validate:"required,eqfield=Password"`
}

// Users manages accounts: self-service for everyone, plus an admin view.
type Users struct {
	users      UserRepo
	reviews    ReviewRepo
	images     Images
	ratings    Recomputer
	mailer     mail.Sender
	profileURL string
}

// NewUsers creates the user service. profileURL is linked from the welcome email.
func NewUsers(users UserRepo, reviews ReviewRepo, images Images, ratings Recomputer, mailer mail.Sender, profileURL string) *Users {
	return &Users{
		users:      users,
		reviews:    reviews,
		images:     images,
		ratings:    ratings,
		mailer:     mailer,
		profileURL: profileURL,
	}
}

// Signup registers a regular user and sends a welcome email. A failed
// email does not fail the signup.
func (s *Users) Signup(ctx context.Context, in SignupInput, photo *media.Upload) (*models.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)
	if err := check(in); err != nil {
		return nil, err
	}

	var filename string
	if photo != nil {
		name, err := s.images.Save(ctx, media.Users, "", *photo)
		if err != nil {
			return nil, err
		}
		filename = name
	}

	u, err := s.users.Create(ctx, store.NewUser{
		Name:     in.Name,
		Email:    in.Email,
		Password: in.Password,
		Photo:    filename,
		Role:     models.RoleUser,
	})
	if err != nil {
		s.removePhoto(ctx, filename)
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.Conflictf("email %s is already in use", in.Email)
		}
		return nil, apperr.Wrap(err, "could not create account")
	}

	msg, err := mail.Welcome(u.Email, u.Name, s.profileURL)
	if err == nil {
		err = s.mailer.Send(ctx, msg)
	}
	if err != nil {
		slog.Warn("welcome email not sent", "user_id", u.ID, "error", err)
	}
	return u, nil
}

// Me returns the principal's account.
func (s *Users) Me(ctx context.Context, p *policy.Principal) (*models.User, error) {
	if err := policy.RequireAuthenticated(p); err != nil {
		return nil, err
	}
	u, err := s.users.FindByID(ctx, p.ID)
	if err != nil {
		return nil, apperr.Wrap(err, "could not load account")
	}
	if u == nil {
		return nil, apperr.Unauthenticatedf("the user belonging to this session no longer exists")
	}
	return u, nil
}

// UpdateMe changes name, email or photo. The previous photo is removed
// once the new profile is stored.
func (s *Users) UpdateMe(ctx context.Context, p *policy.Principal, in UpdateMeInput, photo *media.Upload) (*models.User, error) {
	if err := policy.RequireAuthenticated(p); err != nil {
		return nil, err
	}
	if in.Password != nil || in.PasswordConfirm != nil {
		return nil, apperr.Validationf("this route is not for password updates, please use /updateMyPassword")
	}
	in.Name = trimmed(in.Name)
	if in.Email != nil {
		email := normalizeEmail(*in.Email)
		in.Email = &email
	}

	var empty map[string]string
	if in.Name != nil && *in.Name == "" {
		empty = map[string]string{"name": "must not be empty"}
	}
	if err := merge(check(in), empty); err != nil {
		return nil, err
	}

	u, err := s.Me(ctx, p)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		u.Name = *in.Name
	}
	if in.Email != nil {
		u.Email = *in.Email
	}

	oldPhoto := ""
	newPhoto := ""
	if photo != nil {
		name, err := s.images.Save(ctx, media.Users, "", *photo)
		if err != nil {
			return nil, err
		}
		oldPhoto, newPhoto = u.Photo, name
		u.Photo = name
	}

	if err := s.users.UpdateProfile(ctx, u); err != nil {
		s.removePhoto(ctx, newPhoto)
		switch {
		case errors.Is(err, store.ErrDuplicate):
			return nil, apperr.Conflictf("email %s is already in use", u.Email)
		case errors.Is(err, store.ErrNotFound):
			return nil, apperr.Unauthenticatedf("the user belonging to this session no longer exists")
		}
		return nil, apperr.Wrap(err, "could not update account")
	}

	s.removePhoto(ctx, oldPhoto)
	return u, nil
}

// UpdatePassword changes the principal's password after checking the
// current one. Existing sessions stop being honoured.
func (s *Users) UpdatePassword(ctx context.Context, p *policy.Principal, in PasswordChangeInput) error {
	if err := policy.RequireAuthenticated(p); err != nil {
		return err
	}
	if err := check(in); err != nil {
		return err
	}

	u, err := s.Me(ctx, p)
	if err != nil {
		return err
	}
	if !store.CheckPassword(u, in.PasswordCurrent) {
		return apperr.Unauthenticatedf("your current password is wrong")
	}

	if err := s.users.SetPassword(ctx, u.ID, in.Password); err != nil {
		return apperr.Wrap(err, "could not update password")
	}
	return nil
}

// DeleteMe removes the principal's account after confirming the password.
func (s *Users) DeleteMe(ctx context.Context, p *policy.Principal, password string) error {
	u, err := s.Me(ctx, p)
	if err != nil {
		return err
	}
	if !store.CheckPassword(u, password) {
		return apperr.Unauthenticatedf("your password is wrong")
	}
	return s.remove(ctx, u)
}

// List returns every account. Admins only.
func (s *Users) List(ctx context.Context, p *policy.Principal, q *query.Query) ([]models.User, error) {
	if err := policy.RequireRole(p, models.RoleAdmin); err != nil {
		return nil, err
	}
	items, err := s.users.List(ctx, q)
	if err != nil {
		return nil, apperr.Wrap(err, "could not list users")
	}
	return items, nil
}

// Get returns any account. Admins only.
func (s *Users) Get(ctx context.Context, p *policy.Principal, id uuid.UUID) (*models.User, error) {
	if err := policy.RequireRole(p, models.RoleAdmin); err != nil {
		return nil, err
	}
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, apperr.Wrap(err, "could not load user")
	}
	if u == nil {
		return nil, apperr.NotFoundf("no user found with that ID")
	}
	return u, nil
}

// Delete removes any account. Admins only.
func (s *Users) Delete(ctx context.Context, p *policy.Principal, id uuid.UUID) error {
	u, err := s.Get(ctx, p, id)
	if err != nil {
		return err
	}
	return s.remove(ctx, u)
}

// remove deletes u with its reviews and photo, then refreshes the rating
// of every post u had reviewed.
func (s *Users) remove(ctx context.Context, u *models.User) error {
	reviewed, err := s.reviews.PostIDsByUser(ctx, u.ID)
	if err != nil {
		return apperr.Wrap(err, "could not load reviews")
	}

	if err := s.users.Delete(ctx, u.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFoundf("no user found with that ID")
		}
		return apperr.Wrap(err, "could not delete account")
	}

	s.removePhoto(ctx, u.Photo)
	for _, postID := range reviewed {
		s.ratings.Recompute(ctx, postID)
	}
	return nil
}

func (s *Users) removePhoto(ctx context.Context, filename string) {
	if err := s.images.Remove(ctx, media.Users, filename); err != nil {
		slog.Warn("user photo not removed", "file", filename, "error", err)
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
