// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package service implements the resource operations behind the HTTP API.
// Every operation receives the acting principal explicitly and returns
// apperr-classified errors that handlers map onto status codes.
package service

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"classifieds/internal/apperr"
	"classifieds/internal/media"
	"classifieds/internal/models"
	"classifieds/internal/query"
	"classifieds/internal/store"
)

// CategoryRepo persists categories.
type CategoryRepo interface {
	List(ctx context.Context, q *query.Query) ([]models.Category, error)
	Navbar(ctx context.Context, limit int) ([]models.Category, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Category, error)
	Create(ctx context.Context, name string) (*models.Category, error)
	Update(ctx context.Context, id uuid.UUID, name string) (*models.Category, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// PostRepo persists posts.
type PostRepo interface {
	List(ctx context.Context, q *query.Query, scope ...query.Cond) ([]models.Post, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Post, error)
	Create(ctx context.Context, p *models.Post) error
	Update(ctx context.Context, p *models.Post) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// ReviewRepo persists reviews.
type ReviewRepo interface {
	List(ctx context.Context, postID uuid.UUID, q *query.Query) ([]models.Review, error)
	ListByPost(ctx context.Context, postID uuid.UUID) ([]models.Review, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Review, error)
	Create(ctx context.Context, r *models.Review) error
	Update(ctx context.Context, r *models.Review) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByPost(ctx context.Context, postID uuid.UUID) (int64, error)
	PostIDsByUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
}

// UserRepo persists accounts and their credentials.
type UserRepo interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	List(ctx context.Context, q *query.Query) ([]models.User, error)
	Create(ctx context.Context, in store.NewUser) (*models.User, error)
	UpdateProfile(ctx context.Context, u *models.User) error
	SetPassword(ctx context.Context, userID uuid.UUID, password string) error
	SetResetToken(ctx context.Context, userID uuid.UUID, tokenHash string, expires time.Time) error
	RedeemResetToken(ctx context.Context, tokenHash, password string) (*models.User, error)
	ClearResetToken(ctx context.Context, userID uuid.UUID) error
	SetTOTPSecret(ctx context.Context, userID uuid.UUID, secret string) error
	EnableTOTP(ctx context.Context, userID uuid.UUID) error
	ResetTOTP(ctx context.Context, userID uuid.UUID) error
	Delete(ctx context.Context, userID uuid.UUID) error
}

// Images stores and removes uploaded pictures.
type Images interface {
	Save(ctx context.Context, kind media.Kind, suffix string, up media.Upload) (string, error)
	Remove(ctx context.Context, kind media.Kind, filename string) error
}

// PostCache holds fully loaded posts keyed by id.
type PostCache interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Post, bool)
	Set(ctx context.Context, post *models.Post)
	Invalidate(ctx context.Context, id uuid.UUID)
	InvalidateAll(ctx context.Context)
}

// Recomputer refreshes the rating aggregate of a post.
type Recomputer interface {
	Recompute(ctx context.Context, postID uuid.UUID)
}

type noCache struct{}

func (noCache) Get(context.Context, uuid.UUID) (*models.Post, bool) { return nil, false }
func (noCache) Set(context.Context, *models.Post)                   {}
func (noCache) Invalidate(context.Context, uuid.UUID)               {}
func (noCache) InvalidateAll(context.Context)                       {}

var validate = newValidator()

// newValidator reports field errors under their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// check validates in and converts failures into a Validation error with
// one message per field.
func check(in any) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Wrap(err, "could not validate input")
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fieldMessage(fe)
	}
	return apperr.InvalidFields(fields)
}

func fieldMessage(fe validator.FieldError) string {
	text := fe.Kind() == reflect.String
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "eqfield":
		return "does not match"
	case "min":
		if text {
			return "must be at least " + fe.Param() + " characters"
		}
		return "must be at least " + fe.Param()
	case "max":
		if text {
			return "must be at most " + fe.Param() + " characters"
		}
		return "must be at most " + fe.Param()
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	default:
		return "is invalid"
	}
}

// merge folds extra field errors into err, which is nil or an InvalidFields error.
func merge(err error, extra map[string]string) error {
	if len(extra) == 0 {
		return err
	}
	var ae *apperr.Error
	if errors.As(err, &ae) && ae.Fields != nil {
		for k, v := range extra {
			if _, ok := ae.Fields[k]; !ok {
				ae.Fields[k] = v
			}
		}
		return ae
	}
	if err != nil {
		return err
	}
	return apperr.InvalidFields(extra)
}

// blank reports whether a pointer to string is missing or whitespace only.
func blank(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}
