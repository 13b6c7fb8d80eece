// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"classifieds/internal/media"
	"classifieds/internal/middleware"
	"classifieds/internal/models"
	"classifieds/internal/policy"
	"classifieds/internal/render"
	"classifieds/internal/service"
	"classifieds/internal/session"
)

// IdentityService covers login, password recovery and two-factor setup.
type IdentityService interface {
	Login(ctx context.Context, in service.LoginInput) (*models.User, error)
	ForgotPassword(ctx context.Context, email string, resetURL func(token string) string) error
	ResetPassword(ctx context.Context, token string, in service.ResetInput) (*models.User, error)
	SetupTwoFactor(ctx context.Context, p *policy.Principal) (*service.TwoFactorSetup, error)
	EnableTwoFactor(ctx context.Context, p *policy.Principal, code string) error
	DisableTwoFactor(ctx context.Context, p *policy.Principal, password string) error
}

// SessionManager issues and revokes sessions.
type SessionManager interface {
	Create(ctx context.Context, w http.ResponseWriter, data *session.Data) (string, error)
	Destroy(ctx context.Context, w http.ResponseWriter, r *http.Request) error
}

// Auth groups all authentication-related HTTP handlers.
type Auth struct {
	users    UserService
	identity IdentityService
	sessions SessionManager
	baseURL  string
}

// NewAuth creates a new Auth handler group. baseURL prefixes the links
// sent in password reset emails.
func NewAuth(users UserService, identity IdentityService, sessions SessionManager, baseURL string) *Auth {
	return &Auth{
		users:    users,
		identity: identity,
		sessions: sessions,
		baseURL:  strings.TrimRight(baseURL, "/"),
	}
}

// signIn opens a session for u and writes the token with the user.
func (a *Auth) signIn(w http.ResponseWriter, r *http.Request, status int, u *models.User) {
	token, err := a.sessions.Create(r.Context(), w, &session.Data{UserID: u.ID, Role: u.Role})
	if err != nil {
		render.Error(w, r, err)
		return
	}
	render.JSON(w, status, render.Envelope{
		Status: "success",
		Token:  token,
		Data:   map[string]any{"user": u},
	})
}

// Signup handles POST /users/signup with a JSON body or a multipart form
// carrying an optional photo.
func (a *Auth) Signup(w http.ResponseWriter, r *http.Request) {
	var (
		in    service.SignupInput
		photo *media.Upload
	)
	if isMultipart(r) {
		if err := parseMultipart(w, r); err != nil {
			render.Error(w, r, err)
			return
		}
		in.Name = r.FormValue("name")
		in.Email = r.FormValue("email")
		in.Password = r.FormValue("password")
		in.PasswordConfirm = r.FormValue("passwordConfirm")

		var err error
		if photo, err = formFile(r, "photo"); err != nil {
			render.Error(w, r, err)
			return
		}
	} else if err := decodeJSON(w, r, &in); err != nil {
		render.Error(w, r, err)
		return
	}

	u, err := a.users.Signup(r.Context(), in, photo)
	if err != nil {
		render.Error(w, r, err)
		return
	}
	a.signIn(w, r, http.StatusCreated, u)
}

// Login handles POST /users/login.
func (a *Auth) Login(w http.ResponseWriter, r *http.Request) {
	var in service.LoginInput
	if err := decodeJSON(w, r, &in); err != nil {
		render.Error(w, r, err)
		return
	}
	u, err := a.identity.Login(r.Context(), in)
	if err != nil {
		render.Error(w, r, err)
		return
	}
	a.signIn(w, r, http.StatusOK, u)
}

// Logout handles POST /users/logout. Logging out without a session is
// not an error.
func (a *Auth) Logout(w http.ResponseWriter, r *http.Request) {
	if err := a.sessions.Destroy(r.Context(), w, r); err != nil {
		slog.Warn("session destroy failed", "error", err)
	}
	render.OK(w, http.StatusOK, nil)
}

// ForgotPassword handles PATCH /users/forgotPassword.
func (a *Auth) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email string `json:"email"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		render.Error(w, r, err)
		return
	}
	resetURL := func(token string) string {
		return a.baseURL + "/api/v1/users/resetPassword/" + token
	}
	if err := a.identity.ForgotPassword(r.Context(), body.Email, resetURL); err != nil {
		render.Error(w, r, err)
		return
	}
	render.JSON(w, http.StatusOK, render.Envelope{Status: "success", Message: "token sent to email"})
}

// ResetPassword handles PATCH /users/resetPassword/{token} and signs the
// user in with the new password.
func (a *Auth) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var in service.ResetInput
	if err := decodeJSON(w, r, &in); err != nil {
		render.Error(w, r, err)
		return
	}
	u, err := a.identity.ResetPassword(r.Context(), chi.URLParam(r, "token"), in)
	if err != nil {
		render.Error(w, r, err)
		return
	}
	a.signIn(w, r, http.StatusOK, u)
}

// UpdateMyPassword handles PATCH /users/updateMyPassword. Existing
// sessions stop being valid, so the current one is closed as well.
func (a *Auth) UpdateMyPassword(w http.ResponseWriter, r *http.Request) {
	var in service.PasswordChangeInput
	if err := decodeJSON(w, r, &in); err != nil {
		render.Error(w, r, err)
		return
	}
	if err := a.users.UpdatePassword(r.Context(), middleware.PrincipalFromCtx(r.Context()), in); err != nil {
		render.Error(w, r, err)
		return
	}
	if err := a.sessions.Destroy(r.Context(), w, r); err != nil {
		slog.Warn("session destroy failed", "error", err)
	}
	render.JSON(w, http.StatusOK, render.Envelope{
		Status:  "success",
		Message: "password updated, please log in again",
	})
}

// DeleteMyAccount handles DELETE /users/deleteMyAccount. The current
// password must be confirmed in the body.
func (a *Auth) DeleteMyAccount(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Password string `json:"password"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		render.Error(w, r, err)
		return
	}
	if err := a.users.DeleteMe(r.Context(), middleware.PrincipalFromCtx(r.Context()), body.Password); err != nil {
		render.Error(w, r, err)
		return
	}
	if err := a.sessions.Destroy(r.Context(), w, r); err != nil {
		slog.Warn("session destroy failed", "error", err)
	}
	render.NoContent(w)
}

// TwoFactorSetup handles POST /users/me/2fa/setup. It returns a fresh
// secret and its QR code; 2FA stays off until confirmed with a code.
func (a *Auth) TwoFactorSetup(w http.ResponseWriter, r *http.Request) {
	setup, err := a.identity.SetupTwoFactor(r.Context(), middleware.PrincipalFromCtx(r.Context()))
	if err != nil {
		render.Error(w, r, err)
		return
	}
	render.OK(w, http.StatusOK, map[string]any{"twoFactor": setup})
}

// TwoFactorEnable handles POST /users/me/2fa/enable.
func (a *Auth) TwoFactorEnable(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Code string `json:"code"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		render.Error(w, r, err)
		return
	}
	if err := a.identity.EnableTwoFactor(r.Context(), middleware.PrincipalFromCtx(r.Context()), body.Code); err != nil {
		render.Error(w, r, err)
		return
	}
	render.JSON(w, http.StatusOK, render.Envelope{Status: "success", Message: "two-factor authentication enabled"})
}

// TwoFactorDisable handles POST /users/me/2fa/disable.
func (a *Auth) TwoFactorDisable(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Password string `json:"password"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		render.Error(w, r, err)
		return
	}
	if err := a.identity.DisableTwoFactor(r.Context(), middleware.PrincipalFromCtx(r.Context()), body.Password); err != nil {
		render.Error(w, r, err)
		return
	}
	render.JSON(w, http.StatusOK, render.Envelope{Status: "success", Message: "two-factor authentication disabled"})
}
