// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"net/http"
	"strings"
	"testing"

	"github.com/google/uuid"

	"classifieds/internal/apperr"
	"classifieds/internal/models"
)

func newTestAuth(users *fakeUsers, identity *fakeIdentity, sessions *fakeSessions) *Auth {
	return NewAuth(users, identity, sessions, "https://classifieds.test/")
}

func TestLoginIssuesSession(t *testing.T) {
	u := &models.User{ID: uuid.New(), Name: "Ana", Email: "ana@example.com", Role: models.RoleUser, PasswordHash: "secret-hash"}
	identity := &fakeIdentity{user: u}
	sessions := &fakeSessions{}
	a := newTestAuth(&fakeUsers{}, identity, sessions)

	body := jsonBody(t, map[string]string{"email": "ana@example.com", "password": "password123", "code": "123456"})
	rec := call(t, http.MethodPost, "/login", "/login", a.Login, body, "application/json", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}

	env := decode(t, rec)
	if env.Token != "session-token" {
		t.Errorf("token = %q", env.Token)
	}
	if _, ok := env.Data["user"]; !ok {
		t.Error("data.user missing")
	}
	if sessions.created == nil || sessions.created.UserID != u.ID || sessions.created.Role != models.RoleUser {
		t.Errorf("session data = %+v", sessions.created)
	}
	if identity.login.Code != "123456" {
		t.Errorf("2FA code not forwarded: %+v", identity.login)
	}
	if got := rec.Body.String(); strings.Contains(got, "secret-hash") {
		t.Error("password hash leaked into response")
	}
}

func TestLoginFailureIssuesNoSession(t *testing.T) {
	identity := &fakeIdentity{err: apperr.Unauthenticatedf("incorrect email or password")}
	sessions := &fakeSessions{}
	a := newTestAuth(&fakeUsers{}, identity, sessions)

	body := jsonBody(t, map[string]string{"email": "ana@example.com", "password": "nope"})
	rec := call(t, http.MethodPost, "/login", "/login", a.Login, body, "application/json", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
	if sessions.created != nil {
		t.Error("session created on failed login")
	}
}

func TestSignup(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		users := &fakeUsers{}
		sessions := &fakeSessions{}
		a := newTestAuth(users, &fakeIdentity{}, sessions)

		body := jsonBody(t, map[string]string{
			"name": "Ana", "email": "ana@example.com",
			"password": "password123", "passwordConfirm": "password123",
			"role": "admin",
		})
		rec := call(t, http.MethodPost, "/signup", "/signup", a.Signup, body, "application/json", nil)
		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
		}
		if sessions.created == nil || sessions.created.Role != models.RoleUser {
			t.Errorf("session = %+v, want user role", sessions.created)
		}
		if users.photo != nil {
			t.Error("no photo was uploaded")
		}
	})

	t.Run("multipart with photo", func(t *testing.T) {
		users := &fakeUsers{}
		a := newTestAuth(users, &fakeIdentity{}, &fakeSessions{})

		body, ct := multipartForm(t,
			map[string]string{"name": "Bo", "email": "bo@example.com", "password": "password123", "passwordConfirm": "password123"},
			map[string][]string{"photo": {"me.png"}},
		)
		rec := call(t, http.MethodPost, "/signup", "/signup", a.Signup, body, ct, nil)
		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
		}
		if users.signup.Email != "bo@example.com" || users.signup.PasswordConfirm != "password123" {
			t.Errorf("signup input = %+v", users.signup)
		}
		if users.photo == nil || users.photo.Filename != "me.png" {
			t.Errorf("photo = %+v", users.photo)
		}
	})
}

func TestLogout(t *testing.T) {
	sessions := &fakeSessions{}
	a := newTestAuth(&fakeUsers{}, &fakeIdentity{}, sessions)

	rec := call(t, http.MethodPost, "/logout", "/logout", a.Logout, nil, "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
	if !sessions.destroyed {
		t.Error("session not destroyed")
	}
}

func TestForgotPasswordBuildsResetURL(t *testing.T) {
	identity := &fakeIdentity{}
	a := newTestAuth(&fakeUsers{}, identity, &fakeSessions{})

	body := jsonBody(t, map[string]string{"email": "ana@example.com"})
	rec := call(t, http.MethodPatch, "/forgotPassword", "/forgotPassword", a.ForgotPassword, body, "application/json", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	want := "https://classifieds.test/api/v1/users/resetPassword/abc123"
	if identity.resetURL != want {
		t.Errorf("reset URL = %q, want %q", identity.resetURL, want)
	}
}

func TestResetPasswordSignsIn(t *testing.T) {
	u := &models.User{ID: uuid.New(), Role: models.RoleUser}
	identity := &fakeIdentity{user: u}
	sessions := &fakeSessions{}
	a := newTestAuth(&fakeUsers{}, identity, sessions)

	body := jsonBody(t, map[string]string{"password": "newpassword", "passwordConfirm": "newpassword"})
	rec := call(t, http.MethodPatch, "/resetPassword/{token}", "/resetPassword/tok-1", a.ResetPassword, body, "application/json", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	if identity.token != "tok-1" {
		t.Errorf("token = %q", identity.token)
	}
	if sessions.created == nil || sessions.created.UserID != u.ID {
		t.Error("reset should open a session")
	}
}

func TestUpdateMyPasswordEndsSession(t *testing.T) {
	users := &fakeUsers{}
	sessions := &fakeSessions{}
	a := newTestAuth(users, &fakeIdentity{}, sessions)

	body := jsonBody(t, map[string]string{"passwordCurrent": "old", "password": "newpassword", "passwordConfirm": "newpassword"})
	rec := call(t, http.MethodPatch, "/updateMyPassword", "/updateMyPassword", a.UpdateMyPassword, body, "application/json", userP)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if users.password.PasswordCurrent != "old" || users.caller != userP {
		t.Errorf("input = %+v", users.password)
	}
	if !sessions.destroyed {
		t.Error("session should be destroyed after a password change")
	}
}

func TestDeleteMyAccount(t *testing.T) {
	users := &fakeUsers{}
	sessions := &fakeSessions{}
	a := newTestAuth(users, &fakeIdentity{}, sessions)

	body := jsonBody(t, map[string]string{"password": "password123"})
	rec := call(t, http.MethodDelete, "/deleteMyAccount", "/deleteMyAccount", a.DeleteMyAccount, body, "application/json", userP)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}
	if users.deletePw != "password123" || !sessions.destroyed {
		t.Errorf("deletePw = %q destroyed = %v", users.deletePw, sessions.destroyed)
	}
}

func TestTwoFactorEndpoints(t *testing.T) {
	identity := &fakeIdentity{}
	a := newTestAuth(&fakeUsers{}, identity, &fakeSessions{})

	rec := call(t, http.MethodPost, "/2fa/setup", "/2fa/setup", a.TwoFactorSetup, nil, "", userP)
	if rec.Code != http.StatusOK {
		t.Fatalf("setup status = %d", rec.Code)
	}
	if _, ok := decode(t, rec).Data["twoFactor"]; !ok {
		t.Error("data.twoFactor missing")
	}

	rec = call(t, http.MethodPost, "/2fa/enable", "/2fa/enable", a.TwoFactorEnable,
		jsonBody(t, map[string]string{"code": "654321"}), "application/json", userP)
	if rec.Code != http.StatusOK || identity.code != "654321" {
		t.Errorf("enable status = %d code = %q", rec.Code, identity.code)
	}

	identity.err = apperr.Unauthenticatedf("incorrect password")
	rec = call(t, http.MethodPost, "/2fa/disable", "/2fa/disable", a.TwoFactorDisable,
		jsonBody(t, map[string]string{"password": "wrong"}), "application/json", userP)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("disable status = %d, want 401", rec.Code)
	}
}
