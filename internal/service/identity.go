// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/skip2/go-qrcode"

	"classifieds/internal/apperr"
	"classifieds/internal/mail"
	"classifieds/internal/models"
	"classifieds/internal/policy"
	"classifieds/internal/store"
)

// DefaultResetTTL is how long a password reset token stays valid.
const DefaultResetTTL = 10 * time.Minute

// resetTokenBytes is the entropy of a reset token (hex encoded for the client).
const resetTokenBytes = 32

// LoginInput is the login form. Code is the TOTP code and is required only
// for accounts with two-factor authentication enabled.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Code     string `json:"code"`
}

// ResetInput is the form that redeems a reset token.
type ResetInput struct {
	Password        string `json:"password" validate:"required,min=8,max=72"`
	PasswordConfirm string `json:"passwordConfirm" validate:"required,eqfield=Password"`
}

// TwoFactorSetup is returned when a user starts enrolling an authenticator app.
type TwoFactorSetup struct {
	Secret string `json:"secret"`
	URL    string `json:"url"`
	QRCode string `json:"qrCode"` // base64 PNG
}

// Identity authenticates users and runs the password reset and 2FA flows.
type Identity struct {
	users    UserRepo
	mailer   mail.Sender
	issuer   string
	resetTTL time.Duration
	now      func() time.Time
}

// NewIdentity creates the identity service. issuer names the account in
// authenticator apps.
func NewIdentity(users UserRepo, mailer mail.Sender, issuer string, resetTTL time.Duration) *Identity {
	if resetTTL <= 0 {
		resetTTL = DefaultResetTTL
	}
	return &Identity{users: users, mailer: mailer, issuer: issuer, resetTTL: resetTTL, now: time.Now}
}

// Principal returns the policy identity of u.
func Principal(u *models.User) *policy.Principal {
	return &policy.Principal{ID: u.ID, Role: u.Role}
}

// Login checks credentials and, when enabled, the TOTP code.
func (s *Identity) Login(ctx context.Context, in LoginInput) (*models.User, error) {
	in.Email = normalizeEmail(in.Email)
	if err := check(in); err != nil {
		return nil, err
	}

	u, err := s.users.FindByEmail(ctx, in.Email)
	if err != nil {
		return nil, apperr.Wrap(err, "could not log in")
	}
	if u == nil || !store.CheckPassword(u, in.Password) {
		return nil, apperr.Unauthenticatedf("incorrect email or password")
	}

	if u.TOTPEnabled && u.TOTPSecret != nil {
		code := strings.TrimSpace(in.Code)
		if code == "" {
			return nil, apperr.Unauthenticatedf("two-factor code required")
		}
		if !totp.Validate(code, *u.TOTPSecret) {
			return nil, apperr.Unauthenticatedf("invalid two-factor code")
		}
	}
	return u, nil
}

// ForgotPassword emails a single-use reset token to the account holder.
// resetURL builds the link the email points at. Only a hash of the token
// is stored; if the email cannot be sent the token is withdrawn.
func (s *Identity) ForgotPassword(ctx context.Context, email string, resetURL func(token string) string) error {
	email = normalizeEmail(email)
	if email == "" {
		return apperr.InvalidFields(map[string]string{"email": "is required"})
	}

	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return apperr.Wrap(err, "could not start password reset")
	}
	if u == nil {
		return apperr.NotFoundf("there is no user with that email address")
	}

	token, err := newResetToken()
	if err != nil {
		return apperr.Wrap(err, "could not start password reset")
	}
	if err := s.users.SetResetToken(ctx, u.ID, hashToken(token), s.now().Add(s.resetTTL)); err != nil {
		return apperr.Wrap(err, "could not start password reset")
	}

	msg, err := mail.PasswordReset(u.Email, u.Name, resetURL(token), int(s.resetTTL.Minutes()))
	if err == nil {
		err = s.mailer.Send(ctx, msg)
	}
	if err != nil {
		if clearErr := s.users.ClearResetToken(ctx, u.ID); clearErr != nil {
			err = fmt.Errorf("%w (clear token: %v)", err, clearErr)
		}
		return apperr.Wrap(err, "there was an error sending the email, try again later")
	}
	return nil
}

// ResetPassword redeems a reset token and sets the new password. Lookup,
// expiry check and token clearing happen in one write, so a token works
// exactly once.
func (s *Identity) ResetPassword(ctx context.Context, token string, in ResetInput) (*models.User, error) {
	if err := check(in); err != nil {
		return nil, err
	}

	u, err := s.users.RedeemResetToken(ctx, hashToken(token), in.Password)
	if err != nil {
		return nil, apperr.Wrap(err, "could not reset password")
	}
	if u == nil {
		return nil, apperr.Validationf("token is invalid or has expired")
	}
	return u, nil
}

// SetupTwoFactor generates a TOTP secret for the principal and returns it
// with a QR code. 2FA stays off until EnableTwoFactor confirms a code.
func (s *Identity) SetupTwoFactor(ctx context.Context, p *policy.Principal) (*TwoFactorSetup, error) {
	u, err := s.account(ctx, p)
	if err != nil {
		return nil, err
	}
	if u.TOTPEnabled {
		return nil, apperr.Conflictf("two-factor authentication is already enabled")
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.issuer,
		AccountName: u.Email,
	})
	if err != nil {
		return nil, apperr.Wrap(err, "could not generate two-factor secret")
	}

	if err := s.users.SetTOTPSecret(ctx, u.ID, key.Secret()); err != nil {
		return nil, apperr.Wrap(err, "could not save two-factor secret")
	}

	qrPNG, err := qrcode.Encode(key.URL(), qrcode.Medium, 256)
	if err != nil {
		return nil, apperr.Wrap(err, "could not render QR code")
	}

	return &TwoFactorSetup{
		Secret: key.Secret(),
		URL:    key.URL(),
		QRCode: base64.StdEncoding.EncodeToString(qrPNG),
	}, nil
}

// EnableTwoFactor turns 2FA on once the user proves their app works.
func (s *Identity) EnableTwoFactor(ctx context.Context, p *policy.Principal, code string) error {
	u, err := s.account(ctx, p)
	if err != nil {
		return err
	}
	if u.TOTPSecret == nil {
		return apperr.Validationf("two-factor setup has not been started")
	}
	if !totp.Validate(strings.TrimSpace(code), *u.TOTPSecret) {
		return apperr.InvalidFields(map[string]string{"code": "invalid two-factor code"})
	}
	if err := s.users.EnableTOTP(ctx, u.ID); err != nil {
		return apperr.Wrap(err, "could not enable two-factor authentication")
	}
	return nil
}

// DisableTwoFactor turns 2FA off after re-checking the password.
func (s *Identity) DisableTwoFactor(ctx context.Context, p *policy.Principal, password string) error {
	u, err := s.account(ctx, p)
	if err != nil {
		return err
	}
	if !store.CheckPassword(u, password) {
		return apperr.Unauthenticatedf("your password is wrong")
	}
	if err := s.users.ResetTOTP(ctx, u.ID); err != nil {
		return apperr.Wrap(err, "could not disable two-factor authentication")
	}
	return nil
}

func (s *Identity) account(ctx context.Context, p *policy.Principal) (*models.User, error) {
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

func newResetToken() (string, error) {
	b := make([]byte, resetTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// hashToken is the form a reset token takes in the database.
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
