// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// handler_test.go provides shared test infrastructure for the handler tests:
// in-memory service fakes and a helper that routes a single request
// through chi with an optional principal in the context.
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"classifieds/internal/apperr"
	"classifieds/internal/media"
	"classifieds/internal/middleware"
	"classifieds/internal/models"
	"classifieds/internal/policy"
	"classifieds/internal/query"
	"classifieds/internal/service"
	"classifieds/internal/session"
)

var testDefaults = query.Defaults{Limit: 100, MaxLimit: 500}

// call routes one request to h mounted at pattern.
func call(t *testing.T, method, pattern, target string, h http.HandlerFunc, body io.Reader, contentType string, p *policy.Principal) *httptest.ResponseRecorder {
	t.Helper()

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if p != nil {
				req = req.WithContext(context.WithValue(req.Context(), middleware.PrincipalKey, p))
			}
			next.ServeHTTP(w, req)
		})
	})
	r.Method(method, pattern, h)

	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func jsonBody(t *testing.T, v any) io.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	return bytes.NewReader(b)
}

// envelope is the decoded form of a JSON response.
type envelope struct {
	Status  string                     `json:"status"`
	Token   string                     `json:"token"`
	Results *int                       `json:"results"`
	Data    map[string]json.RawMessage `json:"data"`
	Message string                     `json:"message"`
	Errors  map[string]string          `json:"errors"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return env
}

// multipartForm builds a form with the given fields and files; files maps
// a field name to one or more file names.
func multipartForm(t *testing.T, fields map[string]string, files map[string][]string) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	for field, names := range files {
		for _, name := range names {
			fw, err := mw.CreateFormFile(field, name)
			if err != nil {
				t.Fatalf("create form file: %v", err)
			}
			fw.Write([]byte("image-bytes-" + name))
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

var (
	adminP = &policy.Principal{ID: uuid.New(), Role: models.RoleAdmin}
	userP  = &policy.Principal{ID: uuid.New(), Role: models.RoleUser}
)

// --- categories ---

type fakeCategories struct {
	items  []models.Category
	in     service.CategoryInput
	caller *policy.Principal
	err    error
}

func (f *fakeCategories) List(_ context.Context, _ *query.Query) ([]models.Category, error) {
	return f.items, f.err
}

func (f *fakeCategories) Navbar(_ context.Context) ([]models.Category, error) {
	return f.items, f.err
}

func (f *fakeCategories) Get(_ context.Context, id uuid.UUID) (*models.Category, error) {
	if f.err != nil {
		return nil, f.err
	}
	for i := range f.items {
		if f.items[i].ID == id {
			return &f.items[i], nil
		}
	}
	return nil, apperr.NotFoundf("no category found with that id")
}

func (f *fakeCategories) Create(_ context.Context, p *policy.Principal, in service.CategoryInput) (*models.Category, error) {
	f.caller, f.in = p, in
	if f.err != nil {
		return nil, f.err
	}
	return &models.Category{ID: uuid.New(), Name: in.Name}, nil
}

func (f *fakeCategories) Update(_ context.Context, p *policy.Principal, id uuid.UUID, in service.CategoryInput) (*models.Category, error) {
	f.caller, f.in = p, in
	if f.err != nil {
		return nil, f.err
	}
	return &models.Category{ID: id, Name: in.Name}, nil
}

func (f *fakeCategories) Delete(_ context.Context, p *policy.Principal, _ uuid.UUID) error {
	f.caller = p
	return f.err
}

// --- posts ---

type fakePosts struct {
	items  []models.Post
	q      *query.Query
	in     service.PostInput
	imgs   service.PostImages
	caller *policy.Principal
	err    error
}

func (f *fakePosts) List(_ context.Context, q *query.Query) ([]models.Post, error) {
	f.q = q
	return f.items, f.err
}

func (f *fakePosts) ListByCategory(_ context.Context, _ uuid.UUID, q *query.Query) ([]models.Post, error) {
	f.q = q
	return f.items, f.err
}

func (f *fakePosts) Get(_ context.Context, id uuid.UUID) (*models.Post, error) {
	if f.err != nil {
		return nil, f.err
	}
	for i := range f.items {
		if f.items[i].ID == id {
			return &f.items[i], nil
		}
	}
	return nil, apperr.NotFoundf("no post found with that id")
}

func (f *fakePosts) Create(_ context.Context, p *policy.Principal, in service.PostInput, imgs service.PostImages) (*models.Post, error) {
	f.caller, f.in, f.imgs = p, in, imgs
	if f.err != nil {
		return nil, f.err
	}
	post := &models.Post{ID: uuid.New()}
	if in.Title != nil {
		post.Title = *in.Title
	}
	return post, nil
}

func (f *fakePosts) Update(_ context.Context, p *policy.Principal, id uuid.UUID, in service.PostInput, imgs service.PostImages) (*models.Post, error) {
	f.caller, f.in, f.imgs = p, in, imgs
	if f.err != nil {
		return nil, f.err
	}
	return &models.Post{ID: id}, nil
}

func (f *fakePosts) Delete(_ context.Context, p *policy.Principal, _ uuid.UUID) error {
	f.caller = p
	return f.err
}

// --- reviews ---

type fakeReviews struct {
	items    []models.Review
	postID   uuid.UUID
	reviewID uuid.UUID
	in       service.ReviewInput
	caller   *policy.Principal
	err      error
}

func (f *fakeReviews) List(_ context.Context, postID uuid.UUID, _ *query.Query) ([]models.Review, error) {
	f.postID = postID
	return f.items, f.err
}

func (f *fakeReviews) Get(_ context.Context, postID, reviewID uuid.UUID) (*models.Review, error) {
	f.postID, f.reviewID = postID, reviewID
	if f.err != nil {
		return nil, f.err
	}
	return &models.Review{ID: reviewID, PostID: postID}, nil
}

func (f *fakeReviews) Create(_ context.Context, p *policy.Principal, postID uuid.UUID, in service.ReviewInput) (*models.Review, error) {
	f.caller, f.postID, f.in = p, postID, in
	if f.err != nil {
		return nil, f.err
	}
	rv := &models.Review{ID: uuid.New(), PostID: postID}
	if in.Rating != nil {
		rv.Rating = *in.Rating
	}
	return rv, nil
}

func (f *fakeReviews) Update(_ context.Context, p *policy.Principal, postID, reviewID uuid.UUID, in service.ReviewInput) (*models.Review, error) {
	f.caller, f.postID, f.reviewID, f.in = p, postID, reviewID, in
	if f.err != nil {
		return nil, f.err
	}
	return &models.Review{ID: reviewID, PostID: postID}, nil
}

func (f *fakeReviews) Delete(_ context.Context, p *policy.Principal, postID, reviewID uuid.UUID) error {
	f.caller, f.postID, f.reviewID = p, postID, reviewID
	return f.err
}

// --- users ---

type fakeUsers struct {
	user     *models.User
	signup   service.SignupInput
	update   service.UpdateMeInput
	password service.PasswordChangeInput
	deletePw string
	photo    *media.Upload
	caller   *policy.Principal
	err      error
}

func (f *fakeUsers) Signup(_ context.Context, in service.SignupInput, photo *media.Upload) (*models.User, error) {
	f.signup, f.photo = in, photo
	if f.err != nil {
		return nil, f.err
	}
	return &models.User{ID: uuid.New(), Name: in.Name, Email: in.Email, Role: models.RoleUser}, nil
}

func (f *fakeUsers) Me(_ context.Context, p *policy.Principal) (*models.User, error) {
	f.caller = p
	if err := policy.RequireAuthenticated(p); err != nil {
		return nil, err
	}
	return f.user, f.err
}

func (f *fakeUsers) UpdateMe(_ context.Context, p *policy.Principal, in service.UpdateMeInput, photo *media.Upload) (*models.User, error) {
	f.caller, f.update, f.photo = p, in, photo
	if f.err != nil {
		return nil, f.err
	}
	return f.user, nil
}

func (f *fakeUsers) UpdatePassword(_ context.Context, p *policy.Principal, in service.PasswordChangeInput) error {
	f.caller, f.password = p, in
	return f.err
}

func (f *fakeUsers) DeleteMe(_ context.Context, p *policy.Principal, password string) error {
	f.caller, f.deletePw = p, password
	return f.err
}

func (f *fakeUsers) List(_ context.Context, p *policy.Principal, _ *query.Query) ([]models.User, error) {
	f.caller = p
	if err := policy.RequireRole(p, models.RoleAdmin); err != nil {
		return nil, err
	}
	if f.user == nil {
		return nil, f.err
	}
	return []models.User{*f.user}, f.err
}

func (f *fakeUsers) Get(_ context.Context, p *policy.Principal, _ uuid.UUID) (*models.User, error) {
	f.caller = p
	return f.user, f.err
}

func (f *fakeUsers) Delete(_ context.Context, p *policy.Principal, _ uuid.UUID) error {
	f.caller = p
	return f.err
}

// --- identity and sessions ---

type fakeIdentity struct {
	user     *models.User
	login    service.LoginInput
	resetURL string
	token    string
	reset    service.ResetInput
	code     string
	password string
	err      error
}

func (f *fakeIdentity) Login(_ context.Context, in service.LoginInput) (*models.User, error) {
	f.login = in
	return f.user, f.err
}

func (f *fakeIdentity) ForgotPassword(_ context.Context, _ string, resetURL func(string) string) error {
	f.resetURL = resetURL("abc123")
	return f.err
}

func (f *fakeIdentity) ResetPassword(_ context.Context, token string, in service.ResetInput) (*models.User, error) {
	f.token, f.reset = token, in
	return f.user, f.err
}

func (f *fakeIdentity) SetupTwoFactor(_ context.Context, _ *policy.Principal) (*service.TwoFactorSetup, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &service.TwoFactorSetup{Secret: "SECRET", URL: "otpauth://totp/x", QRCode: "cXI="}, nil
}

func (f *fakeIdentity) EnableTwoFactor(_ context.Context, _ *policy.Principal, code string) error {
	f.code = code
	return f.err
}

func (f *fakeIdentity) DisableTwoFactor(_ context.Context, _ *policy.Principal, password string) error {
	f.password = password
	return f.err
}

type fakeSessions struct {
	created   *session.Data
	destroyed bool
}

func (f *fakeSessions) Create(_ context.Context, _ http.ResponseWriter, data *session.Data) (string, error) {
	f.created = data
	return "session-token", nil
}

func (f *fakeSessions) Destroy(_ context.Context, _ http.ResponseWriter, _ *http.Request) error {
	f.destroyed = true
	return nil
}
