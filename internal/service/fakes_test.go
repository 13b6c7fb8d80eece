// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package service

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"classifieds/internal/mail"
	"classifieds/internal/media"
	"classifieds/internal/models"
	"classifieds/internal/policy"
	"classifieds/internal/query"
	"classifieds/internal/rating"
	"classifieds/internal/store"
)

// memDB is an in-memory stand-in for the Postgres stores. It mirrors their
// contracts: reads return nil for missing rows, mutations return
// store.ErrNotFound, and constraint violations map to the store sentinels.
type memDB struct {
	mu         sync.Mutex
	users      map[uuid.UUID]*models.User
	categories map[uuid.UUID]*models.Category
	posts      map[uuid.UUID]*models.Post
	reviews    map[uuid.UUID]*models.Review
	clock      time.Time
}

func newMemDB() *memDB {
	return &memDB{
		users:      map[uuid.UUID]*models.User{},
		categories: map[uuid.UUID]*models.Category{},
		posts:      map[uuid.UUID]*models.Post{},
		reviews:    map[uuid.UUID]*models.Review{},
		clock:      time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (db *memDB) tick() time.Time {
	db.clock = db.clock.Add(time.Second)
	return db.clock
}

type memCategories struct{ *memDB }

func (m memCategories) List(_ context.Context, _ *query.Query) ([]models.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := []models.Category{}
	for _, c := range m.categories {
		items = append(items, *c)
	}
	slices.SortFunc(items, func(a, b models.Category) int { return cmp.Compare(a.Name, b.Name) })
	return items, nil
}

func (m memCategories) Navbar(ctx context.Context, limit int) ([]models.Category, error) {
	items, _ := m.List(ctx, nil)
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (m memCategories) FindByID(_ context.Context, id uuid.UUID) (*models.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.categories[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (m memCategories) nameTaken(name string, except uuid.UUID) bool {
	for _, c := range m.categories {
		if c.Name == name && c.ID != except {
			return true
		}
	}
	return false
}

func (m memCategories) Create(_ context.Context, name string) (*models.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.nameTaken(name, uuid.Nil) {
		return nil, fmt.Errorf("create category: %w", store.ErrDuplicate)
	}
	c := &models.Category{ID: uuid.New(), Name: name, CreatedAt: m.tick()}
	m.categories[c.ID] = c
	cp := *c
	return &cp, nil
}

func (m memCategories) Update(_ context.Context, id uuid.UUID, name string) (*models.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.categories[id]
	if !ok {
		return nil, nil
	}
	if m.nameTaken(name, id) {
		return nil, fmt.Errorf("update category: %w", store.ErrDuplicate)
	}
	c.Name = name
	cp := *c
	return &cp, nil
}

func (m memCategories) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.categories[id]; !ok {
		return fmt.Errorf("delete category: %w", store.ErrNotFound)
	}
	delete(m.categories, id)
	for _, p := range m.posts {
		if p.CategoryID != nil && *p.CategoryID == id {
			p.CategoryID = nil
		}
	}
	return nil
}

type memPosts struct{ *memDB }

func (m memPosts) List(_ context.Context, _ *query.Query, scope ...query.Cond) ([]models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := []models.Post{}
	for _, p := range m.posts {
		if len(scope) > 0 {
			id, _ := scope[0].Value.(uuid.UUID)
			if p.CategoryID == nil || *p.CategoryID != id {
				continue
			}
		}
		items = append(items, *p)
	}
	slices.SortFunc(items, func(a, b models.Post) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return items, nil
}

func (m memPosts) FindByID(_ context.Context, id uuid.UUID) (*models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	cp.Images = slices.Clone(p.Images)
	return &cp, nil
}

func (m memPosts) checkCategory(p *models.Post) error {
	if p.CategoryID == nil {
		return nil
	}
	if _, ok := m.categories[*p.CategoryID]; !ok {
		return store.ErrInvalidReference
	}
	return nil
}

// checkTitle mirrors the unique index on posts.title.
func (m memPosts) checkTitle(p *models.Post) error {
	for id, other := range m.posts {
		if id != p.ID && other.Title == p.Title {
			return store.ErrDuplicate
		}
	}
	return nil
}

func (m memPosts) Create(_ context.Context, p *models.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkCategory(p); err != nil {
		return fmt.Errorf("create post: %w", err)
	}
	if err := m.checkTitle(p); err != nil {
		return fmt.Errorf("create post: %w", err)
	}
	p.ID = uuid.New()
	p.CreatedAt = m.tick()
	p.RatingsAverage, p.RatingsQuantity = rating.Unrated.Average, rating.Unrated.Quantity
	cp := *p
	m.posts[p.ID] = &cp
	return nil
}

func (m memPosts) Update(_ context.Context, p *models.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.posts[p.ID]
	if !ok {
		return fmt.Errorf("update post: %w", store.ErrNotFound)
	}
	if err := m.checkCategory(p); err != nil {
		return fmt.Errorf("update post: %w", err)
	}
	if err := m.checkTitle(p); err != nil {
		return fmt.Errorf("update post: %w", err)
	}
	p.RatingsAverage, p.RatingsQuantity = cur.RatingsAverage, cur.RatingsQuantity
	cp := *p
	cp.Reviews = nil
	m.posts[p.ID] = &cp
	return nil
}

func (m memPosts) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.posts[id]; !ok {
		return fmt.Errorf("delete post: %w", store.ErrNotFound)
	}
	delete(m.posts, id)
	for rid, r := range m.reviews {
		if r.PostID == id {
			delete(m.reviews, rid)
		}
	}
	return nil
}

func (m memPosts) UpdateRatings(_ context.Context, postID uuid.UUID, fn func(rating.Stats) rating.Aggregate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[postID]
	if !ok {
		return nil
	}
	var sum, n int
	for _, r := range m.reviews {
		if r.PostID == postID {
			sum += r.Rating
			n++
		}
	}
	var s rating.Stats
	if n > 0 {
		s = rating.Stats{Mean: float64(sum) / float64(n), Count: n}
	}
	agg := fn(s)
	p.RatingsAverage, p.RatingsQuantity = agg.Average, agg.Quantity
	return nil
}

type memReviews struct{ *memDB }

func (m memReviews) withAuthor(r *models.Review) models.Review {
	cp := *r
	if u, ok := m.users[r.UserID]; ok {
		cp.AuthorName, cp.AuthorPhoto = u.Name, u.Photo
	}
	return cp
}

func (m memReviews) List(ctx context.Context, postID uuid.UUID, _ *query.Query) ([]models.Review, error) {
	return m.ListByPost(ctx, postID)
}

func (m memReviews) ListByPost(_ context.Context, postID uuid.UUID) ([]models.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := []models.Review{}
	for _, r := range m.reviews {
		if r.PostID == postID {
			items = append(items, m.withAuthor(r))
		}
	}
	slices.SortFunc(items, func(a, b models.Review) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return items, nil
}

func (m memReviews) FindByID(_ context.Context, id uuid.UUID) (*models.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reviews[id]
	if !ok {
		return nil, nil
	}
	cp := m.withAuthor(r)
	return &cp, nil
}

func (m memReviews) Create(_ context.Context, r *models.Review) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.posts[r.PostID]; !ok {
		return fmt.Errorf("create review: %w", store.ErrInvalidReference)
	}
	for _, existing := range m.reviews {
		if existing.PostID == r.PostID && existing.UserID == r.UserID {
			return fmt.Errorf("create review: %w", store.ErrDuplicate)
		}
	}
	r.ID = uuid.New()
	r.CreatedAt = m.tick()
	r.UpdatedAt = r.CreatedAt
	cp := *r
	m.reviews[r.ID] = &cp
	*r = m.withAuthor(&cp)
	return nil
}

func (m memReviews) Update(_ context.Context, r *models.Review) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.reviews[r.ID]
	if !ok {
		return fmt.Errorf("update review: %w", store.ErrNotFound)
	}
	cur.Review, cur.Rating, cur.UpdatedAt = r.Review, r.Rating, m.tick()
	return nil
}

func (m memReviews) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.reviews[id]; !ok {
		return fmt.Errorf("delete review: %w", store.ErrNotFound)
	}
	delete(m.reviews, id)
	return nil
}

func (m memReviews) DeleteByPost(_ context.Context, postID uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, r := range m.reviews {
		if r.PostID == postID {
			delete(m.reviews, id)
			n++
		}
	}
	return n, nil
}

func (m memReviews) PostIDsByUser(_ context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []uuid.UUID
	for _, r := range m.reviews {
		if r.UserID == userID && !slices.Contains(ids, r.PostID) {
			ids = append(ids, r.PostID)
		}
	}
	return ids, nil
}

type memUsers struct{ *memDB }

func (m memUsers) find(match func(*models.User) bool) *models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if match(u) {
			cp := *u
			return &cp
		}
	}
	return nil
}

func (m memUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	return m.find(func(u *models.User) bool { return u.Email == email }), nil
}

func (m memUsers) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	return m.find(func(u *models.User) bool { return u.ID == id }), nil
}

func (m memUsers) List(_ context.Context, _ *query.Query) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := []models.User{}
	for _, u := range m.users {
		items = append(items, *u)
	}
	slices.SortFunc(items, func(a, b models.User) int { return cmp.Compare(a.Name, b.Name) })
	return items, nil
}

func (m memUsers) Create(_ context.Context, in store.NewUser) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.MinCost)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == in.Email {
			return nil, fmt.Errorf("create user: %w", store.ErrDuplicate)
		}
	}
	if in.Photo == "" {
		in.Photo = models.DefaultPhoto
	}
	if in.Role == "" {
		in.Role = models.RoleUser
	}
	u := &models.User{
		ID:           uuid.New(),
		Name:         in.Name,
		Email:        in.Email,
		Photo:        in.Photo,
		Role:         in.Role,
		PasswordHash: string(hash),
		CreatedAt:    m.tick(),
	}
	m.users[u.ID] = u
	cp := *u
	return &cp, nil
}

func (m memUsers) mutate(op string, id uuid.UUID, fn func(*models.User)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return fmt.Errorf("%s: %w", op, store.ErrNotFound)
	}
	fn(u)
	return nil
}

func (m memUsers) UpdateProfile(_ context.Context, in *models.User) error {
	if other := m.find(func(u *models.User) bool { return u.Email == in.Email && u.ID != in.ID }); other != nil {
		return fmt.Errorf("update profile: %w", store.ErrDuplicate)
	}
	return m.mutate("update profile", in.ID, func(u *models.User) {
		u.Name, u.Email, u.Photo = in.Name, in.Email, in.Photo
	})
}

func (m memUsers) SetPassword(_ context.Context, id uuid.UUID, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return err
	}
	return m.mutate("set password", id, func(u *models.User) {
		now := time.Now().Add(-time.Second)
		u.PasswordHash = string(hash)
		u.PasswordChangedAt = &now
		u.PasswordResetToken, u.PasswordResetExpires = nil, nil
	})
}

func (m memUsers) RedeemResetToken(_ context.Context, tokenHash, password string) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	for _, u := range m.users {
		if u.PasswordResetToken == nil || *u.PasswordResetToken != tokenHash ||
			u.PasswordResetExpires == nil || !u.PasswordResetExpires.After(now) {
			continue
		}
		changed := now.Add(-time.Second)
		u.PasswordHash = string(hash)
		u.PasswordChangedAt = &changed
		u.PasswordResetToken, u.PasswordResetExpires = nil, nil
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (m memUsers) SetResetToken(_ context.Context, id uuid.UUID, tokenHash string, expires time.Time) error {
	return m.mutate("set reset token", id, func(u *models.User) {
		u.PasswordResetToken, u.PasswordResetExpires = &tokenHash, &expires
	})
}

func (m memUsers) ClearResetToken(_ context.Context, id uuid.UUID) error {
	return m.mutate("clear reset token", id, func(u *models.User) {
		u.PasswordResetToken, u.PasswordResetExpires = nil, nil
	})
}

func (m memUsers) SetTOTPSecret(_ context.Context, id uuid.UUID, secret string) error {
	return m.mutate("set totp secret", id, func(u *models.User) { u.TOTPSecret = &secret })
}

func (m memUsers) EnableTOTP(_ context.Context, id uuid.UUID) error {
	return m.mutate("enable totp", id, func(u *models.User) { u.TOTPEnabled = true })
}

func (m memUsers) ResetTOTP(_ context.Context, id uuid.UUID) error {
	return m.mutate("reset totp", id, func(u *models.User) {
		u.TOTPSecret, u.TOTPEnabled = nil, false
	})
}

func (m memUsers) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return fmt.Errorf("delete user: %w", store.ErrNotFound)
	}
	delete(m.users, id)
	for rid, r := range m.reviews {
		if r.UserID == id {
			delete(m.reviews, rid)
		}
	}
	return nil
}

// memImages records stored files by kind directory.
type memImages struct {
	mu        sync.Mutex
	files     map[string]bool
	seq       int
	removeErr error
	saveErr   error
}

func newMemImages() *memImages {
	return &memImages{files: map[string]bool{}}
}

func (m *memImages) Save(_ context.Context, kind media.Kind, suffix string, _ media.Upload) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return "", m.saveErr
	}
	m.seq++
	name := media.Filename(kind, time.UnixMilli(int64(m.seq)), media.NewToken(), suffix)
	m.files[media.Key(kind, name)] = true
	return name, nil
}

func (m *memImages) Remove(_ context.Context, kind media.Kind, filename string) error {
	if filename == "" || filename == models.DefaultPhoto {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.removeErr != nil {
		return m.removeErr
	}
	delete(m.files, media.Key(kind, filename))
	return nil
}

func (m *memImages) has(kind media.Kind, filename string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.files[media.Key(kind, filename)]
}

func (m *memImages) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.files)
}

// countingCache is a map-backed PostCache that counts its calls.
type countingCache struct {
	mu          sync.Mutex
	items       map[uuid.UUID]models.Post
	hits        int
	invalidated int
	flushed     int
}

func newCountingCache() *countingCache {
	return &countingCache{items: map[uuid.UUID]models.Post{}}
}

func (c *countingCache) Get(_ context.Context, id uuid.UUID) (*models.Post, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.items[id]
	if !ok {
		return nil, false
	}
	c.hits++
	return &p, true
}

func (c *countingCache) Set(_ context.Context, p *models.Post) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[p.ID] = *p
}

func (c *countingCache) Invalidate(_ context.Context, id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, id)
	c.invalidated++
}

func (c *countingCache) InvalidateAll(context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.items)
	c.flushed++
}

// recordingMailer keeps every message it is asked to send.
type recordingMailer struct {
	mu   sync.Mutex
	sent []mail.Message
	err  error
}

func (m *recordingMailer) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *recordingMailer) last() (mail.Message, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return mail.Message{}, false
	}
	return m.sent[len(m.sent)-1], true
}

var errBoom = errors.New("boom")

// env wires every service over one memDB, the way the router does over Postgres.
type env struct {
	db     *memDB
	images *memImages
	cache  *countingCache
	mailer *recordingMailer

	categories *Categories
	posts      *Posts
	reviews    *Reviews
	users      *Users
	identity   *Identity
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := newMemDB()
	e := &env{
		db:     db,
		images: newMemImages(),
		cache:  newCountingCache(),
		mailer: &recordingMailer{},
	}

	agg := rating.NewAggregator(memPosts{db})
	agg.OnChange = func(ctx context.Context, id uuid.UUID) { e.cache.Invalidate(ctx, id) }

	e.categories = NewCategories(memCategories{db}, e.cache)
	e.posts = NewPosts(memPosts{db}, memReviews{db}, memCategories{db}, e.images, e.cache)
	e.reviews = NewReviews(memReviews{db}, memPosts{db}, agg)
	e.users = NewUsers(memUsers{db}, memReviews{db}, e.images, agg, e.mailer, "http://localhost:8080/me")
	e.identity = NewIdentity(memUsers{db}, e.mailer, "Classifieds", 10*time.Minute)
	return e
}

// account creates a user directly in the store and returns its principal.
func (e *env) account(t *testing.T, name string, role models.Role) (*models.User, *policy.Principal) {
	t.Helper()
	u, err := memUsers{e.db}.Create(context.Background(), store.NewUser{
		Name:     name,
		Email:    fmt.Sprintf("%s@example.com", name),
		Password: "password123",
		Role:     role,
	})
	if err != nil {
		t.Fatalf("create %s: %v", name, err)
	}
	return u, Principal(u)
}

func (e *env) category(t *testing.T, admin *policy.Principal, name string) *models.Category {
	t.Helper()
	c, err := e.categories.Create(context.Background(), admin, CategoryInput{Name: name})
	if err != nil {
		t.Fatalf("create category %s: %v", name, err)
	}
	return c
}

func (e *env) post(t *testing.T, admin *policy.Principal, title string, price float64, categoryID *uuid.UUID, gallery int) *models.Post {
	t.Helper()
	imgs := PostImages{Cover: &media.Upload{Filename: "cover.jpg"}}
	for i := 0; i < gallery; i++ {
		imgs.Gallery = append(imgs.Gallery, media.Upload{Filename: fmt.Sprintf("g%d.jpg", i)})
	}
	p, err := e.posts.Create(context.Background(), admin, PostInput{
		Title:    ptr(title),
		Category: categoryID,
		Price:    ptr(price),
		Summary:  ptr(title + " for sale"),
	}, imgs)
	if err != nil {
		t.Fatalf("create post %s: %v", title, err)
	}
	return p
}

func ptr[T any](v T) *T { return &v }
