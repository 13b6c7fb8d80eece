// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package media turns uploaded image bytes into stored JPEG files named
// <entity>-<unixmillis>-<token>[-suffix].jpeg under images/<kind>/, and removes
// them again when the owning record lets go of them.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"classifieds/internal/apperr"
	"classifieds/internal/imaging"
	"classifieds/internal/models"
	"classifieds/internal/storage"
)

// Kind selects the per-entity directory, filename prefix and output size.
type Kind struct {
	Dir    string
	Prefix string
	Size   imaging.Size
}

var (
	Posts = Kind{Dir: "posts", Prefix: "post", Size: imaging.Size{Width: 2000, Height: 1333, Quality: 90}}
	Users = Kind{Dir: "users", Prefix: "user", Size: imaging.Size{Width: 500, Height: 500, Quality: 90}}
)

// MaxUploadSize bounds a single uploaded file (10 MB).
const MaxUploadSize = 10 << 20

// Upload is one raw file received from a client.
type Upload struct {
	Filename string
	Data     []byte
}

// Pipeline validates, resizes and stores images.
type Pipeline struct {
	store storage.ObjectStorage
	now   func() time.Time
	token func() string
}

// NewPipeline creates a Pipeline writing to store.
func NewPipeline(store storage.ObjectStorage) *Pipeline {
	return &Pipeline{store: store, now: time.Now, token: NewToken}
}

// NewToken returns a short random name component. Two uploads landing in
// the same millisecond never share a key.
func NewToken() string {
	id := uuid.New()
	return fmt.Sprintf("%x", id[:6])
}

// Key returns the storage key of a stored file.
func Key(kind Kind, filename string) string {
	return "images/" + kind.Dir + "/" + filename
}

// Filename builds <prefix>-<unixmillis>-<token>[-suffix].jpeg.
func Filename(kind Kind, at time.Time, token, suffix string) string {
	name := fmt.Sprintf("%s-%d-%s", kind.Prefix, at.UnixMilli(), token)
	if suffix != "" {
		name += "-" + suffix
	}
	return name + ".jpeg"
}

// Save stores up as an image of kind and returns the generated filename.
// Anything that does not sniff as an image is a validation error.
func (p *Pipeline) Save(ctx context.Context, kind Kind, suffix string, up Upload) (string, error) {
	if len(up.Data) == 0 {
		return "", apperr.Validationf("uploaded file %q is empty", up.Filename)
	}
	if len(up.Data) > MaxUploadSize {
		return "", apperr.Validationf("uploaded file %q exceeds %d MB", up.Filename, MaxUploadSize>>20)
	}

	// DetectContentType reads at most the first 512 bytes.
	contentType := http.DetectContentType(up.Data)
	if !strings.HasPrefix(contentType, "image/") {
		return "", apperr.Validationf("not an image, please upload only images")
	}

	out, err := imaging.Cover(up.Data, kind.Size)
	if errors.Is(err, imaging.ErrTooLarge) {
		return "", apperr.Validationf("image %q is too large", up.Filename)
	}
	if err != nil {
		return "", apperr.Validationf("could not process image %q", up.Filename)
	}

	filename := Filename(kind, p.now(), p.token(), suffix)
	if err := p.store.Put(ctx, Key(kind, filename), bytes.NewReader(out), int64(len(out)), "image/jpeg"); err != nil {
		return "", apperr.Wrap(err, "could not store image")
	}
	return filename, nil
}

// Remove deletes a stored file. The shared default avatar is never removed.
func (p *Pipeline) Remove(ctx context.Context, kind Kind, filename string) error {
	if filename == "" || (kind.Dir == Users.Dir && filename == models.DefaultPhoto) {
		return nil
	}
	if err := p.store.Delete(ctx, Key(kind, filename)); err != nil {
		return fmt.Errorf("remove %s: %w", filename, err)
	}
	return nil
}

// URL returns the client-facing address of a stored file.
func (p *Pipeline) URL(kind Kind, filename string) string {
	return p.store.URL(Key(kind, filename))
}
