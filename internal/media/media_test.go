// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package media

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"classifieds/internal/apperr"
	"classifieds/internal/models"
	"classifieds/internal/storage"
)

func newTestPipeline(t *testing.T) (*Pipeline, *storage.Local) {
	t.Helper()
	local, err := storage.NewLocal(t.TempDir(), "")
	require.NoError(t, err)
	p := NewPipeline(local)
	p.now = func() time.Time { return time.UnixMilli(1700000000123) }
	p.token = func() string { return "a1b2c3" }
	return p, local
}

func samplePNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 48))
	for x := 0; x < 64; x++ {
		img.Set(x, x%48, color.RGBA{200, 10, 10, 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestFilename(t *testing.T) {
	at := time.UnixMilli(1700000000123)
	assert.Equal(t, "post-1700000000123-a1b2c3-cover.jpeg", Filename(Posts, at, "a1b2c3", "cover"))
	assert.Equal(t, "post-1700000000123-a1b2c3-2.jpeg", Filename(Posts, at, "a1b2c3", "2"))
	assert.Equal(t, "user-1700000000123-a1b2c3.jpeg", Filename(Users, at, "a1b2c3", ""))
	assert.Equal(t, "images/users/user-1.jpeg", Key(Users, "user-1.jpeg"))
}

func TestSaveSameInstantDistinctNames(t *testing.T) {
	local, err := storage.NewLocal(t.TempDir(), "")
	require.NoError(t, err)
	p := NewPipeline(local)
	p.now = func() time.Time { return time.UnixMilli(1700000000123) }
	ctx := context.Background()

	first, err := p.Save(ctx, Users, "", Upload{Filename: "a.png", Data: samplePNG(t)})
	require.NoError(t, err)
	second, err := p.Save(ctx, Users, "", Upload{Filename: "b.png", Data: samplePNG(t)})
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	for _, name := range []string{first, second} {
		rc, err := local.Get(ctx, Key(Users, name))
		require.NoError(t, err, name)
		rc.Close()
	}
	assert.Len(t, NewToken(), 12)
}

func TestSaveResizesAndStores(t *testing.T) {
	p, local := newTestPipeline(t)
	ctx := context.Background()

	name, err := p.Save(ctx, Users, "", Upload{Filename: "me.png", Data: samplePNG(t)})
	require.NoError(t, err)
	assert.Equal(t, "user-1700000000123-a1b2c3.jpeg", name)

	rc, err := local.Get(ctx, Key(Users, name))
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)

	img, err := jpeg.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 500, img.Bounds().Dx())
	assert.Equal(t, 500, img.Bounds().Dy())
}

func TestSaveRejectsNonImages(t *testing.T) {
	p, _ := newTestPipeline(t)

	tests := []struct {
		name string
		data []byte
	}{
		{name: "text", data: []byte("hello, this is plain text")},
		{name: "pdf", data: []byte("%PDF-1.4 fake document")},
		{name: "empty", data: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Save(context.Background(), Posts, "cover", Upload{Filename: tt.name, Data: tt.data})
			require.Error(t, err)
			assert.Equal(t, apperr.Validation, apperr.KindOf(err))
		})
	}
}

func TestRemove(t *testing.T) {
	p, local := newTestPipeline(t)
	ctx := context.Background()

	name, err := p.Save(ctx, Posts, "cover", Upload{Filename: "c.png", Data: samplePNG(t)})
	require.NoError(t, err)

	require.NoError(t, p.Remove(ctx, Posts, name))
	_, err = local.Get(ctx, Key(Posts, name))
	assert.ErrorIs(t, err, storage.ErrNotExist)
}

func TestRemoveKeepsDefaultAvatar(t *testing.T) {
	p, local := newTestPipeline(t)
	ctx := context.Background()

	key := Key(Users, models.DefaultPhoto)
	require.NoError(t, local.Put(ctx, key, bytes.NewReader([]byte("png")), 3, "image/png"))

	require.NoError(t, p.Remove(ctx, Users, models.DefaultPhoto))

	rc, err := local.Get(ctx, key)
	require.NoError(t, err)
	rc.Close()
}
