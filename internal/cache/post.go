// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"classifieds/internal/models"
)

const (
	// postKeyPrefix is the Valkey key prefix for cached posts.
	postKeyPrefix = "post:"

	// DefaultPostTTL is how long a post with its reviews stays cached.
	DefaultPostTTL = 5 * time.Minute
)

// PostCache keeps fully loaded posts (reviews embedded) in Valkey.
// Every method degrades to a miss or a no-op when Valkey misbehaves, so
// callers can always fall through to the database.
type PostCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewPostCache creates a post cache backed by the given Valkey client.
func NewPostCache(client *redis.Client, ttl time.Duration) *PostCache {
	if ttl == 0 {
		ttl = DefaultPostTTL
	}
	return &PostCache{client: client, ttl: ttl}
}

func postKey(id uuid.UUID) string {
	return postKeyPrefix + id.String()
}

// Get returns the cached post, or false on a miss.
func (pc *PostCache) Get(ctx context.Context, id uuid.UUID) (*models.Post, bool) {
	val, err := pc.client.Get(ctx, postKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		slog.Warn("post cache get error", "post_id", id, "error", err)
		return nil, false
	}

	var post models.Post
	if err := json.Unmarshal(val, &post); err != nil {
		slog.Warn("post cache decode error", "post_id", id, "error", err)
		pc.Invalidate(ctx, id)
		return nil, false
	}
	return &post, true
}

// Set stores the post with the configured TTL.
func (pc *PostCache) Set(ctx context.Context, post *models.Post) {
	val, err := json.Marshal(post)
	if err != nil {
		slog.Warn("post cache encode error", "post_id", post.ID, "error", err)
		return
	}
	if err := pc.client.Set(ctx, postKey(post.ID), val, pc.ttl).Err(); err != nil {
		slog.Warn("post cache set error", "post_id", post.ID, "error", err)
	}
}

// Invalidate removes a single post from the cache.
func (pc *PostCache) Invalidate(ctx context.Context, id uuid.UUID) {
	if err := pc.client.Del(ctx, postKey(id)).Err(); err != nil {
		slog.Warn("post cache invalidate error", "post_id", id, "error", err)
	}
}

// InvalidateAll removes every cached post. Uses SCAN to avoid blocking
// Valkey with a KEYS call.
func (pc *PostCache) InvalidateAll(ctx context.Context) {
	var cursor uint64
	for {
		keys, next, err := pc.client.Scan(ctx, cursor, postKeyPrefix+"*", 100).Result()
		if err != nil {
			slog.Warn("post cache scan error", "error", err)
			return
		}
		if len(keys) > 0 {
			if err := pc.client.Del(ctx, keys...).Err(); err != nil {
				slog.Warn("post cache invalidate-all error", "error", err)
			}
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	slog.Debug("post cache flushed")
}
