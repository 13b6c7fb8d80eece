// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package rating keeps each post's ratingsAverage and ratingsQuantity in
// step with its reviews. Recomputation runs after every review mutation and
// is best-effort: failures are logged and a later recompute corrects them.
package rating

import (
	"context"
	"log/slog"
	"math"

	"github.com/google/uuid"
)

// Stats is the raw aggregate over a post's reviews.
type Stats struct {
	Mean  float64
	Count int
}

// Aggregate is what gets stored on the post.
type Aggregate struct {
	Average  float64
	Quantity int
}

// Unrated is stored on posts without reviews.
var Unrated = Aggregate{Average: 1, Quantity: 0}

// Compute rounds the mean to one decimal place. A post with no reviews
// gets Unrated rather than an undefined average.
func Compute(s Stats) Aggregate {
	if s.Count == 0 {
		return Unrated
	}
	return Aggregate{
		Average:  math.Round(s.Mean*10) / 10,
		Quantity: s.Count,
	}
}

// Store runs the aggregation for one post and writes the result. Implementations
// hold a row lock on the post for the duration so concurrent recomputes of the
// same post serialize. A missing post is not an error.
type Store interface {
	UpdateRatings(ctx context.Context, postID uuid.UUID, fn func(Stats) Aggregate) error
}

// Aggregator recomputes post ratings.
type Aggregator struct {
	store Store

	// OnChange, when set, runs after a successful recompute.
	OnChange func(ctx context.Context, postID uuid.UUID)
}

// NewAggregator creates an Aggregator backed by store.
func NewAggregator(store Store) *Aggregator {
	return &Aggregator{store: store}
}

// Recompute refreshes the aggregate fields of postID. Errors are logged,
// never returned.
func (a *Aggregator) Recompute(ctx context.Context, postID uuid.UUID) {
	if err := a.recompute(ctx, postID); err != nil {
		slog.Warn("rating recompute failed", "post_id", postID, "error", err)
	}
}

func (a *Aggregator) recompute(ctx context.Context, postID uuid.UUID) error {
	if err := a.store.UpdateRatings(ctx, postID, Compute); err != nil {
		return err
	}
	if a.OnChange != nil {
		a.OnChange(ctx, postID)
	}
	return nil
}

// RecomputeAll refreshes every post in ids and returns how many failed.
func (a *Aggregator) RecomputeAll(ctx context.Context, ids []uuid.UUID) int {
	failed := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			return failed + 1
		}
		if err := a.recompute(ctx, id); err != nil {
			slog.Warn("rating recompute failed", "post_id", id, "error", err)
			failed++
		}
	}
	return failed
}
