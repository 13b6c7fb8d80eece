// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"classifieds/internal/cache"
	"classifieds/internal/rating"
	"classifieds/internal/store"
)

var recomputePost string

var recomputeCmd = &cobra.Command{
	Use:   "recompute-ratings",
	Short: "Recompute the rating average and count of posts",
	Long: `Recomputes ratingsAverage and ratingsQuantity from the stored reviews.
Without --post every post is processed. Cached post responses are dropped
when Valkey is reachable.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		db, err := openDB(cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		posts := store.NewPostStore(db)
		ratings := rating.NewAggregator(posts)

		if client, err := cache.ConnectValkey(cfg.ValkeyHost, cfg.ValkeyPort, cfg.ValkeyPassword); err != nil {
			slog.Warn("valkey unavailable, cached posts will expire on their own", "error", err)
		} else {
			defer client.Close()
			postCache := cache.NewPostCache(client, cache.DefaultPostTTL)
			ratings.OnChange = func(ctx context.Context, postID uuid.UUID) {
				postCache.Invalidate(ctx, postID)
			}
		}

		var ids []uuid.UUID
		if recomputePost != "" {
			id, err := uuid.Parse(recomputePost)
			if err != nil {
				return fmt.Errorf("invalid --post %q: %w", recomputePost, err)
			}
			ids = []uuid.UUID{id}
		} else if ids, err = posts.IDs(cmd.Context()); err != nil {
			return err
		}

		failed := ratings.RecomputeAll(cmd.Context(), ids)
		slog.Info("ratings recomputed", "posts", len(ids), "failed", failed)
		if failed > 0 {
			return fmt.Errorf("%d of %d posts failed", failed, len(ids))
		}
		return nil
	},
}

func init() {
	recomputeCmd.Flags().StringVar(&recomputePost, "post", "", "only recompute this post id")
	rootCmd.AddCommand(recomputeCmd)
}
