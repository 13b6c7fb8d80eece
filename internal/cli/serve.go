// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"classifieds/internal/cache"
	"classifieds/internal/database"
	"classifieds/internal/handlers"
	"classifieds/internal/media"
	"classifieds/internal/middleware"
	"classifieds/internal/query"
	"classifieds/internal/rating"
	"classifieds/internal/router"
	"classifieds/internal/service"
	"classifieds/internal/session"
	"classifieds/internal/storage"
	"classifieds/internal/store"
)

var serveMigrate bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Runs the HTTP API until SIGINT or SIGTERM, then drains in-flight
requests for up to 30 seconds.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().BoolVar(&serveMigrate, "migrate", true, "apply pending migrations before serving")
	rootCmd.AddCommand(serveCmd)
}

func serve(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	slog.Info("configuration loaded", "env", cfg.Env, "addr", cfg.Addr())

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if serveMigrate {
		if err := database.Migrate(db.DB); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
	}
	if cfg.IsDev() {
		if err := database.Seed(ctx, db); err != nil {
			return fmt.Errorf("seed database: %w", err)
		}
	}

	// Valkey holds sessions and the post cache.
	valkeyClient, err := cache.ConnectValkey(cfg.ValkeyHost, cfg.ValkeyPort, cfg.ValkeyPassword)
	if err != nil {
		return fmt.Errorf("connect valkey: %w", err)
	}
	defer valkeyClient.Close()

	objects, err := storage.New(cfg)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	if err := objects.EnsureBucket(ctx); err != nil {
		return fmt.Errorf("prepare storage: %w", err)
	}
	slog.Info("storage ready", "driver", cfg.StorageDriver)

	mailer, closeMailer, err := newMailer(cfg)
	if err != nil {
		return err
	}
	defer closeMailer()

	// Data stores.
	categoryStore := store.NewCategoryStore(db)
	postStore := store.NewPostStore(db)
	reviewStore := store.NewReviewStore(db)
	userStore := store.NewUserStore(db)

	postCache := cache.NewPostCache(valkeyClient, cache.DefaultPostTTL)
	ratings := rating.NewAggregator(postStore)
	ratings.OnChange = func(ctx context.Context, postID uuid.UUID) {
		postCache.Invalidate(ctx, postID)
	}
	images := media.NewPipeline(objects)

	// Services.
	categories := service.NewCategories(categoryStore, postCache)
	posts := service.NewPosts(postStore, reviewStore, categoryStore, images, postCache)
	reviews := service.NewReviews(reviewStore, postStore, ratings)
	users := service.NewUsers(userStore, reviewStore, images, ratings, mailer, cfg.BaseURL+"/api/v1/users/me")
	identity := service.NewIdentity(userStore, mailer, "Classifieds", cfg.ResetTokenTTL)

	sessions := session.NewStore(valkeyClient, cfg.SessionTTL, !cfg.IsDev())
	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	defer limiter.Stop()

	defaults := query.Defaults{Limit: cfg.PageSizeDefault, MaxLimit: cfg.PageSizeMax}
	opts := router.Options{
		Sessions: sessions,
		Users:    userStore,
		Limiter:  limiter,
		HSTS:     !cfg.IsDev(),
		DB:       db,
	}
	if local, ok := objects.(*storage.Local); ok {
		opts.ImagesDir = local.Root()
	}

	r := router.New(opts, router.Handlers{
		Categories: handlers.NewCategories(categories, defaults),
		Posts:      handlers.NewPosts(posts, defaults),
		Reviews:    handlers.NewReviews(reviews, defaults),
		Users:      handlers.NewUsers(users, defaults),
		Auth:       handlers.NewAuth(users, identity, sessions, cfg.BaseURL),
	})

	// Uploads of a cover plus a full gallery need a generous read timeout.
	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	}

	// Give active requests up to 30 seconds to complete.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}
