package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vidtube/backend/internal/accounts"
	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/config"
	"github.com/vidtube/backend/internal/db"
	"github.com/vidtube/backend/internal/handlers"
	"github.com/vidtube/backend/internal/media"
	"github.com/vidtube/backend/internal/middleware"
	"github.com/vidtube/backend/internal/repositories"
	"github.com/vidtube/backend/internal/storage"
	"github.com/vidtube/backend/internal/videos"
)

// buildDependencies wires together concrete implementations used by the HTTP
// handlers. The returned cleanup releases resources the dependencies own.
func buildDependencies(ctx context.Context, pool db.Pool, cfg config.Config, metrics *middleware.Metrics) (handlers.Dependencies, func(context.Context) error, error) {
	tokens, err := auth.NewTokenService(auth.TokenConfig{
		AccessSecret:  []byte(cfg.Tokens.AccessSecret),
		AccessTTL:     cfg.Tokens.AccessTTL,
		RefreshSecret: []byte(cfg.Tokens.RefreshSecret),
		RefreshTTL:    cfg.Tokens.RefreshTTL,
	})
	if err != nil {
		return handlers.Dependencies{}, nil, err
	}

	objectStore, err := storage.NewS3Storage(ctx, cfg.ObjectStore)
	if err != nil {
		return handlers.Dependencies{}, nil, fmt.Errorf("configure object storage: %w", err)
	}
	uploader := media.NewUploader(objectStore, media.NewFFProbe(cfg.FFProbePath, cfg.FFProbeTimeout))

	users := repositories.NewPostgresUserRepository(pool)
	subscriptions := repositories.NewPostgresSubscriptionRepository(pool)
	hasher := auth.NewBcryptHasher(0)

	cache, closeCache := profileCache(cfg)

	deps := handlers.Dependencies{
		Sessions:    auth.NewManager(users, hasher, tokens),
		Accounts:    accounts.NewService(users, subscriptions, uploader, hasher, cache),
		Videos:      videos.NewService(repositories.NewPostgresVideoRepository(pool), uploader),
		RateLimiter: middleware.NewIPRateLimiter(cfg.AuthRateLimit, cfg.AuthRateWindow, 0, 10*time.Minute),
		Cookies:     handlers.CookieSettings{Secure: cfg.Cookies.Secure, Domain: cfg.Cookies.Domain},
		Uploads:     handlers.UploadSettings{Dir: cfg.UploadDir, MaxBytes: cfg.MaxUploadBytes},
		Database:    databaseCheck(pool),

		TrustedProxies: cfg.TrustedProxies,
	}
	if metrics != nil {
		deps.Metrics = metrics.Handler()
	}

	cleanup := func(context.Context) error {
		return closeCache()
	}
	return deps, cleanup, nil
}

// profileCache prefers Redis when an address is configured so that every
// instance shares invalidations. Otherwise profiles are cached in process.
func profileCache(cfg config.Config) (accounts.ProfileCache, func() error) {
	if cfg.ProfileCacheTTL <= 0 {
		return nil, func() error { return nil }
	}
	if cfg.RedisAddr == "" {
		return accounts.NewMemoryProfileCache(cfg.ProfileCacheTTL), func() error { return nil }
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	return accounts.NewRedisProfileCache(client, cfg.ProfileCacheTTL), func() error {
		if err := client.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
			return fmt.Errorf("close redis client: %w", err)
		}
		return nil
	}
}

func databaseCheck(pool db.Pool) handlers.HealthChecker {
	return func(ctx context.Context) error {
		conn, err := pool.Acquire(ctx)
		if err != nil {
			return fmt.Errorf("acquire connection: %w", err)
		}
		defer conn.Release()
		return conn.Ping(ctx)
	}
}
