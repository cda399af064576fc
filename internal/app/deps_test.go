package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vidtube/backend/internal/accounts"
	"github.com/vidtube/backend/internal/config"
	"github.com/vidtube/backend/internal/middleware"
)

type fakePool struct{}

func (fakePool) Acquire(context.Context) (*pgxpool.Conn, error) {
	return nil, errors.New("not implemented")
}

func (fakePool) Close() {}

func testConfig() config.Config {
	return config.Config{
		Tokens: config.TokenConfig{
			AccessSecret:  "access",
			AccessTTL:     time.Minute,
			RefreshSecret: "refresh",
			RefreshTTL:    time.Hour,
		},
		ObjectStore:     config.ObjectStoreConfig{Bucket: "test-bucket", Endpoint: "http://localhost:9000", Region: "us-east-1"},
		FFProbePath:     "ffprobe",
		FFProbeTimeout:  time.Second,
		ProfileCacheTTL: time.Minute,
		AuthRateLimit:   5,
		AuthRateWindow:  time.Minute,
		UploadDir:       "/tmp",
		MaxUploadBytes:  1 << 20,
	}
}

func TestBuildDependencies(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "test")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test")

	deps, cleanup, err := buildDependencies(context.Background(), fakePool{}, testConfig(), middleware.NewMetrics())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cleanup == nil {
		t.Fatal("expected cleanup function")
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := cleanup(ctx); err != nil {
			t.Errorf("cleanup: %v", err)
		}
	}()

	if deps.Sessions == nil || deps.Accounts == nil || deps.Videos == nil {
		t.Fatal("expected services to be configured")
	}
	if deps.RateLimiter == nil {
		t.Fatal("expected rate limiter to be configured")
	}
	if deps.Metrics == nil {
		t.Fatal("expected metrics handler to be configured")
	}
	if deps.Uploads.MaxBytes != 1<<20 {
		t.Fatalf("unexpected upload settings %+v", deps.Uploads)
	}

	if err := deps.Database(context.Background()); err == nil {
		t.Fatal("expected health check to surface pool errors")
	}

	rec := httptest.NewRecorder()
	deps.Metrics.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected metrics handler to respond, got %d", rec.Code)
	}
}

func TestBuildDependenciesRejectsMissingSecrets(t *testing.T) {
	cfg := testConfig()
	cfg.Tokens.RefreshSecret = ""

	if _, _, err := buildDependencies(context.Background(), fakePool{}, cfg, nil); err == nil {
		t.Fatal("expected error for missing refresh secret")
	}
}

func TestProfileCacheSelection(t *testing.T) {
	cfg := testConfig()

	cache, closeCache := profileCache(cfg)
	if _, ok := cache.(*accounts.MemoryProfileCache); !ok {
		t.Fatalf("expected in-memory cache, got %T", cache)
	}
	if err := closeCache(); err != nil {
		t.Fatalf("close: %v", err)
	}

	cfg.RedisAddr = "localhost:6379"
	cache, closeCache = profileCache(cfg)
	if _, ok := cache.(*accounts.RedisProfileCache); !ok {
		t.Fatalf("expected redis cache, got %T", cache)
	}
	if err := closeCache(); err != nil {
		t.Fatalf("close: %v", err)
	}

	cfg.ProfileCacheTTL = 0
	cache, _ = profileCache(cfg)
	if cache != nil {
		t.Fatalf("expected caching to be disabled, got %T", cache)
	}
}

func TestRunRejectsUnknownCommands(t *testing.T) {
	if err := Run(context.Background(), nil); err == nil {
		t.Fatal("expected error without command")
	}
	if err := Run(context.Background(), []string{"explode"}); err == nil {
		t.Fatal("expected error for unknown command")
	}
	if err := Run(context.Background(), []string{"seed"}); err == nil {
		t.Fatal("expected error without seed name")
	}
}

func TestSeedFile(t *testing.T) {
	path, err := seedFile("/srv/seeds", "dev")
	if err != nil {
		t.Fatalf("seed file: %v", err)
	}
	if path != filepath.Join("/srv/seeds", "dev_seed.sql") {
		t.Fatalf("unexpected path %s", path)
	}

	path, err = seedFile("/srv/seeds", "custom.sql")
	if err != nil || path != filepath.Join("/srv/seeds", "custom.sql") {
		t.Fatalf("unexpected path %s (%v)", path, err)
	}

	if _, err := seedFile("/srv/seeds", "../etc/passwd"); err == nil {
		t.Fatal("expected path traversal to be rejected")
	}
}
