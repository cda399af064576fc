package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/vidtube/backend/internal/config"
	"github.com/vidtube/backend/internal/db"
	"github.com/vidtube/backend/internal/handlers"
	"github.com/vidtube/backend/internal/httpserver"
	"github.com/vidtube/backend/internal/logging"
	"github.com/vidtube/backend/internal/middleware"
)

// Run bootstraps the VidTube backend application.
func Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("expected command: serve, migrate, or seed")
	}

	switch args[0] {
	case "serve":
		return serve(ctx)
	case "migrate":
		return runMigrations(ctx, args[1:])
	case "seed":
		return runSeed(ctx, args[1:])
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func serve(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := logging.New(cfg.LogLevel)

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		return err
	}

	metrics := middleware.NewMetrics()
	deps, cleanup, err := buildDependencies(ctx, pool, cfg, metrics)
	if err != nil {
		return err
	}
	defer func() {
		if err := cleanup(context.Background()); err != nil {
			logger.Warn("cleanup failed", "error", err)
		}
	}()

	mux := http.NewServeMux()
	handlers.RegisterRoutes(mux, deps)

	handler := middleware.Chain(mux,
		middleware.RequestLogger(logger),
		middleware.CORS(strings.Split(cfg.CORSOrigin, ",")),
		metrics.Middleware,
	)

	srv := httpserver.New(cfg.AppPort, handler)
	return runUntilStopped(ctx, logger, srv)
}

// runUntilStopped serves until ctx is cancelled, SIGINT/SIGTERM arrives or
// the listener fails, then drains in-flight requests.
func runUntilStopped(ctx context.Context, logger *slog.Logger, srv *httpserver.Server) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srvErr := make(chan error, 1)
	go func() {
		logger.Info("starting http server", "addr", srv.Addr())
		srvErr <- srv.Start()
	}()

	select {
	case err := <-srvErr:
		return err
	case <-ctx.Done():
		logger.Info("shutting down http server", "cause", context.Cause(ctx))
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), httpserver.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return <-srvErr
}

func runMigrations(ctx context.Context, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	command := "up"
	if len(args) > 0 {
		command = args[0]
	}
	if command != "up" && command != "status" {
		return fmt.Errorf("unknown migrate command %q", command)
	}

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	if command == "status" {
		return db.MigrationStatus(ctx, pool)
	}
	return db.Migrate(ctx, pool)
}

func runSeed(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("expected seed name (e.g. dev)")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	seedPath, err := seedFile(cfg.SeedDir, args[0])
	if err != nil {
		return err
	}
	contents, err := os.ReadFile(seedPath)
	if err != nil {
		return fmt.Errorf("read seed %s: %w", filepath.Base(seedPath), err)
	}

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	if _, err := pool.Exec(ctx, string(contents)); err != nil {
		return fmt.Errorf("apply seed %s: %w", filepath.Base(seedPath), err)
	}

	fmt.Printf("applied seed %s\n", filepath.Base(seedPath))
	return nil
}

// seedFile resolves a seed name such as "dev" to <dir>/dev_seed.sql.
func seedFile(dir, name string) (string, error) {
	if !filepath.IsAbs(dir) {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("determine working directory: %w", err)
		}
		dir = filepath.Join(wd, dir)
	}

	if strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("invalid seed name %q", name)
	}
	if !strings.HasSuffix(name, ".sql") {
		name = fmt.Sprintf("%s_seed.sql", name)
	}
	return filepath.Join(dir, name), nil
}
