// Package main is the entry point for the CEP region API server.
// Its sole responsibility is wiring dependencies together and starting the server.
// No business logic belongs here.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/redis/go-redis/v9"

	"github.com/cepcode/backend/internal/config"
	"github.com/cepcode/backend/internal/handler"
	"github.com/cepcode/backend/internal/logging"
	"github.com/cepcode/backend/internal/middleware"
	"github.com/cepcode/backend/internal/repo"
	"github.com/cepcode/backend/internal/service"
	"github.com/cepcode/backend/internal/stats"
	"github.com/cepcode/backend/internal/viacep"
	"github.com/cepcode/backend/migrations"
	"github.com/cepcode/backend/spec"
)

func main() {
	// --- Config -----------------------------------------------------------
	cfg, err := config.Load()
	if err != nil {
		// Use plain stderr before the logger is configured.
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}

	// --- Logger -----------------------------------------------------------
	logger := logging.New(os.Stdout, cfg.LogLevel)
	slog.SetDefault(logger)

	// --- Database ---------------------------------------------------------
	// New() does not open connections immediately; the first query does.
	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Verify the DB is reachable before accepting traffic.
	if err := pool.Ping(context.Background()); err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	slog.Info("database connection established")

	if err := migrate(context.Background(), pool); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// --- Resolution stats -------------------------------------------------
	recorder, closeStats := newRecorder(context.Background(), cfg)
	defer closeStats()

	// --- Services ---------------------------------------------------------
	postalRepo := repo.NewPostalCodeRepo(pool)
	productRepo := repo.NewProductRepo(pool)
	barcodeRepo := repo.NewBarcodeRepo(pool)

	lookup := viacep.New(cfg.ViaCEP.BaseURL,
		viacep.WithTimeout(cfg.ViaCEP.Timeout),
		viacep.WithRateLimit(cfg.ViaCEP.RPS, cfg.ViaCEP.Burst),
	)
	resolver := service.NewResolver(postalRepo, lookup, service.WithRecorder(recorder))
	products := service.NewProductService(productRepo, resolver, service.WithStrictRegion(cfg.StrictRegion))
	barcodes := service.NewBarcodeService(barcodeRepo, productRepo,
		service.WithMaxAttempts(cfg.BarcodeMaxAttempts),
		service.WithFormat(cfg.BarcodeFormat),
	)
	statsSvc := service.NewStatsService(productRepo, barcodeRepo, postalRepo, recorder)

	// --- Router -----------------------------------------------------------
	// Middleware is applied in order: RequestID → RealIP → Logger → Recoverer → CORS → body limit.
	// RealIP sets r.RemoteAddr from X-Forwarded-For / X-Real-IP (safe behind a proxy).
	// Recoverer catches panics and returns HTTP 500 instead of crashing.
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewSlogLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewCORSHandler(cfg.CORSOrigins))
	r.Use(middleware.NewMaxBodySizeHandler(cfg.MaxBodyBytes))

	srv := handler.NewServer(resolver, products, barcodes, statsSvc, handler.WithOpenAPI(spec.OpenAPI))
	r.Mount("/", srv.Routes())

	// --- HTTP Server ------------------------------------------------------
	// The write timeout must outlast one upstream CEP lookup.
	httpSrv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.ViaCEP.Timeout + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown: wait for OS signal, then give in-flight requests
	// up to 15 seconds to complete before forcefully closing.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "addr", httpSrv.Addr, "viacep", cfg.ViaCEP.BaseURL, "stats", recorder.Source())
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-stop
	slog.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

// migrate applies pending goose migrations. goose needs database/sql, so the
// pool is wrapped rather than opening a second connection string.
func migrate(ctx context.Context, pool *pgxpool.Pool) error {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations.FS)
	if err != nil {
		return err
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return err
	}
	for _, res := range results {
		slog.Info("migration applied", "version", res.Source.Version, "duration", res.Duration)
	}
	return nil
}

// newRecorder keeps resolution counters in Redis when REDIS_ADDR is set and
// reachable, and in process memory otherwise.
func newRecorder(ctx context.Context, cfg config.Config) (stats.Recorder, func()) {
	if cfg.Redis.Addr == "" {
		return stats.NewMemoryRecorder(), func() {}
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		slog.Warn("redis unavailable, keeping stats in memory", "addr", cfg.Redis.Addr, "error", err)
		_ = rdb.Close()
		return stats.NewMemoryRecorder(), func() {}
	}

	slog.Info("redis connection established", "addr", cfg.Redis.Addr)
	rec := stats.NewRedisRecorder(rdb, stats.WithPrefix(cfg.Stats.Prefix), stats.WithTTL(cfg.Stats.TTL))
	return rec, func() { _ = rdb.Close() }
}
