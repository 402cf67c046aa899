package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	dhttp "github.com/daskhq/dask/internal/adapter/http"
	dnats "github.com/daskhq/dask/internal/adapter/nats"
	"github.com/daskhq/dask/internal/adapter/otel"
	"github.com/daskhq/dask/internal/adapter/postgres"
	"github.com/daskhq/dask/internal/adapter/ristretto"
	"github.com/daskhq/dask/internal/adapter/ws"
	"github.com/daskhq/dask/internal/config"
	"github.com/daskhq/dask/internal/domain/identity"
	"github.com/daskhq/dask/internal/ledger"
	"github.com/daskhq/dask/internal/logger"
	"github.com/daskhq/dask/internal/middleware"
	"github.com/daskhq/dask/internal/resilience"
	"github.com/daskhq/dask/internal/service"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "admin" {
		if err := runAdmin(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	slog.SetDefault(logger.New(cfg.Logging))
	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"auth_enabled", cfg.Auth.Enabled,
	)

	admin, err := identity.Parse(cfg.Ledger.Admin)
	if err != nil {
		return fmt.Errorf("ledger admin: %w", err)
	}

	ctx := context.Background()

	// --- Infrastructure ---

	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()
	slog.Info("postgres connected")

	if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	slog.Info("migrations applied")

	queue, err := dnats.Connect(ctx, cfg.NATS.URL)
	if err != nil {
		return fmt.Errorf("nats: %w", err)
	}
	defer func() { _ = queue.Close() }()

	snapshots, err := ristretto.New(cfg.Cache.MaxSizeMB << 20)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer snapshots.Close()

	metrics, err := otel.NewMetrics()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	// --- Engine and services ---

	store := postgres.NewStore(pool)
	journal := postgres.NewJournal(pool)

	engine, err := ledger.New(ledger.Config{
		Admin:      admin,
		FeePercent: cfg.Ledger.FeePercent,
		FeeBase:    cfg.Ledger.FeeBase,
		Journal:    journal,
	})
	if err != nil {
		return fmt.Errorf("ledger: %w", err)
	}

	hub := ws.NewHub()
	ledgerSvc, err := service.NewLedgerService(service.LedgerConfig{
		Engine:  engine,
		Journal: journal,
		Queue:   queue,
		Hub:     hub,
		Cache:   snapshots,
		Breaker: resilience.New(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout),
		Metrics: metrics,
		TaskTTL: cfg.Cache.TaskTTL,
	})
	if err != nil {
		return fmt.Errorf("ledger service: %w", err)
	}
	if err := ledgerSvc.Restore(ctx); err != nil {
		return fmt.Errorf("restore: %w", err)
	}

	keyring := service.NewKeyring(store)

	// --- HTTP ---

	r := chi.NewRouter()
	r.Use(dhttp.CORS(cfg.Server.CORSOrigin))
	r.Use(middleware.RequestID)
	r.Use(dhttp.Logger)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(otel.HTTPMiddleware(cfg.Logging.Service))
	r.Use(middleware.Auth(keyring, cfg.Auth.Enabled, admin))

	dhttp.MountRoutes(r, dhttp.NewHandlers(ledgerSvc, keyring), hub)

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
		}
	}()

	<-done
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return queue.Drain()
}
