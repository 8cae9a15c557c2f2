package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/riandyrn/otelchi"

	"github.com/neomorfeo/listingiq/internal/adapter/fsm"
	otelAdapter "github.com/neomorfeo/listingiq/internal/adapter/otel"
	riverAdapter "github.com/neomorfeo/listingiq/internal/adapter/river"
	"github.com/neomorfeo/listingiq/internal/adapter/sqlite"
	"github.com/neomorfeo/listingiq/internal/app"
	"github.com/neomorfeo/listingiq/internal/config"

	handler "github.com/neomorfeo/listingiq/internal/adapter/http"
)

// riverWorkers bounds concurrent status change jobs.
const riverWorkers = 4

func main() {
	if err := run(); err != nil {
		slog.Error("listingiq exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := setupLogging(os.Stderr, cfg); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Observability ---
	otelCfg, err := otelAdapter.ConfigFromEnv()
	if err != nil {
		return err
	}
	providers, err := otelAdapter.Setup(ctx, otelCfg)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			slog.Error("otel shutdown", "error", err)
		}
	}()

	// --- Adapters (out) ---
	db, err := otelAdapter.OpenDB(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer db.Close()

	repo, err := sqlite.NewFromDB(db)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	audit := sqlite.NewAuditRepository(db)

	riverClient, err := riverAdapter.Setup(ctx, db, riverWorkers)
	if err != nil {
		return fmt.Errorf("river: %w", err)
	}
	if err := riverClient.Start(ctx); err != nil {
		return fmt.Errorf("river start: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := riverClient.Stop(stopCtx); err != nil {
			slog.Error("river stop", "error", err)
		}
	}()

	publisher, err := otelAdapter.NewTracingPublisher(riverAdapter.NewPublisher(riverClient))
	if err != nil {
		return fmt.Errorf("publisher: %w", err)
	}

	// --- Application ---
	svc := app.NewListingService(
		otelAdapter.NewTracingListingStore(repo),
		otelAdapter.NewTracingAuditTrail(audit),
		otelAdapter.NewTracingUnitOfWork(sqlite.NewUnitOfWork(db)),
		publisher,
		fsm.New(),
		cfg.BulkConcurrency,
	)

	// --- Adapters (in) ---
	auth := handler.NewAuthenticator(cfg.JWTSecret)

	router := chi.NewMux()
	router.Use(otelchi.Middleware(otelCfg.ServiceName, otelchi.WithChiRoutes(router)))
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(auth.Middleware)

	api := humachi.New(router, huma.DefaultConfig("listingiq", otelCfg.ServiceVersion))
	handler.Register(api, svc, handler.HandlerConfig{BulkTimeout: cfg.BulkTimeout})

	// --- Server ---
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("listingiq listening", "port", cfg.Port, "docs", "http://localhost:"+cfg.Port+"/docs")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
	case <-ctx.Done():
	}
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("stopped")
	return nil
}

// setupLogging installs the process-wide slog handler.
func setupLogging(w io.Writer, cfg config.Config) error {
	level, err := cfg.SlogLevel()
	if err != nil {
		return err
	}

	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	slog.SetDefault(slog.New(h))
	return nil
}
