// Package main is the entry point for the pueblos companion server.
// Its sole responsibility is wiring dependencies together and starting the
// server and background workers. No business logic belongs here.
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

	"github.com/pkordes/pueblos-core/internal/cache"
	"github.com/pkordes/pueblos-core/internal/config"
	"github.com/pkordes/pueblos-core/internal/domain"
	"github.com/pkordes/pueblos-core/internal/handler"
	"github.com/pkordes/pueblos-core/internal/logging"
	"github.com/pkordes/pueblos-core/internal/middleware"
	"github.com/pkordes/pueblos-core/internal/remote"
	"github.com/pkordes/pueblos-core/internal/repo"
	"github.com/pkordes/pueblos-core/internal/service"
	"github.com/pkordes/pueblos-core/openapi"
)

func main() {
	// --- Config -----------------------------------------------------------
	cfg, err := config.Load()
	if err != nil {
		// Default logger writes to stderr before ours is configured.
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}

	// --- Logger -----------------------------------------------------------
	logger, logCloser := logging.New(logging.Options{
		Level:      cfg.LogLevel,
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAgeDays: cfg.LogMaxAgeDays,
	})
	defer logCloser.Close()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Storage ----------------------------------------------------------
	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		slog.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	// --- Remote API & managers -------------------------------------------
	client := remote.NewClient(cfg.RemoteBaseURL, remote.Options{
		Timeout:       cfg.RemoteTimeout,
		RatePerSecond: cfg.RemoteRatePerSec,
	})

	details := cache.New[domain.PlaceDetail](cfg.DetailCacheSize, cfg.DetailCacheTTL, cache.WithFetchTimeout(cfg.RemoteTimeout))
	visited := service.NewVisitedService(client, client, cfg.RemoteUserID, details, logger.With("manager", "visited"))

	cart := service.NewCartService(repo.Namespace(store, "cart"), logger.With("manager", "cart"))
	cart.Load(ctx)

	notifications := service.NewNotificationService(client, repo.Namespace(store, "notifications"),
		service.NotificationOptions{
			StaleAfter:      cfg.NotificationsStaleAfter,
			RefreshInterval: cfg.NotificationsRefreshInterval,
			FetchTimeout:    cfg.RemoteTimeout,
		}, logger.With("manager", "notifications"))
	notifications.LoadMarker(ctx)
	go notifications.Run(ctx)

	push := service.NewPushService(client, repo.Namespace(store, "push"), cfg.RemoteUserID, cfg.DevicePlatform, logger.With("manager", "push"))
	push.RegisterInBackground(ctx, cfg.PushToken)

	// The first reconciliation is best effort; GET /places retries it.
	go func() {
		if _, err := visited.Load(ctx); err != nil {
			logger.Warn("initial visited reconciliation failed", "error", err)
		}
	}()

	// --- Router -----------------------------------------------------------
	// Middleware order: RequestID → RealIP → SlogLogger → Recoverer → CORS → body limit.
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewSlogLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewCORSHandler(cfg.CORSOrigins))
	r.Use(middleware.NewMaxBodySizeHandler(cfg.MaxBodyBytes))

	server := handler.NewServer(visited, cart, notifications, openapi.Document, logger)
	r.Mount("/", server.Routes())

	// --- HTTP Server ------------------------------------------------------
	// Remote calls are bounded by RemoteTimeout, so WriteTimeout leaves room
	// for one full reconciliation.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RemoteTimeout + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down server")

	// Give in-flight requests and the final cart save up to 15 seconds.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
	if err := cart.Close(shutdownCtx); err != nil {
		slog.Error("cart flush error", "error", err)
	}
	slog.Info("server stopped")
}
