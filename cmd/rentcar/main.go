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

	"golang.org/x/sync/errgroup"

	authsvc "rentcar/internal/app/services/auth"
	"rentcar/internal/infra/config"
	ginserver "rentcar/internal/infra/http/gin"
	"rentcar/internal/infra/metrics"
	"rentcar/internal/infra/obs"
	"rentcar/internal/infra/schedule"
	"rentcar/internal/infra/security"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	logger := obs.NewLogger(cfg.Env)
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("rentcar stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("rentcar stopped")
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	registry := metrics.New()

	backend, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer backend.close(logger)

	jwtSecret := cfg.JWTSecret
	if jwtSecret == "" {
		jwtSecret = "dev-only-secret"
		logger.Warn("JWT_SECRET not set, using an insecure development secret")
	}
	tokens, err := security.NewJWTIssuer(jwtSecret, cfg.JWTTTL, "rentcar")
	if err != nil {
		return err
	}
	auth := &authsvc.Service{
		Users:     backend.users,
		Passwords: security.BcryptHasher{},
		Tokens:    tokens,
		Logger:    logger,
	}
	if cfg.AdminEmail != "" {
		if _, _, err := auth.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			return err
		}
	}

	blobs, blobCheck, err := openBlobStorage(cfg, logger)
	if err != nil {
		return err
	}
	buses := buildBuses(cfg, backend, blobs, registry, logger)

	checks := backend.checks
	if blobCheck != nil {
		checks = append(checks, *blobCheck)
	}
	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{Checks: checks}, ginserver.Handlers{
		Auth:           ginserver.AuthHandler{Service: auth, Logger: logger},
		Booking:        ginserver.BookingHandler{Commands: buses.commands, Queries: buses.queries, Logger: logger},
		Car:            ginserver.CarHandler{Commands: buses.commands, Queries: buses.queries, Logger: logger},
		Ledger:         ginserver.LedgerHandler{Queries: buses.queries, Logger: logger},
		Admin:          ginserver.AdminHandler{Commands: buses.commands, Queries: buses.queries, Logger: logger},
		AuthMiddleware: ginserver.AuthMiddleware{Service: auth, Logger: logger}.Handle,
		Metrics:        registry.GinMiddleware(),
		MetricsHandler: registry.Handler(),
	})

	scheduler := schedule.New(cfg.PricingLocation, logger)
	if err := scheduler.Add(schedule.ReconcileJob(buses.commands, cfg.ReconcileSchedule)); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, bg := range backend.background {
		g.Go(func() error {
			if err := bg(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}
	g.Go(func() error { return scheduler.Run(gctx) })
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "storage", cfg.StorageMode)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	return g.Wait()
}
