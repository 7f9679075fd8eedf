package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/geocoder89/taskhub/internal/auth"
	"github.com/geocoder89/taskhub/internal/config"
	"github.com/geocoder89/taskhub/internal/db"
	httpx "github.com/geocoder89/taskhub/internal/http"
	"github.com/geocoder89/taskhub/internal/http/handlers"
	"github.com/geocoder89/taskhub/internal/notifications"
	"github.com/geocoder89/taskhub/internal/observability"
	"github.com/geocoder89/taskhub/internal/redisclient"
	"github.com/geocoder89/taskhub/internal/repo/backend"
	"github.com/geocoder89/taskhub/internal/security"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	if err := run(); err != nil {
		slog.Error("api stopped", "err", err)
		os.Exit(1)
	}
}

func run() error {
	// Load the config set up
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := observability.NewLogger(cfg.Env)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := observability.InitTracer(ctx, cfg.ServiceName, cfg.Env, cfg.OTLPEndpoint)
	if err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}
	defer func() {
		tctx, cancel := config.WithTimeout(5 * time.Second)
		defer cancel()
		if err := shutdownTracer(tctx); err != nil {
			log.Warn("tracer shutdown failed", "err", err)
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	prom := observability.NewProm(reg)

	stores, err := backend.Open(ctx, cfg, prom)
	if err != nil {
		return err
	}
	defer stores.Close()

	ready := map[string]handlers.Pinger{}
	if stores.Ping != nil {
		ready["db"] = handlers.PingFunc(stores.Ping)
	}

	creds := security.NewBcryptVerifier(cfg.BcryptCost)

	seedCtx, cancelSeed := context.WithTimeout(ctx, 10*time.Second)
	err = db.EnsureAdminUser(seedCtx, stores.Users, creds, cfg)
	cancelSeed()
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}

	revoker, closeRevoker := newRevoker(ctx, cfg, prom, ready)
	defer closeRevoker()

	notifier := notifications.NewProtectedNotifier(
		notifications.NewLogNotifier(log),
		notifications.ProtectedNotifierConfig{
			Timeout:          2 * time.Second,
			FailureThreshold: 3,
			Cooldown:         30 * time.Second,
		},
	)

	router := httpx.NewRouter(httpx.Deps{
		Config:   cfg,
		Users:    stores.Users,
		Tasks:    stores.Tasks,
		Creds:    creds,
		JWT:      auth.NewManager(cfg.JWTSecret, cfg.TokenTTL()),
		Revoker:  revoker,
		Notifier: notifier,
		Prom:     prom,
		Gatherer: reg,
		Ready:    ready,
	})

	// server set up
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("server starting", "port", cfg.Port, "env", cfg.Env, "db_driver", cfg.DBDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	// Graceful shutdown
	log.Info("server shutting down")

	sctx, cancel := config.WithTimeout(10 * time.Second)
	defer cancel()

	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	log.Info("shutdown complete")
	return nil
}

// newRevoker picks the logout blacklist. The in-memory one gets the optional
// sweep loop; the Redis one is added to the readiness checks.
func newRevoker(ctx context.Context, cfg config.Config, prom *observability.Prom, ready map[string]handlers.Pinger) (auth.Revoker, func()) {
	if cfg.RevocationBackend == "redis" {
		client := redisclient.New(redisclient.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ready["redis"] = client

		return auth.NewRedisRevoker(client), func() {
			if err := client.Close(); err != nil {
				slog.Warn("redis close failed", "err", err)
			}
		}
	}

	revoker := auth.NewMemoryRevoker()
	go revoker.RunSweeper(ctx, cfg.RevocationSweepInterval, cfg.RevocationMaxAge(), func(removed, remaining int) {
		prom.RevokedTokens.Set(float64(remaining))
		if removed > 0 {
			slog.Info("revocation sweep", "removed", removed, "remaining", remaining)
		}
	})

	return revoker, func() {}
}
