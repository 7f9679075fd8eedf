package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/geocoder89/taskhub/internal/config"
	"github.com/geocoder89/taskhub/internal/db"
	"github.com/geocoder89/taskhub/internal/observability"
	"github.com/geocoder89/taskhub/internal/repo/backend"
	"github.com/geocoder89/taskhub/internal/security"
)

// seed migrates the configured store and creates the roles and the admin
// account from ADMIN_*. It is safe to run repeatedly.
func main() {
	cfg, err := config.Load()
	if err != nil {
		observability.NewLogger("prod").Error("config", "err", err)
		os.Exit(1)
	}

	log := observability.NewLogger(cfg.Env)

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()

	stores, err := backend.Open(ctx, cfg, nil)
	if err != nil {
		log.Error("open store failed", "err", err)
		os.Exit(1)
	}
	defer stores.Close()

	creds := security.NewBcryptVerifier(cfg.BcryptCost)
	if err := db.EnsureAdminUser(ctx, stores.Users, creds, cfg); err != nil {
		log.Error("seed failed", "err", err)
		stores.Close()
		os.Exit(1)
	}

	log.Info("seed complete", "db_driver", cfg.DBDriver, "admin_email", cfg.AdminEmail)
}
