// Package backend opens the store selected by DB_DRIVER.
package backend

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/geocoder89/taskhub/internal/config"
	"github.com/geocoder89/taskhub/internal/db"
	"github.com/geocoder89/taskhub/internal/observability"
	"github.com/geocoder89/taskhub/internal/repo"
	"github.com/geocoder89/taskhub/internal/repo/memory"
	"github.com/geocoder89/taskhub/internal/repo/postgres"
	"github.com/geocoder89/taskhub/internal/repo/sqlite"
)

type Stores struct {
	Users repo.Users
	Tasks repo.Tasks
	// Ping is nil for the in-memory store.
	Ping  func(ctx context.Context) error
	Close func()
}

// Open connects to the configured store. Postgres is migrated before use; the
// sqlite schema is applied on open.
func Open(ctx context.Context, cfg config.Config, prom *observability.Prom) (Stores, error) {
	switch cfg.DBDriver {
	case "postgres":
		pool, err := db.NewPool(cfg.DBURL)
		if err != nil {
			return Stores{}, fmt.Errorf("connect postgres: %w", err)
		}
		if err := db.Migrate(ctx, pool); err != nil {
			pool.Close()
			return Stores{}, fmt.Errorf("migrate: %w", err)
		}
		return Stores{
			Users: postgres.NewUsersRepo(pool, prom),
			Tasks: postgres.NewTasksRepo(pool, prom),
			Ping:  pool.Ping,
			Close: pool.Close,
		}, nil

	case "sqlite":
		sqlDB, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return Stores{}, fmt.Errorf("open sqlite: %w", err)
		}
		return Stores{
			Users: sqlite.NewUsersRepo(sqlDB, prom),
			Tasks: sqlite.NewTasksRepo(sqlDB, prom),
			Ping:  sqlDB.PingContext,
			Close: func() {
				if err := sqlDB.Close(); err != nil {
					slog.Default().Warn("close sqlite", "err", err)
				}
			},
		}, nil

	case "memory":
		users := memory.NewUsersRepo()
		return Stores{
			Users: users,
			Tasks: memory.NewTasksRepo(users),
			Close: func() {},
		}, nil

	default:
		return Stores{}, fmt.Errorf("unknown DB_DRIVER %q", cfg.DBDriver)
	}
}
