package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/geocoder89/taskhub/internal/db"
	"github.com/geocoder89/taskhub/internal/repo"
	"github.com/geocoder89/taskhub/internal/repo/repotest"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Run with TEST_DB_DSN pointing at a disposable database; every subtest truncates it.
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set; skipping postgres integration tests")
	}

	pool, err := db.NewPool(dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := db.Migrate(context.Background(), pool); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return pool
}

func newStores(pool *pgxpool.Pool) repotest.Factory {
	return func(t *testing.T) (repo.Users, repo.Tasks) {
		t.Helper()
		_, err := pool.Exec(context.Background(), `TRUNCATE tasks, users, roles RESTART IDENTITY CASCADE`)
		if err != nil {
			t.Fatalf("truncate: %v", err)
		}
		return NewUsersRepo(pool, nil), NewTasksRepo(pool, nil)
	}
}

func TestUsersRepo_Integration(t *testing.T) {
	pool := testPool(t)
	repotest.RunUsers(t, newStores(pool))
}

func TestTasksRepo_Integration(t *testing.T) {
	pool := testPool(t)
	repotest.RunTasks(t, newStores(pool))
}
