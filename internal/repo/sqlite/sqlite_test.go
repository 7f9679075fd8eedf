package sqlite

import (
	"path/filepath"
	"testing"

	"github.com/geocoder89/taskhub/internal/repo"
	"github.com/geocoder89/taskhub/internal/repo/repotest"
)

func newStores(t *testing.T) (repo.Users, repo.Tasks) {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "taskhub.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewUsersRepo(db, nil), NewTasksRepo(db, nil)
}

func TestUsersRepo(t *testing.T) {
	repotest.RunUsers(t, newStores)
}

func TestTasksRepo(t *testing.T) {
	repotest.RunTasks(t, newStores)
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "twice.db")

	first, err := Open(path)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	_ = first.Close()

	second, err := Open(path)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	defer second.Close()

	var n int
	if err := second.QueryRow(`SELECT COUNT(*) FROM tasks`).Scan(&n); err != nil {
		t.Fatalf("count tasks: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected empty tasks table, got %d", n)
	}
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open(""); err == nil {
		t.Fatalf("expected error for empty path")
	}
}
