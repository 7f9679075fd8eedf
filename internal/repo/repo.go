// Package repo holds the storage contracts shared by the memory, sqlite and
// postgres backends.
package repo

import (
	"context"

	"github.com/geocoder89/taskhub/internal/domain/role"
	"github.com/geocoder89/taskhub/internal/domain/task"
	"github.com/geocoder89/taskhub/internal/domain/user"
)

// Users is the identity store. Create reports user.ErrEmailTaken before
// user.ErrPhoneTaken and creates the named role when it does not exist.
type Users interface {
	EnsureRole(ctx context.Context, name string) (role.Role, error)
	Create(ctx context.Context, nu user.NewUser) (user.User, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
	GetByID(ctx context.Context, id int64) (user.User, error)
	List(ctx context.Context) ([]user.User, error)
	ListByRole(ctx context.Context, roleName string) ([]user.User, error)
	UpdatePhoto(ctx context.Context, id int64, photo *string) (user.User, error)
	UpdatePassword(ctx context.Context, id int64, hash string) error
}

// Tasks is the task store. Every task it returns carries its owner summary.
type Tasks interface {
	Create(ctx context.Context, t task.Task) (task.Task, error)
	GetByID(ctx context.Context, id int64) (task.Task, error)
	ListAll(ctx context.Context) ([]task.Task, error)
	ListForUser(ctx context.Context, userID int64) ([]task.Task, error)
	// Mutate loads the task, applies fn and persists the result as one unit.
	// When fn fails nothing is written and its error is returned unchanged.
	Mutate(ctx context.Context, id int64, fn func(*task.Task) error) (task.Task, error)
	Delete(ctx context.Context, id int64) error
}
