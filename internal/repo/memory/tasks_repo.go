package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/geocoder89/taskhub/internal/domain/task"
)

// TasksRepo keeps tasks in process memory. Owner summaries are read from the
// users repo at query time.
type TasksRepo struct {
	mu     sync.Mutex
	items  map[int64]task.Task
	nextID int64
	users  *UsersRepo
}

func NewTasksRepo(users *UsersRepo) *TasksRepo {
	return &TasksRepo{
		items: make(map[int64]task.Task),
		users: users,
	}
}

func (r *TasksRepo) Create(_ context.Context, t task.Task) (task.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	t.ID = r.nextID
	t.User = nil
	r.items[t.ID] = t
	return r.withOwner(t), nil
}

func (r *TasksRepo) GetByID(_ context.Context, id int64) (task.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.items[id]
	if !ok {
		return task.Task{}, task.ErrNotFound
	}
	return r.withOwner(t), nil
}

// ListAll returns every task, newest first.
func (r *TasksRepo) ListAll(_ context.Context) ([]task.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.newestFirst(func(task.Task) bool { return true }), nil
}

func (r *TasksRepo) ListForUser(_ context.Context, userID int64) ([]task.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.newestFirst(func(t task.Task) bool { return t.UserID == userID }), nil
}

// Mutate runs fn on a copy of the task while holding the write lock and stores
// the result only when fn succeeds.
func (r *TasksRepo) Mutate(_ context.Context, id int64, fn func(*task.Task) error) (task.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.items[id]
	if !ok {
		return task.Task{}, task.ErrNotFound
	}

	working := r.withOwner(current)
	if err := fn(&working); err != nil {
		return task.Task{}, err
	}

	working.ID = id
	stored := working
	stored.User = nil
	r.items[id] = stored
	return r.withOwner(stored), nil
}

func (r *TasksRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return task.ErrNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *TasksRepo) newestFirst(keep func(task.Task) bool) []task.Task {
	out := make([]task.Task, 0, len(r.items))
	for _, t := range r.items {
		if keep(t) {
			out = append(out, r.withOwner(t))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (r *TasksRepo) withOwner(t task.Task) task.Task {
	if r.users != nil {
		t.User = r.users.summary(t.UserID)
	}
	return t
}
