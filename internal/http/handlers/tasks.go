package handlers

import (
	"context"
	"log/slog"
	"time"

	"github.com/geocoder89/taskhub/internal/domain/task"
	"github.com/geocoder89/taskhub/internal/notifications"
	"github.com/geocoder89/taskhub/internal/observability"
	"github.com/geocoder89/taskhub/internal/repo"
)

// TasksHandler serves both the admin and the owner task routes.
type TasksHandler struct {
	tasks    repo.Tasks
	users    repo.Users
	notifier notifications.Notifier
	prom     *observability.Prom
	now      func() time.Time
}

func NewTasksHandler(tasks repo.Tasks, users repo.Users, notifier notifications.Notifier, prom *observability.Prom) *TasksHandler {
	return &TasksHandler{
		tasks:    tasks,
		users:    users,
		notifier: notifier,
		prom:     prom,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// notify tells the owner about t. A failed delivery is logged only.
func (h *TasksHandler) notify(ctx context.Context, kind notifications.Kind, t task.Task, actorID int64) {
	if h.notifier == nil {
		return
	}

	ev := notifications.Event{
		Kind:    kind,
		TaskID:  t.ID,
		Titre:   t.Titre,
		UserID:  t.UserID,
		ActorID: actorID,
	}
	if t.User != nil {
		ev.Email = t.User.Email
		ev.Nom = t.User.Nom
		ev.Prenom = t.User.Prenom
	}

	if err := h.notifier.Notify(ctx, ev); err != nil {
		slog.Default().WarnContext(ctx, "notification failed",
			"kind", string(kind),
			"task_id", t.ID,
			"err", err,
		)
	}
}
