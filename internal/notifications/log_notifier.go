package notifications

import (
	"context"
	"log/slog"

	"github.com/geocoder89/taskhub/internal/actorctx"
)

// LogNotifier records notifications as structured log lines. It stands in for
// a mail or push provider.
type LogNotifier struct {
	log *slog.Logger
}

func NewLogNotifier(log *slog.Logger) *LogNotifier {
	if log == nil {
		log = slog.Default()
	}
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Notify(ctx context.Context, ev Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	attrs := []any{
		"task_id", ev.TaskID,
		"titre", ev.Titre,
		"user_id", ev.UserID,
		"email", ev.Email,
		"actor_id", ev.ActorID,
	}
	if actor, ok := actorctx.From(ctx); ok {
		attrs = append(attrs, "actor_email", actor.Email)
	}

	n.log.InfoContext(ctx, "notification."+string(ev.Kind), attrs...)
	return nil
}
