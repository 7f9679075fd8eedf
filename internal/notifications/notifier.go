package notifications

import "context"

type Kind string

const (
	TaskAssigned  Kind = "task_assigned"
	TaskValidated Kind = "task_validated"
)

// Event tells a task owner that something happened to one of their tasks.
type Event struct {
	Kind    Kind
	TaskID  int64
	Titre   string
	UserID  int64
	Email   string
	Nom     string
	Prenom  string
	ActorID int64
}

type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}
