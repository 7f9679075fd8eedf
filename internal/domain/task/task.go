package task

import (
	"errors"
	"strings"
	"time"

	"github.com/geocoder89/taskhub/internal/apperr"
	"github.com/geocoder89/taskhub/internal/domain/role"
	"github.com/geocoder89/taskhub/internal/domain/user"
)

var ErrNotFound = errors.New("task not found")

var ErrInvalidAssignee = apperr.Validation("invalid_user", "Utilisateur invalide. Doit être un utilisateur standard (non-admin)")

type Task struct {
	ID              int64         `json:"id"`
	Titre           string        `json:"titre"`
	Description     *string       `json:"description"`
	Statut          Status        `json:"statut"`
	NoteUtilisateur *string       `json:"note_utilisateur"`
	ValideParAdmin  bool          `json:"valide_par_admin"`
	DateValidation  *time.Time    `json:"date_validation"`
	DateFin         *time.Time    `json:"date_fin"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
	UserID          int64         `json:"user_id"`
	AssignedByID    *int64        `json:"assigned_by_id"`
	ValidatedByID   *int64        `json:"validated_by_id"`
	User            *user.Summary `json:"user"`
}

type CreateRequest struct {
	UserID      int64   `json:"user_id" binding:"required,gt=0"`
	Titre       string  `json:"titre" binding:"required"`
	Description *string `json:"description"`
}

// New builds a fresh task assigned by assignerID. The owner must hold the user role.
func New(req CreateRequest, owner user.User, assignerID int64, now time.Time) (Task, error) {
	if err := req.Validate(); err != nil {
		return Task{}, err
	}
	if err := CheckAssignee(owner); err != nil {
		return Task{}, err
	}

	titre := strings.TrimSpace(req.Titre)

	desc := ""
	if req.Description != nil {
		desc = *req.Description
	}

	assigner := assignerID
	summary := owner.Summary()

	return Task{
		Titre:        titre,
		Description:  &desc,
		Statut:       StatusTodo,
		CreatedAt:    now,
		UpdatedAt:    now,
		UserID:       owner.ID,
		AssignedByID: &assigner,
		User:         &summary,
	}, nil
}

var ErrMissingCreateFields = apperr.Validation("missing_task_fields", "L'utilisateur et le titre sont obligatoires")

func (r CreateRequest) Validate() error {
	if r.UserID <= 0 || strings.TrimSpace(r.Titre) == "" {
		return ErrMissingCreateFields
	}
	return nil
}

// CheckAssignee rejects owners that are not plain users, admins included.
func CheckAssignee(owner user.User) error {
	if owner.ID == 0 || !role.IsUser(owner.Role) {
		return ErrInvalidAssignee
	}
	return nil
}

// OwnedBy reports whether userID owns the task.
func (t Task) OwnedBy(userID int64) bool {
	return t.UserID == userID
}
