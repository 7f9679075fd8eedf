package task

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/geocoder89/taskhub/internal/apperr"
)

var (
	ErrInvalidStatus = apperr.Validation("invalid_status", "Statut invalide")
	ErrTransition    = apperr.InvalidTransition("transition_not_allowed", "Transition non autorisée")
	ErrNotDone       = apperr.InvalidTransition("not_done", "Action impossible")
	ErrEmptyTitle    = apperr.Validation("empty_title", "Le titre ne peut pas être vide")
)

// isAllowedTransition is the owner-facing state machine. Validation is not part
// of it: only an admin can leave StatusDone.
func isAllowedTransition(from, to Status) bool {
	switch from {
	case StatusTodo:
		return to == StatusInProgress || to == StatusDone
	case StatusInProgress:
		return to == StatusDone
	default:
		return false
	}
}

func isUserTarget(s Status) bool {
	return s == StatusInProgress || s == StatusDone
}

// Advance applies an owner-requested status change. The task is only mutated
// when the transition is allowed. Entering StatusDone stamps DateFin.
func (t *Task) Advance(requested string, now time.Time) error {
	to := Status(requested)
	if !isUserTarget(to) {
		return ErrInvalidStatus.
			With("message", "Utilisez 'en cours' ou 'terminé'").
			With("statuts_autorisés", statusStrings(UserTargets))
	}

	if !isAllowedTransition(t.Statut, to) {
		return ErrTransition.
			With("message", fmt.Sprintf("Impossible de passer de '%s' à '%s'", t.Statut, to)).
			With("statut_actuel", string(t.Statut)).
			With("statut_demandé", string(to))
	}

	t.Statut = to
	if to == StatusDone {
		fin := now
		t.DateFin = &fin
	}
	t.UpdatedAt = now
	return nil
}

// ValidateBy is the admin confirmation of a done task; it is the only guarded
// way into StatusValidated.
func (t *Task) ValidateBy(adminID int64, now time.Time) error {
	if t.Statut != StatusDone {
		return ErrNotDone.
			With("message", "Seules les tâches 'terminé' peuvent être validées").
			With("statut_actuel", string(t.Statut))
	}
	t.markValidated(adminID, now)
	t.UpdatedAt = now
	return nil
}

func (t *Task) markValidated(adminID int64, now time.Time) {
	at := now
	by := adminID
	t.Statut = StatusValidated
	t.ValideParAdmin = true
	t.DateValidation = &at
	t.ValidatedByID = &by
}

func (t *Task) clearValidation() {
	t.ValideParAdmin = false
	t.DateValidation = nil
	t.ValidatedByID = nil
}

// Patch is the admin override: any supplied field is merged, status values are
// only checked for membership, never for adjacency.
type Patch struct {
	Titre       *string        `json:"titre"`
	Description NullableString `json:"description"`
	Statut      *string        `json:"statut"`
}

// NullableString tells an absent key (Set false) from an explicit null
// (Set true, Value nil).
type NullableString struct {
	Set   bool
	Value *string
}

// Null reports a key that was sent as null.
func (n NullableString) Null() bool { return n.Set && n.Value == nil }

func (n *NullableString) UnmarshalJSON(b []byte) error {
	n.Set = true
	if string(b) == "null" {
		n.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	n.Value = &s
	return nil
}

func (p Patch) Validate() error {
	if p.Titre != nil && strings.TrimSpace(*p.Titre) == "" {
		return ErrEmptyTitle
	}
	if p.Statut != nil {
		if _, ok := ParseStatus(*p.Statut); !ok {
			return ErrInvalidStatus.With("statuts_autorisés", statusStrings(AllStatuses))
		}
	}
	return nil
}

// Apply merges p into t. Validation fields follow the status so that
// ValideParAdmin stays true exactly when the task is validated.
func (p Patch) Apply(t *Task, adminID int64, now time.Time) error {
	if err := p.Validate(); err != nil {
		return err
	}

	if p.Titre != nil {
		t.Titre = strings.TrimSpace(*p.Titre)
	}
	if p.Description.Set {
		if p.Description.Null() {
			t.Description = nil
		} else {
			d := *p.Description.Value
			t.Description = &d
		}
	}
	if p.Statut != nil {
		next := Status(*p.Statut)
		switch {
		case next == StatusValidated && t.Statut != StatusValidated:
			t.markValidated(adminID, now)
		case next != StatusValidated:
			t.Statut = next
			t.clearValidation()
		}
	}

	t.UpdatedAt = now
	return nil
}

// SubmitNote records the owner's note. It never moves the status.
func (t *Task) SubmitNote(note string, now time.Time) {
	n := note
	t.NoteUtilisateur = &n
	t.UpdatedAt = now
}
