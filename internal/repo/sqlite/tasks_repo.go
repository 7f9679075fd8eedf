package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/geocoder89/taskhub/internal/domain/task"
	"github.com/geocoder89/taskhub/internal/domain/user"
	"github.com/geocoder89/taskhub/internal/observability"
)

type TasksRepo struct {
	db   *sql.DB
	prom *observability.Prom
}

func NewTasksRepo(db *sql.DB, prom *observability.Prom) *TasksRepo {
	return &TasksRepo{db: db, prom: prom}
}

func (r *TasksRepo) observe(op string, fn func() error) error {
	return observe(r.prom, op, fn)
}

const taskSelect = `SELECT t.id, t.titre, t.description, t.statut, t.note_utilisateur, t.valide_par_admin,
	t.date_validation, t.date_fin, t.created_at, t.updated_at, t.user_id, t.assigned_by_id, t.validated_by_id,
	o.id, o.nom, o.prenom, o.email
	FROM tasks t LEFT JOIN users o ON o.id = t.user_id`

func (r *TasksRepo) Create(ctx context.Context, t task.Task) (task.Task, error) {
	var id int64
	err := r.observe("tasks.create", func() error {
		res, err := r.db.ExecContext(ctx,
			`INSERT INTO tasks (titre, description, statut, note_utilisateur, valide_par_admin, date_validation,
				date_fin, created_at, updated_at, user_id, assigned_by_id, validated_by_id)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			t.Titre, nullString(t.Description), string(t.Statut), nullString(t.NoteUtilisateur), t.ValideParAdmin,
			nullTime(t.DateValidation), nullTime(t.DateFin), formatTime(t.CreatedAt), formatTime(t.UpdatedAt),
			t.UserID, nullInt(t.AssignedByID), nullInt(t.ValidatedByID),
		)
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return task.Task{}, err
	}
	return r.GetByID(ctx, id)
}

func (r *TasksRepo) GetByID(ctx context.Context, id int64) (t task.Task, err error) {
	err = r.observe("tasks.get_by_id", func() error {
		t, err = getTask(ctx, r.db, id)
		return err
	})
	return
}

func getTask(ctx context.Context, q querier, id int64) (task.Task, error) {
	return scanTask(q.QueryRowContext(ctx, taskSelect+` WHERE t.id = ?`, id))
}

func (r *TasksRepo) ListAll(ctx context.Context) ([]task.Task, error) {
	return r.query(ctx, "tasks.list_all", taskSelect+` ORDER BY t.created_at DESC, t.id DESC`)
}

func (r *TasksRepo) ListForUser(ctx context.Context, userID int64) ([]task.Task, error) {
	return r.query(ctx, "tasks.list_for_user", taskSelect+` WHERE t.user_id = ? ORDER BY t.created_at DESC, t.id DESC`, userID)
}

func (r *TasksRepo) query(ctx context.Context, op, query string, args ...any) (out []task.Task, err error) {
	err = r.observe(op, func() error {
		rows, err := r.db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		out = make([]task.Task, 0)
		for rows.Next() {
			t, err := scanTask(rows)
			if err != nil {
				return err
			}
			out = append(out, t)
		}
		return rows.Err()
	})
	return
}

// Mutate runs inside a write transaction; sqlite holds the database lock until
// commit so concurrent mutations serialise.
func (r *TasksRepo) Mutate(ctx context.Context, id int64, fn func(*task.Task) error) (task.Task, error) {
	var out task.Task
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		var current task.Task
		err := r.observe("tasks.mutate.lock", func() error {
			var err error
			current, err = getTask(ctx, tx, id)
			return err
		})
		if err != nil {
			return err
		}
		if err := fn(&current); err != nil {
			return err
		}

		return r.observe("tasks.mutate.update", func() error {
			_, err := tx.ExecContext(ctx,
				`UPDATE tasks SET titre = ?, description = ?, statut = ?, note_utilisateur = ?, valide_par_admin = ?,
					date_validation = ?, date_fin = ?, updated_at = ?, validated_by_id = ?
				 WHERE id = ?`,
				current.Titre, nullString(current.Description), string(current.Statut), nullString(current.NoteUtilisateur),
				current.ValideParAdmin, nullTime(current.DateValidation), nullTime(current.DateFin),
				formatTime(current.UpdatedAt), nullInt(current.ValidatedByID), id,
			)
			if err != nil {
				return err
			}
			out, err = getTask(ctx, tx, id)
			return err
		})
	})
	if err != nil {
		return task.Task{}, err
	}
	return out, nil
}

func (r *TasksRepo) Delete(ctx context.Context, id int64) error {
	return r.observe("tasks.delete", func() error {
		res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
		return affectedOne(res, err, task.ErrNotFound)
	})
}

func scanTask(row rowScanner) (task.Task, error) {
	var (
		t                              task.Task
		statut                         string
		description, note              sql.NullString
		dateValidation, dateFin        sql.NullString
		created, updated               string
		assignedBy, validatedBy        sql.NullInt64
		ownerID                        sql.NullInt64
		ownerNom, ownerPrenom, ownerEm sql.NullString
	)
	err := row.Scan(&t.ID, &t.Titre, &description, &statut, &note, &t.ValideParAdmin,
		&dateValidation, &dateFin, &created, &updated, &t.UserID, &assignedBy, &validatedBy,
		&ownerID, &ownerNom, &ownerPrenom, &ownerEm)
	if errors.Is(err, sql.ErrNoRows) {
		return task.Task{}, task.ErrNotFound
	}
	if err != nil {
		return task.Task{}, err
	}

	t.Statut = task.Status(statut)
	t.Description = stringPtr(description)
	t.NoteUtilisateur = stringPtr(note)
	t.AssignedByID = int64Ptr(assignedBy)
	t.ValidatedByID = int64Ptr(validatedBy)

	if t.DateValidation, err = parseNullTime(dateValidation); err != nil {
		return task.Task{}, err
	}
	if t.DateFin, err = parseNullTime(dateFin); err != nil {
		return task.Task{}, err
	}
	if t.CreatedAt, err = parseTime(created); err != nil {
		return task.Task{}, err
	}
	if t.UpdatedAt, err = parseTime(updated); err != nil {
		return task.Task{}, err
	}

	if ownerID.Valid {
		t.User = &user.Summary{ID: ownerID.Int64, Nom: ownerNom.String, Prenom: ownerPrenom.String, Email: ownerEm.String}
	}
	return t, nil
}
