package postgres

import (
	"context"
	"errors"

	"github.com/geocoder89/taskhub/internal/domain/task"
	"github.com/geocoder89/taskhub/internal/domain/user"
	"github.com/geocoder89/taskhub/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TasksRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewTasksRepo(pool *pgxpool.Pool, prom *observability.Prom) *TasksRepo {
	return &TasksRepo{pool: pool, prom: prom}
}

func (r *TasksRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

const taskSelect = `SELECT t.id, t.titre, t.description, t.statut, t.note_utilisateur, t.valide_par_admin,
	t.date_validation, t.date_fin, t.created_at, t.updated_at, t.user_id, t.assigned_by_id, t.validated_by_id,
	o.id, o.nom, o.prenom, o.email
	FROM tasks t LEFT JOIN users o ON o.id = t.user_id`

func (r *TasksRepo) Create(ctx context.Context, t task.Task) (created task.Task, err error) {
	var id int64

	err = r.observe("tasks.create", func() error {
		return r.pool.QueryRow(ctx,
			`INSERT INTO tasks (titre, description, statut, note_utilisateur, valide_par_admin, date_validation,
				date_fin, created_at, updated_at, user_id, assigned_by_id, validated_by_id)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			 RETURNING id`,
			t.Titre, t.Description, string(t.Statut), t.NoteUtilisateur, t.ValideParAdmin, t.DateValidation,
			t.DateFin, t.CreatedAt, t.UpdatedAt, t.UserID, t.AssignedByID, t.ValidatedByID,
		).Scan(&id)
	})
	if err != nil {
		return
	}

	return r.GetByID(ctx, id)
}

func (r *TasksRepo) GetByID(ctx context.Context, id int64) (t task.Task, err error) {
	err = r.observe("tasks.get_by_id", func() error {
		t, err = scanTask(r.pool.QueryRow(ctx, taskSelect+` WHERE t.id = $1`, id))
		return err
	})
	return
}

func (r *TasksRepo) ListAll(ctx context.Context) ([]task.Task, error) {
	return r.query(ctx, "tasks.list_all", taskSelect+` ORDER BY t.created_at DESC, t.id DESC`)
}

func (r *TasksRepo) ListForUser(ctx context.Context, userID int64) ([]task.Task, error) {
	return r.query(ctx, "tasks.list_for_user", taskSelect+` WHERE t.user_id = $1 ORDER BY t.created_at DESC, t.id DESC`, userID)
}

func (r *TasksRepo) query(ctx context.Context, op, sql string, args ...any) (tasks []task.Task, err error) {
	var rows pgx.Rows

	err = r.observe(op, func() error {
		rows, err = r.pool.Query(ctx, sql, args...)
		return err
	})
	if err != nil {
		return
	}

	defer rows.Close()

	tasks = make([]task.Task, 0)
	for rows.Next() {
		t, e := scanTask(rows)
		if e != nil {
			err = e
			return
		}
		tasks = append(tasks, t)
	}

	err = rows.Err()
	return
}

// Mutate locks the row with SELECT ... FOR UPDATE, applies fn and writes the
// result back before committing. Concurrent mutations of one task serialise.
func (r *TasksRepo) Mutate(ctx context.Context, id int64, fn func(*task.Task) error) (out task.Task, err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var current task.Task
	err = r.observe("tasks.mutate.lock", func() error {
		current, err = scanTask(tx.QueryRow(ctx, taskSelect+` WHERE t.id = $1 FOR UPDATE OF t`, id))
		return err
	})
	if err != nil {
		return
	}

	if err = fn(&current); err != nil {
		return
	}

	err = r.observe("tasks.mutate.update", func() error {
		_, e := tx.Exec(ctx,
			`UPDATE tasks
			    SET titre = $2,
			        description = $3,
			        statut = $4,
			        note_utilisateur = $5,
			        valide_par_admin = $6,
			        date_validation = $7,
			        date_fin = $8,
			        updated_at = $9,
			        validated_by_id = $10
			  WHERE id = $1`,
			id, current.Titre, current.Description, string(current.Statut), current.NoteUtilisateur,
			current.ValideParAdmin, current.DateValidation, current.DateFin, current.UpdatedAt, current.ValidatedByID,
		)
		return e
	})
	if err != nil {
		return
	}

	out, err = scanTask(tx.QueryRow(ctx, taskSelect+` WHERE t.id = $1`, id))
	if err != nil {
		return
	}

	err = tx.Commit(ctx)
	return
}

func (r *TasksRepo) Delete(ctx context.Context, id int64) error {
	return r.observe("tasks.delete", func() error {
		tag, err := r.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return task.ErrNotFound
		}
		return nil
	})
}

func scanTask(row pgx.Row) (task.Task, error) {
	var (
		t                             task.Task
		statut                        string
		ownerID                       *int64
		ownerNom, ownerPrenom, ownerE *string
	)
	err := row.Scan(&t.ID, &t.Titre, &t.Description, &statut, &t.NoteUtilisateur, &t.ValideParAdmin,
		&t.DateValidation, &t.DateFin, &t.CreatedAt, &t.UpdatedAt, &t.UserID, &t.AssignedByID, &t.ValidatedByID,
		&ownerID, &ownerNom, &ownerPrenom, &ownerE)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return task.Task{}, task.ErrNotFound
		}
		return task.Task{}, err
	}

	t.Statut = task.Status(statut)
	if ownerID != nil {
		t.User = &user.Summary{ID: *ownerID, Nom: deref(ownerNom), Prenom: deref(ownerPrenom), Email: deref(ownerE)}
	}
	return t, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
