package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/geocoder89/taskhub/internal/domain/role"
	"github.com/geocoder89/taskhub/internal/domain/user"
	"github.com/geocoder89/taskhub/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UsersRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewUsersRepo(pool *pgxpool.Pool, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{pool: pool, prom: prom}
}

func (r *UsersRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

const userSelect = `SELECT u.id, u.nom, u.prenom, u.email, u.telephone, u.password_hash, u.photo_profile,
	u.role_id, COALESCE(r.nom, ''), u.created_at, u.updated_at
	FROM users u LEFT JOIN roles r ON r.id = u.role_id`

type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (r *UsersRepo) EnsureRole(ctx context.Context, name string) (rl role.Role, err error) {
	err = r.observe("roles.ensure", func() error {
		rl, err = ensureRole(ctx, r.pool, name)
		return err
	})
	return
}

func ensureRole(ctx context.Context, q queryRower, name string) (role.Role, error) {
	out := role.Role{Nom: role.Normalize(name)}

	// the no-op update makes RETURNING yield the existing row on conflict
	err := q.QueryRow(ctx,
		`INSERT INTO roles (nom) VALUES ($1)
		 ON CONFLICT ON CONSTRAINT roles_nom_key DO UPDATE SET nom = EXCLUDED.nom
		 RETURNING id`,
		out.Nom,
	).Scan(&out.ID)
	if err != nil {
		return role.Role{}, fmt.Errorf("ensure role: %w", err)
	}
	return out, nil
}

// Create checks email then phone uniqueness and inserts the account in one
// transaction, creating the role on demand.
func (r *UsersRepo) Create(ctx context.Context, nu user.NewUser) (u user.User, err error) {
	email := user.NormalizeEmail(nu.Email)

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var emailTaken, phoneTaken bool
	err = r.observe("users.create.uniqueness", func() error {
		return tx.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM users WHERE email = $1),
			        EXISTS(SELECT 1 FROM users WHERE telephone = $2)`,
			email, nu.Telephone,
		).Scan(&emailTaken, &phoneTaken)
	})
	if err != nil {
		return
	}
	if emailTaken {
		err = user.ErrEmailTaken
		return
	}
	if phoneTaken {
		err = user.ErrPhoneTaken
		return
	}

	rl, err := ensureRole(ctx, tx, nu.RoleName)
	if err != nil {
		return
	}

	var id int64
	err = r.observe("users.create.insert", func() error {
		return tx.QueryRow(ctx,
			`INSERT INTO users (nom, prenom, email, telephone, password_hash, role_id)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 RETURNING id`,
			nu.Nom, nu.Prenom, email, nu.Telephone, nu.PasswordHash, rl.ID,
		).Scan(&id)
	})
	if err != nil {
		err = mapUserInsertErr(err)
		return
	}

	u, err = scanUser(tx.QueryRow(ctx, userSelect+` WHERE u.id = $1`, id))
	if err != nil {
		return
	}

	err = tx.Commit(ctx)
	return
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (u user.User, err error) {
	err = r.observe("users.get_by_email", func() error {
		u, err = scanUser(r.pool.QueryRow(ctx, userSelect+` WHERE u.email = $1`, user.NormalizeEmail(email)))
		return err
	})
	return
}

func (r *UsersRepo) GetByID(ctx context.Context, id int64) (u user.User, err error) {
	err = r.observe("users.get_by_id", func() error {
		u, err = scanUser(r.pool.QueryRow(ctx, userSelect+` WHERE u.id = $1`, id))
		return err
	})
	return
}

func (r *UsersRepo) List(ctx context.Context) ([]user.User, error) {
	return r.query(ctx, "users.list", userSelect+` ORDER BY u.id`)
}

func (r *UsersRepo) ListByRole(ctx context.Context, roleName string) ([]user.User, error) {
	return r.query(ctx, "users.list_by_role", userSelect+` WHERE lower(r.nom) = $1 ORDER BY u.id`, role.Normalize(roleName))
}

func (r *UsersRepo) query(ctx context.Context, op, sql string, args ...any) (users []user.User, err error) {
	var rows pgx.Rows

	err = r.observe(op, func() error {
		rows, err = r.pool.Query(ctx, sql, args...)
		return err
	})
	if err != nil {
		return
	}

	defer rows.Close()

	users = make([]user.User, 0)
	for rows.Next() {
		u, e := scanUser(rows)
		if e != nil {
			err = e
			return
		}
		users = append(users, u)
	}

	err = rows.Err()
	return
}

func (r *UsersRepo) UpdatePhoto(ctx context.Context, id int64, photo *string) (u user.User, err error) {
	var value *string
	if photo != nil && *photo != "" {
		value = photo
	}

	err = r.observe("users.update_photo", func() error {
		tag, e := r.pool.Exec(ctx, `UPDATE users SET photo_profile = $2, updated_at = NOW() WHERE id = $1`, id, value)
		if e != nil {
			return e
		}
		if tag.RowsAffected() == 0 {
			return user.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return
	}
	return r.GetByID(ctx, id)
}

func (r *UsersRepo) UpdatePassword(ctx context.Context, id int64, hash string) error {
	return r.observe("users.update_password", func() error {
		tag, err := r.pool.Exec(ctx, `UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`, id, hash)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return user.ErrNotFound
		}
		return nil
	})
}

func scanUser(row pgx.Row) (user.User, error) {
	var u user.User
	err := row.Scan(&u.ID, &u.Nom, &u.Prenom, &u.Email, &u.Telephone, &u.PasswordHash, &u.PhotoProfile,
		&u.RoleID, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, err
	}
	return u, nil
}
