package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/geocoder89/taskhub/internal/domain/role"
	"github.com/geocoder89/taskhub/internal/domain/user"
	"github.com/geocoder89/taskhub/internal/observability"
)

type UsersRepo struct {
	db   *sql.DB
	prom *observability.Prom
	now  func() time.Time
}

func NewUsersRepo(db *sql.DB, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{db: db, prom: prom, now: time.Now}
}

func (r *UsersRepo) observe(op string, fn func() error) error {
	return observe(r.prom, op, fn)
}

const userColumns = `u.id, u.nom, u.prenom, u.email, u.telephone, u.password_hash, u.photo_profile,
	u.role_id, COALESCE(r.nom, ''), u.created_at, u.updated_at`

const userFrom = ` FROM users u LEFT JOIN roles r ON r.id = u.role_id`

func (r *UsersRepo) EnsureRole(ctx context.Context, name string) (role.Role, error) {
	var out role.Role
	err := r.observe("roles.ensure", func() error {
		return withTx(ctx, r.db, func(tx *sql.Tx) error {
			var err error
			out, err = ensureRole(ctx, tx, name)
			return err
		})
	})
	return out, err
}

func ensureRole(ctx context.Context, q querier, name string) (role.Role, error) {
	name = role.Normalize(name)
	if _, err := q.ExecContext(ctx, `INSERT INTO roles (nom) VALUES (?) ON CONFLICT(nom) DO NOTHING`, name); err != nil {
		return role.Role{}, fmt.Errorf("insert role: %w", err)
	}

	out := role.Role{Nom: name}
	if err := q.QueryRowContext(ctx, `SELECT id FROM roles WHERE nom = ?`, name).Scan(&out.ID); err != nil {
		return role.Role{}, fmt.Errorf("select role: %w", err)
	}
	return out, nil
}

func (r *UsersRepo) Create(ctx context.Context, nu user.NewUser) (user.User, error) {
	email := user.NormalizeEmail(nu.Email)
	now := formatTime(r.now())

	var id int64
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		var emailTaken, phoneTaken bool
		err := r.observe("users.create.uniqueness", func() error {
			var err error
			if emailTaken, err = exists(ctx, tx, `SELECT 1 FROM users WHERE email = ?`, email); err != nil {
				return err
			}
			phoneTaken, err = exists(ctx, tx, `SELECT 1 FROM users WHERE telephone = ?`, nu.Telephone)
			return err
		})
		switch {
		case err != nil:
			return err
		case emailTaken:
			return user.ErrEmailTaken
		case phoneTaken:
			return user.ErrPhoneTaken
		}

		return r.observe("users.create.insert", func() error {
			rl, err := ensureRole(ctx, tx, nu.RoleName)
			if err != nil {
				return err
			}

			res, err := tx.ExecContext(ctx,
				`INSERT INTO users (nom, prenom, email, telephone, password_hash, role_id, created_at, updated_at)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				nu.Nom, nu.Prenom, email, nu.Telephone, nu.PasswordHash, rl.ID, now, now,
			)
			if err != nil {
				return err
			}
			id, err = res.LastInsertId()
			return err
		})
	})
	if err != nil {
		return user.User{}, mapUniqueErr(err)
	}

	return r.GetByID(ctx, id)
}

func exists(ctx context.Context, q querier, query string, args ...any) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// mapUniqueErr covers the race where a concurrent insert wins after the
// explicit checks.
func mapUniqueErr(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed: users.email"):
		return user.ErrEmailTaken
	case strings.Contains(msg, "UNIQUE constraint failed: users.telephone"):
		return user.ErrPhoneTaken
	default:
		return err
	}
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (u user.User, err error) {
	err = r.observe("users.get_by_email", func() error {
		u, err = scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+userFrom+` WHERE u.email = ?`, user.NormalizeEmail(email)))
		return err
	})
	return
}

func (r *UsersRepo) GetByID(ctx context.Context, id int64) (u user.User, err error) {
	err = r.observe("users.get_by_id", func() error {
		u, err = scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+userFrom+` WHERE u.id = ?`, id))
		return err
	})
	return
}

func (r *UsersRepo) List(ctx context.Context) ([]user.User, error) {
	return r.query(ctx, "users.list", `SELECT `+userColumns+userFrom+` ORDER BY u.id`)
}

func (r *UsersRepo) ListByRole(ctx context.Context, roleName string) ([]user.User, error) {
	return r.query(ctx, "users.list_by_role", `SELECT `+userColumns+userFrom+` WHERE lower(r.nom) = ? ORDER BY u.id`, role.Normalize(roleName))
}

func (r *UsersRepo) query(ctx context.Context, op, query string, args ...any) (out []user.User, err error) {
	err = r.observe(op, func() error {
		rows, err := r.db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		out = make([]user.User, 0)
		for rows.Next() {
			u, err := scanUser(rows)
			if err != nil {
				return err
			}
			out = append(out, u)
		}
		return rows.Err()
	})
	return
}

func (r *UsersRepo) UpdatePhoto(ctx context.Context, id int64, photo *string) (user.User, error) {
	var value sql.NullString
	if photo != nil && *photo != "" {
		value = sql.NullString{String: *photo, Valid: true}
	}

	err := r.observe("users.update_photo", func() error {
		res, err := r.db.ExecContext(ctx,
			`UPDATE users SET photo_profile = ?, updated_at = ? WHERE id = ?`,
			value, formatTime(r.now()), id,
		)
		return affectedOne(res, err, user.ErrNotFound)
	})
	if err != nil {
		return user.User{}, err
	}
	return r.GetByID(ctx, id)
}

func (r *UsersRepo) UpdatePassword(ctx context.Context, id int64, hash string) error {
	return r.observe("users.update_password", func() error {
		res, err := r.db.ExecContext(ctx,
			`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
			hash, formatTime(r.now()), id,
		)
		return affectedOne(res, err, user.ErrNotFound)
	})
}

func affectedOne(res sql.Result, err error, notFound error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (user.User, error) {
	var (
		u                user.User
		photo            sql.NullString
		created, updated string
	)
	err := row.Scan(&u.ID, &u.Nom, &u.Prenom, &u.Email, &u.Telephone, &u.PasswordHash, &photo,
		&u.RoleID, &u.Role, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return user.User{}, user.ErrNotFound
	}
	if err != nil {
		return user.User{}, err
	}

	u.PhotoProfile = stringPtr(photo)
	if u.CreatedAt, err = parseTime(created); err != nil {
		return user.User{}, err
	}
	if u.UpdatedAt, err = parseTime(updated); err != nil {
		return user.User{}, err
	}
	return u, nil
}
