package postgres

import (
	"errors"

	"github.com/geocoder89/taskhub/internal/domain/user"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// mapUserInsertErr turns a lost uniqueness race into the store sentinels.
func mapUserInsertErr(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return err
	}
	switch pgErr.ConstraintName {
	case "users_email_key":
		return user.ErrEmailTaken
	case "users_telephone_key":
		return user.ErrPhoneTaken
	default:
		return err
	}
}
