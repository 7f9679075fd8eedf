package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/geocoder89/taskhub/internal/domain/user"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestMapUserInsertErr(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"email constraint", &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}, user.ErrEmailTaken},
		{"phone constraint", fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: "users_telephone_key"}), user.ErrPhoneTaken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := mapUserInsertErr(tt.err); !errors.Is(got, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}

	other := &pgconn.PgError{Code: "23503", ConstraintName: "users_role_id_fkey"}
	if got := mapUserInsertErr(other); got != error(other) {
		t.Fatalf("expected passthrough, got %v", got)
	}
	if !IsUniqueViolation(&pgconn.PgError{Code: "23505"}) {
		t.Fatalf("expected unique violation")
	}
	if IsUniqueViolation(errors.New("boom")) {
		t.Fatalf("plain error is not a unique violation")
	}
}
