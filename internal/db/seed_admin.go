package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/geocoder89/taskhub/internal/config"
	"github.com/geocoder89/taskhub/internal/domain/role"
	"github.com/geocoder89/taskhub/internal/domain/user"
	"github.com/geocoder89/taskhub/internal/repo"
	"github.com/geocoder89/taskhub/internal/security"
)

// EnsureRoles creates the admin and user roles if they are missing.
func EnsureRoles(ctx context.Context, users repo.Users) error {
	for _, name := range []string{role.Admin, role.User} {
		if _, err := users.EnsureRole(ctx, name); err != nil {
			return fmt.Errorf("ensure role %s: %w", name, err)
		}
	}
	return nil
}

// EnsureAdminUser seeds the roles and, when ADMIN_EMAIL and ADMIN_PASSWORD are
// set, the bootstrap administrator. Running it again is a no-op.
func EnsureAdminUser(ctx context.Context, users repo.Users, creds security.CredentialVerifier, cfg config.Config) error {
	if err := EnsureRoles(ctx, users); err != nil {
		return err
	}

	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}

	// check if the user exists
	_, err := users.GetByEmail(ctx, cfg.AdminEmail)
	if err == nil {
		return nil
	}
	if !errors.Is(err, user.ErrNotFound) {
		return err
	}

	req := user.RegisterRequest{
		Nom:       cfg.AdminNom,
		Prenom:    cfg.AdminPrenom,
		Email:     cfg.AdminEmail,
		Telephone: cfg.AdminTelephone,
		Password:  cfg.AdminPassword,
		Role:      role.Admin,
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return fmt.Errorf("admin account settings: %w", err)
	}

	hash, err := creds.Hash(req.Password)
	if err != nil {
		return err
	}

	created, err := users.Create(ctx, req.NewUser(hash))
	if err != nil {
		return fmt.Errorf("create admin: %w", err)
	}

	slog.Info("admin account created", "user_id", created.ID, "email", created.Email)
	return nil
}
