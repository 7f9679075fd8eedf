// Package repotest is a behaviour suite every storage backend runs against itself.
package repotest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/geocoder89/taskhub/internal/domain/role"
	"github.com/geocoder89/taskhub/internal/domain/task"
	"github.com/geocoder89/taskhub/internal/domain/user"
	"github.com/geocoder89/taskhub/internal/repo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Factory func(t *testing.T) (repo.Users, repo.Tasks)

func newUser(email, phone, roleName string) user.NewUser {
	return user.NewUser{
		Nom:          "Rakoto",
		Prenom:       "Jean",
		Email:        email,
		Telephone:    phone,
		PasswordHash: "hash",
		RoleName:     roleName,
	}
}

func RunUsers(t *testing.T, factory Factory) {
	ctx := context.Background()

	t.Run("create and lookup", func(t *testing.T) {
		users, _ := factory(t)

		u, err := users.Create(ctx, newUser("jean@example.com", "0341234567", "user"))
		require.NoError(t, err)
		assert.NotZero(t, u.ID)
		assert.Equal(t, "user", u.Role)
		assert.NotZero(t, u.RoleID)

		byEmail, err := users.GetByEmail(ctx, "JEAN@example.com ")
		require.NoError(t, err)
		assert.Equal(t, u.ID, byEmail.ID)
		assert.Equal(t, "hash", byEmail.PasswordHash)

		byID, err := users.GetByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, "jean@example.com", byID.Email)
		assert.Equal(t, "user", byID.Role)
	})

	t.Run("missing user", func(t *testing.T) {
		users, _ := factory(t)

		_, err := users.GetByID(ctx, 4242)
		assert.ErrorIs(t, err, user.ErrNotFound)
		_, err = users.GetByEmail(ctx, "nobody@example.com")
		assert.ErrorIs(t, err, user.ErrNotFound)
	})

	t.Run("uniqueness reports email before phone", func(t *testing.T) {
		users, _ := factory(t)

		_, err := users.Create(ctx, newUser("a@example.com", "0340000001", "user"))
		require.NoError(t, err)

		_, err = users.Create(ctx, newUser("a@example.com", "0340000001", "user"))
		assert.ErrorIs(t, err, user.ErrEmailTaken)

		_, err = users.Create(ctx, newUser("b@example.com", "0340000001", "user"))
		assert.ErrorIs(t, err, user.ErrPhoneTaken)
	})

	t.Run("roles are created on demand", func(t *testing.T) {
		users, _ := factory(t)

		first, err := users.EnsureRole(ctx, "Manager")
		require.NoError(t, err)
		assert.Equal(t, "manager", first.Nom)

		again, err := users.EnsureRole(ctx, "manager")
		require.NoError(t, err)
		assert.Equal(t, first.ID, again.ID)

		u, err := users.Create(ctx, newUser("m@example.com", "0340000002", "manager"))
		require.NoError(t, err)
		assert.Equal(t, first.ID, u.RoleID)
	})

	t.Run("list by role", func(t *testing.T) {
		users, _ := factory(t)

		_, err := users.Create(ctx, newUser("admin@example.com", "0340000010", role.Admin))
		require.NoError(t, err)
		u1, err := users.Create(ctx, newUser("u1@example.com", "0340000011", role.User))
		require.NoError(t, err)
		u2, err := users.Create(ctx, newUser("u2@example.com", "0340000012", role.User))
		require.NoError(t, err)

		all, err := users.List(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 3)

		plain, err := users.ListByRole(ctx, role.User)
		require.NoError(t, err)
		require.Len(t, plain, 2)
		assert.Equal(t, []int64{u1.ID, u2.ID}, []int64{plain[0].ID, plain[1].ID})
	})

	t.Run("photo and password updates", func(t *testing.T) {
		users, _ := factory(t)

		u, err := users.Create(ctx, newUser("p@example.com", "0340000020", "user"))
		require.NoError(t, err)
		assert.Nil(t, u.PhotoProfile)

		photo := "https://cdn.example.com/p.png"
		updated, err := users.UpdatePhoto(ctx, u.ID, &photo)
		require.NoError(t, err)
		require.NotNil(t, updated.PhotoProfile)
		assert.Equal(t, photo, *updated.PhotoProfile)

		empty := ""
		cleared, err := users.UpdatePhoto(ctx, u.ID, &empty)
		require.NoError(t, err)
		assert.Nil(t, cleared.PhotoProfile)

		require.NoError(t, users.UpdatePassword(ctx, u.ID, "new-hash"))
		reloaded, err := users.GetByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, "new-hash", reloaded.PasswordHash)

		assert.ErrorIs(t, users.UpdatePassword(ctx, 9999, "x"), user.ErrNotFound)
	})
}

func RunTasks(t *testing.T, factory Factory) {
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	seed := func(t *testing.T) (repo.Users, repo.Tasks, user.User, user.User, user.User) {
		users, tasks := factory(t)
		admin, err := users.Create(ctx, newUser("admin@example.com", "0349999990", role.Admin))
		require.NoError(t, err)
		alice, err := users.Create(ctx, newUser("alice@example.com", "0349999991", role.User))
		require.NoError(t, err)
		bob, err := users.Create(ctx, newUser("bob@example.com", "0349999992", role.User))
		require.NoError(t, err)
		return users, tasks, admin, alice, bob
	}

	newTask := func(t *testing.T, owner user.User, adminID int64, titre string, at time.Time) task.Task {
		tk, err := task.New(task.CreateRequest{UserID: owner.ID, Titre: titre}, owner, adminID, at)
		require.NoError(t, err)
		return tk
	}

	t.Run("create carries owner summary", func(t *testing.T) {
		_, tasks, admin, alice, _ := seed(t)

		created, err := tasks.Create(ctx, newTask(t, alice, admin.ID, "Rapport", base))
		require.NoError(t, err)
		assert.NotZero(t, created.ID)
		assert.Equal(t, task.StatusTodo, created.Statut)
		require.NotNil(t, created.User)
		assert.Equal(t, alice.Email, created.User.Email)
		require.NotNil(t, created.AssignedByID)
		assert.Equal(t, admin.ID, *created.AssignedByID)

		got, err := tasks.GetByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "Rapport", got.Titre)
		require.NotNil(t, got.Description)
		assert.Equal(t, "", *got.Description)
		require.NotNil(t, got.User)
		assert.Equal(t, alice.ID, got.User.ID)
		assert.False(t, got.ValideParAdmin)
		assert.Nil(t, got.DateValidation)
	})

	t.Run("lists are newest first", func(t *testing.T) {
		_, tasks, admin, alice, bob := seed(t)

		t1, err := tasks.Create(ctx, newTask(t, alice, admin.ID, "one", base))
		require.NoError(t, err)
		t2, err := tasks.Create(ctx, newTask(t, bob, admin.ID, "two", base.Add(time.Minute)))
		require.NoError(t, err)
		t3, err := tasks.Create(ctx, newTask(t, alice, admin.ID, "three", base.Add(2*time.Minute)))
		require.NoError(t, err)

		all, err := tasks.ListAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, []int64{t3.ID, t2.ID, t1.ID}, ids(all))

		mine, err := tasks.ListForUser(ctx, alice.ID)
		require.NoError(t, err)
		assert.Equal(t, []int64{t3.ID, t1.ID}, ids(mine))
		for _, tk := range mine {
			require.NotNil(t, tk.User)
			assert.Equal(t, alice.ID, tk.User.ID)
		}

		none, err := tasks.ListForUser(ctx, 777)
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("mutate persists on success", func(t *testing.T) {
		_, tasks, admin, alice, _ := seed(t)

		created, err := tasks.Create(ctx, newTask(t, alice, admin.ID, "cycle", base))
		require.NoError(t, err)

		_, err = tasks.Mutate(ctx, created.ID, func(tk *task.Task) error {
			return tk.Advance(string(task.StatusDone), base.Add(time.Hour))
		})
		require.NoError(t, err)

		validated, err := tasks.Mutate(ctx, created.ID, func(tk *task.Task) error {
			return tk.ValidateBy(admin.ID, base.Add(2*time.Hour))
		})
		require.NoError(t, err)
		assert.Equal(t, task.StatusValidated, validated.Statut)

		got, err := tasks.GetByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, task.StatusValidated, got.Statut)
		assert.True(t, got.ValideParAdmin)
		require.NotNil(t, got.DateValidation)
		assert.WithinDuration(t, base.Add(2*time.Hour), *got.DateValidation, time.Second)
		require.NotNil(t, got.DateFin)
		assert.WithinDuration(t, base.Add(time.Hour), *got.DateFin, time.Second)
		require.NotNil(t, got.ValidatedByID)
		assert.Equal(t, admin.ID, *got.ValidatedByID)
	})

	t.Run("mutate rolls back on error", func(t *testing.T) {
		_, tasks, admin, alice, _ := seed(t)

		created, err := tasks.Create(ctx, newTask(t, alice, admin.ID, "keep", base))
		require.NoError(t, err)

		boom := errors.New("boom")
		_, err = tasks.Mutate(ctx, created.ID, func(tk *task.Task) error {
			tk.Titre = "changed"
			return boom
		})
		assert.ErrorIs(t, err, boom)

		got, err := tasks.GetByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "keep", got.Titre)

		_, err = tasks.Mutate(ctx, 9999, func(*task.Task) error { return nil })
		assert.ErrorIs(t, err, task.ErrNotFound)
	})

	t.Run("note does not move status", func(t *testing.T) {
		_, tasks, admin, alice, _ := seed(t)

		created, err := tasks.Create(ctx, newTask(t, alice, admin.ID, "note", base))
		require.NoError(t, err)

		got, err := tasks.Mutate(ctx, created.ID, func(tk *task.Task) error {
			tk.SubmitNote("fait à moitié", base.Add(time.Minute))
			return nil
		})
		require.NoError(t, err)
		require.NotNil(t, got.NoteUtilisateur)
		assert.Equal(t, "fait à moitié", *got.NoteUtilisateur)
		assert.Equal(t, task.StatusTodo, got.Statut)
	})

	t.Run("delete", func(t *testing.T) {
		_, tasks, admin, alice, _ := seed(t)

		created, err := tasks.Create(ctx, newTask(t, alice, admin.ID, "gone", base))
		require.NoError(t, err)

		require.NoError(t, tasks.Delete(ctx, created.ID))
		_, err = tasks.GetByID(ctx, created.ID)
		assert.ErrorIs(t, err, task.ErrNotFound)
		assert.ErrorIs(t, tasks.Delete(ctx, created.ID), task.ErrNotFound)
	})
}

func ids(ts []task.Task) []int64 {
	out := make([]int64, 0, len(ts))
	for _, t := range ts {
		out = append(out, t.ID)
	}
	return out
}
