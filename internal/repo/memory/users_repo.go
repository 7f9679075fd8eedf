package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/geocoder89/taskhub/internal/domain/role"
	"github.com/geocoder89/taskhub/internal/domain/user"
)

type UsersRepo struct {
	mu     sync.RWMutex
	users  map[int64]user.User
	roles  map[string]role.Role
	nextID int64
	roleID int64
	now    func() time.Time
}

func NewUsersRepo() *UsersRepo {
	return &UsersRepo{
		users: make(map[int64]user.User),
		roles: make(map[string]role.Role),
		now:   time.Now,
	}
}

// EnsureRole returns the role named name, creating it when missing.
func (r *UsersRepo) EnsureRole(_ context.Context, name string) (role.Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ensureRoleLocked(name), nil
}

func (r *UsersRepo) ensureRoleLocked(name string) role.Role {
	name = role.Normalize(name)
	if existing, ok := r.roles[name]; ok {
		return existing
	}
	r.roleID++
	created := role.Role{ID: r.roleID, Nom: name}
	r.roles[name] = created
	return created
}

func (r *UsersRepo) Create(_ context.Context, nu user.NewUser) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	email := user.NormalizeEmail(nu.Email)
	for _, u := range r.users {
		if u.Email == email {
			return user.User{}, user.ErrEmailTaken
		}
	}
	for _, u := range r.users {
		if u.Telephone == nu.Telephone {
			return user.User{}, user.ErrPhoneTaken
		}
	}

	rl := r.ensureRoleLocked(nu.RoleName)
	now := r.now().UTC()
	r.nextID++

	u := user.User{
		ID:           r.nextID,
		Nom:          nu.Nom,
		Prenom:       nu.Prenom,
		Email:        email,
		Telephone:    nu.Telephone,
		PasswordHash: nu.PasswordHash,
		RoleID:       rl.ID,
		Role:         rl.Nom,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	r.users[u.ID] = u
	return u, nil
}

func (r *UsersRepo) GetByEmail(_ context.Context, email string) (user.User, error) {
	email = user.NormalizeEmail(email)

	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (r *UsersRepo) GetByID(_ context.Context, id int64) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return u, nil
}

// List returns every account in id order.
func (r *UsersRepo) List(_ context.Context) ([]user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sortedLocked(func(user.User) bool { return true }), nil
}

func (r *UsersRepo) ListByRole(_ context.Context, roleName string) ([]user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sortedLocked(func(u user.User) bool { return role.Is(u.Role, roleName) }), nil
}

func (r *UsersRepo) sortedLocked(keep func(user.User) bool) []user.User {
	out := make([]user.User, 0, len(r.users))
	for _, u := range r.users {
		if keep(u) {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// UpdatePhoto sets the profile photo; nil or empty clears it.
func (r *UsersRepo) UpdatePhoto(_ context.Context, id int64, photo *string) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	if photo == nil || *photo == "" {
		u.PhotoProfile = nil
	} else {
		p := *photo
		u.PhotoProfile = &p
	}
	u.UpdatedAt = r.now().UTC()
	r.users[id] = u
	return u, nil
}

func (r *UsersRepo) UpdatePassword(_ context.Context, id int64, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return user.ErrNotFound
	}
	u.PasswordHash = hash
	u.UpdatedAt = r.now().UTC()
	r.users[id] = u
	return nil
}

func (r *UsersRepo) summary(id int64) *user.Summary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil
	}
	s := u.Summary()
	return &s
}
