package user

import (
	"errors"
	"net/url"
	"time"
)

var (
	ErrNotFound    = errors.New("user not found")
	ErrEmailTaken  = errors.New("email already used")
	ErrPhoneTaken  = errors.New("phone already used")
	ErrRoleMissing = errors.New("role not found")
)

type User struct {
	ID           int64
	Nom          string
	Prenom       string
	Email        string
	Telephone    string
	PasswordHash string
	PhotoProfile *string
	RoleID       int64
	Role         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Profile is the public JSON view of a user.
type Profile struct {
	ID           int64     `json:"id"`
	Nom          string    `json:"nom"`
	Prenom       string    `json:"prenom"`
	Email        string    `json:"email"`
	Telephone    string    `json:"telephone"`
	PhotoProfile string    `json:"photo_profile"`
	Role         *string   `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// Account is the compact view returned by login and admin account creation.
type Account struct {
	ID        int64  `json:"id"`
	Nom       string `json:"nom"`
	Prenom    string `json:"prenom"`
	Email     string `json:"email"`
	Telephone string `json:"telephone"`
	Role      string `json:"role"`
}

// Summary is the owner block embedded in every task.
type Summary struct {
	ID     int64  `json:"id"`
	Nom    string `json:"nom"`
	Prenom string `json:"prenom"`
	Email  string `json:"email"`
}

// NewUser is what a store needs to insert an account; the role is resolved by name.
type NewUser struct {
	Nom          string
	Prenom       string
	Email        string
	Telephone    string
	PasswordHash string
	RoleName     string
}

// PhotoURL falls back to a generated avatar when no photo was uploaded.
func (u User) PhotoURL() string {
	if u.PhotoProfile != nil && *u.PhotoProfile != "" {
		return *u.PhotoProfile
	}
	return "https://ui-avatars.com/api/?name=" + url.QueryEscape(u.Prenom) + "+" + url.QueryEscape(u.Nom) +
		"&background=4F46E5&color=fff&size=200"
}

func (u User) Profile() Profile {
	p := Profile{
		ID:           u.ID,
		Nom:          u.Nom,
		Prenom:       u.Prenom,
		Email:        u.Email,
		Telephone:    u.Telephone,
		PhotoProfile: u.PhotoURL(),
		CreatedAt:    u.CreatedAt,
	}
	if u.Role != "" {
		r := u.Role
		p.Role = &r
	}
	return p
}

func (u User) Account() Account {
	return Account{
		ID:        u.ID,
		Nom:       u.Nom,
		Prenom:    u.Prenom,
		Email:     u.Email,
		Telephone: u.Telephone,
		Role:      u.Role,
	}
}

func (u User) Summary() Summary {
	return Summary{ID: u.ID, Nom: u.Nom, Prenom: u.Prenom, Email: u.Email}
}

func Profiles(users []User) []Profile {
	out := make([]Profile, 0, len(users))
	for _, u := range users {
		out = append(out, u.Profile())
	}
	return out
}
