package user

import (
	"errors"
	"strings"

	"github.com/geocoder89/taskhub/internal/apperr"
	"github.com/geocoder89/taskhub/internal/domain/role"
	"github.com/go-playground/validator/v10"
)

const MinPasswordLength = 6

var (
	ErrMissingFields = apperr.Validation("missing_fields", "Veuillez remplir tous les champs")
	ErrInvalidPhone  = apperr.Validation("invalid_phone", "Le numéro de téléphone doit contenir 10 chiffres")
	ErrShortPassword = apperr.Validation("password_too_short", "Mot de passe trop court")
)

type RegisterRequest struct {
	Nom       string `json:"nom" validate:"required"`
	Prenom    string `json:"prenom" validate:"required"`
	Email     string `json:"email" validate:"required"`
	Telephone string `json:"telephone" validate:"required,digits,len=10"`
	Password  string `json:"password" validate:"required,min=6"`
	Role      string `json:"role"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("digits", func(fl validator.FieldLevel) bool {
		return isDigits(fl.Field().String())
	})
	return v
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// NormalizeEmail is applied on every write and every lookup by email.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Normalize trims the identity fields, lower-cases the email and resolves the role name.
func (r *RegisterRequest) Normalize() {
	r.Nom = strings.TrimSpace(r.Nom)
	r.Prenom = strings.TrimSpace(r.Prenom)
	r.Email = NormalizeEmail(r.Email)
	r.Telephone = strings.TrimSpace(r.Telephone)
	r.Role = role.Normalize(r.Role)
}

// Validate checks presence first, then the phone format, then the password length,
// reporting only the first failing rule.
func (r RegisterRequest) Validate() error {
	err := validate.Struct(r)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperr.Internal("Impossible de valider la requête", err)
	}

	var phoneBad, passwordBad bool
	for _, fe := range fieldErrs {
		if fe.Tag() == "required" {
			return ErrMissingFields.With("champ", jsonName(fe.Field()))
		}
		switch fe.Field() {
		case "Telephone":
			phoneBad = true
		case "Password":
			passwordBad = true
		}
	}

	switch {
	case phoneBad:
		return ErrInvalidPhone
	case passwordBad:
		return ErrShortPassword
	}
	return apperr.Validation("invalid_request", "Requête invalide")
}

// NewUser builds the insert payload once the credential has been hashed.
func (r RegisterRequest) NewUser(passwordHash string) NewUser {
	return NewUser{
		Nom:          r.Nom,
		Prenom:       r.Prenom,
		Email:        r.Email,
		Telephone:    r.Telephone,
		PasswordHash: passwordHash,
		RoleName:     role.Normalize(r.Role),
	}
}

// ValidatePassword applies the registration rule to a password change.
func ValidatePassword(password string) error {
	if password == "" {
		return ErrMissingFields.With("champ", "nouveau_password")
	}
	if len([]rune(password)) < MinPasswordLength {
		return ErrShortPassword
	}
	return nil
}

func jsonName(field string) string {
	switch field {
	case "Nom":
		return "nom"
	case "Prenom":
		return "prenom"
	case "Email":
		return "email"
	case "Telephone":
		return "telephone"
	case "Password":
		return "password"
	default:
		return strings.ToLower(field)
	}
}
