package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/geocoder89/taskhub/internal/apperr"
	"github.com/geocoder89/taskhub/internal/auth"
	"github.com/geocoder89/taskhub/internal/domain/user"
	"github.com/geocoder89/taskhub/internal/http/middlewares"
	"github.com/geocoder89/taskhub/internal/repo"
	"github.com/geocoder89/taskhub/internal/security"
	"github.com/gin-gonic/gin"
)

type TokenIssuer interface {
	GenerateAccessToken(userID int64, email, role string) (string, *auth.Claims, error)
	AccessTTL() time.Duration
}

var (
	ErrMissingCredentials = apperr.Validation("missing_credentials", "Email et mot de passe obligatoires")
	ErrBadCredentials     = apperr.Authentication("invalid_credentials", "Email ou mot de passe incorrect")
)

type AuthHandler struct {
	users   repo.Users
	creds   security.CredentialVerifier
	jwt     TokenIssuer
	revoker auth.Revoker
	now     func() time.Time
}

func NewAuthHandler(users repo.Users, creds security.CredentialVerifier, jwt TokenIssuer, revoker auth.Revoker) *AuthHandler {
	return &AuthHandler{
		users:   users,
		creds:   creds,
		jwt:     jwt,
		revoker: revoker,
		now:     time.Now,
	}
}

type LoginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe *bool  `json:"remember_me"`
}

// requestContext bounds store calls while keeping the request's trace.
func requestContext(ctx *gin.Context, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx.Request.Context(), d)
}

func (h *AuthHandler) Register(ctx *gin.Context) {
	var req user.RegisterRequest

	if !BindJSONOr(ctx, &req, user.ErrMissingFields) {
		return
	}

	if _, err := h.createAccount(ctx, req); err != nil {
		RespondErr(ctx, err)
		return
	}

	RespondMessage(ctx, http.StatusCreated, "Utilisateur créé avec succès", nil)
}

// CreateUser is the admin-only variant of Register; it echoes the account.
func (h *AuthHandler) CreateUser(ctx *gin.Context) {
	var req user.RegisterRequest

	if !BindJSONOr(ctx, &req, user.ErrMissingFields) {
		return
	}

	created, err := h.createAccount(ctx, req)
	if err != nil {
		RespondErr(ctx, err)
		return
	}

	RespondMessage(ctx, http.StatusCreated, "Utilisateur créé avec succès", gin.H{"user": created.Account()})
}

// createAccount applies the registration rules in order: required fields,
// phone format, password length, then email and phone uniqueness in the store.
func (h *AuthHandler) createAccount(ctx *gin.Context, req user.RegisterRequest) (user.User, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return user.User{}, err
	}

	hash, err := h.creds.Hash(req.Password)
	if err != nil {
		return user.User{}, apperr.Internal("Impossible de créer l'utilisateur", err)
	}

	cctx, cancel := requestContext(ctx, 3*time.Second)
	defer cancel()

	return h.users.Create(cctx, req.NewUser(hash))
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req LoginRequest

	if !BindJSONOr(ctx, &req, ErrMissingCredentials) {
		return
	}

	email := user.NormalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		RespondErr(ctx, ErrMissingCredentials)
		return
	}

	cctx, cancel := requestContext(ctx, 2*time.Second)
	defer cancel()

	found, err := h.users.GetByEmail(cctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondErr(ctx, ErrBadCredentials)
			return
		}
		RespondErr(ctx, err)
		return
	}

	if err := h.creds.Verify(found.PasswordHash, req.Password); err != nil {
		RespondErr(ctx, ErrBadCredentials)
		return
	}

	token, _, err := h.jwt.GenerateAccessToken(found.ID, found.Email, found.Role)
	if err != nil {
		RespondErr(ctx, apperr.Internal("Impossible de générer le token", err))
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message":         "Connexion réussie",
		"token":           token,
		"user":            found.Account(),
		"expires_in_days": int(h.jwt.AccessTTL() / (24 * time.Hour)),
	})
}

// Logout blacklists the presented token until it would have expired anyway.
func (h *AuthHandler) Logout(ctx *gin.Context) {
	claims, ok := middlewares.ClaimsFrom(ctx)
	if !ok {
		RespondErr(ctx, middlewares.ErrMissingToken)
		return
	}

	if err := h.revoker.Revoke(ctx.Request.Context(), claims.JTI(), claims.ExpiresAtTime()); err != nil {
		RespondErr(ctx, apperr.Internal("Impossible de révoquer le token", err))
		return
	}

	RespondMessage(ctx, http.StatusOK, "Déconnexion réussie", gin.H{
		"logout_time": h.now().UTC().Format(time.RFC3339),
	})
}

func (h *AuthHandler) Me(ctx *gin.Context) {
	caller, ok := middlewares.CallerFrom(ctx)
	if !ok {
		RespondErr(ctx, ErrUserNotFound)
		return
	}
	ctx.JSON(http.StatusOK, caller.Profile())
}

// ListUsers returns every account, admins included.
func (h *AuthHandler) ListUsers(ctx *gin.Context) {
	cctx, cancel := requestContext(ctx, 3*time.Second)
	defer cancel()

	users, err := h.users.List(cctx)
	if err != nil {
		RespondErr(ctx, err)
		return
	}
	RespondJSONWithETag(ctx, http.StatusOK, user.Profiles(users))
}
