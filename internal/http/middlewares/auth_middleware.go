package middlewares

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/geocoder89/taskhub/internal/actorctx"
	"github.com/geocoder89/taskhub/internal/apperr"
	"github.com/geocoder89/taskhub/internal/auth"
	"github.com/geocoder89/taskhub/internal/domain/user"
	"github.com/geocoder89/taskhub/internal/observability"
	"github.com/gin-gonic/gin"
)

// Keep these small so tests can fake them easily.
type TokenVerifier interface {
	VerifyAccessToken(token string) (*auth.Claims, error)
}

type CallerResolver interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
}

var (
	ErrMissingToken   = apperr.Authentication("missing_token", "Token d'authentification manquant")
	ErrInvalidToken   = apperr.Authentication("invalid_token", "Token invalide ou expiré")
	ErrRevokedToken   = apperr.Authentication("token_revoked", "Token révoqué")
	ErrCallerNotFound = apperr.NotFound("user_not_found", "Utilisateur non trouvé")
	ErrForbidden      = apperr.Authorization("forbidden", "Accès non autorisé")
)

type AuthMiddleware struct {
	jwt     TokenVerifier
	revoker auth.Revoker
	users   CallerResolver
	prom    *observability.Prom
}

func NewAuthMiddleware(jwt TokenVerifier, revoker auth.Revoker, users CallerResolver, prom *observability.Prom) *AuthMiddleware {
	return &AuthMiddleware{jwt: jwt, revoker: revoker, users: users, prom: prom}
}

// RequireAuth accepts a valid, unexpired, unrevoked bearer token and stores its
// claims on the context. Everything else is a 401.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			m.prom.ObserveAuthFailure("missing_token")
			WriteError(c, ErrMissingToken)
			return
		}

		raw := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))
		if raw == "" {
			m.prom.ObserveAuthFailure("missing_token")
			WriteError(c, ErrMissingToken)
			return
		}

		claims, err := m.jwt.VerifyAccessToken(raw)
		if err != nil {
			m.prom.ObserveAuthFailure("invalid_token")
			WriteError(c, ErrInvalidToken)
			return
		}

		if m.revoker != nil {
			revoked, err := m.revoker.IsRevoked(c.Request.Context(), claims.JTI())
			if err != nil {
				slog.Default().ErrorContext(c.Request.Context(), "revocation lookup failed", "err", err)
				WriteError(c, apperr.Internal("Impossible de vérifier le token", err))
				return
			}
			if revoked {
				m.prom.ObserveAuthFailure("revoked")
				WriteError(c, ErrRevokedToken)
				return
			}
		}

		c.Set(CtxClaims, claims)
		c.Request = c.Request.WithContext(actorctx.WithActor(c.Request.Context(), actorctx.Actor{
			UserID: claims.UserID,
			Email:  claims.Email,
			Role:   claims.Role,
		}))

		c.Next()
	}
}

// RequireCaller resolves the token's email to a stored account. An unknown
// account is a 404, as for every user route.
func (m *AuthMiddleware) RequireCaller() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := m.resolveCaller(c); !ok {
			return
		}
		c.Next()
	}
}

// resolveCaller stores the caller on the context or aborts the request.
func (m *AuthMiddleware) resolveCaller(c *gin.Context) (user.User, bool) {
	if u, ok := CallerFrom(c); ok {
		return u, true
	}

	claims, ok := ClaimsFrom(c)
	if !ok {
		WriteError(c, ErrMissingToken)
		return user.User{}, false
	}

	u, err := m.users.GetByEmail(c.Request.Context(), claims.Email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			m.prom.ObserveAuthFailure("unknown_caller")
			WriteError(c, ErrCallerNotFound)
			return user.User{}, false
		}
		WriteError(c, apperr.Internal("Impossible de charger l'utilisateur", err))
		return user.User{}, false
	}

	c.Set(CtxCaller, u)
	return u, true
}

func ClaimsFrom(c *gin.Context) (*auth.Claims, bool) {
	v, ok := c.Get(CtxClaims)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*auth.Claims)
	return claims, ok && claims != nil
}

func CallerFrom(c *gin.Context) (user.User, bool) {
	v, ok := c.Get(CtxCaller)
	if !ok {
		return user.User{}, false
	}
	u, ok := v.(user.User)
	return u, ok
}
