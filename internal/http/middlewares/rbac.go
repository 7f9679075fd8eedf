package middlewares

import (
	"errors"

	"github.com/geocoder89/taskhub/internal/apperr"
	"github.com/geocoder89/taskhub/internal/domain/role"
	"github.com/geocoder89/taskhub/internal/domain/user"
	"github.com/gin-gonic/gin"
)

// RequireAdmin lets through callers whose stored role is admin. The role is
// read from the store rather than the token so demotions apply immediately.
// A caller that cannot be resolved is refused with 403 as well.
func (m *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := CallerFrom(c)
		if !ok {
			claims, ok := ClaimsFrom(c)
			if !ok {
				WriteError(c, ErrMissingToken)
				return
			}

			u, err := m.users.GetByEmail(c.Request.Context(), claims.Email)
			switch {
			case errors.Is(err, user.ErrNotFound):
				m.prom.ObserveAuthFailure("forbidden")
				WriteError(c, ErrForbidden)
				return
			case err != nil:
				WriteError(c, apperr.Internal("Impossible de charger l'utilisateur", err))
				return
			}
			caller = u
			c.Set(CtxCaller, caller)
		}

		if !role.IsAdmin(caller.Role) {
			m.prom.ObserveAuthFailure("forbidden")
			WriteError(c, ErrForbidden)
			return
		}
		c.Next()
	}
}
