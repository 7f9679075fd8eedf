package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/geocoder89/taskhub/internal/apperr"
	"github.com/geocoder89/taskhub/internal/domain/task"
	"github.com/geocoder89/taskhub/internal/domain/user"
	"github.com/geocoder89/taskhub/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

var (
	ErrTaskNotFound    = apperr.NotFound("task_not_found", "Tâche non trouvée")
	ErrUserNotFound    = apperr.NotFound("user_not_found", "Utilisateur non trouvé")
	ErrEmailTaken      = apperr.Conflict("email_taken", "Email déjà utilisé")
	ErrPhoneTaken      = apperr.Conflict("phone_taken", "Numéro de téléphone déjà utilisé")
	ErrInvalidRequest  = apperr.Validation("invalid_request", "Requête invalide")
	ErrInvalidID       = apperr.Validation("invalid_id", "Identifiant invalide")
	ErrInternal        = apperr.Internal("Erreur interne du serveur", nil)
	ErrRequestTimedOut = apperr.New(apperr.KindInternal, "timeout", "Délai de traitement dépassé")
)

// toAppErr translates store sentinels and typed errors into the taxonomy.
func toAppErr(err error) *apperr.Error {
	if appErr, ok := apperr.As(err); ok {
		return appErr
	}

	switch {
	case errors.Is(err, task.ErrNotFound):
		return ErrTaskNotFound
	case errors.Is(err, user.ErrNotFound):
		return ErrUserNotFound
	case errors.Is(err, user.ErrEmailTaken):
		return ErrEmailTaken
	case errors.Is(err, user.ErrPhoneTaken):
		return ErrPhoneTaken
	case errors.Is(err, context.DeadlineExceeded):
		return ErrRequestTimedOut.Wrap(err)
	default:
		return ErrInternal.Wrap(err)
	}
}

// RespondErr writes err in the flat error shape. Internal failures are logged
// and their cause is never exposed.
func RespondErr(ctx *gin.Context, err error) {
	appErr := toAppErr(err)

	if appErr.Kind == apperr.KindInternal {
		slog.Default().ErrorContext(ctx.Request.Context(), "request failed",
			"route", ctx.FullPath(),
			"request_id", middlewares.RequestIDFrom(ctx),
			"err", err,
		)
	}

	middlewares.WriteError(ctx, appErr)
}

// RespondMessage writes {"message": msg} plus any extra fields.
func RespondMessage(ctx *gin.Context, status int, msg string, extra gin.H) {
	body := gin.H{"message": msg}
	for k, v := range extra {
		body[k] = v
	}
	ctx.JSON(status, body)
}

func RespondNoRoute(ctx *gin.Context) {
	middlewares.WriteError(ctx, apperr.NotFound("not_found", "Route non trouvée"))
}

func RespondNoMethod(ctx *gin.Context) {
	body := apperr.New(apperr.KindValidation, "method_not_allowed", "Méthode non autorisée").Body()
	body["request_id"] = middlewares.RequestIDFrom(ctx)
	ctx.AbortWithStatusJSON(http.StatusMethodNotAllowed, body)
}
