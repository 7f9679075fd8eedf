package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/geocoder89/taskhub/internal/apperr"
	"github.com/geocoder89/taskhub/internal/domain/role"
	"github.com/geocoder89/taskhub/internal/domain/user"
	"github.com/geocoder89/taskhub/internal/http/middlewares"
	"github.com/geocoder89/taskhub/internal/repo"
	"github.com/gin-gonic/gin"
)

// DebugHandler backs the inspection routes mounted outside prod.
type DebugHandler struct {
	users repo.Users
	tasks repo.Tasks
}

func NewDebugHandler(users repo.Users, tasks repo.Tasks) *DebugHandler {
	return &DebugHandler{users: users, tasks: tasks}
}

// WhoAmI echoes the token's email next to the account it resolves to.
func (h *DebugHandler) WhoAmI(ctx *gin.Context) {
	claims, ok := middlewares.ClaimsFrom(ctx)
	if !ok {
		RespondErr(ctx, middlewares.ErrMissingToken)
		return
	}

	cctx, cancel := requestContext(ctx, 2*time.Second)
	defer cancel()

	u, err := h.users.GetByEmail(cctx, claims.Email)
	if errors.Is(err, user.ErrNotFound) {
		RespondErr(ctx, ErrUserNotFound.With("email_in_token", claims.Email))
		return
	}
	if err != nil {
		RespondErr(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"email_in_token": claims.Email,
		"user":           u.Profile(),
	})
}

func (h *DebugHandler) AdminTest(ctx *gin.Context) {
	caller, _ := middlewares.CallerFrom(ctx)
	RespondMessage(ctx, http.StatusOK, "Accès admin autorisé", gin.H{"user": caller.Profile()})
}

func (h *DebugHandler) User(ctx *gin.Context) {
	id, ok := ParamID(ctx, "id")
	if !ok {
		return
	}

	cctx, cancel := requestContext(ctx, 2*time.Second)
	defer cancel()

	u, err := h.users.GetByID(cctx, id)
	if errors.Is(err, user.ErrNotFound) {
		RespondErr(ctx, apperr.NotFound("user_not_found", fmt.Sprintf("Utilisateur %d non trouvé", id)))
		return
	}
	if err != nil {
		RespondErr(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, u.Profile())
}

// Task shows any task to an admin and only their own to other callers.
func (h *DebugHandler) Task(ctx *gin.Context) {
	id, ok := ParamID(ctx, "id")
	if !ok {
		return
	}
	caller, _ := middlewares.CallerFrom(ctx)

	cctx, cancel := requestContext(ctx, 2*time.Second)
	defer cancel()

	t, err := h.tasks.GetByID(cctx, id)
	if err == nil && !role.IsAdmin(caller.Role) {
		err = ownedTask(&t, caller.ID)
	}
	if err != nil {
		RespondErr(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, t)
}
