package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/geocoder89/taskhub/internal/apperr"
	"github.com/geocoder89/taskhub/internal/domain/role"
	"github.com/geocoder89/taskhub/internal/domain/task"
	"github.com/geocoder89/taskhub/internal/domain/user"
	"github.com/geocoder89/taskhub/internal/http/middlewares"
	"github.com/geocoder89/taskhub/internal/notifications"
	"github.com/gin-gonic/gin"
)

var ErrInvalidTargetUser = apperr.Validation("invalid_user", "Utilisateur invalide")

// ListPlainUsers returns the accounts tasks can be assigned to.
func (h *TasksHandler) ListPlainUsers(ctx *gin.Context) {
	cctx, cancel := requestContext(ctx, 3*time.Second)
	defer cancel()

	users, err := h.users.ListByRole(cctx, role.User)
	if err != nil {
		RespondErr(ctx, err)
		return
	}
	RespondJSONWithETag(ctx, http.StatusOK, user.Profiles(users))
}

func (h *TasksHandler) ListTasks(ctx *gin.Context) {
	cctx, cancel := requestContext(ctx, 3*time.Second)
	defer cancel()

	tasks, err := h.tasks.ListAll(cctx)
	if err != nil {
		RespondErr(ctx, err)
		return
	}
	RespondJSONWithETag(ctx, http.StatusOK, tasks)
}

func (h *TasksHandler) CreateTask(ctx *gin.Context) {
	var req task.CreateRequest

	if !BindJSONOr(ctx, &req, task.ErrMissingCreateFields) {
		return
	}

	admin, _ := middlewares.CallerFrom(ctx)

	cctx, cancel := requestContext(ctx, 3*time.Second)
	defer cancel()

	owner, err := h.users.GetByID(cctx, req.UserID)
	if err != nil && !errors.Is(err, user.ErrNotFound) {
		RespondErr(ctx, err)
		return
	}

	// an unknown owner fails the same assignee check as an admin one
	t, err := task.New(req, owner, admin.ID, h.now())
	if err != nil {
		RespondErr(ctx, err)
		return
	}

	created, err := h.tasks.Create(cctx, t)
	if err != nil {
		RespondErr(ctx, err)
		return
	}

	h.notify(ctx.Request.Context(), notifications.TaskAssigned, created, admin.ID)

	ctx.JSON(http.StatusCreated, created)
}

// UpdateTask is the admin override; any status literal is accepted.
func (h *TasksHandler) UpdateTask(ctx *gin.Context) {
	id, ok := ParamID(ctx, "id")
	if !ok {
		return
	}

	var patch task.Patch
	if !BindJSON(ctx, &patch) {
		return
	}

	admin, _ := middlewares.CallerFrom(ctx)

	cctx, cancel := requestContext(ctx, 3*time.Second)
	defer cancel()

	var from task.Status
	updated, err := h.tasks.Mutate(cctx, id, func(t *task.Task) error {
		from = t.Statut
		return patch.Apply(t, admin.ID, h.now())
	})
	if err != nil {
		RespondErr(ctx, err)
		return
	}

	h.prom.ObserveTransition(string(from), string(updated.Statut), "patch")
	ctx.JSON(http.StatusOK, updated)
}

func (h *TasksHandler) ValidateTask(ctx *gin.Context) {
	id, ok := ParamID(ctx, "id")
	if !ok {
		return
	}

	admin, _ := middlewares.CallerFrom(ctx)

	cctx, cancel := requestContext(ctx, 3*time.Second)
	defer cancel()

	validated, err := h.tasks.Mutate(cctx, id, func(t *task.Task) error {
		return t.ValidateBy(admin.ID, h.now())
	})
	if err != nil {
		RespondErr(ctx, err)
		return
	}

	h.prom.ObserveTransition(string(task.StatusDone), string(task.StatusValidated), "validate")
	h.notify(ctx.Request.Context(), notifications.TaskValidated, validated, admin.ID)

	RespondMessage(ctx, http.StatusOK, "Tâche validée avec succès", gin.H{"task": validated})
}

func (h *TasksHandler) DeleteTask(ctx *gin.Context) {
	id, ok := ParamID(ctx, "id")
	if !ok {
		return
	}

	cctx, cancel := requestContext(ctx, 3*time.Second)
	defer cancel()

	if err := h.tasks.Delete(cctx, id); err != nil {
		RespondErr(ctx, err)
		return
	}

	RespondMessage(ctx, http.StatusOK, "Tâche supprimée avec succès", nil)
}

// ListUserTasks lists one plain user's tasks. Admins and unknown ids are
// rejected alike.
func (h *TasksHandler) ListUserTasks(ctx *gin.Context) {
	id, ok := ParamID(ctx, "id")
	if !ok {
		return
	}

	cctx, cancel := requestContext(ctx, 3*time.Second)
	defer cancel()

	owner, err := h.users.GetByID(cctx, id)
	if errors.Is(err, user.ErrNotFound) || (err == nil && !role.IsUser(owner.Role)) {
		RespondErr(ctx, ErrInvalidTargetUser)
		return
	}
	if err != nil {
		RespondErr(ctx, err)
		return
	}

	tasks, err := h.tasks.ListForUser(cctx, owner.ID)
	if err != nil {
		RespondErr(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, tasks)
}
