package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/geocoder89/taskhub/internal/domain/task"
	"github.com/geocoder89/taskhub/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

type StatusRequest struct {
	Statut string `json:"statut"`
}

type NoteRequest struct {
	NoteUtilisateur string `json:"note_utilisateur"`
}

// ownedTask hides tasks of other users behind the same 404 as missing ones.
func ownedTask(t *task.Task, callerID int64) error {
	if !t.OwnedBy(callerID) {
		return ErrTaskNotFound
	}
	return nil
}

func (h *TasksHandler) MyTasks(ctx *gin.Context) {
	caller, _ := middlewares.CallerFrom(ctx)

	cctx, cancel := requestContext(ctx, 3*time.Second)
	defer cancel()

	tasks, err := h.tasks.ListForUser(cctx, caller.ID)
	if err != nil {
		RespondErr(ctx, err)
		return
	}
	RespondJSONWithETag(ctx, http.StatusOK, tasks)
}

func (h *TasksHandler) MyTask(ctx *gin.Context) {
	id, ok := ParamID(ctx, "id")
	if !ok {
		return
	}
	caller, _ := middlewares.CallerFrom(ctx)

	cctx, cancel := requestContext(ctx, 2*time.Second)
	defer cancel()

	t, err := h.tasks.GetByID(cctx, id)
	if err == nil {
		err = ownedTask(&t, caller.ID)
	}
	if err != nil {
		RespondErr(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, t)
}

// UpdateStatus moves the caller's own task along the owner state machine.
func (h *TasksHandler) UpdateStatus(ctx *gin.Context) {
	id, ok := ParamID(ctx, "id")
	if !ok {
		return
	}

	var req StatusRequest
	if !BindOptionalJSON(ctx, &req) {
		return
	}

	caller, _ := middlewares.CallerFrom(ctx)

	cctx, cancel := requestContext(ctx, 3*time.Second)
	defer cancel()

	var from task.Status
	updated, err := h.tasks.Mutate(cctx, id, func(t *task.Task) error {
		if err := ownedTask(t, caller.ID); err != nil {
			return err
		}
		from = t.Statut
		return t.Advance(req.Statut, h.now())
	})
	if err != nil {
		RespondErr(ctx, err)
		return
	}

	h.prom.ObserveTransition(string(from), string(updated.Statut), "owner")

	RespondMessage(ctx, http.StatusOK, fmt.Sprintf("Tâche marquée comme '%s'", updated.Statut), gin.H{"task": updated})
}

func (h *TasksHandler) SubmitNote(ctx *gin.Context) {
	id, ok := ParamID(ctx, "id")
	if !ok {
		return
	}

	var req NoteRequest
	if !BindOptionalJSON(ctx, &req) {
		return
	}

	caller, _ := middlewares.CallerFrom(ctx)

	cctx, cancel := requestContext(ctx, 3*time.Second)
	defer cancel()

	updated, err := h.tasks.Mutate(cctx, id, func(t *task.Task) error {
		if err := ownedTask(t, caller.ID); err != nil {
			return err
		}
		t.SubmitNote(req.NoteUtilisateur, h.now())
		return nil
	})
	if err != nil {
		RespondErr(ctx, err)
		return
	}

	RespondMessage(ctx, http.StatusOK, "Note enregistrée avec succès", gin.H{"task": updated})
}
