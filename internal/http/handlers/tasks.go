package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/geocoder89/tasklist/internal/config"
	"github.com/geocoder89/tasklist/internal/domain/task"
	"github.com/geocoder89/tasklist/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

const taskOpTimeout = 3 * time.Second

type TaskService interface {
	List(ctx context.Context, ownerID string) ([]task.Task, error)
	Create(ctx context.Context, ownerID, text string) (task.Task, error)
	Update(ctx context.Context, ownerID, id, text string) (task.Task, error)
	Delete(ctx context.Context, ownerID, id string) (task.Task, error)
}

type TasksHandler struct {
	tasks TaskService
	log   *slog.Logger
}

func NewTasksHandler(tasks TaskService, log *slog.Logger) *TasksHandler {
	if log == nil {
		log = slog.Default()
	}

	return &TasksHandler{tasks: tasks, log: log}
}

func (h *TasksHandler) List(ctx *gin.Context) {
	ownerID, ok := ownerFrom(ctx)
	if !ok {
		return
	}

	cctx, cancel := withRequestTimeout(ctx, taskOpTimeout)
	defer cancel()

	items, err := h.tasks.List(cctx, ownerID)

	if err != nil {
		h.respondTaskError(ctx, err, "Could not list tasks")
		return
	}

	respondTaskList(ctx, items)
}

func (h *TasksHandler) Create(ctx *gin.Context) {
	ownerID, ok := ownerFrom(ctx)
	if !ok {
		return
	}

	var req task.CreateTaskRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := withRequestTimeout(ctx, taskOpTimeout)
	defer cancel()

	created, err := h.tasks.Create(cctx, ownerID, req.Text)

	if err != nil {
		h.respondTaskError(ctx, err, "Could not create task")
		return
	}

	ctx.JSON(http.StatusCreated, created)
}

func (h *TasksHandler) Update(ctx *gin.Context) {
	ownerID, ok := ownerFrom(ctx)
	if !ok {
		return
	}

	var req task.UpdateTaskRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := withRequestTimeout(ctx, taskOpTimeout)
	defer cancel()

	_, err := h.tasks.Update(cctx, ownerID, req.ID, req.Text)

	if err != nil {
		h.respondTaskError(ctx, err, "Could not update task")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *TasksHandler) Delete(ctx *gin.Context) {
	ownerID, ok := ownerFrom(ctx)
	if !ok {
		return
	}

	id := ctx.Query("id")

	if id == "" {
		RespondBadRequest(ctx, "Task id is required", gin.H{
			"fields": []FieldError{{Field: "id", Rule: "required", Message: validationMessage("required", "")}},
		})
		return
	}

	cctx, cancel := withRequestTimeout(ctx, taskOpTimeout)
	defer cancel()

	_, err := h.tasks.Delete(cctx, ownerID, id)

	if err != nil {
		h.respondTaskError(ctx, err, "Could not delete task")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"success": true})
}

// respondTaskError maps store errors. Unknown ids and ids owned by someone
// else both end up as the same 404.
func (h *TasksHandler) respondTaskError(ctx *gin.Context, err error, internalMsg string) {
	switch {
	case errors.Is(err, task.ErrNotFound):
		RespondNotFound(ctx, "Task not found")
	case errors.Is(err, task.ErrEmptyText):
		RespondBadRequest(ctx, "Task text is required", nil)
	case errors.Is(err, task.ErrTextTooLong):
		RespondBadRequest(ctx, "Task text is too long", gin.H{"max": task.MaxTextLength})
	case errors.Is(err, task.ErrInvalidID):
		RespondBadRequest(ctx, "Invalid task id", nil)
	default:
		h.log.ErrorContext(ctx.Request.Context(), "task operation failed", "route", ctx.FullPath(), "err", err)
		RespondInternal(ctx, internalMsg)
	}
}

// ownerFrom reads the identity stored by RequireAuth. Routes are always mounted
// behind the gate, so a miss means a wiring bug and is answered with 401.
func ownerFrom(ctx *gin.Context) (string, bool) {
	ownerID, ok := middlewares.UserIDFromContext(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Authentication required")
		return "", false
	}

	return ownerID, true
}

// withRequestTimeout bounds storage work but still ends when the client goes away.
func withRequestTimeout(ctx *gin.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if ctx.Request == nil {
		return config.WithTimeout(d)
	}

	return context.WithTimeout(ctx.Request.Context(), d)
}
