package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/task-tracker/internal/auth"
	"github.com/BuzzLyutic/task-tracker/internal/model"
	"github.com/BuzzLyutic/task-tracker/internal/repo"
	"github.com/BuzzLyutic/task-tracker/internal/service"
	"github.com/BuzzLyutic/task-tracker/pkg/logger"
	"github.com/BuzzLyutic/task-tracker/pkg/respond"
)

type TaskHandler struct {
	service *service.TaskService
	logger  *zap.Logger
	audit   *zap.Logger
}

func NewTaskHandler(srv *service.TaskService, l *zap.Logger) *TaskHandler {
	return &TaskHandler{
		service: srv,
		logger:  l,
		audit:   logger.Audit(l),
	}
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	var req service.CreateTaskInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Debug("failed to decode json", zap.Error(err))
		respond.Error(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}

	idempKey := r.Header.Get("Idempotency-Key")
	task, err := h.service.Create(r.Context(), p, req, idempKey)
	if err != nil {
		h.handleErrors(w, r, err, "")
		return
	}

	h.audit.Info("task created", zap.Int64("task_id", task.ID), zap.Int64("user_id", p.ID))
	w.Header().Set("Location", fmt.Sprintf("/api/tasks/%d", task.ID))
	respond.Data(w, r, http.StatusCreated, task)
}

func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := taskID(w, r)
	if !ok {
		return
	}

	task, err := h.service.Get(r.Context(), p, id)
	if err != nil {
		h.handleErrors(w, r, err, "")
		return
	}
	respond.Data(w, r, http.StatusOK, task)
}

func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	filter := model.TaskFilter{
		Status:   optional(q.Get("status")),
		Priority: optional(q.Get("priority")),
		Category: optional(q.Get("category")),
	}

	limit, _ := strconv.Atoi(q.Get("limit"))

	tasks, err := h.service.List(r.Context(), p, filter, limit)
	if err != nil {
		h.handleErrors(w, r, err, "")
		return
	}
	respond.Data(w, r, http.StatusOK, tasks)
}

func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := taskID(w, r)
	if !ok {
		return
	}

	var req service.UpdateTaskInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}

	task, err := h.service.Update(r.Context(), p, id, req)
	if err != nil {
		h.handleErrors(w, r, err, "Not authorized to update this task")
		return
	}

	respond.Data(w, r, http.StatusOK, task)
}

func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := taskID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), p, id); err != nil {
		h.handleErrors(w, r, err, "Not authorized to delete this task")
		return
	}

	h.audit.Info("task deleted", zap.Int64("task_id", id), zap.Int64("user_id", p.ID))
	respond.Message(w, r, http.StatusOK, "Task deleted successfully")
}

func (h *TaskHandler) Stats(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	stats, err := h.service.GetStats(r.Context(), p)
	if err != nil {
		h.handleErrors(w, r, err, "")
		return
	}
	respond.Data(w, r, http.StatusOK, stats)
}

func (h *TaskHandler) handleErrors(w http.ResponseWriter, r *http.Request, err error, forbidden string) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		respond.Error(w, r, http.StatusBadRequest, verr.Message)
	case errors.Is(err, service.ErrValidation):
		respond.Error(w, r, http.StatusBadRequest, "Validation error")
	case errors.Is(err, repo.ErrorNotFound):
		respond.Error(w, r, http.StatusNotFound, "Task not found")
	case errors.Is(err, service.ErrForbidden):
		if forbidden == "" {
			forbidden = "Not authorized to access this task"
		}
		respond.Error(w, r, http.StatusForbidden, forbidden)
	default:
		h.logger.Error("internal error", zap.String("path", r.URL.Path), zap.Error(err))
		respond.Error(w, r, http.StatusInternalServerError, "Internal server error")
	}
}

// principal достает принципала, положенного гейтом.
func principal(w http.ResponseWriter, r *http.Request) (model.Principal, bool) {
	p, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		respond.Error(w, r, http.StatusUnauthorized, "Please authenticate")
	}
	return p, ok
}

func taskID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		respond.Error(w, r, http.StatusNotFound, "Task not found")
		return 0, false
	}
	return id, true
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
