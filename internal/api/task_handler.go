package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/taskpulse/internal/api/shared"
	"github.com/phrazzld/taskpulse/internal/domain"
	"github.com/phrazzld/taskpulse/internal/platform/logger"
	"github.com/phrazzld/taskpulse/internal/service"
	"github.com/phrazzld/taskpulse/internal/store"
)

// TaskHandler handles task-related HTTP requests.
type TaskHandler struct {
	tasks  service.TaskService
	logger *slog.Logger
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(tasks service.TaskService, log *slog.Logger) *TaskHandler {
	if log == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for TaskHandler")
	}
	return &TaskHandler{
		tasks:  tasks,
		logger: log.With(slog.String("component", "task_handler")),
	}
}

// Routes mounts the task endpoints on r.
func (h *TaskHandler) Routes(r chi.Router) {
	r.Post("/", h.CreateTask)
	r.Get("/", h.ListTasks)
	r.Get("/done/{status}", h.ListTasksByStatus)
	r.Get("/{id}", h.GetTask)
	r.Patch("/{id}", h.UpdateTask)
	r.Patch("/{id}/complete", h.CompleteTask)
	r.Delete("/{id}", h.DeleteTask)
}

// CreateTask handles POST /api/tasks.
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	user, ok := shared.UserFromContext(r.Context())
	if !ok {
		HandleAPIError(w, r, domain.ErrUnauthorized, "")
		return
	}

	var req CreateTaskRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	task, err := h.tasks.CreateTask(r.Context(), user.ID, req.Description, *req.Deadline)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	if req.Done {
		if task, err = h.tasks.CompleteTask(r.Context(), user.ID, task.ID); err != nil {
			HandleAPIError(w, r, err, "")
			return
		}
	}

	log.Debug("task created", slog.String("task_id", task.ID.String()))
	shared.RespondWithJSON(w, r, http.StatusCreated, taskToResponse(task))
}

// ListTasks handles GET /api/tasks?skip=&limit=.
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	h.listTasks(w, r, nil)
}

// ListTasksByStatus handles GET /api/tasks/done/{status}.
func (h *TaskHandler) ListTasksByStatus(w http.ResponseWriter, r *http.Request) {
	done, err := strconv.ParseBool(chi.URLParam(r, "status"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Status must be true or false")
		return
	}
	h.listTasks(w, r, &done)
}

func (h *TaskHandler) listTasks(w http.ResponseWriter, r *http.Request, done *bool) {
	user, ok := shared.UserFromContext(r.Context())
	if !ok {
		HandleAPIError(w, r, domain.ErrUnauthorized, "")
		return
	}

	offset, limit, err := parsePagination(r)
	if err != nil {
		HandleAPIError(w, r, err, "Invalid pagination parameters")
		return
	}

	tasks, err := h.tasks.ListTasks(r.Context(), user.ID, store.TaskFilter{
		Done:   done,
		Offset: offset,
		Limit:  limit,
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list tasks")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, tasksToResponse(tasks))
}

// GetTask handles GET /api/tasks/{id}.
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	user, id, ok := handleUserAndPathUUID(w, r, "id", h.logger)
	if !ok {
		return
	}

	task, err := h.tasks.GetTask(r.Context(), user.ID, id)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, taskToResponse(task))
}

// UpdateTask handles PATCH /api/tasks/{id}.
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	user, id, ok := handleUserAndPathUUID(w, r, "id", h.logger)
	if !ok {
		return
	}

	var req UpdateTaskRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	task, err := h.tasks.UpdateTask(r.Context(), user.ID, id, req.Patch())
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, taskToResponse(task))
}

// CompleteTask handles PATCH /api/tasks/{id}/complete.
func (h *TaskHandler) CompleteTask(w http.ResponseWriter, r *http.Request) {
	user, id, ok := handleUserAndPathUUID(w, r, "id", h.logger)
	if !ok {
		return
	}

	task, err := h.tasks.CompleteTask(r.Context(), user.ID, id)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, taskToResponse(task))
}

// DeleteTask handles DELETE /api/tasks/{id}.
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	user, id, ok := handleUserAndPathUUID(w, r, "id", h.logger)
	if !ok {
		return
	}

	if err := h.tasks.DeleteTask(r.Context(), user.ID, id); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
