package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskpulse/internal/domain"
	"github.com/phrazzld/taskpulse/internal/platform/logger"
	"github.com/phrazzld/taskpulse/internal/store"
)

// TaskService provides task operations scoped to the requesting user.
type TaskService interface {
	// CreateTask creates a task owned by userID.
	CreateTask(ctx context.Context, userID uuid.UUID, description string, deadline time.Time) (*domain.Task, error)

	// GetTask returns a task if userID owns it.
	GetTask(ctx context.Context, userID, taskID uuid.UUID) (*domain.Task, error)

	// ListTasks returns the tasks owned by userID.
	ListTasks(ctx context.Context, userID uuid.UUID, filter store.TaskFilter) ([]*domain.Task, error)

	// UpdateTask applies a partial update to a task owned by userID.
	UpdateTask(ctx context.Context, userID, taskID uuid.UUID, patch domain.TaskPatch) (*domain.Task, error)

	// CompleteTask marks a task owned by userID as done.
	CompleteTask(ctx context.Context, userID, taskID uuid.UUID) (*domain.Task, error)

	// DeleteTask removes a task owned by userID.
	DeleteTask(ctx context.Context, userID, taskID uuid.UUID) error
}

// TaskServiceError wraps errors from the task service with context.
type TaskServiceError struct {
	// Operation is the operation that failed (e.g., "create_task")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for TaskServiceError.
func (e *TaskServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("task service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("task service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *TaskServiceError) Unwrap() error {
	return e.Err
}

// NewTaskServiceError creates a new TaskServiceError.
// Known sentinel errors are returned directly without wrapping.
func NewTaskServiceError(operation, message string, err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, ErrTaskNotFound), errors.Is(err, store.ErrTaskNotFound):
		return ErrTaskNotFound
	case errors.Is(err, ErrNotOwned):
		return ErrNotOwned
	case errors.Is(err, domain.ErrValidation):
		return err
	}

	return &TaskServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}

// validationError marks a domain validation failure so callers can match
// domain.ErrValidation while still seeing the specific cause.
func validationError(err error) error {
	return fmt.Errorf("%w: %w", domain.ErrValidation, err)
}

type taskServiceImpl struct {
	tasks  store.TaskStore
	logger *slog.Logger
}

// NewTaskService creates a new TaskService.
// It returns an error if the task store is nil.
func NewTaskService(tasks store.TaskStore, log *slog.Logger) (TaskService, error) {
	if tasks == nil {
		return nil, &TaskServiceError{
			Operation: "create_service",
			Message:   "task store cannot be nil",
		}
	}
	if log == nil {
		log = slog.Default()
	}
	return &taskServiceImpl{
		tasks:  tasks,
		logger: log.With(slog.String("component", "task_service")),
	}, nil
}

func (s *taskServiceImpl) CreateTask(
	ctx context.Context,
	userID uuid.UUID,
	description string,
	deadline time.Time,
) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	task, err := domain.NewTask(userID, description, deadline)
	if err != nil {
		return nil, validationError(err)
	}

	if err := s.tasks.Create(ctx, task); err != nil {
		log.Error("failed to create task",
			slog.String("user_id", userID.String()),
			slog.String("error", err.Error()))
		return nil, NewTaskServiceError("create_task", "failed to save task", err)
	}

	log.Debug("task created",
		slog.String("task_id", task.ID.String()),
		slog.String("user_id", userID.String()))
	return task, nil
}

func (s *taskServiceImpl) GetTask(ctx context.Context, userID, taskID uuid.UUID) (*domain.Task, error) {
	return s.ownedTask(ctx, "get_task", userID, taskID)
}

func (s *taskServiceImpl) ListTasks(
	ctx context.Context,
	userID uuid.UUID,
	filter store.TaskFilter,
) ([]*domain.Task, error) {
	tasks, err := s.tasks.ListByUser(ctx, userID, filter)
	if err != nil {
		return nil, NewTaskServiceError("list_tasks", "failed to list tasks", err)
	}
	return tasks, nil
}

func (s *taskServiceImpl) UpdateTask(
	ctx context.Context,
	userID, taskID uuid.UUID,
	patch domain.TaskPatch,
) (*domain.Task, error) {
	task, err := s.ownedTask(ctx, "update_task", userID, taskID)
	if err != nil {
		return nil, err
	}

	if err := task.Apply(patch); err != nil {
		return nil, validationError(err)
	}

	if err := s.tasks.Update(ctx, task); err != nil {
		return nil, NewTaskServiceError("update_task", "failed to save task", err)
	}
	return task, nil
}

func (s *taskServiceImpl) CompleteTask(ctx context.Context, userID, taskID uuid.UUID) (*domain.Task, error) {
	done := true
	return s.UpdateTask(ctx, userID, taskID, domain.TaskPatch{Done: &done})
}

func (s *taskServiceImpl) DeleteTask(ctx context.Context, userID, taskID uuid.UUID) error {
	if _, err := s.ownedTask(ctx, "delete_task", userID, taskID); err != nil {
		return err
	}
	if err := s.tasks.Delete(ctx, taskID); err != nil {
		return NewTaskServiceError("delete_task", "failed to delete task", err)
	}

	logger.FromContextOrDefault(ctx, s.logger).Debug("task deleted",
		slog.String("task_id", taskID.String()),
		slog.String("user_id", userID.String()))
	return nil
}

// ownedTask loads a task and checks that userID owns it.
func (s *taskServiceImpl) ownedTask(
	ctx context.Context,
	operation string,
	userID, taskID uuid.UUID,
) (*domain.Task, error) {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, NewTaskServiceError(operation, "failed to load task", err)
	}
	if !task.OwnedBy(userID) {
		logger.FromContextOrDefault(ctx, s.logger).Warn("task access denied",
			slog.String("operation", operation),
			slog.String("task_id", taskID.String()),
			slog.String("user_id", userID.String()))
		return nil, ErrNotOwned
	}
	return task, nil
}
