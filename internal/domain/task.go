package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Task validation errors
var (
	ErrEmptyTaskID          = errors.New("task ID cannot be empty")
	ErrTaskUserIDEmpty      = errors.New("task user ID cannot be empty")
	ErrEmptyDescription     = errors.New("task description cannot be empty")
	ErrDescriptionTooLong   = errors.New("task description must be at most 1000 characters long")
	ErrTaskDeadlineRequired = errors.New("task deadline is required")
)

// MaxDescriptionLength is the longest task description accepted.
const MaxDescriptionLength = 1000

// Task is a single to-do item owned by a user.
type Task struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	Description string    `json:"description"`
	Deadline    time.Time `json:"deadline"`
	Done        bool      `json:"done"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TaskPatch carries a partial update; nil fields are left unchanged.
type TaskPatch struct {
	Description *string
	Deadline    *time.Time
	Done        *bool
}

// NewTask creates a new, not yet completed task for userID.
func NewTask(userID uuid.UUID, description string, deadline time.Time) (*Task, error) {
	now := time.Now().UTC()
	task := &Task{
		ID:          uuid.New(),
		UserID:      userID,
		Description: strings.TrimSpace(description),
		Deadline:    deadline.UTC(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}
	return task, nil
}

// Validate checks if the Task has valid data.
func (t *Task) Validate() error {
	if t.ID == uuid.Nil {
		return ErrEmptyTaskID
	}
	if t.UserID == uuid.Nil {
		return ErrTaskUserIDEmpty
	}
	if t.Description == "" {
		return ErrEmptyDescription
	}
	if len([]rune(t.Description)) > MaxDescriptionLength {
		return ErrDescriptionTooLong
	}
	if t.Deadline.IsZero() {
		return ErrTaskDeadlineRequired
	}
	return nil
}

// OwnedBy reports whether userID owns the task.
func (t *Task) OwnedBy(userID uuid.UUID) bool {
	return t.UserID == userID
}

// Apply merges a patch into the task, validates the result and bumps UpdatedAt.
// The task is left untouched when validation fails.
func (t *Task) Apply(p TaskPatch) error {
	updated := *t
	if p.Description != nil {
		updated.Description = strings.TrimSpace(*p.Description)
	}
	if p.Deadline != nil {
		updated.Deadline = p.Deadline.UTC()
	}
	if p.Done != nil {
		updated.Done = *p.Done
	}
	if err := updated.Validate(); err != nil {
		return err
	}
	updated.UpdatedAt = time.Now().UTC()
	*t = updated
	return nil
}
