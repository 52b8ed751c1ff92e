package testutils

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskpulse/internal/domain"
	"github.com/phrazzld/taskpulse/internal/store"
	"github.com/stretchr/testify/require"
)

// TestPassword is the plaintext password given to users made by these helpers.
const TestPassword = "password123456"

// CreateTestUser returns a valid, unsaved user with a unique email.
func CreateTestUser(t *testing.T) *domain.User {
	t.Helper()
	id := uuid.New()
	user, err := domain.NewUser(
		"Test User "+id.String()[:8],
		fmt.Sprintf("test-%s@example.com", id.String()[:8]),
		TestPassword,
	)
	require.NoError(t, err, "Failed to create test user")
	return user
}

// MustCreateUser persists a fresh test user through userStore.
func MustCreateUser(ctx context.Context, t *testing.T, userStore store.UserStore) *domain.User {
	t.Helper()
	user := CreateTestUser(t)
	require.NoError(t, userStore.Create(ctx, user), "Failed to insert test user")
	return user
}

// CreateTestTask returns a valid, unsaved task owned by userID due in one day.
func CreateTestTask(t *testing.T, userID uuid.UUID, description string) *domain.Task {
	t.Helper()
	task, err := domain.NewTask(userID, description, time.Now().Add(24*time.Hour))
	require.NoError(t, err, "Failed to create test task")
	return task
}
