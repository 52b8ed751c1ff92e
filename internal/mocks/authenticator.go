package mocks

import (
	"context"
	"sync"

	"github.com/phrazzld/taskpulse/internal/domain"
	"github.com/phrazzld/taskpulse/internal/service/auth"
)

// MockAuthenticator implements auth.Authenticator with a fixed token table
type MockAuthenticator struct {
	AuthenticateFn func(ctx context.Context, token string) (*domain.User, error)
	LogoutFn       func(ctx context.Context, token string) (*domain.User, domain.RevocationResult, error)

	mu sync.Mutex
	// Tokens maps a raw token to the user it authenticates
	Tokens map[string]*domain.User
	// Err, when set, is returned by every call
	Err error
}

var _ auth.Authenticator = (*MockAuthenticator)(nil)

// NewMockAuthenticator creates a mock that accepts exactly the given tokens
func NewMockAuthenticator(tokens map[string]*domain.User) *MockAuthenticator {
	if tokens == nil {
		tokens = make(map[string]*domain.User)
	}
	return &MockAuthenticator{Tokens: tokens}
}

// Authenticate implements the auth.Authenticator interface
func (m *MockAuthenticator) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	if m.AuthenticateFn != nil {
		return m.AuthenticateFn(ctx, token)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	if token == "" {
		return nil, auth.ErrMissingToken
	}
	user, ok := m.Tokens[token]
	if !ok {
		return nil, auth.ErrInvalidToken
	}
	return user, nil
}

// Logout implements the auth.Authenticator interface
func (m *MockAuthenticator) Logout(
	ctx context.Context,
	token string,
) (*domain.User, domain.RevocationResult, error) {
	if m.LogoutFn != nil {
		return m.LogoutFn(ctx, token)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, domain.RevocationResult{}, m.Err
	}
	user, ok := m.Tokens[token]
	if !ok {
		return nil, domain.RevocationResult{}, auth.ErrInvalidToken
	}
	return user, domain.RevocationResult{}, nil
}
