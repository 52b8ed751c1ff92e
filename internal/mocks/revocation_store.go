package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/phrazzld/taskpulse/internal/domain"
	"github.com/phrazzld/taskpulse/internal/store"
)

// MockRevocationStore implements store.RevocationStore in memory for testing
type MockRevocationStore struct {
	RevokeFn       func(ctx context.Context, token string, expiresAt *time.Time) (domain.RevocationResult, error)
	IsRevokedFn    func(ctx context.Context, token string) (bool, error)
	PurgeExpiredFn func(ctx context.Context, cutoff time.Time) (int64, error)

	mu      sync.Mutex
	revoked map[string]*time.Time
	Err     error

	// IsRevokedCalls counts lookups, for asserting read-only behavior
	IsRevokedCalls int
}

var _ store.RevocationStore = (*MockRevocationStore)(nil)

// NewMockRevocationStore creates an empty mock revocation store
func NewMockRevocationStore(tokens ...string) *MockRevocationStore {
	m := &MockRevocationStore{revoked: make(map[string]*time.Time)}
	for _, t := range tokens {
		m.revoked[t] = nil
	}
	return m
}

// Revoke implements the RevocationStore interface
func (m *MockRevocationStore) Revoke(
	ctx context.Context,
	token string,
	expiresAt *time.Time,
) (domain.RevocationResult, error) {
	if m.RevokeFn != nil {
		return m.RevokeFn(ctx, token, expiresAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return domain.RevocationResult{}, m.Err
	}
	if _, ok := m.revoked[token]; ok {
		return domain.RevocationResult{AlreadyRevoked: true}, nil
	}
	m.revoked[token] = expiresAt
	return domain.RevocationResult{}, nil
}

// IsRevoked implements the RevocationStore interface
func (m *MockRevocationStore) IsRevoked(ctx context.Context, token string) (bool, error) {
	if m.IsRevokedFn != nil {
		return m.IsRevokedFn(ctx, token)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.IsRevokedCalls++
	if m.Err != nil {
		return false, m.Err
	}
	_, ok := m.revoked[token]
	return ok, nil
}

// PurgeExpired implements the RevocationStore interface
func (m *MockRevocationStore) PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	if m.PurgeExpiredFn != nil {
		return m.PurgeExpiredFn(ctx, cutoff)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}
	var n int64
	for tok, exp := range m.revoked {
		if exp != nil && exp.Before(cutoff) {
			delete(m.revoked, tok)
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored revocations
func (m *MockRevocationStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.revoked)
}
