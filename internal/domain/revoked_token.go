package domain

import (
	"time"

	"github.com/google/uuid"
)

// RevokedToken records a bearer token invalidated before its natural expiry,
// typically by logout. Once recorded, the token never authenticates again.
type RevokedToken struct {
	ID        uuid.UUID
	Token     string
	RevokedAt time.Time
	// ExpiresAt is the token's own expiry, if known. It only drives retention.
	ExpiresAt *time.Time
}

// RevocationResult reports the outcome of revoking a token.
type RevocationResult struct {
	// AlreadyRevoked is true when the token was present before the call
	// and nothing was written.
	AlreadyRevoked bool
}
