package store

import (
	"context"
	"time"

	"github.com/phrazzld/taskpulse/internal/domain"
)

// RevocationStore persists the set of revoked bearer tokens.
// It is append-only from the application's point of view: entries are
// never updated, and only removed by retention purging after expiry.
type RevocationStore interface {
	// Revoke records token as revoked. It is idempotent: revoking a token
	// that is already present reports AlreadyRevoked and writes nothing.
	// expiresAt is the token's own expiry if known, used for retention only.
	Revoke(ctx context.Context, token string, expiresAt *time.Time) (domain.RevocationResult, error)

	// IsRevoked reports whether token has been revoked. It never mutates state.
	IsRevoked(ctx context.Context, token string) (bool, error)

	// PurgeExpired deletes revocations whose token expired before cutoff and
	// returns how many rows were removed. Entries without an expiry are kept.
	PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error)
}
