package postgres

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskpulse/internal/domain"
	"github.com/phrazzld/taskpulse/internal/platform/logger"
	"github.com/phrazzld/taskpulse/internal/store"
)

// PostgresRevocationStore implements the store.RevocationStore interface
// on the revoked_tokens table.
type PostgresRevocationStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresRevocationStore creates a new PostgreSQL implementation of the RevocationStore interface.
// If log is nil, a default logger will be used.
func NewPostgresRevocationStore(db store.DBTX, log *slog.Logger) *PostgresRevocationStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	return &PostgresRevocationStore{
		db:     db,
		logger: log.With(slog.String("component", "revocation_store")),
	}
}

// Ensure PostgresRevocationStore implements store.RevocationStore interface
var _ store.RevocationStore = (*PostgresRevocationStore)(nil)

// Revoke implements store.RevocationStore.Revoke.
// Concurrent revocations of the same token are resolved by the unique
// constraint: exactly one caller writes, the rest see AlreadyRevoked.
func (s *PostgresRevocationStore) Revoke(
	ctx context.Context,
	token string,
	expiresAt *time.Time,
) (domain.RevocationResult, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var expires any
	if expiresAt != nil {
		expires = expiresAt.UTC()
	}

	query := `
		INSERT INTO revoked_tokens (id, token, revoked_at, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (token) DO NOTHING
	`
	result, err := s.db.ExecContext(ctx, query, uuid.New(), token, time.Now().UTC(), expires)
	if err != nil {
		log.Error("failed to revoke token", slog.String("error", err.Error()))
		return domain.RevocationResult{}, store.NewStoreError(
			"revoked_token", "revoke", "insert failed", MapError(err))
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return domain.RevocationResult{}, store.NewStoreError(
			"revoked_token", "revoke", "failed to get rows affected", err)
	}

	if rows == 0 {
		log.Debug("token already revoked")
		return domain.RevocationResult{AlreadyRevoked: true}, nil
	}

	log.Info("token revoked")
	return domain.RevocationResult{}, nil
}

// IsRevoked implements store.RevocationStore.IsRevoked.
func (s *PostgresRevocationStore) IsRevoked(ctx context.Context, token string) (bool, error) {
	var revoked bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM revoked_tokens WHERE token = $1)`, token,
	).Scan(&revoked)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to check token revocation",
			slog.String("error", err.Error()))
		return false, store.NewStoreError("revoked_token", "lookup", "query failed", err)
	}
	return revoked, nil
}

// PurgeExpired implements store.RevocationStore.PurgeExpired.
func (s *PostgresRevocationStore) PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx,
		`DELETE FROM revoked_tokens WHERE expires_at IS NOT NULL AND expires_at < $1`,
		cutoff.UTC(),
	)
	if err != nil {
		log.Error("failed to purge revoked tokens", slog.String("error", err.Error()))
		return 0, store.NewStoreError("revoked_token", "purge", "delete failed", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, store.NewStoreError("revoked_token", "purge", "failed to get rows affected", err)
	}

	if n > 0 {
		log.Info("purged expired revocations", slog.Int64("count", n))
	}
	return n, nil
}
