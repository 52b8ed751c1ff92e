package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phrazzld/taskpulse/internal/domain"
	"github.com/phrazzld/taskpulse/internal/platform/logger"
	"github.com/phrazzld/taskpulse/internal/store"
)

// Authenticator turns a raw bearer token into the user it identifies.
type Authenticator interface {
	// Authenticate checks token against the revocation store, then its
	// signature and expiry, then resolves the subject. A revoked token is
	// reported as ErrRevokedToken regardless of its other properties.
	// Credential rejections are the package sentinels; anything else is an
	// infrastructure failure. The call has no side effects.
	Authenticate(ctx context.Context, token string) (*domain.User, error)

	// Logout revokes a token that is still valid by signature and expiry.
	// Revoking an already revoked token succeeds with AlreadyRevoked set.
	Logout(ctx context.Context, token string) (*domain.User, domain.RevocationResult, error)
}

type tokenAuthenticator struct {
	jwt         JWTService
	users       store.UserStore
	revocations store.RevocationStore
	logger      *slog.Logger
}

var _ Authenticator = (*tokenAuthenticator)(nil)

// NewAuthenticator wires the JWT service with the user and revocation stores.
func NewAuthenticator(
	jwtService JWTService,
	users store.UserStore,
	revocations store.RevocationStore,
	log *slog.Logger,
) (Authenticator, error) {
	if jwtService == nil {
		return nil, errors.New("jwt service cannot be nil")
	}
	if users == nil {
		return nil, errors.New("user store cannot be nil")
	}
	if revocations == nil {
		return nil, errors.New("revocation store cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	return &tokenAuthenticator{
		jwt:         jwtService,
		users:       users,
		revocations: revocations,
		logger:      log.With(slog.String("component", "authenticator")),
	}, nil
}

// Authenticate implements Authenticator.
func (a *tokenAuthenticator) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	log := logger.FromContextOrDefault(ctx, a.logger)

	if token == "" {
		return nil, ErrMissingToken
	}

	revoked, err := a.revocations.IsRevoked(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to check revocation list: %w", err)
	}
	if revoked {
		log.Debug("rejected revoked token")
		return nil, ErrRevokedToken
	}

	claims, err := a.jwt.ValidateToken(ctx, token)
	if err != nil {
		return nil, err
	}

	return a.resolveSubject(ctx, claims)
}

// Logout implements Authenticator.
func (a *tokenAuthenticator) Logout(
	ctx context.Context,
	token string,
) (*domain.User, domain.RevocationResult, error) {
	log := logger.FromContextOrDefault(ctx, a.logger)

	if token == "" {
		return nil, domain.RevocationResult{}, ErrMissingToken
	}

	claims, err := a.jwt.ValidateToken(ctx, token)
	if err != nil {
		return nil, domain.RevocationResult{}, err
	}

	user, err := a.resolveSubject(ctx, claims)
	if err != nil {
		return nil, domain.RevocationResult{}, err
	}

	var expiresAt = &claims.ExpiresAt
	if claims.ExpiresAt.IsZero() {
		expiresAt = nil
	}

	result, err := a.revocations.Revoke(ctx, token, expiresAt)
	if err != nil {
		return nil, domain.RevocationResult{}, fmt.Errorf("failed to revoke token: %w", err)
	}

	log.Info("user logged out",
		slog.String("user_id", user.ID.String()),
		slog.Bool("already_revoked", result.AlreadyRevoked))
	return user, result, nil
}

func (a *tokenAuthenticator) resolveSubject(ctx context.Context, claims *Claims) (*domain.User, error) {
	user, err := a.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if store.IsNotFoundError(err) {
			return nil, ErrUnknownSubject
		}
		return nil, fmt.Errorf("failed to resolve token subject: %w", err)
	}
	return user, nil
}
