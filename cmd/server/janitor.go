package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/phrazzld/taskpulse/internal/config"
	"github.com/phrazzld/taskpulse/internal/redact"
	"github.com/phrazzld/taskpulse/internal/service/auth"
	"github.com/phrazzld/taskpulse/internal/store"
)

// revocationJanitor periodically deletes revocation records whose token
// expired more than the retention grace ago. Such tokens fail validation on
// their own, so the record no longer changes any outcome. The grace never
// drops below auth.ClockSkew, the window in which an expired token still
// validates.
type revocationJanitor struct {
	revocations store.RevocationStore
	interval    time.Duration
	grace       time.Duration
	now         func() time.Time
	logger      *slog.Logger
}

func newRevocationJanitor(
	revocations store.RevocationStore,
	cfg config.RevocationConfig,
	log *slog.Logger,
) *revocationJanitor {
	return &revocationJanitor{
		revocations: revocations,
		interval:    cfg.PurgeInterval,
		grace:       max(cfg.RetentionGrace, auth.ClockSkew),
		now:         time.Now,
		logger:      log.With(slog.String("component", "revocation_janitor")),
	}
}

// Run purges once immediately and then every interval until ctx ends.
// A zero interval disables purging.
func (j *revocationJanitor) Run(ctx context.Context) {
	if j.interval <= 0 {
		j.logger.Info("revocation purge disabled")
		return
	}

	j.purge(ctx)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.purge(ctx)
		}
	}
}

func (j *revocationJanitor) purge(ctx context.Context) {
	cutoff := j.now().Add(-j.grace)
	n, err := j.revocations.PurgeExpired(ctx, cutoff)
	if err != nil {
		if ctx.Err() == nil {
			j.logger.Error("failed to purge revoked tokens", slog.String("error", redact.Error(err)))
		}
		return
	}
	if n > 0 {
		j.logger.Info("purged revoked tokens",
			slog.Int64("count", n),
			slog.Time("cutoff", cutoff))
	}
}
