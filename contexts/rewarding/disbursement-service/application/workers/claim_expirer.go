package workers

import (
	"context"
	"log/slog"
	"time"

	application "captminter/contexts/rewarding/disbursement-service/application"
	"captminter/contexts/rewarding/disbursement-service/ports"
)

// StaleClaimExpirer returns sessions whose claim lease lapsed to rotation.
// Covers workers that crashed between claim and commit.
type StaleClaimExpirer struct {
	Sessions ports.SessionRepository
	Clock    ports.Clock
	Logger   *slog.Logger
}

func (e StaleClaimExpirer) RunOnce(ctx context.Context) error {
	logger := application.ResolveLogger(e.Logger)
	now := time.Now().UTC()
	if e.Clock != nil {
		now = e.Clock.Now().UTC()
	}

	released, err := e.Sessions.ExpireStaleClaims(ctx, now)
	if err != nil {
		logger.Error("stale claim sweep failed",
			"event", "disbursement_claim_sweep_failed",
			"module", "rewarding/disbursement-service",
			"layer", "worker",
			"error", err.Error(),
		)
		return err
	}
	if released > 0 {
		logger.Info("stale claim sweep completed",
			"event", "disbursement_claim_sweep_completed",
			"module", "rewarding/disbursement-service",
			"layer", "worker",
			"released_count", released,
		)
	}
	return nil
}
