package workers

import (
	"context"
	"log/slog"

	application "captminter/contexts/rewarding/disbursement-service/application"
	"captminter/contexts/rewarding/disbursement-service/application/commands"
)

// DisbursementJob runs one reward disbursement cycle per tick.
type DisbursementJob struct {
	Commands  commands.UseCase
	BatchSize int
	Logger    *slog.Logger
}

func (j DisbursementJob) RunOnce(ctx context.Context) error {
	logger := application.ResolveLogger(j.Logger)
	limit := j.BatchSize
	if limit <= 0 {
		limit = 10
	}
	result, err := j.Commands.ProcessEligibleSessions(ctx, limit)
	if err != nil {
		logger.Error("disbursement cycle failed",
			"event", "disbursement_cycle_failed",
			"module", "rewarding/disbursement-service",
			"layer", "worker",
			"error", err.Error(),
		)
		return err
	}
	logger.Info("disbursement cycle completed",
		"event", "disbursement_cycle_completed",
		"module", "rewarding/disbursement-service",
		"layer", "worker",
		"selected", result.Selected,
		"rewarded", result.Rewarded,
		"skipped", result.Skipped,
		"failed", result.Failed,
	)
	return nil
}
