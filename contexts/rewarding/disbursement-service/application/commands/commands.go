package commands

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	application "captminter/contexts/rewarding/disbursement-service/application"
	"captminter/contexts/rewarding/disbursement-service/domain/entities"
	domainerrors "captminter/contexts/rewarding/disbursement-service/domain/errors"
	"captminter/contexts/rewarding/disbursement-service/domain/rewards"
	"captminter/contexts/rewarding/disbursement-service/ports"
)

const (
	defaultBatchSize     = 10
	defaultClaimLease    = 2 * time.Minute
	defaultRetryCooldown = 30 * time.Second
	defaultMaxAttempts   = 5

	TopicSessionRewarded = "rewarding.session_rewarded"
)

// SessionRewardedEvent is the payload published after a successful
// disbursement. Consumed by the wallet-totals projection.
type SessionRewardedEvent struct {
	SessionID      string    `json:"session_id"`
	WalletAddress  string    `json:"wallet_address"`
	AmountTokens   int64     `json:"amount_tokens"`
	TransferDigest string    `json:"transfer_digest"`
	RewardedAt     time.Time `json:"rewarded_at"`
}

// CycleResult summarizes one disbursement pass for worker-level logging.
type CycleResult struct {
	Selected int
	Rewarded int
	Skipped  int
	Failed   int
}

type UseCase struct {
	Sessions ports.SessionRepository
	Receipts ports.ReceiptRepository
	Ledger   ports.Ledger
	Policy   rewards.Policy
	Events   ports.EventPublisher
	Clock    ports.Clock
	IDGen    ports.IDGenerator

	ClaimLease    time.Duration
	RetryCooldown time.Duration
	MaxAttempts   int
	Logger        *slog.Logger
}

// ProcessEligibleSessions performs one disbursement cycle: select up to limit
// eligible sessions, then for each one claim -> compute -> submit -> record
// receipt -> mark rewarded -> publish event. Per-session failures are
// isolated; only a failed selection query aborts the cycle.
func (uc UseCase) ProcessEligibleSessions(ctx context.Context, limit int) (CycleResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	now := uc.now()
	if limit <= 0 {
		limit = defaultBatchSize
	}

	sessions, err := uc.Sessions.ListEligible(ctx, now, uc.maxAttempts(), limit)
	if err != nil {
		logger.Error("eligible session query failed",
			"event", "disbursement_query_failed",
			"module", "rewarding/disbursement-service",
			"layer", "application",
			"error", err.Error(),
		)
		return CycleResult{}, err
	}

	result := CycleResult{Selected: len(sessions)}
	logger.Info("disbursement cycle started",
		"event", "disbursement_cycle_started",
		"module", "rewarding/disbursement-service",
		"layer", "application",
		"selected", len(sessions),
		"limit", limit,
	)

	for _, session := range sessions {
		switch uc.disburse(ctx, logger, session) {
		case outcomeRewarded:
			result.Rewarded++
		case outcomeSkipped:
			result.Skipped++
		case outcomeFailed:
			result.Failed++
		}
	}
	return result, nil
}

type outcome int

const (
	outcomeRewarded outcome = iota
	outcomeSkipped
	outcomeFailed
)

func (uc UseCase) disburse(ctx context.Context, logger *slog.Logger, session entities.DetectionSession) outcome {
	now := uc.now()

	// A session without a destination stays eligible and inert: it is never
	// claimed or marked, on the assumption the tracker backfills the wallet.
	if !session.HasWallet() {
		logger.Info("session has no wallet address, skipping",
			"event", "disbursement_session_no_wallet",
			"module", "rewarding/disbursement-service",
			"layer", "application",
			"session_id", session.SessionID,
		)
		return outcomeSkipped
	}

	if err := uc.Sessions.ClaimSession(ctx, session.SessionID, now, now.Add(uc.claimLease())); err != nil {
		if errors.Is(err, domainerrors.ErrSessionNotClaimable) {
			logger.Info("session claim lost",
				"event", "disbursement_claim_lost",
				"module", "rewarding/disbursement-service",
				"layer", "application",
				"session_id", session.SessionID,
			)
			return outcomeSkipped
		}
		logger.Error("session claim failed",
			"event", "disbursement_claim_failed",
			"module", "rewarding/disbursement-service",
			"layer", "application",
			"session_id", session.SessionID,
			"error", err.Error(),
		)
		return outcomeFailed
	}

	amount := uc.Policy.Compute(session)
	if amount <= 0 {
		// Nothing to pay out; mark terminal so the session does not loop.
		if err := uc.Sessions.MarkRewarded(ctx, session.SessionID, now); err != nil {
			logger.Error("zero-amount session mark failed",
				"event", "disbursement_zero_amount_mark_failed",
				"module", "rewarding/disbursement-service",
				"layer", "application",
				"session_id", session.SessionID,
				"error", err.Error(),
			)
			return outcomeFailed
		}
		logger.Info("session rewarded with zero amount, no transfer submitted",
			"event", "disbursement_zero_amount",
			"module", "rewarding/disbursement-service",
			"layer", "application",
			"session_id", session.SessionID,
			"duration_seconds", session.DurationSeconds,
		)
		return outcomeRewarded
	}

	// A receipt without a rewarded mark means a prior cycle paid and then
	// crashed or failed the commit. Finish the mark instead of paying twice.
	if existing, err := uc.Receipts.GetReceiptBySession(ctx, session.SessionID); err == nil {
		logger.Warn("receipt already recorded for session, marking without resubmitting",
			"event", "disbursement_receipt_reconciled",
			"module", "rewarding/disbursement-service",
			"layer", "application",
			"session_id", session.SessionID,
			"transfer_digest", existing.TransferDigest,
		)
		if err := uc.Sessions.MarkRewarded(ctx, session.SessionID, now); err != nil {
			logger.Error("reconciliation mark failed",
				"event", "disbursement_reconcile_mark_failed",
				"module", "rewarding/disbursement-service",
				"layer", "application",
				"session_id", session.SessionID,
				"error", err.Error(),
			)
			return outcomeFailed
		}
		return outcomeRewarded
	} else if !errors.Is(err, domainerrors.ErrReceiptNotFound) {
		uc.release(ctx, logger, session, "receipt lookup failed: "+err.Error())
		return outcomeFailed
	}

	logger.Info("submitting reward transfer",
		"event", "disbursement_submit",
		"module", "rewarding/disbursement-service",
		"layer", "application",
		"session_id", session.SessionID,
		"wallet_address", session.Wallet(),
		"duration_seconds", session.DurationSeconds,
		"amount_tokens", amount,
	)

	confirmation, err := uc.Ledger.SubmitTransfer(ctx, amount, session.Wallet())
	if err != nil {
		logger.Error("reward transfer failed",
			"event", "disbursement_submit_failed",
			"module", "rewarding/disbursement-service",
			"layer", "application",
			"session_id", session.SessionID,
			"wallet_address", session.Wallet(),
			"amount_tokens", amount,
			"error", err.Error(),
		)
		uc.release(ctx, logger, session, err.Error())
		return outcomeFailed
	}

	receiptID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		receiptID = ""
	}
	if err := uc.Receipts.CreateReceipt(ctx, entities.RewardReceipt{
		ID:             receiptID,
		SessionID:      session.SessionID,
		WalletAddress:  session.Wallet(),
		AmountTokens:   amount,
		TransferDigest: confirmation.Digest,
		CreatedAt:      now,
	}); err != nil {
		// The payment is already on the ledger; a missing receipt only costs
		// the reconciliation shortcut, so keep going.
		logger.Warn("receipt write failed after successful transfer",
			"event", "disbursement_receipt_write_failed",
			"module", "rewarding/disbursement-service",
			"layer", "application",
			"session_id", session.SessionID,
			"transfer_digest", confirmation.Digest,
			"error", err.Error(),
		)
	}

	if err := uc.Sessions.MarkRewarded(ctx, session.SessionID, now); err != nil {
		// Paid but not marked. The claim lease keeps the session out of
		// rotation until it expires; the receipt row lets the next attempt
		// mark without paying again.
		logger.Error("session paid but mark rewarded failed",
			"event", "disbursement_mark_failed",
			"module", "rewarding/disbursement-service",
			"layer", "application",
			"session_id", session.SessionID,
			"transfer_digest", confirmation.Digest,
			"amount_tokens", amount,
			"error", err.Error(),
		)
		return outcomeFailed
	}

	uc.publishRewarded(ctx, logger, session, amount, confirmation.Digest, now)

	logger.Info("session rewarded",
		"event", "disbursement_session_rewarded",
		"module", "rewarding/disbursement-service",
		"layer", "application",
		"session_id", session.SessionID,
		"wallet_address", session.Wallet(),
		"amount_tokens", amount,
		"transfer_digest", confirmation.Digest,
	)
	return outcomeRewarded
}

func (uc UseCase) release(ctx context.Context, logger *slog.Logger, session entities.DetectionSession, cause string) {
	now := uc.now()
	attempts := session.RewardAttempts + 1
	if err := uc.Sessions.ReleaseSession(ctx, session.SessionID, attempts, now.Add(uc.retryCooldown()), cause); err != nil {
		logger.Error("session release failed",
			"event", "disbursement_release_failed",
			"module", "rewarding/disbursement-service",
			"layer", "application",
			"session_id", session.SessionID,
			"error", err.Error(),
		)
		return
	}
	if attempts >= uc.maxAttempts() {
		logger.Warn("session reached max reward attempts, removed from rotation",
			"event", "disbursement_max_attempts_reached",
			"module", "rewarding/disbursement-service",
			"layer", "application",
			"session_id", session.SessionID,
			"attempts", attempts,
		)
	}
}

func (uc UseCase) publishRewarded(
	ctx context.Context,
	logger *slog.Logger,
	session entities.DetectionSession,
	amount int64,
	digest string,
	now time.Time,
) {
	if uc.Events == nil {
		return
	}
	payload, err := json.Marshal(SessionRewardedEvent{
		SessionID:      session.SessionID,
		WalletAddress:  session.Wallet(),
		AmountTokens:   amount,
		TransferDigest: digest,
		RewardedAt:     now,
	})
	if err != nil {
		return
	}
	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		eventID = session.SessionID
	}
	if err := uc.Events.Publish(ctx, TopicSessionRewarded, ports.EventEnvelope{
		EventID:      eventID,
		EventType:    TopicSessionRewarded,
		PartitionKey: session.Wallet(),
		OccurredAt:   now,
		Data:         payload,
	}); err != nil {
		logger.Warn("reward event publish failed",
			"event", "disbursement_event_publish_failed",
			"module", "rewarding/disbursement-service",
			"layer", "application",
			"session_id", session.SessionID,
			"error", err.Error(),
		)
	}
}

func (uc UseCase) now() time.Time {
	if uc.Clock != nil {
		return uc.Clock.Now().UTC()
	}
	return time.Now().UTC()
}

func (uc UseCase) claimLease() time.Duration {
	if uc.ClaimLease > 0 {
		return uc.ClaimLease
	}
	return defaultClaimLease
}

func (uc UseCase) retryCooldown() time.Duration {
	if uc.RetryCooldown > 0 {
		return uc.RetryCooldown
	}
	return defaultRetryCooldown
}

func (uc UseCase) maxAttempts() int {
	if uc.MaxAttempts > 0 {
		return uc.MaxAttempts
	}
	return defaultMaxAttempts
}
