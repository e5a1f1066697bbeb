package ports

import (
	"context"
	"encoding/json"
	"time"

	"captminter/contexts/rewarding/disbursement-service/domain/entities"
)

// SessionRepository is the store boundary for detection sessions. The worker
// only ever advances reward bookkeeping; session creation and closure belong
// to the tracker.
type SessionRepository interface {
	// ListEligible returns up to limit sessions that have ended, are not
	// rewarded, hold no live claim, are outside any retry cooldown, and have
	// fewer than maxAttempts failed submissions. May return fewer than limit.
	ListEligible(ctx context.Context, now time.Time, maxAttempts int, limit int) ([]entities.DetectionSession, error)

	// ClaimSession conditionally transitions an eligible session into an
	// in-flight claim held until leaseUntil. Returns ErrSessionNotClaimable
	// when the session is no longer eligible or another claim is live.
	ClaimSession(ctx context.Context, sessionID string, now time.Time, leaseUntil time.Time) error

	// MarkRewarded conditionally sets the terminal rewarded flag. Marking an
	// already-rewarded session is a no-op, not an error.
	MarkRewarded(ctx context.Context, sessionID string, now time.Time) error

	// ReleaseSession drops the claim after a failed submission, records the
	// attempt count and failure, and defers reselection until nextAttemptAt.
	ReleaseSession(ctx context.Context, sessionID string, attempts int, nextAttemptAt time.Time, lastError string) error

	// ExpireStaleClaims releases claims whose lease crossed now, returning
	// the number of sessions put back into rotation.
	ExpireStaleClaims(ctx context.Context, now time.Time) (int64, error)

	GetSession(ctx context.Context, sessionID string) (entities.DetectionSession, error)
}

type ReceiptRepository interface {
	// CreateReceipt records a disbursement. Inserting a second receipt for
	// the same session is a no-op.
	CreateReceipt(ctx context.Context, receipt entities.RewardReceipt) error
	GetReceiptBySession(ctx context.Context, sessionID string) (entities.RewardReceipt, error)
	ListRecentReceipts(ctx context.Context, limit int) ([]entities.RewardReceipt, error)
}

type WalletTotalsRepository interface {
	ApplyReward(ctx context.Context, walletAddress string, amountTokens int64, rewardedAt time.Time) error
	GetWalletTotal(ctx context.Context, walletAddress string) (entities.WalletTotal, error)
}

// Ledger is the opaque signer-and-submit capability. A successful return
// means the value transfer is irreversibly on the ledger; the call is not
// idempotent, so the engine must never submit twice for one session.
type Ledger interface {
	SubmitTransfer(ctx context.Context, amountTokens int64, destination string) (entities.TransferConfirmation, error)
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

type EventEnvelope struct {
	EventID      string          `json:"event_id"`
	EventType    string          `json:"event_type"`
	PartitionKey string          `json:"partition_key"`
	OccurredAt   time.Time       `json:"occurred_at"`
	Data         json.RawMessage `json:"data"`
}

type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}

type EventSubscriber interface {
	Subscribe(ctx context.Context, topic string, consumerGroup string, handler func(context.Context, EventEnvelope) error) error
}
