package workers

import (
	"context"
	"encoding/json"
	"log/slog"

	application "captminter/contexts/rewarding/disbursement-service/application"
	"captminter/contexts/rewarding/disbursement-service/application/commands"
	"captminter/contexts/rewarding/disbursement-service/ports"
)

// RewardedConsumer maintains the per-wallet totals projection from
// session-rewarded events. The projection is advisory; losing an event does
// not affect ledger or store correctness.
type RewardedConsumer struct {
	Subscriber    ports.EventSubscriber
	Totals        ports.WalletTotalsRepository
	ConsumerGroup string
	Logger        *slog.Logger
}

func (c RewardedConsumer) Start(ctx context.Context) error {
	logger := application.ResolveLogger(c.Logger)
	group := c.ConsumerGroup
	if group == "" {
		group = "disbursement-wallet-totals-cg"
	}
	return c.Subscriber.Subscribe(ctx, commands.TopicSessionRewarded, group, func(ctx context.Context, envelope ports.EventEnvelope) error {
		var event commands.SessionRewardedEvent
		if err := json.Unmarshal(envelope.Data, &event); err != nil {
			logger.Error("rewarded event decode failed",
				"event", "disbursement_rewarded_event_decode_failed",
				"module", "rewarding/disbursement-service",
				"layer", "worker",
				"event_id", envelope.EventID,
				"error", err.Error(),
			)
			return err
		}
		if event.WalletAddress == "" || event.AmountTokens <= 0 {
			return nil
		}
		if err := c.Totals.ApplyReward(ctx, event.WalletAddress, event.AmountTokens, event.RewardedAt); err != nil {
			logger.Error("wallet totals update failed",
				"event", "disbursement_wallet_totals_update_failed",
				"module", "rewarding/disbursement-service",
				"layer", "worker",
				"session_id", event.SessionID,
				"wallet_address", event.WalletAddress,
				"error", err.Error(),
			)
			return err
		}
		return nil
	})
}
