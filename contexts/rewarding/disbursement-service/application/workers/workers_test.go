package workers_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"captminter/contexts/rewarding/disbursement-service/adapters/memory"
	"captminter/contexts/rewarding/disbursement-service/application/commands"
	"captminter/contexts/rewarding/disbursement-service/application/workers"
	"captminter/contexts/rewarding/disbursement-service/domain/entities"
	"captminter/contexts/rewarding/disbursement-service/ports"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestStaleClaimExpirerReleasesLapsedClaims(t *testing.T) {
	endTime := testNow.Add(-time.Hour)
	wallet := "0xABC"
	store := memory.NewStore([]entities.DetectionSession{
		{
			SessionID:       "stuck",
			WalletAddress:   &wallet,
			DurationSeconds: 60,
			EndTime:         &endTime,
		},
	})
	store.SetNow(testNow)

	if err := store.ClaimSession(context.Background(), "stuck", testNow.Add(-10*time.Minute), testNow.Add(-5*time.Minute)); err != nil {
		t.Fatalf("seed claim failed: %v", err)
	}
	eligible, err := store.ListEligible(context.Background(), testNow.Add(-6*time.Minute), 5, 10)
	if err != nil {
		t.Fatalf("list eligible failed: %v", err)
	}
	if len(eligible) != 0 {
		t.Fatalf("claimed session must be out of rotation, got %+v", eligible)
	}

	expirer := workers.StaleClaimExpirer{Sessions: store, Clock: store}
	if err := expirer.RunOnce(context.Background()); err != nil {
		t.Fatalf("sweep failed: %v", err)
	}

	eligible, err = store.ListEligible(context.Background(), testNow, 5, 10)
	if err != nil {
		t.Fatalf("list eligible failed: %v", err)
	}
	if len(eligible) != 1 || eligible[0].SessionID != "stuck" {
		t.Fatalf("expected released session back in rotation, got %+v", eligible)
	}
}

type stubSubscriber struct {
	topic   string
	group   string
	handler func(context.Context, ports.EventEnvelope) error
}

func (s *stubSubscriber) Subscribe(
	_ context.Context,
	topic string,
	group string,
	handler func(context.Context, ports.EventEnvelope) error,
) error {
	s.topic = topic
	s.group = group
	s.handler = handler
	return nil
}

func TestRewardedConsumerUpdatesWalletTotals(t *testing.T) {
	store := memory.NewStore(nil)
	sub := &stubSubscriber{}
	consumer := workers.RewardedConsumer{
		Subscriber:    sub,
		Totals:        store,
		ConsumerGroup: "test-wallet-totals",
	}

	if err := consumer.Start(context.Background()); err != nil {
		t.Fatalf("start consumer failed: %v", err)
	}
	if sub.handler == nil {
		t.Fatalf("expected subscriber handler to be registered")
	}
	if sub.topic != commands.TopicSessionRewarded {
		t.Fatalf("unexpected topic %q", sub.topic)
	}

	publish := func(sessionID string, amount int64) {
		t.Helper()
		payload, _ := json.Marshal(commands.SessionRewardedEvent{
			SessionID:     sessionID,
			WalletAddress: "0xABC",
			AmountTokens:  amount,
			RewardedAt:    testNow,
		})
		if err := sub.handler(context.Background(), ports.EventEnvelope{
			EventID:   sessionID,
			EventType: commands.TopicSessionRewarded,
			Data:      payload,
		}); err != nil {
			t.Fatalf("handler failed: %v", err)
		}
	}
	publish("s1", 120)
	publish("s2", 30)

	total, err := store.GetWalletTotal(context.Background(), "0xABC")
	if err != nil {
		t.Fatalf("get wallet total failed: %v", err)
	}
	if total.TotalTokens != 150 || total.SessionsRewarded != 2 {
		t.Fatalf("unexpected wallet total: %+v", total)
	}
}

func TestRewardedConsumerIgnoresEmptyEvents(t *testing.T) {
	store := memory.NewStore(nil)
	sub := &stubSubscriber{}
	consumer := workers.RewardedConsumer{Subscriber: sub, Totals: store}
	if err := consumer.Start(context.Background()); err != nil {
		t.Fatalf("start consumer failed: %v", err)
	}

	payload, _ := json.Marshal(commands.SessionRewardedEvent{SessionID: "s1"})
	if err := sub.handler(context.Background(), ports.EventEnvelope{EventID: "s1", Data: payload}); err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if _, err := store.GetWalletTotal(context.Background(), ""); err == nil {
		t.Fatalf("no total may be recorded for an empty wallet")
	}
}
