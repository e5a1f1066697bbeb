package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"captminter/contexts/rewarding/disbursement-service/adapters/memory"
	"captminter/contexts/rewarding/disbursement-service/domain/entities"
	domainerrors "captminter/contexts/rewarding/disbursement-service/domain/errors"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func seedSessions() []entities.DetectionSession {
	walletA := "0xAAA"
	walletB := "0xBBB"
	endedEarly := testNow.Add(-2 * time.Hour)
	endedLate := testNow.Add(-time.Hour)
	rewarded := true

	return []entities.DetectionSession{
		{SessionID: "open", WalletAddress: &walletA, DurationSeconds: 10},
		{SessionID: "paid", WalletAddress: &walletA, DurationSeconds: 20, EndTime: &endedEarly, Rewarded: &rewarded},
		{SessionID: "first", WalletAddress: &walletA, DurationSeconds: 30, EndTime: &endedEarly},
		{SessionID: "second", WalletAddress: &walletB, DurationSeconds: 40, EndTime: &endedLate},
	}
}

func TestListEligibleFiltersAndOrders(t *testing.T) {
	store := memory.NewStore(seedSessions())

	eligible, err := store.ListEligible(context.Background(), testNow, 5, 10)
	if err != nil {
		t.Fatalf("list eligible failed: %v", err)
	}
	if len(eligible) != 2 {
		t.Fatalf("expected two eligible sessions, got %d", len(eligible))
	}
	if eligible[0].SessionID != "first" || eligible[1].SessionID != "second" {
		t.Fatalf("expected end-time ordering, got %q then %q", eligible[0].SessionID, eligible[1].SessionID)
	}
}

func TestListEligibleRespectsLimitAndAttempts(t *testing.T) {
	store := memory.NewStore(seedSessions())

	eligible, err := store.ListEligible(context.Background(), testNow, 5, 1)
	if err != nil {
		t.Fatalf("list eligible failed: %v", err)
	}
	if len(eligible) != 1 {
		t.Fatalf("expected limit to apply, got %d", len(eligible))
	}

	if err := store.ReleaseSession(context.Background(), "first", 5, testNow.Add(-time.Minute), "boom"); err != nil {
		t.Fatalf("release failed: %v", err)
	}
	eligible, err = store.ListEligible(context.Background(), testNow, 5, 10)
	if err != nil {
		t.Fatalf("list eligible failed: %v", err)
	}
	if len(eligible) != 1 || eligible[0].SessionID != "second" {
		t.Fatalf("session at max attempts must be excluded, got %+v", eligible)
	}
}

func TestClaimSessionIsExclusive(t *testing.T) {
	store := memory.NewStore(seedSessions())

	if err := store.ClaimSession(context.Background(), "first", testNow, testNow.Add(2*time.Minute)); err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	err := store.ClaimSession(context.Background(), "first", testNow, testNow.Add(2*time.Minute))
	if !errors.Is(err, domainerrors.ErrSessionNotClaimable) {
		t.Fatalf("expected claim contention error, got %v", err)
	}

	// A lapsed lease can be re-claimed.
	if err := store.ClaimSession(context.Background(), "first", testNow.Add(3*time.Minute), testNow.Add(5*time.Minute)); err != nil {
		t.Fatalf("re-claim after lease expiry failed: %v", err)
	}
}

func TestClaimRejectsOpenAndRewardedSessions(t *testing.T) {
	store := memory.NewStore(seedSessions())

	if err := store.ClaimSession(context.Background(), "open", testNow, testNow.Add(time.Minute)); !errors.Is(err, domainerrors.ErrSessionNotClaimable) {
		t.Fatalf("open session must not be claimable, got %v", err)
	}
	if err := store.ClaimSession(context.Background(), "paid", testNow, testNow.Add(time.Minute)); !errors.Is(err, domainerrors.ErrSessionNotClaimable) {
		t.Fatalf("rewarded session must not be claimable, got %v", err)
	}
}

func TestMarkRewardedIsIdempotent(t *testing.T) {
	store := memory.NewStore(seedSessions())

	if err := store.MarkRewarded(context.Background(), "first", testNow); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	if err := store.MarkRewarded(context.Background(), "first", testNow.Add(time.Minute)); err != nil {
		t.Fatalf("second mark must be a no-op, got %v", err)
	}

	session, err := store.GetSession(context.Background(), "first")
	if err != nil {
		t.Fatalf("get session failed: %v", err)
	}
	if !session.IsRewarded() || session.RewardedAt == nil || !session.RewardedAt.Equal(testNow) {
		t.Fatalf("unexpected session state after double mark: %+v", session)
	}

	if err := store.MarkRewarded(context.Background(), "missing", testNow); !errors.Is(err, domainerrors.ErrSessionNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCreateReceiptDeduplicatesPerSession(t *testing.T) {
	store := memory.NewStore(nil)

	first := entities.RewardReceipt{SessionID: "s1", AmountTokens: 10, TransferDigest: "d1", CreatedAt: testNow}
	if err := store.CreateReceipt(context.Background(), first); err != nil {
		t.Fatalf("create receipt failed: %v", err)
	}
	duplicate := entities.RewardReceipt{SessionID: "s1", AmountTokens: 99, TransferDigest: "d2", CreatedAt: testNow}
	if err := store.CreateReceipt(context.Background(), duplicate); err != nil {
		t.Fatalf("duplicate receipt must be a no-op, got %v", err)
	}

	receipt, err := store.GetReceiptBySession(context.Background(), "s1")
	if err != nil {
		t.Fatalf("get receipt failed: %v", err)
	}
	if receipt.TransferDigest != "d1" {
		t.Fatalf("duplicate insert must not overwrite, got %+v", receipt)
	}
}

func TestListRecentReceiptsOrdersNewestFirst(t *testing.T) {
	store := memory.NewStore(nil)
	for i, id := range []string{"s1", "s2", "s3"} {
		if err := store.CreateReceipt(context.Background(), entities.RewardReceipt{
			SessionID: id,
			CreatedAt: testNow.Add(time.Duration(i) * time.Minute),
		}); err != nil {
			t.Fatalf("create receipt failed: %v", err)
		}
	}

	receipts, err := store.ListRecentReceipts(context.Background(), 2)
	if err != nil {
		t.Fatalf("list receipts failed: %v", err)
	}
	if len(receipts) != 2 || receipts[0].SessionID != "s3" || receipts[1].SessionID != "s2" {
		t.Fatalf("unexpected receipt order: %+v", receipts)
	}
}

func TestApplyRewardAccumulates(t *testing.T) {
	store := memory.NewStore(nil)

	if err := store.ApplyReward(context.Background(), "0xAAA", 100, testNow); err != nil {
		t.Fatalf("apply reward failed: %v", err)
	}
	if err := store.ApplyReward(context.Background(), "0xAAA", 50, testNow.Add(time.Minute)); err != nil {
		t.Fatalf("apply reward failed: %v", err)
	}

	total, err := store.GetWalletTotal(context.Background(), "0xAAA")
	if err != nil {
		t.Fatalf("get wallet total failed: %v", err)
	}
	if total.TotalTokens != 150 || total.SessionsRewarded != 2 {
		t.Fatalf("unexpected total: %+v", total)
	}
	if _, err := store.GetWalletTotal(context.Background(), "0xBBB"); !errors.Is(err, domainerrors.ErrWalletTotalNotFound) {
		t.Fatalf("expected not found for unknown wallet, got %v", err)
	}
}
