package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"captminter/contexts/rewarding/disbursement-service/domain/entities"
	domainerrors "captminter/contexts/rewarding/disbursement-service/domain/errors"
	"captminter/contexts/rewarding/disbursement-service/ports"

	"github.com/google/uuid"
)

type Store struct {
	mu sync.RWMutex

	sessions map[string]entities.DetectionSession
	receipts map[string]entities.RewardReceipt
	totals   map[string]entities.WalletTotal
	now      time.Time
}

func NewStore(seed []entities.DetectionSession) *Store {
	sessions := make(map[string]entities.DetectionSession, len(seed))
	for _, session := range seed {
		sessions[session.SessionID] = session
	}
	return &Store{
		sessions: sessions,
		receipts: make(map[string]entities.RewardReceipt),
		totals:   make(map[string]entities.WalletTotal),
	}
}

// SetNow pins the store clock. Zero restores wall time.
func (s *Store) SetNow(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Store) Now() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.now.IsZero() {
		return s.now
	}
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

func (s *Store) ListEligible(_ context.Context, now time.Time, maxAttempts int, limit int) ([]entities.DetectionSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 10
	}
	sessions := make([]entities.DetectionSession, 0, limit)
	for _, session := range s.sessions {
		if !session.Eligible(now) {
			continue
		}
		if maxAttempts > 0 && session.RewardAttempts >= maxAttempts {
			continue
		}
		sessions = append(sessions, session)
	}
	sort.Slice(sessions, func(i, j int) bool {
		left, right := sessions[i], sessions[j]
		if left.EndTime != nil && right.EndTime != nil && !left.EndTime.Equal(*right.EndTime) {
			return left.EndTime.Before(*right.EndTime)
		}
		return left.SessionID < right.SessionID
	})
	if len(sessions) > limit {
		sessions = sessions[:limit]
	}
	return sessions, nil
}

func (s *Store) ClaimSession(_ context.Context, sessionID string, now time.Time, leaseUntil time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, exists := s.sessions[strings.TrimSpace(sessionID)]
	if !exists {
		return domainerrors.ErrSessionNotFound
	}
	if session.EndTime == nil || session.IsRewarded() {
		return domainerrors.ErrSessionNotClaimable
	}
	if session.ClaimExpiresAt != nil && session.ClaimExpiresAt.After(now) {
		return domainerrors.ErrSessionNotClaimable
	}
	claimedAt := now
	expiresAt := leaseUntil
	session.ClaimedAt = &claimedAt
	session.ClaimExpiresAt = &expiresAt
	s.sessions[session.SessionID] = session
	return nil
}

func (s *Store) MarkRewarded(_ context.Context, sessionID string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, exists := s.sessions[strings.TrimSpace(sessionID)]
	if !exists {
		return domainerrors.ErrSessionNotFound
	}
	if session.IsRewarded() {
		return nil
	}
	rewarded := true
	rewardedAt := now
	session.Rewarded = &rewarded
	session.RewardedAt = &rewardedAt
	session.ClaimedAt = nil
	session.ClaimExpiresAt = nil
	session.NextAttemptAt = nil
	session.LastRewardError = ""
	s.sessions[session.SessionID] = session
	return nil
}

func (s *Store) ReleaseSession(_ context.Context, sessionID string, attempts int, nextAttemptAt time.Time, lastError string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, exists := s.sessions[strings.TrimSpace(sessionID)]
	if !exists {
		return domainerrors.ErrSessionNotFound
	}
	next := nextAttemptAt
	session.ClaimedAt = nil
	session.ClaimExpiresAt = nil
	session.RewardAttempts = attempts
	session.NextAttemptAt = &next
	session.LastRewardError = lastError
	s.sessions[session.SessionID] = session
	return nil
}

func (s *Store) ExpireStaleClaims(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var released int64
	for id, session := range s.sessions {
		if session.IsRewarded() || session.ClaimedAt == nil || session.ClaimExpiresAt == nil {
			continue
		}
		if session.ClaimExpiresAt.After(now) {
			continue
		}
		session.ClaimedAt = nil
		session.ClaimExpiresAt = nil
		s.sessions[id] = session
		released++
	}
	return released, nil
}

func (s *Store) GetSession(_ context.Context, sessionID string) (entities.DetectionSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, exists := s.sessions[strings.TrimSpace(sessionID)]
	if !exists {
		return entities.DetectionSession{}, domainerrors.ErrSessionNotFound
	}
	return session, nil
}

func (s *Store) CreateReceipt(_ context.Context, receipt entities.RewardReceipt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessionID := strings.TrimSpace(receipt.SessionID)
	if _, exists := s.receipts[sessionID]; exists {
		return nil
	}
	if strings.TrimSpace(receipt.ID) == "" {
		receipt.ID = uuid.NewString()
	}
	s.receipts[sessionID] = receipt
	return nil
}

func (s *Store) GetReceiptBySession(_ context.Context, sessionID string) (entities.RewardReceipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	receipt, exists := s.receipts[strings.TrimSpace(sessionID)]
	if !exists {
		return entities.RewardReceipt{}, domainerrors.ErrReceiptNotFound
	}
	return receipt, nil
}

func (s *Store) ListRecentReceipts(_ context.Context, limit int) ([]entities.RewardReceipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}
	receipts := make([]entities.RewardReceipt, 0, len(s.receipts))
	for _, receipt := range s.receipts {
		receipts = append(receipts, receipt)
	}
	sort.Slice(receipts, func(i, j int) bool {
		if !receipts[i].CreatedAt.Equal(receipts[j].CreatedAt) {
			return receipts[i].CreatedAt.After(receipts[j].CreatedAt)
		}
		return receipts[i].SessionID < receipts[j].SessionID
	})
	if len(receipts) > limit {
		receipts = receipts[:limit]
	}
	return receipts, nil
}

func (s *Store) ApplyReward(_ context.Context, walletAddress string, amountTokens int64, rewardedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	wallet := strings.TrimSpace(walletAddress)
	total := s.totals[wallet]
	total.WalletAddress = wallet
	total.TotalTokens += amountTokens
	total.SessionsRewarded++
	total.UpdatedAt = rewardedAt.UTC()
	s.totals[wallet] = total
	return nil
}

func (s *Store) GetWalletTotal(_ context.Context, walletAddress string) (entities.WalletTotal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total, exists := s.totals[strings.TrimSpace(walletAddress)]
	if !exists {
		return entities.WalletTotal{}, domainerrors.ErrWalletTotalNotFound
	}
	return total, nil
}

var _ ports.SessionRepository = (*Store)(nil)
var _ ports.ReceiptRepository = (*Store)(nil)
var _ ports.WalletTotalsRepository = (*Store)(nil)
var _ ports.Clock = (*Store)(nil)
var _ ports.IDGenerator = (*Store)(nil)
