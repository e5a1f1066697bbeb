package entities

import (
	"strings"
	"time"
)

// DetectionSession is the externally-owned session record. The session
// tracker creates and mutates it up until EndTime is set; this module only
// advances the reward bookkeeping.
//
// WalletAddress, EndTime and Rewarded are pointers because the upstream rows
// genuinely carry NULLs for all three; absence and false mean different
// things for Rewarded (both are still eligible, only true is terminal).
type DetectionSession struct {
	SessionID       string
	WalletAddress   *string
	DurationSeconds int64
	StartTime       *time.Time
	EndTime         *time.Time
	Rewarded        *bool
	RewardedAt      *time.Time

	// Claim bookkeeping owned by the disbursement worker.
	ClaimedAt       *time.Time
	ClaimExpiresAt  *time.Time
	RewardAttempts  int
	NextAttemptAt   *time.Time
	LastRewardError string
}

func (s DetectionSession) IsRewarded() bool {
	return s.Rewarded != nil && *s.Rewarded
}

// Eligible reports whether the session can be selected for disbursement at
// the given instant: the session has ended, has not been paid, is not held by
// a live claim, and is not inside a retry cooldown.
func (s DetectionSession) Eligible(now time.Time) bool {
	if s.EndTime == nil || s.IsRewarded() {
		return false
	}
	if s.ClaimExpiresAt != nil && s.ClaimExpiresAt.After(now) {
		return false
	}
	if s.NextAttemptAt != nil && s.NextAttemptAt.After(now) {
		return false
	}
	return true
}

func (s DetectionSession) Wallet() string {
	if s.WalletAddress == nil {
		return ""
	}
	return strings.TrimSpace(*s.WalletAddress)
}

func (s DetectionSession) HasWallet() bool {
	return s.Wallet() != ""
}
