package rewards

import "captminter/contexts/rewarding/disbursement-service/domain/entities"

// Policy maps a session to a token amount. Implementations must be pure and
// deterministic: the same record always yields the same amount, which keeps
// retried submissions consistent with the original attempt.
type Policy interface {
	Compute(session entities.DetectionSession) int64
}

// DurationPolicy awards TokensPerSecond for every second of session duration,
// capped at MaxTokens. The cap bounds pathological durations before they can
// turn into an out-of-range transfer.
type DurationPolicy struct {
	TokensPerSecond int64
	MaxTokens       int64
}

func (p DurationPolicy) Compute(session entities.DetectionSession) int64 {
	perSecond := p.TokensPerSecond
	if perSecond <= 0 {
		perSecond = 1
	}
	if session.DurationSeconds <= 0 {
		return 0
	}
	amount := session.DurationSeconds * perSecond
	if amount/perSecond != session.DurationSeconds {
		// Multiplication overflowed; clamp to the cap.
		amount = p.MaxTokens
	}
	if p.MaxTokens > 0 && amount > p.MaxTokens {
		return p.MaxTokens
	}
	return amount
}
