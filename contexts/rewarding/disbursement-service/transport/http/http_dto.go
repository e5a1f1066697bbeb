package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type SessionDTO struct {
	SessionID       string `json:"session_id"`
	WalletAddress   string `json:"wallet_address,omitempty"`
	DurationSeconds int64  `json:"duration_seconds"`
	EndTime         string `json:"end_time,omitempty"`
	Rewarded        *bool  `json:"rewarded,omitempty"`
	RewardedAt      string `json:"rewarded_at,omitempty"`
	RewardAttempts  int    `json:"reward_attempts"`
	NextAttemptAt   string `json:"next_attempt_at,omitempty"`
	LastRewardError string `json:"last_reward_error,omitempty"`
	ClaimExpiresAt  string `json:"claim_expires_at,omitempty"`
}

type ReceiptDTO struct {
	ID             string `json:"id"`
	SessionID      string `json:"session_id"`
	WalletAddress  string `json:"wallet_address"`
	AmountTokens   int64  `json:"amount_tokens"`
	TransferDigest string `json:"transfer_digest"`
	CreatedAt      string `json:"created_at"`
}

type ReceiptListResponse struct {
	Receipts []ReceiptDTO `json:"receipts"`
}

type WalletTotalDTO struct {
	WalletAddress    string `json:"wallet_address"`
	TotalTokens      int64  `json:"total_tokens"`
	SessionsRewarded int64  `json:"sessions_rewarded"`
	UpdatedAt        string `json:"updated_at"`
}
