package entities

import "time"

// TransferConfirmation is the opaque proof returned by the ledger on a
// successful submission. The digest is recorded for reconciliation only.
type TransferConfirmation struct {
	Digest string
}

// RewardReceipt is the durable record of one disbursement, written between
// ledger submission and the rewarded mark. One receipt per session.
type RewardReceipt struct {
	ID             string
	SessionID      string
	WalletAddress  string
	AmountTokens   int64
	TransferDigest string
	CreatedAt      time.Time
}

// WalletTotal is the per-wallet projection maintained from reward events.
type WalletTotal struct {
	WalletAddress    string
	TotalTokens      int64
	SessionsRewarded int64
	UpdatedAt        time.Time
}
