package errors

import "errors"

var (
	ErrSessionNotFound      = errors.New("detection session not found")
	ErrSessionNotClaimable  = errors.New("detection session is not claimable")
	ErrInvalidSessionRecord = errors.New("detection session record is malformed")
	ErrReceiptNotFound      = errors.New("reward receipt not found")
	ErrWalletTotalNotFound  = errors.New("wallet reward total not found")

	ErrSigningFailed      = errors.New("transaction signing failed")
	ErrInvalidDestination = errors.New("invalid destination address")
	ErrSubmissionFailed   = errors.New("ledger submission failed")
	ErrAmountOutOfRange   = errors.New("reward amount out of range")
)
