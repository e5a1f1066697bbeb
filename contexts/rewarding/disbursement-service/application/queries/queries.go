package queries

import (
	"context"

	"captminter/contexts/rewarding/disbursement-service/domain/entities"
	"captminter/contexts/rewarding/disbursement-service/ports"
)

const defaultReceiptLimit = 50

type UseCase struct {
	Sessions ports.SessionRepository
	Receipts ports.ReceiptRepository
	Totals   ports.WalletTotalsRepository
}

func (uc UseCase) GetSession(ctx context.Context, sessionID string) (entities.DetectionSession, error) {
	return uc.Sessions.GetSession(ctx, sessionID)
}

func (uc UseCase) RecentReceipts(ctx context.Context, limit int) ([]entities.RewardReceipt, error) {
	if limit <= 0 || limit > 500 {
		limit = defaultReceiptLimit
	}
	return uc.Receipts.ListRecentReceipts(ctx, limit)
}

func (uc UseCase) WalletTotal(ctx context.Context, walletAddress string) (entities.WalletTotal, error) {
	return uc.Totals.GetWalletTotal(ctx, walletAddress)
}
