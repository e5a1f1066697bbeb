package httpadapter

import (
	"context"
	"log/slog"
	"time"

	"captminter/contexts/rewarding/disbursement-service/application/queries"
	"captminter/contexts/rewarding/disbursement-service/domain/entities"
	transporthttp "captminter/contexts/rewarding/disbursement-service/transport/http"
)

// Handler exposes the read-only reconciliation surface. The disbursement
// path itself has no HTTP commands; payouts are driven by the worker only.
type Handler struct {
	Queries queries.UseCase
	Logger  *slog.Logger
}

func (h Handler) GetSessionHandler(ctx context.Context, sessionID string) (transporthttp.SessionDTO, error) {
	session, err := h.Queries.GetSession(ctx, sessionID)
	if err != nil {
		return transporthttp.SessionDTO{}, err
	}
	return sessionToDTO(session), nil
}

func (h Handler) ListReceiptsHandler(ctx context.Context, limit int) (transporthttp.ReceiptListResponse, error) {
	receipts, err := h.Queries.RecentReceipts(ctx, limit)
	if err != nil {
		return transporthttp.ReceiptListResponse{}, err
	}
	response := transporthttp.ReceiptListResponse{
		Receipts: make([]transporthttp.ReceiptDTO, 0, len(receipts)),
	}
	for _, receipt := range receipts {
		response.Receipts = append(response.Receipts, transporthttp.ReceiptDTO{
			ID:             receipt.ID,
			SessionID:      receipt.SessionID,
			WalletAddress:  receipt.WalletAddress,
			AmountTokens:   receipt.AmountTokens,
			TransferDigest: receipt.TransferDigest,
			CreatedAt:      receipt.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return response, nil
}

func (h Handler) GetWalletTotalHandler(ctx context.Context, walletAddress string) (transporthttp.WalletTotalDTO, error) {
	total, err := h.Queries.WalletTotal(ctx, walletAddress)
	if err != nil {
		return transporthttp.WalletTotalDTO{}, err
	}
	return transporthttp.WalletTotalDTO{
		WalletAddress:    total.WalletAddress,
		TotalTokens:      total.TotalTokens,
		SessionsRewarded: total.SessionsRewarded,
		UpdatedAt:        total.UpdatedAt.UTC().Format(time.RFC3339),
	}, nil
}

func sessionToDTO(session entities.DetectionSession) transporthttp.SessionDTO {
	dto := transporthttp.SessionDTO{
		SessionID:       session.SessionID,
		WalletAddress:   session.Wallet(),
		DurationSeconds: session.DurationSeconds,
		Rewarded:        session.Rewarded,
		RewardAttempts:  session.RewardAttempts,
		LastRewardError: session.LastRewardError,
	}
	if session.EndTime != nil {
		dto.EndTime = session.EndTime.UTC().Format(time.RFC3339)
	}
	if session.RewardedAt != nil {
		dto.RewardedAt = session.RewardedAt.UTC().Format(time.RFC3339)
	}
	if session.NextAttemptAt != nil {
		dto.NextAttemptAt = session.NextAttemptAt.UTC().Format(time.RFC3339)
	}
	if session.ClaimExpiresAt != nil {
		dto.ClaimExpiresAt = session.ClaimExpiresAt.UTC().Format(time.RFC3339)
	}
	return dto
}
