package postgresadapter

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"captminter/contexts/rewarding/disbursement-service/domain/entities"
	domainerrors "captminter/contexts/rewarding/disbursement-service/domain/errors"
	"captminter/contexts/rewarding/disbursement-service/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

func (r *Repository) ListEligible(ctx context.Context, now time.Time, maxAttempts int, limit int) ([]entities.DetectionSession, error) {
	if limit <= 0 {
		limit = 10
	}
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	var rows []detectionSessionModel
	if err := r.db.WithContext(ctx).
		Where("end_time IS NOT NULL").
		Where("(rewarded IS NULL OR rewarded = ?)", false).
		Where("(claim_expires_at IS NULL OR claim_expires_at <= ?)", now.UTC()).
		Where("(next_attempt_at IS NULL OR next_attempt_at <= ?)", now.UTC()).
		Where("reward_attempts < ?", maxAttempts).
		Order("end_time ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, r.logError("rewarding_repo_list_eligible_failed", err,
			"limit", limit,
		)
	}

	sessions := make([]entities.DetectionSession, 0, len(rows))
	for _, row := range rows {
		if row.DurationSeconds < 0 {
			// Malformed row from the tracker; reject at the boundary rather
			// than hand a negative duration to the reward policy.
			r.logWarn("rewarding_repo_malformed_session_row",
				"session_id", row.SessionID,
				"duration_seconds", row.DurationSeconds,
				"error", domainerrors.ErrInvalidSessionRecord.Error(),
			)
			continue
		}
		sessions = append(sessions, row.toEntity())
	}
	return sessions, nil
}

func (r *Repository) ClaimSession(ctx context.Context, sessionID string, now time.Time, leaseUntil time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&detectionSessionModel{}).
		Where("session_id = ?", strings.TrimSpace(sessionID)).
		Where("end_time IS NOT NULL").
		Where("(rewarded IS NULL OR rewarded = ?)", false).
		Where("(claim_expires_at IS NULL OR claim_expires_at <= ?)", now.UTC()).
		Updates(map[string]any{
			"claimed_at":       now.UTC(),
			"claim_expires_at": leaseUntil.UTC(),
		})
	if result.Error != nil {
		return r.logError("rewarding_repo_claim_failed", result.Error,
			"session_id", strings.TrimSpace(sessionID),
		)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrSessionNotClaimable
	}
	return nil
}

func (r *Repository) MarkRewarded(ctx context.Context, sessionID string, now time.Time) error {
	id := strings.TrimSpace(sessionID)
	result := r.db.WithContext(ctx).
		Model(&detectionSessionModel{}).
		Where("session_id = ?", id).
		Where("(rewarded IS NULL OR rewarded = ?)", false).
		Updates(map[string]any{
			"rewarded":          true,
			"rewarded_at":       now.UTC(),
			"claimed_at":        nil,
			"claim_expires_at":  nil,
			"next_attempt_at":   nil,
			"last_reward_error": "",
		})
	if result.Error != nil {
		return r.logError("rewarding_repo_mark_rewarded_failed", result.Error,
			"session_id", id,
		)
	}
	if result.RowsAffected > 0 {
		return nil
	}

	// Zero rows means either the session is gone or it is already rewarded;
	// the latter is a no-op by contract.
	var row detectionSessionModel
	err := r.db.WithContext(ctx).
		Select("session_id", "rewarded").
		Where("session_id = ?", id).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domainerrors.ErrSessionNotFound
		}
		return r.logError("rewarding_repo_mark_rewarded_lookup_failed", err,
			"session_id", id,
		)
	}
	return nil
}

func (r *Repository) ReleaseSession(ctx context.Context, sessionID string, attempts int, nextAttemptAt time.Time, lastError string) error {
	id := strings.TrimSpace(sessionID)
	result := r.db.WithContext(ctx).
		Model(&detectionSessionModel{}).
		Where("session_id = ?", id).
		Updates(map[string]any{
			"claimed_at":        nil,
			"claim_expires_at":  nil,
			"reward_attempts":   attempts,
			"next_attempt_at":   nextAttemptAt.UTC(),
			"last_reward_error": lastError,
		})
	if result.Error != nil {
		return r.logError("rewarding_repo_release_failed", result.Error,
			"session_id", id,
		)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrSessionNotFound
	}
	return nil
}

func (r *Repository) ExpireStaleClaims(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&detectionSessionModel{}).
		Where("claimed_at IS NOT NULL").
		Where("claim_expires_at IS NOT NULL").
		Where("claim_expires_at <= ?", now.UTC()).
		Where("(rewarded IS NULL OR rewarded = ?)", false).
		Updates(map[string]any{
			"claimed_at":       nil,
			"claim_expires_at": nil,
		})
	if result.Error != nil {
		return 0, r.logError("rewarding_repo_expire_claims_failed", result.Error)
	}
	return result.RowsAffected, nil
}

func (r *Repository) GetSession(ctx context.Context, sessionID string) (entities.DetectionSession, error) {
	var row detectionSessionModel
	err := r.db.WithContext(ctx).
		Where("session_id = ?", strings.TrimSpace(sessionID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.DetectionSession{}, domainerrors.ErrSessionNotFound
		}
		return entities.DetectionSession{}, r.logError("rewarding_repo_get_session_failed", err,
			"session_id", strings.TrimSpace(sessionID),
		)
	}
	return row.toEntity(), nil
}

func (r *Repository) CreateReceipt(ctx context.Context, receipt entities.RewardReceipt) error {
	row := rewardReceiptModel{
		ID:             strings.TrimSpace(receipt.ID),
		SessionID:      strings.TrimSpace(receipt.SessionID),
		WalletAddress:  strings.TrimSpace(receipt.WalletAddress),
		AmountTokens:   receipt.AmountTokens,
		TransferDigest: strings.TrimSpace(receipt.TransferDigest),
		CreatedAt:      receipt.CreatedAt.UTC(),
	}
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}},
		DoNothing: true,
	}).Create(&row).Error
	if err != nil {
		if isUniqueViolation(err) {
			return nil
		}
		return r.logError("rewarding_repo_create_receipt_failed", err,
			"session_id", row.SessionID,
			"transfer_digest", row.TransferDigest,
		)
	}
	return nil
}

func (r *Repository) GetReceiptBySession(ctx context.Context, sessionID string) (entities.RewardReceipt, error) {
	var row rewardReceiptModel
	err := r.db.WithContext(ctx).
		Where("session_id = ?", strings.TrimSpace(sessionID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.RewardReceipt{}, domainerrors.ErrReceiptNotFound
		}
		return entities.RewardReceipt{}, r.logError("rewarding_repo_get_receipt_failed", err,
			"session_id", strings.TrimSpace(sessionID),
		)
	}
	return row.toEntity(), nil
}

func (r *Repository) ListRecentReceipts(ctx context.Context, limit int) ([]entities.RewardReceipt, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []rewardReceiptModel
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, r.logError("rewarding_repo_list_receipts_failed", err,
			"limit", limit,
		)
	}
	receipts := make([]entities.RewardReceipt, 0, len(rows))
	for _, row := range rows {
		receipts = append(receipts, row.toEntity())
	}
	return receipts, nil
}

func (r *Repository) ApplyReward(ctx context.Context, walletAddress string, amountTokens int64, rewardedAt time.Time) error {
	row := walletTotalModel{
		WalletAddress:    strings.TrimSpace(walletAddress),
		TotalTokens:      amountTokens,
		SessionsRewarded: 1,
		UpdatedAt:        rewardedAt.UTC(),
	}
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "wallet_address"}},
		DoUpdates: clause.Assignments(map[string]any{
			"total_tokens":      gorm.Expr("wallet_reward_totals.total_tokens + ?", amountTokens),
			"sessions_rewarded": gorm.Expr("wallet_reward_totals.sessions_rewarded + 1"),
			"updated_at":        row.UpdatedAt,
		}),
	}).Create(&row).Error; err != nil {
		return r.logError("rewarding_repo_apply_reward_failed", err,
			"wallet_address", row.WalletAddress,
			"amount_tokens", amountTokens,
		)
	}
	return nil
}

func (r *Repository) GetWalletTotal(ctx context.Context, walletAddress string) (entities.WalletTotal, error) {
	var row walletTotalModel
	err := r.db.WithContext(ctx).
		Where("wallet_address = ?", strings.TrimSpace(walletAddress)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.WalletTotal{}, domainerrors.ErrWalletTotalNotFound
		}
		return entities.WalletTotal{}, r.logError("rewarding_repo_get_wallet_total_failed", err,
			"wallet_address", strings.TrimSpace(walletAddress),
		)
	}
	return entities.WalletTotal{
		WalletAddress:    row.WalletAddress,
		TotalTokens:      row.TotalTokens,
		SessionsRewarded: row.SessionsRewarded,
		UpdatedAt:        row.UpdatedAt.UTC(),
	}, nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+7)
	fields = append(fields,
		"event", event,
		"module", "rewarding/disbursement-service",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("rewarding repository operation failed", fields...)
	return err
}

func (r *Repository) logWarn(event string, attrs ...any) {
	fields := make([]any, 0, len(attrs)+5)
	fields = append(fields,
		"event", event,
		"module", "rewarding/disbursement-service",
		"layer", "adapter",
	)
	fields = append(fields, attrs...)
	r.logger.Warn("rewarding repository warning", fields...)
}

type detectionSessionModel struct {
	SessionID       string     `gorm:"column:session_id;primaryKey"`
	WalletAddress   *string    `gorm:"column:wallet_address"`
	DurationSeconds int64      `gorm:"column:duration_seconds"`
	StartTime       *time.Time `gorm:"column:start_time"`
	EndTime         *time.Time `gorm:"column:end_time"`
	Rewarded        *bool      `gorm:"column:rewarded"`
	RewardedAt      *time.Time `gorm:"column:rewarded_at"`
	ClaimedAt       *time.Time `gorm:"column:claimed_at"`
	ClaimExpiresAt  *time.Time `gorm:"column:claim_expires_at"`
	RewardAttempts  int        `gorm:"column:reward_attempts"`
	NextAttemptAt   *time.Time `gorm:"column:next_attempt_at"`
	LastRewardError string     `gorm:"column:last_reward_error"`
}

func (detectionSessionModel) TableName() string {
	return "detection_sessions"
}

func (m detectionSessionModel) toEntity() entities.DetectionSession {
	return entities.DetectionSession{
		SessionID:       m.SessionID,
		WalletAddress:   m.WalletAddress,
		DurationSeconds: m.DurationSeconds,
		StartTime:       normalizeOptionalTime(m.StartTime),
		EndTime:         normalizeOptionalTime(m.EndTime),
		Rewarded:        m.Rewarded,
		RewardedAt:      normalizeOptionalTime(m.RewardedAt),
		ClaimedAt:       normalizeOptionalTime(m.ClaimedAt),
		ClaimExpiresAt:  normalizeOptionalTime(m.ClaimExpiresAt),
		RewardAttempts:  m.RewardAttempts,
		NextAttemptAt:   normalizeOptionalTime(m.NextAttemptAt),
		LastRewardError: m.LastRewardError,
	}
}

type rewardReceiptModel struct {
	ID             string    `gorm:"column:id;primaryKey"`
	SessionID      string    `gorm:"column:session_id"`
	WalletAddress  string    `gorm:"column:wallet_address"`
	AmountTokens   int64     `gorm:"column:amount_tokens"`
	TransferDigest string    `gorm:"column:transfer_digest"`
	CreatedAt      time.Time `gorm:"column:created_at"`
}

func (rewardReceiptModel) TableName() string {
	return "reward_receipts"
}

func (m rewardReceiptModel) toEntity() entities.RewardReceipt {
	return entities.RewardReceipt{
		ID:             m.ID,
		SessionID:      m.SessionID,
		WalletAddress:  m.WalletAddress,
		AmountTokens:   m.AmountTokens,
		TransferDigest: m.TransferDigest,
		CreatedAt:      m.CreatedAt.UTC(),
	}
}

type walletTotalModel struct {
	WalletAddress    string    `gorm:"column:wallet_address;primaryKey"`
	TotalTokens      int64     `gorm:"column:total_tokens"`
	SessionsRewarded int64     `gorm:"column:sessions_rewarded"`
	UpdatedAt        time.Time `gorm:"column:updated_at"`
}

func (walletTotalModel) TableName() string {
	return "wallet_reward_totals"
}

func normalizeOptionalTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	t := value.UTC()
	return &t
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ ports.SessionRepository = (*Repository)(nil)
var _ ports.ReceiptRepository = (*Repository)(nil)
var _ ports.WalletTotalsRepository = (*Repository)(nil)
