package payouts

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/refermate/partner-portal-backend/pkg/db/models"
	"github.com/refermate/partner-portal-backend/pkg/enums"
)

// PartnerPayoutStats aggregates a partner's payout records by status.
type PartnerPayoutStats struct {
	TotalPaidCents       int64 `json:"total_paid_cents"`
	TotalPendingCents    int64 `json:"total_pending_cents"`
	TotalProcessingCents int64 `json:"total_processing_cents"`
	PayoutCount          int64 `json:"payout_count"`
}

// Repository handles payout persistence. Concurrent writers to the same
// record are serialized here: TransitionStatus only applies when the observed
// status still matches, so a stale second writer loses.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, payout *models.Payout) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Payout, error)
	ListByPartner(ctx context.Context, partnerID uuid.UUID) ([]models.Payout, error)
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to enums.PayoutStatus, processedAt *time.Time) (bool, error)
	StatsByPartner(ctx context.Context, partnerID uuid.UUID) (*PartnerPayoutStats, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a payout repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, payout *models.Payout) error {
	return r.db.WithContext(ctx).Create(payout).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Payout, error) {
	var payout models.Payout
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&payout).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payout, nil
}

func (r *repository) ListByPartner(ctx context.Context, partnerID uuid.UUID) ([]models.Payout, error) {
	var rows []models.Payout
	err := r.db.WithContext(ctx).
		Where("partner_id = ?", partnerID).
		Order("requested_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// TransitionStatus applies a guarded status write. The update only lands when
// the record still holds the status the caller observed; false means another
// writer got there first or the payout is gone.
func (r *repository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to enums.PayoutStatus, processedAt *time.Time) (bool, error) {
	updates := map[string]any{"status": to}
	if processedAt != nil {
		updates["processed_at"] = *processedAt
	}
	result := r.db.WithContext(ctx).
		Model(&models.Payout{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repository) StatsByPartner(ctx context.Context, partnerID uuid.UUID) (*PartnerPayoutStats, error) {
	var stats PartnerPayoutStats
	err := r.db.WithContext(ctx).
		Model(&models.Payout{}).
		Select(`COALESCE(SUM(CASE WHEN status = ? THEN amount_cents ELSE 0 END), 0) AS total_paid_cents,
			COALESCE(SUM(CASE WHEN status = ? THEN amount_cents ELSE 0 END), 0) AS total_pending_cents,
			COALESCE(SUM(CASE WHEN status = ? THEN amount_cents ELSE 0 END), 0) AS total_processing_cents,
			COUNT(*) AS payout_count`,
			enums.PayoutStatusCompleted, enums.PayoutStatusPending, enums.PayoutStatusProcessing).
		Where("partner_id = ?", partnerID).
		Scan(&stats).Error
	if err != nil {
		return nil, err
	}
	return &stats, nil
}
