package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/refermate/partner-portal-backend/pkg/enums"
)

// Payout is a single instructed transfer of a partner's earned balance out of
// the platform. AmountCents = FeeCents + NetCents always holds from creation;
// records are never deleted, only transitioned.
type Payout struct {
	ID            uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PartnerID     uuid.UUID          `gorm:"column:partner_id;type:uuid;not null;index"`
	AmountCents   int64              `gorm:"column:amount_cents;not null"`
	FeeCents      int64              `gorm:"column:fee_cents;not null"`
	NetCents      int64              `gorm:"column:net_cents;not null"`
	Status        enums.PayoutStatus `gorm:"column:status;type:payout_status;not null;default:'pending'"`
	Method        *string            `gorm:"column:method"`
	TransactionID *string            `gorm:"column:transaction_id"`
	RequestedAt   time.Time          `gorm:"column:requested_at;not null"`
	ProcessedAt   *time.Time         `gorm:"column:processed_at"`
	CreatedAt     time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
