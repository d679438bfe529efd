package models

import (
	"time"

	"github.com/google/uuid"
)

// ProviderAccount is the partner's external payout destination, created lazily
// on the first onboarding attempt. One account per partner.
type ProviderAccount struct {
	ID                 uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PartnerID          uuid.UUID `gorm:"column:partner_id;type:uuid;not null;uniqueIndex"`
	AccountID          string    `gorm:"column:account_id;not null;uniqueIndex"`
	OnboardingComplete bool      `gorm:"column:onboarding_complete;not null;default:false"`
	PayoutsEnabled     bool      `gorm:"column:payouts_enabled;not null;default:false"`
	ChargesEnabled     bool      `gorm:"column:charges_enabled;not null;default:false"`
	Country            string    `gorm:"column:country;not null;default:'US'"`
	Currency           string    `gorm:"column:currency;not null;default:'usd'"`
	CreatedAt          time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
