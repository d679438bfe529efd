package models

import (
	"time"

	"github.com/google/uuid"
)

// Partner is the referral-program participant that earns payouts. The wider
// partner profile (campaigns, referrals, balances) lives in the portal's data
// store; the payout engine only reads identity fields.
type Partner struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Email       string    `gorm:"column:email;not null;uniqueIndex"`
	CompanyName string    `gorm:"column:company_name;not null"`
	ContactName *string   `gorm:"column:contact_name"`
	Country     string    `gorm:"column:country;not null;default:'US'"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
