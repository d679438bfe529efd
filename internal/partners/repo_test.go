package partners

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/refermate/partner-portal-backend/pkg/db/models"
)

func setupPartnersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	partnersTable := `
CREATE TABLE IF NOT EXISTS partners (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  company_name TEXT NOT NULL,
  contact_name TEXT,
  country TEXT NOT NULL DEFAULT 'US',
  created_at DATETIME,
  updated_at DATETIME
);`
	providerAccountsTable := `
CREATE TABLE IF NOT EXISTS provider_accounts (
  id TEXT PRIMARY KEY,
  partner_id TEXT NOT NULL UNIQUE,
  account_id TEXT NOT NULL UNIQUE,
  onboarding_complete INTEGER NOT NULL DEFAULT 0,
  payouts_enabled INTEGER NOT NULL DEFAULT 0,
  charges_enabled INTEGER NOT NULL DEFAULT 0,
  country TEXT NOT NULL DEFAULT 'US',
  currency TEXT NOT NULL DEFAULT 'usd',
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(partnersTable).Error)
	require.NoError(t, db.Exec(providerAccountsTable).Error)

	return db
}

func TestRepositoryPartnerRoundTrip(t *testing.T) {
	repo := NewRepository(setupPartnersTestDB(t))

	partner := &models.Partner{
		ID:          uuid.New(),
		Email:       uuid.NewString() + "@example.com",
		CompanyName: "Acme Referrals",
		Country:     "US",
	}
	require.NoError(t, repo.CreatePartner(context.Background(), partner))

	byID, err := repo.FindPartnerByID(context.Background(), partner.ID)
	require.NoError(t, err)
	require.NotNil(t, byID)
	require.Equal(t, partner.Email, byID.Email)

	byEmail, err := repo.FindPartnerByEmail(context.Background(), partner.Email)
	require.NoError(t, err)
	require.NotNil(t, byEmail)
	require.Equal(t, partner.ID, byEmail.ID)

	missing, err := repo.FindPartnerByID(context.Background(), uuid.New())
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestRepositoryProviderAccountRoundTrip(t *testing.T) {
	repo := NewRepository(setupPartnersTestDB(t))
	partnerID := uuid.New()

	account := &models.ProviderAccount{
		ID:        uuid.New(),
		PartnerID: partnerID,
		AccountID: "acct_" + uuid.NewString(),
		Country:   "US",
		Currency:  "usd",
	}
	require.NoError(t, repo.CreateProviderAccount(context.Background(), account))

	found, err := repo.FindProviderAccountByPartnerID(context.Background(), partnerID)
	require.NoError(t, err)
	require.NotNil(t, found)
	require.False(t, found.OnboardingComplete)

	found.OnboardingComplete = true
	found.PayoutsEnabled = true
	require.NoError(t, repo.UpdateProviderAccount(context.Background(), found))

	updated, err := repo.FindProviderAccountByPartnerID(context.Background(), partnerID)
	require.NoError(t, err)
	require.True(t, updated.OnboardingComplete)
	require.True(t, updated.PayoutsEnabled)

	none, err := repo.FindProviderAccountByPartnerID(context.Background(), uuid.New())
	require.NoError(t, err)
	require.Nil(t, none)
}
