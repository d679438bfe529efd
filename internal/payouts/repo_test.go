package payouts

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/refermate/partner-portal-backend/pkg/db/models"
	"github.com/refermate/partner-portal-backend/pkg/enums"
)

func setupPayoutsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	payoutsTable := `
CREATE TABLE IF NOT EXISTS payouts (
  id TEXT PRIMARY KEY,
  partner_id TEXT NOT NULL,
  amount_cents INTEGER NOT NULL,
  fee_cents INTEGER NOT NULL,
  net_cents INTEGER NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  method TEXT,
  transaction_id TEXT,
  requested_at DATETIME NOT NULL,
  processed_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(payoutsTable).Error)

	return db
}

func insertPayout(t *testing.T, repo Repository, partnerID uuid.UUID, amount int64, status enums.PayoutStatus, requestedAt time.Time) *models.Payout {
	t.Helper()

	payout := &models.Payout{
		ID:          uuid.New(),
		PartnerID:   partnerID,
		AmountCents: amount,
		FeeCents:    amount / 100,
		NetCents:    amount - amount/100,
		Status:      status,
		RequestedAt: requestedAt,
	}
	require.NoError(t, repo.Create(context.Background(), payout))
	return payout
}

func TestRepositoryCreateAndFind(t *testing.T) {
	repo := NewRepository(setupPayoutsTestDB(t))
	partnerID := uuid.New()

	created := insertPayout(t, repo, partnerID, 10000, enums.PayoutStatusProcessing, time.Now().UTC())

	found, err := repo.FindByID(context.Background(), created.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	require.Equal(t, created.ID, found.ID)
	require.Equal(t, enums.PayoutStatusProcessing, found.Status)
	require.Equal(t, int64(10000), found.AmountCents)

	missing, err := repo.FindByID(context.Background(), uuid.New())
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestRepositoryTransitionStatusGuard(t *testing.T) {
	repo := NewRepository(setupPayoutsTestDB(t))
	partnerID := uuid.New()

	payout := insertPayout(t, repo, partnerID, 10000, enums.PayoutStatusProcessing, time.Now().UTC())

	now := time.Now().UTC()
	applied, err := repo.TransitionStatus(context.Background(), payout.ID, enums.PayoutStatusProcessing, enums.PayoutStatusCompleted, &now)
	require.NoError(t, err)
	require.True(t, applied)

	// A second writer that observed the old status loses.
	applied, err = repo.TransitionStatus(context.Background(), payout.ID, enums.PayoutStatusProcessing, enums.PayoutStatusCompleted, &now)
	require.NoError(t, err)
	require.False(t, applied)

	found, err := repo.FindByID(context.Background(), payout.ID)
	require.NoError(t, err)
	require.Equal(t, enums.PayoutStatusCompleted, found.Status)
	require.NotNil(t, found.ProcessedAt)
}

func TestRepositoryListByPartner(t *testing.T) {
	repo := NewRepository(setupPayoutsTestDB(t))
	partnerID := uuid.New()
	otherID := uuid.New()

	older := insertPayout(t, repo, partnerID, 1000, enums.PayoutStatusCompleted, time.Now().UTC().Add(-time.Hour))
	newer := insertPayout(t, repo, partnerID, 2000, enums.PayoutStatusProcessing, time.Now().UTC())
	insertPayout(t, repo, otherID, 3000, enums.PayoutStatusPending, time.Now().UTC())

	rows, err := repo.ListByPartner(context.Background(), partnerID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, newer.ID, rows[0].ID)
	require.Equal(t, older.ID, rows[1].ID)
}

func TestRepositoryStatsByPartner(t *testing.T) {
	repo := NewRepository(setupPayoutsTestDB(t))
	partnerID := uuid.New()

	insertPayout(t, repo, partnerID, 10000, enums.PayoutStatusCompleted, time.Now().UTC())
	insertPayout(t, repo, partnerID, 5000, enums.PayoutStatusCompleted, time.Now().UTC())
	insertPayout(t, repo, partnerID, 2000, enums.PayoutStatusProcessing, time.Now().UTC())
	insertPayout(t, repo, partnerID, 1500, enums.PayoutStatusPending, time.Now().UTC())
	insertPayout(t, repo, partnerID, 4000, enums.PayoutStatusFailed, time.Now().UTC())
	insertPayout(t, repo, uuid.New(), 9999, enums.PayoutStatusCompleted, time.Now().UTC())

	stats, err := repo.StatsByPartner(context.Background(), partnerID)
	require.NoError(t, err)
	require.Equal(t, int64(15000), stats.TotalPaidCents)
	require.Equal(t, int64(1500), stats.TotalPendingCents)
	require.Equal(t, int64(2000), stats.TotalProcessingCents)
	require.Equal(t, int64(5), stats.PayoutCount)
}

func TestRepositoryStatsByPartnerEmpty(t *testing.T) {
	repo := NewRepository(setupPayoutsTestDB(t))

	stats, err := repo.StatsByPartner(context.Background(), uuid.New())
	require.NoError(t, err)
	require.Equal(t, int64(0), stats.TotalPaidCents)
	require.Equal(t, int64(0), stats.PayoutCount)
}
