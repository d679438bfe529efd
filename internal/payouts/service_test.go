package payouts

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/refermate/partner-portal-backend/pkg/config"
	"github.com/refermate/partner-portal-backend/pkg/db/models"
	"github.com/refermate/partner-portal-backend/pkg/enums"
	pkgerrors "github.com/refermate/partner-portal-backend/pkg/errors"
	"github.com/refermate/partner-portal-backend/pkg/outbox"
	"github.com/refermate/partner-portal-backend/pkg/provider"
)

type stubPayoutRepo struct {
	payouts          map[uuid.UUID]*models.Payout
	created          *models.Payout
	transitioned     bool
	transitionResult bool
	stats            *PartnerPayoutStats
}

func newStubPayoutRepo() *stubPayoutRepo {
	return &stubPayoutRepo{
		payouts:          make(map[uuid.UUID]*models.Payout),
		transitionResult: true,
	}
}

func (s *stubPayoutRepo) WithTx(tx *gorm.DB) Repository {
	return s
}

func (s *stubPayoutRepo) Create(ctx context.Context, payout *models.Payout) error {
	if payout.ID == uuid.Nil {
		payout.ID = uuid.New()
	}
	s.created = payout
	s.payouts[payout.ID] = payout
	return nil
}

func (s *stubPayoutRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Payout, error) {
	return s.payouts[id], nil
}

func (s *stubPayoutRepo) ListByPartner(ctx context.Context, partnerID uuid.UUID) ([]models.Payout, error) {
	var rows []models.Payout
	for _, payout := range s.payouts {
		if payout.PartnerID == partnerID {
			rows = append(rows, *payout)
		}
	}
	return rows, nil
}

func (s *stubPayoutRepo) TransitionStatus(ctx context.Context, id uuid.UUID, from, to enums.PayoutStatus, processedAt *time.Time) (bool, error) {
	s.transitioned = true
	if !s.transitionResult {
		return false, nil
	}
	if payout, ok := s.payouts[id]; ok && payout.Status == from {
		payout.Status = to
		if processedAt != nil {
			payout.ProcessedAt = processedAt
		}
		return true, nil
	}
	return false, nil
}

func (s *stubPayoutRepo) StatsByPartner(ctx context.Context, partnerID uuid.UUID) (*PartnerPayoutStats, error) {
	if s.stats != nil {
		return s.stats, nil
	}
	return &PartnerPayoutStats{}, nil
}

type stubAccounts struct {
	account *models.ProviderAccount
	err     error
}

func (s *stubAccounts) EnsureAccount(ctx context.Context, partnerID uuid.UUID) (*models.ProviderAccount, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.account, nil
}

type stubGateway struct {
	provider.Gateway
	transferErr error
	payoutErr   error
	transfers   []int64
	payouts     []int64
}

func (s *stubGateway) CreateTransfer(ctx context.Context, accountID string, amountCents int64) (*provider.Transfer, error) {
	if s.transferErr != nil {
		return nil, s.transferErr
	}
	s.transfers = append(s.transfers, amountCents)
	return &provider.Transfer{ID: "tr_test_1", AmountCents: amountCents, Currency: "usd"}, nil
}

func (s *stubGateway) CreatePayout(ctx context.Context, accountID string, amountCents int64) (*provider.Payout, error) {
	if s.payoutErr != nil {
		return nil, s.payoutErr
	}
	s.payouts = append(s.payouts, amountCents)
	return &provider.Payout{ID: "po_test_1", AmountCents: amountCents, ArrivalDate: time.Now().Add(24 * time.Hour)}, nil
}

type stubOutboxPublisher struct {
	events []outbox.DomainEvent
	err    error
}

func (s *stubOutboxPublisher) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, event)
	return nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type payoutFixture struct {
	svc      Service
	repo     *stubPayoutRepo
	finder   *stubPartnerFinder
	gateway  *stubGateway
	outbox   *stubOutboxPublisher
	partner  *models.Partner
	accounts *stubAccounts
}

func newPayoutFixture(t *testing.T) *payoutFixture {
	t.Helper()

	partner := &models.Partner{ID: uuid.New(), Email: "partner@example.com", Country: "US"}
	repo := newStubPayoutRepo()
	finder := &stubPartnerFinder{partners: map[uuid.UUID]*models.Partner{partner.ID: partner}}
	gateway := &stubGateway{}
	publisher := &stubOutboxPublisher{}
	accounts := &stubAccounts{account: &models.ProviderAccount{
		PartnerID: partner.ID,
		AccountID: "acct_test_1",
	}}

	svc, err := NewService(ServiceParams{
		Config:   config.PayoutConfig{PlatformFeeBps: 100, ProviderFeeCents: 25, MinimumCents: 1000},
		Repo:     repo,
		Partners: finder,
		Accounts: accounts,
		Provider: gateway,
		Tx:       stubTxRunner{},
		Outbox:   publisher,
	})
	require.NoError(t, err)

	return &payoutFixture{
		svc:      svc,
		repo:     repo,
		finder:   finder,
		gateway:  gateway,
		outbox:   publisher,
		partner:  partner,
		accounts: accounts,
	}
}

func TestRequestPayoutSucceeds(t *testing.T) {
	f := newPayoutFixture(t)

	payout, err := f.svc.RequestPayout(context.Background(), RequestPayoutInput{
		PartnerID:   f.partner.ID,
		AmountCents: 10000,
	})
	require.NoError(t, err)
	require.Equal(t, enums.PayoutStatusProcessing, payout.Status)
	require.Equal(t, int64(10000), payout.AmountCents)
	require.Equal(t, int64(125), payout.FeeCents)
	require.Equal(t, int64(9875), payout.NetCents)
	require.Equal(t, payout.AmountCents, payout.FeeCents+payout.NetCents)
	require.NotNil(t, payout.TransactionID)
	require.Equal(t, "tr_test_1", *payout.TransactionID)
	require.False(t, payout.RequestedAt.IsZero())
	require.Nil(t, payout.ProcessedAt)

	// The transfer moves the net amount, not the gross.
	require.Equal(t, []int64{9875}, f.gateway.transfers)

	require.Len(t, f.outbox.events, 1)
	require.Equal(t, enums.EventPayoutRequested, f.outbox.events[0].EventType)
}

func TestRequestPayoutBelowMinimum(t *testing.T) {
	f := newPayoutFixture(t)

	_, err := f.svc.RequestPayout(context.Background(), RequestPayoutInput{
		PartnerID:   f.partner.ID,
		AmountCents: 500,
	})
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeBelowMinimum, pkgerrors.As(err).Code())
	require.Nil(t, f.repo.created)
	require.Empty(t, f.gateway.transfers)
}

func TestRequestPayoutPartnerNotFound(t *testing.T) {
	f := newPayoutFixture(t)

	_, err := f.svc.RequestPayout(context.Background(), RequestPayoutInput{
		PartnerID:   uuid.New(),
		AmountCents: 10000,
	})
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodePartnerNotFound, pkgerrors.As(err).Code())
	require.Nil(t, f.repo.created)
}

func TestRequestPayoutProviderFailure(t *testing.T) {
	f := newPayoutFixture(t)
	f.gateway.transferErr = pkgerrors.Wrap(pkgerrors.CodeProvider, errors.New("upstream rejected"), "stripe create transfer failed")

	_, err := f.svc.RequestPayout(context.Background(), RequestPayoutInput{
		PartnerID:   f.partner.ID,
		AmountCents: 10000,
	})
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeProvider, pkgerrors.As(err).Code())
	require.Nil(t, f.repo.created, "no partial state persists on provider failure")
}

func TestPerformActionProcess(t *testing.T) {
	f := newPayoutFixture(t)
	existing := &models.Payout{
		ID:        uuid.New(),
		PartnerID: f.partner.ID,
		NetCents:  9875,
		Status:    enums.PayoutStatusProcessing,
	}
	f.repo.payouts[existing.ID] = existing

	payout, err := f.svc.PerformAction(context.Background(), PayoutActionInput{
		PayoutID: existing.ID,
		Action:   enums.PayoutActionProcess,
	})
	require.NoError(t, err)
	require.Equal(t, enums.PayoutStatusCompleted, payout.Status)
	require.NotNil(t, payout.ProcessedAt)
	require.NotNil(t, payout.TransactionID)
	require.Equal(t, "po_test_1", *payout.TransactionID)
	require.Equal(t, []int64{9875}, f.gateway.payouts)

	require.Len(t, f.outbox.events, 1)
	require.Equal(t, enums.EventPayoutCompleted, f.outbox.events[0].EventType)
}

func TestPerformActionProcessFromPending(t *testing.T) {
	f := newPayoutFixture(t)
	existing := &models.Payout{
		ID:        uuid.New(),
		PartnerID: f.partner.ID,
		Status:    enums.PayoutStatusPending,
	}
	f.repo.payouts[existing.ID] = existing

	_, err := f.svc.PerformAction(context.Background(), PayoutActionInput{
		PayoutID: existing.ID,
		Action:   enums.PayoutActionProcess,
	})
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeInvalidTransition, pkgerrors.As(err).Code())
	require.Equal(t, enums.PayoutStatusPending, existing.Status)
	require.Empty(t, f.gateway.payouts)
}

func TestPerformActionRejectThenReapprove(t *testing.T) {
	f := newPayoutFixture(t)
	existing := &models.Payout{
		ID:        uuid.New(),
		PartnerID: f.partner.ID,
		Status:    enums.PayoutStatusPending,
	}
	f.repo.payouts[existing.ID] = existing

	payout, err := f.svc.PerformAction(context.Background(), PayoutActionInput{
		PayoutID: existing.ID,
		Action:   enums.PayoutActionReject,
	})
	require.NoError(t, err)
	require.Equal(t, enums.PayoutStatusFailed, payout.Status)
	require.Nil(t, payout.ProcessedAt)

	payout, err = f.svc.PerformAction(context.Background(), PayoutActionInput{
		PayoutID: existing.ID,
		Action:   enums.PayoutActionApprove,
	})
	require.NoError(t, err)
	require.Equal(t, enums.PayoutStatusProcessing, payout.Status)
}

func TestPerformActionNotFound(t *testing.T) {
	f := newPayoutFixture(t)

	_, err := f.svc.PerformAction(context.Background(), PayoutActionInput{
		PayoutID: uuid.New(),
		Action:   enums.PayoutActionApprove,
	})
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestPerformActionStaleWriteLoses(t *testing.T) {
	f := newPayoutFixture(t)
	existing := &models.Payout{
		ID:        uuid.New(),
		PartnerID: f.partner.ID,
		Status:    enums.PayoutStatusPending,
	}
	f.repo.payouts[existing.ID] = existing
	f.repo.transitionResult = false

	_, err := f.svc.PerformAction(context.Background(), PayoutActionInput{
		PayoutID: existing.ID,
		Action:   enums.PayoutActionApprove,
	})
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeInvalidTransition, pkgerrors.As(err).Code())
	require.True(t, f.repo.transitioned)
}

func TestPartnerStats(t *testing.T) {
	f := newPayoutFixture(t)
	f.repo.stats = &PartnerPayoutStats{
		TotalPaidCents:       20000,
		TotalPendingCents:    3000,
		TotalProcessingCents: 5000,
		PayoutCount:          4,
	}

	stats, err := f.svc.PartnerStats(context.Background(), f.partner.ID)
	require.NoError(t, err)
	require.Equal(t, int64(20000), stats.TotalPaidCents)
	require.Equal(t, int64(4), stats.PayoutCount)

	_, err = f.svc.PartnerStats(context.Background(), uuid.New())
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodePartnerNotFound, pkgerrors.As(err).Code())
}
