package payouts

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/refermate/partner-portal-backend/pkg/config"
	"github.com/refermate/partner-portal-backend/pkg/db/models"
	"github.com/refermate/partner-portal-backend/pkg/enums"
	pkgerrors "github.com/refermate/partner-portal-backend/pkg/errors"
	"github.com/refermate/partner-portal-backend/pkg/logger"
	"github.com/refermate/partner-portal-backend/pkg/metrics"
	"github.com/refermate/partner-portal-backend/pkg/outbox"
	"github.com/refermate/partner-portal-backend/pkg/provider"
)

const methodTransfer = "transfer"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// AccountProvisioner resolves (creating lazily if needed) the partner's
// external payout destination.
type AccountProvisioner interface {
	EnsureAccount(ctx context.Context, partnerID uuid.UUID) (*models.ProviderAccount, error)
}

// RequestPayoutInput carries a partner's payout request.
type RequestPayoutInput struct {
	PartnerID   uuid.UUID
	AmountCents int64
	Actor       *outbox.ActorRef
}

// PayoutActionInput carries an admin-triggered transition.
type PayoutActionInput struct {
	PayoutID uuid.UUID
	Action   enums.PayoutAction
	Actor    *outbox.ActorRef
}

// PayoutRequestedEvent is the outbox payload for a freshly created payout.
type PayoutRequestedEvent struct {
	PayoutID    uuid.UUID          `json:"payout_id"`
	PartnerID   uuid.UUID          `json:"partner_id"`
	AmountCents int64              `json:"amount_cents"`
	FeeCents    int64              `json:"fee_cents"`
	NetCents    int64              `json:"net_cents"`
	Status      enums.PayoutStatus `json:"status"`
	TransferID  string             `json:"transfer_id"`
}

// PayoutTransitionEvent is the outbox payload for an admin transition.
type PayoutTransitionEvent struct {
	PayoutID      uuid.UUID          `json:"payout_id"`
	PartnerID     uuid.UUID          `json:"partner_id"`
	Action        enums.PayoutAction `json:"action"`
	Status        enums.PayoutStatus `json:"status"`
	NetCents      int64              `json:"net_cents"`
	TransactionID *string            `json:"transaction_id,omitempty"`
}

// Service orchestrates payout requests and lifecycle transitions.
type Service interface {
	RequestPayout(ctx context.Context, input RequestPayoutInput) (*models.Payout, error)
	PerformAction(ctx context.Context, input PayoutActionInput) (*models.Payout, error)
	GetPayout(ctx context.Context, id uuid.UUID) (*models.Payout, error)
	ListPartnerPayouts(ctx context.Context, partnerID uuid.UUID) ([]models.Payout, error)
	PartnerStats(ctx context.Context, partnerID uuid.UUID) (*PartnerPayoutStats, error)
}

// ServiceParams groups dependencies for the payout service.
type ServiceParams struct {
	Config   config.PayoutConfig
	Repo     Repository
	Partners PartnerFinder
	Accounts AccountProvisioner
	Provider provider.Gateway
	Tx       txRunner
	Outbox   outboxPublisher
	Logger   *logger.Logger
	Metrics  *metrics.PayoutMetrics
}

type service struct {
	repo      Repository
	partners  PartnerFinder
	validator *Validator
	fees      *FeeCalculator
	accounts  AccountProvisioner
	gateway   provider.Gateway
	tx        txRunner
	outbox    outboxPublisher
	logg      *logger.Logger
	metrics   *metrics.PayoutMetrics
}

// NewService builds the payout orchestrator.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, errors.New("payout repository is required")
	}
	if params.Partners == nil {
		return nil, errors.New("partner finder is required")
	}
	if params.Accounts == nil {
		return nil, errors.New("account provisioner is required")
	}
	if params.Provider == nil {
		return nil, errors.New("provider gateway is required")
	}
	if params.Tx == nil {
		return nil, errors.New("transaction runner is required")
	}
	if params.Outbox == nil {
		return nil, errors.New("outbox publisher is required")
	}
	return &service{
		repo:      params.Repo,
		partners:  params.Partners,
		validator: NewValidator(params.Config, params.Partners),
		fees:      NewFeeCalculator(params.Config),
		accounts:  params.Accounts,
		gateway:   params.Provider,
		tx:        params.Tx,
		outbox:    params.Outbox,
		logg:      params.Logger,
		metrics:   params.Metrics,
	}, nil
}

// RequestPayout validates the request, computes fees, moves the net amount to
// the partner's connected account, and persists the payout. A successful
// request lands directly in processing: the request is its own approval, and
// pending is reserved for payouts entering through batch paths that need a
// manual approval step.
func (s *service) RequestPayout(ctx context.Context, input RequestPayoutInput) (*models.Payout, error) {
	partner, err := s.validator.Validate(ctx, input.PartnerID, input.AmountCents)
	if err != nil {
		return nil, err
	}

	breakdown := s.fees.Calculate(input.AmountCents)

	account, err := s.accounts.EnsureAccount(ctx, partner.ID)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	tr, err := s.gateway.CreateTransfer(ctx, account.AccountID, breakdown.NetAmount)
	s.observeProvider("create_transfer", start, err)
	if err != nil {
		return nil, err
	}

	method := methodTransfer
	payout := &models.Payout{
		PartnerID:     partner.ID,
		AmountCents:   breakdown.GrossAmount,
		FeeCents:      breakdown.PlatformFee + breakdown.ProviderFee,
		NetCents:      breakdown.NetAmount,
		Status:        enums.PayoutStatusProcessing,
		Method:        &method,
		TransactionID: &tr.ID,
		RequestedAt:   time.Now().UTC(),
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, payout); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payout")
		}
		event := outbox.DomainEvent{
			EventType:     enums.EventPayoutRequested,
			AggregateType: enums.AggregatePayout,
			AggregateID:   payout.ID,
			Version:       1,
			Actor:         input.Actor,
			Data: PayoutRequestedEvent{
				PayoutID:    payout.ID,
				PartnerID:   partner.ID,
				AmountCents: payout.AmountCents,
				FeeCents:    payout.FeeCents,
				NetCents:    payout.NetCents,
				Status:      payout.Status,
				TransferID:  tr.ID,
			},
		}
		return s.outbox.Emit(ctx, tx, event)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncTransition("request", payout.Status.String())
	s.logTransition(ctx, payout.ID, "request", payout.Status)
	return payout, nil
}

// PerformAction applies an admin transition against an existing payout.
// Illegal combinations fail wholesale with no partial write; a concurrent
// writer that moved the record first causes the stale action to fail the same
// way.
func (s *service) PerformAction(ctx context.Context, input PayoutActionInput) (*models.Payout, error) {
	payout, err := s.repo.FindByID(ctx, input.PayoutID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find payout")
	}
	if payout == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payout not found").
			WithDetails(map[string]any{"payout_id": input.PayoutID.String()})
	}

	next, err := NextStatus(payout.Status, input.Action)
	if err != nil {
		return nil, err
	}

	var processedAt *time.Time
	transactionID := payout.TransactionID
	if input.Action == enums.PayoutActionProcess {
		account, err := s.accounts.EnsureAccount(ctx, payout.PartnerID)
		if err != nil {
			return nil, err
		}

		start := time.Now()
		po, err := s.gateway.CreatePayout(ctx, account.AccountID, payout.NetCents)
		s.observeProvider("create_payout", start, err)
		if err != nil {
			return nil, err
		}
		transactionID = &po.ID

		now := time.Now().UTC()
		processedAt = &now
	}

	observed := payout.Status
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		applied, err := repo.TransitionStatus(ctx, payout.ID, observed, next, processedAt)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "transition payout status")
		}
		if !applied {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "payout was modified concurrently").
				WithDetails(map[string]any{
					"payout_id": payout.ID.String(),
					"action":    input.Action.String(),
				})
		}
		event := outbox.DomainEvent{
			EventType:     eventTypeForAction(input.Action),
			AggregateType: enums.AggregatePayout,
			AggregateID:   payout.ID,
			Version:       1,
			Actor:         input.Actor,
			Data: PayoutTransitionEvent{
				PayoutID:      payout.ID,
				PartnerID:     payout.PartnerID,
				Action:        input.Action,
				Status:        next,
				NetCents:      payout.NetCents,
				TransactionID: transactionID,
			},
		}
		return s.outbox.Emit(ctx, tx, event)
	})
	if err != nil {
		return nil, err
	}

	payout.Status = next
	payout.ProcessedAt = processedAt
	payout.TransactionID = transactionID

	s.metrics.IncTransition(input.Action.String(), next.String())
	s.logTransition(ctx, payout.ID, input.Action.String(), next)
	return payout, nil
}

func (s *service) GetPayout(ctx context.Context, id uuid.UUID) (*models.Payout, error) {
	payout, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find payout")
	}
	if payout == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payout not found").
			WithDetails(map[string]any{"payout_id": id.String()})
	}
	return payout, nil
}

func (s *service) ListPartnerPayouts(ctx context.Context, partnerID uuid.UUID) ([]models.Payout, error) {
	rows, err := s.repo.ListByPartner(ctx, partnerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payouts")
	}
	return rows, nil
}

// PartnerStats sums the partner's payout records by status.
func (s *service) PartnerStats(ctx context.Context, partnerID uuid.UUID) (*PartnerPayoutStats, error) {
	partner, err := s.partners.FindPartnerByID(ctx, partnerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find partner")
	}
	if partner == nil {
		return nil, pkgerrors.New(pkgerrors.CodePartnerNotFound, "partner not found").
			WithDetails(map[string]any{"partner_id": partnerID.String()})
	}
	stats, err := s.repo.StatsByPartner(ctx, partnerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "aggregate payout stats")
	}
	return stats, nil
}

func (s *service) observeProvider(operation string, start time.Time, err error) {
	s.metrics.ObserveProviderCall(operation, time.Since(start))
	if err != nil {
		s.metrics.IncProviderFailure(operation)
	}
}

func (s *service) logTransition(ctx context.Context, payoutID uuid.UUID, action string, status enums.PayoutStatus) {
	if s.logg == nil {
		return
	}
	logCtx := s.logg.WithPayoutID(ctx, payoutID.String())
	logCtx = s.logg.WithFields(logCtx, map[string]any{
		"action": action,
		"status": status.String(),
	})
	s.logg.Info(logCtx, "payout transition applied")
}

func eventTypeForAction(action enums.PayoutAction) enums.OutboxEventType {
	switch action {
	case enums.PayoutActionProcess:
		return enums.EventPayoutCompleted
	case enums.PayoutActionReject:
		return enums.EventPayoutRejected
	default:
		return enums.EventPayoutApproved
	}
}
