package partners

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/refermate/partner-portal-backend/pkg/config"
	"github.com/refermate/partner-portal-backend/pkg/db/models"
	"github.com/refermate/partner-portal-backend/pkg/enums"
	pkgerrors "github.com/refermate/partner-portal-backend/pkg/errors"
	"github.com/refermate/partner-portal-backend/pkg/logger"
	"github.com/refermate/partner-portal-backend/pkg/outbox"
	"github.com/refermate/partner-portal-backend/pkg/provider"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// CreatePartnerInput carries the fields needed to register a partner.
type CreatePartnerInput struct {
	Email       string
	CompanyName string
	ContactName *string
	Country     string
}

// AccountOnboardedEvent is the outbox payload for a freshly provisioned
// provider account.
type AccountOnboardedEvent struct {
	PartnerID uuid.UUID `json:"partner_id"`
	AccountID string    `json:"account_id"`
	Country   string    `json:"country"`
	Currency  string    `json:"currency"`
}

// Service manages partners and their external payout destinations.
type Service interface {
	CreatePartner(ctx context.Context, input CreatePartnerInput) (*models.Partner, error)
	GetPartner(ctx context.Context, id uuid.UUID) (*models.Partner, error)
	ListPartners(ctx context.Context) ([]models.Partner, error)
	EnsureAccount(ctx context.Context, partnerID uuid.UUID) (*models.ProviderAccount, error)
	RefreshAccount(ctx context.Context, partnerID uuid.UUID) (*models.ProviderAccount, error)
	OnboardingLink(ctx context.Context, partnerID uuid.UUID, refreshURL, returnURL string) (*provider.Link, error)
	LoginLink(ctx context.Context, partnerID uuid.UUID) (*provider.Link, error)
	AccountBalance(ctx context.Context, partnerID uuid.UUID) (*provider.Balance, error)
	PlatformBalance(ctx context.Context) (*provider.Balance, error)
	ProviderHealth(ctx context.Context) provider.Health
}

// ServiceParams groups dependencies for the partner service.
type ServiceParams struct {
	Config   config.PayoutConfig
	Repo     Repository
	Provider provider.Gateway
	Tx       txRunner
	Outbox   outboxPublisher
	Logger   *logger.Logger
}

type service struct {
	cfg     config.PayoutConfig
	repo    Repository
	gateway provider.Gateway
	tx      txRunner
	outbox  outboxPublisher
	logg    *logger.Logger
}

// NewService builds the partner service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, errors.New("partner repository is required")
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
		cfg:     params.Config,
		repo:    params.Repo,
		gateway: params.Provider,
		tx:      params.Tx,
		outbox:  params.Outbox,
		logg:    params.Logger,
	}, nil
}

func (s *service) CreatePartner(ctx context.Context, input CreatePartnerInput) (*models.Partner, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	existing, err := s.repo.FindPartnerByEmail(ctx, email)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find partner by email")
	}
	if existing != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "a partner with this email already exists").
			WithDetails(map[string]any{"email": email})
	}

	country := strings.TrimSpace(input.Country)
	if country == "" {
		country = s.cfg.DefaultCountry
	}
	partner := &models.Partner{
		Email:       email,
		CompanyName: strings.TrimSpace(input.CompanyName),
		ContactName: input.ContactName,
		Country:     country,
	}
	if partner.ID == uuid.Nil {
		partner.ID = uuid.New()
	}
	if err := s.repo.CreatePartner(ctx, partner); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create partner")
	}
	return partner, nil
}

func (s *service) GetPartner(ctx context.Context, id uuid.UUID) (*models.Partner, error) {
	return s.requirePartner(ctx, id)
}

func (s *service) ListPartners(ctx context.Context) ([]models.Partner, error) {
	rows, err := s.repo.ListPartners(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list partners")
	}
	return rows, nil
}

// EnsureAccount returns the partner's provider account, creating one on the
// first call. One account per partner.
func (s *service) EnsureAccount(ctx context.Context, partnerID uuid.UUID) (*models.ProviderAccount, error) {
	partner, err := s.requirePartner(ctx, partnerID)
	if err != nil {
		return nil, err
	}

	account, err := s.repo.FindProviderAccountByPartnerID(ctx, partnerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find provider account")
	}
	if account != nil {
		return account, nil
	}

	created, err := s.gateway.CreateAccount(ctx, partner.Email, partner.Country)
	if err != nil {
		return nil, err
	}

	currency := created.Currency
	if currency == "" {
		currency = s.cfg.Currency
	}
	account = &models.ProviderAccount{
		ID:                 uuid.New(),
		PartnerID:          partner.ID,
		AccountID:          created.ID,
		OnboardingComplete: created.OnboardingComplete,
		PayoutsEnabled:     created.PayoutsEnabled,
		ChargesEnabled:     created.ChargesEnabled,
		Country:            created.Country,
		Currency:           currency,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).CreateProviderAccount(ctx, account); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create provider account")
		}
		event := outbox.DomainEvent{
			EventType:     enums.EventPartnerAccountOnboarded,
			AggregateType: enums.AggregatePartner,
			AggregateID:   partner.ID,
			Version:       1,
			Data: AccountOnboardedEvent{
				PartnerID: partner.ID,
				AccountID: account.AccountID,
				Country:   account.Country,
				Currency:  account.Currency,
			},
		}
		return s.outbox.EmitIfNotExists(ctx, tx, event)
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithPartnerID(ctx, partner.ID.String())
		logCtx = s.logg.WithField(logCtx, "account_id", account.AccountID)
		s.logg.Info(logCtx, "provider account provisioned")
	}
	return account, nil
}

// RefreshAccount re-reads the provider's view of the account and syncs the
// onboarding and capability flags.
func (s *service) RefreshAccount(ctx context.Context, partnerID uuid.UUID) (*models.ProviderAccount, error) {
	account, err := s.EnsureAccount(ctx, partnerID)
	if err != nil {
		return nil, err
	}

	remote, err := s.gateway.GetAccount(ctx, account.AccountID)
	if err != nil {
		return nil, err
	}

	account.OnboardingComplete = remote.OnboardingComplete
	account.PayoutsEnabled = remote.PayoutsEnabled
	account.ChargesEnabled = remote.ChargesEnabled
	if err := s.repo.UpdateProviderAccount(ctx, account); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update provider account")
	}
	return account, nil
}

func (s *service) OnboardingLink(ctx context.Context, partnerID uuid.UUID, refreshURL, returnURL string) (*provider.Link, error) {
	account, err := s.EnsureAccount(ctx, partnerID)
	if err != nil {
		return nil, err
	}
	return s.gateway.CreateOnboardingLink(ctx, account.AccountID, refreshURL, returnURL)
}

func (s *service) LoginLink(ctx context.Context, partnerID uuid.UUID) (*provider.Link, error) {
	account, err := s.EnsureAccount(ctx, partnerID)
	if err != nil {
		return nil, err
	}
	return s.gateway.CreateLoginLink(ctx, account.AccountID)
}

func (s *service) AccountBalance(ctx context.Context, partnerID uuid.UUID) (*provider.Balance, error) {
	account, err := s.EnsureAccount(ctx, partnerID)
	if err != nil {
		return nil, err
	}
	return s.gateway.GetAccountBalance(ctx, account.AccountID)
}

func (s *service) PlatformBalance(ctx context.Context) (*provider.Balance, error) {
	return s.gateway.GetPlatformBalance(ctx)
}

func (s *service) ProviderHealth(ctx context.Context) provider.Health {
	return s.gateway.HealthCheck(ctx)
}

func (s *service) requirePartner(ctx context.Context, id uuid.UUID) (*models.Partner, error) {
	partner, err := s.repo.FindPartnerByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find partner")
	}
	if partner == nil {
		return nil, pkgerrors.New(pkgerrors.CodePartnerNotFound, "partner not found").
			WithDetails(map[string]any{"partner_id": id.String()})
	}
	return partner, nil
}
