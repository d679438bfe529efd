package provider

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/refermate/partner-portal-backend/pkg/config"
	"github.com/refermate/partner-portal-backend/pkg/logger"
)

const (
	simAccountPrefix  = "acct_sim"
	simTransferPrefix = "tr_sim"
	simPayoutPrefix   = "po_sim"

	// Simulated accounts report a fixed available balance so downstream
	// balance displays have something to render.
	simAvailableCents = 100_000_00
)

// SimulatedGateway is the deterministic in-process variant. Every operation
// succeeds, identifiers are recognizably tagged, and no network calls happen.
type SimulatedGateway struct {
	currency string
	country  string
	logger   *logger.Logger
	now      func() time.Time
}

// NewSimulatedGateway builds the simulated variant used when live credentials
// are absent.
func NewSimulatedGateway(cfg config.PayoutConfig, logg *logger.Logger) *SimulatedGateway {
	return &SimulatedGateway{
		currency: cfg.Currency,
		country:  cfg.DefaultCountry,
		logger:   logg,
		now:      time.Now,
	}
}

func (g *SimulatedGateway) CreateAccount(ctx context.Context, email, country string) (*Account, error) {
	if strings.TrimSpace(country) == "" {
		country = g.country
	}
	acct := &Account{
		ID:                 simID(simAccountPrefix),
		OnboardingComplete: true,
		PayoutsEnabled:     true,
		ChargesEnabled:     true,
		Country:            country,
		Currency:           g.currency,
	}
	g.info(ctx, "simulated account created", map[string]any{"account_id": acct.ID})
	return acct, nil
}

func (g *SimulatedGateway) CreateOnboardingLink(ctx context.Context, accountID, refreshURL, returnURL string) (*Link, error) {
	return &Link{
		URL:       fmt.Sprintf("https://connect.simulated.local/onboarding/%s", accountID),
		ExpiresAt: g.now().Add(15 * time.Minute).UTC(),
	}, nil
}

func (g *SimulatedGateway) CreateLoginLink(ctx context.Context, accountID string) (*Link, error) {
	return &Link{
		URL: fmt.Sprintf("https://connect.simulated.local/dashboard/%s", accountID),
	}, nil
}

// GetAccount always reports a fully onboarded, payout-enabled account.
func (g *SimulatedGateway) GetAccount(ctx context.Context, accountID string) (*Account, error) {
	return &Account{
		ID:                 accountID,
		OnboardingComplete: true,
		PayoutsEnabled:     true,
		ChargesEnabled:     true,
		Country:            g.country,
		Currency:           g.currency,
	}, nil
}

func (g *SimulatedGateway) GetPlatformBalance(ctx context.Context) (*Balance, error) {
	return &Balance{AvailableCents: simAvailableCents, PendingCents: 0, Currency: g.currency}, nil
}

func (g *SimulatedGateway) GetAccountBalance(ctx context.Context, accountID string) (*Balance, error) {
	return &Balance{AvailableCents: simAvailableCents, PendingCents: 0, Currency: g.currency}, nil
}

func (g *SimulatedGateway) CreateTransfer(ctx context.Context, accountID string, amountCents int64) (*Transfer, error) {
	tr := &Transfer{
		ID:          simID(simTransferPrefix),
		AmountCents: amountCents,
		Currency:    g.currency,
	}
	g.info(ctx, "simulated transfer created", map[string]any{
		"transfer_id":  tr.ID,
		"account_id":   accountID,
		"amount_cents": amountCents,
	})
	return tr, nil
}

// CreatePayout always succeeds with an arrival date on the next business day,
// so downstream date handling gets exercised without a live call.
func (g *SimulatedGateway) CreatePayout(ctx context.Context, accountID string, amountCents int64) (*Payout, error) {
	po := &Payout{
		ID:          simID(simPayoutPrefix),
		AmountCents: amountCents,
		Currency:    g.currency,
		Status:      "in_transit",
		ArrivalDate: nextBusinessDay(g.now().UTC()),
	}
	g.info(ctx, "simulated payout created", map[string]any{
		"payout_id":    po.ID,
		"account_id":   accountID,
		"amount_cents": amountCents,
	})
	return po, nil
}

// HealthCheck reports unconfigured but always operational.
func (g *SimulatedGateway) HealthCheck(ctx context.Context) Health {
	return Health{Configured: false, Operational: true}
}

func (g *SimulatedGateway) info(ctx context.Context, msg string, fields map[string]any) {
	if g == nil || g.logger == nil {
		return
	}
	g.logger.Info(g.logger.WithFields(ctx, fields), msg)
}

func simID(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, strings.ReplaceAll(uuid.NewString(), "-", ""))
}

func nextBusinessDay(from time.Time) time.Time {
	next := from.AddDate(0, 0, 1)
	for next.Weekday() == time.Saturday || next.Weekday() == time.Sunday {
		next = next.AddDate(0, 0, 1)
	}
	return time.Date(next.Year(), next.Month(), next.Day(), 0, 0, 0, 0, time.UTC)
}
