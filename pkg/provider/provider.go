// Package provider abstracts the external money-movement system behind a
// single capability contract. Two variants implement it: a live gateway backed
// by Stripe Connect, and a deterministic simulated gateway used whenever live
// credentials are absent. Callers above this layer never learn which variant
// is active.
package provider

import (
	"context"
	"time"

	"github.com/refermate/partner-portal-backend/pkg/config"
	"github.com/refermate/partner-portal-backend/pkg/logger"
)

// Account describes a partner's payout destination as the provider sees it.
type Account struct {
	ID                 string
	OnboardingComplete bool
	PayoutsEnabled     bool
	ChargesEnabled     bool
	Country            string
	Currency           string
}

// Link is a short-lived hosted URL (onboarding or dashboard login).
type Link struct {
	URL       string
	ExpiresAt time.Time
}

// Balance reports funds in minor currency units.
type Balance struct {
	AvailableCents int64
	PendingCents   int64
	Currency       string
}

// Transfer is the result of moving funds from the platform to a connected account.
type Transfer struct {
	ID          string
	AmountCents int64
	Currency    string
}

// Payout is the result of instructing the provider to pay a connected account out.
type Payout struct {
	ID          string
	AmountCents int64
	Currency    string
	Status      string
	ArrivalDate time.Time
}

// Health separates "credentials are present" from "the provider answers".
// Unconfigured installs run simulated and always report operational.
type Health struct {
	Configured  bool `json:"configured"`
	Operational bool `json:"operational"`
}

// Gateway is the capability contract shared by the live and simulated variants.
type Gateway interface {
	CreateAccount(ctx context.Context, email, country string) (*Account, error)
	CreateOnboardingLink(ctx context.Context, accountID, refreshURL, returnURL string) (*Link, error)
	CreateLoginLink(ctx context.Context, accountID string) (*Link, error)
	GetAccount(ctx context.Context, accountID string) (*Account, error)
	GetPlatformBalance(ctx context.Context) (*Balance, error)
	GetAccountBalance(ctx context.Context, accountID string) (*Balance, error)
	CreateTransfer(ctx context.Context, accountID string, amountCents int64) (*Transfer, error)
	CreatePayout(ctx context.Context, accountID string, amountCents int64) (*Payout, error)
	HealthCheck(ctx context.Context) Health
}

// New selects the gateway variant once at process start. Live credentials
// present means live; otherwise the simulated variant serves every call.
func New(ctx context.Context, payoutCfg config.PayoutConfig, stripeCfg config.StripeConfig, logg *logger.Logger) (Gateway, error) {
	if stripeCfg.Configured() {
		return NewStripeGateway(ctx, payoutCfg, stripeCfg, logg)
	}
	return NewSimulatedGateway(payoutCfg, logg), nil
}
