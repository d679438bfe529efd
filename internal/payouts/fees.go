package payouts

import (
	"github.com/refermate/partner-portal-backend/pkg/config"
)

// FeeBreakdown is a value object produced fresh on every calculation. All
// amounts are minor currency units and PlatformFee + ProviderFee + NetAmount
// always equals GrossAmount.
type FeeBreakdown struct {
	GrossAmount int64 `json:"gross_amount"`
	PlatformFee int64 `json:"platform_fee"`
	ProviderFee int64 `json:"provider_fee"`
	NetAmount   int64 `json:"net_amount"`
}

// FeeCalculator computes the platform and provider fee split for a payout.
// Pure and deterministic; any non-negative gross amount is legal input.
type FeeCalculator struct {
	platformFeeBps   int64
	providerFeeCents int64
}

// NewFeeCalculator builds a calculator from the configured rates.
func NewFeeCalculator(cfg config.PayoutConfig) *FeeCalculator {
	return &FeeCalculator{
		platformFeeBps:   cfg.PlatformFeeBps,
		providerFeeCents: cfg.ProviderFeeCents,
	}
}

// Calculate splits the gross amount into platform fee, flat provider fee, and
// net. The platform fee rounds half-up to the nearest cent. Net may go
// negative for tiny amounts; rejecting those is the validator's job.
func (c *FeeCalculator) Calculate(grossCents int64) FeeBreakdown {
	platformFee := (grossCents*c.platformFeeBps + 5000) / 10000
	netAmount := grossCents - platformFee - c.providerFeeCents
	return FeeBreakdown{
		GrossAmount: grossCents,
		PlatformFee: platformFee,
		ProviderFee: c.providerFeeCents,
		NetAmount:   netAmount,
	}
}
