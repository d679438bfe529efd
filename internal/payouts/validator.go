package payouts

import (
	"context"

	"github.com/google/uuid"

	"github.com/refermate/partner-portal-backend/pkg/config"
	"github.com/refermate/partner-portal-backend/pkg/db/models"
	pkgerrors "github.com/refermate/partner-portal-backend/pkg/errors"
)

// PartnerFinder is the read-only partner lookup the validator depends on.
type PartnerFinder interface {
	FindPartnerByID(ctx context.Context, id uuid.UUID) (*models.Partner, error)
}

// Validator enforces payout request eligibility before any fee computation or
// provider call happens.
type Validator struct {
	partners     PartnerFinder
	minimumCents int64
}

// NewValidator builds a validator from the configured minimum.
func NewValidator(cfg config.PayoutConfig, partners PartnerFinder) *Validator {
	return &Validator{
		partners:     partners,
		minimumCents: cfg.MinimumCents,
	}
}

// Validate checks the partner exists and the gross amount clears the floor,
// returning the located partner for downstream use. Read-only.
func (v *Validator) Validate(ctx context.Context, partnerID uuid.UUID, amountCents int64) (*models.Partner, error) {
	partner, err := v.partners.FindPartnerByID(ctx, partnerID)
	if err != nil {
		return nil, err
	}
	if partner == nil {
		return nil, pkgerrors.New(pkgerrors.CodePartnerNotFound, "partner not found").
			WithDetails(map[string]any{"partner_id": partnerID.String()})
	}

	// The floor is evaluated against the gross amount, before fees.
	if amountCents < v.minimumCents {
		return nil, pkgerrors.New(pkgerrors.CodeBelowMinimum, "payout amount is below the minimum").
			WithDetails(map[string]any{
				"amount_cents":  amountCents,
				"minimum_cents": v.minimumCents,
			})
	}

	return partner, nil
}
