package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/refermate/partner-portal-backend/api/responses"
	"github.com/refermate/partner-portal-backend/api/validators"
	"github.com/refermate/partner-portal-backend/internal/partners"
	"github.com/refermate/partner-portal-backend/pkg/db/models"
	pkgerrors "github.com/refermate/partner-portal-backend/pkg/errors"
	"github.com/refermate/partner-portal-backend/pkg/logger"
)

type createPartnerRequest struct {
	Email       string  `json:"email" validate:"required,email"`
	CompanyName string  `json:"company_name" validate:"required,min=1"`
	ContactName *string `json:"contact_name,omitempty"`
	Country     string  `json:"country,omitempty" validate:"omitempty,len=2"`
}

type onboardingLinkRequest struct {
	RefreshURL string `json:"refresh_url,omitempty" validate:"omitempty,url"`
	ReturnURL  string `json:"return_url,omitempty" validate:"omitempty,url"`
}

type partnerResponse struct {
	ID          uuid.UUID `json:"id"`
	Email       string    `json:"email"`
	CompanyName string    `json:"company_name"`
	ContactName *string   `json:"contact_name,omitempty"`
	Country     string    `json:"country"`
	CreatedAt   time.Time `json:"created_at"`
}

type providerAccountResponse struct {
	PartnerID          uuid.UUID `json:"partner_id"`
	AccountID          string    `json:"account_id"`
	OnboardingComplete bool      `json:"onboarding_complete"`
	PayoutsEnabled     bool      `json:"payouts_enabled"`
	ChargesEnabled     bool      `json:"charges_enabled"`
	Country            string    `json:"country"`
	Currency           string    `json:"currency"`
}

func toPartnerResponse(p *models.Partner) partnerResponse {
	return partnerResponse{
		ID:          p.ID,
		Email:       p.Email,
		CompanyName: p.CompanyName,
		ContactName: p.ContactName,
		Country:     p.Country,
		CreatedAt:   p.CreatedAt,
	}
}

func toProviderAccountResponse(a *models.ProviderAccount) providerAccountResponse {
	return providerAccountResponse{
		PartnerID:          a.PartnerID,
		AccountID:          a.AccountID,
		OnboardingComplete: a.OnboardingComplete,
		PayoutsEnabled:     a.PayoutsEnabled,
		ChargesEnabled:     a.ChargesEnabled,
		Country:            a.Country,
		Currency:           a.Currency,
	}
}

// CreatePartner registers a referral partner ahead of provider onboarding.
func CreatePartner(svc partners.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "partner service unavailable"))
			return
		}

		var body createPartnerRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		partner, err := svc.CreatePartner(r.Context(), partners.CreatePartnerInput{
			Email:       body.Email,
			CompanyName: body.CompanyName,
			ContactName: body.ContactName,
			Country:     body.Country,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, toPartnerResponse(partner))
	}
}

// PartnerDetail returns a partner's profile.
func PartnerDetail(svc partners.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "partner service unavailable"))
			return
		}

		partnerID, err := validators.ParsePathUUID(chi.URLParam(r, "partnerID"), "partnerID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if !actorCanAccessPartner(r, partnerID) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "partner access denied"))
			return
		}

		partner, err := svc.GetPartner(r.Context(), partnerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, toPartnerResponse(partner))
	}
}

// ListPartners returns every registered partner for the admin console.
func ListPartners(svc partners.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "partner service unavailable"))
			return
		}

		items, err := svc.ListPartners(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]partnerResponse, 0, len(items))
		for i := range items {
			out = append(out, toPartnerResponse(&items[i]))
		}
		responses.WriteSuccess(w, out)
	}
}

// ProvisionAccount creates the partner's provider account if it does not exist yet.
func ProvisionAccount(svc partners.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "partner service unavailable"))
			return
		}

		partnerID, err := scopedPartnerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		account, err := svc.EnsureAccount(r.Context(), partnerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, toProviderAccountResponse(account))
	}
}

// AccountStatus refreshes onboarding flags from the provider and returns them.
func AccountStatus(svc partners.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "partner service unavailable"))
			return
		}

		partnerID, err := scopedPartnerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		account, err := svc.RefreshAccount(r.Context(), partnerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, toProviderAccountResponse(account))
	}
}

// OnboardingLink returns a fresh provider-hosted onboarding URL.
func OnboardingLink(svc partners.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "partner service unavailable"))
			return
		}

		partnerID, err := scopedPartnerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body onboardingLinkRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		link, err := svc.OnboardingLink(r.Context(), partnerID, body.RefreshURL, body.ReturnURL)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, link)
	}
}

// LoginLink returns a provider dashboard login URL for an onboarded partner.
func LoginLink(svc partners.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "partner service unavailable"))
			return
		}

		partnerID, err := scopedPartnerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		link, err := svc.LoginLink(r.Context(), partnerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, link)
	}
}

// AccountBalance returns the partner's provider account balance.
func AccountBalance(svc partners.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "partner service unavailable"))
			return
		}

		partnerID, err := scopedPartnerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		balance, err := svc.AccountBalance(r.Context(), partnerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, balance)
	}
}

// AdminPlatformBalance returns the platform's own provider balance.
func AdminPlatformBalance(svc partners.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "partner service unavailable"))
			return
		}

		balance, err := svc.PlatformBalance(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, balance)
	}
}

// AdminProviderHealth reports which payment-provider variant is active and
// whether it is reachable.
func AdminProviderHealth(svc partners.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "partner service unavailable"))
			return
		}

		responses.WriteSuccess(w, svc.ProviderHealth(r.Context()))
	}
}

// scopedPartnerID resolves the {partnerID} path param and enforces that the
// caller owns it or holds an elevated role.
func scopedPartnerID(r *http.Request) (uuid.UUID, error) {
	partnerID, err := validators.ParsePathUUID(chi.URLParam(r, "partnerID"), "partnerID")
	if err != nil {
		return uuid.Nil, err
	}
	if !actorCanAccessPartner(r, partnerID) {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "partner access denied")
	}
	return partnerID, nil
}
