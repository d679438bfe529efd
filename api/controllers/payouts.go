package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/refermate/partner-portal-backend/api/middleware"
	"github.com/refermate/partner-portal-backend/api/responses"
	"github.com/refermate/partner-portal-backend/api/validators"
	"github.com/refermate/partner-portal-backend/internal/payouts"
	"github.com/refermate/partner-portal-backend/pkg/db/models"
	"github.com/refermate/partner-portal-backend/pkg/enums"
	pkgerrors "github.com/refermate/partner-portal-backend/pkg/errors"
	"github.com/refermate/partner-portal-backend/pkg/logger"
	"github.com/refermate/partner-portal-backend/pkg/outbox"
)

type requestPayoutRequest struct {
	AmountCents int64 `json:"amount_cents" validate:"required,min=1"`
}

type payoutActionRequest struct {
	Action string `json:"action" validate:"required,oneof=approve process reject"`
}

type payoutResponse struct {
	ID            uuid.UUID  `json:"id"`
	PartnerID     uuid.UUID  `json:"partner_id"`
	AmountCents   int64      `json:"amount_cents"`
	FeeCents      int64      `json:"fee_cents"`
	NetCents      int64      `json:"net_cents"`
	Status        string     `json:"status"`
	Method        *string    `json:"method,omitempty"`
	TransactionID *string    `json:"transaction_id,omitempty"`
	RequestedAt   time.Time  `json:"requested_at"`
	ProcessedAt   *time.Time `json:"processed_at,omitempty"`
}

func toPayoutResponse(p *models.Payout) payoutResponse {
	return payoutResponse{
		ID:            p.ID,
		PartnerID:     p.PartnerID,
		AmountCents:   p.AmountCents,
		FeeCents:      p.FeeCents,
		NetCents:      p.NetCents,
		Status:        string(p.Status),
		Method:        p.Method,
		TransactionID: p.TransactionID,
		RequestedAt:   p.RequestedAt,
		ProcessedAt:   p.ProcessedAt,
	}
}

func toPayoutResponses(items []models.Payout) []payoutResponse {
	out := make([]payoutResponse, 0, len(items))
	for i := range items {
		out = append(out, toPayoutResponse(&items[i]))
	}
	return out
}

// RequestPayout creates a payout for the authenticated partner's earned balance.
func RequestPayout(svc payouts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payout service unavailable"))
			return
		}

		partnerID, err := partnerIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body requestPayoutRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payout, err := svc.RequestPayout(r.Context(), payouts.RequestPayoutInput{
			PartnerID:   partnerID,
			AmountCents: body.AmountCents,
			Actor:       actorFromRequest(r),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, toPayoutResponse(payout))
	}
}

// ListPayouts returns the authenticated partner's payout history, most recent first.
func ListPayouts(svc payouts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payout service unavailable"))
			return
		}

		partnerID, err := partnerIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items, err := svc.ListPartnerPayouts(r.Context(), partnerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, toPayoutResponses(items))
	}
}

// PayoutDetail returns a single payout; partners can only see their own.
func PayoutDetail(svc payouts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payout service unavailable"))
			return
		}

		payoutID, err := validators.ParsePathUUID(chi.URLParam(r, "payoutID"), "payoutID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payout, err := svc.GetPayout(r.Context(), payoutID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if !actorCanAccessPartner(r, payout.PartnerID) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "payout does not belong to partner"))
			return
		}

		responses.WriteSuccess(w, toPayoutResponse(payout))
	}
}

// PartnerPayoutStats returns lifetime payout aggregates for the authenticated partner.
func PartnerPayoutStats(svc payouts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payout service unavailable"))
			return
		}

		partnerID, err := partnerIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		stats, err := svc.PartnerStats(r.Context(), partnerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, stats)
	}
}

// AdminPerformPayoutAction applies an approve/process/reject transition.
func AdminPerformPayoutAction(svc payouts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payout service unavailable"))
			return
		}

		payoutID, err := validators.ParsePathUUID(chi.URLParam(r, "payoutID"), "payoutID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body payoutActionRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		action, err := enums.ParsePayoutAction(body.Action)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payout action"))
			return
		}

		payout, err := svc.PerformAction(r.Context(), payouts.PayoutActionInput{
			PayoutID: payoutID,
			Action:   action,
			Actor:    actorFromRequest(r),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, toPayoutResponse(payout))
	}
}

// AdminListPartnerPayouts returns a specific partner's payout history for review.
func AdminListPartnerPayouts(svc payouts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payout service unavailable"))
			return
		}

		partnerID, err := validators.ParsePathUUID(chi.URLParam(r, "partnerID"), "partnerID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items, err := svc.ListPartnerPayouts(r.Context(), partnerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, toPayoutResponses(items))
	}
}

// AdminPartnerPayoutStats returns payout aggregates for a specific partner.
func AdminPartnerPayoutStats(svc payouts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payout service unavailable"))
			return
		}

		partnerID, err := validators.ParsePathUUID(chi.URLParam(r, "partnerID"), "partnerID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		stats, err := svc.PartnerStats(r.Context(), partnerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, stats)
	}
}

func partnerIDFromRequest(r *http.Request) (uuid.UUID, error) {
	raw := middleware.PartnerIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "partner context missing")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid partner id")
	}
	return id, nil
}

func actorFromRequest(r *http.Request) *outbox.ActorRef {
	rawUser := middleware.UserIDFromContext(r.Context())
	if rawUser == "" {
		return nil
	}
	userID, err := uuid.Parse(rawUser)
	if err != nil {
		return nil
	}
	actor := &outbox.ActorRef{
		UserID: userID,
		Role:   middleware.RoleFromContext(r.Context()),
	}
	if raw := middleware.PartnerIDFromContext(r.Context()); raw != "" {
		if partnerID, err := uuid.Parse(raw); err == nil {
			actor.PartnerID = &partnerID
		}
	}
	return actor
}

func actorCanAccessPartner(r *http.Request, partnerID uuid.UUID) bool {
	role := middleware.RoleFromContext(r.Context())
	switch role {
	case string(enums.MemberRoleAdmin), string(enums.MemberRoleOps):
		return true
	}
	raw := strings.TrimSpace(middleware.PartnerIDFromContext(r.Context()))
	return raw != "" && raw == partnerID.String()
}
