package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/refermate/partner-portal-backend/api/middleware"
	"github.com/refermate/partner-portal-backend/internal/payouts"
	"github.com/refermate/partner-portal-backend/pkg/db/models"
	"github.com/refermate/partner-portal-backend/pkg/enums"
	pkgerrors "github.com/refermate/partner-portal-backend/pkg/errors"
)

type stubPayoutService struct {
	payout *models.Payout
	list   []models.Payout
	stats  *payouts.PartnerPayoutStats
	err    error

	lastRequest *payouts.RequestPayoutInput
	lastAction  *payouts.PayoutActionInput
}

func (s *stubPayoutService) RequestPayout(_ context.Context, input payouts.RequestPayoutInput) (*models.Payout, error) {
	s.lastRequest = &input
	if s.err != nil {
		return nil, s.err
	}
	return s.payout, nil
}

func (s *stubPayoutService) PerformAction(_ context.Context, input payouts.PayoutActionInput) (*models.Payout, error) {
	s.lastAction = &input
	if s.err != nil {
		return nil, s.err
	}
	return s.payout, nil
}

func (s *stubPayoutService) GetPayout(_ context.Context, id uuid.UUID) (*models.Payout, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.payout, nil
}

func (s *stubPayoutService) ListPartnerPayouts(_ context.Context, partnerID uuid.UUID) ([]models.Payout, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.list, nil
}

func (s *stubPayoutService) PartnerStats(_ context.Context, partnerID uuid.UUID) (*payouts.PartnerPayoutStats, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.stats, nil
}

func testPayout(partnerID uuid.UUID) *models.Payout {
	method := "transfer"
	txID := "tr_test_1"
	return &models.Payout{
		ID:            uuid.New(),
		PartnerID:     partnerID,
		AmountCents:   10000,
		FeeCents:      125,
		NetCents:      9875,
		Status:        enums.PayoutStatusProcessing,
		Method:        &method,
		TransactionID: &txID,
		RequestedAt:   time.Now().UTC(),
	}
}

func partnerScopedRequest(method, target string, body []byte, partnerID uuid.UUID) *http.Request {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	ctx := middleware.WithUserID(req.Context(), uuid.NewString())
	ctx = middleware.WithRole(ctx, string(enums.MemberRolePartner))
	ctx = middleware.WithPartnerID(ctx, partnerID.String())
	return req.WithContext(ctx)
}

func adminRequest(method, target string, body []byte, params map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	ctx := middleware.WithUserID(req.Context(), uuid.NewString())
	ctx = middleware.WithRole(ctx, string(enums.MemberRoleAdmin))

	rc := chi.NewRouteContext()
	for key, value := range params {
		rc.URLParams.Add(key, value)
	}
	ctx = context.WithValue(ctx, chi.RouteCtxKey, rc)
	return req.WithContext(ctx)
}

func TestRequestPayoutSuccess(t *testing.T) {
	partnerID := uuid.New()
	svc := &stubPayoutService{payout: testPayout(partnerID)}
	handler := RequestPayout(svc, nil)

	req := partnerScopedRequest(http.MethodPost, "/api/v1/payouts", []byte(`{"amount_cents":10000}`), partnerID)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", rec.Code, rec.Body.String())
	}

	var envelope struct {
		Data payoutResponse `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.NetCents != 9875 {
		t.Fatalf("expected net 9875 got %d", envelope.Data.NetCents)
	}
	if envelope.Data.Status != string(enums.PayoutStatusProcessing) {
		t.Fatalf("unexpected status %s", envelope.Data.Status)
	}

	if svc.lastRequest == nil {
		t.Fatal("expected service call")
	}
	if svc.lastRequest.PartnerID != partnerID {
		t.Fatalf("expected partner %s got %s", partnerID, svc.lastRequest.PartnerID)
	}
	if svc.lastRequest.AmountCents != 10000 {
		t.Fatalf("expected amount 10000 got %d", svc.lastRequest.AmountCents)
	}
	if svc.lastRequest.Actor == nil || svc.lastRequest.Actor.PartnerID == nil {
		t.Fatal("expected actor with partner scope")
	}
}

func TestRequestPayoutMissingPartnerContext(t *testing.T) {
	handler := RequestPayout(&stubPayoutService{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payouts", bytes.NewReader([]byte(`{"amount_cents":10000}`)))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", rec.Code)
	}
}

func TestRequestPayoutRejectsInvalidBody(t *testing.T) {
	partnerID := uuid.New()
	svc := &stubPayoutService{}
	handler := RequestPayout(svc, nil)

	req := partnerScopedRequest(http.MethodPost, "/api/v1/payouts", []byte(`{"amount_cents":0}`), partnerID)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
	if svc.lastRequest != nil {
		t.Fatal("service should not be called for invalid payload")
	}
}

func TestRequestPayoutBelowMinimum(t *testing.T) {
	partnerID := uuid.New()
	svc := &stubPayoutService{err: pkgerrors.New(pkgerrors.CodeBelowMinimum, "amount below payout minimum")}
	handler := RequestPayout(svc, nil)

	req := partnerScopedRequest(http.MethodPost, "/api/v1/payouts", []byte(`{"amount_cents":500}`), partnerID)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", rec.Code)
	}
}

func TestPayoutDetailDeniesForeignPartner(t *testing.T) {
	owner := uuid.New()
	other := uuid.New()
	svc := &stubPayoutService{payout: testPayout(owner)}
	handler := PayoutDetail(svc, nil)

	req := partnerScopedRequest(http.MethodGet, "/api/v1/payouts/"+svc.payout.ID.String(), nil, other)
	rc := chi.NewRouteContext()
	rc.URLParams.Add("payoutID", svc.payout.ID.String())
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", rec.Code)
	}
}

func TestPayoutDetailAllowsOwner(t *testing.T) {
	owner := uuid.New()
	svc := &stubPayoutService{payout: testPayout(owner)}
	handler := PayoutDetail(svc, nil)

	req := partnerScopedRequest(http.MethodGet, "/api/v1/payouts/"+svc.payout.ID.String(), nil, owner)
	rc := chi.NewRouteContext()
	rc.URLParams.Add("payoutID", svc.payout.ID.String())
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
}

func TestListPayoutsSuccess(t *testing.T) {
	partnerID := uuid.New()
	svc := &stubPayoutService{list: []models.Payout{*testPayout(partnerID), *testPayout(partnerID)}}
	handler := ListPayouts(svc, nil)

	req := partnerScopedRequest(http.MethodGet, "/api/v1/payouts", nil, partnerID)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}

	var envelope struct {
		Data []payoutResponse `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(envelope.Data) != 2 {
		t.Fatalf("expected 2 payouts got %d", len(envelope.Data))
	}
}

func TestPartnerPayoutStatsSuccess(t *testing.T) {
	partnerID := uuid.New()
	svc := &stubPayoutService{stats: &payouts.PartnerPayoutStats{
		TotalPaidCents:       15000,
		TotalPendingCents:    1500,
		TotalProcessingCents: 2000,
		PayoutCount:          5,
	}}
	handler := PartnerPayoutStats(svc, nil)

	req := partnerScopedRequest(http.MethodGet, "/api/v1/payouts/stats", nil, partnerID)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}

	var envelope struct {
		Data payouts.PartnerPayoutStats `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.TotalPaidCents != 15000 {
		t.Fatalf("expected paid 15000 got %d", envelope.Data.TotalPaidCents)
	}
	if envelope.Data.PayoutCount != 5 {
		t.Fatalf("expected count 5 got %d", envelope.Data.PayoutCount)
	}
}

func TestAdminPerformPayoutActionSuccess(t *testing.T) {
	partnerID := uuid.New()
	payout := testPayout(partnerID)
	payout.Status = enums.PayoutStatusCompleted
	svc := &stubPayoutService{payout: payout}
	handler := AdminPerformPayoutAction(svc, nil)

	req := adminRequest(http.MethodPost, "/api/v1/admin/payouts/"+payout.ID.String()+"/actions",
		[]byte(`{"action":"process"}`), map[string]string{"payoutID": payout.ID.String()})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}

	if svc.lastAction == nil {
		t.Fatal("expected service call")
	}
	if svc.lastAction.Action != enums.PayoutActionProcess {
		t.Fatalf("expected process action got %s", svc.lastAction.Action)
	}
	if svc.lastAction.PayoutID != payout.ID {
		t.Fatalf("expected payout %s got %s", payout.ID, svc.lastAction.PayoutID)
	}
}

func TestAdminPerformPayoutActionRejectsUnknownAction(t *testing.T) {
	svc := &stubPayoutService{}
	handler := AdminPerformPayoutAction(svc, nil)

	payoutID := uuid.New()
	req := adminRequest(http.MethodPost, "/api/v1/admin/payouts/"+payoutID.String()+"/actions",
		[]byte(`{"action":"cancel"}`), map[string]string{"payoutID": payoutID.String()})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
	if svc.lastAction != nil {
		t.Fatal("service should not be called for unknown action")
	}
}

func TestAdminPerformPayoutActionInvalidTransition(t *testing.T) {
	svc := &stubPayoutService{err: pkgerrors.New(pkgerrors.CodeInvalidTransition, "payout transition disallowed")}
	handler := AdminPerformPayoutAction(svc, nil)

	payoutID := uuid.New()
	req := adminRequest(http.MethodPost, "/api/v1/admin/payouts/"+payoutID.String()+"/actions",
		[]byte(`{"action":"process"}`), map[string]string{"payoutID": payoutID.String()})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", rec.Code)
	}
}

func TestAdminListPartnerPayouts(t *testing.T) {
	partnerID := uuid.New()
	svc := &stubPayoutService{list: []models.Payout{*testPayout(partnerID)}}
	handler := AdminListPartnerPayouts(svc, nil)

	req := adminRequest(http.MethodGet, "/api/v1/admin/partners/"+partnerID.String()+"/payouts",
		nil, map[string]string{"partnerID": partnerID.String()})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
}

func TestAdminListPartnerPayoutsRejectsBadID(t *testing.T) {
	svc := &stubPayoutService{}
	handler := AdminListPartnerPayouts(svc, nil)

	req := adminRequest(http.MethodGet, "/api/v1/admin/partners/not-a-uuid/payouts",
		nil, map[string]string{"partnerID": "not-a-uuid"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}
