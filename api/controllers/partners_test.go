package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/refermate/partner-portal-backend/internal/partners"
	"github.com/refermate/partner-portal-backend/pkg/db/models"
	pkgerrors "github.com/refermate/partner-portal-backend/pkg/errors"
	"github.com/refermate/partner-portal-backend/pkg/provider"
)

type stubPartnerService struct {
	partner *models.Partner
	list    []models.Partner
	account *models.ProviderAccount
	link    *provider.Link
	balance *provider.Balance
	health  provider.Health
	err     error

	lastCreate *partners.CreatePartnerInput
}

func (s *stubPartnerService) CreatePartner(_ context.Context, input partners.CreatePartnerInput) (*models.Partner, error) {
	s.lastCreate = &input
	if s.err != nil {
		return nil, s.err
	}
	return s.partner, nil
}

func (s *stubPartnerService) GetPartner(_ context.Context, id uuid.UUID) (*models.Partner, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.partner, nil
}

func (s *stubPartnerService) ListPartners(_ context.Context) ([]models.Partner, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.list, nil
}

func (s *stubPartnerService) EnsureAccount(_ context.Context, partnerID uuid.UUID) (*models.ProviderAccount, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.account, nil
}

func (s *stubPartnerService) RefreshAccount(_ context.Context, partnerID uuid.UUID) (*models.ProviderAccount, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.account, nil
}

func (s *stubPartnerService) OnboardingLink(_ context.Context, partnerID uuid.UUID, refreshURL, returnURL string) (*provider.Link, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.link, nil
}

func (s *stubPartnerService) LoginLink(_ context.Context, partnerID uuid.UUID) (*provider.Link, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.link, nil
}

func (s *stubPartnerService) AccountBalance(_ context.Context, partnerID uuid.UUID) (*provider.Balance, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.balance, nil
}

func (s *stubPartnerService) PlatformBalance(_ context.Context) (*provider.Balance, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.balance, nil
}

func (s *stubPartnerService) ProviderHealth(_ context.Context) provider.Health {
	return s.health
}

func testPartner() *models.Partner {
	return &models.Partner{
		ID:          uuid.New(),
		Email:       "jordan@acme.test",
		CompanyName: "Acme Referrals",
		Country:     "US",
	}
}

func TestCreatePartnerSuccess(t *testing.T) {
	partner := testPartner()
	svc := &stubPartnerService{partner: partner}
	handler := CreatePartner(svc, nil)

	body := []byte(`{"email":"Jordan@Acme.test","company_name":"Acme Referrals"}`)
	req := adminRequest(http.MethodPost, "/api/v1/partners", body, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", rec.Code, rec.Body.String())
	}

	var envelope struct {
		Data partnerResponse `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.ID != partner.ID {
		t.Fatalf("expected id %s got %s", partner.ID, envelope.Data.ID)
	}

	if svc.lastCreate == nil {
		t.Fatal("expected service call")
	}
	if svc.lastCreate.CompanyName != "Acme Referrals" {
		t.Fatalf("unexpected company name %q", svc.lastCreate.CompanyName)
	}
}

func TestCreatePartnerRejectsInvalidEmail(t *testing.T) {
	svc := &stubPartnerService{}
	handler := CreatePartner(svc, nil)

	body := []byte(`{"email":"not-an-email","company_name":"Acme"}`)
	req := adminRequest(http.MethodPost, "/api/v1/partners", body, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
	if svc.lastCreate != nil {
		t.Fatal("service should not be called for invalid payload")
	}
}

func TestCreatePartnerDuplicateEmail(t *testing.T) {
	svc := &stubPartnerService{err: pkgerrors.New(pkgerrors.CodeValidation, "email already registered")}
	handler := CreatePartner(svc, nil)

	body := []byte(`{"email":"jordan@acme.test","company_name":"Acme"}`)
	req := adminRequest(http.MethodPost, "/api/v1/partners", body, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestProvisionAccountSuccess(t *testing.T) {
	partnerID := uuid.New()
	svc := &stubPartnerService{account: &models.ProviderAccount{
		PartnerID:      partnerID,
		AccountID:      "acct_sim_abc",
		PayoutsEnabled: true,
		Country:        "US",
		Currency:       "usd",
	}}
	handler := ProvisionAccount(svc, nil)

	req := adminRequest(http.MethodPost, "/api/v1/partners/"+partnerID.String()+"/account",
		nil, map[string]string{"partnerID": partnerID.String()})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", rec.Code, rec.Body.String())
	}

	var envelope struct {
		Data providerAccountResponse `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.AccountID != "acct_sim_abc" {
		t.Fatalf("unexpected account id %s", envelope.Data.AccountID)
	}
}

func TestProvisionAccountDeniesForeignPartner(t *testing.T) {
	target := uuid.New()
	caller := uuid.New()
	svc := &stubPartnerService{}
	handler := ProvisionAccount(svc, nil)

	req := partnerScopedRequest(http.MethodPost, "/api/v1/partners/"+target.String()+"/account", nil, caller)
	rc := chi.NewRouteContext()
	rc.URLParams.Add("partnerID", target.String())
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", rec.Code)
	}
}

func TestOnboardingLinkSuccess(t *testing.T) {
	partnerID := uuid.New()
	svc := &stubPartnerService{link: &provider.Link{URL: "https://connect.example/onboard"}}
	handler := OnboardingLink(svc, nil)

	req := adminRequest(http.MethodPost, "/api/v1/partners/"+partnerID.String()+"/onboarding-link",
		[]byte(`{}`), map[string]string{"partnerID": partnerID.String()})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}

	var envelope struct {
		Data provider.Link `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.URL != "https://connect.example/onboard" {
		t.Fatalf("unexpected link %s", envelope.Data.URL)
	}
}

func TestAdminProviderHealth(t *testing.T) {
	svc := &stubPartnerService{health: provider.Health{Configured: false, Operational: true}}
	handler := AdminProviderHealth(svc, nil)

	req := adminRequest(http.MethodGet, "/api/v1/admin/provider/health", nil, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}

	var envelope struct {
		Data provider.Health `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Configured {
		t.Fatal("expected simulated provider to report unconfigured")
	}
	if !envelope.Data.Operational {
		t.Fatal("expected simulated provider to report operational")
	}
}

func TestAccountBalanceNotFound(t *testing.T) {
	partnerID := uuid.New()
	svc := &stubPartnerService{err: pkgerrors.New(pkgerrors.CodePartnerNotFound, "partner not found")}
	handler := AccountBalance(svc, nil)

	req := adminRequest(http.MethodGet, "/api/v1/partners/"+partnerID.String()+"/balance",
		nil, map[string]string{"partnerID": partnerID.String()})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", rec.Code)
	}
}

func TestHealthLive(t *testing.T) {
	cfg := testConfig()
	handler := HealthLive(cfg)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if rec.Header().Get("X-Refermate-Env") != "dev" {
		t.Fatalf("expected env header, got %q", rec.Header().Get("X-Refermate-Env"))
	}
}

func TestHealthReadyFailsOnDeadDependency(t *testing.T) {
	cfg := testConfig()
	handler := HealthReady(cfg, nil, map[string]Pinger{"redis": deadPinger{}})

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", rec.Code)
	}
}
