package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/account"
	"github.com/stripe/stripe-go/v84/accountlink"
	"github.com/stripe/stripe-go/v84/balance"
	"github.com/stripe/stripe-go/v84/loginlink"
	"github.com/stripe/stripe-go/v84/payout"
	"github.com/stripe/stripe-go/v84/transfer"

	"github.com/refermate/partner-portal-backend/pkg/config"
	pkgerrors "github.com/refermate/partner-portal-backend/pkg/errors"
	"github.com/refermate/partner-portal-backend/pkg/logger"
)

const (
	testEnv = "test"
	liveEnv = "live"
)

var (
	errAPIKeyRequired   = errors.New("stripe api key is required")
	errInvalidStripeEnv = fmt.Errorf("stripe environment must be %q or %q", testEnv, liveEnv)
)

// StripeGateway is the live variant, delegating every capability to Stripe
// Connect express accounts.
type StripeGateway struct {
	environment string
	currency    string
	refreshURL  string
	returnURL   string
	logger      *logger.Logger
}

// NewStripeGateway validates the credentials and initializes Stripe once.
func NewStripeGateway(ctx context.Context, payoutCfg config.PayoutConfig, cfg config.StripeConfig, logg *logger.Logger) (*StripeGateway, error) {
	env, err := normalizeEnv(cfg.Environment())
	if err != nil {
		return nil, err
	}

	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}
	if err := validateAPIKey(env, apiKey); err != nil {
		return nil, err
	}

	stripe.Key = apiKey

	if logg != nil {
		logg.Info(ctx, fmt.Sprintf("stripe gateway initialized (%s)", env))
	}

	return &StripeGateway{
		environment: env,
		currency:    payoutCfg.Currency,
		refreshURL:  cfg.RefreshURL,
		returnURL:   cfg.ReturnURL,
		logger:      logg,
	}, nil
}

// Environment reports the normalized Stripe environment in use.
func (g *StripeGateway) Environment() string {
	if g == nil {
		return ""
	}
	return g.environment
}

func (g *StripeGateway) CreateAccount(ctx context.Context, email, country string) (*Account, error) {
	params := &stripe.AccountParams{
		Type:    stripe.String(string(stripe.AccountTypeExpress)),
		Email:   stripe.String(email),
		Country: stripe.String(country),
		Capabilities: &stripe.AccountCapabilitiesParams{
			Transfers: &stripe.AccountCapabilitiesTransfersParams{
				Requested: stripe.Bool(true),
			},
		},
	}
	params.Context = ctx
	g.log(ctx, "request", "create_account", map[string]any{"country": country})

	acct, err := account.New(params)
	if err != nil {
		g.log(ctx, "error", "create_account", map[string]any{"error": err.Error()})
		return nil, g.mapStripeError(err, "create account")
	}

	g.log(ctx, "response", "create_account", map[string]any{"account_id": acct.ID})
	return accountFromStripe(acct), nil
}

func (g *StripeGateway) CreateOnboardingLink(ctx context.Context, accountID, refreshURL, returnURL string) (*Link, error) {
	if refreshURL == "" {
		refreshURL = g.refreshURL
	}
	if returnURL == "" {
		returnURL = g.returnURL
	}
	params := &stripe.AccountLinkParams{
		Account:    stripe.String(accountID),
		RefreshURL: stripe.String(refreshURL),
		ReturnURL:  stripe.String(returnURL),
		Type:       stripe.String(string(stripe.AccountLinkTypeAccountOnboarding)),
	}
	params.Context = ctx
	g.log(ctx, "request", "create_onboarding_link", map[string]any{"account_id": accountID})

	link, err := accountlink.New(params)
	if err != nil {
		g.log(ctx, "error", "create_onboarding_link", map[string]any{"error": err.Error()})
		return nil, g.mapStripeError(err, "create onboarding link")
	}

	g.log(ctx, "response", "create_onboarding_link", map[string]any{"account_id": accountID})
	return &Link{URL: link.URL, ExpiresAt: time.Unix(link.ExpiresAt, 0).UTC()}, nil
}

func (g *StripeGateway) CreateLoginLink(ctx context.Context, accountID string) (*Link, error) {
	params := &stripe.LoginLinkParams{Account: stripe.String(accountID)}
	params.Context = ctx
	g.log(ctx, "request", "create_login_link", map[string]any{"account_id": accountID})

	link, err := loginlink.New(params)
	if err != nil {
		g.log(ctx, "error", "create_login_link", map[string]any{"error": err.Error()})
		return nil, g.mapStripeError(err, "create login link")
	}

	g.log(ctx, "response", "create_login_link", map[string]any{"account_id": accountID})
	return &Link{URL: link.URL}, nil
}

func (g *StripeGateway) GetAccount(ctx context.Context, accountID string) (*Account, error) {
	params := &stripe.AccountParams{}
	params.Context = ctx
	g.log(ctx, "request", "get_account", map[string]any{"account_id": accountID})

	acct, err := account.GetByID(accountID, params)
	if err != nil {
		g.log(ctx, "error", "get_account", map[string]any{"error": err.Error()})
		return nil, g.mapStripeError(err, "get account")
	}

	g.log(ctx, "response", "get_account", map[string]any{
		"account_id":      acct.ID,
		"payouts_enabled": acct.PayoutsEnabled,
	})
	return accountFromStripe(acct), nil
}

func (g *StripeGateway) GetPlatformBalance(ctx context.Context) (*Balance, error) {
	params := &stripe.BalanceParams{}
	params.Context = ctx
	g.log(ctx, "request", "get_platform_balance", nil)

	bal, err := balance.Get(params)
	if err != nil {
		g.log(ctx, "error", "get_platform_balance", map[string]any{"error": err.Error()})
		return nil, g.mapStripeError(err, "get platform balance")
	}
	return g.balanceFromStripe(bal), nil
}

func (g *StripeGateway) GetAccountBalance(ctx context.Context, accountID string) (*Balance, error) {
	params := &stripe.BalanceParams{}
	params.Context = ctx
	params.SetStripeAccount(accountID)
	g.log(ctx, "request", "get_account_balance", map[string]any{"account_id": accountID})

	bal, err := balance.Get(params)
	if err != nil {
		g.log(ctx, "error", "get_account_balance", map[string]any{"error": err.Error()})
		return nil, g.mapStripeError(err, "get account balance")
	}
	return g.balanceFromStripe(bal), nil
}

func (g *StripeGateway) CreateTransfer(ctx context.Context, accountID string, amountCents int64) (*Transfer, error) {
	params := &stripe.TransferParams{
		Amount:      stripe.Int64(amountCents),
		Currency:    stripe.String(g.currency),
		Destination: stripe.String(accountID),
	}
	params.Context = ctx
	g.log(ctx, "request", "create_transfer", map[string]any{
		"account_id":   accountID,
		"amount_cents": amountCents,
	})

	tr, err := transfer.New(params)
	if err != nil {
		g.log(ctx, "error", "create_transfer", map[string]any{"error": err.Error()})
		return nil, g.mapStripeError(err, "create transfer")
	}

	g.log(ctx, "response", "create_transfer", map[string]any{"transfer_id": tr.ID})
	return &Transfer{ID: tr.ID, AmountCents: tr.Amount, Currency: string(tr.Currency)}, nil
}

func (g *StripeGateway) CreatePayout(ctx context.Context, accountID string, amountCents int64) (*Payout, error) {
	params := &stripe.PayoutParams{
		Amount:   stripe.Int64(amountCents),
		Currency: stripe.String(g.currency),
	}
	params.Context = ctx
	params.SetStripeAccount(accountID)
	g.log(ctx, "request", "create_payout", map[string]any{
		"account_id":   accountID,
		"amount_cents": amountCents,
	})

	po, err := payout.New(params)
	if err != nil {
		g.log(ctx, "error", "create_payout", map[string]any{"error": err.Error()})
		return nil, g.mapStripeError(err, "create payout")
	}

	g.log(ctx, "response", "create_payout", map[string]any{
		"payout_id": po.ID,
		"status":    string(po.Status),
	})
	return &Payout{
		ID:          po.ID,
		AmountCents: po.Amount,
		Currency:    string(po.Currency),
		Status:      string(po.Status),
		ArrivalDate: time.Unix(po.ArrivalDate, 0).UTC(),
	}, nil
}

// HealthCheck reports configured=true for the live variant and probes the
// platform balance endpoint for reachability.
func (g *StripeGateway) HealthCheck(ctx context.Context) Health {
	params := &stripe.BalanceParams{}
	params.Context = ctx
	_, err := balance.Get(params)
	return Health{Configured: true, Operational: err == nil}
}

func (g *StripeGateway) log(ctx context.Context, phase, op string, fields map[string]any) {
	if g == nil || g.logger == nil {
		return
	}
	logFields := map[string]any{
		"operation": op,
		"phase":     phase,
	}
	for k, v := range fields {
		logFields[k] = v
	}
	ctx = g.logger.WithFields(ctx, logFields)
	switch phase {
	case "error":
		g.logger.Error(ctx, fmt.Sprintf("stripe %s", op), errors.New(fmt.Sprint(fields["error"])))
	default:
		g.logger.Info(ctx, fmt.Sprintf("stripe %s", phase))
	}
}

func (g *StripeGateway) mapStripeError(err error, op string) error {
	if err == nil {
		return nil
	}
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		code := pkgerrors.CodeProvider
		switch {
		case stripeErr.HTTPStatusCode == http.StatusUnauthorized:
			code = pkgerrors.CodeUnauthorized
		case stripeErr.Type == stripe.ErrorTypeIdempotency:
			code = pkgerrors.CodeIdempotency
		}
		return pkgerrors.Wrap(code, err, fmt.Sprintf("stripe %s failed", op))
	}
	return pkgerrors.Wrap(pkgerrors.CodeProvider, err, fmt.Sprintf("stripe %s failed", op))
}

func accountFromStripe(acct *stripe.Account) *Account {
	return &Account{
		ID:                 acct.ID,
		OnboardingComplete: acct.DetailsSubmitted,
		PayoutsEnabled:     acct.PayoutsEnabled,
		ChargesEnabled:     acct.ChargesEnabled,
		Country:            acct.Country,
		Currency:           string(acct.DefaultCurrency),
	}
}

func (g *StripeGateway) balanceFromStripe(bal *stripe.Balance) *Balance {
	out := &Balance{Currency: g.currency}
	for _, avail := range bal.Available {
		out.AvailableCents += avail.Amount
	}
	for _, pending := range bal.Pending {
		out.PendingCents += pending.Amount
	}
	if len(bal.Available) > 0 {
		out.Currency = string(bal.Available[0].Currency)
	}
	return out
}

func normalizeEnv(raw string) (string, error) {
	env := strings.TrimSpace(strings.ToLower(raw))
	if env == "" {
		env = testEnv
	}
	switch env {
	case testEnv, liveEnv:
		return env, nil
	default:
		return "", errInvalidStripeEnv
	}
}

func validateAPIKey(env, key string) error {
	switch env {
	case testEnv:
		if strings.HasPrefix(key, "sk_test") || strings.HasPrefix(key, "rk_test") {
			return nil
		}
		return fmt.Errorf("stripe environment %q requires a test secret key (sk_test/rk_test)", testEnv)
	case liveEnv:
		if strings.HasPrefix(key, "sk_live") || strings.HasPrefix(key, "rk_live") {
			return nil
		}
		return fmt.Errorf("stripe environment %q requires a live secret key (sk_live/rk_live)", liveEnv)
	default:
		return errInvalidStripeEnv
	}
}
