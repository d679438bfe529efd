package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/refermate/partner-portal-backend/api/controllers"
	"github.com/refermate/partner-portal-backend/api/middleware"
	"github.com/refermate/partner-portal-backend/internal/partners"
	"github.com/refermate/partner-portal-backend/internal/payouts"
	"github.com/refermate/partner-portal-backend/pkg/config"
	"github.com/refermate/partner-portal-backend/pkg/enums"
	"github.com/refermate/partner-portal-backend/pkg/logger"
	"github.com/refermate/partner-portal-backend/pkg/redis"
)

// RouterParams groups everything the HTTP surface needs.
type RouterParams struct {
	Config      *config.Config
	Logger      *logger.Logger
	DB          controllers.Pinger
	Redis       *redis.Client
	PayoutsSvc  payouts.Service
	PartnersSvc partners.Service
}

func NewRouter(p RouterParams) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)

	readyDeps := map[string]controllers.Pinger{
		"db": p.DB,
	}
	var idempotencyStore redis.IdempotencyStore
	if p.Redis != nil {
		readyDeps["redis"] = p.Redis
		idempotencyStore = p.Redis
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readyDeps))
	})

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(idempotencyStore, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.PartnerContext(logg))

			r.Route("/payouts", func(r chi.Router) {
				r.Post("/", controllers.RequestPayout(p.PayoutsSvc, logg))
				r.Get("/", controllers.ListPayouts(p.PayoutsSvc, logg))
				r.Get("/stats", controllers.PartnerPayoutStats(p.PayoutsSvc, logg))
				r.Get("/{payoutID}", controllers.PayoutDetail(p.PayoutsSvc, logg))
			})
		})

		r.Route("/partners", func(r chi.Router) {
			r.With(middleware.RequireRole(string(enums.MemberRoleAdmin), logg)).
				Post("/", controllers.CreatePartner(p.PartnersSvc, logg))
			r.With(middleware.RequireAnyRole(logg, string(enums.MemberRoleAdmin), string(enums.MemberRoleOps))).
				Get("/", controllers.ListPartners(p.PartnersSvc, logg))

			r.Route("/{partnerID}", func(r chi.Router) {
				r.Get("/", controllers.PartnerDetail(p.PartnersSvc, logg))
				r.Post("/account", controllers.ProvisionAccount(p.PartnersSvc, logg))
				r.Get("/account", controllers.AccountStatus(p.PartnersSvc, logg))
				r.Post("/onboarding-link", controllers.OnboardingLink(p.PartnersSvc, logg))
				r.Post("/login-link", controllers.LoginLink(p.PartnersSvc, logg))
				r.Get("/balance", controllers.AccountBalance(p.PartnersSvc, logg))
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireAnyRole(logg, string(enums.MemberRoleAdmin), string(enums.MemberRoleOps)))

			r.Route("/payouts/{payoutID}", func(r chi.Router) {
				r.Get("/", controllers.PayoutDetail(p.PayoutsSvc, logg))
				r.Post("/actions", controllers.AdminPerformPayoutAction(p.PayoutsSvc, logg))
			})

			r.Route("/partners/{partnerID}", func(r chi.Router) {
				r.Get("/payouts", controllers.AdminListPartnerPayouts(p.PayoutsSvc, logg))
				r.Get("/payouts/stats", controllers.AdminPartnerPayoutStats(p.PayoutsSvc, logg))
			})

			r.Route("/provider", func(r chi.Router) {
				r.Get("/health", controllers.AdminProviderHealth(p.PartnersSvc, logg))
				r.Get("/balance", controllers.AdminPlatformBalance(p.PartnersSvc, logg))
			})
		})
	})

	return r
}
