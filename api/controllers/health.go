package controllers

import (
	"context"
	"net/http"

	"github.com/refermate/partner-portal-backend/api/responses"
	"github.com/refermate/partner-portal-backend/pkg/config"
	pkgerrors "github.com/refermate/partner-portal-backend/pkg/errors"
	"github.com/refermate/partner-portal-backend/pkg/logger"
)

// Pinger reports reachability of a backing dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Refermate-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

func HealthReady(cfg *config.Config, logg *logger.Logger, deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Refermate-Env", cfg.App.Env)

		for name, dep := range deps {
			if dep == nil {
				continue
			}
			if err := dep.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.Wrap(pkgerrors.CodeDependency, err, "dependency unreachable").
						WithDetails(map[string]any{"dependency": name}))
				return
			}
		}

		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
