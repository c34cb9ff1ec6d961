package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/sportello-uk/sportello-backend/api/responses"
	"github.com/sportello-uk/sportello-backend/pkg/config"
	pkgerrors "github.com/sportello-uk/sportello-backend/pkg/errors"
	"github.com/sportello-uk/sportello-backend/pkg/logger"
)

const readyTimeout = 2 * time.Second

// Pinger is a dependency checked by the readiness probe.
type Pinger interface {
	Ping(context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Sportello-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings redis when sessions or idempotency depend on it. A nil
// pinger means the process runs without redis.
func HealthReady(cfg *config.Config, logg *logger.Logger, redisPinger Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Sportello-Env", cfg.App.Env)
		checks := map[string]string{"redis": "disabled"}
		if redisPinger != nil {
			ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
			defer cancel()
			if err := redisPinger.Ping(ctx); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis unavailable"))
				return
			}
			checks["redis"] = "ok"
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
