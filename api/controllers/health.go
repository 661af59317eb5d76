package controllers

import (
	"context"
	"net/http"

	"github.com/maximegiguere1one/garantiepro-sub004/api/responses"
	"github.com/maximegiguere1one/garantiepro-sub004/internal/rendering"
	"github.com/maximegiguere1one/garantiepro-sub004/pkg/config"
	pkgerrors "github.com/maximegiguere1one/garantiepro-sub004/pkg/errors"
	"github.com/maximegiguere1one/garantiepro-sub004/pkg/logger"
)

// Pinger is a dependency checked by the readiness endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// EngineWarmer loads the rendering engine.
type EngineWarmer interface {
	Ready(ctx context.Context) (*rendering.Engine, error)
	State() rendering.State
}

// ReadinessDeps are the dependencies HealthReady checks. Nil entries are
// skipped.
type ReadinessDeps struct {
	DB     Pinger
	Redis  Pinger
	Engine EngineWarmer
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Garantie-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings the stores and warms the rendering engine so the first
// generation request does not pay for the bootstrap.
func HealthReady(cfg *config.Config, deps ReadinessDeps, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Garantie-Env", cfg.App.Env)
		ctx := r.Context()

		if deps.DB != nil {
			if err := deps.DB.Ping(ctx); err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "database unavailable"))
				return
			}
		}
		if deps.Redis != nil {
			if err := deps.Redis.Ping(ctx); err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis unavailable"))
				return
			}
		}

		body := map[string]string{"status": "ready"}
		if deps.Engine != nil {
			if _, err := deps.Engine.Ready(ctx); err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
			body["engine"] = string(deps.Engine.State())
		}
		responses.WriteSuccess(w, body)
	}
}
