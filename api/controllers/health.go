package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/memorial-backend/api/responses"
	"github.com/angelmondragon/memorial-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/memorial-backend/pkg/errors"
	"github.com/angelmondragon/memorial-backend/pkg/logger"
)

// ReadinessChecker reports whether the database is reachable and migrated.
type ReadinessChecker interface {
	Check(ctx context.Context) error
}

// Pinger is an optional dependency pinged by the readiness endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Memorial-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady checks the store and, when configured, Redis. cache may be nil.
func HealthReady(cfg *config.Config, logg *logger.Logger, store ReadinessChecker, cache Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Memorial-Env", cfg.App.Env)
		ctx := r.Context()

		if store == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeStoreUnavailable, "store not configured"))
			return
		}
		if err := store.Check(ctx); err != nil {
			if pkgerrors.As(err) == nil {
				err = pkgerrors.Wrap(pkgerrors.CodeStoreUnavailable, err, "database not ready")
			}
			responses.WriteError(ctx, logg, w, err)
			return
		}

		status := map[string]string{"status": "ready", "database": "ok"}
		if cache != nil {
			if err := cache.Ping(ctx); err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis unavailable"))
				return
			}
			status["redis"] = "ok"
		}
		responses.WriteSuccess(w, status)
	}
}
