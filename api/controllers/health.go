package controllers

import (
	"net/http"

	"github.com/learnloom/learnloom-backend/api/responses"
	"github.com/learnloom/learnloom-backend/pkg/config"
	"github.com/learnloom/learnloom-backend/pkg/db"
	pkgerrors "github.com/learnloom/learnloom-backend/pkg/errors"
	"github.com/learnloom/learnloom-backend/pkg/logger"
	"github.com/learnloom/learnloom-backend/pkg/redis"
)

const envHeader = "X-LearnLoom-Env"

// HealthLive reports process liveness.
func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports readiness: the process can reach its backing stores.
func HealthReady(cfg *config.Config, logg *logger.Logger, store db.Pinger, cache redis.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)

		if store != nil {
			if err := store.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "database unreachable"))
				return
			}
		}
		if cache != nil {
			if err := cache.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis unreachable"))
				return
			}
		}

		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
