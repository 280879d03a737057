package controllers

import (
	"net/http"

	"github.com/nqtuan-dev/vietshop-backend/api/responses"
	"github.com/nqtuan-dev/vietshop-backend/pkg/config"
	"github.com/nqtuan-dev/vietshop-backend/pkg/db"
	pkgerrors "github.com/nqtuan-dev/vietshop-backend/pkg/errors"
	"github.com/nqtuan-dev/vietshop-backend/pkg/logger"
	"github.com/nqtuan-dev/vietshop-backend/pkg/redis"
)

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-VietShop-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

func HealthReady(cfg *config.Config, logg *logger.Logger, dbP db.Pinger, redisP redis.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-VietShop-Env", cfg.App.Env)

		checks := map[string]string{}
		ready := true
		if dbP != nil {
			checks["db"] = "ok"
			if err := dbP.Ping(r.Context()); err != nil {
				checks["db"] = err.Error()
				ready = false
			}
		}
		if redisP != nil {
			checks["redis"] = "ok"
			if err := redisP.Ping(r.Context()); err != nil {
				checks["redis"] = err.Error()
				ready = false
			}
		}

		if !ready {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeDependency, "dependencies unavailable").WithDetails(checks))
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
