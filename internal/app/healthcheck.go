package app

import (
	"context"
	"net/http"
	"time"

	"github.com/metinatakli/hospital-payments/api"
)

func (app *Application) GetHealth(w http.ResponseWriter, r *http.Request) {
	status := "UP"
	if !app.dependenciesReachable(r.Context()) {
		status = "DEGRADED"
	}

	systemInfo := api.SystemInfo{
		Version:     version,
		Environment: app.config.Env,
	}

	resp := api.HealthcheckResponse{
		Status:     status,
		SystemInfo: systemInfo,
	}

	err := app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// GetOpenAPI serves the embedded API description.
func (app *Application) GetOpenAPI(w http.ResponseWriter, r *http.Request) {
	if app.openapi == nil {
		app.notFoundResponse(w, r)
		return
	}

	err := app.writeJSON(w, http.StatusOK, app.openapi, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) dependenciesReachable(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	if app.db != nil {
		if err := app.db.Ping(ctx); err != nil {
			app.logger.Warn("database ping failed", "error", err)
			return false
		}
	}

	if app.redis != nil {
		if err := app.redis.Ping(ctx).Err(); err != nil {
			app.logger.Warn("redis ping failed", "error", err)
			return false
		}
	}

	return true
}
