package routes

import (
	"context"
	"net/http"
	"time"

	"storefront-agent/internal/logging"
)

type HealthResponse struct {
	Status   string `json:"status"`
	Service  string `json:"service"`
	Database string `json:"database,omitempty"`
}

// Pinger reports whether a backing service is reachable. *pgxpool.Pool satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports ok, or degraded with 503 when db is set and does not answer a ping.
func HealthHandler(serviceName string, db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := HealthResponse{Status: "ok", Service: serviceName}
		code := http.StatusOK

		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			resp.Database = "ok"
			if err := db.Ping(ctx); err != nil {
				logging.Warn(r.Context()).Err(err).Msg("health check: database unreachable")
				resp.Status = "degraded"
				resp.Database = "unreachable"
				code = http.StatusServiceUnavailable
			}
		}

		writeJSON(w, code, resp)
	}
}
