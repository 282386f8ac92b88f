package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/kileldylan/afrinet-project/internal/infra/api/apiv1"
	"github.com/kileldylan/afrinet-project/internal/infra/web"
)

// Pinger is satisfied by the pgx pool and the redis client.
type Pinger interface {
	Ping(ctx context.Context) error
}

type RouterConfig struct {
	RequestTimeout time.Duration
	CORSOrigin     string
	// Checks are named dependencies pinged by /health.
	Checks map[string]Pinger
}

// NewRouter assembles the public API, the admin API, /health and /metrics.
func NewRouter(cfg RouterConfig, public *apiv1.Server, admin *web.Server, logger *zerolog.Logger) http.Handler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	r := chi.NewRouter()
	r.Use(
		TraceID(logger),
		Recover(logger),
		RequestLog(logger),
		Metrics(),
		CORS(cfg.CORSOrigin),
		Timeout(cfg.RequestTimeout),
	)

	r.Get("/health", healthHandler(cfg.Checks))
	r.Handle("/metrics", promhttp.Handler())

	apiv1.RegisterAPIV1(r, public)
	if admin != nil {
		admin.RegisterRoutes(r)
	}
	return r
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func healthHandler(checks map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp := healthResponse{Status: "ok", Checks: map[string]string{}}
		code := http.StatusOK
		for name, p := range checks {
			if p == nil {
				continue
			}
			if err := p.Ping(ctx); err != nil {
				resp.Checks[name] = "down"
				resp.Status = "degraded"
				code = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "up"
		}
		apiv1.WriteJSON(w, code, resp)
	}
}
