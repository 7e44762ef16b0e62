package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sapphire/internal/transport/http/shared"
)

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Health(ctx context.Context) error
}

// RouterDeps carries everything the router needs. Nil pingers are skipped by
// the health check (the memory backends have nothing to probe).
type RouterDeps struct {
	Handler  *Handler
	Logger   *slog.Logger
	Database Pinger
	Redis    Pinger
}

// NewRouter assembles the full HTTP surface: the authenticated /me routes plus
// the unauthenticated operational endpoints.
func NewRouter(deps RouterDeps) chi.Router {
	r := chi.NewRouter()

	r.Get("/healthz", healthHandler(deps))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	deps.Handler.Register(r)
	return r
}

func healthHandler(deps RouterDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		checks := map[string]string{}
		healthy := true
		for name, p := range map[string]Pinger{"database": deps.Database, "redis": deps.Redis} {
			if p == nil {
				continue
			}
			if err := p.Health(ctx); err != nil {
				checks[name] = "unreachable"
				healthy = false
				deps.Logger.WarnContext(ctx, "health check failed",
					"dependency", name,
					"error", err.Error(),
				)
				continue
			}
			checks[name] = "ok"
		}

		status := http.StatusOK
		state := "ok"
		if !healthy {
			status = http.StatusServiceUnavailable
			state = "degraded"
		}
		shared.WriteJSON(w, status, map[string]any{
			"status": state,
			"checks": checks,
		})
	}
}
