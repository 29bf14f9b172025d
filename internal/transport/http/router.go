package httptransport

import (
	"log/slog"
	"net/http"
	"net/netip"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"

	"eduhub/internal/credential/handler"
	"eduhub/internal/platform/health"
	"eduhub/internal/platform/metrics"
	"eduhub/pkg/platform/middleware/admin"
	"eduhub/pkg/platform/middleware/metadata"
	request "eduhub/pkg/platform/middleware/request"
	"eduhub/pkg/platform/middleware/requesttime"
)

// Config carries the transport settings the router needs.
type Config struct {
	RequestTimeout time.Duration
	MaxBodyBytes   int64
	TrustedProxies []netip.Prefix
	// AdminToken guards /admin routes. Empty disables them unless
	// AdminTokenHash is set.
	AdminToken     string
	AdminTokenHash string
}

// Deps are the collaborators mounted on the router.
type Deps struct {
	Claims   *handler.Handler
	Health   *health.Handler
	Registry *prometheus.Registry
	Clock    clockwork.Clock
	Logger   *slog.Logger
}

// NewRouter wires every endpoint behind the shared middleware stack.
func NewRouter(cfg Config, deps Deps) http.Handler {
	r := chi.NewRouter()
	logger := deps.Logger

	r.Use(request.Recovery(logger))
	r.Use(request.RequestID)
	r.Use(requesttime.Middleware(deps.Clock))
	r.Use(metadata.NewMiddleware(cfg.TrustedProxies).Handler)
	r.Use(request.Logger(logger))
	r.Use(request.BodyLimit(cfg.MaxBodyBytes))
	r.Use(request.ContentTypeJSON)
	r.Use(request.Timeout(cfg.RequestTimeout))
	r.Use(request.LatencyMiddleware(request.NewMetrics(deps.Registry)))

	deps.Health.Register(r)
	r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Registry))

	deps.Claims.Register(r)
	r.Group(func(r chi.Router) {
		if cfg.AdminTokenHash != "" {
			r.Use(admin.RequireAdminTokenHash(cfg.AdminTokenHash, logger))
		} else {
			r.Use(admin.RequireAdminToken(cfg.AdminToken, logger))
		}
		deps.Claims.RegisterAdmin(r)
	})

	return r
}
