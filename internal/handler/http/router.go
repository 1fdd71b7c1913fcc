package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/findologic/plugin-shopware-5-sub000/pkg/health"
	"github.com/findologic/plugin-shopware-5-sub000/pkg/middleware"
)

const serviceName = "searchbridge"

// Access holds the request admission settings of the router.
type Access struct {
	// Per client budget of the storefront API; non-positive RPS disables it.
	RateLimitRPS   float64
	RateLimitBurst int
	// Browser origins allowed to call the storefront API.
	CORSOrigins []string
	// Client ranges allowed to pull the export; empty allows everyone.
	ExportCIDRs []string
	// Client ranges allowed to reach /debug/pprof; empty disables it.
	DebugCIDRs []string
	// Reverse proxies whose forwarded client address is believed.
	TrustedProxies []string
}

// NewRouter creates a chi router with all bridge routes registered.
func NewRouter(
	searchHandler *SearchHandler,
	exportHandler *ExportHandler,
	healthHandler *health.Handler,
	access Access,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.TrustedRealIP(access.TrustedProxies, logger))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Tracing(serviceName))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.PrometheusMetrics(serviceName))

	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(10 * time.Second))
		r.Use(middleware.RateLimit(access.RateLimitRPS, access.RateLimitBurst, logger))

		r.Route("/api/v1", func(r chi.Router) {
			// Mounted routers see every method, so preflights reach CORS.
			r.Use(middleware.CORS(middleware.CORSConfig{AllowedOrigins: access.CORSOrigins}))
			r.Get("/search", searchHandler.Search)
			r.Get("/search/request-url", searchHandler.RequestURL)
			r.Get("/navigation/{categoryID}", searchHandler.Navigation)
		})
	})

	// No request timeout on the export.
	r.Group(func(r chi.Router) {
		r.Use(middleware.IPAllowlist(access.ExportCIDRs, logger))
		r.Use(chimw.Compress(5, "application/xml"))
		r.Get("/export", exportHandler.Export)
	})

	middleware.RegisterPprof(r, access.DebugCIDRs, logger)

	return r
}
