// router/router.go
package router

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/dalemusser/mailcheck/config"
	"github.com/dalemusser/mailcheck/logging"
	"github.com/dalemusser/mailcheck/metrics"
	"github.com/dalemusser/mailcheck/middleware"
)

// QuietPaths are logged at debug by the request logger.
var QuietPaths = []string{"/healthz", "/metrics"}

// New creates a chi.Router with the standard middleware stack:
//   - RequestID, RealIP
//   - Recoverer (panic → JSON 500)
//   - API security headers
//   - CORS (when enabled)
//   - body size limit (max_request_body_bytes)
//   - metrics, request logging
//   - compression (when enabled)
//   - NotFound / MethodNotAllowed JSON handlers
//
// Routes are mounted by the caller.
func New(cfg *config.Config, logger *zap.Logger) chi.Router {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(logging.Recoverer(logger))
	r.Use(middleware.SecurityHeaders(middleware.APISecurityHeadersOptions()))
	r.Use(middleware.CORSFromConfig(cfg))
	r.Use(middleware.LimitBodySize(cfg.MaxRequestBodyBytes))
	r.Use(metrics.HTTPMetrics)
	r.Use(logging.RequestLogger(logger, QuietPaths...))
	r.Use(middleware.CompressFromConfig(cfg))

	r.NotFound(middleware.NotFoundHandler(logger))
	r.MethodNotAllowed(middleware.MethodNotAllowedHandler(logger))

	return r
}
