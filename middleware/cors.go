// middleware/cors.go
package middleware

import (
	"net/http"

	"github.com/go-chi/cors"

	"github.com/dalemusser/mailcheck/config"
)

// CORSFromConfig returns a go-chi/cors middleware built from cfg, or an
// identity middleware when CORS is disabled, so it is safe to call
// unconditionally:
//
//	r.Use(middleware.CORSFromConfig(cfg))
func CORSFromConfig(cfg *config.Config) func(next http.Handler) http.Handler {
	if cfg == nil || !cfg.CORS.EnableCORS {
		return identity
	}

	headers := cfg.CORS.CORSAllowedHeaders
	if len(headers) == 0 {
		headers = []string{"Accept", "Accept-Language", "Content-Type"}
	}

	return cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORS.CORSAllowedOrigins,
		AllowedMethods: cfg.CORS.CORSAllowedMethods,
		AllowedHeaders: headers,
		MaxAge:         cfg.CORS.CORSMaxAge,
	})
}

func identity(next http.Handler) http.Handler {
	return next
}
