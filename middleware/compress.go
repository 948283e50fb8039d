// middleware/compress.go
package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/dalemusser/mailcheck/config"
)

// CompressibleTypes are the response types worth compressing: JSON
// results, CSV reports and the metrics exposition.
var CompressibleTypes = []string{
	"application/json",
	"text/csv",
	"text/plain",
}

// CompressFromConfig returns a compression middleware when
// cfg.EnableCompression is set and an identity middleware otherwise.
func CompressFromConfig(cfg *config.Config) func(next http.Handler) http.Handler {
	if cfg == nil || !cfg.EnableCompression {
		return identity
	}
	return Compress(cfg.CompressionLevel, CompressibleTypes...)
}

// Compress returns a gzip/deflate middleware for the given content types.
// Levels outside 1..9 are clamped.
func Compress(level int, types ...string) func(next http.Handler) http.Handler {
	level = min(max(level, 1), 9)
	return middleware.Compress(level, types...)
}
