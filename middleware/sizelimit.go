// middleware/sizelimit.go
package middleware

import (
	"net/http"

	"github.com/dalemusser/mailcheck/httputil"
)

// LimitBodySize caps request bodies at maxBytes. Requests that announce a
// larger Content-Length are rejected with 413 before the handler runs;
// others are wrapped in http.MaxBytesReader. maxBytes <= 0 disables the
// limit.
func LimitBodySize(maxBytes int64) func(next http.Handler) http.Handler {
	if maxBytes <= 0 {
		return identity
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				httputil.JSONError(w, http.StatusRequestEntityTooLarge,
					"request_too_large",
					"request body too large",
				)
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
