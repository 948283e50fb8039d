// metrics/metrics.go
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// reqDuration is a histogram of HTTP request durations in seconds, labeled
// by route pattern, method, and status code.
var reqDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests.",
		Buckets: []float64{0.001, 0.01, 0.1, 0.3, 1.2, 5},
	},
	[]string{"path", "method", "status"},
)

// addressesChecked counts every address run through the validator.
var addressesChecked = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "mailcheck_addresses_checked_total",
		Help: "Addresses checked, by result (valid or invalid).",
	},
	[]string{"result"},
)

// providerMatches counts valid addresses whose domain belongs to a known
// personal provider. The label set is bounded by the provider table.
var providerMatches = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "mailcheck_provider_matches_total",
		Help: "Valid addresses hosted by a known personal email provider.",
	},
	[]string{"provider"},
)

// RegisterDefault registers the Go runtime and process collectors, the
// HTTP histogram and the mailcheck counters with the default registry.
// Calling it more than once is harmless.
func RegisterDefault(logger *zap.Logger) {
	mustRegister(logger, "Go collector", collectors.NewGoCollector())
	mustRegister(logger, "process collector", collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	mustRegister(logger, "HTTP request histogram", reqDuration)
	mustRegister(logger, "addresses checked counter", addressesChecked)
	mustRegister(logger, "provider matches counter", providerMatches)
}

// mustRegister registers c, ignoring AlreadyRegisteredError. Any other
// failure is fatal (or a panic without a logger).
func mustRegister(logger *zap.Logger, name string, c prometheus.Collector) {
	err := prometheus.Register(c)
	if err == nil {
		return
	}
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		return
	}
	if logger != nil {
		logger.Fatal("failed to register "+name, zap.Error(err))
	}
	panic("metrics: failed to register " + name + ": " + err.Error())
}

// RecordCheck counts one checked address. provider is the provider name
// for valid addresses on a known personal domain, "" otherwise.
func RecordCheck(valid bool, provider string) {
	if !valid {
		addressesChecked.WithLabelValues("invalid").Inc()
		return
	}
	addressesChecked.WithLabelValues("valid").Inc()
	if provider != "" {
		providerMatches.WithLabelValues(provider).Inc()
	}
}

// maxPathLabelLength bounds the path label for requests that did not
// match a route.
const maxPathLabelLength = 256

// HTTPMetrics records request duration into http_request_duration_seconds.
// The chi route pattern ("/v1/providers/{domain}") is used as the path
// label so path parameters do not blow up cardinality.
func HTTPMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		protoMajor := r.ProtoMajor
		if protoMajor < 1 {
			protoMajor = 1
		}
		ww := middleware.NewWrapResponseWriter(w, protoMajor)

		next.ServeHTTP(ww, r)

		// 0 means the handler never called WriteHeader, which net/http
		// turns into 200.
		statusCode := ww.Status()
		if statusCode == 0 {
			statusCode = http.StatusOK
		}
		if statusCode < 100 || statusCode > 599 {
			statusCode = http.StatusInternalServerError
		}

		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}
		if len(path) > maxPathLabelLength {
			path = truncateUTF8(path, maxPathLabelLength-3) + "..."
		}

		reqDuration.WithLabelValues(path, r.Method, strconv.Itoa(statusCode)).
			Observe(time.Since(start).Seconds())
	})
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// truncateUTF8 cuts s to at most maxBytes bytes on a rune boundary.
func truncateUTF8(s string, maxBytes int) string {
	if maxBytes <= 0 {
		return ""
	}
	if len(s) <= maxBytes {
		return s
	}
	for maxBytes > 0 && !utf8.RuneStart(s[maxBytes]) {
		maxBytes--
	}
	return s[:maxBytes]
}
