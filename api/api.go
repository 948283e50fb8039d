// Package api exposes the email checks over HTTP.
package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/dalemusser/mailcheck/auth/apikey"
	"github.com/dalemusser/mailcheck/config"
	"github.com/dalemusser/mailcheck/email"
	"github.com/dalemusser/mailcheck/httputil"
	"github.com/dalemusser/mailcheck/metrics"
	"github.com/dalemusser/mailcheck/middleware"
	"github.com/dalemusser/mailcheck/pantry/export"
	"github.com/dalemusser/mailcheck/pantry/ratelimit"
	"github.com/dalemusser/mailcheck/pantry/validate"
	"github.com/dalemusser/mailcheck/pantry/version"
	"github.com/dalemusser/mailcheck/report"
)

// Handler serves the mailcheck API.
type Handler struct {
	logger        *zap.Logger
	maxBatch      int
	defaultLocale string
	validators    map[string]*validate.Validator

	apiKey    string
	rateLimit ratelimit.Config
}

// New returns a Handler configured from cfg.
func New(cfg *config.Config, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Handler{
		logger:        logger,
		maxBatch:      cfg.MaxBatchSize,
		defaultLocale: cfg.DefaultLocale,
		validators:    make(map[string]*validate.Validator, len(validate.SupportedLocales)),
		apiKey:        cfg.APIKey,
		rateLimit: ratelimit.Config{
			Rate:   cfg.RateLimitRPS,
			Burst:  cfg.RateLimitBurst,
			Logger: logger,
		},
	}
	for _, loc := range validate.SupportedLocales {
		h.validators[loc] = validate.New(validate.WithLocale(loc))
	}
	return h
}

// Routes mounts the API on r. /healthz, /version and /metrics stay open; /v1 is
// rate limited and requires the API key when they are configured.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/healthz", h.health)
	r.Method(http.MethodGet, "/version", version.Handler())
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		if h.rateLimit.Rate > 0 {
			r.Use(ratelimit.Middleware(h.rateLimit))
		}
		r.Use(apikey.Require(h.apiKey, apikey.Options{}, h.logger))

		r.With(middleware.RequireJSON()).Post("/check", h.check)
		r.With(middleware.RequireJSON()).Post("/check/batch", h.checkBatch)
		r.Get("/providers", h.listProviders)
		r.Get("/providers/{domain}", h.getProvider)
	})
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type checkRequest struct {
	Email string `json:"email" validate:"required"`
}

func (h *Handler) check(w http.ResponseWriter, r *http.Request) {
	var req checkRequest
	if !h.bind(w, r, &req) {
		return
	}

	entry := report.Check(req.Email)
	metrics.RecordCheck(entry.Valid, entry.Provider)
	httputil.WriteJSON(w, http.StatusOK, entry)
}

type batchRequest struct {
	Emails []string `json:"emails" validate:"required"`
}

type batchResponse struct {
	Results    []report.Entry `json:"results"`
	Valid      []string       `json:"valid"`
	Normalized []string       `json:"normalized"`
	CountValid int            `json:"count_valid"`
	AnyValid   bool           `json:"any_valid"`
	Summary    report.Summary `json:"summary"`
}

// checkBatch answers JSON by default; ?format=csv or ?format=xlsx returns
// the results as a file download.
func (h *Handler) checkBatch(w http.ResponseWriter, r *http.Request) {
	format := strings.ToLower(r.URL.Query().Get("format"))
	switch format {
	case "", "json", "csv", "xlsx":
	default:
		httputil.JSONError(w, http.StatusBadRequest, "invalid_format", "format must be json, csv or xlsx")
		return
	}

	var req batchRequest
	if !h.bind(w, r, &req) {
		return
	}
	v := h.validatorFor(r)
	if err := v.VarField(req.Emails, "emails", "max="+strconv.Itoa(h.maxBatch)); err != nil {
		h.validationFailed(w, err)
		return
	}

	entries := report.Build(req.Emails)
	for _, e := range entries {
		metrics.RecordCheck(e.Valid, e.Provider)
	}
	summary := report.Summarize(entries)

	switch format {
	case "csv":
		if err := export.Entries(entries).ServeHTTP(w, "mailcheck.csv"); err != nil {
			h.logger.Warn("write csv response", zap.Error(err))
		}
		return
	case "xlsx":
		x := export.EntriesExcel(entries, summary)
		defer x.Close()
		b, err := x.Bytes()
		if err != nil {
			h.logger.Error("build xlsx", zap.Error(err))
			httputil.JSONError(w, http.StatusInternalServerError, "internal_error", "could not build spreadsheet")
			return
		}
		w.Header().Set("Content-Type", export.XLSXContentType)
		w.Header().Set("Content-Disposition", `attachment; filename="mailcheck.xlsx"`)
		_, _ = w.Write(b)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, batchResponse{
		Results:    entries,
		Valid:      email.FilterValid(req.Emails),
		Normalized: email.NormalizeAll(req.Emails),
		CountValid: email.CountValid(req.Emails),
		AnyValid:   email.AnyValid(req.Emails),
		Summary:    summary,
	})
}

func (h *Handler) listProviders(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, email.Providers())
}

func (h *Handler) getProvider(w http.ResponseWriter, r *http.Request) {
	domain := strings.ToLower(chi.URLParam(r, "domain"))
	name, ok := email.ProviderForDomain(domain)
	if !ok {
		httputil.JSONError(w, http.StatusNotFound, "unknown_provider", "no personal email provider is known for "+domain)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, email.ProviderEntry{Domain: domain, Name: name})
}

// bind decodes and validates the body into dst. It writes the error
// response and returns false on failure.
func (h *Handler) bind(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := httputil.BindJSON(r, dst); err != nil {
		if errors.Is(err, httputil.ErrBodyTooLarge) {
			httputil.JSONError(w, http.StatusRequestEntityTooLarge, "request_too_large", err.Error())
			return false
		}
		httputil.JSONError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return false
	}
	if err := h.validatorFor(r).Struct(dst); err != nil {
		h.validationFailed(w, err)
		return false
	}
	return true
}

func (h *Handler) validationFailed(w http.ResponseWriter, err error) {
	var errs validate.Errors
	if !errors.As(err, &errs) {
		httputil.JSONError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	httputil.JSONErrorDetails(w, http.StatusUnprocessableEntity, "validation_failed", errs.First().Message, errs.ToMap())
}

// validatorFor picks the validator matching the request's
// Accept-Language, or the default locale when the header is absent.
func (h *Handler) validatorFor(r *http.Request) *validate.Validator {
	loc := h.defaultLocale
	if al := r.Header.Get("Accept-Language"); al != "" {
		loc = validate.MatchLocale(al)
	}
	if v, ok := h.validators[loc]; ok {
		return v
	}
	return h.validators[validate.SupportedLocales[0]]
}
