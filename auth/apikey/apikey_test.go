package apikey

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
})

func TestRequire(t *testing.T) {
	h := Require("s3cret", Options{}, nil)(ok)

	tests := []struct {
		name   string
		setup  func(r *http.Request)
		target string
		want   int
	}{
		{"no key", func(r *http.Request) {}, "/", http.StatusUnauthorized},
		{"bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer s3cret") }, "/", http.StatusNoContent},
		{"bearer lowercase", func(r *http.Request) { r.Header.Set("Authorization", "bearer s3cret") }, "/", http.StatusNoContent},
		{"wrong bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") }, "/", http.StatusUnauthorized},
		{"header", func(r *http.Request) { r.Header.Set("X-API-Key", "s3cret") }, "/", http.StatusNoContent},
		{"query not allowed", func(r *http.Request) {}, "/?api_key=s3cret", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			tt.setup(req)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusUnauthorized {
				assert.Equal(t, `Bearer realm="mailcheck"`, rec.Header().Get("WWW-Authenticate"))
				assert.Contains(t, rec.Body.String(), `"unauthorized"`)
			}
		})
	}
}

func TestRequire_Query(t *testing.T) {
	h := Require("s3cret", Options{AllowQuery: true, Realm: "api"}, nil)(ok)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/?api_key=s3cret", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRequire_EmptyKeyDisables(t *testing.T) {
	h := Require("  ", Options{}, nil)(ok)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
