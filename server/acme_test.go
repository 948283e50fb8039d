package server

import (
	"context"
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/acme"
	"golang.org/x/crypto/acme/autocert"

	"github.com/dalemusser/mailcheck/config"
)

func acmeConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := testConfig()
	cfg.HTTP = config.HTTPConfig{HTTPPort: 80, HTTPSPort: 443, UseHTTPS: true}
	cfg.TLS = config.TLSConfig{
		UseLetsEncrypt:      true,
		Domain:              "mail.example.com",
		LetsEncryptEmail:    "ops@example.com",
		LetsEncryptCacheDir: t.TempDir(),
	}
	return cfg
}

func TestNewACMEManager(t *testing.T) {
	cfg := acmeConfig(t)
	m := newACMEManager(cfg)

	assert.Equal(t, "ops@example.com", m.Email)
	assert.Equal(t, autocert.DirCache(cfg.TLS.LetsEncryptCacheDir), m.Cache)
	assert.Nil(t, m.Client, "production directory by default")

	ctx := context.Background()
	assert.NoError(t, m.HostPolicy(ctx, "mail.example.com"))
	assert.Error(t, m.HostPolicy(ctx, "other.example.com"))

	cfg.TLS.ACMEDirectoryURL = "https://acme-staging-v02.api.letsencrypt.org/directory"
	m = newACMEManager(cfg)
	require.NotNil(t, m.Client)
	assert.Equal(t, cfg.TLS.ACMEDirectoryURL, m.Client.DirectoryURL)
}

func TestACMETLSConfig(t *testing.T) {
	tlsCfg := acmeTLSConfig(newACMEManager(acmeConfig(t)))
	assert.Equal(t, uint16(tls.VersionTLS12), tlsCfg.MinVersion)
	assert.Contains(t, tlsCfg.NextProtos, acme.ALPNProto)
	assert.NotNil(t, tlsCfg.GetCertificate)
}

func TestACMEHTTPHandler(t *testing.T) {
	h := acmeHTTPHandler(newACMEManager(acmeConfig(t)), 443)

	tests := []struct {
		name   string
		target string
		want   int
		loc    string
	}{
		{"redirects api traffic", "http://mail.example.com/v1/check?x=1", http.StatusMovedPermanently, "https://mail.example.com/v1/check?x=1"},
		{"challenge for unknown host", "http://other.example.com/.well-known/acme-challenge/tok", http.StatusForbidden, ""},
		{"challenge without token", "http://mail.example.com/.well-known/acme-challenge/tok", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.target, nil))
			assert.Equal(t, tt.want, rec.Code)
			if tt.loc != "" {
				assert.Equal(t, tt.loc, rec.Header().Get("Location"))
			}
		})
	}
}

func TestWaitForCert_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := waitForCert(ctx, newACMEManager(acmeConfig(t)), "mail.example.com", time.Minute)
	assert.ErrorIs(t, err, context.Canceled)
}
