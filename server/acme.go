// server/acme.go
package server

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/acme"
	"golang.org/x/crypto/acme/autocert"

	"github.com/dalemusser/mailcheck/config"
)

// certPrewarmTimeout bounds the startup wait for the first certificate.
const certPrewarmTimeout = 60 * time.Second

// newACMEManager returns an autocert manager for the configured domain.
// Certificates are obtained over the HTTP-01 challenge and cached in
// lets_encrypt_cache_dir.
func newACMEManager(cfg *config.Config) *autocert.Manager {
	m := &autocert.Manager{
		Prompt:     autocert.AcceptTOS,
		HostPolicy: autocert.HostWhitelist(cfg.TLS.Domain),
		Cache:      autocert.DirCache(cfg.TLS.LetsEncryptCacheDir),
		Email:      cfg.TLS.LetsEncryptEmail,
	}
	if cfg.TLS.ACMEDirectoryURL != "" {
		m.Client = &acme.Client{DirectoryURL: cfg.TLS.ACMEDirectoryURL}
	}
	return m
}

// acmeTLSConfig serves certificates from m, including the tls-alpn-01
// protocol autocert advertises.
func acmeTLSConfig(m *autocert.Manager) *tls.Config {
	tlsCfg := m.TLSConfig()
	tlsCfg.MinVersion = tls.VersionTLS12
	return tlsCfg
}

// acmeHTTPHandler answers HTTP-01 challenges and redirects everything
// else to HTTPS.
func acmeHTTPHandler(m *autocert.Manager, httpsPort int) http.Handler {
	return m.HTTPHandler(httpRedirectHandler(httpsPort))
}

// waitForCert asks m for the domain's certificate until it is issued,
// timeout passes, or ctx ends.
func waitForCert(ctx context.Context, m *autocert.Manager, host string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	var lastErr error
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		_, err := m.GetCertificate(&tls.ClientHelloInfo{ServerName: host})
		if err == nil {
			return nil
		}
		lastErr = err

		if time.Now().After(deadline) {
			return fmt.Errorf("timeout waiting for cert for %q: %w", host, lastErr)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
		}
	}
}

// prewarmCert requests the certificate in the background so the first
// HTTPS clients do not wait on issuance.
func prewarmCert(ctx context.Context, m *autocert.Manager, domain string, logger *zap.Logger) {
	go func() {
		if err := waitForCert(ctx, m, domain, certPrewarmTimeout); err != nil {
			if ctx.Err() == nil {
				logger.Warn("autocert pre-warm failed; first HTTPS hits may see TLS errors", zap.Error(err))
			}
			return
		}
		logger.Info("certificate ready", zap.String("domain", domain))
	}()
}
