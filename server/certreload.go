// server/certreload.go
package server

import (
	"crypto/tls"
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
)

// CertReloader serves a certificate from disk and picks up replacements
// (e.g. from an external renewal job) without a restart. The files are
// re-read when either modification time changes.
type CertReloader struct {
	certFile, keyFile string
	logger            *zap.Logger

	mu       sync.RWMutex
	cert     *tls.Certificate
	certMod  time.Time
	keyMod   time.Time
	lastStat time.Time
}

// statInterval bounds how often handshakes stat the files.
const statInterval = 10 * time.Second

// NewCertReloader loads the key pair once and fails if it is unusable.
func NewCertReloader(certFile, keyFile string, logger *zap.Logger) (*CertReloader, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &CertReloader{certFile: certFile, keyFile: keyFile, logger: logger}
	if err := r.reload(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *CertReloader) reload() error {
	certInfo, err := os.Stat(r.certFile)
	if err != nil {
		return fmt.Errorf("stat TLS cert: %w", err)
	}
	keyInfo, err := os.Stat(r.keyFile)
	if err != nil {
		return fmt.Errorf("stat TLS key: %w", err)
	}
	cert, err := tls.LoadX509KeyPair(r.certFile, r.keyFile)
	if err != nil {
		return fmt.Errorf("load TLS cert/key: %w", err)
	}

	r.mu.Lock()
	r.cert = &cert
	r.certMod = certInfo.ModTime()
	r.keyMod = keyInfo.ModTime()
	r.lastStat = time.Now()
	r.mu.Unlock()
	return nil
}

// changed reports whether either file was modified since the last load.
func (r *CertReloader) changed() bool {
	r.mu.RLock()
	recent := time.Since(r.lastStat) < statInterval
	certMod, keyMod := r.certMod, r.keyMod
	r.mu.RUnlock()
	if recent {
		return false
	}

	r.mu.Lock()
	r.lastStat = time.Now()
	r.mu.Unlock()

	ci, err := os.Stat(r.certFile)
	if err != nil {
		return false
	}
	ki, err := os.Stat(r.keyFile)
	if err != nil {
		return false
	}
	return !ci.ModTime().Equal(certMod) || !ki.ModTime().Equal(keyMod)
}

// GetCertificate is a tls.Config.GetCertificate callback. A failed reload
// keeps serving the previous certificate.
func (r *CertReloader) GetCertificate(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	if r.changed() {
		if err := r.reload(); err != nil {
			r.logger.Error("TLS certificate reload failed; keeping previous certificate", zap.Error(err))
		} else {
			r.logger.Info("TLS certificate reloaded", zap.String("cert_file", r.certFile))
		}
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cert, nil
}
