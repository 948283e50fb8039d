// server/server.go
package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"strings"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/dalemusser/mailcheck/config"
)

// WithShutdownSignals returns a context that is canceled on SIGINT or
// SIGTERM. The returned cancel function also stops signal delivery.
func WithShutdownSignals(parent context.Context, logger *zap.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigCh:
			if logger != nil {
				logger.Info("shutdown signal received", zap.Any("signal", sig))
			}
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}

// ListenAndServeWithContext serves handler over HTTP, or over HTTPS plus
// an HTTP → HTTPS redirect on http_port, and blocks until ctx is canceled
// or a server fails. HTTPS certificates come from Let's Encrypt (HTTP-01,
// answered on the redirect listener) when use_lets_encrypt is set, and
// from cert_file/key_file otherwise.
func ListenAndServeWithContext(ctx context.Context, cfg *config.Config, handler http.Handler, logger *zap.Logger) error {
	if cfg == nil {
		return errors.New("ListenAndServeWithContext: cfg is nil")
	}
	if !cfg.HTTP.UseHTTPS {
		addr := ":" + strconv.Itoa(cfg.HTTP.HTTPPort)
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			return fmt.Errorf("listen http %s: %w", addr, err)
		}
		return Serve(ctx, cfg, handler, logger, ln)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	if cfg.TLS.UseLetsEncrypt {
		return serveACME(ctx, cfg, handler, logger)
	}

	if err := validateTLSFiles(cfg.TLS.CertFile, cfg.TLS.KeyFile); err != nil {
		if !errors.Is(err, errKeyPermissions) {
			return err
		}
		if cfg.Env == "prod" {
			return fmt.Errorf("production security: %w", err)
		}
		logger.Warn("TLS key file security warning (would block in prod)", zap.Error(err))
	}

	reloader, err := NewCertReloader(cfg.TLS.CertFile, cfg.TLS.KeyFile, logger)
	if err != nil {
		return err
	}

	httpsAddr := ":" + strconv.Itoa(cfg.HTTP.HTTPSPort)
	baseLn, err := net.Listen("tcp", httpsAddr)
	if err != nil {
		return fmt.Errorf("listen https %s: %w", httpsAddr, err)
	}
	ln := tls.NewListener(baseLn, &tls.Config{
		MinVersion:     tls.VersionTLS12,
		GetCertificate: reloader.GetCertificate,
	})

	redirectLn, err := listenRedirect(cfg)
	if err != nil {
		_ = ln.Close()
		return err
	}

	return serve(ctx, cfg, handler, logger, ln, redirectLn, httpRedirectHandler(cfg.HTTP.HTTPSPort))
}

// serveACME serves HTTPS with Let's Encrypt certificates. The HTTP
// listener answers HTTP-01 challenges, so it must be reachable on port 80.
func serveACME(ctx context.Context, cfg *config.Config, handler http.Handler, logger *zap.Logger) error {
	m := newACMEManager(cfg)
	if cfg.HTTP.HTTPPort != 80 {
		logger.Warn("HTTP-01 challenges arrive on port 80; make sure it forwards to http_port",
			zap.Int("http_port", cfg.HTTP.HTTPPort))
	}

	redirectLn, err := listenRedirect(cfg)
	if err != nil {
		return err
	}

	httpsAddr := ":" + strconv.Itoa(cfg.HTTP.HTTPSPort)
	baseLn, err := net.Listen("tcp", httpsAddr)
	if err != nil {
		_ = redirectLn.Close()
		return fmt.Errorf("listen https %s: %w", httpsAddr, err)
	}
	ln := tls.NewListener(baseLn, acmeTLSConfig(m))
	logger.Info("HTTPS via Let's Encrypt (http-01)", zap.String("domain", cfg.TLS.Domain))

	prewarmCert(ctx, m, cfg.TLS.Domain, logger)
	return serve(ctx, cfg, handler, logger, ln, redirectLn, acmeHTTPHandler(m, cfg.HTTP.HTTPSPort))
}

func listenRedirect(cfg *config.Config) (net.Listener, error) {
	addr := ":" + strconv.Itoa(cfg.HTTP.HTTPPort)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen http redirect %s: %w", addr, err)
	}
	return ln, nil
}

// Serve serves handler on ln until ctx is canceled, then shuts down
// gracefully within cfg.Timeouts.Shutdown.
func Serve(ctx context.Context, cfg *config.Config, handler http.Handler, logger *zap.Logger, ln net.Listener) error {
	return serve(ctx, cfg, handler, logger, ln, nil, nil)
}

// serve runs handler on ln and, when redirectLn is set, redirect on it.
func serve(ctx context.Context, cfg *config.Config, handler http.Handler, logger *zap.Logger, ln, redirectLn net.Listener, redirect http.Handler) error {
	if handler == nil {
		_ = ln.Close()
		if redirectLn != nil {
			_ = redirectLn.Close()
		}
		return errors.New("server: handler is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	srv := newHTTPServer(cfg, handler, logger)
	serveErr := make(chan error, 1)
	go func() { serveErr <- ignoreClosed(srv.Serve(ln)) }()
	logger.Info("server listening", zap.String("addr", ln.Addr().String()), zap.Bool("https", cfg.HTTP.UseHTTPS))

	var aux *http.Server
	var auxErr chan error // nil blocks forever in select
	if redirectLn != nil {
		aux = newHTTPServer(cfg, redirect, logger)
		auxErr = make(chan error, 1)
		go func() { auxErr <- ignoreClosed(aux.Serve(redirectLn)) }()
		logger.Info("HTTP → HTTPS redirect listening", zap.String("addr", redirectLn.Addr().String()))
	}

	shutdownAux := func(ctx context.Context) {
		if aux != nil {
			_ = aux.Shutdown(ctx)
		}
	}

	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down server…")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Timeouts.Shutdown)
			defer cancel()
			shutdownAux(shutdownCtx)
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("server shutdown: %w", err)
			}
			logger.Info("server stopped gracefully")
			return nil

		case err := <-serveErr:
			shutdownAux(context.Background())
			if err != nil {
				return fmt.Errorf("primary server error: %w", err)
			}
			return nil

		case err := <-auxErr:
			if err != nil {
				_ = srv.Close()
				return fmt.Errorf("redirect server error: %w", err)
			}
			aux, auxErr = nil, nil
		}
	}
}

func newHTTPServer(cfg *config.Config, handler http.Handler, logger *zap.Logger) *http.Server {
	srv := &http.Server{
		Handler:           handler,
		ReadTimeout:       cfg.Timeouts.Read,
		ReadHeaderTimeout: cfg.Timeouts.ReadHeader,
		WriteTimeout:      cfg.Timeouts.Write,
		IdleTimeout:       cfg.Timeouts.Idle,
	}
	// Route stdlib error logs into zap at Warn level.
	if stdlog, err := zap.NewStdLogAt(logger, zapcore.WarnLevel); err == nil {
		srv.ErrorLog = stdlog
	}
	return srv
}

func ignoreClosed(err error) error {
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// httpRedirectHandler sends every request to the same host and URI on
// the HTTPS port.
func httpRedirectHandler(httpsPort int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !isValidHost(r.Host) {
			http.Error(w, "Bad Request", http.StatusBadRequest)
			return
		}
		reqURI := r.URL.RequestURI()
		if !isValidRequestURI(reqURI) {
			http.Error(w, "Bad Request", http.StatusBadRequest)
			return
		}

		host := r.Host
		if h, _, err := net.SplitHostPort(host); err == nil {
			host = h
			if strings.Contains(host, ":") {
				host = "[" + host + "]"
			}
		}
		if httpsPort != 443 {
			host += ":" + strconv.Itoa(httpsPort)
		}
		http.Redirect(w, r, "https://"+host+reqURI, http.StatusMovedPermanently)
	})
}

func isValidRequestURI(uri string) bool {
	for _, c := range uri {
		if (c < 0x20 && c != '\t') || c == 0x7f {
			return false
		}
	}
	return true
}

// isValidHost rejects Host headers that could turn the redirect into an
// open redirect or header injection.
func isValidHost(host string) bool {
	if host == "" || strings.Contains(host, "://") || strings.HasPrefix(host, "/") {
		return false
	}

	hostPart := host
	if h, portStr, err := net.SplitHostPort(host); err == nil {
		hostPart = h
		if portStr != "" {
			port, perr := strconv.Atoi(portStr)
			if perr != nil || port <= 0 || port > 65535 {
				return false
			}
		}
	} else if strings.HasPrefix(hostPart, "[") && strings.HasSuffix(hostPart, "]") {
		hostPart = hostPart[1 : len(hostPart)-1]
		if net.ParseIP(strings.SplitN(hostPart, "%", 2)[0]) == nil {
			return false
		}
	}
	if hostPart == "" {
		return false
	}
	if strings.Contains(hostPart, ":") && net.ParseIP(strings.SplitN(hostPart, "%", 2)[0]) == nil {
		return false
	}

	for _, c := range hostPart {
		if c <= 0x20 || c == 0x7f || c == '/' || c == '\\' || c == '@' {
			return false
		}
	}
	return true
}

var errKeyPermissions = errors.New("overly permissive permissions")

func validateTLSFiles(certFile, keyFile string) error {
	if certFile == "" || keyFile == "" {
		return errors.New("use_https requires cert_file and key_file")
	}
	for _, f := range []struct{ kind, path string }{{"certificate", certFile}, {"key", keyFile}} {
		info, err := os.Stat(f.path)
		if err != nil {
			if os.IsNotExist(err) {
				return fmt.Errorf("TLS %s file does not exist: %s", f.kind, f.path)
			}
			return fmt.Errorf("cannot access TLS %s file %s: %w", f.kind, f.path, err)
		}
		if info.IsDir() {
			return fmt.Errorf("TLS %s path is a directory, not a file: %s", f.kind, f.path)
		}
		if f.kind == "key" && runtime.GOOS != "windows" && info.Mode().Perm()&0o077 != 0 {
			return fmt.Errorf("TLS key file %s has %w %o (recommended: 0600)", f.path, errKeyPermissions, info.Mode().Perm())
		}
	}
	return nil
}
