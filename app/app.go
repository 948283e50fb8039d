// app/app.go
package app

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/dalemusser/mailcheck/api"
	"github.com/dalemusser/mailcheck/config"
	"github.com/dalemusser/mailcheck/httputil"
	"github.com/dalemusser/mailcheck/logging"
	"github.com/dalemusser/mailcheck/metrics"
	"github.com/dalemusser/mailcheck/pantry/version"
	"github.com/dalemusser/mailcheck/router"
	"github.com/dalemusser/mailcheck/server"
)

// Name is used in startup logs.
const Name = "mailcheck"

// Run executes the service startup sequence and blocks until shutdown:
//
//  1. Bootstrap logger
//  2. Load config from args, env and files
//  3. Build final logger from config
//  4. Register metrics
//  5. Build the router and mount the API
//  6. Wire shutdown signals to a context
//  7. Serve HTTP(S) until the context ends
func Run(ctx context.Context, args []string) error {
	bootstrap := logging.BootstrapLogger()
	defer bootstrap.Sync()

	cfg, err := config.Load(bootstrap, args)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	bootstrap.Info("config loaded",
		zap.String("app", Name),
		zap.String("version", version.Get().String()),
		zap.String("env", cfg.Env),
		zap.String("log_level", cfg.LogLevel),
	)

	logger, err := logging.BuildLogger(cfg.LogLevel, cfg.Env)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer logger.Sync()
	logger.Debug("effective config", zap.String("config", cfg.Dump()))

	metrics.RegisterDefault(logger)
	httputil.SetJSONLogger(logger)

	handler := BuildHandler(cfg, logger)

	ctx, cancel := server.WithShutdownSignals(ctx, logger)
	defer cancel()

	if err := server.ListenAndServeWithContext(ctx, cfg, handler, logger); err != nil {
		logger.Error("server exited with error", zap.Error(err))
		return err
	}
	logger.Info("server stopped")
	return nil
}

// BuildHandler wires the router, middleware and API routes.
func BuildHandler(cfg *config.Config, logger *zap.Logger) http.Handler {
	r := router.New(cfg, logger)
	api.New(cfg, logger).Routes(r)
	return r
}
