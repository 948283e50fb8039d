// logging/logging.go
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// BootstrapLogger returns a development-friendly logger for early startup,
// before config is loaded. It logs at info to stderr.
func BootstrapLogger() *zap.Logger {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)

	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// IsValidLogLevel reports whether level names a zap level. Comparison is
// case-insensitive.
func IsValidLogLevel(level string) bool {
	_, err := zapcore.ParseLevel(strings.ToLower(level))
	return err == nil
}

// NewLogger builds a logger that writes to w. env "prod" selects the JSON
// encoder; anything else selects the console encoder. An unknown level is
// an error.
func NewLogger(level, env string, w io.Writer) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(strings.ToLower(level))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	var encCfg zapcore.EncoderConfig
	var enc zapcore.Encoder
	if env == "prod" {
		encCfg = zap.NewProductionEncoderConfig()
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		encCfg = zap.NewDevelopmentEncoderConfig()
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	}

	core := zapcore.NewCore(enc, zapcore.AddSync(w), lvl)
	return zap.New(core, zap.AddCaller(), zap.ErrorOutput(zapcore.AddSync(w))), nil
}

// BuildLogger constructs the service logger on stderr. An invalid level
// falls back to info with a warning on stderr so the misconfiguration is
// visible.
func BuildLogger(level, env string) (*zap.Logger, error) {
	if !IsValidLogLevel(level) {
		_, _ = fmt.Fprintf(os.Stderr, "WARNING: invalid log level %q; defaulting to \"info\".\n", level)
		level = "info"
	}
	return NewLogger(level, env, os.Stderr)
}

// MustBuildLogger is a convenience for main() that exits on failure.
func MustBuildLogger(level, env string) *zap.Logger {
	logger, err := BuildLogger(level, env)
	if err != nil {
		_, _ = os.Stderr.WriteString("failed to build logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	return logger
}
