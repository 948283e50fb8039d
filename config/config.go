// config/config.go
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/dalemusser/mailcheck/email"
	"github.com/dalemusser/mailcheck/pantry/validate"
)

// EnvPrefix is prepended to every key when read from the environment,
// e.g. MAILCHECK_HTTP_PORT.
const EnvPrefix = "MAILCHECK"

// HTTPConfig groups HTTP/HTTPS port and protocol settings.
type HTTPConfig struct {
	HTTPPort  int  `mapstructure:"http_port" json:"http_port"`
	HTTPSPort int  `mapstructure:"https_port" json:"https_port"`
	UseHTTPS  bool `mapstructure:"use_https" json:"use_https"`
}

// TLSConfig holds manual certificate paths or Let's Encrypt settings.
type TLSConfig struct {
	CertFile string `mapstructure:"cert_file" json:"cert_file"`
	KeyFile  string `mapstructure:"key_file" json:"key_file"`

	UseLetsEncrypt      bool   `mapstructure:"use_lets_encrypt" json:"use_lets_encrypt"`
	LetsEncryptEmail    string `mapstructure:"lets_encrypt_email" json:"lets_encrypt_email"`
	LetsEncryptCacheDir string `mapstructure:"lets_encrypt_cache_dir" json:"lets_encrypt_cache_dir"`
	Domain              string `mapstructure:"domain" json:"domain"`

	// ACMEDirectoryURL overrides the ACME endpoint, e.g. Let's Encrypt
	// staging. Empty uses production.
	ACMEDirectoryURL string `mapstructure:"acme_directory_url" json:"acme_directory_url"`
}

// TimeoutConfig holds the http.Server timeouts and the graceful shutdown
// window.
type TimeoutConfig struct {
	Read       time.Duration `mapstructure:"-" json:"read_timeout"`
	ReadHeader time.Duration `mapstructure:"-" json:"read_header_timeout"`
	Write      time.Duration `mapstructure:"-" json:"write_timeout"`
	Idle       time.Duration `mapstructure:"-" json:"idle_timeout"`
	Shutdown   time.Duration `mapstructure:"-" json:"shutdown_timeout"`
}

// CORSConfig groups all CORS behavior and lists.
type CORSConfig struct {
	EnableCORS         bool     `mapstructure:"enable_cors" json:"enable_cors"`
	CORSAllowedOrigins []string `mapstructure:"cors_allowed_origins" json:"cors_allowed_origins"`
	CORSAllowedMethods []string `mapstructure:"cors_allowed_methods" json:"cors_allowed_methods"`
	CORSAllowedHeaders []string `mapstructure:"cors_allowed_headers" json:"cors_allowed_headers"`
	CORSMaxAge         int      `mapstructure:"cors_max_age" json:"cors_max_age"`
}

// Config is the configuration of the mailcheck HTTP service.
type Config struct {
	Env      string `mapstructure:"env" json:"env"`             // "dev" | "prod"
	LogLevel string `mapstructure:"log_level" json:"log_level"` // debug, info, warn, error …

	HTTP     HTTPConfig    `mapstructure:",squash" json:"http"`
	TLS      TLSConfig     `mapstructure:",squash" json:"tls"`
	Timeouts TimeoutConfig `mapstructure:"-" json:"timeouts"`
	CORS     CORSConfig    `mapstructure:",squash" json:"cors"`

	MaxRequestBodyBytes int64 `mapstructure:"max_request_body_bytes" json:"max_request_body_bytes"`

	EnableCompression bool `mapstructure:"enable_compression" json:"enable_compression"`
	CompressionLevel  int  `mapstructure:"compression_level" json:"compression_level"` // 1..9

	// MaxBatchSize caps the number of addresses in one batch request.
	MaxBatchSize int `mapstructure:"max_batch_size" json:"max_batch_size"`

	// DefaultLocale is used for validation messages when a request carries
	// no usable Accept-Language header.
	DefaultLocale string `mapstructure:"default_locale" json:"default_locale"`

	// APIKey, when set, is required on every /v1 request.
	APIKey string `mapstructure:"api_key" json:"api_key"`

	// RateLimitRPS is requests per second per client IP on /v1; 0 disables.
	RateLimitRPS   float64 `mapstructure:"rate_limit_rps" json:"rate_limit_rps"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst" json:"rate_limit_burst"`
}

// Dump returns the config as indented JSON for debug logging, with the
// API key redacted.
func (c Config) Dump() string {
	if c.APIKey != "" {
		c.APIKey = "[redacted]"
	}
	b, _ := json.MarshalIndent(c, "", "  ")
	return string(b)
}

// durationKeys maps the timeout keys to their defaults.
var durationKeys = []struct {
	key string
	def time.Duration
	dst func(*TimeoutConfig) *time.Duration
}{
	{"read_timeout", 15 * time.Second, func(t *TimeoutConfig) *time.Duration { return &t.Read }},
	{"read_header_timeout", 10 * time.Second, func(t *TimeoutConfig) *time.Duration { return &t.ReadHeader }},
	{"write_timeout", 30 * time.Second, func(t *TimeoutConfig) *time.Duration { return &t.Write }},
	{"idle_timeout", 120 * time.Second, func(t *TimeoutConfig) *time.Duration { return &t.Idle }},
	{"shutdown_timeout", 15 * time.Second, func(t *TimeoutConfig) *time.Duration { return &t.Shutdown }},
}

// NewFlagSet returns the flags understood by Load. Only flags that are
// explicitly set override the environment and config files.
func NewFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)

	fs.String("env", "dev", `Runtime environment "dev"|"prod"`)
	fs.String("log_level", "info", "Log level")

	fs.Int("http_port", 8080, "HTTP port")
	fs.Int("https_port", 443, "HTTPS port")
	fs.Bool("use_https", false, "Serve HTTPS with cert_file/key_file")
	fs.String("cert_file", "", "TLS cert file")
	fs.String("key_file", "", "TLS key file")
	fs.Bool("use_lets_encrypt", false, "Obtain certificates from Let's Encrypt (http-01)")
	fs.String("lets_encrypt_email", "", "ACME account e-mail")
	fs.String("lets_encrypt_cache_dir", "letsencrypt-cache", "ACME cache dir")
	fs.String("domain", "", "Domain for Let's Encrypt certificates")
	fs.String("acme_directory_url", "", "ACME directory URL (empty = Let's Encrypt production)")

	for _, d := range durationKeys {
		fs.String(d.key, d.def.String(), fmt.Sprintf("%s (e.g. \"30s\", \"2m\")", strings.ReplaceAll(d.key, "_", " ")))
	}

	fs.Bool("enable_cors", false, "Enable CORS")
	fs.String("cors_allowed_origins", "", `JSON array of origins, e.g. '["https://a.example"]'`)
	fs.String("cors_allowed_methods", "", `JSON array of methods, e.g. '["GET","POST"]'`)
	fs.String("cors_allowed_headers", "", `JSON array of headers, e.g. '["Content-Type"]'`)
	fs.Int("cors_max_age", 0, "CORS: max age seconds (0 disables cache)")

	fs.Int64("max_request_body_bytes", 1<<20, "Max HTTP request body size in bytes (0 = unlimited)")
	fs.Bool("enable_compression", true, "Compress responses (gzip/deflate)")
	fs.Int("compression_level", 5, "Compression level 1..9")
	fs.Int("max_batch_size", 1000, "Max addresses per batch request")
	fs.String("default_locale", "en", "Locale for validation messages: "+strings.Join(validate.SupportedLocales, ", "))
	fs.String("api_key", "", "Require this key on /v1 requests (Bearer or X-API-Key)")
	fs.Float64("rate_limit_rps", 0, "Per-IP requests per second on /v1 (0 disables)")
	fs.Int("rate_limit_burst", 20, "Per-IP burst on /v1")

	return fs
}

// Load merges defaults → config.* file(s) → .env → env vars → explicit
// flags into one Config. Final precedence (highest wins):
// flags(explicit) > env > config > defaults.
//
// args are the command-line arguments without the program or command
// name. pflag.ErrHelp is returned unchanged when -h/--help is given.
func Load(logger *zap.Logger, args []string) (*Config, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	fs := NewFlagSet("serve")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return load(logger, fs)
}

func load(logger *zap.Logger, fs *pflag.FlagSet) (*Config, error) {
	// Optional .env; real env still wins over it.
	if err := godotenv.Load(); err == nil {
		logger.Info("loaded .env file")
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	for _, k := range allKeys() {
		_ = v.BindEnv(k)
	}

	for _, ext := range [...]string{"yaml", "yml", "json", "toml"} {
		file := "config." + ext
		b, err := os.ReadFile(file)
		if err != nil {
			continue
		}
		v.SetConfigType(ext)
		if err := v.MergeConfig(bytes.NewReader(b)); err != nil {
			return nil, fmt.Errorf("decode %s: %w", file, err)
		}
		logger.Info("loaded config file", zap.String("file", file))
	}

	setDefaults(v)

	fs.VisitAll(func(f *pflag.Flag) {
		if f.Changed {
			_ = v.BindPFlag(f.Name, f)
		}
	})

	if err := normalizeListKeys(logger, v,
		"cors_allowed_origins",
		"cors_allowed_methods",
		"cors_allowed_headers",
	); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	var badDurations []string
	for _, d := range durationKeys {
		dur, err := parseDurationFlexible(v.Get(d.key), d.def)
		if err != nil {
			badDurations = append(badDurations, fmt.Sprintf("%s: %v", d.key, err))
		}
		*d.dst(&cfg.Timeouts) = dur
	}

	if n, ok := email.Normalize(cfg.TLS.LetsEncryptEmail); ok {
		cfg.TLS.LetsEncryptEmail = n
	}

	if err := validateConfig(cfg, badDurations); err != nil {
		return nil, err
	}
	if cfg.Env == "prod" && strings.TrimSpace(cfg.APIKey) == "" {
		logger.Warn("api_key is empty; /v1 is open to any client")
	}
	return &cfg, nil
}

func allKeys() []string {
	keys := []string{
		"env", "log_level",
		"http_port", "https_port", "use_https",
		"cert_file", "key_file",
		"use_lets_encrypt", "lets_encrypt_email", "lets_encrypt_cache_dir",
		"domain", "acme_directory_url",
		"enable_cors",
		"cors_allowed_origins", "cors_allowed_methods", "cors_allowed_headers",
		"cors_max_age",
		"max_request_body_bytes", "max_batch_size", "default_locale",
		"enable_compression", "compression_level",
		"api_key", "rate_limit_rps", "rate_limit_burst",
	}
	for _, d := range durationKeys {
		keys = append(keys, d.key)
	}
	return keys
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "dev")
	v.SetDefault("log_level", "info")

	v.SetDefault("http_port", 8080)
	v.SetDefault("https_port", 443)
	v.SetDefault("use_https", false)
	v.SetDefault("cert_file", "")
	v.SetDefault("key_file", "")
	v.SetDefault("use_lets_encrypt", false)
	v.SetDefault("lets_encrypt_email", "")
	v.SetDefault("lets_encrypt_cache_dir", "letsencrypt-cache")
	v.SetDefault("domain", "")
	v.SetDefault("acme_directory_url", "")

	for _, d := range durationKeys {
		v.SetDefault(d.key, d.def.String())
	}

	v.SetDefault("enable_cors", false)
	v.SetDefault("cors_allowed_origins", []string{})
	v.SetDefault("cors_allowed_methods", []string{})
	v.SetDefault("cors_allowed_headers", []string{})
	v.SetDefault("cors_max_age", 0)

	v.SetDefault("max_request_body_bytes", int64(1<<20))
	v.SetDefault("enable_compression", true)
	v.SetDefault("compression_level", 5)
	v.SetDefault("max_batch_size", 1000)
	v.SetDefault("default_locale", "en")
	v.SetDefault("api_key", "")
	v.SetDefault("rate_limit_rps", 0.0)
	v.SetDefault("rate_limit_burst", 20)
}

// normalizeListKeys coerces JSON-string values into []string for the given keys.
func normalizeListKeys(logger *zap.Logger, v *viper.Viper, keys ...string) error {
	for _, key := range keys {
		switch t := v.Get(key).(type) {
		case string:
			s := strings.TrimSpace(t)
			if s == "" {
				v.Set(key, []string{})
				continue
			}
			var arr []string
			if err := json.Unmarshal([]byte(s), &arr); err != nil {
				return fmt.Errorf("config key %q expects a JSON array string, got %q: %w", key, s, err)
			}
			v.Set(key, arr)
		case []interface{}:
			arr := make([]string, 0, len(t))
			for _, e := range t {
				arr = append(arr, fmt.Sprint(e))
			}
			v.Set(key, arr)
		case []string, nil:
		default:
			logger.Warn("unexpected type for list key; expected JSON array/string",
				zap.String("key", key), zap.Any("value", t))
		}
	}
	return nil
}

func validateConfig(cfg Config, badDurations []string) error {
	var missing []string
	invalid := append([]string(nil), badDurations...)

	if cfg.Env != "dev" && cfg.Env != "prod" {
		invalid = append(invalid, `env must be "dev" or "prod"`)
	}
	if _, err := zapcore.ParseLevel(strings.ToLower(cfg.LogLevel)); err != nil {
		invalid = append(invalid, fmt.Sprintf("log_level %q is not a zap level", cfg.LogLevel))
	}

	if cfg.TLS.UseLetsEncrypt && !cfg.HTTP.UseHTTPS {
		invalid = append(invalid, "use_lets_encrypt=true requires use_https=true")
	}
	if cfg.TLS.UseLetsEncrypt && (strings.TrimSpace(cfg.TLS.CertFile) != "" || strings.TrimSpace(cfg.TLS.KeyFile) != "") {
		invalid = append(invalid, "use_lets_encrypt=true cannot be combined with cert_file/key_file")
	}
	if cfg.TLS.UseLetsEncrypt {
		if strings.TrimSpace(cfg.TLS.Domain) == "" {
			missing = append(missing, EnvPrefix+"_DOMAIN (or --domain) for Let's Encrypt")
		} else if _, ok := email.Domain("postmaster@" + cfg.TLS.Domain); !ok {
			invalid = append(invalid, fmt.Sprintf("domain %q is not a valid host name", cfg.TLS.Domain))
		}
		if strings.TrimSpace(cfg.TLS.LetsEncryptEmail) == "" {
			missing = append(missing, EnvPrefix+"_LETS_ENCRYPT_EMAIL (or --lets_encrypt_email)")
		} else if !email.Valid(cfg.TLS.LetsEncryptEmail) {
			invalid = append(invalid, "lets_encrypt_email must be a valid email address")
		}
		if strings.TrimSpace(cfg.TLS.LetsEncryptCacheDir) == "" {
			missing = append(missing, "lets_encrypt_cache_dir for Let's Encrypt")
		}
	}

	if cfg.HTTP.UseHTTPS && !cfg.TLS.UseLetsEncrypt {
		if strings.TrimSpace(cfg.TLS.CertFile) == "" || strings.TrimSpace(cfg.TLS.KeyFile) == "" {
			missing = append(missing, EnvPrefix+"_CERT_FILE and "+EnvPrefix+"_KEY_FILE (or --cert_file/--key_file) for manual TLS")
		}
	}

	if cfg.HTTP.HTTPPort <= 0 || cfg.HTTP.HTTPPort > 65535 {
		invalid = append(invalid, "http_port must be in 1..65535")
	}
	if cfg.HTTP.HTTPSPort <= 0 || cfg.HTTP.HTTPSPort > 65535 {
		invalid = append(invalid, "https_port must be in 1..65535")
	}
	if cfg.HTTP.UseHTTPS && cfg.HTTP.HTTPPort == cfg.HTTP.HTTPSPort {
		invalid = append(invalid, "http_port and https_port cannot be equal when use_https=true")
	}

	if cfg.CORS.EnableCORS {
		if len(cfg.CORS.CORSAllowedOrigins) == 0 {
			missing = append(missing, "CORS: cors_allowed_origins (JSON array) required when enable_cors=true")
		}
		if len(cfg.CORS.CORSAllowedMethods) == 0 {
			missing = append(missing, "CORS: cors_allowed_methods (JSON array) required when enable_cors=true")
		}
		if cfg.CORS.CORSMaxAge < 0 {
			invalid = append(invalid, "CORS: cors_max_age must be >= 0")
		}
	}

	if cfg.MaxRequestBodyBytes < 0 {
		invalid = append(invalid, "max_request_body_bytes must be >= 0")
	}
	if cfg.EnableCompression && (cfg.CompressionLevel < 1 || cfg.CompressionLevel > 9) {
		invalid = append(invalid, "compression_level must be in 1..9")
	}
	if cfg.MaxBatchSize < 1 {
		invalid = append(invalid, "max_batch_size must be >= 1")
	}
	if cfg.RateLimitRPS < 0 {
		invalid = append(invalid, "rate_limit_rps must be >= 0")
	}
	if cfg.RateLimitRPS > 0 && cfg.RateLimitBurst < 1 {
		invalid = append(invalid, "rate_limit_burst must be >= 1 when rate_limit_rps > 0")
	}
	if !supportedLocale(cfg.DefaultLocale) {
		invalid = append(invalid, fmt.Sprintf("default_locale must be one of %s", strings.Join(validate.SupportedLocales, ", ")))
	}

	if len(missing) == 0 && len(invalid) == 0 {
		return nil
	}

	var parts []string
	if len(missing) > 0 {
		parts = append(parts, "missing: "+strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		parts = append(parts, "invalid: "+strings.Join(invalid, ", "))
	}
	return fmt.Errorf("configuration errors: %s", strings.Join(parts, " | "))
}

func supportedLocale(loc string) bool {
	for _, l := range validate.SupportedLocales {
		if l == loc {
			return true
		}
	}
	return false
}
