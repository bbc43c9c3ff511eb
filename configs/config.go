package configs

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/i2y/oapiquery/pkg/security"
)

const envPrefix = "oapiquery"

// Transport kinds.
const (
	TransportHTTP     = "http"
	TransportFastHTTP = "fasthttp"
)

// Config holds the CLI configuration, merged from an optional YAML file and
// environment variables with the prefix "OAPIQUERY_". Environment variables win.
type Config struct {
	// ConfigFilePath is only read from the environment or passed to Load.
	ConfigFilePath string `yaml:"-" envconfig:"CONFIG_FILE"`

	// Document is a file path or http(s) URL of the OpenAPI document.
	Document string `yaml:"document" envconfig:"DOCUMENT"`
	// DocumentHeaders are sent when Document is fetched over HTTP.
	DocumentHeaders map[string]string `yaml:"document_headers" envconfig:"DOCUMENT_HEADERS"`
	// GitHubToken authenticates github:// document sources.
	GitHubToken  string `yaml:"github_token" envconfig:"GITHUB_TOKEN"`
	GitHubAPIURL string `yaml:"github_api_url" envconfig:"GITHUB_API_URL"`

	BaseURL string `yaml:"base_url" envconfig:"BASE_URL"`
	// Headers are default headers added to every call.
	Headers map[string]string `yaml:"headers" envconfig:"HEADERS"`

	SilentError    bool `yaml:"silent_error" envconfig:"SILENT_ERROR"`
	StrictEncoding bool `yaml:"strict_encoding" envconfig:"STRICT_ENCODING"`
	WarnOnCookies  bool `yaml:"warn_on_cookies" envconfig:"WARN_ON_COOKIES"`
	// ThrowOnSecurityMissing defaults to true when unset.
	ThrowOnSecurityMissing *bool `yaml:"throw_on_security_missing" envconfig:"THROW_ON_SECURITY_MISSING"`

	// Credentials are keyed by security scheme name.
	Credentials map[string]security.Credential `yaml:"credentials" ignored:"true"`

	Transport string        `yaml:"transport" envconfig:"TRANSPORT"`
	Timeout   time.Duration `yaml:"timeout" envconfig:"HTTP_CLIENT_TIMEOUT"`
	// RateLimit is requests per second. Zero disables limiting.
	RateLimit float64 `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
	RateBurst int     `yaml:"rate_burst" envconfig:"RATE_BURST"`

	OtelExporterOtlpEndpoint string `yaml:"otlp_endpoint" envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OtelExporterOtlpInsecure *bool  `yaml:"otlp_insecure" envconfig:"OTEL_EXPORTER_OTLP_INSECURE"`
	LogLevel                 string `yaml:"log_level" envconfig:"LOG_LEVEL"`
}

// ParsedLogLevel returns the slog.Level based on the configured LogLevel string.
func (c *Config) ParsedLogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ThrowOnMissingScheme reports whether unresolved security schemes fail a call.
func (c *Config) ThrowOnMissingScheme() bool {
	return c.ThrowOnSecurityMissing == nil || *c.ThrowOnSecurityMissing
}

// OtlpInsecure reports whether the OTLP exporter connects without TLS.
func (c *Config) OtlpInsecure() bool {
	return c.OtelExporterOtlpInsecure == nil || *c.OtelExporterOtlpInsecure
}

// Load reads the YAML file at path, or at OAPIQUERY_CONFIG_FILE when path is
// empty, then applies environment overrides and defaults. A missing path means
// environment only.
func Load(path string) (*Config, error) {
	var initialCfg Config
	if err := envconfig.Process(envPrefix, &initialCfg); err != nil {
		return nil, fmt.Errorf("failed to process initial environment variables: %w", err)
	}
	if path == "" {
		path = initialCfg.ConfigFilePath
	}

	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config file '%s': %w", path, err)
		}
		slog.Debug("Loaded configuration from file.", "path", path)
	}
	cfg.ConfigFilePath = path

	// Environment variables override file settings.
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process overriding environment variables: %w", err)
	}
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.Transport == "" {
		c.Transport = TransportHTTP
	}
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
	if c.RateLimit > 0 && c.RateBurst == 0 {
		c.RateBurst = 1
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

func (c *Config) validate() error {
	switch c.Transport {
	case TransportHTTP, TransportFastHTTP:
	default:
		return fmt.Errorf("unknown transport %q: want %q or %q", c.Transport, TransportHTTP, TransportFastHTTP)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("rate_limit must not be negative")
	}
	return nil
}
