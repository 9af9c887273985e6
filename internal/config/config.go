// ABOUTME: Configuration loading and parsing for lawmatics-mcp
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete lawmatics-mcp configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Lawmatics LawmaticsConfig `yaml:"lawmatics"`
	OAuth     OAuthConfig     `yaml:"oauth"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig holds the MCP server address configuration
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
}

// LawmaticsConfig holds the Lawmatics REST API configuration
type LawmaticsConfig struct {
	APIBaseURL string `yaml:"api_base_url"`

	RequestTimeout    time.Duration `yaml:"-"`
	RequestTimeoutRaw string        `yaml:"request_timeout"`
}

// OAuthConfig holds the OAuth client configuration for the Lawmatics
// authorization server
type OAuthConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RedirectURI  string `yaml:"redirect_uri"`
	AuthorizeURL string `yaml:"authorize_url"`
	TokenURL     string `yaml:"token_url"`
	Scope        string `yaml:"scope"`
	PKCE         bool   `yaml:"pkce"`

	RefreshRetries int `yaml:"refresh_retries"`

	ExpirySkew      time.Duration `yaml:"-"`
	RetryBackoff    time.Duration `yaml:"-"`
	ExpirySkewRaw   string        `yaml:"expiry_skew"`
	RetryBackoffRaw string        `yaml:"retry_backoff"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// AuthConfig holds inbound MCP endpoint authentication configuration
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyDefaults()

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// applyDefaults fills unset fields from the environment and built-in defaults.
// The LAWMATICS_* variables win over nothing but lose to explicit YAML values.
func (c *Config) applyDefaults() {
	if c.OAuth.ClientID == "" {
		c.OAuth.ClientID = os.Getenv("LAWMATICS_CLIENT_ID")
	}
	if c.OAuth.ClientSecret == "" {
		c.OAuth.ClientSecret = os.Getenv("LAWMATICS_CLIENT_SECRET")
	}
	if c.OAuth.RedirectURI == "" {
		c.OAuth.RedirectURI = os.Getenv("LAWMATICS_REDIRECT_URI")
	}
	if c.OAuth.RedirectURI == "" {
		c.OAuth.RedirectURI = "http://localhost:8888/callback"
	}
	if c.OAuth.Scope == "" {
		c.OAuth.Scope = "read write"
	}
	if c.Server.HTTPAddr == "" {
		c.Server.HTTPAddr = ":8080"
	}
	if c.Database.Path == "" {
		c.Database.Path = "data/lawmatics.db"
	}
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.OAuth.ClientID == "" {
		return fmt.Errorf("oauth.client_id is required (or set LAWMATICS_CLIENT_ID)")
	}
	if c.OAuth.ClientSecret == "" {
		return fmt.Errorf("oauth.client_secret is required (or set LAWMATICS_CLIENT_SECRET)")
	}
	if c.OAuth.RefreshRetries < 0 {
		return fmt.Errorf("oauth.refresh_retries must not be negative")
	}
	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Lawmatics.RequestTimeoutRaw != "" {
		cfg.Lawmatics.RequestTimeout, err = time.ParseDuration(cfg.Lawmatics.RequestTimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing request_timeout %q: %w", cfg.Lawmatics.RequestTimeoutRaw, err)
		}
	}

	if cfg.OAuth.ExpirySkewRaw != "" {
		cfg.OAuth.ExpirySkew, err = time.ParseDuration(cfg.OAuth.ExpirySkewRaw)
		if err != nil {
			return fmt.Errorf("parsing expiry_skew %q: %w", cfg.OAuth.ExpirySkewRaw, err)
		}
	}

	if cfg.OAuth.RetryBackoffRaw != "" {
		cfg.OAuth.RetryBackoff, err = time.ParseDuration(cfg.OAuth.RetryBackoffRaw)
		if err != nil {
			return fmt.Errorf("parsing retry_backoff %q: %w", cfg.OAuth.RetryBackoffRaw, err)
		}
	}

	return nil
}
