package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v9"
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Backend  BackendConfig
	Auth     AuthConfig
	Sync     SyncConfig
	Console  ConsoleConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string `env:"SERVER_HOST" envDefault:"0.0.0.0"`
	Port int    `env:"SERVER_PORT" envDefault:"8080"`
}

// DatabaseConfig holds the KV mirror configuration. The "memory" driver keeps
// everything in process.
type DatabaseConfig struct {
	Driver string `env:"DB_DRIVER" envDefault:"sqlite3"`
	DSN    string `env:"DB_DSN" envDefault:"data/console-cache.db"`
}

// BackendConfig holds the remote API configuration.
type BackendConfig struct {
	URL      string        `env:"BACKEND_URL"`
	Token    string        `env:"BACKEND_TOKEN"`
	Timeout  time.Duration `env:"BACKEND_TIMEOUT" envDefault:"30s"`
	FileShim string        `env:"BACKEND_FILE_SHIM"` // Path to a fixture file (disables the real API)
}

// AuthConfig holds principal authentication configuration.
type AuthConfig struct {
	OIDCEnabled        bool   `env:"OIDC_ENABLED" envDefault:"false"`
	OIDCIssuerURL      string `env:"OIDC_ISSUER_URL"`
	OIDCClientID       string `env:"OIDC_CLIENT_ID"`
	OIDCAllowedDomains string `env:"OIDC_ALLOWED_DOMAINS"` // Comma-separated; empty allows all
	APITokens          string `env:"API_TOKENS"`           // Comma-separated token=email pairs, used when OIDC is disabled
}

// AllowedDomains returns the allowed domains as a slice.
func (c *AuthConfig) AllowedDomains() []string {
	if c.OIDCAllowedDomains == "" {
		return nil
	}
	domains := strings.Split(c.OIDCAllowedDomains, ",")
	for i := range domains {
		domains[i] = strings.TrimSpace(domains[i])
	}
	return domains
}

// Tokens returns the static API tokens keyed by token.
func (c *AuthConfig) Tokens() (map[string]string, error) {
	tokens := make(map[string]string)
	if c.APITokens == "" {
		return tokens, nil
	}
	for _, pair := range strings.Split(c.APITokens, ",") {
		token, email, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || token == "" || email == "" {
			return nil, fmt.Errorf("API_TOKENS entries must be token=email, got %q", pair)
		}
		tokens[token] = email
	}
	return tokens, nil
}

// SyncConfig holds instance sync behavior configuration.
type SyncConfig struct {
	Debounce time.Duration `env:"SYNC_DEBOUNCE" envDefault:"2s"`
}

// ConsoleConfig holds settings of the console state.
type ConsoleConfig struct {
	// Query string seeding the view filter, e.g. `filter={"schema":"public"}`.
	StartupQuery string `env:"STARTUP_QUERY"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(&cfg.Server); err != nil {
		return nil, fmt.Errorf("parsing server config: %w", err)
	}
	if err := env.Parse(&cfg.Database); err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}
	if err := env.Parse(&cfg.Backend); err != nil {
		return nil, fmt.Errorf("parsing backend config: %w", err)
	}
	if err := env.Parse(&cfg.Auth); err != nil {
		return nil, fmt.Errorf("parsing auth config: %w", err)
	}
	if err := env.Parse(&cfg.Sync); err != nil {
		return nil, fmt.Errorf("parsing sync config: %w", err)
	}
	if err := env.Parse(&cfg.Console); err != nil {
		return nil, fmt.Errorf("parsing console config: %w", err)
	}

	return cfg, nil
}

// Addr returns the server address in host:port format.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	// If using file shim, backend credentials are not required
	if c.Backend.FileShim == "" {
		if c.Backend.URL == "" {
			return fmt.Errorf("BACKEND_URL is required (or set BACKEND_FILE_SHIM for testing)")
		}
		if c.Backend.Token == "" {
			return fmt.Errorf("BACKEND_TOKEN is required (or set BACKEND_FILE_SHIM for testing)")
		}
	}

	switch c.Database.Driver {
	case "memory", "sqlite3", "postgres":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}

	if c.Auth.OIDCEnabled {
		if c.Auth.OIDCIssuerURL == "" {
			return fmt.Errorf("OIDC_ISSUER_URL is required when OIDC is enabled")
		}
		if c.Auth.OIDCClientID == "" {
			return fmt.Errorf("OIDC_CLIENT_ID is required when OIDC is enabled")
		}
	} else if _, err := c.Auth.Tokens(); err != nil {
		return err
	}

	if c.Sync.Debounce < 0 {
		return fmt.Errorf("SYNC_DEBOUNCE must not be negative")
	}

	return nil
}

// UseFileShim returns true if the file shim should be used instead of the real API.
func (c *Config) UseFileShim() bool {
	return c.Backend.FileShim != ""
}
