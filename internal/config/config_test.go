package config_test

import (
	"testing"
	"time"

	"github.com/bcnelson/console-cache/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("BACKEND_FILE_SHIM", "fixture.json")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Addr() != "0.0.0.0:8080" {
		t.Errorf("Expected 0.0.0.0:8080, got %s", cfg.Server.Addr())
	}
	if cfg.Sync.Debounce != 2*time.Second {
		t.Errorf("Expected 2s debounce, got %v", cfg.Sync.Debounce)
	}
	if !cfg.UseFileShim() {
		t.Error("Expected file shim to be used")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected valid config, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	base := func() *config.Config {
		return &config.Config{
			Database: config.DatabaseConfig{Driver: "memory"},
			Backend:  config.BackendConfig{URL: "http://backend", Token: "t"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *config.Config)
		wantErr bool
	}{
		{"valid", func(c *config.Config) {}, false},
		{"missing url", func(c *config.Config) { c.Backend.URL = "" }, true},
		{"shim without credentials", func(c *config.Config) { c.Backend = config.BackendConfig{FileShim: "f.json"} }, false},
		{"unknown driver", func(c *config.Config) { c.Database.Driver = "mysql" }, true},
		{"oidc without issuer", func(c *config.Config) { c.Auth.OIDCEnabled = true }, true},
		{"bad token pair", func(c *config.Config) { c.Auth.APITokens = "nope" }, true},
		{"negative debounce", func(c *config.Config) { c.Sync.Debounce = -time.Second }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(c)
			err := c.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Expected error=%v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestTokens(t *testing.T) {
	a := config.AuthConfig{APITokens: "abc=alice@example.com, def=bob@example.com"}
	tokens, err := a.Tokens()
	if err != nil {
		t.Fatalf("Tokens failed: %v", err)
	}
	if tokens["abc"] != "alice@example.com" || tokens["def"] != "bob@example.com" {
		t.Errorf("Unexpected tokens: %v", tokens)
	}
}

func TestAllowedDomains(t *testing.T) {
	a := config.AuthConfig{OIDCAllowedDomains: "example.com, corp.example.com"}
	got := a.AllowedDomains()
	if len(got) != 2 || got[1] != "corp.example.com" {
		t.Errorf("Unexpected domains: %v", got)
	}
	if (&config.AuthConfig{}).AllowedDomains() != nil {
		t.Error("Expected nil when unset")
	}
}
