package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default().Validate() should pass, got %v", err)
	}
	if cfg.Resolver.Timeout != 15*time.Second {
		t.Errorf("Resolver.Timeout = %v, want 15s", cfg.Resolver.Timeout)
	}
	if cfg.Server.Port != 3102 {
		t.Errorf("Server.Port = %d, want 3102", cfg.Server.Port)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"zero port", func(c *Config) { c.Server.Port = 0 }, true},
		{"port out of range", func(c *Config) { c.Server.Port = 70000 }, true},
		{"zero resolver timeout", func(c *Config) { c.Resolver.Timeout = 0 }, true},
		{"zero http timeout", func(c *Config) { c.Resolver.HTTPTimeout = 0 }, true},
		{"no platform hosts", func(c *Config) { c.Resolver.PlatformHosts = nil }, true},
		{"no detail placeholder", func(c *Config) {
			c.Resolver.DetailAPIURL = "https://example.com/api"
			c.Resolver.SharePageURL = "https://example.com/page"
		}, true},
		{"share page only", func(c *Config) { c.Resolver.DetailAPIURL = "" }, false},
		{"zero poll interval", func(c *Config) { c.Transcribe.PollInterval = 0 }, true},
		{"bad smtp port", func(c *Config) { c.Email.Port = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFeatureEnabled(t *testing.T) {
	cfg := Default()
	if cfg.Transcribe.Enabled() || cfg.AI.Enabled() || cfg.Feishu.Enabled() || cfg.Email.Enabled() {
		t.Fatal("no optional feature should be enabled by default")
	}

	cfg.Transcribe.AppID = "app"
	if cfg.Transcribe.Enabled() {
		t.Error("transcription needs both app id and access token")
	}
	cfg.Transcribe.AccessToken = "token"
	if !cfg.Transcribe.Enabled() {
		t.Error("transcription should be enabled")
	}

	cfg.AI.APIKey = "ark-key"
	if !cfg.AI.Enabled() {
		t.Error("AI should be enabled")
	}

	cfg.Feishu.AppID = "cli_a"
	cfg.Feishu.AppSecret = "secret"
	if !cfg.Feishu.Enabled() {
		t.Error("feishu should be enabled")
	}

	cfg.Email.Host = "smtp.example.com"
	if cfg.Email.Enabled() {
		t.Error("email needs a user")
	}
	cfg.Email.User = "bot@example.com"
	if !cfg.Email.Enabled() {
		t.Error("email should be enabled")
	}
}

func TestServerConfig_Address(t *testing.T) {
	tests := []struct {
		host string
		port int
		want string
	}{
		{"0.0.0.0", 3102, "0.0.0.0:3102"},
		{"localhost", 8080, "localhost:8080"},
		{"", 9000, ":9000"},
	}

	for _, tt := range tests {
		cfg := ServerConfig{Host: tt.host, Port: tt.port}
		if got := cfg.Address(); got != tt.want {
			t.Errorf("Address() = %q, want %q", got, tt.want)
		}
	}
}

func TestServerConfig_BaseURL(t *testing.T) {
	cfg := ServerConfig{Port: 3102}
	if got := cfg.BaseURL(); got != "http://127.0.0.1:3102" {
		t.Errorf("BaseURL() = %q", got)
	}

	cfg.PublicBaseURL = "https://dy.example.com/"
	if got := cfg.BaseURL(); got != "https://dy.example.com" {
		t.Errorf("BaseURL() = %q, want trailing slash trimmed", got)
	}
}

func TestLoad_FromYAMLFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
server:
  host: "127.0.0.1"
  port: 9000
resolver:
  timeout: 20s
  platform_hosts: ["douyin.example"]
  short_hosts: ["v.douyin.example"]
ai:
  api_key: "yaml-ark-key"
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Server.Host = %q, want %q", cfg.Server.Host, "127.0.0.1")
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Resolver.Timeout != 20*time.Second {
		t.Errorf("Resolver.Timeout = %v, want 20s", cfg.Resolver.Timeout)
	}
	if len(cfg.Resolver.ShortHosts) != 1 || cfg.Resolver.ShortHosts[0] != "v.douyin.example" {
		t.Errorf("Resolver.ShortHosts = %v", cfg.Resolver.ShortHosts)
	}
	// Untouched sections keep their defaults
	if cfg.Resolver.HTTPTimeout != 10*time.Second {
		t.Errorf("Resolver.HTTPTimeout = %v, want default 10s", cfg.Resolver.HTTPTimeout)
	}
	if !cfg.AI.Enabled() {
		t.Error("AI should be enabled from YAML")
	}
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
server:
  port: 9000
ai:
  model: "yaml-model"
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	t.Setenv("PORT", "9100")
	t.Setenv("ARK_MODEL", "env-model")
	t.Setenv("RESOLVER_SHORT_HOSTS", "v.douyin.com,v.iesdouyin.com")

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Server.Port != 9100 {
		t.Errorf("Server.Port = %d, want 9100 from env", cfg.Server.Port)
	}
	if cfg.AI.Model != "env-model" {
		t.Errorf("AI.Model = %q, want env-model", cfg.AI.Model)
	}
	if len(cfg.Resolver.ShortHosts) != 2 {
		t.Errorf("Resolver.ShortHosts = %v, want 2 entries", cfg.Resolver.ShortHosts)
	}
}

func TestLoad_EnvOnly(t *testing.T) {
	t.Setenv("VOLC_APP_ID", "app")
	t.Setenv("VOLC_ACCESS_TOKEN", "token")
	t.Setenv("RESOLVER_TIMEOUT", "5s")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if !cfg.Transcribe.Enabled() {
		t.Error("transcription should be enabled from env")
	}
	if cfg.Resolver.Timeout != 5*time.Second {
		t.Errorf("Resolver.Timeout = %v, want 5s", cfg.Resolver.Timeout)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	if err := os.WriteFile(configPath, []byte("server: [unclosed"), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	if _, err := Load(configPath); err == nil {
		t.Error("Load() should fail for invalid YAML")
	}
}

func TestLoad_NonexistentFile(t *testing.T) {
	if _, err := Load("/nonexistent/path/config.yaml"); err == nil {
		t.Error("Load() should fail for nonexistent file")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	t.Setenv("RESOLVER_TIMEOUT", "0s")

	if _, err := Load(""); err == nil {
		t.Error("Load() should fail validation with zero resolver timeout")
	}
}
