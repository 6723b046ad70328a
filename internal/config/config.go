package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// MobileUserAgent is the browser profile the platform serves full pages to.
const MobileUserAgent = "Mozilla/5.0 (Linux; Android 8.0.0; SM-G955U Build/R16NW) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/116.0.0.0 Mobile Safari/537.36"

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
	Resolver   ResolverConfig   `yaml:"resolver"`
	Download   DownloadConfig   `yaml:"download"`
	Transcribe TranscribeConfig `yaml:"transcribe"`
	AI         AIConfig         `yaml:"ai"`
	Feishu     FeishuConfig     `yaml:"feishu"`
	Email      EmailConfig      `yaml:"email"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host         string        `yaml:"host" envconfig:"SERVER_HOST"`
	Port         int           `yaml:"port" envconfig:"PORT"`
	APIKey       string        `yaml:"api_key" envconfig:"API_KEY"`
	ReadTimeout  time.Duration `yaml:"read_timeout" envconfig:"SERVER_READ_TIMEOUT"`
	WriteTimeout time.Duration `yaml:"write_timeout" envconfig:"SERVER_WRITE_TIMEOUT"`
	// PublicBaseURL is how third-party vendors reach the download proxy.
	PublicBaseURL string `yaml:"public_base_url" envconfig:"PUBLIC_BASE_URL"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level      string `yaml:"level" envconfig:"LOG_LEVEL"`
	File       string `yaml:"file" envconfig:"LOG_FILE"`
	MaxSizeMB  int    `yaml:"max_size_mb" envconfig:"LOG_MAX_SIZE_MB"`
	MaxBackups int    `yaml:"max_backups" envconfig:"LOG_MAX_BACKUPS"`
}

// ResolverConfig holds link resolution configuration.
type ResolverConfig struct {
	Timeout       time.Duration `yaml:"timeout" envconfig:"RESOLVER_TIMEOUT"`
	HTTPTimeout   time.Duration `yaml:"http_timeout" envconfig:"RESOLVER_HTTP_TIMEOUT"`
	UserAgent     string        `yaml:"user_agent" envconfig:"RESOLVER_USER_AGENT"`
	Referer       string        `yaml:"referer" envconfig:"RESOLVER_REFERER"`
	PlatformHosts []string      `yaml:"platform_hosts" envconfig:"RESOLVER_PLATFORM_HOSTS"`
	ShortHosts    []string      `yaml:"short_hosts" envconfig:"RESOLVER_SHORT_HOSTS"`
	DetailAPIURL  string        `yaml:"detail_api_url" envconfig:"RESOLVER_DETAIL_API_URL"`
	SharePageURL  string        `yaml:"share_page_url" envconfig:"RESOLVER_SHARE_PAGE_URL"`
}

// DownloadConfig holds download proxy configuration.
type DownloadConfig struct {
	HeaderTimeout time.Duration `yaml:"header_timeout" envconfig:"DOWNLOAD_HEADER_TIMEOUT"`
	ReadTimeout   time.Duration `yaml:"read_timeout" envconfig:"DOWNLOAD_READ_TIMEOUT"`
	RetryDelay    time.Duration `yaml:"retry_delay" envconfig:"DOWNLOAD_RETRY_DELAY"`
	MaxRetryDelay time.Duration `yaml:"max_retry_delay" envconfig:"DOWNLOAD_MAX_RETRY_DELAY"`
	MaxAttempts   int           `yaml:"max_attempts" envconfig:"DOWNLOAD_MAX_ATTEMPTS"`
	UserAgent     string        `yaml:"user_agent" envconfig:"DOWNLOAD_USER_AGENT"`
	Referer       string        `yaml:"referer" envconfig:"DOWNLOAD_REFERER"`
}

// TranscribeConfig holds Volcengine speech recognition configuration.
type TranscribeConfig struct {
	AppID        string        `yaml:"app_id" envconfig:"VOLC_APP_ID"`
	AccessToken  string        `yaml:"access_token" envconfig:"VOLC_ACCESS_TOKEN"`
	BaseURL      string        `yaml:"base_url" envconfig:"VOLC_BASE_URL"`
	ResourceID   string        `yaml:"resource_id" envconfig:"VOLC_RESOURCE_ID"`
	PollInterval time.Duration `yaml:"poll_interval" envconfig:"VOLC_POLL_INTERVAL"`
	Timeout      time.Duration `yaml:"timeout" envconfig:"VOLC_TIMEOUT"`
}

// AIConfig holds Volcengine Ark (LLM) configuration.
type AIConfig struct {
	APIKey  string        `yaml:"api_key" envconfig:"ARK_API_KEY"`
	BaseURL string        `yaml:"base_url" envconfig:"ARK_BASE_URL"`
	Model   string        `yaml:"model" envconfig:"ARK_MODEL"`
	Timeout time.Duration `yaml:"timeout" envconfig:"ARK_TIMEOUT"`
}

// FeishuConfig holds Feishu document store configuration.
type FeishuConfig struct {
	AppID       string        `yaml:"app_id" envconfig:"FEISHU_APP_ID"`
	AppSecret   string        `yaml:"app_secret" envconfig:"FEISHU_APP_SECRET"`
	FolderToken string        `yaml:"folder_token" envconfig:"FEISHU_FOLDER_TOKEN"`
	BaseURL     string        `yaml:"base_url" envconfig:"FEISHU_BASE_URL"`
	DocBaseURL  string        `yaml:"doc_base_url" envconfig:"FEISHU_DOC_BASE_URL"`
	Timeout     time.Duration `yaml:"timeout" envconfig:"FEISHU_TIMEOUT"`
}

// EmailConfig holds SMTP configuration.
type EmailConfig struct {
	Host     string `yaml:"host" envconfig:"SMTP_HOST"`
	Port     int    `yaml:"port" envconfig:"SMTP_PORT"`
	User     string `yaml:"user" envconfig:"SMTP_USER"`
	Password string `yaml:"password" envconfig:"SMTP_PASS"`
	From     string `yaml:"from" envconfig:"EMAIL_FROM"`
	To       string `yaml:"to" envconfig:"EMAIL_TO"`
}

// Default returns a configuration populated with built-in defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         3102,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 5 * time.Minute,
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 5,
		},
		Resolver: ResolverConfig{
			Timeout:       15 * time.Second,
			HTTPTimeout:   10 * time.Second,
			UserAgent:     MobileUserAgent,
			Referer:       "https://www.douyin.com/",
			PlatformHosts: []string{"douyin.com", "iesdouyin.com"},
			ShortHosts:    []string{"v.douyin.com"},
			DetailAPIURL:  "https://www.iesdouyin.com/web/api/v2/aweme/iteminfo/?item_ids=%s",
			SharePageURL:  "https://www.iesdouyin.com/share/video/%s/",
		},
		Download: DownloadConfig{
			HeaderTimeout: 30 * time.Second,
			ReadTimeout:   60 * time.Second,
			RetryDelay:    time.Second,
			MaxRetryDelay: 10 * time.Second,
			MaxAttempts:   3,
			UserAgent:     MobileUserAgent,
			Referer:       "https://www.douyin.com/",
		},
		Transcribe: TranscribeConfig{
			BaseURL:      "https://openspeech.bytedance.com/api/v3/auc/bigmodel",
			ResourceID:   "volc.bigasr.auc",
			PollInterval: 2 * time.Second,
			Timeout:      3 * time.Minute,
		},
		AI: AIConfig{
			BaseURL: "https://ark.cn-beijing.volces.com/api/v3",
			Model:   "doubao-1-5-pro-32k-250115",
			Timeout: 60 * time.Second,
		},
		Feishu: FeishuConfig{
			BaseURL:    "https://open.feishu.cn/open-apis",
			DocBaseURL: "https://feishu.cn/docx/",
			Timeout:    30 * time.Second,
		},
		Email: EmailConfig{
			Port: 465,
		},
	}
}

// Load reads configuration from defaults, an optional YAML file, an optional
// .env file and environment variables, in increasing order of precedence.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	// Load from YAML file if provided
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	// .env never overrides variables already present in the environment
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	// Override with environment variables
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that configuration values are usable.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Resolver.Timeout <= 0 {
		return fmt.Errorf("RESOLVER_TIMEOUT must be positive")
	}
	if c.Resolver.HTTPTimeout <= 0 {
		return fmt.Errorf("RESOLVER_HTTP_TIMEOUT must be positive")
	}
	if len(c.Resolver.PlatformHosts) == 0 {
		return fmt.Errorf("RESOLVER_PLATFORM_HOSTS is required")
	}
	if !strings.Contains(c.Resolver.DetailAPIURL, "%s") && !strings.Contains(c.Resolver.SharePageURL, "%s") {
		return fmt.Errorf("at least one detail endpoint must contain a %%s placeholder for the content id")
	}
	if c.Transcribe.PollInterval <= 0 {
		return fmt.Errorf("VOLC_POLL_INTERVAL must be positive")
	}
	if c.Email.Port <= 0 || c.Email.Port > 65535 {
		return fmt.Errorf("SMTP_PORT must be between 1 and 65535, got %d", c.Email.Port)
	}
	return nil
}

// Address returns the server address in host:port format.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// BaseURL returns the URL collaborators use to reach this server.
func (c *ServerConfig) BaseURL() string {
	if c.PublicBaseURL != "" {
		return strings.TrimRight(c.PublicBaseURL, "/")
	}
	return fmt.Sprintf("http://127.0.0.1:%d", c.Port)
}

// Enabled reports whether speech transcription is configured.
func (c *TranscribeConfig) Enabled() bool {
	return c.AppID != "" && c.AccessToken != ""
}

// Enabled reports whether LLM text processing is configured.
func (c *AIConfig) Enabled() bool {
	return c.APIKey != ""
}

// Enabled reports whether the Feishu document store is configured.
func (c *FeishuConfig) Enabled() bool {
	return c.AppID != "" && c.AppSecret != ""
}

// Enabled reports whether email dispatch is configured.
func (c *EmailConfig) Enabled() bool {
	return c.Host != "" && c.User != ""
}
