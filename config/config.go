package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix     = "MOB_"
	configPathEnv = "MOB_CONFIG_PATH"
)

// Config хранит все конфигурационные параметры клиента и консоли.
type Config struct {
	APIBaseURL     string        `koanf:"api_base_url"`
	WSBaseURL      string        `koanf:"ws_base_url"`
	ReconnectDelay time.Duration `koanf:"reconnect_delay"`
	RequestTimeout time.Duration `koanf:"request_timeout"`
	APIRateLimit   float64       `koanf:"api_rate_limit"`
	APIBurst       int           `koanf:"api_burst"`

	ServerPort   int           `koanf:"server_port"`
	CORSOrigins  string        `koanf:"cors_origins"`
	SessionTTL   time.Duration `koanf:"session_ttl"`
	CookieSecure bool          `koanf:"cookie_secure"`
	DatabaseURL  string        `koanf:"database_url"`

	TokenFile   string `koanf:"token_file"`
	TokenSecret string `koanf:"token_secret"`

	LogLevel string `koanf:"log_level"`

	R2AccountID       string `koanf:"r2_account_id"`
	R2AccessKeyID     string `koanf:"r2_access_key_id"`
	R2SecretAccessKey string `koanf:"r2_secret_access_key"`
	R2BucketName      string `koanf:"r2_bucket_name"`
	R2PublicBaseURL   string `koanf:"r2_public_base_url"`
}

func defaults() Config {
	tokenFile := ".mob-token"
	if dir, err := os.UserConfigDir(); err == nil {
		tokenFile = filepath.Join(dir, "mob-esports", "token")
	}
	return Config{
		APIBaseURL:     "http://localhost:5000/api",
		WSBaseURL:      "ws://localhost:5000/ws",
		ReconnectDelay: 3 * time.Second,
		RequestTimeout: 15 * time.Second,
		APIRateLimit:   10,
		APIBurst:       5,
		ServerPort:     8080,
		CORSOrigins:    "http://localhost:5173",
		SessionTTL:     24 * time.Hour,
		TokenFile:      tokenFile,
		LogLevel:       "info",
	}
}

// Load загружает конфигурацию: значения по умолчанию, затем необязательный
// YAML-файл (MOB_CONFIG_PATH), затем переменные окружения MOB_*.
// Файл .env подгружается, если он есть.
func Load() (*Config, error) {
	// Отсутствие .env не считаем ошибкой
	_ = godotenv.Load()

	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaults(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load config defaults: %w", err)
	}

	if path := os.Getenv(configPathEnv); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values that would otherwise fail far from their source.
func (c *Config) Validate() error {
	if c.APIBaseURL == "" {
		return fmt.Errorf("MOB_API_BASE_URL must not be empty")
	}
	if u, err := url.Parse(c.APIBaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("MOB_API_BASE_URL must be an http(s) URL, got %q", c.APIBaseURL)
	}
	if u, err := url.Parse(c.WSBaseURL); err != nil || (u.Scheme != "ws" && u.Scheme != "wss") {
		return fmt.Errorf("MOB_WS_BASE_URL must be a ws(s) URL, got %q", c.WSBaseURL)
	}
	if c.ReconnectDelay <= 0 {
		return fmt.Errorf("MOB_RECONNECT_DELAY must be positive, got %s", c.ReconnectDelay)
	}
	if c.ServerPort <= 0 || c.ServerPort > 65535 {
		return fmt.Errorf("MOB_SERVER_PORT must be between 1 and 65535, got %d", c.ServerPort)
	}
	if c.APIRateLimit < 0 || c.APIBurst < 0 {
		return fmt.Errorf("MOB_API_RATE_LIMIT and MOB_API_BURST must not be negative")
	}
	return nil
}

// AllowedOrigins splits the comma separated CORS origin list.
func (c *Config) AllowedOrigins() []string {
	var origins []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// R2Enabled reports whether direct Cloudflare R2 uploads are configured.
func (c *Config) R2Enabled() bool {
	return c.R2AccountID != "" && c.R2AccessKeyID != "" && c.R2SecretAccessKey != "" &&
		c.R2BucketName != "" && c.R2PublicBaseURL != ""
}
