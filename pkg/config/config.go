// Package config provides environment-based configuration for the big red button.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvDevelopment disables secure cookies and binds to loopback only.
const EnvDevelopment = "development"

// Config holds all configuration for the web server.
type Config struct {
	// Environment mode ("development" or "production")
	Env string

	// Server configuration
	Port            int
	ShutdownTimeout time.Duration

	// Logging
	LogLevel  string
	LogFormat string

	// CI provider
	Bitrise BitriseConfig

	// Identity provider and session handling
	Auth AuthConfig

	// Target of the big red button
	TriggerBranch   string
	TriggerWorkflow string
}

// BitriseConfig holds the CI provider client configuration.
type BitriseConfig struct {
	Token    string
	AppSlug  string
	APIURL   string
	RetryMax int
	Timeout  time.Duration
}

// AuthConfig holds OAuth login and session cookie configuration.
type AuthConfig struct {
	Domain       string
	ClientID     string
	ClientSecret string
	// BaseURL is the externally reachable URL of this server, used for the
	// login callback and as the post-logout return address.
	BaseURL    string
	SiteDomain string
	CookieName string
	// AllowedSubjects is the comma-separated allowlist merged with AllowlistFile.
	AllowedSubjects []string
	AllowlistFile   string
}

// Load reads configuration from environment variables. A .env file in the
// working directory is loaded first when present; real environment values win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	cfg := LoadWithDefaults()

	if cfg.Auth.AllowlistFile != "" {
		subjects, err := LoadAllowlistFile(cfg.Auth.AllowlistFile)
		if err != nil {
			return nil, err
		}
		cfg.Auth.AllowedSubjects = append(cfg.Auth.AllowedSubjects, subjects...)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadWithDefaults loads configuration without validating required fields.
func LoadWithDefaults() *Config {
	return &Config{
		Env:             getEnv("APP_ENV", "production"),
		Port:            getIntEnv("PORT", 3000),
		ShutdownTimeout: getDurationEnv("SHUTDOWN_TIMEOUT", 30*time.Second),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogFormat:       getEnv("LOG_FORMAT", "json"),
		Bitrise: BitriseConfig{
			Token:    getEnv("BITRISE_TOKEN", ""),
			AppSlug:  getEnv("BITRISE_APP_SLUG", ""),
			APIURL:   getEnv("BITRISE_API_URL", "https://api.bitrise.io/v0.1"),
			RetryMax: getIntEnv("BITRISE_RETRY_MAX", 3),
			Timeout:  getDurationEnv("BITRISE_TIMEOUT", 30*time.Second),
		},
		Auth: AuthConfig{
			Domain:          getEnv("AUTH_DOMAIN", ""),
			ClientID:        getEnv("AUTH_CLIENT_ID", ""),
			ClientSecret:    getEnv("AUTH_CLIENT_SECRET", ""),
			BaseURL:         strings.TrimRight(getEnv("BASE_URL", ""), "/"),
			SiteDomain:      getEnv("SITE_DOMAIN", ""),
			CookieName:      getEnv("SESSION_COOKIE", "token"),
			AllowedSubjects: splitList(os.Getenv("ALLOWED_SUBJECTS")),
			AllowlistFile:   getEnv("ALLOWLIST_FILE", ""),
		},
		TriggerBranch:   getEnv("TRIGGER_BRANCH", "main"),
		TriggerWorkflow: getEnv("TRIGGER_WORKFLOW", "primary"),
	}
}

// Validate checks that required configuration values are set.
func (c *Config) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"BITRISE_TOKEN", c.Bitrise.Token},
		{"BITRISE_APP_SLUG", c.Bitrise.AppSlug},
		{"AUTH_DOMAIN", c.Auth.Domain},
		{"AUTH_CLIENT_ID", c.Auth.ClientID},
		{"AUTH_CLIENT_SECRET", c.Auth.ClientSecret},
		{"BASE_URL", c.Auth.BaseURL},
	}
	for _, r := range required {
		if r.value == "" {
			return fmt.Errorf("%s is required", r.name)
		}
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port)
	}
	if c.Bitrise.RetryMax < 0 {
		return fmt.Errorf("BITRISE_RETRY_MAX must not be negative")
	}
	return nil
}

// IsDevelopment reports whether the server runs in insecure local-development mode.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Env, EnvDevelopment)
}

// ListenAddr returns the host:port the server binds to. Development mode
// binds to loopback only.
func (c *Config) ListenAddr() string {
	host := "0.0.0.0"
	if c.IsDevelopment() {
		host = "127.0.0.1"
	}
	return fmt.Sprintf("%s:%d", host, c.Port)
}

// RedirectURL returns the OAuth callback URL.
func (c *Config) RedirectURL() string {
	return c.Auth.BaseURL + "/login/callback"
}

type allowlistFile struct {
	Subjects []string `yaml:"subjects"`
}

// LoadAllowlistFile reads identity subjects from a YAML file of the form
//
//	subjects:
//	  - auth0|abc123
//	  - google-oauth2|987
func LoadAllowlistFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading allowlist file: %w", err)
	}

	var f allowlistFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing allowlist file %s: %w", path, err)
	}

	subjects := make([]string, 0, len(f.Subjects))
	for _, s := range f.Subjects {
		if s = strings.TrimSpace(s); s != "" {
			subjects = append(subjects, s)
		}
	}
	return subjects, nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
