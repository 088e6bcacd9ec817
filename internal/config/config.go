package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/subtrack-hq/subtrack/internal/settings"
)

// Environment variable names recognized by the loader.
const (
	EnvConfigPath   = "CONFIG_PATH"
	EnvDBConnection = "DB_CONNECTION"
	EnvJWTSecret    = "JWT_SECRET"
	EnvJWTExpiry    = "JWT_EXPIRY"
	EnvVaultKey     = "VAULT_KEY"
)

// AppConfig holds resolved application configuration values.
type AppConfig struct {
	ConfigPath string
}

// LoadFromEnv loads app config from environment variables.
func LoadFromEnv() (AppConfig, error) {
	return AppConfig{ConfigPath: ResolveConfigPath(os.Getenv(EnvConfigPath))}, nil
}

// ResolveConfigPath normalizes the config path and applies defaults.
func ResolveConfigPath(p string) string {
	trimmed := strings.TrimSpace(p)
	if trimmed == "" {
		trimmed = "./config.yaml"
	}
	if abs, err := filepath.Abs(trimmed); err == nil {
		return abs
	}
	return trimmed
}

// ErrMissingDatabaseDSN indicates no database DSN is present in the config file.
var ErrMissingDatabaseDSN = errors.New("missing database dsn (set `database-dsn` or `database.dsn` in config file)")

// ErrMissingVaultKey indicates no credential vault key is configured.
var ErrMissingVaultKey = errors.New("missing vault key (set `vault-key` in config file or VAULT_KEY)")

// JWTConfig holds JWT secret and expiry settings.
type JWTConfig struct {
	Secret string        `yaml:"secret"`
	Expiry time.Duration `yaml:"expiry"`
}

// RateLimitConfig holds submission rate limit settings.
type RateLimitConfig struct {
	GlobalLimit int           `yaml:"global-limit"`
	EmailLimit  int           `yaml:"email-limit"`
	Window      time.Duration `yaml:"window"`

	RedisEnabled  bool   `yaml:"redis-enabled"`
	RedisAddr     string `yaml:"redis-addr"`
	RedisPassword string `yaml:"redis-password"`
	RedisDB       int    `yaml:"redis-db"`
	RedisPrefix   string `yaml:"redis-prefix"`
}

// SMTPConfig holds outbound mail settings. A blank host disables delivery.
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	AdminTo  string `yaml:"admin-to"`
}

// RatesConfig holds exchange-rate feed settings.
type RatesConfig struct {
	FeedURL string `yaml:"feed-url"`
	Base    string `yaml:"base"`
}

// ServerConfig aggregates everything the server needs at boot.
type ServerConfig struct {
	Host      string          `yaml:"host"`
	Port      int             `yaml:"port"`
	JWT       JWTConfig       `yaml:"jwt"`
	VaultKey  string          `yaml:"vault-key"`
	RateLimit RateLimitConfig `yaml:"rate-limit"`
	SMTP      SMTPConfig      `yaml:"smtp"`
	Rates     RatesConfig     `yaml:"rates"`
}

// LoadDatabaseDSN reads the database DSN from the YAML config file. The
// DB_CONNECTION environment variable takes precedence.
func LoadDatabaseDSN(configPath string) (string, error) {
	if dsn := strings.TrimSpace(os.Getenv(EnvDBConnection)); dsn != "" {
		return dsn, nil
	}

	// fileConfig maps the YAML fields needed for DSN resolution.
	type fileConfig struct {
		DatabaseDSN string `yaml:"database-dsn"`
		Database    struct {
			DSN string `yaml:"dsn"`
		} `yaml:"database"`
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return "", fmt.Errorf("read config file: %w", err)
	}

	var cfg fileConfig
	if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal != nil {
		return "", fmt.Errorf("parse config file: %w", errUnmarshal)
	}

	if dsn := strings.TrimSpace(cfg.DatabaseDSN); dsn != "" {
		return dsn, nil
	}
	if dsn := strings.TrimSpace(cfg.Database.DSN); dsn != "" {
		return dsn, nil
	}
	return "", ErrMissingDatabaseDSN
}

// defaultJWTExpiry is used when the config omits or invalidates JWT expiry.
const defaultJWTExpiry = 30 * 24 * time.Hour

// defaultRateLimitWindow is the fixed window applied to public submissions.
const defaultRateLimitWindow = time.Hour

// defaultRatesFeedURL serves open.er-api.com-shaped JSON rate payloads.
const defaultRatesFeedURL = "https://open.er-api.com/v6/latest"

// LoadServerConfig loads the full server config from the YAML file, applying
// env overrides and defaults.
func LoadServerConfig(configPath string) (ServerConfig, error) {
	cfg := ServerConfig{
		JWT: JWTConfig{Expiry: defaultJWTExpiry},
		RateLimit: RateLimitConfig{
			GlobalLimit: settings.DefaultGlobalRateLimit,
			EmailLimit:  settings.DefaultEmailRateLimit,
			Window:      defaultRateLimitWindow,
			RedisPrefix: settings.DefaultRateLimitRedisPrefix,
		},
		Rates: RatesConfig{
			FeedURL: defaultRatesFeedURL,
			Base:    settings.DefaultCurrencyCode,
		},
	}

	data, errRead := os.ReadFile(configPath)
	if errRead == nil {
		if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal != nil {
			return ServerConfig{}, fmt.Errorf("parse config file: %w", errUnmarshal)
		}
	}

	if secret := strings.TrimSpace(os.Getenv(EnvJWTSecret)); secret != "" {
		cfg.JWT.Secret = secret
	}
	if expiryRaw := strings.TrimSpace(os.Getenv(EnvJWTExpiry)); expiryRaw != "" {
		if expiry, errParse := time.ParseDuration(expiryRaw); errParse == nil && expiry > 0 {
			cfg.JWT.Expiry = expiry
		}
	}
	if key := strings.TrimSpace(os.Getenv(EnvVaultKey)); key != "" {
		cfg.VaultKey = key
	}

	if cfg.JWT.Expiry <= 0 {
		cfg.JWT.Expiry = defaultJWTExpiry
	}
	if cfg.RateLimit.GlobalLimit <= 0 {
		cfg.RateLimit.GlobalLimit = settings.DefaultGlobalRateLimit
	}
	if cfg.RateLimit.EmailLimit <= 0 {
		cfg.RateLimit.EmailLimit = settings.DefaultEmailRateLimit
	}
	if cfg.RateLimit.Window <= 0 {
		cfg.RateLimit.Window = defaultRateLimitWindow
	}
	if strings.TrimSpace(cfg.RateLimit.RedisPrefix) == "" {
		cfg.RateLimit.RedisPrefix = settings.DefaultRateLimitRedisPrefix
	}
	if strings.TrimSpace(cfg.Rates.FeedURL) == "" {
		cfg.Rates.FeedURL = defaultRatesFeedURL
	}
	if strings.TrimSpace(cfg.Rates.Base) == "" {
		cfg.Rates.Base = settings.DefaultCurrencyCode
	}
	return cfg, nil
}
