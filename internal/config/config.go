// Package config provides configuration management for the net-worth tracker.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"

	"networth-tracker/internal/errors"
	"networth-tracker/internal/logging"
	"networth-tracker/internal/prices"
	"networth-tracker/internal/resilience"
	"networth-tracker/pkg/utils"
)

// Config holds all application configuration.
type Config struct {
	Database DatabaseConfig    `mapstructure:"database"`
	Log      logging.LogConfig `mapstructure:"log"`
	Prices   PricesConfig      `mapstructure:"prices"`
	Server   ServerConfig      `mapstructure:"server"`

	// Path is the config file that was read, or the template that was written.
	Path string `mapstructure:"-"`
}

// DatabaseConfig holds SQLite configuration.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// PricesConfig holds price fetching configuration.
type PricesConfig struct {
	CacheTTLMinutes  int           `mapstructure:"cache_ttl_minutes"`
	BatchConcurrency int           `mapstructure:"batch_concurrency"`
	RefreshSchedule  string        `mapstructure:"refresh_schedule"`
	Retry            RetryConfig   `mapstructure:"retry"`
	Breaker          BreakerConfig `mapstructure:"breaker"`
	Stock            StockConfig   `mapstructure:"stock"`
	Crypto           CryptoConfig  `mapstructure:"crypto"`
}

// RetryConfig holds provider retry settings.
type RetryConfig struct {
	MaxRetries        int           `mapstructure:"max_retries"`
	InitialDelay      time.Duration `mapstructure:"initial_delay"`
	BackoffMultiplier float64       `mapstructure:"backoff_multiplier"`
	MaxDelay          time.Duration `mapstructure:"max_delay"`
}

// BreakerConfig holds the per-provider circuit breaker settings.
type BreakerConfig struct {
	FailureThreshold int           `mapstructure:"failure_threshold"`
	Cooldown         time.Duration `mapstructure:"cooldown"`
}

// StockConfig holds the stock provider endpoint.
type StockConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// CryptoConfig holds the crypto provider endpoint and credentials.
type CryptoConfig struct {
	BaseURL       string        `mapstructure:"base_url"`
	ProBaseURL    string        `mapstructure:"pro_base_url"`
	APIKey        string        `mapstructure:"api_key"`
	QuoteCurrency string        `mapstructure:"quote_currency"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

// ServerConfig holds HTTP API configuration.
type ServerConfig struct {
	Addr        string `mapstructure:"addr"`
	DefaultUser string `mapstructure:"default_user"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/networth-tracker"
	}
	return filepath.Join(home, ".config", "networth-tracker")
}

// ConfigFile returns the path of config.toml inside configDir.
func ConfigFile(configDir string) string {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}
	return filepath.Join(configDir, "config.toml")
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory. A missing config.toml
// is replaced by a commented template and the defaults are used.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	// .env files are optional; real environment variables win
	_ = godotenv.Load(filepath.Join(configDir, ".env"))
	_ = godotenv.Load()

	cfg := &Config{}
	if err := loadConfigFile(configDir, "config", cfg); err != nil {
		return nil, fmt.Errorf("loading config.toml: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func loadConfigFile(configDir, name string, cfg *Config) error {
	v := viper.New()
	v.SetConfigName(name)
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)
	setDefaults(v, configDir)

	cfg.Path = filepath.Join(configDir, name+".toml")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
		if err := createTemplateConfig(configDir, name); err != nil {
			return err
		}
	} else {
		cfg.Path = v.ConfigFileUsed()
	}

	return v.Unmarshal(cfg)
}

func setDefaults(v *viper.Viper, configDir string) {
	logDefaults := logging.DefaultLogConfig()
	retry := utils.DefaultRetryConfig()
	breaker := resilience.DefaultCircuitBreakerConfig()

	v.SetDefault("database.path", filepath.Join(configDir, "networth.db"))

	v.SetDefault("log.level", logDefaults.Level)
	v.SetDefault("log.console", logDefaults.Console)
	v.SetDefault("log.file", logDefaults.File)
	v.SetDefault("log.file_path", filepath.Join(configDir, "logs", "networth.log"))
	v.SetDefault("log.max_size", logDefaults.MaxSize)
	v.SetDefault("log.max_backups", logDefaults.MaxBackups)
	v.SetDefault("log.max_age", logDefaults.MaxAge)

	v.SetDefault("prices.cache_ttl_minutes", int(prices.DefaultTTL/time.Minute))
	v.SetDefault("prices.batch_concurrency", prices.DefaultBatchConcurrency)
	v.SetDefault("prices.refresh_schedule", "@every 15m")
	v.SetDefault("prices.retry.max_retries", retry.MaxRetries)
	v.SetDefault("prices.retry.initial_delay", retry.InitialDelay)
	v.SetDefault("prices.retry.backoff_multiplier", retry.BackoffFactor)
	v.SetDefault("prices.retry.max_delay", retry.MaxDelay)
	v.SetDefault("prices.breaker.failure_threshold", breaker.FailureThreshold)
	v.SetDefault("prices.breaker.cooldown", breaker.Cooldown)
	v.SetDefault("prices.stock.base_url", prices.DefaultStockBaseURL)
	v.SetDefault("prices.stock.timeout", 10*time.Second)
	v.SetDefault("prices.crypto.base_url", prices.DefaultCryptoBaseURL)
	v.SetDefault("prices.crypto.pro_base_url", prices.DefaultCryptoProBaseURL)
	v.SetDefault("prices.crypto.api_key", "")
	v.SetDefault("prices.crypto.quote_currency", "USD")
	v.SetDefault("prices.crypto.timeout", 10*time.Second)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.default_user", "default")
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("NETWORTH_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("NETWORTH_CRYPTO_API_KEY"); v != "" {
		cfg.Prices.Crypto.APIKey = v
	}
	if v := os.Getenv("NETWORTH_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("NETWORTH_SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("NETWORTH_DEFAULT_USER"); v != "" {
		cfg.Server.DefaultUser = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Database.Path) == "" {
		return invalid("database.path is required")
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return invalid("invalid log level: %s (must be debug, info, warn or error)", c.Log.Level)
	}

	p := c.Prices
	if p.CacheTTLMinutes <= 0 {
		return invalid("prices.cache_ttl_minutes must be positive")
	}
	if p.BatchConcurrency < 1 {
		return invalid("prices.batch_concurrency must be at least 1")
	}
	if _, err := cron.ParseStandard(p.RefreshSchedule); err != nil {
		return invalid("invalid prices.refresh_schedule %q: %v", p.RefreshSchedule, err)
	}
	if p.Retry.MaxRetries < 0 {
		return invalid("prices.retry.max_retries must be non-negative")
	}
	if p.Retry.InitialDelay < 0 || p.Retry.MaxDelay < 0 {
		return invalid("prices.retry delays must be non-negative")
	}
	if p.Retry.BackoffMultiplier < 1 {
		return invalid("prices.retry.backoff_multiplier must be at least 1")
	}
	if p.Breaker.FailureThreshold < 0 || p.Breaker.Cooldown < 0 {
		return invalid("prices.breaker values must be non-negative")
	}
	if strings.TrimSpace(p.Crypto.QuoteCurrency) == "" {
		return invalid("prices.crypto.quote_currency is required")
	}

	if strings.TrimSpace(c.Server.DefaultUser) == "" {
		return invalid("server.default_user is required")
	}

	return nil
}

func invalid(format string, args ...interface{}) error {
	return errors.Wrapf(errors.ErrConfigInvalid, format, args...)
}

// FetcherConfig converts the prices section into price fetcher settings.
func (p PricesConfig) FetcherConfig() prices.FetcherConfig {
	return prices.FetcherConfig{
		TTL: time.Duration(p.CacheTTLMinutes) * time.Minute,
		Retry: utils.RetryConfig{
			MaxRetries:    p.Retry.MaxRetries,
			InitialDelay:  p.Retry.InitialDelay,
			MaxDelay:      p.Retry.MaxDelay,
			BackoffFactor: p.Retry.BackoffMultiplier,
		},
		BatchConcurrency: p.BatchConcurrency,
	}
}

// BreakerConfig converts the breaker section into provider circuit breaker settings.
func (p PricesConfig) BreakerConfig() resilience.CircuitBreakerConfig {
	cfg := resilience.DefaultCircuitBreakerConfig()
	cfg.FailureThreshold = p.Breaker.FailureThreshold
	cfg.Cooldown = p.Breaker.Cooldown
	return prices.BreakerConfig(cfg)
}

// StockClientConfig converts the stock section into client settings.
func (p PricesConfig) StockClientConfig() prices.StockClientConfig {
	return prices.StockClientConfig{
		BaseURL: p.Stock.BaseURL,
		Timeout: p.Stock.Timeout,
	}
}

// CryptoClientConfig converts the crypto section into client settings.
func (p PricesConfig) CryptoClientConfig() prices.CryptoClientConfig {
	return prices.CryptoClientConfig{
		BaseURL:       p.Crypto.BaseURL,
		ProBaseURL:    p.Crypto.ProBaseURL,
		APIKey:        p.Crypto.APIKey,
		QuoteCurrency: p.Crypto.QuoteCurrency,
		Timeout:       p.Crypto.Timeout,
	}
}
