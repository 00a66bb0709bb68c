// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type HTTPConfig struct {
	Port             int           `yaml:"port"`
	APIKey           string        `yaml:"api_key"`
	RequestTimeout   time.Duration `yaml:"request_timeout"`
	// RedeemRateLimit caps redeem calls per customer per window; 0 disables. Needs Redis.
	RedeemRateLimit  int           `yaml:"redeem_rate_limit"`
	RedeemRateWindow time.Duration `yaml:"redeem_rate_window"`
}

type DatabaseConfig struct {
	URL         string `yaml:"url"`
	MaxConns    int32  `yaml:"max_conns"`
	AutoMigrate bool   `yaml:"auto_migrate"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type LoyaltyConfig struct {
	// TierThresholds maps tier name to the lifetime points needed to reach it.
	TierThresholds       map[string]int64 `yaml:"tier_thresholds"`
	RedemptionWindow     time.Duration    `yaml:"redemption_window"`
	MaxTxRetries         int              `yaml:"max_tx_retries"`
	VerifyLedgerOnWrite  bool             `yaml:"verify_ledger_on_write"`
	ReferralCodeAttempts int              `yaml:"referral_code_attempts"`
	RedemptionLockTTL    time.Duration    `yaml:"redemption_lock_ttl"`
	Isolation            string           `yaml:"isolation"` // read_committed|serializable
}

type EventsConfig struct {
	RelayInterval time.Duration `yaml:"relay_interval"`
	BatchSize     int           `yaml:"batch_size"`
	Channel       string        `yaml:"channel"`
}

type Config struct {
	Log      LogConfig      `yaml:"log"`
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Loyalty  LoyaltyConfig  `yaml:"loyalty"`
	Events   EventsConfig   `yaml:"events"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads the YAML file at path, applies .env / environment overrides and defaults,
// then validates the result.
func LoadConfig(path string, dev bool) (*Config, error) {
	// .env is optional; a missing file is fine.
	_ = godotenv.Load()

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(b)
	if err != nil {
		return nil, err
	}
	cfg.Runtime.Dev = dev
	return cfg, nil
}

// Parse decodes raw YAML, applies env overrides and defaults, and validates.
func Parse(b []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyEnv(&cfg)
	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("API_KEY"); v != "" {
		cfg.HTTP.APIKey = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 8080
	}
	if cfg.HTTP.RequestTimeout <= 0 {
		cfg.HTTP.RequestTimeout = 10 * time.Second
	}
	if cfg.HTTP.RedeemRateWindow <= 0 {
		cfg.HTTP.RedeemRateWindow = time.Minute
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	cfg.Redis.TTL = normalizeTTL(cfg.Redis.TTL)

	if cfg.Loyalty.RedemptionWindow <= 0 {
		cfg.Loyalty.RedemptionWindow = 30 * 24 * time.Hour
	}
	if cfg.Loyalty.MaxTxRetries <= 0 {
		cfg.Loyalty.MaxTxRetries = 3
	}
	if cfg.Loyalty.ReferralCodeAttempts <= 0 {
		cfg.Loyalty.ReferralCodeAttempts = 5
	}
	if cfg.Loyalty.RedemptionLockTTL <= 0 {
		cfg.Loyalty.RedemptionLockTTL = 5 * time.Second
	}
	if cfg.Loyalty.Isolation == "" {
		cfg.Loyalty.Isolation = "read_committed"
	}

	if cfg.Events.RelayInterval <= 0 {
		cfg.Events.RelayInterval = 2 * time.Second
	}
	if cfg.Events.BatchSize <= 0 {
		cfg.Events.BatchSize = 100
	}
	if cfg.Events.Channel == "" {
		cfg.Events.Channel = "loyalty.events"
	}
}

// Validate checks required fields. Tier thresholds are validated by the tier policy itself.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return errors.New("database.url is required")
	}
	switch strings.ToLower(c.Loyalty.Isolation) {
	case "read_committed", "serializable":
	default:
		return fmt.Errorf("loyalty.isolation must be read_committed or serializable, got %q", c.Loyalty.Isolation)
	}
	for name, v := range c.Loyalty.TierThresholds {
		if v < 0 {
			return fmt.Errorf("loyalty.tier_thresholds.%s must be >= 0", name)
		}
	}
	return nil
}

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Hour
	}
	return d
}
