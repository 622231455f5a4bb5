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

type HTTPConfig struct {
	Port           int           `yaml:"port"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	// WebhookRateLimit is the number of webhook calls accepted per remote address per minute.
	WebhookRateLimit int `yaml:"webhook_rate_limit"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
}

type RedisConfig struct {
	URL        string        `yaml:"url"`
	Password   string        `yaml:"password"`
	DB         int           `yaml:"db"`
	SessionTTL time.Duration `yaml:"session_ttl"`
	LockTTL    time.Duration `yaml:"lock_ttl"`
}

type AMQPConfig struct {
	URL      string `yaml:"url"`
	Exchange string `yaml:"exchange"`
}

type ProviderConfig struct {
	BaseURL    string        `yaml:"base_url"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
	// BreakerTimeout is how long the circuit stays open before probing again.
	BreakerTimeout    time.Duration `yaml:"breaker_timeout"`
	ThreatMetrixOrgID string        `yaml:"threat_metrix_org_id"`
}

type StoreConfig struct {
	Code             string   `yaml:"code"`
	PublicKey        string   `yaml:"public_key"`
	PrivateKey       string   `yaml:"private_key"`
	TransmitCurrency string   `yaml:"transmit_currency"` // base | customer
	EnabledMethods   []string `yaml:"enabled_methods"`
	ReturnURL        string   `yaml:"return_url"`
}

type SchedulerConfig struct {
	ReconcileCron string        `yaml:"reconcile_cron"`
	StaleAfter    time.Duration `yaml:"stale_after"`
	BatchSize     int           `yaml:"batch_size"`
	Workers       int           `yaml:"workers"`
}

type SecurityConfig struct {
	JWTSecret     string `yaml:"jwt_secret"`
	EncryptionKey string `yaml:"encryption_key"`
}

type Config struct {
	HTTP         HTTPConfig      `yaml:"http"`
	Log          LogConfig       `yaml:"log"`
	Database     DatabaseConfig  `yaml:"database"`
	Redis        RedisConfig     `yaml:"redis"`
	AMQP         AMQPConfig      `yaml:"amqp"`
	Provider     ProviderConfig  `yaml:"provider"`
	Stores       []StoreConfig   `yaml:"stores"`
	DefaultStore string          `yaml:"default_store"`
	Scheduler    SchedulerConfig `yaml:"scheduler"`
	Security     SecurityConfig  `yaml:"security"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads the YAML file at path, applies environment overrides (a .env file
// in the working directory is loaded first when present), fills defaults and validates.
func LoadConfig(path string, dev bool) (*Config, error) {
	_ = godotenv.Load()

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyEnv(&cfg)
	applyDefaults(&cfg)
	cfg.Runtime.Dev = dev

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
	if v := os.Getenv("AMQP_URL"); v != "" {
		cfg.AMQP.URL = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.Security.JWTSecret = v
	}
	if v := os.Getenv("ENCRYPTION_KEY"); v != "" {
		cfg.Security.EncryptionKey = v
	}
	// UNZER_PRIVATE_KEY applies to the default store; UNZER_PRIVATE_KEY_<CODE> to others.
	for i := range cfg.Stores {
		s := &cfg.Stores[i]
		if v := os.Getenv("UNZER_PRIVATE_KEY_" + strings.ToUpper(s.Code)); v != "" {
			s.PrivateKey = v
		} else if v := os.Getenv("UNZER_PRIVATE_KEY"); v != "" && s.Code == cfg.DefaultStore {
			s.PrivateKey = v
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 8080
	}
	if cfg.HTTP.RequestTimeout <= 0 {
		cfg.HTTP.RequestTimeout = 30 * time.Second
	}
	if cfg.HTTP.WebhookRateLimit <= 0 {
		cfg.HTTP.WebhookRateLimit = 600
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	cfg.Redis.SessionTTL = normalizeTTL(cfg.Redis.SessionTTL, 2*time.Hour)
	cfg.Redis.LockTTL = normalizeTTL(cfg.Redis.LockTTL, 30*time.Second)
	if cfg.AMQP.Exchange == "" {
		cfg.AMQP.Exchange = "payments"
	}
	if cfg.Provider.BaseURL == "" {
		cfg.Provider.BaseURL = "https://api.unzer.com/v1"
	}
	cfg.Provider.Timeout = normalizeTTL(cfg.Provider.Timeout, 15*time.Second)
	cfg.Provider.BreakerTimeout = normalizeTTL(cfg.Provider.BreakerTimeout, 30*time.Second)
	if cfg.Provider.MaxRetries < 0 {
		cfg.Provider.MaxRetries = 0
	} else if cfg.Provider.MaxRetries == 0 {
		cfg.Provider.MaxRetries = 3
	}
	if cfg.Provider.ThreatMetrixOrgID == "" {
		cfg.Provider.ThreatMetrixOrgID = "363t8kgq"
	}
	if cfg.DefaultStore == "" && len(cfg.Stores) > 0 {
		cfg.DefaultStore = cfg.Stores[0].Code
	}
	if cfg.Scheduler.ReconcileCron == "" {
		cfg.Scheduler.ReconcileCron = "*/10 * * * *"
	}
	cfg.Scheduler.StaleAfter = normalizeTTL(cfg.Scheduler.StaleAfter, 30*time.Minute)
	if cfg.Scheduler.BatchSize <= 0 {
		cfg.Scheduler.BatchSize = 200
	}
	if cfg.Scheduler.Workers <= 0 {
		cfg.Scheduler.Workers = 4
	}
}

// Validate performs minimal validation.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return errors.New("database.url is required")
	}
	if c.Redis.URL == "" {
		return errors.New("redis.url is required")
	}
	if len(c.Stores) == 0 {
		return errors.New("at least one store is required")
	}
	seen := map[string]bool{}
	for _, s := range c.Stores {
		if s.Code == "" {
			return errors.New("stores[].code is required")
		}
		if seen[s.Code] {
			return fmt.Errorf("duplicate store code %q", s.Code)
		}
		seen[s.Code] = true
		if s.PublicKey == "" || s.PrivateKey == "" {
			return fmt.Errorf("store %q: public_key and private_key are required", s.Code)
		}
	}
	if !seen[c.DefaultStore] {
		return fmt.Errorf("default_store %q is not configured", c.DefaultStore)
	}
	if c.Security.JWTSecret == "" {
		return errors.New("security.jwt_secret is required")
	}
	return nil
}

func normalizeTTL(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
