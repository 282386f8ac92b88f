// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

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
	Port           int           `yaml:"port"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	// CORSOrigin is echoed on API responses for the captive portal page.
	CORSOrigin string `yaml:"cors_origin"`
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type MpesaConfig struct {
	Provider         string        `yaml:"provider"`    // daraja | noop
	Environment      string        `yaml:"environment"` // sandbox | production
	BaseURL          string        `yaml:"base_url"`
	ConsumerKey      string        `yaml:"consumer_key"`
	ConsumerSecret   string        `yaml:"consumer_secret"`
	ShortCode        string        `yaml:"shortcode"`
	Passkey          string        `yaml:"passkey"`
	CallbackURL      string        `yaml:"callback_url"`
	TransactionType  string        `yaml:"transaction_type"`
	AccountReference string        `yaml:"account_reference"`
	Description      string        `yaml:"description"`
	Timeout          time.Duration `yaml:"timeout"`
}

type BillingConfig struct {
	CountryCode    string        `yaml:"country_code"`
	Currency       string        `yaml:"currency"`
	VerifyGrace    time.Duration `yaml:"verify_grace"`
	InitiateLimit  int           `yaml:"initiate_limit"`
	InitiateWindow time.Duration `yaml:"initiate_window"`

	// VoucherValidity is how long the receipt voucher issued for a paid session stays redeemable.
	VoucherValidity time.Duration `yaml:"voucher_validity"`
}

type SchedulerConfig struct {
	ExpiryInterval    time.Duration `yaml:"expiry_interval"`
	ReconcileInterval time.Duration `yaml:"reconcile_interval"`
	ReconcileBatch    int           `yaml:"reconcile_batch"`
	Workers           int           `yaml:"workers"`
}

type AlertConfig struct {
	TelegramToken string `yaml:"telegram_token"`
	ChatID        int64  `yaml:"chat_id"`
}

type SecurityConfig struct {
	JWTSecret     string        `yaml:"jwt_secret"`
	AdminKey      string        `yaml:"admin_key"` // exchanged for an admin JWT at /api/v1/admin/auth/login
	AdminTokenTTL time.Duration `yaml:"admin_token_ttl"`
	SecureCookie  bool          `yaml:"secure_cookie"`
}

type Config struct {
	Log       LogConfig       `yaml:"log"`
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Mpesa     MpesaConfig     `yaml:"mpesa"`
	Billing   BillingConfig   `yaml:"billing"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Alert     AlertConfig     `yaml:"alert"`
	Security  SecurityConfig  `yaml:"security"`

	Runtime RuntimeConfig `yaml:"-"`
}

const (
	sandboxBaseURL    = "https://sandbox.safaricom.co.ke"
	productionBaseURL = "https://api.safaricom.co.ke"
)

// LoadConfig reads the YAML file at path, applies environment overrides for
// secrets, fills defaults and validates. The returned value is not reloaded.
func LoadConfig(path string, dev bool) (*Config, error) {
	var cfg Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	applyEnv(&cfg, os.LookupEnv)
	applyDefaults(&cfg)
	cfg.Runtime.Dev = dev

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type lookupFunc func(key string) (string, bool)

func applyEnv(cfg *Config, lookup lookupFunc) {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	str("HOTSPOT_DATABASE_URL", &cfg.Database.URL)
	str("HOTSPOT_REDIS_URL", &cfg.Redis.URL)
	str("HOTSPOT_REDIS_PASSWORD", &cfg.Redis.Password)
	str("HOTSPOT_JWT_SECRET", &cfg.Security.JWTSecret)
	str("HOTSPOT_ADMIN_KEY", &cfg.Security.AdminKey)
	str("MPESA_ENVIRONMENT", &cfg.Mpesa.Environment)
	str("MPESA_CONSUMER_KEY", &cfg.Mpesa.ConsumerKey)
	str("MPESA_CONSUMER_SECRET", &cfg.Mpesa.ConsumerSecret)
	str("MPESA_SHORTCODE", &cfg.Mpesa.ShortCode)
	str("MPESA_PASSKEY", &cfg.Mpesa.Passkey)
	str("MPESA_CALLBACK_URL", &cfg.Mpesa.CallbackURL)
	str("HOTSPOT_ALERT_TELEGRAM_TOKEN", &cfg.Alert.TelegramToken)
	if v, ok := lookup("HOTSPOT_ALERT_CHAT_ID"); ok {
		if id, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
			cfg.Alert.ChatID = id
		}
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
		cfg.HTTP.RequestTimeout = 30 * time.Second
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	cfg.Redis.TTL = normalizeTTL(cfg.Redis.TTL)
	if cfg.Security.AdminTokenTTL <= 0 {
		cfg.Security.AdminTokenTTL = 12 * time.Hour
	}

	m := &cfg.Mpesa
	if m.Provider == "" {
		m.Provider = "daraja"
	}
	if m.Environment == "" {
		m.Environment = "sandbox"
	}
	if m.BaseURL == "" {
		m.BaseURL = sandboxBaseURL
		if m.Environment == "production" {
			m.BaseURL = productionBaseURL
		}
	}
	if m.TransactionType == "" {
		m.TransactionType = "CustomerPayBillOnline"
	}
	if m.AccountReference == "" {
		m.AccountReference = "Hotspot"
	}
	if m.Description == "" {
		m.Description = "Internet access"
	}
	if m.Timeout <= 0 {
		m.Timeout = 15 * time.Second
	}

	b := &cfg.Billing
	if b.CountryCode == "" {
		b.CountryCode = "254"
	}
	if b.Currency == "" {
		b.Currency = "KES"
	}
	if b.VerifyGrace <= 0 {
		b.VerifyGrace = 30 * time.Second
	}
	if b.InitiateLimit <= 0 {
		b.InitiateLimit = 5
	}
	if b.InitiateWindow <= 0 {
		b.InitiateWindow = time.Minute
	}
	if b.VoucherValidity <= 0 {
		b.VoucherValidity = 30 * 24 * time.Hour
	}

	s := &cfg.Scheduler
	if s.ExpiryInterval <= 0 {
		s.ExpiryInterval = time.Minute
	}
	if s.ReconcileInterval <= 0 {
		s.ReconcileInterval = 2 * time.Minute
	}
	if s.ReconcileBatch <= 0 {
		s.ReconcileBatch = 50
	}
	if s.Workers <= 0 {
		s.Workers = 4
	}
}

// Validate reports the first missing required setting.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return errors.New("database.url is required")
	}
	if c.Redis.URL == "" {
		return errors.New("redis.url is required")
	}
	switch c.Mpesa.Provider {
	case "noop":
	case "daraja":
		if c.Mpesa.ConsumerKey == "" || c.Mpesa.ConsumerSecret == "" {
			return errors.New("mpesa.consumer_key and mpesa.consumer_secret are required")
		}
		if c.Mpesa.ShortCode == "" || c.Mpesa.Passkey == "" {
			return errors.New("mpesa.shortcode and mpesa.passkey are required")
		}
		if c.Mpesa.CallbackURL == "" {
			return errors.New("mpesa.callback_url is required")
		}
	default:
		return fmt.Errorf("mpesa.provider %q is not supported", c.Mpesa.Provider)
	}
	if c.Mpesa.Environment != "sandbox" && c.Mpesa.Environment != "production" {
		return fmt.Errorf("mpesa.environment %q must be sandbox or production", c.Mpesa.Environment)
	}
	if c.Security.JWTSecret == "" {
		return errors.New("security.jwt_secret is required")
	}
	return nil
}

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Hour
	}
	return d
}
