// Package daemon holds the service configuration: a TOML file under the
// petlink home directory, overlaid with environment variables for secrets.
package daemon

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/petlink-network/petlink/internal/app/payment"
	"github.com/petlink-network/petlink/internal/app/sweeper"
)

// Config is the full service configuration.
type Config struct {
	API      APIConfig      `toml:"api"`
	Database DatabaseConfig `toml:"database"`
	Payment  PaymentConfig  `toml:"payment"`
	Sweeper  SweeperConfig  `toml:"sweeper"`
	Metrics  MetricsConfig  `toml:"metrics"`
}

// APIConfig controls the HTTP listener.
type APIConfig struct {
	Host        string   `toml:"host"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
}

// DatabaseConfig locates the SQLite file.
type DatabaseConfig struct {
	Dir string `toml:"dir"`
}

// PaymentConfig configures the payment provider and intent issuance.
type PaymentConfig struct {
	BaseURL              string   `toml:"base_url"`
	AccessToken          string   `toml:"access_token"`   // prefer PETLINK_PAYMENT_TOKEN
	WebhookSecret        string   `toml:"webhook_secret"` // prefer PETLINK_WEBHOOK_SECRET
	Sandbox              bool     `toml:"sandbox"`
	NotificationURL      string   `toml:"notification_url"`
	Currency             string   `toml:"currency"`
	Installments         int      `toml:"installments"`
	ExcludedPaymentTypes []string `toml:"excluded_payment_types"`
	IntentTTL            string   `toml:"intent_ttl"`
}

// SweeperConfig controls the expired-intent sweeper.
type SweeperConfig struct {
	Enabled   bool   `toml:"enabled"`
	Interval  string `toml:"interval"`
	BatchSize int    `toml:"batch_size"`
}

// MetricsConfig toggles the /metrics endpoint.
type MetricsConfig struct {
	Enabled bool `toml:"enabled"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			Host:        "127.0.0.1",
			Port:        8080,
			CORSOrigins: []string{"*"},
		},
		Database: DatabaseConfig{
			Dir: filepath.Join(Home(), "data"),
		},
		Payment: PaymentConfig{
			Currency:             "BRL",
			Installments:         1,
			ExcludedPaymentTypes: []string{"ticket"},
			IntentTTL:            "30m",
		},
		Sweeper: SweeperConfig{
			Enabled:   true,
			Interval:  "1m",
			BatchSize: 100,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Home returns the petlink home directory: $PETLINK_HOME or ~/.petlink.
func Home() string {
	if h := os.Getenv("PETLINK_HOME"); h != "" {
		return h
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".petlink"
	}
	return filepath.Join(home, ".petlink")
}

// DefaultPath is where Load looks when no path is given.
func DefaultPath() string {
	return filepath.Join(Home(), "config.toml")
}

// Load reads path over the defaults. A missing file yields the defaults.
// Environment overrides are applied last.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		path = DefaultPath()
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Payment.AccessToken = getEnv("PETLINK_PAYMENT_TOKEN", c.Payment.AccessToken)
	c.Payment.WebhookSecret = getEnv("PETLINK_WEBHOOK_SECRET", c.Payment.WebhookSecret)
	c.Database.Dir = getEnv("PETLINK_DB_DIR", c.Database.Dir)
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// Validate checks values that would otherwise fail at first use.
func (c Config) Validate() error {
	if c.API.Port <= 0 || c.API.Port > 65535 {
		return fmt.Errorf("api.port %d out of range", c.API.Port)
	}
	if _, err := parseDuration("payment.intent_ttl", c.Payment.IntentTTL); err != nil {
		return err
	}
	if _, err := parseDuration("sweeper.interval", c.Sweeper.Interval); err != nil {
		return err
	}
	return nil
}

// Addr returns the listen address.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.API.Host, c.API.Port)
}

// PaymentIntents converts to the intent factory configuration.
func (c Config) PaymentIntents() payment.Config {
	ttl, _ := parseDuration("payment.intent_ttl", c.Payment.IntentTTL)
	return payment.Config{
		TTL:                  ttl,
		Currency:             c.Payment.Currency,
		Installments:         c.Payment.Installments,
		ExcludedPaymentTypes: c.Payment.ExcludedPaymentTypes,
		NotificationURL:      c.Payment.NotificationURL,
	}
}

// SweeperSettings converts to the sweeper configuration.
func (c Config) SweeperSettings() sweeper.Config {
	interval, _ := parseDuration("sweeper.interval", c.Sweeper.Interval)
	return sweeper.Config{Interval: interval, BatchSize: c.Sweeper.BatchSize}
}

// parseDuration treats an empty value as zero so callers fall back to
// their own defaults.
func parseDuration(field, s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: negative duration %q", field, s)
	}
	return d, nil
}
