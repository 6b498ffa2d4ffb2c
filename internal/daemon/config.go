// Package daemon loads the service configuration and wires the running
// service together.
package daemon

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix prefixes every environment override, e.g. HEROES_API_PORT.
const EnvPrefix = "HEROES"

// Config is the full service configuration, loaded from config.toml.
type Config struct {
	API          APIConfig          `toml:"api"`
	Storage      StorageConfig      `toml:"storage"`
	Transactions TransactionsConfig `toml:"transactions"`
	Metrics      MetricsConfig      `toml:"metrics"`
	Log          LogConfig          `toml:"log"`
	Pricing      PricingConfig      `toml:"pricing"`
	Admin        AdminConfig        `toml:"admin"`
	Jobs         JobsConfig         `toml:"jobs"`
}

// APIConfig configures the HTTP listener.
type APIConfig struct {
	Host           string `toml:"host"`
	Port           int    `toml:"port"`
	RequestTimeout string `toml:"request_timeout" split_words:"true"`
}

// Addr returns host:port.
func (c APIConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// StorageConfig selects the transaction history backend.
type StorageConfig struct {
	Driver      string `toml:"driver"` // sqlite | postgres | memory
	DataDir     string `toml:"data_dir" split_words:"true"`
	PostgresDSN string `toml:"postgres_dsn" split_words:"true"`
	MaxConns    int32  `toml:"max_conns" split_words:"true"`
}

// TransactionsConfig configures simulated claim transactions.
type TransactionsConfig struct {
	ConfirmDelay string `toml:"confirm_delay" split_words:"true"`
	MaxStored    int    `toml:"max_stored" split_words:"true"`
}

// MetricsConfig toggles the /metrics endpoint.
type MetricsConfig struct {
	Enabled bool `toml:"enabled"`
}

// LogConfig configures logrus.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // text | json
}

// PricingConfig holds display prices.
type PricingConfig struct {
	TokenPriceUSD float64 `toml:"token_price_usd" split_words:"true"`
}

// AdminConfig guards demo/admin endpoints.
type AdminConfig struct {
	PasswordHash string `toml:"password_hash" split_words:"true"`
}

// JobsConfig schedules background maintenance.
type JobsConfig struct {
	Enabled        bool   `toml:"enabled"`
	PruneInterval  string `toml:"prune_interval" split_words:"true"`
	ReportInterval string `toml:"report_interval" split_words:"true"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			Host:           "127.0.0.1",
			Port:           8787,
			RequestTimeout: "30s",
		},
		Storage: StorageConfig{
			Driver:   "sqlite",
			MaxConns: 10,
		},
		Transactions: TransactionsConfig{
			ConfirmDelay: "1500ms",
			MaxStored:    100,
		},
		Metrics: MetricsConfig{Enabled: true},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Pricing: PricingConfig{TokenPriceUSD: 0.15},
		Jobs: JobsConfig{
			Enabled:        true,
			PruneInterval:  "1h",
			ReportInterval: "5m",
		},
	}
}

// Home returns the service home directory: $HEROES_HOME or ~/.heroes.
func Home() string {
	if h := os.Getenv("HEROES_HOME"); h != "" {
		return h
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".heroes"
	}
	return filepath.Join(home, ".heroes")
}

// DefaultConfigPath returns <home>/config.toml.
func DefaultConfigPath() string {
	return filepath.Join(Home(), "config.toml")
}

// LoadConfig reads path (DefaultConfigPath when empty) over the defaults and
// then applies HEROES_* environment overrides. A missing file is not an error.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		path = DefaultConfigPath()
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("env overrides: %w", err)
	}
	if cfg.Storage.DataDir == "" {
		cfg.Storage.DataDir = Home()
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// WriteConfig writes cfg as TOML, creating parent directories.
func WriteConfig(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(cfg)
}

// Validate checks values that would otherwise fail later at startup.
func (c Config) Validate() error {
	if c.API.Port <= 0 || c.API.Port > 65535 {
		return fmt.Errorf("api.port %d out of range", c.API.Port)
	}
	switch strings.ToLower(c.Storage.Driver) {
	case "sqlite", "memory":
	case "postgres":
		if c.Storage.PostgresDSN == "" {
			return errors.New("storage.postgres_dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown storage.driver %q", c.Storage.Driver)
	}
	for name, v := range map[string]string{
		"api.request_timeout":        c.API.RequestTimeout,
		"transactions.confirm_delay": c.Transactions.ConfirmDelay,
		"jobs.prune_interval":        c.Jobs.PruneInterval,
		"jobs.report_interval":       c.Jobs.ReportInterval,
	} {
		if _, err := parseDuration(v); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	if c.Pricing.TokenPriceUSD < 0 {
		return errors.New("pricing.token_price_usd must not be negative")
	}
	return nil
}

// RequestTimeout returns the parsed api.request_timeout.
func (c Config) RequestTimeout() time.Duration {
	d, _ := parseDuration(c.API.RequestTimeout)
	return d
}

// ConfirmDelay returns the parsed transactions.confirm_delay.
func (c Config) ConfirmDelay() time.Duration {
	d, _ := parseDuration(c.Transactions.ConfirmDelay)
	return d
}

// PruneInterval returns the parsed jobs.prune_interval.
func (c Config) PruneInterval() time.Duration {
	d, _ := parseDuration(c.Jobs.PruneInterval)
	return d
}

// ReportInterval returns the parsed jobs.report_interval.
func (c Config) ReportInterval() time.Duration {
	d, _ := parseDuration(c.Jobs.ReportInterval)
	return d
}

// parseDuration accepts Go duration strings; empty means zero.
func parseDuration(s string) (time.Duration, error) {
	if strings.TrimSpace(s) == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %q", s)
	}
	return d, nil
}
