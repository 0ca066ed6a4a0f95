// Package config loads TicketGate's configuration: a YAML file overridden by
// environment variables, following the teacher's
// internal/infrastructure/db.LoadAppConfig pattern (load-then-override-then-
// validate, an immutable value handed to each component constructor rather
// than a mutable global per spec.md §9's "global configuration singleton"
// design note).
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// API holds the central-service endpoint and HTTP policy (spec.md §6).
type API struct {
	BaseURL       string        `yaml:"base_url"`
	FetchEndpoint string        `yaml:"fetch_endpoint"`
	SyncEndpoint  string        `yaml:"sync_endpoint"`
	Timeout       time.Duration `yaml:"timeout"`
	RetryAttempts int           `yaml:"retry_attempts"`
	RetryDelay    time.Duration `yaml:"retry_delay"`
	RateLimitRPS  float64       `yaml:"rate_limit_rps"`
}

// Services holds the worker cadence/toggle configuration (spec.md §6).
type Services struct {
	FetchInterval   time.Duration `yaml:"fetch_interval"`
	SyncInterval    time.Duration `yaml:"sync_interval"`
	FetchEnabled    bool          `yaml:"fetch_enabled"`
	SyncEnabled     bool          `yaml:"sync_enabled"`
	CleanupEnabled  bool          `yaml:"cleanup_enabled"`
	SkipDummySync   bool          `yaml:"skip_dummy_sync"`
	AddDummyTickets bool          `yaml:"add_dummy_tickets"`
	DummySuffix     string        `yaml:"dummy_suffix"`
}

// Logging holds diagnostic output configuration (spec.md §6).
type Logging struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Gate describes one physical gate: its letter identifier, its two-digit
// wire code, and the local SQLite file backing its store.
type Gate struct {
	Name   string `yaml:"name"`
	Code   string `yaml:"code"`
	DBPath string `yaml:"db_path"`
}

// Config is the full, immutable configuration loaded at startup.
type Config struct {
	API           API               `yaml:"api"`
	Services      Services          `yaml:"services"`
	Logging       Logging           `yaml:"logging"`
	Gates         []Gate            `yaml:"gates"`
	GateAliases   map[string]string `yaml:"gate_aliases"`
	HMACSecretEnv string            `yaml:"hmac_secret_env"`
	BackupDir     string            `yaml:"backup_dir"`
}

// Default returns the documented defaults from spec.md §4/§6.
func Default() Config {
	return Config{
		API: API{
			BaseURL:       "https://booking.example.com",
			FetchEndpoint: "/api/tickets/manifest",
			SyncEndpoint:  "/api/tickets/sync",
			Timeout:       30 * time.Second,
			RetryAttempts: 3,
			RetryDelay:    1 * time.Second,
			RateLimitRPS:  5.0,
		},
		Services: Services{
			FetchInterval:   300 * time.Second,
			SyncInterval:    1 * time.Second,
			FetchEnabled:    true,
			SyncEnabled:     true,
			CleanupEnabled:  true,
			SkipDummySync:   true,
			AddDummyTickets: false,
			DummySuffix:     "-TEST",
		},
		Logging: Logging{
			Level: "info",
		},
		Gates: []Gate{
			{Name: "A", Code: "01", DBPath: "AttractionA.db"},
			{Name: "B", Code: "02", DBPath: "AttractionB.db"},
			{Name: "C", Code: "03", DBPath: "AttractionC.db"},
		},
		GateAliases:   map[string]string{},
		HMACSecretEnv: "TICKETGATE_HMAC_SECRET",
		BackupDir:     "backups",
	}
}

// Load reads configPath (if non-empty and it exists) as YAML on top of
// Default(), applies environment overrides, and validates the result.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			data, err := os.ReadFile(configPath)
			if err != nil {
				return nil, fmt.Errorf("read config %s: %w", configPath, err)
			}
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", configPath, err)
			}
		}
	}

	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func applyEnvOverrides(c *Config) {
	if v := os.Getenv("TICKETGATE_API_BASE_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv("TICKETGATE_FETCH_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Services.FetchInterval = d
		}
	}
	if v := os.Getenv("TICKETGATE_SYNC_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Services.SyncInterval = d
		}
	}
	if v := os.Getenv("TICKETGATE_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("TICKETGATE_FETCH_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Services.FetchEnabled = b
		}
	}
	if v := os.Getenv("TICKETGATE_SYNC_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Services.SyncEnabled = b
		}
	}
	if v := os.Getenv("TICKETGATE_CLEANUP_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Services.CleanupEnabled = b
		}
	}
}

// Validate checks structural validity of the loaded configuration.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is required")
	}
	if c.API.RetryAttempts < 0 {
		return fmt.Errorf("api.retry_attempts cannot be negative")
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be positive")
	}
	if c.Services.FetchInterval <= 0 {
		return fmt.Errorf("services.fetch_interval must be positive")
	}
	if c.Services.SyncInterval <= 0 {
		return fmt.Errorf("services.sync_interval must be positive")
	}
	if len(c.Gates) == 0 {
		return fmt.Errorf("at least one gate must be configured")
	}
	seen := make(map[string]bool, len(c.Gates))
	for _, g := range c.Gates {
		if g.Name == "" || g.Code == "" || g.DBPath == "" {
			return fmt.Errorf("gate entries require name, code, and db_path: %+v", g)
		}
		if seen[g.Code] {
			return fmt.Errorf("duplicate gate code %q", g.Code)
		}
		seen[g.Code] = true
	}
	if c.HMACSecretEnv == "" {
		return fmt.Errorf("hmac_secret_env is required")
	}
	return nil
}

// CodeForGate resolves a gate name (or configured alias) to its two-digit
// wire code, matching spec.md §4.C's gate mapping step.
func (c *Config) CodeForGate(name string) (string, bool) {
	for _, g := range c.Gates {
		if g.Name == name {
			return g.Code, true
		}
	}
	if alias, ok := c.GateAliases[name]; ok {
		return c.CodeForGate(alias)
	}
	return "", false
}
