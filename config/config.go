package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the configuration settings for the engine.
type Config struct {
	Postgres      PostgresConfig      `yaml:"postgres"`
	NATS          NATSConfig          `yaml:"nats"`
	HTTP          HTTPConfig          `yaml:"http"`
	JWT           JWTConfig           `yaml:"jwt"`
	Engine        EngineConfig        `yaml:"engine"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// PostgresConfig holds Postgres configuration.
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// NATSConfig holds NATS configuration. An empty URL disables event publishing.
type NATSConfig struct {
	URL string `yaml:"url"`
}

// HTTPConfig holds the API listener configuration.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// JWTConfig holds magic-link signing configuration.
type JWTConfig struct {
	Secret      string `yaml:"secret"`
	LinkBaseURL string `yaml:"link_base_url"`
}

// EngineConfig holds the time windows that drive the lifecycle engine.
type EngineConfig struct {
	InstantAttemptWindow  time.Duration `yaml:"instant_attempt_window"`
	DeferredAttemptWindow time.Duration `yaml:"deferred_attempt_window"`
	VerificationTimeout   time.Duration `yaml:"verification_timeout"`
	WitnessTTL            time.Duration `yaml:"witness_ttl"`
	MagicLinkTTL          time.Duration `yaml:"magic_link_ttl"`
	EntryCooldown         time.Duration `yaml:"entry_cooldown"`
	SweepInterval         time.Duration `yaml:"sweep_interval"`
}

// UnmarshalYAML parses the window fields from "15m" style strings; yaml.v3
// has no native time.Duration support.
func (e *EngineConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		InstantAttemptWindow  string `yaml:"instant_attempt_window"`
		DeferredAttemptWindow string `yaml:"deferred_attempt_window"`
		VerificationTimeout   string `yaml:"verification_timeout"`
		WitnessTTL            string `yaml:"witness_ttl"`
		MagicLinkTTL          string `yaml:"magic_link_ttl"`
		EntryCooldown         string `yaml:"entry_cooldown"`
		SweepInterval         string `yaml:"sweep_interval"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}

	fields := []struct {
		name string
		src  string
		dst  *time.Duration
	}{
		{"instant_attempt_window", raw.InstantAttemptWindow, &e.InstantAttemptWindow},
		{"deferred_attempt_window", raw.DeferredAttemptWindow, &e.DeferredAttemptWindow},
		{"verification_timeout", raw.VerificationTimeout, &e.VerificationTimeout},
		{"witness_ttl", raw.WitnessTTL, &e.WitnessTTL},
		{"magic_link_ttl", raw.MagicLinkTTL, &e.MagicLinkTTL},
		{"entry_cooldown", raw.EntryCooldown, &e.EntryCooldown},
		{"sweep_interval", raw.SweepInterval, &e.SweepInterval},
	}
	for _, f := range fields {
		if f.src == "" {
			continue
		}
		d, err := time.ParseDuration(f.src)
		if err != nil {
			return fmt.Errorf("engine.%s: %w", f.name, err)
		}
		*f.dst = d
	}
	return nil
}

// ObservabilityConfig holds logging and metrics configuration.
type ObservabilityConfig struct {
	LogLevel       string `yaml:"log_level"`
	Environment    string `yaml:"environment"`
	MetricsAddress string `yaml:"metrics_address"`
}

// LoadConfig loads the configuration from a YAML file, falling back to
// environment variables when the file is absent. Env vars override file
// values either way.
func LoadConfig(filename string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(filename)
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	}

	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Postgres.DSN = v
	}
	if v := os.Getenv("NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.JWT.Secret = v
	}
	if v := os.Getenv("LINK_BASE_URL"); v != "" {
		cfg.JWT.LinkBaseURL = v
	}
	if v := os.Getenv("METRICS_ADDRESS"); v != "" {
		cfg.Observability.MetricsAddress = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}
	if v := os.Getenv("ENV"); v != "" {
		cfg.Observability.Environment = v
	}

	cfg.applyDefaults()

	if cfg.Postgres.DSN == "" {
		return nil, fmt.Errorf("postgres DSN not set (config file or DATABASE_URL)")
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.Engine.InstantAttemptWindow == 0 {
		c.Engine.InstantAttemptWindow = 15 * time.Minute
	}
	if c.Engine.DeferredAttemptWindow == 0 {
		c.Engine.DeferredAttemptWindow = 6 * time.Hour
	}
	if c.Engine.VerificationTimeout == 0 {
		c.Engine.VerificationTimeout = 12 * time.Hour
	}
	if c.Engine.WitnessTTL == 0 {
		c.Engine.WitnessTTL = 72 * time.Hour
	}
	if c.Engine.MagicLinkTTL == 0 {
		c.Engine.MagicLinkTTL = time.Hour
	}
	if c.Engine.EntryCooldown == 0 {
		c.Engine.EntryCooldown = 12 * time.Hour
	}
	if c.Engine.SweepInterval == 0 {
		c.Engine.SweepInterval = time.Minute
	}
	if c.Observability.Environment == "" {
		c.Observability.Environment = "development"
	}
}
