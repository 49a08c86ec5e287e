package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config struct to hold the configuration settings
type Config struct {
	Postgres      PostgresConfig      `yaml:"postgres"`
	NATS          NATSConfig          `yaml:"nats"`
	Redis         RedisConfig         `yaml:"redis"`
	Discord       DiscordConfig       `yaml:"discord"`
	Clash         ClashConfig         `yaml:"clash"`
	HTTP          HTTPConfig          `yaml:"http"`
	JWT           JWTConfig           `yaml:"jwt"`
	Sync          SyncConfig          `yaml:"sync"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// PostgresConfig holds Postgres configuration.
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// NATSConfig holds NATS configuration.
type NATSConfig struct {
	URL        string `yaml:"url"`
	QueueGroup string `yaml:"queue_group"`
}

// RedisConfig holds the dedup gate store. An empty URL keeps the gate in memory.
type RedisConfig struct {
	URL string `yaml:"url"`
}

// DiscordConfig holds Discord REST configuration.
type DiscordConfig struct {
	Token   string `yaml:"token"`
	BaseURL string `yaml:"base_url"`
}

// ClashConfig holds game API configuration.
type ClashConfig struct {
	Token       string `yaml:"token"`
	BaseURL     string `yaml:"base_url"`
	Concurrency int    `yaml:"concurrency"`
}

// HTTPConfig holds the admin API listener.
type HTTPConfig struct {
	Address string `yaml:"address"`
}

// JWTConfig holds the admin API signing secret.
type JWTConfig struct {
	Secret string `yaml:"secret"`
}

// SyncConfig tunes reconciliation.
type SyncConfig struct {
	EditInterval  time.Duration `yaml:"edit_interval"`
	DedupCooldown time.Duration `yaml:"dedup_cooldown"`
	CallTimeout   time.Duration `yaml:"call_timeout"`
	PollInterval  time.Duration `yaml:"poll_interval"`
	// MaxRunTime bounds a bulk run independently of the caller that started it.
	MaxRunTime time.Duration `yaml:"max_run_time"`
	// MaxCandidates caps members per run; 0 is unbounded.
	MaxCandidates int `yaml:"max_candidates"`
	PollWorkers   int `yaml:"poll_workers"`
}

// ObservabilityConfig holds configuration for observability components
type ObservabilityConfig struct {
	LogLevel    string `yaml:"log_level"`
	Environment string `yaml:"environment"`
}

// LoadConfig loads the configuration from a YAML file.
func LoadConfig(filename string) (*Config, error) {
	// Try reading configuration from the file first
	data, err := os.ReadFile(filename)
	if err != nil {
		// If the file is not found, try loading from environment variables
		return loadConfigFromEnv()
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// --- OVERRIDE WITH ENV VARS IF PRESENT ---
	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

// loadConfigFromEnv loads the configuration from environment variables.
func loadConfigFromEnv() (*Config, error) {
	var cfg Config
	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}

	if cfg.Postgres.DSN == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable not set")
	}
	if cfg.NATS.URL == "" {
		return nil, fmt.Errorf("NATS_URL environment variable not set")
	}
	if cfg.Discord.Token == "" {
		return nil, fmt.Errorf("DISCORD_TOKEN environment variable not set")
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyEnv(cfg *Config) error {
	texts := map[string]*string{
		"DATABASE_URL":     &cfg.Postgres.DSN,
		"NATS_URL":         &cfg.NATS.URL,
		"NATS_QUEUE_GROUP": &cfg.NATS.QueueGroup,
		"REDIS_URL":        &cfg.Redis.URL,
		"DISCORD_TOKEN":    &cfg.Discord.Token,
		"DISCORD_BASE_URL": &cfg.Discord.BaseURL,
		"CLASH_TOKEN":      &cfg.Clash.Token,
		"CLASH_BASE_URL":   &cfg.Clash.BaseURL,
		"HTTP_ADDRESS":     &cfg.HTTP.Address,
		"JWT_SECRET":       &cfg.JWT.Secret,
		"LOG_LEVEL":        &cfg.Observability.LogLevel,
		"ENV":              &cfg.Observability.Environment,
	}
	for name, dst := range texts {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}

	durations := map[string]*time.Duration{
		"SYNC_EDIT_INTERVAL":  &cfg.Sync.EditInterval,
		"SYNC_DEDUP_COOLDOWN": &cfg.Sync.DedupCooldown,
		"SYNC_CALL_TIMEOUT":   &cfg.Sync.CallTimeout,
		"SYNC_POLL_INTERVAL":  &cfg.Sync.PollInterval,
		"SYNC_MAX_RUN_TIME":   &cfg.Sync.MaxRunTime,
	}
	for name, dst := range durations {
		if v := os.Getenv(name); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("invalid %s value: %v", name, err)
			}
			*dst = d
		}
	}

	ints := map[string]*int{
		"SYNC_MAX_CANDIDATES": &cfg.Sync.MaxCandidates,
		"SYNC_POLL_WORKERS":   &cfg.Sync.PollWorkers,
		"CLASH_CONCURRENCY":   &cfg.Clash.Concurrency,
	}
	for name, dst := range ints {
		if v := os.Getenv(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid %s value: %v", name, err)
			}
			*dst = n
		}
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.NATS.QueueGroup == "" {
		cfg.NATS.QueueGroup = "clan-sync-bot"
	}
	if cfg.HTTP.Address == "" {
		cfg.HTTP.Address = ":8080"
	}
	if cfg.Sync.EditInterval == 0 {
		cfg.Sync.EditInterval = time.Second
	}
	if cfg.Sync.DedupCooldown == 0 {
		cfg.Sync.DedupCooldown = 10 * time.Minute
	}
	if cfg.Sync.CallTimeout == 0 {
		cfg.Sync.CallTimeout = 10 * time.Second
	}
	if cfg.Sync.PollInterval == 0 {
		cfg.Sync.PollInterval = 30 * time.Minute
	}
	if cfg.Sync.MaxRunTime == 0 {
		cfg.Sync.MaxRunTime = 2 * time.Hour
	}
	if cfg.Sync.PollWorkers == 0 {
		cfg.Sync.PollWorkers = 5
	}
	if cfg.Observability.LogLevel == "" {
		cfg.Observability.LogLevel = "info"
	}
}
