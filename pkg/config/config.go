package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds every configuration option this gateway reads, plus the
// ambient server/Redis settings needed to run the process. Fields are
// read from an optional config.yaml and overlaid by the process
// environment.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Policy   PolicyConfig   `mapstructure:"policy"`
	Threat   ThreatConfig   `mapstructure:"threat"`
	Scanner  ScannerConfig  `mapstructure:"scanner"`
	Mirror   MirrorConfig   `mapstructure:"mirror"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Features FeaturesConfig `mapstructure:"features"`
}

type ServerConfig struct {
	Port        int    `mapstructure:"port"`
	Host        string `mapstructure:"host"`
	MetricsPort int    `mapstructure:"metrics_port"`
}

// MetricsConfig gates the separate /metrics port.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// RedisConfig backs pkg/infra/ratelimitstore. Its presence/absence is the
// "rate-limit store binding" spec §6 describes — see Features.RateLimitStoreEnabled.
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// PolicyConfig is DATABASE_ABSTRACTOR_SERVICE_URL / _TOKEN. The same base
// URL and token double as the LLM endpoint's credentials (spec §4.9/§6).
type PolicyConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Token   string `mapstructure:"token"`
}

// ThreatConfig is THREAT_BACKEND_URL / THREAT_BACKEND_TOKEN.
type ThreatConfig struct {
	URL   string `mapstructure:"url"`
	Token string `mapstructure:"token"`
}

// ScannerConfig points at the remote scanner worker's fixed endpoint.
type ScannerConfig struct {
	URL string `mapstructure:"url"`
}

// MirrorConfig is MIRROR_TARGET_URL. Empty means no tee runs.
type MirrorConfig struct {
	URL string `mapstructure:"url"`
}

type FeaturesConfig struct {
	// GuardrailsEnabled is ENABLE_MCP_GUARDRAILS.
	GuardrailsEnabled bool `mapstructure:"guardrails_enabled"`
	// RateLimitStoreEnabled toggles §4.3 by presence/absence of a Redis
	// binding, per spec §6's "rate-limit store binding" option.
	RateLimitStoreEnabled bool `mapstructure:"rate_limit_store_enabled"`
}

const (
	DefaultPolicyBaseURL = "https://cyborg.akto.io"
	DefaultThreatURL     = "https://tbs.akto.io/api/threat_detection/record_malicious_event"
	DefaultScannerURL    = "https://model-executor/scan"
)

// Load reads configPath/config.yaml if present, then overlays environment
// variables. A missing config file is not fatal; env-only configuration
// is valid.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if configPath != "" {
		v.AddConfigPath(configPath)
	}
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config.yaml: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.metrics_port", 9090)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("redis.port", 6379)
	v.SetDefault("policy.base_url", DefaultPolicyBaseURL)
	v.SetDefault("threat.url", DefaultThreatURL)
	v.SetDefault("scanner.url", DefaultScannerURL)
	v.SetDefault("features.guardrails_enabled", true)
}

// applyEnvOverrides maps spec §6's named environment variables onto the
// config, guaranteeing those exact names take precedence over config.yaml
// regardless of viper's automatic key replacement rules.
func applyEnvOverrides(cfg *Config) {
	if v, ok := envLookup("DATABASE_ABSTRACTOR_SERVICE_URL"); ok {
		cfg.Policy.BaseURL = v
	}
	if v, ok := envLookup("DATABASE_ABSTRACTOR_SERVICE_TOKEN"); ok {
		cfg.Policy.Token = v
	}
	if v, ok := envLookup("THREAT_BACKEND_URL"); ok {
		cfg.Threat.URL = v
	}
	if v, ok := envLookup("THREAT_BACKEND_TOKEN"); ok {
		cfg.Threat.Token = v
	}
	if v, ok := envLookup("ENABLE_MCP_GUARDRAILS"); ok {
		cfg.Features.GuardrailsEnabled = v == "true"
	}
	if v, ok := envLookup("MIRROR_TARGET_URL"); ok {
		cfg.Mirror.URL = v
	}
	if v, ok := envLookup("REDIS_HOST"); ok {
		cfg.Redis.Host = v
		cfg.Features.RateLimitStoreEnabled = true
	}
	if cfg.Redis.Host != "" {
		cfg.Features.RateLimitStoreEnabled = true
	}
}
