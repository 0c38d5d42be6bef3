// Package config loads application configuration from an optional yaml file
// and GROWTH_* environment variables. Credentials only ever come from the
// environment.
package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/digpatho/growth-api/internal/store"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Apollo    ApolloConfig    `yaml:"apollo" mapstructure:"apollo"`
	Discovery DiscoveryConfig `yaml:"discovery" mapstructure:"discovery"`
	Enrich    EnrichConfig    `yaml:"enrich" mapstructure:"enrich"`
	Proxy     ProxyConfig     `yaml:"proxy" mapstructure:"proxy"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the Postgres backend.
type StoreConfig struct {
	DatabaseURL string            `yaml:"database_url" mapstructure:"database_url"`
	Pool        *store.PoolConfig `yaml:"pool" mapstructure:"pool"`
}

// AnthropicConfig holds the Anthropic API settings shared by all AI flows.
type AnthropicConfig struct {
	Key string `yaml:"key" mapstructure:"key"`
	// RetryBackoffMs is the fixed schedule between attempts; its length is
	// the retry count.
	RetryBackoffMs []int `yaml:"retry_backoff_ms" mapstructure:"retry_backoff_ms"`
}

// RetrySchedule converts the configured backoff into durations.
func (c AnthropicConfig) RetrySchedule() []time.Duration {
	out := make([]time.Duration, 0, len(c.RetryBackoffMs))
	for _, ms := range c.RetryBackoffMs {
		if ms > 0 {
			out = append(out, time.Duration(ms)*time.Millisecond)
		}
	}
	return out
}

// ApolloConfig holds Apollo.io settings.
type ApolloConfig struct {
	Key            string  `yaml:"key" mapstructure:"key"`
	RequestsPerSec float64 `yaml:"requests_per_sec" mapstructure:"requests_per_sec"`
}

// DiscoveryConfig tunes the AI web-search email discovery flow.
type DiscoveryConfig struct {
	Model        string `yaml:"model" mapstructure:"model"`
	MaxTokens    int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
	MaxSearches  int64  `yaml:"max_searches" mapstructure:"max_searches"`
	BatchCap     int    `yaml:"batch_cap" mapstructure:"batch_cap"`
	ItemDelayMs  int    `yaml:"item_delay_ms" mapstructure:"item_delay_ms"`
	BreakerTrips int    `yaml:"breaker_trips" mapstructure:"breaker_trips"`
}

// EnrichConfig tunes the description enrichment and Apollo match flows.
type EnrichConfig struct {
	Model       string `yaml:"model" mapstructure:"model"`
	MaxTokens   int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
	MaxSearches int64  `yaml:"max_searches" mapstructure:"max_searches"`
	MatchCap    int    `yaml:"match_cap" mapstructure:"match_cap"`
	ItemDelayMs int    `yaml:"item_delay_ms" mapstructure:"item_delay_ms"`
}

// ProxyConfig tunes the generic AI proxy endpoint.
type ProxyConfig struct {
	DefaultModel     string  `yaml:"default_model" mapstructure:"default_model"`
	DefaultMaxTokens int64   `yaml:"default_max_tokens" mapstructure:"default_max_tokens"`
	DefaultTemp      float64 `yaml:"default_temperature" mapstructure:"default_temperature"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("GROWTH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	// Credentials default to empty so the GROWTH_* env names are known to
	// viper; the values only ever come from the environment.
	v.SetDefault("store.database_url", "")
	v.SetDefault("anthropic.key", "")
	v.SetDefault("apollo.key", "")
	v.SetDefault("apollo.requests_per_sec", 0.0)
	v.SetDefault("anthropic.retry_backoff_ms", []int{3000, 6000, 12000})
	v.SetDefault("discovery.model", "claude-sonnet-4-20250514")
	v.SetDefault("discovery.max_tokens", 1024)
	v.SetDefault("discovery.max_searches", 5)
	v.SetDefault("discovery.batch_cap", 5)
	v.SetDefault("discovery.item_delay_ms", 2000)
	v.SetDefault("discovery.breaker_trips", 3)
	v.SetDefault("enrich.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("enrich.max_tokens", 4096)
	v.SetDefault("enrich.max_searches", 10)
	v.SetDefault("enrich.match_cap", 25)
	v.SetDefault("enrich.item_delay_ms", 300)
	v.SetDefault("proxy.default_model", "claude-sonnet-4-5-20250929")
	v.SetDefault("proxy.default_max_tokens", 1024)
	v.SetDefault("proxy.default_temperature", 0.7)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
