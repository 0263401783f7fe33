package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Gateway    GatewayConfig    `yaml:"gateway" mapstructure:"gateway"`
	Database   DatabaseConfig   `yaml:"database" mapstructure:"database"`
	Scrape     ScrapeConfig     `yaml:"scrape" mapstructure:"scrape"`
	Schedule   ScheduleConfig   `yaml:"schedule" mapstructure:"schedule"`
	Market     MarketConfig     `yaml:"market" mapstructure:"market"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Session    SessionConfig    `yaml:"session" mapstructure:"session"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key         string  `yaml:"key" mapstructure:"key"`
	Model       string  `yaml:"model" mapstructure:"model"`
	MaxTokens   int64   `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature float64 `yaml:"temperature" mapstructure:"temperature"`
	CacheTTL    string  `yaml:"cache_ttl" mapstructure:"cache_ttl"`
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
}

// GatewayConfig configures rate-limit backoff around model calls.
type GatewayConfig struct {
	MaxAttempts        int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffSecs int     `yaml:"initial_backoff_secs" mapstructure:"initial_backoff_secs"`
	Multiplier         float64 `yaml:"multiplier" mapstructure:"multiplier"`
	FallbackMessage    string  `yaml:"fallback_message" mapstructure:"fallback_message"`
}

// DatabaseConfig locates the static policy database.
type DatabaseConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// SiteConfig maps a company to a URL.
type SiteConfig struct {
	Company string `yaml:"company" mapstructure:"company"`
	URL     string `yaml:"url" mapstructure:"url"`
}

// ScrapeConfig configures the market data scrapers.
type ScrapeConfig struct {
	TimeoutSecs       int          `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	UserAgent         string       `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyKB         int          `yaml:"max_body_kb" mapstructure:"max_body_kb"`
	RequestsPerSecond float64      `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	IRDAIURL          string       `yaml:"irdai_url" mapstructure:"irdai_url"`
	ClaimsURL         string       `yaml:"claims_url" mapstructure:"claims_url"`
	PremiumSites      []SiteConfig `yaml:"premium_sites" mapstructure:"premium_sites"`
	TermsSites        []SiteConfig `yaml:"terms_sites" mapstructure:"terms_sites"`
}

// ScheduleConfig configures the background refresh jobs. A cron
// expression, when set, replaces the matching interval.
type ScheduleConfig struct {
	Enabled             bool   `yaml:"enabled" mapstructure:"enabled"`
	PollIntervalSecs    int    `yaml:"poll_interval_secs" mapstructure:"poll_interval_secs"`
	IRDAIIntervalHours  int    `yaml:"irdai_interval_hours" mapstructure:"irdai_interval_hours"`
	ClaimsIntervalHours int    `yaml:"claims_interval_hours" mapstructure:"claims_interval_hours"`
	IRDAICron           string `yaml:"irdai_cron" mapstructure:"irdai_cron"`
	ClaimsCron          string `yaml:"claims_cron" mapstructure:"claims_cron"`
	RunOnStart          bool   `yaml:"run_on_start" mapstructure:"run_on_start"`
}

// MarketConfig configures the in-memory market tables.
type MarketConfig struct {
	KeepOnError  bool `yaml:"keep_on_error" mapstructure:"keep_on_error"`
	DisplayLimit int  `yaml:"display_limit" mapstructure:"display_limit"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// SessionConfig configures in-memory session expiry.
type SessionConfig struct {
	TTLHours int `yaml:"ttl_hours" mapstructure:"ttl_hours"`
}

// MonitoringConfig configures webhook alerts for failing background jobs.
type MonitoringConfig struct {
	WebhookURL       string `yaml:"webhook_url" mapstructure:"webhook_url"`
	FailureThreshold int    `yaml:"failure_threshold" mapstructure:"failure_threshold"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from .env, file, and environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, eris.Wrap(err, "config: read .env")
	}

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("ADVISOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 4096)
	v.SetDefault("anthropic.temperature", 0.2)
	v.SetDefault("anthropic.cache_ttl", "1h")
	v.SetDefault("anthropic.base_url", "")
	v.SetDefault("gateway.max_attempts", 3)
	v.SetDefault("gateway.initial_backoff_secs", 5)
	v.SetDefault("gateway.multiplier", 2.0)
	v.SetDefault("gateway.fallback_message", "I'm currently experiencing high demand. Please try again in a few minutes.")
	v.SetDefault("database.path", "insurance_database.yml")
	v.SetDefault("scrape.timeout_secs", 10)
	v.SetDefault("scrape.user_agent", "")
	v.SetDefault("scrape.max_body_kb", 2048)
	v.SetDefault("scrape.requests_per_second", 2.0)
	v.SetDefault("scrape.irdai_url", "https://irdai.gov.in/health-insurance-products")
	v.SetDefault("scrape.claims_url", "https://joinditto.in/health-insurance/companies/")
	v.SetDefault("schedule.enabled", true)
	v.SetDefault("schedule.poll_interval_secs", 60)
	v.SetDefault("schedule.irdai_interval_hours", 24)
	v.SetDefault("schedule.claims_interval_hours", 24)
	v.SetDefault("schedule.irdai_cron", "")
	v.SetDefault("schedule.claims_cron", "")
	v.SetDefault("schedule.run_on_start", true)
	v.SetDefault("market.keep_on_error", true)
	v.SetDefault("market.display_limit", 10)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("session.ttl_hours", 24)
	v.SetDefault("monitoring.webhook_url", "")
	v.SetDefault("monitoring.failure_threshold", 3)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
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

// Validate checks the settings a command mode depends on. Modes: "serve"
// (HTTP API and scheduler), "model" (one-shot model commands), "scrape"
// (scrapers and export only).
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "serve":
		errs = append(errs, c.validateModel()...)
		errs = append(errs, c.validateScrape()...)
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
		if c.Schedule.Enabled && c.Schedule.PollIntervalSecs <= 0 {
			errs = append(errs, "schedule.poll_interval_secs must be > 0")
		}
		if c.Schedule.Enabled && c.Schedule.IRDAICron == "" && c.Schedule.IRDAIIntervalHours <= 0 {
			errs = append(errs, "schedule.irdai_interval_hours must be > 0 when schedule.irdai_cron is empty")
		}
		if c.Schedule.Enabled && c.Schedule.ClaimsCron == "" && c.Schedule.ClaimsIntervalHours <= 0 {
			errs = append(errs, "schedule.claims_interval_hours must be > 0 when schedule.claims_cron is empty")
		}
	case "model":
		errs = append(errs, c.validateModel()...)
	case "scrape":
		errs = append(errs, c.validateScrape()...)
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateModel() []string {
	var errs []string
	if c.Anthropic.Key == "" {
		errs = append(errs, "anthropic.key is required")
	}
	if c.Anthropic.Model == "" {
		errs = append(errs, "anthropic.model is required")
	}
	if c.Gateway.MaxAttempts < 1 {
		errs = append(errs, "gateway.max_attempts must be >= 1")
	}
	return errs
}

func (c *Config) validateScrape() []string {
	var errs []string
	if c.Scrape.TimeoutSecs <= 0 {
		errs = append(errs, "scrape.timeout_secs must be > 0")
	}
	if c.Scrape.RequestsPerSecond < 0 {
		errs = append(errs, "scrape.requests_per_second must be >= 0")
	}
	errs = append(errs, validateSites("scrape.premium_sites", c.Scrape.PremiumSites)...)
	errs = append(errs, validateSites("scrape.terms_sites", c.Scrape.TermsSites)...)
	return errs
}

func validateSites(key string, sites []SiteConfig) []string {
	var errs []string
	for i, s := range sites {
		if s.Company == "" || s.URL == "" {
			errs = append(errs, fmt.Sprintf("%s[%d] needs company and url", key, i))
		}
	}
	return errs
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
