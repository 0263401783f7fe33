package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// inTempDir runs the test from an empty directory so no config.yaml or
// .env is found.
func inTempDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	inTempDir(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "claude-haiku-4-5-20251001", cfg.Anthropic.Model)
	assert.Equal(t, int64(4096), cfg.Anthropic.MaxTokens)
	assert.Equal(t, "1h", cfg.Anthropic.CacheTTL)
	assert.Equal(t, 3, cfg.Gateway.MaxAttempts)
	assert.Equal(t, 5, cfg.Gateway.InitialBackoffSecs)
	assert.InDelta(t, 2.0, cfg.Gateway.Multiplier, 0.001)
	assert.Equal(t, "I'm currently experiencing high demand. Please try again in a few minutes.", cfg.Gateway.FallbackMessage)
	assert.Equal(t, "insurance_database.yml", cfg.Database.Path)
	assert.Equal(t, 10, cfg.Scrape.TimeoutSecs)
	assert.Equal(t, 2048, cfg.Scrape.MaxBodyKB)
	assert.Equal(t, "https://irdai.gov.in/health-insurance-products", cfg.Scrape.IRDAIURL)
	assert.Equal(t, "https://joinditto.in/health-insurance/companies/", cfg.Scrape.ClaimsURL)
	assert.Empty(t, cfg.Scrape.PremiumSites)
	assert.True(t, cfg.Schedule.Enabled)
	assert.Equal(t, 60, cfg.Schedule.PollIntervalSecs)
	assert.Equal(t, 24, cfg.Schedule.IRDAIIntervalHours)
	assert.Equal(t, 24, cfg.Schedule.ClaimsIntervalHours)
	assert.True(t, cfg.Schedule.RunOnStart)
	assert.True(t, cfg.Market.KeepOnError)
	assert.Equal(t, 10, cfg.Market.DisplayLimit)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 24, cfg.Session.TTLHours)
	assert.Empty(t, cfg.Monitoring.WebhookURL)
	assert.Equal(t, 3, cfg.Monitoring.FailureThreshold)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	dir := inTempDir(t)

	yaml := `
log:
  level: debug
  format: console
server:
  port: 9090
market:
  keep_on_error: false
schedule:
  irdai_cron: "0 6 * * *"
scrape:
  premium_sites:
    - company: Care Health
      url: https://example.com/care
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.False(t, cfg.Market.KeepOnError)
	assert.Equal(t, "0 6 * * *", cfg.Schedule.IRDAICron)
	require.Len(t, cfg.Scrape.PremiumSites, 1)
	assert.Equal(t, SiteConfig{Company: "Care Health", URL: "https://example.com/care"}, cfg.Scrape.PremiumSites[0])
	// Defaults still apply for unset values
	assert.Equal(t, 10, cfg.Scrape.TimeoutSecs)
}

func TestLoadEnvOverrides(t *testing.T) {
	inTempDir(t)
	t.Setenv("ADVISOR_ANTHROPIC_KEY", "sk-ant-test")
	t.Setenv("ADVISOR_SERVER_PORT", "7070")
	t.Setenv("ADVISOR_DATABASE_PATH", "/data/policies.yml")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "sk-ant-test", cfg.Anthropic.Key)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "/data/policies.yml", cfg.Database.Path)
}

func TestLoadDotEnv(t *testing.T) {
	dir := inTempDir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("ADVISOR_ANTHROPIC_MODEL=claude-sonnet-4-5-20250929\n"), 0644))
	t.Cleanup(func() { _ = os.Unsetenv("ADVISOR_ANTHROPIC_MODEL") })

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "claude-sonnet-4-5-20250929", cfg.Anthropic.Model)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := inTempDir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("server: [unclosed"), 0644))

	_, err := Load()
	assert.Error(t, err)
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	assert.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	assert.NoError(t, err)
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "loud", Format: "json"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "parse log level")
}

func validDefaults() *Config {
	return &Config{
		Anthropic: AnthropicConfig{Key: "sk-ant-key", Model: "claude-haiku-4-5-20251001"},
		Gateway:   GatewayConfig{MaxAttempts: 3},
		Scrape:    ScrapeConfig{TimeoutSecs: 10},
		Schedule: ScheduleConfig{
			Enabled:             true,
			PollIntervalSecs:    60,
			IRDAIIntervalHours:  24,
			ClaimsIntervalHours: 24,
		},
		Server: ServerConfig{Port: 8080},
	}
}

func TestValidateServe_Valid(t *testing.T) {
	assert.NoError(t, validDefaults().Validate("serve"))
}

func TestValidateServe_MissingKey(t *testing.T) {
	cfg := validDefaults()
	cfg.Anthropic.Key = ""
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic.key is required")
	assert.Contains(t, err.Error(), "server.port must be > 0")
}

func TestValidateServe_CronReplacesInterval(t *testing.T) {
	cfg := validDefaults()
	cfg.Schedule.IRDAIIntervalHours = 0
	assert.Error(t, cfg.Validate("serve"))

	cfg.Schedule.IRDAICron = "0 6 * * *"
	assert.NoError(t, cfg.Validate("serve"))

	cfg.Schedule.Enabled = false
	cfg.Schedule.PollIntervalSecs = 0
	cfg.Schedule.IRDAICron = ""
	assert.NoError(t, cfg.Validate("serve"))
}

func TestValidateModel(t *testing.T) {
	cfg := validDefaults()
	cfg.Gateway.MaxAttempts = 0
	cfg.Scrape.TimeoutSecs = 0

	err := cfg.Validate("model")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gateway.max_attempts")
	assert.NotContains(t, err.Error(), "scrape.timeout_secs")
}

func TestValidateScrape_NoKeyNeeded(t *testing.T) {
	cfg := validDefaults()
	cfg.Anthropic.Key = ""
	assert.NoError(t, cfg.Validate("scrape"))

	cfg.Scrape.TermsSites = []SiteConfig{{Company: "Care"}}
	err := cfg.Validate("scrape")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scrape.terms_sites[0] needs company and url")
}

func TestValidateUnknownMode(t *testing.T) {
	err := validDefaults().Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}
