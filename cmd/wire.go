package main

import (
	"time"

	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"

	"github.com/sells-group/health-advisor/internal/advisor"
	"github.com/sells-group/health-advisor/internal/config"
	"github.com/sells-group/health-advisor/internal/market"
	"github.com/sells-group/health-advisor/internal/policydb"
	"github.com/sells-group/health-advisor/internal/resilience"
	"github.com/sells-group/health-advisor/internal/scrape"
	anthropicpkg "github.com/sells-group/health-advisor/pkg/anthropic"
)

// advisorEnv holds the policy database and the model-backed advisor used by
// the serve and one-shot model commands.
type advisorEnv struct {
	DB        *policydb.Database
	DBWarning string
	Advisor   *advisor.Advisor
}

// initAdvisor loads the policy database and builds the advisor. A database
// that fails to load degrades to an empty one with a warning. A model that
// cannot be configured leaves the advisor unavailable rather than failing.
func initAdvisor(c *config.Config) *advisorEnv {
	db, warning := policydb.LoadOrEmpty(c.Database.Path)

	gen, err := newGenerator(c.Anthropic)
	if err != nil {
		zap.L().Warn("language model unavailable", zap.Error(err))
	}

	gw := advisor.NewGateway(gen, gatewayConfig(c.Gateway))
	return &advisorEnv{
		DB:        db,
		DBWarning: warning,
		Advisor:   advisor.New(gw, db),
	}
}

// newGenerator returns a nil Generator when no API key is configured.
func newGenerator(c config.AnthropicConfig) (advisor.Generator, error) {
	if c.Key == "" {
		return nil, advisor.ErrModelUnavailable
	}
	var opts []option.RequestOption
	if c.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(c.BaseURL))
	}
	temp := c.Temperature
	gen, err := advisor.NewAnthropicGenerator(anthropicpkg.NewClient(c.Key, opts...), advisor.AnthropicConfig{
		Model:       c.Model,
		MaxTokens:   c.MaxTokens,
		Temperature: &temp,
		System:      advisor.SystemPrompt,
		CacheTTL:    c.CacheTTL,
	})
	if err != nil {
		return nil, err
	}
	return gen, nil
}

func gatewayConfig(c config.GatewayConfig) advisor.GatewayConfig {
	return advisor.GatewayConfig{
		Retry:    resilience.FromRetryConfig(c.MaxAttempts, c.InitialBackoffSecs, c.Multiplier),
		Fallback: c.FallbackMessage,
	}
}

// scrapeEnv holds the shared fetcher and every scraper.
type scrapeEnv struct {
	Fetcher  *scrape.Fetcher
	IRDAI    *scrape.IRDAIScraper
	Claims   *scrape.ClaimsScraper
	Premiums *scrape.PremiumScraper
	Terms    *scrape.TermsScraper
}

func initScrapers(c config.ScrapeConfig) *scrapeEnv {
	f := scrape.NewFetcher(scrape.FetcherOptions{
		Timeout:           time.Duration(c.TimeoutSecs) * time.Second,
		UserAgent:         c.UserAgent,
		MaxBodyBytes:      int64(c.MaxBodyKB) << 10,
		RequestsPerSecond: c.RequestsPerSecond,
	})
	return &scrapeEnv{
		Fetcher:  f,
		IRDAI:    scrape.NewIRDAIScraper(f, c.IRDAIURL),
		Claims:   scrape.NewClaimsScraper(f, c.ClaimsURL),
		Premiums: scrape.NewPremiumScraper(f, toSites(c.PremiumSites)),
		Terms:    scrape.NewTermsScraper(f, toSites(c.TermsSites)),
	}
}

// Refresher wires the table scrapers to a fresh set of market tables.
func (e *scrapeEnv) Refresher(keepOnError bool) *market.Refresher {
	return market.NewRefresher(market.NewTables(keepOnError), e.IRDAI, e.Claims, e.Premiums)
}

// toSites returns nil for an empty list so the scrapers use their defaults.
func toSites(in []config.SiteConfig) []scrape.Site {
	if len(in) == 0 {
		return nil
	}
	out := make([]scrape.Site, 0, len(in))
	for _, s := range in {
		out = append(out, scrape.Site{Company: s.Company, URL: s.URL})
	}
	return out
}
