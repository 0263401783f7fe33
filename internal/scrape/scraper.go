package scrape

import (
	"context"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/sells-group/health-advisor/internal/metrics"
	"github.com/sells-group/health-advisor/internal/model"
)

// Source names, used as log fields and metric labels.
const (
	SourceIRDAI    = "irdai"
	SourceClaims   = "claims"
	SourcePremiums = "premiums"
	SourceTerms    = "terms"
)

// Source produces one kind of market data.
type Source[T any] interface {
	Name() string
	Scrape(ctx context.Context) model.Result[T]
}

// collect runs fn and converts its outcome into a Result, logging and
// counting failures instead of returning them.
func collect[T any](ctx context.Context, source string, fn func(context.Context) ([]T, error)) model.Result[T] {
	start := time.Now()
	items, err := fn(ctx)
	metrics.ScrapeDuration.WithLabelValues(source).Observe(time.Since(start).Seconds())

	var res model.Result[T]
	if err != nil {
		zap.L().Warn("scrape failed",
			zap.String("source", source),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		res = model.Failed[T](err)
	} else {
		res = model.Collected(items)
		zap.L().Info("scrape complete",
			zap.String("source", source),
			zap.Int("items", len(res.Items)),
			zap.Duration("elapsed", time.Since(start)),
		)
	}
	metrics.ScrapeRuns.WithLabelValues(source, string(res.Status)).Inc()
	return res
}

// cellText returns the element's text with whitespace collapsed.
func cellText(s *goquery.Selection) string {
	return strings.Join(strings.Fields(s.Text()), " ")
}

// Site maps a company display name to a page URL.
type Site struct {
	Company string `mapstructure:"company" yaml:"company" json:"company"`
	URL     string `mapstructure:"url" yaml:"url" json:"url"`
}

// Default source URLs.
const (
	DefaultIRDAIURL  = "https://irdai.gov.in/health-insurance-products"
	DefaultClaimsURL = "https://joinditto.in/health-insurance/companies/"
)

// DefaultPremiumSites lists the insurer plan pages scraped for premiums.
func DefaultPremiumSites() []Site {
	return []Site{
		{Company: "HDFC ERGO", URL: "https://www.hdfcergo.com/health-insurance/plans"},
		{Company: "Star Health", URL: "https://www.starhealth.in/health-insurance-plans"},
		{Company: "Aditya Birla", URL: "https://www.adityabirlacapital.com/health-insurance/plans"},
		{Company: "Bajaj Allianz", URL: "https://www.bajajallianz.com/health-insurance-plans.html"},
		{Company: "ICICI Lombard", URL: "https://www.icicilombard.com/health-insurance/health-plans"},
		{Company: "Tata AIG", URL: "https://www.tataaig.com/health-insurance/health-plans"},
		{Company: "SBI General", URL: "https://www.sbigeneral.in/health-insurance/health-plans"},
		{Company: "Care Health", URL: "https://www.careinsurance.com/health-insurance-policies.html"},
	}
}

// DefaultTermsSites lists insurer home pages searched for terms, in match
// priority order.
func DefaultTermsSites() []Site {
	return []Site{
		{Company: "HDFC ERGO", URL: "https://www.hdfcergo.com/health-insurance"},
		{Company: "Aditya Birla", URL: "https://www.adityabirlacapital.com/health-insurance"},
		{Company: "Bajaj Allianz", URL: "https://www.bajajallianz.com/health-insurance.html"},
		{Company: "Care", URL: "https://www.careinsurance.com/health-insurance-policies.html"},
		{Company: "Niva Bupa", URL: "https://www.nivabupa.com/health-insurance"},
		{Company: "Star Health", URL: "https://www.starhealth.in/health-insurance"},
		{Company: "ICICI Lombard", URL: "https://www.icicilombard.com/health-insurance"},
		{Company: "SBI General", URL: "https://www.sbigeneral.in/health-insurance"},
		{Company: "Tata AIG", URL: "https://www.tataaig.com/health-insurance"},
		{Company: "Max Bupa", URL: "https://www.maxbupa.com/health-insurance"},
		{Company: "Religare", URL: "https://www.religarehealthinsurance.com/health-insurance"},
	}
}
