package scrape

import (
	"context"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/health-advisor/internal/model"
)

// Plan card selectors, tried as CSS selector groups.
const (
	planContainerSelector = ".plan-card, .product-card, .policy-card, .insurance-plan, .card"
	planNameSelector      = "h2, h3, .plan-name, .policy-name, .title"
	planPremiumSelector   = ".premium, .price, .amount, .rate"
	planCoverageSelector  = ".coverage, .sum-insured, .cover-amount"
	planFeatureSelector   = "li, .feature, .benefit"
)

// Placeholders for plan fields that could not be found.
const (
	UnknownPolicy    = "Unknown Policy"
	PremiumNotFound  = "Premium not found"
	CoverageNotFound = "Coverage not found"
)

const (
	maxPlanFeatures    = 5
	premiumConcurrency = 4
)

// PremiumScraper collects plan cards from each insurer's plans page.
type PremiumScraper struct {
	fetcher *Fetcher
	sites   []Site
	now     func() time.Time
}

// NewPremiumScraper creates a scraper over sites. Nil sites selects
// DefaultPremiumSites.
func NewPremiumScraper(f *Fetcher, sites []Site) *PremiumScraper {
	if sites == nil {
		sites = DefaultPremiumSites()
	}
	return &PremiumScraper{fetcher: f, sites: sites, now: time.Now}
}

func (s *PremiumScraper) Name() string { return SourcePremiums }

// Scrape fetches every site concurrently. A failing site is logged and
// skipped; the run fails only when every site failed.
func (s *PremiumScraper) Scrape(ctx context.Context) model.Result[model.PremiumItem] {
	return collect(ctx, SourcePremiums, func(ctx context.Context) ([]model.PremiumItem, error) {
		perSite := make([][]model.PremiumItem, len(s.sites))
		var (
			mu     sync.Mutex
			failed []error
		)

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(premiumConcurrency)
		for i, site := range s.sites {
			g.Go(func() error {
				items, err := s.scrapeSite(gctx, site)
				if err != nil {
					zap.L().Warn("premium scrape failed for company",
						zap.String("source", SourcePremiums),
						zap.String("company", site.Company),
						zap.String("url", site.URL),
						zap.Error(err),
					)
					mu.Lock()
					failed = append(failed, err)
					mu.Unlock()
					return nil
				}
				perSite[i] = items
				return nil
			})
		}
		_ = g.Wait()

		var items []model.PremiumItem
		for _, batch := range perSite {
			items = append(items, batch...)
		}
		if len(items) == 0 && len(s.sites) > 0 && len(failed) == len(s.sites) {
			return nil, eris.Wrapf(failed[0], "premiums: all %d sites failed", len(s.sites))
		}
		return items, nil
	})
}

func (s *PremiumScraper) scrapeSite(ctx context.Context, site Site) ([]model.PremiumItem, error) {
	page, err := s.fetcher.Get(ctx, site.URL)
	if err != nil {
		return nil, err
	}
	doc, err := page.Document()
	if err != nil {
		return nil, err
	}
	return parsePlanCards(doc, site.Company, s.now().Format("2006-01-02")), nil
}

func parsePlanCards(doc *goquery.Document, company, updated string) []model.PremiumItem {
	var items []model.PremiumItem
	doc.Find(planContainerSelector).Each(func(_ int, card *goquery.Selection) {
		items = append(items, model.PremiumItem{
			Company:     company,
			PolicyName:  firstText(card, planNameSelector, UnknownPolicy),
			Premium:     firstText(card, planPremiumSelector, PremiumNotFound),
			Coverage:    firstText(card, planCoverageSelector, CoverageNotFound),
			Features:    planFeatures(card),
			LastUpdated: updated,
		})
	})
	return items
}

// firstText returns the text of the first descendant matching selector,
// or def when nothing matches.
func firstText(card *goquery.Selection, selector, def string) string {
	el := card.Find(selector).First()
	if el.Length() == 0 {
		return def
	}
	return cellText(el)
}

func planFeatures(card *goquery.Selection) []string {
	features := []string{}
	card.Find(planFeatureSelector).EachWithBreak(func(_ int, el *goquery.Selection) bool {
		if text := cellText(el); text != "" {
			features = append(features, text)
		}
		return len(features) < maxPlanFeatures
	})
	return features
}
