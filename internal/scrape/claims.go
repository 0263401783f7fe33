package scrape

import (
	"context"

	"github.com/PuerkitoBio/goquery"

	"github.com/sells-group/health-advisor/internal/model"
)

const claimsMinColumns = 5

// ClaimsScraper reads the claim settlement ratio table from an aggregator.
type ClaimsScraper struct {
	fetcher *Fetcher
	url     string
}

// NewClaimsScraper creates a scraper for the aggregator page at url.
func NewClaimsScraper(f *Fetcher, url string) *ClaimsScraper {
	if url == "" {
		url = DefaultClaimsURL
	}
	return &ClaimsScraper{fetcher: f, url: url}
}

func (s *ClaimsScraper) Name() string { return SourceClaims }

// Scrape fetches the aggregator page. The first row of each table is a
// header and is skipped, as are rows with fewer than five cells.
func (s *ClaimsScraper) Scrape(ctx context.Context) model.Result[model.ClaimSettlementItem] {
	return collect(ctx, SourceClaims, func(ctx context.Context) ([]model.ClaimSettlementItem, error) {
		page, err := s.fetcher.Get(ctx, s.url)
		if err != nil {
			return nil, err
		}
		doc, err := page.Document()
		if err != nil {
			return nil, err
		}
		return parseClaims(doc), nil
	})
}

func parseClaims(doc *goquery.Document) []model.ClaimSettlementItem {
	var items []model.ClaimSettlementItem
	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		rows := table.Find("tr")
		if rows.Length() < 2 {
			return
		}
		rows.Slice(1, goquery.ToEnd).Each(func(_ int, row *goquery.Selection) {
			cols := row.Find("td")
			if cols.Length() < claimsMinColumns {
				return
			}
			items = append(items, model.ClaimSettlementItem{
				Company:              cellText(cols.Eq(0)),
				ClaimSettlementRatio: cellText(cols.Eq(1)),
				NetworkHospitals:     cellText(cols.Eq(2)),
				Premium:              cellText(cols.Eq(3)),
			})
		})
	})
	return items
}
