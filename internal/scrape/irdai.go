package scrape

import (
	"context"

	"github.com/PuerkitoBio/goquery"

	"github.com/sells-group/health-advisor/internal/model"
)

// Column positions in the regulator's product listing.
const (
	irdaiMinColumns = 6
	irdaiCompanyCol = 2
	irdaiPolicyCol  = 4
	irdaiDateCol    = 5
	irdaiLinkCol    = 7
)

// IRDAIScraper reads the regulator's health product filings listing.
type IRDAIScraper struct {
	fetcher *Fetcher
	url     string
}

// NewIRDAIScraper creates a scraper for the listing at url.
func NewIRDAIScraper(f *Fetcher, url string) *IRDAIScraper {
	if url == "" {
		url = DefaultIRDAIURL
	}
	return &IRDAIScraper{fetcher: f, url: url}
}

func (s *IRDAIScraper) Name() string { return SourceIRDAI }

// Scrape fetches the listing. Rows with fewer than six cells are skipped.
func (s *IRDAIScraper) Scrape(ctx context.Context) model.Result[model.MarketDataItem] {
	return collect(ctx, SourceIRDAI, func(ctx context.Context) ([]model.MarketDataItem, error) {
		page, err := s.fetcher.Get(ctx, s.url)
		if err != nil {
			return nil, err
		}
		doc, err := page.Document()
		if err != nil {
			return nil, err
		}
		return parseIRDAI(doc), nil
	})
}

// parseIRDAI reads one item per table row with at least six cells. A row
// with six or seven cells has no link column; it still yields an item with
// an empty PDFLink instead of failing the whole listing.
func parseIRDAI(doc *goquery.Document) []model.MarketDataItem {
	var items []model.MarketDataItem
	doc.Find("table tr").Each(func(_ int, row *goquery.Selection) {
		cols := row.Find("td")
		if cols.Length() < irdaiMinColumns {
			return
		}
		item := model.MarketDataItem{
			Company: cellText(cols.Eq(irdaiCompanyCol)),
			Policy:  cellText(cols.Eq(irdaiPolicyCol)),
			Date:    cellText(cols.Eq(irdaiDateCol)),
		}
		// Eq past the end is an empty selection, so short rows get no link.
		if href, ok := cols.Eq(irdaiLinkCol).Find("a").First().Attr("href"); ok {
			item.PDFLink = href
		}
		items = append(items, item)
	})
	return items
}
