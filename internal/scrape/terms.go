package scrape

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"go.uber.org/zap"
)

// TermsFetchErrorMessage is returned when the insurer page answers with a
// non-200 status.
const TermsFetchErrorMessage = "Could not fetch terms and conditions. Website returned an error."

// TermsScraper looks up terms and conditions text on insurer websites.
type TermsScraper struct {
	fetcher *Fetcher
	sites   []Site
}

// NewTermsScraper creates a scraper over sites, matched in order. Nil
// sites selects DefaultTermsSites.
func NewTermsScraper(f *Fetcher, sites []Site) *TermsScraper {
	if sites == nil {
		sites = DefaultTermsSites()
	}
	return &TermsScraper{fetcher: f, sites: sites}
}

// Match returns the first site whose company name contains, or is
// contained in, company, ignoring case.
func (s *TermsScraper) Match(company string) (Site, bool) {
	want := strings.ToLower(strings.TrimSpace(company))
	if want == "" {
		return Site{}, false
	}
	for _, site := range s.sites {
		key := strings.ToLower(site.Company)
		if strings.Contains(want, key) || strings.Contains(key, want) {
			return site, true
		}
	}
	return Site{}, false
}

// Fetch returns the terms text for company, or an explanatory message when
// the company is unknown or the site cannot be read.
func (s *TermsScraper) Fetch(ctx context.Context, company string) string {
	site, ok := s.Match(company)
	if !ok {
		return fmt.Sprintf("No website information available for %s", company)
	}

	res := collect(ctx, SourceTerms, func(ctx context.Context) ([]string, error) {
		return s.blocks(ctx, site)
	})
	if res.Err != nil {
		var se *StatusError
		if errors.As(res.Err, &se) {
			return TermsFetchErrorMessage
		}
		return "Error fetching terms and conditions: " + res.Err.Error()
	}
	return strings.Join(res.Items, "\n")
}

func (s *TermsScraper) blocks(ctx context.Context, site Site) ([]string, error) {
	page, err := s.fetcher.Get(ctx, site.URL)
	if err != nil {
		return nil, err
	}
	doc, err := page.Document()
	if err != nil {
		return nil, err
	}

	if sections := termsSections(doc); len(sections) > 0 {
		return sections, nil
	}

	var out []string
	for _, link := range termsLinks(doc, site.URL) {
		text, err := s.linkedText(ctx, link)
		if err != nil {
			zap.L().Debug("terms link skipped",
				zap.String("source", SourceTerms),
				zap.String("url", link),
				zap.Error(err),
			)
			continue
		}
		if text != "" {
			out = append(out, text)
		}
	}
	return out, nil
}

// termsSections returns the text of div and section elements whose class
// mentions terms or conditions.
func termsSections(doc *goquery.Document) []string {
	var out []string
	doc.Find("div[class], section[class]").Each(func(_ int, el *goquery.Selection) {
		class := strings.ToLower(el.AttrOr("class", ""))
		if !strings.Contains(class, "terms") && !strings.Contains(class, "conditions") {
			return
		}
		if text := cellText(el); text != "" {
			out = append(out, text)
		}
	})
	return out
}

// termsLinks returns the resolved targets of anchors whose text mentions
// terms or conditions, without duplicates.
func termsLinks(doc *goquery.Document, pageURL string) []string {
	var out []string
	seen := make(map[string]bool)
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		text := strings.ToLower(a.Text())
		if !strings.Contains(text, "terms") && !strings.Contains(text, "conditions") {
			return
		}
		link := ResolveLink(pageURL, a.AttrOr("href", ""))
		if link == "" || seen[link] {
			return
		}
		seen[link] = true
		out = append(out, link)
	})
	return out
}

// ResolveLink makes href absolute. Root-relative paths join the page's
// scheme and host; other relative paths are appended to the page URL.
func ResolveLink(pageURL, href string) string {
	href = strings.TrimSpace(href)
	switch {
	case href == "":
		return ""
	case strings.HasPrefix(href, "http"):
		return href
	case strings.HasPrefix(href, "/"):
		return origin(pageURL) + href
	default:
		return pageURL + "/" + href
	}
}

// origin returns "scheme://host" of a URL, i.e. its first three
// slash-separated parts.
func origin(pageURL string) string {
	parts := strings.SplitN(pageURL, "/", 4)
	if len(parts) < 3 {
		return pageURL
	}
	return strings.Join(parts[:3], "/")
}

// linkedText fetches a linked terms page and extracts its readable text,
// falling back to the whole body text.
func (s *TermsScraper) linkedText(ctx context.Context, link string) (string, error) {
	page, err := s.fetcher.Get(ctx, link)
	if err != nil {
		return "", err
	}

	article, err := readability.FromReader(bytes.NewReader(page.Body), page.URL)
	if err == nil {
		if text := strings.Join(strings.Fields(article.TextContent), " "); text != "" {
			return text, nil
		}
	}

	doc, err := page.Document()
	if err != nil {
		return "", err
	}
	return cellText(doc.Find("body")), nil
}
