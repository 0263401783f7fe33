// Package scrape fetches market data from insurer, regulator, and
// aggregator web pages. Every scraper is best-effort: failures are logged
// and reported through model.Result, never returned to the caller.
package scrape

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DefaultUserAgent is a desktop browser string; several insurer sites
// refuse obvious bots.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// FetcherOptions configures a Fetcher.
type FetcherOptions struct {
	Timeout      time.Duration
	UserAgent    string
	MaxBodyBytes int64
	// RequestsPerSecond limits requests per host. Zero disables limiting.
	RequestsPerSecond float64
}

// Fetcher issues timeout-bounded GET requests with a browser user agent,
// a per-host rate limit, and anti-bot block detection.
type Fetcher struct {
	client *http.Client
	opts   FetcherOptions

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewFetcher creates a Fetcher with the given options.
func NewFetcher(opts FetcherOptions) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 2 << 20
	}
	return &Fetcher{
		client: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: opts.Timeout,
				}).DialContext,
				TLSHandshakeTimeout: opts.Timeout,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		opts:     opts,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Page is a fetched HTML page.
type Page struct {
	// URL is the final URL after redirects.
	URL        *url.URL
	StatusCode int
	Body       []byte
	// Truncated is set when the body was cut at MaxBodyBytes.
	Truncated bool
}

// Document parses the page body as HTML.
func (p *Page) Document() (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(p.Body))
	if err != nil {
		return nil, eris.Wrap(err, "scrape: parse html")
	}
	return doc, nil
}

// StatusError reports a response other than 200 OK.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("scrape: %s returned status %d", e.URL, e.StatusCode)
}

// Get fetches targetURL. Anything but a 200 response is an error: blocked
// pages yield a block error, other statuses a *StatusError.
func (f *Fetcher) Get(ctx context.Context, targetURL string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "scrape: create request")
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	if err := f.limiterFor(req.URL.Host).Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "scrape: rate limiter wait")
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "scrape: fetch")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.opts.MaxBodyBytes+1))
	if err != nil {
		return nil, eris.Wrap(err, "scrape: read body")
	}
	truncated := int64(len(body)) > f.opts.MaxBodyBytes
	if truncated {
		body = body[:f.opts.MaxBodyBytes]
		zap.L().Warn("scrape: response body truncated, later content is dropped",
			zap.String("url", targetURL),
			zap.Int64("max_body_bytes", f.opts.MaxBodyBytes),
		)
	}

	if block := DetectBlock(resp, body); block != BlockNone {
		return nil, eris.Errorf("scrape: %s blocked (%s)", targetURL, block)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{URL: targetURL, StatusCode: resp.StatusCode}
	}

	return &Page{
		URL:        resp.Request.URL,
		StatusCode: resp.StatusCode,
		Body:       body,
		Truncated:  truncated,
	}, nil
}

func (f *Fetcher) limiterFor(host string) *rate.Limiter {
	f.mu.Lock()
	defer f.mu.Unlock()
	if lim, ok := f.limiters[host]; ok {
		return lim
	}
	limit := rate.Inf
	if f.opts.RequestsPerSecond > 0 {
		limit = rate.Limit(f.opts.RequestsPerSecond)
	}
	lim := rate.NewLimiter(limit, 1)
	f.limiters[host] = lim
	return lim
}
