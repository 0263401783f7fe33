package scrape

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTermsScraper_Match(t *testing.T) {
	s := NewTermsScraper(newTestFetcher(), nil)

	site, ok := s.Match("HDFC ERGO General Insurance")
	require.True(t, ok)
	assert.Equal(t, "HDFC ERGO", site.Company)

	site, ok = s.Match("star")
	require.True(t, ok)
	assert.Equal(t, "Star Health", site.Company)

	// "Care" is declared before anything else that could match.
	site, ok = s.Match("Care Health Insurance")
	require.True(t, ok)
	assert.Equal(t, "Care", site.Company)

	_, ok = s.Match("Acme Mutual")
	assert.False(t, ok)
	_, ok = s.Match("  ")
	assert.False(t, ok)
}

func TestTermsScraper_Fetch_UnknownCompany(t *testing.T) {
	s := NewTermsScraper(newTestFetcher(), nil)
	assert.Equal(t, "No website information available for Acme Mutual", s.Fetch(context.Background(), "Acme Mutual"))
}

func TestTermsScraper_Fetch_Sections(t *testing.T) {
	srv := htmlServer(t, http.StatusOK, `<html><body>
<div class="hero">Welcome</div>
<section class="policy-Terms">Waiting period   applies.</section>
<div class="conditions-list"><p>Co-pay 20%</p></div>
<a href="/terms">Terms</a>
</body></html>`)

	s := NewTermsScraper(newTestFetcher(), []Site{{Company: "Niva Bupa", URL: srv.URL}})
	text := s.Fetch(context.Background(), "niva bupa")
	assert.Equal(t, "Waiting period applies.\nCo-pay 20%", text)
}

func TestTermsScraper_Fetch_LinkFallback(t *testing.T) {
	var (
		mu   sync.Mutex
		hits []string
	)
	record := func(path string) {
		mu.Lock()
		defer mu.Unlock()
		hits = append(hits, path)
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><body>
<a href="/legal/terms">Terms of Use</a>
<a href="conditions.html">Policy Conditions</a>
<a href="/legal/terms">Terms again</a>
<a href="/about">About us</a>
<a href="/broken">Terms archive</a>
</body></html>`))
	})
	mux.HandleFunc("/legal/terms", func(w http.ResponseWriter, r *http.Request) {
		record(r.URL.Path)
		_, _ = w.Write([]byte(`<html><head><title>Terms</title></head><body><article><p>Claims must be intimated within 24 hours of admission to a network hospital.</p></article></body></html>`))
	})
	mux.HandleFunc("/health/conditions.html", func(w http.ResponseWriter, r *http.Request) {
		record(r.URL.Path)
		_, _ = w.Write([]byte(`<html><body><p>Pre-existing diseases are covered after 36 months of continuous coverage.</p></body></html>`))
	})
	mux.HandleFunc("/broken", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	s := NewTermsScraper(newTestFetcher(), []Site{{Company: "Religare", URL: srv.URL + "/health"}})
	text := s.Fetch(context.Background(), "Religare")

	parts := strings.Split(text, "\n")
	require.Len(t, parts, 2)
	assert.Contains(t, parts[0], "intimated within 24 hours")
	assert.Contains(t, parts[1], "covered after 36 months")
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"/legal/terms", "/health/conditions.html"}, hits)
}

func TestTermsScraper_Fetch_NonOK(t *testing.T) {
	srv := htmlServer(t, http.StatusInternalServerError, "")

	s := NewTermsScraper(newTestFetcher(), []Site{{Company: "Max Bupa", URL: srv.URL}})
	assert.Equal(t, TermsFetchErrorMessage, s.Fetch(context.Background(), "Max Bupa"))
}

func TestTermsScraper_Fetch_NetworkError(t *testing.T) {
	s := NewTermsScraper(newTestFetcher(), []Site{{Company: "Tata AIG", URL: "http://127.0.0.1:1/health"}})
	text := s.Fetch(context.Background(), "Tata AIG")
	assert.True(t, strings.HasPrefix(text, "Error fetching terms and conditions: "), text)
}

func TestTermsScraper_Fetch_NothingFound(t *testing.T) {
	srv := htmlServer(t, http.StatusOK, `<html><body><p>Plans</p></body></html>`)

	s := NewTermsScraper(newTestFetcher(), []Site{{Company: "SBI General", URL: srv.URL}})
	assert.Empty(t, s.Fetch(context.Background(), "SBI General"))
}

func TestResolveLink(t *testing.T) {
	page := "https://www.example.com/health-insurance"
	assert.Equal(t, "https://www.example.com/terms", ResolveLink(page, "/terms"))
	assert.Equal(t, "https://www.example.com/health-insurance/terms.html", ResolveLink(page, "terms.html"))
	assert.Equal(t, "https://cdn.example.com/t.pdf", ResolveLink(page, "https://cdn.example.com/t.pdf"))
	assert.Equal(t, "http://old.example.com/t", ResolveLink(page, "http://old.example.com/t"))
	assert.Empty(t, ResolveLink(page, "  "))
	assert.Equal(t, "https://host/x", ResolveLink("https://host", "/x"))
}
