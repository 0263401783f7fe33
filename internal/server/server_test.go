package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/health-advisor/internal/advisor"
	"github.com/sells-group/health-advisor/internal/export"
	"github.com/sells-group/health-advisor/internal/market"
	"github.com/sells-group/health-advisor/internal/model"
	"github.com/sells-group/health-advisor/internal/policydb"
	"github.com/sells-group/health-advisor/internal/session"
)

const testDatabase = `
- name: HDFC ERGO
  claim_settlement_ratio: 98.5%
  cashless_hospitals: "13000"
  policies:
    - name: Optima Secure
      coverage_range: ₹5 Lakhs - ₹2 Crore
      pre_existing_waiting_period: 3 years
      co_payment: None
- name: Star Health
  claim_settlement_ratio: 82.3%
  policies:
    - name: Family Health Optima
      coverage_range: ₹3 Lakhs - ₹25 Lakhs
      pre_existing_waiting_period: 4 years
`

const twoRecommendations = `Here you go:
{"recommendations": [
  {"rank": 1, "company": "HDFC ERGO", "policy": "Optima Secure",
   "suitability_reason": "High claim ratio", "key_benefits": ["Restore benefit"],
   "limitations": ["No maternity"], "premium_estimate": "₹1,200/month"},
  {"rank": 2, "company": "Acme", "policy": "Ghost Plan"}
]}`

// genFunc adapts a function to advisor.Generator.
type genFunc func(ctx context.Context, prompt string) (string, error)

func (f genFunc) Generate(ctx context.Context, prompt string) (string, error) { return f(ctx, prompt) }

type stubSource[T any] struct {
	name string
	mu   sync.Mutex
	res  model.Result[T]
}

func (s *stubSource[T]) Name() string { return s.name }

func (s *stubSource[T]) set(res model.Result[T]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.res = res
}

func (s *stubSource[T]) Scrape(context.Context) model.Result[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.res
}

type stubTerms struct {
	mu  sync.Mutex
	got string
}

func (s *stubTerms) Fetch(_ context.Context, company string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = company
	return "Terms for " + company
}

type fixture struct {
	srv      *httptest.Server
	irdai    *stubSource[model.MarketDataItem]
	claims   *stubSource[model.ClaimSettlementItem]
	premiums *stubSource[model.PremiumItem]
	terms    *stubTerms
	prompts  []string
	mu       sync.Mutex
}

func newFixture(t *testing.T, dbYAML string, gen func(prompt string) (string, error)) *fixture {
	t.Helper()
	db := policydb.Empty()
	if dbYAML != "" {
		var err error
		db, err = policydb.Parse([]byte(dbYAML))
		require.NoError(t, err)
	}

	f := &fixture{
		irdai:    &stubSource[model.MarketDataItem]{name: "irdai"},
		claims:   &stubSource[model.ClaimSettlementItem]{name: "claims"},
		premiums: &stubSource[model.PremiumItem]{name: "premiums"},
		terms:    &stubTerms{},
	}

	var g advisor.Generator
	if gen != nil {
		g = genFunc(func(_ context.Context, prompt string) (string, error) {
			f.mu.Lock()
			f.prompts = append(f.prompts, prompt)
			f.mu.Unlock()
			return gen(prompt)
		})
	}
	cfg := advisor.DefaultGatewayConfig()
	cfg.Retry.Sleep = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }
	cfg.Retry.OnRetry = func(int, error, time.Duration) {}

	tables := market.NewTables(true)
	s := New(Deps{
		Advisor:      advisor.New(advisor.NewGateway(g, cfg), db),
		DB:           db,
		Sessions:     session.NewStore(time.Hour),
		Refresher:    market.NewRefresher(tables, f.irdai, f.claims, f.premiums),
		Terms:        f.terms,
		DisplayLimit: 2,
	})
	f.srv = httptest.NewServer(s.Handler())
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fixture) recorded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.prompts...)
}

func (f *fixture) do(t *testing.T, method, path string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var rdr *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(b)
	} else {
		rdr = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, f.srv.URL+path, rdr)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck

	out := map[string]any{}
	if resp.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp, out
}

func (f *fixture) newSession(t *testing.T) string {
	t.Helper()
	resp, body := f.do(t, http.MethodPost, "/sessions", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	id, _ := body["id"].(string)
	require.NotEmpty(t, id)
	return id
}

func TestHealth(t *testing.T) {
	f := newFixture(t, testDatabase, nil)
	resp, body := f.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, false, body["model_available"])
	assert.EqualValues(t, 2, body["policies"])
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t, testDatabase, nil)
	resp, err := http.Get(f.srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRecommendations_ProfilePromptBeforeSubmit(t *testing.T) {
	f := newFixture(t, testDatabase, nil)
	id := f.newSession(t)

	_, body := f.do(t, http.MethodGet, "/sessions/"+id+"/recommendations", nil)
	assert.Equal(t, ProfilePromptMessage, body["message"])
	assert.Empty(t, body["recommendations"])
}

func TestSubmitProfile_RendersRecommendations(t *testing.T) {
	f := newFixture(t, testDatabase, func(string) (string, error) { return twoRecommendations, nil })
	id := f.newSession(t)

	resp, body := f.do(t, http.MethodPut, "/sessions/"+id+"/profile", map[string]any{
		"age":             34,
		"gender":          "Female",
		"family_size":     2,
		"coverage_amount": "₹5 Lakhs",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	recs, ok := body["recommendations"].([]any)
	require.True(t, ok)
	require.Len(t, recs, 2)

	first := recs[0].(map[string]any)
	assert.Equal(t, "#1: HDFC ERGO - Optima Secure", first["title"])
	details := first["additional_details"].(map[string]any)
	assert.Equal(t, "₹5 Lakhs - ₹2 Crore", details["coverage_range"])
	assert.Equal(t, "None", details["co_payment"])
	assert.Equal(t, NotSpecifiedText, details["maternity_coverage"])

	second := recs[1].(map[string]any)
	assert.Equal(t, NoReasonText, second["suitability_reason"])
	assert.Equal(t, NoPremiumText, second["premium_estimate"])
	assert.Nil(t, second["additional_details"])

	prompts := f.recorded()
	require.Len(t, prompts, 1)
	assert.Contains(t, prompts[0], "age: 34")

	_, body = f.do(t, http.MethodGet, "/sessions/"+id+"/recommendations", nil)
	assert.Nil(t, body["message"])
	assert.Len(t, body["recommendations"], 2)
}

func TestSubmitProfile_Validation(t *testing.T) {
	f := newFixture(t, testDatabase, nil)
	id := f.newSession(t)

	cases := []map[string]any{
		{"gender": "Male"},
		{"age": 0},
		{"age": 121},
		{"age": 30, "family_size": 11},
		{"age": 30, "coverage_amount": "₹7 Lakhs"},
	}
	for _, c := range cases {
		resp, body := f.do(t, http.MethodPut, "/sessions/"+id+"/profile", c)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "%v", c)
		assert.NotEmpty(t, body["error"])
	}
}

func TestSubmitProfile_ModelErrorShowsMessage(t *testing.T) {
	f := newFixture(t, testDatabase, func(string) (string, error) { return "", errors.New("invalid api key") })
	id := f.newSession(t)

	resp, body := f.do(t, http.MethodPut, "/sessions/"+id+"/profile", map[string]any{"age": 40})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, body["recommendations"])
	assert.Contains(t, body["error"], "Error getting insurance recommendations:")

	_, body = f.do(t, http.MethodGet, "/sessions/"+id+"/recommendations", nil)
	assert.Equal(t, ClickUpdateMessage, body["message"])
}

func TestSubmitProfile_RateLimitedDegradesToEmpty(t *testing.T) {
	f := newFixture(t, testDatabase, func(string) (string, error) {
		return "", errors.New("429 Too Many Requests")
	})
	id := f.newSession(t)

	_, body := f.do(t, http.MethodPut, "/sessions/"+id+"/profile", map[string]any{"age": 40})
	assert.Empty(t, body["recommendations"])
	assert.Nil(t, body["error"])
	assert.Len(t, f.recorded(), 3)
}

func TestSession_UnknownID(t *testing.T) {
	f := newFixture(t, testDatabase, nil)
	for _, path := range []string{"/sessions/nope", "/sessions/nope/recommendations", "/sessions/nope/messages"} {
		resp, body := f.do(t, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, path)
		assert.Equal(t, "session not found", body["error"])
	}
	resp, _ := f.do(t, http.MethodDelete, "/sessions/nope", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSession_ResetAndDelete(t *testing.T) {
	f := newFixture(t, testDatabase, func(string) (string, error) { return "Answer.", nil })
	id := f.newSession(t)
	f.do(t, http.MethodPost, "/sessions/"+id+"/chat", map[string]any{"question": "hi"})

	_, body := f.do(t, http.MethodPost, "/sessions/"+id+"/reset", nil)
	assert.Empty(t, body["messages"])
	assert.Equal(t, id, body["id"])

	resp, _ := f.do(t, http.MethodDelete, "/sessions/"+id, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = f.do(t, http.MethodGet, "/sessions/"+id, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestChat_AppendsBothMessages(t *testing.T) {
	f := newFixture(t, testDatabase, func(string) (string, error) { return "A co-payment is...", nil })
	id := f.newSession(t)

	resp, body := f.do(t, http.MethodPost, "/sessions/"+id+"/chat", map[string]any{"question": "  What is co-payment?  "})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "assistant", body["role"])
	assert.Equal(t, "A co-payment is...", body["content"])

	_, body = f.do(t, http.MethodGet, "/sessions/"+id+"/messages", nil)
	msgs := body["messages"].([]any)
	require.Len(t, msgs, 2)
	assert.Equal(t, "What is co-payment?", msgs[0].(map[string]any)["content"])
	assert.Equal(t, "user", msgs[0].(map[string]any)["role"])

	resp, _ = f.do(t, http.MethodPost, "/sessions/"+id+"/chat", map[string]any{"question": " "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestChat_ModelUnavailable(t *testing.T) {
	f := newFixture(t, testDatabase, nil)
	id := f.newSession(t)

	_, body := f.do(t, http.MethodPost, "/sessions/"+id+"/chat", map[string]any{"question": "hi"})
	assert.Equal(t, advisor.AnswerUnavailableMessage, body["content"])
}

func TestPolicies_Filters(t *testing.T) {
	f := newFixture(t, testDatabase, nil)

	_, body := f.do(t, http.MethodGet, "/policies", nil)
	insurers := body["insurers"].([]any)
	require.Len(t, insurers, 2)
	star := insurers[1].(map[string]any)
	assert.Equal(t, NotAvailableText, star["cashless_hospitals"])

	hdfc := insurers[0].(map[string]any)
	attrs := hdfc["policies"].([]any)[0].(map[string]any)["attributes"].([]any)
	assert.Equal(t, "Pre Existing Waiting Period", attrs[1].(map[string]any)["label"])

	_, body = f.do(t, http.MethodGet, "/policies?company=Star+Health", nil)
	require.Len(t, body["insurers"], 1)

	_, body = f.do(t, http.MethodGet, "/policies?coverage="+url.QueryEscape("₹3 Lakhs - ₹25 Lakhs"), nil)
	insurers = body["insurers"].([]any)
	require.Len(t, insurers, 2)
	assert.Empty(t, insurers[0].(map[string]any)["policies"])
	assert.Len(t, insurers[1].(map[string]any)["policies"], 1)
}

func TestPolicyOptions(t *testing.T) {
	f := newFixture(t, testDatabase, nil)
	_, body := f.do(t, http.MethodGet, "/policies/options", nil)
	assert.Equal(t, []any{"HDFC ERGO", "Star Health"}, body["companies"])
	assert.Equal(t, []any{"HDFC ERGO - Optima Secure", "Star Health - Family Health Optima"}, body["policies"])
	assert.Len(t, body["coverages"], 2)
}

func TestEmptyDatabase(t *testing.T) {
	f := newFixture(t, "", nil)

	_, body := f.do(t, http.MethodGet, "/policies/options", nil)
	assert.Empty(t, body["companies"])
	assert.Empty(t, body["coverages"])
	assert.Empty(t, body["policies"])

	id := f.newSession(t)
	_, body = f.do(t, http.MethodGet, "/sessions/"+id+"/recommendations", nil)
	assert.Equal(t, ProfilePromptMessage, body["message"])
}

func TestCompare(t *testing.T) {
	f := newFixture(t, testDatabase, func(string) (string, error) { return "| Feature | A | B |", nil })

	resp, body := f.do(t, http.MethodPost, "/compare", map[string]any{"policies": []string{"HDFC ERGO - Optima Secure"}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["error"], "at least 2")

	resp, body = f.do(t, http.MethodPost, "/compare", map[string]any{
		"policies": []string{"HDFC ERGO - Optima Secure", "Star Health - Family Health Optima"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "| Feature | A | B |", body["comparison"])
	prompts := f.recorded()
	require.Len(t, prompts, 1)
	assert.Contains(t, prompts[0], "Family Health Optima")
}

func TestCompare_InvalidBody(t *testing.T) {
	f := newFixture(t, testDatabase, nil)
	resp, err := http.Post(f.srv.URL+"/compare", "application/json", strings.NewReader("{"))
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTerms(t *testing.T) {
	f := newFixture(t, testDatabase, nil)

	resp, _ := f.do(t, http.MethodGet, "/terms", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	_, body := f.do(t, http.MethodGet, "/terms?company=Star+Health", nil)
	assert.Equal(t, "Terms for Star Health", body["text"])
	f.terms.mu.Lock()
	defer f.terms.mu.Unlock()
	assert.Equal(t, "Star Health", f.terms.got)
}

func TestMarket_RefreshAndHead(t *testing.T) {
	f := newFixture(t, testDatabase, nil)
	f.irdai.set(model.Collected([]model.MarketDataItem{
		{Company: "A", Policy: "P1", Date: "01-01-2025"},
		{Company: "B", Policy: "P2", Date: "02-01-2025"},
		{Company: "C", Policy: "P3", Date: "03-01-2025"},
	}))

	_, body := f.do(t, http.MethodGet, "/market/irdai", nil)
	assert.Empty(t, body["items"])
	assert.Nil(t, body["last_update"])

	_, body = f.do(t, http.MethodPost, "/market/irdai/refresh", nil)
	assert.Equal(t, true, body["refreshed"])
	assert.Len(t, body["items"], 2)
	assert.EqualValues(t, 3, body["total"])
	assert.NotEmpty(t, body["last_update"])

	_, body = f.do(t, http.MethodGet, "/market/irdai", nil)
	assert.Len(t, body["items"], 2)
}

func TestMarket_FailedRefreshKeepsTable(t *testing.T) {
	f := newFixture(t, testDatabase, nil)
	f.claims.set(model.Collected([]model.ClaimSettlementItem{{Company: "A", ClaimSettlementRatio: "95%"}}))
	f.do(t, http.MethodPost, "/market/claims/refresh", nil)

	f.claims.set(model.Failed[model.ClaimSettlementItem](errors.New("connection refused")))

	resp, body := f.do(t, http.MethodPost, "/market/claims/refresh", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["refreshed"])
	assert.Contains(t, body["error"], "connection refused")
	assert.Len(t, body["items"], 1)

	_, body = f.do(t, http.MethodGet, "/market/premiums", nil)
	assert.Empty(t, body["items"])
}

func TestMarket_ExportWorkbook(t *testing.T) {
	f := newFixture(t, testDatabase, nil)
	f.claims.set(model.Collected([]model.ClaimSettlementItem{{Company: "Star Health", ClaimSettlementRatio: "82%"}}))
	f.do(t, http.MethodPost, "/market/claims/refresh", nil)

	resp, err := http.Get(f.srv.URL + "/market/export.xlsx")
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, xlsxContentType, resp.Header.Get("Content-Type"))

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	wb, err := xlsx.OpenBinary(data)
	require.NoError(t, err)
	require.Len(t, wb.Sheets, 3)
	assert.Equal(t, export.SheetClaims, wb.Sheets[1].Name)
	assert.Equal(t, "Star Health", wb.Sheets[1].Rows[1].Cells[0].String())
}

func TestRenderRecommendations_RankFallback(t *testing.T) {
	out := RenderRecommendations([]model.Recommendation{{}, {Rank: 7, Company: "X"}}, nil)
	require.Len(t, out, 2)
	assert.Equal(t, "#1: Unknown - Unknown", out[0].Title)
	assert.Equal(t, "#7: X - Unknown", out[1].Title)
	assert.NotNil(t, out[0].KeyBenefits)
	assert.Nil(t, out[0].Details)
}
