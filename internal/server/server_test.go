package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mhatami/trendpulse/internal/apperr"
	"github.com/mhatami/trendpulse/internal/metrics"
	"github.com/mhatami/trendpulse/internal/model"
	"github.com/mhatami/trendpulse/internal/orchestrator"
	"github.com/mhatami/trendpulse/internal/store/memory"
)

type stubProvider struct {
	bars    []model.PriceBar
	details model.SymbolDetails
	err     error
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) FetchPrices(context.Context, string, model.Window) (model.PriceSeries, error) {
	if p.err != nil {
		return model.PriceSeries{}, p.err
	}
	return model.PriceSeries{Bars: append([]model.PriceBar(nil), p.bars...)}, nil
}

func (p *stubProvider) FetchDetails(context.Context, string) (model.SymbolDetails, error) {
	return p.details, p.err
}

func testBars(closes ...float64) []model.PriceBar {
	day0 := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	out := make([]model.PriceBar, len(closes))
	for i, c := range closes {
		out[i] = model.PriceBar{Timestamp: day0.AddDate(0, 0, i), Open: c, High: c + 1, Low: c - 1, Close: c, Volume: 1000}
	}
	return out
}

func newTestServer(t *testing.T, p *stubProvider, limit int) (*Server, *metrics.Metrics) {
	t.Helper()
	m := metrics.New(prometheus.NewRegistry())
	orch := orchestrator.New(orchestrator.Config{
		Provider: p,
		Cache:    memory.New(),
		Metrics:  m,
		Now:      func() time.Time { return time.Date(2024, 3, 15, 22, 0, 0, 0, time.UTC) },
	})
	return New(Config{Service: orch, Metrics: m, RateLimit: limit, RateWindow: time.Minute}), m
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestRoot(t *testing.T) {
	s, _ := newTestServer(t, &stubProvider{}, 30)
	rec := do(t, s, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to TrendPulse API", decodeBody(t, rec)["message"])
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Len(t, rec.Header().Get("X-Trace-Id"), 26)
}

func TestPrices(t *testing.T) {
	s, _ := newTestServer(t, &stubProvider{bars: testBars(10, 11.5)}, 30)

	rec := do(t, s, http.MethodPost, "/prices", `{"symbol":"aapl"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"symbol":"AAPL","data":[
		{"Date":"2024-01-02","Open":10,"High":11,"Low":9,"Close":10,"Volume":1000},
		{"Date":"2024-01-03","Open":11.5,"High":12.5,"Low":10.5,"Close":11.5,"Volume":1000}
	]}`, rec.Body.String())
}

func TestPrices_Errors(t *testing.T) {
	p := &stubProvider{bars: testBars(1)}
	s, _ := newTestServer(t, p, 30)

	cases := []struct {
		name   string
		body   string
		status int
		kind   string
	}{
		{"bad symbol", `{"symbol":"A B"}`, http.StatusBadRequest, "InvalidSymbol"},
		{"bad period", `{"symbol":"AAPL","period":"2y"}`, http.StatusBadRequest, "UnsupportedPeriod"},
		{"bad json", `{"symbol":`, http.StatusBadRequest, "InvalidRequest"},
		{"empty body", ``, http.StatusBadRequest, "InvalidRequest"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, "/prices", tc.body)
			assert.Equal(t, tc.status, rec.Code)
			body := decodeBody(t, rec)
			assert.Equal(t, tc.kind, body["error"])
			assert.NotEmpty(t, body["detail"])
		})
	}

	p.err = apperr.New(apperr.KindNoData, "no data for ZZZZ")
	rec := do(t, s, http.MethodPost, "/prices", `{"symbol":"ZZZZ","period":"1mo"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NoData", decodeBody(t, rec)["error"])

	p.err = errors.New("dial tcp: refused")
	rec = do(t, s, http.MethodPost, "/prices", `{"symbol":"MSFT","period":"1mo"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "UpstreamProvider", decodeBody(t, rec)["error"])
}

func TestIndicators(t *testing.T) {
	s, _ := newTestServer(t, &stubProvider{bars: testBars(1, 2, 3)}, 30)

	rec := do(t, s, http.MethodPost, "/indicators",
		`{"symbol":"AAPL","indicators":[{"name":"sma","length":2},{"name":"EMA","length":2}]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var got struct {
		Symbol string           `json:"symbol"`
		Data   []map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got.Data, 3)
	assert.Nil(t, got.Data[0]["SMA"])
	assert.InDelta(t, 1.5, got.Data[1]["SMA"], 1e-12)
	assert.InDelta(t, 1.0, got.Data[0]["EMA"], 1e-12)
}

func TestIndicators_UnknownName(t *testing.T) {
	s, _ := newTestServer(t, &stubProvider{bars: testBars(1, 2, 3)}, 30)

	rec := do(t, s, http.MethodPost, "/indicators", `{"symbol":"AAPL","indicators":[{"name":"VWAP"}]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "IndicatorComputation", decodeBody(t, rec)["error"])
}

func TestIndicators_OversizedLength(t *testing.T) {
	s, _ := newTestServer(t, &stubProvider{bars: testBars(1, 2, 3)}, 30)

	rec := do(t, s, http.MethodPost, "/indicators",
		`{"symbol":"AAPL","indicators":[{"name":"SMA","length":2000000000}]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "IndicatorComputation", decodeBody(t, rec)["error"])
}

func TestDetails(t *testing.T) {
	p := &stubProvider{details: model.SymbolDetails{Name: model.OptString("Apple Inc."), PERatio: model.OptFloat(28.5)}}
	s, _ := newTestServer(t, p, 30)

	rec := do(t, s, http.MethodGet, "/aapl", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "AAPL", body["symbol"])
	assert.Equal(t, "Apple Inc.", body["name"])
	assert.Equal(t, 28.5, body["peRatio"])
	assert.Nil(t, body["dividend"])
}

func TestClearCache(t *testing.T) {
	s, _ := newTestServer(t, &stubProvider{}, 30)
	rec := do(t, s, http.MethodPost, "/clear_cache", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Cache cleared", decodeBody(t, rec)["message"])
}

func TestHealthAndMetrics(t *testing.T) {
	s, _ := newTestServer(t, &stubProvider{bars: testBars(1)}, 30)

	rec := do(t, s, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decodeBody(t, rec)["status"])

	do(t, s, http.MethodPost, "/prices", `{"symbol":"AAPL"}`)
	rec = do(t, s, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `trendpulse_http_requests_total{code="200",route="/prices"} 1`)
	assert.Contains(t, rec.Body.String(), `trendpulse_http_requests_total{code="200",route="/healthz"} 1`)
}

func TestRateLimit(t *testing.T) {
	s, m := newTestServer(t, &stubProvider{}, 2)

	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/", "").Code)
	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/", "").Code)

	rec := do(t, s, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "RateLimited", decodeBody(t, rec)["error"])
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	scrape := httptest.NewRecorder()
	m.Handler().ServeHTTP(scrape, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, scrape.Body.String(), "trendpulse_rate_limited_total 1")
}

func TestPreflight(t *testing.T) {
	s, _ := newTestServer(t, &stubProvider{}, 30)
	rec := do(t, s, http.MethodOptions, "/prices", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")
}

func TestPanicIsInternalError(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	s := New(Config{Service: panicService{}, Metrics: m, RateLimit: 30})

	rec := do(t, s, http.MethodPost, "/clear_cache", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal", decodeBody(t, rec)["error"])
}

type panicService struct{}

func (panicService) Prices(context.Context, string, string) (model.Table, error) {
	return model.Table{}, nil
}
func (panicService) Indicators(context.Context, string, []model.IndicatorSpec) (model.Table, error) {
	return model.Table{}, nil
}
func (panicService) Details(context.Context, string) (model.SymbolDetails, error) {
	return model.SymbolDetails{}, nil
}
func (panicService) ClearCache(context.Context) error { panic("boom") }
