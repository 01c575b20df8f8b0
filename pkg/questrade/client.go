// Package questrade is a small client for the Questrade REST API: symbol
// lookup, historical candles, symbol details and quotes.
//
// Access tokens are short lived and bound to a per-account API server.
// A CredentialProvider owns the token and renews it on demand:
//
//	creds := questrade.NewCredentialProvider(questrade.FileTokenStore{Path: "questrade.json"}, "", nil)
//	qc := questrade.New(questrade.Config{Credentials: creds})
//	id, err := qc.SymbolID(ctx, "TD.TO")
//	if err != nil { return err }
//	candles, err := qc.Candles(ctx, id, start, end, questrade.OneDay)
package questrade

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/guregu/null/v6"
)

const (
	DefaultLoginURL = "https://login.questrade.com/oauth2/token"
	defaultTimeout  = 10 * time.Second
)

// Interval is a candle granularity accepted by the candles endpoint.
type Interval string

const (
	OneMinute Interval = "OneMinute"
	OneHour   Interval = "OneHour"
	OneDay    Interval = "OneDay"
	OneWeek   Interval = "OneWeek"
	OneMonth  Interval = "OneMonth"
)

var routes = map[string]string{
	"symbols.search": "v1/symbols",
	"symbols.get":    "v1/symbols/%d",
	"markets.candle": "v1/markets/candles/%d",
	"markets.quote":  "v1/markets/quotes/%d",
}

// ErrSymbolNotFound is returned when a ticker has no exact match.
var ErrSymbolNotFound = errors.New("questrade: symbol not found")

// APIError is a non-2xx response from the API server.
type APIError struct {
	StatusCode int
	Code       int    `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("questrade: status %d: %s (code %d)", e.StatusCode, e.Message, e.Code)
	}
	return fmt.Sprintf("questrade: status %d", e.StatusCode)
}

// Candle is one historical bar. Start carries the exchange-local offset.
type Candle struct {
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// Symbol is the reference data returned by the symbols endpoint.
type Symbol struct {
	Symbol            string      `json:"symbol"`
	SymbolID          int64       `json:"symbolId"`
	Description       null.String `json:"description"`
	SecurityType      null.String `json:"securityType"`
	ListingExchange   null.String `json:"listingExchange"`
	Currency          null.String `json:"currency"`
	IndustrySector    null.String `json:"industrySector"`
	Dividend          null.Float  `json:"dividend"`
	Yield             null.Float  `json:"yield"`
	PE                null.Float  `json:"pe"`
	EPS               null.Float  `json:"eps"`
	MarketCap         null.Float  `json:"marketCap"`
	OutstandingShares null.Int    `json:"outstandingShares"`
	ExDate            null.String `json:"exDate"`
	HighPrice52       null.Float  `json:"highPrice52"`
	LowPrice52        null.Float  `json:"lowPrice52"`
}

// Quote is a level-one market quote.
type Quote struct {
	Symbol         string     `json:"symbol"`
	SymbolID       int64      `json:"symbolId"`
	OpenPrice      null.Float `json:"openPrice"`
	HighPrice      null.Float `json:"highPrice"`
	LowPrice       null.Float `json:"lowPrice"`
	LastTradePrice null.Float `json:"lastTradePrice"`
	Volume         null.Int   `json:"volume"`
}

// Config configures a Client.
type Config struct {
	Credentials *CredentialProvider
	HTTPClient  *http.Client // default: 10s timeout
}

// Client calls the API server named by the current credentials.
type Client struct {
	creds *CredentialProvider
	http  *http.Client
}

// New creates a client.
func New(cfg Config) *Client {
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{creds: cfg.Credentials, http: hc}
}

// Credentials returns the client's credential provider.
func (c *Client) Credentials() *CredentialProvider { return c.creds }

// SymbolID resolves a ticker to its numeric id, matching case-insensitively.
func (c *Client) SymbolID(ctx context.Context, symbol string) (int64, error) {
	var out struct {
		Symbols []Symbol `json:"symbols"`
	}
	q := url.Values{"names": {symbol}}
	if err := c.get(ctx, routes["symbols.search"], q, &out); err != nil {
		return 0, err
	}
	for _, s := range out.Symbols {
		if strings.EqualFold(s.Symbol, symbol) {
			return s.SymbolID, nil
		}
	}
	return 0, fmt.Errorf("%w: %s", ErrSymbolNotFound, symbol)
}

// Candles returns bars for id in [start, end] at interval.
func (c *Client) Candles(ctx context.Context, id int64, start, end time.Time, interval Interval) ([]Candle, error) {
	var out struct {
		Candles []Candle `json:"candles"`
	}
	q := url.Values{
		"startTime": {start.Format(time.RFC3339)},
		"endTime":   {end.Format(time.RFC3339)},
		"interval":  {string(interval)},
	}
	if err := c.get(ctx, fmt.Sprintf(routes["markets.candle"], id), q, &out); err != nil {
		return nil, err
	}
	return out.Candles, nil
}

// Symbol returns reference data for id.
func (c *Client) Symbol(ctx context.Context, id int64) (Symbol, error) {
	var out struct {
		Symbols []Symbol `json:"symbols"`
	}
	if err := c.get(ctx, fmt.Sprintf(routes["symbols.get"], id), nil, &out); err != nil {
		return Symbol{}, err
	}
	if len(out.Symbols) == 0 {
		return Symbol{}, fmt.Errorf("%w: id %d", ErrSymbolNotFound, id)
	}
	return out.Symbols[0], nil
}

// Quote returns the current quote for id.
func (c *Client) Quote(ctx context.Context, id int64) (Quote, error) {
	var out struct {
		Quotes []Quote `json:"quotes"`
	}
	if err := c.get(ctx, fmt.Sprintf(routes["markets.quote"], id), nil, &out); err != nil {
		return Quote{}, err
	}
	if len(out.Quotes) == 0 {
		return Quote{}, fmt.Errorf("questrade: no quote for id %d", id)
	}
	return out.Quotes[0], nil
}

// get issues an authorized GET. A 401 drops the cached access token and
// retries once with fresh credentials.
func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	err := c.doGet(ctx, path, q, out)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
		c.creds.Invalidate()
		return c.doGet(ctx, path, q, out)
	}
	return err
}

func (c *Client) doGet(ctx context.Context, path string, q url.Values, out any) error {
	token, server, err := c.creds.Credentials(ctx)
	if err != nil {
		return err
	}

	u := strings.TrimRight(server, "/") + "/" + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("questrade GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("questrade GET %s: read body: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		_ = json.Unmarshal(raw, apiErr)
		return apiErr
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("questrade GET %s: couldn't parse JSON response: %w", path, err)
	}
	return nil
}
