// Package provider selects the market-data source at configuration time.
package provider

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mhatami/trendpulse/internal/model"
	"github.com/mhatami/trendpulse/internal/provider/finnhub"
	"github.com/mhatami/trendpulse/internal/provider/questrade"
	"github.com/mhatami/trendpulse/internal/provider/yahoo"
	qt "github.com/mhatami/trendpulse/pkg/questrade"
)

// Kind names a provider implementation.
type Kind string

const (
	Yahoo     Kind = "yahoo"
	Finnhub   Kind = "finnhub"
	Questrade Kind = "questrade"
)

// Kinds lists the supported providers.
func Kinds() []Kind { return []Kind{Yahoo, Finnhub, Questrade} }

// ParseKind validates a provider name.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Kinds() {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown provider %q (want one of yahoo, finnhub, questrade)", s)
}

// Options carries every provider's settings; each kind reads its own.
type Options struct {
	Timeout time.Duration

	YahooBaseURL string

	FinnhubAPIKey  string
	FinnhubBaseURL string

	QuestradeTokenFile string
	QuestradeLoginURL  string
}

// New builds the provider for kind.
func New(kind Kind, opts Options) (model.PriceProvider, error) {
	switch kind {
	case Yahoo:
		return yahoo.New(yahoo.Config{BaseURL: opts.YahooBaseURL, Timeout: opts.Timeout}), nil
	case Finnhub:
		if opts.FinnhubAPIKey == "" {
			return nil, fmt.Errorf("finnhub provider needs an API key")
		}
		return finnhub.New(finnhub.Config{APIKey: opts.FinnhubAPIKey, BaseURL: opts.FinnhubBaseURL, Timeout: opts.Timeout}), nil
	case Questrade:
		client, err := NewQuestradeClient(opts)
		if err != nil {
			return nil, err
		}
		return questrade.New(client), nil
	}
	return nil, fmt.Errorf("unknown provider %q", kind)
}

// NewQuestradeClient builds the REST client backed by the token file.
func NewQuestradeClient(opts Options) (*qt.Client, error) {
	if opts.QuestradeTokenFile == "" {
		return nil, fmt.Errorf("questrade provider needs a token file")
	}
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	hc := &http.Client{Timeout: timeout}
	creds := qt.NewCredentialProvider(qt.FileTokenStore{Path: opts.QuestradeTokenFile}, opts.QuestradeLoginURL, hc)
	return qt.New(qt.Config{Credentials: creds, HTTPClient: hc}), nil
}
