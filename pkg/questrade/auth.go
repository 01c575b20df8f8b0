package questrade

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// RefreshEarly is how long before expiry an access token is renewed.
const RefreshEarly = 60 * time.Second

// ErrNoRefreshToken is returned when no refresh token is available.
var ErrNoRefreshToken = errors.New("questrade: no refresh token")

// Token is an OAuth token pair plus the API server it is valid for. The
// JSON layout matches the questrade_config.json file used to seed it.
type Token struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	APIServer    string `json:"api_server"`
	TokenType    string `json:"token_type,omitempty"`
	ExpiresIn    int64  `json:"expires_in"`
	// IssuedAt is Unix seconds, fractional.
	IssuedAt float64 `json:"token_timestamp"`
}

// Expiry is when the access token stops being valid.
func (t Token) Expiry() time.Time {
	sec, frac := math.Modf(t.IssuedAt)
	return time.Unix(int64(sec), int64(frac*1e9)).Add(time.Duration(t.ExpiresIn) * time.Second)
}

// Valid reports whether the access token can be used at now without a
// refresh.
func (t Token) Valid(now time.Time) bool {
	return t.AccessToken != "" && now.Before(t.Expiry().Add(-RefreshEarly))
}

// TokenStore persists tokens between runs.
type TokenStore interface {
	Load() (Token, error)
	Save(Token) error
}

// FileTokenStore keeps the token as indented JSON in a single file.
type FileTokenStore struct {
	Path string
}

func (s FileTokenStore) Load() (Token, error) {
	b, err := os.ReadFile(s.Path)
	if err != nil {
		return Token{}, fmt.Errorf("read token file: %w", err)
	}
	var t Token
	if err := json.Unmarshal(b, &t); err != nil {
		return Token{}, fmt.Errorf("parse token file %s: %w", s.Path, err)
	}
	return t, nil
}

// Save writes through a temp file so a crash never leaves a torn token.
func (s FileTokenStore) Save(t Token) error {
	b, err := json.MarshalIndent(t, "", "    ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.Path), ".questrade-token-*")
	if err != nil {
		return fmt.Errorf("write token file: %w", err)
	}
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write token file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), s.Path)
}

// CredentialProvider hands out a valid access token and API server,
// refreshing through the refresh-token grant when the cached token is
// within RefreshEarly of expiry. It is safe for concurrent use; callers
// racing on an expired token share one refresh.
type CredentialProvider struct {
	mu       sync.Mutex
	store    TokenStore
	loginURL string
	http     *http.Client
	now      func() time.Time

	token  Token
	loaded bool
}

// NewCredentialProvider creates a provider backed by store. store may be
// nil when the initial token is supplied with Seed.
func NewCredentialProvider(store TokenStore, loginURL string, client *http.Client) *CredentialProvider {
	if loginURL == "" {
		loginURL = DefaultLoginURL
	}
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &CredentialProvider{store: store, loginURL: loginURL, http: client, now: time.Now}
}

// Seed installs a token without touching the store.
func (p *CredentialProvider) Seed(t Token) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.token = t
	p.loaded = true
}

// Credentials returns an access token and the API server base URL.
func (p *CredentialProvider) Credentials(ctx context.Context) (accessToken, apiServer string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.loadLocked(); err != nil {
		return "", "", err
	}
	if !p.token.Valid(p.now()) {
		if _, err := p.refreshLocked(ctx); err != nil {
			return "", "", err
		}
		// refresh tokens are single use; a failed save costs the next run
		// its login, not this request
		if err := p.persistLocked(); err != nil {
			slog.Warn("questrade token not saved", "error", err)
		}
	}
	return p.token.AccessToken, p.token.APIServer, nil
}

// Refresh forces a refresh-token grant and persists the result.
func (p *CredentialProvider) Refresh(ctx context.Context) (Token, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.loadLocked(); err != nil {
		return Token{}, err
	}
	t, err := p.refreshLocked(ctx)
	if err != nil {
		return Token{}, err
	}
	return t, p.persistLocked()
}

// Invalidate drops the cached access token so the next call refreshes.
func (p *CredentialProvider) Invalidate() {
	p.mu.Lock()
	p.token.AccessToken = ""
	p.mu.Unlock()
}

func (p *CredentialProvider) loadLocked() error {
	if p.loaded {
		return nil
	}
	if p.store == nil {
		return ErrNoRefreshToken
	}
	t, err := p.store.Load()
	if err != nil {
		return err
	}
	p.token = t
	p.loaded = true
	return nil
}

func (p *CredentialProvider) refreshLocked(ctx context.Context) (Token, error) {
	if p.token.RefreshToken == "" {
		return Token{}, ErrNoRefreshToken
	}

	q := url.Values{}
	q.Set("grant_type", "refresh_token")
	q.Set("refresh_token", p.token.RefreshToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.loginURL+"?"+q.Encode(), nil)
	if err != nil {
		return Token{}, err
	}

	resp, err := p.http.Do(req)
	if err != nil {
		return Token{}, fmt.Errorf("questrade token refresh: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Token{}, fmt.Errorf("questrade token refresh: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Token{}, fmt.Errorf("questrade token refresh: status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var t Token
	if err := json.Unmarshal(raw, &t); err != nil {
		return Token{}, fmt.Errorf("questrade token refresh: decode: %w", err)
	}
	if t.AccessToken == "" || t.APIServer == "" {
		return Token{}, fmt.Errorf("questrade token refresh: incomplete token response")
	}
	now := p.now()
	t.IssuedAt = float64(now.UnixNano()) / 1e9
	p.token = t
	return t, nil
}

func (p *CredentialProvider) persistLocked() error {
	if p.store == nil {
		return nil
	}
	if err := p.store.Save(p.token); err != nil {
		return fmt.Errorf("questrade token save: %w", err)
	}
	return nil
}
