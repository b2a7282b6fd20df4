package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jonathan/epd-matcher/internal/config"
)

// DefaultTokenTTL applies when the auth response carries neither an
// expires_in field nor a readable exp claim.
const DefaultTokenTTL = time.Hour

// TokenManager fetches the service JWT and caches it until shortly before
// expiry. Safe for concurrent use.
type TokenManager struct {
	baseURL  string
	username string
	password string
	client   *http.Client

	mu     sync.Mutex
	token  string
	expiry time.Time
}

// NewTokenManager validates the catalog credentials and returns a manager.
func NewTokenManager(cfg config.Config) (*TokenManager, error) {
	if !cfg.CatalogConfigured() {
		return nil, fmt.Errorf("catalog configuration incomplete: base URL, username and password are required")
	}

	timeout := cfg.APITimeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &TokenManager{
		baseURL:  strings.TrimRight(cfg.CatalogBaseURL, "/"),
		username: cfg.CatalogUsername,
		password: cfg.CatalogPassword,
		client:   &http.Client{Timeout: timeout},
	}, nil
}

// Token returns a valid token, requesting a fresh one when the cached token
// is missing or about to expire.
func (m *TokenManager) Token(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.token != "" && time.Now().Before(m.expiry) {
		return m.token, nil
	}

	token, ttl, err := m.fetch(ctx)
	if err != nil {
		return "", err
	}

	m.token = token
	m.expiry = time.Now().Add(renewAfter(ttl))
	return m.token, nil
}

// Headers returns the authorization headers for catalog requests.
func (m *TokenManager) Headers(ctx context.Context) (map[string]string, error) {
	token, err := m.Token(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]string{
		"Authorization": "Bearer " + token,
		"Accept":        "application/json",
	}, nil
}

func (m *TokenManager) fetch(ctx context.Context) (string, time.Duration, error) {
	urlStr := m.baseURL + "/api/Auth/getToken"

	// The auth endpoint expects the German field name for the password.
	body, err := json.Marshal(map[string]string{
		"username": m.username,
		"passwort": m.password,
	})
	if err != nil {
		return "", 0, &Error{URL: urlStr, Message: "failed to encode credentials", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, urlStr, bytes.NewReader(body))
	if err != nil {
		return "", 0, &Error{URL: urlStr, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return "", 0, &Error{URL: urlStr, Message: "auth request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", 0, &Error{URL: urlStr, Message: "failed to read auth response", Cause: err}
	}
	if resp.StatusCode != http.StatusOK {
		return "", 0, &Error{
			URL:        urlStr,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("HTTP status %d", resp.StatusCode),
		}
	}

	token, expiresIn := parseTokenPayload(payload)
	if token == "" {
		return "", 0, &Error{URL: urlStr, Message: "no token in auth response"}
	}
	return token, tokenTTL(token, expiresIn), nil
}

// parseTokenPayload accepts the three shapes the auth endpoint is known to
// send: a JSON object with a token field, a JSON string, or the bare token
// as plain text.
func parseTokenPayload(body []byte) (token string, expiresIn int) {
	var obj struct {
		Token       string `json:"token"`
		AccessToken string `json:"access_token"`
		JWT         string `json:"jwt"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &obj); err == nil {
		for _, candidate := range []string{obj.Token, obj.AccessToken, obj.JWT} {
			if candidate != "" {
				return candidate, obj.ExpiresIn
			}
		}
		return "", obj.ExpiresIn
	}

	var s string
	if err := json.Unmarshal(body, &s); err == nil {
		return strings.TrimSpace(s), 0
	}
	return strings.TrimSpace(string(body)), 0
}

// tokenTTL resolves the token lifetime: an explicit expires_in wins, then
// the exp claim of the token itself (parsed without verification, the
// service holds the signing key), then DefaultTokenTTL.
func tokenTTL(token string, expiresIn int) time.Duration {
	if expiresIn > 0 {
		return time.Duration(expiresIn) * time.Second
	}

	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err == nil && claims.ExpiresAt != nil {
		if d := time.Until(claims.ExpiresAt.Time); d > 0 {
			return d
		}
	}
	return DefaultTokenTTL
}

// renewAfter shortens a lifetime by a safety margin so the token never
// expires mid-request: one tenth of the lifetime, at most a minute.
func renewAfter(ttl time.Duration) time.Duration {
	margin := ttl / 10
	if margin > time.Minute {
		margin = time.Minute
	}
	if remaining := ttl - margin; remaining > time.Second {
		return remaining
	}
	return time.Second
}
