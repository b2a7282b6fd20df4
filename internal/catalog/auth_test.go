package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/epd-matcher/internal/config"
)

func authTestConfig(baseURL string) config.Config {
	cfg := config.Default()
	cfg.CatalogBaseURL = baseURL
	cfg.CatalogUsername = "svc"
	cfg.CatalogPassword = "secret"
	cfg.APITimeout = 5 * time.Second
	return cfg
}

func TestTokenManager_FetchesAndCachesToken(t *testing.T) {
	var hits atomic.Int32
	var gotBody map[string]string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/Auth/getToken", r.URL.Path)
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = w.Write([]byte(`{"token": "tok-1", "expires_in": 3600}`))
	}))
	defer server.Close()

	tm, err := NewTokenManager(authTestConfig(server.URL))
	require.NoError(t, err)

	token, err := tm.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-1", token)
	assert.Equal(t, "svc", gotBody["username"])
	assert.Equal(t, "secret", gotBody["passwort"])

	// Second call must reuse the cached token.
	token, err = tm.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-1", token)
	assert.Equal(t, int32(1), hits.Load())
}

func TestTokenManager_RefreshesAfterExpiry(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		n := hits.Add(1)
		if n == 1 {
			_, _ = w.Write([]byte(`{"token": "tok-1", "expires_in": 3600}`))
			return
		}
		_, _ = w.Write([]byte(`{"token": "tok-2", "expires_in": 3600}`))
	}))
	defer server.Close()

	tm, err := NewTokenManager(authTestConfig(server.URL))
	require.NoError(t, err)

	token, err := tm.Token(context.Background())
	require.NoError(t, err)
	require.Equal(t, "tok-1", token)

	tm.mu.Lock()
	tm.expiry = time.Now().Add(-time.Second)
	tm.mu.Unlock()

	token, err = tm.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-2", token)
	assert.Equal(t, int32(2), hits.Load())
}

func TestTokenManager_PlainTextBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("  raw-token-value\n"))
	}))
	defer server.Close()

	tm, err := NewTokenManager(authTestConfig(server.URL))
	require.NoError(t, err)

	token, err := tm.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "raw-token-value", token)
}

func TestTokenManager_JSONStringBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`"quoted-token"`))
	}))
	defer server.Close()

	tm, err := NewTokenManager(authTestConfig(server.URL))
	require.NoError(t, err)

	token, err := tm.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "quoted-token", token)
}

func TestTokenManager_AccessTokenField(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"access_token": "alt-token"}`))
	}))
	defer server.Close()

	tm, err := NewTokenManager(authTestConfig(server.URL))
	require.NoError(t, err)

	token, err := tm.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "alt-token", token)
}

func TestTokenManager_NoTokenInResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"expires_in": 60}`))
	}))
	defer server.Close()

	tm, err := NewTokenManager(authTestConfig(server.URL))
	require.NoError(t, err)

	_, err = tm.Token(context.Background())
	require.Error(t, err)

	var catErr *Error
	assert.ErrorAs(t, err, &catErr)
	assert.Contains(t, err.Error(), "no token in auth response")
}

func TestTokenManager_AuthFailureStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	tm, err := NewTokenManager(authTestConfig(server.URL))
	require.NoError(t, err)

	_, err = tm.Token(context.Background())
	require.Error(t, err)

	var catErr *Error
	require.ErrorAs(t, err, &catErr)
	assert.Equal(t, http.StatusUnauthorized, catErr.StatusCode)
}

func TestNewTokenManager_IncompleteConfig(t *testing.T) {
	cfg := config.Default()
	cfg.CatalogBaseURL = "https://epd.example.com"
	cfg.CatalogUsername = "svc"
	// Password missing.

	_, err := NewTokenManager(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "incomplete")
}

func TestTokenTTL_ExpiresInWins(t *testing.T) {
	assert.Equal(t, 2*time.Minute, tokenTTL("opaque", 120))
}

func TestTokenTTL_ExpClaimFallback(t *testing.T) {
	claims := jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(30 * time.Minute)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	ttl := tokenTTL(token, 0)
	assert.Greater(t, ttl, 29*time.Minute)
	assert.LessOrEqual(t, ttl, 30*time.Minute)
}

func TestTokenTTL_DefaultWhenUnreadable(t *testing.T) {
	assert.Equal(t, DefaultTokenTTL, tokenTTL("not-a-jwt", 0))
}

func TestRenewAfter_Margins(t *testing.T) {
	// Margin is a tenth of the lifetime, capped at one minute.
	assert.Equal(t, 59*time.Minute, renewAfter(time.Hour))
	assert.Equal(t, 27*time.Second, renewAfter(30*time.Second))
	// Tiny lifetimes floor at one second instead of going negative.
	assert.Equal(t, time.Second, renewAfter(500*time.Millisecond))
}
