// Package catalog provides the client for the online EPD dataset service:
// token authentication, catalog listing and counting, and parallel loading
// of per-record detail fields.
package catalog

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jonathan/epd-matcher/internal/config"
	"github.com/jonathan/epd-matcher/internal/types"
)

// DefaultTimeout is the request timeout used when the configuration does not
// set one.
const DefaultTimeout = 60 * time.Second

// Error represents a failed catalog service request.
type Error struct {
	URL        string
	StatusCode int
	Message    string
	Cause      error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("catalog error for %s: %s: %v", e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("catalog error for %s: %s", e.URL, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Client talks to the /api/Datasets endpoint of the online EPD service.
type Client struct {
	baseURL    string
	group      string
	tokens     *TokenManager
	http       *http.Client
	maxRetries int
	workers    int
	cache      *Cache
}

// NewClient builds a catalog client from the run configuration. It fails when
// the catalog credentials are incomplete.
func NewClient(cfg config.Config) (*Client, error) {
	tokens, err := NewTokenManager(cfg)
	if err != nil {
		return nil, err
	}

	timeout := cfg.APITimeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	workers := cfg.ParallelWorkers
	if workers < 1 {
		workers = 1
	}

	var cache *Cache
	if cfg.CacheDir != "" {
		cache = NewCache(cfg.CacheDir, DefaultCacheTTL)
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.CatalogBaseURL, "/"),
		group:      cfg.CatalogGroup,
		tokens:     tokens,
		http:       &http.Client{Timeout: timeout},
		maxRetries: cfg.APIMaxRetries,
		workers:    workers,
		cache:      cache,
	}, nil
}

// List loads catalog records. Without hints it loads the whole catalog in one
// request; with hints it issues one name search per hint (OR logic) and
// deduplicates by record ID, keeping response order.
func (c *Client) List(ctx context.Context, hints []string) ([]types.EpdRecord, error) {
	if records, ok := c.cache.Load(c.group, hints); ok {
		return records, nil
	}

	seen := make(map[string]struct{})
	records := []types.EpdRecord{}
	for _, term := range searchTerms(hints) {
		params := url.Values{}
		if term != "" {
			params.Set("search", "true")
			params.Set("name", term)
		}

		body, err := c.get(ctx, c.datasetsURL(), params)
		if err != nil {
			return nil, err
		}
		rows, err := decodeRows(body)
		if err != nil {
			return nil, &Error{URL: c.datasetsURL(), Message: "failed to decode dataset list", Cause: err}
		}

		for _, row := range rows {
			id := row.identity()
			if id == "" {
				continue
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			records = append(records, row.listRecord())
		}
	}

	c.cache.Store(c.group, hints, records)
	return records, nil
}

// Count asks the service for the catalog size via countOnly. With labels it
// sums one count per label, mirroring the OR logic of List.
func (c *Client) Count(ctx context.Context, labels []string) (int, error) {
	total := 0
	for _, term := range searchTerms(labels) {
		params := url.Values{}
		params.Set("countOnly", "true")
		if term != "" {
			params.Set("search", "true")
			params.Set("name", term)
		}

		body, err := c.get(ctx, c.datasetsURL(), params)
		if err != nil {
			return 0, err
		}
		total += decodeCount(body)
	}
	return total, nil
}

// Details loads the detail record for every id, fanning out across the
// configured number of workers. Failures are collected per id and never abort
// the batch; the returned records keep the order of ids.
func (c *Client) Details(ctx context.Context, ids []string) ([]types.EpdRecord, map[string]error) {
	loaded := make([]*types.EpdRecord, len(ids))
	failures := make(map[string]error)
	var mu sync.Mutex

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for i, id := range ids {
		g.Go(func() error {
			record, err := c.detail(gCtx, id)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures[id] = err
				return nil
			}
			loaded[i] = record
			return nil
		})
	}
	_ = g.Wait()

	records := make([]types.EpdRecord, 0, len(ids))
	for _, record := range loaded {
		if record != nil {
			records = append(records, *record)
		}
	}
	return records, failures
}

// detail loads one record from /api/Datasets/{id}.
func (c *Client) detail(ctx context.Context, id string) (*types.EpdRecord, error) {
	urlStr := c.datasetsURL() + "/" + url.PathEscape(id)
	body, err := c.get(ctx, urlStr, nil)
	if err != nil {
		return nil, err
	}

	row, err := decodeDetail(body)
	if err != nil {
		return nil, &Error{URL: urlStr, Message: "failed to decode dataset detail", Cause: err}
	}
	if row == nil {
		return nil, &Error{URL: urlStr, Message: "empty detail response"}
	}

	record := row.detailRecord()
	if record.ID == "" {
		record.ID = id
	}
	return &record, nil
}

func (c *Client) datasetsURL() string {
	return c.baseURL + "/api/Datasets"
}

// get performs an authorized GET with the group parameter applied, retrying
// transient failures with exponential backoff.
func (c *Client) get(ctx context.Context, urlStr string, params url.Values) ([]byte, error) {
	if params == nil {
		params = url.Values{}
	}
	if c.group != "" {
		params.Set("gruppe", c.group)
	}
	full := urlStr
	if encoded := params.Encode(); encoded != "" {
		full = urlStr + "?" + encoded
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, &Error{URL: full, Message: "request canceled", Cause: ctx.Err()}
			case <-time.After(backoff(attempt)):
			}
		}

		body, retry, err := c.doGet(ctx, full)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !retry {
			return nil, err
		}
	}
	return nil, lastErr
}

// doGet executes a single attempt. The second return value reports whether
// the failure is worth retrying.
func (c *Client) doGet(ctx context.Context, urlStr string) ([]byte, bool, error) {
	headers, err := c.tokens.Headers(ctx)
	if err != nil {
		return nil, false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, false, &Error{URL: urlStr, Message: "failed to create request", Cause: err}
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, true, &Error{URL: urlStr, Message: "HTTP request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, &Error{URL: urlStr, Message: "failed to read response body", Cause: err}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, retryable(resp.StatusCode), &Error{
			URL:        urlStr,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("HTTP status %d", resp.StatusCode),
		}
	}
	return body, false, nil
}

// searchTerms trims the hints and drops blanks. An empty hint list becomes a
// single unfiltered request.
func searchTerms(hints []string) []string {
	var terms []string
	for _, hint := range hints {
		if t := strings.TrimSpace(hint); t != "" {
			terms = append(terms, t)
		}
	}
	if len(terms) == 0 {
		return []string{""}
	}
	return terms
}

// retryable reports whether a response status is worth another attempt.
func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}

// backoffBase is scaled down in tests.
var backoffBase = time.Second

// backoff returns 1s, 2s, 4s for attempts 1, 2, 3.
func backoff(attempt int) time.Duration {
	return backoffBase << (attempt - 1)
}
