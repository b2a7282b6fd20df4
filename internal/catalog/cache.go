package catalog

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jonathan/epd-matcher/internal/types"
)

// DefaultCacheTTL bounds how long a cached catalog listing stays fresh.
const DefaultCacheTTL = 24 * time.Hour

// Cache keeps catalog list responses on disk so repeated runs against an
// unchanged catalog skip the network round trips. A nil Cache is a no-op.
type Cache struct {
	dir string
	ttl time.Duration
}

// NewCache returns a cache rooted at dir. A non-positive ttl falls back to
// DefaultCacheTTL.
func NewCache(dir string, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{dir: dir, ttl: ttl}
}

// cacheEntry is the stored envelope. Group and hints are kept so a cache
// file stays inspectable by hand.
type cacheEntry struct {
	FetchedAt time.Time         `json:"fetched_at"`
	Group     string            `json:"group,omitempty"`
	Hints     []string          `json:"hints,omitempty"`
	Records   []types.EpdRecord `json:"records"`
}

// Load returns the cached records for a group and hint combination when
// present and fresh.
func (c *Cache) Load(group string, hints []string) ([]types.EpdRecord, bool) {
	if c == nil || c.dir == "" {
		return nil, false
	}

	data, err := os.ReadFile(c.path(group, hints))
	if err != nil {
		return nil, false
	}
	var entry cacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, false
	}
	if time.Since(entry.FetchedAt) > c.ttl {
		return nil, false
	}
	return entry.Records, true
}

// Store writes records for a group and hint combination. Failures are
// silent; a broken cache must never break a run.
func (c *Cache) Store(group string, hints []string, records []types.EpdRecord) {
	if c == nil || c.dir == "" {
		return
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return
	}

	entry := cacheEntry{
		FetchedAt: time.Now(),
		Group:     group,
		Hints:     hints,
		Records:   records,
	}
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return
	}
	_ = os.WriteFile(c.path(group, hints), data, 0o644)
}

// path derives a stable filename from the request signature.
func (c *Cache) path(group string, hints []string) string {
	sum := sha256.Sum256([]byte(group + "\n" + strings.Join(hints, "\n")))
	return filepath.Join(c.dir, "epds-"+hex.EncodeToString(sum[:8])+".json")
}
