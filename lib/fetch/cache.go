package fetch

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"
)

type cacheEntry struct {
	body   []byte
	status int
	header http.Header
	expiry time.Time
}

// responseCache lives and dies with one Gateway instance. reads are shared,
// writes only ever come from the owning gateway.
type responseCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
}

func newResponseCache() *responseCache {
	return &responseCache{entries: map[string]cacheEntry{}}
}

func (c *responseCache) get(key string, now time.Time) (cacheEntry, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return cacheEntry{}, false
	}
	if now.After(entry.expiry) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return cacheEntry{}, false
	}
	return entry, true
}

func (c *responseCache) set(key string, entry cacheEntry) {
	c.mu.Lock()
	c.entries[key] = entry
	c.mu.Unlock()
}

// headers that change the response body; everything else (tracing,
// user-agent rotation) is irrelevant to the fingerprint
var fingerprintHeaders = []string{"Accept", "Accept-Language", "Authorization", "Cookie"}

// Fingerprint derives the cache key for a request: a sha256 over method,
// canonicalized url, response-relevant headers and body.
func Fingerprint(method, rawURL string, headers map[string]string, body []byte) string {
	canonical := rawURL
	if parsed, err := url.Parse(rawURL); err == nil {
		// re-encoding sorts query params, so ?a=1&b=2 and ?b=2&a=1 share an entry
		parsed.RawQuery = parsed.Query().Encode()
		canonical = parsed.String()
	}

	var relevant []string
	for _, h := range fingerprintHeaders {
		if v, ok := headers[h]; ok {
			relevant = append(relevant, h+":"+v)
		}
	}
	sort.Strings(relevant)

	hash := sha256.New()
	hash.Write([]byte(strings.ToUpper(method)))
	hash.Write([]byte{'\n'})
	hash.Write([]byte(canonical))
	hash.Write([]byte{'\n'})
	hash.Write([]byte(strings.Join(relevant, "\n")))
	hash.Write([]byte{'\n'})
	hash.Write(body)
	return hex.EncodeToString(hash.Sum(nil))
}
