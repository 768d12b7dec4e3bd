package cookies

import (
	"os"
	"sync"
	"time"
)

// DefaultCacheEntries bounds the Matcher cache.
const DefaultCacheEntries = 64

type cacheKey struct {
	path    string
	modTime time.Time
	size    int64
	host    string
}

// Matcher memoizes HeaderFor results. Entries are keyed by the file's
// modification time and size, so editing the cookies file invalidates them.
// The oldest entry is evicted once the cache is full.
type Matcher struct {
	mu         sync.Mutex
	maxEntries int
	maxLen     int
	entries    map[cacheKey]string
	order      []cacheKey
}

// NewMatcher creates a matcher holding at most maxEntries headers of at most
// maxLen bytes. Non-positive values select the defaults.
func NewMatcher(maxEntries, maxLen int) *Matcher {
	if maxEntries <= 0 {
		maxEntries = DefaultCacheEntries
	}
	if maxLen <= 0 {
		maxLen = DefaultMaxHeaderLen
	}
	return &Matcher{
		maxEntries: maxEntries,
		maxLen:     maxLen,
		entries:    make(map[cacheKey]string, maxEntries),
	}
}

// HeaderFor returns the Cookie header for targetURL, reading path only when
// it changed since the last lookup for the same host.
func (m *Matcher) HeaderFor(path, targetURL string) string {
	host := HostOf(targetURL)
	if host == "" || path == "" {
		return ""
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return ""
	}
	key := cacheKey{path: path, modTime: info.ModTime(), size: info.Size(), host: host}

	m.mu.Lock()
	if header, ok := m.entries[key]; ok {
		m.mu.Unlock()
		return header
	}
	m.mu.Unlock()

	cookies, err := ParseNetscape(path)
	if err != nil {
		return ""
	}
	header := Header(cookies, host, m.maxLen)

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[key]; !ok {
		if len(m.order) >= m.maxEntries {
			oldest := m.order[0]
			m.order = m.order[1:]
			delete(m.entries, oldest)
		}
		m.order = append(m.order, key)
	}
	m.entries[key] = header
	return header
}

// Len reports the number of cached headers.
func (m *Matcher) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
