package search

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"mediastream/sourcesearch/internal/domain"
)

const (
	defaultCacheTTL        = 10 * time.Minute
	defaultCacheMaxEntries = 400
)

// CacheBackend stores ranked responses at the serving layer. The search
// pipeline itself stays stateless; a backend only short-circuits repeat
// requests for the same query and config.
type CacheBackend interface {
	Get(ctx context.Context, key string) ([]domain.RankedResult, bool, error)
	Set(ctx context.Context, key string, results []domain.RankedResult, ttl time.Duration) error
}

// WithCache enables the ranked-response cache. A ttl <= 0 selects the
// default.
func WithCache(backend CacheBackend, ttl time.Duration) ServiceOption {
	return func(s *Service) {
		s.cache = backend
		if ttl > 0 {
			s.cacheTTL = ttl
		} else {
			s.cacheTTL = defaultCacheTTL
		}
	}
}

// cacheKey is stable across param ordering: adapter names are sorted and
// every config field participates.
func cacheKey(req Request) string {
	names := make([]string, 0, len(req.AdapterNames))
	for _, raw := range req.AdapterNames {
		name := strings.ToLower(strings.TrimSpace(raw))
		if name != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(strings.ToLower(strings.TrimSpace(req.Query.Title)))
	b.WriteByte('|')
	b.WriteString(strings.TrimSpace(req.Query.ExternalID))
	b.WriteByte('|')
	b.WriteString(string(req.Query.Kind))
	b.WriteByte('|')
	b.WriteString(strconv.Itoa(req.Query.Year))
	b.WriteByte('|')
	b.WriteString(strconv.Itoa(req.Query.Season))
	b.WriteByte('|')
	b.WriteString(strconv.Itoa(req.Query.Episode))
	b.WriteByte('|')
	b.WriteString(strings.Join(names, ","))
	b.WriteByte('|')

	cfg := req.Config
	b.WriteString(strconv.Itoa(int(cfg.PreferredResolution)))
	b.WriteByte(boolByte(cfg.PreferHDR))
	b.WriteByte(boolByte(cfg.PreferDolbyVision))
	b.WriteByte(boolByte(cfg.PreferHEVC))
	b.WriteByte(boolByte(cfg.PreferRemux))
	b.WriteByte(boolByte(cfg.ExcludeCAM))
	b.WriteByte('|')
	b.WriteString(strconv.Itoa(cfg.MinSeeds))
	b.WriteByte('|')
	b.WriteString(strconv.FormatInt(cfg.MinSizeBytes, 10))
	b.WriteByte('|')
	b.WriteString(strconv.FormatInt(cfg.MaxSizeBytes, 10))
	return b.String()
}

func boolByte(v bool) byte {
	if v {
		return '1'
	}
	return '0'
}

type memoryCacheEntry struct {
	results   []domain.RankedResult
	expiresAt time.Time
}

// MemoryCacheBackend is the in-process default: a bounded TTL map with
// oldest-expiry eviction once full.
type MemoryCacheBackend struct {
	mu         sync.Mutex
	entries    map[string]memoryCacheEntry
	maxEntries int
}

func NewMemoryCacheBackend(maxEntries int) *MemoryCacheBackend {
	if maxEntries <= 0 {
		maxEntries = defaultCacheMaxEntries
	}
	return &MemoryCacheBackend{
		entries:    make(map[string]memoryCacheEntry),
		maxEntries: maxEntries,
	}
}

func (m *MemoryCacheBackend) Get(_ context.Context, key string) ([]domain.RankedResult, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	if time.Now().After(entry.expiresAt) {
		delete(m.entries, key)
		return nil, false, nil
	}
	return entry.results, true, nil
}

func (m *MemoryCacheBackend) Set(_ context.Context, key string, results []domain.RankedResult, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.entries) >= m.maxEntries {
		m.evictOldestLocked()
	}
	m.entries[key] = memoryCacheEntry{
		results:   results,
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}

func (m *MemoryCacheBackend) evictOldestLocked() {
	var oldestKey string
	var oldestAt time.Time
	for key, entry := range m.entries {
		if oldestKey == "" || entry.expiresAt.Before(oldestAt) {
			oldestKey = key
			oldestAt = entry.expiresAt
		}
	}
	if oldestKey != "" {
		delete(m.entries, oldestKey)
	}
}
