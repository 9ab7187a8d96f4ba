package search

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"mediastream/sourcesearch/internal/domain"
)

var (
	ErrInvalidQuery   = errors.New("query title is required")
	ErrUnknownAdapter = errors.New("unknown adapter")
)

const (
	defaultTimeout = 20 * time.Second
	minTimeout     = 5 * time.Second
	maxTimeout     = 120 * time.Second
)

// Adapter is one external origin of candidate results. Implementations own
// all source-specific protocol detail (query formatting, HTTP, parsing,
// retries, mirrors) and must honor context cancellation; the orchestrator
// treats an adapter that outlives its timeout as failed and abandons it.
type Adapter interface {
	Name() string
	Info() domain.AdapterInfo
	Search(ctx context.Context, query domain.MediaQuery) ([]domain.RawResult, error)
}

// Service orchestrates concurrent searches across the registered adapters.
// It holds no per-search state: every invocation aggregates into fresh
// collections and discards them when the caller has its ranked list.
type Service struct {
	adapters map[string]Adapter
	order    []string
	backup   Adapter
	timeout  time.Duration
	maxInFly int64
	cache    CacheBackend
	cacheTTL time.Duration

	healthMu sync.Mutex
	health   map[string]*adapterHealth
}

type ServiceOption func(*Service)

// WithBackup registers the meta-aggregator that runs alongside the primary
// pool as one additional concurrent task.
func WithBackup(adapter Adapter) ServiceOption {
	return func(s *Service) {
		s.backup = adapter
	}
}

// WithConcurrencyLimit caps the number of adapter queries in flight at once.
func WithConcurrencyLimit(limit int) ServiceOption {
	return func(s *Service) {
		if limit > 0 {
			s.maxInFly = int64(limit)
		}
	}
}

func NewService(adapters []Adapter, timeout time.Duration, opts ...ServiceOption) *Service {
	svc := &Service{
		adapters: make(map[string]Adapter, len(adapters)),
		timeout:  clampTimeout(timeout),
		maxInFly: 10,
		health:   make(map[string]*adapterHealth),
	}
	for _, adapter := range adapters {
		if adapter == nil {
			continue
		}
		name := strings.ToLower(strings.TrimSpace(adapter.Name()))
		if name == "" {
			continue
		}
		if _, exists := svc.adapters[name]; exists {
			continue
		}
		svc.adapters[name] = adapter
		svc.order = append(svc.order, name)
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

func clampTimeout(timeout time.Duration) time.Duration {
	if timeout <= 0 {
		return defaultTimeout
	}
	if timeout < minTimeout {
		return minTimeout
	}
	if timeout > maxTimeout {
		return maxTimeout
	}
	return timeout
}

// Adapters lists the registered adapters, backup included, sorted by name.
func (s *Service) Adapters() []domain.AdapterInfo {
	items := make([]domain.AdapterInfo, 0, len(s.order)+1)
	for _, name := range s.order {
		items = append(items, s.adapters[name].Info())
	}
	if s.backup != nil {
		items = append(items, s.backup.Info())
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].Name < items[j].Name
	})
	return items
}

// resolveAdapters selects the primary pool for one search. An empty name
// list selects every registered adapter in registration order.
func (s *Service) resolveAdapters(names []string) ([]Adapter, error) {
	if len(names) == 0 {
		selected := make([]Adapter, 0, len(s.order))
		for _, name := range s.order {
			selected = append(selected, s.adapters[name])
		}
		return selected, nil
	}

	selected := make([]Adapter, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, raw := range names {
		name := strings.ToLower(strings.TrimSpace(raw))
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		adapter, ok := s.adapters[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownAdapter, name)
		}
		selected = append(selected, adapter)
	}
	return selected, nil
}

// trustZeroSeedSources collects the sources exempt from the zero-seed hard
// filter, keyed by lower-cased source id.
func (s *Service) trustZeroSeedSources() map[string]bool {
	trusted := make(map[string]bool, 1)
	for _, name := range s.order {
		if s.adapters[name].Info().TrustZeroSeeds {
			trusted[name] = true
		}
	}
	if s.backup != nil {
		info := s.backup.Info()
		if info.TrustZeroSeeds {
			trusted[strings.ToLower(strings.TrimSpace(s.backup.Name()))] = true
		}
	}
	return trusted
}
