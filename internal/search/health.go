package search

import (
	"sort"
	"strings"
	"time"

	"mediastream/sourcesearch/internal/metrics"
)

const (
	adapterFailureThreshold = 3
	adapterBlockBase        = 2 * time.Minute
	adapterBlockMax         = 15 * time.Minute
)

type adapterHealth struct {
	consecutiveFailures int
	blockedUntil        time.Time
	lastError           string
	lastSuccessAt       time.Time
	lastFailureAt       time.Time
	lastLatency         time.Duration
	totalRequests       int64
	totalFailures       int64
}

// AdapterDiagnostics is the serving-layer health view of one adapter.
type AdapterDiagnostics struct {
	Name                string     `json:"name"`
	Label               string     `json:"label"`
	Kind                string     `json:"kind"`
	Backup              bool       `json:"backup,omitempty"`
	TrustZeroSeeds      bool       `json:"trustZeroSeeds,omitempty"`
	ConsecutiveFailures int        `json:"consecutiveFailures"`
	BlockedUntil        *time.Time `json:"blockedUntil,omitempty"`
	LastError           string     `json:"lastError,omitempty"`
	LastSuccessAt       *time.Time `json:"lastSuccessAt,omitempty"`
	LastFailureAt       *time.Time `json:"lastFailureAt,omitempty"`
	LastLatencyMS       int64      `json:"lastLatencyMs,omitempty"`
	TotalRequests       int64      `json:"totalRequests,omitempty"`
	TotalFailures       int64      `json:"totalFailures,omitempty"`
}

func (s *Service) isAdapterBlocked(name string, now time.Time) (bool, time.Time, string) {
	s.healthMu.Lock()
	defer s.healthMu.Unlock()

	state := s.health[name]
	if state == nil || state.blockedUntil.IsZero() || now.After(state.blockedUntil) {
		return false, time.Time{}, ""
	}
	return true, state.blockedUntil, state.lastError
}

func (s *Service) recordAdapterResult(name string, err error, latency time.Duration, now time.Time) {
	s.healthMu.Lock()
	defer s.healthMu.Unlock()

	state := s.health[name]
	if state == nil {
		state = &adapterHealth{}
		s.health[name] = state
	}
	state.totalRequests++
	if latency > 0 {
		state.lastLatency = latency
		metrics.AdapterRequestDuration.WithLabelValues(name).Observe(latency.Seconds())
	}

	if err == nil {
		state.consecutiveFailures = 0
		state.blockedUntil = time.Time{}
		state.lastError = ""
		state.lastSuccessAt = now
		metrics.AdapterRequestsTotal.WithLabelValues(name, "ok").Inc()
		metrics.AdapterAvailable.WithLabelValues(name).Set(1)
		return
	}

	state.consecutiveFailures++
	state.totalFailures++
	state.lastFailureAt = now
	state.lastError = err.Error()
	metrics.AdapterRequestsTotal.WithLabelValues(name, string(classifyError(err))).Inc()

	if state.consecutiveFailures >= adapterFailureThreshold {
		state.blockedUntil = now.Add(blockDuration(state.consecutiveFailures))
		metrics.AdapterAvailable.WithLabelValues(name).Set(0)
	}
}

// blockDuration doubles the block per failure past the threshold, capped.
func blockDuration(consecutiveFailures int) time.Duration {
	d := adapterBlockBase
	for i := adapterFailureThreshold; i < consecutiveFailures; i++ {
		d *= 2
		if d > adapterBlockMax {
			return adapterBlockMax
		}
	}
	return d
}

func (s *Service) Diagnostics() []AdapterDiagnostics {
	infos := s.Adapters()

	s.healthMu.Lock()
	defer s.healthMu.Unlock()

	items := make([]AdapterDiagnostics, 0, len(infos))
	for _, info := range infos {
		name := strings.ToLower(strings.TrimSpace(info.Name))
		item := AdapterDiagnostics{
			Name:           info.Name,
			Label:          info.Label,
			Kind:           info.Kind,
			Backup:         info.Backup,
			TrustZeroSeeds: info.TrustZeroSeeds,
		}
		if state := s.health[name]; state != nil {
			item.ConsecutiveFailures = state.consecutiveFailures
			if !state.blockedUntil.IsZero() {
				blockedUntil := state.blockedUntil
				item.BlockedUntil = &blockedUntil
			}
			item.LastError = state.lastError
			if !state.lastSuccessAt.IsZero() {
				lastSuccessAt := state.lastSuccessAt
				item.LastSuccessAt = &lastSuccessAt
			}
			if !state.lastFailureAt.IsZero() {
				lastFailureAt := state.lastFailureAt
				item.LastFailureAt = &lastFailureAt
			}
			item.LastLatencyMS = state.lastLatency.Milliseconds()
			item.TotalRequests = state.totalRequests
			item.TotalFailures = state.totalFailures
		}
		items = append(items, item)
	}

	sort.Slice(items, func(i, j int) bool {
		return strings.ToLower(items[i].Name) < strings.ToLower(items[j].Name)
	})
	return items
}
