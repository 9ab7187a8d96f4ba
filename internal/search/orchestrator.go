package search

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"mediastream/sourcesearch/internal/domain"
	"mediastream/sourcesearch/internal/metrics"
	"mediastream/sourcesearch/internal/rank"
	"mediastream/sourcesearch/internal/report"
)

// Request bundles one search invocation's inputs. AdapterNames empty means
// all registered adapters; Debug enables the observability recorder.
type Request struct {
	Query        domain.MediaQuery
	Config       domain.RankingConfig
	AdapterNames []string
	Debug        bool
}

// Search runs the concurrent fan-out and returns the ranked list. Adapter
// failures are recovered and never surface here; the only synchronous
// errors are an invalid query, an invalid config, or an unknown adapter
// name.
func (s *Service) Search(ctx context.Context, req Request) ([]domain.RankedResult, error) {
	req.Debug = false

	var key string
	if s.cache != nil {
		key = cacheKey(req)
		if cached, ok, err := s.cache.Get(ctx, key); err == nil && ok {
			metrics.CacheHitsTotal.Inc()
			return cached, nil
		}
		metrics.CacheMissesTotal.Inc()
	}

	outcome, err := s.run(ctx, req)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, outcome.Results, s.cacheTTL); err != nil {
			slog.Warn("cache write failed", slog.String("error", err.Error()))
		}
	}
	return outcome.Results, nil
}

// SearchWithDebug is Search plus the structured debug report.
func (s *Service) SearchWithDebug(ctx context.Context, req Request) (domain.SearchOutcome, error) {
	req.Debug = true
	return s.run(ctx, req)
}

func (s *Service) run(ctx context.Context, req Request) (domain.SearchOutcome, error) {
	if strings.TrimSpace(req.Query.Title) == "" && strings.TrimSpace(req.Query.ExternalID) == "" {
		return domain.SearchOutcome{}, ErrInvalidQuery
	}
	if err := req.Config.Validate(); err != nil {
		return domain.SearchOutcome{}, err
	}

	selected, err := s.resolveAdapters(req.AdapterNames)
	if err != nil {
		return domain.SearchOutcome{}, err
	}

	var recorder *report.Recorder
	if req.Debug {
		recorder = report.NewRecorder(req.Query, req.Config)
	}

	tasks := make([]Adapter, 0, len(selected)+1)
	tasks = append(tasks, selected...)
	backupIndex := -1
	if s.backup != nil {
		backupIndex = len(tasks)
		tasks = append(tasks, s.backup)
	}

	// A search with nothing to ask returns empty immediately, not an error.
	if len(tasks) == 0 {
		recorder.RecordFunnel(domain.FunnelCounts{})
		recorder.RecordFinal(nil)
		return domain.SearchOutcome{Results: []domain.RankedResult{}, Report: recorder.Report()}, nil
	}

	outcomes := s.fanOut(ctx, req.Query, tasks)

	// Merge in task order after all outcomes settle: source-level grouping
	// is deterministic, arrival order inside the merged list follows it.
	raw := make([]domain.RawResult, 0, 64)
	for _, outcome := range outcomes {
		recorder.RecordSource(outcome)
		raw = append(raw, outcome.Results...)
	}

	results, funnel := rank.Rank(raw, req.Config, rank.Options{
		TrustZeroSeeds: s.trustZeroSeedSources(),
	})
	recorder.RecordFunnel(funnel)
	recorder.RecordFinal(results)
	if recorder != nil && backupIndex >= 0 {
		recorder.CompareReference(outcomes[backupIndex].SourceID, outcomes[backupIndex].Results, results)
	}

	return domain.SearchOutcome{Results: results, Report: recorder.Report()}, nil
}

// fanOut dispatches one task per adapter and waits for every outcome:
// settle-all, never fail-fast. Each task owns its outcome slot until it
// resolves, so no locking is needed on the slice. A slow adapter times out
// and is excluded; it is never cancelled mid-flight beyond its own context.
func (s *Service) fanOut(ctx context.Context, query domain.MediaQuery, tasks []Adapter) []domain.SourceOutcome {
	outcomes := make([]domain.SourceOutcome, len(tasks))
	sem := semaphore.NewWeighted(s.maxInFly)
	var wg sync.WaitGroup

	for i, adapter := range tasks {
		wg.Add(1)
		go func(index int, current Adapter) {
			defer wg.Done()
			outcomes[index] = s.searchOne(ctx, sem, current, query)
		}(i, adapter)
	}
	wg.Wait()
	return outcomes
}

func (s *Service) searchOne(ctx context.Context, sem *semaphore.Weighted, adapter Adapter, query domain.MediaQuery) domain.SourceOutcome {
	name := strings.ToLower(strings.TrimSpace(adapter.Name()))
	outcome := domain.SourceOutcome{SourceID: name}

	if err := sem.Acquire(ctx, 1); err != nil {
		outcome.ErrorKind = domain.ErrorKindTimeout
		outcome.Error = "cancelled before dispatch"
		return outcome
	}
	defer sem.Release(1)

	now := time.Now()
	if blocked, until, lastErr := s.isAdapterBlocked(name, now); blocked {
		outcome.ErrorKind = domain.ErrorKindRateLimit
		outcome.Error = "adapter temporarily unhealthy until " + until.UTC().Format(time.RFC3339) + ": " + lastErr
		return outcome
	}

	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	started := time.Now()
	results, err := adapter.Search(runCtx, query)
	elapsed := time.Since(started)
	outcome.DurationMS = elapsed.Milliseconds()

	s.recordAdapterResult(name, err, elapsed, time.Now())

	if err != nil {
		outcome.ErrorKind = classifyError(err)
		outcome.Error = err.Error()
		slog.Warn("adapter search failed",
			slog.String("adapter", name),
			slog.String("kind", string(outcome.ErrorKind)),
			slog.Int64("elapsedMs", outcome.DurationMS),
			slog.String("error", err.Error()),
		)
		return outcome
	}

	// Stamp the owning source id; adapters that forget it still dedupe and
	// report correctly.
	for i := range results {
		if strings.TrimSpace(results[i].SourceID) == "" {
			results[i].SourceID = name
		}
	}
	outcome.Results = results

	slog.Debug("adapter search completed",
		slog.String("adapter", name),
		slog.Int("results", len(results)),
		slog.Int64("elapsedMs", outcome.DurationMS),
	)
	metrics.AdapterResults.WithLabelValues(name).Observe(float64(len(results)))
	return outcome
}
