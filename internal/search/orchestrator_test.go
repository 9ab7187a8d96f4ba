package search

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"mediastream/sourcesearch/internal/domain"
)

type fakeAdapter struct {
	name           string
	items          []domain.RawResult
	trustZeroSeeds bool
}

func (a *fakeAdapter) Name() string { return a.name }

func (a *fakeAdapter) Info() domain.AdapterInfo {
	return domain.AdapterInfo{Name: a.name, Label: a.name, Kind: "test", Enabled: true, TrustZeroSeeds: a.trustZeroSeeds}
}

func (a *fakeAdapter) Search(ctx context.Context, query domain.MediaQuery) ([]domain.RawResult, error) {
	_ = ctx
	_ = query
	return append([]domain.RawResult(nil), a.items...), nil
}

type countingAdapter struct {
	name  string
	items []domain.RawResult
	hits  atomic.Int32
}

func (a *countingAdapter) Name() string { return a.name }

func (a *countingAdapter) Info() domain.AdapterInfo {
	return domain.AdapterInfo{Name: a.name, Label: a.name, Kind: "test", Enabled: true}
}

func (a *countingAdapter) Search(ctx context.Context, query domain.MediaQuery) ([]domain.RawResult, error) {
	_ = ctx
	_ = query
	a.hits.Add(1)
	return append([]domain.RawResult(nil), a.items...), nil
}

type failingAdapter struct {
	name string
	err  error
}

func (a *failingAdapter) Name() string { return a.name }

func (a *failingAdapter) Info() domain.AdapterInfo {
	return domain.AdapterInfo{Name: a.name, Label: a.name, Kind: "test", Enabled: true}
}

func (a *failingAdapter) Search(ctx context.Context, query domain.MediaQuery) ([]domain.RawResult, error) {
	return nil, a.err
}

type slowAdapter struct {
	name  string
	items []domain.RawResult
	delay time.Duration
}

func (a *slowAdapter) Name() string { return a.name }

func (a *slowAdapter) Info() domain.AdapterInfo {
	return domain.AdapterInfo{Name: a.name, Label: a.name, Kind: "test", Enabled: true}
}

func (a *slowAdapter) Search(ctx context.Context, query domain.MediaQuery) ([]domain.RawResult, error) {
	select {
	case <-time.After(a.delay):
		return append([]domain.RawResult(nil), a.items...), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func seededResult(title, hash string, seeds int, source string) domain.RawResult {
	return domain.RawResult{
		Title:       title,
		ContentHash: hash,
		SeedCount:   seeds,
		SizeBytes:   4 << 30,
		SourceID:    source,
	}
}

func movieRequest() Request {
	return Request{
		Query:  domain.MediaQuery{Title: "Dune", Year: 2021, Kind: domain.MediaKindMovie},
		Config: domain.DefaultRankingConfig(domain.PresetBalanced),
	}
}

func TestSearchMergesAllAdapters(t *testing.T) {
	svc := NewService([]Adapter{
		&fakeAdapter{name: "one", items: []domain.RawResult{
			seededResult("Dune 2021 1080p BluRay x264", "1111111111111111111111111111111111111111", 50, "one"),
		}},
		&fakeAdapter{name: "two", items: []domain.RawResult{
			seededResult("Dune 2021 2160p WEB-DL HEVC HDR10", "2222222222222222222222222222222222222222", 50, "two"),
		}},
	}, 10*time.Second)

	results, err := svc.Search(context.Background(), movieRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
}

func TestSearchAdapterFailureDoesNotBlockOthers(t *testing.T) {
	svc := NewService([]Adapter{
		&failingAdapter{name: "broken", err: errors.New("connection refused")},
		&fakeAdapter{name: "healthy", items: []domain.RawResult{
			seededResult("Dune 2021 1080p BluRay x264", "1111111111111111111111111111111111111111", 50, "healthy"),
		}},
	}, 10*time.Second)

	results, err := svc.Search(context.Background(), movieRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected healthy adapter results, got %d", len(results))
	}
}

func TestSearchSlowAdapterTimesOut(t *testing.T) {
	svc := NewService([]Adapter{
		&slowAdapter{name: "slow", delay: 30 * time.Second, items: []domain.RawResult{
			seededResult("Slow 1080p BluRay x264", "3333333333333333333333333333333333333333", 50, "slow"),
		}},
		&fakeAdapter{name: "fast", items: []domain.RawResult{
			seededResult("Dune 2021 1080p BluRay x264", "1111111111111111111111111111111111111111", 50, "fast"),
		}},
	}, 5*time.Second)

	started := time.Now()
	outcome, err := svc.SearchWithDebug(context.Background(), movieRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(started); elapsed > 10*time.Second {
		t.Fatalf("search took too long: %s", elapsed)
	}
	if len(outcome.Results) != 1 {
		t.Fatalf("expected only fast adapter results, got %d", len(outcome.Results))
	}
	var slowReport *domain.SourceReport
	for i := range outcome.Report.Sources {
		if outcome.Report.Sources[i].SourceID == "slow" {
			slowReport = &outcome.Report.Sources[i]
		}
	}
	if slowReport == nil {
		t.Fatal("missing slow adapter report")
	}
	if slowReport.ErrorKind != domain.ErrorKindTimeout {
		t.Fatalf("expected timeout kind, got %q", slowReport.ErrorKind)
	}
}

func TestSearchEmptyQuery(t *testing.T) {
	svc := NewService([]Adapter{&fakeAdapter{name: "one"}}, 10*time.Second)
	req := movieRequest()
	req.Query.Title = "   "

	if _, err := svc.Search(context.Background(), req); !errors.Is(err, ErrInvalidQuery) {
		t.Fatalf("expected ErrInvalidQuery, got %v", err)
	}
}

func TestSearchInvalidConfig(t *testing.T) {
	svc := NewService([]Adapter{&fakeAdapter{name: "one"}}, 10*time.Second)
	req := movieRequest()
	req.Config.MinSeeds = -1

	if _, err := svc.Search(context.Background(), req); !errors.Is(err, domain.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestSearchUnknownAdapter(t *testing.T) {
	svc := NewService([]Adapter{&fakeAdapter{name: "one"}}, 10*time.Second)
	req := movieRequest()
	req.AdapterNames = []string{"nope"}

	if _, err := svc.Search(context.Background(), req); !errors.Is(err, ErrUnknownAdapter) {
		t.Fatalf("expected ErrUnknownAdapter, got %v", err)
	}
}

func TestSearchNoAdaptersReturnsEmpty(t *testing.T) {
	svc := NewService(nil, 10*time.Second)

	results, err := svc.Search(context.Background(), movieRequest())
	if err != nil {
		t.Fatalf("expected nil error with no adapters, got %v", err)
	}
	if results == nil || len(results) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", results)
	}
}

func TestSearchSelectSpecificAdapter(t *testing.T) {
	selected := &countingAdapter{name: "wanted", items: []domain.RawResult{
		seededResult("Dune 2021 1080p BluRay x264", "1111111111111111111111111111111111111111", 50, "wanted"),
	}}
	other := &countingAdapter{name: "other"}
	svc := NewService([]Adapter{selected, other}, 10*time.Second)

	req := movieRequest()
	req.AdapterNames = []string{"Wanted"}
	if _, err := svc.Search(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if selected.hits.Load() != 1 {
		t.Fatalf("selected adapter not queried: %d", selected.hits.Load())
	}
	if other.hits.Load() != 0 {
		t.Fatalf("unselected adapter queried: %d", other.hits.Load())
	}
}

func TestSearchBackupAlwaysRuns(t *testing.T) {
	backup := &countingAdapter{name: "backup", items: []domain.RawResult{
		seededResult("Dune 2021 1080p WEB-DL x264", "4444444444444444444444444444444444444444", 10, "backup"),
	}}
	primary := &fakeAdapter{name: "primary", items: []domain.RawResult{
		seededResult("Dune 2021 1080p BluRay x264", "1111111111111111111111111111111111111111", 50, "primary"),
	}}
	svc := NewService([]Adapter{primary}, 10*time.Second, WithBackup(backup))

	req := movieRequest()
	req.AdapterNames = []string{"primary"}
	outcome, err := svc.SearchWithDebug(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if backup.hits.Load() != 1 {
		t.Fatalf("backup not queried: %d", backup.hits.Load())
	}
	if len(outcome.Results) != 2 {
		t.Fatalf("expected merged results, got %d", len(outcome.Results))
	}
	if outcome.Report == nil || outcome.Report.Reference == nil {
		t.Fatal("expected reference comparison in report")
	}
	if outcome.Report.Reference.ReferenceID != "backup" {
		t.Fatalf("unexpected reference id: %q", outcome.Report.Reference.ReferenceID)
	}
}

func TestSearchDebugReportFunnel(t *testing.T) {
	svc := NewService([]Adapter{
		&fakeAdapter{name: "one", items: []domain.RawResult{
			seededResult("Dune 2021 1080p BluRay x264", "1111111111111111111111111111111111111111", 50, "one"),
			seededResult("Dune 2021 1080p BluRay x264", "1111111111111111111111111111111111111111", 60, "one"),
		}},
	}, 10*time.Second)

	outcome, err := svc.SearchWithDebug(context.Background(), movieRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Report == nil {
		t.Fatal("expected debug report")
	}
	if outcome.Report.Funnel.Input != 2 || outcome.Report.Funnel.Final != 1 {
		t.Fatalf("unexpected funnel: %+v", outcome.Report.Funnel)
	}
}

func TestSearchOmitsReportWithoutDebug(t *testing.T) {
	svc := NewService([]Adapter{&fakeAdapter{name: "one"}}, 10*time.Second)

	outcome, err := svc.run(context.Background(), movieRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Report != nil {
		t.Fatal("report must be nil when debug is off")
	}
}

func TestNewServiceSkipsNilAndDuplicateAdapters(t *testing.T) {
	svc := NewService([]Adapter{
		nil,
		&fakeAdapter{name: "one"},
		&fakeAdapter{name: "ONE"},
	}, 10*time.Second)

	if len(svc.order) != 1 {
		t.Fatalf("expected 1 registered adapter, got %d", len(svc.order))
	}
}

func TestClampTimeout(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want time.Duration
	}{
		{0, defaultTimeout},
		{-time.Second, defaultTimeout},
		{time.Second, minTimeout},
		{30 * time.Second, 30 * time.Second},
		{10 * time.Minute, maxTimeout},
	}
	for _, tc := range tests {
		if got := clampTimeout(tc.in); got != tc.want {
			t.Fatalf("clampTimeout(%s) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestAdaptersSortedIncludesBackup(t *testing.T) {
	svc := NewService([]Adapter{
		&fakeAdapter{name: "zeta"},
		&fakeAdapter{name: "alpha"},
	}, 10*time.Second, WithBackup(&fakeAdapter{name: "middle", trustZeroSeeds: true}))

	infos := svc.Adapters()
	if len(infos) != 3 {
		t.Fatalf("expected 3 adapters, got %d", len(infos))
	}
	for i := 1; i < len(infos); i++ {
		if infos[i-1].Name > infos[i].Name {
			t.Fatalf("adapters not sorted: %q before %q", infos[i-1].Name, infos[i].Name)
		}
	}
}

func TestTrustZeroSeedSources(t *testing.T) {
	svc := NewService([]Adapter{
		&fakeAdapter{name: "plain"},
	}, 10*time.Second, WithBackup(&fakeAdapter{name: "meta", trustZeroSeeds: true}))

	trusted := svc.trustZeroSeedSources()
	if !trusted["meta"] {
		t.Fatal("backup should trust zero seeds")
	}
	if trusted["plain"] {
		t.Fatal("plain adapter should not trust zero seeds")
	}
}

func TestSearchUsesCache(t *testing.T) {
	adapter := &countingAdapter{name: "one", items: []domain.RawResult{
		seededResult("Dune 2021 1080p BluRay x264", "1111111111111111111111111111111111111111", 50, "one"),
	}}
	svc := NewService([]Adapter{adapter}, 10*time.Second,
		WithCache(NewMemoryCacheBackend(10), time.Minute))

	for i := 0; i < 2; i++ {
		if _, err := svc.Search(context.Background(), movieRequest()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if adapter.hits.Load() != 1 {
		t.Fatalf("expected single upstream query, got %d", adapter.hits.Load())
	}
}

func TestSearchDebugBypassesCache(t *testing.T) {
	adapter := &countingAdapter{name: "one"}
	svc := NewService([]Adapter{adapter}, 10*time.Second,
		WithCache(NewMemoryCacheBackend(10), time.Minute))

	for i := 0; i < 2; i++ {
		if _, err := svc.SearchWithDebug(context.Background(), movieRequest()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if adapter.hits.Load() != 2 {
		t.Fatalf("debug searches must bypass cache, got %d hits", adapter.hits.Load())
	}
}
