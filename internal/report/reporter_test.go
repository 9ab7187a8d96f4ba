package report

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"mediastream/sourcesearch/internal/domain"
)

func newTestRecorder() *Recorder {
	return NewRecorder(
		domain.MediaQuery{Title: "Dune", Year: 2021, Kind: domain.MediaKindMovie},
		domain.DefaultRankingConfig(domain.PresetBalanced),
	)
}

func TestNilRecorderIsNoOp(t *testing.T) {
	var r *Recorder
	r.RecordSource(domain.SourceOutcome{SourceID: "x"})
	r.RecordFunnel(domain.FunnelCounts{Input: 1})
	r.RecordFinal(nil)
	r.CompareReference("ref", nil, nil)

	if r.Report() != nil {
		t.Fatal("nil recorder must produce nil report")
	}
	if r.Text() != "" {
		t.Fatal("nil recorder must render empty text")
	}
}

func TestRecordSourceCapsDigest(t *testing.T) {
	r := newTestRecorder()
	outcome := domain.SourceOutcome{SourceID: "big"}
	for i := 0; i < maxDigestItems+10; i++ {
		outcome.Results = append(outcome.Results, domain.RawResult{Title: fmt.Sprintf("Item %d", i)})
	}
	r.RecordSource(outcome)

	report := r.Report()
	if report.Sources[0].RawCount != maxDigestItems+10 {
		t.Fatalf("raw count must reflect full set: %d", report.Sources[0].RawCount)
	}
	if len(report.Sources[0].Items) != maxDigestItems {
		t.Fatalf("digest not capped: %d", len(report.Sources[0].Items))
	}
}

func TestRecordFinalAnnotatesDigests(t *testing.T) {
	hash := "aabbccddeeff00112233445566778899aabbccdd"
	r := newTestRecorder()
	r.RecordSource(domain.SourceOutcome{
		SourceID: "one",
		Results:  []domain.RawResult{{Title: "Dune 2160p", ContentHash: hash}},
	})
	r.RecordFinal([]domain.RankedResult{{
		RawResult: domain.RawResult{Title: "Dune 2160p", ContentHash: hash},
		Quality:   domain.QualityAttributes{Resolution: domain.Resolution2160p},
		RankScore: 42.5,
	}})

	report := r.Report()
	digest := report.Sources[0].Items[0]
	if digest.RankScore != 42.5 {
		t.Fatalf("digest not annotated: %+v", digest)
	}
	if !strings.Contains(digest.QualityTags, "2160p") {
		t.Fatalf("missing quality tag: %q", digest.QualityTags)
	}
	if report.TierHistogram["2160p"] != 1 {
		t.Fatalf("unexpected histogram: %v", report.TierHistogram)
	}
}

func TestCompareReferenceOverlap(t *testing.T) {
	shared := "1111111111111111111111111111111111111111"
	onlyRef := "2222222222222222222222222222222222222222"
	onlyRes := "3333333333333333333333333333333333333333"

	r := newTestRecorder()
	r.CompareReference("backup",
		[]domain.RawResult{{ContentHash: shared}, {ContentHash: onlyRef}},
		[]domain.RankedResult{
			{RawResult: domain.RawResult{ContentHash: shared}},
			{RawResult: domain.RawResult{ContentHash: onlyRes}},
		})

	report := r.Report()
	if report.Reference == nil {
		t.Fatal("missing reference comparison")
	}
	if report.Reference.Overlap != 1 || report.Reference.UniqueToResults != 1 || report.Reference.UniqueToRef != 1 {
		t.Fatalf("unexpected comparison: %+v", report.Reference)
	}
}

func TestJSONRoundTrips(t *testing.T) {
	r := newTestRecorder()
	r.RecordSource(domain.SourceOutcome{SourceID: "one", DurationMS: 12})
	r.RecordFunnel(domain.FunnelCounts{Input: 3, Final: 2})
	r.RecordFinal(nil)

	payload, err := r.JSON()
	if err != nil {
		t.Fatalf("json render failed: %v", err)
	}
	var decoded domain.SearchReport
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if decoded.Funnel.Input != 3 {
		t.Fatalf("unexpected decoded funnel: %+v", decoded.Funnel)
	}
}

func TestTextSummaryIncludesFailures(t *testing.T) {
	r := newTestRecorder()
	r.RecordSource(domain.SourceOutcome{
		SourceID:   "broken",
		ErrorKind:  domain.ErrorKindTimeout,
		Error:      "context deadline exceeded",
		DurationMS: 5000,
	})
	r.RecordSource(domain.SourceOutcome{
		SourceID:   "healthy",
		Results:    []domain.RawResult{{Title: "Dune 1080p"}},
		DurationMS: 300,
	})
	r.RecordFunnel(domain.FunnelCounts{Input: 1, AfterHardFilter: 1, AfterHashDedupe: 1, AfterDedupe: 1, Final: 1})
	r.RecordFinal(nil)

	text := r.Text()
	if !strings.Contains(text, "broken") || !strings.Contains(text, "FAILED (timeout)") {
		t.Fatalf("missing failure line:\n%s", text)
	}
	if !strings.Contains(text, "funnel: 1 raw") {
		t.Fatalf("missing funnel line:\n%s", text)
	}
}
