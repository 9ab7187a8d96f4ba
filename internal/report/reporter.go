package report

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"mediastream/sourcesearch/internal/domain"
)

// maxDigestItems caps the per-source item echo so a debug report stays a
// readable summary rather than a full dump.
const maxDigestItems = 25

// Recorder collects observability data for one search. A nil *Recorder is
// valid and every method on it is a no-op, so callers pay nothing when
// debug reporting is disabled.
type Recorder struct {
	query     domain.MediaQuery
	config    domain.RankingConfig
	startedAt time.Time
	endedAt   time.Time
	sources   []domain.SourceReport
	funnel    domain.FunnelCounts
	histogram map[string]int
	reference *domain.ReferenceComparison
}

// NewRecorder starts a recorder for one search invocation.
func NewRecorder(query domain.MediaQuery, config domain.RankingConfig) *Recorder {
	return &Recorder{
		query:     query,
		config:    config,
		startedAt: time.Now().UTC(),
		histogram: make(map[string]int),
	}
}

func (r *Recorder) RecordSource(outcome domain.SourceOutcome) {
	if r == nil {
		return
	}
	entry := domain.SourceReport{
		SourceID:   outcome.SourceID,
		ErrorKind:  outcome.ErrorKind,
		Error:      outcome.Error,
		DurationMS: outcome.DurationMS,
		RawCount:   len(outcome.Results),
	}
	for i, item := range outcome.Results {
		if i >= maxDigestItems {
			break
		}
		entry.Items = append(entry.Items, domain.ResultDigest{
			Title:       item.Title,
			ContentHash: item.ContentHash,
			SizeBytes:   item.SizeBytes,
		})
	}
	r.sources = append(r.sources, entry)
}

func (r *Recorder) RecordFunnel(funnel domain.FunnelCounts) {
	if r == nil {
		return
	}
	r.funnel = funnel
}

// RecordFinal captures the quality-tier histogram of the ranked output and
// annotates the per-source digests with quality tags and rank scores.
func (r *Recorder) RecordFinal(results []domain.RankedResult) {
	if r == nil {
		return
	}
	byHash := make(map[string]domain.RankedResult, len(results))
	for _, item := range results {
		r.histogram[item.Quality.Resolution.String()]++
		if hash := strings.ToLower(strings.TrimSpace(item.ContentHash)); hash != "" {
			byHash[hash] = item
		}
	}
	for si := range r.sources {
		for ii := range r.sources[si].Items {
			digest := &r.sources[si].Items[ii]
			hash := strings.ToLower(strings.TrimSpace(digest.ContentHash))
			ranked, ok := byHash[hash]
			if hash == "" || !ok {
				continue
			}
			digest.QualityTags = qualityTags(ranked.Quality)
			digest.RankScore = ranked.RankScore
		}
	}
	r.endedAt = time.Now().UTC()
}

// CompareReference computes hash-set overlap between the final results and
// a designated reference aggregator's raw results.
func (r *Recorder) CompareReference(referenceID string, reference []domain.RawResult, results []domain.RankedResult) {
	if r == nil {
		return
	}
	refHashes := make(map[string]struct{}, len(reference))
	for _, item := range reference {
		if hash := strings.ToLower(strings.TrimSpace(item.ContentHash)); hash != "" {
			refHashes[hash] = struct{}{}
		}
	}
	comparison := &domain.ReferenceComparison{ReferenceID: referenceID}
	seen := make(map[string]struct{}, len(results))
	for _, item := range results {
		hash := strings.ToLower(strings.TrimSpace(item.ContentHash))
		if hash == "" {
			continue
		}
		if _, dup := seen[hash]; dup {
			continue
		}
		seen[hash] = struct{}{}
		if _, ok := refHashes[hash]; ok {
			comparison.Overlap++
		} else {
			comparison.UniqueToResults++
		}
	}
	for hash := range refHashes {
		if _, ok := seen[hash]; !ok {
			comparison.UniqueToRef++
		}
	}
	r.reference = comparison
}

// Report returns the structured record. Safe to call on a nil recorder.
func (r *Recorder) Report() *domain.SearchReport {
	if r == nil {
		return nil
	}
	endedAt := r.endedAt
	if endedAt.IsZero() {
		endedAt = time.Now().UTC()
	}
	histogram := make(map[string]int, len(r.histogram))
	for tier, count := range r.histogram {
		histogram[tier] = count
	}
	return &domain.SearchReport{
		Query:         r.query,
		Config:        r.config,
		StartedAt:     r.startedAt,
		EndedAt:       endedAt,
		Sources:       append([]domain.SourceReport(nil), r.sources...),
		Funnel:        r.funnel,
		TierHistogram: histogram,
		Reference:     r.reference,
	}
}

func (r *Recorder) JSON() ([]byte, error) {
	if r == nil {
		return nil, nil
	}
	return json.MarshalIndent(r.Report(), "", "  ")
}

// Text renders the human-readable multi-line summary.
func (r *Recorder) Text() string {
	if r == nil {
		return ""
	}
	return RenderText(r.Report())
}

// RenderText is Text for an already-materialized report.
func RenderText(report *domain.SearchReport) string {
	if report == nil {
		return ""
	}
	var b strings.Builder

	fmt.Fprintf(&b, "search %q", report.Query.Title)
	if report.Query.IsSeries() {
		fmt.Fprintf(&b, " S%02dE%02d", report.Query.Season, report.Query.Episode)
	} else if report.Query.Year > 0 {
		fmt.Fprintf(&b, " (%d)", report.Query.Year)
	}
	fmt.Fprintf(&b, " took %s\n", report.EndedAt.Sub(report.StartedAt).Round(time.Millisecond))

	for _, src := range report.Sources {
		if src.ErrorKind != domain.ErrorKindNone {
			fmt.Fprintf(&b, "  %-14s FAILED (%s) in %dms: %s\n", src.SourceID, src.ErrorKind, src.DurationMS, src.Error)
			continue
		}
		fmt.Fprintf(&b, "  %-14s %d results in %dms\n", src.SourceID, src.RawCount, src.DurationMS)
	}

	fmt.Fprintf(&b, "  funnel: %d raw -> %d hard-filtered -> %d hash-deduped -> %d deduped -> %d final\n",
		report.Funnel.Input, report.Funnel.AfterHardFilter, report.Funnel.AfterHashDedupe,
		report.Funnel.AfterDedupe, report.Funnel.Final)

	if len(report.TierHistogram) > 0 {
		tiers := make([]string, 0, len(report.TierHistogram))
		for tier := range report.TierHistogram {
			tiers = append(tiers, tier)
		}
		sort.Strings(tiers)
		parts := make([]string, 0, len(tiers))
		for _, tier := range tiers {
			parts = append(parts, fmt.Sprintf("%s=%d", tier, report.TierHistogram[tier]))
		}
		fmt.Fprintf(&b, "  tiers: %s\n", strings.Join(parts, " "))
	}

	if report.Reference != nil {
		fmt.Fprintf(&b, "  reference %s: overlap=%d uniqueToResults=%d uniqueToReference=%d\n",
			report.Reference.ReferenceID, report.Reference.Overlap,
			report.Reference.UniqueToResults, report.Reference.UniqueToRef)
	}
	return b.String()
}

func qualityTags(q domain.QualityAttributes) string {
	parts := make([]string, 0, 4)
	if q.Resolution != domain.ResolutionUnknown {
		parts = append(parts, q.Resolution.String())
	}
	if q.Source != domain.SourceUnknown {
		parts = append(parts, string(q.Source))
	}
	if q.HDR != domain.HDRNone {
		parts = append(parts, string(q.HDR))
	}
	if q.Codec != "" {
		parts = append(parts, q.Codec)
	}
	return strings.Join(parts, " ")
}
