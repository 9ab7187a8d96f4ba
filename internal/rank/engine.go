package rank

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"mediastream/sourcesearch/internal/classify"
	"mediastream/sourcesearch/internal/domain"
)

const (
	sizeBucket     = 100 << 20 // 100 MiB buckets for hashless dedupe
	sweetSpotMin   = 2 << 30
	sweetSpotMax   = 15 << 30
	camPenalty     = -50
	lowSeedPenalty = -20
)

var hashPattern = regexp.MustCompile(`^[0-9a-f]{40}$`)

// Options carries per-source knowledge the engine needs beyond the
// RankingConfig: which sources are allowed to report zero-seed results.
type Options struct {
	TrustZeroSeeds map[string]bool
}

// Rank runs the fixed pipeline over raw results: classify, hard filter,
// score with soft penalties, dedupe by content hash, dedupe hashless by
// title+size bucket, and sort. The input slice's order is the arrival order
// and is the final tie-breaker, so identical inputs always produce
// identical output.
func Rank(raw []domain.RawResult, cfg domain.RankingConfig, opts Options) ([]domain.RankedResult, domain.FunnelCounts) {
	funnel := domain.FunnelCounts{Input: len(raw)}

	classified := make([]domain.RankedResult, 0, len(raw))
	for _, item := range raw {
		classified = append(classified, domain.RankedResult{
			RawResult: item,
			Quality:   classify.Classify(item.Title),
		})
	}

	survivors, camReserve := hardFilter(classified, cfg, opts)
	// Seeded CAM results from a zero-seed-trusted backup source surface only
	// when nothing else survived.
	if len(survivors) == 0 {
		survivors = camReserve
	}
	funnel.AfterHardFilter = len(survivors)

	// Score before deduping so every collision is resolved by final rank
	// score, soft penalties included.
	for i := range survivors {
		survivors[i].RankScore, survivors[i].Breakdown = score(survivors[i], cfg)
		if penalty := softPenalty(survivors[i], cfg); penalty != 0 {
			survivors[i].Breakdown.Penalty = penalty
			survivors[i].RankScore += penalty
		}
	}

	survivors = dedupeByHash(survivors)
	funnel.AfterHashDedupe = len(survivors)

	survivors = dedupeByTitleSize(survivors)
	funnel.AfterDedupe = len(survivors)

	sort.SliceStable(survivors, func(i, j int) bool {
		left, right := survivors[i], survivors[j]
		if left.RankScore != right.RankScore {
			return left.RankScore > right.RankScore
		}
		return left.SeedCount > right.SeedCount
	})

	funnel.Final = len(survivors)
	return survivors, funnel
}

// hardFilter removes CAM results when configured, and zero-seed results
// carrying no trust signal. Sources flagged as trusting zero seeds (the
// backup meta-aggregator, which reports stale but real cached availability)
// keep their zero-seed results. Seeded CAM results from such a source are
// not kept outright: they go into camReserve, a last resort used only when
// the filter leaves nothing else.
func hardFilter(items []domain.RankedResult, cfg domain.RankingConfig, opts Options) (kept, camReserve []domain.RankedResult) {
	kept = make([]domain.RankedResult, 0, len(items))
	for _, item := range items {
		zeroSeedTrusted := opts.TrustZeroSeeds[strings.ToLower(item.SourceID)]
		if cfg.ExcludeCAM && item.Quality.IsCAM {
			if zeroSeedTrusted && item.SeedCount > 0 {
				camReserve = append(camReserve, item)
			}
			continue
		}
		if item.SeedCount == 0 && !item.Quality.IsTrustedRelease && !zeroSeedTrusted {
			continue
		}
		kept = append(kept, item)
	}
	return kept, camReserve
}

// dedupeByHash keeps exactly one result per content hash: the higher-scored
// one, first-arrival winning ties.
func dedupeByHash(items []domain.RankedResult) []domain.RankedResult {
	best := make(map[string]int, len(items))
	out := make([]domain.RankedResult, 0, len(items))
	for _, item := range items {
		hash := normalizeHash(item.ContentHash)
		if hash == "" {
			out = append(out, item)
			continue
		}
		if idx, exists := best[hash]; exists {
			if item.RankScore > out[idx].RankScore {
				out[idx] = item
			}
			continue
		}
		best[hash] = len(out)
		out = append(out, item)
	}
	return out
}

// dedupeByTitleSize collapses hashless results whose normalized titles match
// and whose sizes fall in the same 100 MiB bucket, same keep-higher rule.
func dedupeByTitleSize(items []domain.RankedResult) []domain.RankedResult {
	best := make(map[string]int, len(items))
	out := make([]domain.RankedResult, 0, len(items))
	for _, item := range items {
		if normalizeHash(item.ContentHash) != "" {
			out = append(out, item)
			continue
		}
		key := titleSizeKey(item.RawResult)
		if key == "" {
			out = append(out, item)
			continue
		}
		if idx, exists := best[key]; exists {
			if item.RankScore > out[idx].RankScore {
				out[idx] = item
			}
			continue
		}
		best[key] = len(out)
		out = append(out, item)
	}
	return out
}

func normalizeHash(raw string) string {
	value := strings.ToLower(strings.TrimSpace(raw))
	if !hashPattern.MatchString(value) {
		return ""
	}
	return value
}

func titleSizeKey(item domain.RawResult) string {
	title := normalizeTitleKey(item.Title)
	if title == "" {
		return ""
	}
	bucket := item.SizeBytes / sizeBucket
	return title + "|" + strconv.FormatInt(bucket, 10)
}

var titleKeyPattern = regexp.MustCompile(`[a-z0-9]+`)

func normalizeTitleKey(title string) string {
	return strings.Join(titleKeyPattern.FindAllString(strings.ToLower(title), -1), " ")
}

func softPenalty(item domain.RankedResult, cfg domain.RankingConfig) float64 {
	penalty := 0.0
	if item.Quality.IsCAM {
		penalty += camPenalty
	}
	if item.SeedCount < cfg.MinSeeds {
		penalty += lowSeedPenalty
	}
	return penalty
}
