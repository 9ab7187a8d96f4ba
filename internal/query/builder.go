package query

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"mediastream/sourcesearch/internal/domain"
)

// EpisodeFormat selects how a series query spells its episode code.
type EpisodeFormat string

const (
	EpisodeFormatSxxExx  EpisodeFormat = "sxxexx"  // S01E02
	EpisodeFormatCross   EpisodeFormat = "1x02"    // 1x02
	EpisodeFormatVerbose EpisodeFormat = "verbose" // season 1 episode 2
	EpisodeFormatBare    EpisodeFormat = "bare"    // 2
)

// SourceProfile describes one source's query formatting rules.
type SourceProfile struct {
	SupportsIDLookup bool
	SupportsYear     bool
	EpisodeFormat    EpisodeFormat
	NeedsEscaping    bool
	MaxQueryLength   int
}

type Tier string

const (
	TierPrimary     Tier = "primary"
	TierFallback    Tier = "fallback"
	TierAlternative Tier = "alternative"
)

// Variant is one per-source query string. Variants are emitted primary
// first, then fallbacks, then alternatives, so a caller can stop at the
// first variant that yields results.
type Variant struct {
	Query string `json:"query"`
	Tier  Tier   `json:"tier"`
}

var (
	punctPattern   = regexp.MustCompile(`[^\p{L}\p{N}'\- ]+`)
	bracketPattern = regexp.MustCompile(`\s*[(\[][^)\]]*[)\]]\s*$`)
	spacePattern   = regexp.MustCompile(`\s+`)
)

// NormalizeTitle strips punctuation except apostrophes and hyphens, folds
// "&" to "and", and collapses whitespace. Pure and deterministic.
func NormalizeTitle(title string) string {
	value := strings.TrimSpace(title)
	value = strings.ReplaceAll(value, "&", " and ")
	value = punctPattern.ReplaceAllString(value, " ")
	value = spacePattern.ReplaceAllString(value, " ")
	return strings.TrimSpace(value)
}

// SimplifyTitle additionally drops parenthetical or bracketed suffixes, any
// text after a colon, and a leading "The". Used only for fallback variants.
func SimplifyTitle(title string) string {
	value := strings.TrimSpace(title)
	for bracketPattern.MatchString(value) {
		value = strings.TrimSpace(bracketPattern.ReplaceAllString(value, ""))
	}
	if idx := strings.Index(value, ":"); idx >= 0 {
		value = value[:idx]
	}
	normalized := NormalizeTitle(value)
	lowered := strings.ToLower(normalized)
	if strings.HasPrefix(lowered, "the ") {
		normalized = strings.TrimSpace(normalized[4:])
	}
	return normalized
}

// BuildQueries turns a media query into the ordered per-source variant list.
// The output always contains at least one variant for a non-empty title.
func BuildQueries(q domain.MediaQuery, profile SourceProfile, alternatives []string) []Variant {
	variants := make([]Variant, 0, 6)
	seen := make(map[string]struct{}, 6)

	add := func(raw string, tier Tier) {
		value := strings.TrimSpace(raw)
		if value == "" {
			return
		}
		if profile.MaxQueryLength > 0 && len(value) > profile.MaxQueryLength {
			value = strings.TrimSpace(truncateOnRune(value, profile.MaxQueryLength))
		}
		if profile.NeedsEscaping {
			value = url.QueryEscape(value)
		}
		key := strings.ToLower(value)
		if _, exists := seen[key]; exists {
			return
		}
		seen[key] = struct{}{}
		variants = append(variants, Variant{Query: value, Tier: tier})
	}

	normalized := NormalizeTitle(q.Title)
	if normalized == "" {
		// A title made entirely of stripped characters still has to produce
		// a variant; the raw text is the best query left.
		normalized = strings.TrimSpace(q.Title)
	}
	episode := episodeCode(profile.EpisodeFormat, q.Season, q.Episode)

	titlePrimary := normalized
	if q.IsSeries() {
		if episode != "" {
			titlePrimary = normalized + " " + episode
		}
	} else if q.Year > 0 && profile.SupportsYear {
		titlePrimary = fmt.Sprintf("%s %d", normalized, q.Year)
	}

	if profile.SupportsIDLookup && strings.TrimSpace(q.ExternalID) != "" {
		add(q.ExternalID, TierPrimary)
		add(titlePrimary, TierFallback)
	} else {
		add(titlePrimary, TierPrimary)
	}

	// Fallbacks: title without year, then the simplified title.
	if !q.IsSeries() && q.Year > 0 {
		add(normalized, TierFallback)
	}
	simplified := SimplifyTitle(q.Title)
	if simplified != "" && !strings.EqualFold(simplified, normalized) {
		if q.IsSeries() && episode != "" {
			add(simplified+" "+episode, TierFallback)
		} else {
			add(simplified, TierFallback)
		}
	}

	count := 0
	for _, alt := range alternatives {
		if count >= 2 {
			break
		}
		altNormalized := NormalizeTitle(alt)
		if altNormalized == "" || strings.EqualFold(altNormalized, normalized) {
			continue
		}
		if q.IsSeries() && episode != "" {
			add(altNormalized+" "+episode, TierAlternative)
		} else {
			add(altNormalized, TierAlternative)
		}
		count++
	}

	if len(variants) == 0 {
		add(normalized, TierPrimary)
	}
	return variants
}

// truncateOnRune cuts value to at most limit bytes without splitting a
// multi-byte rune.
func truncateOnRune(value string, limit int) string {
	if limit <= 0 || len(value) <= limit {
		return value
	}
	for limit > 0 && !utf8.RuneStart(value[limit]) {
		limit--
	}
	return value[:limit]
}

func episodeCode(format EpisodeFormat, season, episode int) string {
	if season <= 0 && episode <= 0 {
		return ""
	}
	switch format {
	case EpisodeFormatCross:
		return fmt.Sprintf("%dx%02d", season, episode)
	case EpisodeFormatVerbose:
		return fmt.Sprintf("season %d episode %d", season, episode)
	case EpisodeFormatBare:
		return fmt.Sprintf("%d", episode)
	default:
		return fmt.Sprintf("S%02dE%02d", season, episode)
	}
}
