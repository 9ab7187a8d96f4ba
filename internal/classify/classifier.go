package classify

import (
	"regexp"
	"strconv"
	"strings"

	"mediastream/sourcesearch/internal/domain"
)

var (
	wordPattern      = regexp.MustCompile(`[a-z0-9]+`)
	dvProfilePattern = regexp.MustCompile(`(?:dolby.?vision|dovi|\bdv\b)[\s.]*(?:p|profile[\s.]*)?([4-8])\b`)
	dvTokenPattern   = regexp.MustCompile(`\bdv\b`)
	groupPattern     = regexp.MustCompile(`-([A-Za-z0-9]+)(?:\[[^\]]*\])?$`)
)

// trustedGroups is the fixed allow-list of release groups whose titles are
// treated as a trust signal. Matching is case-insensitive on the extracted
// group tag.
var trustedGroups = map[string]struct{}{
	"rarbg":     {},
	"yts":       {},
	"yify":      {},
	"sparks":    {},
	"geckos":    {},
	"amiable":   {},
	"framestor": {},
	"tayto":     {},
	"ctrlhd":    {},
	"ntb":       {},
	"flux":      {},
	"cmrg":      {},
	"kogi":      {},
	"don":       {},
	"ebp":       {},
	"decibel":   {},
	"epsilon":   {},
	"cinephile": {},
}

// Classify derives quality attributes from one free-text result title. It is
// a pure function over the title: case-insensitive keyword matching, no I/O.
func Classify(title string) domain.QualityAttributes {
	lower := strings.ToLower(strings.TrimSpace(title))
	// Normalize separators so token checks work on dot-separated scene names.
	spaced := strings.NewReplacer(".", " ", "_", " ", "[", " ", "]", " ", "(", " ", ")", " ").Replace(lower)

	attrs := domain.QualityAttributes{
		Resolution: detectResolution(spaced),
	}
	attrs.Codec, attrs.CodecRank = detectCodec(spaced)
	attrs.HDR, attrs.DVProfile = detectHDR(spaced)
	attrs.Audio, attrs.AudioRank = detectAudio(spaced)
	attrs.Source, attrs.SourceRank = detectSource(spaced)
	attrs.IsRemux = attrs.Source == domain.SourceRemux
	attrs.IsCAM = attrs.Source == domain.SourceCAM

	attrs.ReleaseGroup = extractReleaseGroup(title)
	attrs.IsTrustedRelease = isTrusted(attrs.ReleaseGroup, attrs.Source)

	attrs.Is3D = hasToken(spaced, "3d") || hasToken(spaced, "sbs") || hasToken(spaced, "hou")
	attrs.ProperOrRepack = hasToken(spaced, "proper") || hasToken(spaced, "repack") || hasToken(spaced, "rerip")
	attrs.MultiAudio = detectMultiAudio(spaced)
	attrs.MultiSubs = detectMultiSubs(spaced)

	attrs.Score = aggregateScore(attrs)
	return attrs
}

func detectResolution(spaced string) domain.ResolutionTier {
	switch {
	case strings.Contains(spaced, "2160p") || hasToken(spaced, "4k") || hasToken(spaced, "uhd"):
		return domain.Resolution2160p
	case strings.Contains(spaced, "1080p"):
		return domain.Resolution1080p
	case strings.Contains(spaced, "720p"):
		return domain.Resolution720p
	case strings.Contains(spaced, "480p") || hasToken(spaced, "sd"):
		return domain.Resolution480p
	default:
		return domain.ResolutionUnknown
	}
}

func detectCodec(spaced string) (string, int) {
	switch {
	case hasToken(spaced, "av1"):
		return "AV1", 5
	case hasToken(spaced, "hevc") || hasToken(spaced, "x265") || strings.Contains(spaced, "h 265"):
		return "HEVC", 4
	case hasToken(spaced, "vp9"):
		return "VP9", 3
	case hasToken(spaced, "x264") || strings.Contains(spaced, "h 264") || hasToken(spaced, "avc"):
		return "H.264", 2
	case hasToken(spaced, "xvid") || hasToken(spaced, "divx") || hasToken(spaced, "mpeg"):
		return "MPEG", 1
	default:
		return "", 0
	}
}

// detectHDR reports at most one HDR kind even when keywords co-occur; Dolby
// Vision wins ties, then HDR10+, then HDR10, then generic HDR/HLG.
func detectHDR(spaced string) (domain.HDRKind, int) {
	if strings.Contains(spaced, "dolby vision") || hasToken(spaced, "dovi") || dvTokenPattern.MatchString(spaced) {
		profile := 0
		if match := dvProfilePattern.FindStringSubmatch(spaced); len(match) == 2 {
			profile, _ = strconv.Atoi(match[1])
		}
		return domain.HDRDolbyVision, profile
	}
	if strings.Contains(spaced, "hdr10+") || strings.Contains(spaced, "hdr10plus") {
		return domain.HDR10Plus, 0
	}
	if strings.Contains(spaced, "hdr10") {
		return domain.HDR10, 0
	}
	if hasToken(spaced, "hdr") || hasToken(spaced, "hlg") {
		return domain.HDRGeneric, 0
	}
	return domain.HDRNone, 0
}

// detectAudio returns the first match in descending priority order.
func detectAudio(spaced string) (string, int) {
	switch {
	case hasToken(spaced, "atmos"):
		return "Atmos", 6
	case hasToken(spaced, "truehd"):
		return "TrueHD", 5
	case strings.Contains(spaced, "dts-hd ma") || strings.Contains(spaced, "dts hd ma") || strings.Contains(spaced, "dts:x") || strings.Contains(spaced, "dts x"):
		return "DTS-HD MA", 5
	case strings.Contains(spaced, "dts-hd") || strings.Contains(spaced, "dts hd"):
		return "DTS-HD", 4
	case hasToken(spaced, "dts"):
		return "DTS", 3
	case hasToken(spaced, "ddp") || strings.Contains(spaced, "dd+") || hasToken(spaced, "eac3"):
		return "DD+", 3
	case strings.Contains(spaced, "dd5 1") || strings.Contains(spaced, "dd5.1") || hasToken(spaced, "ac3"):
		return "DD5.1", 2
	case hasToken(spaced, "aac"):
		return "AAC", 1
	case hasToken(spaced, "mp3"):
		return "MP3", 0
	default:
		return "", 0
	}
}

func detectSource(spaced string) (domain.SourceKind, int) {
	switch {
	case hasToken(spaced, "remux"):
		// Remux implies a BluRay lineage regardless of other tags.
		return domain.SourceRemux, 6
	case strings.Contains(spaced, "bluray") || strings.Contains(spaced, "blu-ray") || strings.Contains(spaced, "blu ray") || hasToken(spaced, "bdrip") || hasToken(spaced, "brrip"):
		return domain.SourceBluRay, 5
	case strings.Contains(spaced, "web-dl") || strings.Contains(spaced, "web dl") || hasToken(spaced, "webdl"):
		return domain.SourceWEBDL, 4
	case hasToken(spaced, "webrip"):
		return domain.SourceWEBRip, 3
	case hasToken(spaced, "hdtv"):
		return domain.SourceHDTV, 2
	case hasToken(spaced, "dvdrip"):
		return domain.SourceDVDRip, 1
	case hasToken(spaced, "cam") || hasToken(spaced, "hdcam") || hasToken(spaced, "camrip") || hasToken(spaced, "telesync") || hasToken(spaced, "ts"):
		return domain.SourceCAM, 0
	default:
		return domain.SourceUnknown, 0
	}
}

// isTrusted treats a recognized release group, or a lineage that implies a
// curated upload (WEB-DL, BluRay, remux), as a trust signal.
func isTrusted(group string, source domain.SourceKind) bool {
	if group != "" {
		if _, ok := trustedGroups[strings.ToLower(group)]; ok {
			return true
		}
	}
	switch source {
	case domain.SourceWEBDL, domain.SourceBluRay, domain.SourceRemux:
		return true
	default:
		return false
	}
}

func extractReleaseGroup(title string) string {
	trimmed := strings.TrimSpace(title)
	match := groupPattern.FindStringSubmatch(trimmed)
	if len(match) != 2 {
		return ""
	}
	group := match[1]
	// A bare trailing number is a year or episode tag, not a group.
	if _, err := strconv.Atoi(group); err == nil {
		return ""
	}
	return group
}

func detectMultiAudio(spaced string) bool {
	return strings.Contains(spaced, "multi audio") ||
		strings.Contains(spaced, "multi-audio") ||
		strings.Contains(spaced, "dual audio") ||
		hasToken(spaced, "multi") ||
		hasToken(spaced, "multilang")
}

func detectMultiSubs(spaced string) bool {
	return strings.Contains(spaced, "multi subs") ||
		strings.Contains(spaced, "multi-subs") ||
		hasToken(spaced, "multisub") ||
		hasToken(spaced, "multisubs") ||
		hasToken(spaced, "msubs")
}

func hasToken(spaced, token string) bool {
	for _, word := range wordPattern.FindAllString(spaced, -1) {
		if word == token {
			return true
		}
	}
	return false
}

// aggregateScore folds the extracted attributes into the fixed 0-100 quality
// score. The weights are a documented constant set, deliberately separate
// from the caller-configurable rank scoring.
func aggregateScore(attrs domain.QualityAttributes) int {
	score := int(attrs.Resolution)*6 + attrs.SourceRank*3 + attrs.CodecRank*3

	switch attrs.HDR {
	case domain.HDRDolbyVision:
		score += 15
	case domain.HDR10Plus:
		score += 12
	case domain.HDR10:
		score += 10
	case domain.HDRGeneric:
		score += 8
	}

	score += attrs.AudioRank * 2
	if attrs.IsTrustedRelease {
		score += 5
	}
	if attrs.ProperOrRepack {
		score += 5
	}

	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
