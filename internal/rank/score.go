package rank

import (
	"mediastream/sourcesearch/internal/domain"
)

// score computes the weighted rank score for one classified result. Every
// term is recorded in the breakdown so the total is reproducible from the
// raw result and the config alone.
func score(item domain.RankedResult, cfg domain.RankingConfig) (float64, domain.ScoreBreakdown) {
	breakdown := domain.ScoreBreakdown{
		Resolution: resolutionTerm(item.Quality, cfg),
		HDR:        hdrTerm(item.Quality, cfg),
		Source:     sourceTerm(item.Quality, cfg),
		Codec:      codecTerm(item.Quality, cfg),
		Audio:      audioTerm(item.Quality),
		Health:     healthTerm(item.SeedCount),
		Trust:      trustTerm(item.Quality),
		SizeFit:    sizeFitTerm(item.SizeBytes, cfg),
	}
	return breakdown.Total(), breakdown
}

// resolutionTerm: rank x 6, plus 5 when it matches the preferred resolution.
func resolutionTerm(q domain.QualityAttributes, cfg domain.RankingConfig) float64 {
	term := float64(q.Resolution) * 6
	if cfg.PreferredResolution != 0 && q.Resolution == cfg.PreferredResolution {
		term += 5
	}
	return term
}

func hdrTerm(q domain.QualityAttributes, cfg domain.RankingConfig) float64 {
	switch q.HDR {
	case domain.HDRDolbyVision:
		if cfg.PreferDolbyVision {
			return 20
		}
		if cfg.PreferHDR {
			return 15
		}
	case domain.HDR10Plus:
		if cfg.PreferHDR {
			return 18
		}
	case domain.HDR10:
		if cfg.PreferHDR {
			return 15
		}
	case domain.HDRGeneric:
		if cfg.PreferHDR {
			return 10
		}
	}
	return 0
}

func sourceTerm(q domain.QualityAttributes, cfg domain.RankingConfig) float64 {
	switch q.Source {
	case domain.SourceRemux:
		if cfg.PreferRemux {
			return 15
		}
		return 12
	case domain.SourceBluRay:
		return 10
	case domain.SourceWEBDL:
		return 8
	default:
		return float64(q.SourceRank) * 2
	}
}

// codecTerm rewards HEVC and AV1 at 4K when the caller prefers them, since
// a 4K x264 encode is both large and unusual.
func codecTerm(q domain.QualityAttributes, cfg domain.RankingConfig) float64 {
	if cfg.PreferHEVC && q.Resolution == domain.Resolution2160p {
		switch q.Codec {
		case "HEVC", "AV1":
			return 10
		case "H.264":
			return 5
		}
		return float64(q.CodecRank) * 2
	}
	return float64(q.CodecRank) * 2
}

func audioTerm(q domain.QualityAttributes) float64 {
	switch q.Audio {
	case "Atmos":
		return 10
	case "TrueHD":
		return 8
	}
	term := float64(q.AudioRank) * 2
	if term > 10 {
		term = 10
	}
	return term
}

// healthTerm is a staircase over seeders: well-seeded content streams
// reliably, but beyond ~100 seeders more is not better.
func healthTerm(seeds int) float64 {
	switch {
	case seeds >= 100:
		return 15
	case seeds >= 50:
		return 12
	case seeds >= 20:
		return 10
	case seeds >= 10:
		return 8
	case seeds >= 5:
		return 5
	case seeds >= 1:
		return 2
	default:
		return 0
	}
}

func trustTerm(q domain.QualityAttributes) float64 {
	term := 0.0
	if q.IsTrustedRelease {
		term += 3
	}
	if q.ProperOrRepack {
		term += 2
	}
	return term
}

// sizeFitTerm penalizes results outside the configured bounds and rewards
// the 2-15 GiB streaming sweet spot. Unknown sizes are neutral.
func sizeFitTerm(sizeBytes int64, cfg domain.RankingConfig) float64 {
	if sizeBytes <= 0 {
		return 0
	}
	if cfg.MaxSizeBytes > 0 && sizeBytes > cfg.MaxSizeBytes {
		return -10
	}
	if cfg.MinSizeBytes > 0 && sizeBytes < cfg.MinSizeBytes {
		return -5
	}
	if sizeBytes >= sweetSpotMin && sizeBytes <= sweetSpotMax {
		return 5
	}
	return 0
}
