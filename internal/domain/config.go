package domain

import (
	"errors"
	"fmt"
)

// RankingPreset names a bundle of RankingConfig defaults. Presets change
// only the config fields, never the scoring formula.
type RankingPreset string

const (
	PresetMaxQuality    RankingPreset = "maxQuality"
	PresetBalanced      RankingPreset = "balanced"
	PresetMinSize       RankingPreset = "minSize"
	PresetCompatibility RankingPreset = "compatibility"
)

var ErrInvalidConfig = errors.New("invalid ranking config")

// RankingConfig controls the caller-configurable part of ranking and
// filtering. Obtain defaults via DefaultRankingConfig and override fields
// as needed; the scoring weights themselves are fixed.
type RankingConfig struct {
	PreferredResolution ResolutionTier `json:"preferredResolution"`
	PreferHDR           bool           `json:"preferHDR"`
	PreferDolbyVision   bool           `json:"preferDolbyVision"`
	PreferHEVC          bool           `json:"preferHEVC"`
	PreferRemux         bool           `json:"preferRemux"`
	MinSeeds            int            `json:"minSeeds"`
	MinSizeBytes        int64          `json:"minSizeBytes,omitempty"`
	MaxSizeBytes        int64          `json:"maxSizeBytes,omitempty"`
	ExcludeCAM          bool           `json:"excludeCAM"`
	Preset              RankingPreset  `json:"preset,omitempty"`
}

// DefaultRankingConfig returns the named preset's defaults. An unknown or
// empty preset resolves to balanced.
func DefaultRankingConfig(preset RankingPreset) RankingConfig {
	switch preset {
	case PresetMaxQuality:
		return RankingConfig{
			PreferredResolution: Resolution2160p,
			PreferHDR:           true,
			PreferDolbyVision:   true,
			PreferHEVC:          true,
			PreferRemux:         true,
			MinSeeds:            1,
			ExcludeCAM:          true,
			Preset:              PresetMaxQuality,
		}
	case PresetMinSize:
		return RankingConfig{
			PreferredResolution: Resolution720p,
			PreferHEVC:          true,
			MinSeeds:            2,
			MaxSizeBytes:        4 << 30,
			ExcludeCAM:          true,
			Preset:              PresetMinSize,
		}
	case PresetCompatibility:
		return RankingConfig{
			PreferredResolution: Resolution1080p,
			MinSeeds:            3,
			ExcludeCAM:          true,
			Preset:              PresetCompatibility,
		}
	default:
		return RankingConfig{
			PreferredResolution: Resolution1080p,
			PreferHDR:           true,
			PreferHEVC:          true,
			MinSeeds:            3,
			ExcludeCAM:          true,
			Preset:              PresetBalanced,
		}
	}
}

func NormalizeRankingPreset(raw string) RankingPreset {
	switch RankingPreset(raw) {
	case PresetMaxQuality:
		return PresetMaxQuality
	case PresetMinSize:
		return PresetMinSize
	case PresetCompatibility:
		return PresetCompatibility
	default:
		return PresetBalanced
	}
}

// Validate reports a synchronous configuration error before any search
// starts. A zero-value config is valid.
func (c RankingConfig) Validate() error {
	if c.MinSizeBytes < 0 || c.MaxSizeBytes < 0 {
		return fmt.Errorf("%w: size bounds must be >= 0", ErrInvalidConfig)
	}
	if c.MinSizeBytes > 0 && c.MaxSizeBytes > 0 && c.MinSizeBytes > c.MaxSizeBytes {
		return fmt.Errorf("%w: minSizeBytes %d exceeds maxSizeBytes %d", ErrInvalidConfig, c.MinSizeBytes, c.MaxSizeBytes)
	}
	if c.MinSeeds < 0 {
		return fmt.Errorf("%w: minSeeds must be >= 0", ErrInvalidConfig)
	}
	if c.PreferredResolution != 0 && (c.PreferredResolution < ResolutionUnknown || c.PreferredResolution > Resolution2160p) {
		return fmt.Errorf("%w: unknown preferred resolution %d", ErrInvalidConfig, c.PreferredResolution)
	}
	return nil
}
