package domain

import (
	"errors"
	"testing"
)

func TestDefaultRankingConfigPresets(t *testing.T) {
	tests := []struct {
		preset     RankingPreset
		resolution ResolutionTier
		minSeeds   int
	}{
		{PresetMaxQuality, Resolution2160p, 1},
		{PresetBalanced, Resolution1080p, 3},
		{PresetMinSize, Resolution720p, 2},
		{PresetCompatibility, Resolution1080p, 3},
	}
	for _, tc := range tests {
		cfg := DefaultRankingConfig(tc.preset)
		if cfg.PreferredResolution != tc.resolution {
			t.Fatalf("%s: unexpected resolution %v", tc.preset, cfg.PreferredResolution)
		}
		if cfg.MinSeeds != tc.minSeeds {
			t.Fatalf("%s: unexpected minSeeds %d", tc.preset, cfg.MinSeeds)
		}
		if cfg.Preset != tc.preset {
			t.Fatalf("%s: preset not stamped", tc.preset)
		}
		if err := cfg.Validate(); err != nil {
			t.Fatalf("%s: default config invalid: %v", tc.preset, err)
		}
	}
}

func TestNormalizeRankingPresetFallsBackToBalanced(t *testing.T) {
	if got := NormalizeRankingPreset("nonsense"); got != PresetBalanced {
		t.Fatalf("unexpected preset: %q", got)
	}
	if got := NormalizeRankingPreset(""); got != PresetBalanced {
		t.Fatalf("unexpected preset: %q", got)
	}
}

func TestRankingConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     RankingConfig
		wantErr bool
	}{
		{"zero value", RankingConfig{}, false},
		{"negative min size", RankingConfig{MinSizeBytes: -1}, true},
		{"negative max size", RankingConfig{MaxSizeBytes: -1}, true},
		{"min above max", RankingConfig{MinSizeBytes: 10 << 30, MaxSizeBytes: 1 << 30}, true},
		{"negative seeds", RankingConfig{MinSeeds: -1}, true},
		{"resolution too high", RankingConfig{PreferredResolution: 9}, true},
		{"valid bounds", RankingConfig{MinSizeBytes: 1 << 30, MaxSizeBytes: 10 << 30, MinSeeds: 3}, false},
	}
	for _, tc := range tests {
		err := tc.cfg.Validate()
		if tc.wantErr && !errors.Is(err, ErrInvalidConfig) {
			t.Fatalf("%s: expected ErrInvalidConfig, got %v", tc.name, err)
		}
		if !tc.wantErr && err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.name, err)
		}
	}
}

func TestParseResolutionTier(t *testing.T) {
	tests := []struct {
		in   string
		want ResolutionTier
	}{
		{"2160p", Resolution2160p},
		{"4k", Resolution2160p},
		{"1080p", Resolution1080p},
		{"720p", Resolution720p},
		{"480p", Resolution480p},
		{"garbage", ResolutionUnknown},
	}
	for _, tc := range tests {
		if got := ParseResolutionTier(tc.in); got != tc.want {
			t.Fatalf("ParseResolutionTier(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
