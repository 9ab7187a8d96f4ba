package domain

// ResolutionTier is an ordinal ranking of video resolution, 1 (unknown)
// through 5 (4K). Higher is better.
type ResolutionTier int

const (
	ResolutionUnknown ResolutionTier = 1
	Resolution480p    ResolutionTier = 2
	Resolution720p    ResolutionTier = 3
	Resolution1080p   ResolutionTier = 4
	Resolution2160p   ResolutionTier = 5
)

func (t ResolutionTier) String() string {
	switch t {
	case Resolution2160p:
		return "2160p"
	case Resolution1080p:
		return "1080p"
	case Resolution720p:
		return "720p"
	case Resolution480p:
		return "480p"
	default:
		return "unknown"
	}
}

// ParseResolutionTier maps a label like "1080p" to its tier, falling back
// to ResolutionUnknown.
func ParseResolutionTier(raw string) ResolutionTier {
	switch raw {
	case "2160p", "4k":
		return Resolution2160p
	case "1080p":
		return Resolution1080p
	case "720p":
		return Resolution720p
	case "480p":
		return Resolution480p
	default:
		return ResolutionUnknown
	}
}

type HDRKind string

const (
	HDRNone        HDRKind = ""
	HDRGeneric     HDRKind = "hdr"
	HDR10          HDRKind = "hdr10"
	HDR10Plus      HDRKind = "hdr10plus"
	HDRDolbyVision HDRKind = "dolbyvision"
)

// SourceKind is the release/source lineage extracted from a title, ranked
// 0 (CAM) through 6 (remux).
type SourceKind string

const (
	SourceUnknown SourceKind = ""
	SourceCAM     SourceKind = "cam"
	SourceDVDRip  SourceKind = "dvdrip"
	SourceHDTV    SourceKind = "hdtv"
	SourceWEBRip  SourceKind = "webrip"
	SourceWEBDL   SourceKind = "webdl"
	SourceBluRay  SourceKind = "bluray"
	SourceRemux   SourceKind = "remux"
)

// QualityAttributes is the read-only classification derived from one raw
// result's free-text title.
type QualityAttributes struct {
	Resolution ResolutionTier `json:"resolution"`
	Codec      string         `json:"codec,omitempty"`
	CodecRank  int            `json:"codecRank"`
	HDR        HDRKind        `json:"hdr,omitempty"`
	// DVProfile is the Dolby Vision profile number when the title states one.
	DVProfile  int        `json:"dvProfile,omitempty"`
	Audio      string     `json:"audio,omitempty"`
	AudioRank  int        `json:"audioRank"`
	Source     SourceKind `json:"source,omitempty"`
	SourceRank int        `json:"sourceRank"`

	Is3D             bool `json:"is3d,omitempty"`
	IsRemux          bool `json:"isRemux,omitempty"`
	IsCAM            bool `json:"isCam,omitempty"`
	IsTrustedRelease bool `json:"isTrustedRelease,omitempty"`
	ProperOrRepack   bool `json:"properOrRepack,omitempty"`
	MultiAudio       bool `json:"multiAudio,omitempty"`
	MultiSubs        bool `json:"multiSubs,omitempty"`

	ReleaseGroup string `json:"releaseGroup,omitempty"`

	// Score is the fixed 0-100 aggregate quality score. It is a property of
	// the title alone and independent of any RankingConfig.
	Score int `json:"score"`
}

// ScoreBreakdown records the contribution of every ranking term so a final
// rank score is explainable and reproducible.
type ScoreBreakdown struct {
	Resolution float64 `json:"resolution"`
	HDR        float64 `json:"hdr"`
	Source     float64 `json:"source"`
	Codec      float64 `json:"codec"`
	Audio      float64 `json:"audio"`
	Health     float64 `json:"health"`
	Trust      float64 `json:"trust"`
	SizeFit    float64 `json:"sizeFit"`
	Penalty    float64 `json:"penalty"`
}

func (b ScoreBreakdown) Total() float64 {
	return b.Resolution + b.HDR + b.Source + b.Codec + b.Audio + b.Health + b.Trust + b.SizeFit + b.Penalty
}

// RankedResult is a raw result plus its classification and final rank score.
type RankedResult struct {
	RawResult
	Quality   QualityAttributes `json:"quality"`
	RankScore float64           `json:"rankScore"`
	Breakdown ScoreBreakdown    `json:"breakdown"`
}
