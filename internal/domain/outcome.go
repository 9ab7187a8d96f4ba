package domain

import "time"

// ErrorKind classifies why a source adapter produced no usable results.
// Adapter errors are always recovered by the orchestrator; the kind is
// surfaced only through outcomes and the debug report.
type ErrorKind string

const (
	ErrorKindNone      ErrorKind = ""
	ErrorKindTimeout   ErrorKind = "timeout"
	ErrorKindNetwork   ErrorKind = "network"
	ErrorKindParse     ErrorKind = "parse"
	ErrorKindRateLimit ErrorKind = "ratelimit"
	ErrorKindUnknown   ErrorKind = "unknown"
)

// SourceOutcome is the settled result of one adapter invocation within one
// search: its results, or a classified error, plus timing.
type SourceOutcome struct {
	SourceID   string      `json:"sourceId"`
	Results    []RawResult `json:"results,omitempty"`
	ErrorKind  ErrorKind   `json:"errorKind,omitempty"`
	Error      string      `json:"error,omitempty"`
	DurationMS int64       `json:"durationMs"`
}

func (o SourceOutcome) Failed() bool {
	return o.ErrorKind != ErrorKindNone
}

// FunnelCounts tracks how many results survive each ranking pipeline stage.
type FunnelCounts struct {
	Input           int `json:"input"`
	AfterHardFilter int `json:"afterHardFilter"`
	AfterHashDedupe int `json:"afterHashDedupe"`
	AfterDedupe     int `json:"afterDedupe"`
	Final           int `json:"final"`
}

// ResultDigest is the light per-item echo kept in the debug report.
type ResultDigest struct {
	Title       string  `json:"title"`
	ContentHash string  `json:"contentHash,omitempty"`
	SizeBytes   int64   `json:"sizeBytes,omitempty"`
	QualityTags string  `json:"qualityTags,omitempty"`
	RankScore   float64 `json:"rankScore,omitempty"`
}

// SourceReport is one adapter's entry in the debug report.
type SourceReport struct {
	SourceID   string         `json:"sourceId"`
	ErrorKind  ErrorKind      `json:"errorKind,omitempty"`
	Error      string         `json:"error,omitempty"`
	DurationMS int64          `json:"durationMs"`
	RawCount   int            `json:"rawCount"`
	Items      []ResultDigest `json:"items,omitempty"`
}

// ReferenceComparison holds hash-set overlap statistics between the ranked
// output and a designated reference aggregator's results.
type ReferenceComparison struct {
	ReferenceID     string `json:"referenceId"`
	Overlap         int    `json:"overlap"`
	UniqueToResults int    `json:"uniqueToResults"`
	UniqueToRef     int    `json:"uniqueToReference"`
}

// SearchReport is the structured observability record for one search. It is
// produced only when debug reporting is enabled and never affects ranking.
type SearchReport struct {
	Query         MediaQuery           `json:"query"`
	Config        RankingConfig        `json:"config"`
	StartedAt     time.Time            `json:"startedAt"`
	EndedAt       time.Time            `json:"endedAt"`
	Sources       []SourceReport       `json:"sources"`
	Funnel        FunnelCounts         `json:"funnel"`
	TierHistogram map[string]int       `json:"tierHistogram,omitempty"`
	Reference     *ReferenceComparison `json:"reference,omitempty"`
}

// SearchOutcome pairs the ranked list with its debug report.
type SearchOutcome struct {
	Results []RankedResult `json:"results"`
	Report  *SearchReport  `json:"report,omitempty"`
}
