package domain

// MediaKind distinguishes a feature film from an episodic title.
type MediaKind string

const (
	MediaKindMovie  MediaKind = "movie"
	MediaKindSeries MediaKind = "series"
)

// MediaQuery identifies what to search for. It is immutable for the duration
// of a search; Season and Episode are meaningful only for series.
type MediaQuery struct {
	ExternalID string    `json:"externalId,omitempty"`
	Kind       MediaKind `json:"kind"`
	Title      string    `json:"title"`
	Year       int       `json:"year,omitempty"`
	Season     int       `json:"season,omitempty"`
	Episode    int       `json:"episode,omitempty"`
}

func (q MediaQuery) IsSeries() bool {
	return q.Kind == MediaKindSeries
}

func NormalizeMediaKind(raw string) MediaKind {
	switch MediaKind(raw) {
	case MediaKindSeries:
		return MediaKindSeries
	default:
		return MediaKindMovie
	}
}

// RawResult is one candidate exactly as a source adapter returned it.
// ContentHash, when present, is a 40-hex-character identifier naming the
// underlying content independently of which source reported it.
type RawResult struct {
	Title        string `json:"title"`
	SizeBytes    int64  `json:"sizeBytes,omitempty"`
	SeedCount    int    `json:"seedCount,omitempty"`
	PeerCount    int    `json:"peerCount,omitempty"`
	SourceID     string `json:"sourceId"`
	ContentHash  string `json:"contentHash,omitempty"`
	RetrievalURI string `json:"retrievalUri,omitempty"`
}

// AdapterInfo describes a registered source adapter.
type AdapterInfo struct {
	Name    string `json:"name"`
	Label   string `json:"label"`
	Kind    string `json:"kind"`
	Enabled bool   `json:"enabled"`
	// Backup marks the meta-aggregator that fans out to many underlying
	// trackers and may report stale but real cached availability.
	Backup bool `json:"backup,omitempty"`
	// TrustZeroSeeds exempts this source's results from the zero-seed hard
	// filter.
	TrustZeroSeeds bool `json:"trustZeroSeeds,omitempty"`
}
