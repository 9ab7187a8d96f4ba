package torznab

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/semaphore"

	"mediastream/sourcesearch/internal/adapters/common"
	"mediastream/sourcesearch/internal/domain"
	"mediastream/sourcesearch/internal/query"
)

const (
	defaultUserAgent  = "sourcesearch/1.0"
	defaultMaxItems   = 100
	maxPayloadBytes   = 8 * 1024 * 1024
	maxIndexerInFly   = 3
	errBodySnippetLen = 2048
)

var defaultTrackers = []string{
	"udp://tracker.opentrackr.org:1337/announce",
	"udp://open.stealth.si:80/announce",
	"udp://tracker.torrent.eu.org:451/announce",
}

// Config configures the Torznab meta-aggregator adapter. Endpoints may list
// several indexer API URLs behind one aggregator host; they are queried
// concurrently and merged.
type Config struct {
	Name      string
	Label     string
	Endpoints []string
	APIKey    string
	UserAgent string
	Trackers  []string
	MaxItems  int
	Client    *http.Client
	Pacer     *common.Pacer
}

// Adapter speaks the Torznab XML API. Aggregator indexers verify their feed
// and often report stale seed counts, so the adapter marks itself
// TrustZeroSeeds and leaves the judgement to ranking penalties.
type Adapter struct {
	name      string
	label     string
	endpoints []string
	apiKey    string
	userAgent string
	trackers  []string
	maxItems  int
	client    *http.Client
	pacer     *common.Pacer
	profile   query.SourceProfile
}

func New(cfg Config) *Adapter {
	client := cfg.Client
	if client == nil {
		client = &http.Client{}
	}
	name := strings.ToLower(strings.TrimSpace(cfg.Name))
	if name == "" {
		name = "torznab"
	}
	label := strings.TrimSpace(cfg.Label)
	if label == "" {
		label = "Torznab"
	}
	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	trackers := cfg.Trackers
	if len(trackers) == 0 {
		trackers = append([]string(nil), defaultTrackers...)
	}
	maxItems := cfg.MaxItems
	if maxItems <= 0 {
		maxItems = defaultMaxItems
	}
	endpoints := make([]string, 0, len(cfg.Endpoints))
	for _, raw := range cfg.Endpoints {
		if value := strings.TrimSpace(raw); value != "" {
			endpoints = append(endpoints, value)
		}
	}

	return &Adapter{
		name:      name,
		label:     label,
		endpoints: endpoints,
		apiKey:    strings.TrimSpace(cfg.APIKey),
		userAgent: userAgent,
		trackers:  trackers,
		maxItems:  maxItems,
		client:    client,
		pacer:     cfg.Pacer,
		profile: query.SourceProfile{
			SupportsIDLookup: true,
			SupportsYear:     true,
			EpisodeFormat:    query.EpisodeFormatSxxExx,
		},
	}
}

func (a *Adapter) Name() string {
	return a.name
}

func (a *Adapter) Info() domain.AdapterInfo {
	return domain.AdapterInfo{
		Name:           a.name,
		Label:          a.label,
		Kind:           "aggregator",
		Enabled:        len(a.endpoints) > 0,
		Backup:         true,
		TrustZeroSeeds: true,
	}
}

func (a *Adapter) Search(ctx context.Context, q domain.MediaQuery) ([]domain.RawResult, error) {
	if len(a.endpoints) == 0 {
		return nil, errors.New("adapter is not configured")
	}

	if len(a.endpoints) == 1 {
		return a.searchEndpoint(ctx, a.endpoints[0], q)
	}

	// Individual indexers are much faster than an aggregated /all endpoint,
	// so fan out and merge, tolerating per-indexer failures.
	type slot struct {
		results []domain.RawResult
		err     error
	}
	slots := make([]slot, len(a.endpoints))
	sem := semaphore.NewWeighted(maxIndexerInFly)
	var wg sync.WaitGroup
	for i, endpoint := range a.endpoints {
		wg.Add(1)
		go func(index int, endpoint string) {
			defer wg.Done()
			if err := sem.Acquire(ctx, 1); err != nil {
				slots[index].err = err
				return
			}
			defer sem.Release(1)
			slots[index].results, slots[index].err = a.searchEndpoint(ctx, endpoint, q)
		}(i, endpoint)
	}
	wg.Wait()

	merged := make([]domain.RawResult, 0, 64)
	failures := 0
	var lastErr error
	for _, s := range slots {
		if s.err != nil {
			failures++
			lastErr = s.err
			continue
		}
		merged = append(merged, s.results...)
	}
	if failures == len(slots) {
		return nil, lastErr
	}
	return dedupeByHash(merged, a.maxItems), nil
}

func (a *Adapter) searchEndpoint(ctx context.Context, endpoint string, q domain.MediaQuery) ([]domain.RawResult, error) {
	variants := query.BuildQueries(q, a.profile, nil)

	var lastErr error
	for _, variant := range variants {
		results, err := a.searchVariant(ctx, endpoint, q, variant)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			continue
		}
		if len(results) > 0 {
			return results, nil
		}
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return []domain.RawResult{}, nil
}

func (a *Adapter) searchVariant(ctx context.Context, endpoint string, q domain.MediaQuery, variant query.Variant) ([]domain.RawResult, error) {
	uri, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint: %w", err)
	}
	values := uri.Query()
	values.Set("t", searchMode(q))
	// Aggregators only include infohash/seeders/size attrs when extended
	// output is requested.
	if strings.TrimSpace(values.Get("extended")) == "" {
		values.Set("extended", "1")
	}
	if a.apiKey != "" && strings.TrimSpace(values.Get("apikey")) == "" {
		values.Set("apikey", a.apiKey)
	}
	if variant.Tier == query.TierPrimary && strings.TrimSpace(q.ExternalID) != "" {
		values.Set("imdbid", strings.TrimPrefix(strings.TrimSpace(q.ExternalID), "tt"))
	} else {
		values.Set("q", variant.Query)
	}
	if q.IsSeries() && q.Season > 0 {
		values.Set("season", strconv.Itoa(q.Season))
		if q.Episode > 0 {
			values.Set("ep", strconv.Itoa(q.Episode))
		}
	}
	values.Set("limit", strconv.Itoa(a.maxItems))
	uri.RawQuery = values.Encode()

	if a.pacer != nil {
		if err := a.pacer.Wait(ctx, uri.Host); err != nil {
			return nil, err
		}
	}

	var payload []byte
	fetch := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri.String(), nil)
		if err != nil {
			return err
		}
		req.Header.Set("User-Agent", a.userAgent)
		req.Header.Set("Accept", "application/xml,text/xml,application/rss+xml")

		resp, err := a.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, errBodySnippetLen))
			return fmt.Errorf("aggregator HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		}

		payload, err = io.ReadAll(io.LimitReader(resp.Body, maxPayloadBytes))
		return err
	}
	if err := common.RetryWithBackoff(ctx, common.DefaultRetryConfig(), fetch); err != nil {
		return nil, err
	}

	items, err := parseFeed(payload)
	if err != nil {
		return nil, err
	}

	results := make([]domain.RawResult, 0, len(items))
	for _, item := range items {
		result, ok := a.toResult(item)
		if !ok {
			continue
		}
		results = append(results, result)
		if len(results) >= a.maxItems {
			break
		}
	}
	return results, nil
}

func searchMode(q domain.MediaQuery) string {
	switch q.Kind {
	case domain.MediaKindMovie:
		return "movie"
	case domain.MediaKindSeries:
		return "tvsearch"
	default:
		return "search"
	}
}

type feedResponse struct {
	Channel feedChannel `xml:"channel"`
}

type feedChannel struct {
	Items []feedItem `xml:"item"`
}

type feedItem struct {
	Title     string        `xml:"title"`
	Guid      string        `xml:"guid"`
	Link      string        `xml:"link"`
	Size      int64         `xml:"size"`
	Enclosure feedEnclosure `xml:"enclosure"`
	Attrs     []feedAttr    `xml:"attr"`
}

type feedEnclosure struct {
	URL    string `xml:"url,attr"`
	Length int64  `xml:"length,attr"`
}

type feedAttr struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

func parseFeed(payload []byte) ([]feedItem, error) {
	text := common.DecodeText(payload)
	var rss feedResponse
	if err := xml.Unmarshal([]byte(text), &rss); err != nil {
		return nil, fmt.Errorf("invalid torznab XML: %w", err)
	}
	return rss.Channel.Items, nil
}

func (a *Adapter) toResult(item feedItem) (domain.RawResult, bool) {
	title := common.CleanHTMLText(item.Title)
	if title == "" {
		return domain.RawResult{}, false
	}

	attrs := make(map[string]string, len(item.Attrs))
	for _, attr := range item.Attrs {
		key := strings.ToLower(strings.TrimSpace(attr.Name))
		if key == "" {
			continue
		}
		if _, exists := attrs[key]; exists {
			continue
		}
		attrs[key] = strings.TrimSpace(attr.Value)
	}

	magnet := firstMagnet(item.Guid, item.Link, item.Enclosure.URL)
	hash := common.NormalizeContentHash(attrs["infohash"])
	if hash == "" && magnet != "" {
		hash = common.HashFromMagnet(magnet)
	}
	if magnet == "" && hash != "" {
		magnet = common.BuildMagnet(hash, title, a.trackers)
	}
	if magnet == "" && hash == "" {
		return domain.RawResult{}, false
	}

	sizeBytes := parseI64(attrs["size"])
	if sizeBytes <= 0 {
		sizeBytes = item.Size
	}
	if sizeBytes <= 0 && item.Enclosure.Length > 0 {
		sizeBytes = item.Enclosure.Length
	}

	seeders := parseInt(attrs["seeders"])
	leechers := parseInt(attrs["leechers"])
	if leechers == 0 {
		if peers := parseInt(attrs["peers"]); peers > seeders {
			leechers = peers - seeders
		}
	}

	return domain.RawResult{
		Title:        title,
		SizeBytes:    sizeBytes,
		SeedCount:    seeders,
		PeerCount:    leechers,
		SourceID:     a.name,
		ContentHash:  hash,
		RetrievalURI: magnet,
	}, true
}

func dedupeByHash(results []domain.RawResult, limit int) []domain.RawResult {
	out := make([]domain.RawResult, 0, len(results))
	seen := make(map[string]struct{}, len(results))
	for _, result := range results {
		key := result.ContentHash
		if key == "" {
			key = result.RetrievalURI
		}
		if _, exists := seen[key]; exists {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, result)
		if len(out) >= limit {
			break
		}
	}
	return out
}

func firstMagnet(candidates ...string) string {
	for _, candidate := range candidates {
		value := strings.TrimSpace(candidate)
		if strings.HasPrefix(strings.ToLower(value), "magnet:?") {
			return value
		}
	}
	return ""
}

func parseInt(raw string) int {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0
	}
	return value
}

func parseI64(raw string) int64 {
	value, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0
	}
	return value
}
