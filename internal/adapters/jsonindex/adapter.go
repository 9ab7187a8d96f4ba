package jsonindex

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"mediastream/sourcesearch/internal/adapters/common"
	"mediastream/sourcesearch/internal/domain"
	"mediastream/sourcesearch/internal/query"
)

const (
	defaultEndpoint  = "https://apibay.org/q.php"
	defaultUserAgent = "sourcesearch/1.0"
	defaultMaxItems  = 100
	maxPayloadBytes  = 4 * 1024 * 1024
)

var defaultTrackers = []string{
	"udp://tracker.opentrackr.org:1337/announce",
	"udp://open.stealth.si:80/announce",
	"udp://tracker.torrent.eu.org:451/announce",
}

// Config configures one JSON index adapter instance. Several instances with
// different names and endpoints can coexist in one service.
type Config struct {
	Name      string
	Label     string
	Endpoint  string
	UserAgent string
	Trackers  []string
	MaxItems  int
	Client    *http.Client
	Pacer     *common.Pacer
}

// Adapter queries apibay-style JSON indexes. It owns its query formatting:
// variants are tried primary first and the first variant that yields
// results wins. Transient failures are retried here, never upstream.
type Adapter struct {
	name      string
	label     string
	client    *http.Client
	endpoint  string
	userAgent string
	trackers  []string
	maxItems  int
	pacer     *common.Pacer
	profile   query.SourceProfile
}

type apiItem struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	InfoHash string `json:"info_hash"`
	Size     string `json:"size"`
	Seeders  string `json:"seeders"`
	Leechers string `json:"leechers"`
}

func New(cfg Config) *Adapter {
	client := cfg.Client
	if client == nil {
		client = &http.Client{}
	}
	name := strings.ToLower(strings.TrimSpace(cfg.Name))
	if name == "" {
		name = "jsonindex"
	}
	label := strings.TrimSpace(cfg.Label)
	if label == "" {
		label = name
	}
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		endpoint = defaultEndpoint
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

	return &Adapter{
		name:      name,
		label:     label,
		client:    client,
		endpoint:  endpoint,
		userAgent: userAgent,
		trackers:  trackers,
		maxItems:  maxItems,
		pacer:     cfg.Pacer,
		profile: query.SourceProfile{
			SupportsYear:  true,
			EpisodeFormat: query.EpisodeFormatSxxExx,
		},
	}
}

func (a *Adapter) Name() string {
	return a.name
}

func (a *Adapter) Info() domain.AdapterInfo {
	return domain.AdapterInfo{
		Name:    a.name,
		Label:   a.label,
		Kind:    "index",
		Enabled: true,
	}
}

func (a *Adapter) Search(ctx context.Context, q domain.MediaQuery) ([]domain.RawResult, error) {
	variants := query.BuildQueries(q, a.profile, nil)

	var lastErr error
	for _, variant := range variants {
		results, err := a.searchVariant(ctx, variant.Query)
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

func (a *Adapter) searchVariant(ctx context.Context, text string) ([]domain.RawResult, error) {
	uri, err := url.Parse(a.endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint: %w", err)
	}
	values := uri.Query()
	values.Set("q", text)
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
		req.Header.Set("Accept", "application/json")

		resp, err := a.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
			return fmt.Errorf("index HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		}

		payload, err = io.ReadAll(io.LimitReader(resp.Body, maxPayloadBytes))
		return err
	}
	if err := common.RetryWithBackoff(ctx, common.DefaultRetryConfig(), fetch); err != nil {
		return nil, err
	}

	items, err := parseAPIItems(payload)
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

// parseAPIItems tolerates the index's empty-result shape, which is a single
// placeholder object instead of an array.
func parseAPIItems(payload []byte) ([]apiItem, error) {
	var items []apiItem
	if err := json.Unmarshal(payload, &items); err == nil {
		return items, nil
	}
	var single map[string]string
	if err := json.Unmarshal(payload, &single); err == nil {
		return []apiItem{}, nil
	}
	return nil, fmt.Errorf("unexpected index payload")
}

func (a *Adapter) toResult(item apiItem) (domain.RawResult, bool) {
	name := strings.TrimSpace(item.Name)
	hash := common.NormalizeContentHash(item.InfoHash)
	if name == "" || hash == "" {
		return domain.RawResult{}, false
	}
	if strings.Contains(strings.ToLower(name), "no results returned") {
		return domain.RawResult{}, false
	}
	return domain.RawResult{
		Title:        name,
		SizeBytes:    atoi64(item.Size),
		SeedCount:    atoi(item.Seeders),
		PeerCount:    atoi(item.Leechers),
		SourceID:     a.name,
		ContentHash:  hash,
		RetrievalURI: common.BuildMagnet(hash, name, a.trackers),
	}, true
}

func atoi(raw string) int {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0
	}
	return value
}

func atoi64(raw string) int64 {
	value, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0
	}
	return value
}
