package apihttp

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"mediastream/sourcesearch/internal/domain"
	"mediastream/sourcesearch/internal/report"
	"mediastream/sourcesearch/internal/search"
)

// SearchService is the slice of the search layer the HTTP surface needs.
type SearchService interface {
	Search(ctx context.Context, req search.Request) ([]domain.RankedResult, error)
	SearchWithDebug(ctx context.Context, req search.Request) (domain.SearchOutcome, error)
	Adapters() []domain.AdapterInfo
	Diagnostics() []search.AdapterDiagnostics
}

type Server struct {
	search SearchService
	logger *slog.Logger
}

type ServerOption func(*Server)

func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

const maxTitleLength = 500

func NewServer(searchService SearchService, options ...ServerOption) *Server {
	server := &Server{
		search: searchService,
		logger: slog.Default(),
	}
	for _, option := range options {
		if option != nil {
			option(server)
		}
	}
	if server.logger == nil {
		server.logger = slog.Default()
	}
	return server
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/search/adapters", s.handleAdapters)
	mux.HandleFunc("/search/adapters/health", s.handleAdaptersHealth)
	mux.HandleFunc("/search/debug", s.handleSearchDebug)
	mux.HandleFunc("/search", s.handleSearch)
	traced := otelhttp.NewHandler(loggingMiddleware(s.logger, mux), "source-search",
		otelhttp.WithFilter(func(r *http.Request) bool {
			p := r.URL.Path
			return p != "/metrics" && p != "/health"
		}),
	)
	return recoveryMiddleware(s.logger, rateLimitMiddleware(50, 100, metricsMiddleware(traced)))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
	})
}

func (s *Server) handleAdapters(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/search/adapters" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"adapters": s.search.Adapters(),
	})
}

func (s *Server) handleAdaptersHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"adapters": s.search.Diagnostics(),
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/search" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	req, err := parseSearchRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	started := time.Now()
	results, err := s.search.Search(r.Context(), req)
	if err != nil {
		s.writeSearchError(w, r, req, err)
		return
	}

	s.logger.Info("search completed",
		slog.String("title", truncate(req.Query.Title, 80)),
		slog.Int("results", len(results)),
		slog.Int64("elapsedMs", time.Since(started).Milliseconds()),
	)
	writeJSON(w, http.StatusOK, map[string]any{
		"items": results,
		"total": len(results),
	})
}

func (s *Server) handleSearchDebug(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/search/debug" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	req, err := parseSearchRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	outcome, err := s.search.SearchWithDebug(r.Context(), req)
	if err != nil {
		s.writeSearchError(w, r, req, err)
		return
	}

	if strings.EqualFold(strings.TrimSpace(r.URL.Query().Get("format")), "text") {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(report.RenderText(outcome.Report)))
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

func (s *Server) writeSearchError(w http.ResponseWriter, r *http.Request, req search.Request, err error) {
	s.logger.Warn("search request failed",
		slog.String("title", truncate(req.Query.Title, 80)),
		slog.Any("adapters", req.AdapterNames),
		slog.String("error", err.Error()),
	)
	switch {
	case errors.Is(err, search.ErrInvalidQuery),
		errors.Is(err, search.ErrUnknownAdapter),
		errors.Is(err, domain.ErrInvalidConfig):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, context.Canceled) && r.Context().Err() != nil:
		// Client went away; nothing useful to write.
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "search failed")
	}
}

// parseSearchRequest builds a search request from query parameters. The
// preset resolves first and explicit parameters override it field by field.
func parseSearchRequest(r *http.Request) (search.Request, error) {
	values := r.URL.Query()

	title := strings.TrimSpace(values.Get("title"))
	if title == "" {
		title = strings.TrimSpace(values.Get("q"))
	}
	if len(title) > maxTitleLength {
		return search.Request{}, errors.New("title too long (max 500 characters)")
	}
	externalID := strings.TrimSpace(values.Get("id"))
	if title == "" && externalID == "" {
		return search.Request{}, errors.New("title or id is required")
	}

	year, err := parseOptionalInt(values.Get("year"))
	if err != nil {
		return search.Request{}, errors.New("invalid year")
	}
	season, err := parseOptionalInt(values.Get("season"))
	if err != nil {
		return search.Request{}, errors.New("invalid season")
	}
	episode, err := parseOptionalInt(values.Get("episode"))
	if err != nil {
		return search.Request{}, errors.New("invalid episode")
	}

	cfg := domain.DefaultRankingConfig(domain.NormalizeRankingPreset(strings.TrimSpace(values.Get("preset"))))
	if raw := strings.TrimSpace(values.Get("resolution")); raw != "" {
		cfg.PreferredResolution = domain.ParseResolutionTier(strings.ToLower(raw))
	}
	if raw := values.Get("preferHdr"); raw != "" {
		cfg.PreferHDR = parseBool(raw)
	}
	if raw := values.Get("preferDv"); raw != "" {
		cfg.PreferDolbyVision = parseBool(raw)
	}
	if raw := values.Get("preferHevc"); raw != "" {
		cfg.PreferHEVC = parseBool(raw)
	}
	if raw := values.Get("preferRemux"); raw != "" {
		cfg.PreferRemux = parseBool(raw)
	}
	if raw := values.Get("excludeCam"); raw != "" {
		cfg.ExcludeCAM = parseBool(raw)
	}
	if raw := strings.TrimSpace(values.Get("minSeeds")); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return search.Request{}, errors.New("invalid minSeeds")
		}
		cfg.MinSeeds = v
	}
	if raw := strings.TrimSpace(values.Get("minSizeBytes")); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return search.Request{}, errors.New("invalid minSizeBytes")
		}
		cfg.MinSizeBytes = v
	}
	if raw := strings.TrimSpace(values.Get("maxSizeBytes")); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return search.Request{}, errors.New("invalid maxSizeBytes")
		}
		cfg.MaxSizeBytes = v
	}

	return search.Request{
		Query: domain.MediaQuery{
			ExternalID: externalID,
			Kind:       domain.NormalizeMediaKind(strings.TrimSpace(values.Get("kind"))),
			Title:      title,
			Year:       year,
			Season:     season,
			Episode:    episode,
		},
		Config:       cfg,
		AdapterNames: parseCSV(values.Get("adapters")),
	}, nil
}

func parseCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if value := strings.TrimSpace(part); value != "" {
			out = append(out, value)
		}
	}
	return out
}

func parseOptionalInt(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return 0, errors.New("invalid integer")
	}
	return value, nil
}

func parseBool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{
		"error":   code,
		"message": message,
	})
}
