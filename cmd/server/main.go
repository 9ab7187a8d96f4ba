package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"mediastream/sourcesearch/internal/adapters/common"
	"mediastream/sourcesearch/internal/adapters/jsonindex"
	"mediastream/sourcesearch/internal/adapters/torznab"
	apihttp "mediastream/sourcesearch/internal/api/http"
	"mediastream/sourcesearch/internal/app"
	"mediastream/sourcesearch/internal/metrics"
	"mediastream/sourcesearch/internal/search"
	"mediastream/sourcesearch/internal/telemetry"
)

func main() {
	cfg := app.LoadConfig()
	logger := newLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	metrics.Register(prometheus.DefaultRegisterer)

	shutdownTracer, err := telemetry.Init(context.Background(), "source-search")
	if err != nil {
		logger.Warn("otel init failed", slog.String("error", err.Error()))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	logger.Info("configuration loaded",
		slog.String("service", "source-search"),
		slog.String("httpAddr", cfg.HTTPAddr),
		slog.String("logLevel", cfg.LogLevel),
		slog.String("logFormat", cfg.LogFormat),
		slog.Duration("searchTimeout", cfg.SearchTimeout),
		slog.String("jsonIndexEndpoint", cfg.JSONIndexEndpoint),
		slog.Int("torznabEndpoints", len(cfg.TorznabEndpoints)),
		slog.Bool("hasRedis", strings.TrimSpace(cfg.RedisURL) != ""),
		slog.Duration("cacheTTL", cfg.CacheTTL),
	)

	pacer := common.NewPacer(2, 2)
	indexClient := &http.Client{Timeout: cfg.SearchTimeout, Transport: otelhttp.NewTransport(http.DefaultTransport)}
	torznabClient := &http.Client{Timeout: cfg.SearchTimeout, Transport: otelhttp.NewTransport(http.DefaultTransport)}

	adapters := []search.Adapter{
		jsonindex.New(jsonindex.Config{
			Name:      "piratebay",
			Label:     "The Pirate Bay",
			Endpoint:  cfg.JSONIndexEndpoint,
			UserAgent: cfg.UserAgent,
			Client:    indexClient,
			Pacer:     pacer,
		}),
	}

	serviceOpts := []search.ServiceOption{
		search.WithConcurrencyLimit(cfg.MaxConcurrency),
	}
	if len(cfg.TorznabEndpoints) > 0 {
		serviceOpts = append(serviceOpts, search.WithBackup(torznab.New(torznab.Config{
			Name:      "torznab",
			Label:     "Torznab aggregator",
			Endpoints: cfg.TorznabEndpoints,
			APIKey:    cfg.TorznabAPIKey,
			UserAgent: cfg.UserAgent,
			Client:    torznabClient,
			Pacer:     pacer,
		})))
	}
	if opt := buildCacheOption(cfg, logger); opt != nil {
		serviceOpts = append(serviceOpts, opt)
	}

	searchService := search.NewService(adapters, cfg.SearchTimeout, serviceOpts...)

	handler := apihttp.NewServer(searchService, apihttp.WithLogger(logger)).Handler()
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	logger.Info("source search service started",
		slog.String("addr", cfg.HTTPAddr),
		slog.Duration("timeout", cfg.SearchTimeout),
	)

	select {
	case <-rootCtx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown error", slog.String("error", err.Error()))
	}
	logger.Info("source search service stopped")
}

func newLogger(levelRaw, formatRaw string) *slog.Logger {
	level := parseLogLevel(levelRaw)
	options := &slog.HandlerOptions{Level: level}
	format := strings.ToLower(strings.TrimSpace(formatRaw))
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, options))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, options))
}

func parseLogLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// buildCacheOption prefers Redis when configured and reachable, falling
// back to the in-process cache.
func buildCacheOption(cfg app.Config, logger *slog.Logger) search.ServiceOption {
	if cfg.CacheDisabled {
		return nil
	}

	redisURL := strings.TrimSpace(cfg.RedisURL)
	if redisURL != "" {
		redisOpts, err := redis.ParseURL(redisURL)
		if err != nil {
			logger.Warn("invalid redis url, using in-memory cache", slog.String("error", err.Error()))
			return search.WithCache(search.NewMemoryCacheBackend(0), cfg.CacheTTL)
		}
		client := redis.NewClient(redisOpts)
		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			logger.Warn("redis not reachable, using in-memory cache", slog.String("error", err.Error()))
			return search.WithCache(search.NewMemoryCacheBackend(0), cfg.CacheTTL)
		}
		logger.Info("redis connected", slog.String("addr", redisOpts.Addr))
		return search.WithCache(search.NewRedisCacheBackend(client), cfg.CacheTTL)
	}

	return search.WithCache(search.NewMemoryCacheBackend(0), cfg.CacheTTL)
}
