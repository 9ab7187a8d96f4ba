package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr          string
	SearchTimeout     time.Duration
	LogLevel          string
	LogFormat         string
	UserAgent         string
	JSONIndexEndpoint string
	TorznabEndpoints  []string
	TorznabAPIKey     string
	RedisURL          string
	CacheTTL          time.Duration
	CacheDisabled     bool
	MaxConcurrency    int
}

func LoadConfig() Config {
	return Config{
		HTTPAddr:          getEnv("HTTP_ADDR", ":8090"),
		SearchTimeout:     time.Duration(getEnvInt("SEARCH_TIMEOUT_SECONDS", 20)) * time.Second,
		LogLevel:          strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:         strings.ToLower(getEnv("LOG_FORMAT", "text")),
		UserAgent:         getEnv("SEARCH_USER_AGENT", "sourcesearch/1.0"),
		JSONIndexEndpoint: getEnv("SEARCH_ADAPTER_JSONINDEX_ENDPOINT", "https://apibay.org/q.php"),
		TorznabEndpoints:  splitCSV(getEnv("SEARCH_ADAPTER_TORZNAB_ENDPOINTS", "")),
		TorznabAPIKey:     strings.TrimSpace(os.Getenv("TORZNAB_API_KEY")),
		RedisURL:          getEnv("REDIS_URL", ""),
		CacheTTL:          time.Duration(getEnvInt("SEARCH_CACHE_TTL_MINUTES", 10)) * time.Minute,
		CacheDisabled:     getEnvBool("SEARCH_CACHE_DISABLED", false),
		MaxConcurrency:    getEnvInt("SEARCH_MAX_CONCURRENCY", 10),
	}
}

func getEnv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func getEnvInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	raw := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func splitCSV(raw string) []string {
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
