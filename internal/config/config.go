package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port       string
	BackendURL string

	// TokenFile is the client-local persistent storage for the bearer token.
	TokenFile string

	CatalogPageSize int
	// ActionDwell is never read from the environment: zero selects the tracker's fixed
	// 1200ms dwell. Tests set it directly to shorten runs.
	ActionDwell             time.Duration
	HistoryFetchConcurrency int
	RecommendationsTopK     int

	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Redis is optional; empty disables the product cache and the redis rate limiter.
	RedisURL        string
	ProductCacheTTL time.Duration

	RLLimit  int
	RLWindow time.Duration

	CORSOrigins []string

	OTelEnabled  bool
	OTelEndpoint string
}

func Load() *Config {
	// .env is optional
	_ = godotenv.Load()

	return &Config{
		Port:                    getEnv("HTTP_PORT", "8080"),
		BackendURL:              strings.TrimRight(getEnv("BACKEND_URL", "http://127.0.0.1:8000"), "/"),
		TokenFile:               getEnv("TOKEN_FILE", defaultTokenFile()),
		CatalogPageSize:         getEnvInt("CATALOG_PAGE_SIZE", 100),
		HistoryFetchConcurrency: getEnvInt("HISTORY_FETCH_CONCURRENCY", 8),
		RecommendationsTopK:     getEnvInt("RECOMMENDATIONS_TOP_K", 5),
		ReadTimeout:             getEnvDuration("READ_TIMEOUT", 2*time.Second),
		WriteTimeout:            getEnvDuration("WRITE_TIMEOUT", 5*time.Second),
		RedisURL:                getEnv("REDIS_URL", ""),
		ProductCacheTTL:         getEnvDuration("PRODUCT_CACHE_TTL", 10*time.Minute),
		RLLimit:                 getEnvInt("RL_LIMIT", 60),
		RLWindow:                getEnvDuration("RL_WINDOW", time.Minute),
		CORSOrigins:             getEnvList("CORS_ORIGINS", []string{"http://localhost:3000", "http://127.0.0.1:3000"}),
		OTelEnabled:             getEnvBool("OTEL_ENABLED", false),
		OTelEndpoint:            getEnv("OTEL_ENDPOINT", "localhost:4318"),
	}
}

func defaultTokenFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "recsys-storefront", "token")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i > 0 {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
