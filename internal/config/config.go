package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Cache backends.
const (
	CacheMemory   = "memory"
	CachePostgres = "postgres"
)

// Config captures all runtime configuration derived from environment variables.
type Config struct {
	Port string

	KOBISURL        string
	KOBISAPIKey     string
	KOBISRatePerSec float64

	TMDBURL      string
	TMDBAPIKey   string
	TMDBLanguage string

	ReviewsURL string

	UpstreamTimeoutSecs int
	DetailWaitMillis    int
	ReadTimeoutSecs     int
	WriteTimeoutSecs    int
	IdleTimeoutSecs     int

	CacheBackend      string
	DBURL             string
	DBMaxConns        int
	DBMinConns        int
	DBMaxIdleSecs     int
	DBMaxLifeSecs     int
	DBConnTimeoutSecs int
	DBStatementCache  int

	LogLevel string
}

// LoadEnvFile reads KEY=VALUE pairs from path into the environment without
// overriding variables that are already set. A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// Load reads configuration from environment variables, applying defaults and validation.
// KOBIS_API_KEY and TMDB_API_KEY are optional here: a missing ranking key is
// reported on each query and a missing metadata key disables enrichment.
func Load() (Config, error) {
	cfg := Config{
		Port:                getEnv("PORT", "8080"),
		KOBISURL:            os.Getenv("KOBIS_URL"),
		KOBISAPIKey:         os.Getenv("KOBIS_API_KEY"),
		KOBISRatePerSec:     getEnvFloat("KOBIS_RATE_PER_SEC", 5),
		TMDBURL:             os.Getenv("TMDB_URL"),
		TMDBAPIKey:          os.Getenv("TMDB_API_KEY"),
		TMDBLanguage:        getEnv("TMDB_LANGUAGE", "ko-KR"),
		ReviewsURL:          os.Getenv("REVIEWS_URL"),
		UpstreamTimeoutSecs: getEnvInt("UPSTREAM_TIMEOUT_SECS", 5),
		DetailWaitMillis:    getEnvInt("DETAIL_WAIT_MILLIS", 1500),
		ReadTimeoutSecs:     getEnvInt("SERVER_READ_TIMEOUT", 15),
		WriteTimeoutSecs:    getEnvInt("SERVER_WRITE_TIMEOUT", 15),
		IdleTimeoutSecs:     getEnvInt("SERVER_IDLE_TIMEOUT", 60),
		CacheBackend:        strings.ToLower(getEnv("CACHE_BACKEND", CacheMemory)),
		DBURL:               os.Getenv("DB_URL"),
		DBMaxConns:          getEnvInt("DB_MAX_CONNS", 10),
		DBMinConns:          getEnvInt("DB_MIN_CONNS", 1),
		DBMaxIdleSecs:       getEnvInt("DB_MAX_CONN_IDLE_SECS", 300),
		DBMaxLifeSecs:       getEnvInt("DB_MAX_CONN_LIFETIME_SECS", 3600),
		DBConnTimeoutSecs:   getEnvInt("DB_CONN_TIMEOUT_SECS", 10),
		DBStatementCache:    getEnvInt("DB_STATEMENT_CACHE_CAPACITY", 64),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
	}

	if cfg.UpstreamTimeoutSecs <= 0 {
		return Config{}, fmt.Errorf("UPSTREAM_TIMEOUT_SECS must be positive")
	}
	if cfg.DetailWaitMillis < 0 {
		return Config{}, fmt.Errorf("DETAIL_WAIT_MILLIS must be non-negative")
	}
	if cfg.KOBISRatePerSec < 0 {
		return Config{}, fmt.Errorf("KOBIS_RATE_PER_SEC must be non-negative")
	}

	switch cfg.CacheBackend {
	case CacheMemory:
	case CachePostgres:
		if cfg.DBURL == "" {
			return Config{}, fmt.Errorf("DB_URL is required when CACHE_BACKEND=postgres")
		}
		if cfg.DBMaxConns <= 0 {
			return Config{}, fmt.Errorf("DB_MAX_CONNS must be positive")
		}
		if cfg.DBMinConns < 0 {
			return Config{}, fmt.Errorf("DB_MIN_CONNS must be non-negative")
		}
		if cfg.DBMinConns > cfg.DBMaxConns {
			return Config{}, fmt.Errorf("DB_MIN_CONNS cannot exceed DB_MAX_CONNS")
		}
		if cfg.DBStatementCache < 0 {
			return Config{}, fmt.Errorf("DB_STATEMENT_CACHE_CAPACITY must be non-negative")
		}
	default:
		return Config{}, fmt.Errorf("CACHE_BACKEND must be %q or %q, got %q", CacheMemory, CachePostgres, cfg.CacheBackend)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			return parsed
		}
	}
	return fallback
}
