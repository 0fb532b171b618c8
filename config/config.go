package config

import (
	"log"
	"os"
	"strconv"
)

// Config holds all service configuration loaded from environment variables.
type Config struct {
	// Infrastructure
	SQLitePath    string
	RedisAddr     string // empty disables Redis publishing
	RedisPassword string
	MetricsAddr   string
	ListenAddr    string

	// Data
	DataCacheDir string

	// Evaluation: bars per year for Sharpe annualization
	AnnualizationFactor float64
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		SQLitePath:    getEnv("SQLITE_PATH", "data/runs.db"),
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		MetricsAddr:   getEnv("METRICS_ADDR", ":9090"),
		ListenAddr:    getEnv("LISTEN_ADDR", ":8080"),

		DataCacheDir: getEnv("DATA_CACHE_DIR", "data/cache"),

		// Default: daily bars
		AnnualizationFactor: getEnvFloat("AN_FACTOR", 252),
	}
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f <= 0 {
		log.Printf("[config] ignoring invalid %s value: %q", key, v)
		return fallback
	}
	return f
}
