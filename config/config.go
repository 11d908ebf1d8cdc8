package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"

	apperrors "sjsage522/wikicatalog/pkg/errors"
)

// Cache backends accepted by CACHE_BACKEND
const (
	CacheBackendMemory   = "memory"
	CacheBackendMemcache = "memcache"
	CacheBackendRedis    = "redis"
)

// Config represents the application configuration
type Config struct {
	Environment string `env:"CATALOG_ENVIRONMENT" envDefault:"development"`

	// Wiki locations
	BaseURL      string `env:"WIKI_BASE_URL" envDefault:"https://arz-wiki.com"`
	DiscountsURL string `env:"DISCOUNTS_URL" envDefault:"https://arz-wiki.com/arz-rp/articles/donate-items-percent/"`
	VehiclesURL  string `env:"VEHICLES_URL" envDefault:"https://arz-wiki.com/arz-rp/vehicles/"`

	// Output
	OutputDir     string `env:"OUTPUT_DIR" envDefault:"."`
	DiscountsFile string `env:"DISCOUNTS_FILE" envDefault:"discounts.json"`
	VehiclesFile  string `env:"VEHICLES_FILE" envDefault:"vehicles.json"`
	ErrorLogFile  string `env:"ERROR_LOG_FILE"`

	Fetch Fetch
	Crawl Crawl
	Cache Cache
}

// Fetch configures the HTTP client
type Fetch struct {
	Timeout         time.Duration `env:"FETCH_TIMEOUT" envDefault:"30s"`
	Retries         int           `env:"FETCH_RETRIES" envDefault:"3"`
	RetryWait       time.Duration `env:"FETCH_RETRY_WAIT" envDefault:"2s"`
	RetryMaxWait    time.Duration `env:"FETCH_RETRY_MAX_WAIT" envDefault:"10s"`
	RateLimit       float64       `env:"RATE_LIMIT" envDefault:"2"`
	RateBurst       int           `env:"RATE_BURST" envDefault:"1"`
	BlockTime       time.Duration `env:"BLOCK_TIME" envDefault:"60s"`
	ChallengeBypass bool          `env:"CHALLENGE_BYPASS" envDefault:"true"`
}

// Crawl configures pagination and detail visits
type Crawl struct {
	DetailDelay       time.Duration `env:"DETAIL_DELAY" envDefault:"500ms"`
	DetailConcurrency int           `env:"DETAIL_CONCURRENCY" envDefault:"1"`
	MaxPages          int           `env:"MAX_PAGES" envDefault:"0"`
}

// Cache configures the cooldown store
type Cache struct {
	Backend      string `env:"CACHE_BACKEND" envDefault:"memory"`
	MemcacheAddr string `env:"MEMCACHE_ADDR" envDefault:"localhost:11211"`
	RedisAddr    string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisDB      int    `env:"REDIS_DB" envDefault:"0"`
}

// LoadConfig loads .env (when present) and parses the environment
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, apperrors.NewConfiguration("env.Parse", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for values the crawlers cannot work with
func (c *Config) Validate() error {
	for name, raw := range map[string]string{
		"WIKI_BASE_URL": c.BaseURL,
		"DISCOUNTS_URL": c.DiscountsURL,
		"VEHICLES_URL":  c.VehiclesURL,
	} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return apperrors.NewConfiguration(fmt.Sprintf("%s must be an absolute URL, got %q", name, raw), err)
		}
	}

	if c.OutputDir == "" {
		return apperrors.NewConfiguration("OUTPUT_DIR must not be empty", nil)
	}
	if c.DiscountsFile == "" || c.VehiclesFile == "" {
		return apperrors.NewConfiguration("output file names must not be empty", nil)
	}
	if c.Fetch.Timeout <= 0 {
		return apperrors.NewConfiguration("FETCH_TIMEOUT must be positive", nil)
	}
	if c.Fetch.Retries < 0 {
		return apperrors.NewConfiguration("FETCH_RETRIES must not be negative", nil)
	}
	if c.Fetch.RateLimit <= 0 || c.Fetch.RateBurst < 1 {
		return apperrors.NewConfiguration("RATE_LIMIT must be positive and RATE_BURST at least 1", nil)
	}
	if c.Crawl.DetailConcurrency < 1 {
		return apperrors.NewConfiguration("DETAIL_CONCURRENCY must be at least 1", nil)
	}
	if c.Crawl.DetailDelay < 0 || c.Crawl.MaxPages < 0 || c.Fetch.BlockTime < 0 {
		return apperrors.NewConfiguration("DETAIL_DELAY, MAX_PAGES and BLOCK_TIME must not be negative", nil)
	}

	switch c.Cache.Backend {
	case CacheBackendMemory, CacheBackendMemcache, CacheBackendRedis:
	default:
		return apperrors.NewConfiguration(fmt.Sprintf("unknown CACHE_BACKEND %q", c.Cache.Backend), nil)
	}
	return nil
}
