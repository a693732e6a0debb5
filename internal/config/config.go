// Package config loads service configuration from the environment, with an
// optional .env file read via godotenv.
package config

import (
	"errors"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// KeyPrefix namespaces every Redis key written by the service.
const KeyPrefix = "metahkg-redirect:"

// Defaults for optional settings.
const (
	DefaultListenAddr      = ":3000"
	DefaultRateLimitMax    = 10
	DefaultRateLimitWindow = 30 * time.Second
	DefaultCacheTTL        = 30 * time.Minute
	DefaultProbeTimeout    = 3 * time.Second
	DefaultFeedInterval    = 30 * time.Minute
	DefaultFeedDataDir     = "data"

	DefaultURLFeed  = "https://urlhaus.abuse.ch/downloads/csv_online/"
	DefaultHostFeed = "https://malware-filter.gitlab.io/malware-filter/urlhaus-filter-domains.txt"
)

// Config holds the resolved service configuration.
type Config struct {
	ListenAddr string

	SafebrowsingAPIKey   string
	SafebrowsingEndpoint string

	RedisHost     string
	RedisPort     string
	RedisPassword string

	TrustProxy bool

	RateLimitMax    int
	RateLimitWindow time.Duration
	CacheTTL        time.Duration
	ProbeTimeout    time.Duration

	FeedRefreshInterval time.Duration
	FeedDataDir         string
	URLFeedURL          string
	HostFeedURL         string
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present. The Safe Browsing API key is the
// only required setting.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		ListenAddr:           envStr("LISTEN_ADDR", DefaultListenAddr),
		SafebrowsingAPIKey:   os.Getenv("SAFEBROWSING_API_KEY"),
		SafebrowsingEndpoint: os.Getenv("SAFEBROWSING_ENDPOINT"),
		RedisHost:            envStr("REDIS_HOST", "localhost"),
		RedisPort:            envStr("REDIS_PORT", "6379"),
		RedisPassword:        os.Getenv("REDIS_PASSWORD"),
		TrustProxy:           envBool("TRUST_PROXY", false),
		RateLimitMax:         envInt("RATE_LIMIT_MAX", DefaultRateLimitMax),
		RateLimitWindow:      envDuration("RATE_LIMIT_WINDOW", DefaultRateLimitWindow),
		CacheTTL:             envDuration("CACHE_TTL", DefaultCacheTTL),
		ProbeTimeout:         envDuration("PROBE_TIMEOUT", DefaultProbeTimeout),
		FeedRefreshInterval:  envDuration("FEED_REFRESH_INTERVAL", DefaultFeedInterval),
		FeedDataDir:          envStr("FEED_DATA_DIR", DefaultFeedDataDir),
		URLFeedURL:           envStr("URLHAUS_URL_FEED", DefaultURLFeed),
		HostFeedURL:          envStr("URLHAUS_HOST_FEED", DefaultHostFeed),
	}
	if cfg.SafebrowsingAPIKey == "" {
		return nil, errors.New("SAFEBROWSING_API_KEY is required")
	}
	return cfg, nil
}

// RedisAddr returns the host:port address of the Redis backend.
func (c *Config) RedisAddr() string {
	return net.JoinHostPort(c.RedisHost, c.RedisPort)
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
