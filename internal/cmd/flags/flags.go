package flags

import (
	"fmt"
	"slices"
	"time"

	libnats "github.com/nats-io/nats.go"
	"github.com/urfave/cli/v3"

	"memoria/internal/config"
)

var validLogLevels = []string{"debug", "info", "warn", "error"}

var validCacheBackends = []string{config.CacheBackendMemory, config.CacheBackendNATS}

func oneOf(what string, allowed []string) func(string) error {
	return func(value string) error {
		if !slices.Contains(allowed, value) {
			return fmt.Errorf("invalid %s: %s, allowed values are: %s", what, value, allowed)
		}
		return nil
	}
}

func nonNegative(what string) func(time.Duration) error {
	return func(value time.Duration) error {
		if value < 0 {
			return fmt.Errorf("invalid %s: %v, must not be negative", what, value)
		}
		return nil
	}
}

var defaults = config.Default()

var LogLevel = &cli.StringFlag{
	Name:      "log-level",
	Aliases:   []string{"l"},
	Usage:     "The level of the logs",
	Value:     defaults.LogLevel,
	Validator: oneOf("log level", validLogLevels),
	Sources:   cli.EnvVars("LOG_LEVEL"),
}

var ListenAddr = &cli.StringFlag{
	Name:    "listen-addr",
	Usage:   "The address the feed API listens on",
	Value:   defaults.ListenAddr,
	Sources: cli.EnvVars("LISTEN_ADDR"),
}

var MetricsAddr = &cli.StringFlag{
	Name:    "metrics-addr",
	Usage:   "The address serving /metrics and /health",
	Value:   defaults.MetricsAddr,
	Sources: cli.EnvVars("METRICS_ADDR"),
}

var DatabaseURL = &cli.StringFlag{
	Name:     "database-url",
	Aliases:  []string{"d"},
	Usage:    "The PostgreSQL connection string",
	Required: true,
	Sources:  cli.EnvVars("DATABASE_URL"),
}

var DBStatementTimeout = &cli.DurationFlag{
	Name:      "db-statement-timeout",
	Usage:     "PostgreSQL statement_timeout applied to every connection, 0 disables it",
	Value:     defaults.DBStatementTimeout,
	Validator: nonNegative("statement timeout"),
	Sources:   cli.EnvVars("DB_STATEMENT_TIMEOUT"),
}

var RequestTimeout = &cli.DurationFlag{
	Name:      "request-timeout",
	Usage:     "Deadline for serving one API request",
	Value:     defaults.RequestTimeout,
	Validator: nonNegative("request timeout"),
	Sources:   cli.EnvVars("REQUEST_TIMEOUT"),
}

var RateLimit = &cli.IntFlag{
	Name:    "rate-limit",
	Usage:   "Requests per minute per client IP, 0 disables rate limiting",
	Value:   config.DefaultRateLimit,
	Sources: cli.EnvVars("RATE_LIMIT"),
}

var CacheBackend = &cli.StringFlag{
	Name:      "cache-backend",
	Usage:     "Where trending rankings are cached: memory or nats",
	Value:     defaults.CacheBackend,
	Validator: oneOf("cache backend", validCacheBackends),
	Sources:   cli.EnvVars("CACHE_BACKEND"),
}

var NATSURL = &cli.StringFlag{
	Name:    "nats-url",
	Aliases: []string{"n"},
	Usage:   "The URL of the NATS server",
	Value:   libnats.DefaultURL,
	Sources: cli.EnvVars("NATS_URL"),
}

var NATSInit = &cli.BoolFlag{
	Name:        "nats-init",
	Aliases:     []string{"i"},
	Usage:       "Initialize the NATS server: create the cache bucket",
	DefaultText: "false",
	Value:       false,
	Sources:     cli.EnvVars("NATS_INIT"),
}

var TrendingTTL = &cli.DurationFlag{
	Name:      "trending-ttl",
	Usage:     "How long trending rankings are cached",
	Value:     defaults.TrendingTTL,
	Validator: nonNegative("trending ttl"),
	Sources:   cli.EnvVars("TRENDING_TTL"),
}

var TrendingWindow = &cli.DurationFlag{
	Name:      "trending-window",
	Usage:     "How far back trending candidates are taken from",
	Value:     defaults.TrendingWindow,
	Validator: nonNegative("trending window"),
	Sources:   cli.EnvVars("TRENDING_WINDOW"),
}

var TrendingCandidates = &cli.IntFlag{
	Name:    "trending-candidates",
	Usage:   "How many memories a trending scan reads per chunk",
	Value:   config.DefaultTrendingCandidates,
	Sources: cli.EnvVars("TRENDING_CANDIDATES"),
}

var FeedOversample = &cli.IntFlag{
	Name:    "feed-oversample",
	Usage:   "Rows fetched per source as a multiple of the page limit",
	Value:   config.DefaultOversample,
	Sources: cli.EnvVars("FEED_OVERSAMPLE"),
}

var FeedMaxScanBatches = &cli.IntFlag{
	Name:    "feed-max-scan-batches",
	Usage:   "How many chunks a source may scan to collect visible rows",
	Value:   config.DefaultMaxScanBatches,
	Sources: cli.EnvVars("FEED_MAX_SCAN_BATCHES"),
}

var FeedRefillAttempts = &cli.IntFlag{
	Name:    "feed-refill-attempts",
	Usage:   "Extra scans issued when a page comes back short",
	Sources: cli.EnvVars("FEED_REFILL_ATTEMPTS"),
}

var BreakerFailures = &cli.IntFlag{
	Name:    "breaker-failures",
	Usage:   "Consecutive database failures that open the circuit breaker",
	Value:   config.DefaultBreakerFailures,
	Sources: cli.EnvVars("BREAKER_FAILURES"),
}

var BreakerTimeout = &cli.DurationFlag{
	Name:      "breaker-timeout",
	Usage:     "How long the circuit breaker stays open",
	Value:     defaults.BreakerTimeout,
	Validator: nonNegative("breaker timeout"),
	Sources:   cli.EnvVars("BREAKER_TIMEOUT"),
}

var FeedServer = &cli.StringFlag{
	Name:    "server",
	Aliases: []string{"s"},
	Usage:   "Base URL of a running memoria API",
	Value:   "http://localhost" + defaults.ListenAddr,
	Sources: cli.EnvVars("MEMORIA_SERVER"),
}
