package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	CacheBackendMemory = "memory"
	CacheBackendNATS   = "nats"
)

var ErrInvalidConfig = errors.New("invalid config")

var validate = validator.New()

// Config is populated from command flags (see pkg/clicfg). Every command
// parses the same struct; flags a command does not declare stay zero and the
// consumers fall back to the defaults below.
type Config struct {
	LogLevel string `flag:"log-level" validate:"omitempty,oneof=debug info warn error"`

	ListenAddr  string `flag:"listen-addr"`
	MetricsAddr string `flag:"metrics-addr"`

	DatabaseURL        string        `flag:"database-url"`
	DBStatementTimeout time.Duration `flag:"db-statement-timeout" validate:"gte=0"`

	RequestTimeout time.Duration `flag:"request-timeout" validate:"gte=0"`
	RateLimit      int           `flag:"rate-limit" validate:"gte=0"`

	CacheBackend string `flag:"cache-backend" validate:"omitempty,oneof=memory nats"`
	NATSURL      string `flag:"nats-url" validate:"required_if=CacheBackend nats"`
	NATSInit     bool   `flag:"nats-init"`

	TrendingTTL        time.Duration `flag:"trending-ttl" validate:"gte=0"`
	TrendingWindow     time.Duration `flag:"trending-window" validate:"gte=0"`
	TrendingCandidates int           `flag:"trending-candidates" validate:"gte=0,lte=5000"`

	FeedOversample     int `flag:"feed-oversample" validate:"gte=0,lte=20"`
	FeedMaxScanBatches int `flag:"feed-max-scan-batches" validate:"gte=0,lte=32"`
	FeedRefillAttempts int `flag:"feed-refill-attempts" validate:"gte=0,lte=8"`

	BreakerFailures int           `flag:"breaker-failures" validate:"gte=0"`
	BreakerTimeout  time.Duration `flag:"breaker-timeout" validate:"gte=0"`
}

const (
	DefaultOversample         = 5
	DefaultMaxScanBatches     = 4
	DefaultTrendingTTL        = 10 * time.Minute
	DefaultTrendingWindow     = 72 * time.Hour
	DefaultTrendingCandidates = 500
	DefaultRequestTimeout     = 5 * time.Second
	DefaultRateLimit          = 100
	DefaultBreakerFailures    = 5
	DefaultBreakerTimeout     = 30 * time.Second
)

// Default returns the configuration the flags default to.
func Default() *Config {
	return &Config{
		LogLevel:           "info",
		ListenAddr:         ":8888",
		MetricsAddr:        ":8080",
		DBStatementTimeout: 3 * time.Second,
		RequestTimeout:     DefaultRequestTimeout,
		RateLimit:          DefaultRateLimit,
		CacheBackend:       CacheBackendMemory,
		TrendingTTL:        DefaultTrendingTTL,
		TrendingWindow:     DefaultTrendingWindow,
		TrendingCandidates: DefaultTrendingCandidates,
		FeedOversample:     DefaultOversample,
		FeedMaxScanBatches: DefaultMaxScanBatches,
		BreakerFailures:    DefaultBreakerFailures,
		BreakerTimeout:     DefaultBreakerTimeout,
	}
}

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}
