package nats

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/nats-io/nats.go/jetstream"
)

// KV implements core.CacheStore on top of the JetStream key-value bucket,
// so that every replica shares one cache.
type KV struct {
	Bucket Bucket

	// Clock defaults to time.Now.
	Clock func() time.Time
}

type envelope struct {
	ExpiresAt int64  `json:"e"`
	Value     []byte `json:"v"`
}

func (c *KV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	entry, err := c.Bucket.KeyValue().Get(ctx, key)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get key %s: %w", key, err)
	}

	value, ok := decode(entry.Value(), c.now())
	return value, ok, nil
}

func (c *KV) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	data, err := encode(value, c.now().Add(ttl))
	if err != nil {
		return err
	}

	if _, err := c.Bucket.KeyValue().Put(ctx, key, data); err != nil {
		return fmt.Errorf("failed to store key %s: %w", key, err)
	}
	return nil
}

func (c *KV) now() time.Time {
	if c.Clock != nil {
		return c.Clock()
	}
	return time.Now()
}

func encode(value []byte, expiresAt time.Time) ([]byte, error) {
	return json.Marshal(envelope{ExpiresAt: expiresAt.UnixNano(), Value: value})
}

// decode treats undecodable and expired payloads as misses.
func decode(data []byte, now time.Time) ([]byte, bool) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, false
	}
	if now.UnixNano() >= env.ExpiresAt {
		return nil, false
	}
	return env.Value, true
}
