package nats

import (
	"context"
	"log/slog"

	libnats "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/samber/lo"

	"memoria/internal/config"
)

const (
	bucket = "memoria"
)

// Bucket hands out the key-value bucket backing the shared cache.
type Bucket interface {
	KeyValue() jetstream.KeyValue
}

// NATS owns the connection and the key-value bucket backing the shared cache.
type NATS struct {
	Logger *slog.Logger
	Config *config.Config

	JS jetstream.JetStream
	KV jetstream.KeyValue
}

func (n *NATS) Init(ctx context.Context) error {
	n.Logger = n.Logger.With("component", "nats.NATS")

	nc, err := libnats.Connect(n.Config.NATSURL, libnats.Name("memoria"))
	if err != nil {
		return err
	}

	js, err := jetstream.New(nc)
	if err != nil {
		return err
	}

	n.JS = js

	if n.Config.NATSInit {
		if err := n.initNATS(ctx); err != nil {
			return err
		}
	}

	kv, err := js.KeyValue(ctx, bucket)
	if err != nil {
		return err
	}
	n.KV = kv

	return nil
}

func (n *NATS) KeyValue() jetstream.KeyValue {
	return n.KV
}

func (n *NATS) HealthCheck(context.Context) error {
	_, err := n.JS.Conn().RTT()
	return err
}

func (n *NATS) Shutdown(context.Context) error {
	return n.JS.Conn().Drain()
}

func (n *NATS) initNATS(ctx context.Context) error {
	n.Logger.Info("Initializing NATS")

	// Entries carry their own expiry; the bucket TTL only bounds storage.
	ttl := 2 * lo.CoalesceOrEmpty(n.Config.TrendingTTL, config.DefaultTrendingTTL)

	_, err := n.JS.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "memoria shared cache",
		History:     1,
		TTL:         ttl,
	})
	if err != nil {
		return err
	}
	n.Logger.Info("KeyValue created or updated", "name", bucket, "ttl", ttl)

	return nil
}
