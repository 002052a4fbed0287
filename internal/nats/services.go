package nats

import (
	"github.com/zhulik/pal"

	"memoria/internal/core"
)

// Provide registers the NATS connection and the shared cache store.
func Provide() []pal.ServiceImpl {
	return []pal.ServiceImpl{
		pal.Provide[Bucket, NATS](),
		pal.Provide[core.CacheStore, KV](),
	}
}
