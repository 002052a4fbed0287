package cmd

import (
	"context"
	"slices"

	"github.com/urfave/cli/v3"
	"github.com/zhulik/pal"

	"memoria/internal/api"
	"memoria/internal/cache"
	"memoria/internal/cmd/flags"
	"memoria/internal/config"
	"memoria/internal/core"
	"memoria/internal/feed"
	"memoria/internal/metrics"
	"memoria/internal/nats"
	"memoria/internal/persistence"
	"memoria/internal/persistence/graph"
	"memoria/internal/persistence/posts"
	"memoria/internal/persistence/reshares"
	"memoria/internal/trending"
	"memoria/internal/visibility"
)

var serveCmd = &cli.Command{
	Name:  "serve",
	Usage: "Serve the feed API",
	Flags: []cli.Flag{
		flags.ListenAddr,
		flags.MetricsAddr,
		flags.DatabaseURL,
		flags.DBStatementTimeout,
		flags.RequestTimeout,
		flags.RateLimit,
		flags.CacheBackend,
		flags.NATSURL,
		flags.NATSInit,
		flags.TrendingTTL,
		flags.TrendingWindow,
		flags.TrendingCandidates,
		flags.FeedOversample,
		flags.FeedMaxScanBatches,
		flags.FeedRefillAttempts,
		flags.BreakerFailures,
		flags.BreakerTimeout,
	},
	Action: func(ctx context.Context, c *cli.Command) error {
		return run(ctx, c, serveServices(c.String(flags.CacheBackend.Name))...)
	},
}

func serveServices(cacheBackend string) []pal.ServiceImpl {
	return slices.Concat(
		storage(),
		cacheStore(cacheBackend),
		[]pal.ServiceImpl{
			pal.Provide[visibility.ContextResolver, visibility.Resolver](),
			pal.Provide[api.Feed, feed.Engine](),
			pal.Provide[api.Trending, trending.Service](),
			pal.Provide[*api.Server, api.Server](),
			pal.Provide[*metrics.HTTPServer, metrics.HTTPServer](),
			pal.Provide[*metrics.Collector, metrics.Collector](),
		},
	)
}

func storage() []pal.ServiceImpl {
	return []pal.ServiceImpl{
		pal.Provide[core.DB, persistence.DB](),
		pal.Provide[core.GraphRepository, graph.Repository](),
		pal.Provide[core.PostRepository, posts.Repository](),
		pal.Provide[core.ReshareRepository, reshares.Repository](),
	}
}

func cacheStore(backend string) []pal.ServiceImpl {
	if backend == config.CacheBackendNATS {
		return nats.Provide()
	}
	return []pal.ServiceImpl{pal.Provide[core.CacheStore, cache.Memory]()}
}
